// ytt prints YouTube caption transcripts.
package main

import "github.com/anatolykoptev/go_transcript/internal/cli"

func main() {
	cli.Main()
}
