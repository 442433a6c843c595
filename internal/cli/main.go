// Package cli implements the ytt command.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/youtube"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

// Main runs ytt and exits non-zero when any extraction failed.
func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(newExtractor)
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// extractorFactory builds the extractor once flags are parsed.
type extractorFactory func(cfg engine.Config) (extractor, error)

func newExtractor(cfg engine.Config) (extractor, error) {
	return youtube.NewExtractor(cfg)
}

func newRootCmd(factory extractorFactory) *cobra.Command {
	var opts options
	root := &cobra.Command{
		Use:   "ytt [url...]",
		Short: "Print YouTube caption transcripts without downloading media",
		Example: `  ytt https://youtu.be/jNQXAC9IVRw
  ytt --segments --lang de https://www.youtube.com/watch?v=jNQXAC9IVRw
  ytt --file urls.txt --parallel 4 --json`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.urls = args
			return run(cmd, opts, factory)
		},
	}

	f := root.Flags()
	f.StringVarP(&opts.language, "lang", "l", "", "preferred caption language (hint only)")
	f.StringVarP(&opts.file, "file", "f", "", "read URLs from file, one per line (- for stdin)")
	f.BoolVar(&opts.json, "json", false, "print results as JSON")
	f.BoolVarP(&opts.segments, "segments", "s", false, "print numbered segments with timings")
	f.IntVarP(&opts.parallel, "parallel", "p", 1, "number of concurrent extractions")
	f.StringVarP(&opts.config, "config", "c", "", "YAML config file")
	f.IntVar(&opts.retries, "retries", -1, "retries per request (default from config)")
	f.DurationVar(&opts.timeout, "timeout", 0, "per-attempt timeout (default from config)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")

	// Hidden tuning flag
	f.Bool("browser-tls", false, "use the Chrome TLS fingerprint transport")
	_ = f.MarkHidden("browser-tls")

	return root
}
