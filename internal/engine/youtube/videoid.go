package youtube

import (
	"log/slog"
	"regexp"
)

// videoIDPatterns are tried in order; the first usable match wins.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`), // watch?v=, /shorts/, /live/, youtu.be/
	regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`embed/([0-9A-Za-z_-]{11})`),
}

func isIDChar(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '-'
}

// ResolveVideoID extracts the 11-character video ID from a YouTube URL.
// Returns false when no pattern matches. A candidate immediately followed by
// another ID character would be a truncated longer ID, so it is skipped
// rather than returned.
func ResolveVideoID(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}
	for _, re := range videoIDPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(rawURL, -1) {
			start, end := m[2], m[3]
			if end < len(rawURL) && isIDChar(rawURL[end]) {
				slog.Warn("youtube: skipping id candidate longer than 11 characters",
					slog.String("url", rawURL), slog.String("candidate", rawURL[start:end]))
				continue
			}
			return rawURL[start:end], true
		}
	}
	return "", false
}
