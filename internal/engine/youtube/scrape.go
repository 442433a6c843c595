package youtube

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// ScrapeTokens are the two ephemeral values a watch page embeds for its own
// transcript panel. They belong to one page load and are never reused.
type ScrapeTokens struct {
	APIKey string
	Params string
}

var (
	// getTranscriptRE extracts the transcript params blob; tolerant of whitespace.
	getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint"\s*:\s*\{\s*"params"\s*:\s*"([^"]+)"`)
	// apiKeyRE extracts the Innertube API key the page uses for its own calls.
	apiKeyRE = regexp.MustCompile(`"INNERTUBE_API_KEY"\s*:\s*"([^"]+)"`)
)

// ExtractParams returns the getTranscriptEndpoint params from watch-page HTML.
// The value is percent-encoded in some page builds; /get_transcript expects
// the decoded form.
func ExtractParams(html string) (string, bool) {
	m := getTranscriptRE.FindStringSubmatch(html)
	if len(m) < 2 {
		return "", false
	}
	if !strings.Contains(m[1], "%") {
		return m[1], true
	}
	// PathUnescape keeps '+', which is part of the base64 alphabet.
	if decoded, err := url.PathUnescape(m[1]); err == nil {
		return decoded, true
	}
	return m[1], true
}

// ExtractAPIKey returns INNERTUBE_API_KEY from watch-page HTML.
func ExtractAPIKey(html string) (string, bool) {
	m := apiKeyRE.FindStringSubmatch(html)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// FetchScrapeTokens fetches the watch page for videoID and extracts the API
// key and transcript params.
func FetchScrapeTokens(ctx context.Context, t *engine.Transport, cfg engine.Config, videoID string) (ScrapeTokens, error) {
	engine.IncrPageFetch()

	resp, err := t.Do(ctx, engine.Request{
		Method: http.MethodGet,
		URL:    cfg.WatchURL + "?v=" + url.QueryEscape(videoID),
		Header: map[string]string{
			"User-Agent":      cfg.PickUserAgent(),
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
	})
	if err != nil {
		slog.Warn("youtube: watch page fetch failed", slog.String("id", videoID), slog.Any("error", err))
		if errors.Is(err, engine.ErrRateLimited) {
			engine.IncrRateLimited()
			return ScrapeTokens{}, newError(ReasonRateLimited, videoID, err)
		}
		return ScrapeTokens{}, newError(ReasonPageFetch, videoID, err)
	}
	if !resp.OK() {
		slog.Warn("youtube: watch page returned non-2xx", slog.String("id", videoID), slog.Int("status", resp.StatusCode))
		return ScrapeTokens{}, errorf(ReasonPageFetch, videoID, "watch page: HTTP %d", resp.StatusCode)
	}

	return parseScrapeTokens(string(resp.Body), videoID)
}

func parseScrapeTokens(html, videoID string) (ScrapeTokens, error) {
	params, ok := ExtractParams(html)
	if !ok {
		slog.Debug("youtube: no transcript params in watch page", slog.String("id", videoID))
		return ScrapeTokens{}, errorf(ReasonNoTranscript, videoID, "getTranscriptEndpoint not found in watch page")
	}

	key, ok := ExtractAPIKey(html)
	if !ok {
		slog.Warn("youtube: transcript params present but no API key", slog.String("id", videoID))
		return ScrapeTokens{}, errorf(ReasonNoAPIKey, videoID, "INNERTUBE_API_KEY not found in watch page")
	}

	slog.Debug("youtube: scraped tokens", slog.String("id", videoID),
		slog.String("key", strutil.TruncateWith(key, 12, "...")), slog.Int("params_len", len(params)))
	return ScrapeTokens{APIKey: key, Params: strings.TrimSpace(params)}, nil
}
