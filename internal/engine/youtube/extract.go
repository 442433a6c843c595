package youtube

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// Extractor runs the transcript pipeline:
// resolve ID → scrape watch page → /get_transcript → format.
// It holds configuration only; every call builds and releases its own
// Transport, so one Extractor is safe for concurrent use.
type Extractor struct {
	cfg          engine.Config
	newTransport func(engine.TransportConfig) (*engine.Transport, error)
}

// NewExtractor validates cfg and returns an Extractor.
func NewExtractor(cfg engine.Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{cfg: cfg, newTransport: engine.NewTransport}, nil
}

// Languages returns the language preference list for a caller hint.
func (e *Extractor) Languages(language string) []string {
	return PreferenceList(language, e.cfg.FallbackLanguages)
}

// Extract returns the transcript for the video at rawURL. Every failure,
// including a panic, is returned as *Error.
func (e *Extractor) Extract(ctx context.Context, rawURL, language string) (res *Result, err error) {
	engine.IncrExtraction()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("youtube: extraction panicked", slog.String("url", rawURL),
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			res, err = nil, errorf(ReasonInternal, "", "panic: %v", r)
		}
		if err != nil {
			engine.IncrFailure()
		} else {
			engine.IncrSuccess()
		}
	}()

	videoID, ok := ResolveVideoID(strings.TrimSpace(rawURL))
	if !ok {
		slog.Warn("youtube: failed to extract video id", slog.String("url", rawURL))
		return nil, errorf(ReasonInvalidURL, "", "no video id in %q", rawURL)
	}
	log := slog.With(slog.String("id", videoID))
	log.Info("youtube: attempting transcript extraction")
	log.Debug("youtube: language priority", slog.Any("languages", e.Languages(language)))

	t, err := e.newTransport(e.cfg.Transport)
	if err != nil {
		return nil, newError(ReasonTransport, videoID, err)
	}
	defer t.Close()

	var units []CaptionUnit
	err = engine.TrackOperation(ctx, "youtube_transcript", e.cfg.SlowThreshold, func(ctx context.Context) error {
		tokens, err := FetchScrapeTokens(ctx, t, e.cfg, videoID)
		if err != nil {
			return err
		}
		units, err = FetchCaptions(ctx, t, e.cfg, tokens, videoID)
		return err
	})
	if err != nil {
		log.Warn("youtube: failed to extract transcript", slog.String("reason", string(ReasonOf(err))))
		return nil, err
	}

	result := Format(units)
	log.Info("youtube: extracted transcript",
		slog.Int("segments", len(result.Segments)), slog.Int("words", result.WordCount()))
	return &result, nil
}

// ExtractTranscript collapses Extract to presence or absence.
func (e *Extractor) ExtractTranscript(ctx context.Context, rawURL, language string) (*Result, bool) {
	res, err := e.Extract(ctx, rawURL, language)
	if err != nil {
		return nil, false
	}
	return res, true
}
