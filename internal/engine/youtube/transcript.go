package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// CaptionUnit is one timed caption line as returned by /get_transcript.
type CaptionUnit struct {
	Text     string
	Start    float64 // seconds
	Duration float64 // seconds
}

// defaultCaptionMs is the assumed caption length when endMs is absent.
const defaultCaptionMs = 1000

// FetchCaptions calls /get_transcript with the scraped tokens and returns
// the caption units that could be parsed.
func FetchCaptions(ctx context.Context, t *engine.Transport, cfg engine.Config, tokens ScrapeTokens, videoID string) ([]CaptionUnit, error) {
	engine.IncrAPICall()

	body, err := json.Marshal(getTranscriptReq{
		Context: innertubeCtx{Client: webClient{ClientName: "WEB", ClientVersion: cfg.ClientVersion}},
		Params:  tokens.Params,
	})
	if err != nil {
		return nil, newError(ReasonInternal, videoID, err)
	}

	resp, err := t.Do(ctx, engine.Request{
		Method: http.MethodPost,
		URL:    cfg.TranscriptAPIURL + "?key=" + url.QueryEscape(tokens.APIKey),
		Header: map[string]string{
			"Content-Type": "application/json",
			"User-Agent":   cfg.PickUserAgent(),
			"Origin":       ytOrigin,
			"Referer":      ytReferer,
		},
		Body: body,
	})
	if err != nil {
		if errors.Is(err, engine.ErrRateLimited) {
			engine.IncrRateLimited()
			slog.Warn("youtube: rate limited by get_transcript (429)", slog.String("id", videoID))
			return nil, newError(ReasonRateLimited, videoID, err)
		}
		var serr *engine.StatusError
		if errors.As(err, &serr) {
			slog.Warn("youtube: get_transcript failed after retries", slog.String("id", videoID), slog.Int("status", serr.StatusCode))
			return nil, newError(ReasonUpstreamStatus, videoID, err)
		}
		slog.Warn("youtube: get_transcript call failed", slog.String("id", videoID), slog.Any("error", err))
		return nil, newError(ReasonTransport, videoID, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		engine.IncrRateLimited()
		slog.Warn("youtube: rate limited by get_transcript (429)", slog.String("id", videoID))
		return nil, errorf(ReasonRateLimited, videoID, "get_transcript: HTTP 429")
	}
	if !resp.OK() {
		slog.Warn("youtube: get_transcript returned non-2xx", slog.String("id", videoID), slog.Int("status", resp.StatusCode))
		return nil, errorf(ReasonUpstreamStatus, videoID, "get_transcript: HTTP %d", resp.StatusCode)
	}

	units, err := parseCaptions(resp.Body)
	if err != nil {
		var shapeErr *ShapeError
		if errors.As(err, &shapeErr) {
			engine.IncrShapeMismatch()
			slog.Warn("youtube: unexpected get_transcript response structure",
				slog.String("id", videoID), slog.String("path", shapeErr.Path), slog.String("detail", shapeErr.Msg))
			return nil, newError(ReasonShapeMismatch, videoID, err)
		}
		return nil, newError(ReasonNoCaptions, videoID, err)
	}
	slog.Debug("youtube: fetched captions", slog.String("id", videoID), slog.Int("count", len(units)))
	return units, nil
}

// parseCaptions maps a /get_transcript body to caption units. A malformed
// segment is skipped; the batch fails only when none survive.
func parseCaptions(body []byte) ([]CaptionUnit, error) {
	if !json.Valid(body) {
		return nil, &ShapeError{Path: "$", Msg: "body is not valid JSON"}
	}
	list, err := descend(body, segmentListPath...)
	if err != nil {
		return nil, err
	}
	var segments []json.RawMessage
	if err := json.Unmarshal(list, &segments); err != nil {
		return nil, &ShapeError{Path: formatPath(segmentListPath), Msg: "not an array"}
	}

	units := make([]CaptionUnit, 0, len(segments))
	for i, seg := range segments {
		u, err := parseSegment(seg)
		if err != nil {
			slog.Debug("youtube: skipping malformed segment", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		units = append(units, u)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no parseable segments among %d", len(segments))
	}
	return units, nil
}

func parseSegment(seg json.RawMessage) (CaptionUnit, error) {
	renderer, err := descend(seg, "transcriptSegmentRenderer")
	if err != nil {
		return CaptionUnit{}, err
	}
	textRaw, err := descend(renderer, "snippet", "runs", 0, "text")
	if err != nil {
		return CaptionUnit{}, err
	}
	var text string
	if err := json.Unmarshal(textRaw, &text); err != nil {
		return CaptionUnit{}, &ShapeError{Path: "snippet.runs[0].text", Msg: "not a string"}
	}

	startRaw, err := descend(renderer, "startMs")
	if err != nil {
		return CaptionUnit{}, err
	}
	startMs, err := millis(startRaw)
	if err != nil {
		return CaptionUnit{}, fmt.Errorf("startMs: %w", err)
	}

	endMs := startMs + defaultCaptionMs
	if endRaw, err := descend(renderer, "endMs"); err == nil {
		if endMs, err = millis(endRaw); err != nil {
			return CaptionUnit{}, fmt.Errorf("endMs: %w", err)
		}
	}

	return CaptionUnit{
		Text:     text,
		Start:    float64(startMs) / 1000,
		Duration: float64(endMs-startMs) / 1000,
	}, nil
}
