package youtube

import (
	"errors"
	"fmt"
)

// Reason classifies why an extraction produced no transcript.
type Reason string

const (
	ReasonInvalidURL     Reason = "invalid_url"
	ReasonPageFetch      Reason = "page_fetch"
	ReasonNoTranscript   Reason = "no_transcript"
	ReasonNoAPIKey       Reason = "no_api_key"
	ReasonRateLimited    Reason = "rate_limited"
	ReasonUpstreamStatus Reason = "upstream_status"
	ReasonTransport      Reason = "transport"
	ReasonShapeMismatch  Reason = "shape_mismatch"
	ReasonNoCaptions     Reason = "no_captions"
	ReasonInternal       Reason = "internal"
)

// Error is the failure variant of every pipeline step.
type Error struct {
	Reason  Reason
	VideoID string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Reason)
	if e.VideoID != "" {
		msg = "[" + e.VideoID + "] " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(reason Reason, videoID string, err error) *Error {
	return &Error{Reason: reason, VideoID: videoID, Err: err}
}

func errorf(reason Reason, videoID, format string, args ...any) *Error {
	return newError(reason, videoID, fmt.Errorf(format, args...))
}

// ReasonOf returns the Reason carried by err, or "" when err is nil or foreign.
func ReasonOf(err error) Reason {
	var yerr *Error
	if errors.As(err, &yerr) {
		return yerr.Reason
	}
	return ""
}

// ShapeError reports where an upstream JSON document stopped matching the
// expected structure.
type ShapeError struct {
	Path string // e.g. actions[0].updateEngagementPanelAction
	Msg  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected response shape at %s: %s", e.Path, e.Msg)
}
