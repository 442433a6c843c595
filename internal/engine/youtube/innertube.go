package youtube

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// YouTube Innertube API — request payload types and a JSON path walker for
// the deeply nested responses. Higher-level logic lives in scrape.go and
// transcript.go.

const (
	ytOrigin  = "https://www.youtube.com"
	ytReferer = "https://www.youtube.com/watch"
)

// --- WEB client types (/get_transcript endpoint) ---

type getTranscriptReq struct {
	Context innertubeCtx `json:"context"`
	Params  string       `json:"params"`
}

type innertubeCtx struct {
	Client webClient `json:"client"`
}

type webClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
}

// segmentListPath locates the caption segments in a /get_transcript response.
var segmentListPath = []any{
	"actions", 0,
	"updateEngagementPanelAction", "content",
	"transcriptRenderer", "content",
	"transcriptSearchPanelRenderer", "body",
	"transcriptSegmentListRenderer", "initialSegments",
}

// descend walks raw along path, where each step is an object key (string) or
// an array index (int). The returned ShapeError names the first step that
// did not resolve.
func descend(raw json.RawMessage, path ...any) (json.RawMessage, error) {
	cur := raw
	var walked strings.Builder
	for _, step := range path {
		switch s := step.(type) {
		case string:
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(cur, &obj); err != nil || obj == nil {
				return nil, &ShapeError{Path: pathString(walked.String()), Msg: "not an object"}
			}
			if walked.Len() > 0 {
				walked.WriteByte('.')
			}
			walked.WriteString(s)
			next, ok := obj[s]
			if !ok {
				return nil, &ShapeError{Path: walked.String(), Msg: "missing key"}
			}
			cur = next
		case int:
			var arr []json.RawMessage
			if err := json.Unmarshal(cur, &arr); err != nil {
				return nil, &ShapeError{Path: pathString(walked.String()), Msg: "not an array"}
			}
			walked.WriteString("[" + strconv.Itoa(s) + "]")
			if s < 0 || s >= len(arr) {
				return nil, &ShapeError{Path: walked.String(), Msg: fmt.Sprintf("index out of range (len %d)", len(arr))}
			}
			cur = arr[s]
		default:
			panic(fmt.Sprintf("descend: unsupported path step %T", step))
		}
	}
	return cur, nil
}

// formatPath renders path the way descend reports it, e.g. actions[0].content.
func formatPath(path []any) string {
	var b strings.Builder
	for _, step := range path {
		switch s := step.(type) {
		case string:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s)
		case int:
			b.WriteString("[" + strconv.Itoa(s) + "]")
		}
	}
	return pathString(b.String())
}

func pathString(p string) string {
	if p == "" {
		return "$"
	}
	return p
}

// millis decodes a millisecond field that YouTube sends as a string or number.
func millis(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
