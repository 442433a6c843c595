package youtube

import "strings"

// Segment is one numbered, non-empty caption in output order.
type Segment struct {
	ID       int     `json:"id"`
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Result is the transcript returned to callers. Text omits timestamps to
// keep downstream token counts low; segments keep them.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language *string   `json:"language"` // always nil: the upstream call does not report it
}

// Format trims each caption, drops empty ones, numbers the survivors from 0,
// and joins their text with single spaces.
func Format(captions []CaptionUnit) Result {
	segments := make([]Segment, 0, len(captions))
	parts := make([]string, 0, len(captions))
	for _, c := range captions {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			ID:       len(segments),
			Text:     text,
			Start:    c.Start,
			Duration: c.Duration,
		})
		parts = append(parts, text)
	}
	return Result{
		Text:     strings.Join(parts, " "),
		Segments: segments,
	}
}

// WordCount returns the number of whitespace-separated words in r.Text.
func (r Result) WordCount() int {
	return len(strings.Fields(r.Text))
}
