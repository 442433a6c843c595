package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/anatolykoptev/go_transcript/internal/engine/youtube"
	"github.com/fatih/color"
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
	bold     = color.New(color.Bold).SprintFunc()
)

type jsonRecord struct {
	URL       string            `json:"url"`
	VideoID   string            `json:"video_id,omitempty"`
	Success   bool              `json:"success"`
	Text      string            `json:"text,omitempty"`
	Segments  []youtube.Segment `json:"segments,omitempty"`
	Language  *string           `json:"language"`
	WordCount int               `json:"word_count,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func toRecord(r result) jsonRecord {
	rec := jsonRecord{URL: r.url}
	rec.VideoID, _ = youtube.ResolveVideoID(r.url)
	if r.err != nil {
		rec.Error = string(youtube.ReasonOf(r.err))
		return rec
	}
	rec.Success = true
	rec.Text = r.res.Text
	rec.Segments = r.res.Segments
	rec.Language = r.res.Language
	rec.WordCount = r.res.WordCount()
	return rec
}

// writeJSON prints one object for a single URL and an array otherwise.
func writeJSON(w io.Writer, results []result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(toRecord(results[0]))
	}
	recs := make([]jsonRecord, len(results))
	for i, r := range results {
		recs[i] = toRecord(r)
	}
	return enc.Encode(recs)
}

// writeText prints transcripts to w and per-URL status lines to status.
func writeText(w, status io.Writer, results []result, segments bool) {
	batch := len(results) > 1
	for _, r := range results {
		if r.err != nil {
			fmt.Fprintf(status, "%s %s: could not extract transcript (%s)\n",
				failMark("✗"), r.url, youtube.ReasonOf(r.err))
			continue
		}
		if batch {
			fmt.Fprintf(status, "%s %s %s\n", okMark("✓"), r.url,
				dim(fmt.Sprintf("(%d segments, %d words)", len(r.res.Segments), r.res.WordCount())))
			fmt.Fprintf(w, "%s\n", bold("# "+r.url))
		}
		if segments {
			for _, s := range r.res.Segments {
				fmt.Fprintf(w, "[%3d] %8.2fs  %s\n", s.ID, s.Start, s.Text)
			}
		} else {
			fmt.Fprintln(w, r.res.Text)
		}
		if batch {
			fmt.Fprintln(w)
		}
	}
}

func writeSummary(w io.Writer, ok, failed int) {
	fmt.Fprintf(w, "\nSummary: %s successful, %s failed\n",
		okMark(ok), failMark(failed))
}
