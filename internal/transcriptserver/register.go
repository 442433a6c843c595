// Package transcriptserver exposes the transcript extractor as MCP tools.
package transcriptserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine/youtube"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Extractor is the part of *youtube.Extractor the tools need.
type Extractor interface {
	Extract(ctx context.Context, rawURL, language string) (*youtube.Result, error)
}

type TranscriptInput struct {
	URL      string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, embed or shorts link)"`
	Language string `json:"language,omitempty" jsonschema:"Preferred language code, e.g. de or en-US. Hint only; the video's default caption track is returned"`
}

type TranscriptOutput struct {
	VideoID   string            `json:"video_id"`
	Text      string            `json:"text"`
	Segments  []youtube.Segment `json:"segments"`
	Language  *string           `json:"language"`
	WordCount int               `json:"word_count"`
}

// RegisterTools registers youtube_transcript on the given MCP server.
func RegisterTools(server *mcp.Server, ex Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the caption transcript of a YouTube video without downloading audio or video. Returns plain text (no timestamps) plus numbered segments with start and duration in seconds.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, transcriptHandler(ex))
}

func transcriptHandler(ex Extractor) func(context.Context, *mcp.CallToolRequest, TranscriptInput) (*mcp.CallToolResult, TranscriptOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, TranscriptOutput, error) {
		url := strings.TrimSpace(input.URL)
		if url == "" {
			return nil, TranscriptOutput{}, fmt.Errorf("url is required")
		}

		res, err := ex.Extract(ctx, url, strings.TrimSpace(input.Language))
		if err != nil {
			slog.Warn("youtube_transcript error", slog.String("url", url), slog.Any("error", err))
			return nil, TranscriptOutput{}, fmt.Errorf("failed to extract transcript (%s); the video may not have captions available", youtube.ReasonOf(err))
		}

		videoID, _ := youtube.ResolveVideoID(url)
		return nil, TranscriptOutput{
			VideoID:   videoID,
			Text:      res.Text,
			Segments:  res.Segments,
			Language:  res.Language,
			WordCount: res.WordCount(),
		}, nil
	}
}
