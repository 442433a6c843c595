// go_transcript — YouTube transcript MCP server.
//
// Exposes one MCP tool, youtube_transcript, which returns the caption text
// and numbered segments of a video without downloading audio or video.
// The same extractor backs cmd/transcript-api (HTTP) and cmd/ytt (CLI).
package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/youtube"
	"github.com/anatolykoptev/go_transcript/internal/transcriptserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8891")
)

func main() {
	engine.SetupLogging(env.Str("LOG_LEVEL", "info"))

	ex, err := initExtractor()
	if err != nil {
		slog.Error("init extractor", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting go_transcript",
		slog.String("port", mcpPort),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_transcript",
		Version: version,
	}, nil)

	transcriptserver.RegisterTools(server, ex)
	slog.Info("tools registered", slog.Int("count", 1))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_transcript",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 120 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initExtractor() (*youtube.Extractor, error) {
	cfg, err := engine.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.Transport.BrowserTLS {
		slog.Info("chrome tls transport enabled")
	}
	if cfg.RotateUserAgent {
		slog.Info("user-agent rotation enabled")
	}
	return youtube.NewExtractor(cfg)
}
