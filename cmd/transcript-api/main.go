// transcript-api serves the transcript extractor over HTTP.
//
//	GET  /health          liveness
//	GET  /metrics         extraction counters
//	POST /api/transcript  {"url": "...", "language": "en"}
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go_transcript/internal/api"
	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/youtube"
)

var (
	port        = env.Str("PORT", "8000")
	host        = env.Str("HOST", "0.0.0.0")
	logLevel    = env.Str("LOG_LEVEL", "info")
	shutdownMax = env.Duration("SHUTDOWN_TIMEOUT", 15*time.Second)
)

func main() {
	engine.SetupLogging(logLevel)

	cfg, err := engine.ConfigFromEnv()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	ex, err := youtube.NewExtractor(cfg)
	if err != nil {
		slog.Error("init extractor", slog.Any("error", err))
		os.Exit(1)
	}

	app := api.New(ex, api.Config{
		ServiceName:    env.Str("SERVICE_NAME", api.DefaultServiceName),
		CORSOrigins:    env.Str("CORS_ORIGINS", "*"),
		RateLimit:      env.Float("RATE_LIMIT_RPS", 0),
		RateBurst:      env.Int("RATE_LIMIT_BURST", 5),
		RequestTimeout: env.Duration("REQUEST_TIMEOUT", 0),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownMax); err != nil {
			slog.Error("shutdown", slog.Any("error", err))
		}
	}()

	addr := host + ":" + port
	slog.Info("starting transcript-api",
		slog.String("addr", addr),
		slog.Int("retries", cfg.Transport.Retries),
		slog.Bool("browser_tls", cfg.Transport.BrowserTLS),
	)
	if err := app.Listen(addr); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}
