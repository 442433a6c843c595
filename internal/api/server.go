// Package api is the HTTP wrapper around the transcript extractor.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/youtube"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultServiceName = "YouTube Transcript Downloader API"

	msgNoJSON        = "No JSON data provided"
	msgNoURL         = "URL is required"
	msgExtractFailed = "Failed to extract transcript. The video may not have captions available."
	msgNotFound      = "Endpoint not found"
	msgInternal      = "Internal server error"
	msgTooMany       = "Too many requests"

	requestIDHeader = "X-Request-ID"
)

// Extractor is the part of *youtube.Extractor the wrapper needs.
type Extractor interface {
	Extract(ctx context.Context, rawURL, language string) (*youtube.Result, error)
}

// Config controls the HTTP surface. Zero values pick defaults; RateLimit <= 0
// disables rate limiting and RequestTimeout <= 0 leaves extractions unbounded.
type Config struct {
	ServiceName    string
	CORSOrigins    string
	RateLimit      float64
	RateBurst      int
	RequestTimeout time.Duration
}

type transcriptRequest struct {
	URL      string `json:"url"`
	Language string `json:"language"`
}

type transcriptResponse struct {
	Success  bool              `json:"success"`
	Text     string            `json:"text"`
	Segments []youtube.Segment `json:"segments"`
	Language *string           `json:"language"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type server struct {
	ex  Extractor
	cfg Config
}

// New builds the fiber app serving /health, /metrics and /api/transcript.
func New(ex Extractor, cfg Config) *fiber.App {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.CORSOrigins == "" {
		cfg.CORSOrigins = "*"
	}
	s := &server{ex: ex, cfg: cfg}

	app := fiber.New(fiber.Config{
		AppName:               cfg.ServiceName,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(fiberrecover.New(fiberrecover.Config{EnableStackTrace: true}))
	app.Use(requestID, accessLog)

	app.Get("/health", s.health)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendString(engine.FormatMetrics())
	})

	routes := app.Group("/api", cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	if cfg.RateLimit > 0 {
		routes.Use(rateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	routes.Post("/transcript", s.transcript)

	return app
}

func (s *server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": s.cfg.ServiceName,
	})
}

func (s *server) transcript(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("error extracting transcript", slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = fail(c, fiber.StatusInternalServerError, fmt.Sprintf("Server error: %v", r))
		}
	}()

	req, ok := decodeRequest(c.Body())
	if !ok {
		return fail(c, fiber.StatusBadRequest, msgNoJSON)
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return fail(c, fiber.StatusBadRequest, msgNoURL)
	}

	ctx := c.UserContext()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	slog.Info("extracting transcript", slog.String("url", url), slog.String("request_id", requestIDOf(c)))
	res, err := s.ex.Extract(ctx, url, strings.TrimSpace(req.Language))
	if err != nil {
		slog.Warn("transcript extraction failed", slog.String("url", url),
			slog.String("reason", string(youtube.ReasonOf(err))), slog.Any("error", err))
		return fail(c, fiber.StatusUnprocessableEntity, msgExtractFailed)
	}

	slog.Info("extracted transcript", slog.Int("segments", len(res.Segments)))
	return c.JSON(transcriptResponse{
		Success:  true,
		Text:     res.Text,
		Segments: res.Segments,
		Language: res.Language,
	})
}

// decodeRequest reports false for a missing, malformed or empty JSON object.
// A url or language that is not a string reads as absent.
func decodeRequest(body []byte) (transcriptRequest, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		return transcriptRequest{}, false
	}
	var req transcriptRequest
	if json.Unmarshal(fields["url"], &req.URL) != nil {
		req.URL = ""
	}
	if json.Unmarshal(fields["language"], &req.Language) != nil {
		req.Language = ""
	}
	return req, true
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(errorResponse{Success: false, Error: msg})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := msgInternal

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		switch {
		case code == fiber.StatusNotFound:
			msg = msgNotFound
		case code < fiber.StatusInternalServerError:
			msg = fe.Message
		}
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
	}
	return fail(c, code, msg)
}

func requestID(c *fiber.Ctx) error {
	id := c.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(requestIDHeader, id)
	c.Set(requestIDHeader, id)
	return c.Next()
}

func requestIDOf(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDHeader).(string)
	return id
}

func accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	slog.Info("http",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("request_id", requestIDOf(c)),
	)
	return err
}

func rateLimit(rps float64, burst int) fiber.Handler {
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodOptions && !lim.Allow() {
			return fail(c, fiber.StatusTooManyRequests, msgTooMany)
		}
		return c.Next()
	}
}
