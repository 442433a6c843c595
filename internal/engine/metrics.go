package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	Extractions      atomic.Int64
	Successes        atomic.Int64
	Failures         atomic.Int64
	PageFetches      atomic.Int64
	APICalls         atomic.Int64
	RateLimited      atomic.Int64
	ShapeMismatches  atomic.Int64
	TransportRetries atomic.Int64
}

var metricKeys = []string{
	"extractions", "extraction_successes", "extraction_failures",
	"page_fetches", "api_calls",
	"rate_limited", "shape_mismatches", "transport_retries",
}

// GetMetrics returns a snapshot of all metrics.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"extractions":          metrics.Extractions.Load(),
		"extraction_successes": metrics.Successes.Load(),
		"extraction_failures":  metrics.Failures.Load(),
		"page_fetches":         metrics.PageFetches.Load(),
		"api_calls":            metrics.APICalls.Load(),
		"rate_limited":         metrics.RateLimited.Load(),
		"shape_mismatches":     metrics.ShapeMismatches.Load(),
		"transport_retries":    metrics.TransportRetries.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the youtube sub-package.
func IncrExtraction()    { metrics.Extractions.Add(1) }
func IncrSuccess()       { metrics.Successes.Add(1) }
func IncrFailure()       { metrics.Failures.Add(1) }
func IncrPageFetch()     { metrics.PageFetches.Add(1) }
func IncrAPICall()       { metrics.APICalls.Add(1) }
func IncrRateLimited()   { metrics.RateLimited.Add(1) }
func IncrShapeMismatch() { metrics.ShapeMismatches.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if threshold > 0 && elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
