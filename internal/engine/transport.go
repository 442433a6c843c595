package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var (
	// ErrRateLimited is wrapped by StatusError when retries ended on HTTP 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransportClosed is returned by Do after Close.
	ErrTransportClosed = errors.New("transport closed")
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
	CloseIdleConnections()
}

// Request is one logical HTTP call; the Transport may send it several times.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusError is returned when every attempt ended on a retryable status.
type StatusError struct {
	StatusCode int
	retryAfter error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap exposes ErrRateLimited for 429 and the Retry-After hint for backoff.
func (e *StatusError) Unwrap() []error {
	var errs []error
	if e.StatusCode == http.StatusTooManyRequests {
		errs = append(errs, ErrRateLimited)
	}
	if e.retryAfter != nil {
		errs = append(errs, e.retryAfter)
	}
	return errs
}

// Transport sends requests with per-attempt timeouts and exponential backoff
// on transient failures. One Transport serves one extraction; Close releases
// its pooled connections.
type Transport struct {
	cfg         TransportConfig
	doer        Doer
	retryStatus map[int]bool
	closed      atomic.Bool
}

// NewTransport builds a Transport with its own connection pool.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	if cfg.BrowserTLS {
		bc, err := NewBrowserClient(cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return NewTransportWithDoer(cfg, bc), nil
	}
	return NewTransportWithDoer(cfg, newPooledClient()), nil
}

// NewTransportWithDoer wraps an existing Doer.
func NewTransportWithDoer(cfg TransportConfig, doer Doer) *Transport {
	statuses := make(map[int]bool, len(cfg.RetryStatuses))
	for _, s := range cfg.RetryStatuses {
		statuses[s] = true
	}
	return &Transport{cfg: cfg, doer: doer, retryStatus: statuses}
}

func newPooledClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// Close releases idle connections. Safe to call more than once.
func (t *Transport) Close() error {
	if t.closed.CompareAndSwap(false, true) {
		t.doer.CloseIdleConnections()
	}
	return nil
}

// Do sends req, retrying on connection failures and retryable statuses.
// A non-retryable non-2xx status is returned as a Response with a nil error.
func (t *Transport) Do(ctx context.Context, req Request) (*Response, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	retryable := slices.Contains(t.cfg.RetryMethods, req.Method)

	attempt := 0
	operation := func() (*Response, error) {
		attempt++
		resp, err := t.attempt(ctx, req)
		if err != nil {
			if !retryable || ctx.Err() != nil || !isRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if t.retryStatus[resp.StatusCode] {
			serr := &StatusError{StatusCode: resp.StatusCode, retryAfter: parseRetryAfter(resp.Header, t.cfg.RetryAfterCap)}
			if !retryable {
				return nil, backoff.Permanent(serr)
			}
			return nil, serr
		}
		return resp, nil
	}

	retries := max(t.cfg.Retries, 0)
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = t.cfg.BackoffFactor
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	// the last scheduled sleep is BackoffFactor * 2^(retries-1); never clip it
	maxWait := t.cfg.BackoffFactor
	for i := 1; i < retries && maxWait < time.Hour; i++ {
		maxWait *= 2
	}
	bo.MaxInterval = maxWait

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(retries)+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			metrics.TransportRetries.Add(1)
			slog.Debug("retrying", slog.String("url", req.URL), slog.Int("attempt", attempt),
				slog.Duration("wait", wait), slog.Any("error", err))
		}),
	)
}

// attempt sends req once under the per-attempt timeout and reads the body.
func (t *Transport) attempt(ctx context.Context, req Request) (*Response, error) {
	actx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(actx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Header {
		hreq.Header.Set(k, v)
	}

	hresp, err := t.doer.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()

	limit := t.cfg.MaxBodyBytes
	if limit <= 0 {
		limit = 8 * 1024 * 1024
	}
	data, err := io.ReadAll(io.LimitReader(hresp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: hresp.StatusCode, Header: hresp.Header, Body: data}, nil
}

// parseRetryAfter honors the delta-seconds form of Retry-After, clamped to
// limit. A limit <= 0 ignores the header.
func parseRetryAfter(h http.Header, limit time.Duration) error {
	if limit <= 0 {
		return nil
	}
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return nil
	}
	if secs > int(limit/time.Second) {
		return &backoff.RetryAfterError{Duration: limit}
	}
	return &backoff.RetryAfterError{Duration: time.Duration(secs) * time.Second}
}

// isRetryable returns true for transient errors worth retrying.
func isRetryable(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	// Timeout errors (net.Error includes OpError, so check after OpError)
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
