package engine

import (
	"fmt"
	"net/http"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// BrowserClient wraps tls-client with Chrome TLS fingerprint.
// Requests appear as Chrome 131+ to TLS fingerprinting (JA3 hash).
// It satisfies Doer so a Transport can use it in place of net/http.
type BrowserClient struct {
	client tls_client.HttpClient
}

// NewBrowserClient creates a client that impersonates Chrome 131.
func NewBrowserClient(timeout time.Duration) (*BrowserClient, error) {
	secs := int(timeout / time.Second)
	if secs <= 0 {
		secs = 10
	}
	opts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(secs),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
	}
	client, err := tls_client.NewHttpClient(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("tls-client init: %w", err)
	}
	return &BrowserClient{client: client}, nil
}

// Do executes req with Chrome TLS fingerprint, converting between net/http
// and fhttp types at the boundary.
func (bc *BrowserClient) Do(req *http.Request) (*http.Response, error) {
	freq, err := fhttp.NewRequestWithContext(req.Context(), req.Method, req.URL.String(), req.Body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			freq.Header.Add(k, v)
		}
	}

	// Chrome-like header order matters for fingerprinting
	freq.Header[fhttp.HeaderOrderKey] = []string{
		"accept",
		"accept-language",
		"content-type",
		"origin",
		"referer",
		"cookie",
		"user-agent",
	}

	fresp, err := bc.client.Do(freq)
	if err != nil {
		return nil, fmt.Errorf("tls request: %w", err)
	}
	return &http.Response{
		Status:        fresp.Status,
		StatusCode:    fresp.StatusCode,
		Header:        http.Header(fresp.Header),
		Body:          fresp.Body,
		ContentLength: fresp.ContentLength,
		Request:       req,
	}, nil
}

// CloseIdleConnections releases pooled connections.
func (bc *BrowserClient) CloseIdleConnections() {
	bc.client.CloseIdleConnections()
}
