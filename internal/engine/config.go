package engine

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// User-Agent strings used across HTTP clients.
const (
	UserAgentChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// TransportConfig controls retry and timeout behavior of a Transport.
type TransportConfig struct {
	Retries       int           // retries after the first attempt
	BackoffFactor time.Duration // sleep before retry n is BackoffFactor * 2^(n-1)
	Timeout       time.Duration // per attempt, not cumulative
	RetryStatuses []int
	RetryMethods  []string
	MaxBodyBytes  int64
	RetryAfterCap time.Duration // longest honored Retry-After; <= 0 ignores the header
	BrowserTLS    bool          // use the Chrome TLS fingerprint backend instead of net/http
}

// Config holds all extraction configuration, injected from main.
type Config struct {
	Transport         TransportConfig
	WatchURL          string
	TranscriptAPIURL  string
	ClientVersion     string
	UserAgent         string
	RotateUserAgent   bool
	FallbackLanguages []string
	SlowThreshold     time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Transport: TransportConfig{
			Retries:       3,
			BackoffFactor: 500 * time.Millisecond,
			Timeout:       10 * time.Second,
			RetryStatuses: []int{
				http.StatusTooManyRequests,
				http.StatusInternalServerError,
				http.StatusBadGateway,
				http.StatusServiceUnavailable,
				http.StatusGatewayTimeout,
			},
			RetryMethods:  []string{http.MethodHead, http.MethodGet, http.MethodOptions, http.MethodPost},
			MaxBodyBytes:  8 * 1024 * 1024,
			RetryAfterCap: 30 * time.Second,
		},
		WatchURL:          "https://www.youtube.com/watch",
		TranscriptAPIURL:  "https://www.youtube.com/youtubei/v1/get_transcript",
		ClientVersion:     "2.20230101.00.00",
		UserAgent:         UserAgentChrome,
		FallbackLanguages: []string{"de", "de-DE", "en", "en-US", "en-GB"},
		SlowThreshold:     5 * time.Second,
	}
}

// fileConfig mirrors Config for YAML files. Zero values leave the base untouched.
type fileConfig struct {
	Transport struct {
		Retries       *int     `yaml:"retries"`
		BackoffFactor string   `yaml:"backoff_factor"`
		Timeout       string   `yaml:"timeout"`
		RetryStatuses []int    `yaml:"retry_statuses"`
		RetryMethods  []string `yaml:"retry_methods"`
		MaxBodyBytes  int64    `yaml:"max_body_bytes"`
		RetryAfterCap string   `yaml:"retry_after_cap"`
		BrowserTLS    *bool    `yaml:"browser_tls"`
	} `yaml:"transport"`
	WatchURL          string   `yaml:"watch_url"`
	TranscriptAPIURL  string   `yaml:"transcript_api_url"`
	ClientVersion     string   `yaml:"client_version"`
	UserAgent         string   `yaml:"user_agent"`
	RotateUserAgent   *bool    `yaml:"rotate_user_agent"`
	FallbackLanguages []string `yaml:"fallback_languages"`
	SlowThreshold     string   `yaml:"slow_threshold"`
}

// LoadConfigFile reads a YAML file and overlays it on base.
func LoadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data, base)
}

// ParseConfig overlays YAML data on base.
func ParseConfig(data []byte, base Config) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return base, fmt.Errorf("parse config: %w", err)
	}

	c := base
	if fc.Transport.Retries != nil {
		c.Transport.Retries = *fc.Transport.Retries
	}
	if err := overlayDuration(&c.Transport.BackoffFactor, fc.Transport.BackoffFactor, "transport.backoff_factor"); err != nil {
		return base, err
	}
	if err := overlayDuration(&c.Transport.Timeout, fc.Transport.Timeout, "transport.timeout"); err != nil {
		return base, err
	}
	if err := overlayDuration(&c.Transport.RetryAfterCap, fc.Transport.RetryAfterCap, "transport.retry_after_cap"); err != nil {
		return base, err
	}
	if len(fc.Transport.RetryStatuses) > 0 {
		c.Transport.RetryStatuses = fc.Transport.RetryStatuses
	}
	if len(fc.Transport.RetryMethods) > 0 {
		c.Transport.RetryMethods = fc.Transport.RetryMethods
	}
	if fc.Transport.MaxBodyBytes > 0 {
		c.Transport.MaxBodyBytes = fc.Transport.MaxBodyBytes
	}
	if fc.Transport.BrowserTLS != nil {
		c.Transport.BrowserTLS = *fc.Transport.BrowserTLS
	}
	if fc.WatchURL != "" {
		c.WatchURL = fc.WatchURL
	}
	if fc.TranscriptAPIURL != "" {
		c.TranscriptAPIURL = fc.TranscriptAPIURL
	}
	if fc.ClientVersion != "" {
		c.ClientVersion = fc.ClientVersion
	}
	if fc.UserAgent != "" {
		c.UserAgent = fc.UserAgent
	}
	if fc.RotateUserAgent != nil {
		c.RotateUserAgent = *fc.RotateUserAgent
	}
	if len(fc.FallbackLanguages) > 0 {
		c.FallbackLanguages = fc.FallbackLanguages
	}
	if err := overlayDuration(&c.SlowThreshold, fc.SlowThreshold, "slow_threshold"); err != nil {
		return base, err
	}
	return c, c.Validate()
}

func overlayDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}

// Validate rejects configurations no extraction could run with.
func (c Config) Validate() error {
	switch {
	case c.Transport.Retries < 0:
		return fmt.Errorf("transport.retries must be >= 0, got %d", c.Transport.Retries)
	case c.Transport.BackoffFactor < 0:
		return fmt.Errorf("transport.backoff_factor must be >= 0, got %s", c.Transport.BackoffFactor)
	case c.Transport.Timeout <= 0:
		return fmt.Errorf("transport.timeout must be > 0, got %s", c.Transport.Timeout)
	case c.WatchURL == "":
		return fmt.Errorf("watch_url is required")
	case c.TranscriptAPIURL == "":
		return fmt.Errorf("transcript_api_url is required")
	case c.ClientVersion == "":
		return fmt.Errorf("client_version is required")
	}
	return nil
}
