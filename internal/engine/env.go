package engine

import (
	"log/slog"
	"os"
	"strings"

	"github.com/anatolykoptev/go-kit/env"
)

// ConfigFromEnv builds a Config from defaults, an optional YAML file named by
// TRANSCRIPT_CONFIG, and YT_* environment overrides, in that order.
func ConfigFromEnv() (Config, error) {
	c := DefaultConfig()
	if path := env.Str("TRANSCRIPT_CONFIG", ""); path != "" {
		var err error
		if c, err = LoadConfigFile(path, c); err != nil {
			return c, err
		}
	}

	c.Transport.Retries = env.Int("YT_RETRIES", c.Transport.Retries)
	c.Transport.BackoffFactor = env.Duration("YT_BACKOFF", c.Transport.BackoffFactor)
	c.Transport.Timeout = env.Duration("YT_TIMEOUT", c.Transport.Timeout)
	c.Transport.RetryAfterCap = env.Duration("YT_RETRY_AFTER_CAP", c.Transport.RetryAfterCap)
	c.Transport.BrowserTLS = envBool("YT_BROWSER_TLS", c.Transport.BrowserTLS)
	c.ClientVersion = env.Str("YT_CLIENT_VERSION", c.ClientVersion)
	c.UserAgent = env.Str("YT_USER_AGENT", c.UserAgent)
	c.RotateUserAgent = envBool("YT_ROTATE_USER_AGENT", c.RotateUserAgent)
	var langs []string
	for _, l := range env.List("YT_FALLBACK_LANGUAGES", "") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) > 0 {
		c.FallbackLanguages = langs
	}
	return c, c.Validate()
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(env.Str(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// SetupLogging installs a text slog handler on stderr at the named level.
func SetupLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
