package engine

import (
	stealth "github.com/anatolykoptev/go-stealth"
)

// PickUserAgent returns the configured User-Agent, or a random desktop
// browser one when rotation is enabled.
func (c Config) PickUserAgent() string {
	if c.RotateUserAgent {
		if ua := stealth.RandomUserAgent(); ua != "" {
			return ua
		}
	}
	if c.UserAgent == "" {
		return UserAgentChrome
	}
	return c.UserAgent
}
