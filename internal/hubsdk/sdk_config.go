package hubsdk

import (
	"net/url"
	"strings"
)

// Config is the configuration for the hub client
type Config struct {
	BaseURL   string  // BaseURL is required
	Tenant    string  // Tenant is required
	Token     string  // Token is optional, sent as a bearer token
	RateLimit float64 // RateLimit caps requests per second, 0 means unlimited
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoServerURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidServerURL
	}

	if strings.TrimSpace(c.Tenant) == "" {
		return ErrNoTenant
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	return nil
}
