package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL           = "https://api.trm.com/v1"
	DefaultTimeoutSeconds    = 30
	DefaultMaxRetries        = 3
	DefaultRetryDelaySeconds = 1.0
	DefaultMaxResponseBytes  = int64(10 << 20)

	SDKVersion       = "1.0.0"
	DefaultUserAgent = "TRM-Go-SDK/" + SDKVersion
)

type WebhookConfig struct {
	Secret string `koanf:"secret" mapstructure:"secret"`
}

type Config struct {
	APIKey            string        `koanf:"api_key" mapstructure:"api_key"`
	BaseURL           string        `koanf:"base_url" mapstructure:"base_url"`
	TimeoutSeconds    int           `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxRetries        int           `koanf:"max_retries" mapstructure:"max_retries"`
	RetryDelaySeconds float64       `koanf:"retry_delay_seconds" mapstructure:"retry_delay_seconds"`
	UserAgent         string        `koanf:"user_agent" mapstructure:"user_agent"`
	MaxResponseBytes  int64         `koanf:"max_response_bytes" mapstructure:"max_response_bytes"`
	Webhook           WebhookConfig `koanf:"webhook" mapstructure:"webhook"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		TimeoutSeconds:    DefaultTimeoutSeconds,
		MaxRetries:        DefaultMaxRetries,
		RetryDelaySeconds: DefaultRetryDelaySeconds,
		UserAgent:         DefaultUserAgent,
		MaxResponseBytes:  DefaultMaxResponseBytes,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("core: api_key is required")
	}
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return fmt.Errorf("core: base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: base_url %q is invalid", base)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("core: timeout_seconds must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("core: max_retries must be at least 1")
	}
	if c.RetryDelaySeconds < 0 {
		return fmt.Errorf("core: retry_delay_seconds must not be negative")
	}
	return nil
}

// Timeout is the per-attempt request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay is the base of the exponential backoff between attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}
