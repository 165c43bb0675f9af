package httpapi

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultRateLimitCapacity = 30
	defaultRateLimitRefill   = time.Second
	defaultRateLimitTTL      = 10 * time.Minute
)

// Config drives the HTTP server.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	WebhookSecret  string
	// WebhookTolerance bounds acceptable clock drift on gateway deliveries.
	WebhookTolerance time.Duration

	// RateLimitCapacity and RateLimitRefillInterval shape the per-user
	// token bucket on the reservation endpoint. Zero capacity disables
	// rate limiting.
	RateLimitCapacity       int
	RateLimitRefillInterval time.Duration
	RateLimitTTL            time.Duration
}

// Validate normalizes defaults and rejects unusable configuration.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("listen addr is required")
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return fmt.Errorf("webhook secret is required")
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.RateLimitCapacity < 0 {
		cfg.RateLimitCapacity = defaultRateLimitCapacity
	}
	if cfg.RateLimitRefillInterval <= 0 {
		cfg.RateLimitRefillInterval = defaultRateLimitRefill
	}
	if cfg.RateLimitTTL <= 0 {
		cfg.RateLimitTTL = defaultRateLimitTTL
	}
	return nil
}
