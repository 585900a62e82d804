// Package config loads server configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// App holds everything the server needs, populated from SKILLSWAP_* env vars.
type App struct {
	Port   int    `envconfig:"PORT" default:"8080"`
	DBPath string `envconfig:"DB_PATH" default:"./data/skillswap.db"`

	JWTSecret    string `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	JWTExpireMin int    `envconfig:"JWT_EXPIRE_MIN" default:"60"`

	// SignupPoints is the balance a fresh account starts with. Zero by
	// default: points are earned by teaching.
	SignupPoints int64 `envconfig:"SIGNUP_POINTS" default:"0"`

	BookingMaxRetries int  `envconfig:"BOOKING_MAX_RETRIES" default:"3"`
	BookingTimeoutSec int  `envconfig:"BOOKING_TIMEOUT_SEC" default:"5"`
	RefundOnCancel    bool `envconfig:"REFUND_ON_CANCEL" default:"false"`
}

// Load reads configuration from SKILLSWAP_-prefixed environment variables.
func Load() (*App, error) {
	var cfg App
	if err := envconfig.Process("SKILLSWAP", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
