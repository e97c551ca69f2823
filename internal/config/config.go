package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int    `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./tasks.db"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	// JWTSecret signs every bearer token. It is process-wide and never per-user.
	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"0s"` // 0 means tokens only die by revocation
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"8"`

	SendGridAPIKey string        `env:"SENDGRID_API_KEY"`
	MailFrom       string        `env:"MAIL_FROM" envDefault:"noreply@tasks.local"`
	MailFromName   string        `env:"MAIL_FROM_NAME" envDefault:"Task Manager"`
	NotifyTimeout  time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	AvatarMaxBytes int64    `env:"AVATAR_MAX_BYTES" envDefault:"1000000"`
	AvatarSize     int      `env:"AVATAR_SIZE" envDefault:"250"`

	EventRetention     time.Duration `env:"EVENT_RETENTION" envDefault:"720h"` // 0 keeps events forever
	EventPruneSchedule string        `env:"EVENT_PRUNE_SCHEDULE" envDefault:"@daily"`
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.TokenTTL < 0 {
		return errors.New("TOKEN_TTL must not be negative")
	}
	if c.AvatarMaxBytes <= 0 {
		return errors.New("AVATAR_MAX_BYTES must be positive")
	}
	if c.AvatarSize <= 0 {
		return errors.New("AVATAR_SIZE must be positive")
	}
	if c.EventRetention < 0 {
		return errors.New("EVENT_RETENTION must not be negative")
	}
	return nil
}
