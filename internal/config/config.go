package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	// Razorpay credentials are optional at startup: without them the service
	// still serves traffic and checkout endpoints return explicit errors
	// naming the missing variables.
	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET"`

	AuthJWTSecret string `env:"AUTH_JWT_SECRET,required" validate:"required"`
	OwnerEmail    string `env:"OWNER_EMAIL" envDefault:"hello@xivi.in" validate:"required,email"`

	EmailProvider  string   `env:"EMAIL_PROVIDER" envDefault:"disabled" validate:"omitempty,oneof=resend mailgun disabled"`
	EmailFrom      string   `env:"EMAIL_FROM" envDefault:"XIVI <noreply@xivi.in>"`
	ResendAPIKey   string   `env:"RESEND_API_KEY"`
	MailgunAPIKey  string   `env:"MAILGUN_API_KEY"`
	MailgunDomain  string   `env:"MAILGUN_DOMAIN"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	Currency string `env:"CURRENCY" envDefault:"INR" validate:"required,len=3"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	CatalogPath string `env:"CATALOG_PATH" envDefault:"catalog.yaml"`

	SentryDSN string `env:"SENTRY_DSN"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	hasKeyID := strings.TrimSpace(c.RazorpayKeyID) != ""
	hasKeySecret := strings.TrimSpace(c.RazorpayKeySecret) != ""
	if hasKeyID != hasKeySecret {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set together")
	}

	switch c.EmailProvider {
	case "resend":
		if strings.TrimSpace(c.ResendAPIKey) == "" {
			return fmt.Errorf("RESEND_API_KEY is required when EMAIL_PROVIDER is resend")
		}
	case "mailgun":
		if strings.TrimSpace(c.MailgunAPIKey) == "" || strings.TrimSpace(c.MailgunDomain) == "" {
			return fmt.Errorf("MAILGUN_API_KEY and MAILGUN_DOMAIN are required when EMAIL_PROVIDER is mailgun")
		}
	}

	return nil
}

// GatewayConfigured reports whether Razorpay credentials are present.
func (c *Config) GatewayConfigured() bool {
	return strings.TrimSpace(c.RazorpayKeyID) != "" && strings.TrimSpace(c.RazorpayKeySecret) != ""
}
