package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/Dan9191/bank-cards/internal/models"
)

// Config holds application configuration
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	DBConn   string `env:"DB_CONN" envDefault:"host=localhost port=5436 user=test password=test dbname=bank sslmode=disable"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	EncryptionKey string `env:"ENCRYPTION_KEY"`

	CardPrefix            string `env:"CARD_PREFIX" envDefault:"4000"`
	CardNumberMaxAttempts int    `env:"CARD_NUMBER_MAX_ATTEMPTS" envDefault:"10"`
	ExpirySweepSchedule   string `env:"EXPIRY_SWEEP_SCHEDULE" envDefault:"@daily"`
	RunMigrations         bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SenderEmail  string `env:"SENDER_EMAIL"`
}

// NewConfig loads configuration from the environment, reading .env first if present
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.DBConn == "" {
		return errors.New("DB_CONN is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.EncryptionKey == "" {
		return errors.New("ENCRYPTION_KEY is required")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.CardNumberMaxAttempts < 1 {
		return errors.New("CARD_NUMBER_MAX_ATTEMPTS must be at least 1")
	}
	if len(c.CardPrefix) >= models.CardNumberLength {
		return fmt.Errorf("CARD_PREFIX must be shorter than %d digits", models.CardNumberLength)
	}
	for _, r := range c.CardPrefix {
		if r < '0' || r > '9' {
			return errors.New("CARD_PREFIX must contain digits only")
		}
	}
	return nil
}

// SMTPEnabled reports whether enough is configured to send email
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != ""
}
