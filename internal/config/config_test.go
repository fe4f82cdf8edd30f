package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("ENCRYPTION_KEY", "enc")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "4000", cfg.CardPrefix)
	assert.Equal(t, 10, cfg.CardNumberMaxAttempts)
	assert.Equal(t, "@daily", cfg.ExpirySweepSchedule)
	assert.True(t, cfg.RunMigrations)
	assert.False(t, cfg.SMTPEnabled())
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("ENCRYPTION_KEY", "enc")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("CARD_NUMBER_MAX_ATTEMPTS", "3")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SENDER_EMAIL", "noreply@example.com")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 3, cfg.CardNumberMaxAttempts)
	assert.False(t, cfg.RunMigrations)
	assert.True(t, cfg.SMTPEnabled())
}

func TestNewConfig_MalformedValue(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("ENCRYPTION_KEY", "enc")
	t.Setenv("JWT_TTL", "forever")

	_, err := NewConfig()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DBConn:                "postgres://localhost/bank",
			JWTSecret:             "jwt",
			EncryptionKey:         "enc",
			JWTTTL:                time.Hour,
			CardPrefix:            "4000",
			CardNumberMaxAttempts: 10,
		}
	}

	tests := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"missing encryption key", func(c *Config) { c.EncryptionKey = "" }, "ENCRYPTION_KEY"},
		{"zero attempts", func(c *Config) { c.CardNumberMaxAttempts = 0 }, "CARD_NUMBER_MAX_ATTEMPTS"},
		{"letters in prefix", func(c *Config) { c.CardPrefix = "40a0" }, "digits only"},
		{"prefix too long", func(c *Config) { c.CardPrefix = "4000000000000000" }, "shorter than 16"},
		{"empty prefix", func(c *Config) { c.CardPrefix = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.errMsg)
			}
		})
	}
}
