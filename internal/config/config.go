// Package config loads the server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinoosan/bank/internal/ledger"
)

// Config holds all configuration for the bank server.
type Config struct {
	BankName string `mapstructure:"BANK_NAME"`
	Currency string `mapstructure:"CURRENCY"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	AccountNumberStart    int64  `mapstructure:"ACCOUNT_NUMBER_START"`
	DefaultOverdraftLimit string `mapstructure:"DEFAULT_OVERDRAFT_LIMIT"`
	DefaultInterestRate   string `mapstructure:"DEFAULT_INTEREST_RATE"`

	SessionSecret string        `mapstructure:"SESSION_SECRET"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`
	SessionIssuer string        `mapstructure:"SESSION_ISSUER"`

	// Optional sinks; empty disables them.
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	InterestSchedule  string `mapstructure:"INTEREST_SCHEDULE"`
	ReconcileSchedule string `mapstructure:"RECONCILE_SCHEDULE"`

	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	DevSeed            bool     `mapstructure:"DEV_SEED"`
}

var keys = []string{
	"BANK_NAME", "CURRENCY", "HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	"ACCOUNT_NUMBER_START", "DEFAULT_OVERDRAFT_LIMIT", "DEFAULT_INTEREST_RATE",
	"SESSION_SECRET", "SESSION_TTL", "SESSION_ISSUER",
	"DATABASE_URL", "RABBITMQ_URL", "EVENTS_EXCHANGE",
	"INTEREST_SCHEDULE", "RECONCILE_SCHEDULE",
	"CORS_ALLOWED_ORIGINS", "DEV_SEED",
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	viper.SetDefault("BANK_NAME", "Tinoosan Bank")
	viper.SetDefault("CURRENCY", "INR")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("ACCOUNT_NUMBER_START", 1000) // first account is 1001
	viper.SetDefault("DEFAULT_OVERDRAFT_LIMIT", ledger.DefaultOverdraftLimit)
	viper.SetDefault("DEFAULT_INTEREST_RATE", ledger.DefaultInterestRate)
	viper.SetDefault("SESSION_TTL", "30m")
	viper.SetDefault("SESSION_ISSUER", "bank")
	viper.SetDefault("EVENTS_EXCHANGE", "bank_events")
	viper.SetDefault("INTEREST_SCHEDULE", "")
	viper.SetDefault("RECONCILE_SCHEDULE", "@daily")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", []string{})
	viper.SetDefault("DEV_SEED", false)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	for _, k := range keys {
		_ = viper.BindEnv(k)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	cfg.CORSAllowedOrigins = splitOrigins(cfg.CORSAllowedOrigins)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.BankName) == "" {
		return errors.New("BANK_NAME must not be empty")
	}
	if _, err := ledger.Zero(c.Currency); err != nil {
		return fmt.Errorf("CURRENCY: %w", err)
	}
	if c.AccountNumberStart < 0 {
		return errors.New("ACCOUNT_NUMBER_START must be >= 0")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

// splitOrigins flattens comma-separated entries and drops blanks.
func splitOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
