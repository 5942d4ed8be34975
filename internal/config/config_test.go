package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Currency != "INR" || cfg.AccountNumberStart != 1000 || cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DefaultOverdraftLimit != "500" || cfg.DefaultInterestRate != "0.01" {
		t.Fatalf("unexpected variant defaults: %q %q", cfg.DefaultOverdraftLimit, cfg.DefaultInterestRate)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("session ttl = %s", cfg.SessionTTL)
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("BANK_NAME", "Demo Bank")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("ACCOUNT_NUMBER_START", "5000")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://bank.example")
	t.Setenv("DEV_SEED", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.BankName != "Demo Bank" || cfg.Currency != "USD" || cfg.AccountNumberStart != 5000 || !cfg.DevSeed {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("session ttl = %s", cfg.SessionTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://bank.example" {
		t.Fatalf("origins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfig_RejectsUnknownCurrency(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("CURRENCY", "ZZZ")
	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), "CURRENCY") {
		t.Fatalf("expected currency error, got %v", err)
	}
}
