package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("GENERATION_MAX_TOKENS", "")
	t.Setenv("PREGENERATE_DELAY", "")

	cfg := Load()

	if cfg.MaxTokens != 1500 {
		t.Errorf("expected default max tokens 1500, got %d", cfg.MaxTokens)
	}
	if cfg.PregenerateDelay != 2*time.Second {
		t.Errorf("expected default delay 2s, got %v", cfg.PregenerateDelay)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GENERATION_MAX_TOKENS", "900")
	t.Setenv("GENERATION_TEMPERATURE", "0.3")
	t.Setenv("MOCK_GENERATOR", "true")
	t.Setenv("METADATA_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()

	if cfg.MaxTokens != 900 {
		t.Errorf("expected 900, got %d", cfg.MaxTokens)
	}
	if cfg.Temperature != 0.3 {
		t.Errorf("expected 0.3, got %v", cfg.Temperature)
	}
	if !cfg.MockGenerator {
		t.Error("expected mock generator enabled")
	}
	if cfg.MetadataTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.MetadataTimeout)
	}
	if cfg.RateLimitPerMinute != 20 {
		t.Errorf("expected fallback 20 for invalid value, got %d", cfg.RateLimitPerMinute)
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5433", DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "require"}
	dsn := cfg.DSN()
	for _, part := range []string{"host=db", "port=5433", "user=u", "password=p", "dbname=n", "sslmode=require"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN %q missing %q", dsn, part)
		}
	}
}

func TestLoad_DurationBounds(t *testing.T) {
	t.Setenv("RATE_LIMIT_SWEEP_INTERVAL", "0s")
	t.Setenv("SHUTDOWN_TIMEOUT", "-5s")
	t.Setenv("PREGENERATE_DELAY", "0s")

	cfg := Load()

	if cfg.RateLimitSweepEvery != time.Minute {
		t.Errorf("expected zero sweep interval to fall back to 1m, got %v", cfg.RateLimitSweepEvery)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("expected negative timeout to fall back to 15s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.PregenerateDelay != 0 {
		t.Errorf("expected a zero delay to be kept, got %v", cfg.PregenerateDelay)
	}
}
