package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("REDIS_ADDR", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.OutboxPollInterval != 2*time.Second {
		t.Fatalf("expected default outbox poll interval, got %s", cfg.OutboxPollInterval)
	}
	if cfg.SlotCacheTTL != 30*time.Second {
		t.Fatalf("expected default slot cache ttl, got %s", cfg.SlotCacheTTL)
	}
	if cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("TOKEN_EXPIRY", "2h")
	t.Setenv("OUTBOX_BATCH_SIZE", "50")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.careops.io, https://staging.careops.io")
	t.Setenv("PUBLIC_RATE_PER_SEC", "2.5")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected database url override, got %s", cfg.DatabaseURL)
	}
	if cfg.TokenExpiry != 2*time.Hour {
		t.Fatalf("expected token expiry override, got %s", cfg.TokenExpiry)
	}
	if cfg.OutboxBatchSize != 50 {
		t.Fatalf("expected batch size override, got %d", cfg.OutboxBatchSize)
	}
	if !cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue enabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://staging.careops.io" {
		t.Fatalf("expected trimmed origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.PublicRatePerSec != 2.5 {
		t.Fatalf("expected rate override, got %f", cfg.PublicRatePerSec)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("OUTBOX_BATCH_SIZE", "not-a-number")
	t.Setenv("TOKEN_EXPIRY", "soon")
	t.Setenv("USE_MEMORY_QUEUE", "maybe")
	cfg := Load()
	if cfg.OutboxBatchSize != 25 {
		t.Fatalf("expected default batch size, got %d", cfg.OutboxBatchSize)
	}
	if cfg.TokenExpiry != 24*time.Hour {
		t.Fatalf("expected default token expiry, got %s", cfg.TokenExpiry)
	}
	if cfg.UseMemoryQueue {
		t.Fatalf("expected default memory queue flag")
	}
}
