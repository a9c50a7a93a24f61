package config_test

import (
	"testing"
	"time"

	"github.com/iho/bankledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.StoreDriver != config.DriverPostgres {
		t.Fatalf("expected default store driver postgres, got %s", cfg.StoreDriver)
	}

	if cfg.OperationTimeout != 5*time.Second {
		t.Fatalf("expected default operation timeout 5s, got %s", cfg.OperationTimeout)
	}

	if cfg.OutboxPublisher != config.PublisherLog || !cfg.OutboxEnabled {
		t.Fatalf("expected log publisher enabled by default, got %s enabled=%v", cfg.OutboxPublisher, cfg.OutboxEnabled)
	}

	if cfg.OpsPort != "9090" {
		t.Fatalf("expected default ops port 9090, got %s", cfg.OpsPort)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("OPS_PORT", "9191")
	t.Setenv("LEDGER_OPERATION_TIMEOUT", "2s")
	t.Setenv("OUTBOX_PUBLISHER", "redis")
	t.Setenv("OUTBOX_STREAM", "events")
	t.Setenv("OUTBOX_RETENTION", "1h")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" || !cfg.RedisEnabled {
		t.Fatalf("expected redis settings, got %s enabled=%v", cfg.RedisURL, cfg.RedisEnabled)
	}

	if cfg.StoreDriver != config.DriverMemory {
		t.Fatalf("expected memory driver, got %s", cfg.StoreDriver)
	}

	if cfg.OpsPort != "9191" {
		t.Fatalf("expected ops port override, got %s", cfg.OpsPort)
	}

	if cfg.OperationTimeout != 2*time.Second {
		t.Fatalf("expected operation timeout override, got %s", cfg.OperationTimeout)
	}

	if cfg.OutboxPublisher != config.PublisherRedis || cfg.OutboxStream != "events" || cfg.OutboxRetention != time.Hour {
		t.Fatalf("expected outbox overrides, got %s %s %s", cfg.OutboxPublisher, cfg.OutboxStream, cfg.OutboxRetention)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "sqlite"}},
		{"unknown publisher", map[string]string{"OUTBOX_PUBLISHER": "kafka"}},
		{"redis publisher without redis", map[string]string{"OUTBOX_PUBLISHER": "redis", "REDIS_ENABLED": "false"}},
		{"zero timeout", map[string]string{"LEDGER_OPERATION_TIMEOUT": "0s"}},
		{"zero batch", map[string]string{"OUTBOX_BATCH_SIZE": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
		})
	}
}
