package config

import (
	"testing"
	"time"
)

func TestLoadStoreDefaults(t *testing.T) {
	cfg, err := LoadStore()
	if err != nil {
		t.Fatalf("LoadStore() error = %v", err)
	}
	if cfg.Backend != StoreBackendMemory {
		t.Fatalf("Backend = %q, want memory", cfg.Backend)
	}
	if cfg.Timeout != 2*time.Second || cfg.Retries != 2 {
		t.Fatalf("unexpected timeout/retries: %v/%d", cfg.Timeout, cfg.Retries)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("RedisAddr = %q", cfg.RedisAddr)
	}
}

func TestLoadStorePostgresRequiresDSN(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	if _, err := LoadStore(); err == nil {
		t.Fatal("LoadStore() expected error, got nil")
	}
}

func TestLoadStoreRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "etcd")

	if _, err := LoadStore(); err == nil {
		t.Fatal("LoadStore() expected error, got nil")
	}
}

func TestLoadStoreParseTypes(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("STORE_RETRIES", "5")

	cfg, err := LoadStore()
	if err != nil {
		t.Fatalf("LoadStore() error = %v", err)
	}
	if cfg.RedisDB != 3 || cfg.Timeout != 750*time.Millisecond || cfg.Retries != 5 {
		t.Fatalf("unexpected store config: %+v", cfg)
	}
}
