package config

import (
	"testing"
	"time"
)

func TestLoadAppComposesEveryConcern(t *testing.T) {
	t.Setenv("PUSH_WORKERS", "5")
	t.Setenv("RECONNECT_GRACE", "30s")

	cfg, err := LoadApp()
	if err != nil {
		t.Fatalf("LoadApp() error = %v", err)
	}
	if cfg.Store.Backend != StoreBackendMemory {
		t.Fatalf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Game.ReconnectGrace != 30*time.Second {
		t.Fatalf("Game.ReconnectGrace = %v, want 30s", cfg.Game.ReconnectGrace)
	}
	if cfg.Push.Workers != 5 || cfg.Push.Enabled {
		t.Fatalf("unexpected push config: %+v", cfg.Push)
	}
}

func TestLoadAppSurfacesStoreError(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	if _, err := LoadApp(); err == nil {
		t.Fatal("LoadApp() expected error, got nil")
	}
}

func TestLoadAppSurfacesPushError(t *testing.T) {
	t.Setenv("PUSH_RETRY_BASE", "soon")

	if _, err := LoadApp(); err == nil {
		t.Fatal("LoadApp() expected error, got nil")
	}
}
