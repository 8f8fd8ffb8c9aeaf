package spectatorpush

import (
	"os"
	"path/filepath"
	"testing"

	"ludo-arena/internal/config"
)

func TestConfigFromEnvDisabled(t *testing.T) {
	cfg, err := ConfigFromEnv(config.PushConfig{Enabled: false, TargetsJSON: "not json"})
	if err != nil {
		t.Fatalf("disabled config should not parse targets: %v", err)
	}
	if cfg.Enabled || len(cfg.Targets) != 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigFromEnvFiltersTargets(t *testing.T) {
	raw := `[
		{"platform":"Discord","endpoint":" https://d.example/hook ","scope_type":"room","scope_value":"room01","event_allowlist":[" Game_Finished "],"enabled":true},
		{"platform":"feishu","endpoint":"https://f.example/hook","enabled":true},
		{"platform":"discord","endpoint":"","enabled":true},
		{"platform":"discord","endpoint":"https://x.example","scope_type":"table","enabled":true},
		{"platform":"discord","endpoint":"https://y.example","enabled":false}
	]`
	cfg, err := ConfigFromEnv(config.PushConfig{Enabled: true, TargetsJSON: raw, Workers: 0})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Workers != 2 {
		t.Fatalf("Workers = %d, want default 2", cfg.Workers)
	}
	if len(cfg.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %+v", cfg.Targets)
	}
	first := cfg.Targets[0]
	if first.Platform != "discord" || first.Endpoint != "https://d.example/hook" || first.ScopeValue != "ROOM01" {
		t.Fatalf("unexpected first target: %+v", first)
	}
	if first.EventAllowlist[0] != "game_finished" {
		t.Fatalf("allowlist not normalized: %v", first.EventAllowlist)
	}
	if cfg.Targets[1].ScopeType != ScopeAll {
		t.Fatalf("empty scope should default to all, got %q", cfg.Targets[1].ScopeType)
	}
}

func TestConfigFromEnvReadsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "push.json")
	if err := os.WriteFile(path, []byte(`[{"platform":"discord","endpoint":"https://d.example","enabled":true}]`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := ConfigFromEnv(config.PushConfig{Enabled: true, ConfigPath: path, TargetsJSON: "ignored"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Targets) != 1 {
		t.Fatalf("expected target from file, got %+v", cfg.Targets)
	}

	if _, err := ConfigFromEnv(config.PushConfig{Enabled: true, TargetsJSON: "{"}); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestRouterMatchTargets(t *testing.T) {
	targets := []PushTarget{
		{Platform: "discord", Endpoint: "a", ScopeType: ScopeAll, Enabled: true},
		{Platform: "discord", Endpoint: "b", ScopeType: ScopeRoom, ScopeValue: "ROOM01", Enabled: true},
		{Platform: "discord", Endpoint: "c", ScopeType: ScopeAll, EventAllowlist: []string{"game_finished"}, Enabled: true},
		{Platform: "discord", Endpoint: "d", ScopeType: ScopeAll, Enabled: false},
	}
	got := Router{}.MatchTargets(targets, "ROOM02", "game_started")
	if len(got) != 1 || got[0].Endpoint != "a" {
		t.Fatalf("unexpected match for ROOM02 start: %+v", got)
	}
	got = Router{}.MatchTargets(targets, "ROOM01", "game_finished")
	if len(got) != 3 {
		t.Fatalf("expected a, b and c, got %+v", got)
	}
}
