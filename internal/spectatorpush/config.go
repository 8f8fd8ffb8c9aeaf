package spectatorpush

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"ludo-arena/internal/config"
)

func ConfigFromEnv(cfg config.PushConfig) (Config, error) {
	out := Config{
		Enabled:             cfg.Enabled,
		Workers:             cfg.Workers,
		RetryMax:            cfg.RetryMax,
		RetryBase:           cfg.RetryBase,
		FailureThreshold:    3,
		CircuitOpenDuration: 30 * time.Second,
		RequestTimeout:      cfg.RequestTimeout,
		DispatchBuffer:      1024,
	}
	if !out.Enabled {
		return out, nil
	}
	if out.Workers <= 0 {
		out.Workers = 2
	}
	if out.RetryMax < 0 {
		out.RetryMax = 0
	}
	if out.RetryBase <= 0 {
		out.RetryBase = 500 * time.Millisecond
	}

	raw, err := loadTargetsJSON(cfg)
	if err != nil {
		return Config{}, err
	}
	if raw == "" {
		return out, nil
	}
	targets, err := parseTargetsJSON(raw)
	if err != nil {
		return Config{}, err
	}
	out.Targets = targets
	return out, nil
}

func loadTargetsJSON(cfg config.PushConfig) (string, error) {
	if path := strings.TrimSpace(cfg.ConfigPath); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read push config %q: %w", path, err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return strings.TrimSpace(cfg.TargetsJSON), nil
}

// parseTargetsJSON keeps enabled targets with an endpoint and a known
// scope. A room scope without a value defaults to every room.
func parseTargetsJSON(raw string) ([]PushTarget, error) {
	var targets []PushTarget
	if err := json.Unmarshal([]byte(raw), &targets); err != nil {
		return nil, fmt.Errorf("parse push targets: %w", err)
	}
	out := make([]PushTarget, 0, len(targets))
	for _, target := range targets {
		target.Platform = strings.ToLower(strings.TrimSpace(target.Platform))
		target.Endpoint = strings.TrimSpace(target.Endpoint)
		target.ScopeType = strings.ToLower(strings.TrimSpace(target.ScopeType))
		target.ScopeValue = strings.ToUpper(strings.TrimSpace(target.ScopeValue))
		if target.ScopeType == "" || (target.ScopeType == ScopeRoom && target.ScopeValue == "") {
			target.ScopeType = ScopeAll
		}
		if target.ScopeType != ScopeAll && target.ScopeType != ScopeRoom {
			continue
		}
		if target.Endpoint == "" || !target.Enabled {
			continue
		}
		for i := range target.EventAllowlist {
			target.EventAllowlist[i] = strings.ToLower(strings.TrimSpace(target.EventAllowlist[i]))
		}
		out = append(out, target)
	}
	return out, nil
}
