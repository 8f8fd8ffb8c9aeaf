package spectatorpush

import "strings"

type Router struct{}

func (r Router) MatchTargets(targets []PushTarget, roomCode, eventType string) []PushTarget {
	if len(targets) == 0 {
		return nil
	}
	out := make([]PushTarget, 0, len(targets))
	for _, target := range targets {
		if !target.Enabled {
			continue
		}
		if !scopeMatches(target, roomCode) {
			continue
		}
		if !eventAllowed(target.EventAllowlist, eventType) {
			continue
		}
		out = append(out, target)
	}
	return out
}

func scopeMatches(target PushTarget, roomCode string) bool {
	switch target.ScopeType {
	case ScopeAll:
		return true
	case ScopeRoom:
		return target.ScopeValue != "" && target.ScopeValue == roomCode
	default:
		return false
	}
}

func eventAllowed(allowlist []string, evType string) bool {
	if len(allowlist) == 0 {
		return true
	}
	evType = strings.ToLower(strings.TrimSpace(evType))
	for _, v := range allowlist {
		if v != "" && v == evType {
			return true
		}
	}
	return false
}
