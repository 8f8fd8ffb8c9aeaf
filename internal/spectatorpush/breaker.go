package spectatorpush

import (
	"errors"
	"sync"
	"time"
)

var errCircuitOpen = errors.New("circuit_open")

type circuit struct {
	failures  int
	openUntil time.Time
}

// breakers trips a target after threshold consecutive failures and keeps it
// closed to traffic for openFor.
type breakers struct {
	mu        sync.Mutex
	threshold int
	openFor   time.Duration
	byTarget  map[string]circuit
}

func newBreakers(threshold int, openFor time.Duration) *breakers {
	return &breakers{threshold: threshold, openFor: openFor, byTarget: map[string]circuit{}}
}

func (b *breakers) allow(key string, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Before(b.byTarget[key].openUntil) {
		return errCircuitOpen
	}
	return nil
}

func (b *breakers) fail(key string, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.byTarget[key]
	c.failures++
	if c.failures >= b.threshold {
		c = circuit{openUntil: now.Add(b.openFor)}
	}
	b.byTarget[key] = c
}

func (b *breakers) reset(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.byTarget, key)
}
