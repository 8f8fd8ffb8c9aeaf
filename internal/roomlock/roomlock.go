// Package roomlock serialises mutations per key. Entries are reference
// counted and dropped once no goroutine holds or waits on them.
package roomlock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Locker {
	return &Locker{entries: map[string]*entry{}}
}

// Lock blocks until key is free and returns the matching unlock func. Keys are
// opaque; callers namespace them (room:, game:) so nested locks on different
// namespaces for the same room never deadlock.
func (l *Locker) Lock(key string) func() {
	l.mu.Lock()
	e := l.entries[key]
	if e == nil {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.entries, key)
			}
			l.mu.Unlock()
		})
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
