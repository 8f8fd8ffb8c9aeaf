package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore keeps everything in process. It backs unit tests and
// single-node deployments without a cache.
type MemoryStore struct {
	mu    sync.RWMutex
	kv    map[string]memEntry
	zsets map[string]map[string]float64
	now   func() time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		kv:    map[string]memEntry{},
		zsets: map[string]map[string]float64{},
		now:   time.Now,
	}
}

// SetClock overrides the expiry clock; tests use it to fast-forward TTLs.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.kv[key]
	if !ok || e.expired(m.now()) {
		return nil, ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.kv[key] = memEntry{value: cp, expiresAt: m.expiry(ttl)}
	return nil
}

func (m *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.kv[key]; ok && !e.expired(m.now()) {
		return false, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.kv[key] = memEntry{value: cp, expiresAt: m.expiry(ttl)}
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.kv, k)
		delete(m.zsets, k)
	}
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	out := make([]string, 0)
	for k, e := range m.kv {
		if strings.HasPrefix(k, prefix) && !e.expired(now) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.zsets[key]
	if set == nil {
		set = map[string]float64{}
		m.zsets[key] = set
	}
	set[member] = score
	return nil
}

func (m *MemoryStore) ZRem(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.zsets[key]
	for _, mem := range members {
		delete(set, mem)
	}
	if len(set) == 0 {
		delete(m.zsets, key)
	}
	return nil
}

func (m *MemoryStore) ZRange(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.zsets[key]
	out := make([]string, 0, len(set))
	for mem := range set {
		out = append(out, mem)
	}
	sort.Slice(out, func(i, j int) bool {
		if set[out[i]] == set[out[j]] {
			return out[i] < out[j]
		}
		return set[out[i]] < set[out[j]]
	})
	return out, nil
}

func (m *MemoryStore) ZCard(_ context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.zsets[key])), nil
}

func (m *MemoryStore) PurgeExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var n int64
	for k, e := range m.kv {
		if e.expired(now) {
			delete(m.kv, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
