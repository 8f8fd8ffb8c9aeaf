package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Store is the keyed store every service persists through: plain values with
// TTL expiry plus score-ordered sets for queues.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX writes only when key is absent (or expired) and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	// Keys lists live keys sharing prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key string, members ...string) error
	// ZRange returns all members ordered by ascending score.
	ZRange(ctx context.Context, key string) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// Purger is implemented by backends that keep expired rows around until swept.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw, ttl)
}

func SetJSONNX(ctx context.Context, s Store, key string, v any, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	return s.SetNX(ctx, key, raw, ttl)
}
