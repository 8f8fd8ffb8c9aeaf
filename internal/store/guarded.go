package store

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"time"

	"ludo-arena/internal/apperr"

	"github.com/rs/zerolog/log"
)

var (
	metricStoreRetriesTotal = expvar.NewInt("store_retries_total")
	metricStoreErrorsTotal  = expvar.NewInt("store_errors_total")
)

const (
	defaultStoreTimeout = 2 * time.Second
	defaultRetryBase    = 25 * time.Millisecond
)

// Guarded bounds every call with a timeout and retries transient failures a
// fixed number of times before surfacing a retryable infrastructure error.
// ErrNotFound is a normal answer and is never retried.
type Guarded struct {
	inner     Store
	timeout   time.Duration
	retries   int
	retryBase time.Duration
}

func NewGuarded(inner Store, timeout time.Duration, retries int) *Guarded {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	if retries < 0 {
		retries = 0
	}
	return &Guarded{inner: inner, timeout: timeout, retries: retries, retryBase: defaultRetryBase}
}

func (g *Guarded) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			metricStoreRetriesTotal.Add(1)
			delay := g.retryBase * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return g.fail(op, ctx.Err())
			case <-time.After(delay):
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		err = fn(callCtx)
		cancel()
		if err == nil || errors.Is(err, ErrNotFound) {
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}
	return g.fail(op, err)
}

func (g *Guarded) fail(op string, err error) error {
	metricStoreErrorsTotal.Add(1)
	log.Warn().Err(err).Str("op", op).Msg("store call failed")
	return apperr.Infra("store_unavailable", fmt.Errorf("store %s: %w", op, err))
}

func (g *Guarded) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := g.do(ctx, "get", func(ctx context.Context) error {
		var err error
		out, err = g.inner.Get(ctx, key)
		return err
	})
	return out, err
}

func (g *Guarded) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.do(ctx, "set", func(ctx context.Context) error {
		return g.inner.Set(ctx, key, value, ttl)
	})
}

func (g *Guarded) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var ok bool
	err := g.do(ctx, "setnx", func(ctx context.Context) error {
		var err error
		ok, err = g.inner.SetNX(ctx, key, value, ttl)
		return err
	})
	return ok, err
}

func (g *Guarded) Delete(ctx context.Context, keys ...string) error {
	return g.do(ctx, "delete", func(ctx context.Context) error {
		return g.inner.Delete(ctx, keys...)
	})
}

func (g *Guarded) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := g.do(ctx, "keys", func(ctx context.Context) error {
		var err error
		out, err = g.inner.Keys(ctx, prefix)
		return err
	})
	return out, err
}

func (g *Guarded) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return g.do(ctx, "zadd", func(ctx context.Context) error {
		return g.inner.ZAdd(ctx, key, score, member)
	})
}

func (g *Guarded) ZRem(ctx context.Context, key string, members ...string) error {
	return g.do(ctx, "zrem", func(ctx context.Context) error {
		return g.inner.ZRem(ctx, key, members...)
	})
}

func (g *Guarded) ZRange(ctx context.Context, key string) ([]string, error) {
	var out []string
	err := g.do(ctx, "zrange", func(ctx context.Context) error {
		var err error
		out, err = g.inner.ZRange(ctx, key)
		return err
	})
	return out, err
}

func (g *Guarded) ZCard(ctx context.Context, key string) (int64, error) {
	var n int64
	err := g.do(ctx, "zcard", func(ctx context.Context) error {
		var err error
		n, err = g.inner.ZCard(ctx, key)
		return err
	})
	return n, err
}

func (g *Guarded) PurgeExpired(ctx context.Context) (int64, error) {
	p, ok := g.inner.(Purger)
	if !ok {
		return 0, nil
	}
	var n int64
	err := g.do(ctx, "purge", func(ctx context.Context) error {
		var err error
		n, err = p.PurgeExpired(ctx)
		return err
	})
	return n, err
}

func (g *Guarded) Ping(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.inner.Ping(callCtx)
}

func (g *Guarded) Close() error {
	return g.inner.Close()
}
