package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	expires_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS kv_expires_at_idx ON kv (expires_at) WHERE expires_at IS NOT NULL;
CREATE TABLE IF NOT EXISTS kv_zset (
	key    TEXT NOT NULL,
	member TEXT NOT NULL,
	score  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (key, member)
);
`

// PostgresStore emulates cache semantics on two tables; expired rows are
// invisible to reads and removed by PurgeExpired.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{Pool: pool}, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, postgresSchema)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT value FROM kv WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`,
		key,
	).Scan(&value)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, expiresParam(time.Now(), ttl),
	)
	return err
}

func (s *PostgresStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	tag, err := s.Pool.Exec(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
		 WHERE kv.expires_at IS NOT NULL AND kv.expires_at <= now()`,
		key, value, expiresParam(time.Now(), ttl),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `DELETE FROM kv WHERE key = ANY($1)`, keys); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM kv_zset WHERE key = ANY($1)`, keys); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT key FROM kv WHERE key LIKE $1 AND (expires_at IS NULL OR expires_at > now()) ORDER BY key`,
		likePrefix(prefix),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO kv_zset (key, member, score) VALUES ($1, $2, $3)
		 ON CONFLICT (key, member) DO UPDATE SET score = EXCLUDED.score`,
		key, member, score,
	)
	return err
}

func (s *PostgresStore) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	_, err := s.Pool.Exec(ctx, `DELETE FROM kv_zset WHERE key = $1 AND member = ANY($2)`, key, members)
	return err
}

func (s *PostgresStore) ZRange(ctx context.Context, key string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT member FROM kv_zset WHERE key = $1 ORDER BY score, member`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ZCard(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM kv_zset WHERE key = $1`, key).Scan(&n)
	return n, err
}

func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	return nil
}
