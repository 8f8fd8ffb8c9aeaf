package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreBackendMemory   = "memory"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

type StoreConfig struct {
	Backend string `env:"STORE_BACKEND" envDefault:"memory"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	PostgresDSN string `env:"POSTGRES_DSN"`

	Timeout time.Duration `env:"STORE_TIMEOUT" envDefault:"2s"`
	Retries int           `env:"STORE_RETRIES" envDefault:"2"`
}

func LoadStore() (StoreConfig, error) {
	var cfg StoreConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	switch cfg.Backend {
	case StoreBackendMemory, StoreBackendRedis:
	case StoreBackendPostgres:
		if cfg.PostgresDSN == "" {
			return cfg, fmt.Errorf("POSTGRES_DSN is required when STORE_BACKEND=%s", StoreBackendPostgres)
		}
	default:
		return cfg, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Backend)
	}
	return cfg, nil
}
