package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type GameConfig struct {
	RoomTTL    time.Duration `env:"ROOM_TTL" envDefault:"2h"`
	GameTTL    time.Duration `env:"GAME_TTL" envDefault:"6h"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`

	ReconnectGrace time.Duration `env:"RECONNECT_GRACE" envDefault:"60s"`

	MatchmakingInterval time.Duration `env:"MATCHMAKING_INTERVAL" envDefault:"2s"`
	CleanupInterval     time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1m"`
	AbandonedRoomAge    time.Duration `env:"ABANDONED_ROOM_AGE" envDefault:"30m"`
}

func LoadGame() (GameConfig, error) {
	var cfg GameConfig
	err := env.Parse(&cfg)
	return cfg, err
}
