package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ludo-arena/internal/config"
	"ludo-arena/internal/game"
	"ludo-arena/internal/gateway"
	"ludo-arena/internal/logging"
	"ludo-arena/internal/matchmaking"
	"ludo-arena/internal/reconnect"
	"ludo-arena/internal/room"
	"ludo-arena/internal/roomlock"
	"ludo-arena/internal/spectatorpush"
	"ludo-arena/internal/store"
	httptransport "ludo-arena/internal/transport/http"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.AppConfig) error {
	backend, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	st := store.NewGuarded(backend, cfg.Store.Timeout, cfg.Store.Retries)
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}

	app := newApp(st, cfg.Game)
	defer app.sessions.Stop()

	pushCfg, err := spectatorpush.ConfigFromEnv(cfg.Push)
	if err != nil {
		return fmt.Errorf("push config: %w", err)
	}
	if pushCfg.Enabled {
		push := spectatorpush.NewManager(pushCfg)
		push.Start(ctx)
		app.gw.Hub().Observe(push.Observe)
	}

	app.queue.Start(ctx, cfg.Game.MatchmakingInterval, app.gw.OnMatch)
	app.gw.StartJanitor(ctx, cfg.Game.CleanupInterval, cfg.Game.AbandonedRoomAge, st)

	r := httptransport.NewRouter(httptransport.Deps{
		Gateway: app.gw,
		Store:   st,
		Purger:  st,
		Server:  cfg.Server,
		Game:    cfg.Game,
	})
	httptransport.LogRoutes(r)

	server := httptransport.NewServer(cfg.Server.HTTPAddr, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Str("store", cfg.Store.Backend).Msg("http listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type app struct {
	games    *game.Engine
	rooms    *room.Manager
	queue    *matchmaking.Queue
	sessions *reconnect.Coordinator
	gw       *gateway.Gateway
}

func newApp(st store.Store, cfg config.GameConfig) *app {
	locks := roomlock.New()
	games := game.NewEngine(st, locks, cfg.GameTTL)
	rooms := room.NewManager(st, locks, games, cfg.RoomTTL)
	queue := matchmaking.NewQueue(st, rooms)
	sessions := reconnect.NewCoordinator(st, games, cfg.ReconnectGrace, cfg.SessionTTL)
	return &app{
		games:    games,
		rooms:    rooms,
		queue:    queue,
		sessions: sessions,
		gw:       gateway.New(rooms, games, queue, sessions, gateway.NewHub(0)),
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.StoreBackendRedis:
		return store.NewRedis(store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	case config.StoreBackendPostgres:
		pg, err := store.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return pg, nil
	default:
		return store.NewMemory(), nil
	}
}
