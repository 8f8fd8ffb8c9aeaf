package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ludo-arena/internal/config"
	"ludo-arena/internal/store"
	httptransport "ludo-arena/internal/transport/http"
	"ludo-arena/internal/validate"

	"github.com/stretchr/testify/require"
)

func TestOpenStoreDefaultsToMemory(t *testing.T) {
	st, err := openStore(context.Background(), config.StoreConfig{Backend: config.StoreBackendMemory})
	require.NoError(t, err)
	require.IsType(t, &store.MemoryStore{}, st)

	st, err = openStore(context.Background(), config.StoreConfig{})
	require.NoError(t, err)
	require.IsType(t, &store.MemoryStore{}, st)
}

func TestAppWiresGatewayEndToEnd(t *testing.T) {
	st := store.NewGuarded(store.NewMemory(), time.Second, 1)
	a := newApp(st, config.GameConfig{
		RoomTTL:        time.Hour,
		GameTTL:        2 * time.Hour,
		SessionTTL:     time.Hour,
		ReconnectGrace: time.Minute,
	})
	t.Cleanup(a.sessions.Stop)

	ctx := context.Background()
	two := 2
	reply, err := a.gw.Execute(ctx, "", validate.Intent{Type: validate.JoinMatchmaking, PlayerID: "p1", PlayerName: "Ann", PreferredPlayers: &two})
	require.NoError(t, err)
	require.NotNil(t, reply)
	_, err = a.gw.Execute(ctx, "", validate.Intent{Type: validate.JoinMatchmaking, PlayerID: "p2", PlayerName: "Bob", PreferredPlayers: &two})
	require.NoError(t, err)

	require.Equal(t, 1, a.queue.Drain(ctx, a.gw.OnMatch))

	srv := httptest.NewServer(httptransport.NewRouter(httptransport.Deps{Gateway: a.gw, Store: st}))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/api/matchmaking")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	size, err := a.gw.QueueSize(ctx)
	require.NoError(t, err)
	require.Zero(t, size)
}
