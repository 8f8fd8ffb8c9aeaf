package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/game"
	"ludo-arena/internal/roomlock"
	"ludo-arena/internal/store"

	"github.com/stretchr/testify/require"
)

type failingStarter struct{}

func (failingStarter) InitializeGame(context.Context, string, []game.Seat) (*game.State, error) {
	return nil, apperr.Infra("store_unavailable", errors.New("boom"))
}

type fixture struct {
	mgr   *Manager
	games *game.Engine
	mem   *store.MemoryStore
	now   time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{mem: store.NewMemory(), now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	locks := roomlock.New()
	f.games = game.NewEngine(f.mem, locks, time.Hour)
	clock := func() time.Time { return f.now }
	f.mgr = NewManager(f.mem, locks, f.games, time.Hour, append([]Option{WithClock(clock)}, opts...)...)
	return f
}

func TestCreateRoom(t *testing.T) {
	f := newFixture(t)
	r, err := f.mgr.CreateRoom(context.Background(), "host", "Hana", 3)
	require.NoError(t, err)
	require.True(t, ValidCode(r.Code), "code %q", r.Code)
	require.Equal(t, "host", r.HostID)
	require.Equal(t, []string{"host"}, r.Players)
	require.Equal(t, StatusWaiting, r.Status)

	got, err := f.mgr.GetRoom(context.Background(), r.Code)
	require.NoError(t, err)
	require.Equal(t, r.Code, got.Code)
	require.Equal(t, "Hana", got.Name("host"))
}

func TestCreateRoomRejectsMaxPlayers(t *testing.T) {
	f := newFixture(t)
	for _, n := range []int{0, 1, 5} {
		_, err := f.mgr.CreateRoom(context.Background(), "host", "Hana", n)
		require.ErrorIs(t, err, ErrInvalidMaxPlayers, "maxPlayers=%d", n)
	}
}

func TestCreateRoomRetriesOnCollision(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	i := 0
	f := newFixture(t, WithCodeGenerator(func() (string, error) {
		c := codes[i]
		i++
		return c, nil
	}))
	ctx := context.Background()

	first, err := f.mgr.CreateRoom(ctx, "h1", "One", 2)
	require.NoError(t, err)
	require.Equal(t, "AAAAAA", first.Code)

	second, err := f.mgr.CreateRoom(ctx, "h2", "Two", 2)
	require.NoError(t, err)
	require.Equal(t, "BBBBBB", second.Code)
}

func TestCreateRoomGivesUpAfterBoundedRetries(t *testing.T) {
	calls := 0
	f := newFixture(t, WithCodeGenerator(func() (string, error) {
		calls++
		return "ZZZZZZ", nil
	}))
	ctx := context.Background()
	_, err := f.mgr.CreateRoom(ctx, "h1", "One", 2)
	require.NoError(t, err)

	calls = 0
	_, err = f.mgr.CreateRoom(ctx, "h2", "Two", 2)
	require.ErrorIs(t, err, ErrCodeSpaceExhausted)
	require.True(t, apperr.IsRetryable(err))
	require.Equal(t, maxCodeRetries, calls)
}

func TestJoinRoomAutoStartsWhenFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.mgr.CreateRoom(ctx, "p1", "Ann", 2)
	require.NoError(t, err)

	res, err := f.mgr.JoinRoom(ctx, r.Code, "p2", "Bob")
	require.NoError(t, err)
	require.True(t, res.Joined)
	require.True(t, res.Started)
	require.False(t, res.ReadyToStart)
	require.Equal(t, StatusPlaying, res.Room.Status)

	st, err := f.games.GetState(ctx, r.Code)
	require.NoError(t, err)
	require.Len(t, st.Players, 2)
	require.Equal(t, "Ann", st.Players[0].PlayerName)
	tokens := 0
	for _, toks := range st.TokenPositions {
		tokens += len(toks)
	}
	require.Equal(t, 8, tokens)
}

func TestJoinRoomRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mgr.JoinRoom(ctx, "NOPE00", "p2", "Bob")
	require.ErrorIs(t, err, ErrRoomNotFound)

	r, err := f.mgr.CreateRoom(ctx, "p1", "Ann", 3)
	require.NoError(t, err)

	res, err := f.mgr.JoinRoom(ctx, r.Code, "p2", "Bob")
	require.NoError(t, err)
	require.True(t, res.ReadyToStart)

	again, err := f.mgr.JoinRoom(ctx, r.Code, "p2", "Bob")
	require.NoError(t, err)
	require.False(t, again.Joined)
	require.Equal(t, []string{"p1", "p2"}, again.Room.Players)

	_, err = f.mgr.JoinRoom(ctx, r.Code, "p3", "Cy")
	require.NoError(t, err)
	_, err = f.mgr.JoinRoom(ctx, r.Code, "p4", "Di")
	require.ErrorIs(t, err, ErrRoomNotWaiting)
}

func TestJoinRoomFullWhileWaiting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.mgr.CreateRoom(ctx, "p1", "Ann", 2)
	require.NoError(t, err)

	// Force a full WAITING room, as left behind by a failed auto-start.
	r.Players = append(r.Players, "p2")
	require.NoError(t, store.SetJSON(ctx, f.mem, store.RoomKey(r.Code), r, time.Hour))

	_, err = f.mgr.JoinRoom(ctx, r.Code, "p3", "Cy")
	require.ErrorIs(t, err, ErrRoomFull)
}

func TestAutoStartFailureLeavesRoomWaiting(t *testing.T) {
	mem := store.NewMemory()
	mgr := NewManager(mem, roomlock.New(), failingStarter{}, time.Hour)
	ctx := context.Background()
	r, err := mgr.CreateRoom(ctx, "p1", "Ann", 2)
	require.NoError(t, err)

	_, err = mgr.JoinRoom(ctx, r.Code, "p2", "Bob")
	require.Error(t, err)
	require.True(t, apperr.IsRetryable(err))

	got, err := mgr.GetRoom(ctx, r.Code)
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, got.Status)
	require.Equal(t, []string{"p1"}, got.Players)
}

func TestLeaveRoomPromotesHostAndDeletesWhenEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.mgr.CreateRoom(ctx, "p1", "Ann", 4)
	require.NoError(t, err)
	_, err = f.mgr.JoinRoom(ctx, r.Code, "p2", "Bob")
	require.NoError(t, err)

	noop, err := f.mgr.LeaveRoom(ctx, r.Code, "ghost")
	require.NoError(t, err)
	require.False(t, noop.Left)

	res, err := f.mgr.LeaveRoom(ctx, r.Code, "p1")
	require.NoError(t, err)
	require.True(t, res.Left)
	require.Equal(t, "p2", res.NewHost)
	require.Equal(t, "p2", res.Room.HostID)

	res, err = f.mgr.LeaveRoom(ctx, r.Code, "p2")
	require.NoError(t, err)
	require.True(t, res.Deleted)

	_, err = f.mgr.GetRoom(ctx, r.Code)
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestStartGameRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.mgr.CreateRoom(ctx, "p1", "Ann", 4)
	require.NoError(t, err)

	_, _, err = f.mgr.StartGame(ctx, r.Code, "p1")
	require.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = f.mgr.JoinRoom(ctx, r.Code, "p2", "Bob")
	require.NoError(t, err)
	_, _, err = f.mgr.StartGame(ctx, r.Code, "p2")
	require.ErrorIs(t, err, ErrNotHost)

	started, st, err := f.mgr.StartGame(ctx, r.Code, "p1")
	require.NoError(t, err)
	require.Equal(t, StatusPlaying, started.Status)
	require.Len(t, st.Players, 2)

	_, _, err = f.mgr.StartGame(ctx, r.Code, "p1")
	require.ErrorIs(t, err, ErrRoomNotWaiting)
}

func TestSpectatorsStayDisjointFromPlayers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.mgr.CreateRoom(ctx, "p1", "Ann", 4)
	require.NoError(t, err)

	_, _, err = f.mgr.AddSpectator(ctx, r.Code, "p1", "Ann")
	require.ErrorIs(t, err, ErrAlreadyPlayer)

	got, added, err := f.mgr.AddSpectator(ctx, r.Code, "s1", "Sam")
	require.NoError(t, err)
	require.True(t, added)
	require.Equal(t, []string{"s1"}, got.Spectators)

	_, added, err = f.mgr.AddSpectator(ctx, r.Code, "s1", "Sam")
	require.NoError(t, err)
	require.False(t, added)

	_, err = f.mgr.JoinRoom(ctx, r.Code, "s1", "Sam")
	require.ErrorIs(t, err, ErrAlreadySpectating)

	got, removed, err := f.mgr.RemoveSpectator(ctx, r.Code, "s1")
	require.NoError(t, err)
	require.True(t, removed)
	require.Empty(t, got.Spectators)
}

func TestCleanupAbandonedRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old, err := f.mgr.CreateRoom(ctx, "p1", "Ann", 2)
	require.NoError(t, err)
	playing, err := f.mgr.CreateRoom(ctx, "p2", "Bob", 2)
	require.NoError(t, err)
	_, err = f.mgr.JoinRoom(ctx, playing.Code, "p3", "Cy")
	require.NoError(t, err)

	f.now = f.now.Add(40 * time.Minute)
	fresh, err := f.mgr.CreateRoom(ctx, "p4", "Di", 2)
	require.NoError(t, err)

	removed, err := f.mgr.CleanupAbandonedRooms(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{old.Code}, removed)

	_, err = f.mgr.GetRoom(ctx, fresh.Code)
	require.NoError(t, err)
	_, err = f.mgr.GetRoom(ctx, playing.Code)
	require.NoError(t, err)
}

func TestMarkFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.mgr.CreateRoom(ctx, "p1", "Ann", 2)
	require.NoError(t, err)

	got, err := f.mgr.MarkFinished(ctx, r.Code)
	require.NoError(t, err)
	require.Equal(t, StatusFinished, got.Status)
}

func TestNewCodeShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		require.True(t, ValidCode(code), code)
	}
	require.False(t, ValidCode("abc123"))
	require.False(t, ValidCode("ABC12"))
}
