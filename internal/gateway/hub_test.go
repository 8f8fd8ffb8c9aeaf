package gateway

import (
	"testing"
	"time"

	"ludo-arena/internal/gateway/stream"

	"github.com/stretchr/testify/require"
)

func TestHubBindTakeover(t *testing.T) {
	h := NewHub(10)
	old, fresh := &fakeSink{id: "a"}, &fakeSink{id: "b"}
	h.Register(old)
	h.Register(fresh)

	require.NoError(t, h.Bind("a", "p1"))
	h.Enter("a", "ROOM01", false)
	require.ErrorIs(t, h.Bind("a", "p2"), ErrIdentityMismatch)

	require.NoError(t, h.Bind("b", "p1"))
	require.Equal(t, "b", h.SocketOf("p1"))
	require.Equal(t, 0, h.RoomSize("ROOM01"))

	h.EnterPlayer("p1", "ROOM01")
	h.Broadcast("ROOM01", EventPlayerJoined, nil)
	require.Zero(t, old.count())
	require.Equal(t, 1, fresh.count())

	b, ok := h.Unregister("a")
	require.True(t, ok)
	require.False(t, b.Current)
	require.Equal(t, "b", h.SocketOf("p1"))

	b, ok = h.Unregister("b")
	require.True(t, ok)
	require.True(t, b.Current)
	require.Equal(t, "ROOM01", b.RoomCode)
	require.Empty(t, h.SocketOf("p1"))
	require.Zero(t, h.Connections())
}

func TestHubBroadcastIsLoggedForReplay(t *testing.T) {
	h := NewHub(10)
	s := &fakeSink{id: "a"}
	h.Register(s)
	h.Enter("a", "ROOM01", true)

	first := h.Broadcast("ROOM01", EventDiceRolled, DiceRolled{PlayerID: "p1", DiceValue: 3})
	h.Broadcast("ROOM01", EventGameStateUpdate, nil)
	require.Equal(t, "1", first.EventID)

	replay := h.Buffer("ROOM01").ReplayAfter("1")
	require.Len(t, replay, 1)
	require.Equal(t, EventGameStateUpdate, replay[0].Type)

	require.True(t, h.SendToSocket("a", EventMatchmakingUpdate, "", MatchmakingUpdate{QueueSize: 2}))
	require.Equal(t, 3, s.count())
	direct, _ := s.last(EventMatchmakingUpdate)
	require.Empty(t, direct.EventID)
	require.Len(t, h.Buffer("ROOM01").ReplayAfter(""), 2)
}

func TestHubCloseRoom(t *testing.T) {
	h := NewHub(10)
	s := &fakeSink{id: "a"}
	h.Register(s)
	h.Enter("a", "ROOM01", false)
	buf := h.Buffer("ROOM01")
	ch := buf.Subscribe()

	h.CloseRoom("ROOM01")
	_, open := <-ch
	require.False(t, open)
	b, _ := h.Binding("a")
	require.Empty(t, b.RoomCode)
	require.NotSame(t, buf, h.Buffer("ROOM01"))
}

func TestHubObserversSeeBroadcasts(t *testing.T) {
	h := NewHub(10)
	var seen []string
	h.Observe(func(ev stream.Event) { seen = append(seen, ev.Type+"@"+ev.RoomCode) })

	h.Broadcast("ROOM01", EventGameStarted, nil)
	h.SendToSocket("nobody", EventGameStateUpdate, "ROOM01", nil)
	h.Broadcast("ROOM02", EventGameFinished, nil)

	require.Equal(t, []string{"game_started@ROOM01", "game_finished@ROOM02"}, seen)
}

func TestHubRetireAndCloseRoom(t *testing.T) {
	h := NewHub(10)
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	h.Broadcast("ROOM01", EventGameFinished, nil)
	h.Retire("ROOM01", at)
	h.Retire("ROOM01", at.Add(time.Hour))

	require.Empty(t, h.RetiredBefore(at.Add(-time.Second)))
	require.Equal(t, []string{"ROOM01"}, h.RetiredBefore(at))

	h.CloseRoom("ROOM01")
	require.Empty(t, h.RetiredBefore(at.Add(time.Hour)))
	require.Empty(t, h.BufferedRooms())
}
