package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"ludo-arena/internal/game"
	"ludo-arena/internal/gateway"
	"ludo-arena/internal/matchmaking"
	"ludo-arena/internal/reconnect"
	"ludo-arena/internal/room"
	"ludo-arena/internal/roomlock"
	"ludo-arena/internal/store"

	"github.com/gorilla/websocket"
)

type frame struct {
	Type      string          `json:"type"`
	Version   string          `json:"protocolVersion"`
	EventID   string          `json:"eventId"`
	RoomCode  string          `json:"roomCode"`
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mem := store.NewMemory()
	locks := roomlock.New()
	games := game.NewEngine(mem, locks, time.Hour)
	rooms := room.NewManager(mem, locks, games, time.Hour)
	sessions := reconnect.NewCoordinator(mem, games, time.Minute, time.Hour)
	t.Cleanup(sessions.Stop)
	gw := gateway.New(rooms, games, matchmaking.NewQueue(mem, rooms), sessions, gateway.NewHub(0))
	srv := httptest.NewServer(http.HandlerFunc(NewServer(gw).HandleWS))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil returns the first frame of type typ, failing after a short wait.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if f.Type == typ {
			return f
		}
	}
}

func createRoom(t *testing.T, conn *websocket.Conn, maxPlayers int) string {
	t.Helper()
	send(t, conn, `{"type":"create_room","requestId":"r1","playerId":"p1","playerName":"Ann","maxPlayers":`+strconv.Itoa(maxPlayers)+`}`)
	created := readUntil(t, conn, gateway.EventRoomCreated)
	var payload gateway.RoomCreated
	if err := json.Unmarshal(created.Data, &payload); err != nil {
		t.Fatalf("decode room_created: %v", err)
	}
	if created.EventID != "1" || created.RoomCode != payload.RoomCode {
		t.Fatalf("unexpected room_created envelope: %+v", created)
	}
	res := readUntil(t, conn, TypeIntentResult)
	if res.RequestID != "r1" || res.Version != ProtocolVersion {
		t.Fatalf("unexpected intent_result envelope: %+v", res)
	}
	return payload.RoomCode
}

func TestCreateRoomRepliesAndNotifies(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)
	code := createRoom(t, conn, 4)
	if !room.ValidCode(code) {
		t.Fatalf("invalid room code %q", code)
	}
}

func TestJoinStartsGameForBothSockets(t *testing.T) {
	srv := newTestServer(t)
	a, b := dial(t, srv), dial(t, srv)
	code := createRoom(t, a, 2)

	send(t, b, `{"type":"join_room","playerId":"p2","playerName":"Bob","roomCode":"`+strings.ToLower(code)+`"}`)
	for _, conn := range []*websocket.Conn{a, b} {
		started := readUntil(t, conn, gateway.EventGameStarted)
		var payload gateway.GameStarted
		if err := json.Unmarshal(started.Data, &payload); err != nil {
			t.Fatalf("decode game_started: %v", err)
		}
		if len(payload.GameState.Players) != 2 {
			t.Fatalf("expected 2 players, got %+v", payload.GameState.Players)
		}
	}
}

func TestErrorsGoToCallerOnly(t *testing.T) {
	srv := newTestServer(t)
	a := dial(t, srv)
	send(t, a, `not json`)
	f := readUntil(t, a, gateway.EventError)
	var payload gateway.ErrorPayload
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Code != "malformed_frame" || payload.Retryable {
		t.Fatalf("unexpected error payload: %+v", payload)
	}

	send(t, a, `{"type":"roll_dice","requestId":"r9","playerId":"p1","roomCode":"ZZZZZZ"}`)
	f = readUntil(t, a, gateway.EventError)
	if f.RequestID != "r9" {
		t.Fatalf("expected request id echo, got %q", f.RequestID)
	}
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Code != "game_not_found" {
		t.Fatalf("expected game_not_found, got %+v", payload)
	}
}

func TestRequestIDTooLongIsRejected(t *testing.T) {
	srv := newTestServer(t)
	a := dial(t, srv)
	long := strings.Repeat("a", maxRequestIDLen+1)
	send(t, a, `{"type":"leave_matchmaking","requestId":"`+long+`","playerId":"p1"}`)
	f := readUntil(t, a, gateway.EventError)
	if f.RequestID != long {
		t.Fatalf("expected invalid id echoed, got %q", f.RequestID)
	}
}

func TestClosingSocketStartsGracePeriod(t *testing.T) {
	srv := newTestServer(t)
	a, b := dial(t, srv), dial(t, srv)
	code := createRoom(t, a, 2)
	send(t, b, `{"type":"join_room","playerId":"p2","playerName":"Bob","roomCode":"`+code+`"}`)
	readUntil(t, a, gateway.EventGameStarted)
	readUntil(t, b, gateway.EventGameStarted)

	_ = b.Close()
	f := readUntil(t, a, gateway.EventPlayerDisconnected)
	var payload gateway.PlayerDisconnected
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.PlayerID != "p2" || payload.GracePeriodSeconds != 60 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
