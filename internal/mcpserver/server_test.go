package mcpserver

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"ludo-arena/internal/game"
	"ludo-arena/internal/gateway"
	"ludo-arena/internal/matchmaking"
	"ludo-arena/internal/reconnect"
	"ludo-arena/internal/room"
	"ludo-arena/internal/roomlock"
	"ludo-arena/internal/store"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

func newTestServer(t *testing.T) *client.Client {
	t.Helper()
	mem := store.NewMemory()
	locks := roomlock.New()
	games := game.NewEngine(mem, locks, time.Hour, game.WithDice(func() int { return 3 }))
	rooms := room.NewManager(mem, locks, games, time.Hour)
	sessions := reconnect.NewCoordinator(mem, games, time.Minute, time.Hour)
	t.Cleanup(sessions.Stop)
	gw := gateway.New(rooms, games, matchmaking.NewQueue(mem, rooms), sessions, gateway.NewHub(0))

	httpSrv := httptest.NewServer(New(gw).Handler())
	t.Cleanup(httpSrv.Close)
	c, closeClient := newMCPClient(t, httpSrv.URL+"/mcp")
	t.Cleanup(closeClient)
	return c
}

func TestMCPServerToolsAndFlows(t *testing.T) {
	c := newTestServer(t)

	assertToolNames(t, mustListTools(t, c),
		"create_room", "join_room", "leave_room", "start_game",
		"spectate_game", "leave_spectator",
		"roll_dice", "move_token", "reconnect_player",
		"join_matchmaking", "leave_matchmaking",
		"get_game_state", "get_room", "get_matchmaking",
	)

	created := mustCallTool(t, c, "create_room", map[string]any{"player_id": "p1", "player_name": "Ann", "max_players": 2})
	if created.IsError {
		t.Fatalf("create_room expected success, got: %v", created.StructuredContent)
	}
	code := asString(mapFromStructured(t, created)["roomCode"])
	if !room.ValidCode(code) {
		t.Fatalf("unexpected room code %q", code)
	}

	joined := mustCallTool(t, c, "join_room", map[string]any{"player_id": "p2", "player_name": "Bob", "room_code": code})
	if joined.IsError {
		t.Fatalf("join_room expected success, got: %v", joined.StructuredContent)
	}
	if status := asString(mapFromStructured(t, joined)["status"]); status != string(room.StatusPlaying) {
		t.Fatalf("expected room PLAYING after second join, got %q", status)
	}

	wrongTurn := mustCallTool(t, c, "roll_dice", map[string]any{"player_id": "p2", "room_code": code})
	assertToolErrorCode(t, wrongTurn, "not_your_turn")

	rolled := mustCallTool(t, c, "roll_dice", map[string]any{"player_id": "p1", "room_code": code})
	if rolled.IsError {
		t.Fatalf("roll_dice expected success, got: %v", rolled.StructuredContent)
	}
	payload := mapFromStructured(t, rolled)
	if asFloat64(payload["diceValue"]) != 3 || payload["skipTurn"] != true {
		t.Fatalf("expected a skipped 3 with every token in base, got %v", payload)
	}

	state := mustCallTool(t, c, "get_game_state", map[string]any{"room_code": code, "player_id": "p2"})
	if state.IsError {
		t.Fatalf("get_game_state expected success, got: %v", state.StructuredContent)
	}
	view := mapFromStructured(t, state)
	if view["myTurn"] != true || asString(view["myColor"]) != "BLUE" {
		t.Fatalf("expected p2 to hold the turn as BLUE, got %v", view)
	}
}

func TestMCPValidationErrors(t *testing.T) {
	c := newTestServer(t)

	res := mustCallTool(t, c, "create_room", map[string]any{"player_id": "p1", "player_name": "Ann", "max_players": 9})
	assertToolErrorCode(t, res, "invalid_field")

	res = mustCallTool(t, c, "get_room", map[string]any{"room_code": "ZZZZZZ"})
	assertToolErrorCode(t, res, "room_not_found")

	res = mustCallTool(t, c, "reconnect_player", map[string]any{"player_id": "ghost", "room_code": "ZZZZZZ"})
	assertToolErrorCode(t, res, "no_active_session")
}

func TestMCPMatchmakingQueue(t *testing.T) {
	c := newTestServer(t)
	res := mustCallTool(t, c, "join_matchmaking", map[string]any{"player_id": "p1", "player_name": "Ann", "preferred_players": 3})
	if res.IsError {
		t.Fatalf("join_matchmaking expected success, got: %v", res.StructuredContent)
	}
	got := mapFromStructured(t, mustCallTool(t, c, "get_matchmaking", map[string]any{}))
	if asFloat64(got["queueSize"]) != 1 {
		t.Fatalf("expected queue size 1, got %v", got)
	}
	res = mustCallTool(t, c, "leave_matchmaking", map[string]any{"player_id": "p1"})
	if asFloat64(mapFromStructured(t, res)["queueSize"]) != 0 {
		t.Fatalf("expected empty queue, got %v", res.StructuredContent)
	}
}

func newMCPClient(t *testing.T, endpoint string) (*client.Client, func()) {
	t.Helper()
	ctx := context.Background()
	trans, err := transport.NewStreamableHTTP(endpoint)
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	if err := trans.Start(ctx); err != nil {
		t.Fatalf("transport start: %v", err)
	}
	c := client.NewClient(trans)
	_, err = c.Initialize(ctx, mcp.InitializeRequest{Params: mcp.InitializeParams{ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION}})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return c, func() { _ = trans.Close() }
}

func mustListTools(t *testing.T, c *client.Client) []mcp.Tool {
	t.Helper()
	res, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	return res.Tools
}

func assertToolNames(t *testing.T, tools []mcp.Tool, expected ...string) {
	t.Helper()
	got := make([]string, 0, len(tools))
	for _, tool := range tools {
		got = append(got, tool.Name)
	}
	sort.Strings(got)
	sort.Strings(expected)
	if len(got) != len(expected) {
		t.Fatalf("tool count mismatch got=%v expected=%v", got, expected)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Fatalf("tool list mismatch got=%v expected=%v", got, expected)
		}
	}
}

func mustCallTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := c.CallTool(context.Background(), mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}})
	if err != nil {
		t.Fatalf("call tool %s: %v", name, err)
	}
	return res
}

func assertToolErrorCode(t *testing.T, res *mcp.CallToolResult, want string) {
	t.Helper()
	if !res.IsError {
		t.Fatalf("expected tool error %q, got success: %v", want, res.StructuredContent)
	}
	payload := mapFromStructured(t, res)
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("error payload missing 'error': %v", payload)
	}
	if got := asString(errObj["code"]); got != want {
		t.Fatalf("error code=%q want=%q payload=%v", got, want, payload)
	}
}

func mapFromStructured(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	b, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat64(v any) float64 {
	f, _ := v.(float64)
	return f
}
