package spectatorpush

import (
	"strings"
	"testing"

	"ludo-arena/internal/board"
	"ludo-arena/internal/game"
	"ludo-arena/internal/gateway"
	"ludo-arena/internal/gateway/stream"
)

func TestFormatMessageNotableEvents(t *testing.T) {
	started := stream.NewEvent(gateway.EventGameStarted, "ROOM01", gateway.GameStarted{
		RoomCode: "ROOM01",
		GameState: &game.State{Players: []game.Player{
			{PlayerID: "p1", PlayerName: "Ann", Color: board.Red},
			{PlayerID: "p2", Color: board.Blue},
		}},
	})
	msg, ok := FormatMessage(started)
	if !ok {
		t.Fatal("game_started should format")
	}
	if msg.Description != "Ann (RED), p2 (BLUE)" || msg.Timestamp == "" {
		t.Fatalf("unexpected start message: %+v", msg)
	}

	capture := stream.NewEvent(gateway.EventTokenMoved, "ROOM01", gateway.TokenMoved{
		PlayerID:       "p1",
		TokenID:        "RT1",
		ToPosition:     "C07",
		CapturedTokens: []board.CapturedToken{{Color: board.Blue, TokenID: "BT2", PositionID: "C07"}},
	})
	msg, ok = FormatMessage(capture)
	if !ok || msg.Color != colorCapture || !strings.Contains(msg.Content, "BT2") {
		t.Fatalf("unexpected capture message: %+v ok=%v", msg, ok)
	}

	finished := stream.NewEvent(gateway.EventGameFinished, "ROOM01", gateway.GameFinished{
		RoomCode: "ROOM01",
		Rankings: []game.Ranking{{PlayerID: "p2", Rank: 1}, {PlayerID: "p1", Rank: 2}},
	})
	msg, ok = FormatMessage(finished)
	if !ok || msg.Description != "1. p2\n2. p1" || msg.Fields[0].Value != "p2" {
		t.Fatalf("unexpected finish message: %+v ok=%v", msg, ok)
	}
}

func TestFormatMessageSkipsRoutineTraffic(t *testing.T) {
	skipped := []stream.Event{
		stream.NewEvent(gateway.EventDiceRolled, "ROOM01", gateway.DiceRolled{PlayerID: "p1", DiceValue: 4}),
		stream.NewEvent(gateway.EventTokenMoved, "ROOM01", gateway.TokenMoved{PlayerID: "p1", TokenID: "RT1"}),
		stream.NewEvent(gateway.EventGameStateUpdate, "ROOM01", &game.State{}),
	}
	for _, ev := range skipped {
		if _, ok := FormatMessage(ev); ok {
			t.Fatalf("%s should not produce a message", ev.Type)
		}
	}
}
