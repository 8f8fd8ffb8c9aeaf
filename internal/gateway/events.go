package gateway

import (
	"ludo-arena/internal/board"
	"ludo-arena/internal/game"
	"ludo-arena/internal/room"
)

const (
	EventRoomCreated        = "room_created"
	EventPlayerJoined       = "player_joined"
	EventPlayerLeft         = "player_left"
	EventReadyToStart       = "ready_to_start"
	EventGameStarted        = "game_started"
	EventDiceRolled         = "dice_rolled"
	EventTokenMoved         = "token_moved"
	EventGameStateUpdate    = "game_state_update"
	EventGameFinished       = "game_finished"
	EventSpectatorJoined    = "spectator_joined"
	EventSpectatorLeft      = "spectator_left"
	EventPlayerDisconnected = "player_disconnected"
	EventPlayerReconnected  = "player_reconnected"
	EventPlayerRemoved      = "player_removed"
	EventMatchFound         = "match_found"
	EventMatchmakingUpdate  = "matchmaking_update"
	EventError              = "error"
)

// ReasonLeft marks a removal the player asked for.
const ReasonLeft = "left"

type RoomCreated struct {
	RoomCode   string     `json:"roomCode"`
	HostID     string     `json:"hostId"`
	MaxPlayers int        `json:"maxPlayers"`
	Room       *room.Room `json:"room"`
}

type PlayerJoined struct {
	PlayerID   string     `json:"playerId"`
	PlayerName string     `json:"playerName"`
	Room       *room.Room `json:"room"`
}

type PlayerLeft struct {
	PlayerID  string     `json:"playerId"`
	NewHostID string     `json:"newHostId,omitempty"`
	Room      *room.Room `json:"room,omitempty"`
}

type ReadyToStart struct {
	RoomCode string   `json:"roomCode"`
	HostID   string   `json:"hostId"`
	Players  []string `json:"players"`
}

type GameStarted struct {
	RoomCode  string      `json:"roomCode"`
	GameState *game.State `json:"gameState"`
}

type DiceRolled struct {
	PlayerID  string `json:"playerId"`
	DiceValue int    `json:"diceValue"`
	SkipTurn  bool   `json:"skipTurn"`
	ExtraRoll bool   `json:"extraRoll"`
}

// TokenMoved names the first captured token in CapturedTokenID for clients
// that only render one capture.
type TokenMoved struct {
	PlayerID        string                `json:"playerId"`
	TokenID         string                `json:"tokenId"`
	FromPosition    string                `json:"fromPosition"`
	ToPosition      string                `json:"toPosition"`
	CapturedTokenID string                `json:"capturedTokenId,omitempty"`
	CapturedTokens  []board.CapturedToken `json:"capturedTokens,omitempty"`
	ExtraTurn       bool                  `json:"extraTurn"`
	Won             bool                  `json:"won"`
}

type GameFinished struct {
	RoomCode string         `json:"roomCode"`
	Rankings []game.Ranking `json:"rankings"`
}

type SpectatorChange struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName,omitempty"`
}

type PlayerDisconnected struct {
	PlayerID           string `json:"playerId"`
	GracePeriodSeconds int    `json:"gracePeriodSeconds"`
}

type PlayerReconnected struct {
	PlayerID string `json:"playerId"`
}

type PlayerRemoved struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason"`
}

type MatchFound struct {
	RoomCode string   `json:"roomCode"`
	Players  []string `json:"players"`
}

type MatchmakingUpdate struct {
	QueueSize int64 `json:"queueSize"`
	Queued    bool  `json:"queued"`
}

type ErrorPayload struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

func tokenMoved(res game.MoveResult) TokenMoved {
	out := TokenMoved{
		PlayerID:       res.PlayerID,
		TokenID:        res.TokenID,
		FromPosition:   res.FromPosition,
		ToPosition:     res.ToPosition,
		CapturedTokens: res.CapturedTokens,
		ExtraTurn:      res.ExtraTurn,
		Won:            res.Won,
	}
	if len(res.CapturedTokens) > 0 {
		out.CapturedTokenID = res.CapturedTokens[0].TokenID
	}
	return out
}
