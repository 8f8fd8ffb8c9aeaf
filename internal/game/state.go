package game

import (
	"time"

	"ludo-arena/internal/board"
)

type Phase string

const (
	PhaseWaiting  Phase = "WAITING"
	PhaseRolling  Phase = "ROLLING"
	PhaseMoving   Phase = "MOVING"
	PhaseFinished Phase = "FINISHED"
)

type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "CONNECTED"
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
	StatusReconnecting ConnectionStatus = "RECONNECTING"
)

const (
	MinPlayers = 2
	MaxPlayers = len(board.Colors)
)

// Seat is a room member handed to InitializeGame in join order.
type Seat struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type Player struct {
	PlayerID         string           `json:"playerId"`
	PlayerName       string           `json:"playerName"`
	Color            board.Color      `json:"color"`
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
	IsSpectator      bool             `json:"isSpectator"`
	Rank             int              `json:"rank"`
}

type Ranking struct {
	PlayerID   string    `json:"playerId"`
	Rank       int       `json:"rank"`
	FinishedAt time.Time `json:"finishedAt"`
}

// State is one room's game. Players is the turn order fixed at start; later
// room membership changes never touch it except for removals.
type State struct {
	GameID             string          `json:"gameId"`
	RoomCode           string          `json:"roomCode"`
	Players            []Player        `json:"players"`
	CurrentPlayerIndex int             `json:"currentPlayerIndex"`
	DiceValue          *int            `json:"diceValue"`
	TokenPositions     board.Positions `json:"tokenPositions"`
	Phase              Phase           `json:"phase"`
	Rankings           []Ranking       `json:"rankings"`
	ConsecutiveSixes   int             `json:"consecutiveSixes"`
	StartedAt          time.Time       `json:"startedAt"`
	FinishedAt         *time.Time      `json:"finishedAt,omitempty"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Players = append([]Player(nil), s.Players...)
	cp.Rankings = append([]Ranking(nil), s.Rankings...)
	cp.TokenPositions = s.TokenPositions.Clone()
	if s.DiceValue != nil {
		v := *s.DiceValue
		cp.DiceValue = &v
	}
	if s.FinishedAt != nil {
		v := *s.FinishedAt
		cp.FinishedAt = &v
	}
	return &cp
}

func (s *State) CurrentPlayer() (Player, bool) {
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return Player{}, false
	}
	return s.Players[s.CurrentPlayerIndex], true
}

func (s *State) PlayerIndex(playerID string) int {
	for i, p := range s.Players {
		if p.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (s *State) activeCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Rank == 0 {
			n++
		}
	}
	return n
}

// RollResult.ExtraRoll is set when a six left the player without a legal
// move; the turn stays with them.
type RollResult struct {
	PlayerID  string `json:"playerId"`
	DiceValue int    `json:"diceValue"`
	SkipTurn  bool   `json:"skipTurn"`
	ExtraRoll bool   `json:"extraRoll,omitempty"`
	State     *State `json:"-"`
}

type MoveResult struct {
	PlayerID       string                `json:"playerId"`
	TokenID        string                `json:"tokenId"`
	FromPosition   string                `json:"fromPosition"`
	ToPosition     string                `json:"toPosition"`
	CapturedTokens []board.CapturedToken `json:"capturedTokens,omitempty"`
	ExtraTurn      bool                  `json:"extraTurn"`
	Won            bool                  `json:"won"`
	Rank           int                   `json:"rank,omitempty"`
	Finished       bool                  `json:"finished"`
	State          *State                `json:"-"`
}

type RemoveResult struct {
	Removed  bool
	Finished bool
	State    *State
}
