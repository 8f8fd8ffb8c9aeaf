package room

import (
	"slices"
	"time"

	"ludo-arena/internal/apperr"
)

type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusPlaying  Status = "PLAYING"
	StatusFinished Status = "FINISHED"
)

const (
	MinPlayers     = 2
	MaxPlayers     = 4
	DefaultTTL     = 2 * time.Hour
	codeLength     = 6
	maxCodeRetries = 10
)

var (
	ErrRoomNotFound       = apperr.NotFound("room_not_found", "room not found")
	ErrRoomFull           = apperr.Capacity("room_full", "room is full")
	ErrInvalidMaxPlayers  = apperr.Capacity("invalid_max_players", "maxPlayers must be between 2 and 4")
	ErrNotEnoughPlayers   = apperr.Capacity("not_enough_players", "at least 2 players are needed to start")
	ErrRoomNotWaiting     = apperr.Conflict("room_not_waiting", "room is no longer accepting players")
	ErrAlreadyPlayer      = apperr.Conflict("already_player", "players cannot spectate their own room")
	ErrAlreadySpectating  = apperr.Conflict("already_spectating", "leave spectator mode before joining")
	ErrNotHost            = apperr.Unauthorized("not_host", "only the host can start the game")
	ErrCodeSpaceExhausted = apperr.Infra("room_code_exhausted", nil)
)

type Room struct {
	Code       string            `json:"roomCode"`
	HostID     string            `json:"hostId"`
	Players    []string          `json:"players"`
	Names      map[string]string `json:"names"`
	Spectators []string          `json:"spectators"`
	Status     Status            `json:"status"`
	MaxPlayers int               `json:"maxPlayers"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func (r *Room) HasPlayer(playerID string) bool {
	return slices.Contains(r.Players, playerID)
}

func (r *Room) HasSpectator(playerID string) bool {
	return slices.Contains(r.Spectators, playerID)
}

func (r *Room) Full() bool {
	return len(r.Players) >= r.MaxPlayers
}

// Participants is every socket audience member: players then spectators.
func (r *Room) Participants() []string {
	out := make([]string, 0, len(r.Players)+len(r.Spectators))
	out = append(out, r.Players...)
	return append(out, r.Spectators...)
}

func (r *Room) Name(playerID string) string {
	if n, ok := r.Names[playerID]; ok && n != "" {
		return n
	}
	return playerID
}

func (r *Room) removePlayer(playerID string) bool {
	i := slices.Index(r.Players, playerID)
	if i < 0 {
		return false
	}
	r.Players = slices.Delete(r.Players, i, i+1)
	delete(r.Names, playerID)
	return true
}

func (r *Room) removeSpectator(playerID string) bool {
	i := slices.Index(r.Spectators, playerID)
	if i < 0 {
		return false
	}
	r.Spectators = slices.Delete(r.Spectators, i, i+1)
	if !r.HasPlayer(playerID) {
		delete(r.Names, playerID)
	}
	return true
}
