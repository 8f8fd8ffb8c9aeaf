// Package validate turns raw client intents into trusted values. Anything
// that reaches the domain services has passed Intent.
package validate

import (
	"regexp"
	"strings"
	"unicode"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/board"
)

type Type string

const (
	CreateRoom       Type = "create_room"
	JoinRoom         Type = "join_room"
	LeaveRoom        Type = "leave_room"
	StartGame        Type = "start_game"
	SpectateGame     Type = "spectate_game"
	LeaveSpectator   Type = "leave_spectator"
	RollDice         Type = "roll_dice"
	MoveToken        Type = "move_token"
	JoinMatchmaking  Type = "join_matchmaking"
	LeaveMatchmaking Type = "leave_matchmaking"
	ReconnectPlayer  Type = "reconnect_player"
)

const (
	maxPlayerIDLen   = 64
	maxPlayerNameLen = 32
)

var (
	playerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-:.]+$`)
	roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	tokenPattern    = regexp.MustCompile(`^[RBGY]T[1-4]$`)
	positionPattern = regexp.MustCompile(`^(C(0[1-9]|[1-4][0-9]|5[0-2])|[RBGY]H[1-5]|[RBGY][1-4]|[RBGY]F)$`)
)

var (
	ErrUnknownIntent = apperr.Validation("unknown_intent", "unknown intent type")
	ErrMissingField  = apperr.Validation("missing_field", "required field missing")
	ErrInvalidField  = apperr.Validation("invalid_field", "field has an invalid value")
)

// Intent is the union of every intent's fields. Optional integers are
// pointers so that an omitted value can be told apart from zero.
type Intent struct {
	Type             Type   `json:"type"`
	RoomCode         string `json:"roomCode,omitempty"`
	PlayerID         string `json:"playerId,omitempty"`
	PlayerName       string `json:"playerName,omitempty"`
	MaxPlayers       *int   `json:"maxPlayers,omitempty"`
	PreferredPlayers *int   `json:"preferredPlayers,omitempty"`
	TokenID          string `json:"tokenId,omitempty"`
	TargetPositionID string `json:"targetPositionId,omitempty"`
}

type fieldSet uint8

const (
	needRoom fieldSet = 1 << iota
	needName
	needToken
)

var required = map[Type]fieldSet{
	CreateRoom:       needName,
	JoinRoom:         needRoom | needName,
	LeaveRoom:        needRoom,
	StartGame:        needRoom,
	SpectateGame:     needRoom | needName,
	LeaveSpectator:   needRoom,
	RollDice:         needRoom,
	MoveToken:        needRoom | needToken,
	JoinMatchmaking:  needName,
	LeaveMatchmaking: 0,
	ReconnectPlayer:  needRoom,
}

// Check normalises in and rejects anything malformed. Room codes are
// upper-cased, names are trimmed and stripped of control characters.
func Check(in Intent) (Intent, error) {
	need, ok := required[in.Type]
	if !ok {
		return Intent{}, ErrUnknownIntent.Withf("unknown intent type %q", in.Type)
	}
	out := Intent{Type: in.Type}

	out.PlayerID = strings.TrimSpace(in.PlayerID)
	if out.PlayerID == "" {
		return Intent{}, missing("playerId")
	}
	if len(out.PlayerID) > maxPlayerIDLen || !playerIDPattern.MatchString(out.PlayerID) {
		return Intent{}, invalid("playerId")
	}

	if need&needRoom != 0 {
		out.RoomCode = strings.ToUpper(strings.TrimSpace(in.RoomCode))
		if out.RoomCode == "" {
			return Intent{}, missing("roomCode")
		}
		if !roomCodePattern.MatchString(out.RoomCode) {
			return Intent{}, invalid("roomCode")
		}
	}

	if need&needName != 0 {
		name := cleanName(in.PlayerName)
		if name == "" {
			return Intent{}, missing("playerName")
		}
		out.PlayerName = name
	}

	if need&needToken != 0 {
		out.TokenID = strings.ToUpper(strings.TrimSpace(in.TokenID))
		out.TargetPositionID = strings.ToUpper(strings.TrimSpace(in.TargetPositionID))
		if out.TokenID == "" {
			return Intent{}, missing("tokenId")
		}
		if out.TargetPositionID == "" {
			return Intent{}, missing("targetPositionId")
		}
		if !tokenPattern.MatchString(out.TokenID) {
			return Intent{}, invalid("tokenId")
		}
		if !positionPattern.MatchString(out.TargetPositionID) {
			return Intent{}, invalid("targetPositionId")
		}
	}

	switch in.Type {
	case CreateRoom:
		n, err := playerCount("maxPlayers", in.MaxPlayers)
		if err != nil {
			return Intent{}, err
		}
		out.MaxPlayers = &n
	case JoinMatchmaking:
		n, err := playerCount("preferredPlayers", in.PreferredPlayers)
		if err != nil {
			return Intent{}, err
		}
		out.PreferredPlayers = &n
	}
	return out, nil
}

// playerCount defaults an omitted group size to a full board.
func playerCount(field string, v *int) (int, error) {
	if v == nil {
		return len(board.Colors), nil
	}
	if *v < 2 || *v > len(board.Colors) {
		return 0, invalid(field).Withf("%s must be 2, 3 or 4", field)
	}
	return *v, nil
}

func cleanName(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxPlayerNameLen {
		s = strings.TrimSpace(string(r[:maxPlayerNameLen]))
	}
	return s
}

func missing(field string) *apperr.Error {
	return ErrMissingField.Withf("%s is required", field)
}

func invalid(field string) *apperr.Error {
	return ErrInvalidField.Withf("%s is invalid", field)
}
