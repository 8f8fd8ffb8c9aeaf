package game

import (
	"time"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/board"
)

const maxConsecutiveSixes = 3

var (
	ErrGameNotFound       = apperr.NotFound("game_not_found", "game not found")
	ErrPlayerNotFound     = apperr.NotFound("player_not_found", "player is not part of this game")
	ErrTokenNotFound      = apperr.NotFound("token_not_found", "token not found")
	ErrNotYourTurn        = apperr.Unauthorized("not_your_turn", "it is not your turn")
	ErrNotYourToken       = apperr.Unauthorized("not_your_token", "token does not belong to you")
	ErrWrongPhase         = apperr.Conflict("wrong_phase", "action not allowed in the current phase")
	ErrDiceNotRolled      = apperr.Conflict("dice_not_rolled", "roll the dice first")
	ErrTargetMismatch     = apperr.Conflict("target_mismatch", "target position does not match the rolled value")
	ErrIllegalMove        = apperr.Conflict("illegal_move", "token cannot move with the rolled value")
	ErrGameFinished       = apperr.Conflict("game_finished", "game is already finished")
	ErrInvalidPlayerCount = apperr.Capacity("invalid_player_count", "a game needs 2 to 4 players")
	ErrDuplicatePlayer    = apperr.Validation("duplicate_player", "player listed twice")
)

func newState(gameID, roomCode string, seats []Seat, now time.Time) (*State, error) {
	if len(seats) < MinPlayers || len(seats) > MaxPlayers {
		return nil, ErrInvalidPlayerCount
	}
	seen := make(map[string]struct{}, len(seats))
	players := make([]Player, 0, len(seats))
	positions := make(board.Positions, len(seats))
	for i, seat := range seats {
		if _, dup := seen[seat.PlayerID]; dup {
			return nil, ErrDuplicatePlayer
		}
		seen[seat.PlayerID] = struct{}{}
		color := board.Colors[i]
		players = append(players, Player{
			PlayerID:         seat.PlayerID,
			PlayerName:       seat.PlayerName,
			Color:            color,
			ConnectionStatus: StatusConnected,
		})
		positions[color] = board.InitialTokens(color)
	}
	return &State{
		GameID:         gameID,
		RoomCode:       roomCode,
		Players:        players,
		TokenPositions: positions,
		Phase:          PhaseRolling,
		Rankings:       []Ranking{},
		StartedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// checkActor enforces turn ownership and phase for roll and move intents.
func checkActor(s *State, playerID string, want Phase) (Player, error) {
	if s.Phase == PhaseFinished {
		return Player{}, ErrGameFinished
	}
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return Player{}, ErrPlayerNotFound
	}
	if idx != s.CurrentPlayerIndex {
		return Player{}, ErrNotYourTurn
	}
	if s.Phase != want {
		return Player{}, ErrWrongPhase.Withf("expected phase %s, game is %s", want, s.Phase)
	}
	return s.Players[idx], nil
}

func applyRoll(s *State, playerID string, dice int) (RollResult, error) {
	p, err := checkActor(s, playerID, PhaseRolling)
	if err != nil {
		return RollResult{}, err
	}
	res := RollResult{PlayerID: playerID, DiceValue: dice}

	if dice == board.ExitRoll {
		s.ConsecutiveSixes++
	} else {
		s.ConsecutiveSixes = 0
	}

	switch {
	case s.ConsecutiveSixes >= maxConsecutiveSixes:
		switchTurn(s)
		res.SkipTurn = true
	case !board.HasLegalMove(p.Color, s.TokenPositions[p.Color], dice):
		if dice == board.ExitRoll {
			s.DiceValue = nil
			s.Phase = PhaseRolling
			res.ExtraRoll = true
		} else {
			switchTurn(s)
			res.SkipTurn = true
		}
	default:
		v := dice
		s.DiceValue = &v
		s.Phase = PhaseMoving
	}
	return res, nil
}

func applyMove(s *State, playerID, tokenID, targetPositionID string, now time.Time) (MoveResult, error) {
	p, err := checkActor(s, playerID, PhaseMoving)
	if err != nil {
		return MoveResult{}, err
	}
	if s.DiceValue == nil {
		return MoveResult{}, ErrDiceNotRolled
	}
	owner, idx, ok := s.TokenPositions.Find(tokenID)
	if !ok {
		if c, known := board.TokenColor(tokenID); known && c != p.Color {
			return MoveResult{}, ErrNotYourToken
		}
		return MoveResult{}, ErrTokenNotFound
	}
	if owner != p.Color {
		return MoveResult{}, ErrNotYourToken
	}
	dice := *s.DiceValue
	from := s.TokenPositions[owner][idx].PositionID
	check := board.CanMove(from, dice, owner)
	if !check.Valid {
		return MoveResult{}, ErrIllegalMove.Withf("token %s cannot move: %s", tokenID, check.Reason)
	}
	if check.Target != targetPositionID {
		return MoveResult{}, ErrTargetMismatch
	}

	s.TokenPositions[owner][idx].PositionID = check.Target
	res := MoveResult{PlayerID: playerID, TokenID: tokenID, FromPosition: from, ToPosition: check.Target}

	col := board.DetectCollision(check.Target, owner, s.TokenPositions)
	if col.Captured {
		board.SendToBase(s.TokenPositions, col.CapturedTokens)
		res.CapturedTokens = col.CapturedTokens
	}

	if board.CheckWin(owner, s.TokenPositions[owner]) {
		res.Won = true
		res.Rank = recordFinish(s, s.CurrentPlayerIndex, now)
		if s.activeCount() <= 1 {
			finishGame(s, now)
		}
	}

	s.DiceValue = nil
	switch {
	case s.Phase == PhaseFinished:
		res.Finished = true
	case res.Won:
		s.Phase = PhaseRolling
		switchTurn(s)
	case dice == board.ExitRoll || col.Captured:
		s.Phase = PhaseRolling
		res.ExtraTurn = true
	default:
		s.Phase = PhaseRolling
		switchTurn(s)
	}
	return res, nil
}

func recordFinish(s *State, idx int, now time.Time) int {
	rank := len(s.Rankings) + 1
	s.Players[idx].Rank = rank
	s.Rankings = append(s.Rankings, Ranking{PlayerID: s.Players[idx].PlayerID, Rank: rank, FinishedAt: now})
	return rank
}

// finishGame ranks the last unfinished player, if any, and freezes the game.
func finishGame(s *State, now time.Time) {
	for i, p := range s.Players {
		if p.Rank == 0 {
			recordFinish(s, i, now)
		}
	}
	s.Phase = PhaseFinished
	s.DiceValue = nil
	s.ConsecutiveSixes = 0
	t := now
	s.FinishedAt = &t
}

// switchTurn hands the turn to the next unfinished player after the current
// one, wrapping. The index stays put when nobody else is eligible.
func switchTurn(s *State) {
	s.DiceValue = nil
	s.ConsecutiveSixes = 0
	if s.Phase != PhaseFinished {
		s.Phase = PhaseRolling
	}
	n := len(s.Players)
	if n == 0 {
		s.CurrentPlayerIndex = 0
		return
	}
	for step := 1; step < n; step++ {
		j := (s.CurrentPlayerIndex + step) % n
		if s.Players[j].Rank == 0 {
			s.CurrentPlayerIndex = j
			return
		}
	}
}

func setConnectionStatus(s *State, playerID string, status ConnectionStatus) error {
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return ErrPlayerNotFound
	}
	s.Players[idx].ConnectionStatus = status
	return nil
}

// removePlayer drops a player and their tokens, keeping CurrentPlayerIndex on
// the same player when possible. Leaving a single unfinished player ends the
// game.
func removePlayer(s *State, playerID string, now time.Time) (RemoveResult, error) {
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return RemoveResult{}, ErrPlayerNotFound
	}
	removed := s.Players[idx]
	delete(s.TokenPositions, removed.Color)
	s.Players = append(s.Players[:idx:idx], s.Players[idx+1:]...)

	wasCurrent := idx == s.CurrentPlayerIndex
	if idx < s.CurrentPlayerIndex {
		s.CurrentPlayerIndex--
	}
	if s.CurrentPlayerIndex >= len(s.Players) {
		s.CurrentPlayerIndex = 0
	}

	res := RemoveResult{Removed: true}
	if s.Phase != PhaseFinished {
		if s.activeCount() <= 1 {
			finishGame(s, now)
			res.Finished = true
		} else if wasCurrent {
			s.DiceValue = nil
			s.ConsecutiveSixes = 0
			s.Phase = PhaseRolling
			if s.Players[s.CurrentPlayerIndex].Rank != 0 {
				switchTurn(s)
			}
		}
	}
	return res, nil
}
