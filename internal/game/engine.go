package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/board"
	"ludo-arena/internal/roomlock"
	"ludo-arena/internal/store"

	"github.com/rs/zerolog/log"
)

const DefaultTTL = 6 * time.Hour

// Engine owns every game. Each operation loads the state under the game's
// lock, applies one transition and persists it with a single write; a
// rejected action writes nothing.
type Engine struct {
	store store.Store
	locks *roomlock.Locker
	ttl   time.Duration
	roll  func() int
	now   func() time.Time
}

type Option func(*Engine)

// WithDice replaces the uniform 1..6 roller.
func WithDice(roll func() int) Option {
	return func(e *Engine) { e.roll = roll }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(st store.Store, locks *roomlock.Locker, ttl time.Duration, opts ...Option) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	e := &Engine{
		store: st,
		locks: locks,
		ttl:   ttl,
		roll:  func() int { return rand.IntN(board.MaxDice) + board.MinDice },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) InitializeGame(ctx context.Context, roomCode string, seats []Seat) (*State, error) {
	unlock := e.locks.Lock(store.GameKey(roomCode))
	defer unlock()

	st, err := newState(store.NewID(), roomCode, seats, e.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := e.save(ctx, st); err != nil {
		return nil, err
	}
	log.Info().Str("room_code", roomCode).Str("game_id", st.GameID).Int("players", len(st.Players)).Msg("game_initialized")
	return st.Clone(), nil
}

func (e *Engine) GetState(ctx context.Context, roomCode string) (*State, error) {
	return e.load(ctx, roomCode)
}

func (e *Engine) RollDice(ctx context.Context, roomCode, playerID string) (RollResult, error) {
	var res RollResult
	st, err := e.mutate(ctx, roomCode, func(s *State) error {
		var err error
		res, err = applyRoll(s, playerID, e.roll())
		return err
	})
	if err != nil {
		return RollResult{}, err
	}
	res.State = st
	log.Debug().Str("room_code", roomCode).Str("player_id", playerID).Int("dice", res.DiceValue).Bool("skip_turn", res.SkipTurn).Msg("dice_rolled")
	return res, nil
}

// MoveToken applies a move and, when no extra turn is earned, hands the turn
// on within the same write.
func (e *Engine) MoveToken(ctx context.Context, roomCode, playerID, tokenID, targetPositionID string) (MoveResult, error) {
	var res MoveResult
	st, err := e.mutate(ctx, roomCode, func(s *State) error {
		var err error
		res, err = applyMove(s, playerID, tokenID, targetPositionID, e.now().UTC())
		return err
	})
	if err != nil {
		return MoveResult{}, err
	}
	res.State = st
	ev := log.Debug()
	if res.Won {
		ev = log.Info()
	}
	ev.Str("room_code", roomCode).Str("player_id", playerID).Str("token_id", tokenID).
		Str("to", res.ToPosition).Int("captured", len(res.CapturedTokens)).Bool("won", res.Won).Msg("token_moved")
	return res, nil
}

func (e *Engine) SwitchTurn(ctx context.Context, roomCode string) (*State, error) {
	return e.mutate(ctx, roomCode, func(s *State) error {
		if s.Phase == PhaseFinished {
			return ErrGameFinished
		}
		switchTurn(s)
		return nil
	})
}

func (e *Engine) SetConnectionStatus(ctx context.Context, roomCode, playerID string, status ConnectionStatus) (*State, error) {
	return e.mutate(ctx, roomCode, func(s *State) error {
		return setConnectionStatus(s, playerID, status)
	})
}

// RemovePlayer drops playerID from the turn order for good.
func (e *Engine) RemovePlayer(ctx context.Context, roomCode, playerID string) (RemoveResult, error) {
	var res RemoveResult
	st, err := e.mutate(ctx, roomCode, func(s *State) error {
		var err error
		res, err = removePlayer(s, playerID, e.now().UTC())
		return err
	})
	if err != nil {
		return RemoveResult{}, err
	}
	res.State = st
	log.Info().Str("room_code", roomCode).Str("player_id", playerID).Bool("finished", res.Finished).Msg("player_removed_from_game")
	return res, nil
}

func (e *Engine) DeleteGame(ctx context.Context, roomCode string) error {
	unlock := e.locks.Lock(store.GameKey(roomCode))
	defer unlock()
	return apperr.FromStore(e.store.Delete(ctx, store.GameKey(roomCode)))
}

func (e *Engine) mutate(ctx context.Context, roomCode string, fn func(*State) error) (*State, error) {
	unlock := e.locks.Lock(store.GameKey(roomCode))
	defer unlock()

	st, err := e.load(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	st.UpdatedAt = e.now().UTC()
	if err := e.save(ctx, st); err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

func (e *Engine) load(ctx context.Context, roomCode string) (*State, error) {
	var st State
	if err := store.GetJSON(ctx, e.store, store.GameKey(roomCode), &st); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, apperr.FromStore(err)
	}
	if st.TokenPositions == nil {
		st.TokenPositions = board.Positions{}
	}
	return &st, nil
}

func (e *Engine) save(ctx context.Context, st *State) error {
	return apperr.FromStore(store.SetJSON(ctx, e.store, store.GameKey(st.RoomCode), st, e.ttl))
}
