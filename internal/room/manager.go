package room

import (
	"context"
	"errors"
	"time"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/game"
	"ludo-arena/internal/roomlock"
	"ludo-arena/internal/store"

	"github.com/rs/zerolog/log"
)

// GameStarter initialises the game once a room starts.
type GameStarter interface {
	InitializeGame(ctx context.Context, roomCode string, seats []game.Seat) (*game.State, error)
}

type Manager struct {
	store   store.Store
	locks   *roomlock.Locker
	games   GameStarter
	ttl     time.Duration
	now     func() time.Time
	newCode func() (string, error)
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithCodeGenerator(gen func() (string, error)) Option {
	return func(m *Manager) { m.newCode = gen }
}

func NewManager(st store.Store, locks *roomlock.Locker, games GameStarter, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		store:   st,
		locks:   locks,
		games:   games,
		ttl:     ttl,
		now:     time.Now,
		newCode: NewCode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// JoinResult.Joined is false when the player was already a member.
type JoinResult struct {
	Room         *Room
	Joined       bool
	ReadyToStart bool
	Started      bool
	Game         *game.State
}

type LeaveResult struct {
	Room    *Room
	Left    bool
	Deleted bool
	NewHost string
}

func (m *Manager) CreateRoom(ctx context.Context, hostID, hostName string, maxPlayers int) (*Room, error) {
	if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
		return nil, ErrInvalidMaxPlayers
	}
	now := m.now().UTC()
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		code, err := m.newCode()
		if err != nil {
			return nil, apperr.Infra("room_code_generation", err)
		}
		r := &Room{
			Code:       code,
			HostID:     hostID,
			Players:    []string{hostID},
			Names:      map[string]string{hostID: hostName},
			Spectators: []string{},
			Status:     StatusWaiting,
			MaxPlayers: maxPlayers,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		ok, err := store.SetJSONNX(ctx, m.store, store.RoomKey(code), r, m.ttl)
		if err != nil {
			return nil, apperr.FromStore(err)
		}
		if ok {
			log.Info().Str("room_code", code).Str("player_id", hostID).Int("max_players", maxPlayers).Msg("room_created")
			return r, nil
		}
		log.Debug().Str("room_code", code).Int("attempt", attempt+1).Msg("room code collision")
	}
	return nil, ErrCodeSpaceExhausted
}

func (m *Manager) GetRoom(ctx context.Context, code string) (*Room, error) {
	return m.load(ctx, code)
}

func (m *Manager) JoinRoom(ctx context.Context, code, playerID, playerName string) (JoinResult, error) {
	unlock := m.locks.Lock(store.RoomKey(code))
	defer unlock()

	r, err := m.load(ctx, code)
	if err != nil {
		return JoinResult{}, err
	}
	if r.HasPlayer(playerID) {
		return JoinResult{Room: r}, nil
	}
	if r.HasSpectator(playerID) {
		return JoinResult{}, ErrAlreadySpectating
	}
	if r.Status != StatusWaiting {
		return JoinResult{}, ErrRoomNotWaiting
	}
	if r.Full() {
		return JoinResult{}, ErrRoomFull
	}
	r.Players = append(r.Players, playerID)
	if r.Names == nil {
		r.Names = map[string]string{}
	}
	r.Names[playerID] = playerName

	res := JoinResult{Room: r, Joined: true}
	if r.Full() {
		st, err := m.start(ctx, r)
		if err != nil {
			return JoinResult{}, err
		}
		res.Started = true
		res.Game = st
	} else if err := m.save(ctx, r); err != nil {
		return JoinResult{}, err
	}
	res.ReadyToStart = !res.Started && len(r.Players) >= MinPlayers
	log.Info().Str("room_code", code).Str("player_id", playerID).Int("players", len(r.Players)).Bool("started", res.Started).Msg("player_joined")
	return res, nil
}

func (m *Manager) LeaveRoom(ctx context.Context, code, playerID string) (LeaveResult, error) {
	unlock := m.locks.Lock(store.RoomKey(code))
	defer unlock()

	r, err := m.load(ctx, code)
	if err != nil {
		return LeaveResult{}, err
	}
	if !r.removePlayer(playerID) {
		return LeaveResult{Room: r}, nil
	}
	res := LeaveResult{Room: r, Left: true}
	if len(r.Players) == 0 {
		if err := apperr.FromStore(m.store.Delete(ctx, store.RoomKey(code))); err != nil {
			return LeaveResult{}, err
		}
		res.Deleted = true
		log.Info().Str("room_code", code).Msg("room_deleted")
		return res, nil
	}
	if r.HostID == playerID {
		r.HostID = r.Players[0]
		res.NewHost = r.HostID
	}
	if err := m.save(ctx, r); err != nil {
		return LeaveResult{}, err
	}
	log.Info().Str("room_code", code).Str("player_id", playerID).Str("new_host", res.NewHost).Msg("player_left")
	return res, nil
}

func (m *Manager) StartGame(ctx context.Context, code, playerID string) (*Room, *game.State, error) {
	unlock := m.locks.Lock(store.RoomKey(code))
	defer unlock()

	r, err := m.load(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if r.HostID != playerID {
		return nil, nil, ErrNotHost
	}
	if r.Status != StatusWaiting {
		return nil, nil, ErrRoomNotWaiting
	}
	if len(r.Players) < MinPlayers {
		return nil, nil, ErrNotEnoughPlayers
	}
	st, err := m.start(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	return r, st, nil
}

// start initialises the game first so a failed init leaves the room WAITING.
func (m *Manager) start(ctx context.Context, r *Room) (*game.State, error) {
	seats := make([]game.Seat, 0, len(r.Players))
	for _, id := range r.Players {
		seats = append(seats, game.Seat{PlayerID: id, PlayerName: r.Name(id)})
	}
	st, err := m.games.InitializeGame(ctx, r.Code, seats)
	if err != nil {
		return nil, err
	}
	r.Status = StatusPlaying
	if err := m.save(ctx, r); err != nil {
		return nil, err
	}
	log.Info().Str("room_code", r.Code).Int("players", len(seats)).Msg("game_started")
	return st, nil
}

func (m *Manager) AddSpectator(ctx context.Context, code, playerID, playerName string) (*Room, bool, error) {
	unlock := m.locks.Lock(store.RoomKey(code))
	defer unlock()

	r, err := m.load(ctx, code)
	if err != nil {
		return nil, false, err
	}
	if r.HasPlayer(playerID) {
		return nil, false, ErrAlreadyPlayer
	}
	if r.HasSpectator(playerID) {
		return r, false, nil
	}
	r.Spectators = append(r.Spectators, playerID)
	if r.Names == nil {
		r.Names = map[string]string{}
	}
	r.Names[playerID] = playerName
	if err := m.save(ctx, r); err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func (m *Manager) RemoveSpectator(ctx context.Context, code, playerID string) (*Room, bool, error) {
	unlock := m.locks.Lock(store.RoomKey(code))
	defer unlock()

	r, err := m.load(ctx, code)
	if err != nil {
		return nil, false, err
	}
	if !r.removeSpectator(playerID) {
		return r, false, nil
	}
	if err := m.save(ctx, r); err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// MarkFinished flags the room once its game has ended.
func (m *Manager) MarkFinished(ctx context.Context, code string) (*Room, error) {
	unlock := m.locks.Lock(store.RoomKey(code))
	defer unlock()

	r, err := m.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusFinished {
		return r, nil
	}
	r.Status = StatusFinished
	if err := m.save(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CleanupAbandonedRooms deletes rooms that never left WAITING within maxAge
// and returns their codes.
func (m *Manager) CleanupAbandonedRooms(ctx context.Context, maxAge time.Duration) ([]string, error) {
	keys, err := m.store.Keys(ctx, store.RoomPrefix)
	if err != nil {
		return nil, apperr.FromStore(err)
	}
	cutoff := m.now().UTC().Add(-maxAge)
	removed := make([]string, 0)
	for _, key := range keys {
		code := key[len(store.RoomPrefix):]
		ok, err := m.cleanupOne(ctx, code, cutoff)
		if err != nil {
			log.Warn().Err(err).Str("room_code", code).Msg("room cleanup failed")
			continue
		}
		if ok {
			removed = append(removed, code)
		}
	}
	if len(removed) > 0 {
		log.Info().Int("rooms", len(removed)).Msg("abandoned rooms removed")
	}
	return removed, nil
}

func (m *Manager) cleanupOne(ctx context.Context, code string, cutoff time.Time) (bool, error) {
	unlock := m.locks.Lock(store.RoomKey(code))
	defer unlock()

	r, err := m.load(ctx, code)
	if errors.Is(err, ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if r.Status != StatusWaiting || !r.CreatedAt.Before(cutoff) {
		return false, nil
	}
	if err := apperr.FromStore(m.store.Delete(ctx, store.RoomKey(code))); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) load(ctx context.Context, code string) (*Room, error) {
	var r Room
	if err := store.GetJSON(ctx, m.store, store.RoomKey(code), &r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, apperr.FromStore(err)
	}
	if r.Spectators == nil {
		r.Spectators = []string{}
	}
	return &r, nil
}

func (m *Manager) save(ctx context.Context, r *Room) error {
	r.UpdatedAt = m.now().UTC()
	return apperr.FromStore(store.SetJSON(ctx, m.store, store.RoomKey(r.Code), r, m.ttl))
}
