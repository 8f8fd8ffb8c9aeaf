package reconnect

import (
	"context"
	"errors"
	"sync"
	"time"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/game"
	"ludo-arena/internal/store"

	"github.com/rs/zerolog/log"
)

const (
	DefaultGrace      = 60 * time.Second
	DefaultSessionTTL = 2 * time.Hour
	expiryTimeout     = 5 * time.Second
	expiryRetryBase   = time.Second
	maxExpiryRetry    = 30 * time.Second

	ReasonGraceExpired = "disconnect_timeout"
)

var ErrNoActiveSession = apperr.NotFound("no_active_session", "no active session")

type Session struct {
	PlayerID     string    `json:"playerId"`
	PlayerName   string    `json:"playerName"`
	RoomCode     string    `json:"roomCode"`
	SocketID     string    `json:"socketId"`
	LastActivity time.Time `json:"lastActivity"`
}

// GameUpdater is the part of the game engine the coordinator drives.
type GameUpdater interface {
	SetConnectionStatus(ctx context.Context, roomCode, playerID string, status game.ConnectionStatus) (*game.State, error)
	RemovePlayer(ctx context.Context, roomCode, playerID string) (game.RemoveResult, error)
}

type Removal struct {
	PlayerID string
	RoomCode string
	Reason   string
	Result   game.RemoveResult
}

// slot serialises one player's disconnect timer against reconnects. gen is
// bumped by every Disconnect and Reconnect; a timer whose generation is stale
// does nothing.
type slot struct {
	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
	dead  bool
}

type Coordinator struct {
	store      store.Store
	games      GameUpdater
	grace      time.Duration
	sessionTTL time.Duration
	retryBase  time.Duration
	now        func() time.Time

	mu        sync.Mutex
	slots     map[string]*slot
	onRemoved func(Removal)
}

func NewCoordinator(st store.Store, games GameUpdater, grace, sessionTTL time.Duration) *Coordinator {
	if grace <= 0 {
		grace = DefaultGrace
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Coordinator{
		store:      st,
		games:      games,
		grace:      grace,
		sessionTTL: sessionTTL,
		retryBase:  expiryRetryBase,
		now:        time.Now,
		slots:      map[string]*slot{},
	}
}

// OnRemoved registers the callback run after a grace period lapses.
func (c *Coordinator) OnRemoved(fn func(Removal)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRemoved = fn
}

func (c *Coordinator) Grace() time.Duration {
	return c.grace
}

// BindSession records which socket currently speaks for playerID.
func (c *Coordinator) BindSession(ctx context.Context, playerID, playerName, roomCode, socketID string) (Session, error) {
	sess := Session{
		PlayerID:     playerID,
		PlayerName:   playerName,
		RoomCode:     roomCode,
		SocketID:     socketID,
		LastActivity: c.now().UTC(),
	}
	if err := store.SetJSON(ctx, c.store, store.SessionKey(playerID), sess, c.sessionTTL); err != nil {
		return Session{}, apperr.FromStore(err)
	}
	return sess, nil
}

func (c *Coordinator) GetSession(ctx context.Context, playerID string) (Session, error) {
	var sess Session
	if err := store.GetJSON(ctx, c.store, store.SessionKey(playerID), &sess); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrNoActiveSession
		}
		return Session{}, apperr.FromStore(err)
	}
	return sess, nil
}

// ClearSession cancels any pending timer and forgets the session, for
// players who leave on purpose.
func (c *Coordinator) ClearSession(ctx context.Context, playerID string) error {
	s := c.lockSlot(playerID)
	defer s.mu.Unlock()
	c.cancel(s)
	c.dropSlot(playerID, s)
	return apperr.FromStore(c.store.Delete(ctx, store.SessionKey(playerID)))
}

// Disconnect marks the player DISCONNECTED and (re)starts their grace timer.
func (c *Coordinator) Disconnect(ctx context.Context, playerID, roomCode string) error {
	s := c.lockSlot(playerID)
	defer s.mu.Unlock()

	if _, err := c.games.SetConnectionStatus(ctx, roomCode, playerID, game.StatusDisconnected); err != nil && !ignorable(err) {
		return err
	}
	c.cancel(s)
	gen := s.gen
	s.timer = time.AfterFunc(c.grace, func() { c.expire(s, gen, playerID, roomCode, 0) })
	log.Info().Str("player_id", playerID).Str("room_code", roomCode).Dur("grace", c.grace).Msg("player_disconnected")
	return nil
}

// Reconnect rebinds the player's session to socketID and cancels the grace
// timer. The stored session must belong to roomCode.
func (c *Coordinator) Reconnect(ctx context.Context, playerID, roomCode, socketID string) (Session, *game.State, error) {
	s := c.lockSlot(playerID)
	defer s.mu.Unlock()

	sess, err := c.GetSession(ctx, playerID)
	if err != nil {
		return Session{}, nil, err
	}
	if sess.RoomCode != roomCode {
		return Session{}, nil, ErrNoActiveSession
	}
	st, err := c.games.SetConnectionStatus(ctx, roomCode, playerID, game.StatusConnected)
	if err != nil && !ignorable(err) {
		return Session{}, nil, err
	}
	if errors.Is(err, game.ErrPlayerNotFound) {
		return Session{}, nil, ErrNoActiveSession
	}
	sess.SocketID = socketID
	sess.LastActivity = c.now().UTC()
	if err := store.SetJSON(ctx, c.store, store.SessionKey(playerID), sess, c.sessionTTL); err != nil {
		return Session{}, nil, apperr.FromStore(err)
	}
	c.cancel(s)
	c.dropSlot(playerID, s)
	log.Info().Str("player_id", playerID).Str("room_code", roomCode).Str("socket_id", socketID).Msg("player_reconnected")
	return sess, st, nil
}

// Resume binds playerID to socketID the way BindSession does and, when a
// grace timer is pending, cancels it and marks the player CONNECTED again.
// resumed reports whether a pending removal was called off. A player whose
// removal already landed gets ErrNoActiveSession.
func (c *Coordinator) Resume(ctx context.Context, playerID, playerName, roomCode, socketID string) (sess Session, st *game.State, resumed bool, err error) {
	s := c.lockSlot(playerID)
	defer s.mu.Unlock()

	if s.timer != nil {
		st, err = c.games.SetConnectionStatus(ctx, roomCode, playerID, game.StatusConnected)
		switch {
		case errors.Is(err, game.ErrPlayerNotFound):
			return Session{}, nil, false, ErrNoActiveSession
		case errors.Is(err, game.ErrGameNotFound):
			st = nil
		case err != nil:
			return Session{}, nil, false, err
		}
		resumed = true
	}
	sess, err = c.BindSession(ctx, playerID, playerName, roomCode, socketID)
	if err != nil {
		return Session{}, nil, false, err
	}
	c.cancel(s)
	c.dropSlot(playerID, s)
	if resumed {
		log.Info().Str("player_id", playerID).Str("room_code", roomCode).Str("socket_id", socketID).Msg("player_resumed")
	}
	return sess, st, resumed, nil
}

// Pending reports whether a grace timer is armed for playerID.
func (c *Coordinator) Pending(playerID string) bool {
	c.mu.Lock()
	s := c.slots[playerID]
	c.mu.Unlock()
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil && !s.dead
}

// Stop cancels every armed timer without removing anyone.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	slots := make([]*slot, 0, len(c.slots))
	for _, s := range c.slots {
		slots = append(slots, s)
	}
	c.mu.Unlock()
	for _, s := range slots {
		s.mu.Lock()
		c.cancel(s)
		s.mu.Unlock()
	}
}

func (c *Coordinator) expire(s *slot, gen uint64, playerID, roomCode string, attempt int) {
	s.mu.Lock()
	if s.gen != gen || s.dead {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), expiryTimeout)
	defer cancel()

	res, err := c.games.RemovePlayer(ctx, roomCode, playerID)
	if err != nil && !ignorable(err) {
		// The player stays seated and keeps their session until removal
		// lands; a reconnect in the meantime still cancels the retry.
		delay := min(c.retryBase<<min(attempt, 5), maxExpiryRetry)
		log.Error().Err(err).Str("player_id", playerID).Str("room_code", roomCode).Int("attempt", attempt+1).Dur("retry_in", delay).Msg("player removal failed")
		s.timer = time.AfterFunc(delay, func() { c.expire(s, gen, playerID, roomCode, attempt+1) })
		s.mu.Unlock()
		return
	}
	if err := c.store.Delete(ctx, store.SessionKey(playerID)); err != nil {
		log.Error().Err(err).Str("player_id", playerID).Msg("session delete on expiry failed")
	}
	s.timer = nil
	c.dropSlot(playerID, s)
	s.mu.Unlock()

	log.Info().Str("player_id", playerID).Str("room_code", roomCode).Msg("player_removed")
	c.mu.Lock()
	fn := c.onRemoved
	c.mu.Unlock()
	if fn != nil {
		fn(Removal{PlayerID: playerID, RoomCode: roomCode, Reason: ReasonGraceExpired, Result: res})
	}
}

// lockSlot returns playerID's slot locked, creating it when needed.
func (c *Coordinator) lockSlot(playerID string) *slot {
	for {
		c.mu.Lock()
		s := c.slots[playerID]
		if s == nil {
			s = &slot{}
			c.slots[playerID] = s
		}
		c.mu.Unlock()

		s.mu.Lock()
		if !s.dead {
			return s
		}
		s.mu.Unlock()
	}
}

// dropSlot retires s; the caller holds s.mu.
func (c *Coordinator) dropSlot(playerID string, s *slot) {
	s.dead = true
	c.mu.Lock()
	if c.slots[playerID] == s {
		delete(c.slots, playerID)
	}
	c.mu.Unlock()
}

// cancel invalidates any armed timer; the caller holds s.mu.
func (c *Coordinator) cancel(s *slot) {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// ignorable covers players with no running game yet, or already gone from it.
func ignorable(err error) bool {
	return errors.Is(err, game.ErrGameNotFound) || errors.Is(err, game.ErrPlayerNotFound)
}
