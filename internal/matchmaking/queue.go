package matchmaking

import (
	"context"
	"errors"
	"sync"
	"time"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/game"
	"ludo-arena/internal/room"
	"ludo-arena/internal/store"

	"github.com/rs/zerolog/log"
)

const DefaultPreferredPlayers = 4

// groupSizes is tried largest first.
var groupSizes = []int{4, 3, 2}

var ErrInvalidPreferred = apperr.Validation("invalid_preferred_players", "preferredPlayers must be 2, 3 or 4")

type Entry struct {
	PlayerID         string    `json:"playerId"`
	PlayerName       string    `json:"playerName"`
	PreferredPlayers int       `json:"preferredPlayers"`
	Timestamp        time.Time `json:"timestamp"`
}

// RoomCreator is the slice of the room manager a match needs. LeaveRoom
// unwinds a room whose seating failed part way.
type RoomCreator interface {
	CreateRoom(ctx context.Context, hostID, hostName string, maxPlayers int) (*room.Room, error)
	JoinRoom(ctx context.Context, code, playerID, playerName string) (room.JoinResult, error)
	LeaveRoom(ctx context.Context, code, playerID string) (room.LeaveResult, error)
}

type Match struct {
	RoomCode string
	Players  []Entry
	Room     *room.Room
	Game     *game.State
}

func (m Match) PlayerIDs() []string {
	out := make([]string, 0, len(m.Players))
	for _, p := range m.Players {
		out = append(out, p.PlayerID)
	}
	return out
}

type AddResult struct {
	Queued    bool
	QueueSize int64
}

type Queue struct {
	store store.Store
	rooms RoomCreator
	now   func() time.Time

	mu sync.Mutex
}

func NewQueue(st store.Store, rooms RoomCreator) *Queue {
	return &Queue{store: st, rooms: rooms, now: time.Now}
}

// AddToQueue enqueues a player. A repeat enqueue is reported with
// Queued=false and leaves the original position untouched.
func (q *Queue) AddToQueue(ctx context.Context, playerID, playerName string, preferred int) (AddResult, error) {
	if preferred == 0 {
		preferred = DefaultPreferredPlayers
	}
	if preferred < room.MinPlayers || preferred > room.MaxPlayers {
		return AddResult{}, ErrInvalidPreferred
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now().UTC()
	entry := Entry{PlayerID: playerID, PlayerName: playerName, PreferredPlayers: preferred, Timestamp: now}
	ok, err := store.SetJSONNX(ctx, q.store, store.MatchmakingEntryKey(playerID), entry, 0)
	if err != nil {
		return AddResult{}, apperr.FromStore(err)
	}
	if !ok {
		log.Warn().Str("player_id", playerID).Msg("player already queued")
		size, err := q.size(ctx)
		return AddResult{QueueSize: size}, err
	}
	if err := q.store.ZAdd(ctx, store.MatchmakingQueueKey, float64(now.UnixMicro()), playerID); err != nil {
		_ = q.store.Delete(ctx, store.MatchmakingEntryKey(playerID))
		return AddResult{}, apperr.FromStore(err)
	}
	size, err := q.size(ctx)
	if err != nil {
		return AddResult{}, err
	}
	log.Info().Str("player_id", playerID).Int("preferred_players", preferred).Int64("queue_size", size).Msg("player_queued")
	return AddResult{Queued: true, QueueSize: size}, nil
}

func (q *Queue) RemoveFromQueue(ctx context.Context, playerID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, err := q.store.Get(ctx, store.MatchmakingEntryKey(playerID)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, apperr.FromStore(err)
	}
	if err := q.dequeue(ctx, playerID); err != nil {
		return false, err
	}
	return true, nil
}

func (q *Queue) QueueSize(ctx context.Context) (int64, error) {
	return q.size(ctx)
}

// Entries returns the queue oldest first. Members whose entry vanished are
// pruned on the way.
func (q *Queue) Entries(ctx context.Context) ([]Entry, error) {
	members, err := q.store.ZRange(ctx, store.MatchmakingQueueKey)
	if err != nil {
		return nil, apperr.FromStore(err)
	}
	out := make([]Entry, 0, len(members))
	var stale []string
	for _, id := range members {
		var e Entry
		if err := store.GetJSON(ctx, q.store, store.MatchmakingEntryKey(id), &e); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				stale = append(stale, id)
				continue
			}
			return nil, apperr.FromStore(err)
		}
		out = append(out, e)
	}
	if len(stale) > 0 {
		_ = q.store.ZRem(ctx, store.MatchmakingQueueKey, stale...)
	}
	return out, nil
}

// FindMatch forms at most one group. A group of N needs N players whose
// preference is exactly N; oldest players win ties. It returns nil when no
// group can be formed.
func (q *Queue) FindMatch(ctx context.Context) (*Match, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.Entries(ctx)
	if err != nil {
		return nil, err
	}
	group := pickGroup(entries)
	if group == nil {
		return nil, nil
	}

	host := group[0]
	r, err := q.rooms.CreateRoom(ctx, host.PlayerID, host.PlayerName, len(group))
	if err != nil {
		return nil, err
	}
	match := &Match{RoomCode: r.Code, Players: group, Room: r}
	for i, p := range group[1:] {
		res, err := q.rooms.JoinRoom(ctx, r.Code, p.PlayerID, p.PlayerName)
		if err != nil {
			log.Error().Err(err).Str("room_code", r.Code).Str("player_id", p.PlayerID).Msg("match join failed")
			q.unwind(ctx, r.Code, group[:i+1])
			return nil, err
		}
		match.Room = res.Room
		if res.Game != nil {
			match.Game = res.Game
		}
	}
	for _, p := range group {
		if err := q.dequeue(ctx, p.PlayerID); err != nil {
			return nil, err
		}
	}
	log.Info().Str("room_code", r.Code).Strs("players", match.PlayerIDs()).Msg("match_found")
	return match, nil
}

// unwind empties a half-built match room so it is deleted; everyone stays
// queued for the next pass.
func (q *Queue) unwind(ctx context.Context, code string, seated []Entry) {
	for i := len(seated) - 1; i >= 0; i-- {
		if _, err := q.rooms.LeaveRoom(ctx, code, seated[i].PlayerID); err != nil {
			log.Error().Err(err).Str("room_code", code).Str("player_id", seated[i].PlayerID).Msg("match unwind failed")
			return
		}
	}
}

func pickGroup(entries []Entry) []Entry {
	for _, size := range groupSizes {
		eligible := make([]Entry, 0, size)
		for _, e := range entries {
			if e.PreferredPlayers == size {
				eligible = append(eligible, e)
				if len(eligible) == size {
					return eligible
				}
			}
		}
	}
	return nil
}

func (q *Queue) dequeue(ctx context.Context, playerID string) error {
	if err := q.store.ZRem(ctx, store.MatchmakingQueueKey, playerID); err != nil {
		return apperr.FromStore(err)
	}
	return apperr.FromStore(q.store.Delete(ctx, store.MatchmakingEntryKey(playerID)))
}

func (q *Queue) size(ctx context.Context) (int64, error) {
	n, err := q.store.ZCard(ctx, store.MatchmakingQueueKey)
	return n, apperr.FromStore(err)
}
