package gateway

import (
	"context"
	"errors"
	"time"

	"ludo-arena/internal/game"
	"ludo-arena/internal/matchmaking"
	"ludo-arena/internal/reconnect"
	"ludo-arena/internal/room"

	"github.com/rs/zerolog/log"
)

// finishedRetention keeps a finished room's log around for late SSE readers.
var finishedRetention = 5 * time.Minute

// Disconnect handles a closed connection. Spectators leave at once; seated
// players get the reconnect grace period. A connection that was superseded
// by a newer one for the same player is simply forgotten.
func (g *Gateway) Disconnect(socketID string) {
	b, ok := g.hub.Unregister(socketID)
	if !ok || !b.Current {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	if removed, err := g.queue.RemoveFromQueue(ctx, b.PlayerID); err != nil {
		log.Warn().Err(err).Str("player_id", b.PlayerID).Msg("queue removal on disconnect failed")
	} else if removed {
		log.Info().Str("player_id", b.PlayerID).Msg("left matchmaking on disconnect")
	}
	if b.RoomCode == "" {
		return
	}
	if b.Spectator {
		if _, removed, err := g.rooms.RemoveSpectator(ctx, b.RoomCode, b.PlayerID); err != nil {
			log.Warn().Err(err).Str("room_code", b.RoomCode).Str("player_id", b.PlayerID).Msg("spectator removal failed")
		} else if removed {
			g.hub.Broadcast(b.RoomCode, EventSpectatorLeft, SpectatorChange{PlayerID: b.PlayerID})
		}
		return
	}

	r, err := g.rooms.GetRoom(ctx, b.RoomCode)
	if err == nil && r.Status == room.StatusFinished {
		return
	}
	if err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		log.Warn().Err(err).Str("room_code", b.RoomCode).Msg("room lookup on disconnect failed")
	}
	if err := g.sessions.Disconnect(ctx, b.PlayerID, b.RoomCode); err != nil {
		log.Error().Err(err).Str("room_code", b.RoomCode).Str("player_id", b.PlayerID).Msg("disconnect handling failed")
		return
	}
	g.hub.Broadcast(b.RoomCode, EventPlayerDisconnected, PlayerDisconnected{
		PlayerID:           b.PlayerID,
		GracePeriodSeconds: int(g.sessions.Grace() / time.Second),
	})
}

// handleRemoval runs when a grace period lapses. The game has already
// dropped the player; the room follows.
func (g *Gateway) handleRemoval(rem reconnect.Removal) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	metricPlayersRemovedTotal.Add(1)
	g.hub.Broadcast(rem.RoomCode, EventPlayerRemoved, PlayerRemoved{PlayerID: rem.PlayerID, Reason: rem.Reason})

	res, err := g.rooms.LeaveRoom(ctx, rem.RoomCode, rem.PlayerID)
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
	case err != nil:
		log.Error().Err(err).Str("room_code", rem.RoomCode).Str("player_id", rem.PlayerID).Msg("room removal failed")
	case res.Left:
		g.afterLeave(ctx, rem.RoomCode, rem.PlayerID, res)
		if res.Deleted {
			return
		}
	}
	g.afterRemoval(ctx, rem.RoomCode, rem.Result)
}

// OnMatch seats a freshly formed group. It is the matchmaking scheduler's
// callback.
func (g *Gateway) OnMatch(ctx context.Context, m matchmaking.Match) {
	metricMatchesTotal.Add(1)
	for _, p := range m.Players {
		g.hub.EnterPlayer(p.PlayerID, m.RoomCode)
		if _, err := g.sessions.BindSession(ctx, p.PlayerID, p.PlayerName, m.RoomCode, g.hub.SocketOf(p.PlayerID)); err != nil {
			log.Warn().Err(err).Str("player_id", p.PlayerID).Str("room_code", m.RoomCode).Msg("session bind failed")
		}
	}
	g.hub.Broadcast(m.RoomCode, EventMatchFound, MatchFound{RoomCode: m.RoomCode, Players: m.PlayerIDs()})
	g.announceStart(m.RoomCode, m.Game)
}

// Purger is implemented by stores that need expired rows swept.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// StartJanitor sweeps abandoned rooms every interval until ctx is
// cancelled. purger may be nil.
func (g *Gateway) StartJanitor(ctx context.Context, interval, maxAge time.Duration, purger Purger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.Sweep(ctx, maxAge, purger)
			}
		}
	}()
}

// Sweep runs one janitor pass and returns the codes of deleted rooms.
func (g *Gateway) Sweep(ctx context.Context, maxAge time.Duration, purger Purger) []string {
	codes, err := g.rooms.CleanupAbandonedRooms(ctx, maxAge)
	if err != nil {
		log.Warn().Err(err).Msg("room cleanup failed")
	}
	for _, code := range codes {
		g.hub.CloseRoom(code)
		if err := g.games.DeleteGame(ctx, code); err != nil {
			log.Warn().Err(err).Str("room_code", code).Msg("game delete failed")
		}
	}
	metricRoomsSweptTotal.Add(int64(len(codes)))
	g.releaseLogs(ctx)
	if purger != nil {
		if n, err := purger.PurgeExpired(ctx); err != nil {
			log.Warn().Err(err).Msg("store purge failed")
		} else if n > 0 {
			log.Info().Int64("rows", n).Msg("expired rows purged")
		}
	}
	return codes
}

// releaseLogs closes event logs of finished rooms past their retention and
// of rooms whose room and game have both expired from the store.
func (g *Gateway) releaseLogs(ctx context.Context) {
	released := 0
	for _, code := range g.hub.RetiredBefore(time.Now().Add(-finishedRetention)) {
		g.hub.CloseRoom(code)
		released++
	}
	for _, code := range g.hub.BufferedRooms() {
		if g.orphaned(ctx, code) {
			g.hub.CloseRoom(code)
			released++
		}
	}
	if released > 0 {
		metricLogsReleasedTotal.Add(int64(released))
		log.Debug().Int("rooms", released).Msg("room logs released")
	}
}

func (g *Gateway) orphaned(ctx context.Context, code string) bool {
	if _, err := g.rooms.GetRoom(ctx, code); !errors.Is(err, room.ErrRoomNotFound) {
		return false
	}
	_, err := g.games.GetState(ctx, code)
	return errors.Is(err, game.ErrGameNotFound)
}

// State is the read path shared by REST and MCP.
func (g *Gateway) State(ctx context.Context, roomCode string) (*game.State, error) {
	return g.games.GetState(ctx, roomCode)
}

func (g *Gateway) Room(ctx context.Context, roomCode string) (*room.Room, error) {
	return g.rooms.GetRoom(ctx, roomCode)
}

func (g *Gateway) QueueSize(ctx context.Context) (int64, error) {
	return g.queue.QueueSize(ctx)
}
