// Package gateway is the intent boundary. It validates a client intent, runs
// it against the domain services and fans the resulting notifications out
// through the hub. Every transport (websocket, MCP) goes through Execute.
package gateway

import (
	"context"
	"errors"
	"time"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/game"
	"ludo-arena/internal/game/viewmodel"
	"ludo-arena/internal/matchmaking"
	"ludo-arena/internal/reconnect"
	"ludo-arena/internal/room"
	"ludo-arena/internal/validate"

	"github.com/rs/zerolog/log"
)

const backgroundTimeout = 5 * time.Second

var (
	ErrNotInRoom       = apperr.Unauthorized("not_in_room", "player is not in this room")
	ErrSpectatorAction = apperr.Unauthorized("spectator_action", "spectators cannot take game actions")
)

type Gateway struct {
	rooms    *room.Manager
	games    *game.Engine
	queue    *matchmaking.Queue
	sessions *reconnect.Coordinator
	hub      *Hub
}

func New(rooms *room.Manager, games *game.Engine, queue *matchmaking.Queue, sessions *reconnect.Coordinator, hub *Hub) *Gateway {
	g := &Gateway{rooms: rooms, games: games, queue: queue, sessions: sessions, hub: hub}
	sessions.OnRemoved(g.handleRemoval)
	return g
}

func (g *Gateway) Hub() *Hub {
	return g.hub
}

type LeaveReply struct {
	Left      bool   `json:"left"`
	Deleted   bool   `json:"deleted"`
	NewHostID string `json:"newHostId,omitempty"`
}

type SpectateReply struct {
	Room *room.Room                 `json:"room"`
	Game *viewmodel.PublicStateView `json:"game,omitempty"`
}

type SpectatorReply struct {
	Removed bool `json:"removed"`
}

// Execute runs one intent on behalf of socketID and returns the reply for
// the caller. socketID is empty for callers without a live connection.
// Errors go back to the caller only; nothing is broadcast for a failed
// intent.
func (g *Gateway) Execute(ctx context.Context, socketID string, raw validate.Intent) (any, error) {
	metricIntentsTotal.Add(1)
	reply, err := g.execute(ctx, socketID, raw)
	if err != nil {
		metricIntentErrorsTotal.Add(1)
		ev := log.Debug()
		if apperr.IsRetryable(err) {
			ev = log.Warn()
		}
		ev.Err(err).Str("event", string(raw.Type)).Str("player_id", raw.PlayerID).Str("socket_id", socketID).Msg("intent rejected")
		return nil, err
	}
	return reply, nil
}

func (g *Gateway) execute(ctx context.Context, socketID string, raw validate.Intent) (any, error) {
	in, err := validate.Check(raw)
	if err != nil {
		return nil, err
	}
	if socketID != "" {
		if err := g.hub.Bind(socketID, in.PlayerID); err != nil {
			return nil, err
		}
	}
	switch in.Type {
	case validate.CreateRoom:
		return g.createRoom(ctx, socketID, in)
	case validate.JoinRoom:
		return g.joinRoom(ctx, socketID, in)
	case validate.LeaveRoom:
		return g.leaveRoom(ctx, socketID, in)
	case validate.StartGame:
		return g.startGame(ctx, in)
	case validate.SpectateGame:
		return g.spectate(ctx, socketID, in)
	case validate.LeaveSpectator:
		return g.leaveSpectator(ctx, socketID, in)
	case validate.RollDice:
		return g.rollDice(ctx, in)
	case validate.MoveToken:
		return g.moveToken(ctx, in)
	case validate.JoinMatchmaking:
		return g.joinMatchmaking(ctx, in)
	case validate.LeaveMatchmaking:
		return g.leaveMatchmaking(ctx, in)
	case validate.ReconnectPlayer:
		return g.reconnect(ctx, socketID, in)
	}
	return nil, validate.ErrUnknownIntent
}

func (g *Gateway) createRoom(ctx context.Context, socketID string, in validate.Intent) (*room.Room, error) {
	r, err := g.rooms.CreateRoom(ctx, in.PlayerID, in.PlayerName, *in.MaxPlayers)
	if err != nil {
		return nil, err
	}
	g.seat(ctx, socketID, in.PlayerID, in.PlayerName, r.Code)
	g.hub.Broadcast(r.Code, EventRoomCreated, RoomCreated{
		RoomCode:   r.Code,
		HostID:     r.HostID,
		MaxPlayers: r.MaxPlayers,
		Room:       r,
	})
	return r, nil
}

func (g *Gateway) joinRoom(ctx context.Context, socketID string, in validate.Intent) (*room.Room, error) {
	res, err := g.rooms.JoinRoom(ctx, in.RoomCode, in.PlayerID, in.PlayerName)
	if err != nil {
		return nil, err
	}
	g.seat(ctx, socketID, in.PlayerID, in.PlayerName, in.RoomCode)
	if !res.Joined {
		return res.Room, nil
	}
	g.hub.Broadcast(in.RoomCode, EventPlayerJoined, PlayerJoined{
		PlayerID:   in.PlayerID,
		PlayerName: in.PlayerName,
		Room:       res.Room,
	})
	switch {
	case res.Started:
		g.announceStart(in.RoomCode, res.Game)
	case res.ReadyToStart:
		g.hub.Broadcast(in.RoomCode, EventReadyToStart, ReadyToStart{
			RoomCode: in.RoomCode,
			HostID:   res.Room.HostID,
			Players:  res.Room.Players,
		})
	}
	return res.Room, nil
}

// seat records the player's session and subscribes their socket to the room.
// A member coming back on a new socket calls off their pending removal and is
// announced as reconnected. A session write failure only costs the player
// their reconnect window, so it is logged rather than failing an intent that
// already succeeded.
func (g *Gateway) seat(ctx context.Context, socketID, playerID, playerName, roomCode string) {
	if socketID != "" {
		g.hub.Enter(socketID, roomCode, false)
	}
	_, st, resumed, err := g.sessions.Resume(ctx, playerID, playerName, roomCode, socketID)
	if err != nil {
		log.Warn().Err(err).Str("player_id", playerID).Str("room_code", roomCode).Msg("session bind failed")
		return
	}
	if !resumed {
		return
	}
	g.hub.Broadcast(roomCode, EventPlayerReconnected, PlayerReconnected{PlayerID: playerID})
	if st != nil {
		g.hub.Broadcast(roomCode, EventGameStateUpdate, st)
	}
}

func (g *Gateway) leaveRoom(ctx context.Context, socketID string, in validate.Intent) (LeaveReply, error) {
	res, err := g.rooms.LeaveRoom(ctx, in.RoomCode, in.PlayerID)
	if err != nil {
		return LeaveReply{}, err
	}
	if !res.Left {
		return LeaveReply{}, ErrNotInRoom
	}
	if err := g.sessions.ClearSession(ctx, in.PlayerID); err != nil {
		log.Warn().Err(err).Str("player_id", in.PlayerID).Msg("session clear failed")
	}
	if socketID != "" {
		g.hub.Exit(socketID, in.RoomCode)
	}
	g.afterLeave(ctx, in.RoomCode, in.PlayerID, res)
	if res.Room.Status == room.StatusPlaying && !res.Deleted {
		rm, err := g.games.RemovePlayer(ctx, in.RoomCode, in.PlayerID)
		switch {
		case err == nil:
			g.afterRemoval(ctx, in.RoomCode, rm)
		case !errors.Is(err, game.ErrGameNotFound) && !errors.Is(err, game.ErrPlayerNotFound):
			log.Error().Err(err).Str("room_code", in.RoomCode).Str("player_id", in.PlayerID).Msg("game removal failed")
		}
	}
	return LeaveReply{Left: true, Deleted: res.Deleted, NewHostID: res.NewHost}, nil
}

// afterLeave announces a departure and tears the room down once it is empty.
func (g *Gateway) afterLeave(ctx context.Context, code, playerID string, res room.LeaveResult) {
	if res.Deleted {
		if err := g.games.DeleteGame(ctx, code); err != nil {
			log.Warn().Err(err).Str("room_code", code).Msg("game delete failed")
		}
		g.hub.Broadcast(code, EventPlayerLeft, PlayerLeft{PlayerID: playerID})
		g.hub.CloseRoom(code)
		return
	}
	g.hub.Broadcast(code, EventPlayerLeft, PlayerLeft{PlayerID: playerID, NewHostID: res.NewHost, Room: res.Room})
}

func (g *Gateway) afterRemoval(ctx context.Context, code string, rm game.RemoveResult) {
	if !rm.Removed || rm.State == nil {
		return
	}
	g.hub.Broadcast(code, EventGameStateUpdate, rm.State)
	if rm.Finished {
		g.finish(ctx, code, rm.State)
	}
}

func (g *Gateway) startGame(ctx context.Context, in validate.Intent) (*game.State, error) {
	_, st, err := g.rooms.StartGame(ctx, in.RoomCode, in.PlayerID)
	if err != nil {
		return nil, err
	}
	g.announceStart(in.RoomCode, st)
	return st, nil
}

func (g *Gateway) announceStart(code string, st *game.State) {
	if st == nil {
		return
	}
	g.hub.Broadcast(code, EventGameStarted, GameStarted{RoomCode: code, GameState: st})
	g.hub.Broadcast(code, EventGameStateUpdate, st)
}

func (g *Gateway) spectate(ctx context.Context, socketID string, in validate.Intent) (SpectateReply, error) {
	r, added, err := g.rooms.AddSpectator(ctx, in.RoomCode, in.PlayerID, in.PlayerName)
	if err != nil {
		return SpectateReply{}, err
	}
	if socketID != "" {
		g.hub.Enter(socketID, in.RoomCode, true)
	}
	if added {
		g.hub.Broadcast(in.RoomCode, EventSpectatorJoined, SpectatorChange{PlayerID: in.PlayerID, PlayerName: in.PlayerName})
	}
	reply := SpectateReply{Room: r}
	if r.Status != room.StatusWaiting {
		st, err := g.games.GetState(ctx, in.RoomCode)
		switch {
		case err == nil:
			view := viewmodel.BuildPublicState(st)
			reply.Game = &view
			if socketID != "" {
				g.hub.SendToSocket(socketID, EventGameStateUpdate, in.RoomCode, st)
			}
		case !errors.Is(err, game.ErrGameNotFound):
			return SpectateReply{}, err
		}
	}
	return reply, nil
}

func (g *Gateway) leaveSpectator(ctx context.Context, socketID string, in validate.Intent) (SpectatorReply, error) {
	_, removed, err := g.rooms.RemoveSpectator(ctx, in.RoomCode, in.PlayerID)
	if err != nil {
		return SpectatorReply{}, err
	}
	if socketID != "" {
		g.hub.Exit(socketID, in.RoomCode)
	}
	if removed {
		g.hub.Broadcast(in.RoomCode, EventSpectatorLeft, SpectatorChange{PlayerID: in.PlayerID})
	}
	return SpectatorReply{Removed: removed}, nil
}

// checkSeated rejects spectators before they reach the engine. A room that
// has already expired defers to the engine, which owns the longer-lived game.
func (g *Gateway) checkSeated(ctx context.Context, code, playerID string) error {
	r, err := g.rooms.GetRoom(ctx, code)
	if errors.Is(err, room.ErrRoomNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if r.HasSpectator(playerID) {
		return ErrSpectatorAction
	}
	if !r.HasPlayer(playerID) {
		return ErrNotInRoom
	}
	return nil
}

func (g *Gateway) rollDice(ctx context.Context, in validate.Intent) (game.RollResult, error) {
	if err := g.checkSeated(ctx, in.RoomCode, in.PlayerID); err != nil {
		return game.RollResult{}, err
	}
	res, err := g.games.RollDice(ctx, in.RoomCode, in.PlayerID)
	if err != nil {
		return game.RollResult{}, err
	}
	g.hub.Broadcast(in.RoomCode, EventDiceRolled, DiceRolled{
		PlayerID:  res.PlayerID,
		DiceValue: res.DiceValue,
		SkipTurn:  res.SkipTurn,
		ExtraRoll: res.ExtraRoll,
	})
	g.hub.Broadcast(in.RoomCode, EventGameStateUpdate, res.State)
	return res, nil
}

func (g *Gateway) moveToken(ctx context.Context, in validate.Intent) (game.MoveResult, error) {
	if err := g.checkSeated(ctx, in.RoomCode, in.PlayerID); err != nil {
		return game.MoveResult{}, err
	}
	res, err := g.games.MoveToken(ctx, in.RoomCode, in.PlayerID, in.TokenID, in.TargetPositionID)
	if err != nil {
		return game.MoveResult{}, err
	}
	g.hub.Broadcast(in.RoomCode, EventTokenMoved, tokenMoved(res))
	g.hub.Broadcast(in.RoomCode, EventGameStateUpdate, res.State)
	if res.Finished {
		g.finish(ctx, in.RoomCode, res.State)
	}
	return res, nil
}

func (g *Gateway) finish(ctx context.Context, code string, st *game.State) {
	if _, err := g.rooms.MarkFinished(ctx, code); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		log.Error().Err(err).Str("room_code", code).Msg("mark finished failed")
	}
	g.hub.Broadcast(code, EventGameFinished, GameFinished{RoomCode: code, Rankings: st.Rankings})
	g.hub.Retire(code, time.Now())
	log.Info().Str("room_code", code).Int("ranked", len(st.Rankings)).Msg("game_finished")
}

func (g *Gateway) joinMatchmaking(ctx context.Context, in validate.Intent) (MatchmakingUpdate, error) {
	res, err := g.queue.AddToQueue(ctx, in.PlayerID, in.PlayerName, *in.PreferredPlayers)
	if err != nil {
		return MatchmakingUpdate{}, err
	}
	update := MatchmakingUpdate{QueueSize: res.QueueSize, Queued: res.Queued}
	g.hub.SendToPlayer(in.PlayerID, EventMatchmakingUpdate, "", update)
	return update, nil
}

func (g *Gateway) leaveMatchmaking(ctx context.Context, in validate.Intent) (MatchmakingUpdate, error) {
	if _, err := g.queue.RemoveFromQueue(ctx, in.PlayerID); err != nil {
		return MatchmakingUpdate{}, err
	}
	size, err := g.queue.QueueSize(ctx)
	if err != nil {
		return MatchmakingUpdate{}, err
	}
	update := MatchmakingUpdate{QueueSize: size}
	g.hub.SendToPlayer(in.PlayerID, EventMatchmakingUpdate, "", update)
	return update, nil
}

func (g *Gateway) reconnect(ctx context.Context, socketID string, in validate.Intent) (viewmodel.PlayerStateView, error) {
	_, st, err := g.sessions.Reconnect(ctx, in.PlayerID, in.RoomCode, socketID)
	if err != nil {
		return viewmodel.PlayerStateView{}, err
	}
	if socketID != "" {
		g.hub.Enter(socketID, in.RoomCode, false)
	}
	g.hub.Broadcast(in.RoomCode, EventPlayerReconnected, PlayerReconnected{PlayerID: in.PlayerID})
	if st == nil {
		return viewmodel.PlayerStateView{}, nil
	}
	if socketID != "" {
		g.hub.SendToSocket(socketID, EventGameStateUpdate, in.RoomCode, st)
	}
	return viewmodel.BuildPlayerState(st, in.PlayerID), nil
}

// ErrorFor renders err as the caller-facing error notification.
func ErrorFor(err error) ErrorPayload {
	return ErrorPayload{
		Message:   apperr.Message(err),
		Code:      apperr.CodeOf(err),
		Retryable: apperr.IsRetryable(err),
	}
}
