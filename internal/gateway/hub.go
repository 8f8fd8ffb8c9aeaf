package gateway

import (
	"sort"
	"sync"
	"time"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/gateway/stream"
)

var ErrIdentityMismatch = apperr.Unauthorized("identity_mismatch", "connection already speaks for another player")

// Sink is one live connection. Send must not block; a full sink drops.
type Sink interface {
	ID() string
	Send(ev stream.Event) bool
}

// Binding is what the hub knows about a connection. Current is false once a
// newer connection has taken over the player.
type Binding struct {
	SocketID  string
	PlayerID  string
	RoomCode  string
	Spectator bool
	Current   bool
}

type conn struct {
	sink      Sink
	playerID  string
	roomCode  string
	spectator bool
}

// Hub routes notifications to connections. It owns the per-room event
// buffers so that live sockets and SSE readers see one ordering.
type Hub struct {
	mu         sync.Mutex
	conns      map[string]*conn
	players    map[string]string
	rooms      map[string]map[string]struct{}
	buffers    map[string]*stream.Buffer
	retired    map[string]time.Time
	bufferSize int
	observers  []func(stream.Event)
}

func NewHub(bufferSize int) *Hub {
	return &Hub{
		conns:      map[string]*conn{},
		players:    map[string]string{},
		rooms:      map[string]map[string]struct{}{},
		buffers:    map[string]*stream.Buffer{},
		retired:    map[string]time.Time{},
		bufferSize: bufferSize,
	}
}

func (h *Hub) Register(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[s.ID()] = &conn{sink: s}
}

// Unregister forgets a connection and returns what it was bound to.
func (h *Hub) Unregister(socketID string) (Binding, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[socketID]
	if !ok {
		return Binding{}, false
	}
	b := h.binding(socketID, c)
	h.leaveLocked(socketID, c)
	delete(h.conns, socketID)
	if b.Current {
		delete(h.players, c.playerID)
	}
	return b, true
}

func (h *Hub) Binding(socketID string) (Binding, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[socketID]
	if !ok {
		return Binding{}, false
	}
	return h.binding(socketID, c), true
}

func (h *Hub) binding(socketID string, c *conn) Binding {
	return Binding{
		SocketID:  socketID,
		PlayerID:  c.playerID,
		RoomCode:  c.roomCode,
		Spectator: c.spectator,
		Current:   c.playerID != "" && h.players[c.playerID] == socketID,
	}
}

// Bind ties a connection to a player the first time it speaks. Later intents
// naming anyone else are refused. A player reconnecting on a fresh socket
// takes over from the old one, which stops receiving room traffic.
func (h *Hub) Bind(socketID, playerID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[socketID]
	if !ok {
		return nil
	}
	if c.playerID != "" && c.playerID != playerID {
		return ErrIdentityMismatch
	}
	c.playerID = playerID
	if prev, ok := h.players[playerID]; ok && prev != socketID {
		if old := h.conns[prev]; old != nil {
			h.leaveLocked(prev, old)
		}
	}
	h.players[playerID] = socketID
	return nil
}

func (h *Hub) SocketOf(playerID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.players[playerID]
}

// Enter subscribes a connection to a room, leaving any previous one.
func (h *Hub) Enter(socketID, roomCode string, spectator bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[socketID]
	if !ok {
		return
	}
	h.leaveLocked(socketID, c)
	c.roomCode = roomCode
	c.spectator = spectator
	set := h.rooms[roomCode]
	if set == nil {
		set = map[string]struct{}{}
		h.rooms[roomCode] = set
	}
	set[socketID] = struct{}{}
}

// EnterPlayer subscribes the player's current connection, if any.
func (h *Hub) EnterPlayer(playerID, roomCode string) {
	if id := h.SocketOf(playerID); id != "" {
		h.Enter(id, roomCode, false)
	}
}

// Exit unsubscribes a connection from roomCode only.
func (h *Hub) Exit(socketID, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[socketID]; ok && c.roomCode == roomCode {
		h.leaveLocked(socketID, c)
	}
}

func (h *Hub) ExitPlayer(playerID, roomCode string) {
	if id := h.SocketOf(playerID); id != "" {
		h.Exit(id, roomCode)
	}
}

func (h *Hub) leaveLocked(socketID string, c *conn) {
	if c.roomCode == "" {
		return
	}
	if set := h.rooms[c.roomCode]; set != nil {
		delete(set, socketID)
		if len(set) == 0 {
			delete(h.rooms, c.roomCode)
		}
	}
	c.roomCode = ""
	c.spectator = false
}

// Observe registers fn to see every room broadcast after fan-out. fn runs
// under the hub lock and must not block or call back into the hub.
func (h *Hub) Observe(fn func(stream.Event)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers = append(h.observers, fn)
}

// Broadcast logs an event in the room buffer and fans it out to every
// subscribed connection.
func (h *Hub) Broadcast(roomCode, typ string, data any) stream.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	ev := h.bufferLocked(roomCode).Append(typ, data)
	for id := range h.rooms[roomCode] {
		h.conns[id].sink.Send(ev)
	}
	for _, fn := range h.observers {
		fn(ev)
	}
	return ev
}

// SendToPlayer delivers a direct notification outside any room log.
func (h *Hub) SendToPlayer(playerID, typ, roomCode string, data any) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.players[playerID]
	if !ok {
		return false
	}
	return h.conns[id].sink.Send(stream.NewEvent(typ, roomCode, data))
}

func (h *Hub) SendToSocket(socketID, typ, roomCode string, data any) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[socketID]
	if !ok {
		return false
	}
	return c.sink.Send(stream.NewEvent(typ, roomCode, data))
}

// Buffer returns the room's event log, creating it on first use.
func (h *Hub) Buffer(roomCode string) *stream.Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bufferLocked(roomCode)
}

func (h *Hub) bufferLocked(roomCode string) *stream.Buffer {
	buf := h.buffers[roomCode]
	if buf == nil {
		buf = stream.NewBuffer(roomCode, h.bufferSize)
		h.buffers[roomCode] = buf
	}
	return buf
}

// CloseRoom drops the room's subscribers and ends its event log.
func (h *Hub) CloseRoom(roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.rooms[roomCode] {
		if c := h.conns[id]; c != nil {
			c.roomCode = ""
			c.spectator = false
		}
	}
	delete(h.rooms, roomCode)
	delete(h.retired, roomCode)
	if buf := h.buffers[roomCode]; buf != nil {
		buf.Close()
		delete(h.buffers, roomCode)
	}
}

// Retire marks a room whose game is over. Its log stays readable until the
// janitor closes it.
func (h *Hub) Retire(roomCode string, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.retired[roomCode]; !ok {
		h.retired[roomCode] = at
	}
}

// RetiredBefore lists rooms retired at or before cutoff.
func (h *Hub) RetiredBefore(cutoff time.Time) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for code, at := range h.retired {
		if !at.After(cutoff) {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

// BufferedRooms lists rooms currently holding an event log.
func (h *Hub) BufferedRooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.buffers))
	for code := range h.buffers {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) RoomSize(roomCode string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomCode])
}
