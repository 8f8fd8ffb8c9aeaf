// Package stream holds the room event log that fans notifications out to
// live sockets and SSE readers and replays them after a reconnect.
package stream

import (
	"strconv"
	"sync"
	"time"
)

const (
	DefaultBufferSize = 500
	subscriberBuffer  = 32
)

// Event is one server-to-client notification. EventID is empty for
// notifications that are addressed to a single participant and never
// enter a room log.
type Event struct {
	EventID  string `json:"eventId,omitempty"`
	Type     string `json:"type"`
	RoomCode string `json:"roomCode,omitempty"`
	ServerTS int64  `json:"serverTs"`
	Data     any    `json:"data"`
}

func NewEvent(typ, roomCode string, data any) Event {
	return Event{Type: typ, RoomCode: roomCode, ServerTS: time.Now().UnixMilli(), Data: data}
}

// Buffer is the bounded per-room event log. IDs increase monotonically for
// the life of the buffer; slow subscribers drop events rather than block
// the writer.
type Buffer struct {
	mu       sync.Mutex
	roomCode string
	nextID   int64
	max      int
	events   []Event
	watchers map[chan Event]struct{}
	closed   bool
}

func NewBuffer(roomCode string, max int) *Buffer {
	if max <= 0 {
		max = DefaultBufferSize
	}
	return &Buffer{
		roomCode: roomCode,
		max:      max,
		watchers: map[chan Event]struct{}{},
	}
}

func (b *Buffer) Append(typ string, data any) Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return Event{}
	}
	b.nextID++
	ev := NewEvent(typ, b.roomCode, data)
	ev.EventID = strconv.FormatInt(b.nextID, 10)
	b.events = append(b.events, ev)
	if len(b.events) > b.max {
		b.events = b.events[len(b.events)-b.max:]
	}
	for ch := range b.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// ReplayAfter returns events newer than lastEventID. An empty or unparsable
// ID replays everything still held.
func (b *Buffer) ReplayAfter(lastEventID string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	last, err := strconv.ParseInt(lastEventID, 10, 64)
	if lastEventID == "" || err != nil {
		last = 0
	}
	out := make([]Event, 0, len(b.events))
	for _, ev := range b.events {
		id, _ := strconv.ParseInt(ev.EventID, 10, 64)
		if id > last {
			out = append(out, ev)
		}
	}
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func (b *Buffer) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.watchers[ch] = struct{}{}
	return ch
}

func (b *Buffer) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watchers[ch]; ok {
		delete(b.watchers, ch)
		close(ch)
	}
}

func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.watchers {
		close(ch)
		delete(b.watchers, ch)
	}
}
