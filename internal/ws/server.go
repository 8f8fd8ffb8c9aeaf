// Package ws is the realtime transport. Each connection reads intent frames,
// hands them to the gateway and writes back replies plus whatever the hub
// fans out to it.
package ws

import (
	"context"
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/gateway"
	"ludo-arena/internal/gateway/stream"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	metricWSConnectionsTotal  = expvar.NewInt("ws_connections_total")
	metricWSConnectionsActive = expvar.NewInt("ws_connections_active")
	metricWSDroppedFrames     = expvar.NewInt("ws_dropped_frames_total")
)

var (
	ErrMalformedFrame   = apperr.Validation("malformed_frame", "frame is not a JSON intent")
	ErrInvalidRequestID = apperr.Validation("invalid_request_id", "requestId is too long")
)

const (
	sendBuffer     = 64
	maxMessageSize = 8 << 10
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	intentTimeout  = 10 * time.Second
)

type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	once sync.Once
	done chan struct{}
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues an event without blocking. Frames to a closed or saturated
// client are dropped.
func (c *Client) Send(ev stream.Event) bool {
	return c.write(fromEvent(ev))
}

func (c *Client) write(env Envelope) bool {
	msg, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("socket_id", c.id).Str("event", env.Type).Msg("encode frame failed")
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		metricWSDroppedFrames.Add(1)
		log.Warn().Str("socket_id", c.id).Str("event", env.Type).Msg("send buffer full, frame dropped")
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

type Server struct {
	gw       *gateway.Gateway
	upgrader websocket.Upgrader
}

func NewServer(gw *gateway.Gateway) *Server {
	return &Server{
		gw:       gw,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	s.gw.Hub().Register(c)
	metricWSConnectionsTotal.Add(1)
	metricWSConnectionsActive.Add(1)
	log.Debug().Str("socket_id", c.id).Str("remote", r.RemoteAddr).Msg("ws connected")

	go c.writeLoop()
	s.readLoop(r.Context(), c)
}

func (s *Server) readLoop(ctx context.Context, c *Client) {
	defer func() {
		c.close()
		_ = c.conn.Close()
		s.gw.Disconnect(c.id)
		metricWSConnectionsActive.Add(-1)
		log.Debug().Str("socket_id", c.id).Msg("ws disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleMessage(ctx, c, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, c *Client, msg []byte) {
	var in IntentMessage
	if err := json.Unmarshal(msg, &in); err != nil {
		c.write(errorEnvelope("", ErrMalformedFrame))
		return
	}
	if len(in.RequestID) > maxRequestIDLen {
		c.write(errorEnvelope(in.RequestID, ErrInvalidRequestID))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, intentTimeout)
	defer cancel()
	reply, err := s.gw.Execute(ctx, c.id, in.Intent)
	if err != nil {
		c.write(errorEnvelope(in.RequestID, err))
		return
	}
	c.write(resultEnvelope(in.RequestID, in.Type, reply))
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				_ = c.conn.Close()
				return
			}
		}
	}
}
