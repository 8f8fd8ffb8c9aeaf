package httptransport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/gateway"
	"ludo-arena/internal/gateway/stream"

	"github.com/rs/zerolog/log"
)

var pingInterval = 15 * time.Second

// RoomEventsHandler streams a room's notifications as server-sent events.
// A Last-Event-ID header replays what the client missed from the room's
// buffer before switching to live delivery.
func RoomEventsHandler(gw *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := roomCodeParam(r)
		if _, err := gw.Room(r.Context(), code); err != nil {
			WriteAppError(w, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteAppError(w, apperr.Infra("streaming_unsupported", errors.New("response writer cannot flush")))
			return
		}
		buf := gw.Hub().Buffer(code)

		stream.SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)

		lastEventID := r.Header.Get("Last-Event-ID")
		if lastEventID == "" {
			lastEventID = r.URL.Query().Get("last_event_id")
		}
		var lastSent int64
		if lastEventID != "" {
			for _, ev := range buf.ReplayAfter(lastEventID) {
				if err := stream.WriteSSE(w, ev); err != nil {
					return
				}
				lastSent = eventSeq(ev.EventID)
			}
		}
		if err := stream.WriteSSE(w, stream.NewEvent("connected", code, map[string]any{"roomCode": code})); err != nil {
			return
		}
		flusher.Flush()
		log.Debug().Str("room_code", code).Str("last_event_id", lastEventID).Msg("room stream opened")

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				// The subscription opens before replay, so a live event may
				// repeat one already replayed.
				if eventSeq(ev.EventID) <= lastSent {
					continue
				}
				if err := stream.WriteSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if err := stream.WriteSSE(w, stream.NewEvent("ping", code, map[string]any{"ts": time.Now().UnixMilli()})); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func eventSeq(id string) int64 {
	n, _ := strconv.ParseInt(id, 10, 64)
	return n
}
