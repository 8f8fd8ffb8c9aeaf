package httptransport

import (
	"net/http"
	"time"

	"ludo-arena/internal/gateway"
)

type AdminHandlers struct {
	gw     *gateway.Gateway
	store  Pinger
	purger gateway.Purger
	maxAge time.Duration
}

func NewAdminHandlers(gw *gateway.Gateway, st Pinger, purger gateway.Purger, maxAge time.Duration) *AdminHandlers {
	return &AdminHandlers{gw: gw, store: st, purger: purger, maxAge: maxAge}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.store == nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "store": "none"})
			return
		}
		if err := h.store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "store": "down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "store": "up"})
	}
}

// Sweep runs one janitor pass on demand.
func (h *AdminHandlers) Sweep() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricSweepRequestsTotal.Add(1)
		codes := h.gw.Sweep(r.Context(), h.maxAge, h.purger)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": codes})
	}
}

func (h *AdminHandlers) Connections() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"connections": h.gw.Hub().Connections()})
	}
}
