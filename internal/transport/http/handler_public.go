package httptransport

import (
	"encoding/json"
	"net/http"
	"strings"

	"ludo-arena/internal/game/viewmodel"
	"ludo-arena/internal/gateway"

	"github.com/go-chi/chi/v5"
)

type PublicHandlers struct {
	gw *gateway.Gateway
}

func NewPublicHandlers(gw *gateway.Gateway) *PublicHandlers {
	return &PublicHandlers{gw: gw}
}

func roomCodeParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "room_code")))
}

func (h *PublicHandlers) Room() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, err := h.gw.Room(r.Context(), roomCodeParam(r))
		if err != nil {
			WriteAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rm)
	}
}

// Game returns the public projection, or the seated player's view when
// player_id is given.
func (h *PublicHandlers) Game() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.gw.State(r.Context(), roomCodeParam(r))
		if err != nil {
			WriteAppError(w, err)
			return
		}
		if playerID := strings.TrimSpace(r.URL.Query().Get("player_id")); playerID != "" {
			writeJSON(w, http.StatusOK, viewmodel.BuildPlayerState(st, playerID))
			return
		}
		writeJSON(w, http.StatusOK, viewmodel.BuildPublicState(st))
	}
}

func (h *PublicHandlers) Matchmaking() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := h.gw.QueueSize(r.Context())
		if err != nil {
			WriteAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"queueSize": n})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
