package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"ludo-arena/internal/config"
	"ludo-arena/internal/gateway"
	"ludo-arena/internal/mcpserver"
	"ludo-arena/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Pinger reports backing store health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Gateway *gateway.Gateway
	Store   Pinger
	Purger  gateway.Purger
	Server  config.ServerConfig
	Game    config.GameConfig
}

func NewRouter(deps Deps) *chi.Mux {
	wsSrv := ws.NewServer(deps.Gateway)
	mcpSrv := mcpserver.New(deps.Gateway)

	publicHandlers := NewPublicHandlers(deps.Gateway)
	adminHandlers := NewAdminHandlers(deps.Gateway, deps.Store, deps.Purger, deps.Game.AbandonedRoomAge)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	r.Get("/ws", wsSrv.HandleWS)

	r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", mcpSrv.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/rooms/{room_code}", publicHandlers.Room())
		r.Get("/rooms/{room_code}/events", RoomEventsHandler(deps.Gateway))
		r.Get("/games/{room_code}", publicHandlers.Game())
		r.Get("/matchmaking", publicHandlers.Matchmaking())

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(deps.Server.AdminAPIKey))
			r.Use(AuditMiddleware(4096))
			r.Post("/admin/sweep", adminHandlers.Sweep())
			r.Get("/admin/connections", adminHandlers.Connections())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

// NewServer wraps the router with the timeouts the process serves under.
// WriteTimeout stays zero because SSE and websocket responses are long-lived.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
