package httptransport

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"ludo-arena/internal/apperr"
	"ludo-arena/internal/logging"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

var errAdminKey = apperr.New(apperr.KindAuthorization, "admin_key_required", "missing or wrong admin key")

// APILogMiddleware writes one JSON access line per request through the
// process log sink. Room and player ids are lifted from the route and query
// so access lines join up with the zerolog game logs.
func APILogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs:      accessAttrs,
		},
	)
}

func accessAttrs(req *http.Request, _ string, _ int) []slog.Attr {
	ctx := req.Context()
	route := req.URL.Path
	attrs := []slog.Attr{
		slog.String("request_id", chimw.GetReqID(ctx)),
		slog.String("method", req.Method),
	}
	if rc := chi.RouteContext(ctx); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			route = p
		}
		if code := rc.URLParam("room_code"); code != "" {
			attrs = append(attrs, slog.String("room_code", strings.ToUpper(code)))
		}
	}
	if pid := req.URL.Query().Get("player_id"); pid != "" {
		attrs = append(attrs, slog.String("player_id", pid))
	}
	return append(attrs, slog.String("route", route))
}

// AuditMiddleware attaches up to maxBytes of each admin response to its
// access line. Event streams pass through untouched.
func AuditMiddleware(maxBytes int) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSSERequest(r) {
				next.ServeHTTP(w, r)
				return
			}
			cw := &captureWriter{ResponseWriter: w, max: maxBytes}
			next.ServeHTTP(cw, r)
			httplog.SetAttrs(r.Context(),
				slog.Bool("admin", true),
				slog.Any("response_body", decodeBody(cw.body.Bytes())),
				slog.Bool("response_body_truncated", cw.truncated),
			)
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	body      bytes.Buffer
	max       int
	truncated bool
}

func (c *captureWriter) Write(p []byte) (int, error) {
	room := c.max - c.body.Len()
	switch {
	case room <= 0:
		c.truncated = c.truncated || len(p) > 0
	case len(p) > room:
		c.body.Write(p[:room])
		c.truncated = true
	default:
		c.body.Write(p)
	}
	return c.ResponseWriter.Write(p)
}

func (c *captureWriter) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func decodeBody(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var out any
	if json.Unmarshal(b, &out) == nil {
		return out
	}
	return string(b)
}

// WriteAppError maps a domain error onto its status and the same
// {code, message, retryable} body the socket error notification carries.
func WriteAppError(w http.ResponseWriter, err error) {
	writeErrorBody(w, apperr.HTTPStatus(err), err)
}

func writeErrorBody(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":      apperr.CodeOf(err),
			"message":   apperr.Message(err),
			"retryable": apperr.IsRetryable(err),
		},
	})
}

// AdminAuthMiddleware guards operator routes. An empty key leaves them open,
// which is how local runs work.
func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" && !CheckAdminAuth(r, adminKey) {
				writeErrorBody(w, http.StatusUnauthorized, errAdminKey)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckAdminAuth accepts the key as X-Admin-Key or as a bearer token.
func CheckAdminAuth(r *http.Request, adminKey string) bool {
	got := r.Header.Get("X-Admin-Key")
	if got == "" {
		got, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(adminKey)) == 1
}

func isSSERequest(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream") ||
		strings.HasSuffix(r.URL.Path, "/events")
}
