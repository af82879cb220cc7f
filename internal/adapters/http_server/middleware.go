package httpserver

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"review_pulse/internal/adapters/observability"
)

// Timeout answers 503 once a handler runs past d.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

// routeOf is the matched chi pattern, so /v1/analytics/categories/{name} is
// one series. Unmatched requests fall back to the raw path.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func statusOf(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

// Metrics records request count and latency per route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		observability.ObserveHTTP(routeOf(r), r.Method, statusOf(ww), time.Since(start))
	})
}

// Logger writes one access line per request.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route, status := routeOf(r), statusOf(ww)
			accessEvent(l, route, status).
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("route", route).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote", clientIP(r)).
				Msg("http_request")
		})
	}
}

// accessEvent: 5xx error, 4xx warn, health checks and scrapes debug, the rest info.
func accessEvent(l zerolog.Logger, route string, status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return l.Error()
	case status >= http.StatusBadRequest:
		return l.Warn()
	case route == "/healthz", strings.HasPrefix(route, "/metrics"):
		return l.Debug()
	}
	return l.Info()
}

// clientIP reads RemoteAddr only; chimw.RealIP has already folded
// X-Forwarded-For and X-Real-IP into it.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
