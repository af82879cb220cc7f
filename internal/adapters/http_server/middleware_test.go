package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accessLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLogger_RoutePatternLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.InfoLevel)

	m := chi.NewRouter()
	m.Use(chimw.RealIP, chimw.RequestID, Logger(l))
	m.Get("/v1/analytics/categories/{name}", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	m.Get("/boom", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) })
	m.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/v1/analytics/categories/Value", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	m.ServeHTTP(httptest.NewRecorder(), req)
	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	lines := accessLines(t, &buf)
	require.Len(t, lines, 3, "health checks log at debug")

	ok := lines[0]
	assert.Equal(t, "info", ok["level"])
	assert.Equal(t, "/v1/analytics/categories/{name}", ok["route"])
	assert.Equal(t, float64(200), ok["status"])
	assert.Equal(t, float64(2), ok["bytes"])
	assert.Equal(t, "203.0.113.9", ok["remote"])
	assert.NotEmpty(t, ok["request_id"])

	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, float64(502), lines[1]["status"])

	assert.Equal(t, "warn", lines[2]["level"])
	assert.Equal(t, float64(404), lines[2]["status"])
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.4:5123"
	assert.Equal(t, "198.51.100.4", clientIP(r))
	r.RemoteAddr = "198.51.100.4"
	assert.Equal(t, "198.51.100.4", clientIP(r))
}
