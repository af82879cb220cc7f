package observability_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_pulse/internal/adapters/observability"
	"review_pulse/internal/domain"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample so counters are non-zero
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.Contains(t, string(body), "reviews_http_requests_total")
}

func TestIngestObserverCounts(t *testing.T) {
	reg := observability.InitRegistry()

	var obs domain.IngestObserver = observability.Ingest{}
	obs.ObserveIngest("test.csv", 3, 1, []domain.Review{
		{ID: "1", Sentiment: domain.Negative},
		{ID: "2", Sentiment: domain.Positive},
	})

	rr := httptest.NewRecorder()
	observability.MetricsHandler(reg).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	out := rr.Body.String()
	assert.Contains(t, out, `reviews_ingest_rows_total{outcome="dropped"}`)
	assert.Contains(t, out, `reviews_ingested_reviews_total{sentiment="negative"}`)
	assert.Contains(t, out, "reviews_ingest_batches_total")
}

func TestMetricsServerServesAppRegistry(t *testing.T) {
	reg := observability.InitRegistry()
	observability.ObserveHTTP("/v1/reviews", "GET", 200, time.Millisecond)

	srv := observability.NewMetricsServer(":0", reg)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	out := rr.Body.String()
	assert.Contains(t, out, "reviews_http_requests_total")
	assert.Contains(t, out, "go_goroutines")
}

func TestLabelErr(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{fmt.Errorf("get: %w", context.DeadlineExceeded), "timeout"},
		{context.Canceled, "canceled"},
		{&url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}}, "net_dial"},
		{domain.ErrNotFound, "*errors.errorString"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, observability.LabelErr(tc.err), "%v", tc.err)
	}
}
