package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"review_pulse/internal/domain"
)

const namespace = "reviews"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del|error
	)
	IngestRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ingest_rows_total", Help: "Raw rows seen by the normalizer."},
		[]string{"outcome"}, // mapped|dropped
	)
	IngestedReviews = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ingested_reviews_total", Help: "Normalized reviews by sentiment."},
		[]string{"sentiment"},
	)
	IngestBatches = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "ingest_batches_total", Help: "Datasets loaded."},
	)
)

// NewMetricsServer serves reg on addr at /metrics.
func NewMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve exposes reg on a dedicated listener in the background. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	srv := NewMetricsServer(addr, reg)
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// InitRegistry builds the registry served on /metrics: the app's collectors
// plus Go runtime and process metrics.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		IngestRows, IngestedReviews, IngestBatches)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveExternal records one outbound call. status is the HTTP code or a
// LabelErr value when no response arrived.
func ObserveExternal(service, endpoint, status string, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, status).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// Ingest records batch counters. It satisfies domain.IngestObserver.
type Ingest struct{}

func (Ingest) ObserveIngest(_ string, rawRows, dropped int, reviews []domain.Review) {
	IngestBatches.Inc()
	IngestRows.WithLabelValues("mapped").Add(float64(rawRows - dropped))
	IngestRows.WithLabelValues("dropped").Add(float64(dropped))
	for _, r := range reviews {
		IngestedReviews.WithLabelValues(string(r.Sentiment)).Inc()
	}
}

// LabelErr maps a transport error to a low-cardinality label.
func LabelErr(err error) string {
	var (
		ne net.Error
		oe *net.OpError
	)
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &oe):
		return "net_" + oe.Op
	}
	return fmt.Sprintf("%T", err)
}
