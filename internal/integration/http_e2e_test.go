//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"

	"review_pulse/internal/adapters/csvsource"
	httpserver "review_pulse/internal/adapters/http_server"
	"review_pulse/internal/adapters/observability"
	redisad "review_pulse/internal/adapters/redis"
	"review_pulse/internal/app"
	"review_pulse/internal/domain"
	"review_pulse/internal/storage/memory"
)

// startRedis runs an isolated Redis; Docker picks a free host port.
func startRedis(t *testing.T) string {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{Repository: "redis", Tag: "7-alpine"},
		func(hc *docker.HostConfig) {
			hc.AutoRemove = true
			hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
		})
	if err != nil {
		t.Fatalf("run redis: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	addr := "127.0.0.1:" + resource.GetPort("6379/tcp")
	if err := pool.Retry(func() error {
		c := redis.NewClient(&redis.Options{Addr: addr})
		defer c.Close()
		return c.Ping(context.Background()).Err()
	}); err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	return addr
}

func TestHTTP_UploadThenCachedAnalytics(t *testing.T) {
	addr := startRedis(t)

	cache := redisad.New(addr, "", 0)
	t.Cleanup(func() { _ = cache.Close() })
	store := memory.New()
	ing := app.NewIngestionService(store, cache, nil, observability.Ingest{})
	q := app.NewQueryService(store, cache, time.Minute)

	srv := httpserver.New(httpserver.Options{})
	srv.MountHandlers(&httpserver.Handlers{Q: q, Ing: ing})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)

	// upload the sample template
	resp, err := http.Post(ts.URL+"/v1/datasets?name=sample.csv", "text/csv", bytes.NewReader(csvsource.Sample()))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var res app.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || res.Reviews != 3 {
		t.Fatalf("unexpected upload result: %d %+v", resp.StatusCode, res)
	}

	// first read computes and fills the cache, second read is served from it
	for i := 0; i < 2; i++ {
		resp, err := http.Get(ts.URL + "/v1/analytics/sentiment")
		if err != nil {
			t.Fatalf("sentiment: %v", err)
		}
		var st domain.SentimentStats
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			t.Fatalf("decode sentiment: %v", err)
		}
		resp.Body.Close()
		if st.Total != 3 || st.Negative != 2 || st.Positive != 1 {
			t.Fatalf("unexpected stats on read %d: %+v", i, st)
		}
	}

	rc := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rc.Close() })
	key := "analytics:" + res.DatasetID + ":sentiment:all"
	n, err := rc.Exists(context.Background(), key).Result()
	if err != nil || n != 1 {
		t.Fatalf("expected cache entry %s: n=%d err=%v", key, n, err)
	}

	// a second upload evicts the first dataset's analytics
	resp, err = http.Post(ts.URL+"/v1/datasets/demo", "", nil)
	if err != nil {
		t.Fatalf("demo: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("demo load: %d", resp.StatusCode)
	}
	left, err := rc.Keys(context.Background(), "analytics:"+res.DatasetID+":*").Result()
	if err != nil || len(left) != 0 {
		t.Fatalf("expected no keys for old dataset, got %v err=%v", left, err)
	}
}
