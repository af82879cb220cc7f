// Command ingestor normalizes CSV review exports offline and prints one JSON
// audit report per source.
//
//	ingestor reviews.csv https://example.com/export.csv demo
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_pulse/internal/adapters/csvsource"
	"review_pulse/internal/adapters/fetch"
	"review_pulse/internal/adapters/observability"
	redisad "review_pulse/internal/adapters/redis"
	"review_pulse/internal/app"
	"review_pulse/internal/domain"
	"review_pulse/internal/shared"
	"review_pulse/internal/storage/memory"
)

type result struct {
	Source string              `json:"source"`
	Ingest *app.IngestResult   `json:"ingest,omitempty"`
	Report *domain.AuditReport `json:"report,omitempty"`
	Error  string              `json:"error,omitempty"`
}

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// logs go to stderr so stdout stays machine-readable
	log.Logger = observability.NewLoggerTo(os.Stderr, cfg.AppEnv, cfg.LogLevel)

	sources := os.Args[1:]
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingestor <file.csv|url|demo>...")
		os.Exit(2)
	}

	log.Info().
		Int("workers", cfg.Workers).
		Int("sources", len(sources)).
		Msg("ingestor starting")

	var fetchOpts []fetch.Option
	if cfg.FetchPrivate {
		fetchOpts = append(fetchOpts, fetch.AllowPrivateNetworks())
	}
	client := fetch.New(cfg.FetchRPS, cfg.MaxUploadBytes(), fetchOpts...)
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	results := make([]result, len(sources))

	for i, src := range sources {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			defer sem.Release(1)

			results[i] = run(ctx, client, src, cfg.MaxUploadBytes())
			if results[i].Error != "" {
				log.Warn().Str("source", src).Str("error", results[i].Error).Msg("ingest failed")
				return
			}
			log.Info().Str("source", src).Int("reviews", results[i].Ingest.Reviews).Msg("ingest ok")
		}(i, src)
	}

	wg.Wait()

	enc := json.NewEncoder(os.Stdout)
	failed := false
	for _, r := range results {
		if r.Error != "" {
			failed = true
		}
		if err := enc.Encode(r); err != nil {
			log.Fatal().Err(err).Msg("write report failed")
		}
	}
	log.Info().Msg("ingestion completed")
	if failed {
		os.Exit(1)
	}
}

// run loads one source into its own session store and reports on it.
func run(ctx context.Context, client *fetch.Client, src string, maxBytes int64) result {
	rows, err := load(ctx, client, src, maxBytes)
	if err != nil {
		return result{Source: src, Error: err.Error()}
	}

	store := memory.New()
	ing := app.NewIngestionService(store, nil, app.NewNormalizer(), observability.Ingest{})
	res, err := ing.Ingest(ctx, src, rows)
	if err != nil {
		return result{Source: src, Error: err.Error()}
	}
	rep, err := app.NewQueryService(store, redisad.Nop{}, 0).Audit(ctx, "")
	if err != nil {
		return result{Source: src, Error: err.Error()}
	}
	return result{Source: src, Ingest: &res, Report: &rep}
}

func load(ctx context.Context, client *fetch.Client, src string, maxBytes int64) ([]domain.RawRow, error) {
	switch {
	case src == "demo":
		return csvsource.Demo()
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		doc, err := client.Get(ctx, src)
		if err != nil {
			return nil, err
		}
		return csvsource.Parse(bytes.NewReader(doc.Body))
	default:
		if !csvsource.LooksLikeCSV(src, "") {
			return nil, domain.ErrNotCSV
		}
		f, err := os.Open(src)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return csvsource.Parse(io.LimitReader(f, maxBytes))
	}
}
