package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"review_pulse/internal/adapters/csvsource"
	"review_pulse/internal/adapters/fetch"
	server "review_pulse/internal/adapters/http_server"
	"review_pulse/internal/adapters/observability"
	redisad "review_pulse/internal/adapters/redis"
	"review_pulse/internal/app"
	"review_pulse/internal/domain"
	"review_pulse/internal/shared"
	"review_pulse/internal/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// deps
	var cache domain.Cache = redisad.Nop{}
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; analytics cache disabled")
		} else {
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis connection ok")
			cache = rc
			defer rc.Close()
		}
		cancel()
	}
	store := memory.New()
	ing := app.NewIngestionService(store, cache, app.NewNormalizer(), observability.Ingest{})
	q := app.NewQueryService(store, cache, cfg.CacheTTL())

	if cfg.LoadDemoOnBoot {
		rows, err := csvsource.Demo()
		if err == nil {
			_, err = ing.Ingest(ctx, "demo", rows)
		}
		if err != nil {
			log.Error().Err(err).Msg("demo load failed")
		}
	}

	var fetchOpts []fetch.Option
	if cfg.FetchPrivate {
		log.Warn().Msg("FETCH_ALLOW_PRIVATE is set; URL imports may reach internal networks")
		fetchOpts = append(fetchOpts, fetch.AllowPrivateNetworks())
	}

	// http
	srv := server.New(server.Options{CORSOrigins: cfg.CORSOrigins})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Q:         q,
		Ing:       ing,
		Fetch:     fetch.New(cfg.FetchRPS, cfg.MaxUploadBytes(), fetchOpts...),
		MaxUpload: cfg.MaxUploadBytes(),
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
