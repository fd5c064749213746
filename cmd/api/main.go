package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"review_radar/internal/adapters/analytics"
	server "review_radar/internal/adapters/http_server"
	"review_radar/internal/adapters/observability"
	"review_radar/internal/app"
	"review_radar/internal/bootstrap"
	"review_radar/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// deps
	stores := bootstrap.Stores(cfg)
	cache := bootstrap.Cache(ctx, cfg)
	audit, closeAudit := bootstrap.Audit(cfg)
	defer closeAudit()

	search := app.NewSearchService(stores, cache, cfg.SearchCacheTTL, bootstrap.Retry(cfg))
	reviews := bootstrap.ReviewService(cfg, stores, audit)

	// http
	srv := server.New(server.Options{RequestTimeout: cfg.RequestTimeout, RatePerHour: cfg.RatePerHour})
	defer srv.Close()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Search:  search,
		Reviews: reviews,
		Events:  analytics.New(cfg.GAID, log.Logger),
		GAID:    cfg.GAID,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
