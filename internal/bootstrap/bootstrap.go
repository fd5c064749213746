// Package bootstrap builds the adapters shared by the API server and the exporter.
package bootstrap

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"review_radar/internal/adapters/appstore"
	"review_radar/internal/adapters/memcache"
	"review_radar/internal/adapters/observability"
	"review_radar/internal/adapters/playstore"
	redisad "review_radar/internal/adapters/redis"
	"review_radar/internal/adapters/storehttp"
	"review_radar/internal/app"
	"review_radar/internal/domain"
	"review_radar/internal/shared"
	mysqlrepo "review_radar/internal/storage/mysql"
)

// Stores returns one client per supported store, each with its own rate limiter.
func Stores(cfg shared.Config) map[domain.Store]domain.StoreClient {
	// per-attempt deadlines come from the retry policy; this is a backstop
	hc := &http.Client{Timeout: 2 * cfg.PageTimeout}
	return map[domain.Store]domain.StoreClient{
		domain.StoreAndroid: playstore.New(
			storehttp.New("playstore", cfg.StoreRPS, hc),
			playstore.Options{BaseURL: cfg.PlayBaseURL},
		),
		domain.StoreIOS: appstore.New(
			storehttp.New("appstore", cfg.StoreRPS, hc),
			appstore.Options{BaseURL: cfg.ItunesBaseURL},
		),
	}
}

// Retry builds the upstream retry policy and counts retries in metrics.
func Retry(cfg shared.Config) app.RetryPolicy {
	p := app.DefaultRetryPolicy()
	p.AttemptTimeout = cfg.PageTimeout
	p.MaxRetries = cfg.FetchRetries
	p.OnRetry = func(op string, attempt int, err error) {
		observability.ObserveRetry(op)
		log.Debug().Err(err).Str("op", op).Int("attempt", attempt).Msg("retrying upstream call")
	}
	return p
}

// Cache prefers redis when configured and reachable, else an in-process LRU.
func Cache(ctx context.Context, cfg shared.Config) domain.Cache {
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := rc.Ping(pctx)
		if err == nil {
			log.Info().Str("addr", cfg.RedisAddr).Msg("search cache: redis")
			return rc
		}
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, using in-process cache")
		_ = rc.Close()
	}
	return memcache.New(1024, cfg.SearchCacheTTL)
}

// Audit opens the MySQL audit log when a DSN is configured. The returned
// closer is never nil.
func Audit(cfg shared.Config) (domain.AuditLog, func()) {
	if cfg.MySQLDSN == "" {
		return nil, func() {}
	}
	db, err := mysqlrepo.Open(cfg.MySQLDSN)
	if err != nil {
		log.Error().Err(err).Msg("audit log disabled")
		return nil, func() {}
	}
	log.Info().Msg("audit log: mysql")
	return mysqlrepo.New(db), func() { closeDB(db) }
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("close mysql")
	}
}

// ReviewService wires the pipeline with normalization metrics.
func ReviewService(cfg shared.Config, stores map[domain.Store]domain.StoreClient, audit domain.AuditLog) *app.ReviewService {
	svc := app.NewReviewService(stores, Retry(cfg), audit)
	svc.OnDrop = func(st app.NormalizeStats) {
		for reason, n := range st.Dropped {
			observability.ObserveDropped(string(reason), n)
		}
	}
	svc.OnFetched = func(store domain.Store, n int) {
		observability.ObserveFetched(string(store), n)
	}
	return svc
}
