package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	GAID           string
	SearchCacheTTL time.Duration
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	// MySQLDSN enables the audit log. parseTime=true is forced on open.
	MySQLDSN       string
	StoreRPS       int
	PageTimeout    time.Duration
	FetchRetries   int
	RequestTimeout time.Duration
	RatePerHour    int
	PlayBaseURL    string
	ItunesBaseURL  string
	ExportWorkers  int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set win over it.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("ignoring unreadable .env")
	}
	return FromEnv()
}

const (
	defaultPageTimeout = 10 * time.Second
	// MaxFetchRetries caps FETCH_RETRIES.
	MaxFetchRetries    = 3
)

// FromEnv builds a Config from the process environment only.
func FromEnv() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		GAID:           env("GA_ID", ""),
		SearchCacheTTL: time.Duration(atoi("SEARCH_CACHE_TTL", 300)) * time.Second,
		RedisAddr:      env("REDIS_ADDR", ""),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		MySQLDSN:       env("MYSQL_DSN", ""),
		StoreRPS:       atoi("STORE_RPS", 5),
		PageTimeout:    time.Duration(atoi("PAGE_TIMEOUT", int(defaultPageTimeout/time.Second))) * time.Second,
		FetchRetries:   atoi("FETCH_RETRIES", 2),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT", 60)) * time.Second,
		RatePerHour:    atoi("RATE_LIMIT_PER_HOUR", 100),
		PlayBaseURL:    env("PLAY_BASE_URL", "https://play.google.com"),
		ItunesBaseURL:  env("ITUNES_BASE_URL", "https://itunes.apple.com"),
		ExportWorkers:  atoi("EXPORT_WORKERS", 4),
	}
	if c.PageTimeout <= 0 {
		log.Warn().Dur("value", c.PageTimeout).Msg("PAGE_TIMEOUT must be positive, using 10s")
		c.PageTimeout = defaultPageTimeout
	}
	c.FetchRetries = min(max(c.FetchRetries, 0), MaxFetchRetries)
	if c.ExportWorkers < 1 {
		c.ExportWorkers = 1
	}
	if c.GAID == "" {
		log.Debug().Msg("GA_ID is empty, analytics disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
