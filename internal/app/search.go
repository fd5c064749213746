package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"review_radar/internal/domain"
)

// MaxQueryChars bounds free-text search terms. Store URLs are exempt.
const MaxQueryChars = 100

var (
	appStoreURL  = regexp.MustCompile(`(?i)apps\.apple\.com/.*?/id(\d+)`)
	playStoreURL = regexp.MustCompile(`(?i)play\.google\.com/.*[?&]id=([a-zA-Z0-9_.]+)`)
)

// ParseAppURL extracts a store and app id from an App Store or Google Play
// URL. ok is false for plain search terms.
func ParseAppURL(q string) (domain.Store, string, bool) {
	if m := appStoreURL.FindStringSubmatch(q); m != nil {
		return domain.StoreIOS, m[1], true
	}
	if m := playStoreURL.FindStringSubmatch(q); m != nil {
		return domain.StoreAndroid, m[1], true
	}
	return "", "", false
}

type SearchService struct {
	stores   map[domain.Store]domain.StoreClient
	cache    domain.Cache
	cacheTTL time.Duration
	retry    RetryPolicy
}

func NewSearchService(stores map[domain.Store]domain.StoreClient, c domain.Cache, ttl time.Duration, retry RetryPolicy) *SearchService {
	return &SearchService{stores: stores, cache: c, cacheTTL: ttl, retry: retry}
}

// Search returns app candidates for a term, or the single app a store URL
// points at. Results are cached per store and query.
func (s *SearchService) Search(ctx context.Context, query string, store domain.Store) ([]domain.App, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.App{}, nil
	}

	if urlStore, id, ok := ParseAppURL(query); ok {
		return s.lookupURL(ctx, urlStore, id)
	}
	if utf8.RuneCountInString(query) > MaxQueryChars {
		return nil, domain.InvalidRequestf("query longer than %d characters", MaxQueryChars)
	}

	client, ok := s.stores[store]
	if !ok {
		return nil, domain.InvalidRequestf("unsupported store %q", store)
	}

	key := fmt.Sprintf("search:%s:%s", store, strings.ToLower(query))
	var apps []domain.App
	if ok, _ := s.cache.Get(ctx, key, &apps); ok {
		return apps, nil
	}

	err := s.retry.Do(ctx, "search apps", func(ctx context.Context) error {
		found, err := client.Search(ctx, query)
		if err != nil {
			return err
		}
		apps = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []domain.App{}
	}

	if err := s.cache.Set(ctx, key, apps, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("search cache set failed")
	}
	return apps, nil
}

// lookupURL resolves a pasted store URL. When metadata cannot be fetched the
// bare id is still returned so the operator can proceed.
func (s *SearchService) lookupURL(ctx context.Context, store domain.Store, id string) ([]domain.App, error) {
	client, ok := s.stores[store]
	if !ok {
		return nil, domain.InvalidRequestf("unsupported store %q", store)
	}
	var app domain.App
	err := s.retry.Do(ctx, "lookup app", func(ctx context.Context) error {
		a, err := client.LookupApp(ctx, id)
		if err != nil {
			return err
		}
		app = a
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("app_id", id).Msg("app lookup from URL failed, returning bare id")
		app = domain.App{ID: id}
	}
	app.Store = store
	return []domain.App{app}, nil
}
