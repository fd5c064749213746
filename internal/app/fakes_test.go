package app_test

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"review_radar/internal/app"
	"review_radar/internal/domain"
)

// ---- fakes ----

// fakeStore serves scripted review pages. Cursor "n" addresses pages[n].
type fakeStore struct {
	mu sync.Mutex

	apps      []domain.App
	searchErr error
	searches  int

	app       domain.App
	lookupErr error
	lookups   int

	pages    []domain.ReviewsPage
	pageErrs []error // returned, in order, before any page is served
	fetches  int
	cursors  []*string
	onFetch  func(n int)
}

func (f *fakeStore) Search(ctx context.Context, q string) ([]domain.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	return f.apps, f.searchErr
}

func (f *fakeStore) LookupApp(ctx context.Context, id string) (domain.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return domain.App{}, f.lookupErr
	}
	a := f.app
	if a.ID == "" {
		a.ID = id
	}
	return a, nil
}

func (f *fakeStore) FetchReviewsPage(ctx context.Context, appID string, cursor *string) (domain.ReviewsPage, error) {
	f.mu.Lock()
	f.fetches++
	n := f.fetches
	f.cursors = append(f.cursors, cursor)
	var err error
	if len(f.pageErrs) > 0 {
		err, f.pageErrs = f.pageErrs[0], f.pageErrs[1:]
	}
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	idx := 0
	if cursor != nil {
		idx, _ = strconv.Atoi(*cursor)
	}
	if idx >= len(f.pages) {
		return domain.ReviewsPage{}, nil
	}
	return f.pages[idx], nil
}

// pagesOf chains record batches with cursors "1", "2", ...; the last has none.
func pagesOf(batches ...[]domain.RawReviewRecord) []domain.ReviewsPage {
	out := make([]domain.ReviewsPage, len(batches))
	for i, b := range batches {
		out[i] = domain.ReviewsPage{Records: b}
		if i < len(batches)-1 {
			next := strconv.Itoa(i + 1)
			out[i].NextCursor = &next
		}
	}
	return out
}

func playRecord(id string, score any, thumbs any, at time.Time, text string) domain.RawReviewRecord {
	return domain.RawReviewRecord{
		"reviewId":      id,
		"userName":      "user-" + id,
		"score":         score,
		"thumbsUpCount": thumbs,
		"at":            float64(at.Unix()),
		"content":       text,
	}
}

func batch(n int, prefix string, at time.Time) []domain.RawReviewRecord {
	out := make([]domain.RawReviewRecord, n)
	for i := range out {
		out[i] = playRecord(prefix+strconv.Itoa(i), 1, 0, at, "충분히 긴 리뷰 본문입니다. 열다섯 자 이상")
	}
	return out
}

// fakeCache round-trips through JSON like the real adapters.
type fakeCache struct {
	store map[string][]byte
	sets  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.sets++
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	exports []domain.ExportAudit
	misses  []string
	err     error
}

func (a *fakeAudit) RecordExport(ctx context.Context, e domain.ExportAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exports = append(a.exports, e)
	return a.err
}

func (a *fakeAudit) LogMiss(ctx context.Context, appID string, store domain.Store, reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.misses = append(a.misses, appID+"/"+string(store)+"/"+reason)
	return a.err
}

// fastRetry keeps retry semantics without sleeping.
func fastRetry(maxRetries int) app.RetryPolicy {
	return app.RetryPolicy{
		AttemptTimeout: time.Second,
		MaxRetries:     maxRetries,
		Backoff:        func(int) time.Duration { return 0 },
	}
}

func ptr[T any](v T) *T { return &v }
