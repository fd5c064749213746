package app

import (
	"context"

	"review_radar/internal/domain"
)

const (
	// DefaultCount is the exporter's -count default. HTTP callers must send count.
	DefaultCount = 250
	// MaxCount bounds raw reviews fetched per request.
	MaxCount = 1000
)

// ValidateCount rejects counts outside 1..MaxCount.
func ValidateCount(count int) error {
	if count <= 0 {
		return domain.InvalidRequestf("count must be positive, got %d", count)
	}
	if count > MaxCount {
		return domain.InvalidRequestf("count must be at most %d, got %d", MaxCount, count)
	}
	return nil
}

// CollectResult holds the raw records of one request, in upstream order.
type CollectResult struct {
	Records   []domain.RawReviewRecord
	Pages     int
	Exhausted bool // upstream ran out before count was reached
}

// Collector walks the store's review cursor one page at a time.
type Collector struct {
	store domain.StoreClient
	retry RetryPolicy
}

func NewCollector(store domain.StoreClient, retry RetryPolicy) *Collector {
	return &Collector{store: store, retry: retry}
}

// Collect fetches pages sequentially until count raw records are held or the
// upstream signals exhaustion. count is the number of raw records before any
// filtering. A page that still fails after retries aborts the whole call; no
// partial result is returned.
func (c *Collector) Collect(ctx context.Context, appID string, count int) (CollectResult, error) {
	if err := ValidateCount(count); err != nil {
		return CollectResult{}, err
	}

	var (
		res    CollectResult
		cursor *string
	)
	for len(res.Records) < count {
		page, err := c.fetchPage(ctx, appID, cursor)
		if err != nil {
			return CollectResult{}, err
		}
		res.Pages++

		recs := page.Records
		if remaining := count - len(res.Records); len(recs) > remaining {
			recs = recs[:remaining]
		}
		res.Records = append(res.Records, recs...)

		if len(page.Records) == 0 || page.NextCursor == nil || sameCursor(cursor, page.NextCursor) {
			res.Exhausted = true
			break
		}
		cursor = page.NextCursor
	}
	return res, nil
}

func (c *Collector) fetchPage(ctx context.Context, appID string, cursor *string) (domain.ReviewsPage, error) {
	var page domain.ReviewsPage
	err := c.retry.Do(ctx, "fetch reviews page", func(ctx context.Context) error {
		p, err := c.store.FetchReviewsPage(ctx, appID, cursor)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	return page, err
}

func sameCursor(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}
