package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_radar/internal/domain"
)

var (
	androidAppID = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)+$`)
	iosAppID     = regexp.MustCompile(`^[0-9]+$`)
)

// ValidateAppID checks the shape of a store app id without calling upstream.
func ValidateAppID(store domain.Store, appID string) error {
	if appID == "" {
		return domain.InvalidRequestf("missing appId")
	}
	re := androidAppID
	if store == domain.StoreIOS {
		re = iosAppID
	}
	if len(appID) > 200 || !re.MatchString(appID) {
		return fmt.Errorf("%w: malformed app id %q", domain.ErrInvalidAppID, appID)
	}
	return nil
}

// ReviewQuery is one fetch/rank request.
type ReviewQuery struct {
	AppID       string
	Store       domain.Store
	Count       int // raw reviews to fetch before filtering
	RatingExact *int
	RatingMax   *int
}

func (q ReviewQuery) validate() error {
	if err := ValidateAppID(q.Store, q.AppID); err != nil {
		return err
	}
	if err := ValidateCount(q.Count); err != nil {
		return err
	}
	for _, r := range []*int{q.RatingExact, q.RatingMax} {
		if r != nil && (*r < 1 || *r > 5) {
			return domain.InvalidRequestf("rating filter must be between 1 and 5, got %d", *r)
		}
	}
	return nil
}

// ReviewResult is a fully filtered and ranked set. It is never partial.
type ReviewResult struct {
	App         domain.App
	Ranked      []domain.ScoredReview
	Fetched     int
	Dropped     int // records that failed normalization
	Filtered    int // normalized reviews outside the eligible window
	Exhausted   bool
	GeneratedAt time.Time
}

type ReviewService struct {
	stores map[domain.Store]domain.StoreClient
	retry  RetryPolicy
	audit  domain.AuditLog
	now    func() time.Time

	// OnDrop receives normalization diagnostics. Optional.
	OnDrop func(stats NormalizeStats)
	// OnFetched receives the raw record count of each request. Optional.
	OnFetched func(store domain.Store, n int)
}

func NewReviewService(stores map[domain.Store]domain.StoreClient, retry RetryPolicy, audit domain.AuditLog) *ReviewService {
	return &ReviewService{stores: stores, retry: retry, audit: audit, now: time.Now}
}

// WithClock overrides the reference "now" used by the recency filter.
func (s *ReviewService) WithClock(now func() time.Time) *ReviewService {
	s.now = now
	return s
}

// Reviews runs the whole pipeline: validate, look up the app, collect raw
// pages, normalize, filter, score, and rank.
func (s *ReviewService) Reviews(ctx context.Context, q ReviewQuery) (ReviewResult, error) {
	start := time.Now()
	q.AppID = strings.TrimSpace(q.AppID)
	if err := q.validate(); err != nil {
		return ReviewResult{}, err
	}
	store, ok := s.stores[q.Store]
	if !ok {
		return ReviewResult{}, domain.InvalidRequestf("unsupported store %q", q.Store)
	}

	var meta domain.App
	err := s.retry.Do(ctx, "lookup app", func(ctx context.Context) error {
		a, err := store.LookupApp(ctx, q.AppID)
		if err != nil {
			return err
		}
		meta = a
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAppID) && s.audit != nil {
			if aerr := s.audit.LogMiss(ctx, q.AppID, q.Store, "lookup"); aerr != nil {
				log.Warn().Err(aerr).Str("app_id", q.AppID).Msg("audit miss failed")
			}
		}
		return ReviewResult{}, err
	}

	collected, err := NewCollector(store, s.retry).Collect(ctx, q.AppID, q.Count)
	if err != nil {
		return ReviewResult{}, err
	}

	if s.OnFetched != nil {
		s.OnFetched(q.Store, len(collected.Records))
	}

	reviews, stats := NormalizeReviews(q.AppID, collected.Records)
	if stats.TotalDropped() > 0 {
		log.Debug().
			Str("app_id", q.AppID).
			Int("input", stats.Input).
			Int("dropped", stats.TotalDropped()).
			Interface("reasons", stats.Dropped).
			Msg("raw reviews dropped during normalization")
		if s.OnDrop != nil {
			s.OnDrop(stats)
		}
	}

	policy := DefaultFilterPolicy()
	policy.RatingExact, policy.RatingMax = q.RatingExact, q.RatingMax
	eligible := FilterReviews(reviews, s.now(), policy)
	ranked := Rank(ScoreAll(eligible))

	res := ReviewResult{
		App:         meta,
		Ranked:      ranked,
		Fetched:     len(collected.Records),
		Dropped:     stats.TotalDropped(),
		Filtered:    len(reviews) - len(eligible),
		Exhausted:   collected.Exhausted,
		GeneratedAt: s.now().UTC(),
	}

	if s.audit != nil {
		if aerr := s.audit.RecordExport(ctx, domain.ExportAudit{
			AppID:      q.AppID,
			Store:      q.Store,
			Requested:  q.Count,
			Fetched:    res.Fetched,
			Returned:   len(ranked),
			Dropped:    res.Dropped,
			DurationMs: time.Since(start).Milliseconds(),
		}); aerr != nil {
			log.Warn().Err(aerr).Str("app_id", q.AppID).Msg("audit export failed")
		}
	}

	log.Info().
		Str("app_id", q.AppID).
		Str("store", string(q.Store)).
		Int("fetched", res.Fetched).
		Int("returned", len(ranked)).
		Int("pages", collected.Pages).
		Dur("took", time.Since(start)).
		Msg("reviews ranked")
	return res, nil
}

// ServiceName trims store title suffixes like "토스 - 금융이 쉬워진다" to "토스".
func ServiceName(a domain.App) string {
	name := a.Name
	if i := strings.Index(name, "-"); i > 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return a.ID
	}
	return name
}
