package app_test

import (
	"context"
	"errors"
	"testing"

	"review_radar/internal/app"
	"review_radar/internal/domain"
)

func TestCollect_StopsAtCountAndTruncates(t *testing.T) {
	st := &fakeStore{pages: pagesOf(batch(3, "p0-", t0), batch(3, "p1-", t0), batch(3, "p2-", t0))}

	res, err := app.NewCollector(st, fastRetry(0)).Collect(context.Background(), "a.b", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 5 || res.Pages != 2 || res.Exhausted {
		t.Fatalf("unexpected result: records=%d pages=%d exhausted=%v", len(res.Records), res.Pages, res.Exhausted)
	}
	if st.fetches != 2 {
		t.Fatalf("fetches = %d, want 2", st.fetches)
	}
	if res.Records[4]["reviewId"] != "p1-1" {
		t.Fatalf("last record = %v", res.Records[4]["reviewId"])
	}
	if st.cursors[0] != nil || *st.cursors[1] != "1" {
		t.Fatalf("cursor chain broken")
	}
}

func TestCollect_ExhaustedBeforeCount(t *testing.T) {
	st := &fakeStore{pages: pagesOf(batch(2, "a", t0), batch(1, "b", t0))}
	res, err := app.NewCollector(st, fastRetry(0)).Collect(context.Background(), "a.b", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 3 || !res.Exhausted {
		t.Fatalf("records=%d exhausted=%v", len(res.Records), res.Exhausted)
	}
}

func TestCollect_EmptyPageOrRepeatedCursorEnds(t *testing.T) {
	loop := "0"
	st := &fakeStore{pages: []domain.ReviewsPage{{Records: batch(2, "x", t0), NextCursor: &loop}}}
	res, err := app.NewCollector(st, fastRetry(0)).Collect(context.Background(), "a.b", 100)
	if err != nil {
		t.Fatal(err)
	}
	// first page has cursor "0", second fetch returns the same cursor again
	if st.fetches != 2 || !res.Exhausted {
		t.Fatalf("fetches=%d exhausted=%v", st.fetches, res.Exhausted)
	}
}

func TestCollect_CountValidatedBeforeUpstream(t *testing.T) {
	for _, n := range []int{0, -1, app.MaxCount + 1} {
		st := &fakeStore{pages: pagesOf(batch(1, "a", t0))}
		_, err := app.NewCollector(st, fastRetry(0)).Collect(context.Background(), "a.b", n)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Fatalf("count %d: expected ErrInvalidRequest, got %v", n, err)
		}
		if st.fetches != 0 {
			t.Fatalf("count %d: upstream called", n)
		}
	}
	if err := app.ValidateCount(app.MaxCount); err != nil {
		t.Fatalf("MaxCount rejected: %v", err)
	}
}

func TestCollect_RetriesTransientPage(t *testing.T) {
	st := &fakeStore{
		pages:    pagesOf(batch(2, "a", t0)),
		pageErrs: []error{&domain.TransientError{Status: 503}},
	}
	res, err := app.NewCollector(st, fastRetry(2)).Collect(context.Background(), "a.b", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 2 || st.fetches != 2 {
		t.Fatalf("records=%d fetches=%d", len(res.Records), st.fetches)
	}
}

func TestCollect_FailedPageAbortsWithoutPartialResult(t *testing.T) {
	transient := &domain.TransientError{Status: 502}
	st := &fakeStore{pages: pagesOf(batch(2, "a", t0), batch(2, "b", t0))}
	// every fetch after the first fails
	st.onFetch = func(n int) {
		if n == 1 {
			st.mu.Lock()
			st.pageErrs = []error{transient, transient, transient}
			st.mu.Unlock()
		}
	}
	res, err := app.NewCollector(st, fastRetry(2)).Collect(context.Background(), "a.b", 10)
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if len(res.Records) != 0 {
		t.Fatalf("partial result returned: %d records", len(res.Records))
	}
}

func TestCollect_CancellationStopsPaging(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := &fakeStore{pages: pagesOf(batch(1, "a", t0), batch(1, "b", t0), batch(1, "c", t0))}
	st.onFetch = func(n int) {
		if n == 1 {
			cancel()
		}
	}
	_, err := app.NewCollector(st, fastRetry(2)).Collect(ctx, "a.b", 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if st.fetches != 1 {
		t.Fatalf("fetches after cancel = %d", st.fetches)
	}
}
