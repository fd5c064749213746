package app_test

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/text/unicode/norm"

	"review_radar/internal/app"
	"review_radar/internal/domain"
)

const fifteen = "가나다라마바사아자차카타파하거"

func review(id string, rating int, at time.Time, text string) domain.Review {
	return domain.Review{ID: id, AppID: "a.b", Rating: rating, SubmittedAt: at, Text: text}
}

func ids(rs []domain.Review) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestFilterReviews_RecencyBoundary(t *testing.T) {
	now := t0
	in := []domain.Review{
		review("d365", 1, now.Add(-365*24*time.Hour), fifteen),
		review("d365+1s", 1, now.Add(-365*24*time.Hour-time.Second), fifteen),
		review("d366", 1, now.Add(-366*24*time.Hour), fifteen),
		review("today", 1, now, fifteen),
	}
	got := ids(app.FilterReviews(in, now, app.DefaultFilterPolicy()))
	if strings.Join(got, ",") != "d365,today" {
		t.Fatalf("kept %v", got)
	}
}

func TestFilterReviews_SubstanceBoundary(t *testing.T) {
	fourteen := string([]rune(fifteen)[:14])
	in := []domain.Review{
		review("14", 1, t0, fourteen),
		review("15", 1, t0, fifteen),
		review("padded14", 1, t0, "   "+fourteen+"\n\t "),
		review("nfd15", 1, t0, norm.NFD.String(fifteen)),
		review("empty", 1, t0, ""),
	}
	got := ids(app.FilterReviews(in, t0, app.DefaultFilterPolicy()))
	if strings.Join(got, ",") != "15,nfd15" {
		t.Fatalf("kept %v", got)
	}
}

func TestTextLength(t *testing.T) {
	if n := app.TextLength("  " + fifteen + " "); n != 15 {
		t.Fatalf("TextLength = %d", n)
	}
	if n := app.TextLength(norm.NFD.String("한")); n != 1 {
		t.Fatalf("decomposed syllable counted as %d", n)
	}
}

func TestFilterReviews_RatingFilters(t *testing.T) {
	var in []domain.Review
	for r := 1; r <= 5; r++ {
		in = append(in, review(string(rune('0'+r)), r, t0, fifteen))
	}

	p := app.DefaultFilterPolicy()
	p.RatingExact = ptr(2)
	if got := strings.Join(ids(app.FilterReviews(in, t0, p)), ","); got != "2" {
		t.Fatalf("exact: %v", got)
	}

	p = app.DefaultFilterPolicy()
	p.RatingMax = ptr(3)
	if got := strings.Join(ids(app.FilterReviews(in, t0, p)), ","); got != "1,2,3" {
		t.Fatalf("max: %v", got)
	}

	// exact wins over max
	p.RatingExact = ptr(5)
	if got := strings.Join(ids(app.FilterReviews(in, t0, p)), ","); got != "5" {
		t.Fatalf("exact+max: %v", got)
	}

	// max is clamped into 1..5
	p = app.DefaultFilterPolicy()
	p.RatingMax = ptr(0)
	if got := strings.Join(ids(app.FilterReviews(in, t0, p)), ","); got != "1" {
		t.Fatalf("clamped max: %v", got)
	}
}
