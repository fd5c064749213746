package app

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"review_radar/internal/domain"
)

const (
	// RecencyWindow is the eligible review age. A review exactly this old is kept.
	RecencyWindow = 365 * 24 * time.Hour
	// MinTextChars is the minimum trimmed body length, counted in characters.
	MinTextChars = 15
)

// FilterPolicy bounds which reviews are worth scoring.
type FilterPolicy struct {
	MaxAge   time.Duration
	MinChars int

	// Optional rating narrowing. RatingExact wins when both are set.
	RatingExact *int
	RatingMax   *int
}

func DefaultFilterPolicy() FilterPolicy {
	return FilterPolicy{MaxAge: RecencyWindow, MinChars: MinTextChars}
}

// TextLength counts characters of the trimmed, NFC-composed text.
func TextLength(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(strings.TrimSpace(s)))
}

// FilterReviews keeps reviews inside the eligible window. Order is preserved.
func FilterReviews(in []domain.Review, now time.Time, p FilterPolicy) []domain.Review {
	cutoff := now.UTC().Add(-p.MaxAge)
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		if r.SubmittedAt.Before(cutoff) {
			continue
		}
		if TextLength(r.Text) < p.MinChars {
			continue
		}
		if !p.allowsRating(r.Rating) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (p FilterPolicy) allowsRating(rating int) bool {
	if p.RatingExact != nil {
		return rating == *p.RatingExact
	}
	if p.RatingMax != nil {
		return rating <= min(max(*p.RatingMax, 1), 5)
	}
	return true
}
