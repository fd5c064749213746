package app

import (
	"cmp"
	"slices"

	"review_radar/internal/domain"
)

// Rank returns a copy of in ordered by priority desc, then submission time
// desc, then id asc. The order is total, so repeated runs agree.
func Rank(in []domain.ScoredReview) []domain.ScoredReview {
	out := slices.Clone(in)
	slices.SortStableFunc(out, compareScored)
	return out
}

func compareScored(a, b domain.ScoredReview) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	if c := b.SubmittedAt.Compare(a.SubmittedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
