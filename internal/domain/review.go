package domain

import "time"

// RawReviewRecord is a review exactly as the store adapter decoded it.
// Keys vary per store; the normalizer resolves them through an alias registry.
type RawReviewRecord map[string]any

type ReviewsPage struct {
	Records    []RawReviewRecord
	NextCursor *string // nil once the upstream is exhausted
}

type Review struct {
	ID          string    `json:"id"`
	AppID       string    `json:"appId"`
	Rating      int       `json:"rating"`
	ThumbsUp    int       `json:"thumbsUp"`
	SubmittedAt time.Time `json:"submittedAt"`
	Text        string    `json:"text"`
	Author      string    `json:"author,omitempty"`
}

// ScoredReview carries the derived weight and priority of a Review.
// Both fields are produced together by the scorer.
type ScoredReview struct {
	Review
	Weight   float64 `json:"weight"`
	Priority float64 `json:"priority"`
}

// RankedReview adds presentation-only placement to a ScoredReview.
type RankedReview struct {
	ScoredReview
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
}
