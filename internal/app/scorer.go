package app

import (
	"math"

	"review_radar/internal/domain"
)

var ratingWeights = map[int]float64{
	1: 1.0,
	2: 0.8,
	3: 0.5,
	4: 0.2,
	5: 0.1,
}

// Weight is the rating-derived base severity. Unknown ratings weigh 0.
func Weight(rating int) float64 {
	return ratingWeights[rating]
}

// Priority = weight * (1 + log2(1 + thumbsUp)). No rounding happens here.
func Priority(rating, thumbsUp int) float64 {
	if thumbsUp < 0 {
		thumbsUp = 0
	}
	return Weight(rating) * (1 + math.Log2(1+float64(thumbsUp)))
}

func Score(r domain.Review) domain.ScoredReview {
	return domain.ScoredReview{
		Review:   r,
		Weight:   Weight(r.Rating),
		Priority: Priority(r.Rating, r.ThumbsUp),
	}
}

func ScoreAll(in []domain.Review) []domain.ScoredReview {
	out := make([]domain.ScoredReview, len(in))
	for i, r := range in {
		out[i] = Score(r)
	}
	return out
}
