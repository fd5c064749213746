package app_test

import (
	"math"
	"testing"

	"review_radar/internal/app"
	"review_radar/internal/domain"
)

func TestWeight_Table(t *testing.T) {
	want := map[int]float64{1: 1.0, 2: 0.8, 3: 0.5, 4: 0.2, 5: 0.1}
	for r, w := range want {
		if got := app.Weight(r); got != w {
			t.Fatalf("Weight(%d) = %v, want %v", r, got, w)
		}
	}
}

func TestPriority_ZeroThumbsIsWeight(t *testing.T) {
	for r := 1; r <= 5; r++ {
		if app.Priority(r, 0) != app.Weight(r) {
			t.Fatalf("Priority(%d, 0) = %v", r, app.Priority(r, 0))
		}
	}
}

func TestPriority_MonotonicInThumbs(t *testing.T) {
	for r := 1; r <= 5; r++ {
		prev := app.Priority(r, 0)
		for _, th := range []int{1, 2, 5, 10, 100, 10000} {
			p := app.Priority(r, th)
			if p < prev {
				t.Fatalf("Priority(%d, %d) = %v < %v", r, th, p, prev)
			}
			prev = p
		}
	}
}

func TestPriority_Examples(t *testing.T) {
	if p := app.Priority(1, 3); p != 3.0 {
		t.Fatalf("Priority(1,3) = %v, want 3", p)
	}
	if p := app.Priority(5, 1000); math.Abs(p-1.0967) > 1e-4 {
		t.Fatalf("Priority(5,1000) = %v, want ~1.0967", p)
	}
	// a one-star review with modest engagement still outranks a heavily liked five-star
	if app.Priority(1, 3) <= app.Priority(5, 1000) {
		t.Fatalf("low ratings must dominate")
	}
}

func TestScore_SetsBothFields(t *testing.T) {
	s := app.Score(domain.Review{ID: "x", Rating: 2, ThumbsUp: 1})
	if s.Weight != 0.8 || s.Priority != 1.6 {
		t.Fatalf("unexpected score: %+v", s)
	}
	if s.ID != "x" {
		t.Fatalf("review not embedded: %+v", s)
	}
}
