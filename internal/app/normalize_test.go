package app_test

import (
	"encoding/json"
	"testing"
	"time"

	"golang.org/x/text/unicode/norm"

	"review_radar/internal/app"
	"review_radar/internal/domain"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNormalizeReviews_PlayShape(t *testing.T) {
	in := []domain.RawReviewRecord{
		playRecord("gp:1", float64(2), float64(7), t0, "로그인이 안 돼요\r\n다시 해도 안 돼요"),
	}
	out, stats := app.NormalizeReviews("viva.republica.toss", in)
	if len(out) != 1 || stats.TotalDropped() != 0 {
		t.Fatalf("unexpected result: %+v %+v", out, stats)
	}
	r := out[0]
	if r.ID != "gp:1" || r.AppID != "viva.republica.toss" || r.Rating != 2 || r.ThumbsUp != 7 {
		t.Fatalf("unexpected review: %+v", r)
	}
	if !r.SubmittedAt.Equal(t0) || r.SubmittedAt.Location() != time.UTC {
		t.Fatalf("timestamp not UTC: %v", r.SubmittedAt)
	}
	if r.Text != "로그인이 안 돼요\n다시 해도 안 돼요" {
		t.Fatalf("line endings not normalized: %q", r.Text)
	}
	if r.Author != "user-gp:1" {
		t.Fatalf("author = %q", r.Author)
	}
}

func TestNormalizeReviews_AppStoreShape(t *testing.T) {
	in := []domain.RawReviewRecord{{
		"id":         "10001",
		"author":     map[string]any{"name": "kim"},
		"text":       "결제 오류가 계속 납니다",
		"im:rating":  "1",
		"im:voteSum": "4",
		"updated":    "2024-05-01T10:00:00-07:00",
	}}
	out, _ := app.NormalizeReviews("839333328", in)
	if len(out) != 1 {
		t.Fatalf("expected 1 review, got %d", len(out))
	}
	r := out[0]
	if r.Rating != 1 || r.ThumbsUp != 4 || r.Author != "kim" {
		t.Fatalf("unexpected review: %+v", r)
	}
	if want := time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC); !r.SubmittedAt.Equal(want) {
		t.Fatalf("SubmittedAt = %v, want %v", r.SubmittedAt, want)
	}
}

func TestNormalizeReviews_DropsBadRecordsWithoutFailing(t *testing.T) {
	in := []domain.RawReviewRecord{
		playRecord("ok", 3, 0, t0, "정상"),
		playRecord("five", "five", 0, t0, "문자 평점"),
		playRecord("zero", 0, 0, t0, "범위 밖"),
		playRecord("six", 6, 0, t0, "범위 밖"),
		playRecord("half", 4.5, 0, t0, "소수 평점"),
		{"reviewId": "noat", "score": 2, "content": "시간 없음"},
		{"reviewId": "badat", "score": 2, "at": "yesterday", "content": "시간 이상"},
		playRecord("ok", 1, 0, t0, "중복 id"),
	}
	out, stats := app.NormalizeReviews("a.b", in)

	if len(out) != 1 || out[0].ID != "ok" || out[0].Rating != 3 {
		t.Fatalf("unexpected survivors: %+v", out)
	}
	if stats.Input != 8 || stats.Kept != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	want := map[app.DropReason]int{app.DropBadRating: 4, app.DropBadTimestamp: 2, app.DropDuplicate: 1}
	for reason, n := range want {
		if stats.Dropped[reason] != n {
			t.Fatalf("dropped[%s] = %d, want %d (%+v)", reason, stats.Dropped[reason], n, stats.Dropped)
		}
	}
}

func TestNormalizeReviews_ThumbsUpCoercion(t *testing.T) {
	in := []domain.RawReviewRecord{
		playRecord("neg", 1, -3, t0, "x"),
		playRecord("str", 1, "12", t0, "x"),
		playRecord("junk", 1, "many", t0, "x"),
		playRecord("num", 1, json.Number("5"), t0, "x"),
		{"reviewId": "none", "score": 1, "at": t0, "content": "x"},
	}
	out, stats := app.NormalizeReviews("a.b", in)
	if stats.TotalDropped() != 0 {
		t.Fatalf("thumbs-up must never drop a review: %+v", stats)
	}
	got := map[string]int{}
	for _, r := range out {
		got[r.ID] = r.ThumbsUp
	}
	want := map[string]int{"neg": 0, "str": 12, "junk": 0, "num": 5, "none": 0}
	for id, n := range want {
		if got[id] != n {
			t.Fatalf("thumbs[%s] = %d, want %d", id, got[id], n)
		}
	}
}

func TestNormalizeReviews_TimestampForms(t *testing.T) {
	in := []domain.RawReviewRecord{
		{"reviewId": "a", "score": 1, "at": "1717243200"},
		{"reviewId": "b", "score": 1, "at": "2024-06-01 12:00:00"},
		{"reviewId": "c", "score": 1, "at": &t0},
		{"reviewId": "d", "score": 1, "submittedAt": "2024-06-01T21:00:00+09:00"},
	}
	out, stats := app.NormalizeReviews("a.b", in)
	if len(out) != 4 {
		t.Fatalf("expected 4 reviews, dropped %+v", stats.Dropped)
	}
	for _, r := range out {
		if !r.SubmittedAt.Equal(t0) {
			t.Fatalf("%s: SubmittedAt = %v, want %v", r.ID, r.SubmittedAt, t0)
		}
	}
}

func TestNormalizeReviews_SyntheticIDIsStable(t *testing.T) {
	rec := func() domain.RawReviewRecord {
		return domain.RawReviewRecord{"userName": "lee", "score": 2, "at": t0, "content": "id 없는 리뷰"}
	}
	a, _ := app.NormalizeReviews("a.b", []domain.RawReviewRecord{rec()})
	b, _ := app.NormalizeReviews("a.b", []domain.RawReviewRecord{rec()})
	if a[0].ID == "" || a[0].ID != b[0].ID {
		t.Fatalf("synthetic ids differ: %q vs %q", a[0].ID, b[0].ID)
	}

	// the same record twice in one batch is a duplicate
	_, stats := app.NormalizeReviews("a.b", []domain.RawReviewRecord{rec(), rec()})
	if stats.Dropped[app.DropDuplicate] != 1 {
		t.Fatalf("expected 1 duplicate, got %+v", stats.Dropped)
	}
}

func TestNormalizeReviews_ComposesUnicode(t *testing.T) {
	decomposed := norm.NFD.String("한글 리뷰")
	out, _ := app.NormalizeReviews("a.b", []domain.RawReviewRecord{playRecord("x", 1, 0, t0, decomposed)})
	if out[0].Text != "한글 리뷰" {
		t.Fatalf("text not NFC: %q", out[0].Text)
	}
}

func TestNormalizeReviews_PreservesOrder(t *testing.T) {
	in := []domain.RawReviewRecord{
		playRecord("c", 1, 0, t0, "x"),
		playRecord("a", 1, 0, t0, "x"),
		playRecord("b", 1, 0, t0, "x"),
	}
	out, _ := app.NormalizeReviews("a.b", in)
	if out[0].ID != "c" || out[1].ID != "a" || out[2].ID != "b" {
		t.Fatalf("order changed: %v %v %v", out[0].ID, out[1].ID, out[2].ID)
	}
}
