package app

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"review_radar/internal/domain"
)

/********** alias registry (single source of truth) **********/

// Play and App Store adapters decode into differently keyed maps; every key a
// store may use for a field is listed here, preferred spelling first.
var reviewAliases = map[string][]string{
	"id":        {"reviewId", "review_id", "id"},
	"author":    {"userName", "author.name", "author", "reviewer"},
	"text":      {"content", "text", "body", "review"},
	"rating":    {"score", "rating", "im:rating"},
	"thumbs_up": {"thumbsUpCount", "thumbsUp", "thumbs_up", "voteSum", "im:voteSum"},
	"at":        {"at", "submittedAt", "updated", "date"},
}

// DropReason labels why a raw record did not become a Review.
type DropReason string

const (
	DropBadRating    DropReason = "rating"
	DropBadTimestamp DropReason = "timestamp"
	DropDuplicate    DropReason = "duplicate"
)

// NormalizeStats is diagnostic output of NormalizeReviews.
type NormalizeStats struct {
	Input   int
	Kept    int
	Dropped map[DropReason]int
}

func (s NormalizeStats) TotalDropped() int {
	n := 0
	for _, c := range s.Dropped {
		n += c
	}
	return n
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			// adapters may hand over the named map type
			raw, isRaw := cur.(domain.RawReviewRecord)
			if !isRaw {
				return nil
			}
			obj = raw
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstAlias returns the first non-nil value for a named alias set.
func firstAlias(m map[string]any, key string) any {
	for _, p := range reviewAliases[key] {
		if v := lookupAny(m, p); v != nil {
			return v
		}
	}
	return nil
}

func firstAliasStr(m map[string]any, key string) string {
	for _, p := range reviewAliases[key] {
		if s, ok := lookupAny(m, p).(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// intFlexible: integer from float64/int/int64/json.Number/numeric string.
// Fractional numbers are rejected.
func intFlexible(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// timeFlexible: time.Time, unix seconds (number or numeric string), or a
// handful of textual layouts. Result is always UTC.
func timeFlexible(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0).UTC(), true
		}
		return time.Time{}, false
	}
	if secs, ok := intFlexible(v); ok && secs > 0 {
		return time.Unix(int64(secs), 0).UTC(), true
	}
	return time.Time{}, false
}

// cleanText unifies line endings and composes Unicode so that decomposed
// Hangul counts the same as precomposed syllables.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return norm.NFC.String(s)
}

func syntheticID(author, text string, rating int, at time.Time) string {
	sig := strings.Join([]string{author, text, strconv.Itoa(rating), strconv.FormatInt(at.Unix(), 10)}, "|")
	sum := sha1.Sum([]byte(sig))
	return hex.EncodeToString(sum[:])
}

/********** reviews normalizer **********/

// NormalizeReviews converts raw store records into Reviews, preserving source
// order. Records with an unusable rating or timestamp, and repeated ids, are
// dropped and counted; they never fail the batch.
func NormalizeReviews(appID string, in []domain.RawReviewRecord) ([]domain.Review, NormalizeStats) {
	stats := NormalizeStats{Input: len(in), Dropped: map[DropReason]int{}}
	out := make([]domain.Review, 0, len(in))
	seen := make(map[string]struct{}, len(in))

	for _, r := range in {
		m := map[string]any(r)

		rating, ok := intFlexible(firstAlias(m, "rating"))
		if !ok || rating < 1 || rating > 5 {
			stats.Dropped[DropBadRating]++
			continue
		}

		at, ok := timeFlexible(firstAlias(m, "at"))
		if !ok {
			stats.Dropped[DropBadTimestamp]++
			continue
		}

		// thumbs-up is optional; anything unusable counts as zero
		thumbs, ok := intFlexible(firstAlias(m, "thumbs_up"))
		if !ok || thumbs < 0 {
			thumbs = 0
		}

		text := ""
		if s, ok := firstAlias(m, "text").(string); ok {
			text = cleanText(s)
		}
		author := strings.TrimSpace(firstAliasStr(m, "author"))

		id := strings.TrimSpace(firstAliasStr(m, "id"))
		if id == "" {
			id = syntheticID(author, text, rating, at)
		}
		if _, dup := seen[id]; dup {
			stats.Dropped[DropDuplicate]++
			continue
		}
		seen[id] = struct{}{}

		out = append(out, domain.Review{
			ID:          id,
			AppID:       appID,
			Rating:      rating,
			ThumbsUp:    thumbs,
			SubmittedAt: at,
			Text:        text,
			Author:      author,
		})
	}
	stats.Kept = len(out)
	return out, stats
}
