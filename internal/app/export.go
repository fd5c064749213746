package app

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"regexp"
	"slices"
	"strconv"
	"time"

	"review_radar/internal/domain"
)

// CSV column order is part of the export contract.
var csvHeader = []string{
	"app_id",
	"review_id",
	"rank",
	"percentile",
	"rating",
	"thumbs_up",
	"submitted_at",
	"priority",
	"author",
	"text",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions controls byte-level framing. Rows always end in a single LF.
type CSVOptions struct {
	// BOM prefixes the stream so spreadsheet tools detect UTF-8.
	BOM bool
}

// ReviewRecord is the JSON row shape served to the UI.
type ReviewRecord struct {
	ID          string  `json:"id"`
	Rating      int     `json:"rating"`
	ThumbsUp    int     `json:"thumbsUp"`
	SubmittedAt string  `json:"submittedAt"`
	Priority    float64 `json:"priority"`
	Text        string  `json:"text"`
	Author      string  `json:"author,omitempty"`
	Rank        int     `json:"rank"`
	Percentile  float64 `json:"percentile"`
}

// Place assigns dense ranks (equal priority shares a rank) and percentiles to
// an already ranked sequence.
func Place(ranked []domain.ScoredReview) []domain.RankedReview {
	out := make([]domain.RankedReview, len(ranked))
	total := len(ranked)
	rank := 0
	for i, r := range ranked {
		if i == 0 || r.Priority != ranked[i-1].Priority {
			rank++
		}
		out[i] = domain.RankedReview{
			ScoredReview: r,
			Rank:         rank,
			Percentile:   round2(float64(total-rank+1) / float64(total) * 100),
		}
	}
	return out
}

func Records(ranked []domain.ScoredReview) []ReviewRecord {
	placed := Place(ranked)
	out := make([]ReviewRecord, len(placed))
	for i, p := range placed {
		out[i] = ReviewRecord{
			ID:          p.ID,
			Rating:      p.Rating,
			ThumbsUp:    p.ThumbsUp,
			SubmittedAt: p.SubmittedAt.UTC().Format(time.RFC3339),
			Priority:    p.Priority,
			Text:        p.Text,
			Author:      p.Author,
			Rank:        p.Rank,
			Percentile:  p.Percentile,
		}
	}
	return out
}

// Table renders the header plus one string row per review, for UI copy.
func Table(ranked []domain.ScoredReview) [][]string {
	placed := Place(ranked)
	rows := make([][]string, 0, len(placed)+1)
	rows = append(rows, slices.Clone(csvHeader))
	for _, p := range placed {
		rows = append(rows, tableRow(p))
	}
	return rows
}

func tableRow(p domain.RankedReview) []string {
	return []string{
		p.AppID,
		p.ID,
		strconv.Itoa(p.Rank),
		strconv.FormatFloat(p.Percentile, 'f', 2, 64),
		strconv.Itoa(p.Rating),
		strconv.Itoa(p.ThumbsUp),
		p.SubmittedAt.UTC().Format(time.RFC3339),
		strconv.FormatFloat(p.Priority, 'f', 2, 64),
		p.Author,
		p.Text,
	}
}

// WriteCSV streams the ranked set as CSV. Quoting follows RFC 4180 via
// encoding/csv; the line terminator is LF.
func WriteCSV(w io.Writer, ranked []domain.ScoredReview, opts CSVOptions) error {
	if opts.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = false
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range Place(ranked) {
		if err := cw.Write(tableRow(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ExportCSV(ranked []domain.ScoredReview, opts CSVOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ranked, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportFilename is reviews_<appId>_<YYYYMMDD>.csv with the app id reduced to
// filename-safe characters.
func ExportFilename(appID string, at time.Time) string {
	id := unsafeFilenameChars.ReplaceAllString(appID, "_")
	if id == "" {
		id = "app"
	}
	return "reviews_" + id + "_" + at.UTC().Format("20060102") + ".csv"
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
