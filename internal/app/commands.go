package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type reviewRunner interface {
	Reviews(ctx context.Context, q ReviewQuery) (ReviewResult, error)
}

// ExportService writes ranked review sets to CSV files, one per app.
type ExportService struct {
	reviews reviewRunner
	dir     string
	bom     bool
	now     func() time.Time
}

func NewExportService(r reviewRunner, dir string, bom bool) *ExportService {
	return &ExportService{reviews: r, dir: dir, bom: bom, now: time.Now}
}

// ExportApp runs the pipeline for q and writes the CSV atomically: the file
// only appears once every row has been written.
func (s *ExportService) ExportApp(ctx context.Context, q ReviewQuery) (string, int, error) {
	res, err := s.reviews.Reviews(ctx, q)
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.dir, ExportFilename(q.AppID, s.now()))

	tmp, err := os.CreateTemp(s.dir, ".export-*.csv")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	// no-op once renamed
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, res.Ranked, CSVOptions{BOM: s.bom}); err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("write csv for %s: %w", q.AppID, err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("finalize %s: %w", path, err)
	}
	return path, len(res.Ranked), nil
}
