package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"review_radar/internal/domain"
)

// Repo is the export audit log. It stores request metadata only.
type Repo struct {
	db    *sql.DB
	newID func() string
}

var _ domain.AuditLog = (*Repo)(nil)

func New(db *sql.DB) *Repo {
	return &Repo{db: db, newID: func() string { return uuid.NewString() }}
}

// ExportRow is one stored audit entry.
type ExportRow struct {
	ID        string
	CreatedAt time.Time
	domain.ExportAudit
}

type MissRow struct {
	AppID  string
	Store  domain.Store
	Reason string
	Hits   int
	SeenAt time.Time
}

func (r *Repo) RecordExport(ctx context.Context, e domain.ExportAudit) error {
	_, err := r.db.ExecContext(ctx, insertExportSQL,
		r.newID(),
		e.AppID,
		string(e.Store),
		e.Requested,
		e.Fetched,
		e.Returned,
		e.Dropped,
		e.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

func (r *Repo) LogMiss(ctx context.Context, appID string, store domain.Store, reason string) error {
	if _, err := r.db.ExecContext(ctx, insertMissSQL, appID, string(store), reason); err != nil {
		return fmt.Errorf("log miss: %w", err)
	}
	return nil
}

// RecentExports lists audit rows for an app, newest first.
func (r *Repo) RecentExports(ctx context.Context, appID string, limit int) ([]ExportRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, recentExportsSQL, appID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var (
			row   ExportRow
			store string
		)
		if err := rows.Scan(&row.ID, &row.AppID, &store, &row.Requested, &row.Fetched,
			&row.Returned, &row.Dropped, &row.DurationMs, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.Store = domain.Store(store)
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetMiss returns ok=false when the app was never missed.
func (r *Repo) GetMiss(ctx context.Context, appID string, store domain.Store) (MissRow, bool, error) {
	var (
		m  MissRow
		st string
	)
	err := r.db.QueryRowContext(ctx, getMissSQL, appID, string(store)).
		Scan(&m.AppID, &st, &m.Reason, &m.Hits, &m.SeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return MissRow{}, false, nil
	}
	if err != nil {
		return MissRow{}, false, err
	}
	m.Store = domain.Store(st)
	return m, true, nil
}
