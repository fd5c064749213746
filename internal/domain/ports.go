package domain

import "context"

// StoreClient is the upstream catalog: search, lookup, and cursor-paged reviews.
type StoreClient interface {
	Search(ctx context.Context, query string) ([]App, error)
	LookupApp(ctx context.Context, appID string) (App, error)
	FetchReviewsPage(ctx context.Context, appID string, cursor *string) (ReviewsPage, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// AuditLog records export metadata and failed lookups. Review bodies never reach it.
type AuditLog interface {
	RecordExport(ctx context.Context, e ExportAudit) error
	LogMiss(ctx context.Context, appID string, store Store, reason string) error
}

type ExportAudit struct {
	AppID      string
	Store      Store
	Requested  int
	Fetched    int
	Returned   int
	Dropped    int
	DurationMs int64
}

// EventSink receives analytics events. Implementations must tolerate being a no-op.
type EventSink interface {
	Emit(ctx context.Context, name string, props map[string]any)
}
