package mysql

const insertExportSQL = `
INSERT INTO export_audit
  (id, app_id, store, requested, fetched, returned, dropped, duration_ms)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const insertMissSQL = `
INSERT INTO lookup_misses (app_id, store, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  reason  = VALUES(reason),
  hits    = hits + 1,
  seen_at = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Newest first; served by idx_export_audit_app.
const recentExportsSQL = `
SELECT id, app_id, store, requested, fetched, returned, dropped, duration_ms, created_at
FROM export_audit
WHERE app_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`

const getMissSQL = `
SELECT app_id, store, reason, hits, seen_at
FROM lookup_misses
WHERE app_id = ? AND store = ?
`
