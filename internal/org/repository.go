package org

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const selectCols = `id, name, slug, api_url, api_key, metadata,
               sync_interval_s, last_synced_at, suspended_at, deleted_at,
               created_at, updated_at`

// AllActive returns every organization that is neither suspended nor
// deleted.  The scheduler uses this to build its run list.
func AllActive(ctx context.Context, db *sqlx.DB) ([]Record, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   organization
        WHERE  suspended_at IS NULL
          AND  deleted_at   IS NULL`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByID fetches a single organization that is not suspended or deleted.  The
// caller supplies a context so the lookup respects request deadlines.
func ByID(ctx context.Context, db *sqlx.DB, id string) (*Record, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   organization
        WHERE  id = ?
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// BySlug is the vanity-URL variant of ByID.
func BySlug(ctx context.Context, db *sqlx.DB, slug string) (*Record, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   organization
        WHERE  slug = ?
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, slug); err != nil {
		return nil, err
	}
	return &rec, nil
}

// TouchLastSynced advances last_synced_at to NOW().  Called by the sync
// route after every successful run; the timestamp always moves forward even
// when the run changed nothing (freshness tracking, not change tracking).
func TouchLastSynced(ctx context.Context, db *sqlx.DB, id string) error {
	const q = `UPDATE organization SET last_synced_at = NOW() WHERE id = ?`
	_, err := db.ExecContext(ctx, q, id)
	return err
}
