package org

import "time"

// Record mirrors one row in the persistent `organization` table.  The
// operational state is captured by two nullable timestamps:
//
//   - SuspendedAt – organization is temporarily disabled (e.g., billing).
//   - DeletedAt   – organization is permanently removed.
//
// Either timestamp being non-NULL hides the organization from the scheduler
// and the HTTP surface.
//
// Metadata is an opaque JSON blob owned by the dashboard (role schema,
// feature flags, and the `syncSystem` selector live inside it).  The sync
// engine extracts `syncSystem` and nothing else.
type Record struct {
	ID            string     `db:"id"`
	Name          string     `db:"name"`
	Slug          string     `db:"slug"`
	APIURL        string     `db:"api_url"`
	APIKey        string     `db:"api_key"`
	Metadata      string     `db:"metadata"`
	SyncIntervalS int64      `db:"sync_interval_s"` // 0 → service default
	LastSyncedAt  *time.Time `db:"last_synced_at"`
	SuspendedAt   *time.Time `db:"suspended_at"`
	DeletedAt     *time.Time `db:"deleted_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}
