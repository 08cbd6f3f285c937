// internal/roles/store.go
//
// Small query helpers for custom roles and their members.
//
// Context
// -------
// The dashboard's role model lives in three tables:
//
//	role         (id PK, org_id, name, permissions, enabled)
//	member       (id PK, org_id, display_name)
//	member_role  (member_id, role_id)
//
// `permissions` is an opaque JSON blob owned by the dashboard UI.  This
// service stores and returns it verbatim; it never interprets individual
// permission keys.
//
// These helpers accept the shared *sqlx.DB and perform simple
// parameterised queries.  They are thin; the TTL cache in cache.go wraps
// the hot member-list path.
package roles

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Record mirrors one row in the `role` table.
type Record struct {
	ID          uint64 `db:"id"`
	OrgID       string `db:"org_id"`
	Name        string `db:"name"`
	Permissions string `db:"permissions"` // opaque JSON blob
	Enabled     bool   `db:"enabled"`
}

// ByName fetches one enabled role within an organization.
func ByName(ctx context.Context, db *sqlx.DB, orgID, name string) (*Record, error) {
	const q = `
        SELECT id, org_id, name, permissions, enabled
        FROM   role
        WHERE  org_id = ? AND name = ? AND enabled = TRUE
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, orgID, name); err != nil {
		return nil, err
	}
	return &rec, nil
}

// MemberIDs returns the ids of every member holding the named role.
// Disabled roles yield an empty list, not an error.
func MemberIDs(ctx context.Context, db *sqlx.DB, orgID, roleName string) ([]string, error) {
	const q = `
        SELECT m.id
        FROM   member m
        JOIN   member_role mr ON mr.member_id = m.id
        JOIN   role r         ON r.id = mr.role_id
        WHERE  r.org_id = ? AND r.name = ? AND r.enabled = TRUE`

	ids := make([]string, 0, 8)
	if err := db.SelectContext(ctx, &ids, q, orgID, roleName); err != nil {
		return nil, err
	}
	return ids, nil
}

// HasRole reports whether one member holds the named role.  Empty inputs
// return false, nil.
func HasRole(ctx context.Context, db *sqlx.DB, orgID, memberID, roleName string) (bool, error) {
	if memberID == "" || roleName == "" {
		return false, nil
	}

	const q = `
        SELECT 1
        FROM   member_role mr
        JOIN   role r ON r.id = mr.role_id
        WHERE  r.org_id = ? AND r.name = ? AND r.enabled = TRUE
          AND  mr.member_id = ?
        LIMIT  1` // early exit once we find a hit

	var dummy int
	err := db.QueryRowContext(ctx, q, orgID, roleName, memberID).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
