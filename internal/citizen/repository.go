// internal/citizen/repository.go
//
// Store access for canonical citizens.
//
// Context
// -------
// Upsert is the write path the sync engine drives.  Semantics:
//
//   - create: every field is written, including org_id.
//   - update: every field EXCEPT org_id is written.  Excluding the tenant
//     key on update prevents a mis-configured sync run from re-parenting an
//     existing citizen to a different organization.
//
// MySQL reports the branch through RowsAffected on INSERT … ON DUPLICATE
// KEY UPDATE: 1 for a fresh insert, 2 for an update that changed values,
// and 0 for an update that matched identical values.  We map 1 → created
// and everything else → updated, which keeps the created/updated statistics
// accurate without a second round-trip.
package citizen

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Upsert writes rec by its natural key and reports whether a new row was
// created.
func Upsert(ctx context.Context, db *sqlx.DB, rec *Record) (created bool, err error) {
	const q = `
        INSERT INTO citizen (
            citizen_id, org_id,
            display_name, first_name, last_name, dob, gender, phone, nationality,
            money, charinfo, job, gang, position, metadata, inventory,
            fingerprint, blood_type, is_dead, is_handcuffed, jail_minutes
        ) VALUES (
            :citizen_id, :org_id,
            :display_name, :first_name, :last_name, :dob, :gender, :phone, :nationality,
            :money, :charinfo, :job, :gang, :position, :metadata, :inventory,
            :fingerprint, :blood_type, :is_dead, :is_handcuffed, :jail_minutes
        )
        ON DUPLICATE KEY UPDATE
            display_name  = VALUES(display_name),
            first_name    = VALUES(first_name),
            last_name     = VALUES(last_name),
            dob           = VALUES(dob),
            gender        = VALUES(gender),
            phone         = VALUES(phone),
            nationality   = VALUES(nationality),
            money         = VALUES(money),
            charinfo      = VALUES(charinfo),
            job           = VALUES(job),
            gang          = VALUES(gang),
            position      = VALUES(position),
            metadata      = VALUES(metadata),
            inventory     = VALUES(inventory),
            fingerprint   = VALUES(fingerprint),
            blood_type    = VALUES(blood_type),
            is_dead       = VALUES(is_dead),
            is_handcuffed = VALUES(is_handcuffed),
            jail_minutes  = VALUES(jail_minutes)`

	res, err := db.NamedExecContext(ctx, q, rec)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ByCitizenID fetches one citizen by natural key within an organization.
func ByCitizenID(ctx context.Context, db *sqlx.DB, orgID, citizenID string) (*Record, error) {
	const q = `
        SELECT * FROM citizen
        WHERE  org_id = ? AND citizen_id = ?
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, orgID, citizenID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ByOrg lists citizens for one organization, newest first, with simple
// limit/offset paging.
func ByOrg(ctx context.Context, db *sqlx.DB, orgID string, limit, offset int) ([]Record, error) {
	const q = `
        SELECT * FROM citizen
        WHERE  org_id = ?
        ORDER  BY updated_at DESC
        LIMIT  ? OFFSET ?`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, orgID, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}
