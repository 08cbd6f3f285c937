// internal/fine/fine.go
//
// Fines issued by the community against citizens.
//
// Context
// -------
// Fines are dashboard-native data: the sync engine never writes them, so a
// citizen row may accumulate fines across many sync passes without the
// feed ever knowing.  The citizen is referenced by its natural key
// (citizen_id string), not the surrogate row id, so fines survive a
// re-seeded citizen table.
package fine

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// Statuses a fine moves through.  Paid and void are terminal.
const (
	StatusUnpaid = "unpaid"
	StatusPaid   = "paid"
	StatusVoid   = "void"
)

// ErrNotOpen is returned when paying or voiding a fine that is not unpaid.
var ErrNotOpen = errors.New("fine: not in unpaid state")

// Record mirrors one row in the `fine` table.
type Record struct {
	ID        uint64     `db:"id"`
	OrgID     string     `db:"org_id"`
	CitizenID string     `db:"citizen_id"`
	IssuedBy  string     `db:"issued_by"` // member id
	Reason    string     `db:"reason"`
	Amount    float64    `db:"amount"`
	Status    string     `db:"status"`
	IssuedAt  time.Time  `db:"issued_at"`
	PaidAt    *time.Time `db:"paid_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// Issue inserts a new unpaid fine and returns its id.
func Issue(ctx context.Context, db *sqlx.DB, rec *Record) (uint64, error) {
	const q = `
        INSERT INTO fine (org_id, citizen_id, issued_by, reason, amount, status, issued_at)
        VALUES (:org_id, :citizen_id, :issued_by, :reason, :amount, 'unpaid', NOW())`
	res, err := db.NamedExecContext(ctx, q, rec)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// Pay marks an unpaid fine paid.  Paying a paid or void fine is rejected
// with ErrNotOpen; the state machine only moves forward.
func Pay(ctx context.Context, db *sqlx.DB, orgID string, id uint64) error {
	const q = `
        UPDATE fine SET status = 'paid', paid_at = NOW()
        WHERE  id = ? AND org_id = ? AND status = 'unpaid'`
	res, err := db.ExecContext(ctx, q, id, orgID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotOpen
	}
	return nil
}

// Void cancels an unpaid fine.
func Void(ctx context.Context, db *sqlx.DB, orgID string, id uint64) error {
	const q = `
        UPDATE fine SET status = 'void'
        WHERE  id = ? AND org_id = ? AND status = 'unpaid'`
	res, err := db.ExecContext(ctx, q, id, orgID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotOpen
	}
	return nil
}

// ByCitizen lists a citizen's fines, newest first.
func ByCitizen(ctx context.Context, db *sqlx.DB, orgID, citizenID string) ([]Record, error) {
	const q = `
        SELECT * FROM fine
        WHERE  org_id = ? AND citizen_id = ?
        ORDER  BY issued_at DESC`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, orgID, citizenID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByOrg lists an organization's fines with limit/offset paging.
func ByOrg(ctx context.Context, db *sqlx.DB, orgID string, limit, offset int) ([]Record, error) {
	const q = `
        SELECT * FROM fine
        WHERE  org_id = ?
        ORDER  BY issued_at DESC
        LIMIT  ? OFFSET ?`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, orgID, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}
