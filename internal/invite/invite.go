// internal/invite/invite.go
//
// Invite-link lifecycle.
//
// Context
// -------
// Admins mint invite links that grant a role on acceptance.  A link is
// valid while it is unrevoked, unexpired, and under its use ceiling.
// Acceptance is a single conditional UPDATE so two racers cannot both
// consume the last use.
package invite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrInvalid covers every dead-link case: unknown token, revoked, expired,
// or out of uses.  Callers get one error on purpose; an invite endpoint
// that distinguishes "expired" from "unknown" leaks token validity.
var ErrInvalid = errors.New("invite: link is not valid")

// Record mirrors one row in the `invite` table.
type Record struct {
	ID        uint64     `db:"id"`
	OrgID     string     `db:"org_id"`
	Token     string     `db:"token"`
	Role      string     `db:"role"` // role name granted on accept
	MaxUses   int        `db:"max_uses"`
	UseCount  int        `db:"use_count"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedBy string     `db:"created_by"` // member id
	CreatedAt time.Time  `db:"created_at"`
}

// NewToken returns a 32-hex-char random token.
func NewToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// Create mints a link.  rec.Token is filled when empty.
func Create(ctx context.Context, db *sqlx.DB, rec *Record) (uint64, error) {
	if rec.Token == "" {
		tok, err := NewToken()
		if err != nil {
			return 0, err
		}
		rec.Token = tok
	}

	const q = `
        INSERT INTO invite (org_id, token, role, max_uses, use_count, expires_at, created_by)
        VALUES (:org_id, :token, :role, :max_uses, 0, :expires_at, :created_by)`
	res, err := db.NamedExecContext(ctx, q, rec)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// ByToken resolves a token to its record without consuming a use.  Dead
// links return ErrInvalid.
func ByToken(ctx context.Context, db *sqlx.DB, token string) (*Record, error) {
	const q = `
        SELECT * FROM invite
        WHERE  token = ?
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalid
		}
		return nil, err
	}
	if rec.RevokedAt != nil || time.Now().After(rec.ExpiresAt) || rec.UseCount >= rec.MaxUses {
		return nil, ErrInvalid
	}
	return &rec, nil
}

// Accept consumes one use and returns the accepted record.  The guard
// conditions live in the UPDATE itself; zero rows affected means the link
// died between resolution and acceptance.
func Accept(ctx context.Context, db *sqlx.DB, token string) (*Record, error) {
	const q = `
        UPDATE invite SET use_count = use_count + 1
        WHERE  token = ?
          AND  revoked_at IS NULL
          AND  expires_at > NOW()
          AND  use_count < max_uses`
	res, err := db.ExecContext(ctx, q, token)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrInvalid
	}

	var rec Record
	if err := db.GetContext(ctx, &rec, `SELECT * FROM invite WHERE token = ? LIMIT 1`, token); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Revoke kills a link immediately.
func Revoke(ctx context.Context, db *sqlx.DB, orgID string, id uint64) error {
	const q = `
        UPDATE invite SET revoked_at = NOW()
        WHERE  id = ? AND org_id = ? AND revoked_at IS NULL`
	_, err := db.ExecContext(ctx, q, id, orgID)
	return err
}

// PurgeExpired deletes links dead for longer than keep: expired, revoked,
// or fully consumed past the cutoff.  Run periodically by the scheduler.
func PurgeExpired(ctx context.Context, db *sqlx.DB, keep time.Duration) (int64, error) {
	const q = `
        DELETE FROM invite
        WHERE  expires_at < ?
           OR  revoked_at < ?
           OR (use_count >= max_uses AND created_at < ?)`
	cutoff := time.Now().Add(-keep)
	res, err := db.ExecContext(ctx, q, cutoff, cutoff, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
