// internal/invite/invite_test.go
//
// Unit-tests for invite-link validity and acceptance using sqlmock.

package invite

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

var inviteCols = []string{
	"id", "org_id", "token", "role", "max_uses", "use_count",
	"expires_at", "revoked_at", "created_by", "created_at",
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return sqlx.NewDb(raw, "sqlmock"), mock
}

func liveRow(token string) *sqlmock.Rows {
	return sqlmock.NewRows(inviteCols).AddRow(
		1, "org-1", token, "officer", 5, 1,
		time.Now().Add(time.Hour), nil, "m1", time.Now(),
	)
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	b, _ := NewToken()
	if len(a) != 32 || a == b {
		t.Fatalf("tokens must be 32 hex chars and unique: %q %q", a, b)
	}
}

func TestByToken_Live(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM invite WHERE token = ? LIMIT 1`)).
		WithArgs("tok-live").
		WillReturnRows(liveRow("tok-live"))

	rec, err := ByToken(context.Background(), db, "tok-live")
	if err != nil {
		t.Fatalf("ByToken: %v", err)
	}
	if rec.Role != "officer" || rec.OrgID != "org-1" {
		t.Fatalf("rec = %+v", rec)
	}
}

func TestByToken_DeadLinks(t *testing.T) {
	now := time.Now()
	revoked := now.Add(-time.Minute)

	cases := map[string]*sqlmock.Rows{
		"unknown": sqlmock.NewRows(inviteCols),
		"revoked": sqlmock.NewRows(inviteCols).AddRow(
			1, "org-1", "t", "officer", 5, 0, now.Add(time.Hour), revoked, "m1", now),
		"expired": sqlmock.NewRows(inviteCols).AddRow(
			1, "org-1", "t", "officer", 5, 0, now.Add(-time.Hour), nil, "m1", now),
		"exhausted": sqlmock.NewRows(inviteCols).AddRow(
			1, "org-1", "t", "officer", 5, 5, now.Add(time.Hour), nil, "m1", now),
	}

	for name, rows := range cases {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM invite WHERE token = ? LIMIT 1`)).
			WillReturnRows(rows)

		// Every dead-link flavor collapses into the same error on purpose.
		if _, err := ByToken(context.Background(), db, "t"); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: err = %v, want ErrInvalid", name, err)
		}
		db.Close()
	}
}

func TestByToken_StoreFailureIsNotInvalid(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	// A database outage must surface as an error, not as a dead link —
	// the caller turns ErrInvalid into 404 and everything else into 500.
	boom := errors.New("connection refused")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM invite WHERE token = ? LIMIT 1`)).
		WillReturnError(boom)

	_, err := ByToken(context.Background(), db, "t")
	if errors.Is(err, ErrInvalid) {
		t.Fatal("store failure masked as ErrInvalid")
	}
	if err == nil {
		t.Fatal("want error")
	}
}

func TestPurgeExpired_CoversAllDeadStates(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	// The DELETE must reap revoked and exhausted links too, not only the
	// expired ones; otherwise they accumulate forever.
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM invite WHERE expires_at < ? OR revoked_at < ? OR (use_count >= max_uses AND created_at < ?)`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := PurgeExpired(context.Background(), db, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 3 {
		t.Fatalf("purged = %d, want 3", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAccept_ConsumesUse(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE invite SET use_count = use_count + 1`)).
		WithArgs("tok-live").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM invite WHERE token = ? LIMIT 1`)).
		WithArgs("tok-live").
		WillReturnRows(liveRow("tok-live"))

	rec, err := Accept(context.Background(), db, "tok-live")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if rec.Role != "officer" {
		t.Fatalf("rec = %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAccept_DeadLink(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	// Zero rows affected: the guard in the UPDATE rejected the link.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE invite SET use_count = use_count + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := Accept(context.Background(), db, "tok-dead"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}
