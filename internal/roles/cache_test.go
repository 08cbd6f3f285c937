// internal/roles/cache_test.go
//
// Unit-tests for the TTL member cache.
//
// Context
// -------
// The clock is injected, so the tests move time by hand: a second lookup
// inside the TTL window must not touch the store, a lookup after expiry
// must, and Invalidate must force a reload immediately.

package roles

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

const memberQuery = `SELECT m.id FROM member m JOIN member_role mr ON mr.member_id = m.id JOIN role r ON r.id = mr.role_id WHERE r.org_id = ? AND r.name = ? AND r.enabled = TRUE`

func memberRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id"})
	for _, id := range ids {
		rows.AddRow(id)
	}
	return rows
}

func newCacheMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return sqlx.NewDb(raw, "sqlmock"), mock
}

func TestMemberCache_HitWithinTTL(t *testing.T) {
	db, mock := newCacheMock(t)
	defer db.Close()

	now := time.Unix(1000, 0)
	c := NewMemberCache(db, time.Minute, func() time.Time { return now })

	// Exactly one store query for two lookups.
	mock.ExpectQuery(regexp.QuoteMeta(memberQuery)).
		WithArgs("org-1", "officer").
		WillReturnRows(memberRows("m1", "m2"))

	for i := 0; i < 2; i++ {
		ids, err := c.Members(context.Background(), "org-1", "officer")
		if err != nil {
			t.Fatalf("Members: %v", err)
		}
		if len(ids) != 2 || ids[0] != "m1" {
			t.Fatalf("ids = %v", ids)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestMemberCache_TTLExpiry(t *testing.T) {
	db, mock := newCacheMock(t)
	defer db.Close()

	now := time.Unix(1000, 0)
	c := NewMemberCache(db, time.Minute, func() time.Time { return now })

	mock.ExpectQuery(regexp.QuoteMeta(memberQuery)).
		WithArgs("org-1", "officer").
		WillReturnRows(memberRows("m1"))
	mock.ExpectQuery(regexp.QuoteMeta(memberQuery)).
		WithArgs("org-1", "officer").
		WillReturnRows(memberRows("m1", "m9"))

	if _, err := c.Members(context.Background(), "org-1", "officer"); err != nil {
		t.Fatalf("first lookup: %v", err)
	}

	now = now.Add(time.Minute + time.Second)

	ids, err := c.Members(context.Background(), "org-1", "officer")
	if err != nil {
		t.Fatalf("post-expiry lookup: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("stale entry served after TTL: %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestMemberCache_Invalidate(t *testing.T) {
	db, mock := newCacheMock(t)
	defer db.Close()

	now := time.Unix(1000, 0)
	c := NewMemberCache(db, time.Hour, func() time.Time { return now })

	mock.ExpectQuery(regexp.QuoteMeta(memberQuery)).
		WillReturnRows(memberRows("m1"))
	mock.ExpectQuery(regexp.QuoteMeta(memberQuery)).
		WillReturnRows(memberRows("m1", "m2"))

	if _, err := c.Members(context.Background(), "org-1", "officer"); err != nil {
		t.Fatalf("first lookup: %v", err)
	}

	c.Invalidate("org-1", "officer")

	ids, err := c.Members(context.Background(), "org-1", "officer")
	if err != nil {
		t.Fatalf("post-invalidate lookup: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("invalidate did not force a reload: %v", ids)
	}
}

func TestMemberCache_InvalidateOrg(t *testing.T) {
	db, mock := newCacheMock(t)
	defer db.Close()

	c := NewMemberCache(db, time.Hour, nil)

	mock.ExpectQuery(regexp.QuoteMeta(memberQuery)).WillReturnRows(memberRows("m1"))
	mock.ExpectQuery(regexp.QuoteMeta(memberQuery)).WillReturnRows(memberRows("m2"))

	c.Members(context.Background(), "org-1", "officer")
	c.Members(context.Background(), "org-2", "officer")

	c.InvalidateOrg("org-1")

	if c.Len() != 1 {
		t.Fatalf("entries = %d, want the other org's entry to survive", c.Len())
	}
}
