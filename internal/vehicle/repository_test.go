// internal/vehicle/repository_test.go
//
// Unit-tests for the vehicle upsert using sqlmock.  The structural assert
// mirrors the citizen one with the opposite twist: citizen_id MUST be in the
// update clause (plates change hands), org_id must not.

package vehicle

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T, seen *string) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(
		sqlmock.QueryMatcherFunc(func(_, actual string) error {
			if seen != nil {
				*seen = actual
			}
			return nil
		})))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return sqlx.NewDb(raw, "sqlmock"), mock
}

func sampleRecord() *Record {
	return &Record{
		Plate:     "AAA111",
		CitizenID: "char1:abc",
		OrgID:     "org-1",
		Color:     "{}", Damage: "{}", Mods: "{}",
		Glovebox: "[]", Trunk: "[]", LastPosition: "{}",
	}
}

func TestUpsert_Created(t *testing.T) {
	var seen string
	db, mock := newMockDB(t, &seen)
	defer db.Close()

	mock.ExpectExec("").WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := Upsert(context.Background(), db, sampleRecord())
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Fatal("RowsAffected 1 must report created")
	}

	flat := strings.Join(strings.Fields(seen), " ")
	if !strings.Contains(flat, "citizen_id = VALUES(citizen_id)") {
		t.Fatal("ownership must transfer on update")
	}
	if strings.Contains(flat, "org_id = VALUES(org_id)") {
		t.Fatal("update clause must never rewrite org_id")
	}
}

func TestUpsert_Updated(t *testing.T) {
	db, mock := newMockDB(t, nil)
	defer db.Close()

	mock.ExpectExec("").WillReturnResult(sqlmock.NewResult(0, 2))

	created, err := Upsert(context.Background(), db, sampleRecord())
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created {
		t.Fatal("RowsAffected 2 must report updated")
	}
}
