// internal/sync/store.go
//
// SQL-backed Store implementation over the citizen and vehicle
// repositories.  Kept as a thin adapter so the orchestrator and batch
// engine can be tested against an in-memory fake.
package sync

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/stationhouse/citysync/internal/citizen"
	"github.com/stationhouse/citysync/internal/vehicle"
)

// SQLStore satisfies Store using the shared MySQL pool.
type SQLStore struct {
	DB *sqlx.DB
}

func (s *SQLStore) UpsertCitizen(ctx context.Context, rec *citizen.Record) (bool, error) {
	return citizen.Upsert(ctx, s.DB, rec)
}

func (s *SQLStore) UpsertVehicle(ctx context.Context, rec *vehicle.Record) (bool, error) {
	return vehicle.Upsert(ctx, s.DB, rec)
}
