// internal/vehicle/repository.go
//
// Store access for canonical vehicles.  Same upsert contract as the citizen
// repository: create writes org_id, update leaves it alone, and MySQL's
// RowsAffected distinguishes the branch (1 insert, 2 update, 0 no-change).
//
// Unlike org_id, citizen_id IS written on update: plates change hands
// in-game and ownership must follow the feed.
package vehicle

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Upsert writes rec by plate and reports whether a new row was created.
func Upsert(ctx context.Context, db *sqlx.DB, rec *Record) (created bool, err error) {
	const q = `
        INSERT INTO vehicle (
            plate, citizen_id, org_id,
            model, brand, type,
            engine_health, body_health, fuel, mileage,
            color, damage, mods, glovebox, trunk, last_position,
            garage, state, balance, payments_left, financed_at,
            impounded_at, depot_price, last_updated_at
        ) VALUES (
            :plate, :citizen_id, :org_id,
            :model, :brand, :type,
            :engine_health, :body_health, :fuel, :mileage,
            :color, :damage, :mods, :glovebox, :trunk, :last_position,
            :garage, :state, :balance, :payments_left, :financed_at,
            :impounded_at, :depot_price, :last_updated_at
        )
        ON DUPLICATE KEY UPDATE
            citizen_id      = VALUES(citizen_id),
            model           = VALUES(model),
            brand           = VALUES(brand),
            type            = VALUES(type),
            engine_health   = VALUES(engine_health),
            body_health     = VALUES(body_health),
            fuel            = VALUES(fuel),
            mileage         = VALUES(mileage),
            color           = VALUES(color),
            damage          = VALUES(damage),
            mods            = VALUES(mods),
            glovebox        = VALUES(glovebox),
            trunk           = VALUES(trunk),
            last_position   = VALUES(last_position),
            garage          = VALUES(garage),
            state           = VALUES(state),
            balance         = VALUES(balance),
            payments_left   = VALUES(payments_left),
            financed_at     = VALUES(financed_at),
            impounded_at    = VALUES(impounded_at),
            depot_price     = VALUES(depot_price),
            last_updated_at = VALUES(last_updated_at)`

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

// ByPlate fetches one vehicle by natural key within an organization.
func ByPlate(ctx context.Context, db *sqlx.DB, orgID, plate string) (*Record, error) {
	const q = `
        SELECT * FROM vehicle
        WHERE  org_id = ? AND plate = ?
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, orgID, plate); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ByCitizen lists the vehicles owned by one citizen.
func ByCitizen(ctx context.Context, db *sqlx.DB, orgID, citizenID string) ([]Record, error) {
	const q = `
        SELECT * FROM vehicle
        WHERE  org_id = ? AND citizen_id = ?
        ORDER  BY plate`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, orgID, citizenID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByOrg lists vehicles for one organization with limit/offset paging.
func ByOrg(ctx context.Context, db *sqlx.DB, orgID string, limit, offset int) ([]Record, error) {
	const q = `
        SELECT * FROM vehicle
        WHERE  org_id = ?
        ORDER  BY updated_at DESC
        LIMIT  ? OFFSET ?`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, orgID, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}
