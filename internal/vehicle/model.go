// internal/vehicle/model.go
//
// Canonical vehicle record.
//
// Context
// -------
// One row per plate.  The plate is the natural key, so a plate transferred
// between citizens in-game simply reassigns CitizenID on the next sync
// (last-write-wins; at most one live owner per plate at any time).
//
// Epoch-seconds fields from the game server (`lastupdate`,
// `impoundedtime`, `financetime`) are converted to nullable timestamps at
// normalization time; zero or absent maps to NULL, never to the 1970
// epoch.
package vehicle

import "time"

// Record mirrors one row in the `vehicle` table.
type Record struct {
	ID        uint64 `db:"id"`
	Plate     string `db:"plate"` // natural key, unique
	CitizenID string `db:"citizen_id"`
	OrgID     string `db:"org_id"`

	Model string `db:"model"`
	Brand string `db:"brand"`
	Type  string `db:"type"`

	EngineHealth float64 `db:"engine_health"`
	BodyHealth   float64 `db:"body_health"`
	Fuel         float64 `db:"fuel"`
	Mileage      float64 `db:"mileage"`

	// Opaque JSON sub-documents, serialized text.
	Color        string `db:"color"`
	Damage       string `db:"damage"`
	Mods         string `db:"mods"`
	Glovebox     string `db:"glovebox"`
	Trunk        string `db:"trunk"`
	LastPosition string `db:"last_position"`

	// Financing and impound state.
	Garage       string     `db:"garage"`
	State        int        `db:"state"`
	Balance      float64    `db:"balance"`
	PaymentsLeft int        `db:"payments_left"`
	FinancedAt   *time.Time `db:"financed_at"`
	ImpoundedAt  *time.Time `db:"impounded_at"`
	DepotPrice   float64    `db:"depot_price"`

	LastUpdatedAt *time.Time `db:"last_updated_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}
