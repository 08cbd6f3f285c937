// internal/citizen/model.go
//
// Canonical citizen record.
//
// Context
// -------
// One row per game-server character, keyed by the framework's citizen
// identifier (ESX `identifier` or QBCore `citizenid`).  The JSON
// sub-documents arrive from the game server in divergent shapes; the
// normalizer (internal/gameapi) flattens both frameworks into this one
// form before anything touches the store.
//
// The sub-documents are stored as serialized text and treated as opaque by
// the rest of the service.  A handful of scalars (fingerprint, blood type,
// dead, handcuffed, jail minutes) are extracted from `metadata` at
// normalization time so the dashboard can index and filter on them without
// JSON functions in every query.
package citizen

import "time"

// Record mirrors one row in the `citizen` table.
type Record struct {
	ID        uint64 `db:"id"`
	CitizenID string `db:"citizen_id"` // natural key, unique
	OrgID     string `db:"org_id"`

	DisplayName string    `db:"display_name"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	DOB         time.Time `db:"dob"`
	Gender      string    `db:"gender"`
	Phone       string    `db:"phone"`
	Nationality string    `db:"nationality"`

	// Opaque JSON sub-documents, serialized text.
	Money     string `db:"money"`
	Charinfo  string `db:"charinfo"`
	Job       string `db:"job"`
	Gang      string `db:"gang"`
	Position  string `db:"position"`
	Metadata  string `db:"metadata"`
	Inventory string `db:"inventory"`

	// Scalars derived from Metadata for indexing.
	Fingerprint  string `db:"fingerprint"`
	BloodType    string `db:"blood_type"`
	IsDead       bool   `db:"is_dead"`
	IsHandcuffed bool   `db:"is_handcuffed"`
	JailMinutes  int    `db:"jail_minutes"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
