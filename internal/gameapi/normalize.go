// internal/gameapi/normalize.go
//
// Pure mapping from raw framework payloads to canonical records.
//
// Context
// -------
// One variant function per citizen shape, both producing the same canonical
// citizen.Record; one shared function for vehicles.  Normalization never
// drops, merges, or fails a record: malformed sub-documents and invalid
// dates are recovered locally with a logged warning and a documented
// default so one rotten field cannot sink a sync run.
//
// Defaults
// --------
//   - missing first/last name        → "Unknown"
//   - missing/invalid birthdate      → 2000-01-01 (sentinel)
//   - absent status effect           → 0
//   - absent money account           → 0
//   - epoch-seconds value of 0       → NULL timestamp, never the 1970 epoch
package gameapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stationhouse/citysync/internal/citizen"
	"github.com/stationhouse/citysync/internal/vehicle"
)

// fallbackDOB is stored when a birthdate is missing or unparseable.
var fallbackDOB = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// dobLayouts are tried in order.  ESX servers ship both ISO and the
// day-first form depending on locale.
var dobLayouts = []string{"2006-01-02", "02/01/2006", "01/02/2006"}

// moneyDoc is the canonical wallet document, stored as JSON text.
type moneyDoc struct {
	Cash   float64 `json:"cash"`
	Bank   float64 `json:"bank"`
	Crypto float64 `json:"crypto"`
}

//
// ESX
//

// NormalizeESXCitizen maps one ESX citizen onto the canonical record.
func NormalizeESXCitizen(orgID string, in *ESXCitizen) *citizen.Record {
	first := defaultName(in.Firstname)
	last := defaultName(in.Lastname)

	var acc esxAccounts
	if err := parseIfString(in.Accounts, &acc); err != nil {
		zap.S().Warnw("esx accounts unparseable, defaulting to zero",
			"citizen", in.Identifier, "err", err)
	}
	money := mustJSON(moneyDoc{Cash: acc.Money, Bank: acc.Bank, Crypto: acc.BlackMoney})

	var effects []statusEffect
	if err := parseIfString(in.Status, &effects); err != nil {
		zap.S().Warnw("esx status unparseable, effects default to zero",
			"citizen", in.Identifier, "err", err)
	}

	// ESX keeps hunger/thirst in the status array; the canonical record
	// carries them inside metadata like QBCore does.
	meta := map[string]any{}
	if err := parseIfString(in.Metadata, &meta); err != nil {
		zap.S().Warnw("esx metadata unparseable, starting empty",
			"citizen", in.Identifier, "err", err)
		meta = map[string]any{}
	}
	meta["hunger"] = effectPercent(effects, "hunger")
	meta["thirst"] = effectPercent(effects, "thirst")

	charinfo := mustJSON(map[string]any{
		"firstname":   first,
		"lastname":    last,
		"birthdate":   in.Dateofbirth,
		"gender":      in.Sex,
		"phone":       in.PhoneNumber,
		"nationality": in.Nationality,
	})

	rec := &citizen.Record{
		CitizenID:   in.Identifier,
		OrgID:       orgID,
		DisplayName: strings.TrimSpace(first + " " + last),
		FirstName:   first,
		LastName:    last,
		DOB:         parseDOB(in.Dateofbirth, in.Identifier),
		Gender:      in.Sex,
		Phone:       in.PhoneNumber,
		Nationality: in.Nationality,
		Money:       money,
		Charinfo:    charinfo,
		Job:         mustJSON(map[string]any{"name": in.Job, "grade": in.JobGrade}),
		Gang:        "{}", // ESX has no gang system
		Position:    canonicalJSON(in.Position, "{}"),
		Metadata:    mustJSON(meta),
		Inventory:   canonicalJSON(in.Inventory, "[]"),
	}
	applyMetaScalars(rec, meta)
	return rec
}

//
// QBCore
//

// NormalizeQBCitizen maps one QBCore citizen onto the canonical record.
func NormalizeQBCitizen(orgID string, in *QBCitizen) *citizen.Record {
	var chi qbCharinfo
	if err := parseIfString(in.Charinfo, &chi); err != nil {
		zap.S().Warnw("qbcore charinfo unparseable, using defaults",
			"citizen", in.CitizenID, "err", err)
	}
	first := defaultName(chi.Firstname)
	last := defaultName(chi.Lastname)

	display := in.Name
	if display == "" {
		display = strings.TrimSpace(first + " " + last)
	}

	var money moneyDoc
	if err := parseIfString(in.Money, &money); err != nil {
		zap.S().Warnw("qbcore money unparseable, defaulting to zero",
			"citizen", in.CitizenID, "err", err)
	}

	var meta qbMetadata
	if err := parseIfString(in.Metadata, &meta); err != nil {
		zap.S().Warnw("qbcore metadata unparseable, derived scalars default",
			"citizen", in.CitizenID, "err", err)
	}

	return &citizen.Record{
		CitizenID:    in.CitizenID,
		OrgID:        orgID,
		DisplayName:  display,
		FirstName:    first,
		LastName:     last,
		DOB:          parseDOB(chi.Birthdate, in.CitizenID),
		Gender:       genderString(chi.Gender),
		Phone:        chi.Phone,
		Nationality:  chi.Nationality,
		Money:        mustJSON(money),
		Charinfo:     canonicalJSON(in.Charinfo, "{}"),
		Job:          canonicalJSON(in.Job, "{}"),
		Gang:         canonicalJSON(in.Gang, "{}"),
		Position:     canonicalJSON(in.Position, "{}"),
		Metadata:     canonicalJSON(in.Metadata, "{}"),
		Inventory:    canonicalJSON(in.Inventory, "[]"),
		Fingerprint:  meta.Fingerprint,
		BloodType:    meta.BloodType,
		IsDead:       meta.IsDead,
		IsHandcuffed: meta.IsHandcuffed,
		JailMinutes:  int(meta.InJail),
	}
}

//
// Vehicles
//

// NormalizeVehicle maps one raw vehicle onto the canonical record.
// ownerID is the citizen whose endpoint produced the payload; it is used
// when the payload itself names no owner.
func NormalizeVehicle(orgID, ownerID string, in *RawVehicle) *vehicle.Record {
	owner := in.CitizenID
	if owner == "" {
		owner = in.Owner
	}
	if owner == "" {
		owner = ownerID
	}

	// The two frameworks spell the impound timestamp differently.
	impound := in.ImpoundedTime
	if impound == 0 {
		impound = in.ImpoundTime
	}

	return &vehicle.Record{
		Plate:         in.Plate,
		CitizenID:     owner,
		OrgID:         orgID,
		Model:         in.Vehicle,
		Brand:         defaultBrand(in.Brand, in.Hash),
		Type:          in.Type,
		EngineHealth:  in.Engine,
		BodyHealth:    in.Body,
		Fuel:          in.Fuel,
		Mileage:       in.Mileage,
		Color:         canonicalJSON(in.Color, "{}"),
		Damage:        canonicalJSON(in.Damage, "{}"),
		Mods:          canonicalJSON(in.Mods, "{}"),
		Glovebox:      canonicalJSON(in.Glovebox, "[]"),
		Trunk:         canonicalJSON(in.Trunk, "[]"),
		LastPosition:  canonicalJSON(in.LastPosition, "{}"),
		Garage:        in.Garage,
		State:         in.State,
		Balance:       in.Balance,
		PaymentsLeft:  in.PaymentsLeft,
		FinancedAt:    epochToTime(in.FinanceTime),
		ImpoundedAt:   epochToTime(impound),
		DepotPrice:    in.DepotPrice,
		LastUpdatedAt: epochToTime(in.LastUpdate),
	}
}

//
// Helpers
//

// epochToTime converts epoch seconds to a UTC timestamp.  Zero or negative
// input means "never happened" and maps to nil, not to 1970.
func epochToTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// parseDOB tries the known birthdate layouts.  Invalid input logs a
// warning and yields the sentinel date; it never fails the record.
func parseDOB(s, citizenID string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallbackDOB
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	zap.S().Warnw("unparseable birthdate, substituting sentinel",
		"citizen", citizenID, "dob", s)
	return fallbackDOB
}

// effectPercent looks a status effect up by name, 0 when absent.
func effectPercent(effects []statusEffect, name string) float64 {
	for _, e := range effects {
		if strings.EqualFold(e.Name, name) {
			return e.Percent
		}
	}
	return 0
}

func defaultName(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

// defaultBrand falls back to the model hash when the bridge sends no brand.
func defaultBrand(brand string, hash int64) string {
	if brand != "" || hash == 0 {
		return brand
	}
	return fmt.Sprintf("hash:%d", hash)
}

// applyMetaScalars lifts the derived scalar fields out of a free-form ESX
// metadata document.  Absent or mistyped keys leave the zero value in place.
func applyMetaScalars(rec *citizen.Record, meta map[string]any) {
	if s, ok := meta["fingerprint"].(string); ok {
		rec.Fingerprint = s
	}
	if s, ok := meta["bloodtype"].(string); ok {
		rec.BloodType = s
	}
	rec.IsDead = metaBool(meta["isdead"])
	rec.IsHandcuffed = metaBool(meta["ishandcuffed"])
	if n, ok := meta["injail"].(float64); ok {
		rec.JailMinutes = int(n)
	}
}

// metaBool copes with Lua bridges emitting booleans as true/false or 0/1.
func metaBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	default:
		return false
	}
}

// genderString copes with QBCore emitting gender as 0/1 or as a string.
func genderString(g any) string {
	switch v := g.(type) {
	case string:
		return v
	case float64:
		if v == 1 {
			return "f"
		}
		return "m"
	default:
		return ""
	}
}

// mustJSON marshals values we constructed ourselves; they cannot fail.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
