// internal/gameapi/types.go
//
// Raw payload shapes as the two game-server frameworks emit them.
//
// Context
// -------
// ESX and QBCore disagree about nearly everything: field names, where the
// character sheet lives (top-level columns vs a `charinfo` blob), money
// account names, and whether sub-documents arrive as JSON objects or as
// JSON-encoded *strings* (both happen in the wild, sometimes in the same
// payload).  Fields that suffer from the string-or-object ambiguity are
// declared json.RawMessage and decoded through parseIfString.
//
// Vehicles are the one payload both frameworks share.
package gameapi

import "encoding/json"

//
// ESX
//

// ESXCitizen is one element of GET {base}/esx/citizens.
type ESXCitizen struct {
	Identifier  string `json:"identifier" validate:"required"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Dateofbirth string `json:"dateofbirth"`
	Sex         string `json:"sex"`
	PhoneNumber string `json:"phone_number"`
	Nationality string `json:"nationality"`

	Accounts  json.RawMessage `json:"accounts"`  // {money, bank, black_money}
	Job       string          `json:"job"`
	JobGrade  int             `json:"job_grade"`
	Status    json.RawMessage `json:"status"`    // [{name, percent, val}, …]
	Position  json.RawMessage `json:"position"`  // {x, y, z, heading}
	Inventory json.RawMessage `json:"inventory"` // framework-defined
	Metadata  json.RawMessage `json:"metadata"`  // rarely present on ESX
}

// esxAccounts is the decoded shape of ESXCitizen.Accounts.
type esxAccounts struct {
	Money      float64 `json:"money"`
	Bank       float64 `json:"bank"`
	BlackMoney float64 `json:"black_money"`
}

// statusEffect is one element of ESXCitizen.Status.
type statusEffect struct {
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
	Val     float64 `json:"val"`
}

//
// QBCore
//

// QBCitizen is one element of GET {base}/qbcore/citizens.
type QBCitizen struct {
	CitizenID string `json:"citizenid" validate:"required"`
	License   string `json:"license"`
	Name      string `json:"name"`

	Money     json.RawMessage `json:"money"`    // {cash, bank, crypto}
	Charinfo  json.RawMessage `json:"charinfo"` // {firstname, lastname, birthdate, gender, phone, nationality}
	Job       json.RawMessage `json:"job"`
	Gang      json.RawMessage `json:"gang"`
	Position  json.RawMessage `json:"position"`
	Metadata  json.RawMessage `json:"metadata"` // hunger, thirst, fingerprint, bloodtype, isdead, ishandcuffed, injail, …
	Inventory json.RawMessage `json:"inventory"`

	LastUpdated int64 `json:"last_updated"` // epoch seconds
}

// qbCharinfo is the decoded shape of QBCitizen.Charinfo.  Gender arrives as
// 0/1 on stock QBCore and as a string on some forks, hence json.Number via
// any.
type qbCharinfo struct {
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Birthdate   string `json:"birthdate"`
	Gender      any    `json:"gender"`
	Phone       string `json:"phone"`
	Nationality string `json:"nationality"`
}

// qbMetadata decodes only the keys promoted to first-class columns; the
// whole blob is still stored verbatim.
type qbMetadata struct {
	Hunger       float64 `json:"hunger"`
	Thirst       float64 `json:"thirst"`
	Fingerprint  string  `json:"fingerprint"`
	BloodType    string  `json:"bloodtype"`
	IsDead       bool    `json:"isdead"`
	IsHandcuffed bool    `json:"ishandcuffed"`
	InJail       float64 `json:"injail"` // minutes remaining
}

//
// Vehicles (shared shape)
//

// RawVehicle is one element of GET {base}/vehicles/{citizenID}.  The owner
// key and a few epoch fields differ in name between frameworks; both
// spellings are declared and reconciled by the normalizer.
type RawVehicle struct {
	Plate     string `json:"plate" validate:"required"`
	CitizenID string `json:"citizenid"` // QBCore owner key
	Owner     string `json:"owner"`     // ESX owner key

	Vehicle string `json:"vehicle"` // model name
	Hash    int64  `json:"hash"`
	Brand   string `json:"brand"`
	Type    string `json:"type"`

	Garage string `json:"garage"`
	State  int    `json:"state"`

	Fuel    float64 `json:"fuel"`
	Engine  float64 `json:"engine"`
	Body    float64 `json:"body"`
	Mileage float64 `json:"drivingdistance"`

	Color        json.RawMessage `json:"color"`
	Damage       json.RawMessage `json:"damage"`
	Mods         json.RawMessage `json:"mods"`
	Glovebox     json.RawMessage `json:"glovebox"`
	Trunk        json.RawMessage `json:"trunk"`
	LastPosition json.RawMessage `json:"lastposition"`

	Balance       float64 `json:"balance"`
	PaymentsLeft  int     `json:"paymentsleft"`
	FinanceTime   int64   `json:"financetime"`   // epoch seconds, 0 → none
	ImpoundedTime int64   `json:"impoundedtime"` // QBCore spelling
	ImpoundTime   int64   `json:"impoundtime"`   // ESX spelling
	DepotPrice    float64 `json:"depotprice"`

	LastUpdate int64 `json:"last_update"` // epoch seconds, 0 → none
}
