// internal/org/syncconfig.go
//
// Extraction of the per-organization sync configuration.
//
// Context
// -------
// The dashboard persists its settings inside the organization `metadata`
// JSON blob.  The sync engine needs exactly two things from it: which
// external system the game server runs (`syncSystem`) and nothing else.
// The base URL and interval live in first-class columns.
//
// The `syncSystem` value originates from user-supplied settings, so a
// defensive runtime check is required here at the trust boundary even
// though the System type makes bad values unrepresentable further in.
package org

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// System enumerates the two supported external game-server frameworks.
type System string

const (
	SystemESX    System = "esx"
	SystemQBCore System = "qbcore"
)

// ErrNoAPIURL is returned when an organization has no game-server API URL
// configured.  The sync engine fails fast on it before any network call.
var ErrNoAPIURL = errors.New("organization has no api_url configured")

// SyncConfig is everything one sync run needs to know about its tenant.
type SyncConfig struct {
	OrgID    string
	System   System
	BaseURL  string
	APIToken string
	Interval time.Duration
}

// metadataBlob models only the keys the sync engine reads; the rest of the
// blob (role schema, feature flags) passes through untouched.
type metadataBlob struct {
	SyncSystem string `json:"syncSystem"`
	APIToken   string `json:"apiToken"`
}

// SyncConfigOf extracts and validates the sync configuration for one
// organization.  defaultInterval applies when sync_interval_s is zero.
func SyncConfigOf(rec *Record, defaultInterval time.Duration) (*SyncConfig, error) {
	if rec.APIURL == "" {
		return nil, ErrNoAPIURL
	}

	var meta metadataBlob
	if rec.Metadata != "" {
		// A malformed blob is a configuration error, not a crash.
		if err := json.Unmarshal([]byte(rec.Metadata), &meta); err != nil {
			return nil, fmt.Errorf("organization %s: malformed metadata: %w", rec.ID, err)
		}
	}

	sys := System(meta.SyncSystem)
	switch sys {
	case SystemESX, SystemQBCore:
	case "":
		return nil, fmt.Errorf("organization %s: metadata has no syncSystem", rec.ID)
	default:
		return nil, fmt.Errorf("organization %s: unknown syncSystem %q", rec.ID, meta.SyncSystem)
	}

	interval := defaultInterval
	if rec.SyncIntervalS > 0 {
		interval = time.Duration(rec.SyncIntervalS) * time.Second
	}

	return &SyncConfig{
		OrgID:    rec.ID,
		System:   sys,
		BaseURL:  rec.APIURL,
		APIToken: meta.APIToken,
		Interval: interval,
	}, nil
}
