// internal/org/syncconfig_test.go
//
// Unit-tests for sync-configuration extraction from the organization row.

package org

import (
	"errors"
	"testing"
	"time"
)

func baseRecord() *Record {
	return &Record{
		ID:       "org-1",
		APIURL:   "http://bridge.example",
		Metadata: `{"syncSystem":"esx","apiToken":"tok-1"}`,
	}
}

func TestSyncConfigOf_ESX(t *testing.T) {
	cfg, err := SyncConfigOf(baseRecord(), 15*time.Minute)
	if err != nil {
		t.Fatalf("SyncConfigOf: %v", err)
	}
	if cfg.System != SystemESX || cfg.BaseURL != "http://bridge.example" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.APIToken != "tok-1" {
		t.Fatalf("token = %q", cfg.APIToken)
	}
	if cfg.Interval != 15*time.Minute {
		t.Fatalf("interval = %v, want default", cfg.Interval)
	}
}

func TestSyncConfigOf_IntervalOverride(t *testing.T) {
	rec := baseRecord()
	rec.SyncIntervalS = 300

	cfg, err := SyncConfigOf(rec, 15*time.Minute)
	if err != nil {
		t.Fatalf("SyncConfigOf: %v", err)
	}
	if cfg.Interval != 5*time.Minute {
		t.Fatalf("interval = %v, want 5m", cfg.Interval)
	}
}

func TestSyncConfigOf_NoAPIURL(t *testing.T) {
	rec := baseRecord()
	rec.APIURL = ""

	if _, err := SyncConfigOf(rec, time.Minute); !errors.Is(err, ErrNoAPIURL) {
		t.Fatalf("err = %v, want ErrNoAPIURL", err)
	}
}

func TestSyncConfigOf_BadSystem(t *testing.T) {
	cases := map[string]string{
		"missing": `{"apiToken":"tok"}`,
		"unknown": `{"syncSystem":"vrp"}`,
		"mangled": `{"syncSystem":`,
	}
	for name, meta := range cases {
		rec := baseRecord()
		rec.Metadata = meta
		if _, err := SyncConfigOf(rec, time.Minute); err == nil {
			t.Errorf("%s metadata must be rejected", name)
		}
	}
}

func TestSyncConfigOf_QBCore(t *testing.T) {
	rec := baseRecord()
	rec.Metadata = `{"syncSystem":"qbcore"}`

	cfg, err := SyncConfigOf(rec, time.Minute)
	if err != nil {
		t.Fatalf("SyncConfigOf: %v", err)
	}
	if cfg.System != SystemQBCore || cfg.APIToken != "" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
