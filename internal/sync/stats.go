// internal/sync/stats.go
//
// Aggregate counters and the per-run result shape returned to callers.
package sync

import "time"

// Status is the terminal state of one run.  There is no "running" value;
// a Result only exists once the run has settled.
type Status string

const (
	StatusIdle  Status = "idle"  // run finished; inspect stats for per-record errors
	StatusError Status = "error" // run-level failure; stats may be partial
)

// Stats counts upsert outcomes for one entity type across a run.  Counts
// are order-independent: concurrent batches may settle in any order.
type Stats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

func (s *Stats) merge(o Stats) {
	s.Created += o.Created
	s.Updated += o.Updated
	s.Errors += o.Errors
}

// EntityStats groups the two entity tallies for serialization.
type EntityStats struct {
	Citizens Stats `json:"citizens"`
	Vehicles Stats `json:"vehicles"`
}

// Result is the transient aggregate of one orchestrator invocation.  It is
// serialized to the dashboard as-is and never persisted; the organization
// row keeps only last_synced_at.
//
// A StatusIdle result with non-zero error counts means partial failure:
// one bad record must not hide a sync of 999 good ones behind a total
// failure.
type Result struct {
	Status     Status       `json:"status"`
	LastSyncAt time.Time    `json:"lastSyncAt"`
	Error      string       `json:"error,omitempty"`
	Stats      *EntityStats `json:"stats,omitempty"`
}

func errorResult(err error) Result {
	return Result{
		Status:     StatusError,
		LastSyncAt: time.Now().UTC(),
		Error:      err.Error(),
	}
}
