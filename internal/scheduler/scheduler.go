// internal/scheduler/scheduler.go
//
// Periodic sync driver.
//
// Context
// -------
// Every scan interval the scheduler lists active organizations, works out
// which are due (last_synced_at older than their per-org interval), and
// launches one sync run each.  Runs are serialized per organization: a
// slow game server cannot stack a second run on top of its first.
// Different organizations run concurrently; their data is disjoint.
//
// Organizations with broken sync configuration (no API URL, unknown
// system) are skipped with a warning, not treated as fatal: one
// mis-configured tenant must not stall the fleet.
package scheduler

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/stationhouse/citysync/internal/invite"
	"github.com/stationhouse/citysync/internal/metrics"
	"github.com/stationhouse/citysync/internal/org"
	"github.com/stationhouse/citysync/internal/sync"
)

// ScanInterval is how often the scheduler re-reads the organization table.
const ScanInterval = time.Minute

// invitePurgeKeep is how long dead invite links are kept before the
// periodic purge removes them.
const invitePurgeKeep = 24 * time.Hour

// Scheduler drives periodic syncs.  Construct with New; zero value is
// unusable.
type Scheduler struct {
	db              *sqlx.DB
	orch            *sync.Orchestrator
	defaultInterval time.Duration

	mu      stdsync.Mutex
	running map[string]bool // org id → run in flight
}

// New constructs a Scheduler.
func New(db *sqlx.DB, orch *sync.Orchestrator, defaultInterval time.Duration) *Scheduler {
	return &Scheduler{
		db:              db,
		orch:            orch,
		defaultInterval: defaultInterval,
		running:         make(map[string]bool),
	}
}

// Run blocks until ctx is cancelled, scanning on a fixed ticker.  An
// immediate first scan makes freshly-booted instances useful without
// waiting out the first tick.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(ScanInterval)
	defer ticker.Stop()

	s.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			zap.S().Infow("scheduler stopping")
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

// scan lists active organizations and starts runs for the due ones.
func (s *Scheduler) scan(ctx context.Context) {
	orgs, err := org.AllActive(ctx, s.db)
	if err != nil {
		zap.S().Errorw("scheduler: list organizations failed", "err", err)
		return
	}
	metrics.ActiveOrgs.Set(float64(len(orgs)))

	if n, err := invite.PurgeExpired(ctx, s.db, invitePurgeKeep); err != nil {
		zap.S().Warnw("scheduler: invite purge failed", "err", err)
	} else if n > 0 {
		zap.S().Infow("scheduler: purged expired invites", "count", n)
	}

	now := time.Now()
	for i := range orgs {
		rec := &orgs[i]

		cfg, err := org.SyncConfigOf(rec, s.defaultInterval)
		if err != nil {
			zap.S().Warnw("scheduler: skipping organization",
				"org", rec.ID, "err", err)
			continue
		}
		if !due(rec, cfg.Interval, now) {
			continue
		}
		s.launch(ctx, rec.ID, cfg)
	}
}

// due reports whether the organization's interval has elapsed.
func due(rec *org.Record, interval time.Duration, now time.Time) bool {
	if rec.LastSyncedAt == nil {
		return true
	}
	return now.Sub(*rec.LastSyncedAt) >= interval
}

// launch starts one run unless the organization already has one in
// flight.
func (s *Scheduler) launch(ctx context.Context, orgID string, cfg *org.SyncConfig) {
	s.mu.Lock()
	if s.running[orgID] {
		s.mu.Unlock()
		zap.S().Debugw("scheduler: run already in flight", "org", orgID)
		return
	}
	s.running[orgID] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.running, orgID)
			s.mu.Unlock()
		}()

		res := s.orch.SyncCitizens(ctx, cfg)
		if res.Status != sync.StatusIdle {
			zap.S().Errorw("scheduled sync failed", "org", orgID, "err", res.Error)
			return
		}
		if err := org.TouchLastSynced(ctx, s.db, orgID); err != nil {
			zap.S().Warnw("scheduler: touch last_synced_at failed",
				"org", orgID, "err", err)
		}
	}()
}
