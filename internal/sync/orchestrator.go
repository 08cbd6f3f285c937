// internal/sync/orchestrator.go
//
// The sync run: fetch → normalize → upsert citizens, then fan out per
// citizen for vehicles.
//
/*
State machine (per invocation, nothing persisted):

	START → FETCH_CITIZENS → NORMALIZE → UPSERT_CITIZENS
	      → FOR_EACH_CITIZEN(FETCH_VEHICLES → UPSERT_VEHICLES)   [bounded fan-out]
	      → AGGREGATE → DONE(stats) | DONE(error)

Failure containment
-------------------
Configuration errors and transport errors during the citizen phase are
fatal: the run ends with StatusError.  A transport error while fetching ONE
citizen's vehicles is logged, counted as one vehicle error, and does not
touch sibling citizens.  Store errors never escape the batch engine.

Ordering
--------
The citizen phase fully completes—including its batched upserts—before any
vehicle work starts, because vehicle rows need the citizen as a foreign-key
target.  Across citizens the vehicle work races freely; each citizen's
vehicle set is independent.

Idempotence
-----------
Re-running with identical remote data is a no-op for business fields
(upsert by natural key) but LastSyncAt always advances.  That is freshness
tracking, not a bug.
*/
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/stationhouse/citysync/internal/citizen"
	"github.com/stationhouse/citysync/internal/gameapi"
	"github.com/stationhouse/citysync/internal/metrics"
	"github.com/stationhouse/citysync/internal/org"
	"github.com/stationhouse/citysync/internal/vehicle"
)

// Store is the slice of the persistence layer the engine needs: upsert by
// natural key, reporting which branch fired.
type Store interface {
	UpsertCitizen(ctx context.Context, rec *citizen.Record) (created bool, err error)
	UpsertVehicle(ctx context.Context, rec *vehicle.Record) (created bool, err error)
}

// Fetcher is the slice of the remote bridge API the engine needs.
// *gameapi.Client satisfies it.
type Fetcher interface {
	ESXCitizens(ctx context.Context) ([]gameapi.ESXCitizen, error)
	QBCitizens(ctx context.Context) ([]gameapi.QBCitizen, error)
	CitizenVehicles(ctx context.Context, citizenID string) ([]gameapi.RawVehicle, error)
}

// Invalidator receives the cache-invalidation signal after a successful
// run: previously cached listings for the named paths of that organization
// must be treated as stale.
type Invalidator interface {
	Invalidate(orgID string, paths ...string)
}

// Orchestrator composes fetcher, normalizer, and batch engine into one
// run.  Zero value is unusable; construct with New.
type Orchestrator struct {
	store       Store
	invalidator Invalidator // may be nil

	batchSize    int
	maxInFlight  int64
	fetchTimeout time.Duration
	runTimeout   time.Duration

	// newFetcher builds the per-organization client.  Tests swap it for a
	// fake; production uses the gameapi default.
	newFetcher func(cfg *org.SyncConfig) (Fetcher, error)
}

// Options tunes one Orchestrator.  Zero fields fall back to defaults.
type Options struct {
	BatchSize    int
	MaxInFlight  int64 // ceiling on concurrent batches AND concurrent citizen fan-out
	FetchTimeout time.Duration
	RunTimeout   time.Duration
	NewFetcher   func(cfg *org.SyncConfig) (Fetcher, error)
	Invalidator  Invalidator
}

// New constructs an Orchestrator over the given store.
func New(store Store, opt Options) *Orchestrator {
	o := &Orchestrator{
		store:        store,
		invalidator:  opt.Invalidator,
		batchSize:    opt.BatchSize,
		maxInFlight:  opt.MaxInFlight,
		fetchTimeout: opt.FetchTimeout,
		runTimeout:   opt.RunTimeout,
		newFetcher:   opt.NewFetcher,
	}
	if o.batchSize <= 0 {
		o.batchSize = DefaultBatchSize
	}
	if o.maxInFlight <= 0 {
		o.maxInFlight = 4
	}
	if o.fetchTimeout <= 0 {
		o.fetchTimeout = gameapi.DefaultTimeout
	}
	if o.runTimeout <= 0 {
		o.runTimeout = 5 * time.Minute
	}
	if o.newFetcher == nil {
		o.newFetcher = func(cfg *org.SyncConfig) (Fetcher, error) {
			return gameapi.NewClient(cfg.BaseURL, cfg.APIToken, o.fetchTimeout)
		}
	}
	return o
}

// SyncCitizens runs one full synchronization pass for the organization
// described by cfg and returns the settled result.  It never panics and
// never returns a Go error: run-level failures are carried in the result.
func (o *Orchestrator) SyncCitizens(ctx context.Context, cfg *org.SyncConfig) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.runTimeout)
	defer cancel()

	log := zap.S().With("org", cfg.OrgID, "system", cfg.System)
	log.Infow("sync run starting")

	fetcher, err := o.newFetcher(cfg)
	if err != nil {
		log.Errorw("sync aborted: fetcher construction failed", "err", err)
		metrics.SyncRunsTotal.WithLabelValues(string(StatusError)).Inc()
		return errorResult(err)
	}

	// Phase 1: citizens.  Any error here fails the run.
	citizens, err := o.fetchCitizens(ctx, fetcher, cfg)
	if err != nil {
		log.Errorw("sync aborted: citizen fetch failed", "err", err)
		metrics.SyncRunsTotal.WithLabelValues(string(StatusError)).Inc()
		return errorResult(err)
	}
	log.Infow("citizens fetched", "count", len(citizens))

	sem := semaphore.NewWeighted(o.maxInFlight)
	citStats := runBatches(ctx, "citizen", citizens, o.batchSize, sem,
		func(r *citizen.Record) string { return r.CitizenID },
		o.store.UpsertCitizen,
	)

	// Phase 2: vehicles, per citizen, only after every citizen row exists.
	vehStats := o.syncVehicles(ctx, fetcher, cfg, citizens, sem)

	if o.invalidator != nil {
		o.invalidator.Invalidate(cfg.OrgID, "citizens", "vehicles")
	}

	elapsed := time.Since(start)
	metrics.SyncRunsTotal.WithLabelValues(string(StatusIdle)).Inc()
	metrics.SyncDuration.Observe(elapsed.Seconds())
	log.Infow("sync run complete",
		"duration", elapsed,
		"citizens_created", citStats.Created,
		"citizens_updated", citStats.Updated,
		"citizens_errors", citStats.Errors,
		"vehicles_created", vehStats.Created,
		"vehicles_updated", vehStats.Updated,
		"vehicles_errors", vehStats.Errors,
	)

	return Result{
		Status:     StatusIdle,
		LastSyncAt: time.Now().UTC(),
		Stats:      &EntityStats{Citizens: citStats, Vehicles: vehStats},
	}
}

// fetchCitizens selects the variant fetch+normalize pair for the
// configured system.  An out-of-enumeration system value is a caller
// contract violation; org.SyncConfigOf rejects it at the HTTP boundary,
// but the defensive check stays because the value originates from
// user-supplied settings.
func (o *Orchestrator) fetchCitizens(ctx context.Context, f Fetcher, cfg *org.SyncConfig) ([]*citizen.Record, error) {
	switch cfg.System {
	case org.SystemESX:
		raw, err := f.ESXCitizens(ctx)
		if err != nil {
			return nil, err
		}
		recs := make([]*citizen.Record, 0, len(raw))
		for i := range raw {
			recs = append(recs, gameapi.NormalizeESXCitizen(cfg.OrgID, &raw[i]))
		}
		return recs, nil

	case org.SystemQBCore:
		raw, err := f.QBCitizens(ctx)
		if err != nil {
			return nil, err
		}
		recs := make([]*citizen.Record, 0, len(raw))
		for i := range raw {
			recs = append(recs, gameapi.NormalizeQBCitizen(cfg.OrgID, &raw[i]))
		}
		return recs, nil

	default:
		return nil, fmt.Errorf("sync: unknown system %q", cfg.System)
	}
}

// syncVehicles fans out across citizens under the shared semaphore.  One
// citizen's fetch failure costs one vehicle error and a log line; siblings
// proceed.
func (o *Orchestrator) syncVehicles(
	ctx context.Context,
	f Fetcher,
	cfg *org.SyncConfig,
	citizens []*citizen.Record,
	sem *semaphore.Weighted,
) Stats {
	var (
		mu    sync.Mutex
		total Stats
		wg    sync.WaitGroup
	)

	for _, cit := range citizens {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			total.Errors++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(cit *citizen.Record) {
			defer wg.Done()
			defer sem.Release(1)

			raw, err := f.CitizenVehicles(ctx, cit.CitizenID)
			if err != nil {
				zap.S().Warnw("vehicle fetch failed for citizen",
					"org", cfg.OrgID, "citizen", cit.CitizenID, "err", err)
				mu.Lock()
				total.Errors++
				mu.Unlock()
				return
			}
			if len(raw) == 0 {
				zap.S().Debugw("citizen has no vehicles",
					"org", cfg.OrgID, "citizen", cit.CitizenID)
				return
			}

			recs := make([]*vehicle.Record, 0, len(raw))
			for i := range raw {
				recs = append(recs, gameapi.NormalizeVehicle(cfg.OrgID, cit.CitizenID, &raw[i]))
			}

			// Inner semaphore: the outer permit is already held for this
			// citizen; a fresh one keeps the batch engine from deadlocking
			// against the fan-out.
			inner := semaphore.NewWeighted(1)
			st := runBatches(ctx, "vehicle", recs, o.batchSize, inner,
				func(r *vehicle.Record) string { return r.Plate },
				o.store.UpsertVehicle,
			)

			mu.Lock()
			total.merge(st)
			mu.Unlock()
		}(cit)
	}

	wg.Wait()
	return total
}
