// internal/sync/batch.go
//
// Batched, bounded, error-isolated upsert engine.
//
// Context
// -------
// The engine partitions a record sequence into fixed-size batches
// preserving input order, then submits every record within a batch
// concurrently (fire all, await all).  Batches themselves run concurrently
// under a semaphore ceiling so a 10,000-citizen server cannot open 1,000
// simultaneous store connections.
//
// Per-record isolation: one record's upsert error increments the Errors
// tally and is logged with the record's natural key; it never rejects the
// batch or the run.  Within a batch there is no ordering guarantee between
// records—the counts are order-independent.
package sync

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/stationhouse/citysync/internal/metrics"
)

// DefaultBatchSize matches the store's sweet spot for concurrent upserts.
const DefaultBatchSize = 10

// upsert attempts one record and reports whether the create branch fired.
type upsert[T any] func(ctx context.Context, rec T) (created bool, err error)

// runBatches drives the engine for one record sequence.  keyFn extracts the
// natural key for error logs; entity labels the metrics.
func runBatches[T any](
	ctx context.Context,
	entity string,
	records []T,
	batchSize int,
	sem *semaphore.Weighted,
	keyFn func(T) string,
	up upsert[T],
) Stats {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var (
		mu    sync.Mutex
		total Stats
		wg    sync.WaitGroup
	)

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		batch := records[start:end]

		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: every unsubmitted record counts as an error.
			mu.Lock()
			total.Errors += len(records) - start
			mu.Unlock()
			zap.S().Warnw("batch submission cancelled",
				"entity", entity, "remaining", len(records)-start, "err", err)
			break
		}

		wg.Add(1)
		go func(batch []T) {
			defer wg.Done()
			defer sem.Release(1)

			st := runOne(ctx, entity, batch, keyFn, up)
			mu.Lock()
			total.merge(st)
			mu.Unlock()
		}(batch)
	}

	wg.Wait()
	return total
}

// runOne submits every record of one batch concurrently and joins them all
// before returning, so the caller observes settled counts only.
func runOne[T any](
	ctx context.Context,
	entity string,
	batch []T,
	keyFn func(T) string,
	up upsert[T],
) Stats {
	var (
		mu sync.Mutex
		st Stats
		wg sync.WaitGroup
	)

	for _, rec := range batch {
		wg.Add(1)
		go func(rec T) {
			defer wg.Done()

			created, err := up(ctx, rec)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				st.Errors++
				metrics.SyncRecordsTotal.WithLabelValues(entity, "error").Inc()
				zap.S().Errorw("record upsert failed",
					"entity", entity, "key", keyFn(rec), "err", err)
			case created:
				st.Created++
				metrics.SyncRecordsTotal.WithLabelValues(entity, "created").Inc()
			default:
				st.Updated++
				metrics.SyncRecordsTotal.WithLabelValues(entity, "updated").Inc()
			}
		}(rec)
	}

	wg.Wait()
	return st
}
