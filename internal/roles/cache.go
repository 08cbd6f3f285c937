// internal/roles/cache.go
//
// Read-through TTL cache for role member lists.
//
// Context
// -------
// Permission endpoints ask "who holds role R in org O" on nearly every
// dashboard request.  The answer changes rarely, so a short fixed TTL
// avoids redundant reads without meaningful staleness.
//
// Unlike a process-wide ambient map, the cache is an explicit component
// with an injected clock and explicit invalidation hooks, so tests control
// time and role mutations can drop exactly the entry they touched.
// Store fallbacks are deduplicated through singleflight: a stampede of
// concurrent misses for the same org+role performs one query.
package roles

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"

	"github.com/stationhouse/citysync/internal/metrics"
)

// DefaultTTL is short by design; role membership edits should become
// visible within a minute without any invalidation call.
const DefaultTTL = time.Minute

// MemberCache caches org+role → member-id lists.  Safe for concurrent use.
// Zero value is unusable; construct with NewMemberCache.
type MemberCache struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time // injected clock

	sfg singleflight.Group

	mu   sync.RWMutex
	data map[string]memberEntry
}

type memberEntry struct {
	ids      []string
	loadedAt time.Time
}

// NewMemberCache returns a ready cache.  A nil clock uses time.Now.
func NewMemberCache(db *sqlx.DB, ttl time.Duration, clock func() time.Time) *MemberCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemberCache{
		db:   db,
		ttl:  ttl,
		now:  clock,
		data: make(map[string]memberEntry),
	}
}

// Members returns the member ids holding roleName in orgID, consulting the
// store at most once per TTL window per key.
func (c *MemberCache) Members(ctx context.Context, orgID, roleName string) ([]string, error) {
	key := orgID + "\x00" + roleName

	c.mu.RLock()
	ent, ok := c.data[key]
	fresh := ok && c.now().Sub(ent.loadedAt) < c.ttl
	c.mu.RUnlock()

	if fresh {
		metrics.RoleCacheHitsTotal.Inc()
		return ent.ids, nil
	}
	metrics.RoleCacheMissesTotal.Inc()

	v, err, _ := c.sfg.Do(key, func() (any, error) {
		ids, err := MemberIDs(ctx, c.db, orgID, roleName)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.data[key] = memberEntry{ids: ids, loadedAt: c.now()}
		c.mu.Unlock()
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Invalidate drops the entry for one org+role.  Called by role-mutation
// handlers so edits are visible immediately instead of at TTL expiry.
func (c *MemberCache) Invalidate(orgID, roleName string) {
	key := orgID + "\x00" + roleName
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

// InvalidateOrg drops every entry for one organization.
func (c *MemberCache) InvalidateOrg(orgID string) {
	prefix := orgID + "\x00"
	c.mu.Lock()
	for k := range c.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.data, k)
		}
	}
	c.mu.Unlock()
}

// Len reports the number of live entries (stale included); used by tests.
func (c *MemberCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
