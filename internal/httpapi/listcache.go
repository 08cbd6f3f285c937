// internal/httpapi/listcache.go
//
// Generation-stamped LRU for rendered listing responses.
//
// Context
// -------
// Citizen and vehicle listings are read far more often than they change
// (they change when a sync run lands).  Responses are cached as rendered
// JSON keyed by org + logical path + query, with a per-org-per-path
// generation counter folded into the key.  Invalidation bumps the
// generation; stale entries age out of the LRU on their own instead of
// being hunted down.
//
// ListingCache satisfies sync.Invalidator, which is how a successful sync
// marks previously cached listings stale.
package httpapi

import (
	"strconv"
	"sync"

	"github.com/stationhouse/citysync/internal/cache"
)

// ListingCache is safe for concurrent use.
type ListingCache struct {
	mu  sync.Mutex
	lru *cache.LRU
	gen map[string]uint64 // orgID+path → generation
}

// NewListingCache returns a cache holding up to capacity rendered
// responses.
func NewListingCache(capacity int) *ListingCache {
	return &ListingCache{
		lru: cache.New(capacity),
		gen: make(map[string]uint64),
	}
}

// Get returns the cached body for org+path+query, if current.
func (c *ListingCache) Get(orgID, path, query string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(c.key(orgID, path, query))
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Put stores one rendered body.
func (c *ListingCache) Put(orgID, path, query string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(c.key(orgID, path, query), body)
}

// Invalidate bumps the generation for each logical path of one
// organization.  Implements sync.Invalidator.
func (c *ListingCache) Invalidate(orgID string, paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		c.gen[orgID+"/"+p]++
	}
}

// key folds the current generation into the LRU key; callers hold mu.
func (c *ListingCache) key(orgID, path, query string) string {
	g := c.gen[orgID+"/"+path]
	return orgID + "/" + path + "?" + query + "#" + strconv.FormatUint(g, 10)
}
