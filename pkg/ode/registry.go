package ode

import (
	"context"
	"sync"

	"github.com/marmos91/cachecore/internal/logger"
	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// shardCount determines how many independent mutex domains the registry
// splits its entries across. A power of two
// keeps the shard-selection mask cheap.
const defaultShardCount = 64

type shard struct {
	mu      sync.RWMutex
	entries map[cachekey.Object]*Entry
}

// Registry is the process-wide table of live Open-Directory Entries, keyed
// by the object's first fragment key.
type Registry struct {
	shards     []*shard
	shardMask  uint32
	maxWriters int

	// sf collapses concurrent OpenWrite calls for the same key into a
	// single entry creation, grounded on other_examples'
	// ricardobranco777/httpseek rangecache.go use of singleflight to
	// collapse concurrent range fetches for the same cache key.
	sf singleflight.Group

	// Metrics is optional; nil is safe everywhere (see
	// pkg/metrics.CoreMetrics). Set it after NewRegistry to report the
	// active-ODE gauge and eviction counter.
	Metrics metrics.CoreMetrics
}

// NewRegistry constructs a registry with shardCount shards (rounded up to
// the next power of two, minimum 1) and maxWritersPerODE as the default
// Entry.MaxWriters.
func NewRegistry(shardCount, maxWritersPerODE int) *Registry {
	n := nextPowerOfTwo(shardCount)
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{entries: make(map[cachekey.Object]*Entry)}
	}
	return &Registry{shards: shards, shardMask: uint32(n - 1), maxWriters: maxWritersPerODE}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (r *Registry) shardFor(key cachekey.Object) *shard {
	var h uint32
	for _, b := range key {
		h = h*31 + uint32(b)
	}
	return r.shards[h&r.shardMask]
}

// OpenRead returns the entry for key if one exists, else (nil, false). It
// never creates.
func (r *Registry) OpenRead(key cachekey.Object) (*Entry, bool) {
	sh := r.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	if ok {
		e.incRef()
	}
	return e, ok
}

// OpenWrite returns the entry for key, creating one if absent. Concurrent
// OpenWrite calls for the same key are coalesced via singleflight so only
// one goroutine actually allocates and inserts the entry; the rest observe
// the same *Entry.
func (r *Registry) OpenWrite(ctx context.Context, key cachekey.Object) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sh := r.shardFor(key)

	sh.mu.RLock()
	if e, ok := sh.entries[key]; ok {
		sh.mu.RUnlock()
		e.incRef()
		return e, nil
	}
	sh.mu.RUnlock()

	created := false
	v, err, _ := r.sf.Do(string(key[:]), func() (any, error) {
		sh.mu.Lock()
		defer sh.mu.Unlock()
		if e, ok := sh.entries[key]; ok {
			return e, nil
		}
		e := newEntry(key, r.maxWriters)
		sh.entries[key] = e
		created = true
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	e := v.(*Entry)
	e.incRef()
	if created {
		metrics.RecordActiveODEs(r.Metrics, r.Len())
	}
	return e, nil
}

// Close releases one reference on the entry for key. When the reference
// count reaches zero and no writer holds an in-flight update, the entry is
// removed from the registry.
func (r *Registry) Close(key cachekey.Object) {
	sh := r.shardFor(key)
	sh.mu.Lock()
	e, ok := sh.entries[key]
	evicted := false
	if ok {
		if n := e.decRef(); n <= 0 && !e.WritingVec {
			delete(sh.entries, key)
			logger.Debug("ODE evicted", "key", key.String(), "refs", n)
			evicted = true
		}
	}
	sh.mu.Unlock()

	// r.Len() takes every shard's lock in turn, including this one, so it
	// must run after sh.mu is released above.
	if evicted {
		metrics.RecordEviction(r.Metrics, "explicit")
		metrics.RecordActiveODEs(r.Metrics, r.Len())
	}
}

// Len returns the number of live entries across all shards, used by
// pkg/metrics to report the active-ODE gauge.
func (r *Registry) Len() int {
	total := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}
