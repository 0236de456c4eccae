package demo

import (
	"sync"

	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/collab"
)

// ObjectInfo is everything a GET handler needs to know about an object
// before it can construct and drive a ReadVC, none of which the core
// derives on its own: pkg/vc.ReadVC.ResolveRange takes the object size and
// content type as caller-supplied arguments, by design (the read VC
// never inthe a header block itself to learn them).
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// Objects is the demo server's out-of-band object-metadata store, keyed by
// the same content-addressed key the ODE registry uses. It is populated
// once a WriteVC completes and consulted before a ReadVC is constructed.
type Objects struct {
	mu    sync.RWMutex
	infos map[cachekey.Object]ObjectInfo
}

// NewObjects constructs an empty Objects store.
func NewObjects() *Objects {
	return &Objects{infos: make(map[cachekey.Object]ObjectInfo)}
}

// Put records size/content-type for key, overwriting any prior entry (a
// rewrite of an existing object installs a fresh alternate group).
func (o *Objects) Put(key cachekey.Object, info ObjectInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.infos[key] = info
}

// Get returns the stored info for key, or false if no write has completed
// for it yet.
func (o *Objects) Get(key cachekey.Object) (ObjectInfo, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	info, ok := o.infos[key]
	return info, ok
}

// Delete removes key's metadata, used when an object is evicted.
func (o *Objects) Delete(key cachekey.Object) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.infos, key)
}

// Len reports the number of objects currently tracked.
func (o *Objects) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.infos)
}

// SelectHead is a collab.AltSelect that always picks group 0 (the first
// alternate group installed), ignoring request headers. The demo
// server serves one representation per object, so there is never more
// than one group to rank; a host wanting real content negotiation would
// replace this with a function that inthe Accept/Accept-Encoding
// against each group's stored ResponseHeader.
func SelectHead(vector any, requestHeader, params map[string][]string) int {
	type counter interface{ Count() int }
	if v, ok := vector.(counter); ok && v.Count() > 0 {
		return 0
	}
	return collab.AltSelectMiss
}
