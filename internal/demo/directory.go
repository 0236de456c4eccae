// Package demo implements in-memory collab.Directory, collab.VolumeIO and
// collab.Scheduler collaborators plus a small out-of-band object-metadata
// store, so cmd/cachecored can drive the real ODE/VC/range-engine code
// against something other than a unit test's fakes (per pkg/collab's
// package doc: "the same ODE/VC/range-engine code runs against a real
// volume manager or against in-memory fakes in tests and in
// cmd/cachecored's demo harness").
package demo

import (
	"context"
	"sync"

	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/collab"
)

// Directory is an in-memory collab.Directory, generalized from
// pkg/vc's fakeDirectory for use outside test files.
type Directory struct {
	mu      sync.Mutex
	entries map[cachekey.Fragment]collab.DirEntry
}

// NewDirectory constructs an empty Directory.
func NewDirectory() *Directory {
	return &Directory{entries: make(map[cachekey.Fragment]collab.DirEntry)}
}

func (d *Directory) Probe(ctx context.Context, key cachekey.Fragment) (collab.DirEntry, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[key]
	return e, ok, nil
}

func (d *Directory) Delete(ctx context.Context, key cachekey.Fragment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, key)
	return nil
}

func (d *Directory) Insert(ctx context.Context, key cachekey.Fragment, entry collab.DirEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key] = entry
	return nil
}

func (d *Directory) Overwrite(ctx context.Context, key cachekey.Fragment, entry, prev collab.DirEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key] = entry
	return nil
}

// Len reports the number of fragments currently tracked.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Directories hands out one Directory per object key. Fragment keys are
// derived from the object key plus an in-object index (cachekey.NextFragmentKey
// starting from cachekey.FirstFragmentKey), so they don't collide across
// objects even in a single shared map; splitting by object anyway keeps
// each object's fragments independently droppable via Delete, without
// touching pkg/vc/pkg/altvec's fragment-keying scheme.
type Directories struct {
	mu   sync.Mutex
	dirs map[cachekey.Object]*Directory
}

// NewDirectories constructs an empty Directories registry.
func NewDirectories() *Directories {
	return &Directories{dirs: make(map[cachekey.Object]*Directory)}
}

// For returns the Directory for key, creating one on first use.
func (ds *Directories) For(key cachekey.Object) *Directory {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	d, ok := ds.dirs[key]
	if !ok {
		d = NewDirectory()
		ds.dirs[key] = d
	}
	return d
}

// Delete drops the Directory for key, used when an object is evicted.
func (ds *Directories) Delete(key cachekey.Object) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.dirs, key)
}
