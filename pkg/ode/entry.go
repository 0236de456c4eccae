// Package ode implements the Open-Directory Entry: the live, in-memory
// coordination record for one actively-read-or-written object. It owns the object's alternate vector and is the rendezvous point
// for read-while-write: a write updating the vector excludes readers from
// selecting an alternate until the update publishes.
package ode

import (
	"encoding/binary"
	"sync"

	"github.com/marmos91/cachecore/pkg/altvec"
	"github.com/marmos91/cachecore/pkg/cacheerr"
	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/collab"
)

// Entry is the Open-Directory Entry for one object key.
type Entry struct {
	FirstKey cachekey.Object
	Vector   *altvec.AlternateVector

	FirstDir     collab.DirEntry
	SingleDocKey cachekey.Fragment
	SingleDocDir collab.DirEntry

	MaxWriters int

	MoveResidentAlt bool
	WritingVec      bool

	mu          sync.Mutex
	numActive   int
	openWriter  collab.Continuation
	openWaiting []collab.Continuation
	writerCount int
}

func newEntry(key cachekey.Object, maxWriters int) *Entry {
	return &Entry{
		FirstKey:   key,
		Vector:     altvec.NewAlternateVector(),
		MaxWriters: maxWriters,
	}
}

// NumActive returns the current count of VCs (readers and writers)
// referencing this entry.
func (e *Entry) NumActive() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.numActive
}

func (e *Entry) incRef() {
	e.mu.Lock()
	e.numActive++
	e.mu.Unlock()
}

func (e *Entry) decRef() int {
	e.mu.Lock()
	e.numActive--
	n := e.numActive
	e.mu.Unlock()
	return n
}

// TryAcquireWriter reserves one of MaxWriters concurrent fragment-producing
// writer slots on this entry. A MaxWriters of 0 or less is treated as
// unbounded. Returns false when the entry is already at capacity.
func (e *Entry) TryAcquireWriter() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.MaxWriters > 0 && e.writerCount >= e.MaxWriters {
		return false
	}
	e.writerCount++
	return true
}

// ReleaseWriter gives back a writer slot acquired by TryAcquireWriter.
func (e *Entry) ReleaseWriter() {
	e.mu.Lock()
	if e.writerCount > 0 {
		e.writerCount--
	}
	e.mu.Unlock()
}

// BeginWriterUpdate installs vc as the in-flight alt-vector writer. Every
// reader that arrives while this is set must be parked in OpenWaiting
// instead of selecting an alternate. Returns
// DocBusy if another writer's update is already in flight -- the source
// permits at most one at a time (invariant 5).
func (e *Entry) BeginWriterUpdate(vc collab.Continuation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openWriter != nil {
		return cacheerr.New(cacheerr.DocBusy, "ode.BeginWriterUpdate", "alt-vector update already in flight")
	}
	e.openWriter = vc
	e.WritingVec = true
	return nil
}

// WaitOnWriter appends vc to OpenWaiting if an alt-vector update is
// currently in flight, returning true. Returns false (nothing to wait on)
// if no writer is active, in which case the caller proceeds with normal
// alternate selection.
func (e *Entry) WaitOnWriter(vc collab.Continuation) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openWriter == nil {
		return false
	}
	e.openWaiting = append(e.openWaiting, vc)
	return true
}

// PublishVectorUpdate clears OpenWriter and wakes every parked reader with
// an "alt-table updated" event carrying a cookie derived from the chosen
// alternate's earliest key, so each waiter can resolve its own slice via
// AlternateVector.SliceRefFor.
func (e *Entry) PublishVectorUpdate(sched collab.Scheduler, chosenEarliest cachekey.Fragment) {
	e.mu.Lock()
	e.openWriter = nil
	e.WritingVec = false
	waiting := e.openWaiting
	e.openWaiting = nil
	e.mu.Unlock()

	if sched == nil {
		return
	}
	cookie := foldFragmentKey(chosenEarliest)
	for _, vc := range waiting {
		sched.WakeUp(vc, collab.EventAltUpdated, cookie)
	}
}

// AbortWriterUpdate clears the in-flight writer without publishing a new
// alternate, waking every parked reader with WriterGone instead of
// AltUpdated so it retries from head rather than resolving a slice that was
// never produced. Safe to call unconditionally at writer teardown: if
// PublishVectorUpdate already ran, OpenWriter is nil and OpenWaiting is
// empty, so this is a no-op.
func (e *Entry) AbortWriterUpdate(sched collab.Scheduler) {
	e.mu.Lock()
	e.openWriter = nil
	e.WritingVec = false
	waiting := e.openWaiting
	e.openWaiting = nil
	e.mu.Unlock()

	if sched == nil {
		return
	}
	for _, vc := range waiting {
		sched.WakeUp(vc, collab.EventWriterGone, 0)
	}
}

// CloseWriter implements the ODE-level half of write teardown:
// if the writer actually produced bytes (altIdxAssigned), it is removed
// from its slice's writers, and if that empties the slice's writer set,
// every VC still in the slice's waiting list is woken with the
// distinguished cookie 0x112 so it can retry against a fresh writer or
// fail with WriterGone.
func (e *Entry) CloseWriter(sched collab.Scheduler, vc collab.Continuation, slice *altvec.Slice, altIdxAssigned bool) {
	if !altIdxAssigned {
		return
	}
	const closeWriterCookie = 0x112
	slice.CloseWriter(sched, vc, collab.EventAltUpdated, closeWriterCookie)
}

// foldFragmentKey XORs a 128-bit fragment key's two 64-bit halves into one
// 64-bit cookie, matching the original's "earliest-key folded 64-bit hash".
func foldFragmentKey(k cachekey.Fragment) uint64 {
	hi := binary.BigEndian.Uint64(k[:8])
	lo := binary.BigEndian.Uint64(k[8:])
	return hi ^ lo
}
