// Package altvec implements the alternate vector: the per-object collection
// of HTTP response alternates, each backed by a stack of temporally
// distinct slices. It is grounded on
// original_source/iocore/cache/P_CacheHttp.h's CacheHTTPInfoVector, with the
// writer/waiting DLLs replaced by plain Go slices/maps under the slice's own
// mutex and the intrusive continuation links replaced by the
// pkg/collab.Continuation interface.
package altvec

import (
	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/collab"
	"github.com/marmos91/cachecore/pkg/fragment"
	"github.com/marmos91/cachecore/pkg/metrics"
)

// Flags is a bitset of per-slice state flags.
type Flags uint8

const (
	// Dirty indicates the slice's header block has been mutated since it
	// was last marshaled.
	Dirty Flags = 1 << iota
	// ContentLengthKnown indicates the response declared a content length
	// up front, rather than the slice having to infer completeness from
	// contiguous cached fragments.
	ContentLengthKnown
	// Complete indicates every byte of the alternate is on disk.
	Complete
)

// writer tracks one write-VC attached to a slice together with the fragment
// index it is currently producing, which the uncached-hull computation
// needs to decide whether the writer is "close enough to wait on".
type writer struct {
	vc   collab.Continuation
	frag int
}

// waiter tracks one read-VC parked on a specific fragment of a slice.
type waiter struct {
	vc   collab.Continuation
	frag int
}

// Slice is one temporally distinct snapshot of an alternate.
// The zero value is not usable; construct with NewSlice.
type Slice struct {
	AltID      cachekey.AlternateId
	Generation cachekey.Generation

	// RequestHeader and ResponseHeader are the parsed headers this slice
	// was written against. They are kept as the wire representation
	// (collab.HeaderMarshal deals with structured access) so the core has
	// no HTTP-parsing dependency of its own.
	RequestHeader  []byte
	ResponseHeader []byte

	// Earliest is fragment 0, owned here rather than in Fragments.
	Earliest fragment.Descriptor
	// Fragments is nil when the object fits entirely in the earliest
	// fragment (object_size <= FixedFragSize).
	Fragments     *fragment.Table
	FixedFragSize int64

	Flags Flags

	writers map[string]*writer
	active  map[string]bool // subset of writers, keyed the same way
	waiting []*waiter        // insertion order; wake order matches it

	sideBuffers []*sideBuffer

	// Metrics is set by the writer that constructs this slice; nil is safe
	// everywhere (see pkg/metrics.CoreMetrics). It reports the size of
	// waiting as it changes, not on a polling loop, since the slice itself
	// is the only thing that knows when that changes.
	Metrics metrics.CoreMetrics
}

// NewSlice constructs an empty slice for a freshly opened write, inheriting
// altID from its group and bumping generation from the previous head.
func NewSlice(altID cachekey.AlternateId, generation cachekey.Generation, fixedFragSize int64) *Slice {
	return &Slice{
		AltID:         altID,
		Generation:    generation,
		FixedFragSize: fixedFragSize,
		writers:       make(map[string]*writer),
		active:        make(map[string]bool),
	}
}

// EnsureFragments lazily creates the fragment table once the object is
// known to span more than one fragment.
func (s *Slice) EnsureFragments() *fragment.Table {
	if s.Fragments == nil {
		s.Fragments = fragment.NewTable(s.FixedFragSize, &s.Earliest)
	}
	return s.Fragments
}

// CachedIdx returns the highest contiguous cached fragment index, -1 if the
// earliest fragment itself isn't cached, or a synthetic "fully cached to
// fragment 0" value when the slice never grew a fragment table.
func (s *Slice) CachedIdx() int {
	if s.Fragments == nil {
		if s.Earliest.Flags&fragment.Cached != 0 {
			return 0
		}
		return -1
	}
	return s.Fragments.CachedIdx()
}

// OffsetOf delegates to the fragment table, or resolves index 0 directly
// against Earliest for single-fragment slices.
func (s *Slice) OffsetOf(idx int) int64 {
	if s.Fragments == nil {
		return 0
	}
	return s.Fragments.OffsetOf(idx)
}

// IndexOf delegates to the fragment table, falling back to fragment 0 for
// single-fragment slices.
func (s *Slice) IndexOf(offset int64) int {
	if s.Fragments == nil {
		return 0
	}
	return s.Fragments.IndexOf(offset)
}

// Cached reports whether fragment idx is cached.
func (s *Slice) Cached(idx int) bool { return s.fragCached(idx) }

// KeyAt returns the fragment key at idx, forcing fragment-table growth if
// necessary.
func (s *Slice) KeyAt(idx int) cachekey.Fragment {
	if idx == 0 {
		return s.Earliest.Key
	}
	return s.EnsureFragments().KeyAt(idx)
}

// ============================================================================
// Writer bookkeeping
// ============================================================================

// WriteActive records vc as actively writing frag.
func (s *Slice) WriteActive(vc collab.Continuation, frag int) {
	w, ok := s.writers[vc.ID()]
	if !ok {
		w = &writer{vc: vc}
		s.writers[vc.ID()] = w
	}
	w.frag = frag
	s.active[vc.ID()] = true
}

// WriteComplete removes vc from active, marks the fragment cached on
// success, and wakes every waiter parked on that same fragment with an
// immediate event carrying buf so the waiter can ship bytes without a disk
// round trip. Waiters on other fragments are left untouched.
func (s *Slice) WriteComplete(sched collab.Scheduler, vc collab.Continuation, buf []byte, success bool) {
	w, ok := s.writers[vc.ID()]
	if !ok {
		return
	}
	delete(s.active, vc.ID())

	if success {
		s.markFragmentCached(w.frag)
	}

	remaining := s.waiting[:0]
	for _, wt := range s.waiting {
		if wt.frag == w.frag {
			if sched != nil {
				sched.HandleEvent(wt.vc, collab.EventReadReady, 0, buf)
			}
			continue
		}
		remaining = append(remaining, wt)
	}
	s.waiting = remaining
	metrics.RecordWaiters(s.Metrics, len(s.waiting))
}

// markFragmentCached applies mark_written to either the earliest descriptor
// (frag 0) or the fragment table.
func (s *Slice) markFragmentCached(frag int) {
	if frag == 0 && s.Fragments == nil {
		s.Earliest.Flags |= fragment.Cached
		return
	}
	s.EnsureFragments().MarkWritten(frag)
}

// CloseWriter removes vc from writers. If writers becomes empty and
// waiting is non-empty, every remaining waiter is woken with event/cookie
// so it can retry against a fresh writer or fail. Both the slice-level
// "writer gone" wake and the ODE-level alt-update wake
// go through this one mechanism with a different
// event/cookie.
func (s *Slice) CloseWriter(sched collab.Scheduler, vc collab.Continuation, event collab.Event, cookie uint64) {
	delete(s.writers, vc.ID())
	delete(s.active, vc.ID())

	if len(s.writers) != 0 || len(s.waiting) == 0 {
		return
	}
	if sched != nil {
		for _, wt := range s.waiting {
			sched.HandleEvent(wt.vc, event, cookie, nil)
		}
	}
	s.waiting = nil
	metrics.RecordWaiters(s.Metrics, 0)
}

// WaitFor parks vc on frag. Returns false (the "no writer" case) if the
// slice currently has no writers at all, in which case the caller must fail
// rather than wait forever.
func (s *Slice) WaitFor(vc collab.Continuation, frag int) bool {
	if len(s.writers) == 0 {
		return false
	}
	s.waiting = append(s.waiting, &waiter{vc: vc, frag: frag})
	metrics.RecordWaiters(s.Metrics, len(s.waiting))
	return true
}

// HasWriters reports whether any write-VC currently references this slice.
func (s *Slice) HasWriters() bool { return len(s.writers) > 0 }

// ActiveWriterFragments returns the fragment index of every writer
// currently marked active, used by the uncached-hull writer-clipping pass.
func (s *Slice) ActiveWriterFragments() []int {
	frags := make([]int, 0, len(s.active))
	for id := range s.active {
		frags = append(frags, s.writers[id].frag)
	}
	return frags
}
