package altvec

import (
	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/collab"
)

// Miss is the sentinel returned by IndexOf and AltSelect when nothing in
// the vector matches.
const Miss = collab.AltSelectMiss

// SliceRef is a caller's handle on a specific slice, carrying enough
// redundancy (alt id + generation) to detect that the slice has since been
// replaced by a fresh writer.
type SliceRef struct {
	groupIdx   int
	altID      int
	slice      *Slice
	generation cachekey.Generation
}

// IsValid reports whether the reference still names a slice at all. It
// does not by itself mean the reference is current -- see Stale.
func (r SliceRef) IsValid() bool { return r.slice != nil }

// Slice returns the referenced slice.
func (r SliceRef) Slice() *Slice { return r.slice }

// AltID returns the stable alternate identifier the reference was taken
// against.
func (r SliceRef) AltID() int { return r.altID }

// Stale reports whether the group's current head has moved on to a new
// generation since this reference was taken -- i.e. a fresh writer
// replaced the slice this reader was attached to. A reader seeing Stale
// must re-resolve via AlternateVector.SliceRefFor using its own earliest
// key rather than continuing to read the old slice.
func (r SliceRef) Stale(v *AlternateVector) bool {
	if r.groupIdx < 0 || r.groupIdx >= len(v.groups) {
		return true
	}
	head := v.groups[r.groupIdx].Head()
	return head == nil || head.Generation != r.generation
}

// AlternateVector is the per-object ordered collection of alternate groups.
// Group order is insertion order; alternate selection itself is delegated
// to an external collab.AltSelect collaborator.
type AlternateVector struct {
	groups      []*AlternateGroup
	altIDCounter int
}

// NewAlternateVector returns an empty vector.
func NewAlternateVector() *AlternateVector {
	return &AlternateVector{}
}

// Insert appends a new group around head, or, when idx is within range,
// replaces the group at idx in place (used when rewriting a specific
// position rather than appending). Returns the index the group now
// occupies.
func (v *AlternateVector) Insert(head *Slice, idx int) int {
	v.altIDCounter++
	altID := v.altIDCounter
	head.AltID = cachekey.AlternateId(altID)
	g := newAlternateGroup(altID, head)

	if idx >= 0 && idx < len(v.groups) {
		v.groups[idx] = g
		return idx
	}
	v.groups = append(v.groups, g)
	return len(v.groups) - 1
}

// IndexOf scans for a group whose head slice's earliest fragment key
// matches altKey, returning Miss on no match.
func (v *AlternateVector) IndexOf(altKey cachekey.Fragment) int {
	for i, g := range v.groups {
		if head := g.Head(); head != nil && head.Earliest.Key == altKey {
			return i
		}
	}
	return Miss
}

// SliceRefFor scans every slice of every group for one whose earliest
// fragment key matches earliestKey, used by readers orphaned by a slice
// replacement to re-attach to wherever their content ended up.
func (v *AlternateVector) SliceRefFor(earliestKey cachekey.Fragment) SliceRef {
	for gi, g := range v.groups {
		for _, s := range g.slices {
			if s.Earliest.Key == earliestKey {
				return SliceRef{groupIdx: gi, altID: g.AltID, slice: s, generation: s.Generation}
			}
		}
	}
	return SliceRef{}
}

// HeadRef returns a SliceRef to the current head of the group at idx.
func (v *AlternateVector) HeadRef(idx int) SliceRef {
	if idx < 0 || idx >= len(v.groups) {
		return SliceRef{}
	}
	g := v.groups[idx]
	head := g.Head()
	if head == nil {
		return SliceRef{}
	}
	return SliceRef{groupIdx: idx, altID: g.AltID, slice: head, generation: head.Generation}
}

// Remove erases the group at idx. destroy is accepted for parity with the
// original API; in Go the group becomes unreachable and is collected by
// the GC regardless.
func (v *AlternateVector) Remove(idx int, destroy bool) {
	if idx < 0 || idx >= len(v.groups) {
		return
	}
	v.groups = append(v.groups[:idx], v.groups[idx+1:]...)
}

// Clean compacts out groups whose head's earliest fragment is not cached
// -- alternates that were opened for write but never realized any bytes.
func (v *AlternateVector) Clean() {
	kept := v.groups[:0]
	for _, g := range v.groups {
		head := g.Head()
		if head != nil && head.CachedIdx() < 0 {
			continue
		}
		kept = append(kept, g)
	}
	v.groups = kept
}

// Clear empties the vector.
func (v *AlternateVector) Clear(destroy bool) {
	v.groups = nil
}

// Count returns the number of alternate groups.
func (v *AlternateVector) Count() int { return len(v.groups) }

// Group returns the group at idx, or nil if out of range.
func (v *AlternateVector) Group(idx int) *AlternateGroup {
	if idx < 0 || idx >= len(v.groups) {
		return nil
	}
	return v.groups[idx]
}

// ForEachSlice iterates every slice of every group, head first within each
// group.
func (v *AlternateVector) ForEachSlice(f func(groupIdx int, s *Slice)) {
	for gi, g := range v.groups {
		for _, s := range g.slices {
			f(gi, s)
		}
	}
}

// CollectStaleSlices drops stale (non-head) slices with no remaining
// readers or writers across every group, freeing their fragment tables and
// side buffers for GC.
func (v *AlternateVector) CollectStaleSlices() {
	for _, g := range v.groups {
		g.collect()
	}
}
