// Package fragment implements the append-growable fragment descriptor table
// that maps a fragment index to its byte offset, content-addressed key, and
// cached flag.
package fragment

import "github.com/marmos91/cachecore/pkg/cachekey"

// Flags is a bitset of per-fragment flags. Only Cached is defined today;
// the remaining bits are reserved for future use.
type Flags uint8

const (
	// Cached indicates the fragment's bytes are present on disk.
	Cached Flags = 1 << iota
)

// Descriptor describes a single fragment: its byte offset in the object,
// its content-addressed key, and its flags.
type Descriptor struct {
	Offset int64
	Key    cachekey.Fragment
	Flags  Flags
}

func (d *Descriptor) cached() bool { return d.Flags&Cached != 0 }

// Table is the append-growable fragment descriptor table for one slice.
// Index 0 (the "earliest" fragment) is owned by the slice, not the table;
// every Table is constructed against a pointer to that descriptor so
// offset_of/force_at/index_of can treat it uniformly with the rest.
type Table struct {
	// FixedFragSize is the object's fixed fragment granularity, chosen at
	// write start and constant for the life of the slice.
	FixedFragSize int64

	earliest *Descriptor

	// n is the highest materialized index (1..n); entries[0] is an unused
	// placeholder kept only so the array is indexed by fragment number
	// directly, length n+1.
	n         int
	cachedIdx int // -1 means nothing cached yet, including the earliest.
	entries   []Descriptor
}

// NewTable constructs an empty table anchored on the slice's earliest
// fragment descriptor.
func NewTable(fixedFragSize int64, earliest *Descriptor) *Table {
	return &Table{
		FixedFragSize: fixedFragSize,
		earliest:      earliest,
		cachedIdx:     -1,
		entries:       []Descriptor{{Offset: 0}}, // entries[0] placeholder
	}
}

// N returns the number of entries materialized beyond the earliest.
func (t *Table) N() int { return t.n }

// CachedIdx returns the highest fragment index such that every fragment
// 0..CachedIdx is cached, or -1 if even the earliest is not yet cached.
func (t *Table) CachedIdx() int { return t.cachedIdx }

// OffsetOf returns the byte offset at which fragment idx begins. For an
// index beyond the materialized region it extrapolates using the fixed
// fragment size, letting callers compute positions without forcing growth.
func (t *Table) OffsetOf(idx int) int64 {
	if idx <= 0 {
		return 0
	}
	if idx <= t.n {
		return t.entries[idx].Offset
	}
	return t.entries[t.n].Offset + t.FixedFragSize*int64(idx-t.n)
}

// ForceAt grows the table to cover idx if necessary (geometric growth:
// at least max(idx+1, 1.5x current)), filling new slots with consecutive
// derived keys and fixed-size offsets, and returns a stable reference to
// the descriptor at idx. idx=0 returns the slice's earliest descriptor.
func (t *Table) ForceAt(idx int) *Descriptor {
	if idx <= 0 {
		return t.earliest
	}
	if idx <= t.n {
		return &t.entries[idx]
	}

	want := idx + 1
	if grown := int(float64(len(t.entries)) * 1.5); grown > want {
		want = grown
	}

	for len(t.entries) < want {
		i := len(t.entries)
		prevOffset := t.entries[i-1].Offset
		var prevKey cachekey.Fragment
		if i-1 == 0 {
			prevKey = t.earliest.Key
		} else {
			prevKey = t.entries[i-1].Key
		}
		t.entries = append(t.entries, Descriptor{
			Offset: prevOffset + t.FixedFragSize,
			Key:    cachekey.Next(prevKey),
		})
	}
	t.n = len(t.entries) - 1
	return &t.entries[idx]
}

// MarkWritten sets the Cached flag on idx (growing the table if idx was
// never forced before) and advances CachedIdx forward as long as
// successive descriptors, starting at the earliest, are cached.
//
// Returns the new CachedIdx so callers (the owning Slice) can decide
// whether the slice just became "complete".
func (t *Table) MarkWritten(idx int) int {
	d := t.ForceAt(idx)
	d.Flags |= Cached

	if t.cachedIdx == -1 {
		if !t.earliest.cached() {
			return t.cachedIdx
		}
		t.cachedIdx = 0
	}
	for t.cachedIdx < t.n && t.entries[t.cachedIdx+1].cached() {
		t.cachedIdx++
	}
	return t.cachedIdx
}

// IndexOf returns the fragment index containing the given byte offset.
// It starts with a uniform-fragment-size guess and walks ±1 until it
// brackets offset correctly; this converges in O(1) for uniformly sized
// fragments and degrades to O(n) only in pathological cases.
func (t *Table) IndexOf(offset int64) int {
	if offset < t.OffsetOf(1) {
		return 0
	}
	if t.n == 0 {
		return int(offset / t.FixedFragSize)
	}
	if offset >= t.entries[t.n].Offset {
		return t.n + int((offset-t.entries[t.n].Offset)/t.FixedFragSize)
	}

	guess := int(offset / t.FixedFragSize)
	if guess < 1 {
		guess = 1
	}
	if guess > t.n {
		guess = t.n
	}
	for {
		lo := t.entries[guess].Offset
		hi := t.OffsetOf(guess + 1)
		switch {
		case offset < lo:
			guess--
		case offset >= hi:
			guess++
		default:
			return guess
		}
		if guess < 1 {
			return 0
		}
		if guess > t.n {
			return t.n
		}
	}
}

// Cached reports whether the fragment at idx is known (within the
// materialized region) and marked cached. Indices beyond the materialized
// region are always reported uncached.
func (t *Table) Cached(idx int) bool {
	if idx <= 0 {
		return t.earliest.cached()
	}
	if idx > t.n {
		return false
	}
	return t.entries[idx].cached()
}

// KeyAt returns the fragment key at idx, forcing growth if necessary.
func (t *Table) KeyAt(idx int) cachekey.Fragment {
	return t.ForceAt(idx).Key
}
