// Package cachekey defines the identifiers used throughout the cache core:
// the 128-bit object and fragment keys, the per-alternate id, and the
// per-slice generation counter.
package cachekey

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Object is the 128-bit content-addressed identifier of a cached object
// (the "first key" in the on-disk header).
type Object [16]byte

// Fragment is the 128-bit identifier of a single fragment, derived by a
// deterministic successor chain starting from the earliest fragment's key.
type Fragment [16]byte

// AlternateId is assigned by the ODE when a slice is installed. It stays
// stable across slice replacement so readers can rebind after a mutation
// even though the slice they were reading has been replaced.
type AlternateId uint32

// Generation is bumped every time a slice is rewritten by a fresh writer.
// Readers use it to detect that the slice they are attached to has gone
// stale and been replaced.
type Generation uint16

// String renders the first 16 hex characters of the key, which is what the
// logging boundaries in the VC state machine use to identify an object
// without printing the full 32-character key on every line.
func (k Object) String() string {
	return hex.EncodeToString(k[:8])
}

// Halves returns the key split into its two 64-bit halves, as consumed by
// the range-boundary formatter.
func (k Object) Halves() (hi, lo uint64) {
	return binary.BigEndian.Uint64(k[:8]), binary.BigEndian.Uint64(k[8:])
}

func (k Fragment) String() string {
	return hex.EncodeToString(k[:8])
}

// Next computes the deterministic successor of a fragment key: fragment
// i+1's key is a function of fragment i's key. We use a truncated SHA-256
// of the prior key, which gives the same guarantees the original's internal
// hash-chain relies on (collision resistance, no dependency on global
// counters) without exposing the chain's internals to callers.
func Next(k Fragment) Fragment {
	sum := sha256.Sum256(k[:])
	var next Fragment
	copy(next[:], sum[:16])
	return next
}

// Zero reports whether the key is the zero value (used as a "not yet
// assigned" sentinel for the earliest-fragment key before a writer has
// started).
func (k Fragment) Zero() bool {
	return k == Fragment{}
}

// FirstFragmentKey derives fragment 0's key deterministically from the
// object key, the same way Next derives every later fragment's key from
// its predecessor: a truncated SHA-256. This keeps every object's earliest
// fragment unique within a shared Directory instead of defaulting to a
// single zero key shared by every freshly written object.
func FirstFragmentKey(k Object) Fragment {
	sum := sha256.Sum256(k[:])
	var first Fragment
	copy(first[:], sum[:16])
	return first
}
