// Package collab declares the interfaces the cache core consumes from its
// surrounding host. The core never touches a disk block or a
// socket directly; every side effect beyond memory and mutexes is expressed
// as a call through one of these interfaces, so the same ODE/VC/range-engine
// code runs against a real volume manager or against in-memory fakes in
// tests and in cmd/cachecored's demo harness.
package collab

import (
	"context"

	"github.com/marmos91/cachecore/pkg/cachekey"
)

// DirEntry is an opaque on-disk location handle returned by Directory.
// The core never interprets its contents; it is passed back verbatim to
// VolumeIO.
type DirEntry struct {
	// Offset and Generation are enough for the in-memory fake collaborators
	// used by tests and cmd/cachecored; a real directory implementation is
	// free to store additional fields behind this same struct.
	Offset     int64
	Generation cachekey.Generation
}

// Directory locates the on-disk position of a fragment by its content key.
// Implementations serialize their own concurrency; the core only ever holds
// the ODE mutex while calling these.
type Directory interface {
	Probe(ctx context.Context, key cachekey.Fragment) (DirEntry, bool, error)
	Delete(ctx context.Context, key cachekey.Fragment) error
	Insert(ctx context.Context, key cachekey.Fragment, entry DirEntry) error
	Overwrite(ctx context.Context, key cachekey.Fragment, entry, prev DirEntry) error
}

// ReadResult is delivered to a VC when a submitted VolumeIO.Read completes.
type ReadResult struct {
	Data []byte
	Err  error
}

// VolumeIO submits and completes disk operations against the fragment store.
// Read is non-blocking: it returns a channel that receives exactly one
// ReadResult, mirroring the VC layer's completion-event model without
// requiring the core to depend on a particular scheduler.
type VolumeIO interface {
	Read(ctx context.Context, entry DirEntry, buf []byte) <-chan ReadResult
	CloseRead(vcID string) error
	CloseWrite(vcID string) error
	BeginRead(vcID string) error
	ForceEvacuateHead(entry DirEntry, pinned bool) error
}

// AltSelectMiss is returned by an AltSelect function when no alternate in
// the vector matches the request.
const AltSelectMiss = -1

// AltSelect ranks the alternates in vector against a request and returns the
// chosen group index, or AltSelectMiss. It is a pure function over headers;
// the vector type is passed as `any` to avoid an import cycle with
// pkg/altvec (which in turn depends on this package for the Scheduler and
// HeaderMarshal interfaces).
type AltSelect func(vector any, requestHeader, params map[string][]string) int

// NextFragmentKey computes the deterministic successor of a fragment key.
// The default implementation is cachekey.Next; callers may substitute a
// different chain for testing.
type NextFragmentKey func(key cachekey.Fragment) cachekey.Fragment

// MarshalState is the outcome of a HeaderMarshal round trip.
type MarshalState int

const (
	// Alive indicates the marshaled header block is well-formed and in use.
	Alive MarshalState = iota
	// Marshaled indicates a fresh marshal completed successfully.
	Marshaled
	// Corrupt indicates a magic or length mismatch was detected.
	Corrupt
	// Dead indicates the header block belongs to a deleted alternate.
	Dead
)

// HeaderMarshal serializes and deserializes HTTP request/response headers
// with an embedded magic and length check, as used by the alt vector's
// on-wire marshal/unmarshal.
type HeaderMarshal interface {
	Marshal(requestHeader, responseHeader map[string][]string) ([]byte, error)
	Unmarshal(data []byte) (requestHeader, responseHeader map[string][]string, state MarshalState, err error)
}

// Event is the event code delivered to a Continuation by the Scheduler.
// Numeric values are deliberately opaque integers rather than an enum of
// well-known names: the core treats most of them as pass-through cookies
// and only interprets the handful of well-known events defined below.
type Event int

// Continuation is anything the Scheduler can deliver an event to: a read or
// write VC. It is the Go analogue of the original's continuation object,
// generalized so pkg/altvec and pkg/ode can hold waiter/writer references
// without importing pkg/vc.
type Continuation interface {
	// ID identifies the continuation for logging and waiter-list dedup.
	ID() string
	// HandleEvent delivers an event with an opaque cookie/payload to the
	// continuation. Whether the Scheduler invokes it inline on the caller's
	// goroutine or queues it is up to the Scheduler implementation.
	HandleEvent(event Event, cookie uint64, data any)
}

// Scheduler drives Continuations. schedule_in/schedule_imm queue
// a later re-entry into the same continuation's current handler;
// handleEvent/wake_up deliver a specific event out of band (e.g. a writer
// waking a reader on fragment completion).
type Scheduler interface {
	ScheduleIn(cont Continuation, delay int64)
	ScheduleImm(cont Continuation)
	HandleEvent(cont Continuation, event Event, cookie uint64, data any)
	WakeUp(cont Continuation, event Event, cookie uint64)
}

// Well-known events a Scheduler may deliver. Collaborator-specific event
// codes (disk read completion, etc.) live alongside these in the same int
// space; the core only switches on the codes below.
const (
	EventCont Event = iota
	EventAltUpdated
	EventWriterGone
	EventReadReady
	EventReadComplete
	EventEOS
	EventErr
)
