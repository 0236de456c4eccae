// Package vc implements the read and write virtual-connection state
// machines as an enum of states and a tagged step function rather than
// virtual dispatch: each handler is a plain method keyed off a ReadState
// value rather than a polymorphic continuation that mutates its own
// handler pointer; a Driver repeatedly calls Step until an Effect tells
// it to stop.
package vc

import "github.com/marmos91/cachecore/pkg/cacheerr"

// ReadState enumerates the Read VC handlers.
type ReadState int

const (
	StateOpenReadStartHead ReadState = iota
	StateOpenReadFromWriter
	StateWaitForAltUpdate
	StateOpenReadStartEarliest
	StateOpenReadWaitEarliest
	StateOpenReadVecWrite
	StateOpenReadMain
	StateFetchFromCache
	StateOpenReadReadDone
	StateShipContent
	StateOpenReadClose
)

func (s ReadState) String() string {
	switch s {
	case StateOpenReadStartHead:
		return "openReadStartHead"
	case StateOpenReadFromWriter:
		return "openReadFromWriter"
	case StateWaitForAltUpdate:
		return "waitForAltUpdate"
	case StateOpenReadStartEarliest:
		return "openReadStartEarliest"
	case StateOpenReadWaitEarliest:
		return "openReadWaitEarliest"
	case StateOpenReadVecWrite:
		return "openReadVecWrite"
	case StateOpenReadMain:
		return "openReadMain"
	case StateFetchFromCache:
		return "fetchFromCache"
	case StateOpenReadReadDone:
		return "openReadReadDone"
	case StateShipContent:
		return "shipContent"
	case StateOpenReadClose:
		return "openReadClose"
	default:
		return "unknown"
	}
}

// EffectKind tells the Driver what to do after a Step call.
type EffectKind int

const (
	// EffectContinue re-enters Step immediately in the new state.
	EffectContinue EffectKind = iota
	// EffectYield suspends until an external event re-enters Step (e.g.
	// disk read completion, or being woken from a slice's waiting list).
	EffectYield
	// EffectRetry re-enters Step after RetryDelay: a lock could not be
	// acquired, so the VC yields by re-scheduling itself.
	EffectRetry
	// EffectReadReady signals a completed partial read to the consumer.
	EffectReadReady
	// EffectDone terminates the VC, successfully or with Err set.
	EffectDone
)

// Effect is the result of one Step call: what the Driver should do next,
// and -- for EffectDone -- the terminal error, if any.
type Effect struct {
	Kind       EffectKind
	RetryDelay int64
	Err        error
}

func contEffect() Effect          { return Effect{Kind: EffectContinue} }
func yieldEffect() Effect         { return Effect{Kind: EffectYield} }
func retryEffect(delay int64) Effect { return Effect{Kind: EffectRetry, RetryDelay: delay} }
func doneEffect(err error) Effect { return Effect{Kind: EffectDone, Err: err} }

// RetryPeriod is the default re-schedule delay
// used whenever a handler cannot acquire a lock immediately, expressed in
// the same opaque time unit collab.Scheduler.ScheduleIn takes.
const RetryPeriod int64 = 10

var errUnwriteableUncached = cacheerr.New(cacheerr.NoDoc, "vc.openReadMain", "fragment uncached and no writer to wait on")
