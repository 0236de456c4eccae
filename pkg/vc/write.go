package vc

import (
	"context"

	"github.com/google/uuid"
	"github.com/marmos91/cachecore/internal/telemetry"
	"github.com/marmos91/cachecore/pkg/altvec"
	"github.com/marmos91/cachecore/pkg/cacheerr"
	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/collab"
	"github.com/marmos91/cachecore/pkg/metrics"
	"github.com/marmos91/cachecore/pkg/ode"
	"go.opentelemetry.io/otel/trace"
)

// WriteState enumerates the Write VC handlers. The write side has no
// counterpart to the read VC's range engine or fragment-fetch machinery:
// a writer only ever produces fragments in order and, at the end, publishes
// its alternate into the ODE's vector.
type WriteState int

const (
	StateOpenWriteStart WriteState = iota
	StateOpenWriteFragment
	StateOpenWritePublish
	StateOpenWriteClose
)

func (s WriteState) String() string {
	switch s {
	case StateOpenWriteStart:
		return "openWriteStart"
	case StateOpenWriteFragment:
		return "openWriteFragment"
	case StateOpenWritePublish:
		return "openWritePublish"
	case StateOpenWriteClose:
		return "openWriteClose"
	default:
		return "unknown"
	}
}

// pendingFragment is one fragment's worth of already-written bytes, handed
// to the VC by its caller once the collaborator's VolumeIO has placed it on
// disk. The core never issues the write itself, so Enqueue is how a caller reports completion.
type pendingFragment struct {
	data    []byte
	dir     collab.DirEntry
	success bool
	final   bool
}

// WriteVC drives one writer's progress through an alternate's fragment
// sequence and, on completion, publishes the updated alternate vector so
// blocked readers can proceed.
type WriteVC struct {
	id string

	Registry  *ode.Registry
	Directory collab.Directory
	Volume    collab.VolumeIO
	Scheduler collab.Scheduler
	Metrics   metrics.CoreMetrics

	RequestHeader  []byte
	ResponseHeader []byte
	FixedFragSize  int64

	// GroupIdx selects which alternate group this write replaces; -1 (the
	// zero value's complement, set by NewWriteVC) appends a fresh group.
	GroupIdx int

	key   cachekey.Object
	entry *ode.Entry
	slice *altvec.Slice

	state   WriteState
	fragIdx int
	queue   []pendingFragment

	altIdxAssigned bool
	acquiredSlot   bool
	cancelled      bool
}

// NewWriteVC constructs a writer for key, appending a fresh alternate group
// by default. Set GroupIdx before the first Step to rewrite an existing
// group instead; its new slice's generation is derived from the current
// head automatically.
func NewWriteVC(key cachekey.Object, fixedFragSize int64, requestHeader, responseHeader []byte) *WriteVC {
	return &WriteVC{
		id:             uuid.NewString(),
		key:            key,
		FixedFragSize:  fixedFragSize,
		RequestHeader:  requestHeader,
		ResponseHeader: responseHeader,
		GroupIdx:       -1,
		state:          StateOpenWriteStart,
	}
}

func (vc *WriteVC) ID() string { return vc.id }

// Enqueue reports one completed fragment write: buf is the fragment's bytes
// (handed to any same-fragment readers already waiting), dir is where the
// collaborator's VolumeIO placed it, success reports whether the disk write
// itself succeeded, and final marks the last fragment of the alternate.
func (vc *WriteVC) Enqueue(buf []byte, dir collab.DirEntry, success, final bool) {
	vc.queue = append(vc.queue, pendingFragment{data: buf, dir: dir, success: success, final: final})
}

// Cancel marks the VC for teardown at the next Step. Any fragment already
// enqueued still gets written_complete treatment; only the publish step is
// skipped. An abort propagates EventWriterGone to readers via CloseWriter
// rather than a vector update.
func (vc *WriteVC) Cancel() { vc.cancelled = true }

// HandleEvent accepts out-of-band events for symmetry with ReadVC; a
// WriteVC only reacts to its own cancellation today.
func (vc *WriteVC) HandleEvent(event collab.Event, cookie uint64, data any) {
	if event == collab.EventWriterGone {
		vc.cancelled = true
	}
}

// Step executes exactly one handler and returns the Effect the Driver
// should act on.
func (vc *WriteVC) Step(ctx context.Context) Effect {
	if vc.cancelled && vc.state != StateOpenWriteClose {
		vc.state = StateOpenWriteClose
	}

	trace.SpanFromContext(ctx).AddEvent("vc.step", trace.WithAttributes(telemetry.VCState(vc.state.String())))

	switch vc.state {
	case StateOpenWriteStart:
		return vc.openWriteStart(ctx)
	case StateOpenWriteFragment:
		return vc.openWriteFragment(ctx)
	case StateOpenWritePublish:
		return vc.openWritePublish()
	case StateOpenWriteClose:
		return vc.openWriteClose()
	default:
		return doneEffect(cacheerr.New(cacheerr.BadMetaData, "vc.Step", "unknown write state"))
	}
}

func (vc *WriteVC) openWriteStart(ctx context.Context) Effect {
	e := vc.entry
	if e == nil {
		var err error
		e, err = vc.Registry.OpenWrite(ctx, vc.key)
		if err != nil {
			return doneEffect(err)
		}
		vc.entry = e
	}

	if !e.TryAcquireWriter() {
		return retryEffect(RetryPeriod)
	}
	vc.acquiredSlot = true

	if err := e.BeginWriterUpdate(vc); err != nil {
		e.ReleaseWriter()
		vc.acquiredSlot = false
		return retryEffect(RetryPeriod)
	}

	var generation cachekey.Generation
	if head := e.Vector.HeadRef(vc.GroupIdx); head.IsValid() {
		generation = head.Slice().Generation + 1
	}

	s := altvec.NewSlice(0, generation, vc.FixedFragSize)
	s.Earliest.Key = cachekey.FirstFragmentKey(vc.key)
	s.RequestHeader = vc.RequestHeader
	s.ResponseHeader = vc.ResponseHeader
	s.Metrics = vc.Metrics
	vc.slice = s
	vc.GroupIdx = e.Vector.Insert(s, vc.GroupIdx)

	vc.state = StateOpenWriteFragment
	return contEffect()
}

func (vc *WriteVC) openWriteFragment(ctx context.Context) Effect {
	if len(vc.queue) == 0 {
		return yieldEffect()
	}

	pf := vc.queue[0]
	vc.queue = vc.queue[1:]

	vc.slice.WriteActive(vc, vc.fragIdx)

	key := vc.slice.KeyAt(vc.fragIdx)
	if pf.success {
		if err := vc.Directory.Insert(ctx, key, pf.dir); err != nil {
			pf.success = false
		}
	}
	vc.slice.WriteComplete(vc.Scheduler, vc, pf.data, pf.success)
	if pf.success {
		vc.altIdxAssigned = true
	}
	vc.fragIdx++

	if pf.final {
		vc.state = StateOpenWritePublish
	}
	return contEffect()
}

func (vc *WriteVC) openWritePublish() Effect {
	vc.entry.PublishVectorUpdate(vc.Scheduler, vc.slice.Earliest.Key)
	vc.state = StateOpenWriteClose
	return contEffect()
}

func (vc *WriteVC) openWriteClose() Effect {
	if vc.entry == nil {
		return doneEffect(nil)
	}
	if vc.Volume != nil {
		_ = vc.Volume.CloseWrite(vc.id)
	}
	// Idempotent: a normal completion already cleared OpenWriter via
	// openWritePublish, so this only matters for a cancelled write that
	// jumped here directly.
	vc.entry.AbortWriterUpdate(vc.Scheduler)
	if vc.slice != nil {
		vc.entry.CloseWriter(vc.Scheduler, vc, vc.slice, vc.altIdxAssigned)
	}
	if vc.acquiredSlot {
		vc.entry.ReleaseWriter()
	}
	vc.Registry.Close(vc.key)
	return doneEffect(nil)
}
