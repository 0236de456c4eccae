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
	"github.com/marmos91/cachecore/pkg/rangeengine"
	"go.opentelemetry.io/otel/trace"
)

// ReadVC drives one reader's walk through the fragment table and side
// buffers of an alternate, shipping bytes (optionally across an HTTP range
// request) to a consumer.
type ReadVC struct {
	id string

	Registry      *ode.Registry
	Directory     collab.Directory
	Volume        collab.VolumeIO
	Scheduler     collab.Scheduler
	AltSelect     collab.AltSelect
	RequestHeader map[string][]string
	Params        map[string][]string
	Out           Sink
	Metrics       metrics.CoreMetrics

	key      cachekey.Object
	entry    *ode.Entry
	groupIdx int
	sliceRef altvec.SliceRef

	// writerVC is set when this reader was opened directly against an
	// in-flight writer; nil otherwise.
	writerVC collab.Continuation

	state ReadState

	fragIdx int
	fragKey cachekey.Fragment

	waitBuffer    []byte
	waitBufferPos int64

	resolved *rangeengine.Resolved
	cursor   *rangeengine.Cursor
	ntodo    int64

	contentType string
	boundary    string
	objSize     int64
	trailerSent bool

	pendingDirEntry collab.DirEntry
	readCh          <-chan collab.ReadResult

	// pendingRange holds the parsed Range header until the object length
	// is known; ResolveRange applies it once the chosen alternate's size
	// is available.
	pendingRange *rangeengine.Spec

	cancelled bool
}

// Sink receives shipped bytes; *bytes.Buffer and any io.Writer satisfy it.
type Sink interface {
	Write(p []byte) (int, error)
}

// NewReadVC constructs a reader for key, resolved against the object
// length once known and the parsed Range header rng (nil for a full-body
// request).
func NewReadVC(key cachekey.Object, rng *rangeengine.Spec, out Sink) *ReadVC {
	return &ReadVC{id: uuid.NewString(), key: key, Out: out, state: StateOpenReadStartHead, pendingRange: rng}
}

func (vc *ReadVC) ID() string { return vc.id }

// ResolveRange applies the pending Range header against the chosen
// alternate's object size once it's known (typically right after
// openReadStartHead selects a slice). Must be called before Step reaches
// openReadMain if a Range header was supplied; a full-body request (rng ==
// nil in NewReadVC) never needs it.
func (vc *ReadVC) ResolveRange(objSize int64, contentType string) {
	vc.objSize = objSize
	vc.contentType = contentType

	if vc.pendingRange != nil {
		vc.resolved = vc.pendingRange.Apply(objSize)
	} else {
		vc.resolved = &rangeengine.Resolved{State: rangeengine.Empty}
	}

	if vc.resolved.State == rangeengine.Multi {
		if b, err := rangeengine.GenerateBoundary(vc.key); err == nil {
			vc.boundary = b
		}
	}
	vc.ntodo = rangeengine.CalcContentLength(vc.resolved, objSize, vc.contentType, vc.boundary)

	// The cursor needs a concrete byte span to walk even for the Empty
	// (full-object) case, which rangeengine deliberately leaves without a
	// Ranges entry -- it means "no Range header", not "zero bytes".
	cursorRanges := vc.resolved.Ranges
	if vc.resolved.State == rangeengine.Empty && objSize > 0 {
		cursorRanges = []rangeengine.Range{{Min: 0, Max: objSize - 1}}
	}
	vc.cursor = rangeengine.NewCursor(&rangeengine.Resolved{State: vc.resolved.State, Ranges: cursorRanges})
}

// Resolved returns the outcome of applying the caller's Range header
// against the object size, valid once ResolveRange has run. A caller needs
// this to pick the response status (200, 206, or 416) and headers before
// any bytes are shipped.
func (vc *ReadVC) Resolved() *rangeengine.Resolved { return vc.resolved }

// ContentLength returns the number of bytes Step will write to Out,
// including multipart boundary overhead for a Multi range response.
func (vc *ReadVC) ContentLength() int64 { return vc.ntodo }

// Boundary returns the multipart boundary chosen for a Multi range
// response, or "" otherwise.
func (vc *ReadVC) Boundary() string { return vc.boundary }

// HandleEvent delivers an out-of-band event: a writer publishing
// an alt-vector update, a writer completion handing over bytes, or a
// writer disappearing while this reader waited on it.
func (vc *ReadVC) HandleEvent(event collab.Event, cookie uint64, data any) {
	switch event {
	case collab.EventAltUpdated:
		if vc.state == StateWaitForAltUpdate {
			vc.state = StateOpenReadFromWriter
		}
	case collab.EventReadReady:
		if buf, ok := data.([]byte); ok {
			vc.waitBuffer = buf
			vc.waitBufferPos = vc.slice().OffsetOf(vc.fragIdx)
		}
		vc.state = StateOpenReadMain
	case collab.EventWriterGone:
		vc.cancelled = true
	}
}

// Cancel marks the VC for teardown at the next Step.
func (vc *ReadVC) Cancel() { vc.cancelled = true }

func (vc *ReadVC) slice() *altvec.Slice { return vc.sliceRef.Slice() }

// Step executes exactly one handler and returns the Effect the Driver
// should act on.
func (vc *ReadVC) Step(ctx context.Context) Effect {
	if vc.cancelled && vc.state != StateOpenReadClose {
		vc.state = StateOpenReadClose
	}

	trace.SpanFromContext(ctx).AddEvent("vc.step", trace.WithAttributes(telemetry.VCState(vc.state.String())))

	switch vc.state {
	case StateOpenReadStartHead:
		return vc.openReadStartHead(ctx)
	case StateOpenReadFromWriter:
		return vc.openReadFromWriter()
	case StateWaitForAltUpdate:
		return yieldEffect()
	case StateOpenReadStartEarliest:
		return vc.openReadStartEarliest()
	case StateOpenReadWaitEarliest:
		return vc.openReadWaitEarliest()
	case StateOpenReadVecWrite:
		return vc.openReadVecWrite()
	case StateOpenReadMain:
		return vc.openReadMain()
	case StateFetchFromCache:
		return vc.fetchFromCache(ctx)
	case StateOpenReadReadDone:
		return vc.openReadReadDone()
	case StateShipContent:
		return vc.shipContent()
	case StateOpenReadClose:
		return vc.openReadClose()
	default:
		return doneEffect(cacheerr.New(cacheerr.BadMetaData, "vc.Step", "unknown state"))
	}
}

func (vc *ReadVC) openReadStartHead(ctx context.Context) Effect {
	e, ok := vc.Registry.OpenRead(vc.key)
	if !ok {
		return doneEffect(cacheerr.Of(cacheerr.NoDoc))
	}
	vc.entry = e

	idx := vc.AltSelect(e.Vector, vc.RequestHeader, vc.Params)
	if idx == collab.AltSelectMiss {
		return doneEffect(cacheerr.Of(cacheerr.AltMiss))
	}
	vc.groupIdx = idx
	vc.sliceRef = e.Vector.HeadRef(idx)

	if vc.slice().Fragments == nil {
		vc.state = StateOpenReadMain
	} else {
		vc.state = StateOpenReadStartEarliest
	}
	return contEffect()
}

func (vc *ReadVC) openReadFromWriter() Effect {
	if vc.entry.WaitOnWriter(vc) {
		vc.state = StateWaitForAltUpdate
		return yieldEffect()
	}

	idx := vc.AltSelect(vc.entry.Vector, vc.RequestHeader, vc.Params)
	if idx == collab.AltSelectMiss {
		return doneEffect(cacheerr.Of(cacheerr.AltMiss))
	}
	vc.groupIdx = idx
	vc.sliceRef = vc.entry.Vector.HeadRef(idx)
	vc.state = StateOpenReadStartEarliest
	return contEffect()
}

func (vc *ReadVC) openReadStartEarliest() Effect {
	s := vc.slice()
	if s.Cached(0) {
		vc.fragIdx = 0
		vc.fragKey = s.Earliest.Key
		vc.state = StateFetchFromCache
		return contEffect()
	}
	vc.state = StateOpenReadWaitEarliest
	return contEffect()
}

func (vc *ReadVC) openReadWaitEarliest() Effect {
	if !vc.slice().WaitFor(vc, 0) {
		return doneEffect(cacheerr.Of(cacheerr.NoDoc))
	}
	return yieldEffect()
}

func (vc *ReadVC) openReadVecWrite() Effect {
	vc.entry.Vector.Clean()
	vc.state = StateOpenReadStartHead
	return contEffect()
}

// openReadMain is the main service loop: pick the next byte span to ship.
func (vc *ReadVC) openReadMain() Effect {
	s := vc.slice()

	if len(vc.waitBuffer) > 0 {
		vc.state = StateShipContent
		return contEffect()
	}
	if vc.cursor != nil && vc.cursor.Remnant() == 0 && vc.ntodo > 0 {
		return doneEffect(nil) // EOS
	}

	target := vc.targetPosition()
	frag := s.IndexOf(target)

	switch {
	case s.Cached(frag):
		vc.fragIdx = frag
		vc.fragKey = s.KeyAt(frag)
		vc.state = StateFetchFromCache
		return contEffect()

	case vc.entry == nil:
		return doneEffect(errUnwriteableUncached)

	default:
		clip := vc.clipToFragment(target)
		if buf, ok := s.GetSideBuffer(target, clip); ok {
			vc.waitBuffer = buf
			vc.waitBufferPos = target
			vc.state = StateShipContent
			return contEffect()
		}
		if hstart, hend, ok := s.ComputeUncachedHull(target, target+clip-1); ok {
			// Round the hull to the fragment grid before reporting it: a
			// refetch is always issued in whole fragments, so the byte count
			// that matters for capacity planning is the quantized one, not
			// the raw convex hull.
			quantized := rangeengine.Quantize([]rangeengine.Range{{Min: hstart, Max: hend}}, s.FixedFragSize, 0, vc.objSize)
			for _, r := range quantized {
				metrics.RecordHullBytes(vc.Metrics, r.Max-r.Min+1)
			}
		}
		if !s.WaitFor(vc, frag) {
			return doneEffect(cacheerr.Of(cacheerr.DocBusy))
		}
		vc.fragIdx = frag
		return yieldEffect()
	}
}

// clipToFragment returns how many bytes from position remain within its
// containing fragment, used to bound a side-buffer lookup to one
// fragment's worth of data.
func (vc *ReadVC) clipToFragment(position int64) int64 {
	s := vc.slice()
	frag := s.IndexOf(position)
	next := s.OffsetOf(frag + 1)
	return next - position
}

func (vc *ReadVC) targetPosition() int64 {
	if vc.cursor != nil {
		return vc.cursor.Offset()
	}
	return vc.waitBufferPos
}

func (vc *ReadVC) fetchFromCache(ctx context.Context) Effect {
	entry, ok, err := vc.Directory.Probe(ctx, vc.fragKey)
	if err != nil {
		return doneEffect(err)
	}
	if !ok {
		_ = vc.Directory.Delete(ctx, vc.fragKey)
		return doneEffect(cacheerr.Of(cacheerr.NoDoc))
	}
	vc.pendingDirEntry = entry

	buf := make([]byte, vc.slice().FixedFragSize)
	vc.readCh = vc.Volume.Read(ctx, entry, buf)
	vc.state = StateOpenReadReadDone
	return contEffect()
}

func (vc *ReadVC) openReadReadDone() Effect {
	select {
	case res, open := <-vc.readCh:
		if !open {
			return yieldEffect()
		}
		if res.Err != nil {
			return doneEffect(cacheerr.Wrap(cacheerr.Truncated, "vc.openReadReadDone", "disk read failed", res.Err))
		}
		vc.waitBuffer = res.Data
		vc.waitBufferPos = vc.slice().OffsetOf(vc.fragIdx)
		vc.state = StateOpenReadMain
		return contEffect()
	default:
		return yieldEffect()
	}
}

func (vc *ReadVC) shipContent() Effect {
	if vc.cursor == nil {
		// Full-body response: ship the whole wait buffer and finish.
		_, err := vc.Out.Write(vc.waitBuffer)
		vc.waitBuffer = nil
		if err != nil {
			return doneEffect(err)
		}
		return doneEffect(nil)
	}

	bufOffset := vc.cursor.Offset() - vc.waitBufferPos
	if bufOffset < 0 || bufOffset >= int64(len(vc.waitBuffer)) {
		vc.waitBuffer = nil
		vc.state = StateOpenReadMain
		return contEffect()
	}

	n := vc.cursor.Remnant()
	if avail := int64(len(vc.waitBuffer)) - bufOffset; avail < n {
		n = avail
	}
	if vc.ntodo > 0 && vc.ntodo < n {
		n = vc.ntodo
	}

	if vc.cursor.HasPendingRangeShift() {
		w := rangeengine.NewMultipartWriter(vc.boundary, vc.contentType, vc.objSize, vc.resolved.Ranges)
		header := w.Header(vc.cursor.RangeIndex())
		if _, err := vc.Out.Write(header); err != nil {
			return doneEffect(err)
		}
		vc.cursor.ConsumeRangeShift()
		if vc.ntodo > 0 {
			vc.ntodo -= int64(len(header))
		}
	}

	if _, err := vc.Out.Write(vc.waitBuffer[bufOffset : bufOffset+n]); err != nil {
		return doneEffect(err)
	}
	vc.cursor.Consume(n)
	if vc.ntodo > 0 {
		vc.ntodo -= n
	}
	consumed := min64(bufOffset+n, int64(len(vc.waitBuffer)))
	vc.waitBuffer = vc.waitBuffer[consumed:]
	vc.waitBufferPos += consumed

	if vc.cursor.Done() && vc.boundary != "" && !vc.trailerSent {
		w := rangeengine.NewMultipartWriter(vc.boundary, vc.contentType, vc.objSize, vc.resolved.Ranges)
		trailer := w.Trailer()
		if _, err := vc.Out.Write(trailer); err != nil {
			return doneEffect(err)
		}
		vc.trailerSent = true
		if vc.ntodo > 0 {
			vc.ntodo -= int64(len(trailer))
		}
	}

	if vc.ntodo == 0 || vc.cursor.Done() {
		return doneEffect(nil)
	}
	vc.state = StateOpenReadMain
	return Effect{Kind: EffectReadReady}
}

func (vc *ReadVC) openReadClose() Effect {
	if vc.entry != nil {
		vc.Registry.Close(vc.key)
	}
	return doneEffect(nil)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
