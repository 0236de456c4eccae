package vc

import (
	"context"
	"sync"

	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/collab"
)

// fakeDirectory is an in-memory collab.Directory for tests.
type fakeDirectory struct {
	mu      sync.Mutex
	entries map[cachekey.Fragment]collab.DirEntry
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{entries: make(map[cachekey.Fragment]collab.DirEntry)}
}

func (d *fakeDirectory) Probe(ctx context.Context, key cachekey.Fragment) (collab.DirEntry, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[key]
	return e, ok, nil
}

func (d *fakeDirectory) Delete(ctx context.Context, key cachekey.Fragment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, key)
	return nil
}

func (d *fakeDirectory) Insert(ctx context.Context, key cachekey.Fragment, entry collab.DirEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key] = entry
	return nil
}

func (d *fakeDirectory) Overwrite(ctx context.Context, key cachekey.Fragment, entry, prev collab.DirEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key] = entry
	return nil
}

// fakeVolume serves reads straight out of an in-memory block map keyed by
// DirEntry.Offset, ignoring Generation.
type fakeVolume struct {
	mu     sync.Mutex
	blocks map[int64][]byte
}

func newFakeVolume() *fakeVolume {
	return &fakeVolume{blocks: make(map[int64][]byte)}
}

func (v *fakeVolume) put(offset int64, data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.blocks[offset] = data
}

func (v *fakeVolume) Read(ctx context.Context, entry collab.DirEntry, buf []byte) <-chan collab.ReadResult {
	ch := make(chan collab.ReadResult, 1)
	v.mu.Lock()
	data, ok := v.blocks[entry.Offset]
	v.mu.Unlock()
	if !ok {
		ch <- collab.ReadResult{Err: context.DeadlineExceeded}
	} else {
		n := copy(buf, data)
		ch <- collab.ReadResult{Data: buf[:n]}
	}
	close(ch)
	return ch
}

func (v *fakeVolume) CloseRead(vcID string) error                        { return nil }
func (v *fakeVolume) CloseWrite(vcID string) error                       { return nil }
func (v *fakeVolume) BeginRead(vcID string) error                        { return nil }
func (v *fakeVolume) ForceEvacuateHead(entry collab.DirEntry, pinned bool) error { return nil }

// fakeScheduler runs HandleEvent/WakeUp calls synchronously and records
// ScheduleIn/ScheduleImm requests so a test driver can pump them.
type fakeScheduler struct {
	mu       sync.Mutex
	immed    []collab.Continuation
	delayed  []collab.Continuation
}

func (s *fakeScheduler) ScheduleIn(cont collab.Continuation, delay int64) {
	s.mu.Lock()
	s.delayed = append(s.delayed, cont)
	s.mu.Unlock()
}

func (s *fakeScheduler) ScheduleImm(cont collab.Continuation) {
	s.mu.Lock()
	s.immed = append(s.immed, cont)
	s.mu.Unlock()
}

func (s *fakeScheduler) HandleEvent(cont collab.Continuation, event collab.Event, cookie uint64, data any) {
	cont.HandleEvent(event, cookie, data)
}

func (s *fakeScheduler) WakeUp(cont collab.Continuation, event collab.Event, cookie uint64) {
	cont.HandleEvent(event, cookie, nil)
}

// selectFirst is a collab.AltSelect that always picks group 0, or Miss on an
// empty vector.
func selectFirst(vector any, requestHeader, params map[string][]string) int {
	type counter interface{ Count() int }
	if v, ok := vector.(counter); ok && v.Count() > 0 {
		return 0
	}
	return collab.AltSelectMiss
}

// runToEffect steps vc until it yields, retries, or finishes, returning the
// terminal/yielding Effect. Used so tests don't hand-unroll the state
// machine.
func runToEffect(step func(context.Context) Effect, max int) Effect {
	var eff Effect
	for i := 0; i < max; i++ {
		eff = step(context.Background())
		if eff.Kind != EffectContinue {
			return eff
		}
	}
	return eff
}
