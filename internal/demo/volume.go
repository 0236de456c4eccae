package demo

import (
	"context"
	"sync"

	"github.com/marmos91/cachecore/pkg/collab"
)

// Volume is an in-memory collab.VolumeIO, generalized from pkg/vc's
// fakeVolume for use outside test files. It has no Write method on the
// collab.VolumeIO interface itself -- the core never issues a disk write
// (pkg/collab's VolumeIO deliberately exposes only Read, CloseRead,
// CloseWrite, BeginRead and ForceEvacuateHead) -- so Put is the demo
// server's own entry point: a PUT handler calls Put to land a fragment's
// bytes, then reports completion to the WriteVC via WriteVC.Enqueue with
// the DirEntry Put returns.
type Volume struct {
	mu      sync.Mutex
	blocks  map[int64][]byte
	nextOff int64
}

// NewVolume constructs an empty Volume.
func NewVolume() *Volume {
	return &Volume{blocks: make(map[int64][]byte)}
}

// Put stores data at a freshly allocated offset and returns that offset,
// which the caller wraps in a collab.DirEntry for WriteVC.Enqueue.
func (v *Volume) Put(data []byte) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	off := v.nextOff
	v.nextOff += int64(len(data)) + 1
	cp := make([]byte, len(data))
	copy(cp, data)
	v.blocks[off] = cp
	return off
}

// Read implements collab.VolumeIO: it resolves synchronously but returns
// through the channel the interface promises, so callers that poll it
// non-blockingly (pkg/vc.ReadVC.openReadReadDone) behave identically
// against this collaborator as against a real asynchronous one.
func (v *Volume) Read(ctx context.Context, entry collab.DirEntry, buf []byte) <-chan collab.ReadResult {
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

func (v *Volume) CloseRead(vcID string) error  { return nil }
func (v *Volume) CloseWrite(vcID string) error { return nil }
func (v *Volume) BeginRead(vcID string) error  { return nil }

func (v *Volume) ForceEvacuateHead(entry collab.DirEntry, pinned bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.blocks, entry.Offset)
	return nil
}

// Len reports the number of fragment blocks currently resident.
func (v *Volume) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.blocks)
}
