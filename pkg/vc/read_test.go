package vc

import (
	"bytes"
	"context"
	"testing"

	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/collab"
	"github.com/marmos91/cachecore/pkg/ode"
	"github.com/marmos91/cachecore/pkg/rangeengine"
	"github.com/stretchr/testify/require"
)

// writeWholeObject drives a WriteVC through start/fragment/publish, then
// hands the caller a held-open *ode.Entry reference (taken via OpenRead
// before the writer's own Close releases its reference) so the entry
// survives into the read VC test that follows -- a long-lived ODE registry
// doesn't persist idle entries to disk in this reference implementation, so
// tests model "another VC already has it open" rather than an on-disk
// header rehydration path.
func writeWholeObject(t *testing.T, reg *ode.Registry, dir *fakeDirectory, vol *fakeVolume, sched *fakeScheduler, key cachekey.Object, body []byte) *ode.Entry {
	t.Helper()
	wvc := NewWriteVC(key, 1<<20, nil, nil)
	wvc.Registry = reg
	wvc.Directory = dir
	wvc.Volume = vol
	wvc.Scheduler = sched

	eff := runToEffect(wvc.Step, 4)
	require.Equal(t, EffectYield, eff.Kind)
	require.Equal(t, StateOpenWriteFragment, wvc.state)

	vol.put(0, body)
	wvc.Enqueue(body, collab.DirEntry{Offset: 0}, true, true)

	for wvc.state != StateOpenWriteClose {
		eff = runToEffect(wvc.Step, 1)
		require.Equal(t, EffectContinue, eff.Kind)
	}

	held, ok := reg.OpenRead(key)
	require.True(t, ok)

	eff = wvc.Step(context.Background())
	require.Equal(t, EffectDone, eff.Kind)
	require.NoError(t, eff.Err)

	return held
}

func TestReadVCFullBodyAgainstFreshlyWrittenObject(t *testing.T) {
	reg := ode.NewRegistry(4, 0)
	dir := newFakeDirectory()
	vol := newFakeVolume()
	sched := &fakeScheduler{}

	var key cachekey.Object
	copy(key[:], []byte("read-target"))
	body := []byte("the quick brown fox jumps over the lazy dog")
	writeWholeObject(t, reg, dir, vol, sched, key, body)

	var out bytes.Buffer
	rvc := NewReadVC(key, nil, &out)
	rvc.Registry = reg
	rvc.Directory = dir
	rvc.Volume = vol
	rvc.Scheduler = sched
	rvc.AltSelect = selectFirst

	eff := runToEffect(rvc.Step, 20)
	require.Equal(t, EffectDone, eff.Kind)
	require.NoError(t, eff.Err)
	require.Equal(t, body, out.Bytes())
}

func TestReadVCSingleRangeAgainstFreshlyWrittenObject(t *testing.T) {
	reg := ode.NewRegistry(4, 0)
	dir := newFakeDirectory()
	vol := newFakeVolume()
	sched := &fakeScheduler{}

	var key cachekey.Object
	copy(key[:], []byte("range-target"))
	body := []byte("0123456789")
	writeWholeObject(t, reg, dir, vol, sched, key, body)

	spec, err := rangeengine.Parse("bytes=2-5")
	require.NoError(t, err)

	var out bytes.Buffer
	rvc := NewReadVC(key, spec, &out)
	rvc.Registry = reg
	rvc.Directory = dir
	rvc.Volume = vol
	rvc.Scheduler = sched
	rvc.AltSelect = selectFirst
	rvc.ResolveRange(int64(len(body)), "text/plain")

	eff := runToEffect(rvc.Step, 20)
	require.Equal(t, EffectDone, eff.Kind)
	require.NoError(t, eff.Err)
	require.Equal(t, []byte("2345"), out.Bytes())
}

func TestReadVCMultiRangeAgainstFreshlyWrittenObject(t *testing.T) {
	reg := ode.NewRegistry(4, 0)
	dir := newFakeDirectory()
	vol := newFakeVolume()
	sched := &fakeScheduler{}

	var key cachekey.Object
	copy(key[:], []byte("multi-range-target"))
	body := []byte("0123456789")
	writeWholeObject(t, reg, dir, vol, sched, key, body)

	spec, err := rangeengine.Parse("bytes=0-0,8-9")
	require.NoError(t, err)

	var out bytes.Buffer
	rvc := NewReadVC(key, spec, &out)
	rvc.Registry = reg
	rvc.Directory = dir
	rvc.Volume = vol
	rvc.Scheduler = sched
	rvc.AltSelect = selectFirst
	rvc.ResolveRange(int64(len(body)), "text/plain")
	require.Equal(t, rangeengine.Multi, rvc.Resolved().State)
	require.NotEmpty(t, rvc.Boundary())

	wantLen := rvc.ContentLength()

	var eff Effect
	for i := 0; i < 50 && eff.Kind != EffectDone; i++ {
		eff = rvc.Step(context.Background())
	}
	require.Equal(t, EffectDone, eff.Kind)
	require.NoError(t, eff.Err)

	// Every emitted byte must be accounted for by CalcContentLength: the
	// leading boundary on range 0 and the closing trailer are not optional
	// extras layered on top of the data, they're part of the advertised
	// Content-Length.
	require.Equal(t, wantLen, int64(out.Len()))

	boundaryLine := "\r\n--" + rvc.Boundary()
	require.True(t, bytes.HasPrefix(out.Bytes(), []byte(boundaryLine)), "body must open with the range-0 boundary block")
	require.True(t, bytes.HasSuffix(out.Bytes(), []byte(boundaryLine+"--")), "body must close with the multipart trailer")
	require.Contains(t, out.String(), "Content-Range: bytes 0-0/10")
	require.Contains(t, out.String(), "Content-Range: bytes 8-9/10")
	require.Contains(t, out.String(), "0")
	require.Contains(t, out.String(), "89")
}

func TestReadVCMissingObjectFailsNoDoc(t *testing.T) {
	reg := ode.NewRegistry(4, 0)
	var key cachekey.Object
	copy(key[:], []byte("never-written"))

	var out bytes.Buffer
	rvc := NewReadVC(key, nil, &out)
	rvc.Registry = reg
	rvc.AltSelect = selectFirst

	eff := runToEffect(rvc.Step, 4)
	require.Equal(t, EffectDone, eff.Kind)
	require.Error(t, eff.Err)
}
