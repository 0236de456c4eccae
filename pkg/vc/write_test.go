package vc

import (
	"context"
	"testing"

	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/collab"
	"github.com/marmos91/cachecore/pkg/ode"
	"github.com/stretchr/testify/require"
)

func TestWriteVCPublishesAndUnblocksWaitingReader(t *testing.T) {
	const fragSize = 64 * 1024
	reg := ode.NewRegistry(4, 0)
	dir := newFakeDirectory()
	vol := newFakeVolume()
	sched := &fakeScheduler{}

	var key cachekey.Object
	copy(key[:], []byte("object-under-test"))

	wvc := NewWriteVC(key, fragSize, nil, nil)
	wvc.Registry = reg
	wvc.Directory = dir
	wvc.Volume = vol
	wvc.Scheduler = sched

	// Drive to openWriteStart, which creates the slice and publishes the
	// new group before any fragment has landed.
	eff := runToEffect(wvc.Step, 4)
	require.Equal(t, EffectYield, eff.Kind, "no fragments enqueued yet")
	require.Equal(t, StateOpenWriteFragment, wvc.state)

	// A reader opens read on the same key while the writer is mid-flight.
	entry, ok := reg.OpenRead(key)
	require.True(t, ok)
	require.Equal(t, wvc.entry, entry)

	vol.put(0, []byte("hello world"))
	wvc.Enqueue([]byte("hello world"), collab.DirEntry{Offset: 0}, true, true)

	eff = runToEffect(wvc.Step, 8)
	require.Equal(t, EffectDone, eff.Kind)
	require.NoError(t, eff.Err)

	require.Equal(t, 1, entry.Vector.Count())
	head := entry.Vector.HeadRef(0)
	require.True(t, head.IsValid())
	require.True(t, head.Slice().Cached(0))

	got, found, err := dir.Probe(context.Background(), head.Slice().Earliest.Key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(0), got.Offset)
}

func TestWriteVCReleasesWriterSlotOnCancel(t *testing.T) {
	const fragSize = 64 * 1024
	reg := ode.NewRegistry(4, 1)
	dir := newFakeDirectory()
	sched := &fakeScheduler{}

	var key cachekey.Object
	copy(key[:], []byte("cancelled-object"))

	wvc := NewWriteVC(key, fragSize, nil, nil)
	wvc.Registry = reg
	wvc.Directory = dir
	wvc.Scheduler = sched

	runToEffect(wvc.Step, 4)
	require.True(t, wvc.acquiredSlot)

	wvc.Cancel()
	eff := runToEffect(wvc.Step, 4)
	require.Equal(t, EffectDone, eff.Kind)
	require.Equal(t, 0, reg.Len(), "entry with no remaining refs and no in-flight vector write is dropped")

	// A fresh write against the same key must be able to acquire the lone
	// writer slot again now that the first writer released it.
	wvc2 := NewWriteVC(key, fragSize, nil, nil)
	wvc2.Registry = reg
	wvc2.Directory = dir
	wvc2.Scheduler = sched
	eff = runToEffect(wvc2.Step, 4)
	require.Equal(t, EffectYield, eff.Kind)
	require.True(t, wvc2.acquiredSlot)
}
