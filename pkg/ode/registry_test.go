package ode

import (
	"context"
	"sync"
	"testing"

	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/stretchr/testify/require"
)

func TestOpenReadNeverCreates(t *testing.T) {
	r := NewRegistry(8, 4)
	key := cachekey.Object{0x01}

	_, ok := r.OpenRead(key)
	require.False(t, ok)
}

func TestOpenWriteCreatesOnce(t *testing.T) {
	r := NewRegistry(8, 4)
	key := cachekey.Object{0x02}

	const n = 32
	entries := make([]*Entry, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			e, err := r.OpenWrite(context.Background(), key)
			require.NoError(t, err)
			entries[i] = e
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		require.Same(t, entries[0], entries[i], "concurrent OpenWrite calls must coalesce to one entry")
	}
	require.Equal(t, n, entries[0].NumActive())
}

func TestCloseRemovesEntryAtZeroRefs(t *testing.T) {
	r := NewRegistry(8, 4)
	key := cachekey.Object{0x03}

	e, err := r.OpenWrite(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, 1, e.NumActive())

	r.Close(key)
	_, ok := r.OpenRead(key)
	require.False(t, ok)
}

func TestBeginWriterUpdateRejectsConcurrentWriter(t *testing.T) {
	r := NewRegistry(8, 4)
	key := cachekey.Object{0x04}
	e, err := r.OpenWrite(context.Background(), key)
	require.NoError(t, err)

	vc1 := &fakeCont{id: "vc1"}
	vc2 := &fakeCont{id: "vc2"}
	require.NoError(t, e.BeginWriterUpdate(vc1))
	require.Error(t, e.BeginWriterUpdate(vc2))
}

func TestWaitOnWriterAndPublish(t *testing.T) {
	e := newEntry(cachekey.Object{0x05}, 4)
	vc := &fakeCont{id: "writer"}
	reader := &fakeCont{id: "reader"}

	require.False(t, e.WaitOnWriter(reader), "no writer yet, reader proceeds normally")

	require.NoError(t, e.BeginWriterUpdate(vc))
	require.True(t, e.WaitOnWriter(reader))

	sched := &fakeScheduler{}
	e.PublishVectorUpdate(sched, cachekey.Fragment{0xAA, 0xBB})

	require.Len(t, sched.woken, 1)
	require.Equal(t, "reader", sched.woken[0].id)
}
