package altvec

import (
	"testing"

	"github.com/marmos91/cachecore/pkg/collab"
	"github.com/marmos91/cachecore/pkg/fragment"
	"github.com/stretchr/testify/require"
)

type fakeCont struct{ id string }

func (f *fakeCont) ID() string { return f.id }
func (f *fakeCont) HandleEvent(event collab.Event, cookie uint64, data any) {}

func TestUncachedHullWithWriter(t *testing.T) {
	const fragSize = 64 * 1024
	s := NewSlice(1, 0, fragSize)
	s.Fragments = fragment.NewTable(fragSize, &s.Earliest)

	s.Earliest.Flags |= fragment.Cached
	for i := 1; i <= 3; i++ {
		d := s.Fragments.ForceAt(i)
		d.Flags |= fragment.Cached
	}
	s.Fragments.MarkWritten(3)
	require.Equal(t, 3, s.CachedIdx())

	w := &fakeCont{id: "writer-1"}
	s.WriteActive(w, 4)
	w2 := &fakeCont{id: "writer-2"}
	s.WriteActive(w2, 5)
	w3 := &fakeCont{id: "writer-3"}
	s.WriteActive(w3, 6)

	start, end, ok := s.ComputeUncachedHull(0, 1048575)
	require.True(t, ok)
	require.Equal(t, int64(7*fragSize), start)
	require.Equal(t, int64(1048575), end)
}

func TestUncachedHullFullyCached(t *testing.T) {
	const fragSize = 64 * 1024
	s := NewSlice(1, 0, fragSize)
	s.Earliest.Flags |= fragment.Cached

	_, _, ok := s.ComputeUncachedHull(0, fragSize-1)
	require.False(t, ok, "single cached fragment leaves nothing to fetch")
}
