package altvec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSideBufferOverlapMerge(t *testing.T) {
	s := NewSlice(1, 0, 64*1024)

	a := make([]byte, 500)
	for i := range a {
		a[i] = byte(i)
	}
	s.AddSideBuffer(a, 1000, 500)

	b := make([]byte, 600)
	for i := range b {
		b[i] = byte(100 + i)
	}
	s.AddSideBuffer(b, 1200, 600)

	require.Len(t, s.sideBuffers, 1, "overlapping buffers merge into one")
	require.Equal(t, int64(1000), s.sideBuffers[0].position)
	require.Len(t, s.sideBuffers[0].data, 800)

	got, ok := s.GetSideBuffer(1100, 400)
	require.True(t, ok)
	require.Equal(t, a[100:500], got)
}

func TestSideBufferInsertBefore(t *testing.T) {
	s := NewSlice(1, 0, 64*1024)

	s.AddSideBuffer([]byte("later"), 2000, 5)
	s.AddSideBuffer([]byte("earlier"), 100, 7)

	require.Len(t, s.sideBuffers, 2)
	require.Equal(t, int64(100), s.sideBuffers[0].position)
	require.Equal(t, int64(2000), s.sideBuffers[1].position)
}

func TestSideBufferNoCoverageFails(t *testing.T) {
	s := NewSlice(1, 0, 64*1024)
	s.AddSideBuffer([]byte("hello"), 0, 5)

	_, ok := s.GetSideBuffer(10, 5)
	require.False(t, ok)
}
