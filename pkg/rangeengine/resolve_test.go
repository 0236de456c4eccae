package rangeengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangeParseBasic(t *testing.T) {
	spec, err := Parse("bytes=0-499")
	require.NoError(t, err)

	res := spec.Apply(10000)
	require.Equal(t, Single, res.State)
	require.Equal(t, []Range{{0, 499}}, res.Ranges)
	require.Equal(t, int64(500), CalcContentLength(res, 10000, "text/plain", "X"))
}

func TestRangeParseSuffix(t *testing.T) {
	spec, err := Parse("bytes=-500")
	require.NoError(t, err)

	res := spec.Apply(1200)
	require.Equal(t, Single, res.State)
	require.Equal(t, []Range{{700, 1199}}, res.Ranges)
	require.Equal(t, int64(500), CalcContentLength(res, 1200, "text/plain", "X"))
}

func TestRangeParseMulti(t *testing.T) {
	spec, err := Parse("bytes=0-0,-1")
	require.NoError(t, err)

	res := spec.Apply(1000)
	require.Equal(t, Multi, res.State)
	require.Equal(t, []Range{{0, 0}, {999, 999}}, res.Ranges)

	w := NewMultipartWriter("X", "text/plain", 1000, res.Ranges)
	total := CalcContentLength(res, 1000, "text/plain", "X")
	require.Equal(t, int64(len(w.Header(0))+1+len(w.Header(1))+1+len(w.Trailer())), total)
}

func TestRangeUnsatisfiable(t *testing.T) {
	spec, err := Parse("bytes=10000-")
	require.NoError(t, err)

	res := spec.Apply(1000)
	require.Equal(t, Unsatisfiable, res.State)
}

func TestSuffixOnZeroLengthIsEmptyNotUnsatisfiable(t *testing.T) {
	spec, err := Parse("bytes=-500")
	require.NoError(t, err)

	res := spec.Apply(0)
	require.Equal(t, Empty, res.State)
}

func TestNonSuffixOnZeroLengthIsUnsatisfiable(t *testing.T) {
	spec, err := Parse("bytes=0-10")
	require.NoError(t, err)

	res := spec.Apply(0)
	require.Equal(t, Unsatisfiable, res.State)
}

func TestParseRejectsOverlongDigits(t *testing.T) {
	_, err := Parse("bytes=1234567890123456-")
	require.Error(t, err)
}

func TestParseRejectsWhitespace(t *testing.T) {
	_, err := Parse("bytes=0 -499")
	require.Error(t, err)
}

func TestMultipartBoundaryEmissionScenario(t *testing.T) {
	spec, err := Parse("bytes=0-9,20-29")
	require.NoError(t, err)
	res := spec.Apply(30)
	require.Equal(t, Multi, res.State)

	w := NewMultipartWriter("BBBBBB", "text/plain", 30, res.Ranges)
	h0 := string(w.Header(0))
	require.Equal(t, "\r\n--BBBBBB\r\nContent-Range: bytes 0-9/30  \r\nContent-Type: text/plain\r\n\r\n", h0)
	require.Equal(t, "\r\n--BBBBBB--", string(w.Trailer()))
}

func TestCursorConsumeShiftsAcrossRanges(t *testing.T) {
	spec, err := Parse("bytes=0-9,20-29")
	require.NoError(t, err)
	res := spec.Apply(30)

	c := NewCursor(res)
	require.Equal(t, int64(0), c.Offset())
	c.Consume(10)
	require.True(t, c.HasPendingRangeShift())
	require.Equal(t, int64(20), c.Offset())
	require.True(t, c.ConsumeRangeShift())
	require.False(t, c.HasPendingRangeShift())
	c.Consume(10)
	require.True(t, c.Done())
}
