package rangeengine

import (
	"testing"

	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/stretchr/testify/require"
)

func TestQuantizeRoundsAndMerges(t *testing.T) {
	ranges := []Range{{10, 20}, {70, 90}}
	got := Quantize(ranges, 64, 0, 0)
	require.Equal(t, []Range{{0, 127}}, got, "both ranges round into the same two 64-byte quanta and merge")
}

func TestQuantizeRespectsRlimit(t *testing.T) {
	got := Quantize([]Range{{0, 10}}, 64, 0, 1000)
	require.Equal(t, []Range{{0, 63}}, got)
}

func TestQuantizeSuffixTakesMax(t *testing.T) {
	require.Equal(t, int64(500), QuantizeSuffix([]int64{100, 500, 250}))
}

func TestParseContentRangeVariants(t *testing.T) {
	cr, err := ParseContentRange("bytes 0-499/1234")
	require.NoError(t, err)
	require.Equal(t, ContentRange{0, 499, 1234}, cr)

	cr, err = ParseContentRange("bytes */1234")
	require.NoError(t, err)
	require.Equal(t, ContentRange{-1, -1, 1234}, cr)

	cr, err = ParseContentRange("bytes 0-499/*")
	require.NoError(t, err)
	require.Equal(t, ContentRange{0, 499, -1}, cr)

	_, err = ParseContentRange("bytes */*")
	require.Error(t, err)
}

func TestGenerateBoundaryIsFortyEightHexChars(t *testing.T) {
	var key cachekey.Object
	copy(key[:], []byte("0123456789abcdef"))
	b := generateBoundary(key, 0xDEADBEEFCAFEBABE)
	require.Len(t, b, 48)
}
