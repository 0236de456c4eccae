// Package rangeengine implements the HTTP Range/Content-Range grammar, its
// resolution against an object length, multipart/byteranges emission, and
// the uncached-hull quantization math.
package rangeengine

import (
	"strings"

	"github.com/marmos91/cachecore/pkg/cacheerr"
)

// maxDigits bounds the number of decimal digits accepted for either bound
// of a range element, guarding against integer overflow on absurdly long
// numeric literals.
const maxDigits = 15

// rawRange is one comma-separated element of a Range header, before
// resolution against an object length.
type rawRange struct {
	suffix bool  // "-Y" form
	hasMax bool  // "X-Y" form (false for "X-" and "-Y")
	min    int64 // X, or 0 for a pure suffix
	max    int64 // Y, meaningful only when hasMax
}

// Spec is a parsed (but not yet resolved) Range header.
type Spec struct {
	raw []rawRange
}

// Parse parses an HTTP Range header value (the part after "Range: ") per
// the "bytes=" grammar. Parsing is atomic: any malformed
// element fails the whole header, never a partial list of ranges.
func Parse(header string) (*Spec, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return nil, cacheerr.New(cacheerr.BadMetaData, "rangeengine.Parse", "missing bytes= prefix")
	}
	body := header[len(prefix):]
	if body == "" {
		return nil, cacheerr.New(cacheerr.BadMetaData, "rangeengine.Parse", "empty range list")
	}

	tokens := strings.Split(body, ",")
	raws := make([]rawRange, 0, len(tokens))
	for _, tok := range tokens {
		rr, err := parseElement(tok)
		if err != nil {
			return nil, err
		}
		raws = append(raws, rr)
	}
	return &Spec{raw: raws}, nil
}

func parseElement(tok string) (rawRange, error) {
	if strings.ContainsAny(tok, " \t") {
		return rawRange{}, cacheerr.New(cacheerr.BadMetaData, "rangeengine.parseElement", "whitespace in range element")
	}
	if tok == "" {
		return rawRange{}, cacheerr.New(cacheerr.BadMetaData, "rangeengine.parseElement", "empty range element")
	}

	if tok[0] == '-' {
		digits := tok[1:]
		n, err := parseDigits(digits)
		if err != nil {
			return rawRange{}, err
		}
		return rawRange{suffix: true, max: n}, nil
	}

	dash := strings.IndexByte(tok, '-')
	if dash < 0 {
		return rawRange{}, cacheerr.New(cacheerr.BadMetaData, "rangeengine.parseElement", "missing '-' in range element")
	}

	minPart, maxPart := tok[:dash], tok[dash+1:]
	min, err := parseDigits(minPart)
	if err != nil {
		return rawRange{}, err
	}
	if maxPart == "" {
		return rawRange{min: min, hasMax: false}, nil
	}
	max, err := parseDigits(maxPart)
	if err != nil {
		return rawRange{}, err
	}
	return rawRange{min: min, max: max, hasMax: true}, nil
}

func parseDigits(s string) (int64, error) {
	if s == "" || len(s) > maxDigits {
		return 0, cacheerr.New(cacheerr.BadMetaData, "rangeengine.parseDigits", "bound has 0 or >15 digits")
	}
	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, cacheerr.New(cacheerr.BadMetaData, "rangeengine.parseDigits", "non-digit in bound")
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}
