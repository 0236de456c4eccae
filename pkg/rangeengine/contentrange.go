package rangeengine

import (
	"strconv"
	"strings"

	"github.com/marmos91/cachecore/pkg/cacheerr"
)

// ContentRange is a parsed response-side Content-Range header value.
type ContentRange struct {
	// Min/Max are -1 when the header used "*" for the range part ("bytes
	// */Z" -- length known, range unknown).
	Min, Max int64
	// Total is -1 when the header used "*" for the length part ("bytes
	// X-Y/*" -- length not yet known, e.g. streaming origin response).
	Total int64
}

// ParseContentRange parses the response-side "Content-Range: bytes X-Y/Z"
// header. It accepts "bytes */Z" and "bytes X-Y/*", but
// rejects "bytes */*" since that conveys no usable information at all.
func ParseContentRange(header string) (ContentRange, error) {
	const prefix = "bytes "
	if !strings.HasPrefix(header, prefix) {
		return ContentRange{}, cacheerr.New(cacheerr.BadMetaData, "rangeengine.ParseContentRange", "missing 'bytes ' prefix")
	}
	body := header[len(prefix):]

	slash := strings.IndexByte(body, '/')
	if slash < 0 {
		return ContentRange{}, cacheerr.New(cacheerr.BadMetaData, "rangeengine.ParseContentRange", "missing '/'")
	}
	rangePart, totalPart := body[:slash], body[slash+1:]

	if rangePart == "*" && totalPart == "*" {
		return ContentRange{}, cacheerr.New(cacheerr.BadMetaData, "rangeengine.ParseContentRange", "'*/*' conveys no information")
	}

	cr := ContentRange{Min: -1, Max: -1, Total: -1}

	if rangePart != "*" {
		dash := strings.IndexByte(rangePart, '-')
		if dash < 0 {
			return ContentRange{}, cacheerr.New(cacheerr.BadMetaData, "rangeengine.ParseContentRange", "missing '-' in range part")
		}
		min, err := strconv.ParseInt(rangePart[:dash], 10, 64)
		if err != nil {
			return ContentRange{}, cacheerr.Wrap(cacheerr.BadMetaData, "rangeengine.ParseContentRange", "bad range min", err)
		}
		max, err := strconv.ParseInt(rangePart[dash+1:], 10, 64)
		if err != nil {
			return ContentRange{}, cacheerr.Wrap(cacheerr.BadMetaData, "rangeengine.ParseContentRange", "bad range max", err)
		}
		cr.Min, cr.Max = min, max
	}

	if totalPart != "*" {
		total, err := strconv.ParseInt(totalPart, 10, 64)
		if err != nil {
			return ContentRange{}, cacheerr.Wrap(cacheerr.BadMetaData, "rangeengine.ParseContentRange", "bad total", err)
		}
		cr.Total = total
	}

	return cr, nil
}
