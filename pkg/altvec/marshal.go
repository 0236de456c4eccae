package altvec

import (
	"encoding/binary"
	"fmt"

	"github.com/marmos91/cachecore/pkg/cacheerr"
	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/collab"
	"github.com/marmos91/cachecore/pkg/fragment"
)

// Marshal serializes only the head slice of each group -- older snapshots
// are never persisted. Each entry is a length-prefixed blob
// produced by hm.Marshal against the slice's request/response headers,
// preceded by the slice's AltID, Generation and Earliest fragment key so
// Unmarshal can reconstruct the vector without a directory lookup.
func (v *AlternateVector) Marshal(hm collab.HeaderMarshal) ([]byte, error) {
	var out []byte
	for _, g := range v.groups {
		head := g.Head()
		if head == nil {
			continue
		}
		headerBlock, err := hm.Marshal(headerMap(head.RequestHeader), headerMap(head.ResponseHeader))
		if err != nil {
			return nil, cacheerr.Wrap(cacheerr.BadMetaData, "altvec.Marshal", "header marshal failed", err)
		}

		var entry [28]byte
		binary.BigEndian.PutUint32(entry[0:4], uint32(head.AltID))
		binary.BigEndian.PutUint16(entry[4:6], uint16(head.Generation))
		copy(entry[6:22], head.Earliest.Key[:])
		binary.BigEndian.PutUint32(entry[22:26], uint32(len(headerBlock)))

		out = append(out, entry[:26]...)
		out = append(out, headerBlock...)
	}
	return out, nil
}

// Unmarshal reconstructs the vector from a contiguous byte range produced
// by Marshal. Unreadable or truncated input yields failure and the vector
// is left empty.
func (v *AlternateVector) Unmarshal(data []byte, hm collab.HeaderMarshal) error {
	var groups []*AlternateGroup
	maxAltID := 0

	for len(data) > 0 {
		if len(data) < 26 {
			v.groups = nil
			return cacheerr.New(cacheerr.BadMetaData, "altvec.Unmarshal", "truncated entry header")
		}
		altID := int(binary.BigEndian.Uint32(data[0:4]))
		generation := binary.BigEndian.Uint16(data[4:6])
		var earliestKey [16]byte
		copy(earliestKey[:], data[6:22])
		blockLen := int(binary.BigEndian.Uint32(data[22:26]))
		data = data[26:]

		if blockLen < 0 || blockLen > len(data) {
			v.groups = nil
			return cacheerr.New(cacheerr.BadMetaData, "altvec.Unmarshal", "truncated header block")
		}
		block := data[:blockLen]
		data = data[blockLen:]

		reqHeader, respHeader, state, err := hm.Unmarshal(block)
		if err != nil || state == collab.Corrupt {
			v.groups = nil
			return cacheerr.Wrap(cacheerr.Corrupt, "altvec.Unmarshal", "header block corrupt", err)
		}

		s := NewSlice(cachekey.AlternateId(altID), cachekey.Generation(generation), 0)
		s.Earliest.Key = earliestKey
		s.Earliest.Flags |= fragment.Cached
		s.RequestHeader = flattenHeader(reqHeader)
		s.ResponseHeader = flattenHeader(respHeader)

		groups = append(groups, newAlternateGroup(altID, s))
		if altID > maxAltID {
			maxAltID = altID
		}
	}

	v.groups = groups
	v.altIDCounter = maxAltID
	return nil
}

// headerMap and flattenHeader bridge the slice's wire-format header bytes
// (opaque to this package) and the map[string][]string shape
// collab.HeaderMarshal works in. The core never interprets header content
// itself; it only needs to round-trip it, so this bridge is a placeholder
// a real HeaderMarshal implementation can replace wholesale.
func headerMap(raw []byte) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	return map[string][]string{"raw": {string(raw)}}
}

func flattenHeader(m map[string][]string) []byte {
	if v, ok := m["raw"]; ok && len(v) > 0 {
		return []byte(v[0])
	}
	if len(m) == 0 {
		return nil
	}
	return []byte(fmt.Sprintf("%v", m))
}
