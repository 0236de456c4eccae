package altvec

// sideBuffer holds origin bytes that arrived but could not be written to
// the fragment store because they didn't satisfy fragment boundary
// conditions. Buffers are kept
// in strictly increasing Position order on the owning slice.
type sideBuffer struct {
	position int64
	data     []byte
}

func (b *sideBuffer) end() int64 { return b.position + int64(len(b.data)) }

// AddSideBuffer inserts block at position, merging with an existing
// neighbor where the ranges touch or overlap. The three-way branch order
// (tail overlap, head overlap, insert-before) is taken verbatim from
// original_source/iocore/cache/CacheHttp.cc's addSideBuffer: whichever test
// fires first decides which buffer absorbs the new data, and that ordering
// is what determines the winner when a chunk straddles two neighbors.
func (s *Slice) AddSideBuffer(block []byte, position, length int64) {
	data := block[:length]

	for i, cb := range s.sideBuffers {
		switch {
		case cb.position <= position && position <= cb.end():
			// Overlap (or exact abutment) at the tail of cb: append the
			// non-overlapping suffix of the new data.
			overlap := cb.end() - position
			if overlap < 0 {
				overlap = 0
			}
			if overlap < length {
				cb.data = append(cb.data, data[overlap:]...)
			}
			return
		case position <= cb.position && cb.position <= position+length:
			// Overlap at the head of cb: prepend the non-overlapping
			// prefix of the new data ahead of cb's existing content.
			prefixLen := cb.position - position
			merged := make([]byte, 0, prefixLen+int64(len(cb.data)))
			merged = append(merged, data[:prefixLen]...)
			merged = append(merged, cb.data...)
			cb.position = position
			cb.data = merged
			return
		case position < cb.position:
			// No overlap with cb or anything before it: insert a new
			// buffer immediately before cb.
			nb := &sideBuffer{position: position, data: append([]byte(nil), data...)}
			s.sideBuffers = append(s.sideBuffers, nil)
			copy(s.sideBuffers[i+1:], s.sideBuffers[i:])
			s.sideBuffers[i] = nb
			return
		}
	}

	// Past every existing buffer: append at the end.
	s.sideBuffers = append(s.sideBuffers, &sideBuffer{position: position, data: append([]byte(nil), data...)})
}

// GetSideBuffer returns a view of [position, position+length) if a single
// buffer covers the closed interval entirely. Cross-buffer stitching is out
// of scope: callers whose request straddles two buffers
// re-issue against the fragment store instead.
func (s *Slice) GetSideBuffer(position, length int64) ([]byte, bool) {
	want := position + length
	for _, cb := range s.sideBuffers {
		if cb.position <= position && want <= cb.end() {
			start := position - cb.position
			return cb.data[start : start+length], true
		}
	}
	return nil, false
}
