package altvec

import "sort"

// delta is the writer-proximity window used when clipping the uncached
// hull: a writer currently producing a fragment within delta fragments of
// the hull's leading edge is assumed to reach it before a fresh origin
// fetch could, so that prefix is left for the writer to fill.
const delta = 16

// maxHullIterations bounds the writer-clipping loop so a pathological set
// of writer positions (e.g. one completing exactly as another starts)
// cannot spin forever. A bounded counter is the simplest cycle detector
// that can't itself get stuck.
const maxHullIterations = 64

func (s *Slice) fragCached(idx int) bool {
	if idx == 0 && s.Fragments == nil {
		return s.Earliest.Flags&1 != 0 // fragment.Cached == 1<<0
	}
	if s.Fragments == nil {
		return false
	}
	return s.Fragments.Cached(idx)
}

// ComputeUncachedHull computes the contiguous byte range that must be
// fetched from origin to satisfy [smin, smax], clipped against writers
// already producing fragments near the leading edge of that range. ok is
// false when every fragment in range is already cached or being filled by
// a writer close enough to wait on instead.
func (s *Slice) ComputeUncachedHull(smin, smax int64) (start, end int64, ok bool) {
	l := s.IndexOf(smin)
	r := s.IndexOf(smax)

	for l <= r && s.fragCached(l) {
		l++
	}
	for r >= l && s.fragCached(r) {
		r--
	}
	if l > r {
		return 0, 0, false
	}
	end = s.OffsetOf(r + 1) - 1

	writers := s.ActiveWriterFragments()
	sort.Ints(writers)

	for iter := 0; iter < maxHullIterations; iter++ {
		clipped := false
		for _, wf := range writers {
			if wf >= l && wf-l <= delta {
				l = wf + 1
				clipped = true
			}
		}
		if !clipped {
			break
		}
		if l > r {
			return 0, 0, false
		}
	}

	start = s.OffsetOf(l)
	return start, end, true
}
