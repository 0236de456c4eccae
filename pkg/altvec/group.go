package altvec

// AlternateGroup holds every slice that has ever existed for one alternate
// identity, newest first. Only the head accepts new writes;
// older slices continue serving readers that attached before the head was
// replaced (stale-while-update).
type AlternateGroup struct {
	AltID int

	// slices is the stack, index 0 is the head (newest).
	slices []*Slice
}

func newAlternateGroup(altID int, head *Slice) *AlternateGroup {
	return &AlternateGroup{AltID: altID, slices: []*Slice{head}}
}

// Head returns the newest slice, or nil if the group has been emptied.
func (g *AlternateGroup) Head() *Slice {
	if len(g.slices) == 0 {
		return nil
	}
	return g.slices[0]
}

// PushHead installs slice as the new head, demoting the previous head to
// the stale list.
func (g *AlternateGroup) PushHead(slice *Slice) {
	g.slices = append([]*Slice{slice}, g.slices...)
}

// Slices returns every slice, newest first.
func (g *AlternateGroup) Slices() []*Slice { return g.slices }

// collect drops every slice (other than the head) whose writers and
// waiting lists are both empty, since nothing can reach them anymore.
func (g *AlternateGroup) collect() {
	if len(g.slices) <= 1 {
		return
	}
	kept := g.slices[:1]
	for _, s := range g.slices[1:] {
		if s.HasWriters() || len(s.waiting) != 0 {
			kept = append(kept, s)
		}
	}
	g.slices = kept
}
