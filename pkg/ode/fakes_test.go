package ode

import "github.com/marmos91/cachecore/pkg/collab"

type fakeCont struct{ id string }

func (f *fakeCont) ID() string                                             { return f.id }
func (f *fakeCont) HandleEvent(event collab.Event, cookie uint64, data any) {}

type fakeScheduler struct {
	woken []struct {
		id     string
		event  collab.Event
		cookie uint64
	}
}

func (s *fakeScheduler) ScheduleIn(collab.Continuation, int64) {}
func (s *fakeScheduler) ScheduleImm(collab.Continuation)       {}
func (s *fakeScheduler) HandleEvent(collab.Continuation, collab.Event, uint64, any) {
}
func (s *fakeScheduler) WakeUp(cont collab.Continuation, event collab.Event, cookie uint64) {
	s.woken = append(s.woken, struct {
		id     string
		event  collab.Event
		cookie uint64
	}{cont.ID(), event, cookie})
}
