package demo

import (
	"sync"
	"time"

	"github.com/marmos91/cachecore/pkg/collab"
)

// Scheduler is a collab.Scheduler that delivers events to continuations
// synchronously, exactly like pkg/vc's fakeScheduler test double, but also
// wakes a Driver blocked on Wait for that continuation's ID so a real HTTP
// handler goroutine does not have to busy-poll through EffectYield.
type Scheduler struct {
	mu    sync.Mutex
	wakes map[string]chan struct{}
}

// NewScheduler constructs an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{wakes: make(map[string]chan struct{})}
}

// wakeChan returns (creating if necessary) the buffered wake channel for
// a continuation ID.
func (s *Scheduler) wakeChan(id string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.wakes[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.wakes[id] = ch
	}
	return ch
}

// Wait returns the channel a Driver should select on while a VC's Step
// reports EffectYield or EffectReadReady.
func (s *Scheduler) Wait(id string) <-chan struct{} {
	return s.wakeChan(id)
}

// Forget releases the wake channel for id once its VC has finished.
func (s *Scheduler) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wakes, id)
}

func (s *Scheduler) notify(id string) {
	ch := s.wakeChan(id)
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *Scheduler) ScheduleIn(cont collab.Continuation, delay int64) {
	time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		s.notify(cont.ID())
	})
}

func (s *Scheduler) ScheduleImm(cont collab.Continuation) {
	s.notify(cont.ID())
}

func (s *Scheduler) HandleEvent(cont collab.Continuation, event collab.Event, cookie uint64, data any) {
	cont.HandleEvent(event, cookie, data)
	s.notify(cont.ID())
}

func (s *Scheduler) WakeUp(cont collab.Continuation, event collab.Event, cookie uint64) {
	cont.HandleEvent(event, cookie, nil)
	s.notify(cont.ID())
}
