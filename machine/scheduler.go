package machine

import (
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"
)

type delayEntry struct {
	start  time.Time
	delay  time.Duration
	seq    uint64
	thread uint16
}

// scheduler holds the readiness bookkeeping owned by the machine: the yield
// FIFO, timed delays and callback ready/triggered pairs. Modules with their
// own readiness sources (pins, sensors) keep their state and resume threads
// from Loop.
type scheduler struct {
	m         *Machine
	yielded   []uint16
	delays    []delayEntry
	ready     map[uint16]struct{}
	triggered map[uint16]struct{}
	delaySeq  uint64
}

func newScheduler(m *Machine) *scheduler {
	return &scheduler{
		m:         m,
		ready:     make(map[uint16]struct{}),
		triggered: make(map[uint16]struct{}),
	}
}

func (s *scheduler) reset() {
	s.yielded = nil
	s.delays = nil
	clear(s.ready)
	clear(s.triggered)
}

func (s *scheduler) yield(t *Thread, r Reason) StepResult {
	s.yielded = append(s.yielded, t.id)
	t.state = StateYielded
	return suspend(r)
}

func (s *scheduler) delay(t *Thread, d time.Duration) StepResult {
	s.delaySeq++
	s.delays = append(s.delays, delayEntry{
		thread: t.id,
		start:  s.m.clock.Now(),
		delay:  d,
		seq:    s.delaySeq,
	})
	t.state = StateDelayed
	return suspend(ReasonDelay)
}

func (s *scheduler) waitCallback(t *Thread) StepResult {
	s.ready[t.id] = struct{}{}
	t.state = StateWaiting
	return suspend(ReasonWait)
}

func (s *scheduler) trigger(id uint16) {
	s.triggered[id] = struct{}{}
}

// pollDelays resumes every due delay entry. Resuming may register new
// entries, so the scan restarts after each resume; entries registered during
// this poll wait for the next one.
func (s *scheduler) pollDelays(gen uint64) {
	limit := s.delaySeq
	for s.m.generation == gen {
		idx := -1
		for i, e := range s.delays {
			if e.seq > limit {
				continue
			}
			if s.m.clock.Now().Sub(e.start) >= e.delay {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		id := s.delays[idx].thread
		s.delays = slices.Delete(s.delays, idx, idx+1)
		Logger().Debug("delay elapsed", zap.Uint16("thread", id))
		s.m.RunThread(id)
	}
}

// pollCallbacks resumes threads that are both ready and triggered, in
// ascending thread order. Both flags are cleared before the thread runs.
func (s *scheduler) pollCallbacks(gen uint64) {
	if len(s.triggered) == 0 || len(s.ready) == 0 {
		return
	}
	for _, id := range slices.Sorted(maps.Keys(s.triggered)) {
		if s.m.generation != gen {
			return
		}
		if _, ok := s.ready[id]; !ok {
			continue
		}
		if _, ok := s.triggered[id]; !ok {
			continue
		}
		delete(s.ready, id)
		delete(s.triggered, id)
		Logger().Debug("callback triggered", zap.Uint16("thread", id))
		s.m.RunThread(id)
	}
}

// pollYield resumes the oldest yielded thread.
func (s *scheduler) pollYield() {
	if len(s.yielded) == 0 {
		return
	}
	id := s.yielded[0]
	s.yielded = s.yielded[1:]
	s.m.RunThread(id)
}
