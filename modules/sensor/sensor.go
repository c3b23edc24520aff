// Package sensor provides the gravity sensor natives. Readings arrive from
// the host through Update.
package sensor

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/machine"
)

// Native function ids.
const (
	GetGravityValue      = 20
	SetupOnGravityValues = 21
	WaitForGravityValues = 22
)

// GravityValue is one accelerometer reading.
type GravityValue struct {
	X, Y, Z float32
}

// Axis returns component 0 (x), 1 (y) or 2 (z).
func (g GravityValue) Axis(i uint8) (float32, bool) {
	switch i {
	case 0:
		return g.X, true
	case 1:
		return g.Y, true
	case 2:
		return g.Z, true
	}
	return 0, false
}

type listener struct {
	ready     bool
	triggered bool
}

// Module stores the latest reading and resumes listening threads after
// every update.
type Module struct {
	m         *machine.Machine
	listeners map[uint16]*listener
	last      GravityValue
	mu        sync.Mutex
}

// New creates the sensor module.
func New() *Module {
	return &Module{listeners: make(map[uint16]*listener)}
}

func (*Module) Name() string { return "sensor" }

func (s *Module) Setup(m *machine.Machine) error {
	s.m = m
	return m.RegisterAll(
		machine.Entry{ID: GetGravityValue, Name: "sensorGetGravityValue", Fn: s.get},
		machine.Entry{ID: SetupOnGravityValues, Name: "sensorSetupOnGravityValues", Fn: s.setupListener},
		machine.Entry{ID: WaitForGravityValues, Name: "sensorWaitForGravityValues", Fn: s.wait},
	)
}

// Update records a new reading and triggers every registered thread. It may
// be called from any goroutine.
func (s *Module) Update(v GravityValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = v
	for _, l := range s.listeners {
		l.triggered = true
	}
}

// Last returns the most recent reading.
func (s *Module) Last() GravityValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Reset forgets listeners. The last reading is kept, it describes the
// device rather than the image.
func (s *Module) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.listeners)
}

func (s *Module) get(t *machine.Thread) machine.StepResult {
	axis := t.PopU8()
	v, ok := s.Last().Axis(axis)
	if !ok {
		t.Fail(errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf("invalid gravity axis %d", axis)))
		return machine.Continue
	}
	t.PushFloat(v)
	return machine.Continue
}

func (s *Module) setupListener(t *machine.Thread) machine.StepResult {
	s.mu.Lock()
	s.listeners[t.ID()] = &listener{}
	s.mu.Unlock()
	return machine.Continue
}

func (s *Module) wait(t *machine.Thread) machine.StepResult {
	s.mu.Lock()
	l, ok := s.listeners[t.ID()]
	if ok {
		l.ready = true
	}
	s.mu.Unlock()
	if !ok {
		return t.Yield()
	}
	return t.Wait()
}

// Loop resumes listeners that are waiting and have seen an update.
func (s *Module) Loop(ctx context.Context) {
	gen := s.m.Generation()
	s.mu.Lock()
	ids := slices.Sorted(maps.Keys(s.listeners))
	s.mu.Unlock()

	for _, id := range ids {
		s.mu.Lock()
		l, ok := s.listeners[id]
		run := ok && l.ready && l.triggered
		if run {
			l.ready = false
			l.triggered = false
		}
		s.mu.Unlock()

		if run {
			s.m.RunThread(id)
			if s.m.Generation() != gen || ctx.Err() != nil {
				return
			}
		}
	}
}
