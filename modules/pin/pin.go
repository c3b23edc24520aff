// Package pin provides digital and analog pin natives and pin-change waits.
package pin

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/machine"
)

// Native function ids.
const (
	SetupOnChange = 1
	WaitForChange = 2
	Set           = 3
	SetAnalog     = 19
)

// Edge selects which level transitions trigger a waiting thread.
type Edge uint8

const (
	EdgeAny Edge = iota
	EdgeRising
	EdgeFalling
)

type changeEntry struct {
	lastChange time.Time
	debounce   time.Duration
	thread     uint16
	pin        uint8
	edge       Edge
	lastState  bool
	triggered  bool
	ready      bool
}

// Module implements the pin natives on top of a Driver. Each thread owns at
// most one pin-change registration; a new setup replaces the old one.
type Module struct {
	driver  Driver
	m       *machine.Machine
	entries []changeEntry
}

// New creates the pin module.
func New(driver Driver) *Module {
	return &Module{driver: driver}
}

func (*Module) Name() string { return "pin" }

func (p *Module) Setup(m *machine.Machine) error {
	p.m = m
	return m.RegisterAll(
		machine.Entry{ID: SetupOnChange, Name: "pinSetupOnChange", Fn: p.setupOnChange},
		machine.Entry{ID: WaitForChange, Name: "pinWaitForChange", Fn: p.waitForChange},
		machine.Entry{ID: Set, Name: "pinSet", Fn: p.set},
		machine.Entry{ID: SetAnalog, Name: "pinSetAnalog", Fn: p.setAnalog},
	)
}

// Reset drops all pin-change registrations.
func (p *Module) Reset() {
	p.entries = nil
}

func (p *Module) setupOnChange(t *machine.Thread) machine.StepResult {
	debounce := t.PopFloat()
	edge := Edge(t.PopU8())
	pull := t.PopU8()
	pin := t.PopU8()
	if t.Failed() {
		return machine.Continue
	}
	if edge > EdgeFalling {
		t.Fail(errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf("invalid edge %d", edge)))
		return machine.Continue
	}

	mode := ModeInput
	switch pull {
	case 1:
		mode = ModeInputPullUp
	case 2:
		mode = ModeInputPullDown
	}
	p.driver.SetMode(pin, mode)

	e := changeEntry{
		thread:    t.ID(),
		pin:       pin,
		edge:      edge,
		debounce:  machine.Millis(debounce),
		lastState: p.driver.Read(pin),
	}
	p.entries = append(removeThread(p.entries, t.ID()), e)

	machine.Logger().Debug("pin change setup",
		zap.Uint16("thread", t.ID()), zap.Uint8("pin", pin), zap.Uint8("edge", uint8(edge)))
	return machine.Continue
}

func removeThread(entries []changeEntry, id uint16) []changeEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.thread != id {
			out = append(out, e)
		}
	}
	return out
}

func (p *Module) waitForChange(t *machine.Thread) machine.StepResult {
	for i := range p.entries {
		if p.entries[i].thread == t.ID() {
			p.entries[i].ready = true
			return t.Wait()
		}
	}
	// Nothing will ever trigger; behave like a yield.
	return t.Yield()
}

func (p *Module) set(t *machine.Thread) machine.StepResult {
	value := t.PopU8()
	pin := t.PopU8()
	if t.Failed() {
		return machine.Continue
	}
	p.driver.SetMode(pin, ModeOutput)
	p.driver.Write(pin, value != 0)
	return machine.Continue
}

func (p *Module) setAnalog(t *machine.Thread) machine.StepResult {
	duty := t.PopFloat()
	pin := t.PopU8()
	if t.Failed() {
		return machine.Continue
	}
	switch {
	case duty != duty || duty < 0:
		duty = 0
	case duty > 1:
		duty = 1
	}
	p.driver.SetMode(pin, ModeOutput)
	p.driver.WriteAnalog(pin, duty)
	return machine.Continue
}

// Loop samples every registered pin and resumes threads that are waiting
// and have seen a matching edge. Edges latch until the thread waits.
func (p *Module) Loop(ctx context.Context) {
	gen := p.m.Generation()
	now := p.m.Clock().Now()
	for i := 0; i < len(p.entries); i++ {
		e := &p.entries[i]
		if e.lastChange.IsZero() || now.Sub(e.lastChange) > e.debounce {
			state := p.driver.Read(e.pin)
			if e.edge.matches(e.lastState, state) {
				e.triggered = true
			}
			if state != e.lastState {
				e.lastState = state
				e.lastChange = now
			}
		}

		if e.ready && e.triggered {
			e.ready = false
			e.triggered = false
			id := e.thread
			machine.Logger().Debug("pin change", zap.Uint16("thread", id), zap.Uint8("pin", e.pin))
			p.m.RunThread(id)
			if p.m.Generation() != gen || ctx.Err() != nil {
				return
			}
		}
	}
}

func (e Edge) matches(before, after bool) bool {
	switch e {
	case EdgeRising:
		return !before && after
	case EdgeFalling:
		return before && !after
	default:
		return before != after
	}
}
