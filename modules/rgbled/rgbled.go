// Package rgbled drives addressable RGB LED strips. Strips are kept in
// memory; Show publishes a copy of the pixels to the host.
package rgbled

import (
	"fmt"
	"slices"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/machine"
)

// Native function ids.
const (
	Setup     = 48
	SetColour = 49
	Show      = 50
)

// RGB is one pixel value.
type RGB struct {
	R, G, B uint8
}

// Frame is the published content of a strip.
type Frame struct {
	Pixels []RGB
	ID     uint16
	Pin    uint8
}

type strip struct {
	pixels []RGB
	pin    uint8
}

// Module owns the strips of the loaded image.
type Module struct {
	strips map[uint16]*strip
	frames map[uint16]Frame
	onShow func(Frame)
	mu     sync.Mutex
}

// New creates the module. onShow, if not nil, receives every frame shown.
func New(onShow func(Frame)) *Module {
	return &Module{
		strips: make(map[uint16]*strip),
		frames: make(map[uint16]Frame),
		onShow: onShow,
	}
}

func (*Module) Name() string { return "rgbled" }

func (mod *Module) Setup(m *machine.Machine) error {
	return m.RegisterAll(
		machine.Entry{ID: Setup, Name: "rgbLedSetup", Fn: mod.setup},
		machine.Entry{ID: SetColour, Name: "rgbLedSetColour", Fn: mod.setColour},
		machine.Entry{ID: Show, Name: "rgbLedShow", Fn: mod.show},
	)
}

// Reset drops all strips and frames.
func (mod *Module) Reset() {
	mod.mu.Lock()
	defer mod.mu.Unlock()
	clear(mod.strips)
	clear(mod.frames)
}

// Frame returns the last frame shown on strip id.
func (mod *Module) Frame(id uint16) (Frame, bool) {
	mod.mu.Lock()
	defer mod.mu.Unlock()
	f, ok := mod.frames[id]
	return f, ok
}

// setup creates or replaces a strip with all pixels off.
func (mod *Module) setup(t *machine.Thread) machine.StepResult {
	pin := t.PopU8()
	count := t.PopU16()
	id := t.PopU16()
	if t.Failed() {
		return machine.Continue
	}
	mod.mu.Lock()
	mod.strips[id] = &strip{pixels: make([]RGB, count), pin: pin}
	mod.mu.Unlock()
	machine.Logger().Debug("rgb strip set up",
		zap.Uint16("strip", id), zap.Uint16("count", count), zap.Uint8("pin", pin))
	return machine.Continue
}

func (mod *Module) lookup(t *machine.Thread, id uint16) *strip {
	s, ok := mod.strips[id]
	if !ok {
		t.Fail(errors.NotFound(errors.PhaseRuntime, "rgb strip", fmt.Sprint(id)))
	}
	return s
}

// setColour sets one pixel. Indexes outside the strip are ignored.
func (mod *Module) setColour(t *machine.Thread) machine.StepResult {
	b := t.PopFloat()
	g := t.PopFloat()
	r := t.PopFloat()
	index := t.PopFloat()
	id := t.PopU16()
	if t.Failed() {
		return machine.Continue
	}

	mod.mu.Lock()
	defer mod.mu.Unlock()
	s := mod.lookup(t, id)
	if s == nil {
		return machine.Continue
	}
	i := int(index)
	if index < 0 || i >= len(s.pixels) {
		return machine.Continue
	}
	c := colorful.Color{R: float64(r), G: float64(g), B: float64(b)}.Clamped()
	s.pixels[i].R, s.pixels[i].G, s.pixels[i].B = c.RGB255()
	return machine.Continue
}

func (mod *Module) show(t *machine.Thread) machine.StepResult {
	id := t.PopU16()
	if t.Failed() {
		return machine.Continue
	}

	mod.mu.Lock()
	s := mod.lookup(t, id)
	if s == nil {
		mod.mu.Unlock()
		return machine.Continue
	}
	f := Frame{ID: id, Pin: s.pin, Pixels: slices.Clone(s.pixels)}
	mod.frames[id] = f
	mod.mu.Unlock()

	if mod.onShow != nil {
		mod.onShow(f)
	}
	return machine.Continue
}
