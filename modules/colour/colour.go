// Package colour provides colour natives. A colour is three float32
// channels in 0..1 pushed in r, g, b order.
package colour

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/machine"
)

// Native function ids.
const (
	GetChannel = 38
	SetVar     = 39
	Blend      = 40
	FromHSV    = 47
)

// Channels for GetChannel.
const (
	Red uint8 = iota
	Green
	Blue
	Hue
	Saturation
	Value
)

// Gamma is the display gamma used for blending.
const Gamma = 2.2

type Module struct{}

func New() *Module { return &Module{} }

func (*Module) Name() string { return "colour" }

func (*Module) Setup(m *machine.Machine) error {
	return m.RegisterAll(
		machine.Entry{ID: GetChannel, Name: "colourGetChannel", Fn: getChannel},
		machine.Entry{ID: SetVar, Name: "colourSetVar", Fn: setVar},
		machine.Entry{ID: Blend, Name: "colourBlend", Fn: blend},
		machine.Entry{ID: FromHSV, Name: "colourFromHSV", Fn: fromHSV},
	)
}

// Pop pops a colour.
func Pop(t *machine.Thread) colorful.Color {
	b := t.PopFloat()
	g := t.PopFloat()
	r := t.PopFloat()
	return colorful.Color{R: float64(r), G: float64(g), B: float64(b)}
}

// Push pushes c.
func Push(t *machine.Thread, c colorful.Color) {
	t.PushFloat(float32(c.R))
	t.PushFloat(float32(c.G))
	t.PushFloat(float32(c.B))
}

func getChannel(t *machine.Thread) machine.StepResult {
	ch := t.PopU8()
	c := Pop(t)
	h, s, v := c.Hsv()

	var r float64
	switch ch {
	case Red:
		r = c.R
	case Green:
		r = c.G
	case Blue:
		r = c.B
	case Hue:
		r = h
	case Saturation:
		r = s
	case Value:
		r = v
	default:
		t.Fail(errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf("invalid colour channel %d", ch)))
		return machine.Continue
	}
	t.PushFloat(float32(r))
	return machine.Continue
}

// setVar stores a colour as three consecutive floats.
func setVar(t *machine.Thread) machine.StepResult {
	c := Pop(t)
	offset := uint32(t.PopU16())
	if t.Failed() {
		return machine.Continue
	}
	mem := t.Memory()
	for i, v := range []float64{c.R, c.G, c.B} {
		if err := mem.WriteF32(offset+uint32(i)*4, float32(v)); err != nil {
			t.Fail(err)
			break
		}
	}
	return machine.Continue
}

func blend(t *machine.Thread) machine.StepResult {
	ratio := float64(t.PopFloat())
	c2 := Pop(t)
	c1 := Pop(t)
	Push(t, BlendGamma(c1, c2, ratio))
	return machine.Continue
}

// BlendGamma interpolates linearly between the de-gamma'd channels of a
// and b and re-applies the gamma.
func BlendGamma(a, b colorful.Color, ratio float64) colorful.Color {
	mix := func(x, y float64) float64 {
		lx, ly := math.Pow(x, Gamma), math.Pow(y, Gamma)
		return math.Pow(lx+(ly-lx)*ratio, 1/Gamma)
	}
	return colorful.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B)}
}

// fromHSV pops v, s and h (degrees) and pushes the colour.
func fromHSV(t *machine.Thread) machine.StepResult {
	v := float64(t.PopFloat())
	s := float64(t.PopFloat())
	h := float64(t.PopFloat())
	Push(t, HSV(h, s, v))
	return machine.Continue
}

// HSV converts with hue wrapped into [0, 360). Non-positive saturation is
// grey.
func HSV(h, s, v float64) colorful.Color {
	if s <= 0 {
		return colorful.Color{R: v, G: v, B: v}
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return colorful.Hsv(h, s, v)
}
