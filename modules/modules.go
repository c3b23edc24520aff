// Package modules assembles the standard native-function modules.
package modules

import (
	"io"
	"math/rand/v2"

	"github.com/ruediste/micro-blocks/machine"
	"github.com/ruediste/micro-blocks/modules/basic"
	"github.com/ruediste/micro-blocks/modules/colour"
	"github.com/ruediste/micro-blocks/modules/controls"
	"github.com/ruediste/micro-blocks/modules/gui"
	"github.com/ruediste/micro-blocks/modules/logic"
	"github.com/ruediste/micro-blocks/modules/maths"
	"github.com/ruediste/micro-blocks/modules/pin"
	"github.com/ruediste/micro-blocks/modules/rgbled"
	"github.com/ruediste/micro-blocks/modules/sensor"
	"github.com/ruediste/micro-blocks/modules/text"
	"github.com/ruediste/micro-blocks/modules/variables"
)

// Options are the host connections of the standard modules. Every field
// is optional.
type Options struct {
	Pins       pin.Driver
	Out        io.Writer
	OnSnapshot func([]byte)
	OnShow     func(rgbled.Frame)
	Rand       *rand.Rand
}

// Set holds the standard modules so the host can feed them events.
type Set struct {
	Basic     *basic.Module
	Pin       *pin.Module
	Sensor    *sensor.Module
	Variables *variables.Module
	Maths     *maths.Module
	Logic     *logic.Module
	Controls  *controls.Module
	Text      *text.Module
	Colour    *colour.Module
	GUI       *gui.Module
	RGBLed    *rgbled.Module
}

// Standard creates the standard modules. A nil pin driver is replaced by
// a pin.SimDriver.
func Standard(o Options) *Set {
	if o.Pins == nil {
		o.Pins = pin.NewSimDriver()
	}
	var mathOpts []maths.Option
	if o.Rand != nil {
		mathOpts = append(mathOpts, maths.WithRand(o.Rand))
	}
	return &Set{
		Basic:     basic.New(),
		Pin:       pin.New(o.Pins),
		Sensor:    sensor.New(),
		Variables: variables.New(),
		Maths:     maths.New(mathOpts...),
		Logic:     logic.New(),
		Controls:  controls.New(),
		Text:      text.New(o.Out),
		Colour:    colour.New(),
		GUI:       gui.New(o.OnSnapshot),
		RGBLed:    rgbled.New(o.OnShow),
	}
}

// Modules returns the set in installation order.
func (s *Set) Modules() []machine.Module {
	return []machine.Module{
		s.Basic, s.Pin, s.Sensor, s.Variables, s.Maths, s.Logic,
		s.Controls, s.Text, s.Colour, s.GUI, s.RGBLed,
	}
}
