// Package maths provides the numeric natives. All numbers are float32 on
// the stack; intermediate results are computed in float64.
package maths

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/machine"
)

// Native function ids.
const (
	Arithmetic     = 6
	Modulo         = 8
	NumberProperty = 15
	Unary          = 16
	RandomFloat    = 17
	Constrain      = 18
	MapLinear      = 34
	MapTemperature = 35
)

// Arithmetic operations.
const (
	Add uint8 = iota
	Sub
	Mul
	Div
	Pow
	Mod
	RandomInt
	Atan2
)

// Number properties.
const (
	Even uint8 = iota
	Odd
	Prime
	Whole
	Positive
	Negative
)

// Unary operations.
const (
	Sin uint8 = iota
	Cos
	Tan
	Asin
	Acos
	Atan
	Round
	Ceil
	Floor
	Sqrt
	Abs
	Neg
	Ln
	Log10
	Exp
	Pow10
)

// Module holds the random source used by the random natives.
type Module struct {
	rnd *rand.Rand
}

// Option configures a Module.
type Option func(*Module)

// WithRand sets the random source, for reproducible programs and tests.
func WithRand(r *rand.Rand) Option {
	return func(m *Module) { m.rnd = r }
}

func New(opts ...Option) *Module {
	m := &Module{}
	for _, o := range opts {
		o(m)
	}
	if m.rnd == nil {
		m.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return m
}

func (*Module) Name() string { return "maths" }

func (mod *Module) Setup(m *machine.Machine) error {
	return m.RegisterAll(
		machine.Entry{ID: Arithmetic, Name: "mathArithmetic", Fn: mod.arithmetic},
		machine.Entry{ID: Modulo, Name: "mathModulo", Fn: modulo},
		machine.Entry{ID: NumberProperty, Name: "mathNumberProperty", Fn: numberProperty},
		machine.Entry{ID: Unary, Name: "mathUnary", Fn: unary},
		machine.Entry{ID: RandomFloat, Name: "mathRandomFloat", Fn: mod.randomFloat},
		machine.Entry{ID: Constrain, Name: "mathConstrain", Fn: constrain},
		machine.Entry{ID: MapLinear, Name: "mathMapLinear", Fn: mapLinear},
		machine.Entry{ID: MapTemperature, Name: "mathMapTemperature", Fn: mapTemperature},
	)
}

func (mod *Module) arithmetic(t *machine.Thread) machine.StepResult {
	op := t.PopU8()
	right := float64(t.PopFloat())
	left := float64(t.PopFloat())

	var r float64
	switch op {
	case Add:
		r = left + right
	case Sub:
		r = left - right
	case Mul:
		r = left * right
	case Div:
		r = left / right
	case Pow:
		r = math.Pow(left, right)
	case Mod:
		r = math.Mod(left, right)
	case RandomInt:
		r = float64(mod.randomInt(int64(left), int64(right)))
	case Atan2:
		r = math.Atan2(left, right)
	default:
		t.Fail(invalid("arithmetic operation", op))
		return machine.Continue
	}
	t.PushFloat(float32(r))
	return machine.Continue
}

// randomInt returns an integer in [lo, hi), or lo for an empty range.
func (mod *Module) randomInt(lo, hi int64) int64 {
	if lo >= hi {
		return lo
	}
	return lo + mod.rnd.Int64N(hi-lo)
}

func modulo(t *machine.Thread) machine.StepResult {
	divisor := float64(t.PopFloat())
	dividend := float64(t.PopFloat())
	t.PushFloat(float32(math.Mod(dividend, divisor)))
	return machine.Continue
}

func numberProperty(t *machine.Thread) machine.StepResult {
	prop := t.PopU8()
	n := t.PopFloat()

	var r bool
	switch prop {
	case Even:
		r = int64(n)%2 == 0
	case Odd:
		r = int64(n)%2 != 0
	case Prime:
		r = isPrime(int64(n))
	case Whole:
		r = float64(n) == math.Trunc(float64(n))
	case Positive:
		r = n > 0
	case Negative:
		r = n < 0
	default:
		t.Fail(invalid("number property", prop))
		return machine.Continue
	}
	t.PushBool(r)
	return machine.Continue
}

func isPrime(n int64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for i := int64(3); i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}

func unary(t *machine.Thread) machine.StepResult {
	op := t.PopU8()
	n := float64(t.PopFloat())

	var r float64
	switch op {
	case Sin:
		r = math.Sin(n)
	case Cos:
		r = math.Cos(n)
	case Tan:
		r = math.Tan(n)
	case Asin:
		r = math.Asin(n)
	case Acos:
		r = math.Acos(n)
	case Atan:
		r = math.Atan(n)
	case Round:
		r = math.Round(n)
	case Ceil:
		r = math.Ceil(n)
	case Floor:
		r = math.Floor(n)
	case Sqrt:
		r = math.Sqrt(n)
	case Abs:
		r = math.Abs(n)
	case Neg:
		r = -n
	case Ln:
		r = math.Log(n)
	case Log10:
		r = math.Log10(n)
	case Exp:
		r = math.Exp(n)
	case Pow10:
		r = math.Pow(10, n)
	default:
		t.Fail(invalid("unary operation", op))
		return machine.Continue
	}
	t.PushFloat(float32(r))
	return machine.Continue
}

// randomFloat pushes a value in [0, 1).
func (mod *Module) randomFloat(t *machine.Thread) machine.StepResult {
	t.PushFloat(mod.rnd.Float32())
	return machine.Continue
}

func constrain(t *machine.Thread) machine.StepResult {
	high := t.PopFloat()
	low := t.PopFloat()
	n := t.PopFloat()
	if n < low {
		n = low
	}
	if n > high {
		n = high
	}
	t.PushFloat(n)
	return machine.Continue
}

// mapLinear maps value from the line through (x1,y1) and (x2,y2). A
// vertical line passes the value through.
func mapLinear(t *machine.Thread) machine.StepResult {
	y2 := float64(t.PopFloat())
	x2 := float64(t.PopFloat())
	y1 := float64(t.PopFloat())
	x1 := float64(t.PopFloat())
	v := float64(t.PopFloat())

	dx := x2 - x1
	if dx == 0 {
		t.PushFloat(float32(v))
		return machine.Continue
	}
	t.PushFloat(float32(y1 + (v-x1)*(y2-y1)/dx))
	return machine.Continue
}

// mapTemperature converts an ADC fraction from a thermistor divider to
// degrees Celsius using the simplified Steinhart-Hart equation
// 1/T = a + b ln(R), with R relative to the reference resistor.
func mapTemperature(t *machine.Thread) machine.StepResult {
	b := float64(t.PopFloat())
	a := float64(t.PopFloat())
	v := float64(t.PopFloat())
	t.PushFloat(float32(1/(a+b*math.Log(resistance(v))) - 273.15))
	return machine.Continue
}

// resistance returns the thermistor resistance as a multiple of the
// reference resistor for the given ADC fraction.
func resistance(adc float64) float64 {
	if math.Abs(1-adc) < 1e-6 {
		return 1e5
	}
	return adc / (1 - adc)
}

func invalid(what string, v uint8) error {
	return errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf("invalid %s %d", what, v))
}
