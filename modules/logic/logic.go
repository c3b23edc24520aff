// Package logic provides comparison and boolean natives. Booleans are u8
// values, zero is false.
package logic

import (
	"fmt"

	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/machine"
)

// Native function ids.
const (
	Compare   = 7
	Operation = 13
	Negate    = 14
)

// Comparison types for Compare.
const (
	Equal uint8 = iota
	NotEqual
	Less
	LessOrEqual
	Greater
	GreaterOrEqual
)

// Operation types.
const (
	And uint8 = iota
	Or
)

type Module struct{}

func New() *Module { return &Module{} }

func (*Module) Name() string { return "logic" }

func (*Module) Setup(m *machine.Machine) error {
	return m.RegisterAll(
		machine.Entry{ID: Compare, Name: "logicCompare", Fn: compare},
		machine.Entry{ID: Operation, Name: "logicOperation", Fn: operation},
		machine.Entry{ID: Negate, Name: "logicNegate", Fn: negate},
	)
}

func compare(t *machine.Thread) machine.StepResult {
	typ := t.PopU8()
	b := t.PopFloat()
	a := t.PopFloat()

	var r bool
	switch typ {
	case Equal:
		r = a == b
	case NotEqual:
		r = a != b
	case Less:
		r = a < b
	case LessOrEqual:
		r = a <= b
	case Greater:
		r = a > b
	case GreaterOrEqual:
		r = a >= b
	default:
		t.Fail(invalid("comparison", typ))
		return machine.Continue
	}
	t.PushBool(r)
	return machine.Continue
}

func operation(t *machine.Thread) machine.StepResult {
	typ := t.PopU8()
	b := t.PopU8() != 0
	a := t.PopU8() != 0

	switch typ {
	case And:
		t.PushBool(a && b)
	case Or:
		t.PushBool(a || b)
	default:
		t.Fail(invalid("operation", typ))
	}
	return machine.Continue
}

func negate(t *machine.Thread) machine.StepResult {
	t.PushBool(t.PopU8() == 0)
	return machine.Continue
}

func invalid(what string, v uint8) error {
	return errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf("invalid logic %s %d", what, v))
}
