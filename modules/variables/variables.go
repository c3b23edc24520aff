// Package variables reads and writes 32-bit global variables.
package variables

import "github.com/ruediste/micro-blocks/machine"

// Native function ids.
const (
	SetVar32 = 4
	GetVar32 = 5
)

type Module struct{}

func New() *Module { return &Module{} }

func (*Module) Name() string { return "variables" }

func (*Module) Setup(m *machine.Machine) error {
	return m.RegisterAll(
		machine.Entry{ID: SetVar32, Name: "variablesSetVar32", Fn: setVar32},
		machine.Entry{ID: GetVar32, Name: "variablesGetVar32", Fn: getVar32},
	)
}

func setVar32(t *machine.Thread) machine.StepResult {
	value := t.PopU32()
	offset := t.PopU16()
	if !t.Failed() {
		t.Fail(t.Memory().WriteU32(uint32(offset), value))
	}
	return machine.Continue
}

func getVar32(t *machine.Thread) machine.StepResult {
	offset := t.PopU16()
	if t.Failed() {
		return machine.Continue
	}
	v, err := t.Memory().ReadU32(uint32(offset))
	if err != nil {
		t.Fail(err)
		return machine.Continue
	}
	t.PushU32(v)
	return machine.Continue
}
