// Package controls provides loop helpers for the repeat block.
package controls

import "github.com/ruediste/micro-blocks/machine"

// RepeatExtDone decrements a loop counter. It pops the counter and pushes
// the decremented counter followed by a u8 that is 1 once the loop is done.
const RepeatExtDone = 10

type Module struct{}

func New() *Module { return &Module{} }

func (*Module) Name() string { return "controls" }

func (*Module) Setup(m *machine.Machine) error {
	return m.Register(RepeatExtDone, "controlsRepeatExtDone", repeatExtDone)
}

func repeatExtDone(t *machine.Thread) machine.StepResult {
	n := t.PopFloat() - 1
	t.PushFloat(n)
	t.PushBool(n <= 0)
	return machine.Continue
}
