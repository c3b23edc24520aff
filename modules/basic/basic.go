// Package basic provides the core control natives: yield, delay, end,
// callback waits and stack discard.
package basic

import "github.com/ruediste/micro-blocks/machine"

// Native function ids.
const (
	Yield         = 0
	Delay         = 9
	EndThread     = 11
	Pop32         = 12
	CallbackReady = 31
)

// Module registers the basic natives.
type Module struct{}

// New creates the basic module.
func New() *Module { return &Module{} }

func (*Module) Name() string { return "basic" }

func (*Module) Setup(m *machine.Machine) error {
	return m.RegisterAll(
		machine.Entry{ID: Yield, Name: "basicYield", Fn: (*machine.Thread).Yield},
		machine.Entry{ID: Delay, Name: "basicDelay", Fn: delay},
		machine.Entry{ID: EndThread, Name: "basicEndThread", Fn: (*machine.Thread).End},
		machine.Entry{ID: Pop32, Name: "basicPop32", Fn: pop32},
		machine.Entry{ID: CallbackReady, Name: "basicCallbackReady", Fn: (*machine.Thread).WaitCallback},
	)
}

// delay pops a duration in milliseconds.
func delay(t *machine.Thread) machine.StepResult {
	return t.Delay(machine.Millis(t.PopFloat()))
}

func pop32(t *machine.Thread) machine.StepResult {
	t.PopU32()
	return machine.Continue
}
