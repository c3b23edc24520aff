// Package text provides string natives. Strings live in the machine's
// resource pool; the stack holds their handles.
package text

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/machine"
	"github.com/ruediste/micro-blocks/resource"
)

// Native function ids.
const (
	Load         = 23
	NumToString  = 24
	Print        = 25
	BoolToString = 26
	Join         = 27
)

// Module prints strings to an output writer.
type Module struct {
	out io.Writer
}

// New creates the text module printing to out. A nil out discards output.
func New(out io.Writer) *Module {
	if out == nil {
		out = io.Discard
	}
	return &Module{out: out}
}

func (*Module) Name() string { return "text" }

func (mod *Module) Setup(m *machine.Machine) error {
	return m.RegisterAll(
		machine.Entry{ID: Load, Name: "textLoad", Fn: load},
		machine.Entry{ID: NumToString, Name: "textNumToString", Fn: numToString},
		machine.Entry{ID: Print, Name: "textPrintString", Fn: mod.print},
		machine.Entry{ID: BoolToString, Name: "textBoolToString", Fn: boolToString},
		machine.Entry{ID: Join, Name: "textJoinString", Fn: join},
	)
}

// String resolves a string handle.
func String(p *resource.Pool, h resource.Handle) (string, error) {
	s, ok := resource.Value[string](p, h)
	if !ok {
		return "", errors.ResourceMisuse(uint32(h), "not a live string")
	}
	return s, nil
}

// pop pops a string handle and resolves it without releasing it.
func pop(t *machine.Thread) (string, resource.Handle) {
	h := t.PopHandle()
	if t.Failed() {
		return "", h
	}
	s, err := String(t.Pool(), h)
	t.Fail(err)
	return s, h
}

func load(t *machine.Thread) machine.StepResult {
	offset := t.PopU16()
	if t.Failed() {
		return machine.Continue
	}
	s, err := t.Image().CString(uint32(offset))
	if err != nil {
		t.Fail(err)
		return machine.Continue
	}
	t.PushResource(s)
	return machine.Continue
}

func numToString(t *machine.Thread) machine.StepResult {
	v := t.PopFloat()
	if !t.Failed() {
		t.PushResource(fmt.Sprintf("%.2f", v))
	}
	return machine.Continue
}

func (mod *Module) print(t *machine.Thread) machine.StepResult {
	s, h := pop(t)
	if t.Failed() {
		return machine.Continue
	}
	if _, err := fmt.Fprintln(mod.out, s); err != nil {
		machine.Logger().Warn("print failed", zap.Uint16("thread", t.ID()), zap.Error(err))
	}
	t.Release(h)
	return machine.Continue
}

func boolToString(t *machine.Thread) machine.StepResult {
	v := t.PopU8()
	if t.Failed() {
		return machine.Continue
	}
	if v == 0 {
		t.PushResource("false")
	} else {
		t.PushResource("true")
	}
	return machine.Continue
}

func join(t *machine.Thread) machine.StepResult {
	s2, h2 := pop(t)
	s1, h1 := pop(t)
	if t.Failed() {
		t.Discard(h1, h2)
		return machine.Continue
	}
	t.PushResource(s1 + s2)
	t.Release(h1)
	t.Release(h2)
	return machine.Continue
}
