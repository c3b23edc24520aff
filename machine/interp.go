package machine

import (
	"go.uber.org/zap"

	"github.com/ruediste/micro-blocks/bytecode"
	"github.com/ruediste/micro-blocks/errors"
)

// RunThread executes thread id until it suspends or halts. It may be called
// from inside a native function or a module poll; the current thread is
// restored afterwards. Halted and ended threads, and threads already
// executing, are not resumed.
func (m *Machine) RunThread(id uint16) StepResult {
	if int(id) >= len(m.threads) {
		Logger().Warn("resume of unknown thread", zap.Uint16("thread", id), zap.Int("threads", len(m.threads)))
		return halted
	}
	t := m.threads[id]
	switch t.state {
	case StateHalted:
		return halted
	case StateEnded:
		return suspend(ReasonEnd)
	case StateRunning:
		Logger().Warn("nested resume of running thread", zap.Uint16("thread", id))
		return suspend(ReasonBusy)
	}

	prev := m.current
	m.current = t
	t.state = StateRunning
	Logger().Debug("thread run", zap.Uint16("thread", id), zap.Uint32("pc", t.pc))

	res := m.execute(t)

	if t.state == StateRunning && res.Status == StepSuspend {
		// A native returned a suspension without registering anywhere.
		t.state = StateWaiting
	}
	m.current = prev
	Logger().Debug("thread stopped",
		zap.Uint16("thread", id),
		zap.Uint32("pc", t.pc),
		zap.Stringer("reason", res.Reason))
	return res
}

// Current returns the thread being executed, or nil between runs.
func (m *Machine) Current() *Thread {
	return m.current
}

func (m *Machine) execute(t *Thread) StepResult {
	start := m.clock.Now()
	for {
		res := m.step(t)
		if res.Status != StepContinue {
			return res
		}
		if t.gen != m.generation {
			return suspend(ReasonReload)
		}
		if m.clock.Now().Sub(start) > m.cfg.TimeSlice {
			return m.sched.yield(t, ReasonTimeSlice)
		}
	}
}

// step executes a single instruction.
func (m *Machine) step(t *Thread) StepResult {
	code := m.img.Code()
	initial := t.pc

	ins, err := bytecode.Decode(code, initial)
	if err != nil {
		return m.halt(t, err)
	}
	next := initial + ins.Size

	switch ins.Class {
	case bytecode.ClassPush:
		n := uint32(ins.Arg)
		data, err := m.img.Constant(next, int(n))
		if err != nil {
			return m.halt(t, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
				At(initial).
				Detail("push of %d bytes runs past end of image", n).
				Cause(err).
				Build())
		}
		if err := t.stack.Push(data); err != nil {
			return m.halt(t, err)
		}
		t.pc = next + n

	case bytecode.ClassJump:
		return m.jump(t, initial, ins.Arg)

	case bytecode.ClassJumpZero:
		v, err := t.stack.PopU8()
		if err != nil {
			return m.halt(t, err)
		}
		if v == 0 {
			return m.jump(t, initial, ins.Arg)
		}
		t.pc = next

	case bytecode.ClassCall:
		fn, ok := m.table.Lookup(ins.Arg)
		if !ok {
			return m.halt(t, errors.UnknownFunction(initial, ins.Arg))
		}
		t.pc = next
		res := fn(t)
		if t.err != nil {
			kind := errors.KindInvalidInput
			if e, ok := t.err.(*errors.Error); ok {
				kind = e.Kind
			}
			return m.halt(t, errors.New(errors.PhaseDispatch, kind).
				At(initial).
				Detail("native function %d (%s)", ins.Arg, m.table.Name(int(ins.Arg))).
				Cause(t.err).
				Build())
		}
		if res.Status == StepHalt && t.state != StateHalted {
			return m.halt(t, errors.New(errors.PhaseDispatch, errors.KindInvalidInput).
				At(initial).
				Detail("native function %d (%s) halted the thread", ins.Arg, m.table.Name(int(ins.Arg))).
				Build())
		}
		return res
	}
	return Continue
}

// jump sets pc relative to the first byte of the jump instruction.
func (m *Machine) jump(t *Thread, initial uint32, offset int32) StepResult {
	target := int64(initial) + int64(offset)
	if target < 0 || target >= int64(m.img.Len()) {
		return m.halt(t, errors.New(errors.PhaseRuntime, errors.KindOutOfBounds).
			Path("pc").
			At(initial).
			Value(target).
			Detail("jump target %d outside image (length %d)", target, m.img.Len()).
			Build())
	}
	t.pc = uint32(target)
	return Continue
}

// halt stops t for the rest of the image's lifetime. The fault never leaves
// the thread.
func (m *Machine) halt(t *Thread, err error) StepResult {
	t.state = StateHalted
	t.fault = err
	t.err = nil

	fields := []zap.Field{zap.Uint16("thread", t.id), zap.Uint32("pc", t.pc), zap.Error(err)}
	switch m.cfg.FaultPolicy {
	case FaultReport:
		Logger().Warn("thread halted", fields...)
		if m.cfg.OnFault != nil {
			m.cfg.OnFault(t.id, err)
		}
	default:
		Logger().Debug("thread halted", fields...)
	}
	return halted
}
