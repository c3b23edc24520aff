package machine

import (
	"time"

	microblocks "github.com/ruediste/micro-blocks"
	"github.com/ruediste/micro-blocks/image"
	"github.com/ruediste/micro-blocks/memory"
	"github.com/ruediste/micro-blocks/resource"
)

// Thread is one cooperative program of the loaded image. Its stack lives in
// the shared arena between the thread's stack offset and the next higher one.
//
// Stack accessors use a sticky error: after the first failure every further
// pop returns zero, pushes are ignored, and the interpreter halts the thread
// once the native function returns.
type Thread struct {
	m     *Machine
	stack *memory.Stack
	fault error
	err   error
	gen   uint64
	pc    uint32
	id    uint16
	state State
}

// ID returns the thread number.
func (t *Thread) ID() uint16 { return t.id }

// PC returns the program counter.
func (t *Thread) PC() uint32 { return t.pc }

// SP returns the stack pointer as an absolute memory offset.
func (t *Thread) SP() uint32 { return t.stack.Top }

// StackBounds returns the thread's [base, limit) stack region.
func (t *Thread) StackBounds() (base, limit uint32) { return t.stack.Base, t.stack.Limit }

// State returns the scheduling state.
func (t *Thread) State() State { return t.state }

// Fault returns the error that halted the thread, if any.
func (t *Thread) Fault() error { return t.fault }

// Machine returns the owning machine.
func (t *Thread) Machine() *Machine { return t.m }

// Memory returns the working memory.
func (t *Thread) Memory() microblocks.Memory { return t.m.mem }

// Image returns the image the thread belongs to.
func (t *Thread) Image() *image.Image { return t.m.img }

// Pool returns the resource pool.
func (t *Thread) Pool() *resource.Pool { return t.m.pool }

// Now returns the machine clock reading.
func (t *Thread) Now() time.Time { return t.m.clock.Now() }

// Err returns the sticky error recorded by a failed stack or memory access.
func (t *Thread) Err() error { return t.err }

// Failed reports whether an error has been recorded.
func (t *Thread) Failed() bool { return t.err != nil }

// Fail records err; the thread halts when the current native returns.
func (t *Thread) Fail(err error) {
	if t.err == nil && err != nil {
		t.err = err
	}
}

func (t *Thread) PopU8() uint8 {
	if t.err != nil {
		return 0
	}
	v, err := t.stack.PopU8()
	t.Fail(err)
	return v
}

func (t *Thread) PopU16() uint16 {
	if t.err != nil {
		return 0
	}
	v, err := t.stack.PopU16()
	t.Fail(err)
	return v
}

func (t *Thread) PopU32() uint32 {
	if t.err != nil {
		return 0
	}
	v, err := t.stack.PopU32()
	t.Fail(err)
	return v
}

func (t *Thread) PopFloat() float32 {
	if t.err != nil {
		return 0
	}
	v, err := t.stack.PopF32()
	t.Fail(err)
	return v
}

// PopBytes pops n bytes and returns a copy in push order.
func (t *Thread) PopBytes(n int) []byte {
	if t.err != nil {
		return nil
	}
	b, err := t.stack.Pop(uint32(n))
	if err != nil {
		t.Fail(err)
		return nil
	}
	return append([]byte(nil), b...)
}

func (t *Thread) PushU8(v uint8) {
	if t.err == nil {
		t.Fail(t.stack.PushU8(v))
	}
}

func (t *Thread) PushU16(v uint16) {
	if t.err == nil {
		t.Fail(t.stack.PushU16(v))
	}
}

func (t *Thread) PushU32(v uint32) {
	if t.err == nil {
		t.Fail(t.stack.PushU32(v))
	}
}

func (t *Thread) PushFloat(v float32) {
	if t.err == nil {
		t.Fail(t.stack.PushF32(v))
	}
}

func (t *Thread) PushBytes(b []byte) {
	if t.err == nil {
		t.Fail(t.stack.Push(b))
	}
}

func (t *Thread) PushBool(v bool) {
	if v {
		t.PushU8(1)
	} else {
		t.PushU8(0)
	}
}

// PopHandle pops a resource handle.
func (t *Thread) PopHandle() resource.Handle {
	return resource.Handle(t.PopU32())
}

// PushResource boxes v in the pool and pushes the handle. The new value is
// dropped again if the push fails.
func (t *Thread) PushResource(v any) {
	if t.err != nil {
		return
	}
	h, err := t.m.pool.Create(v)
	if err != nil {
		t.Fail(err)
		return
	}
	t.PushU32(uint32(h))
	if t.err != nil {
		_ = t.m.pool.DecRef(h)
	}
}

// Release drops one reference to h and records misuse as the thread's error.
func (t *Thread) Release(h resource.Handle) {
	if err := t.m.pool.DecRef(h); err != nil {
		t.Fail(err)
	}
}

// Discard drops one reference to each live handle in hs without recording
// an error. Failure paths use it for operands the native already owns.
func (t *Thread) Discard(hs ...resource.Handle) {
	for _, h := range hs {
		if _, ok := t.m.pool.Get(h); ok {
			_ = t.m.pool.DecRef(h)
		}
	}
}

// Yield puts the thread on the yield queue.
func (t *Thread) Yield() StepResult {
	if t.err != nil {
		return halted
	}
	return t.m.sched.yield(t, ReasonYield)
}

// Delay suspends the thread until d has elapsed on the machine clock.
func (t *Thread) Delay(d time.Duration) StepResult {
	if t.err != nil {
		return halted
	}
	return t.m.sched.delay(t, d)
}

// WaitCallback marks the thread ready for a callback trigger and suspends.
// A trigger that arrived earlier resumes it on the next tick.
func (t *Thread) WaitCallback() StepResult {
	if t.err != nil {
		return halted
	}
	return t.m.sched.waitCallback(t)
}

// Wait suspends the thread for a readiness source owned by a module.
func (t *Thread) Wait() StepResult {
	if t.err != nil {
		return halted
	}
	t.state = StateWaiting
	return suspend(ReasonWait)
}

// End suspends the thread with no way to resume it.
func (t *Thread) End() StepResult {
	if t.err != nil {
		return halted
	}
	t.state = StateEnded
	return suspend(ReasonEnd)
}
