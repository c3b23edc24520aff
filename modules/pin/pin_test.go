package pin

import (
	"testing"
	"time"

	"github.com/ruediste/micro-blocks/bytecode"
	"github.com/ruediste/micro-blocks/machine"
	"github.com/ruediste/micro-blocks/testbed"
)

const (
	fnHit = 40
	fnEnd = 41
)

type rig struct {
	*testbed.Bed
	drv  *SimDriver
	hits int
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{drv: NewSimDriver()}
	r.Bed = testbed.New(t, machine.Config{}, New(r.drv))
	err := r.M.Register(fnHit, "hit", func(th *machine.Thread) machine.StepResult {
		r.hits++
		return machine.Continue
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.M.Register(fnEnd, "end", (*machine.Thread).End); err != nil {
		t.Fatal(err)
	}
	return r
}

// waiter sets up a pin-change registration and then loops waiting on it.
func waiter(pin, pull uint8, edge Edge, debounceMs float32) *bytecode.Builder {
	b := bytecode.NewBuilder().
		PushU8(pin).PushU8(pull).PushU8(uint8(edge)).PushFloat(debounceMs).
		Call(SetupOnChange)
	loop := b.Len()
	return b.Call(WaitForChange).Call(fnHit).JumpTo(loop)
}

func TestEdges(t *testing.T) {
	tests := []struct {
		name   string
		edge   Edge
		levels []bool
		want   int
	}{
		{"any", EdgeAny, []bool{true, false, true}, 3},
		{"rising", EdgeRising, []bool{true, false, true}, 2},
		{"falling", EdgeFalling, []bool{true, false, true}, 1},
		{"no change", EdgeAny, []bool{false, false}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			r.Load(t, waiter(4, 0, tt.edge, 0))
			if s := r.State(0); s != machine.StateWaiting {
				t.Fatalf("state = %s", s)
			}
			for _, level := range tt.levels {
				r.drv.Set(4, level)
				r.Clock.Advance(time.Millisecond)
				r.Tick(1)
			}
			if r.hits != tt.want {
				t.Errorf("hits = %d, want %d", r.hits, tt.want)
			}
		})
	}
}

func TestTriggerLatchesUntilWait(t *testing.T) {
	r := newRig(t)
	b := bytecode.NewBuilder().
		PushU8(4).PushU8(0).PushU8(uint8(EdgeAny)).PushFloat(0).
		Call(SetupOnChange).
		PushFloat(10).Call(9)
	loop := b.Len()
	b.Call(WaitForChange).Call(fnHit).JumpTo(loop)

	if err := r.M.Register(9, "delay", func(th *machine.Thread) machine.StepResult {
		return th.Delay(time.Duration(th.PopFloat()) * time.Millisecond)
	}); err != nil {
		t.Fatal(err)
	}
	r.Load(t, b)

	// Edge happens while the thread is still delayed.
	r.drv.Set(4, true)
	r.Tick(1)
	r.drv.Set(4, false)
	r.Clock.Advance(time.Millisecond)
	r.Tick(1)
	if r.hits != 0 {
		t.Fatal("resumed before waiting")
	}

	r.Clock.Advance(10 * time.Millisecond)
	r.Tick(1) // delay elapses, thread waits, latched edge resumes it
	r.Tick(1)
	if r.hits != 1 {
		t.Fatalf("hits = %d, want 1", r.hits)
	}
	r.Tick(3)
	if r.hits != 1 {
		t.Fatalf("resumed again without an edge: %d", r.hits)
	}
}

func TestDebounce(t *testing.T) {
	r := newRig(t)
	r.Load(t, waiter(4, 0, EdgeAny, 50))

	r.drv.Set(4, true)
	r.Tick(1)
	if r.hits != 1 {
		t.Fatalf("first edge: hits = %d", r.hits)
	}

	// Bounces inside the debounce window are ignored.
	r.drv.Set(4, false)
	r.Clock.Advance(10 * time.Millisecond)
	r.Tick(1)
	r.drv.Set(4, true)
	r.Clock.Advance(10 * time.Millisecond)
	r.Tick(1)
	if r.hits != 1 {
		t.Fatalf("bounce triggered: hits = %d", r.hits)
	}

	r.drv.Set(4, false)
	r.Clock.Advance(50 * time.Millisecond)
	r.Tick(1)
	if r.hits != 2 {
		t.Fatalf("after debounce: hits = %d", r.hits)
	}
}

func TestDebounce_Huge(t *testing.T) {
	r := newRig(t)
	r.Load(t, waiter(4, 0, EdgeAny, 1e30))

	r.drv.Set(4, true)
	r.Tick(1)
	if r.hits != 1 {
		t.Fatalf("first edge: hits = %d", r.hits)
	}

	r.drv.Set(4, false)
	r.Clock.Advance(24 * time.Hour)
	r.Tick(1)
	if r.hits != 1 {
		t.Fatalf("edge inside saturated debounce: hits = %d", r.hits)
	}
}

func TestPullMode(t *testing.T) {
	for pull, want := range map[uint8]Mode{0: ModeInput, 1: ModeInputPullUp, 2: ModeInputPullDown} {
		r := newRig(t)
		r.Load(t, waiter(7, pull, EdgeAny, 0))
		if got := r.drv.Mode(7); got != want {
			t.Errorf("pull %d: mode = %s, want %s", pull, got, want)
		}
	}
}

func TestWaitWithoutSetupYields(t *testing.T) {
	r := newRig(t)
	r.Load(t, bytecode.NewBuilder().Call(WaitForChange).Call(fnHit).Call(fnEnd))
	if s := r.State(0); s != machine.StateYielded {
		t.Fatalf("state = %s", s)
	}
	r.Tick(1)
	if r.hits != 1 {
		t.Fatalf("hits = %d", r.hits)
	}
}

func TestSet(t *testing.T) {
	r := newRig(t)
	r.Load(t, bytecode.NewBuilder().
		PushU8(2).PushU8(1).Call(Set).
		PushU8(3).PushFloat(1.5).Call(SetAnalog).
		PushU8(5).PushFloat(0.25).Call(SetAnalog).
		Call(fnEnd))
	r.NoFault(t, 0)

	if !r.drv.Level(2) || r.drv.Mode(2) != ModeOutput {
		t.Error("pin 2 not driven high")
	}
	if d := r.drv.Duty(3); d != 1 {
		t.Errorf("duty 3 = %v, want clamped 1", d)
	}
	if d := r.drv.Duty(5); d != 0.25 {
		t.Errorf("duty 5 = %v", d)
	}
}

func TestResetDropsRegistrations(t *testing.T) {
	r := newRig(t)
	r.Load(t, waiter(4, 0, EdgeAny, 0))
	r.Load(t, bytecode.NewBuilder().Call(fnHit).Call(fnEnd))
	r.hits = 0

	r.drv.Set(4, true)
	r.Tick(2)
	if r.hits != 0 {
		t.Fatalf("old registration resumed a thread: %d", r.hits)
	}
}
