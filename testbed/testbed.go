// Package testbed provides helpers for tests that run real images on a
// machine with a manual clock.
package testbed

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/ruediste/micro-blocks/bytecode"
	"github.com/ruediste/micro-blocks/image"
	"github.com/ruediste/micro-blocks/machine"
)

// Epoch is the start time of every testbed clock.
var Epoch = time.Unix(1_700_000_000, 0)

// Bed is a machine wired to a manual clock.
type Bed struct {
	M     *machine.Machine
	Clock *machine.ManualClock
}

// New creates a machine with mods installed.
func New(t testing.TB, cfg machine.Config, mods ...machine.Module) *Bed {
	t.Helper()
	clock := machine.NewManualClock(Epoch)
	cfg.Clock = clock
	m := machine.New(cfg)
	if err := m.Use(mods...); err != nil {
		t.Fatalf("setup modules: %v", err)
	}
	return &Bed{M: m, Clock: clock}
}

// Image assembles one thread per builder, each with stack bytes of stack.
func Image(t testing.TB, stack uint16, threads ...*bytecode.Builder) []byte {
	t.Helper()
	return ImageWith(t, image.NewBuilder(len(threads)), stack, threads...)
}

// ImageWith assembles threads into b, which may already hold constants
// and globals.
func ImageWith(t testing.TB, b *image.Builder, stack uint16, threads ...*bytecode.Builder) []byte {
	t.Helper()
	for _, tb := range threads {
		code, err := tb.Bytes()
		if err != nil {
			t.Fatalf("assemble: %v", err)
		}
		b.Thread(code, stack)
	}
	data, err := b.Build()
	if err != nil {
		t.Fatalf("build image: %v", err)
	}
	return data
}

// Load assembles and loads threads.
func (b *Bed) Load(t testing.TB, threads ...*bytecode.Builder) {
	t.Helper()
	b.LoadImage(t, Image(t, 64, threads...))
}

// LoadImage loads an encoded image.
func (b *Bed) LoadImage(t testing.TB, data []byte) {
	t.Helper()
	if err := b.M.Load(data); err != nil {
		t.Fatalf("load: %v", err)
	}
}

// Tick runs n scheduler ticks.
func (b *Bed) Tick(n int) {
	for i := 0; i < n; i++ {
		b.M.Tick(context.Background())
	}
}

// State returns the state of thread id.
func (b *Bed) State(id uint16) machine.State {
	return b.M.Thread(id).State()
}

// Depth returns the number of bytes on thread id's stack.
func (b *Bed) Depth(id uint16) uint32 {
	th := b.M.Thread(id)
	base, _ := th.StackBounds()
	return th.SP() - base
}

// NoFault fails the test if thread id halted.
func (b *Bed) NoFault(t testing.TB, id uint16) {
	t.Helper()
	if err := b.M.Thread(id).Fault(); err != nil {
		t.Fatalf("thread %d halted: %v", id, err)
	}
}

// CaptureID is a native id no standard module uses.
const CaptureID = 200

// Capture registers a native under id that pops n bytes and stores them in
// the returned slice pointer, then ends the thread. id must be free.
func (b *Bed) Capture(t testing.TB, id, n int) *[]byte {
	t.Helper()
	if _, taken := b.M.Table().Lookup(int32(id)); taken {
		t.Fatalf("capture id %d already registered as %q", id, b.M.Table().Name(id))
		return nil
	}
	var out []byte
	err := b.M.Register(id, "capture", func(th *machine.Thread) machine.StepResult {
		out = th.PopBytes(n)
		return th.End()
	})
	if err != nil {
		t.Fatal(err)
	}
	return &out
}

// F32 decodes a little-endian float from the first four bytes of b. Short
// input decodes as NaN.
func F32(b []byte) float32 {
	if len(b) < 4 {
		return float32(math.NaN())
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
