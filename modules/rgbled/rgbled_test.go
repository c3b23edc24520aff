package rgbled

import (
	stderrors "errors"
	"slices"
	"testing"

	"github.com/ruediste/micro-blocks/bytecode"
	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/machine"
	"github.com/ruediste/micro-blocks/testbed"
)

const fnEnd = 40

func newBed(t *testing.T, mod *Module) *testbed.Bed {
	t.Helper()
	bed := testbed.New(t, machine.Config{}, mod)
	if err := bed.M.Register(fnEnd, "end", (*machine.Thread).End); err != nil {
		t.Fatal(err)
	}
	return bed
}

func setup(b *bytecode.Builder, id, count uint16, pin uint8) *bytecode.Builder {
	return b.PushU16(id).PushU16(count).PushU8(pin).Call(Setup)
}

func set(b *bytecode.Builder, id uint16, index, r, g, bl float32) *bytecode.Builder {
	return b.PushU16(id).PushFloat(index).PushFloat(r).PushFloat(g).PushFloat(bl).Call(SetColour)
}

func TestShow(t *testing.T) {
	var shown []Frame
	mod := New(func(f Frame) { shown = append(shown, f) })
	bed := newBed(t, mod)

	b := setup(bytecode.NewBuilder(), 7, 3, 13)
	b = set(b, 7, 0, 1, 0, 0)
	b = set(b, 7, 2, 0, 0.5, 2)
	b = set(b, 7, 3, 1, 1, 1)
	b = set(b, 7, -1, 1, 1, 1)
	b.PushU16(7).Call(Show)
	b = set(b, 7, 1, 1, 1, 1)
	bed.Load(t, b.Call(fnEnd))
	bed.NoFault(t, 0)

	want := []RGB{{255, 0, 0}, {0, 0, 0}, {0, 128, 255}}
	f, ok := mod.Frame(7)
	if !ok {
		t.Fatal("no frame")
	}
	if f.Pin != 13 || !slices.Equal(f.Pixels, want) {
		t.Errorf("frame = %+v, want pixels %v", f, want)
	}
	if len(shown) != 1 || !slices.Equal(shown[0].Pixels, want) {
		t.Errorf("published %+v", shown)
	}
}

func TestUnknownStrip(t *testing.T) {
	bed := newBed(t, New(nil))
	bed.Load(t, bytecode.NewBuilder().PushU16(1).Call(Show).Call(fnEnd))
	th := bed.M.Thread(0)
	if th.State() != machine.StateHalted {
		t.Fatalf("state = %s", th.State())
	}
	var e *errors.Error
	if !stderrors.As(th.Fault(), &e) || e.Kind != errors.KindNotFound {
		t.Errorf("fault = %v", th.Fault())
	}
}

func TestResetDropsStrips(t *testing.T) {
	mod := New(nil)
	bed := newBed(t, mod)
	b := setup(bytecode.NewBuilder(), 1, 1, 2)
	bed.Load(t, b.PushU16(1).Call(Show).Call(fnEnd))
	if _, ok := mod.Frame(1); !ok {
		t.Fatal("no frame")
	}

	bed.Load(t, bytecode.NewBuilder().PushU16(1).Call(Show).Call(fnEnd))
	if _, ok := mod.Frame(1); ok {
		t.Error("frame survived reload")
	}
	if bed.State(0) != machine.StateHalted {
		t.Error("strip survived reload")
	}
}
