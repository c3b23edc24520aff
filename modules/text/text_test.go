package text

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/ruediste/micro-blocks/bytecode"
	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/image"
	"github.com/ruediste/micro-blocks/machine"
	"github.com/ruediste/micro-blocks/testbed"
)

const fnEnd = 40

func newBed(t *testing.T) (*testbed.Bed, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	bed := testbed.New(t, machine.Config{}, New(&out))
	if err := bed.M.Register(fnEnd, "end", (*machine.Thread).End); err != nil {
		t.Fatal(err)
	}
	return bed, &out
}

func TestPrint(t *testing.T) {
	tests := []struct {
		name string
		code func(ib *image.Builder) *bytecode.Builder
		want string
	}{
		{"load", func(ib *image.Builder) *bytecode.Builder {
			return bytecode.NewBuilder().PushU16(ib.String("hello")).Call(Load).Call(Print)
		}, "hello\n"},
		{"number", func(*image.Builder) *bytecode.Builder {
			return bytecode.NewBuilder().PushFloat(3.14159).Call(NumToString).Call(Print)
		}, "3.14\n"},
		{"negative number", func(*image.Builder) *bytecode.Builder {
			return bytecode.NewBuilder().PushFloat(-2).Call(NumToString).Call(Print)
		}, "-2.00\n"},
		{"bool", func(*image.Builder) *bytecode.Builder {
			return bytecode.NewBuilder().PushU8(0).Call(BoolToString).Call(Print).
				PushU8(3).Call(BoolToString).Call(Print)
		}, "false\ntrue\n"},
		{"join", func(ib *image.Builder) *bytecode.Builder {
			return bytecode.NewBuilder().
				PushU16(ib.String("t=")).Call(Load).
				PushFloat(21.5).Call(NumToString).
				Call(Join).Call(Print)
		}, "t=21.50\n"},
		{"empty", func(ib *image.Builder) *bytecode.Builder {
			return bytecode.NewBuilder().PushU16(ib.String("")).Call(Load).Call(Print)
		}, "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bed, out := newBed(t)
			ib := image.NewBuilder(1)
			code := tt.code(ib).Call(fnEnd)
			bed.LoadImage(t, testbed.ImageWith(t, ib, 64, code))
			bed.NoFault(t, 0)

			if out.String() != tt.want {
				t.Errorf("output %q, want %q", out.String(), tt.want)
			}
			if n := bed.M.Pool().Len(); n != 0 {
				t.Errorf("%d strings leaked", n)
			}
		})
	}
}

func TestHandleOnStack(t *testing.T) {
	bed, _ := newBed(t)
	ib := image.NewBuilder(1)
	off := ib.String("kept")
	bed.LoadImage(t, testbed.ImageWith(t, ib, 64, bytecode.NewBuilder().PushU16(off).Call(Load).Call(fnEnd)))

	live := bed.M.Pool().Live()
	if len(live) != 1 {
		t.Fatalf("live = %v", live)
	}
	s, err := String(bed.M.Pool(), live[0])
	if err != nil || s != "kept" {
		t.Fatalf("String = %q, %v", s, err)
	}

	// Reloading destroys what the previous image left behind.
	bed.Load(t, bytecode.NewBuilder().Call(fnEnd))
	if bed.M.Pool().Len() != 0 {
		t.Error("pool not cleared on reload")
	}
	if _, err := String(bed.M.Pool(), live[0]); !stderrors.Is(err, errors.ErrResourceMisuse) {
		t.Errorf("stale handle resolved: %v", err)
	}
}

func TestStaleHandleHalts(t *testing.T) {
	bed, out := newBed(t)
	ib := image.NewBuilder(1)
	off := ib.String("once")
	// 0x00010001 is the first handle of a fresh pool, stale once printed.
	code := bytecode.NewBuilder().PushU16(off).Call(Load).Call(Print).
		PushU32(0x0001_0001).Call(Print).Call(fnEnd)
	bed.LoadImage(t, testbed.ImageWith(t, ib, 64, code))

	if bed.State(0) != machine.StateHalted {
		t.Fatalf("state = %s", bed.State(0))
	}
	if !stderrors.Is(bed.M.Thread(0).Fault(), errors.ErrResourceMisuse) {
		t.Errorf("fault = %v", bed.M.Thread(0).Fault())
	}
	if out.String() != "once\n" {
		t.Errorf("output %q", out.String())
	}
}

func TestLoadOutOfImage(t *testing.T) {
	bed, _ := newBed(t)
	bed.Load(t, bytecode.NewBuilder().PushU16(0xffff).Call(Load))
	if bed.State(0) != machine.StateHalted {
		t.Fatalf("state = %s", bed.State(0))
	}
}

func TestJoinUnderflowReleasesOperand(t *testing.T) {
	bed, out := newBed(t)
	ib := image.NewBuilder(1)
	code := bytecode.NewBuilder().PushU16(ib.String("alone")).Call(Load).Call(Join).Call(Print)
	bed.LoadImage(t, testbed.ImageWith(t, ib, 64, code))

	if bed.State(0) != machine.StateHalted {
		t.Fatalf("state = %s", bed.State(0))
	}
	if n := bed.M.Pool().Len(); n != 0 {
		t.Errorf("%d strings leaked", n)
	}
	if out.Len() != 0 {
		t.Errorf("output %q", out.String())
	}
}
