package variables

import (
	"encoding/binary"
	"testing"

	"github.com/ruediste/micro-blocks/bytecode"
	"github.com/ruediste/micro-blocks/image"
	"github.com/ruediste/micro-blocks/machine"
	"github.com/ruediste/micro-blocks/testbed"
)

func TestSetGet(t *testing.T) {
	bed := testbed.New(t, machine.Config{}, New())
	out := bed.Capture(t, 40, 4)

	code := bytecode.NewBuilder().
		PushU16(4).PushU32(0xdeadbeef).Call(SetVar32).
		PushU16(4).Call(GetVar32).
		Call(40)
	bed.LoadImage(t, testbed.ImageWith(t, image.NewBuilder(1).Globals(8), 64, code))
	bed.NoFault(t, 0)

	if got := binary.LittleEndian.Uint32(*out); got != 0xdeadbeef {
		t.Errorf("get = %#x", got)
	}
	mem, _ := bed.M.Memory().Read(4, 4)
	if got := binary.LittleEndian.Uint32(mem); got != 0xdeadbeef {
		t.Errorf("memory = %#x", got)
	}
	if bed.Depth(0) != 0 {
		t.Errorf("depth = %d", bed.Depth(0))
	}
}

func TestSharedBetweenThreads(t *testing.T) {
	bed := testbed.New(t, machine.Config{}, New())
	out := bed.Capture(t, 40, 4)

	writer := bytecode.NewBuilder().PushU16(0).PushU32(7).Call(SetVar32).Call(41)
	reader := bytecode.NewBuilder().PushU16(0).Call(GetVar32).Call(40)
	if err := bed.M.Register(41, "end", (*machine.Thread).End); err != nil {
		t.Fatal(err)
	}
	bed.LoadImage(t, testbed.ImageWith(t, image.NewBuilder(2).Globals(4), 32, writer, reader))

	if got := binary.LittleEndian.Uint32(*out); got != 7 {
		t.Errorf("reader saw %d", got)
	}
}

func TestOutOfMemory(t *testing.T) {
	bed := testbed.New(t, machine.Config{}, New())
	code := bytecode.NewBuilder().PushU16(0xfff0).Call(GetVar32)
	bed.LoadImage(t, testbed.Image(t, 16, code))
	if bed.State(0) != machine.StateHalted {
		t.Fatalf("state = %s", bed.State(0))
	}
}
