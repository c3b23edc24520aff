package memory

import (
	stderrors "errors"
	"testing"

	"github.com/ruediste/micro-blocks/errors"
)

func TestArena(t *testing.T) {
	a, err := NewArena(8, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range a.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}

	if err := a.WriteU32(4, 0x11223344); err != nil {
		t.Fatal(err)
	}
	if got := a.Bytes()[4:8]; string(got) != "\x44\x33\x22\x11" {
		t.Errorf("u32 layout = % x", got)
	}
	if v, _ := a.ReadU16(4); v != 0x3344 {
		t.Errorf("ReadU16 = %#x", v)
	}
	if err := a.WriteF32(0, 2.5); err != nil {
		t.Fatal(err)
	}
	if v, _ := a.ReadF32(0); v != 2.5 {
		t.Errorf("ReadF32 = %v", v)
	}
}

func TestArena_Bounds(t *testing.T) {
	a, _ := NewArena(4, 0)
	tests := []struct {
		name string
		fn   func() error
	}{
		{"u8", func() error { _, err := a.ReadU8(4); return err }},
		{"u16", func() error { _, err := a.ReadU16(3); return err }},
		{"u32", func() error { return a.WriteU32(1, 0) }},
		{"read", func() error { _, err := a.Read(2, 3); return err }},
		{"wrap", func() error { _, err := a.Read(0xffffffff, 2); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !stderrors.Is(err, errors.ErrOutOfBounds) {
				t.Errorf("expected out of bounds, got %v", err)
			}
		})
	}
}

func TestNewArena_Limit(t *testing.T) {
	if _, err := NewArena(100, 64); !stderrors.Is(err, errors.ErrAllocation) {
		t.Errorf("expected allocation failure, got %v", err)
	}
	if _, err := NewArena(64, 64); err != nil {
		t.Errorf("size at limit: %v", err)
	}
}

func TestStack(t *testing.T) {
	a, _ := NewArena(16, 0)
	s := NewStack(a, 4, 12)

	if err := s.PushU8(7); err != nil {
		t.Fatal(err)
	}
	if err := s.PushU16(0xbeef); err != nil {
		t.Fatal(err)
	}
	if s.Depth() != 3 {
		t.Fatalf("depth = %d", s.Depth())
	}
	// Low byte first, high byte on top.
	if top, _ := s.Peek(1); top[0] != 0xbe {
		t.Errorf("top = %#x", top[0])
	}
	if v, err := s.PopU16(); err != nil || v != 0xbeef {
		t.Errorf("PopU16 = %#x, %v", v, err)
	}
	if v, err := s.PopU8(); err != nil || v != 7 {
		t.Errorf("PopU8 = %d, %v", v, err)
	}
	if _, err := s.PopU8(); !stderrors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("expected underflow, got %v", err)
	}
}

func TestStack_Overflow(t *testing.T) {
	a, _ := NewArena(16, 0)
	s := NewStack(a, 0, 6)
	if err := s.PushF32(1); err != nil {
		t.Fatal(err)
	}
	if err := s.PushU32(1); !stderrors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("expected overflow, got %v", err)
	}
	if err := s.Push([]byte{1, 2, 3}); err == nil {
		t.Error("expected overflow")
	}
	if s.Depth() != 4 {
		t.Errorf("failed push changed depth to %d", s.Depth())
	}
	if err := s.Push([]byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Pop(6)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "\x00\x00\x80\x3f\x01\x02" {
		t.Errorf("stack bytes = % x", got)
	}
}
