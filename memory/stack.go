package memory

import (
	"math"

	"github.com/ruediste/micro-blocks/errors"
)

// Stack is a byte stack growing upward inside [Base, Limit) of an arena.
// Multi-byte values are stored little-endian, so pushing a u16 writes the
// low byte first and the top of stack is always the final byte pushed.
type Stack struct {
	mem   *Arena
	Base  uint32
	Limit uint32
	Top   uint32
}

// NewStack returns an empty stack over the given region.
func NewStack(mem *Arena, base, limit uint32) *Stack {
	return &Stack{mem: mem, Base: base, Limit: limit, Top: base}
}

// Depth returns the number of bytes on the stack.
func (s *Stack) Depth() uint32 {
	return s.Top - s.Base
}

// Reset empties the stack.
func (s *Stack) Reset() {
	s.Top = s.Base
}

func (s *Stack) overflow(n uint32) error {
	return errors.New(errors.PhaseRuntime, errors.KindOutOfBounds).
		Path("stack").
		At(s.Top).
		Detail("push of %d bytes overflows stack [%d,%d)", n, s.Base, s.Limit).
		Build()
}

func (s *Stack) underflow(n uint32) error {
	return errors.New(errors.PhaseRuntime, errors.KindOutOfBounds).
		Path("stack").
		At(s.Top).
		Detail("pop of %d bytes underflows stack (depth %d)", n, s.Depth()).
		Build()
}

// Push appends data; data[len-1] becomes the top of stack.
func (s *Stack) Push(data []byte) error {
	n := uint32(len(data))
	if uint64(s.Top)+uint64(n) > uint64(s.Limit) {
		return s.overflow(n)
	}
	if err := s.mem.Write(s.Top, data); err != nil {
		return err
	}
	s.Top += n
	return nil
}

// Pop removes n bytes and returns them in push order. The slice aliases
// the arena and is only valid until the next push.
func (s *Stack) Pop(n uint32) ([]byte, error) {
	if n > s.Depth() {
		return nil, s.underflow(n)
	}
	s.Top -= n
	return s.mem.Read(s.Top, n)
}

// Peek returns the top n bytes without removing them.
func (s *Stack) Peek(n uint32) ([]byte, error) {
	if n > s.Depth() {
		return nil, s.underflow(n)
	}
	return s.mem.Read(s.Top-n, n)
}

// PushU8 pushes one byte.
func (s *Stack) PushU8(v uint8) error {
	if s.Top+1 > s.Limit {
		return s.overflow(1)
	}
	if err := s.mem.WriteU8(s.Top, v); err != nil {
		return err
	}
	s.Top++
	return nil
}

// PushU16 pushes a little-endian u16.
func (s *Stack) PushU16(v uint16) error {
	if s.Top+2 > s.Limit {
		return s.overflow(2)
	}
	if err := s.mem.WriteU16(s.Top, v); err != nil {
		return err
	}
	s.Top += 2
	return nil
}

// PushU32 pushes a little-endian u32.
func (s *Stack) PushU32(v uint32) error {
	if s.Top+4 > s.Limit {
		return s.overflow(4)
	}
	if err := s.mem.WriteU32(s.Top, v); err != nil {
		return err
	}
	s.Top += 4
	return nil
}

// PushF32 pushes a float.
func (s *Stack) PushF32(v float32) error {
	return s.PushU32(math.Float32bits(v))
}

// PopU8 pops one byte.
func (s *Stack) PopU8() (uint8, error) {
	if s.Depth() < 1 {
		return 0, s.underflow(1)
	}
	s.Top--
	return s.mem.ReadU8(s.Top)
}

// PopU16 pops a little-endian u16.
func (s *Stack) PopU16() (uint16, error) {
	if s.Depth() < 2 {
		return 0, s.underflow(2)
	}
	s.Top -= 2
	return s.mem.ReadU16(s.Top)
}

// PopU32 pops a little-endian u32.
func (s *Stack) PopU32() (uint32, error) {
	if s.Depth() < 4 {
		return 0, s.underflow(4)
	}
	s.Top -= 4
	return s.mem.ReadU32(s.Top)
}

// PopF32 pops a float.
func (s *Stack) PopF32() (float32, error) {
	v, err := s.PopU32()
	return math.Float32frombits(v), err
}
