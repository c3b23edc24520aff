package bytecode

import (
	"encoding/binary"
	"math"
)

// Builder assembles an instruction stream. The first encoding error is
// retained and returned by Bytes; later calls become no-ops.
type Builder struct {
	buf []byte
	err error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Len returns the number of bytes emitted so far. It is the offset the next
// instruction will start at.
func (b *Builder) Len() int {
	return len(b.buf)
}

func (b *Builder) op(class Class, arg int32) {
	if b.err != nil {
		return
	}
	enc, err := Encode(class, arg)
	if err != nil {
		b.err = err
		return
	}
	b.buf = append(b.buf, enc...)
}

// Push emits a push instruction copying data onto the stack.
func (b *Builder) Push(data ...byte) *Builder {
	b.op(ClassPush, int32(len(data)))
	if b.err == nil {
		b.buf = append(b.buf, data...)
	}
	return b
}

// PushU8 pushes one byte.
func (b *Builder) PushU8(v uint8) *Builder {
	return b.Push(v)
}

// PushU16 pushes a little-endian 16-bit value.
func (b *Builder) PushU16(v uint16) *Builder {
	return b.Push(binary.LittleEndian.AppendUint16(nil, v)...)
}

// PushU32 pushes a little-endian 32-bit value.
func (b *Builder) PushU32(v uint32) *Builder {
	return b.Push(binary.LittleEndian.AppendUint32(nil, v)...)
}

// PushFloat pushes a little-endian IEEE 754 float32.
func (b *Builder) PushFloat(v float32) *Builder {
	return b.PushU32(math.Float32bits(v))
}

// Jump emits an unconditional jump of offset bytes relative to the jump itself.
func (b *Builder) Jump(offset int32) *Builder {
	b.op(ClassJump, offset)
	return b
}

// JumpZero emits a pop-and-branch-if-zero jump.
func (b *Builder) JumpZero(offset int32) *Builder {
	b.op(ClassJumpZero, offset)
	return b
}

// JumpTo emits a jump landing on the absolute code offset target.
func (b *Builder) JumpTo(target int) *Builder {
	return b.Jump(int32(target - b.Len()))
}

// JumpZeroTo emits a conditional jump landing on target.
func (b *Builder) JumpZeroTo(target int) *Builder {
	return b.JumpZero(int32(target - b.Len()))
}

// Call emits a native function call.
func (b *Builder) Call(id int) *Builder {
	b.op(ClassCall, int32(id))
	return b
}

// Raw appends bytes verbatim.
func (b *Builder) Raw(data ...byte) *Builder {
	if b.err == nil {
		b.buf = append(b.buf, data...)
	}
	return b
}

// Bytes returns the assembled stream or the first encoding error.
func (b *Builder) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.buf, nil
}
