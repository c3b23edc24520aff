// Package memory provides the machine's working memory.
package memory

import (
	"encoding/binary"
	"math"

	microblocks "github.com/ruediste/micro-blocks"
	"github.com/ruediste/micro-blocks/errors"
)

var (
	_ microblocks.Memory      = (*Arena)(nil)
	_ microblocks.MemorySizer = (*Arena)(nil)
)

// Arena is a zero-initialized, fixed-size little-endian byte store.
// All accessors are bounds checked.
type Arena struct {
	buf []byte
}

// NewArena allocates a zeroed arena of size bytes. A limit of zero means no
// limit; otherwise size must not exceed it.
func NewArena(size, limit int) (*Arena, error) {
	if size < 0 || (limit > 0 && size > limit) {
		return nil, errors.AllocationFailed(errors.PhaseLoad, size, limit)
	}
	return &Arena{buf: make([]byte, size)}, nil
}

// Size returns the arena size in bytes.
func (a *Arena) Size() uint32 {
	return uint32(len(a.buf))
}

// Bytes exposes the backing buffer.
func (a *Arena) Bytes() []byte {
	return a.buf
}

func (a *Arena) check(offset, n uint32) error {
	if uint64(offset)+uint64(n) > uint64(len(a.buf)) {
		return errors.New(errors.PhaseRuntime, errors.KindOutOfBounds).
			Path("memory").
			At(offset).
			Detail("access of %d bytes out of bounds (size %d)", n, len(a.buf)).
			Build()
	}
	return nil
}

// Read returns a view of length bytes at offset.
func (a *Arena) Read(offset uint32, length uint32) ([]byte, error) {
	if err := a.check(offset, length); err != nil {
		return nil, err
	}
	return a.buf[offset : offset+length], nil
}

// Write copies data to offset.
func (a *Arena) Write(offset uint32, data []byte) error {
	if err := a.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(a.buf[offset:], data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (a *Arena) ReadU8(offset uint32) (uint8, error) {
	if err := a.check(offset, 1); err != nil {
		return 0, err
	}
	return a.buf[offset], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (a *Arena) ReadU16(offset uint32) (uint16, error) {
	if err := a.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(a.buf[offset:]), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (a *Arena) ReadU32(offset uint32) (uint32, error) {
	if err := a.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(a.buf[offset:]), nil
}

// ReadF32 reads an IEEE-754 single-precision value.
func (a *Arena) ReadF32(offset uint32) (float32, error) {
	v, err := a.ReadU32(offset)
	return math.Float32frombits(v), err
}

// WriteU8 writes an unsigned 8-bit value.
func (a *Arena) WriteU8(offset uint32, value uint8) error {
	if err := a.check(offset, 1); err != nil {
		return err
	}
	a.buf[offset] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (a *Arena) WriteU16(offset uint32, value uint16) error {
	if err := a.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(a.buf[offset:], value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (a *Arena) WriteU32(offset uint32, value uint32) error {
	if err := a.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(a.buf[offset:], value)
	return nil
}

// WriteF32 writes an IEEE-754 single-precision value.
func (a *Arena) WriteF32(offset uint32, value float32) error {
	return a.WriteU32(offset, math.Float32bits(value))
}
