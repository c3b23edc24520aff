package image

import (
	"encoding/binary"
	"math"

	"github.com/ruediste/micro-blocks/errors"
)

// Builder lays out an image the way the block compiler does: header, thread
// table, constant pool, then thread code; memory holds the globals followed
// by each thread's stack.
//
// The thread count is fixed up front so constant offsets are known while the
// code referencing them is still being assembled.
type Builder struct {
	threadCount int
	globals     uint16
	extraMemory uint16
	constants   []byte
	threads     []builderThread
}

type builderThread struct {
	code  []byte
	stack uint16
}

// NewBuilder creates a builder for an image with threadCount threads.
func NewBuilder(threadCount int) *Builder {
	return &Builder{threadCount: threadCount}
}

// Globals reserves n bytes of global variables at the start of memory.
func (b *Builder) Globals(n uint16) *Builder {
	b.globals = n
	return b
}

// ExtraMemory adds n unassigned bytes after the last stack.
func (b *Builder) ExtraMemory(n uint16) *Builder {
	b.extraMemory = n
	return b
}

// Constant appends data to the constant pool and returns its absolute offset.
func (b *Builder) Constant(data []byte) uint16 {
	off := HeaderSize + b.threadCount*EntrySize + len(b.constants)
	b.constants = append(b.constants, data...)
	return uint16(off)
}

// String appends a NUL-terminated string constant.
func (b *Builder) String(s string) uint16 {
	return b.Constant(append([]byte(s), 0))
}

// CodeStart returns the absolute offset the next added thread's code starts
// at. Jump targets are image-relative, so code can be assembled knowing it.
func (b *Builder) CodeStart() int {
	off := HeaderSize + b.threadCount*EntrySize + len(b.constants)
	for _, t := range b.threads {
		off += len(t.code)
	}
	return off
}

// Thread adds a thread with its code and stack size and returns its number.
func (b *Builder) Thread(code []byte, stackSize uint16) int {
	b.threads = append(b.threads, builderThread{code: code, stack: stackSize})
	return len(b.threads) - 1
}

// Build returns the encoded image.
func (b *Builder) Build() ([]byte, error) {
	if len(b.threads) != b.threadCount {
		return nil, errors.InvalidInput(errors.PhaseLoad, "thread count does not match declared count")
	}
	if b.threadCount > math.MaxUint16 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "too many threads")
	}

	memory := int(b.globals)
	for _, t := range b.threads {
		memory += int(t.stack)
	}
	memory += int(b.extraMemory)
	if memory > math.MaxUint16 {
		return nil, errors.AllocationFailed(errors.PhaseLoad, memory, math.MaxUint16)
	}

	out := make([]byte, 0, b.CodeStart())
	out = append(out, Magic[0], Magic[1], Version)
	out = binary.LittleEndian.AppendUint16(out, uint16(b.threadCount))
	out = binary.LittleEndian.AppendUint16(out, uint16(memory))

	codeOffset := HeaderSize + b.threadCount*EntrySize + len(b.constants)
	stackOffset := int(b.globals)
	for _, t := range b.threads {
		if codeOffset > math.MaxUint16 {
			return nil, errors.InvalidInput(errors.PhaseLoad, "code offset exceeds 16 bits")
		}
		out = binary.LittleEndian.AppendUint16(out, uint16(codeOffset))
		out = binary.LittleEndian.AppendUint16(out, uint16(stackOffset))
		codeOffset += len(t.code)
		stackOffset += int(t.stack)
	}

	out = append(out, b.constants...)
	for _, t := range b.threads {
		out = append(out, t.code...)
	}
	return out, nil
}
