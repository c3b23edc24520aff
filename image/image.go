// Package image parses and assembles micro-blocks code images.
//
// Layout, little-endian:
//
//	u8[2] magic ('M','B'), u8 version, u16 threadCount, u16 memorySize
//	threadCount x {u16 codeOffset, u16 stackOffset}
//	instruction bytes and constant-pool blobs
//
// Code offsets and constant-pool offsets are absolute offsets into the image.
package image

import (
	"bytes"
	"encoding/binary"
	"strconv"

	"github.com/ruediste/micro-blocks/errors"
)

const (
	HeaderSize = 7
	EntrySize  = 4
	Version    = 0
)

// Magic identifies a code image.
var Magic = [2]byte{'M', 'B'}

// Header is the fixed image header.
type Header struct {
	Magic       [2]byte
	Version     uint8
	ThreadCount uint16
	MemorySize  uint16
}

// ThreadEntry is one thread table row.
type ThreadEntry struct {
	CodeOffset  uint16
	StackOffset uint16
}

// Image is a parsed code image. It owns a private copy of the buffer.
type Image struct {
	Header  Header
	Threads []ThreadEntry
	data    []byte
}

// Parse validates data and returns the image. The buffer is copied.
func Parse(data []byte) (*Image, error) {
	if len(data) < HeaderSize {
		return nil, errors.InvalidImage([]string{"header"}, "image is %d bytes, header needs %d", len(data), HeaderSize)
	}

	var h Header
	copy(h.Magic[:], data[0:2])
	h.Version = data[2]
	h.ThreadCount = binary.LittleEndian.Uint16(data[3:5])
	h.MemorySize = binary.LittleEndian.Uint16(data[5:7])

	if h.Magic != Magic {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidImage).
			Path("header", "magic").
			At(0).
			Value(h.Magic).
			Detail("got %q, want %q", h.Magic[:], Magic[:]).
			Build()
	}
	if h.Version != Version {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidImage).
			Path("header", "version").
			At(2).
			Value(h.Version).
			Detail("unsupported version %d", h.Version).
			Build()
	}

	tableEnd := HeaderSize + int(h.ThreadCount)*EntrySize
	if tableEnd > len(data) {
		return nil, errors.InvalidImage([]string{"thread_table"},
			"%d threads need %d bytes, image has %d", h.ThreadCount, tableEnd, len(data))
	}

	threads := make([]ThreadEntry, h.ThreadCount)
	for i := range threads {
		off := HeaderSize + i*EntrySize
		e := ThreadEntry{
			CodeOffset:  binary.LittleEndian.Uint16(data[off:]),
			StackOffset: binary.LittleEndian.Uint16(data[off+2:]),
		}
		if int(e.CodeOffset) > len(data) {
			return nil, errors.New(errors.PhaseLoad, errors.KindInvalidImage).
				Path("thread", strconv.Itoa(i), "code_offset").
				At(uint32(e.CodeOffset)).
				Detail("past end of image (length %d)", len(data)).
				Build()
		}
		if e.StackOffset > h.MemorySize {
			return nil, errors.New(errors.PhaseLoad, errors.KindInvalidImage).
				Path("thread", strconv.Itoa(i), "stack_offset").
				At(uint32(e.StackOffset)).
				Detail("past end of memory (size %d)", h.MemorySize).
				Build()
		}
		threads[i] = e
	}

	return &Image{
		Header:  h,
		Threads: threads,
		data:    bytes.Clone(data),
	}, nil
}

// Code returns the whole image buffer; instructions are addressed from offset 0.
func (im *Image) Code() []byte {
	return im.data
}

// Len returns the image size in bytes.
func (im *Image) Len() int {
	return len(im.data)
}

// StackRegion returns the [base, limit) memory region of thread i. The limit
// is the next higher stack offset of any thread, or the memory size.
func (im *Image) StackRegion(i int) (base, limit uint32) {
	base = uint32(im.Threads[i].StackOffset)
	limit = uint32(im.Header.MemorySize)
	for _, e := range im.Threads {
		if s := uint32(e.StackOffset); s > base && s < limit {
			limit = s
		}
	}
	return base, limit
}

// Constant returns n bytes of the constant pool starting at offset.
func (im *Image) Constant(offset uint32, n int) ([]byte, error) {
	end := int(offset) + n
	if n < 0 || end > len(im.data) {
		return nil, errors.OutOfBounds(errors.PhaseRuntime, []string{"constant_pool"}, end, len(im.data))
	}
	return im.data[offset:end], nil
}

// CString returns the NUL-terminated string stored at offset. A string
// running to the end of the image is returned without error.
func (im *Image) CString(offset uint32) (string, error) {
	if int(offset) > len(im.data) {
		return "", errors.OutOfBounds(errors.PhaseRuntime, []string{"constant_pool"}, int(offset), len(im.data))
	}
	rest := im.data[offset:]
	if i := bytes.IndexByte(rest, 0); i >= 0 {
		rest = rest[:i]
	}
	return string(rest), nil
}
