package microblocks

// Memory is the byte-addressable working memory holding global variables and
// thread stacks.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadF32(offset uint32) (float32, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteF32(offset uint32, value float32) error
}

// MemorySizer provides the current size of working memory in bytes.
type MemorySizer interface {
	Size() uint32
}
