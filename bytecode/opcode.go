package bytecode

import (
	"fmt"

	"github.com/ruediste/micro-blocks/errors"
)

// Class selects the instruction kind, taken from the top two opcode bits.
type Class uint8

const (
	ClassPush     Class = 0b00
	ClassJump     Class = 0b01
	ClassJumpZero Class = 0b10
	ClassCall     Class = 0b11
)

func (c Class) String() string {
	switch c {
	case ClassPush:
		return "push"
	case ClassJump:
		return "jump"
	case ClassJumpZero:
		return "jz"
	case ClassCall:
		return "call"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Signed reports whether the class carries a signed argument.
func (c Class) Signed() bool {
	return c == ClassJump || c == ClassJumpZero
}

// Length selectors.
const (
	selInline uint8 = 0b00
	selOne    uint8 = 0b01
	selTwo    uint8 = 0b10
)

// Argument ranges per encoding width.
const (
	MaxInline   = 1<<4 - 1
	MaxOneByte  = 1<<12 - 1
	MaxTwoBytes = 1<<20 - 1

	MinSigned = -(1 << 19)
	MaxSigned = 1<<19 - 1
)

// Instruction is a decoded instruction header. Size counts the opcode and
// its extension bytes; a push payload of Arg bytes follows it.
type Instruction struct {
	Class Class
	Arg   int32
	Size  uint32
}

// Decode reads the instruction whose opcode byte is at code[pc].
func Decode(code []byte, pc uint32) (Instruction, error) {
	if int(pc) >= len(code) {
		return Instruction{}, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
			At(pc).
			Detail("pc past end of code (length %d)", len(code)).
			Build()
	}
	opcode := code[pc]
	class := Class(opcode >> 6)

	var arg int32
	if class.Signed() {
		arg = int32(opcode & 0xf)
		if opcode&0b1000 != 0 {
			arg |= ^int32(0xf)
		}
	} else {
		arg = int32(opcode & 0xf)
	}

	switch opcode >> 4 & 0b11 {
	case selInline:
		return Instruction{Class: class, Arg: arg, Size: 1}, nil
	case selOne:
		if int(pc)+1 >= len(code) {
			return Instruction{}, truncated(pc, len(code))
		}
		return Instruction{Class: class, Arg: arg<<8 | int32(code[pc+1]), Size: 2}, nil
	case selTwo:
		if int(pc)+2 >= len(code) {
			return Instruction{}, truncated(pc, len(code))
		}
		return Instruction{
			Class: class,
			Arg:   arg<<16 | int32(code[pc+1]) | int32(code[pc+2])<<8,
			Size:  3,
		}, nil
	}
	return Instruction{}, errors.UnknownInstruction(pc, opcode)
}

func truncated(pc uint32, length int) *errors.Error {
	return errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
		At(pc).
		Detail("instruction extends past end of code (length %d)", length).
		Build()
}

// Encode returns the opcode and extension bytes for class with argument arg,
// using the narrowest encoding that fits.
func Encode(class Class, arg int32) ([]byte, error) {
	op := byte(class) << 6
	if class.Signed() {
		switch {
		case arg >= -(1<<3) && arg < 1<<3:
			return []byte{op | byte(arg&0xf)}, nil
		case arg >= -(1<<11) && arg < 1<<11:
			return []byte{op | selOne<<4 | byte(arg>>8&0xf), byte(arg)}, nil
		case arg >= MinSigned && arg <= MaxSigned:
			return []byte{op | selTwo<<4 | byte(arg>>16&0xf), byte(arg), byte(arg >> 8)}, nil
		}
	} else if arg >= 0 {
		switch {
		case arg <= MaxInline:
			return []byte{op | byte(arg)}, nil
		case arg <= MaxOneByte:
			return []byte{op | selOne<<4 | byte(arg>>8), byte(arg)}, nil
		case arg <= MaxTwoBytes:
			return []byte{op | selTwo<<4 | byte(arg>>16), byte(arg), byte(arg >> 8)}, nil
		}
	}
	return nil, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
		Value(arg).
		Detail("%s argument %d out of range", class, arg).
		Build()
}
