// Package bytecode implements the micro-blocks instruction encoding.
//
// Every instruction starts with one opcode byte:
//
//	bit 7-6   class: 00 push, 01 jump, 10 jump-if-zero, 11 call
//	bit 5-4   length selector: 00 inline, 01 one extension byte, 10 two extension bytes
//	bit 3-0   base value
//
// The argument is the base alone (selector 00), base<<8 | b0 (selector 01)
// or base<<16 | b0 | b1<<8 (selector 10). Jump arguments are signed, the base
// being sign-extended from bit 3; push byte counts and function ids are
// unsigned. A push instruction is followed by its payload bytes.
//
// Jump offsets are relative to the first byte of the jump instruction.
//
// Builder assembles instructions; Decode and Disassemble read them back.
package bytecode
