package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders code[start:end] one instruction per line, prefixed by
// the absolute offset. Decoding stops at the first undecodable opcode.
func Disassemble(code []byte, start, end int) string {
	if end > len(code) {
		end = len(code)
	}
	var b strings.Builder
	pc := start
	for pc < end {
		in, err := Decode(code, uint32(pc))
		if err != nil {
			fmt.Fprintf(&b, "%d: ?? (%v)\n", pc, err)
			break
		}
		fmt.Fprintf(&b, "%d: %s", pc, in.Class)
		switch in.Class {
		case ClassPush:
			body := pc + int(in.Size)
			for i := 0; i < int(in.Arg) && body+i < len(code); i++ {
				fmt.Fprintf(&b, " %d", code[body+i])
			}
			pc = body + int(in.Arg)
		case ClassJump, ClassJumpZero:
			fmt.Fprintf(&b, " %d (-> %d)", in.Arg, pc+int(in.Arg))
			pc += int(in.Size)
		default:
			fmt.Fprintf(&b, " %d", in.Arg)
			pc += int(in.Size)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
