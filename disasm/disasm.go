// Package disasm renders Chifir bytecode back into readable assembly
// text. It is a direct simplification of the teacher's disassembler
// package (github.com/Urethramancer/m68k/disassembler): where m68k
// needs a linear sweep plus a control-flow worklist to find instruction
// boundaries in variable-width code, Chifir's fixed 4-word width makes
// every multiple-of-4 word offset a guaranteed instruction boundary, so
// the worklist queue collapses to a single straight-line pass.
package disasm

import "fmt"

// Instruction is one decoded 4-word Chifir instruction.
type Instruction struct {
	Address uint32
	Opcode  uint32
	A, B, C uint32
}

var mnemonicByOpcode = map[uint32]string{
	0: "brk", 1: "lpc", 2: "beq", 3: "spc", 4: "lea", 5: "lra", 6: "sra",
	7: "add", 8: "sub", 9: "mul", 10: "div", 11: "mod", 12: "cmp",
	13: "nad", 14: "drw", 15: "key", 16: "nop", 17: "cfv",
}

// Decode walks words four at a time, producing one Instruction per
// instruction slot. A trailing partial instruction (fewer than 4 words
// remaining) is padded with zero operands.
func Decode(words []uint32) []Instruction {
	var out []Instruction
	for addr := 0; addr < len(words); addr += 4 {
		inst := Instruction{Address: uint32(addr), Opcode: word(words, addr)}
		inst.A = word(words, addr+1)
		inst.B = word(words, addr+2)
		inst.C = word(words, addr+3)
		out = append(out, inst)
	}
	return out
}

func word(words []uint32, i int) uint32 {
	if i < 0 || i >= len(words) {
		return 0
	}
	return words[i]
}

// Render formats decoded instructions as text, one per line, labeling
// each address with a synthesized loc_XXXXXXXX tag the way the
// teacher's disassembler synthesizes loc_ labels for branch targets —
// except here every instruction gets one, since there is no
// reachability analysis to prune unreached code.
func Render(words []uint32) string {
	var out string
	for _, inst := range Decode(words) {
		mn, ok := mnemonicByOpcode[inst.Opcode]
		if !ok {
			mn = fmt.Sprintf("0x%x", inst.Opcode)
		}
		out += fmt.Sprintf("loc_%08x: %-4s %08x %08x %08x\n", inst.Address, mn, inst.A, inst.B, inst.C)
	}
	return out
}
