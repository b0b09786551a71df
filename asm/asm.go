// Package asm implements the Chifir two-pass assembler: UTF-8 source
// text in, a flat vector of 32-bit words out. It mirrors the structure
// of the teacher's assembler package (github.com/Urethramancer/m68k/
// assembler) — an Assembler holding a label table, a line-splitting and
// comment-stripping stage, then two passes over the same intermediate
// instruction stream — generalized to Chifir's fixed 4-word instruction
// width instead of m68k's variable-length encoding.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrInvalidEncoding is the sole failure mode of assembly: the source
// bytes are not valid UTF-8. Every other malformed-input case degrades
// silently to a zero word, per spec.
var ErrInvalidEncoding = fmt.Errorf("asm: invalid encoding")

// Mnemonics maps the eighteen reserved opcode names to their codes.
// Authoritative table from the Chifir instruction set.
var Mnemonics = map[string]uint32{
	"brk": 0, "lpc": 1, "beq": 2, "spc": 3, "lea": 4, "lra": 5, "sra": 6,
	"add": 7, "sub": 8, "mul": 9, "div": 10, "mod": 11, "cmp": 12,
	"nad": 13, "drw": 14, "key": 15, "nop": 16, "cfv": 17,
}

// Assembler holds the label table built across the two passes.
// Single-shot: consume source, produce bytecode, discard.
type Assembler struct {
	labels map[string]uint32
}

// New creates an empty Assembler.
func New() *Assembler {
	return &Assembler{labels: make(map[string]uint32)}
}

// Labels returns the label → address table built by the most recent
// Assemble call, for tooling that wants to annotate addresses with
// symbolic names.
func (a *Assembler) Labels() map[string]uint32 {
	return a.labels
}

// Assemble compiles Chifir assembly source into a vector of 32-bit
// words. The only error it can return is ErrInvalidEncoding.
func (a *Assembler) Assemble(src string) ([]uint32, error) {
	if !utf8.ValidString(src) {
		return nil, ErrInvalidEncoding
	}

	lines := splitLines(src)
	stream := stripComments(lines)

	a.labels = make(map[string]uint32)
	compileLabels(stream, a.labels)

	return a.emit(stream), nil
}

// splitLines breaks source text on every Unicode line terminator listed
// in spec.md §4.2: LF, VT, FF, NEL (U+0085), LS, PS, and CR (with a
// following LF absorbed as part of the same terminator). A trailing
// non-empty fragment without a terminator is still a line; empty
// trailing lines are dropped.
func splitLines(src string) []string {
	var lines []string
	var cur strings.Builder

	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '\n', '\v', '\f', '\u0085', '\u2028', '\u2029':
			lines = append(lines, cur.String())
			cur.Reset()
		case '\r':
			lines = append(lines, cur.String())
			cur.Reset()
			if i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// stripComments trims horizontal whitespace, discards blank or
// comment-only lines, and cuts inline comments at the first ';'. The
// survivors (labels and instructions alike) form the instruction stream.
func stripComments(lines []string) []string {
	var stream []string
	for _, line := range lines {
		line = trimHorizontal(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if idx := strings.IndexByte(line, ';'); idx >= 0 {
			line = trimHorizontal(line[:idx])
		}
		if line == "" {
			continue
		}
		stream = append(stream, line)
	}
	return stream
}

func trimHorizontal(s string) string {
	return strings.Trim(s, " \t")
}

// compileLabels walks the instruction stream once, assigning each
// label to the address of the instruction that follows it. Last write
// wins for a redefined label.
func compileLabels(stream []string, labels map[string]uint32) {
	var addr uint32
	for _, entry := range stream {
		if idx := strings.IndexByte(entry, ':'); idx >= 0 {
			name := entry[:idx]
			labels[name] = addr
			continue
		}
		addr += 4
	}
}

// emit walks the instruction stream a second time, skipping labels and
// emitting exactly four words per instruction line.
func (a *Assembler) emit(stream []string) []uint32 {
	var out []uint32
	for _, entry := range stream {
		if strings.IndexByte(entry, ':') >= 0 {
			continue
		}

		addr := uint32(len(out))
		fields := strings.Fields(entry)
		var opTok, aTok, bTok, cTok string
		if len(fields) > 0 {
			opTok = fields[0]
		}
		if len(fields) > 1 {
			aTok = fields[1]
		}
		if len(fields) > 2 {
			bTok = fields[2]
		}
		if len(fields) > 3 {
			cTok = fields[3]
		}

		out = append(out,
			a.resolveOpcode(opTok),
			a.resolveOperand(aTok, addr),
			a.resolveOperand(bTok, addr),
			a.resolveOperand(cTok, addr),
		)
	}
	return out
}

// resolveOpcode maps a reserved mnemonic to its code, or parses the
// token as unsigned hex; a missing token or parse failure yields 0.
func (a *Assembler) resolveOpcode(tok string) uint32 {
	if tok == "" {
		return 0
	}
	if code, ok := Mnemonics[tok]; ok {
		return code
	}
	return parseHex(tok)
}

// resolveOperand resolves a label reference, a relative "/HEX" operand
// (hex value plus the current emission address), or a plain hex
// literal. A missing token yields 0.
func (a *Assembler) resolveOperand(tok string, emitAddr uint32) uint32 {
	if tok == "" {
		return 0
	}
	if addr, ok := a.labels[tok]; ok {
		return addr
	}
	if strings.HasPrefix(tok, "/") {
		return parseHex(tok[1:]) + emitAddr
	}
	return parseHex(tok)
}

// parseHex parses an unsigned hexadecimal string, returning 0 on any
// failure (malformed operands silently degrade to zero, per spec).
func parseHex(s string) uint32 {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
