// Package decode adapts golang.org/x/arch/x86/x86asm — the external decoder
// dependency the relocation core is built against — into the narrower
// descriptor shape the analyzer and relocator actually need: a length, a
// relative-reference flag, and the byte offset/width of whichever field
// (branch immediate or memory displacement) carries that reference.
package decode

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Mode selects the processor mode the decoder assumes. Mirrors x86asm's own
// convention of using the raw bit width as the mode value.
type Mode int

const (
	Mode32 Mode = 32
	Mode64 Mode = 64
)

// maxInstructionLength is the longest an x86 instruction can legally be.
// Used to distinguish "the decoder ran out of buffer" from "the decoder was
// handed garbage": if at least this many bytes were available and decoding
// still failed, it isn't a truncation problem.
const maxInstructionLength = 15

// Instruction is the subset of a decoded instruction's shape that the
// analyzer and relocator consume. It never leaks x86asm types across the
// package boundary except Op, whose String method is useful for diagnostics
// and whose identity is needed by the branch/enlargement tables.
type Instruction struct {
	Length int
	Op     x86asm.Op

	// IsRelative is true iff the instruction encodes a PC-relative
	// reference (branch target or RIP-relative memory operand).
	IsRelative bool
	// FieldOffset is the byte offset, within the instruction, of the field
	// carrying the relative value (immediate for branches, displacement
	// for memory operands).
	FieldOffset int
	// FieldBits is the bit width of that field (8, 16, or 32).
	FieldBits int
	// RelValue is the field's value, already sign-extended by the decoder.
	RelValue int64

	// IsMemory is true iff the instruction has a displacement-only memory
	// operand (ModR/M mod=0, rm=5): a RIP-relative reference in 64-bit mode
	// (IsRelative true), or an absolute disp32 in 32-bit mode (IsRelative
	// false).
	IsMemory bool
	// Is32BitAbsolute is true iff IsMemory is true and the chunk was
	// decoded in 32-bit mode, where mod=0/rm=5 means an absolute disp32
	// rather than a RIP-relative reference (Open Question 2: the bytes are
	// the same in both modes; x86asm reports a RIP base, and a PC-relative
	// field, only when decoding in 64-bit mode).
	Is32BitAbsolute bool
}

// Decode decodes a single instruction from the head of src.
//
// src must be the remaining tail of the source buffer, not a pre-sliced
// exact-length window: the decoder may need up to maxInstructionLength
// bytes to recognize the instruction, and a short src is how truncation at
// the end of a chunk is detected.
func Decode(src []byte, mode Mode) (Instruction, error) {
	inst, err := x86asm.Decode(src, int(mode))
	if err == nil && inst.Op == 0 {
		// x86asm reports bytes it cannot decode (a cut-off or invalid
		// encoding) as a lone prefix with no Op rather than as an error.
		err = x86asm.ErrUnrecognized
	}
	if err != nil {
		if len(src) < maxInstructionLength {
			return Instruction{}, fmt.Errorf("truncated: %w", err)
		}
		return Instruction{}, fmt.Errorf("decode: %w", err)
	}

	out := Instruction{
		Length: inst.Len,
		Op:     inst.Op,
	}

	if inst.PCRel == 0 {
		// A 32-bit absolute disp32 operand is not PC-relative, so it is only
		// flagged here and stays valid when copied verbatim.
		if mode == Mode32 {
			for _, arg := range inst.Args {
				if a, ok := arg.(x86asm.Mem); ok && a.Base == 0 && a.Index == 0 {
					out.IsMemory = true
					out.Is32BitAbsolute = true
				}
			}
		}
		return out, nil
	}
	out.IsRelative = true
	out.FieldOffset = inst.PCRelOff
	out.FieldBits = inst.PCRel * 8
	out.RelValue = relativeFieldValue(inst, mode, &out)
	return out, nil
}

// relativeFieldValue extracts the signed value of the instruction's
// PC-relative field and classifies whether it is a branch target (Rel arg)
// or a RIP-relative memory operand (Mem arg with a RIP base, which x86asm
// reports for ModR/M mod=0, rm=5 in 64-bit mode).
func relativeFieldValue(inst x86asm.Inst, mode Mode, out *Instruction) int64 {
	for _, arg := range inst.Args {
		if arg == nil {
			continue
		}
		switch a := arg.(type) {
		case x86asm.Rel:
			return int64(a)
		case x86asm.Mem:
			if a.Base == x86asm.RIP && a.Index == 0 {
				out.IsMemory = true
				return a.Disp
			}
		}
	}
	return 0
}

// IsRelativeBranch reports whether op is one of the mnemonics that can
// carry a PC-relative branch target: JMP, any Jcc, JCXZ/JECXZ/JRCXZ, or
// LOOP/LOOPE/LOOPNE.
func IsRelativeBranch(op x86asm.Op) bool {
	switch op {
	case x86asm.JMP,
		x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE,
		x86asm.JE, x86asm.JNE, x86asm.JG, x86asm.JGE,
		x86asm.JL, x86asm.JLE, x86asm.JO, x86asm.JNO,
		x86asm.JS, x86asm.JNS, x86asm.JP, x86asm.JNP,
		x86asm.JCXZ, x86asm.JECXZ, x86asm.JRCXZ,
		x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		return true
	default:
		return false
	}
}

// EnlargeableBranches maps a short-form branch mnemonic to the secondary
// 0F xx opcode byte of its near (rel32) Jcc encoding, per the fixed
// mnemonic -> opcode table in the relocator's branch-enlargement rules.
// JMP is handled separately (its near form is the single-byte E9 opcode,
// not a 0F-prefixed one).
var EnlargeableBranches = map[x86asm.Op]byte{
	x86asm.JO:  0x80,
	x86asm.JNO: 0x81,
	x86asm.JB:  0x82,
	x86asm.JAE: 0x83,
	x86asm.JE:  0x84,
	x86asm.JNE: 0x85,
	x86asm.JBE: 0x86,
	x86asm.JA:  0x87,
	x86asm.JS:  0x88,
	x86asm.JNS: 0x89,
	x86asm.JP:  0x8A,
	x86asm.JNP: 0x8B,
	x86asm.JL:  0x8C,
	x86asm.JGE: 0x8D,
	x86asm.JLE: 0x8E,
	x86asm.JG:  0x8F,
}

// NonEnlargeableBranches is the set of short-form-only branches that have
// no wider encoding and must instead be expanded into the three-instruction
// idiom in relocate.go.
var NonEnlargeableBranches = map[x86asm.Op]bool{
	x86asm.JCXZ:   true,
	x86asm.JECXZ:  true,
	x86asm.JRCXZ:  true,
	x86asm.LOOP:   true,
	x86asm.LOOPE:  true,
	x86asm.LOOPNE: true,
}
