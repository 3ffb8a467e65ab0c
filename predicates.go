package zyrex

import "github.com/DanyDollaro/zyan-hook-engine/internal/decode"

// IsRelativeBranch reports whether instr's relative reference (if any) is
// carried by a branch immediate: JMP, any conditional Jcc, JCXZ/JECXZ/JRCXZ,
// or LOOP/LOOPE/LOOPNE. This is a mnemonic whitelist, not simply "not a
// memory operand" — a relative instruction matching neither this nor
// IsRelativeMemory (e.g. a relative CALL, which the original engine never
// handles either) is a fatal Unreachable invariant violation in
// RelocateInstruction, by design.
func IsRelativeBranch(instr AnalyzedInstruction) bool {
	return instr.HasRelativeTarget && !instr.Decoded.IsMemory && decode.IsRelativeBranch(instr.Decoded.Op)
}

// IsRelativeMemory reports whether instr's relative reference is carried by
// a RIP-relative memory operand (ModR/M mod=0, rm=5 in 64-bit mode). The
// same encoding in 32-bit mode is an absolute disp32 with no relative
// target (see decode.Instruction.Is32BitAbsolute), so it does not match.
func IsRelativeMemory(instr AnalyzedInstruction) bool {
	return instr.HasRelativeTarget && instr.Decoded.IsMemory
}
