package zyrex

import (
	"fmt"
	"os"

	"github.com/DanyDollaro/zyan-hook-engine/internal/decode"
	"golang.org/x/arch/x86/x86asm"
)

// RelocateInstruction emits instr into ctx's destination buffer, updating
// cursors and the translation map. It dispatches on instr's relative-target
// classification:
//
//   - not relative                  -> relocateCommon
//   - relative branch (JMP/Jcc/...) -> relocateRelativeBranch
//   - relative memory (RIP-relative) -> relocateRelativeMemory
//
// An instruction flagged HasRelativeTarget that is neither is a fatal
// invariant violation — the decoder only sets PCRel on branches and
// ModR/M mod=0/rm=5 memory operands (see internal/decode).
func RelocateInstruction(ctx *TranslationContext, instr AnalyzedInstruction) error {
	if !instr.HasRelativeTarget {
		return relocateCommon(ctx, instr)
	}
	if IsRelativeBranch(instr) {
		return relocateRelativeBranch(ctx, instr)
	}
	if IsRelativeMemory(instr) {
		return relocateRelativeMemory(ctx, instr)
	}
	return newErr(Unreachable, ctx.InstructionsRead, ctx.BytesRead,
		"instruction %s flagged relative but is neither a recognized branch nor a recognized memory form", instr.Decoded.Op)
}

// relocateCommon copies instr.Decoded.Length bytes verbatim from source to
// destination and records the 1:1 translation-map entry.
func relocateCommon(ctx *TranslationContext, instr AnalyzedInstruction) error {
	n := instr.Decoded.Length
	if ctx.BytesRead+n > len(ctx.Source) {
		return newErr(Unreachable, ctx.InstructionsRead, ctx.BytesRead, "source read past end of buffer")
	}
	if ctx.BytesWritten+n > len(ctx.Destination) {
		return newErr(CapacityExceeded, ctx.InstructionsRead, ctx.BytesWritten, "destination buffer exhausted")
	}
	copy(ctx.Destination[ctx.BytesWritten:], ctx.Source[ctx.BytesRead:ctx.BytesRead+n])
	updateTranslationContext(ctx, n, n)
	return nil
}

// relocateRelativeBranch handles JMP/Jcc/JCXZ-family/LOOP-family
// instructions whose relative target needs (or might need) rewriting.
func relocateRelativeBranch(ctx *TranslationContext, instr AnalyzedInstruction) error {
	if !instr.HasExternalTarget {
		// Intra-chunk target: the displacement will be rewritten in the
		// fix-up pass once every instruction's new position is known.
		return relocateCommon(ctx, instr)
	}

	d := instr.Decoded
	src := ctx.DestinationBase + uint64(ctx.BytesWritten)
	tgt := instr.AbsoluteTargetAddress
	distance := calcRelativeOffset(d.Length, src, tgt)

	if fitsSigned(distance, d.FieldBits) {
		if err := relocateCommon(ctx, instr); err != nil {
			return err
		}
		// relocateCommon already advanced BytesWritten past the
		// instruction; the field's byte offset (recorded when the
		// instruction was decoded) is unchanged since the encoding itself
		// didn't change shape, only position — and the relative field is
		// always the tail of a branch instruction, so distance computed
		// against the whole instruction length above already matches
		// "distance from the byte after the field".
		instrStart := ctx.BytesWritten - d.Length
		if err := patchAt(ctx.Destination, instrStart+d.FieldOffset, d.FieldBits/8, distance); err != nil {
			return err
		}
		return nil
	}

	if op, ok := decode.EnlargeableBranches[d.Op]; ok || d.Op == x86asm.JMP {
		return enlargeBranch(ctx, instr, op, d.Op == x86asm.JMP)
	}
	if decode.NonEnlargeableBranches[d.Op] {
		return expandBranch(ctx, instr)
	}
	return newErr(Unreachable, ctx.InstructionsRead, ctx.BytesRead,
		"branch %s cannot reach its target and has no enlargement or expansion rule", d.Op)
}

// enlargeBranch emits the wide-form (rel32) encoding of a short-form
// branch: E9 rel32 for JMP (5 bytes), or 0F 8x rel32 for a Jcc (6 bytes).
func enlargeBranch(ctx *TranslationContext, instr AnalyzedInstruction, secondaryOpcode byte, isJMP bool) error {
	tgt := instr.AbsoluteTargetAddress
	instrStart := ctx.BytesWritten

	var encoded []byte
	var dispOffset int
	if isJMP {
		encoded = make([]byte, 5)
		encoded[0] = 0xE9
		dispOffset = 1
	} else {
		encoded = make([]byte, 6)
		encoded[0] = 0x0F
		encoded[1] = secondaryOpcode
		dispOffset = 2
	}
	destAfterDisp := ctx.DestinationBase + uint64(instrStart) + uint64(len(encoded))
	rel := calcRelativeOffset(0, destAfterDisp, tgt)
	if !fitsSigned(rel, 32) {
		return newErr(DisplacementOverflow, ctx.InstructionsRead, instrStart, "enlarged branch displacement does not fit 32 bits")
	}
	putLE32(encoded[dispOffset:], uint32(int32(rel)))

	if ctx.BytesWritten+len(encoded) > len(ctx.Destination) {
		return newErr(CapacityExceeded, ctx.InstructionsRead, ctx.BytesWritten, "destination buffer exhausted during branch enlargement")
	}
	copy(ctx.Destination[ctx.BytesWritten:], encoded)

	if Verbose {
		fmt.Fprintf(os.Stderr, "zyrex: enlarged %s at src+0x%x to near form (%d bytes) at dst+0x%x\n",
			instr.Decoded.Op, instr.AddressOffset, len(encoded), instrStart)
	}

	updateTranslationContext(ctx, instr.Decoded.Length, len(encoded))
	return nil
}

// expandBranch synthesizes the three-instruction idiom used for
// short-form-only branches (JCXZ/JECXZ/JRCXZ, LOOP/LOOPE/LOOPNE) that have
// no wider encoding:
//
//	<original branch>  disp8 = +0x02   ; taken: skip the next JMP
//	JMP short +0x05                    ; not-taken: skip the far jump
//	JMP rel32 <absolute_target>        ; taken: reach the true target
//
// Exactly one translation-map entry is recorded, mapping the source offset
// to the destination offset of the first emitted byte.
func expandBranch(ctx *TranslationContext, instr AnalyzedInstruction) error {
	d := instr.Decoded
	instrStart := ctx.BytesWritten
	total := d.Length + 2 + 5
	if ctx.BytesWritten+total > len(ctx.Destination) {
		return newErr(CapacityExceeded, ctx.InstructionsRead, ctx.BytesWritten, "destination buffer exhausted during branch expansion")
	}
	if ctx.BytesRead+d.Length > len(ctx.Source) {
		return newErr(Unreachable, ctx.InstructionsRead, ctx.BytesRead, "source read past end of buffer")
	}

	out := ctx.Destination[ctx.BytesWritten : ctx.BytesWritten+total]

	// <original branch>, with its own disp8 field rewritten to +0x02.
	copy(out, ctx.Source[ctx.BytesRead:ctx.BytesRead+d.Length])
	if err := patchAt(out, d.FieldOffset, 1, 0x02); err != nil {
		return err
	}

	// JMP short +0x05 (not-taken path).
	out[d.Length] = 0xEB
	out[d.Length+1] = 0x05

	// JMP rel32 <absolute_target> (taken path).
	jmpAt := d.Length + 2
	jmpDestAddr := ctx.DestinationBase + uint64(instrStart+jmpAt)
	rel := calcRelativeOffset(5, jmpDestAddr, instr.AbsoluteTargetAddress)
	if !fitsSigned(rel, 32) {
		return newErr(DisplacementOverflow, ctx.InstructionsRead, instrStart, "expanded branch far jump does not fit 32 bits")
	}
	out[jmpAt] = 0xE9
	putLE32(out[jmpAt+1:], uint32(int32(rel)))

	if Verbose {
		fmt.Fprintf(os.Stderr, "zyrex: expanded %s at src+0x%x into %d-byte idiom at dst+0x%x\n",
			instr.Decoded.Op, instr.AddressOffset, total, instrStart)
	}

	updateTranslationContext(ctx, d.Length, total)
	return nil
}

// relocateRelativeMemory handles a RIP-relative memory operand (64-bit
// mode). A 32-bit absolute disp32 never reaches it: it has no relative
// target and is copied verbatim by relocateCommon.
func relocateRelativeMemory(ctx *TranslationContext, instr AnalyzedInstruction) error {
	d := instr.Decoded

	if !instr.HasExternalTarget {
		// Open Question 1: an intra-chunk memory reference would need its
		// displacement fixed up the same way a branch's would, but unlike
		// a branch the bytes it addresses may themselves have moved or
		// been rewritten (e.g. if they fall inside an expanded branch's
		// emitted bytes), which the fix-up pass cannot express — it only
		// rewrites a displacement to point at another *instruction's* new
		// position, not at an arbitrary byte that used to sit between
		// instructions. Rather than emit code that silently reads the
		// wrong bytes, this is a hard error until a redirect-to-a-preserved-
		// copy mechanism (per the source's own TODO) is implemented.
		return newErr(Unreachable, ctx.InstructionsRead, ctx.BytesRead,
			"intra-chunk relative memory reference at src+0x%x is not supported (see Open Question 1)", instr.AddressOffset)
	}

	if err := relocateCommon(ctx, instr); err != nil {
		return err
	}
	switch d.FieldBits {
	case 8, 16, 32:
	default:
		return newErr(Unreachable, ctx.InstructionsRead, ctx.BytesRead-d.Length,
			"unsupported displacement width %d", d.FieldBits)
	}
	instrStart := ctx.BytesWritten - d.Length
	// The displacement is measured from the byte after the instruction,
	// i.e. from the current (already advanced) BytesWritten.
	newDisp := calcRelativeOffset(0, ctx.DestinationBase+uint64(ctx.BytesWritten), instr.AbsoluteTargetAddress)
	return patchAt(ctx.Destination, instrStart+d.FieldOffset, d.FieldBits/8, newDisp)
}
