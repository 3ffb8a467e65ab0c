package zyrex

import (
	"fmt"
	"os"
)

// UpdateInstructionOffsets is the fix-up pass run once every instruction
// has been emitted by RelocateInstruction. For every instruction with an
// intra-chunk reference (HasRelativeTarget && !HasExternalTarget) it
// recomputes the displacement against the new destination positions of both
// the instruction itself and the instruction it targets, and writes that
// displacement into the destination buffer.
//
// The field's byte-offset and bit-width are taken from the original decoded
// descriptor: an instruction that was enlarged or expanded always has
// HasExternalTarget true (enlargement and expansion only ever apply to
// branches reaching *outside* the chunk), so anything reaching this loop
// was copied byte-for-byte by relocateCommon and its field position in the
// destination matches its field position in the source exactly.
func UpdateInstructionOffsets(ctx *TranslationContext) error {
	for i, instr := range ctx.Instructions {
		if !instr.HasRelativeTarget || instr.HasExternalTarget {
			continue
		}

		destOffset, ok := ctx.TranslationMap.lookupSource(instr.AddressOffset)
		if !ok {
			return newErr(NotFound, i, instr.AddressOffset, "no translation-map entry for instruction")
		}
		targetInstr := ctx.Instructions[instr.Outgoing]
		destTargetOffset, ok := ctx.TranslationMap.lookupSource(targetInstr.AddressOffset)
		if !ok {
			return newErr(NotFound, instr.Outgoing, targetInstr.AddressOffset, "no translation-map entry for branch target")
		}

		d := instr.Decoded
		displacement := int64(destTargetOffset) - (int64(destOffset) + int64(d.Length))
		if !fitsSigned(displacement, d.FieldBits) {
			return newErr(DisplacementOverflow, i, destOffset,
				"fixed-up displacement %d does not fit %d-bit field", displacement, d.FieldBits)
		}

		if Verbose {
			fmt.Fprintf(os.Stderr, "zyrex: fix-up: instruction %d (dst+0x%x) -> instruction %d (dst+0x%x), disp=%d\n",
				i, destOffset, instr.Outgoing, destTargetOffset, displacement)
		}

		if err := patchAt(ctx.Destination, destOffset+d.FieldOffset, d.FieldBits/8, displacement); err != nil {
			return err
		}
	}
	return nil
}
