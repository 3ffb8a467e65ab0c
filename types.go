package zyrex

import "github.com/DanyDollaro/zyan-hook-engine/internal/decode"

// MaxInstructions bounds the number of instructions a single analyzed chunk
// may hold. The original source used an 8-bit index to reference
// instructions within a chunk, which implicitly capped trampolines at 255
// instructions; this widens the index type to a plain int (idiomatic Go has
// no reason to fight with uint8 arithmetic here) but keeps the cap explicit
// rather than silently truncating. It can be raised via
// ZYREX_MAX_INSTRUCTIONS (see config.go) for embedders relocating unusually
// long prologues.
const MaxInstructions = 255

// noTarget is the sentinel Outgoing value meaning "this instruction does
// not target another instruction in the same chunk".
const noTarget = -1

// AnalyzedInstruction describes one decoded instruction in source order,
// annotated with whatever intra-chunk reference information the Analyzer
// discovered about it.
type AnalyzedInstruction struct {
	// AddressOffset is the byte offset from the start of the source
	// buffer. Monotonically increasing: AddressOffset[i+1] ==
	// AddressOffset[i] + Decoded.Length.
	AddressOffset int
	// Address is the absolute runtime address the instruction originally
	// occupied: sourceBase + AddressOffset.
	Address uint64
	// Decoded is the descriptor the external decoder produced.
	Decoded decode.Instruction

	// HasRelativeTarget is true iff the instruction references a memory
	// location or branch target via a PC-relative encoding.
	HasRelativeTarget bool
	// HasExternalTarget is true iff HasRelativeTarget is true and the
	// resolved absolute target lies outside the analyzed chunk. It starts
	// out equal to HasRelativeTarget and is cleared once Pass 2 finds an
	// intra-chunk target for it.
	HasExternalTarget bool
	// AbsoluteTargetAddress is the resolved 64-bit target of the relative
	// reference, or 0 if HasRelativeTarget is false.
	AbsoluteTargetAddress uint64

	// IsInternalTarget is true iff at least one other instruction in the
	// chunk targets this one.
	IsInternalTarget bool
	// Incoming holds the indices of instructions that target this one.
	// Left nil until the first incoming edge is discovered.
	Incoming []int
	// Outgoing is the index of the instruction this one targets
	// intra-chunk, or noTarget if it has no intra-chunk target.
	Outgoing int
}

// TranslationEntry records where one source instruction ended up in the
// destination buffer. If a source instruction was rewritten into several
// destination instructions (branch expansion), DestinationOffset points at
// the first.
type TranslationEntry struct {
	SourceOffset      int
	DestinationOffset int
}

// TranslationMap is an ordered list of TranslationEntry, one per source
// instruction processed so far. Lookups are linear scans: chunks are bounded
// by MaxInstructions, so an O(m) lookup costing at most a few hundred
// integer comparisons is not worth a map's allocation overhead.
type TranslationMap []TranslationEntry

// lookupSource finds the destination offset recorded for a given source
// offset.
func (m TranslationMap) lookupSource(sourceOffset int) (int, bool) {
	for _, e := range m {
		if e.SourceOffset == sourceOffset {
			return e.DestinationOffset, true
		}
	}
	return 0, false
}
