package zyrex

// TranslationContext is the shared mutable state threaded through every
// Relocator call for a single relocation. It exclusively owns the
// translation map and the read/write cursors; it borrows (read-only) the
// source buffer and instruction list, and holds a unique mutable borrow on
// the destination buffer for the lifetime of the relocation. Create one
// immediately before relocating and discard it once relocation completes —
// it carries no state worth reusing across relocations.
type TranslationContext struct {
	Source          []byte
	SourceBase      uint64
	Destination     []byte
	DestinationBase uint64

	BytesRead       int
	BytesWritten    int
	InstructionsRead int

	Instructions []AnalyzedInstruction

	TranslationMap TranslationMap
}

// NewTranslationContext creates a TranslationContext for relocating chunk
// into destination, which must already be sized for the worst case (every
// instruction expanded into its widest rewritten form) — callers size it by
// calling WorstCaseDestinationSize and allocating at least that many bytes.
// Validating capacity up front means a malformed trampoline allocation
// fails fast with CapacityExceeded instead of corrupting memory past the
// end of an undersized buffer mid-relocation.
func NewTranslationContext(chunk *Chunk, destination []byte, destinationBase uint64) (*TranslationContext, error) {
	need := WorstCaseDestinationSize(chunk)
	if len(destination) < need {
		return nil, newErr(CapacityExceeded, -1, -1,
			"destination buffer too small: have %d bytes, need at least %d", len(destination), need)
	}
	return &TranslationContext{
		Source:          chunk.source,
		SourceBase:      chunk.sourceBase,
		Destination:     destination,
		DestinationBase: destinationBase,
		Instructions:    chunk.Instructions,
	}, nil
}

// WorstCaseDestinationSize bounds how large a destination buffer must be to
// hold chunk relocated, assuming every enlargeable branch enlarges and every
// expandable branch expands.
func WorstCaseDestinationSize(chunk *Chunk) int {
	total := 0
	for _, instr := range chunk.Instructions {
		switch {
		case !instr.HasRelativeTarget:
			total += instr.Decoded.Length
		case IsRelativeBranch(instr):
			total += instr.Decoded.Length + 2 + 5 // expansion idiom upper bound
		default:
			total += instr.Decoded.Length
		}
	}
	return total
}

// updateTranslationContext appends one entry to the translation map and
// advances the read/write cursors. destBytesWritten is the number of bytes
// the just-processed source instruction produced in the destination (which
// may exceed the source instruction's own length, for enlarged or expanded
// branches).
func updateTranslationContext(ctx *TranslationContext, srcLen, destBytesWritten int) {
	ctx.TranslationMap = append(ctx.TranslationMap, TranslationEntry{
		SourceOffset:      ctx.BytesRead,
		DestinationOffset: ctx.BytesWritten,
	})
	ctx.BytesRead += srcLen
	ctx.BytesWritten += destBytesWritten
	ctx.InstructionsRead++
}
