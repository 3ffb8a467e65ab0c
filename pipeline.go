package zyrex

// RelocateChunk runs the full Relocator pipeline over every instruction in
// chunk: it calls RelocateInstruction once per instruction in order, then
// UpdateInstructionOffsets, and returns the resulting TranslationContext.
// It is a convenience wrapper around the lower-level API
// (RelocateInstruction / UpdateInstructionOffsets / NewTranslationContext)
// for the common case of relocating an entire analyzed chunk in one call;
// embedders that need to interleave relocation with other work (logging
// progress, aborting partway through) can call the lower-level functions
// directly instead.
func RelocateChunk(chunk *Chunk, destination []byte, destinationBase uint64) (*TranslationContext, error) {
	ctx, err := NewTranslationContext(chunk, destination, destinationBase)
	if err != nil {
		return nil, err
	}
	for _, instr := range chunk.Instructions {
		if err := RelocateInstruction(ctx, instr); err != nil {
			return nil, err
		}
	}
	if err := UpdateInstructionOffsets(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}
