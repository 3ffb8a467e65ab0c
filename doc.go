// Package zyrex implements the core of an x86/x64 machine-code relocation
// engine used by an inline-hooking library.
//
// Given a byte buffer containing native instructions at a known runtime
// address, the engine decodes and analyzes those instructions (discovering
// intra-chunk relative references) and copies them to a new destination
// address, rewriting any instruction whose semantics depend on its original
// location so it behaves identically there. This is the foundation of a
// trampoline: the saved prologue of a hooked function, relocated so the
// original function can still be invoked after a hook is installed.
//
// The package is split into two cooperating halves. Analyze (analysis.go)
// decodes a source byte range and builds an intra-chunk reference graph.
// RelocateInstruction and UpdateInstructionOffsets (relocate.go, fixup.go)
// copy that analyzed instruction stream into a destination buffer, enlarging
// or expanding branches that can no longer reach their targets in their
// original encoding, then fix up the displacements of everything that stayed
// inside the chunk.
//
// Hook installation (patching the prologue, writing detour jumps), trampoline
// memory allocation, and any OS-specific VM protection calls are external
// collaborators and out of scope here; instruction decoding is delegated to
// golang.org/x/arch/x86/x86asm through the internal/decode adapter.
package zyrex
