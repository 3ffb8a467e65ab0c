package zyrex

import "github.com/xyproto/env/v2"

// Verbose gates the diagnostic lines the Relocator writes to stderr when it
// enlarges or expands a branch, or when the fix-up pass rewrites a
// displacement. It defaults to the ZYREX_VERBOSE environment variable so a
// caller embedding this package doesn't need its own flag plumbing just to
// turn on tracing while debugging a bad trampoline.
var Verbose = env.Bool("ZYREX_VERBOSE")

// MaxInstructionsOverride lets a caller raise MaxInstructions (see
// analysis.go) via the ZYREX_MAX_INSTRUCTIONS environment variable, for
// embedders relocating unusually long prologues. It is read once at package
// init; MaxInstructions itself stays the documented default unless this is
// set to a positive value.
var MaxInstructionsOverride = env.IntOr("ZYREX_MAX_INSTRUCTIONS", 0)
