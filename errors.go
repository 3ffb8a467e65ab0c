package zyrex

import "fmt"

// Kind classifies the errors the relocation core can return. Every kind is
// terminal: the engine never retries an operation, and the destination
// buffer's contents after any error are unspecified and must be discarded
// by the caller.
type Kind int

const (
	// DecodeError means the external decoder rejected the bytes at some
	// offset in the source buffer.
	DecodeError Kind = iota
	// Truncated means the source buffer ended before min_bytes_to_analyze
	// bytes could be covered by whole instructions.
	Truncated
	// CapacityExceeded means more than MaxInstructions were analyzed, or a
	// translation map / destination buffer could not hold the result.
	CapacityExceeded
	// DisplacementOverflow means a fix-up displacement no longer fits the
	// field width the original instruction encoded it with.
	DisplacementOverflow
	// NotFound means a translation-map lookup failed; every source
	// instruction must have an entry by the time fix-up runs, so this
	// indicates a bug in the caller's use of the API.
	NotFound
	// Unreachable means an internal invariant was violated: a relative
	// instruction that is neither a recognized branch nor a recognized
	// memory form, an unsupported displacement width, or an unknown
	// enlargeable mnemonic.
	Unreachable
)

func (k Kind) String() string {
	switch k {
	case DecodeError:
		return "decode error"
	case Truncated:
		return "truncated"
	case CapacityExceeded:
		return "capacity exceeded"
	case DisplacementOverflow:
		return "displacement overflow"
	case NotFound:
		return "not found"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every public operation in this
// package. It carries enough context (instruction index, byte offset) to
// let a caller log something actionable without the package depending on a
// logging library.
type Error struct {
	Kind    Kind
	Message string
	Index   int // instruction index, or -1 if not applicable
	Offset  int // byte offset, or -1 if not applicable
}

func (e *Error) Error() string {
	switch {
	case e.Index >= 0 && e.Offset >= 0:
		return fmt.Sprintf("zyrex: %s: %s (instruction %d, offset %d)", e.Kind, e.Message, e.Index, e.Offset)
	case e.Index >= 0:
		return fmt.Sprintf("zyrex: %s: %s (instruction %d)", e.Kind, e.Message, e.Index)
	case e.Offset >= 0:
		return fmt.Sprintf("zyrex: %s: %s (offset %d)", e.Kind, e.Message, e.Offset)
	default:
		return fmt.Sprintf("zyrex: %s: %s", e.Kind, e.Message)
	}
}

func newErr(kind Kind, index, offset int, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Index:   index,
		Offset:  offset,
	}
}
