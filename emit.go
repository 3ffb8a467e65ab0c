package zyrex

import "github.com/DanyDollaro/zyan-hook-engine/internal/decode"

// calcAbsoluteAddress computes the conventional x86 target formula:
// pc + length + sign_extend(relative_field), where pc is the address at
// which the instruction itself begins.
func calcAbsoluteAddress(d decode.Instruction, pc uint64) uint64 {
	return uint64(int64(pc) + int64(d.Length) + d.RelValue)
}

// calcRelativeOffset returns tgt - (src + sizeOfNextFieldBytes): the
// canonical x86 "distance from the byte after the relative field" formula.
// The caller is responsible for checking the result fits the destination
// field width.
func calcRelativeOffset(sizeOfNextFieldBytes int, src, tgt uint64) int64 {
	return int64(tgt) - (int64(src) + int64(sizeOfNextFieldBytes))
}

// fitsSigned reports whether v fits in a two's-complement field of the
// given bit width.
func fitsSigned(v int64, bits int) bool {
	if bits >= 64 {
		return true
	}
	lo := int64(-1) << (bits - 1)
	hi := -lo - 1
	return v >= lo && v <= hi
}

// writeRelativeJump returns a new 5-byte E9 rel32 near jump that, once
// placed at destAddr, transfers control to target.
func writeRelativeJump(destAddr, target uint64) []byte {
	rel := int32(calcRelativeOffset(5, destAddr, target))
	out := make([]byte, 5)
	out[0] = 0xE9
	putLE32(out[1:], uint32(rel))
	return out
}

// patchAt overwrites widthBytes bytes of buf at offset with the
// little-endian encoding of value, checking width, bounds and range. Every
// field rewritten inside an already-copied instruction goes through it;
// the freshly built encodings of enlargeBranch and expandBranch write
// their rel32 with putLE32 after their own range check.
func patchAt(buf []byte, offset, widthBytes int, value int64) error {
	switch widthBytes {
	case 1, 2, 4:
	default:
		return newErr(Unreachable, -1, offset, "unsupported patch width %d", widthBytes)
	}
	if offset < 0 || offset+widthBytes > len(buf) {
		return newErr(Unreachable, -1, offset, "patch of width %d out of bounds (buffer len %d)", widthBytes, len(buf))
	}
	if !fitsSigned(value, widthBytes*8) {
		return newErr(DisplacementOverflow, -1, offset, "value %d does not fit in %d-bit field", value, widthBytes*8)
	}
	u := uint32(int32(value))
	for i := 0; i < widthBytes; i++ {
		buf[offset+i] = byte(u >> (8 * i))
	}
	return nil
}

// putLE32 writes v into b (which must have len(b) >= 4) in little-endian
// order, matching x86 encoding regardless of host endianness.
func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
