package zyrex

import (
	"fmt"
	"strings"

	"github.com/DanyDollaro/zyan-hook-engine/internal/decode"
)

// Chunk is the result of analyzing a source byte range: the ordered
// instruction list plus the number of source bytes the analysis actually
// covered (which may exceed minBytesToAnalyze, since the final instruction
// is never split).
type Chunk struct {
	source    []byte
	sourceBase uint64
	mode      decode.Mode

	Instructions []AnalyzedInstruction
	BytesRead    int
}

// Bytes returns the BytesRead-byte prefix of the source buffer that was
// analyzed — the exact span relocate_common copies verbatim when an
// instruction has no relative target.
func (c *Chunk) Bytes() []byte {
	return c.source[:c.BytesRead]
}

// Analyze decodes sourceBytes starting at sourceBase, covering at least
// minBytesToAnalyze bytes (never splitting the final instruction), and
// builds the intra-chunk reference graph described in the package
// documentation.
//
// It fails with a DecodeError if the decoder rejects any instruction, a
// Truncated error if the buffer ends mid-instruction, or CapacityExceeded
// if more than MaxInstructions instructions would be produced.
func Analyze(sourceBytes []byte, sourceBase uint64, minBytesToAnalyze int, mode decode.Mode) (*Chunk, error) {
	c := &Chunk{
		source:     sourceBytes,
		sourceBase: sourceBase,
		mode:       mode,
	}

	limit := MaxInstructions
	if MaxInstructionsOverride > 0 {
		limit = MaxInstructionsOverride
	}

	// Pass 1 — linear decode.
	offset := 0
	for offset < minBytesToAnalyze {
		if len(c.Instructions) >= limit {
			return nil, newErr(CapacityExceeded, len(c.Instructions), offset,
				"chunk exceeds %d instructions", limit)
		}
		if offset >= len(sourceBytes) {
			return nil, newErr(Truncated, len(c.Instructions), offset,
				"source buffer ended before min_bytes_to_analyze was satisfied")
		}

		d, err := decode.Decode(sourceBytes[offset:], mode)
		if err != nil {
			if strings.Contains(err.Error(), "truncated") {
				return nil, newErr(Truncated, len(c.Instructions), offset, "%v", err)
			}
			return nil, newErr(DecodeError, len(c.Instructions), offset, "%v", err)
		}

		inst := AnalyzedInstruction{
			AddressOffset: offset,
			Address:       sourceBase + uint64(offset),
			Decoded:       d,
			Outgoing:      noTarget,
		}
		if d.IsRelative {
			inst.HasRelativeTarget = true
			inst.HasExternalTarget = true
			inst.AbsoluteTargetAddress = calcAbsoluteAddress(d, inst.Address)
		}
		c.Instructions = append(c.Instructions, inst)
		offset += d.Length
	}
	c.BytesRead = offset

	// Pass 2 — graph construction. O(n^2) over the chunk, which is
	// acceptable since trampolines are short (n is bounded by
	// MaxInstructions, typically well under 16 in practice).
	for i := range c.Instructions {
		target := c.Instructions[i].Address
		for j := range c.Instructions {
			if !c.Instructions[j].HasRelativeTarget {
				continue
			}
			if c.Instructions[j].AbsoluteTargetAddress != target {
				continue
			}
			c.Instructions[j].HasExternalTarget = false
			c.Instructions[j].Outgoing = i
			c.Instructions[i].IsInternalTarget = true
			c.Instructions[i].Incoming = append(c.Instructions[i].Incoming, j)
		}
	}

	return c, nil
}

// String renders one diagnostic line per instruction (offset, mnemonic,
// relative/external/internal flags), used by callers running with
// Verbose enabled to understand why a particular branch was enlarged or
// expanded.
func (c *Chunk) String() string {
	var b strings.Builder
	for i, inst := range c.Instructions {
		fmt.Fprintf(&b, "%3d: +0x%02x %-8s rel=%v ext=%v internal=%v outgoing=%d\n",
			i, inst.AddressOffset, inst.Decoded.Op, inst.HasRelativeTarget,
			inst.HasExternalTarget, inst.IsInternalTarget, inst.Outgoing)
	}
	return b.String()
}
