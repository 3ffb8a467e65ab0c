package zyrex

import (
	"strings"
	"testing"
)

func TestErrorKindStrings(t *testing.T) {
	kinds := []Kind{DecodeError, Truncated, CapacityExceeded, DisplacementOverflow, NotFound, Unreachable}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		if s == "" || s == "unknown" {
			t.Errorf("Kind %d stringified to %q", k, s)
		}
		if seen[s] {
			t.Errorf("duplicate Kind string %q", s)
		}
		seen[s] = true
	}
}

func TestErrorFormatting(t *testing.T) {
	e := newErr(DisplacementOverflow, 3, 12, "disp %d too large", 99999)
	msg := e.Error()
	if !strings.Contains(msg, "displacement overflow") {
		t.Errorf("message missing kind: %q", msg)
	}
	if !strings.Contains(msg, "instruction 3") || !strings.Contains(msg, "offset 12") {
		t.Errorf("message missing context: %q", msg)
	}

	e2 := newErr(NotFound, -1, -1, "no entry")
	msg2 := e2.Error()
	if strings.Contains(msg2, "instruction") || strings.Contains(msg2, "offset") {
		t.Errorf("message should omit context when unset: %q", msg2)
	}
}
