package decode

import (
	"testing"

	"golang.org/x/arch/x86/x86asm"
)

func TestDecode_PlainMove(t *testing.T) {
	d, err := Decode([]byte{0x48, 0x89, 0xE5}, Mode64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Length != 3 {
		t.Errorf("Length = %d, want 3", d.Length)
	}
	if d.IsRelative {
		t.Errorf("mov rbp, rsp should not be relative")
	}
}

func TestDecode_ShortJump(t *testing.T) {
	d, err := Decode([]byte{0xEB, 0x10}, Mode64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Op != x86asm.JMP {
		t.Errorf("Op = %v, want JMP", d.Op)
	}
	if !d.IsRelative {
		t.Fatalf("expected a relative jump")
	}
	if d.FieldBits != 8 {
		t.Errorf("FieldBits = %d, want 8", d.FieldBits)
	}
	if d.RelValue != 0x10 {
		t.Errorf("RelValue = %d, want 16", d.RelValue)
	}
	if d.IsMemory {
		t.Errorf("a branch target should not be classified as memory")
	}
}

func TestDecode_RIPRelativeLoad(t *testing.T) {
	d, err := Decode([]byte{0x48, 0x8B, 0x05, 0x10, 0x00, 0x00, 0x00}, Mode64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !d.IsRelative || !d.IsMemory {
		t.Fatalf("expected a relative memory reference, got IsRelative=%v IsMemory=%v", d.IsRelative, d.IsMemory)
	}
	if d.Is32BitAbsolute {
		t.Errorf("64-bit mode decode should not be flagged Is32BitAbsolute")
	}
	if d.FieldBits != 32 {
		t.Errorf("FieldBits = %d, want 32", d.FieldBits)
	}
	if d.RelValue != 0x10 {
		t.Errorf("RelValue = %d, want 16", d.RelValue)
	}
}

func TestDecode_AbsoluteDisp32In32BitMode(t *testing.T) {
	// Same encoding as the RIP-relative case above, decoded in 32-bit
	// mode: mod=0/rm=5 means an absolute disp32, not RIP-relative.
	d, err := Decode([]byte{0x8B, 0x05, 0x10, 0x00, 0x00, 0x00}, Mode32)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !d.IsMemory {
		t.Fatalf("expected a memory reference")
	}
	if !d.Is32BitAbsolute {
		t.Errorf("32-bit mode decode of mod=0/rm=5 should be flagged Is32BitAbsolute")
	}
}

func TestDecode_Truncated(t *testing.T) {
	_, err := Decode([]byte{0x48}, Mode64)
	if err == nil {
		t.Fatalf("expected an error for a lone REX prefix")
	}
}

func TestIsRelativeBranch(t *testing.T) {
	branches := []x86asm.Op{x86asm.JMP, x86asm.JE, x86asm.JCXZ, x86asm.JECXZ, x86asm.JRCXZ, x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE}
	for _, op := range branches {
		if !IsRelativeBranch(op) {
			t.Errorf("%v should be a relative branch", op)
		}
	}
	if IsRelativeBranch(x86asm.MOV) {
		t.Errorf("MOV should not be a relative branch")
	}
}

func TestEnlargeableBranchesTable(t *testing.T) {
	if len(EnlargeableBranches) != 16 {
		t.Errorf("expected 16 enlargeable Jcc mnemonics, got %d", len(EnlargeableBranches))
	}
	if EnlargeableBranches[x86asm.JE] != 0x84 {
		t.Errorf("JE -> 0x%02x, want 0x84", EnlargeableBranches[x86asm.JE])
	}
	if EnlargeableBranches[x86asm.JG] != 0x8F {
		t.Errorf("JG -> 0x%02x, want 0x8F", EnlargeableBranches[x86asm.JG])
	}
}

func TestNonEnlargeableBranchesSet(t *testing.T) {
	for _, op := range []x86asm.Op{x86asm.JCXZ, x86asm.JECXZ, x86asm.JRCXZ, x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE} {
		if !NonEnlargeableBranches[op] {
			t.Errorf("%v should be non-enlargeable", op)
		}
	}
	if NonEnlargeableBranches[x86asm.JMP] {
		t.Errorf("JMP is enlargeable and should not be in NonEnlargeableBranches")
	}
}
