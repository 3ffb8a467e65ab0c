//go:build linux && amd64

// Package harness provides a Linux/amd64-only, test-only execution harness
// for asserting that a relocated trampoline behaves identically to the code
// it was copied from. It is not part of the public API: production callers
// bring their own trampoline allocation and VM-protection strategy (an
// external collaborator per the package documentation), but the test suite
// needs something that runs relocated bytes for real rather than just
// diffing them. The calling-convention trampoline (jitcall, in
// harness_amd64.s) follows the same "ABI0 assembly stub invokes a raw
// function pointer" shape used by JIT-style Go runtimes such as
// go-interpreter/wagon's native compiler backend.
package harness

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ExecBuffer is a page of RWX memory holding machine code, mapped with
// unix.Mmap so its runtime address is known up front and can be handed to
// Analyze/RelocateInstruction as a source or destination base.
type ExecBuffer struct {
	mem []byte
}

// NewExecBuffer maps size bytes (rounded up to a page) of anonymous,
// read/write/execute memory.
func NewExecBuffer(size int) (*ExecBuffer, error) {
	mem, err := unix.Mmap(-1, 0, pageAlign(size), unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("harness: mmap: %w", err)
	}
	return &ExecBuffer{mem: mem}, nil
}

// Addr returns the runtime address of the mapping's first byte.
func (b *ExecBuffer) Addr() uint64 {
	return uint64(uintptr(unsafe.Pointer(&b.mem[0])))
}

// Bytes exposes the underlying memory for writing machine code into.
func (b *ExecBuffer) Bytes() []byte {
	return b.mem
}

// Close unmaps the buffer.
func (b *ExecBuffer) Close() error {
	return unix.Munmap(b.mem)
}

// Call jumps to the code at entryOffset within the buffer and returns
// whatever value the callee leaves in RAX before its RET. Code under test
// is expected to end every path with a RET (or a RAX-setting expression
// immediately followed by one), so a test can use a sentinel return value
// to prove which control-flow path a relocated branch actually took.
func (b *ExecBuffer) Call(entryOffset int) uint64 {
	return jitcall(uintptr(unsafe.Pointer(&b.mem[entryOffset])))
}

func pageAlign(n int) int {
	const pageSize = 4096
	if n%pageSize == 0 {
		return n
	}
	return (n/pageSize + 1) * pageSize
}

// jitcall is implemented in harness_amd64.s: it CALLs addr with no
// arguments and returns whatever is in RAX.
func jitcall(addr uintptr) uint64
