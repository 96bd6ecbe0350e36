// Package gbcpu provides the minimal Game Boy CPU and memory model the
// debugger core talks to. It does not implement the Z80-derived
// instruction set: opcode decoding is the external collaborator's
// job (spec'd out of scope for the debugger stub). What lives here is
// just enough register and byte-addressable-memory storage, plus a
// single-instruction-boundary Step, for the debugger core to have a
// real target to drive in tests.
package gbcpu

// MemSize is the size of the Game Boy's byte-addressable memory.
const MemSize = 0x10000

// CPU holds the register file and memory of an emulated Game Boy.
// Register names mirror the original hardware: A, B, C, D, E, H, L are
// 8-bit; SP and PC are 16-bit.
type CPU struct {
	A, B, C, D, E, H, L uint8
	SP, PC              uint16

	mem [MemSize]byte

	// Step advances PC by one byte per call; real opcode lengths vary,
	// but the debugger core only needs PC to move for breakpoint and
	// step-range testing, not cycle-accurate disassembly.
	onStep func(pc uint16)
}

// New returns a CPU with all registers and memory zeroed.
func New() *CPU {
	return &CPU{}
}

// SetStepHook installs a callback invoked with the new PC after Step.
// This is the seam the debugger attaches to; the wiring itself is done
// by the caller, so this package does not depend on internal/rsp.
func (c *CPU) SetStepHook(f func(pc uint16)) {
	c.onStep = f
}

// Read returns the byte at addr. Game Boy addresses are always in
// range for a uint16, so no bounds check is needed.
func (c *CPU) Read(addr uint16) uint8 {
	return c.mem[addr]
}

// Write stores value at addr.
func (c *CPU) Write(addr uint16, value uint8) {
	c.mem[addr] = value
}

// LoadROM copies data into memory starting at address 0, truncating
// anything past the end of memory.
func (c *CPU) LoadROM(data []byte) {
	n := len(data)
	if n > MemSize {
		n = MemSize
	}
	copy(c.mem[:n], data[:n])
}

// Step performs the bookkeeping of one instruction boundary: it
// advances PC and invokes the step hook, if any, with the new PC. Real
// instruction decoding/execution is the emulator's job and lives
// outside this package.
func (c *CPU) Step() {
	c.PC++
	if c.onStep != nil {
		c.onStep(c.PC)
	}
}
