package rsp

import (
	"sync"

	"github.com/flagbot/gbstub/internal/gbcpu"
	"go.uber.org/zap"
)

// stepRange tracks an in-progress "continue until outside [start,end]"
// request issued by a single-step vCont action.
type stepRange struct {
	active bool
	start  uint16
	end    uint16
}

// Debugger is the control block mediating between the emulator's
// instruction-fetch hook (running on the CPU's own goroutine) and
// whichever client connection currently holds the protocol thread. It
// owns the breakpoint table, the halt/resume rendezvous, the attached
// connection used to push asynchronous stop replies, and the
// encode/decode of registers and memory against the CPU it wraps.
//
// The halt/resume handshake mirrors a sendCond/doneSendCond pair: the
// CPU goroutine blocks on cond while halted == true, and a connection
// goroutine flips halted and calls cond.Broadcast to release it.
type Debugger struct {
	cpu  *gbcpu.CPU
	log  *zap.Logger
	mu   sync.Mutex
	cond *sync.Cond

	halted         bool
	breakpoint     *breakpointTable
	stepRange      stepRange
	lastStop       StopReason
	conn           *Connection
	waitingForStop bool
}

// NewDebugger wires onto cpu's step hook and starts halted, matching
// the protocol's requirement that a freshly-accepted client always
// sees an initial stop reply before the target runs.
func NewDebugger(cpu *gbcpu.CPU, log *zap.Logger) *Debugger {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Debugger{
		cpu:        cpu,
		log:        log,
		halted:     true,
		breakpoint: newBreakpointTable(),
		lastStop:   breakpointStopReason(),
	}
	d.cond = sync.NewCond(&d.mu)
	cpu.SetStepHook(d.onStep)
	return d
}

// Attach records conn as the connection to push asynchronous stop
// replies through. The acceptor calls this once per accepted client,
// before handing the connection to the dispatcher.
func (d *Debugger) Attach(conn *Connection) {
	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()
}

// Detach clears the attached connection and any pending wait, so a
// halt racing the disconnect doesn't try to write to a dead socket.
func (d *Debugger) Detach() {
	d.mu.Lock()
	d.conn = nil
	d.waitingForStop = false
	d.mu.Unlock()
}

// onStep runs on the CPU's own goroutine after every retired
// instruction. It checks for a hit breakpoint or a completed step
// range, halting (and, if a stop reply is owed, notifying the
// attached connection) if either fires, then blocks for as long as
// the debugger stays halted.
func (d *Debugger) onStep(pc uint16) {
	d.mu.Lock()
	outOfRange := d.stepRange.active && (pc < d.stepRange.start || pc > d.stepRange.end)
	if outOfRange {
		d.stepRange.active = false
	}
	shouldHalt := d.checkBreakpointsLocked(pc) || outOfRange
	d.mu.Unlock()

	if shouldHalt {
		d.Halt(breakpointStopReason())
	}

	d.mu.Lock()
	for d.halted {
		d.cond.Wait()
	}
	d.mu.Unlock()
}

// checkBreakpointsLocked reports whether a live breakpoint fires at
// pc, decrementing and auto-removing any one-shot breakpoint that
// does. Callers must hold d.mu.
func (d *Debugger) checkBreakpointsLocked(pc uint16) bool {
	hit := false
	var spent []*Breakpoint
	for _, bp := range d.breakpoint.At(uint32(pc)) {
		if !bp.Enabled {
			continue
		}
		hit = true
		if bp.Uses > 0 {
			bp.Uses--
			if bp.Uses == 0 {
				spent = append(spent, bp)
			}
		}
	}
	for _, bp := range spent {
		d.breakpoint.Remove(bp)
	}
	return hit
}

// Halt stops the target at its next instruction boundary and records
// reason as the stop reply clients will receive. If a resume left a
// stop reply owed (waitingForStop) and a connection is attached, the
// reply is pushed to it immediately; otherwise the halt is recorded
// silently and picked up by the client's next '?' poll.
func (d *Debugger) Halt(reason StopReason) {
	d.mu.Lock()
	d.halted = true
	d.lastStop = reason
	notify := d.waitingForStop
	d.waitingForStop = false
	conn := d.conn
	d.mu.Unlock()

	if notify && conn != nil {
		buf := NewByteBuffer()
		reason.Encode(buf)
		if err := conn.Respond(buf); err != nil {
			d.log.Debug("failed to push asynchronous stop reply", zap.Error(err))
		}
	}
}

// HaltOnAttach halts with the canonical breakpoint stop reason,
// without pushing a notification, for the stop reply a freshly
// accepted client will ask for itself via '?'.
func (d *Debugger) HaltOnAttach() {
	d.mu.Lock()
	d.waitingForStop = false
	d.mu.Unlock()
	d.Halt(breakpointStopReason())
}

// Interrupt halts the target if (and only if) a resume is currently
// outstanding, matching the framer's out-of-band 0x03 byte: idle
// interrupts are a no-op, but interrupting a running target pushes
// the stop reply the same way a breakpoint would.
func (d *Debugger) Interrupt() {
	d.mu.Lock()
	waiting := d.waitingForStop
	d.mu.Unlock()
	if waiting {
		d.Halt(breakpointStopReason())
	}
}

// Resume releases the target to run until the next breakpoint or
// explicit Halt, and marks a stop reply as owed once it does.
func (d *Debugger) Resume() {
	d.mu.Lock()
	d.stepRange.active = false
	d.halted = false
	d.waitingForStop = true
	d.mu.Unlock()
	d.cond.Broadcast()
}

// Step resumes the target for exactly one instruction and halts it
// again, reusing the step-range mechanism with a single-PC range so
// any other PC value immediately satisfies "left the range".
func (d *Debugger) Step() {
	d.mu.Lock()
	pc := d.cpu.PC
	d.stepRange = stepRange{active: true, start: pc, end: pc}
	d.halted = false
	d.waitingForStop = true
	d.mu.Unlock()
	d.cond.Broadcast()
}

// Halted reports the target's current run state.
func (d *Debugger) Halted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.halted
}

// WaitingForStop reports whether a resume is outstanding and its stop
// reply has not yet been delivered.
func (d *Debugger) WaitingForStop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waitingForStop
}

// LastStop returns the stop reason from the most recent halt.
func (d *Debugger) LastStop() StopReason {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastStop
}

// InsertBreakpoint registers a software breakpoint at address,
// matching the Z0 packet; kind/length beyond software execution
// breakpoints are rejected by the dispatcher before reaching here.
func (d *Debugger) InsertBreakpoint(address uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.breakpoint.Add(NewBreakpoint(address))
}

// RemoveBreakpoint clears every breakpoint registered at address,
// matching the z0 packet's all-or-nothing removal semantics.
func (d *Debugger) RemoveBreakpoint(address uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.breakpoint.RemoveAll(address)
}

// EncodeRegisters writes the hex-encoded concatenation of every
// register in RegisterTable order, little-endian, for a g reply.
func (d *Debugger) EncodeRegisters(buf *ByteBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, reg := range RegisterTable {
		encodeUint(buf, reg.Get(d.cpu), reg.ByteWidth(), true)
	}
}

// EncodeRegister writes the hex-encoded value of the n-th register in
// RegisterTable for a p reply. ok is false if n is out of range.
func (d *Debugger) EncodeRegister(buf *ByteBuffer, n int) bool {
	if n < 0 || n >= len(RegisterTable) {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	reg := RegisterTable[n]
	encodeUint(buf, reg.Get(d.cpu), reg.ByteWidth(), true)
	return true
}

// PC returns the target's current program counter.
func (d *Debugger) PC() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cpu.PC
}

// EncodeMemory writes up to length bytes starting at addr as hex.
// The CPU's address space is a fixed 64KiB; once addr+i exceeds
// 0xffff the read simply stops, returning whatever prefix fits rather
// than wrapping back around to address 0.
func (d *Debugger) EncodeMemory(buf *ByteBuffer, addr uint32, length int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < length; i++ {
		a := addr + uint32(i)
		if a > 0xffff {
			break
		}
		b := d.cpu.Read(uint16(a))
		writeHexByte(buf, b)
	}
}

// WriteMemory stores data at addr, for an M packet, dropping any
// bytes that would fall past address 0xffff instead of wrapping.
func (d *Debugger) WriteMemory(addr uint32, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, b := range data {
		a := addr + uint32(i)
		if a > 0xffff {
			break
		}
		d.cpu.Write(uint16(a), b)
	}
}
