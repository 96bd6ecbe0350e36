package rsp

import (
	"net"
	"strings"
	"testing"

	"github.com/flagbot/gbstub/internal/gbcpu"
)

// dispatchAndRead sends payload through d on a net.Pipe-backed
// Connection and returns the client-observed reply payload.
func dispatchAndRead(t *testing.T, d *Dispatcher, payload string) string {
	t.Helper()
	serverSide, client := net.Pipe()
	defer serverSide.Close()
	defer client.Close()

	conn := NewConnection(serverSide, nil)
	replyCh := make(chan string, 1)
	go func() {
		replyCh <- readReply(t, client)
	}()

	d.Handle(conn, []byte(payload))
	return <-replyCh
}

func TestDispatcherQuestionMarkReportsLastStop(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	got := dispatchAndRead(t, d, "?")
	if !strings.HasPrefix(got, "T05") {
		t.Fatalf("? reply = %q, want a T05 stop reply", got)
	}
}

func TestDispatcherReadRegisters(t *testing.T) {
	cpu := gbcpu.New()
	cpu.A = 0x42
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	got := dispatchAndRead(t, d, "g")
	if !strings.HasPrefix(got, "42") {
		t.Fatalf("g reply = %q, want to start with register a = 42", got)
	}
}

func TestDispatcherReadMemory(t *testing.T) {
	cpu := gbcpu.New()
	cpu.Write(0x10, 0xab)
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	got := dispatchAndRead(t, d, "m10,1")
	if got != "ab" {
		t.Fatalf("m10,1 reply = %q, want ab", got)
	}
}

func TestDispatcherWriteMemory(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	got := dispatchAndRead(t, d, "M10,2:aabb")
	if got != "OK" {
		t.Fatalf("M reply = %q, want OK", got)
	}
	if cpu.Read(0x10) != 0xaa || cpu.Read(0x11) != 0xbb {
		t.Fatalf("memory after M10,2:aabb = %02x %02x, want aa bb", cpu.Read(0x10), cpu.Read(0x11))
	}
}

func TestDispatcherBreakpointInsertAndRemove(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	if got := dispatchAndRead(t, d, "Z0,5,1"); got != "OK" {
		t.Fatalf("Z0 reply = %q, want OK", got)
	}
	if len(dbg.breakpoint.At(5)) != 1 {
		t.Fatalf("breakpoint table should have one entry at address 5")
	}

	if got := dispatchAndRead(t, d, "z0,5,1"); got != "OK" {
		t.Fatalf("z0 reply = %q, want OK", got)
	}
	if len(dbg.breakpoint.At(5)) != 0 {
		t.Fatalf("breakpoint table should be empty after z0")
	}
}

func TestDispatcherHardwareBreakpointUnsupported(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	got := dispatchAndRead(t, d, "Z1,5,1")
	if got != "" {
		t.Fatalf("Z1 (hardware breakpoint) reply = %q, want empty/unsupported", got)
	}
}

func TestDispatcherQSupported(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	got := dispatchAndRead(t, d, "qSupported:multiprocess+")
	if !strings.Contains(got, "qXfer:features:read+") {
		t.Fatalf("qSupported reply = %q, want to advertise qXfer:features:read+", got)
	}
}

func TestDispatcherQSupportedMultiprocessGating(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	if got := dispatchAndRead(t, d, "qC"); got != "QC1" {
		t.Fatalf("qC reply before negotiation = %q, want QC1", got)
	}

	dispatchAndRead(t, d, "qSupported:multiprocess+")

	got := dispatchAndRead(t, d, "qC")
	if got != "QCp1.1" {
		t.Fatalf("qC reply = %q, want QCp1.1 once the client has offered multiprocess+", got)
	}
}

func TestDispatcherQSupportedAdvertisesSwbreakAndPacketSize(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	got := dispatchAndRead(t, d, "qSupported")
	if !strings.Contains(got, "swbreak+") {
		t.Fatalf("qSupported reply = %q, want swbreak+ advertised", got)
	}
	if !strings.Contains(got, "PacketSize=8192") {
		t.Fatalf("qSupported reply = %q, want PacketSize=8192", got)
	}
	if strings.Contains(got, "multiprocess+") {
		t.Fatalf("qSupported reply = %q, should not self-advertise multiprocess+", got)
	}
}

func TestDispatcherVContQueryAndVStopped(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	if got := dispatchAndRead(t, d, "vCont?"); got != "vCont;c;C;s" {
		t.Fatalf("vCont? reply = %q, want vCont;c;C;s", got)
	}
	if got := dispatchAndRead(t, d, "vStopped"); got != "OK" {
		t.Fatalf("vStopped reply = %q, want OK", got)
	}
}

func TestDispatcherOffsetsAndTStatus(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	if got := dispatchAndRead(t, d, "qOffsets"); got != "TextSeg=0000000000000000" {
		t.Fatalf("qOffsets reply = %q, want TextSeg=0000000000000000", got)
	}
	if got := dispatchAndRead(t, d, "qTStatus"); got != "T0" {
		t.Fatalf("qTStatus reply = %q, want T0", got)
	}
}

func TestDispatcherVContCTreatedAsContinue(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	dbg.InsertBreakpoint(3)
	d := NewDispatcher(dbg, nil)

	serverSide, client := net.Pipe()
	defer serverSide.Close()
	defer client.Close()
	conn := NewConnection(serverSide, nil)
	dbg.Attach(conn)
	defer dbg.Detach()

	replyCh := make(chan string, 1)
	go func() { replyCh <- readReply(t, client) }()

	d.Handle(conn, []byte("vCont;C05"))

	go func() {
		for !dbg.Halted() {
			cpu.Step()
		}
	}()

	got := <-replyCh
	if !strings.HasPrefix(got, "T05") {
		t.Fatalf("async stop reply after vCont;C05 = %q, want a T05 stop reply", got)
	}
}

func TestDispatcherQXferFeaturesTargetXML(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	got := dispatchAndRead(t, d, "qXfer:features:read:target.xml:0,1000")
	if !strings.HasPrefix(got, "l") {
		t.Fatalf("qXfer features reply = %q, want to start with l (whole doc fits)", got)
	}
	if !strings.Contains(got, "gb-core.xml") {
		t.Fatalf("target.xml should xi:include gb-core.xml, got %q", got)
	}
}

func TestDispatcherQXferWriteIsReadOnly(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	got := dispatchAndRead(t, d, "qXfer:features:write:target.xml:0,0:")
	if !strings.HasPrefix(got, "E") {
		t.Fatalf("qXfer write reply = %q, want an Ennn error", got)
	}
}

func TestDispatcherDetachClosesConnection(t *testing.T) {
	cpu := gbcpu.New()
	dbg := NewDebugger(cpu, nil)
	d := NewDispatcher(dbg, nil)

	serverSide, client := net.Pipe()
	defer serverSide.Close()
	defer client.Close()
	conn := NewConnection(serverSide, nil)

	replyCh := make(chan string, 1)
	go func() { replyCh <- readReply(t, client) }()

	detach := d.Handle(conn, []byte("D"))
	if <-replyCh != "OK" {
		t.Fatalf("D reply should be OK")
	}
	if !detach {
		t.Fatalf("Handle(D) should report detach=true")
	}
}
