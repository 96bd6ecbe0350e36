package rsp

import (
	"errors"
	"strings"

	"go.uber.org/zap"
)

// rcmdBanner is returned for GDB's "monitor help" and for an empty
// qRcmd packet, matching the help text the original stub printed for
// its own (otherwise unimplemented) monitor command shell.
const rcmdBanner = "no monitor commands are defined\n"

// advertisedFeatures is the stub's qSupported reply: every query and
// qXfer object it implements, plus the fixed 8KiB packet size the
// framer is built around. qThreadExtraInfo is listed, but its queries
// get the empty reply. multiprocess+ is deliberately absent here;
// it is something the *client* offers, not something this stub
// advertises back, and handleQuery below parses the client's offer
// instead of echoing it.
const advertisedFeatures = "PacketSize=8192;swbreak+;qSupported+;qC+;qfThreadInfo+;qsThreadInfo+;" +
	"qThreadExtraInfo+;qTStatus+;qOffsets+;qRcmd+;qXfer+;QStartNoAckMode+;QThreadEvents+;" +
	"qXfer:features:read+;qXfer:libraries:read+;qXfer:exec-file:read+"

// Dispatcher turns decoded packet payloads into responses written
// back through a Connection, driving a single Debugger instance.
// Breakpoint kinds 1-4 (hardware watchpoints) are rejected, per the
// stub's explicit software-breakpoints-only scope; register writes are
// acknowledged with OK but not applied.
//
// multiprocessEnabled and sentThreadInfo are negotiated per
// connection: multiprocessEnabled flips on only if the client's own
// qSupported offer names multiprocess+, and sentThreadInfo tracks
// progress through the (single-entry) qfThreadInfo/qsThreadInfo walk.
// Handle is only ever called serially for a given connection, so
// neither field needs its own lock.
type Dispatcher struct {
	debugger            *Debugger
	xfer                map[string]xferObject
	multiprocessEnabled bool
	sentThreadInfo      bool
	log                 *zap.Logger
}

// NewDispatcher builds a dispatcher over debugger, advertising the
// register table's qXfer feature documents.
func NewDispatcher(debugger *Debugger, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		debugger: debugger,
		xfer:     newXferObjects(RegisterTable),
		log:      log,
	}
}

// threadID returns this single-target stub's one thread identifier,
// in multiprocess "pPID.TID" form once the client has negotiated it.
func (d *Dispatcher) threadID() string {
	if d.multiprocessEnabled {
		return "p1.1"
	}
	return "1"
}

// Handle decodes one packet payload and sends the corresponding
// response(s) on conn. detach reports whether the client sent a D
// packet and the connection should be closed after this call.
func (d *Dispatcher) Handle(conn *Connection, payload []byte) (detach bool) {
	if len(payload) == 0 {
		conn.RespondEmpty()
		return false
	}

	buf := NewByteBufferFromBytes(payload[1:])
	switch payload[0] {
	case '!':
		conn.RespondOK()

	case '?':
		d.respondStop(conn)

	case 'D':
		conn.RespondOK()
		return true

	case 'g':
		out := NewByteBuffer()
		d.debugger.EncodeRegisters(out)
		conn.Respond(out)

	case 'G':
		// register writes are out of scope: accepted with OK so the
		// client does not stall, but the new values are not applied.
		conn.RespondOK()

	case 'H':
		// Hc/Hg thread selection: a single always-present thread, so
		// any selector succeeds.
		conn.RespondOK()

	case 'm':
		d.handleReadMemory(conn, buf)

	case 'M':
		d.handleWriteMemory(conn, buf)

	case 'p':
		d.handleReadRegister(conn, buf)

	case 'P':
		conn.RespondOK()

	case 'q':
		d.handleQuery(conn, payload[1:])

	case 'Q':
		d.handleSet(conn, payload[1:])

	case 'T':
		// thread-alive query: the one thread we have is always alive.
		conn.RespondOK()

	case 'v':
		d.handleMultiletter(conn, payload[1:])

	case 'Z':
		d.handleInsertBreakpoint(conn, buf)

	case 'z':
		d.handleRemoveBreakpoint(conn, buf)

	default:
		conn.RespondEmpty()
	}
	return false
}

// respondErr maps a sentinel error to its RSP wire representation:
// ErrReadOnlyObject becomes EROFS, ErrProtocolMalformed becomes a
// generic E01, anything else (including ErrUnsupported) becomes an
// empty reply, GDB's convention for "not implemented".
func (d *Dispatcher) respondErr(conn *Connection, err error) {
	switch {
	case errors.Is(err, ErrReadOnlyObject):
		conn.RespondError(30)
	case errors.Is(err, ErrProtocolMalformed):
		conn.RespondError(1)
	default:
		conn.RespondEmpty()
	}
}

// respondStop sends the debugger's last recorded stop reason.
func (d *Dispatcher) respondStop(conn *Connection) {
	out := NewByteBuffer()
	d.debugger.LastStop().Encode(out)
	conn.Respond(out)
}

func (d *Dispatcher) handleReadMemory(conn *Connection, buf *ByteBuffer) {
	addr, ok := decodeUintUntil(buf, ',')
	if !ok {
		d.respondErr(conn, ErrProtocolMalformed)
		return
	}
	length := decodeUint(buf)
	out := NewByteBuffer()
	d.debugger.EncodeMemory(out, uint32(addr), int(length))
	conn.Respond(out)
}

func (d *Dispatcher) handleWriteMemory(conn *Connection, buf *ByteBuffer) {
	addr, ok := decodeUintUntil(buf, ',')
	if !ok {
		d.respondErr(conn, ErrProtocolMalformed)
		return
	}
	_, ok = decodeUintUntil(buf, ':')
	if !ok {
		d.respondErr(conn, ErrProtocolMalformed)
		return
	}
	data := decodeBytes(buf)
	d.debugger.WriteMemory(uint32(addr), data)
	conn.RespondOK()
}

func (d *Dispatcher) handleReadRegister(conn *Connection, buf *ByteBuffer) {
	n := int(decodeUint(buf))
	out := NewByteBuffer()
	if !d.debugger.EncodeRegister(out, n) {
		conn.RespondEmpty()
		return
	}
	conn.Respond(out)
}

// handleQuery dispatches 'q' queries: general queries matched by
// exact name or name+separator prefix, qXfer matched on its own
// five-field syntax.
func (d *Dispatcher) handleQuery(conn *Connection, rest []byte) {
	s := string(rest)
	switch {
	case s == "Supported" || strings.HasPrefix(s, "Supported:"):
		if args, ok := strings.CutPrefix(s, "Supported:"); ok {
			for _, feature := range strings.Split(args, ";") {
				if feature == "multiprocess+" {
					d.multiprocessEnabled = true
				}
			}
		}
		conn.RespondString(advertisedFeatures)

	case s == "C":
		conn.RespondString("QC" + d.threadID())

	case s == "fThreadInfo":
		d.sentThreadInfo = true
		conn.RespondString("m" + d.threadID())

	case s == "sThreadInfo":
		d.sentThreadInfo = false
		conn.RespondString("l")

	case s == "Offsets":
		conn.RespondString("TextSeg=0000000000000000")

	case s == "TStatus":
		conn.RespondString("T0")

	case s == "Attached":
		conn.RespondString("1")

	case s == "Rcmd" || strings.HasPrefix(s, "Rcmd,"):
		d.handleRcmd(conn, s)

	case strings.HasPrefix(s, "Xfer:"):
		d.handleXfer(conn, s[len("Xfer:"):])

	default:
		conn.RespondEmpty()
	}
}

// handleRcmd answers the "monitor" command shell: "help" (or an empty
// command) gets the fixed banner, anything else an unknown-command
// line. A full shell is explicitly out of scope.
func (d *Dispatcher) handleRcmd(conn *Connection, s string) {
	var cmd string
	if args, ok := strings.CutPrefix(s, "Rcmd,"); ok {
		cmd = string(decodeBytes(NewByteBufferFromBytes([]byte(args))))
	}
	reply := rcmdBanner
	if cmd != "" && cmd != "help" {
		reply = "Unknown command '" + cmd + "'\n"
	}
	buf := NewByteBuffer()
	encodeString(buf, reply)
	conn.Respond(buf)
}

func (d *Dispatcher) handleSet(conn *Connection, rest []byte) {
	s := string(rest)
	switch {
	case s == "StartNoAckMode":
		conn.RespondOK()
		conn.StartNoAckMode()
	case strings.HasPrefix(s, "ThreadEvents:"):
		// thread create/exit events have nothing to report for a
		// single-thread target; just acknowledge the request.
		conn.RespondOK()
	default:
		conn.RespondEmpty()
	}
}

// handleXfer implements object:operation:annex:offset,length, the
// syntax shared by every qXfer query.
func (d *Dispatcher) handleXfer(conn *Connection, s string) {
	fields := strings.SplitN(s, ":", 4)
	if len(fields) != 4 {
		conn.RespondEmpty()
		return
	}
	object, operation, annex, rangeSpec := fields[0], fields[1], fields[2], fields[3]

	obj, ok := d.xfer[object]
	if !ok {
		conn.RespondEmpty()
		return
	}
	if operation == "write" {
		d.respondErr(conn, ErrReadOnlyObject)
		return
	}
	if operation != "read" {
		conn.RespondEmpty()
		return
	}

	offsetStr, lengthStr, ok := strings.Cut(rangeSpec, ",")
	if !ok {
		d.respondErr(conn, ErrProtocolMalformed)
		return
	}
	offBuf := NewByteBufferFromBytes([]byte(offsetStr))
	lenBuf := NewByteBufferFromBytes([]byte(lengthStr))
	offset := decodeUint(offBuf)
	length := decodeUint(lenBuf)

	chunk, atEnd, ok := obj.read(annex, offset, length)
	if !ok {
		conn.RespondEmpty()
		return
	}

	out := NewByteBuffer()
	if atEnd {
		out.WriteByte('l')
	} else {
		out.WriteByte('m')
	}
	out.Write(chunk)
	conn.Respond(out)
}

// handleMultiletter dispatches v-prefixed commands: vCont (resume
// control), vAttach (extended-mode session management), vStopped, and
// the vMustReplyEmpty probe GDB uses to detect unknown extensions.
func (d *Dispatcher) handleMultiletter(conn *Connection, rest []byte) {
	s := string(rest)
	switch {
	case s == "Cont?":
		conn.RespondString("vCont;c;C;s")

	case strings.HasPrefix(s, "Cont;") || s == "Cont":
		d.handleVCont(conn, strings.TrimPrefix(s, "Cont"))

	case strings.HasPrefix(s, "Attach;"):
		// A single target process is always already attached.
		d.respondStop(conn)

	case s == "Stopped":
		// non-stop mode is out of scope; there is never a second queued
		// stop reply waiting behind the one already delivered.
		conn.RespondOK()

	case s == "MustReplyEmpty":
		conn.RespondEmpty()

	default:
		conn.RespondEmpty()
	}
}

// handleVCont resumes or single-steps the target per the first
// action in spec; per-thread action lists are not distinguished since
// there is only ever one thread. No reply is sent here: a vCont;c/C/s
// never gets an immediate answer, only the asynchronous stop reply
// the debugger pushes once the target halts again.
func (d *Dispatcher) handleVCont(conn *Connection, actions string) {
	action := strings.TrimPrefix(actions, ";")
	switch {
	case strings.HasPrefix(action, "c"):
		d.debugger.Resume()
	case strings.HasPrefix(action, "C"):
		d.log.Warn("vCont;C sig received, resuming without delivering the signal")
		d.debugger.Resume()
	case strings.HasPrefix(action, "s"):
		d.debugger.Step()
	default:
		d.respondErr(conn, ErrProtocolMalformed)
	}
}

func (d *Dispatcher) handleInsertBreakpoint(conn *Connection, buf *ByteBuffer) {
	kind, ok := decodeUintUntil(buf, ',')
	if !ok {
		d.respondErr(conn, ErrProtocolMalformed)
		return
	}
	if kind != 0 {
		// hardware breakpoints/watchpoints: explicitly unsupported.
		d.respondErr(conn, ErrUnsupported)
		return
	}
	addr, ok := decodeUintUntil(buf, ',')
	if !ok {
		d.respondErr(conn, ErrProtocolMalformed)
		return
	}
	d.debugger.InsertBreakpoint(uint32(addr))
	conn.RespondOK()
}

func (d *Dispatcher) handleRemoveBreakpoint(conn *Connection, buf *ByteBuffer) {
	kind, ok := decodeUintUntil(buf, ',')
	if !ok {
		d.respondErr(conn, ErrProtocolMalformed)
		return
	}
	if kind != 0 {
		d.respondErr(conn, ErrUnsupported)
		return
	}
	addr, ok := decodeUintUntil(buf, ',')
	if !ok {
		d.respondErr(conn, ErrProtocolMalformed)
		return
	}
	d.debugger.RemoveBreakpoint(uint32(addr))
	conn.RespondOK()
}
