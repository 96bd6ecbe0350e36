package rsp

import (
	"errors"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"
)

// Connection owns the TCP socket for one client and hosts the packet
// framer over it: it turns raw bytes into complete payloads for the
// dispatcher, and turns response/notification payloads back into
// framed bytes on the wire. writeMu guards the socket's write side,
// since a Debugger can push an asynchronous stop reply from the CPU's
// own goroutine concurrently with the protocol goroutine's normal
// replies.
type Connection struct {
	conn    net.Conn
	framer  *framer
	log     *zap.Logger
	writeMu sync.Mutex

	readBuf [4096]byte
	input   *ByteBuffer

	errored bool
}

// NewConnection wraps conn with a fresh framer in ack-enabled mode.
func NewConnection(conn net.Conn, log *zap.Logger) *Connection {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connection{
		conn:   conn,
		framer: newFramer(),
		log:    log,
		input:  NewByteBuffer(),
	}
}

// Errored reports whether a framing error has occurred; the acceptor
// should close the connection once this returns true.
func (c *Connection) Errored() bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.errored
}

// ReadInput blocks for more bytes from the socket and feeds them into
// the internal input buffer for Process to consume. It returns an
// error (including io.EOF on clean disconnect) when the socket dies.
func (c *Connection) ReadInput() error {
	n, err := c.conn.Read(c.readBuf[:])
	if n > 0 {
		c.input.Write(c.readBuf[:n])
	}
	if err != nil {
		return err
	}
	return nil
}

// Process drains the internal input buffer through the framer,
// returning the first complete payload found (if any) and whether the
// client sent an out-of-band interrupt byte since the last call. It
// consumes at most one complete packet per call, mirroring the
// original stub's Process contract, and writes any ack/nak byte the
// framer produced directly to the socket.
func (c *Connection) Process() (payload []byte, ok bool, interrupted bool) {
	for {
		b, avail := c.input.ReadByte()
		if !avail {
			break
		}
		res := c.framer.feed(b)
		if res.ackByte != 0 {
			c.writeMu.Lock()
			if _, err := c.conn.Write([]byte{res.ackByte}); err != nil {
				c.log.Debug("ack write failed", zap.Error(err))
				c.errored = true
			}
			c.writeMu.Unlock()
		}
		if res.havePacket {
			if !res.checksumOK {
				if errors.Is(res.err, ErrChecksumMismatch) {
					c.log.Debug("checksum mismatch", zap.Binary("payload", res.payload))
				}
				if !c.framer.ackEnabled {
					// no retransmission is possible once ack/nak bytes
					// have stopped flowing; a bad checksum here means
					// the stream itself is desynchronized.
					c.writeMu.Lock()
					c.errored = true
					c.writeMu.Unlock()
				}
				continue
			}
			return res.payload, true, c.framer.consumeInterrupted()
		}
	}
	return nil, false, c.framer.consumeInterrupted()
}

// send frames payload with the given identifier byte and writes it to
// the socket.
func (c *Connection) send(ident byte, payload []byte) error {
	framed := framePacket(ident, payload)
	c.log.Debug("send", zap.ByteString("frame", framed))
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(framed)
	if err != nil {
		c.errored = true
	}
	return err
}

// Respond sends buf's contents as a normal ('$') response packet.
func (c *Connection) Respond(buf *ByteBuffer) error {
	return c.send(packetOpen, buf.GetData())
}

// RespondString is a convenience wrapper for string responses.
func (c *Connection) RespondString(s string) error {
	return c.send(packetOpen, []byte(s))
}

// RespondOK sends the canonical "OK" response.
func (c *Connection) RespondOK() error {
	return c.RespondString("OK")
}

// RespondEmpty sends an empty response, telling the client this
// command isn't supported.
func (c *Connection) RespondEmpty() error {
	return c.RespondString("")
}

// RespondError sends an Enn error reply, nn being two hex digits of
// no.
func (c *Connection) RespondError(no int) error {
	buf := NewByteBuffer()
	buf.WriteByte('E')
	encodeUint(buf, uint64(no), 1, false)
	return c.Respond(buf)
}

// Notify sends buf's contents as an asynchronous ('%') notification
// packet.
func (c *Connection) Notify(buf *ByteBuffer) error {
	return c.send('%', buf.GetData())
}

// StartNoAckMode latches no-ack mode on the framer for subsequent
// packets.
func (c *Connection) StartNoAckMode() {
	c.framer.disableAck()
}

// SignalError marks the connection as errored, e.g. after a framing
// failure the caller wants to close the socket over.
func (c *Connection) SignalError() {
	c.writeMu.Lock()
	c.errored = true
	c.writeMu.Unlock()
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// IsDisconnectError reports whether err (as returned from ReadInput)
// represents a normal end-of-connection rather than a real failure.
func IsDisconnectError(err error) bool {
	return err == io.EOF
}
