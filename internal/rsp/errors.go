package rsp

import "errors"

// Sentinel errors covering the taxonomy in spec.md §7. A framing
// error ends the connection once no-ack mode is on (in ack mode the
// packet is nak'd and dropped); the rest are turned into RSP error
// replies by the dispatcher and never propagate to the emulator
// thread.
var (
	// ErrChecksumMismatch is a framing error: the packet's checksum
	// byte didn't match the computed checksum.
	ErrChecksumMismatch = errors.New("rsp: checksum mismatch")

	// ErrProtocolMalformed covers malformed command arguments, e.g. an
	// m packet whose address is not followed by ','.
	ErrProtocolMalformed = errors.New("rsp: malformed packet")

	// ErrUnsupported covers unknown commands, queries, qXfer objects
	// or annexes.
	ErrUnsupported = errors.New("rsp: unsupported")

	// ErrReadOnlyObject is returned when a client attempts to write to
	// a read-only qXfer object.
	ErrReadOnlyObject = errors.New("rsp: object is read-only")
)
