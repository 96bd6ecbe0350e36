package rsp

// framerState is the per-byte state machine driving packet
// extraction out of an unreliable, escaped, checksummed byte stream.
type framerState int

const (
	stateWaitOpen framerState = iota
	stateReadData
	stateEscape
	stateCksum0
	stateCksum1
)

const (
	packetOpen    = '$'
	packetClose   = '#'
	packetEscape  = '}'
	escapeXOR     = 0x20
	ackByte       = '+'
	nakByte       = '-'
	interruptByte = 0x03
)

// framer implements the per-byte RSP packet state machine described
// in spec.md §4.4: $ ... # cc framing, }-escape, checksum
// verification, ack/no-ack mode, and the out-of-band Ctrl-C
// interrupt byte.
type framer struct {
	state       framerState
	message     *ByteBuffer
	checksum    uint8
	cksumHex    [2]byte
	ackEnabled  bool
	interrupted bool
}

func newFramer() *framer {
	return &framer{
		state:      stateWaitOpen,
		message:    NewByteBuffer(),
		ackEnabled: true,
	}
}

// feedResult reports what happened as a result of feeding a byte into
// the framer: whether a complete payload is ready, what its bytes
// are, whether an ack byte needs to be written to the wire, and
// whether the checksum failed (a framing error in no-ack mode).
type feedResult struct {
	payload    []byte
	havePacket bool
	ackByte    byte // 0 if nothing should be sent
	checksumOK bool
	err        error // ErrChecksumMismatch when checksumOK is false
}

// feed consumes a single input byte, advancing the framer's state.
// At most one complete packet is produced per call to process (the
// caller loops feed until it sees havePacket or runs out of input).
func (f *framer) feed(c byte) feedResult {
	switch f.state {
	case stateWaitOpen:
		switch c {
		case packetOpen:
			f.state = stateReadData
			f.checksum = 0
			f.message.Clear()
		case ackByte, nakByte:
			// no retransmission logic; simply ignored
		case interruptByte:
			f.interrupted = true
		}
		return feedResult{}

	case stateReadData:
		switch c {
		case packetClose:
			f.state = stateCksum0
		case packetEscape:
			f.state = stateEscape
			f.checksum += c
		default:
			f.message.WriteByte(c)
			f.checksum += c
		}
		return feedResult{}

	case stateEscape:
		unescaped := c ^ escapeXOR
		f.message.WriteByte(unescaped)
		f.checksum += unescaped
		f.state = stateReadData
		return feedResult{}

	case stateCksum0:
		f.cksumHex[0] = c
		f.state = stateCksum1
		return feedResult{}

	case stateCksum1:
		f.cksumHex[1] = c
		expected, _ := decodeByte(f.cksumHex[0], f.cksumHex[1])
		ok := expected == f.checksum

		var ack byte
		if f.ackEnabled {
			if ok {
				ack = ackByte
			} else {
				ack = nakByte
			}
		}

		var err error
		if !ok {
			err = ErrChecksumMismatch
		}

		payload := f.message.GetData()
		f.state = stateWaitOpen
		return feedResult{payload: payload, havePacket: true, ackByte: ack, checksumOK: ok, err: err}
	}

	return feedResult{}
}

// disableAck latches no-ack mode for the remainder of the connection.
func (f *framer) disableAck() {
	f.ackEnabled = false
}

// consumeInterrupted reports and clears the out-of-band interrupt
// flag set by a lone 0x03 byte arriving while waiting for '$'.
func (f *framer) consumeInterrupted() bool {
	v := f.interrupted
	f.interrupted = false
	return v
}

// framePacket wraps payload in $ ... # cc framing with the given
// leading identifier byte, escaping '#', '$' and '}' as required.
func framePacket(ident byte, payload []byte) []byte {
	out := NewByteBuffer()
	out.WriteByte(ident)
	var checksum uint8
	for _, c := range payload {
		switch c {
		case packetOpen, packetClose, packetEscape:
			out.WriteByte(packetEscape)
			checksum += packetEscape
			esc := c ^ escapeXOR
			out.WriteByte(esc)
			checksum += c
		default:
			out.WriteByte(c)
			checksum += c
		}
	}
	out.WriteByte(packetClose)
	writeHexByte(out, checksum)
	return out.GetData()
}
