package rsp

import "testing"

// feedAll drives f with every byte of raw and returns the result that
// had havePacket set, or the zero value if none did.
func feedAll(f *framer, raw []byte) feedResult {
	var last feedResult
	for _, c := range raw {
		res := f.feed(c)
		if res.havePacket {
			return res
		}
		last = res
	}
	return last
}

func TestFramePacketRoundTrip(t *testing.T) {
	raw := framePacket(packetOpen, []byte("vMustReplyEmpty"))
	f := newFramer()
	res := feedAll(f, raw)
	if !res.havePacket || !res.checksumOK {
		t.Fatalf("feed result = %+v, want havePacket and checksumOK", res)
	}
	if string(res.payload) != "vMustReplyEmpty" {
		t.Fatalf("payload = %q, want vMustReplyEmpty", res.payload)
	}
}

func TestFramePacketEscapesSpecialBytes(t *testing.T) {
	payload := []byte{'$', '#', '}', 'x'}
	raw := framePacket(packetOpen, payload)
	f := newFramer()
	res := feedAll(f, raw)
	if !res.havePacket || !res.checksumOK {
		t.Fatalf("feed result = %+v, want havePacket and checksumOK", res)
	}
	if string(res.payload) != string(payload) {
		t.Fatalf("payload = %q, want %q", res.payload, payload)
	}
}

func TestFramerAcksGoodChecksum(t *testing.T) {
	raw := framePacket(packetOpen, []byte("?"))
	f := newFramer()
	res := feedAll(f, raw)
	if res.ackByte != ackByte {
		t.Fatalf("ackByte = %q, want +", res.ackByte)
	}
}

func TestFramerNaksBadChecksum(t *testing.T) {
	raw := framePacket(packetOpen, []byte("?"))
	raw[len(raw)-1] ^= 1 // corrupt the low checksum nybble
	f := newFramer()
	res := feedAll(f, raw)
	if res.checksumOK {
		t.Fatalf("checksumOK = true for a corrupted packet")
	}
	if res.ackByte != nakByte {
		t.Fatalf("ackByte = %q, want -", res.ackByte)
	}
}

func TestFramerNoAckModeSendsNoAck(t *testing.T) {
	f := newFramer()
	f.disableAck()
	raw := framePacket(packetOpen, []byte("?"))
	res := feedAll(f, raw)
	if res.ackByte != 0 {
		t.Fatalf("ackByte = %q, want no ack byte in no-ack mode", res.ackByte)
	}
}

func TestFramerInterruptByte(t *testing.T) {
	f := newFramer()
	f.feed(interruptByte)
	if !f.consumeInterrupted() {
		t.Fatalf("expected interrupted after a lone 0x03 byte")
	}
	if f.consumeInterrupted() {
		t.Fatalf("consumeInterrupted should clear the flag")
	}
}
