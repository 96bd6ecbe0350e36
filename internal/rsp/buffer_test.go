package rsp

import "testing"

func TestByteBufferWriteRead(t *testing.T) {
	buf := NewByteBuffer()
	if !buf.Write([]byte("hello")) {
		t.Fatalf("write failed on unbounded buffer")
	}
	got, ok := buf.ReadString(5)
	if !ok || got != "hello" {
		t.Fatalf("ReadString = %q, %v, want hello, true", got, ok)
	}
	if buf.ReadAvailable() != 0 {
		t.Fatalf("ReadAvailable = %d, want 0", buf.ReadAvailable())
	}
}

func TestByteBufferBoundedRejectsOverflow(t *testing.T) {
	buf := NewBoundedByteBuffer(4)
	if !buf.Write([]byte("abcd")) {
		t.Fatalf("write up to limit should succeed")
	}
	if buf.Write([]byte("e")) {
		t.Fatalf("write past limit should fail")
	}
}

func TestByteBufferCompactReclaimsSpace(t *testing.T) {
	buf := NewBoundedByteBuffer(4)
	buf.Write([]byte("abcd"))
	buf.Read(4)
	if !buf.Write([]byte("efgh")) {
		t.Fatalf("write after compacting read bytes should succeed")
	}
	got := buf.GetString()
	if got != "efgh" {
		t.Fatalf("GetString = %q, want efgh", got)
	}
}

func TestByteBufferPeekByteDoesNotConsume(t *testing.T) {
	buf := NewByteBufferFromBytes([]byte("xy"))
	c, ok := buf.PeekByte()
	if !ok || c != 'x' {
		t.Fatalf("PeekByte = %q, %v, want x, true", c, ok)
	}
	if buf.ReadAvailable() != 2 {
		t.Fatalf("PeekByte should not consume; ReadAvailable = %d", buf.ReadAvailable())
	}
}

func TestByteBufferReadPastAvailableFails(t *testing.T) {
	buf := NewByteBufferFromBytes([]byte("ab"))
	if _, ok := buf.Read(3); ok {
		t.Fatalf("Read(3) on a 2-byte buffer should fail")
	}
}
