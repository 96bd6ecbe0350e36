package rsp

import "encoding/binary"

// defaultBufferCap mirrors the original debugger's Buffer, which
// starts every instance at a 2048-byte backing array regardless of
// its eventual limit.
const defaultBufferCap = 2048

// ByteBuffer is a dual-cursor byte queue: bytes are appended at
// writeHead and consumed at readHead, with readHead <= writeHead <=
// len(data) always holding. A limit of 0 means unbounded; a positive
// limit caps how large the backing array may grow, and writes that
// would exceed it fail instead of growing past it.
type ByteBuffer struct {
	data      []byte
	readHead  int
	writeHead int
	limit     int
}

// NewByteBuffer returns an unbounded buffer.
func NewByteBuffer() *ByteBuffer {
	return &ByteBuffer{data: make([]byte, defaultBufferCap)}
}

// NewBoundedByteBuffer returns a buffer that refuses writes which
// would grow its backing array past limit bytes.
func NewBoundedByteBuffer(limit int) *ByteBuffer {
	cap := defaultBufferCap
	if limit < cap {
		cap = limit
	}
	return &ByteBuffer{data: make([]byte, cap), limit: limit}
}

// NewByteBufferFromBytes wraps data for reading; writeHead starts at
// the end so the whole slice is immediately readable.
func NewByteBufferFromBytes(data []byte) *ByteBuffer {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &ByteBuffer{data: buf, writeHead: len(buf)}
}

// ReadAvailable reports how many unread bytes remain.
func (b *ByteBuffer) ReadAvailable() int {
	return b.writeHead - b.readHead
}

// Clear resets both cursors without touching the backing array.
func (b *ByteBuffer) Clear() {
	b.readHead = 0
	b.writeHead = 0
}

// Compact shifts unread bytes down to index 0, reclaiming the space
// occupied by already-read bytes.
func (b *ByteBuffer) Compact() {
	n := copy(b.data, b.data[b.readHead:b.writeHead])
	b.writeHead = n
	b.readHead = 0
}

// ensureSpace guarantees room for size more bytes at writeHead,
// compacting and growing the backing array as needed. It reports
// whether the space was made available; a bounded buffer that would
// need to exceed its limit returns false and leaves the buffer
// unmodified.
func (b *ByteBuffer) ensureSpace(size int) bool {
	if b.writeHead+size > len(b.data) {
		b.Compact()
	}
	if b.writeHead+size <= len(b.data) {
		return true
	}
	if b.limit != 0 && b.writeHead+size > b.limit {
		return false
	}
	grown := make([]byte, b.writeHead+size)
	copy(grown, b.data[:b.writeHead])
	b.data = grown
	return true
}

// Reserve guarantees at least hint bytes of writable space (growing
// the buffer if unbounded) and returns the writable slice along with
// its length. The caller must follow up with MarkWritten once it has
// filled in however many bytes it actually used.
func (b *ByteBuffer) Reserve(hint int) ([]byte, int) {
	b.ensureSpace(hint)
	return b.data[b.writeHead:], len(b.data) - b.writeHead
}

// MarkWritten advances writeHead by n, matching bytes previously
// filled into the slice returned by Reserve.
func (b *ByteBuffer) MarkWritten(n int) {
	b.writeHead += n
}

// Write appends raw bytes, failing (without partial writes) if this
// is a bounded buffer and the write would exceed its limit.
func (b *ByteBuffer) Write(p []byte) bool {
	if !b.ensureSpace(len(p)) {
		return false
	}
	copy(b.data[b.writeHead:], p)
	b.writeHead += len(p)
	return true
}

// WriteByte appends a single byte.
func (b *ByteBuffer) WriteByte(c byte) bool {
	return b.Write([]byte{c})
}

// WriteString appends the raw bytes of s.
func (b *ByteBuffer) WriteString(s string) bool {
	return b.Write([]byte(s))
}

// WriteUint16LE writes v as two little-endian bytes.
func (b *ByteBuffer) WriteUint16LE(v uint16) bool {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return b.Write(tmp[:])
}

// Read consumes exactly n bytes, returning false (and leaving the
// buffer untouched) if fewer than n bytes are available.
func (b *ByteBuffer) Read(n int) ([]byte, bool) {
	if b.ReadAvailable() < n {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, b.data[b.readHead:b.readHead+n])
	b.readHead += n
	return out, true
}

// ReadByte consumes a single byte.
func (b *ByteBuffer) ReadByte() (byte, bool) {
	if b.ReadAvailable() < 1 {
		return 0, false
	}
	c := b.data[b.readHead]
	b.readHead++
	return c, true
}

// PeekByte returns the next unread byte without consuming it.
func (b *ByteBuffer) PeekByte() (byte, bool) {
	if b.ReadAvailable() < 1 {
		return 0, false
	}
	return b.data[b.readHead], true
}

// ReadString consumes n bytes and returns them as a string.
func (b *ByteBuffer) ReadString(n int) (string, bool) {
	raw, ok := b.Read(n)
	if !ok {
		return "", false
	}
	return string(raw), true
}

// MarkRead advances readHead by n, for callers that peeked at
// GetData/GetString directly.
func (b *ByteBuffer) MarkRead(n int) {
	b.readHead += n
}

// GetData returns a copy of the unread portion of the buffer.
func (b *ByteBuffer) GetData() []byte {
	out := make([]byte, b.ReadAvailable())
	copy(out, b.data[b.readHead:b.writeHead])
	return out
}

// GetString returns the unread portion of the buffer as a string.
func (b *ByteBuffer) GetString() string {
	return string(b.data[b.readHead:b.writeHead])
}
