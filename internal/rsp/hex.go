package rsp

// decodeNybble converts a single hex character to its 4-bit value. It
// returns false for anything outside 0-9a-fA-F.
func decodeNybble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// encodeNybble is the inverse of decodeNybble, always lowercase.
func encodeNybble(n uint8) byte {
	if n < 10 {
		return '0' + n
	}
	return 'a' + (n - 10)
}

// decodeByte combines two hex characters into a byte, high nybble
// first.
func decodeByte(c1, c2 byte) (uint8, bool) {
	hi, ok := decodeNybble(c1)
	if !ok {
		return 0, false
	}
	lo, ok := decodeNybble(c2)
	if !ok {
		return 0, false
	}
	return hi<<4 | lo, true
}

// decodeUintUntil consumes hex characters from buf up to and
// including the first occurrence of sep, accumulating them
// big-endian (high nybble first), and returns the value. sep itself
// is consumed but not counted. If buf is drained before sep appears,
// whatever was accumulated is returned along with false.
func decodeUintUntil(buf *ByteBuffer, sep byte) (uint64, bool) {
	var out uint64
	for {
		c, ok := buf.ReadByte()
		if !ok {
			return out, false
		}
		if c == sep {
			return out, true
		}
		n, ok := decodeNybble(c)
		if !ok {
			return out, false
		}
		out = out<<4 | uint64(n)
	}
}

// decodeUint consumes hex characters until buf is drained,
// accumulating big-endian.
func decodeUint(buf *ByteBuffer) uint64 {
	var out uint64
	for {
		c, ok := buf.ReadByte()
		if !ok {
			return out
		}
		n, ok := decodeNybble(c)
		if !ok {
			return out
		}
		out = out<<4 | uint64(n)
	}
}

// decodeBytes pairs up hex characters into bytes until buf is
// drained. A trailing unpaired nybble is padded as nybble<<4, per the
// original protocol's lenient decoder.
func decodeBytes(buf *ByteBuffer) []byte {
	var out []byte
	for {
		c1, ok := buf.ReadByte()
		if !ok {
			return out
		}
		n1, ok := decodeNybble(c1)
		if !ok {
			return out
		}
		c2, ok := buf.ReadByte()
		if !ok {
			out = append(out, n1<<4)
			return out
		}
		n2, ok := decodeNybble(c2)
		if !ok {
			out = append(out, n1<<4)
			return out
		}
		out = append(out, n1<<4|n2)
	}
}

// encodeUint writes n as byteWidth bytes of two hex chars each, in
// little-endian or big-endian byte order. byteWidth == 0 means emit
// the minimal number of bytes, trimming leading (most significant)
// zero bytes except the last.
func encodeUint(buf *ByteBuffer, n uint64, byteWidth int, littleEndian bool) {
	var all [8]byte
	for i := 0; i < 8; i++ {
		all[i] = byte(n >> (8 * i)) // all[0] = least significant byte
	}

	width := byteWidth
	if width == 0 {
		width = 8
		for width > 1 && all[width-1] == 0 {
			width--
		}
	}

	// all[0..width) holds the bytes we want, least-significant first.
	if littleEndian {
		for i := 0; i < width; i++ {
			writeHexByte(buf, all[i])
		}
	} else {
		for i := width - 1; i >= 0; i-- {
			writeHexByte(buf, all[i])
		}
	}
}

// decodeUintBytes is the counterpart to encodeUint: it decodes
// byteWidth bytes' worth of hex characters from buf in the given
// endianness back into a uint64.
func decodeUintBytes(buf *ByteBuffer, byteWidth int, littleEndian bool) (uint64, bool) {
	raw, ok := buf.Read(byteWidth * 2)
	if !ok {
		return 0, false
	}
	var n uint64
	if littleEndian {
		for i := byteWidth - 1; i >= 0; i-- {
			b, ok := decodeByte(raw[i*2], raw[i*2+1])
			if !ok {
				return 0, false
			}
			n = n<<8 | uint64(b)
		}
	} else {
		for i := 0; i < byteWidth; i++ {
			b, ok := decodeByte(raw[i*2], raw[i*2+1])
			if !ok {
				return 0, false
			}
			n = n<<8 | uint64(b)
		}
	}
	return n, true
}

func writeHexByte(buf *ByteBuffer, b byte) {
	buf.WriteByte(encodeNybble(b >> 4))
	buf.WriteByte(encodeNybble(b & 0xf))
}

// encodeBytes writes each byte of p as two hex characters.
func encodeBytes(buf *ByteBuffer, p []byte) {
	for _, b := range p {
		writeHexByte(buf, b)
	}
}

// encodeString writes the UTF-8 bytes of s as hex, byte by byte.
func encodeString(buf *ByteBuffer, s string) {
	encodeBytes(buf, []byte(s))
}

// hexEncodeToString is a convenience wrapper used by components that
// just need a hex string rather than writing into a ByteBuffer.
func hexEncodeToString(p []byte) string {
	buf := NewByteBuffer()
	encodeBytes(buf, p)
	return buf.GetString()
}
