package rsp

// StopType identifies the shape of a GDB stop-reply packet.
type StopType int

const (
	StopSignal StopType = iota
	StopSignalExtended
	StopProcessExited
	StopProcessTerminated
	StopOutput
)

// letter returns the RSP packet identifier for a stop type.
func (t StopType) letter() byte {
	switch t {
	case StopSignal:
		return 'S'
	case StopSignalExtended:
		return 'T'
	case StopProcessExited:
		return 'W'
	case StopProcessTerminated:
		return 'X'
	case StopOutput:
		return 'O'
	default:
		return 'U'
	}
}

// StopReason is a tagged record encoding a GDB stop-reply packet.
type StopReason struct {
	Type       StopType
	Code       uint8
	Additional string
}

// breakpointStopReason is the canonical "hit a software breakpoint"
// reply shared by every breakpoint/step halt, matching the original
// stub's single shared instance.
func breakpointStopReason() StopReason {
	return StopReason{
		Type:       StopSignalExtended,
		Code:       5,
		Additional: "swbreak:;thread:p1.1;core:1;",
	}
}

// Encode writes the packet payload for this stop reason into buf:
// the type letter, then (unless this is an Output reason) two hex
// digits of Code, then Additional verbatim.
func (r StopReason) Encode(buf *ByteBuffer) {
	buf.WriteByte(r.Type.letter())
	if r.Type != StopOutput {
		encodeUint(buf, uint64(r.Code), 1, true)
	}
	buf.WriteString(r.Additional)
}

// EncodeString is a convenience wrapper returning the encoded packet
// payload as a string.
func (r StopReason) EncodeString() string {
	buf := NewByteBuffer()
	r.Encode(buf)
	return buf.GetString()
}
