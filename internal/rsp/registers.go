package rsp

import (
	"strconv"

	"github.com/flagbot/gbstub/internal/gbcpu"
)

// RegisterKind distinguishes the GDB target-description register
// types advertised in gb-core.xml.
type RegisterKind int

const (
	RegisterInteger RegisterKind = iota
	RegisterDataPtr
	RegisterCodePtr
)

// xmlType returns the "type" attribute GDB expects for this kind at
// the given bit size.
func (k RegisterKind) xmlType(bitsize int) string {
	switch k {
	case RegisterDataPtr:
		return "data_ptr"
	case RegisterCodePtr:
		return "code_ptr"
	default:
		return "uint" + strconv.Itoa(bitsize)
	}
}

// RegisterInfo describes one entry of the advertised register table:
// its wire name, GDB type, bit width, and accessors into a CPU. The
// table preserves the original debugger's order (a, b, c, d, e, sp,
// pc, h, l) for wire compatibility, which puts pc at regnum 6 rather
// than a more conventional position.
type RegisterInfo struct {
	Name    string
	Kind    RegisterKind
	Bitsize int
	Get     func(c *gbcpu.CPU) uint64
	Set     func(c *gbcpu.CPU, v uint64)
}

// ByteWidth is ceil(Bitsize/8).
func (r RegisterInfo) ByteWidth() int {
	return (r.Bitsize + 7) / 8
}

// RegisterTable is the advertised target description, in wire order.
// G/P register writes are wired through Set but never invoked by the
// dispatcher (spec leaves register writes inert); the table stays
// complete so flipping that on later is a one-line change.
var RegisterTable = []RegisterInfo{
	{"a", RegisterInteger, 8, func(c *gbcpu.CPU) uint64 { return uint64(c.A) }, func(c *gbcpu.CPU, v uint64) { c.A = uint8(v) }},
	{"b", RegisterInteger, 8, func(c *gbcpu.CPU) uint64 { return uint64(c.B) }, func(c *gbcpu.CPU, v uint64) { c.B = uint8(v) }},
	{"c", RegisterInteger, 8, func(c *gbcpu.CPU) uint64 { return uint64(c.C) }, func(c *gbcpu.CPU, v uint64) { c.C = uint8(v) }},
	{"d", RegisterInteger, 8, func(c *gbcpu.CPU) uint64 { return uint64(c.D) }, func(c *gbcpu.CPU, v uint64) { c.D = uint8(v) }},
	{"e", RegisterInteger, 8, func(c *gbcpu.CPU) uint64 { return uint64(c.E) }, func(c *gbcpu.CPU, v uint64) { c.E = uint8(v) }},
	{"sp", RegisterDataPtr, 16, func(c *gbcpu.CPU) uint64 { return uint64(c.SP) }, func(c *gbcpu.CPU, v uint64) { c.SP = uint16(v) }},
	{"pc", RegisterCodePtr, 16, func(c *gbcpu.CPU) uint64 { return uint64(c.PC) }, func(c *gbcpu.CPU, v uint64) { c.PC = uint16(v) }},
	{"h", RegisterInteger, 8, func(c *gbcpu.CPU) uint64 { return uint64(c.H) }, func(c *gbcpu.CPU, v uint64) { c.H = uint8(v) }},
	{"l", RegisterInteger, 8, func(c *gbcpu.CPU) uint64 { return uint64(c.L) }, func(c *gbcpu.CPU, v uint64) { c.L = uint8(v) }},
}
