package rsp

// Breakpoint is a single software breakpoint entry. Uses == -1 means
// sticky (never auto-removed); Uses >= 1 is a one-shot countdown that
// fires and is removed when it reaches zero hits remaining.
type Breakpoint struct {
	Address uint32
	Uses    int64
	Enabled bool
}

// NewBreakpoint returns a sticky, enabled breakpoint at address.
func NewBreakpoint(address uint32) *Breakpoint {
	return &Breakpoint{Address: address, Uses: -1, Enabled: true}
}

// NewBreakpointWithUses returns an enabled breakpoint with an explicit
// one-shot countdown.
func NewBreakpointWithUses(address uint32, uses int64) *Breakpoint {
	return &Breakpoint{Address: address, Uses: uses, Enabled: true}
}

// breakpointTable maps an address to the ordered list of breakpoints
// registered there. Insertion order is preserved so that removal can
// target a specific entry, and operations act on the stored slice by
// reference rather than a copy — the original C++ debugger's
// RemoveBreakpoint took its per-address vector by value, mutated the
// copy, and discarded it, leaving the real table untouched. This is
// fixed here: every method below mutates the map's stored slice
// directly.
type breakpointTable struct {
	byAddress map[uint32][]*Breakpoint
}

func newBreakpointTable() *breakpointTable {
	return &breakpointTable{byAddress: make(map[uint32][]*Breakpoint)}
}

// Add appends bp to the list at its address.
func (t *breakpointTable) Add(bp *Breakpoint) {
	t.byAddress[bp.Address] = append(t.byAddress[bp.Address], bp)
}

// Remove erases bp (by identity) from the list at its address, if
// present.
func (t *breakpointTable) Remove(bp *Breakpoint) {
	list := t.byAddress[bp.Address]
	for i, cur := range list {
		if cur == bp {
			t.byAddress[bp.Address] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// RemoveAll clears every breakpoint registered at address.
func (t *breakpointTable) RemoveAll(address uint32) {
	delete(t.byAddress, address)
}

// At returns the breakpoints registered at address, without copying
// the backing slice (callers must not retain it across mutation).
func (t *breakpointTable) At(address uint32) []*Breakpoint {
	return t.byAddress[address]
}
