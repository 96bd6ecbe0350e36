package rsp

import "testing"

func TestBreakpointTableAddAndAt(t *testing.T) {
	tbl := newBreakpointTable()
	bp := NewBreakpoint(0x150)
	tbl.Add(bp)

	got := tbl.At(0x150)
	if len(got) != 1 || got[0] != bp {
		t.Fatalf("At(0x150) = %v, want [bp]", got)
	}
}

func TestBreakpointTableRemoveMutatesStoredSlice(t *testing.T) {
	tbl := newBreakpointTable()
	a := NewBreakpoint(0x100)
	b := NewBreakpoint(0x100)
	tbl.Add(a)
	tbl.Add(b)

	tbl.Remove(a)

	got := tbl.At(0x100)
	if len(got) != 1 || got[0] != b {
		t.Fatalf("At(0x100) after removing a = %v, want [b]", got)
	}
}

func TestBreakpointTableRemoveAll(t *testing.T) {
	tbl := newBreakpointTable()
	tbl.Add(NewBreakpoint(0x200))
	tbl.Add(NewBreakpoint(0x200))
	tbl.RemoveAll(0x200)

	if got := tbl.At(0x200); len(got) != 0 {
		t.Fatalf("At(0x200) after RemoveAll = %v, want empty", got)
	}
}

func TestBreakpointWithUsesCountsDown(t *testing.T) {
	bp := NewBreakpointWithUses(0x300, 2)
	if bp.Uses != 2 || !bp.Enabled {
		t.Fatalf("NewBreakpointWithUses = %+v, want Uses=2 Enabled=true", bp)
	}
}
