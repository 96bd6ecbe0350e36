package rsp

import (
	"fmt"
	"strings"
)

// xferObject is a readable (and sometimes writable) qXfer data
// source, identified by object name (e.g. "features", "libraries").
type xferObject interface {
	// read returns the chunk of data covering [offset, offset+length)
	// of the object's current content for annex, along with whether
	// this chunk reaches the end of the data (leading 'l') or not
	// (leading 'm'). ok is false if annex is not recognized.
	read(annex string, offset, length uint64) (chunk []byte, atEnd bool, ok bool)
	// writable reports whether this object accepts qXfer writes.
	writable() bool
}

// readOnlyStringXferObject serves a single fixed document, ignoring
// annex (used for "libraries" and similar singleton objects).
type readOnlyStringXferObject struct {
	generate func() string
}

func (o *readOnlyStringXferObject) read(annex string, offset, length uint64) ([]byte, bool, bool) {
	if annex != "" {
		return nil, false, false
	}
	return sliceDocument(o.generate(), offset, length)
}

func (o *readOnlyStringXferObject) writable() bool { return false }

// featuresXferObject serves target.xml / gb-core.xml, keyed by annex.
type featuresXferObject struct {
	registers []RegisterInfo
}

func (o *featuresXferObject) read(annex string, offset, length uint64) ([]byte, bool, bool) {
	var doc string
	switch annex {
	case "target.xml":
		doc = `<?xml version="1.0"?><!DOCTYPE target SYSTEM "gdb-target.dtd">` +
			`<target><architecture>z80</architecture><xi:include href="gb-core.xml"/></target>`
	case "gb-core.xml":
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><!DOCTYPE target SYSTEM "gdb-target.dtd">`)
		b.WriteString(`<feature name="org.gnu.gdb.z80.core">`)
		for i, reg := range o.registers {
			fmt.Fprintf(&b, `<reg name="%s" bitsize="%d" type="%s" regnum="%d" group="general"/>`,
				reg.Name, reg.Bitsize, reg.Kind.xmlType(reg.Bitsize), i)
		}
		b.WriteString(`</feature>`)
		doc = b.String()
	default:
		return nil, false, false
	}
	return sliceDocument(doc, offset, length)
}

func (o *featuresXferObject) writable() bool { return false }

// sliceDocument implements the offset/length chunking contract shared
// by every qXfer read: an 'l' marker means this chunk reaches the end
// of the document, 'm' means more remains. The returned chunk itself
// does not include the marker byte; callers prepend it.
func sliceDocument(doc string, offset, length uint64) ([]byte, bool, bool) {
	data := []byte(doc)
	total := uint64(len(data))
	if offset >= total {
		return nil, true, true
	}
	end := offset + length
	if end > total {
		end = total
	}
	return data[offset:end], end >= total, true
}

// newXferObjects builds the stub's qXfer object table: features
// (target.xml/gb-core.xml), libraries (always-empty library list),
// and exec-file (the running image's synthetic path) — the latter two
// supplementing spec.md's explicit feature/libraries pair with the
// original source's "any named object may be queried" posture.
func newXferObjects(registers []RegisterInfo) map[string]xferObject {
	return map[string]xferObject{
		"features": &featuresXferObject{registers: registers},
		"libraries": &readOnlyStringXferObject{
			generate: func() string { return "<library-list></library-list>" },
		},
		"exec-file": &readOnlyStringXferObject{
			generate: func() string { return "/rom.gb" },
		},
	}
}
