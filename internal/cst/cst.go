// Package cst holds the preserved concrete syntax the rewriter edits.
// Rather than mutate an in-memory syntax tree node by node, the engine
// collects a set of byte-range edits against the original source text and
// applies them in one pass — the idiom that keeps unchanged tokens,
// whitespace, and comments round-tripping byte-faithfully (§8.1).
package cst

import (
	"fmt"
	"sort"
	"strings"
)

// Span is a half-open byte range [Start, End) into a File's Source.
type Span struct {
	Start, End int
}

// Instance is the concrete-syntax view of one module instantiation: enough
// for pass 2 (§4.7) to append named port-connection bindings.
type Instance struct {
	TypeName     string
	InstanceName string
	// ConnectionsInsertAt is the byte offset just before the closing paren
	// of the instance's connection list.
	ConnectionsInsertAt int
	// HasExistingConnections is true when the instance already binds at
	// least one port, so a new binding needs a leading comma.
	HasExistingConnections bool
}

// Module is the concrete-syntax view of one module declaration.
type Module struct {
	Name string

	// HeaderPortListKind mirrors ast.PortListKind; it decides how new
	// ports are spliced into the header versus the body (§4.5).
	HeaderPortListKind int

	// PortListInsertAt is the byte offset at which a new ANSI port is
	// appended (just before the port list's closing paren). Unused when
	// the module has no port list at all.
	PortListInsertAt int

	// HeaderRewriteSpan covers the "module name" text of the header (not
	// its ";" terminator), for the PortListNone case where the header
	// itself must be rewritten to introduce a port list.
	HeaderRewriteSpan Span

	// BodyInsertFront is the offset immediately after the header
	// terminator, where wires and non-ANSI port declarations are
	// prepended.
	BodyInsertFront int

	// BodyInsertBack is the offset immediately before "endmodule", where
	// assigns and pipeline-register blocks are appended.
	BodyInsertBack int

	Instances []Instance
}

// File is one input source file's preserved text plus the module spans
// discovered in it.
type File struct {
	Path    string
	Source  []byte
	Modules []Module
}

// ModuleByName finds a module's concrete-syntax record by its definition
// name, or nil.
func (f *File) ModuleByName(name string) *Module {
	for i := range f.Modules {
		if f.Modules[i].Name == name {
			return &f.Modules[i]
		}
	}
	return nil
}

// Edit is one textual insertion or replacement to apply to a File.
type Edit struct {
	// At is the insertion point for inserts, or the replaced span's start
	// for replacements.
	At int
	// End, when greater than At, marks this as a replacement of [At, End)
	// rather than a pure insertion at At.
	End int
	// Text is the text to insert or substitute.
	Text string
	// Order breaks ties between edits at the same offset: lower Order is
	// emitted first. Needed when a front-insert and a header-rewrite both
	// land on the same byte.
	Order int
}

// Apply renders src with all edits applied. Edits are sorted by (At,
// Order), keeping input order for ties, and must not overlap except at zero-width insertion points, which
// are concatenated in Order.
func Apply(src []byte, edits []Edit) []byte {
	if len(edits) == 0 {
		return src
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].At != sorted[j].At {
			return sorted[i].At < sorted[j].At
		}
		return sorted[i].Order < sorted[j].Order
	})

	var b strings.Builder
	cursor := 0
	for _, e := range sorted {
		if e.At < cursor {
			// Overlapping edit: should not happen for a well-formed plan;
			// skip rather than corrupt already-emitted text.
			continue
		}
		b.Write(src[cursor:e.At])
		b.WriteString(e.Text)
		if e.End > e.At {
			cursor = e.End
		} else {
			cursor = e.At
		}
	}
	b.Write(src[cursor:])
	return []byte(b.String())
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}
