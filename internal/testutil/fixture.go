// Package testutil builds ast.Design and cst.File values for detector,
// planner, rewriter, and engine tests without a real SystemVerilog
// parser. Source text carries marker comments the builder strips out
// after recording their byte offsets, so a test fixture can name its own
// insertion points instead of the suite recomputing them by hand.
//
// Recognized markers (a newline directly after a marker is removed with
// it):
//
//	//PORTLIST_INSERT      -- PortListInsertAt for the enclosing module
//	//BODY_FRONT           -- BodyInsertFront for the enclosing module
//	//BODY_BACK            -- BodyInsertBack for the enclosing module
//	//CONN:<instanceName>  -- ConnectionsInsertAt for that instance
package testutil

import (
	"sort"
	"strings"

	"github.com/hdltools/xmr-eliminate/internal/cst"
)

// ModuleSpec describes one module's fixture: its source text (with marker
// comments) and the AST-level facts the detector/planner need that the
// text alone does not encode.
type ModuleSpec struct {
	Name               string
	Source             string
	HeaderPortListKind int
	HasExistingConns   map[string]bool   // instanceName -> already has >=1 connection
	Instances          map[string]string // instanceName -> module type, for wiring cst.Instance records
}

// BuildFile assembles one cst.File from a list of module fragments,
// concatenated in order with a blank line between them, resolving every
// marker comment against the concatenated source's byte offsets.
func BuildFile(path string, specs []ModuleSpec) *cst.File {
	f := &cst.File{Path: path}

	var b strings.Builder
	for _, spec := range specs {
		offset := b.Len()
		text := spec.Source

		mod := cst.Module{
			Name:               spec.Name,
			HeaderPortListKind: spec.HeaderPortListKind,
		}

		text, mod.PortListInsertAt = consumeMarker(text, "//PORTLIST_INSERT", offset)
		text, mod.BodyInsertFront = consumeMarker(text, "//BODY_FRONT", offset)

		// Markers are consumed in source order so that removing one never
		// shifts an offset already recorded: the CONN markers in the order
		// they appear, then the BODY_BACK marker that follows them.
		insts := make([]string, 0, len(spec.Instances))
		for inst := range spec.Instances {
			insts = append(insts, inst)
		}
		sort.Slice(insts, func(i, j int) bool {
			return strings.Index(text, "//CONN:"+insts[i]) < strings.Index(text, "//CONN:"+insts[j])
		})
		for _, inst := range insts {
			text2, at := consumeMarker(text, "//CONN:"+inst, offset)
			text = text2
			mod.Instances = append(mod.Instances, cst.Instance{
				TypeName:               spec.Instances[inst],
				InstanceName:           inst,
				ConnectionsInsertAt:    at,
				HasExistingConnections: spec.HasExistingConns[inst],
			})
		}
		text, mod.BodyInsertBack = consumeMarker(text, "//BODY_BACK", offset)

		b.WriteString(text)
		b.WriteString("\n\n")
		f.Modules = append(f.Modules, mod)
	}

	f.Source = []byte(b.String())
	return f
}

// consumeMarker removes the first occurrence of marker (and its newline)
// from text, returning the edited text and the byte offset — relative to
// baseOffset, i.e. where the marker would have started in the final
// concatenated file — at which it was found. Returns -1 if the marker is
// absent.
func consumeMarker(text, marker string, baseOffset int) (string, int) {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return text, -1
	}
	end := idx + len(marker)
	if end < len(text) && text[end] == '\n' {
		end++
	}
	edited := text[:idx] + text[end:]
	return edited, baseOffset + idx
}
