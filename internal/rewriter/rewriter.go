// Package rewriter implements C6: it takes a planner ChangeSet and a set
// of parsed cst.Files and produces the edited source text, in two passes.
// Pass 1 touches every module body — adding ports, wires, assigns, and
// pipeline-register blocks, and substituting XMR surface text with the
// synthesized port/wire reference. Pass 2 touches every instance
// connection list, appending the new bindings pass 1's ports require.
// The two passes are kept separate because pass 2 needs pass 1's full set
// of port names decided first: an instance can be connected to a sibling
// module's newly synthesized port only once that port's name is fixed.
package rewriter

import (
	"fmt"
	"strings"

	"github.com/hdltools/xmr-eliminate/internal/ast"
	"github.com/hdltools/xmr-eliminate/internal/cst"
	"github.com/hdltools/xmr-eliminate/internal/planner"
)

// FileError names the file whose rewrite failed and why. Per the
// rewriting-errors recovery policy (§7), a failure in one file never
// aborts the batch: every other file still gets its edits applied, and
// the caller is expected to leave only the named file's output empty.
type FileError struct {
	Path string
	Err  error
}

func (fe FileError) Error() string { return fmt.Sprintf("%s: %v", fe.Path, fe.Err) }

// Rewrite applies cs to every file in files, consulting design for the
// ANSI/non-ANSI/no-port-list shape of each touched module, and returns
// the rewritten file contents keyed by path. Files with nothing to change
// are omitted. Each file is rewritten independently: one file's failure
// is reported as a FileError and does not prevent the others from being
// rewritten and returned.
func Rewrite(design *ast.Design, files []*cst.File, cs *planner.ChangeSet) (map[string][]byte, []FileError) {
	out := make(map[string][]byte)
	var errs []FileError

	for _, f := range files {
		edits, touched, err := passOneEdits(design, f, cs)
		if err != nil {
			errs = append(errs, FileError{Path: f.Path, Err: err})
			continue
		}
		edits2, touched2 := passTwoEdits(f, cs)
		edits = append(edits, edits2...)
		if touched || touched2 {
			out[f.Path] = cst.Apply(f.Source, edits)
		}
	}
	return out, errs
}

// passOneEdits builds every module-body edit for one file: XMR text
// substitution, new ports, new wires, new assigns, and pipeline-register
// blocks. It returns an error if the planner staged a replacement whose
// surface span this file's CST has no record of — a planner/CST
// inconsistency that leaves the file unsafe to edit.
func passOneEdits(design *ast.Design, f *cst.File, cs *planner.ChangeSet) ([]cst.Edit, bool, error) {
	var edits []cst.Edit
	touched := false

	for i := range f.Modules {
		mod := &f.Modules[i]
		modDef := design.Modules[mod.Name]

		for key, replacement := range cs.XMRReplacements {
			if key.SourceModule != mod.Name {
				continue
			}
			span, ok := findSpan(modDef, key.FullPath)
			if !ok {
				return nil, false, fmt.Errorf("rewriter: no surface span recorded for %q in module %q", key.FullPath, mod.Name)
			}
			edits = append(edits, cst.Edit{At: span.Start, End: span.End, Text: replacement})
			touched = true
		}

		var newPortsANSI []string
		var newPortsNonANSI []string
		for _, p := range cs.PortAdds {
			if p.Module != mod.Name || (modDef != nil && modDef.HasPort(p.Name)) {
				continue
			}
			decl := portDecl(p)
			if ast.PortListKind(mod.HeaderPortListKind) == ast.PortListNonANSI {
				newPortsNonANSI = append(newPortsNonANSI, decl)
			} else {
				newPortsANSI = append(newPortsANSI, decl)
			}
		}
		if len(newPortsANSI) > 0 {
			edits = append(edits, headerPortEdits(mod, newPortsANSI)...)
			touched = true
		}
		if len(newPortsNonANSI) > 0 {
			edits = append(edits, nonANSIPortEdits(mod, cs, newPortsNonANSI)...)
			touched = true
		}

		var frontLines []string
		for _, w := range cs.WireAdds {
			if w.Module != mod.Name || (modDef != nil && modDef.HasSignal(w.Name)) {
				continue
			}
			frontLines = append(frontLines, fmt.Sprintf("  wire %s%s;\n", widthSpec(w.Width), w.Name))
		}
		if len(frontLines) > 0 {
			edits = append(edits, cst.Edit{At: mod.BodyInsertFront, Text: strings.Join(frontLines, "")})
			touched = true
		}

		var backLines []string
		for _, a := range cs.AssignAdds {
			if a.Module != mod.Name {
				continue
			}
			backLines = append(backLines, fmt.Sprintf("  assign %s = %s;\n", a.LHS, a.RHS))
		}
		for _, pr := range cs.PipelineRegAdds {
			if pr.Module != mod.Name {
				continue
			}
			backLines = append(backLines, pipelineRegisterBlock(pr))
		}
		if len(backLines) > 0 {
			edits = append(edits, cst.Edit{At: mod.BodyInsertBack, Text: strings.Join(backLines, ""), Order: 1})
			touched = true
		}
	}

	return edits, touched, nil
}

// passTwoEdits builds every instance-connection edit for one file.
func passTwoEdits(f *cst.File, cs *planner.ChangeSet) ([]cst.Edit, bool) {
	var edits []cst.Edit
	touched := false

	for i := range f.Modules {
		mod := &f.Modules[i]
		for j := range mod.Instances {
			inst := &mod.Instances[j]
			var bindings []string
			for _, c := range cs.ConnectionAdds {
				if c.Module != mod.Name || c.InstanceName != inst.InstanceName {
					continue
				}
				bindings = append(bindings, fmt.Sprintf(".%s(%s)", c.PortName, c.Expr))
			}
			if len(bindings) == 0 {
				continue
			}
			text := strings.Join(bindings, ", ")
			if inst.HasExistingConnections {
				text = ", " + text
			}
			edits = append(edits, cst.Edit{At: inst.ConnectionsInsertAt, Text: text})
			touched = true
		}
	}
	return edits, touched
}

// findSpan locates an XMR's surface-text span inside modDef's recorded
// hierarchical references.
func findSpan(modDef *ast.Module, fullPath string) (cst.Span, bool) {
	if modDef == nil {
		return cst.Span{}, false
	}
	for _, ref := range modDef.HierRefs {
		if ref.FullPathText == fullPath {
			return cst.Span{Start: ref.SpanStart, End: ref.SpanEnd}, true
		}
	}
	return cst.Span{}, false
}

func widthSpec(width int) string {
	if width > 1 {
		return fmt.Sprintf("[%d:0] ", width-1)
	}
	return ""
}

func portDecl(p planner.PortAdd) string {
	return fmt.Sprintf("%s wire %s%s", p.Direction, widthSpec(p.Width), p.Name)
}

// headerPortEdits splices new ANSI port declarations into an existing
// ANSI port list, or rewrites the header in full when the module
// currently declares no port list at all.
func headerPortEdits(mod *cst.Module, decls []string) []cst.Edit {
	joined := ", " + strings.Join(decls, ", ")
	if ast.PortListKind(mod.HeaderPortListKind) == ast.PortListNone {
		return []cst.Edit{{
			At:   mod.HeaderRewriteSpan.Start,
			End:  mod.HeaderRewriteSpan.End,
			Text: fmt.Sprintf("module %s(%s)", mod.Name, strings.Join(decls, ", ")),
		}}
	}
	return []cst.Edit{{At: mod.PortListInsertAt, Text: joined}}
}

// nonANSIPortEdits appends bare names to the header port list and the
// matching direction declarations to the module body, for modules that
// declare ports the older non-ANSI way.
func nonANSIPortEdits(mod *cst.Module, cs *planner.ChangeSet, decls []string) []cst.Edit {
	var bareNames []string
	var bodyDecls []string
	for _, p := range cs.PortAdds {
		if p.Module != mod.Name {
			continue
		}
		bareNames = append(bareNames, p.Name)
		bodyDecls = append(bodyDecls, fmt.Sprintf("  %s wire %s%s;\n", p.Direction, widthSpec(p.Width), p.Name))
	}
	edits := []cst.Edit{
		{At: mod.PortListInsertAt, Text: ", " + strings.Join(bareNames, ", ")},
		{At: mod.BodyInsertFront, Text: strings.Join(bodyDecls, "")},
	}
	return edits
}

// pipelineRegisterBlock renders a staged flip-flop chain plus the
// trailing continuous assign that feeds the port, matching the
// convention: one clocked block holding every stage, reset branch zeroing
// all stages, followed by a separate assign outside the always block
// (§4.6).
func pipelineRegisterBlock(pr planner.PipelineRegAdd) string {
	var b strings.Builder
	w := widthSpec(pr.Width)

	for i := 0; i < pr.Stages; i++ {
		fmt.Fprintf(&b, "  reg %s%s_pipe_%d;\n", w, pr.OutputName, i)
	}

	resetEdgeKeyword := "posedge"
	resetTest := pr.ResetName
	if pr.ResetActiveLow {
		resetEdgeKeyword = "negedge"
		resetTest = fmt.Sprintf("!%s", pr.ResetName)
	}

	fmt.Fprintf(&b, "  always @(posedge %s or %s %s) begin\n", pr.ClockName, resetEdgeKeyword, pr.ResetName)
	fmt.Fprintf(&b, "    if (%s) begin\n", resetTest)
	for i := 0; i < pr.Stages; i++ {
		fmt.Fprintf(&b, "      %s_pipe_%d <= '0;\n", pr.OutputName, i)
	}
	fmt.Fprintf(&b, "    end else begin\n")
	fmt.Fprintf(&b, "      %s_pipe_0 <= %s;\n", pr.OutputName, pr.InputExpr)
	for i := 1; i < pr.Stages; i++ {
		fmt.Fprintf(&b, "      %s_pipe_%d <= %s_pipe_%d;\n", pr.OutputName, i, pr.OutputName, i-1)
	}
	fmt.Fprintf(&b, "    end\n  end\n")
	fmt.Fprintf(&b, "  assign %s = %s_pipe_%d;\n", pr.OutputName, pr.OutputName, pr.Stages-1)

	return b.String()
}
