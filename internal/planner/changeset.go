// Package planner implements C5, the central algorithm: it turns each
// detected XMR plus its routed instance chain into a module-agnostic
// ChangeSet describing every port, wire, assign, instance connection, and
// pipeline register the rewriter needs to add, and the literal text
// substitution that replaces the XMR's surface syntax.
package planner

import (
	"fmt"
	"sort"

	"github.com/hdltools/xmr-eliminate/internal/ast"
	"github.com/hdltools/xmr-eliminate/internal/xmrmodel"
)

// PortAdd is a new port to splice into a module's header (and, for
// non-ANSI modules, its body direction declaration).
type PortAdd struct {
	Module    string
	Name      string
	Direction ast.PortDirection
	Width     int
}

// WireAdd is a new internal net to declare in a module's body.
type WireAdd struct {
	Module string
	Name   string
	Width  int
}

// AssignAdd is a new continuous assignment to append to a module's body.
type AssignAdd struct {
	Module string
	LHS    string
	RHS    string
}

// ConnectionAdd is a new named port binding to append to one instance's
// connection list.
type ConnectionAdd struct {
	Module       string // the module doing the instantiating
	InstanceName string
	PortName     string
	Expr         string
}

// PipelineRegAdd describes a staged-register chain feeding a final
// continuous assignment, replacing a plain AssignAdd for the same signal
// when pipeline registers are configured (§4.4 step G, §4.6).
type PipelineRegAdd struct {
	Module         string
	OutputName     string
	InputExpr      string
	Width          int
	Stages         int
	ClockName      string
	ResetName      string
	ResetActiveLow bool
}

// ReplKey identifies one XMR's surface text within its source module, the
// key the rewriter uses to look up its replacement expression.
type ReplKey struct {
	SourceModule string
	FullPath     string
}

// ChangeSet is the planner's complete output: every edit the rewriter
// needs to apply across every module touched by at least one XMR.
type ChangeSet struct {
	PortAdds        []PortAdd
	WireAdds        []WireAdd
	AssignAdds      []AssignAdd
	ConnectionAdds  []ConnectionAdd
	PipelineRegAdds []PipelineRegAdd
	XMRReplacements map[ReplKey]string
	Errors          []xmrmodel.PlanningError
}

func newChangeSet() *ChangeSet {
	return &ChangeSet{XMRReplacements: make(map[ReplKey]string)}
}

// merge folds other's port/wire/connection additions into cs. other is
// always one XMR's own isolated fragment, and Plan only ever builds one
// fragment per distinct (source_module, base_path) — see baseKey — so
// merge itself does no deduplication; the rewriter's HasPort/HasSignal
// checks remain a second line of defense against a base path the
// original design already declares a port/signal for.
func (cs *ChangeSet) merge(other *ChangeSet) {
	cs.PortAdds = append(cs.PortAdds, other.PortAdds...)
	cs.WireAdds = append(cs.WireAdds, other.WireAdds...)
	cs.AssignAdds = append(cs.AssignAdds, other.AssignAdds...)
	cs.ConnectionAdds = append(cs.ConnectionAdds, other.ConnectionAdds...)
	cs.PipelineRegAdds = append(cs.PipelineRegAdds, other.PipelineRegAdds...)
	for k, v := range other.XMRReplacements {
		cs.XMRReplacements[k] = v
	}
	cs.Errors = append(cs.Errors, other.Errors...)
}

// sortForDeterminism orders every slice so two runs over the same input
// produce byte-identical ChangeSets (§8.1).
func (cs *ChangeSet) sortForDeterminism() {
	sort.Slice(cs.PortAdds, func(i, j int) bool {
		return lessPort(cs.PortAdds[i], cs.PortAdds[j])
	})
	sort.Slice(cs.WireAdds, func(i, j int) bool {
		return key2(cs.WireAdds[i].Module, cs.WireAdds[i].Name) < key2(cs.WireAdds[j].Module, cs.WireAdds[j].Name)
	})
	sort.Slice(cs.AssignAdds, func(i, j int) bool {
		return key2(cs.AssignAdds[i].Module, cs.AssignAdds[i].LHS) < key2(cs.AssignAdds[j].Module, cs.AssignAdds[j].LHS)
	})
	sort.Slice(cs.ConnectionAdds, func(i, j int) bool {
		a, b := cs.ConnectionAdds[i], cs.ConnectionAdds[j]
		return key3(a.Module, a.InstanceName, a.PortName) < key3(b.Module, b.InstanceName, b.PortName)
	})
	sort.Slice(cs.PipelineRegAdds, func(i, j int) bool {
		return key2(cs.PipelineRegAdds[i].Module, cs.PipelineRegAdds[i].OutputName) <
			key2(cs.PipelineRegAdds[j].Module, cs.PipelineRegAdds[j].OutputName)
	})
	sort.Slice(cs.Errors, func(i, j int) bool { return cs.Errors[i].XMRKey < cs.Errors[j].XMRKey })
}

func lessPort(a, b PortAdd) bool { return key2(a.Module, a.Name) < key2(b.Module, b.Name) }
func key2(a, b string) string    { return a + "\x00" + b }
func key3(a, b, c string) string { return a + "\x00" + b + "\x00" + c }

func (rk ReplKey) String() string { return fmt.Sprintf("%s::%s", rk.SourceModule, rk.FullPath) }
