// Package ast exposes the minimal surface the XMR-elimination engine needs
// from a compiled SystemVerilog design. It is an adapter layer: the real
// parser and elaborator are external collaborators (see the project's
// scope notes); this package only describes the shape of what they hand
// back in terms of module definitions, an instance tree, and hierarchical
// references already annotated with their target symbol and traversal
// path.
package ast

// SymbolKind is a closed tagged variant over the three kinds of symbol the
// engine ever needs to reason about. Open interface-based polymorphism
// would let new kinds leak in unnoticed; a closed enum keeps switches
// exhaustive.
type SymbolKind int

const (
	SymbolInstance SymbolKind = iota
	SymbolVariable
	SymbolModuleDef
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolInstance:
		return "instance"
	case SymbolVariable:
		return "variable"
	case SymbolModuleDef:
		return "module"
	default:
		return "unknown"
	}
}

// PortListKind records the syntactic shape of a module's port list, which
// determines how the rewriter injects new ports (see §4.5).
type PortListKind int

const (
	// PortListANSI means ports are declared with inline directions in the
	// module header, e.g. "module m(output wire [7:0] y);".
	PortListANSI PortListKind = iota
	// PortListNonANSI means the header lists bare names and the body
	// carries separate direction declarations.
	PortListNonANSI
	// PortListNone means the header carries no port list at all.
	PortListNone
)

// PortDirection mirrors the three directions the engine ever synthesizes or
// inspects. SystemVerilog's "buffer"/"ref" directions are out of scope.
type PortDirection string

const (
	DirInput  PortDirection = "input"
	DirOutput PortDirection = "output"
	DirInout  PortDirection = "inout"
)

// Port is an existing port on a module definition.
type Port struct {
	Name      string
	Direction PortDirection
	Width     int
}

// Signal is a variable or net declared inside a module, reachable as the
// target of a hierarchical reference.
type Signal struct {
	Name  string
	Width int
}

// PathElem is one element of a resolved hierarchical-reference path, as the
// elaborator's resolver would hand it back: a symbol plus its kind. The
// detector keeps only the SymbolInstance elements (§4.2 step 4).
type PathElem struct {
	Name string
	Kind SymbolKind
}

// RawHierRef is the elaborator's pre-digested form of one hierarchical
// reference reachable inside an instance body: enough for the detector to
// build an XMRInfo without re-deriving scope-resolution semantics itself.
type RawHierRef struct {
	// FullPathText is the verbatim surface text of the expression,
	// including any array/bit-select suffix.
	FullPathText string

	// Path is the resolver's path list, in source order, as produced by
	// walking up and back down the scope chain. It may contain a leading
	// self-reference element that the detector strips.
	Path []PathElem

	// TargetSignal is the symbol the reference ultimately resolves to.
	TargetSignal string

	// TargetModuleDef is the definition name of the module that declares
	// TargetSignal, as resolved by walking the instance tree — the last
	// instance symbol kept in Path, one hop further down. Empty when the
	// resolver could not walk the path to a concrete module (a dangling
	// hierarchy segment), in which case the detector falls back to a
	// weaker placeholder.
	TargetModuleDef string

	// TargetWidth is the bit width of the target symbol's declared type,
	// not of the (possibly sliced) reference expression.
	TargetWidth int

	// UpwardCount is the number of lexical scope levels the resolver
	// climbed before descending. Zero means a purely downward reference.
	UpwardCount int

	// IsWriteContext is true when the elaborator has already determined
	// this reference is the target of a procedural/continuous assignment,
	// or the actual argument bound to an output/inout subroutine formal
	// (with any implicit assignment wrapper already unwrapped).
	IsWriteContext bool

	// SpanStart/SpanEnd are byte offsets into the owning module's source
	// text, used by the rewriter to splice in a replacement expression.
	SpanStart, SpanEnd int
}

// Module is one module definition in the compiled design.
type Module struct {
	Name         string
	Ports        []Port
	PortListKind PortListKind
	Signals      []Signal
	HierRefs     []RawHierRef
}

// SignalWidth looks up a declared signal or port width by name.
func (m *Module) SignalWidth(name string) (int, bool) {
	for _, s := range m.Signals {
		if s.Name == name {
			return s.Width, true
		}
	}
	for _, p := range m.Ports {
		if p.Name == name {
			return p.Width, true
		}
	}
	return 0, false
}

// HasPort reports whether the module already declares a port with the
// given name, regardless of direction.
func (m *Module) HasPort(name string) bool {
	for _, p := range m.Ports {
		if p.Name == name {
			return true
		}
	}
	return false
}

// HasSignal reports whether the module declares a net/variable with the
// given name (used by the clock/reset verifier, §4.9).
func (m *Module) HasSignal(name string) bool {
	if m.HasPort(name) {
		return true
	}
	for _, s := range m.Signals {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Instance is one node of the instance tree (§3.1). The tree's root is a
// synthetic module whose direct children are the top-level instances.
type Instance struct {
	Name     string
	ModuleDef string
	Children []*Instance
}

// Design is the elaborated compilation the engine operates on: module
// definitions keyed by name, plus the instance tree rooted at Root.
type Design struct {
	Modules map[string]*Module
	Root    *Instance
}

// NewDesign creates an empty design with a synthetic root instance.
func NewDesign() *Design {
	return &Design{
		Modules: make(map[string]*Module),
		Root:    &Instance{Name: "$root"},
	}
}

// AddModule registers a module definition, overwriting any prior one with
// the same name.
func (d *Design) AddModule(m *Module) {
	d.Modules[m.Name] = m
}

// Walk visits every instance in the tree in depth-first, parent-before-
// child order, including the synthetic root.
func (d *Design) Walk(visit func(parent *Instance, inst *Instance)) {
	var rec func(parent, inst *Instance)
	rec = func(parent, inst *Instance) {
		visit(parent, inst)
		for _, c := range inst.Children {
			rec(inst, c)
		}
	}
	rec(nil, d.Root)
}
