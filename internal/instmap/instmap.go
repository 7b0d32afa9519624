// Package instmap implements C4: it indexes a design's instance tree so
// the planner can turn an XMR's relative path into a concrete chain of
// hops, each naming the parent module definition, the instance name at
// that level, and the child module definition the next hop descends into.
package instmap

import (
	"fmt"
	"sort"

	"github.com/hdltools/xmr-eliminate/internal/ast"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Hop is one level of a routed path: at ParentModule, the instance named
// InstanceName is of type ChildModule.
type Hop struct {
	ParentModule string
	InstanceName string
	ChildModule  string
}

// Map indexes every instance's module type, keyed by the definition it was
// instantiated under plus its instance name. A given instance name always
// binds to the same module type within one parent module body, so this
// index is valid regardless of which occurrence of the parent a route is
// being computed for.
type Map struct {
	design    *ast.Design
	childType map[string]string   // "parentModule.instanceName" -> childModule
	parentsOf map[string][]string // instanceName -> []parentModule (for upward search)
	ancestry  map[*ast.Instance]*ast.Instance
	byParent  *patricia.Trie // "parentModule." prefix -> childModule, for subtree queries
}

// Build indexes design's instance tree in one pass.
func Build(design *ast.Design) *Map {
	m := &Map{
		design:    design,
		childType: make(map[string]string),
		parentsOf: make(map[string][]string),
		ancestry:  make(map[*ast.Instance]*ast.Instance),
		byParent:  patricia.NewTrie(),
	}
	design.Walk(func(parent, inst *ast.Instance) {
		m.ancestry[inst] = parent
		if parent == nil || parent.ModuleDef == "" {
			return
		}
		key := parent.ModuleDef + "." + inst.Name
		m.childType[key] = inst.ModuleDef
		m.parentsOf[inst.Name] = append(m.parentsOf[inst.Name], parent.ModuleDef)
		m.byParent.Insert(patricia.Prefix(key), inst.ModuleDef)
	})
	return m
}

// ChildModule reports which module definition is instantiated as
// instanceName inside parentModule, if that pairing was ever observed.
func (m *Map) ChildModule(parentModule, instanceName string) (string, bool) {
	child, ok := m.childType[parentModule+"."+instanceName]
	return child, ok
}

// ChildrenOf lists every module definition instantiated directly under
// parentModule, sorted by module definition name. It describes a module's
// immediate instantiation surface without walking the whole design; no
// other package in this module calls it.
func (m *Map) ChildrenOf(parentModule string) []string {
	var children []string
	m.byParent.VisitSubtree(patricia.Prefix(parentModule+"."), func(prefix patricia.Prefix, item patricia.Item) error {
		if child, ok := item.(string); ok {
			children = append(children, child)
		}
		return nil
	})
	sort.Strings(children)
	return children
}

// RouteDownward walks segments as a chain of instance names starting at
// sourceModule, resolving each hop's child module definition from the
// index. It returns an error if any hop's instance name was never
// observed under its parent — the planner treats this as a routing
// failure for the whole reference rather than emitting a partially
// connected path (§4.9): a dangling or inconsistent hierarchy segment
// must drop the XMR and record a planner-level error, not fabricate a
// module definition for it.
func (m *Map) RouteDownward(sourceModule string, segments []string) ([]Hop, error) {
	hops := make([]Hop, 0, len(segments))
	parent := sourceModule
	for _, seg := range segments {
		child, ok := m.ChildModule(parent, seg)
		if !ok {
			return nil, fmt.Errorf("instmap: no instance %q found under module %q", seg, parent)
		}
		hops = append(hops, Hop{ParentModule: parent, InstanceName: seg, ChildModule: child})
		parent = child
	}
	return hops, nil
}

// UpwardRoute finds the route for an absolute-path reference that climbs
// upwardCount ancestor levels from sourceModule before descending through
// segments to the target. Unlike RouteDownward's flat chain of hops, an
// upward route threads a value across the module boundary sourceModule
// itself sits inside, so it reports that boundary explicitly: rootModule is
// the ancestor module definition reached after climbing, sourceInstanceName
// is the real instance name sourceModule is known by one level up (the name
// the planner binds a new connection to), and downHops is the ordinary
// downward chain from rootModule to the target, exactly as RouteDownward
// would produce it.
//
// It requires at least one concrete instance of sourceModule in the tree to
// establish where "up" leads; if sourceModule is instantiated more than
// once, the first occurrence found by a pre-order walk is used, since all
// occurrences share the same module definition and therefore the same set
// of synthesizable ports regardless of which physical ancestor answers a
// given run.
func (m *Map) UpwardRoute(sourceModule string, upwardCount int, segments []string) (rootModule, sourceInstanceName string, downHops []Hop, err error) {
	inst := m.findInstanceOf(sourceModule)
	if inst == nil {
		return "", "", nil, fmt.Errorf("instmap: no instantiation of %s found for upward route", sourceModule)
	}
	sourceInstanceName = inst.Name

	anchor := inst
	for i := 0; i < upwardCount; i++ {
		parent := m.ancestry[anchor]
		if parent == nil || parent.ModuleDef == "" {
			return "", "", nil, fmt.Errorf("instmap: %s climbs %d levels but only %d available", sourceModule, upwardCount, i)
		}
		anchor = parent
	}
	rootModule = anchor.ModuleDef

	downHops, err = m.RouteDownward(rootModule, segments)
	if err != nil {
		return "", "", nil, err
	}
	return rootModule, sourceInstanceName, downHops, nil
}

// findInstanceOf returns the first instance of moduleDef found in
// pre-order, or nil.
func (m *Map) findInstanceOf(moduleDef string) *ast.Instance {
	var found *ast.Instance
	m.design.Walk(func(parent, inst *ast.Instance) {
		if found != nil {
			return
		}
		if inst.ModuleDef == moduleDef {
			found = inst
		}
	})
	return found
}
