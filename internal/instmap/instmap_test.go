package instmap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hdltools/xmr-eliminate/internal/ast"
)

func buildDesign() *ast.Design {
	leaf := &ast.Instance{Name: "u_leaf", ModuleDef: "leaf"}
	sub := &ast.Instance{Name: "u_sub", ModuleDef: "sub", Children: []*ast.Instance{leaf}}
	top := &ast.Instance{Name: "u_top", ModuleDef: "top", Children: []*ast.Instance{sub}}

	d := ast.NewDesign()
	d.AddModule(&ast.Module{Name: "top"})
	d.AddModule(&ast.Module{Name: "sub"})
	d.AddModule(&ast.Module{Name: "leaf"})
	d.Root.Children = []*ast.Instance{top}
	return d
}

func TestRouteDownwardMultiHop(t *testing.T) {
	m := Build(buildDesign())
	hops, err := m.RouteDownward("top", []string{"u_sub", "u_leaf"})
	if err != nil {
		t.Fatalf("RouteDownward: %v", err)
	}
	want := []Hop{
		{ParentModule: "top", InstanceName: "u_sub", ChildModule: "sub"},
		{ParentModule: "sub", InstanceName: "u_leaf", ChildModule: "leaf"},
	}
	if diff := cmp.Diff(want, hops); diff != "" {
		t.Errorf("unexpected hops (-want +got):\n%s", diff)
	}
}

func TestRouteDownwardMissingHopErrors(t *testing.T) {
	m := Build(buildDesign())
	hops, err := m.RouteDownward("top", []string{"u_sub", "u_ghost"})
	if err == nil {
		t.Fatalf("expected an error for an instance never observed under its parent, got hops %+v", hops)
	}
	if hops != nil {
		t.Errorf("a failed route must return no partial hops, got %+v", hops)
	}
}

func TestUpwardRouteClimbsThenDescends(t *testing.T) {
	m := Build(buildDesign())
	root, srcInst, downHops, err := m.UpwardRoute("leaf", 1, nil)
	if err != nil {
		t.Fatalf("UpwardRoute: %v", err)
	}
	if root != "sub" {
		t.Errorf("root = %q, want %q", root, "sub")
	}
	if srcInst != "u_leaf" {
		t.Errorf("sourceInstanceName = %q, want %q", srcInst, "u_leaf")
	}
	if len(downHops) != 0 {
		t.Errorf("expected no further descent, got %+v", downHops)
	}
}

func TestUpwardRouteClimbsThenDescendsMultipleSegments(t *testing.T) {
	m := Build(buildDesign())
	root, srcInst, downHops, err := m.UpwardRoute("leaf", 2, []string{"u_sub", "u_leaf"})
	if err != nil {
		t.Fatalf("UpwardRoute: %v", err)
	}
	if root != "top" {
		t.Errorf("root = %q, want %q", root, "top")
	}
	if srcInst != "u_leaf" {
		t.Errorf("sourceInstanceName = %q, want %q", srcInst, "u_leaf")
	}
	want := []Hop{
		{ParentModule: "top", InstanceName: "u_sub", ChildModule: "sub"},
		{ParentModule: "sub", InstanceName: "u_leaf", ChildModule: "leaf"},
	}
	if diff := cmp.Diff(want, downHops); diff != "" {
		t.Errorf("unexpected downHops (-want +got):\n%s", diff)
	}
}

func TestUpwardRouteRunsOutOfAncestors(t *testing.T) {
	m := Build(buildDesign())
	if _, _, _, err := m.UpwardRoute("leaf", 5, nil); err == nil {
		t.Fatalf("expected an error climbing past the root")
	}
}

func TestChildrenOfListsDirectInstances(t *testing.T) {
	m := Build(buildDesign())
	got := m.ChildrenOf("top")
	want := []string{"sub"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected children (-want +got):\n%s", diff)
	}
}

func TestChildrenOfUnknownParentIsEmpty(t *testing.T) {
	m := Build(buildDesign())
	if got := m.ChildrenOf("nonexistent"); len(got) != 0 {
		t.Errorf("expected no children, got %v", got)
	}
}
