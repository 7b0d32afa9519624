package detector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hdltools/xmr-eliminate/internal/ast"
	"github.com/hdltools/xmr-eliminate/internal/xmrmodel"
)

func TestDetectDownwardRead(t *testing.T) {
	design := ast.NewDesign()
	design.AddModule(&ast.Module{
		Name: "top",
		HierRefs: []ast.RawHierRef{
			{
				FullPathText:    "u_sub.sig",
				Path:            []ast.PathElem{{Name: "u_sub", Kind: ast.SymbolInstance}},
				TargetSignal:    "sig",
				TargetWidth:     4,
				TargetModuleDef: "sub",
			},
		},
	})

	got := Detect(design)
	want := []xmrmodel.Info{
		{
			SourceModule: "top",
			TargetModule: "sub",
			TargetSignal: "sig",
			FullPath:     "u_sub.sig",
			PathSegments: []string{"u_sub"},
			IsRead:       true,
			BitWidth:     4,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected detection (-want +got):\n%s", diff)
	}
}

func TestDetectDedupesIdenticalReferences(t *testing.T) {
	design := ast.NewDesign()
	ref := ast.RawHierRef{FullPathText: "u_sub.sig", TargetSignal: "sig"}
	design.AddModule(&ast.Module{Name: "top", HierRefs: []ast.RawHierRef{ref, ref}})

	got := Detect(design)
	if len(got) != 1 {
		t.Fatalf("expected deduplication to one entry, got %d", len(got))
	}
}

func TestDetectSelfReferenceHasNoSegments(t *testing.T) {
	design := ast.NewDesign()
	design.AddModule(&ast.Module{
		Name: "top",
		HierRefs: []ast.RawHierRef{
			{
				FullPathText: "top.sig",
				Path:         []ast.PathElem{{Name: "top", Kind: ast.SymbolInstance}},
				TargetSignal: "sig",
			},
		},
	})

	got := Detect(design)
	if len(got) != 1 {
		t.Fatalf("expected one entry, got %d", len(got))
	}
	if !got[0].IsSelfReference() {
		t.Errorf("expected the leading self-naming path element to be stripped, yielding a self-reference")
	}
}

// TestDetectFallsBackToInstanceNameWhenModuleDefUnresolved covers the
// case where the elaborator could not walk a reference's path to a
// concrete module definition (a dangling hierarchy segment, so
// TargetModuleDef was left empty): the detector must still produce a
// stable placeholder rather than an empty string.
func TestDetectFallsBackToInstanceNameWhenModuleDefUnresolved(t *testing.T) {
	design := ast.NewDesign()
	design.AddModule(&ast.Module{
		Name: "top",
		HierRefs: []ast.RawHierRef{
			{
				FullPathText: "u_ghost.sig",
				Path:         []ast.PathElem{{Name: "u_ghost", Kind: ast.SymbolInstance}},
				TargetSignal: "sig",
			},
		},
	})

	got := Detect(design)
	if len(got) != 1 {
		t.Fatalf("expected one entry, got %d", len(got))
	}
	if got[0].TargetModule != "u_ghost" {
		t.Errorf("TargetModule = %q, want the instance-name fallback %q", got[0].TargetModule, "u_ghost")
	}
}

func TestDetectUpwardReferenceIsNotSelfReference(t *testing.T) {
	design := ast.NewDesign()
	design.AddModule(&ast.Module{
		Name: "leaf",
		HierRefs: []ast.RawHierRef{
			{FullPathText: "sig", TargetSignal: "sig", UpwardCount: 1},
		},
	})

	got := Detect(design)
	if len(got) != 1 {
		t.Fatalf("expected one entry, got %d", len(got))
	}
	if got[0].IsSelfReference() {
		t.Errorf("an upward climb with zero downward segments must not be classified as a self-reference")
	}
}
