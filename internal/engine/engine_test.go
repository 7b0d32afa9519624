package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/hdltools/xmr-eliminate/internal/ast"
	"github.com/hdltools/xmr-eliminate/internal/config"
	"github.com/hdltools/xmr-eliminate/internal/cst"
	"github.com/hdltools/xmr-eliminate/internal/testutil"
)

// buildS1 assembles scenario S1 (single downward read) from §8.2:
//
//	module top(output wire result);
//	  sub u_sub();
//	  assign result = u_sub.sig;
//	endmodule
//	module sub; reg sig; endmodule
func buildS1() (*ast.Design, []*cst.File) {
	design := ast.NewDesign()
	design.AddModule(&ast.Module{
		Name:         "top",
		Ports:        []ast.Port{{Name: "result", Direction: ast.DirOutput, Width: 1}},
		PortListKind: ast.PortListANSI,
		HierRefs: []ast.RawHierRef{
			{
				FullPathText: "u_sub.sig",
				Path:         []ast.PathElem{{Name: "u_sub", Kind: ast.SymbolInstance}},
				TargetSignal: "sig",
				TargetWidth:  1,
			},
		},
	})
	design.AddModule(&ast.Module{
		Name:         "sub",
		PortListKind: ast.PortListNone,
		Signals:      []ast.Signal{{Name: "sig", Width: 1}},
	})

	sub := &ast.Instance{Name: "u_sub", ModuleDef: "sub"}
	top := &ast.Instance{Name: "u_top", ModuleDef: "top", Children: []*ast.Instance{sub}}
	design.Root.Children = []*ast.Instance{top}

	topSrc := "module top(output wire result);\n" +
		"//BODY_FRONT" +
		"  sub u_sub(//CONN:u_sub\n);\n" +
		"  assign result = u_sub.sig;\n" +
		"//BODY_BACK\n" +
		"endmodule"

	subSrc := "module sub//PORTLIST_INSERT;\n" +
		"//BODY_FRONT" +
		"  reg sig;\n" +
		"//BODY_BACK\n" +
		"endmodule"

	f := testutil.BuildFile("design.sv", []testutil.ModuleSpec{
		{
			Name:               "top",
			Source:             topSrc,
			HeaderPortListKind: int(ast.PortListANSI),
			Instances:          map[string]string{"u_sub": "sub"},
			HasExistingConns:   map[string]bool{"u_sub": false},
		},
		{
			Name:               "sub",
			Source:             subSrc,
			HeaderPortListKind: int(ast.PortListNone),
		},
	})

	// Fix up the top module's HierRefs span now that the concatenated
	// source offsets are known.
	topMod := design.Modules["top"]
	idx := strings.Index(string(f.Source), "u_sub.sig")
	topMod.HierRefs[0].SpanStart = idx
	topMod.HierRefs[0].SpanEnd = idx + len("u_sub.sig")

	// sub's header has no port list; record where the rewriter should
	// rewrite it wholesale.
	subMod := f.ModuleByName("sub")
	hdrIdx := strings.Index(string(f.Source), "module sub")
	subMod.HeaderRewriteSpan = cst.Span{Start: hdrIdx, End: hdrIdx + len("module sub")}

	return design, []*cst.File{f}
}

func TestEngineRunScenarioS1(t *testing.T) {
	design, files := buildS1()
	cfg := config.Default()

	result, err := Run(context.Background(), design, files, cfg, "/tmp/out")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Eliminated) != 1 {
		t.Fatalf("expected exactly one eliminated XMR, got %d", len(result.Eliminated))
	}

	out := string(result.Files["design.sv"])
	if strings.Contains(out, "u_sub.sig") {
		t.Errorf("XMR expression was not substituted:\n%s", out)
	}
	if !strings.Contains(out, "__xmr__u_sub_sig") {
		t.Errorf("expected synthesized port/wire name in output:\n%s", out)
	}
	if !strings.Contains(out, ".__xmr__u_sub_sig(__xmr__u_sub_sig)") {
		t.Errorf("expected named connection on u_sub instance:\n%s", out)
	}
}

func TestEngineNoXMRsWarns(t *testing.T) {
	design := ast.NewDesign()
	design.AddModule(&ast.Module{Name: "leaf"})
	f := &cst.File{Path: "empty.sv", Source: []byte("module leaf; endmodule\n"), Modules: []cst.Module{{Name: "leaf"}}}

	result, err := Run(context.Background(), design, []*cst.File{f}, config.Default(), "/tmp/out")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Message != "no XMRs found" {
		t.Errorf("expected a single 'no XMRs found' warning, got %+v", result.Warnings)
	}
	if string(result.Files["empty.sv"]) != string(f.Source) {
		t.Errorf("unchanged file content should pass through verbatim")
	}
}

// TestEngineAbortsBeforeRewriteOnVerifierError covers §4.9/§7.1: a
// pipeline-register request whose target module never declares the
// configured clock/reset signal must stop the run with a ConfigError
// before rewriter.Rewrite is ever invoked, not merely record a
// diagnostic and proceed.
func TestEngineAbortsBeforeRewriteOnVerifierError(t *testing.T) {
	design, files := buildS1()
	cfg := config.Default()
	cfg.PipeRegMode = "global"
	cfg.PipeRegCount = 2
	// sub, the read's target module, declares only "sig" — neither
	// cfg.ClockName ("clk") nor cfg.ResetName ("rst_n").

	result, err := Run(context.Background(), design, files, cfg, "/tmp/out")
	if err == nil {
		t.Fatalf("expected a ConfigError aborting the run, got result %+v", result)
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("expected *ConfigError, got %T: %v", err, err)
	}
	if result != nil {
		t.Errorf("an aborted run must return a nil Result, got %+v", result)
	}
}

func TestEngineRejectsUnknownTopModule(t *testing.T) {
	design := ast.NewDesign()
	design.AddModule(&ast.Module{Name: "leaf"})
	cfg := config.Default()
	cfg.TopModule = "does_not_exist"

	_, err := Run(context.Background(), design, nil, cfg, "/tmp/out")
	if err == nil {
		t.Fatalf("expected a ConfigError for an unknown top module")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("expected *ConfigError, got %T", err)
	}
}
