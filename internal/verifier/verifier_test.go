package verifier

import (
	"context"
	"testing"

	"github.com/hdltools/xmr-eliminate/internal/ast"
	"github.com/hdltools/xmr-eliminate/internal/planner"
)

func TestVerifyFlagsMissingReset(t *testing.T) {
	design := ast.NewDesign()
	design.AddModule(&ast.Module{
		Name:    "consumer",
		Signals: []ast.Signal{{Name: "clk", Width: 1}},
	})

	cs := &planner.ChangeSet{
		PipelineRegAdds: []planner.PipelineRegAdd{
			{Module: "consumer", OutputName: "__xmr__sig", Stages: 2, ClockName: "clk", ResetName: "rst_n"},
		},
	}

	eng, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := eng.Verify(context.Background(), design, cs)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.HasErrors() {
		t.Fatalf("expected a missing-reset violation, got none")
	}
	if result.Summary.Errors != 1 {
		t.Errorf("Summary.Errors = %d, want 1", result.Summary.Errors)
	}

	var found bool
	for _, v := range result.Violations {
		if v.Rule == "missing-reset" && v.Module == "consumer" {
			found = true
		}
		if v.Rule == "missing-clock" {
			t.Errorf("clk is declared; missing-clock should not fire")
		}
	}
	if !found {
		t.Errorf("expected a missing-reset violation for module consumer")
	}
}

func TestVerifyPassesWhenClockAndResetPresent(t *testing.T) {
	design := ast.NewDesign()
	design.AddModule(&ast.Module{
		Name: "consumer",
		Signals: []ast.Signal{
			{Name: "clk", Width: 1},
			{Name: "rst_n", Width: 1},
		},
	})

	cs := &planner.ChangeSet{
		PipelineRegAdds: []planner.PipelineRegAdd{
			{Module: "consumer", OutputName: "__xmr__sig", Stages: 2, ClockName: "clk", ResetName: "rst_n"},
		},
	}

	eng, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := eng.Verify(context.Background(), design, cs)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.HasErrors() {
		t.Fatalf("unexpected violations: %+v", result.Violations)
	}
}

func TestVerifyNoPipelineRegsIsClean(t *testing.T) {
	design := ast.NewDesign()
	eng, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := eng.Verify(context.Background(), design, &planner.ChangeSet{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Summary.Total != 0 {
		t.Errorf("expected zero violations with no pipeline registers, got %d", result.Summary.Total)
	}
}
