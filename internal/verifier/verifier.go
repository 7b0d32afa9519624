// Package verifier implements C7: before a ChangeSet is handed to the
// rewriter, this package confirms every pipeline register it adds lands
// on a module that actually declares the clock and reset signals it was
// configured with. Following the indexer's policy-engine convention, the
// check itself is a small Rego module evaluated with OPA rather than a
// hand-rolled chain of if-statements, so new verification rules can be
// added by editing policy rather than Go code.
package verifier

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/hdltools/xmr-eliminate/internal/ast"
	"github.com/hdltools/xmr-eliminate/internal/planner"
)

//go:embed policies/clock_reset.rego
var defaultPolicy string

// Violation is one rule failure surfaced by the policy evaluation.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Module   string `json:"module"`
	Message  string `json:"message"`
}

// Summary aggregates the violations by severity.
type Summary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Result is the full output of a verification run.
type Result struct {
	Violations []Violation
	Summary    Summary
}

// HasErrors reports whether any violation carries "error" severity; the
// engine refuses to emit output when this is true (§7).
func (r *Result) HasErrors() bool {
	for _, v := range r.Violations {
		if v.Severity == "error" {
			return true
		}
	}
	return false
}

// Engine evaluates the clock/reset policy against a planned ChangeSet.
type Engine struct {
	violations rego.PreparedEvalQuery
	summary    rego.PreparedEvalQuery
}

// New prepares the embedded policy for evaluation. extraPolicy, if
// non-empty, is layered alongside the default module so a caller can
// tighten the rule set without forking this package.
func New(ctx context.Context, extraPolicy string) (*Engine, error) {
	modules := []func(*rego.Rego){rego.Module("clock_reset.rego", defaultPolicy)}
	if extraPolicy != "" {
		modules = append(modules, rego.Module("extra.rego", extraPolicy))
	}

	vq, err := rego.New(append(modules, rego.Query("data.xmr.verify.violations"))...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing violations query: %w", err)
	}
	sq, err := rego.New(append(modules, rego.Query("data.xmr.verify.summary"))...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing summary query: %w", err)
	}
	return &Engine{violations: vq, summary: sq}, nil
}

type check struct {
	Module       string `json:"module"`
	ClockName    string `json:"clock_name"`
	ResetName    string `json:"reset_name"`
	ClockPresent bool   `json:"clock_present"`
	ResetPresent bool   `json:"reset_present"`
	Stages       int    `json:"stages"`
}

// Verify builds one check per pipeline register the ChangeSet adds,
// resolving clock/reset presence against design, and evaluates the
// policy against the resulting facts.
func (e *Engine) Verify(ctx context.Context, design *ast.Design, cs *planner.ChangeSet) (*Result, error) {
	checks := make([]check, 0, len(cs.PipelineRegAdds))
	for _, pr := range cs.PipelineRegAdds {
		mod := design.Modules[pr.Module]
		c := check{
			Module:    pr.Module,
			ClockName: pr.ClockName,
			ResetName: pr.ResetName,
			Stages:    pr.Stages,
		}
		if mod != nil {
			c.ClockPresent = mod.HasSignal(pr.ClockName)
			c.ResetPresent = mod.HasSignal(pr.ResetName)
		}
		checks = append(checks, c)
	}

	input := map[string]interface{}{"checks": checks}

	result := &Result{}

	rs, err := e.violations.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if vs, ok := rs[0].Expressions[0].Value.([]interface{}); ok {
			for _, v := range vs {
				result.Violations = append(result.Violations, decodeViolation(v))
			}
		}
	}

	rs, err = e.summary.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if smap, ok := rs[0].Expressions[0].Value.(map[string]interface{}); ok {
			result.Summary = Summary{
				Total:    getInt(smap, "total"),
				Errors:   getInt(smap, "errors"),
				Warnings: getInt(smap, "warnings"),
			}
		}
	}

	return result, nil
}

func decodeViolation(v interface{}) Violation {
	vmap, ok := v.(map[string]interface{})
	if !ok {
		return Violation{}
	}
	return Violation{
		Rule:     getString(vmap, "rule"),
		Severity: getString(vmap, "severity"),
		Module:   getString(vmap, "module"),
		Message:  getString(vmap, "message"),
	}
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
