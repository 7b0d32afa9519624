// Package engine implements the public entry point described in §6.1: it
// wires the seven core components together (detect, route, plan, verify,
// rewrite) into the single xmr_eliminate call and its Result, and owns
// the surrounding application concerns the core components are
// deliberately silent on — backup/restore, the output directory layout,
// and CLI-facing error classification.
package engine

import (
	"context"
	"fmt"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/hdltools/xmr-eliminate/internal/ast"
	"github.com/hdltools/xmr-eliminate/internal/config"
	"github.com/hdltools/xmr-eliminate/internal/cst"
	"github.com/hdltools/xmr-eliminate/internal/detector"
	"github.com/hdltools/xmr-eliminate/internal/instmap"
	"github.com/hdltools/xmr-eliminate/internal/planner"
	"github.com/hdltools/xmr-eliminate/internal/rewriter"
	"github.com/hdltools/xmr-eliminate/internal/verifier"
	"github.com/hdltools/xmr-eliminate/internal/xmrmodel"
)

// DiagnosticKind tags a Diagnostic by which of the three error kinds in
// the error-handling design produced it.
type DiagnosticKind string

const (
	KindConfig    DiagnosticKind = "config"
	KindPlanning  DiagnosticKind = "planning"
	KindRewriting DiagnosticKind = "rewriting"
	KindVerify    DiagnosticKind = "verify"
)

// Diagnostic is one error or warning surfaced by a run.
type Diagnostic struct {
	Kind    DiagnosticKind
	Module  string
	File    string
	Message string
}

// Result is the full output of one xmr_eliminate call (§6.1).
type Result struct {
	// RunID identifies this call uniquely, for correlating it with the
	// manifest written alongside the output files and with log lines.
	RunID              string
	Files              map[string][]byte
	Eliminated         []xmrmodel.Info
	TopModulesDetected []string
	ChosenTopModule    string
	Errors             []Diagnostic
	Warnings           []Diagnostic
	OutputDir          string
}

// ConfigError reports a configuration problem that aborts the run before
// any file is touched (§7.1).
type ConfigError struct{ Message string }

func (e *ConfigError) Error() string { return "xmr-eliminate: " + e.Message }

// Run performs one full xmr_eliminate call: detect every XMR across
// design, route and plan the edits, verify pipeline-register clock/reset
// presence when any are configured, and rewrite every touched file.
// References that fail to route are dropped with a recorded planning
// error rather than aborting the run. A clock/reset verification failure
// aborts the run before any file is rewritten (§7.1). A file that fails
// to rewrite is emitted with empty content while every other file still
// gets its successful rewrite or, if untouched, its original source
// (§7).
func Run(ctx context.Context, design *ast.Design, files []*cst.File, cfg *config.Config, outputDir string) (*Result, error) {
	pipeCfg, err := cfg.PipeRegConfig()
	if err != nil {
		return nil, &ConfigError{Message: err.Error()}
	}

	if pipeCfg.Enabled() && (cfg.ClockName == "" || cfg.ResetName == "") {
		return nil, &ConfigError{Message: "pipeline registers requested without required clock/reset names"}
	}

	top, chosen, topErr := resolveTopModules(design, cfg.TopModule)
	if topErr != nil {
		return nil, &ConfigError{Message: topErr.Error()}
	}

	result := &Result{
		RunID:              uuid.New().String(),
		Files:              make(map[string][]byte),
		OutputDir:          outputDir,
		TopModulesDetected: top,
		ChosenTopModule:    chosen,
	}
	if chosen == "" && len(top) > 1 {
		result.Warnings = append(result.Warnings, Diagnostic{
			Kind:    KindConfig,
			Message: fmt.Sprintf("multiple top modules detected (%v) and none chosen", top),
		})
	}

	xmrs := detector.Detect(design)
	xmrs = filterByModule(xmrs, cfg.Modules)
	if len(xmrs) == 0 {
		result.Warnings = append(result.Warnings, Diagnostic{
			Kind:    KindConfig,
			Message: "no XMRs found",
		})
		for _, f := range files {
			result.Files[f.Path] = f.Source
		}
		return result, nil
	}

	imap := instmap.Build(design)
	cs := planner.Plan(imap, xmrs, planner.Options{
		PipeReg:        pipeCfg,
		ClockName:      cfg.ClockName,
		ResetName:      cfg.ResetName,
		ResetActiveLow: cfg.ResolveActiveLow(),
	})

	for _, pe := range cs.Errors {
		result.Errors = append(result.Errors, Diagnostic{Kind: KindPlanning, Message: pe.Error()})
	}

	eliminated := make([]xmrmodel.Info, 0, len(xmrs))
	for _, x := range xmrs {
		key := planner.ReplKey{SourceModule: x.SourceModule, FullPath: x.FullPath}
		if _, ok := cs.XMRReplacements[key]; ok {
			eliminated = append(eliminated, x)
		}
	}
	result.Eliminated = eliminated

	if pipeCfg.Enabled() {
		veng, err := verifier.New(ctx, "")
		if err != nil {
			return nil, &ConfigError{Message: fmt.Sprintf("preparing verifier: %v", err)}
		}
		vres, err := veng.Verify(ctx, design, cs)
		if err != nil {
			return nil, &ConfigError{Message: fmt.Sprintf("running verifier: %v", err)}
		}
		for _, v := range vres.Violations {
			diag := Diagnostic{Kind: KindVerify, Module: v.Module, Message: v.Message}
			if v.Severity == "error" {
				result.Errors = append(result.Errors, diag)
			} else {
				result.Warnings = append(result.Warnings, diag)
			}
		}
		if vres.HasErrors() {
			return nil, &ConfigError{Message: "clock/reset verification failed, aborting before rewrite"}
		}
	}

	rewritten, fileErrs := rewriter.Rewrite(design, files, cs)
	failedFiles := make(map[string]bool, len(fileErrs))
	for _, fe := range fileErrs {
		failedFiles[fe.Path] = true
		result.Errors = append(result.Errors, Diagnostic{Kind: KindRewriting, File: fe.Path, Message: fe.Err.Error()})
	}

	for _, f := range files {
		switch {
		case failedFiles[f.Path]:
			result.Files[f.Path] = []byte{}
		case rewritten[f.Path] != nil:
			result.Files[f.Path] = rewritten[f.Path]
		default:
			result.Files[f.Path] = f.Source
		}
	}

	return result, nil
}

func filterByModule(xmrs []xmrmodel.Info, modules []string) []xmrmodel.Info {
	if len(modules) == 0 {
		return xmrs
	}
	allowed := make(map[string]bool, len(modules))
	for _, m := range modules {
		allowed[m] = true
	}
	out := make([]xmrmodel.Info, 0, len(xmrs))
	for _, x := range xmrs {
		if allowed[x.SourceModule] {
			out = append(out, x)
		}
	}
	return out
}

// resolveTopModules finds every module instantiated directly under the
// design's synthetic root and validates an explicit top-module choice
// against the design, if one was given.
func resolveTopModules(design *ast.Design, explicitTop string) ([]string, string, error) {
	var top []string
	for _, inst := range design.Root.Children {
		top = append(top, inst.ModuleDef)
	}

	if explicitTop == "" {
		if len(top) == 1 {
			return top, top[0], nil
		}
		return top, "", nil
	}

	if _, ok := design.Modules[explicitTop]; !ok {
		if suggestion := closestModuleName(design, explicitTop); suggestion != "" {
			return top, "", fmt.Errorf("unknown top module %q (did you mean %q?)", explicitTop, suggestion)
		}
		return top, "", fmt.Errorf("unknown top module %q", explicitTop)
	}
	return top, explicitTop, nil
}

// closestModuleName finds the module name in design with the smallest
// Levenshtein distance to name, for a "did you mean" suggestion on a typo'd
// --top flag. Returns "" if design has no modules at all.
func closestModuleName(design *ast.Design, name string) string {
	best := ""
	bestDist := -1
	for candidate := range design.Modules {
		d := levenshtein.ComputeDistance(name, candidate)
		if bestDist < 0 || d < bestDist || (d == bestDist && candidate < best) {
			best, bestDist = candidate, d
		}
	}
	return best
}
