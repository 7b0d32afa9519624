// Package xmrmodel holds the data types shared across the detector,
// planner, and rewriter: one XMRInfo per detected hierarchical reference,
// plus the pipeline-register configuration that controls how the planner
// handles timing closure on the routed path.
package xmrmodel

import "fmt"

// Info is one detected hierarchical reference (§3.1).
type Info struct {
	SourceModule string
	TargetModule string
	TargetSignal string
	FullPath     string
	PathSegments []string
	UpwardCount  int
	IsRead       bool
	IsWrite      bool
	BitWidth     int

	// SpanStart/SpanEnd locate the reference's surface text in the
	// source module, for the rewriter's expression splice.
	SpanStart, SpanEnd int
}

// IsUpward reports whether the resolver climbed at least one scope level
// before descending.
func (i Info) IsUpward() bool { return i.UpwardCount > 0 }

// IsSelfReference reports whether this reference resolves inside its own
// source module: no segments were traversed in either direction. An
// upward reference that climbs straight to an ancestor's own signal still
// has zero downward segments but a nonzero UpwardCount, and is routed
// as an upward reference rather than treated as a self-reference.
func (i Info) IsSelfReference() bool { return len(i.PathSegments) == 0 && i.UpwardCount == 0 }

// UniqueID is the detector's deduplication key: a reference is identified
// by the module it textually occurs in plus its exact surface text.
func (i Info) UniqueID() string {
	return i.SourceModule + "_" + i.FullPath
}

// PipeRegMode selects how the planner sizes the pipeline-register chain it
// inserts on a routed XMR's target side.
type PipeRegMode int

const (
	PipeRegNone PipeRegMode = iota
	PipeRegGlobal
	PipeRegPerModule
	PipeRegSelective
)

// PipeRegEntry configures one selective pipeline-register rule: RegCount
// stages, optionally restricted to specific signals. ModuleName is carried
// from the configuration, but StageCount does not compare it against any
// module, so every entry applies to every reference it is asked about.
type PipeRegEntry struct {
	ModuleName string
	RegCount   int
	Signals    []string
}

// PipeRegConfig is the pipeline-register configuration (§4.4 step G). The
// planner applies a single PipeRegConfig to every reference; it is not
// looked up per source module.
type PipeRegConfig struct {
	Mode           PipeRegMode
	GlobalRegCount int
	Entries        []PipeRegEntry
}

// Enabled reports whether this configuration ever inserts registers.
func (c PipeRegConfig) Enabled() bool { return c.Mode != PipeRegNone }

// Global builds a PipeRegConfig that always inserts regCount stages.
func Global(regCount int) PipeRegConfig {
	return PipeRegConfig{Mode: PipeRegGlobal, GlobalRegCount: regCount}
}

// PerModule builds a PipeRegConfig sizing the stage count to the routed
// path's length.
func PerModule() PipeRegConfig {
	return PipeRegConfig{Mode: PipeRegPerModule}
}

// Selective builds a PipeRegConfig that only matches the given entries.
func Selective(entries []PipeRegEntry) PipeRegConfig {
	return PipeRegConfig{Mode: PipeRegSelective, Entries: entries}
}

// StageCount resolves how many pipeline stages apply to portName/
// targetSignal, given the already-computed path length for PerModule mode.
// It takes no module name: Selective mode sums every positive entry whose
// signal list is empty or names portName or targetSignal, whatever the
// entry's ModuleName.
func (c PipeRegConfig) StageCount(portName, targetSignal string, pathLen int) int {
	switch c.Mode {
	case PipeRegNone:
		return 0
	case PipeRegGlobal:
		return c.GlobalRegCount
	case PipeRegPerModule:
		return pathLen
	case PipeRegSelective:
		total := 0
		for _, e := range c.Entries {
			if e.RegCount <= 0 {
				continue
			}
			if len(e.Signals) == 0 {
				total += e.RegCount
				continue
			}
			for _, s := range e.Signals {
				if s == portName || s == targetSignal {
					total += e.RegCount
					break
				}
			}
		}
		return total
	default:
		return 0
	}
}

// PlanningError records a routing failure for one XMR that the planner
// could not complete; the run continues with the remaining references
// (§4.9).
type PlanningError struct {
	XMRKey string
	Reason string
}

func (e PlanningError) Error() string {
	return fmt.Sprintf("planning %s: %s", e.XMRKey, e.Reason)
}
