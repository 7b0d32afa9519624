package planner

import (
	"fmt"
	"strings"

	"github.com/hdltools/xmr-eliminate/internal/ast"
	"github.com/hdltools/xmr-eliminate/internal/instmap"
	"github.com/hdltools/xmr-eliminate/internal/nameutil"
	"github.com/hdltools/xmr-eliminate/internal/xmrmodel"
)

// baseKey identifies the port chain a reference routes through,
// independent of any array/bit-select suffix on its particular
// occurrence (§4.4 step D): two references sharing a source module and
// base path always resolve to the same hops, so only the first one seen
// needs to be routed.
type baseKey struct {
	SourceModule string
	BasePath     string
}

// Options configures details the ChangeSet algorithm itself has no
// opinion on: which signals are the clock/reset for any inserted
// pipeline registers, and how deep those chains run.
type Options struct {
	PipeReg        xmrmodel.PipeRegConfig
	ClockName      string
	ResetName      string
	ResetActiveLow bool
}

// Plan builds the ChangeSet for every xmr in xmrs, routing each one
// through imap and accumulating one PlanningError per reference whose
// route could not be completed rather than aborting the whole run
// (§4.9): a failed XMR is dropped from the output in full, with no
// partial ports, wires, or connections left behind for it.
func Plan(imap *instmap.Map, xmrs []xmrmodel.Info, opts Options) *ChangeSet {
	cs := newChangeSet()
	portNames := make(map[baseKey]string)

	for _, xmr := range xmrs {
		bk := baseKey{SourceModule: xmr.SourceModule, BasePath: nameutil.ExtractBasePath(xmr.FullPath)}
		if portName, ok := portNames[bk]; ok {
			suffix := nameutil.ExtractArraySuffix(xmr.FullPath)
			cs.XMRReplacements[replKeyFor(xmr)] = portName + suffix
			continue
		}

		one, err := planOne(imap, xmr, opts)
		if err != nil {
			cs.Errors = append(cs.Errors, xmrmodel.PlanningError{
				XMRKey: xmr.UniqueID(),
				Reason: err.Error(),
			})
			continue
		}
		cs.merge(one)

		repl := one.XMRReplacements[replKeyFor(xmr)]
		portNames[bk] = strings.TrimSuffix(repl, nameutil.ExtractArraySuffix(xmr.FullPath))
	}

	cs.sortForDeterminism()
	return cs
}

// planOne builds the isolated ChangeSet fragment for a single reference.
// On any routing failure it returns an error and no partial fragment, so
// the caller can discard the attempt wholesale.
func planOne(imap *instmap.Map, xmr xmrmodel.Info, opts Options) (*ChangeSet, error) {
	if xmr.IsSelfReference() {
		frag := newChangeSet()
		frag.XMRReplacements[replKeyFor(xmr)] = xmr.TargetSignal + nameutil.ExtractArraySuffix(xmr.FullPath)
		return frag, nil
	}

	if xmr.IsUpward() {
		return planUpward(imap, xmr)
	}
	return planDownward(imap, xmr, opts)
}

func replKeyFor(xmr xmrmodel.Info) ReplKey {
	return ReplKey{SourceModule: xmr.SourceModule, FullPath: xmr.FullPath}
}

// planDownward builds the fragment for a relative-path reference: the
// signal flows up from the target back to the source, so the target module
// gets the real port and assign, every intermediate module gets a
// pass-through port, and the source module gets a plain wire to hold the
// threaded value (§4.4 step E).
func planDownward(imap *instmap.Map, xmr xmrmodel.Info, opts Options) (*ChangeSet, error) {
	basePath := nameutil.ExtractBasePath(xmr.FullPath)
	suffix := nameutil.ExtractArraySuffix(xmr.FullPath)

	hops, err := imap.RouteDownward(xmr.SourceModule, xmr.PathSegments)
	if err != nil {
		return nil, err
	}
	if len(hops) == 0 {
		return nil, errNoRoute(xmr)
	}

	portName := nameutil.GeneratePortName(basePath)
	dir := directionFor(xmr)
	finalModule := hops[len(hops)-1].ChildModule

	frag := newChangeSet()
	frag.PortAdds = append(frag.PortAdds, PortAdd{
		Module: finalModule, Name: portName, Direction: dir, Width: xmr.BitWidth,
	})

	// A pipeline-register chain replaces the direct assign on the target
	// side for a read reference; a write reference always drives its target
	// directly, since the planner only ever pipelines the read path (§4.6).
	stages := 0
	if !xmr.IsWrite {
		stages = opts.PipeReg.StageCount(portName, xmr.TargetSignal, len(hops))
	}

	if xmr.IsWrite {
		frag.AssignAdds = append(frag.AssignAdds, AssignAdd{
			Module: finalModule, LHS: xmr.TargetSignal, RHS: portName,
		})
	} else if stages <= 0 {
		frag.AssignAdds = append(frag.AssignAdds, AssignAdd{
			Module: finalModule, LHS: portName, RHS: xmr.TargetSignal,
		})
	}

	for _, hop := range hops {
		if hop.ParentModule != xmr.SourceModule {
			frag.PortAdds = append(frag.PortAdds, PortAdd{
				Module: hop.ParentModule, Name: portName, Direction: dir, Width: xmr.BitWidth,
			})
		}
		frag.ConnectionAdds = append(frag.ConnectionAdds, ConnectionAdd{
			Module:       hop.ParentModule,
			InstanceName: hop.InstanceName,
			PortName:     portName,
			Expr:         portName,
		})
	}

	frag.WireAdds = append(frag.WireAdds, WireAdd{
		Module: xmr.SourceModule, Name: portName, Width: xmr.BitWidth,
	})

	if stages > 0 {
		frag.PipelineRegAdds = append(frag.PipelineRegAdds, PipelineRegAdd{
			Module:         finalModule,
			OutputName:     portName,
			InputExpr:      xmr.TargetSignal,
			Width:          xmr.BitWidth,
			Stages:         stages,
			ClockName:      opts.ClockName,
			ResetName:      opts.ResetName,
			ResetActiveLow: opts.ResetActiveLow,
		})
	}

	frag.XMRReplacements[replKeyFor(xmr)] = portName + suffix
	return frag, nil
}

// planUpward builds the fragment for an absolute-path reference that
// climbs out of its source module before descending to the target
// (§4.4 step F): the signal flows down from the target into the source, so
// the source module gets an input port, the module it is instantiated
// under (the resolved root of the climb) gets the threading wire and the
// connection to the source's own instance, and the downward leg from that
// root to the target is threaded exactly like a relative-path reference.
func planUpward(imap *instmap.Map, xmr xmrmodel.Info) (*ChangeSet, error) {
	basePath := nameutil.ExtractBasePath(xmr.FullPath)
	suffix := nameutil.ExtractArraySuffix(xmr.FullPath)

	rootModule, sourceInstanceName, downHops, err := imap.UpwardRoute(xmr.SourceModule, xmr.UpwardCount, xmr.PathSegments)
	if err != nil {
		return nil, err
	}

	portName := nameutil.GeneratePortName(basePath)

	frag := newChangeSet()

	frag.PortAdds = append(frag.PortAdds, PortAdd{
		Module: xmr.SourceModule, Name: portName, Direction: ast.DirInput, Width: xmr.BitWidth,
	})
	frag.WireAdds = append(frag.WireAdds, WireAdd{
		Module: rootModule, Name: portName, Width: xmr.BitWidth,
	})
	frag.ConnectionAdds = append(frag.ConnectionAdds, ConnectionAdd{
		Module:       rootModule,
		InstanceName: sourceInstanceName,
		PortName:     portName,
		Expr:         portName,
	})

	finalModule := rootModule
	if len(downHops) > 0 {
		finalModule = downHops[len(downHops)-1].ChildModule
	}
	frag.PortAdds = append(frag.PortAdds, PortAdd{
		Module: finalModule, Name: portName, Direction: ast.DirOutput, Width: xmr.BitWidth,
	})
	for _, hop := range downHops {
		if hop.ParentModule != rootModule {
			frag.PortAdds = append(frag.PortAdds, PortAdd{
				Module: hop.ParentModule, Name: portName, Direction: ast.DirOutput, Width: xmr.BitWidth,
			})
		}
		frag.ConnectionAdds = append(frag.ConnectionAdds, ConnectionAdd{
			Module:       hop.ParentModule,
			InstanceName: hop.InstanceName,
			PortName:     portName,
			Expr:         portName,
		})
	}

	frag.AssignAdds = append(frag.AssignAdds, AssignAdd{
		Module: finalModule, LHS: portName, RHS: xmr.TargetSignal,
	})

	frag.XMRReplacements[replKeyFor(xmr)] = portName + suffix
	return frag, nil
}

// directionFor maps an XMR's read/write classification to the port
// direction synthesized at every hop. A write-only reference drives its
// target, so the port threading it carries the value downward (input at
// every hop); a read-only reference observes its target, so the port
// threading carries the value upward (output at every hop). A reference
// that is simultaneously read and write (the DPI inout/output-argument
// case) still only needs one direction of wiring for elimination purposes
// — the write side — since the read is satisfied by reading back the same
// wire the write side already threads.
func directionFor(xmr xmrmodel.Info) ast.PortDirection {
	if xmr.IsWrite {
		return ast.DirInput
	}
	return ast.DirOutput
}

func errNoRoute(xmr xmrmodel.Info) error {
	return fmt.Errorf("no route resolved for %q in %s", xmr.FullPath, xmr.SourceModule)
}
