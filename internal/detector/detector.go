// Package detector implements C3: it walks a compiled design's raw
// hierarchical references and turns each one into an xmrmodel.Info,
// classifying it as a self-reference, a downward reference, or an upward
// reference, and resolving the module that owns the target signal.
package detector

import (
	"sort"

	"github.com/hdltools/xmr-eliminate/internal/ast"
	"github.com/hdltools/xmr-eliminate/internal/xmrmodel"
)

// Detect scans every module in design and returns one xmrmodel.Info per
// hierarchical reference, deduplicated by UniqueID and sorted for
// deterministic downstream processing (§8.1 determinism invariant).
func Detect(design *ast.Design) []xmrmodel.Info {
	seen := make(map[string]xmrmodel.Info)

	for _, mod := range design.Modules {
		for _, ref := range mod.HierRefs {
			info := classify(mod.Name, ref)
			seen[info.UniqueID()] = info
		}
	}

	out := make([]xmrmodel.Info, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceModule != out[j].SourceModule {
			return out[i].SourceModule < out[j].SourceModule
		}
		return out[i].FullPath < out[j].FullPath
	})
	return out
}

// classify turns one raw reference into an xmrmodel.Info. The resolver's
// path may carry a leading element that names the current instance itself
// (a purely lexical artifact of how the scope walk was recorded); that
// element is dropped only while no other segment has been collected yet,
// mirroring the reference detector's own self-reference trim.
func classify(sourceModule string, ref ast.RawHierRef) xmrmodel.Info {
	var segments []string
	for _, elem := range ref.Path {
		if elem.Kind != ast.SymbolInstance {
			continue
		}
		if len(segments) == 0 && elem.Name == sourceModule {
			continue
		}
		segments = append(segments, elem.Name)
	}

	targetModule := resolveTargetModule(sourceModule, segments, ref)

	return xmrmodel.Info{
		SourceModule: sourceModule,
		TargetModule: targetModule,
		TargetSignal: ref.TargetSignal,
		FullPath:     ref.FullPathText,
		PathSegments: segments,
		UpwardCount:  ref.UpwardCount,
		IsRead:       !ref.IsWriteContext,
		IsWrite:      ref.IsWriteContext,
		BitWidth:     ref.TargetWidth,
		SpanStart:    ref.SpanStart,
		SpanEnd:      ref.SpanEnd,
	}
}

// resolveTargetModule determines which module definition actually owns
// TargetSignal. The elaborator has already walked the instance tree to
// resolve this while filling in TargetWidth (frontend.resolveWidths), so
// the detector just reads it back. A purely lexical self-reference (no
// segments, no upward climb) is always the source module regardless of
// what the elaborator recorded. If TargetModuleDef was never resolved —
// a dangling hierarchy segment the elaborator could not walk — the last
// instance name in the path is the best available placeholder.
func resolveTargetModule(sourceModule string, segments []string, ref ast.RawHierRef) string {
	if len(segments) == 0 && ref.UpwardCount == 0 {
		return sourceModule
	}
	if ref.TargetModuleDef != "" {
		return ref.TargetModuleDef
	}
	if len(segments) > 0 {
		return segments[len(segments)-1]
	}
	return sourceModule
}
