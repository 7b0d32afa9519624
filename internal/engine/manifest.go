package engine

import (
	"sort"

	"github.com/valyala/fastjson"
)

// ManifestJSON renders a machine-readable summary of one run: which XMRs
// were eliminated, which modules reported errors or warnings, and the
// chosen top module — the same kind of structured fact dump the indexer
// writes alongside its cache, built the same way with an Arena instead of
// round-tripping through encoding/json.
func ManifestJSON(result *Result) []byte {
	arena := &fastjson.Arena{}
	root := arena.NewObject()
	root.Set("runId", arena.NewString(result.RunID))
	root.Set("chosenTopModule", arena.NewString(result.ChosenTopModule))

	topModules := arena.NewArray()
	sortedTop := append([]string(nil), result.TopModulesDetected...)
	sort.Strings(sortedTop)
	for i, m := range sortedTop {
		topModules.SetArrayItem(i, arena.NewString(m))
	}
	root.Set("topModulesDetected", topModules)

	eliminated := arena.NewArray()
	for i, x := range result.Eliminated {
		e := arena.NewObject()
		e.Set("sourceModule", arena.NewString(x.SourceModule))
		e.Set("fullPath", arena.NewString(x.FullPath))
		e.Set("uniqueId", arena.NewString(x.UniqueID()))
		eliminated.SetArrayItem(i, e)
	}
	root.Set("eliminated", eliminated)

	root.Set("errors", diagnosticsJSON(arena, result.Errors))
	root.Set("warnings", diagnosticsJSON(arena, result.Warnings))

	return root.MarshalTo(nil)
}

func diagnosticsJSON(arena *fastjson.Arena, diags []Diagnostic) *fastjson.Value {
	out := arena.NewArray()
	for i, d := range diags {
		item := arena.NewObject()
		item.Set("kind", arena.NewString(string(d.Kind)))
		item.Set("module", arena.NewString(d.Module))
		item.Set("message", arena.NewString(d.Message))
		out.SetArrayItem(i, item)
	}
	return out
}
