// Package frontend is a best-effort regex scanner that turns plain
// SystemVerilog source text into the ast.Design and cst.File shapes the
// engine operates on, standing in for the real parser/elaborator the
// core components treat as an external collaborator. It recognizes a
// deliberately narrow subset of the language — single-line signal
// declarations, ANSI or empty port lists, simple instantiations, and
// assign/always-block hierarchical references — enough to drive the CLI
// end to end on straightforward inputs. Anything it cannot confidently
// classify is left alone rather than guessed at, the same caution the
// indexer's regex fallback extractor takes when Tree-sitter isn't
// available.
package frontend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hdltools/xmr-eliminate/internal/ast"
	"github.com/hdltools/xmr-eliminate/internal/cst"
	"github.com/hdltools/xmr-eliminate/internal/instmap"
)

// instRef is one instantiation recorded while scanning a module body,
// kept alongside the ast.Design so the instance tree can be assembled
// once every file has been scanned.
type instRef struct {
	instanceName string
	typeName     string
}

// Scan parses sources (path -> file content) into a Design and the
// matching concrete-syntax Files, in one combined pass so instances can
// reference module definitions declared in any input file.
func Scan(sources map[string][]byte) (*ast.Design, []*cst.File, error) {
	design := ast.NewDesign()
	var files []*cst.File
	moduleInstances := make(map[string][]instRef)
	pendingRefs := make(map[string][]ast.RawHierRef) // moduleName -> unresolved refs

	paths := make([]string, 0, len(sources))
	for p := range sources {
		paths = append(paths, p)
	}
	sortStrings(paths)

	for _, path := range paths {
		src := sources[path]
		f, mods, insts, refs, err := scanFile(path, src)
		if err != nil {
			return nil, nil, fmt.Errorf("frontend: scanning %s: %w", path, err)
		}
		files = append(files, f)
		for _, m := range mods {
			design.AddModule(m)
		}
		for mod, list := range insts {
			moduleInstances[mod] = append(moduleInstances[mod], list...)
		}
		for mod, list := range refs {
			pendingRefs[mod] = append(pendingRefs[mod], list...)
		}
	}

	design.Root.Children = buildTopLevel(design, moduleInstances)

	imap := instmap.Build(design)
	resolveWidths(design, imap, pendingRefs)

	return design, files, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// buildTopLevel wraps every module never instantiated by another module
// in a synthetic instance so the tree has a single traversal root.
func buildTopLevel(design *ast.Design, moduleInstances map[string][]instRef) []*ast.Instance {
	instantiated := make(map[string]bool)
	for _, list := range moduleInstances {
		for _, r := range list {
			instantiated[r.typeName] = true
		}
	}

	var tops []*ast.Instance
	names := make([]string, 0, len(design.Modules))
	for name := range design.Modules {
		names = append(names, name)
	}
	sortStrings(names)

	for _, name := range names {
		if instantiated[name] {
			continue
		}
		inst := &ast.Instance{Name: "u_" + name, ModuleDef: name}
		attachChildren(inst, moduleInstances, map[string]bool{})
		tops = append(tops, inst)
	}
	return tops
}

func attachChildren(parent *ast.Instance, moduleInstances map[string][]instRef, onPath map[string]bool) {
	if onPath[parent.ModuleDef] {
		return // guard against a self-instantiating module definition
	}
	onPath[parent.ModuleDef] = true
	defer delete(onPath, parent.ModuleDef)

	for _, r := range moduleInstances[parent.ModuleDef] {
		child := &ast.Instance{Name: r.instanceName, ModuleDef: r.typeName}
		attachChildren(child, moduleInstances, onPath)
		parent.Children = append(parent.Children, child)
	}
}

// resolveWidths routes each pending reference through the freshly built
// instance map to find the module that owns its target signal, filling
// in TargetModuleDef and, from that module's declared signal/port width,
// TargetWidth.
func resolveWidths(design *ast.Design, imap *instmap.Map, pendingRefs map[string][]ast.RawHierRef) {
	for modName, refs := range pendingRefs {
		mod := design.Modules[modName]
		if mod == nil {
			continue
		}
		for _, ref := range refs {
			targetModule, ok := resolveTargetModuleDef(imap, modName, ref)
			if !ok {
				continue
			}
			tm := design.Modules[targetModule]
			if tm == nil {
				continue
			}
			width, hasWidth := tm.SignalWidth(ref.TargetSignal)
			for i := range mod.HierRefs {
				if mod.HierRefs[i].FullPathText == ref.FullPathText {
					mod.HierRefs[i].TargetModuleDef = targetModule
					if hasWidth {
						mod.HierRefs[i].TargetWidth = width
					}
				}
			}
		}
	}
}

// resolveTargetModuleDef walks ref's path through imap to the module
// definition that declares its target signal: downward through segs for
// a purely relative reference, or a climb of UpwardCount levels followed
// by the same downward walk for an absolute one. A self-reference (no
// segments, no upward climb) resolves to modName itself. Returns false
// if the walk hits a dangling hierarchy segment.
func resolveTargetModuleDef(imap *instmap.Map, modName string, ref ast.RawHierRef) (string, bool) {
	segs := instanceSegments(ref.Path)

	if ref.UpwardCount > 0 {
		rootModule, _, downHops, err := imap.UpwardRoute(modName, ref.UpwardCount, segs)
		if err != nil {
			return "", false
		}
		if len(downHops) > 0 {
			return downHops[len(downHops)-1].ChildModule, true
		}
		return rootModule, true
	}

	if len(segs) == 0 {
		return modName, true
	}
	hops, err := imap.RouteDownward(modName, segs)
	if err != nil || len(hops) == 0 {
		return "", false
	}
	return hops[len(hops)-1].ChildModule, true
}

func instanceSegments(path []ast.PathElem) []string {
	var segs []string
	for _, p := range path {
		segs = append(segs, p.Name)
	}
	return segs
}

// scanFile scans one file's source text, returning its concrete-syntax
// record, every module definition found, every instantiation keyed by
// its enclosing module, and every unresolved hierarchical reference
// keyed by its enclosing module.
func scanFile(path string, src []byte) (*cst.File, []*ast.Module, map[string][]instRef, map[string][]ast.RawHierRef, error) {
	text := string(src)
	f := &cst.File{Path: path, Source: src}

	var modules []*ast.Module
	insts := make(map[string][]instRef)
	refs := make(map[string][]ast.RawHierRef)

	headers := modulePattern.FindAllStringSubmatchIndex(text, -1)
	for hi, h := range headers {
		name := text[h[2]:h[3]]
		headerStart, headerEnd := h[0], h[1]

		bodyStart, portListKind, portListInsertAt, headerSpan, ports := scanHeader(text, headerStart, headerEnd)

		bodyEnd := len(text)
		if m := endmodulePattern.FindStringIndex(text[bodyStart:]); m != nil {
			bodyEnd = bodyStart + m[0]
		} else if hi+1 < len(headers) {
			bodyEnd = headers[hi+1][0]
		}
		body := text[bodyStart:bodyEnd]

		mod := &ast.Module{Name: name, Ports: ports, PortListKind: portListKind}
		cstMod := cst.Module{
			Name:               name,
			HeaderPortListKind: int(portListKind),
			PortListInsertAt:   portListInsertAt,
			HeaderRewriteSpan:  headerSpan,
			BodyInsertFront:    bodyStart,
			BodyInsertBack:     bodyEnd,
		}

		for _, sm := range signalPattern.FindAllStringSubmatchIndex(body, -1) {
			sigName := body[sm[8]:sm[9]]
			width := 1
			if sm[4] >= 0 && sm[6] >= 0 {
				hi, _ := strconv.Atoi(body[sm[4]:sm[5]])
				lo, _ := strconv.Atoi(body[sm[6]:sm[7]])
				width = hi - lo + 1
			}
			mod.Signals = append(mod.Signals, ast.Signal{Name: sigName, Width: width})
		}

		for _, im := range instancePattern.FindAllStringSubmatchIndex(body, -1) {
			typeName := body[im[2]:im[3]]
			instName := body[im[4]:im[5]]
			if isKeyword(typeName) {
				continue
			}
			insts[name] = append(insts[name], instRef{instanceName: instName, typeName: typeName})

			openParen := im[1] - 1
			closeIdx := matchParen(body, openParen)
			hasExisting := closeIdx > openParen+1 && strings.TrimSpace(body[openParen+1:closeIdx]) != ""
			cstMod.Instances = append(cstMod.Instances, cst.Instance{
				TypeName:               typeName,
				InstanceName:           instName,
				ConnectionsInsertAt:    bodyStart + closeIdx,
				HasExistingConnections: hasExisting,
			})
		}

		for _, am := range assignPattern.FindAllStringSubmatchIndex(body, -1) {
			lhs := body[am[2]:am[3]]
			rhs := body[am[4]:am[5]]
			lhsOff, rhsOff := am[2], am[4]
			for _, hm := range hierRefPattern.FindAllStringIndex(lhs, -1) {
				ref := buildRawRef(name, lhs[hm[0]:hm[1]], bodyStart+lhsOff+hm[0], bodyStart+lhsOff+hm[1], true)
				if ref != nil {
					mod.HierRefs = append(mod.HierRefs, *ref)
					refs[name] = append(refs[name], *ref)
				}
			}
			for _, hm := range hierRefPattern.FindAllStringIndex(rhs, -1) {
				ref := buildRawRef(name, rhs[hm[0]:hm[1]], bodyStart+rhsOff+hm[0], bodyStart+rhsOff+hm[1], false)
				if ref != nil {
					mod.HierRefs = append(mod.HierRefs, *ref)
					refs[name] = append(refs[name], *ref)
				}
			}
		}

		modules = append(modules, mod)
		f.Modules = append(f.Modules, cstMod)
	}

	return f, modules, insts, refs, nil
}

// scanHeader scans a module header's port list by hand, starting right
// after the module keyword and name, since its parentheses may nest
// (width ranges) in a way a single regular expression cannot balance.
func scanHeader(text string, headerStart, headerEnd int) (bodyStart int, kind ast.PortListKind, portListInsertAt int, headerSpan cst.Span, ports []ast.Port) {
	i := headerEnd
	for i < len(text) && isSpace(text[i]) {
		i++
	}

	if i >= len(text) || text[i] != '(' {
		// No port list at all: "module name;" — the rewriter will splice
		// a brand-new ANSI port list into the header itself.
		semi := strings.IndexByte(text[i:], ';')
		end := len(text)
		if semi >= 0 {
			end = i + semi + 1
		}
		return end, ast.PortListNone, -1, cst.Span{Start: headerStart, End: headerEnd}, nil
	}

	openParen := i
	closeParen := matchParen(text, openParen)
	listText := text[openParen+1 : closeParen]

	j := closeParen + 1
	for j < len(text) && isSpace(text[j]) {
		j++
	}
	if j < len(text) && text[j] == ';' {
		j++
	}

	entries := splitTopLevel(listText)
	ansi := false
	for _, e := range entries {
		if m := portEntryDirPattern.FindStringSubmatch(e); m != nil && m[1] != "" {
			ansi = true
			break
		}
	}

	kind = ast.PortListNonANSI
	if ansi {
		kind = ast.PortListANSI
		for _, e := range entries {
			if p := parsePortEntry(e); p != nil {
				ports = append(ports, *p)
			}
		}
	}

	return j, kind, closeParen, cst.Span{}, ports
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// splitTopLevel splits a comma-separated list on commas that sit outside
// any bracket nesting, so a width range like "[7:0]" is never split.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, c := range s {
		switch c {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if strings.TrimSpace(s[start:]) != "" {
		parts = append(parts, s[start:])
	}
	return parts
}

func parsePortEntry(e string) *ast.Port {
	m := portEntryDirPattern.FindStringSubmatch(e)
	if m == nil || m[5] == "" {
		return nil
	}
	dir := ast.DirInput
	switch m[1] {
	case "output":
		dir = ast.DirOutput
	case "inout":
		dir = ast.DirInout
	}
	width := 1
	if m[3] != "" && m[4] != "" {
		hi, _ := strconv.Atoi(m[3])
		lo, _ := strconv.Atoi(m[4])
		width = hi - lo + 1
	}
	return &ast.Port{Name: m[5], Direction: dir, Width: width}
}

func isKeyword(s string) bool {
	switch s {
	case "reg", "wire", "logic", "assign", "always", "initial", "input", "output", "inout", "parameter", "localparam":
		return true
	}
	return false
}

// matchParen returns the index within s of the ')' matching the '(' at
// openIdx, or len(s) if unmatched.
func matchParen(s string, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(s)
}

// buildRawRef turns one dotted-identifier match into a RawHierRef,
// splitting it into path segments and a bare target signal name. A
// single-segment match (no dots) is not a hierarchical reference at all
// and is ignored by the caller via a nil return.
func buildRawRef(sourceModule, text string, start, end int, isWrite bool) *ast.RawHierRef {
	trimmed := strings.TrimSpace(text)
	base := trimmed
	if i := strings.IndexByte(base, '['); i >= 0 {
		base = base[:i]
	}
	segs := strings.Split(base, ".")
	if len(segs) < 2 {
		return nil
	}

	var path []ast.PathElem
	for _, s := range segs[:len(segs)-1] {
		path = append(path, ast.PathElem{Name: s, Kind: ast.SymbolInstance})
	}

	return &ast.RawHierRef{
		FullPathText:   trimmed,
		Path:           path,
		TargetSignal:   segs[len(segs)-1],
		IsWriteContext: isWrite,
		SpanStart:      start,
		SpanEnd:        end,
	}
}
