// Package nameutil provides the deterministic name-synthesis helpers the
// planner and rewriter share: turning an XMR path into a port name, and
// splitting a path into its identifier backbone and array-select suffix.
package nameutil

import "strings"

// PortPrefix is prepended to every synthesized XMR port/wire name.
const PortPrefix = "__xmr__"

// GeneratePortName collapses every run of dots, spaces, and tabs in path
// into a single underscore, then prefixes the result. Consecutive
// separators never produce an empty part, so "u_a..u_b" and "u_a.u_b"
// generate the same name.
func GeneratePortName(path string) string {
	var b strings.Builder
	b.WriteString(PortPrefix)
	lastWasSep := true
	for _, c := range path {
		switch c {
		case '.', ' ', '\t', '\n':
			if !lastWasSep {
				b.WriteByte('_')
				lastWasSep = true
			}
		default:
			b.WriteRune(c)
			lastWasSep = false
		}
	}
	return b.String()
}

// ExtractBasePath strips every "[...]" subrange at bracket depth >= 1,
// leaving the identifier backbone. Example: "u_sub.arr[2][3]" -> "u_sub.arr".
func ExtractBasePath(text string) string {
	var b strings.Builder
	depth := 0
	for _, c := range text {
		switch {
		case c == '[':
			depth++
		case c == ']':
			depth--
		case depth == 0:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// ExtractArraySuffix returns the concatenation of every "[...]" group in
// path, in order. Example: "u_sub.arr[2][3]" -> "[2][3]".
func ExtractArraySuffix(text string) string {
	var b strings.Builder
	depth := 0
	for _, c := range text {
		switch {
		case c == '[':
			depth++
			b.WriteRune(c)
		case c == ']':
			b.WriteRune(c)
			depth--
		case depth > 0:
			b.WriteRune(c)
		}
	}
	return b.String()
}
