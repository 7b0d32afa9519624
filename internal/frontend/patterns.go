package frontend

import "regexp"

var (
	// modulePattern: "module <name>", the header keyword and name only —
	// the port list itself is scanned by hand since its parentheses can
	// nest (array ranges inside port declarations).
	modulePattern = regexp.MustCompile(`(?m)^\s*module\s+(\w+)\b`)

	// endmodulePattern closes the module body a header opened.
	endmodulePattern = regexp.MustCompile(`(?m)^\s*endmodule\b`)

	// signalPattern: "reg|wire|logic [msb:lsb] name;" — the width group is
	// optional, and only a single declared name is recognized per line
	// (comma-separated declaration lists are not).
	signalPattern = regexp.MustCompile(`(?m)^\s*(reg|wire|logic)\s*(?:\[\s*(\d+)\s*:\s*(\d+)\s*\])?\s*(\w+)\s*;`)

	// instancePattern: "<moduleType> <instanceName> (" at the start of a
	// statement — the line a module instantiation begins on.
	instancePattern = regexp.MustCompile(`(?m)^\s*(\w+)\s+(\w+)\s*\(`)

	// assignPattern: "assign <lhs> = <rhs>;" or a non-blocking "<lhs> <=
	// <rhs>;" inside an always block, both read as "drive lhs from rhs"
	// for the purposes of classifying an XMR operand's direction.
	assignPattern = regexp.MustCompile(`(?m)^\s*(?:assign\s+)?([^=;]+?)\s*<?=\s*([^;]+);`)

	// hierRefPattern: a dotted identifier chain of at least two segments,
	// with an optional trailing array/bit-select suffix.
	hierRefPattern = regexp.MustCompile(`\b[A-Za-z_]\w*(?:\.[A-Za-z_]\w*)+(?:\s*\[[^][]*\])*`)

	// portEntryDirPattern parses one ANSI port entry's leading direction
	// and optional net-type/width, leaving the bare name as the remainder.
	portEntryDirPattern = regexp.MustCompile(`^\s*(input|output|inout)?\s*(wire|reg|logic)?\s*(?:\[\s*(\d+)\s*:\s*(\d+)\s*\])?\s*(\w+)\s*$`)
)
