package lspconv

import (
	"fmt"
	"strconv"
	"strings"

	"go.lsp.dev/protocol"
)

// ComparePositions orders a and b: -1 if a is before b, 0 if equal, 1 if after
func ComparePositions(a, b protocol.Position) int {
	switch {
	case a.Line < b.Line:
		return -1
	case a.Line > b.Line:
		return 1
	case a.Character < b.Character:
		return -1
	case a.Character > b.Character:
		return 1
	default:
		return 0
	}
}

// RangeContains reports whether pos lies in the half-open range [r.Start, r.End)
func RangeContains(r protocol.Range, pos protocol.Position) bool {
	return ComparePositions(r.Start, pos) <= 0 && ComparePositions(pos, r.End) < 0
}

// RangeIsInverted reports whether r ends before it starts
func RangeIsInverted(r protocol.Range) bool {
	return ComparePositions(r.Start, r.End) > 0
}

// FormatPosition renders pos as "line:character"
func FormatPosition(pos protocol.Position) string {
	return fmt.Sprintf("%d:%d", pos.Line, pos.Character)
}

// ParsePosition parses "line:character" (zero-based)
func ParsePosition(s string) (protocol.Position, error) {
	var pos protocol.Position
	lineStr, charStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return pos, fmt.Errorf("position %q: expected line:character", s)
	}
	line, err := strconv.ParseUint(lineStr, 10, 32)
	if err != nil {
		return pos, fmt.Errorf("position %q: bad line: %w", s, err)
	}
	char, err := strconv.ParseUint(charStr, 10, 32)
	if err != nil {
		return pos, fmt.Errorf("position %q: bad character: %w", s, err)
	}
	pos.Line = uint32(line)
	pos.Character = uint32(char)
	return pos, nil
}

// ParseRange parses "l:c-l:c"
func ParseRange(s string) (protocol.Range, error) {
	var r protocol.Range
	startStr, endStr, ok := strings.Cut(s, "-")
	if !ok {
		return r, fmt.Errorf("range %q: expected start-end", s)
	}
	start, err := ParsePosition(startStr)
	if err != nil {
		return r, err
	}
	end, err := ParsePosition(endStr)
	if err != nil {
		return r, err
	}
	r.Start, r.End = start, end
	return r, nil
}
