package documents

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	errs "shader-lsp/src/internal/errors"
	"shader-lsp/src/utils/lspconv"
)

// Document is an immutable snapshot of an open text document. Changes
// produce a new snapshot.
type Document struct {
	URI        uri.URI
	LanguageID string
	Version    int32
	Text       string

	// lineStarts holds the byte offset of each line start
	lineStarts []int
}

// NewDocument builds a snapshot and its line index
func NewDocument(u uri.URI, languageID string, version int32, text string) *Document {
	d := &Document{URI: u, LanguageID: languageID, Version: version, Text: text}
	d.lineStarts = append(d.lineStarts, 0)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			d.lineStarts = append(d.lineStarts, i+1)
		}
	}
	return d
}

// LineCount returns the number of lines. A trailing newline opens an empty
// last line.
func (d *Document) LineCount() int {
	return len(d.lineStarts)
}

// Line returns the text of line n without its terminator
func (d *Document) Line(n int) string {
	if n < 0 || n >= len(d.lineStarts) {
		return ""
	}
	start := d.lineStarts[n]
	end := len(d.Text)
	if n+1 < len(d.lineStarts) {
		end = d.lineStarts[n+1] - 1
	}
	return strings.TrimSuffix(d.Text[start:end], "\r")
}

// End returns the position just past the last character
func (d *Document) End() protocol.Position {
	last := len(d.lineStarts) - 1
	return protocol.Position{Line: uint32(last), Character: utf16Len(d.Line(last))}
}

// Offset converts a UTF-16 position to a byte offset. A line past the end of
// the document is an error; a character past the end of its line is clamped
// to the line end.
func (d *Document) Offset(pos protocol.Position) (int, error) {
	if int(pos.Line) >= d.LineCount() {
		return 0, errs.NewInvalidPositionError(pos.Line, pos.Character,
			fmt.Sprintf("document has %d lines", d.LineCount()))
	}
	line := d.Line(int(pos.Line))
	return d.lineStarts[pos.Line] + byteOffsetOfUTF16(line, pos.Character), nil
}

// PositionAt converts a byte offset to a UTF-16 position. Offsets outside
// the text are clamped.
func (d *Document) PositionAt(offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.Text) {
		offset = len(d.Text)
	}
	line := sort.Search(len(d.lineStarts), func(i int) bool { return d.lineStarts[i] > offset }) - 1
	start := d.lineStarts[line]
	text := d.Line(line)
	if offset-start > len(text) {
		// inside the line terminator
		offset = start + len(text)
	}
	return protocol.Position{Line: uint32(line), Character: utf16Len(d.Text[start:offset])}
}

// Contains reports whether pos lies inside the document: its line exists
// and its character is at most the line length. End-of-line and end-of-file
// are included. Unlike Offset it never clamps.
func (d *Document) Contains(pos protocol.Position) bool {
	if int(pos.Line) >= len(d.lineStarts) {
		return false
	}
	return pos.Character <= utf16Len(d.Line(int(pos.Line)))
}

// CheckPosition returns InvalidPosition when pos is outside the document
func (d *Document) CheckPosition(pos protocol.Position) error {
	if d.Contains(pos) {
		return nil
	}
	return errs.NewInvalidPositionError(pos.Line, pos.Character, d.describeBounds(pos))
}

func (d *Document) describeBounds(pos protocol.Position) string {
	if int(pos.Line) >= d.LineCount() {
		return fmt.Sprintf("document has %d lines and ends at %s", d.LineCount(), lspconv.FormatPosition(d.End()))
	}
	return fmt.Sprintf("line %d has %d characters", pos.Line, utf16Len(d.Line(int(pos.Line))))
}

// Span converts a range to a byte span [start, end). A nil range spans the
// whole document. Bounds outside the document or an inverted range are
// InvalidRange.
func (d *Document) Span(r *protocol.Range) (int, int, error) {
	if r == nil {
		return 0, len(d.Text), nil
	}
	if lspconv.RangeIsInverted(*r) {
		return 0, 0, errs.NewInvalidRangeError(fmt.Sprintf("start %s is after end %s",
			lspconv.FormatPosition(r.Start), lspconv.FormatPosition(r.End)))
	}
	for _, p := range []protocol.Position{r.Start, r.End} {
		if !d.Contains(p) {
			return 0, 0, errs.NewInvalidRangeError(fmt.Sprintf("%s is outside the document: %s",
				lspconv.FormatPosition(p), d.describeBounds(p)))
		}
	}
	start, _ := d.Offset(r.Start)
	end, _ := d.Offset(r.End)
	return start, end, nil
}

// Apply returns a new snapshot with changes applied in order. A change
// without a range replaces the whole text.
func (d *Document) Apply(version int32, changes []ContentChange) (*Document, error) {
	text := d.Text
	cur := d
	for i, ch := range changes {
		if ch.Range == nil {
			text = ch.Text
		} else {
			start, end, err := cur.editSpan(*ch.Range)
			if err != nil {
				return nil, fmt.Errorf("content change %d: %w", i, err)
			}
			text = text[:start] + ch.Text + text[end:]
		}
		cur = NewDocument(d.URI, d.LanguageID, version, text)
	}
	if cur == d {
		cur = NewDocument(d.URI, d.LanguageID, version, text)
	}
	return cur, nil
}

// editSpan is lenient like the base protocol: characters past a line end
// clamp, only lines past the end fail.
func (d *Document) editSpan(r protocol.Range) (int, int, error) {
	if lspconv.RangeIsInverted(r) {
		return 0, 0, errs.NewInvalidRangeError("inverted edit range")
	}
	start, err := d.Offset(r.Start)
	if err != nil {
		return 0, 0, errs.NewInvalidRangeError(err.Error())
	}
	end, err := d.Offset(r.End)
	if err != nil {
		return 0, 0, errs.NewInvalidRangeError(err.Error())
	}
	return start, end, nil
}

func utf16Len(s string) uint32 {
	var n uint32
	for _, r := range s {
		n += uint32(utf16.RuneLen(r))
	}
	return n
}

// byteOffsetOfUTF16 walks line until units UTF-16 code units are consumed.
// A unit count inside a surrogate pair resolves to the start of the rune.
func byteOffsetOfUTF16(line string, units uint32) int {
	var seen uint32
	for i, r := range line {
		if seen >= units {
			return i
		}
		w := uint32(utf16.RuneLen(r))
		if seen+w > units {
			return i
		}
		seen += w
	}
	return len(line)
}
