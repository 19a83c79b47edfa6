package documents

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	errs "shader-lsp/src/internal/errors"
)

func pos(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func rng(sl, sc, el, ec uint32) *protocol.Range {
	return &protocol.Range{Start: pos(sl, sc), End: pos(el, ec)}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	u := protocol.DocumentURI("file:///proj/a.wgsl")

	_, err := m.Get(u)
	assert.True(t, errors.Is(err, errs.ErrInvalidDocument))

	doc := m.Open(protocol.TextDocumentItem{URI: u, Version: 1, Text: "fn main() {}\n"})
	assert.Equal(t, "wgsl", doc.LanguageID)
	assert.Equal(t, 1, m.Len())

	next, err := m.Change(protocol.VersionedTextDocumentIdentifier{
		TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: u},
		Version:                2,
	}, []ContentChange{{Range: rng(0, 3, 0, 7), Text: "entry"}})
	require.NoError(t, err)
	assert.Equal(t, "fn entry() {}\n", next.Text)
	assert.Equal(t, int32(2), next.Version)
	assert.Equal(t, "fn main() {}\n", doc.Text, "snapshots are immutable")

	assert.Equal(t, []protocol.DocumentURI{u}, m.List())
	require.NoError(t, m.Close(u))
	assert.True(t, errors.Is(m.Close(u), errs.ErrInvalidDocument))
}

func TestChangeUnknownDocument(t *testing.T) {
	m := NewManager()
	_, err := m.Change(protocol.VersionedTextDocumentIdentifier{
		TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///x.wgsl"},
	}, nil)
	assert.True(t, errors.Is(err, errs.ErrInvalidDocument))
}

func TestApplyFullAndRangedChanges(t *testing.T) {
	doc := NewDocument("file:///a.wgsl", "wgsl", 1, "let a = 1;\nlet b = 2;\n")

	next, err := doc.Apply(2, []ContentChange{
		{Text: "const x = 1;"},
		{Range: rng(0, 6, 0, 7), Text: "y"},
		{Range: rng(0, 12, 0, 12), Text: "\nconst z = 2;"},
	})
	require.NoError(t, err)
	assert.Equal(t, "const y = 1;\nconst z = 2;", next.Text)

	_, err = doc.Apply(2, []ContentChange{{Range: rng(9, 0, 9, 1), Text: "x"}})
	assert.True(t, errors.Is(err, errs.ErrInvalidRange))
}

func TestOffsetUTF16(t *testing.T) {
	// "é" is one UTF-16 unit and two bytes, "😀" is two units and four bytes
	doc := NewDocument("file:///u.wgsl", "wgsl", 1, "// é😀x\r\nfn f() {}")

	tests := []struct {
		name string
		pos  protocol.Position
		want int
	}{
		{"line start", pos(0, 0), 0},
		{"after e-acute", pos(0, 4), 5},
		{"after emoji", pos(0, 6), 9},
		{"inside surrogate pair", pos(0, 5), 5},
		{"past line end clamps before CR", pos(0, 40), 10},
		{"second line", pos(1, 3), 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, err := doc.Offset(tt.pos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, off)
		})
	}

	_, err := doc.Offset(pos(2, 0))
	assert.True(t, errors.Is(err, errs.ErrInvalidPosition))
}

func TestPositionAtInvertsOffset(t *testing.T) {
	doc := NewDocument("file:///u.wgsl", "wgsl", 1, "a😀b\nsecond\n")

	for _, p := range []protocol.Position{pos(0, 0), pos(0, 1), pos(0, 3), pos(0, 4), pos(1, 2), pos(2, 0)} {
		off, err := doc.Offset(p)
		require.NoError(t, err)
		assert.Equal(t, p, doc.PositionAt(off))
	}
	assert.Equal(t, pos(2, 0), doc.PositionAt(1000))
}

func TestSpan(t *testing.T) {
	doc := NewDocument("file:///a.wgsl", "wgsl", 1, "fn a() {}\nfn b() {}")

	start, end, err := doc.Span(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	assert.Equal(t, len(doc.Text), end)

	start, end, err = doc.Span(rng(1, 0, 1, 9))
	require.NoError(t, err)
	assert.Equal(t, "fn b() {}", doc.Text[start:end])

	invalid := []*protocol.Range{
		rng(1, 0, 0, 0),  // inverted
		rng(0, 0, 5, 0),  // end line past EOF
		rng(0, 0, 1, 10), // end character past EOF
		rng(0, 10, 1, 0), // start character past its line
		rng(0, 500, 1, 700),
	}
	for _, r := range invalid {
		_, _, err := doc.Span(r)
		assert.True(t, errors.Is(err, errs.ErrInvalidRange), "%v", r)
	}
}

func TestCheckPosition(t *testing.T) {
	doc := NewDocument("file:///a.wgsl", "wgsl", 1, "fn a() {}\n")

	assert.NoError(t, doc.CheckPosition(pos(0, 4)))
	assert.NoError(t, doc.CheckPosition(pos(1, 0)), "end of file is inside")
	assert.True(t, errors.Is(doc.CheckPosition(pos(1, 1)), errs.ErrInvalidPosition))
	err := doc.CheckPosition(pos(7, 0))
	assert.True(t, errors.Is(err, errs.ErrInvalidPosition))
	assert.Contains(t, err.Error(), "document has 2 lines")
	assert.Equal(t, 2, doc.LineCount())
	assert.Equal(t, pos(1, 0), doc.End())
}

func TestCheckPositionPastLineEnd(t *testing.T) {
	doc := NewDocument("file:///a.wgsl", "wgsl", 1, "fn main() {}\n// x\n")

	assert.NoError(t, doc.CheckPosition(pos(0, 12)), "end of line is inside")
	assert.NoError(t, doc.CheckPosition(pos(1, 4)))

	for _, p := range []protocol.Position{pos(0, 13), pos(0, 999), pos(1, 5)} {
		err := doc.CheckPosition(p)
		assert.True(t, errors.Is(err, errs.ErrInvalidPosition), "%v", p)
	}
	assert.Contains(t, doc.CheckPosition(pos(0, 999)).Error(), "line 0 has 12 characters")
}

func TestCheckPositionCountsUTF16(t *testing.T) {
	// 𝒳 is two UTF-16 code units
	doc := NewDocument("file:///a.wgsl", "wgsl", 1, "// 𝒳\nfn a() {}")

	assert.NoError(t, doc.CheckPosition(pos(0, 5)))
	assert.True(t, errors.Is(doc.CheckPosition(pos(0, 6)), errs.ErrInvalidPosition))
}

func TestEditsClampPastLineEnd(t *testing.T) {
	doc := NewDocument("file:///a.wgsl", "wgsl", 1, "fn a() {}\nfn b() {}")

	next, err := doc.Apply(2, []ContentChange{{Range: rng(0, 6, 0, 40), Text: ""}})
	require.NoError(t, err)
	assert.Equal(t, "fn a()\nfn b() {}", next.Text)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "wgsl", DetectLanguage("file:///a.WGSL"))
	assert.Equal(t, "wgsl", DetectLanguage("a.shader"))
	assert.Equal(t, "", DetectLanguage("main.go"))
}
