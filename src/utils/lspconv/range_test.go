package lspconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func pos(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func TestRangeContainsIsHalfOpen(t *testing.T) {
	r := protocol.Range{Start: pos(1, 4), End: pos(3, 0)}

	assert.True(t, RangeContains(r, pos(1, 4)))
	assert.True(t, RangeContains(r, pos(2, 100)))
	assert.False(t, RangeContains(r, pos(3, 0)), "end is exclusive")
	assert.False(t, RangeContains(r, pos(1, 3)))
	assert.False(t, RangeContains(protocol.Range{Start: pos(2, 2), End: pos(2, 2)}, pos(2, 2)))
}

func TestComparePositions(t *testing.T) {
	assert.Equal(t, -1, ComparePositions(pos(0, 9), pos(1, 0)))
	assert.Equal(t, 1, ComparePositions(pos(1, 1), pos(1, 0)))
	assert.Equal(t, 0, ComparePositions(pos(5, 5), pos(5, 5)))
	assert.True(t, RangeIsInverted(protocol.Range{Start: pos(2, 0), End: pos(1, 0)}))
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("1:2-3:4")
	require.NoError(t, err)
	assert.Equal(t, protocol.Range{Start: pos(1, 2), End: pos(3, 4)}, r)
	assert.Equal(t, "3:4", FormatPosition(r.End))

	for _, bad := range []string{"", "1:2", "1-2", "a:b-c:d", "1:2-3"} {
		_, err := ParseRange(bad)
		assert.Error(t, err, bad)
	}
}
