package analyzer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const conditionalShader = "#ifdef FOG\nlet a = 1;\n#else\nlet b = 2;\n#endif\n#import utils\nfn main() {}\n"

func resolveUtils(key string) (string, error) {
	if key == "utils" {
		return "fn util() {}", nil
	}
	return "", errors.New("file not found: " + key)
}

func TestPreprocessWithoutDefs(t *testing.T) {
	pre := Preprocess(conditionalShader, nil)

	require.Len(t, pre.Unconfigured, 1)
	assert.Equal(t, UnconfiguredCode{Start: 11, End: 22, Def: "FOG"}, pre.Unconfigured[0])
	assert.Equal(t, len(conditionalShader), len(pre.Text), "offsets are preserved")
	assert.Equal(t, strings.Repeat(" ", 10), pre.Text[11:21])

	require.Len(t, pre.Imports, 1)
	assert.Equal(t, ImportDirective{Key: "utils", Start: 46, End: 59}, pre.Imports[0])

	assert.Equal(t, "let b = 2;\nfn util() {}\nfn main() {}\n", pre.Expand(resolveUtils))
}

func TestPreprocessWithDefs(t *testing.T) {
	pre := Preprocess(conditionalShader, map[string]bool{"FOG": true})

	require.Len(t, pre.Unconfigured, 1)
	assert.Equal(t, UnconfiguredCode{Start: 28, End: 39, Def: "FOG"}, pre.Unconfigured[0])
	assert.Equal(t, "let a = 1;\nfn util() {}\nfn main() {}\n", pre.Expand(resolveUtils))
}

func TestPreprocessIfndefAndNesting(t *testing.T) {
	src := "#ifdef A\n#ifdef B\nx\n#endif\n#endif\n#ifndef A\ny\n#endif\n"
	pre := Preprocess(src, nil)

	require.Len(t, pre.Unconfigured, 1, "nested blocks report once, at the outermost disabled level")
	assert.Equal(t, UnconfiguredCode{Start: 9, End: 27, Def: "A"}, pre.Unconfigured[0])
	assert.Equal(t, "y\n", pre.Expand(resolveUtils))

	_, ok := pre.IsUnconfigured(18)
	assert.True(t, ok)
	_, ok = pre.IsUnconfigured(44)
	assert.False(t, ok)
}

func TestPreprocessUnterminatedBlock(t *testing.T) {
	src := "#ifdef MISSING\nlet a = 1;"
	pre := Preprocess(src, nil)

	require.Len(t, pre.Unconfigured, 1)
	assert.Equal(t, len(src), pre.Unconfigured[0].End)
	assert.Equal(t, "", pre.Expand(resolveUtils))
}

func TestInactiveImportsAreNotCollected(t *testing.T) {
	pre := Preprocess("#ifdef X\n#import hidden\n#endif\n#import \"shown.wgsl\"\n#import shown.wgsl\n", nil)
	assert.Equal(t, []string{"shown.wgsl"}, pre.ImportKeys())
}

func TestExpandWithoutDirectivesIsIdentity(t *testing.T) {
	for _, src := range []string{"", "fn main() {}", "let a = 1;\r\nlet b = 2;\n", sampleShader[len("#import bevy_pbr::utils\n"):]} {
		pre := Preprocess(src, nil)
		assert.Equal(t, src, pre.Expand(resolveUtils))
		assert.Equal(t, src, pre.Text)
	}
}

func TestExpandLeavesFailedImport(t *testing.T) {
	pre := Preprocess("#import missing\nfn main() {}\n", nil)
	out := pre.Expand(resolveUtils)

	assert.Equal(t, "#import missing // unresolved import: file not found: missing\nfn main() {}\n", out)
}

func TestExpandKeepsUnknownDirectives(t *testing.T) {
	src := "#define_import_path my::module\nfn f() {}\n"
	assert.Equal(t, src, Preprocess(src, nil).Expand(resolveUtils))
}
