package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndGetWorkingDir(t *testing.T) {
	tempDir := t.TempDir()
	currentDir, err := os.Getwd()
	require.NoError(t, err)

	t.Run("empty_uses_current", func(t *testing.T) {
		got, err := ValidateAndGetWorkingDir("")
		require.NoError(t, err)
		assert.Equal(t, currentDir, got)
	})

	t.Run("valid_absolute", func(t *testing.T) {
		got, err := ValidateAndGetWorkingDir(tempDir)
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ValidateAndGetWorkingDir(filepath.Join(tempDir, "missing"))
		assert.Error(t, err)
	})

	t.Run("file_not_dir", func(t *testing.T) {
		file := filepath.Join(tempDir, "f.wgsl")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
		_, err := ValidateAndGetWorkingDir(file)
		assert.Error(t, err)
	})
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	got, err = ExpandPath("~/shaders/a.wgsl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "shaders", "a.wgsl"), got)

	got, err = ExpandPath("/abs/a.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "/abs/a.wgsl", got)

	assert.Equal(t, filepath.Join(home, ".shader-lsp"), ConfigDir())
}

func TestSafeReadFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "s.yaml"), []byte("a: 1"), 0o644))

	data, err := SafeReadFile("~/s.yaml")
	require.NoError(t, err)
	assert.Equal(t, "a: 1", string(data))
	assert.True(t, FileExists(filepath.Join(home, "s.yaml")))

	_, err = SafeReadFile("~/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
