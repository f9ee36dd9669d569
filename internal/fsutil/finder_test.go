package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bakery.hcl"))
	writeFile(t, filepath.Join(dir, "nested", "dough.yaml"))
	writeFile(t, filepath.Join(dir, "nested", "notes.txt"))
	writeFile(t, filepath.Join(dir, "nested", "deeper", "oven.yml"))

	t.Run("directory is searched recursively", func(t *testing.T) {
		files, err := FindFiles([]string{dir}, ".hcl", ".yaml", ".yml")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "bakery.hcl"),
			filepath.Join(dir, "nested", "deeper", "oven.yml"),
			filepath.Join(dir, "nested", "dough.yaml"),
		}, files)
	})

	t.Run("explicit files are kept regardless of extension", func(t *testing.T) {
		notes := filepath.Join(dir, "nested", "notes.txt")
		files, err := FindFiles([]string{notes}, ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{notes}, files)
	})

	t.Run("overlapping paths are de-duplicated", func(t *testing.T) {
		files, err := FindFiles([]string{dir, filepath.Join(dir, "bakery.hcl")}, ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "bakery.hcl")}, files)
	})

	t.Run("missing path fails", func(t *testing.T) {
		_, err := FindFiles([]string{filepath.Join(dir, "absent")}, ".hcl")
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestFindFiles_PanicsWithoutExtensions(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFiles([]string{"."}) })
}
