package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	_, err := ResolvePath("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	abs, err := ResolvePath("./site/../site")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
	assert.Equal(t, "site", filepath.Base(abs))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	got, err := ResolvePath("~/hub")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "hub"), got)

	got, err = ResolvePath("~")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(home), got)

	// only the current user's home is expanded
	got, err = ResolvePath("~other/hub")
	require.NoError(t, err)
	assert.Equal(t, "~other", filepath.Base(filepath.Dir(got)))
}

func TestNormPath_Separators(t *testing.T) {
	assert.Equal(t, "content/blog/a.json", NormPath("/content//blog/./a.json"))
	assert.Equal(t, "content/a.json", NormPath(`content\a.json`))
	assert.Equal(t, "pages", NormPath("pages/"))
}

func TestEnsureParentAndExists(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a", "b", "c.json")

	require.NoError(t, EnsureParent(file))
	assert.DirExists(t, filepath.Dir(file))
	assert.False(t, FileExists(file))

	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))
	assert.True(t, FileExists(file))
	assert.False(t, FileExists(filepath.Dir(file)))
}
