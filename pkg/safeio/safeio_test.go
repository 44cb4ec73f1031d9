package safeio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayPath(t *testing.T) {
	assert.Equal(t, "src/app.js", DisplayPath("src/./app.js"))
	assert.Equal(t, "../lib/a.php", DisplayPath("../lib//a.php"))
	assert.Equal(t, ".", DisplayPath(""))
}

func TestWriteFilePreservePerms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	require.NoError(t, WriteFilePreservePerms(path, []byte("{}")))
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), st.Mode().Perm())

	require.NoError(t, os.Chmod(path, 0o600))
	require.NoError(t, WriteFilePreservePerms(path, []byte("[]")))
	st, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWriteFilePreservePermsErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, WriteFilePreservePerms(filepath.Join(dir, "missing", "out.txt"), []byte("x")))
	assert.Error(t, WriteFilePreservePerms(dir, []byte("x")))
}

func TestReadFileContained(t *testing.T) {
	base := t.TempDir()
	inside := filepath.Join(base, "src", "a.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(inside), 0o750))
	require.NoError(t, os.WriteFile(inside, []byte("var a = 1;"), 0o600))

	data, err := ReadFileContained(base, inside)
	require.NoError(t, err)
	assert.Equal(t, "var a = 1;", string(data))

	outside := filepath.Join(t.TempDir(), "secret.php")
	require.NoError(t, os.WriteFile(outside, []byte("<?php"), 0o600))
	_, err = ReadFileContained(base, outside)
	assert.True(t, errors.Is(err, ErrOutsideBase))

	link := filepath.Join(base, "src", "link.php")
	if err := os.Symlink(outside, link); err == nil {
		_, err = ReadFileContained(base, link)
		assert.True(t, errors.Is(err, ErrOutsideBase), "symlink escaping the base must be rejected")
	}

	_, err = ReadFileContained(base, filepath.Join(base, "nope.js"))
	assert.Error(t, err)
}
