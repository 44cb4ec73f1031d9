package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestNewMatcher(t *testing.T) {
	t.Setenv("CONVGUARD_HOME", t.TempDir())
	root := t.TempDir()

	writeFile(t, filepath.Join(root, ".gitignore"), "# build output\ndist/\n*.min.js\n")
	writeFile(t, filepath.Join(root, FileName), "fixtures/\n!keep.min.js\n")

	m, err := NewMatcher(root)
	require.NoError(t, err)

	fileTests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"default git dir", ".git/config", true},
		{"default node_modules", "node_modules/lodash/index.js", true},
		{"gitignore dir", "dist/app.js", true},
		{"gitignore glob", "public/app.min.js", true},
		{"convguardignore dir", "fixtures/bad.php", true},
		{"convguardignore negation", "keep.min.js", false},
		{"plain source", "src/app.js", false},
		{"plain php", "index.php", false},
	}
	for _, tt := range fileTests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.IsIgnored(filepath.Join(root, tt.path)))
		})
	}

	assert.True(t, m.IsIgnoredDir(filepath.Join(root, "node_modules")))
	assert.True(t, m.IsIgnoredDir(filepath.Join(root, "dist")))
	assert.True(t, m.IsIgnoredDir(filepath.Join(root, "__pycache__")))
	assert.False(t, m.IsIgnoredDir(filepath.Join(root, "src")))
}

func TestUserIgnoreFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CONVGUARD_HOME", home)
	writeFile(t, filepath.Join(home, FileName), "*.generated.js\n")
	root := t.TempDir()

	m, err := NewMatcher(root)
	require.NoError(t, err)
	assert.True(t, m.IsIgnored(filepath.Join(root, "api.generated.js")))
	assert.False(t, m.IsIgnored(filepath.Join(root, "api.js")))
}

func TestPathsOutsideRootNeverIgnored(t *testing.T) {
	t.Setenv("CONVGUARD_HOME", t.TempDir())
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "*.js\n")

	m, err := NewMatcher(root)
	require.NoError(t, err)
	assert.False(t, m.IsIgnored(filepath.Join(filepath.Dir(root), "other.js")))
	assert.False(t, m.IsIgnored(root))
}

func TestReadIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, "# comment\n\n  vendor/  \n*.tmp\n")

	patterns, err := readIgnoreFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor/", "*.tmp"}, patterns)

	_, err = readIgnoreFile(filepath.Join(dir, "missing", FileName))
	assert.Error(t, err)

	_, err = readIgnoreFile(filepath.Join(dir, ".bashrc"))
	assert.ErrorContains(t, err, "disallowed")
}

func TestSplitPath(t *testing.T) {
	tests := map[string][]string{
		"":            {},
		".":           {},
		"a/b/c.js":    {"a", "b", "c.js"},
		"/abs/x.php":  {"abs", "x.php"},
		"a//b/./c.py": {"a", "b", "c.py"},
	}
	for in, want := range tests {
		assert.Equal(t, want, splitPath(in), in)
	}
}
