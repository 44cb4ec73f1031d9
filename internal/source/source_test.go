/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package source

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/convguard/internal/finding"
	"github.com/fulmenhq/convguard/internal/lang"
)

func write(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func paths(files []File) []string {
	out := []string{}
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("CONVGUARD_HOME", t.TempDir())
}

func TestDiscover_WalksAndDetects(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	write(t, root, "app.js", "let a = 1;")
	write(t, root, "lib/util.mjs", "export const b = 2;")
	write(t, root, "web/index.php", "<?php echo 1;")
	write(t, root, "tools/job.py", "x = 1\n")
	write(t, root, "README.md", "# readme")
	write(t, root, "node_modules/dep/index.js", "module.exports = 1;")

	files, problems, err := Discover([]string{root}, Options{})
	require.NoError(t, err)
	assert.Empty(t, problems)

	slash := filepath.ToSlash(root)
	assert.Equal(t, []string{
		slash + "/app.js",
		slash + "/lib/util.mjs",
		slash + "/tools/job.py",
		slash + "/web/index.php",
	}, paths(files))

	langs := map[string]lang.Language{}
	for _, f := range files {
		langs[filepath.Base(f.Path)] = f.Language
	}
	assert.Equal(t, lang.JavaScript, langs["util.mjs"])
	assert.Equal(t, lang.PHP, langs["index.php"])
	assert.Equal(t, lang.Python, langs["job.py"])
}

func TestDiscover_ForcedLanguage(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	write(t, root, "a.js", "")
	write(t, root, "b.php", "")
	write(t, root, "notes.txt", "")

	files, _, err := Discover([]string{root}, Options{Language: lang.PHP})
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.Equal(t, lang.PHP, f.Language)
	}
}

func TestDiscover_IgnoreFiles(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	write(t, root, ".gitignore", "dist/\n")
	write(t, root, ".convguardignore", "*.min.js\n")
	write(t, root, "src/a.js", "")
	write(t, root, "src/a.min.js", "")
	write(t, root, "dist/bundle.js", "")

	files, _, err := Discover([]string{root}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.ToSlash(root) + "/src/a.js"}, paths(files))

	files, _, err = Discover([]string{root}, Options{NoIgnore: true})
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestDiscover_Exclude(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	write(t, root, "src/a.js", "")
	write(t, root, "src/a.test.js", "")
	write(t, root, "vendor/lib.php", "")

	files, _, err := Discover([]string{root}, Options{Exclude: []string{"**/*.test.js", "vendor"}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.ToSlash(root) + "/src/a.js"}, paths(files))

	_, _, err = Discover([]string{root}, Options{Exclude: []string{"src/[a"}})
	assert.Error(t, err)
}

func TestDiscover_ExplicitFilesAndDuplicates(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	js := write(t, root, "one.js", "")
	txt := write(t, root, "notes.txt", "")

	files, problems, err := Discover([]string{js, js, txt, root}, Options{})
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.Equal(t, []string{filepath.ToSlash(js)}, paths(files))
}

func TestDiscover_MissingInput(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	write(t, root, "ok.js", "")
	missing := filepath.Join(root, "nope.js")

	files, problems, err := Discover([]string{missing, root}, Options{})
	require.NoError(t, err)
	assert.Len(t, files, 1)
	require.Len(t, problems, 1)
	assert.Equal(t, finding.RuleIOError, problems[0].RuleID)
	assert.Equal(t, finding.KindIOError, problems[0].Kind)
	assert.Equal(t, 0, problems[0].Line)
	assert.Equal(t, filepath.ToSlash(missing), problems[0].File)
}

func TestRead(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	write(t, root, "a.js", "let a = 1;")

	files, _, err := Discover([]string{root}, Options{})
	require.NoError(t, err)
	require.Len(t, files, 1)

	unit, err := Read(files[0])
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;", string(unit.Text))
	assert.Equal(t, lang.JavaScript, unit.Language)
	assert.Equal(t, files[0].Path, unit.Path)
}

func TestRead_SymlinkOutsideRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	isolate(t)
	outside := write(t, t.TempDir(), "secret.js", "x")
	root := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link.js")))

	files, _, err := Discover([]string{root}, Options{})
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, err = Read(files[0])
	assert.Error(t, err)
}
