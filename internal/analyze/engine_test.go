/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package analyze

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fulmenhq/convguard/internal/bridge"
	"github.com/fulmenhq/convguard/internal/finding"
	"github.com/fulmenhq/convguard/internal/lang"
	"github.com/fulmenhq/convguard/pkg/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type flake8Runner struct{}

func (flake8Runner) Run(_ context.Context, _, name string, args ...string) (bridge.Result, error) {
	file := args[len(args)-1]
	return bridge.Result{Stdout: []byte(file + ":1:1: F401 'os' imported but unused\n"), ExitCode: 1}, nil
}

func (flake8Runner) LookPath(file string) (string, error) { return "/usr/bin/" + file, nil }

func project(t *testing.T, files map[string]string) string {
	t.Helper()
	t.Setenv("CONVGUARD_HOME", t.TempDir())
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func options() Options {
	opts := DefaultOptions()
	opts.Concurrency = 4
	return opts
}

func rulesIn(fs []finding.Finding, file string) []string {
	out := []string{}
	for _, f := range fs {
		if strings.HasSuffix(f.File, file) {
			out = append(out, f.RuleID)
		}
	}
	return out
}

func TestRun_Scenarios(t *testing.T) {
	root := project(t, map[string]string{
		"web/app.js":      "let x = getUserInput(); let y = x + 5;\n",
		"web/view.php":    "<?php $obj = new Foo(); echo \"Value: \" . $obj;\n",
		"web/broken.js":   "let x = ;\n",
		"web/clean.js":    "const a = 1 + 2;\n",
		"tools/script.py": "import os\n",
	})

	opts := options()
	opts.Tools = []string{"flake8"}
	e, err := New(opts, flake8Runner{})
	require.NoError(t, err)

	res, err := e.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Files)

	assert.Equal(t, []string{"tainted-numeric-context"}, rulesIn(res.Findings, "app.js"))
	assert.Equal(t, []string{"implicit-object-to-string"}, rulesIn(res.Findings, "view.php"))
	assert.Equal(t, []string{finding.RuleParseError}, rulesIn(res.Findings, "broken.js"))
	assert.Empty(t, rulesIn(res.Findings, "clean.js"))

	py := rulesIn(res.Findings, "script.py")
	require.NotEmpty(t, py)
	for _, id := range py {
		assert.True(t, strings.HasPrefix(id, "flake8-"), id)
	}

	for _, f := range res.Findings {
		if f.RuleID == finding.RuleParseError {
			assert.Equal(t, finding.SeverityLow, f.Severity)
			assert.Equal(t, finding.KindParseError, f.Kind)
			assert.Equal(t, 1, f.Line)
		}
	}
}

func TestRun_ParseErrorSeverityIsConfigurable(t *testing.T) {
	root := project(t, map[string]string{"bad.php": "<?php $x = ;\n"})

	opts := options()
	opts.ParseErrorSeverity = finding.SeverityHigh
	e, err := New(opts, nil)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, finding.SeverityHigh, res.Findings[0].Severity)
	assert.True(t, finding.ExceedsThreshold(res.Findings, opts.FailOn))
}

func TestRun_IsDeterministic(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 20; i++ {
		name := filepath.Join("src", string(rune('a'+i))+".js")
		files[filepath.ToSlash(name)] = "let o = {}; let s = 'v' + o; let n = '3' * 2; if (n == 's') { db.query(req.body.q); }\n"
	}
	root := project(t, files)

	e, err := New(options(), nil)
	require.NoError(t, err)

	first, err := e.Run(context.Background(), []string{root})
	require.NoError(t, err)
	require.NotEmpty(t, first.Findings)
	for i := 0; i < 3; i++ {
		again, err := e.Run(context.Background(), []string{root})
		require.NoError(t, err)
		if diff := cmp.Diff(first.Findings, again.Findings); diff != "" {
			t.Fatalf("run %d differs:\n%s", i, diff)
		}
	}
	assert.True(t, isSorted(first.Findings))
}

func isSorted(fs []finding.Finding) bool {
	for i := 1; i < len(fs); i++ {
		if finding.Less(fs[i], fs[i-1]) {
			return false
		}
	}
	return true
}

func TestRun_ForcedLanguage(t *testing.T) {
	// PHP-only syntax fails to parse as JavaScript.
	root := project(t, map[string]string{"mixed.js": "<?php echo 1;\n"})

	opts := options()
	opts.Language = lang.PHP
	e, err := New(opts, nil)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Empty(t, res.Findings)
}

func TestRun_NoInputs(t *testing.T) {
	root := project(t, map[string]string{"README.md": "hi"})
	e, err := New(options(), nil)
	require.NoError(t, err)

	_, err = e.Run(context.Background(), []string{root})
	assert.True(t, errors.Is(err, ErrNoInputs))

	_, err = e.Run(context.Background(), []string{filepath.Join(root, "missing")})
	assert.True(t, errors.Is(err, ErrNoInputs))
	assert.EqualError(t, err, "configuration error: no valid inputs")
}

func TestRun_MissingInputAlongsideValid(t *testing.T) {
	root := project(t, map[string]string{"a.js": "let a = 1;\n"})
	e, err := New(options(), nil)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), []string{root, filepath.Join(root, "gone.php")})
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, finding.RuleIOError, res.Findings[0].RuleID)
}

func TestRun_Cancelled(t *testing.T) {
	root := project(t, map[string]string{"a.js": "let a = 1;\n", "b.js": "let b = 2;\n"})
	e, err := New(options(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Run(ctx, []string{root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidCatalogPattern(t *testing.T) {
	opts := options()
	opts.Sources = map[lang.Language][]string{lang.JavaScript: {"req.[x"}}
	_, err := New(opts, nil)
	assert.Error(t, err)

	opts = options()
	opts.Tools = []string{"mypy"}
	_, err = New(opts, nil)
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "PHP"
	cfg.FailOn = "medium"
	cfg.ParseErrorSeverity = "info"
	cfg.Tools.Pyre = true
	cfg.Tools.Bandit = true
	cfg.Tools.Timeout = 30 * time.Second
	cfg.Sources.PHP = []string{"$_SESSION"}

	opts, err := OptionsFromConfig(&cfg)
	require.NoError(t, err)
	assert.Equal(t, lang.PHP, opts.Language)
	assert.Equal(t, finding.SeverityMedium, opts.FailOn)
	assert.Equal(t, finding.SeverityInfo, opts.ParseErrorSeverity)
	assert.Equal(t, []string{"bandit", "pyre"}, opts.Tools)
	assert.Equal(t, 30*time.Second, opts.ToolTimeout)
	assert.Equal(t, []string{"$_SESSION"}, opts.Sources[lang.PHP])
	assert.Positive(t, opts.Concurrency)

	cfg.FailOn = "severe"
	_, err = OptionsFromConfig(&cfg)
	assert.Error(t, err)
}
