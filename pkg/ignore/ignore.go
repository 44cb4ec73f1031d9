// Package ignore provides gitignore-based file filtering using go-git
package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the convguard-specific ignore file read next to .gitignore.
const FileName = ".convguardignore"

// Matcher provides gitignore-based file filtering rooted at one directory
type Matcher struct {
	root    string
	matcher gitignore.Matcher
}

// NewMatcher creates a matcher with layered ignore files:
// 1. built-in directories that never hold analyzable sources
// 2. .gitignore, .git/info/exclude and nested .gitignore files
// 3. .convguardignore at the root
// 4. $CONVGUARD_HOME/.convguardignore (default ~/.convguard)
//
// Later layers win, so a negation in .convguardignore can re-include a gitignored path.
func NewMatcher(root string) (*Matcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ignore root %s: %w", root, err)
	}

	var patterns []gitignore.Pattern
	for _, p := range []string{".git/", "node_modules/", "__pycache__/", ".venv/"} {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	if gitPatterns, err := gitignore.ReadPatterns(osfs.New(absRoot), nil); err == nil {
		patterns = append(patterns, gitPatterns...)
	}

	for _, path := range ignoreFiles(absRoot) {
		lines, err := readIgnoreFile(path)
		if err != nil {
			continue
		}
		for _, line := range lines {
			patterns = append(patterns, gitignore.ParsePattern(line, nil))
		}
	}

	return &Matcher{root: absRoot, matcher: gitignore.NewMatcher(patterns)}, nil
}

func ignoreFiles(root string) []string {
	files := []string{filepath.Join(root, FileName)}
	home := os.Getenv("CONVGUARD_HOME")
	if home == "" {
		if dir, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(dir, ".convguard")
		}
	}
	if home != "" {
		files = append(files, filepath.Join(home, FileName))
	}
	return files
}

// readIgnoreFile reads patterns from a .convguardignore file
func readIgnoreFile(path string) ([]string, error) {
	cleaned := filepath.Clean(path)
	if filepath.Base(cleaned) != FileName {
		return nil, fmt.Errorf("disallowed ignore file path: %s", cleaned)
	}
	content, err := os.ReadFile(cleaned) // #nosec G304 -- basename allowlisted
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}

// IsIgnored reports whether a file should be skipped.
func (m *Matcher) IsIgnored(path string) bool {
	return m.match(path, false)
}

// IsIgnoredDir reports whether a directory should be pruned from traversal.
func (m *Matcher) IsIgnoredDir(path string) bool {
	return m.match(path, true)
}

func (m *Matcher) match(path string, isDir bool) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		// Paths outside the root are never ignored.
		return false
	}
	parts := splitPath(filepath.ToSlash(rel))
	if len(parts) == 0 {
		return false
	}
	return m.matcher.Match(parts, isDir)
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	if path == "" || path == "." {
		return []string{}
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
