/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package source discovers analyzable files under the command-line inputs and reads them.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/convguard/internal/finding"
	"github.com/fulmenhq/convguard/internal/lang"
	"github.com/fulmenhq/convguard/pkg/ignore"
	"github.com/fulmenhq/convguard/pkg/logger"
	"github.com/fulmenhq/convguard/pkg/safeio"
)

// File is a discovered input that has not been read yet.
type File struct {
	// Path is the display path used in findings.
	Path     string
	Language lang.Language
	// base is the walked root the file must stay inside.
	base string
}

// Unit is the immutable text of one file.
type Unit struct {
	Path     string
	Language lang.Language
	Text     []byte
}

// Options control discovery.
type Options struct {
	// Language forces the analysis mode of every supported file; Unknown detects by extension.
	Language lang.Language
	// Exclude holds doublestar globs matched against paths relative to each input and as displayed.
	Exclude  []string
	NoIgnore bool
}

// Discover walks inputs and returns the analyzable files sorted by path. Unreadable
// inputs become io-error findings; only invalid exclude patterns are errors.
func Discover(inputs []string, opts Options) ([]File, []finding.Finding, error) {
	for _, p := range opts.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	d := &discoverer{opts: opts, seen: map[string]bool{}}
	for _, input := range inputs {
		d.input(input)
	}
	sort.Slice(d.files, func(i, j int) bool { return d.files[i].Path < d.files[j].Path })
	return d.files, d.problems, nil
}

type discoverer struct {
	opts     Options
	files    []File
	problems []finding.Finding
	seen     map[string]bool
}

func (d *discoverer) input(input string) {
	info, err := os.Stat(input)
	if err != nil {
		d.problems = append(d.problems, IOError(input, err))
		return
	}
	if !info.IsDir() {
		if _, ok := lang.Detect(input, d.opts.Language); !ok {
			logger.Warn("skipping input with unsupported extension", logger.String("path", input))
			return
		}
		d.add(filepath.Dir(input), input, filepath.Base(input))
		return
	}

	var matcher *ignore.Matcher
	if !d.opts.NoIgnore {
		if matcher, err = ignore.NewMatcher(input); err != nil {
			logger.Warn("failed to initialize ignore matcher", logger.String("root", input), logger.Err(err))
			matcher = nil
		}
	}

	walkErr := filepath.WalkDir(input, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			d.problems = append(d.problems, IOError(path, err))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(input, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if path == input {
				return nil
			}
			if d.excluded(rel, path) || (matcher != nil && matcher.IsIgnoredDir(path)) {
				logger.Debug("skipping directory", logger.String("path", path))
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if _, ok := lang.Detect(path, d.opts.Language); !ok {
			return nil
		}
		if matcher != nil && matcher.IsIgnored(path) {
			logger.Debug("skipping ignored file", logger.String("path", path))
			return nil
		}
		d.add(input, path, rel)
		return nil
	})
	if walkErr != nil {
		d.problems = append(d.problems, IOError(input, walkErr))
	}
}

func (d *discoverer) add(base, path, rel string) {
	if d.excluded(rel, path) {
		logger.Debug("skipping excluded file", logger.String("path", path))
		return
	}
	display := safeio.DisplayPath(path)
	if d.seen[display] {
		return
	}
	d.seen[display] = true
	l, _ := lang.Detect(path, d.opts.Language)
	d.files = append(d.files, File{Path: display, Language: l, base: base})
}

func (d *discoverer) excluded(rel, path string) bool {
	display := safeio.DisplayPath(path)
	for _, p := range d.opts.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, display); ok {
			return true
		}
	}
	return false
}

// Read loads the file, refusing symlinks that leave the walked root.
func Read(f File) (Unit, error) {
	base := f.base
	if base == "" {
		base = filepath.Dir(f.Path)
	}
	text, err := safeio.ReadFileContained(base, filepath.FromSlash(f.Path))
	if err != nil {
		return Unit{}, err
	}
	return Unit{Path: f.Path, Language: f.Language, Text: text}, nil
}

// IOError is the finding recorded for an input that could not be read.
func IOError(path string, err error) finding.Finding {
	reason := err.Error()
	var pe *fs.PathError
	if errors.As(err, &pe) {
		reason = pe.Err.Error()
	}
	return finding.Finding{
		RuleID:   finding.RuleIOError,
		Severity: finding.SeverityLow,
		Kind:     finding.KindIOError,
		File:     safeio.DisplayPath(path),
		Message:  fmt.Sprintf("could not read input: %s", reason),
	}
}
