/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package analyze runs the native passes and the external linter bridge over a set of inputs.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/convguard/internal/bridge"
	"github.com/fulmenhq/convguard/internal/finding"
	"github.com/fulmenhq/convguard/internal/lang"
	"github.com/fulmenhq/convguard/internal/rules"
	"github.com/fulmenhq/convguard/internal/source"
	"github.com/fulmenhq/convguard/internal/syntax"
	"github.com/fulmenhq/convguard/internal/tracker"
	"github.com/fulmenhq/convguard/pkg/logger"
)

// ErrNoInputs is returned when discovery finds nothing to analyze. It is a configuration error.
var ErrNoInputs = errors.New("configuration error: no valid inputs")

// Result is the outcome of one run.
type Result struct {
	// Findings are sorted and deduplicated.
	Findings []finding.Finding
	// Files is the number of discovered files.
	Files int
}

// Engine holds the per-language catalogs and the bridge; it is safe to reuse across runs.
type Engine struct {
	opts     Options
	catalogs map[lang.Language]*tracker.Catalog
	bridge   *bridge.Bridge
}

// New builds an engine. runner is used for external tools; nil runs local processes.
func New(opts Options, runner bridge.Runner) (*Engine, error) {
	e := &Engine{opts: opts, catalogs: map[lang.Language]*tracker.Catalog{}}
	for _, l := range []lang.Language{lang.JavaScript, lang.PHP} {
		c, err := tracker.NewCatalog(l, opts.Sources[l], opts.Sanitizers[l])
		if err != nil {
			return nil, fmt.Errorf("%s catalog: %w", l, err)
		}
		e.catalogs[l] = c
	}
	b, err := bridge.New(runner, opts.Tools, opts.ToolTimeout)
	if err != nil {
		return nil, err
	}
	e.bridge = b
	return e, nil
}

// Run analyzes every file under inputs.
func (e *Engine) Run(ctx context.Context, inputs []string) (*Result, error) {
	start := time.Now()
	files, problems, err := source.Discover(inputs, source.Options{
		Language: e.opts.Language,
		Exclude:  e.opts.Exclude,
		NoIgnore: e.opts.NoIgnore,
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoInputs
	}
	logger.Info("analyzing files", logger.Int("files", len(files)), logger.String("language", e.opts.Language.String()))
	e.warnUnanalyzedPython(files)

	results := make([][]finding.Finding, len(files))
	g, gctx := errgroup.WithContext(ctx)
	limit := e.opts.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fs, err := e.analyzeFile(gctx, f)
			if err != nil {
				return err
			}
			results[i] = fs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := append([]finding.Finding(nil), problems...)
	for _, fs := range results {
		all = append(all, fs...)
	}
	all = finding.Normalize(all)
	logger.Info("analysis complete",
		logger.Int("files", len(files)),
		logger.Int("findings", len(all)),
		logger.Duration("elapsed", time.Since(start)))
	return &Result{Findings: all, Files: len(files)}, nil
}

func (e *Engine) analyzeFile(ctx context.Context, f source.File) ([]finding.Finding, error) {
	unit, err := source.Read(f)
	if err != nil {
		logger.Warn("could not read file", logger.String("path", f.Path), logger.Err(err))
		return []finding.Finding{source.IOError(f.Path, err)}, nil
	}

	if !unit.Language.Native() {
		if len(e.bridge.Enabled()) == 0 {
			return nil, nil
		}
		return e.bridge.Analyze(ctx, unit.Path), nil
	}
	return e.analyzeNative(ctx, unit)
}

// analyzeNative parses, annotates and matches one unit. A syntax error ends the unit only.
func (e *Engine) analyzeNative(ctx context.Context, unit source.Unit) ([]finding.Finding, error) {
	tree, err := syntax.Parse(ctx, unit.Language, unit.Text)
	if err != nil {
		var pe *syntax.ParseError
		if errors.As(err, &pe) {
			logger.Debug("parse error", logger.String("path", unit.Path), logger.String("reason", pe.Error()))
			return []finding.Finding{e.parseError(unit.Path, pe)}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", unit.Path, err)
	}

	ann := tracker.Annotate(tree, e.catalogs[unit.Language], tracker.Options{TaintParameters: e.opts.TaintParameters})
	fs := rules.Evaluate(unit.Path, ann)
	logger.Trace("file analyzed", logger.String("path", unit.Path), logger.Int("findings", len(fs)))
	return fs, nil
}

func (e *Engine) parseError(path string, pe *syntax.ParseError) finding.Finding {
	return finding.Finding{
		RuleID:    finding.RuleParseError,
		Severity:  e.opts.ParseErrorSeverity,
		Kind:      finding.KindParseError,
		File:      path,
		Line:      1,
		Column:    1,
		EndLine:   pe.EndLine,
		EndColumn: pe.EndColumn,
		Message:   pe.Error(),
	}
}

func (e *Engine) warnUnanalyzedPython(files []source.File) {
	if len(e.bridge.Enabled()) > 0 {
		return
	}
	for _, f := range files {
		if f.Language == lang.Python {
			logger.Warn("python files found but no external tool is enabled; use --use-bandit, --use-flake8, --use-pylint or --use-pyre")
			return
		}
	}
}
