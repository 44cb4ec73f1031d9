/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package bridge

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fulmenhq/convguard/internal/finding"
	"github.com/fulmenhq/convguard/pkg/logger"
)

// Bridge runs the enabled external linters on Python files and normalizes their output.
// It is safe for concurrent use.
type Bridge struct {
	runner  Runner
	tools   []Tool
	timeout time.Duration

	// Per-directory runs are shared by every file of the directory.
	group  singleflight.Group
	mu     sync.Mutex
	shared map[string]sharedRun
}

type sharedRun struct {
	res Result
	err error
}

// New returns a bridge for the named tools. A nil runner runs local processes.
func New(runner Runner, enabled []string, timeout time.Duration) (*Bridge, error) {
	if runner == nil {
		runner = OSRunner{}
	}
	b := &Bridge{runner: runner, timeout: timeout, shared: map[string]sharedRun{}}
	seen := map[string]bool{}
	for _, name := range enabled {
		t, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown external tool %q", name)
		}
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		b.tools = append(b.tools, t)
	}
	return b, nil
}

// Enabled returns the names of the tools the bridge runs.
func (b *Bridge) Enabled() []string {
	names := make([]string, 0, len(b.tools))
	for _, t := range b.tools {
		names = append(names, t.Name)
	}
	return names
}

// Analyze runs every enabled tool on file concurrently. Tool failures become
// <tool>-tool-error findings; they never stop the other tools.
func (b *Bridge) Analyze(ctx context.Context, file string) []finding.Finding {
	results := make([][]finding.Finding, len(b.tools))
	var g errgroup.Group
	for i, t := range b.tools {
		i, t := i, t
		g.Go(func() error {
			fs, err := b.run(ctx, t, file)
			if err != nil {
				logger.Warn("external tool failed",
					logger.String("tool", t.Name), logger.String("file", file), logger.Err(err))
				fs = []finding.Finding{ToolError(t.Name, file, err)}
			}
			results[i] = fs
			return nil
		})
	}
	_ = g.Wait()

	var out []finding.Finding
	for _, fs := range results {
		out = append(out, fs...)
	}
	return out
}

func (b *Bridge) run(ctx context.Context, t Tool, file string) ([]finding.Finding, error) {
	if _, err := b.runner.LookPath(t.Binary); err != nil {
		return nil, fmt.Errorf("%s not found on PATH", t.Binary)
	}

	var (
		res Result
		err error
	)
	if t.PerDirectory {
		res, err = b.runShared(ctx, t, filepath.Dir(file))
	} else {
		res, err = b.exec(ctx, t, t.args(file))
	}
	if err != nil {
		return nil, err
	}
	if !t.ok(res.ExitCode) {
		return nil, fmt.Errorf("%s exited with status %d: %s", t.Name, res.ExitCode, firstLine(res.Stderr))
	}

	fs, err := t.parse(file, res)
	if err != nil {
		return nil, err
	}
	logger.Debug("external tool finished",
		logger.String("tool", t.Name), logger.String("file", file), logger.Int("findings", len(fs)))
	return fs, nil
}

// exec runs the tool in the working directory with the per-tool timeout.
func (b *Bridge) exec(ctx context.Context, t Tool, args []string) (Result, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	logger.Trace("running external tool", logger.String("tool", t.Name))
	res, err := b.runner.Run(ctx, "", t.Binary, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, fmt.Errorf("%s timed out after %s", t.Name, b.timeout)
		}
		return res, err
	}
	return res, nil
}

func (b *Bridge) runShared(ctx context.Context, t Tool, dir string) (Result, error) {
	key := t.Name + "\x00" + dir

	b.mu.Lock()
	if s, ok := b.shared[key]; ok {
		b.mu.Unlock()
		return s.res, s.err
	}
	b.mu.Unlock()

	v, _, _ := b.group.Do(key, func() (interface{}, error) {
		b.mu.Lock()
		if s, ok := b.shared[key]; ok {
			b.mu.Unlock()
			return s, nil
		}
		b.mu.Unlock()

		ctx := ctx
		if b.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}
		res, err := b.runner.Run(ctx, dir, t.Binary, t.args("")...)
		if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
			err = fmt.Errorf("%s timed out after %s", t.Name, b.timeout)
		}
		s := sharedRun{res: res, err: err}
		b.mu.Lock()
		b.shared[key] = s
		b.mu.Unlock()
		return s, nil
	})
	s := v.(sharedRun)
	return s.res, s.err
}

// ToolError is the finding recorded when a tool could not analyze file.
func ToolError(tool, file string, err error) finding.Finding {
	return finding.Finding{
		RuleID:   finding.ToolErrorRule(tool),
		Severity: finding.SeverityLow,
		Kind:     finding.KindExternalToolError,
		File:     file,
		Message:  fmt.Sprintf("%s could not analyze file: %v", tool, err),
		Tool:     tool,
	}
}
