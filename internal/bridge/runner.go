/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Result is the captured outcome of one subprocess run.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner starts external tools. A non-zero exit is not an error; failing to start is.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
	LookPath(file string) (string, error)
}

// OSRunner runs tools as local processes.
type OSRunner struct{}

func (OSRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		res.ExitCode = ee.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("%s execution failed: %w", name, err)
}

func (OSRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}
