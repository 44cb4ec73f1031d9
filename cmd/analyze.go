/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fulmenhq/convguard/internal/analyze"
	"github.com/fulmenhq/convguard/internal/bridge"
	"github.com/fulmenhq/convguard/internal/finding"
	"github.com/fulmenhq/convguard/internal/report"
	"github.com/fulmenhq/convguard/pkg/buildinfo"
	"github.com/fulmenhq/convguard/pkg/config"
	"github.com/fulmenhq/convguard/pkg/exitcode"
	"github.com/fulmenhq/convguard/pkg/logger"
)

// runner executes external linters. Tests swap in a fake.
var runner bridge.Runner

func addAnalyzeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("language", "", "Analyze every supported file as this language (javascript|php|python)")
	f.String("report-file", "", "Write a report; format from extension (.json .sarif .yaml .xml .md .html .txt)")
	f.Bool("use-bandit", false, "Run bandit on Python files")
	f.Bool("use-flake8", false, "Run flake8 on Python files")
	f.Bool("use-pylint", false, "Run pylint on Python files")
	f.Bool("use-pyre", false, "Run pyre on Python files")
	f.String("fail-on", "high", "Exit 1 when a finding reaches this severity (critical|high|medium|low|info)")
	f.StringArray("exclude", nil, "Skip paths matching this glob (repeatable)")
	f.Bool("no-ignore", false, "Do not honor .gitignore and .convguardignore files")
	f.Int("concurrency", 0, "Files analyzed in parallel (0 = CPU count)")
	f.Duration("tool-timeout", 0, "Per-invocation timeout for external tools (default 2m)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fatal(errors.New("configuration error: no input paths given (see --help)"))
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile, Flags: cmd.Flags()})
	if err != nil {
		return fatal(err)
	}
	opts, err := analyze.OptionsFromConfig(cfg)
	if err != nil {
		return fatal(&config.Error{Source: "settings", Err: err})
	}

	engine, err := analyze.New(opts, runner)
	if err != nil {
		return fatal(&config.Error{Source: "settings", Err: err})
	}
	res, err := engine.Run(cmd.Context(), args)
	if err != nil {
		return fatal(err)
	}

	rep := report.New(report.Metadata{
		Version:  buildinfo.Version(),
		Language: string(opts.Language),
		FailOn:   string(opts.FailOn),
		Inputs:   args,
		Tools:    opts.Tools,
	}, res.Files, res.Findings)

	noColor, _ := cmd.Flags().GetBool("no-color")
	out := cmd.OutOrStdout()
	if err := report.WriteText(out, rep, !noColor && isTerminal(out)); err != nil {
		return fatal(fmt.Errorf("failed to print findings: %w", err))
	}

	if path, _ := cmd.Flags().GetString("report-file"); path != "" {
		if err := report.WriteFile(rep, path); err != nil {
			logger.Error("report write failed", logger.String("path", path), logger.Err(err))
			return fatal(err)
		}
		logger.Info("report written", logger.String("path", path), logger.String("format", string(report.FormatFromPath(path))))
	}

	if finding.ExceedsThreshold(rep.Findings, opts.FailOn) {
		return &exitError{code: exitcode.FindingsAtThreshold}
	}
	return nil
}

func isTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
