/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package analyze

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/fulmenhq/convguard/internal/finding"
	"github.com/fulmenhq/convguard/internal/lang"
	"github.com/fulmenhq/convguard/pkg/config"
)

// Options is the resolved, immutable configuration of one run.
type Options struct {
	Language           lang.Language
	FailOn             finding.Severity
	ParseErrorSeverity finding.Severity
	Concurrency        int
	Exclude            []string
	NoIgnore           bool
	TaintParameters    bool
	Tools              []string
	ToolTimeout        time.Duration
	Sources            map[lang.Language][]string
	Sanitizers         map[lang.Language][]string
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		FailOn:             finding.SeverityHigh,
		ParseErrorSeverity: finding.SeverityLow,
		Concurrency:        runtime.NumCPU(),
		ToolTimeout:        2 * time.Minute,
	}
}

// OptionsFromConfig converts loaded configuration into run options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	l, err := lang.Parse(cfg.Language)
	if err != nil {
		return Options{}, err
	}
	failOn, err := finding.ParseSeverity(cfg.FailOn)
	if err != nil {
		return Options{}, fmt.Errorf("fail_on: %w", err)
	}
	parseSev, err := finding.ParseSeverity(cfg.ParseErrorSeverity)
	if err != nil {
		return Options{}, fmt.Errorf("parse_error_severity: %w", err)
	}

	opts := Options{
		Language:           l,
		FailOn:             failOn,
		ParseErrorSeverity: parseSev,
		Concurrency:        cfg.Concurrency,
		Exclude:            append([]string(nil), cfg.Exclude...),
		NoIgnore:           cfg.NoIgnore,
		TaintParameters:    cfg.TaintParameters,
		ToolTimeout:        cfg.Tools.Timeout,
		Sources: map[lang.Language][]string{
			lang.JavaScript: append([]string(nil), cfg.Sources.JavaScript...),
			lang.PHP:        append([]string(nil), cfg.Sources.PHP...),
		},
		Sanitizers: map[lang.Language][]string{
			lang.JavaScript: append([]string(nil), cfg.Sanitizers.JavaScript...),
			lang.PHP:        append([]string(nil), cfg.Sanitizers.PHP...),
		},
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	for name, on := range map[string]bool{
		"bandit": cfg.Tools.Bandit,
		"flake8": cfg.Tools.Flake8,
		"pylint": cfg.Tools.Pylint,
		"pyre":   cfg.Tools.Pyre,
	} {
		if on {
			opts.Tools = append(opts.Tools, name)
		}
	}
	sort.Strings(opts.Tools)
	return opts, nil
}
