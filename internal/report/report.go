/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package report orders findings and serializes them in the supported report formats.
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/convguard/internal/finding"
	"github.com/fulmenhq/convguard/pkg/safeio"
)

// ToolName is the driver name written into reports.
const ToolName = "convguard"

// Format is a report serialization.
type Format string

const (
	FormatText       Format = "text"
	FormatJSON       Format = "json"
	FormatSARIF      Format = "sarif"
	FormatYAML       Format = "yaml"
	FormatCheckstyle Format = "checkstyle"
	FormatMarkdown   Format = "markdown"
	FormatHTML       Format = "html"
)

// FormatFromPath picks the format from a report file extension; unknown extensions are text.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".sarif":
		return FormatSARIF
	case ".yaml", ".yml":
		return FormatYAML
	case ".xml":
		return FormatCheckstyle
	case ".md", ".markdown":
		return FormatMarkdown
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatText
	}
}

// Metadata describes the run. It carries no timestamps so reports are reproducible.
type Metadata struct {
	Tool     string   `json:"tool" yaml:"tool"`
	Version  string   `json:"version" yaml:"version"`
	Language string   `json:"language" yaml:"language"`
	FailOn   string   `json:"fail_on" yaml:"fail_on"`
	Inputs   []string `json:"inputs" yaml:"inputs"`
	Tools    []string `json:"external_tools" yaml:"external_tools"`
}

// Summary aggregates findings.
type Summary struct {
	Files      int            `json:"files" yaml:"files"`
	Total      int            `json:"total" yaml:"total"`
	BySeverity map[string]int `json:"by_severity" yaml:"by_severity"`
	ByRule     map[string]int `json:"by_rule" yaml:"by_rule"`
}

// Report is the complete, ordered result of a run.
type Report struct {
	Metadata Metadata          `json:"metadata" yaml:"metadata"`
	Summary  Summary           `json:"summary" yaml:"summary"`
	Findings []finding.Finding `json:"findings" yaml:"findings"`
}

// New sorts findings and computes the summary.
func New(meta Metadata, files int, findings []finding.Finding) *Report {
	if meta.Tool == "" {
		meta.Tool = ToolName
	}
	if meta.Inputs == nil {
		meta.Inputs = []string{}
	}
	if meta.Tools == nil {
		meta.Tools = []string{}
	}
	fs := finding.Normalize(findings)

	sum := Summary{Files: files, Total: len(fs), BySeverity: map[string]int{}, ByRule: map[string]int{}}
	for _, s := range finding.Severities {
		sum.BySeverity[string(s)] = 0
	}
	for _, f := range fs {
		sum.BySeverity[string(f.Severity)]++
		sum.ByRule[f.RuleID]++
	}
	return &Report{Metadata: meta, Summary: sum, Findings: fs}
}

// Render serializes r in format f.
func Render(r *Report, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode json report: %w", err)
		}
		return append(out, '\n'), nil
	case FormatYAML:
		out, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return out, nil
	case FormatSARIF:
		return renderSARIF(r)
	case FormatCheckstyle:
		return renderCheckstyle(r)
	case FormatMarkdown:
		return renderTemplate(markdownTemplate, r)
	case FormatHTML:
		return renderTemplate(htmlTemplate, r)
	case FormatText:
		var b strings.Builder
		if err := WriteText(&b, r, false); err != nil {
			return nil, err
		}
		return []byte(b.String()), nil
	}
	return nil, fmt.Errorf("unsupported report format %q", f)
}

// WriteError reports a failure to write the report file. It is fatal for the run.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("io error: failed to write report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WriteFile renders r in the format implied by path and writes it.
func WriteFile(r *Report, path string) error {
	data, err := Render(r, FormatFromPath(path))
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := safeio.WriteFilePreservePerms(path, data); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
