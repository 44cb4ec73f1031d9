/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package finding

import (
	"fmt"
	"sort"
	"strings"
)

// Severity represents the severity level of a finding
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Rank orders severities; higher is more severe. Unrecognized values rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

// AtLeast reports whether s is as severe as threshold or more.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Rank() >= threshold.Rank()
}

// ParseSeverity converts a user-supplied severity name.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Rank() < 0 {
		return "", fmt.Errorf("invalid severity %q (want critical, high, medium, low or info)", s)
	}
	return sev, nil
}

// Kind separates detected hazards from recoverable errors surfaced as findings
type Kind string

const (
	KindHazard            Kind = "hazard"
	KindParseError        Kind = "parse-error"
	KindExternalToolError Kind = "external-tool-error"
	KindIOError           Kind = "io-error"
)

// Rule ids used by error findings.
const (
	RuleParseError        = "parse-error"
	RuleExternalToolError = "external-tool-error"
	RuleIOError           = "io-error"
)

// ToolErrorRule is the rule id of an error raised by one external tool, e.g. "bandit-tool-error".
// Errors of different tools on the same file keep distinct keys.
func ToolErrorRule(tool string) string {
	return tool + "-tool-error"
}

// Finding is a single reported hazard or recoverable error.
// Line and Column are 1-based; zero means the finding applies to the whole file.
type Finding struct {
	RuleID        string   `json:"rule_id" yaml:"rule_id"`
	Severity      Severity `json:"severity" yaml:"severity"`
	Kind          Kind     `json:"kind" yaml:"kind"`
	File          string   `json:"file" yaml:"file"`
	Line          int      `json:"line" yaml:"line"`
	Column        int      `json:"column" yaml:"column"`
	EndLine       int      `json:"end_line,omitempty" yaml:"end_line,omitempty"`
	EndColumn     int      `json:"end_column,omitempty" yaml:"end_column,omitempty"`
	Message       string   `json:"message" yaml:"message"`
	EvidenceKinds []string `json:"evidence_kinds,omitempty" yaml:"evidence_kinds,omitempty"`
	Tool          string   `json:"tool,omitempty" yaml:"tool,omitempty"`
}

// Location renders file:line:column, omitting the position for file-level findings.
func (f Finding) Location() string {
	if f.Line <= 0 {
		return f.File
	}
	return fmt.Sprintf("%s:%d:%d", f.File, f.Line, f.Column)
}

// Less is the report order: file, line, column, rule id, then end position and message.
func Less(a, b Finding) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	if a.Column != b.Column {
		return a.Column < b.Column
	}
	if a.RuleID != b.RuleID {
		return a.RuleID < b.RuleID
	}
	if a.EndLine != b.EndLine {
		return a.EndLine < b.EndLine
	}
	if a.EndColumn != b.EndColumn {
		return a.EndColumn < b.EndColumn
	}
	return a.Message < b.Message
}

// Sort orders findings in place using Less.
func Sort(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool { return Less(fs[i], fs[j]) })
}

func sameKey(a, b Finding) bool {
	return a.File == b.File && a.Line == b.Line && a.Column == b.Column && a.RuleID == b.RuleID && a.Tool == b.Tool
}

// Normalize sorts findings and folds entries sharing (file, line, column, rule id, tool) into one,
// so every key appears once in a report. Folded entries keep the highest severity and
// concatenate distinct messages.
func Normalize(fs []Finding) []Finding {
	if len(fs) == 0 {
		return []Finding{}
	}
	sorted := make([]Finding, len(fs))
	copy(sorted, fs)
	Sort(sorted)

	out := make([]Finding, 0, len(sorted))
	for _, f := range sorted {
		if n := len(out); n > 0 && sameKey(out[n-1], f) {
			out[n-1] = fold(out[n-1], f)
			continue
		}
		out = append(out, f)
	}
	return out
}

func fold(into, f Finding) Finding {
	if f.Severity.Rank() > into.Severity.Rank() {
		into.Severity = f.Severity
	}
	if f.Message != into.Message && !strings.Contains(into.Message, f.Message) {
		into.Message = into.Message + "; " + f.Message
	}
	into.EvidenceKinds = append([]string(nil), into.EvidenceKinds...)
	for _, k := range f.EvidenceKinds {
		if !contains(into.EvidenceKinds, k) {
			into.EvidenceKinds = append(into.EvidenceKinds, k)
		}
	}
	return into
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ExceedsThreshold reports whether any finding is at or above threshold.
func ExceedsThreshold(fs []Finding, threshold Severity) bool {
	for _, f := range fs {
		if f.Severity.AtLeast(threshold) {
			return true
		}
	}
	return false
}
