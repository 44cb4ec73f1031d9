/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fulmenhq/convguard/internal/finding"
)

// Tool describes how to invoke one external linter and normalize its output.
type Tool struct {
	Name   string
	Binary string
	// PerDirectory tools run once in the file's directory and report for every file in it.
	PerDirectory bool

	args func(file string) []string
	// ok lists exit codes that mean the analysis ran.
	ok    func(code int) bool
	parse func(file string, res Result) ([]finding.Finding, error)
}

var registry = map[string]Tool{
	"bandit": {
		Name:   "bandit",
		Binary: "bandit",
		args:   func(file string) []string { return []string{"-f", "json", "-q", file} },
		ok:     func(code int) bool { return code == 0 || code == 1 },
		parse:  parseBandit,
	},
	"flake8": {
		Name:   "flake8",
		Binary: "flake8",
		args:   func(file string) []string { return []string{"--format=default", file} },
		ok:     func(code int) bool { return code == 0 || code == 1 },
		parse:  parseFlake8,
	},
	"pylint": {
		Name:   "pylint",
		Binary: "pylint",
		args:   func(file string) []string { return []string{"--output-format=json", file} },
		// Bits 1..16 report message categories; 32 is a usage error.
		ok:    func(code int) bool { return code >= 0 && code < 32 },
		parse: parsePylint,
	},
	"pyre": {
		Name:         "pyre",
		Binary:       "pyre",
		PerDirectory: true,
		args:         func(string) []string { return []string{"--output=json", "check"} },
		ok:           func(code int) bool { return code == 0 || code == 1 },
		parse:        parsePyre,
	},
}

// Names returns the registered tool names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registered tool called name.
func Lookup(name string) (Tool, bool) {
	t, ok := registry[strings.ToLower(name)]
	return t, ok
}

func hazard(tool, rule string, sev finding.Severity, file string, line, col, endLine, endCol int, msg string) finding.Finding {
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if endLine < line {
		endLine = line
	}
	if endLine == line && endCol < col {
		endCol = col
	}
	return finding.Finding{
		RuleID:    tool + "-" + rule,
		Severity:  sev,
		Kind:      finding.KindHazard,
		File:      file,
		Line:      line,
		Column:    col,
		EndLine:   endLine,
		EndColumn: endCol,
		Message:   strings.TrimSpace(msg),
		Tool:      tool,
	}
}

type banditReport struct {
	Errors []struct {
		Filename string `json:"filename"`
		Reason   string `json:"reason"`
	} `json:"errors"`
	Results []struct {
		Filename      string `json:"filename"`
		TestID        string `json:"test_id"`
		TestName      string `json:"test_name"`
		IssueSeverity string `json:"issue_severity"`
		IssueText     string `json:"issue_text"`
		LineNumber    int    `json:"line_number"`
		ColOffset     int    `json:"col_offset"`
		EndColOffset  int    `json:"end_col_offset"`
		LineRange     []int  `json:"line_range"`
	} `json:"results"`
}

func banditSeverity(s string) finding.Severity {
	switch strings.ToUpper(s) {
	case "HIGH":
		return finding.SeverityHigh
	case "MEDIUM":
		return finding.SeverityMedium
	case "LOW":
		return finding.SeverityLow
	default:
		return finding.SeverityInfo
	}
}

func parseBandit(file string, res Result) ([]finding.Finding, error) {
	var report banditReport
	if err := json.Unmarshal(res.Stdout, &report); err != nil {
		return nil, fmt.Errorf("failed to parse bandit json: %w", err)
	}
	if len(report.Errors) > 0 && len(report.Results) == 0 {
		return nil, fmt.Errorf("bandit: %s", strings.TrimSpace(report.Errors[0].Reason))
	}
	out := make([]finding.Finding, 0, len(report.Results))
	for _, r := range report.Results {
		endLine := r.LineNumber
		if n := len(r.LineRange); n > 0 {
			endLine = r.LineRange[n-1]
		}
		out = append(out, hazard("bandit", r.TestID, banditSeverity(r.IssueSeverity), file,
			r.LineNumber, r.ColOffset+1, endLine, r.EndColOffset+1,
			fmt.Sprintf("%s (%s)", r.IssueText, r.TestName)))
	}
	return out, nil
}

var flake8Line = regexp.MustCompile(`^(.*?):(\d+):(\d+): ([A-Z]+\d+) (.*)$`)

func parseFlake8(file string, res Result) ([]finding.Finding, error) {
	var out []finding.Finding
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := flake8Line.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("unexpected flake8 output line %q", line)
		}
		ln, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		sev := finding.SeverityLow
		if strings.HasPrefix(m[4], "F") {
			sev = finding.SeverityMedium
		}
		out = append(out, hazard("flake8", m[4], sev, file, ln, col, ln, col, m[5]))
	}
	if res.ExitCode == 1 && len(out) == 0 {
		return nil, fmt.Errorf("flake8 exited 1 without reporting: %s", firstLine(res.Stderr))
	}
	return out, nil
}

type pylintMessage struct {
	Type      string `json:"type"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   *int   `json:"endLine"`
	EndColumn *int   `json:"endColumn"`
	Symbol    string `json:"symbol"`
	Message   string `json:"message"`
	MessageID string `json:"message-id"`
}

func pylintSeverity(typ string) finding.Severity {
	switch typ {
	case "fatal", "error":
		return finding.SeverityHigh
	case "warning":
		return finding.SeverityMedium
	default:
		return finding.SeverityLow
	}
}

func parsePylint(file string, res Result) ([]finding.Finding, error) {
	if len(bytes.TrimSpace(res.Stdout)) == 0 {
		return nil, nil
	}
	var msgs []pylintMessage
	if err := json.Unmarshal(res.Stdout, &msgs); err != nil {
		return nil, fmt.Errorf("failed to parse pylint json: %w", err)
	}
	out := make([]finding.Finding, 0, len(msgs))
	for _, m := range msgs {
		endLine, endCol := m.Line, m.Column+1
		if m.EndLine != nil {
			endLine = *m.EndLine
		}
		if m.EndColumn != nil {
			endCol = *m.EndColumn + 1
		}
		out = append(out, hazard("pylint", m.MessageID, pylintSeverity(m.Type), file,
			m.Line, m.Column+1, endLine, endCol, fmt.Sprintf("%s (%s)", m.Message, m.Symbol)))
	}
	return out, nil
}

type pyreError struct {
	Line        int    `json:"line"`
	Column      int    `json:"column"`
	StopLine    int    `json:"stop_line"`
	StopColumn  int    `json:"stop_column"`
	Path        string `json:"path"`
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// parsePyre keeps the errors of a directory-wide run that belong to file.
func parsePyre(file string, res Result) ([]finding.Finding, error) {
	if len(bytes.TrimSpace(res.Stdout)) == 0 {
		return nil, nil
	}
	var errs []pyreError
	if err := json.Unmarshal(res.Stdout, &errs); err != nil {
		return nil, fmt.Errorf("failed to parse pyre json: %w", err)
	}
	var out []finding.Finding
	for _, e := range errs {
		if !samePath(file, e.Path) {
			continue
		}
		out = append(out, hazard("pyre", strconv.Itoa(e.Code), finding.SeverityMedium, file,
			e.Line, e.Column+1, e.StopLine, e.StopColumn+1, e.Description))
	}
	return out, nil
}

// samePath matches a tool-reported path, often relative to the project root, against file.
func samePath(file, reported string) bool {
	f := filepath.ToSlash(filepath.Clean(file))
	r := filepath.ToSlash(filepath.Clean(reported))
	if f == r {
		return true
	}
	if filepath.IsAbs(r) {
		if abs, err := filepath.Abs(file); err == nil {
			return filepath.ToSlash(abs) == r
		}
		return false
	}
	return strings.HasSuffix(f, "/"+r) || filepath.Base(f) == r
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "no output"
	}
	return s
}
