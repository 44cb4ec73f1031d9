/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fulmenhq/convguard/internal/finding"
)

var severityColor = map[finding.Severity]string{
	finding.SeverityCritical: "1;31",
	finding.SeverityHigh:     "31",
	finding.SeverityMedium:   "33",
	finding.SeverityLow:      "36",
	finding.SeverityInfo:     "37",
}

// WriteText prints one aligned line per finding followed by a summary.
func WriteText(w io.Writer, r *Report, color bool) error {
	title := cases.Title(language.English)
	paint := func(code, s string) string {
		if !color || code == "" {
			return s
		}
		return "\x1b[" + code + "m" + s + "\x1b[0m"
	}

	locWidth, sevWidth, ruleWidth := 0, 0, 0
	for _, f := range r.Findings {
		locWidth = max(locWidth, runewidth.StringWidth(f.Location()))
		sevWidth = max(sevWidth, runewidth.StringWidth(string(f.Severity)))
		ruleWidth = max(ruleWidth, runewidth.StringWidth(f.RuleID))
	}

	var b strings.Builder
	for _, f := range r.Findings {
		sev := runewidth.FillRight(strings.ToUpper(string(f.Severity)), sevWidth)
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			runewidth.FillRight(f.Location(), locWidth),
			paint(severityColor[f.Severity], sev),
			runewidth.FillRight(f.RuleID, ruleWidth),
			f.Message)
	}
	if len(r.Findings) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s: %d finding(s) in %d file(s)", title.String("summary"), r.Summary.Total, r.Summary.Files)
	var parts []string
	for _, s := range finding.Severities {
		if n := r.Summary.BySeverity[string(s)]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", title.String(string(s)), n))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
