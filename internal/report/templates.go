/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package report

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fulmenhq/convguard/internal/finding"
)

var (
	//go:embed templates/report.md.hbs
	markdownSource string
	//go:embed templates/report.html.hbs
	htmlSource string

	markdownTemplate = lazyTemplate(markdownSource)
	htmlTemplate     = lazyTemplate(htmlSource)
)

// lazyTemplate parses src once on first use.
func lazyTemplate(src string) func() (*raymond.Template, error) {
	return sync.OnceValues(func() (*raymond.Template, error) {
		return raymond.Parse(src)
	})
}

func renderTemplate(load func() (*raymond.Template, error), r *Report) ([]byte, error) {
	tpl, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	out, err := tpl.Exec(templateData(r))
	if err != nil {
		return nil, fmt.Errorf("failed to render report template: %w", err)
	}
	return []byte(out), nil
}

func templateData(r *Report) map[string]interface{} {
	title := cases.Title(language.English)

	severities := make([]map[string]interface{}, 0, len(finding.Severities))
	for _, s := range finding.Severities {
		severities = append(severities, map[string]interface{}{
			"name":  string(s),
			"label": title.String(string(s)),
			"count": r.Summary.BySeverity[string(s)],
		})
	}

	findings := make([]map[string]interface{}, 0, len(r.Findings))
	for _, f := range r.Findings {
		findings = append(findings, map[string]interface{}{
			"location": f.Location(),
			"severity": string(f.Severity),
			"rule":     f.RuleID,
			"message":  f.Message,
			// Pipes would split a markdown table cell.
			"cell": strings.ReplaceAll(f.Message, "|", `\|`),
		})
	}

	mode := r.Metadata.Language
	if mode == "" {
		mode = "auto"
	}
	return map[string]interface{}{
		"tool":        r.Metadata.Tool,
		"version":     r.Metadata.Version,
		"language":    mode,
		"failOn":      r.Metadata.FailOn,
		"files":       r.Summary.Files,
		"total":       r.Summary.Total,
		"hasFindings": r.Summary.Total > 0,
		"severities":  severities,
		"findings":    findings,
	}
}
