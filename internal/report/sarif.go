/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package report

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/fulmenhq/convguard/internal/finding"
	"github.com/fulmenhq/convguard/internal/rules"
)

const informationURI = "https://github.com/fulmenhq/convguard"

var fingerprintNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(informationURI))

func sarifLevel(s finding.Severity) string {
	switch s {
	case finding.SeverityCritical, finding.SeverityHigh:
		return "error"
	case finding.SeverityMedium:
		return "warning"
	case finding.SeverityLow:
		return "note"
	default:
		return "none"
	}
}

// securitySeverity maps severities onto the 0-10 scale code scanning dashboards read.
func securitySeverity(s finding.Severity) string {
	switch s {
	case finding.SeverityCritical:
		return "9.5"
	case finding.SeverityHigh:
		return "7.5"
	case finding.SeverityMedium:
		return "5.0"
	case finding.SeverityLow:
		return "2.5"
	default:
		return "0.0"
	}
}

// fingerprint is stable across runs for the same file, rule and position.
func fingerprint(f finding.Finding) string {
	key := fmt.Sprintf("%s|%s|%d|%d|%d|%d", f.File, f.RuleID, f.Line, f.Column, f.EndLine, f.EndColumn)
	return uuid.NewSHA1(fingerprintNamespace, []byte(key)).String()
}

func renderSARIF(r *Report) ([]byte, error) {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(r.Metadata.Tool, informationURI)
	version := r.Metadata.Version
	run.Tool.Driver.Version = &version

	for _, f := range r.Findings {
		addRule(run, f)

		loc := sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.File))
		if f.Line > 0 {
			loc = loc.WithRegion(region(f))
		}
		result := sarif.NewRuleResult(f.RuleID).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(sarifLevel(f.Severity)).
			WithLocations([]*sarif.Location{sarif.NewLocation().WithPhysicalLocation(loc)})
		result.PartialFingerprints = map[string]interface{}{"convguard/v1": fingerprint(f)}
		run.AddResult(result)
	}
	doc.AddRun(run)

	var buf bytes.Buffer
	if err := doc.PrettyWrite(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode SARIF report: %w", err)
	}
	return buf.Bytes(), nil
}

func region(f finding.Finding) *sarif.Region {
	reg := sarif.NewRegion().WithStartLine(f.Line)
	if f.Column > 0 {
		reg = reg.WithStartColumn(f.Column)
	}
	if f.EndLine >= f.Line && f.EndColumn > 0 {
		reg = reg.WithEndLine(f.EndLine).WithEndColumn(f.EndColumn)
	}
	return reg
}

// addRule registers the descriptor for f's rule; AddRule ignores ids already present.
func addRule(run *sarif.Run, f finding.Finding) {
	title, description := f.RuleID, f.Message
	if meta, ok := rules.Lookup(f.RuleID); ok {
		title, description = meta.Title, meta.Description
	} else if f.Kind == finding.KindExternalToolError {
		meta, _ := rules.Lookup(finding.RuleExternalToolError)
		title, description = f.Tool+": "+meta.Title, meta.Description
	} else if f.Tool != "" {
		title = f.Tool + " " + f.RuleID
		description = "Reported by " + f.Tool + "."
	}
	rule := run.AddRule(f.RuleID).
		WithName(title).
		WithDescription(description).
		WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: sarifLevel(f.Severity)})
	rule.ShortDescription = &sarif.MultiformatMessageString{Text: &title}
	rule.WithProperties(sarif.Properties{"security-severity": securitySeverity(f.Severity)})
}
