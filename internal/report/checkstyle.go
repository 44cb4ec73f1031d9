/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package report

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/fulmenhq/convguard/internal/finding"
)

func checkstyleSeverity(s finding.Severity) string {
	switch s {
	case finding.SeverityCritical, finding.SeverityHigh:
		return "error"
	case finding.SeverityMedium:
		return "warning"
	default:
		return "info"
	}
}

// renderCheckstyle groups findings by file in Checkstyle 4.3 XML.
func renderCheckstyle(r *Report) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("checkstyle")
	root.CreateAttr("version", "4.3")

	var file *etree.Element
	current := ""
	for _, f := range r.Findings {
		if file == nil || f.File != current {
			file = root.CreateElement("file")
			file.CreateAttr("name", f.File)
			current = f.File
		}
		e := file.CreateElement("error")
		e.CreateAttr("line", strconv.Itoa(f.Line))
		if f.Column > 0 {
			e.CreateAttr("column", strconv.Itoa(f.Column))
		}
		e.CreateAttr("severity", checkstyleSeverity(f.Severity))
		e.CreateAttr("message", f.Message)
		e.CreateAttr("source", ToolName+"."+f.RuleID)
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkstyle report: %w", err)
	}
	return out, nil
}
