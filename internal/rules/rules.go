/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import "github.com/fulmenhq/convguard/internal/finding"

// Rule ids of the built-in hazard rules.
const (
	ImplicitStringToNumber = "implicit-string-to-number"
	ImplicitObjectToString = "implicit-object-to-string"
	LooseEqualityCoercion  = "loose-equality-coercion"
	TaintedNumericContext  = "tainted-numeric-context"
	TaintedStringContext   = "tainted-string-context"
)

// Rule is the metadata of one rule id.
type Rule struct {
	ID          string           `json:"id" yaml:"id"`
	Severity    finding.Severity `json:"severity" yaml:"severity"`
	Kind        finding.Kind     `json:"kind" yaml:"kind"`
	Title       string           `json:"title" yaml:"title"`
	Description string           `json:"description" yaml:"description"`
}

var table = []Rule{
	{
		ID:          ImplicitStringToNumber,
		Severity:    finding.SeverityHigh,
		Kind:        finding.KindHazard,
		Title:       "Implicit string to number conversion",
		Description: "A string operand meets a number in arithmetic or a numeric argument, so the runtime converts (or, for JavaScript '+', concatenates) implicitly.",
	},
	{
		ID:          ImplicitObjectToString,
		Severity:    finding.SeverityMedium,
		Kind:        finding.KindHazard,
		Title:       "Implicit object to string conversion",
		Description: "An object or array is concatenated, interpolated or passed where a string is expected.",
	},
	{
		ID:          LooseEqualityCoercion,
		Severity:    finding.SeverityMedium,
		Kind:        finding.KindHazard,
		Title:       "Loose equality between different kinds",
		Description: "A loose comparison (==, !=, <>) compares operands of different known kinds and coerces one of them.",
	},
	{
		ID:          TaintedNumericContext,
		Severity:    finding.SeverityCritical,
		Kind:        finding.KindHazard,
		Title:       "External input in numeric context",
		Description: "User-controlled input reaches arithmetic, a numeric unary operator, an array index or a numeric argument without explicit conversion.",
	},
	{
		ID:          TaintedStringContext,
		Severity:    finding.SeverityCritical,
		Kind:        finding.KindHazard,
		Title:       "External input in string context",
		Description: "User-controlled input is concatenated, interpolated or passed to a query or command builder without sanitization.",
	},
	{
		ID:          finding.RuleParseError,
		Severity:    finding.SeverityLow,
		Kind:        finding.KindParseError,
		Title:       "Source could not be parsed",
		Description: "The file has syntax errors; it was skipped. Severity is configurable with parse_error_severity.",
	},
	{
		ID:          finding.RuleExternalToolError,
		Severity:    finding.SeverityLow,
		Kind:        finding.KindExternalToolError,
		Title:       "External linter failed",
		Description: "An enabled Python linter could not start, timed out or produced unusable output for this file.",
	},
	{
		ID:          finding.RuleIOError,
		Severity:    finding.SeverityLow,
		Kind:        finding.KindIOError,
		Title:       "Input could not be read",
		Description: "The file was discovered but could not be read; it was skipped.",
	},
}

// All returns every built-in rule in table order.
func All() []Rule {
	out := make([]Rule, len(table))
	copy(out, table)
	return out
}

// Lookup returns the metadata for a built-in rule id.
func Lookup(id string) (Rule, bool) {
	for _, r := range table {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

func severity(id string) finding.Severity {
	r, _ := Lookup(id)
	return r.Severity
}
