/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fulmenhq/convguard/internal/finding"
	"github.com/fulmenhq/convguard/internal/lang"
	"github.com/fulmenhq/convguard/internal/lattice"
	"github.com/fulmenhq/convguard/internal/syntax"
	"github.com/fulmenhq/convguard/internal/tracker"
)

type hit struct {
	rule     string
	at       syntax.NodeID
	message  string
	evidence []lattice.Kind
}

type evaluator struct {
	file string
	tree *syntax.Tree
	ann  *tracker.Annotations
	lang lang.Language

	// raised records which tainted-* rules a node reported, so a value derived from it
	// is not reported again at an enclosing node.
	raised map[syntax.NodeID]map[string]bool
	out    []finding.Finding
}

// Evaluate matches every annotated node against the rule table and returns the findings
// for file. Findings raised on one node are ordered by severity, then rule id.
func Evaluate(file string, ann *tracker.Annotations) []finding.Finding {
	e := &evaluator{
		file:   file,
		tree:   ann.Tree,
		ann:    ann,
		lang:   ann.Tree.Language,
		raised: make(map[syntax.NodeID]map[string]bool),
	}
	e.tree.PostOrder(e.tree.Root, e.visit)
	return e.out
}

func (e *evaluator) kind(id syntax.NodeID) lattice.Kind { return e.ann.Kind(id) }

func (e *evaluator) visit(id syntax.NodeID) {
	n := e.tree.Node(id)
	var hits []hit
	switch n.Kind {
	case syntax.KindBinary:
		hits = e.binary(id, n.Op, e.tree.Child(id, 0), e.tree.Child(id, 1))
		if isLooseEquality(n.Op) {
			hits = append(hits, e.looseEquality(id, n.Op)...)
		}
	case syntax.KindAugAssign:
		hits = e.binary(id, strings.TrimSuffix(n.Op, "="), e.tree.Child(id, 0), e.tree.Child(id, 1))
	case syntax.KindUnary:
		if e.numericUnary(n.Op) {
			hits = e.taintedNumeric(id, n.Op, e.tree.Child(id, 0))
		}
	case syntax.KindUpdate:
		hits = e.taintedNumeric(id, n.Op, e.tree.Child(id, 0))
	case syntax.KindIndex:
		if idx := e.tree.Child(id, 1); idx != syntax.NoNode {
			hits = e.taintedNumeric(id, "[]", idx)
		}
	case syntax.KindTemplate:
		hits = e.template(id, n)
	case syntax.KindCall:
		hits = e.callArguments(id, n)
	case syntax.KindEcho:
		for _, arg := range n.Children {
			if e.kind(arg) == lattice.Object {
				hits = append(hits, hit{rule: ImplicitObjectToString, at: arg,
					message:  "object implicitly converted to string for output",
					evidence: []lattice.Kind{lattice.Object}})
			}
		}
	}
	e.emit(id, hits)
	e.inherit(id, n)
}

func (e *evaluator) emit(id syntax.NodeID, hits []hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		ri, rj := severity(hits[i].rule).Rank(), severity(hits[j].rule).Rank()
		if ri != rj {
			return ri > rj
		}
		return hits[i].rule < hits[j].rule
	})
	for _, h := range hits {
		if h.rule == TaintedNumericContext || h.rule == TaintedStringContext {
			e.mark(id, h.rule)
			e.mark(h.at, h.rule)
		}
		e.out = append(e.out, e.finding(h))
	}
}

// inherit carries reported marks from a tainted operand to the tainted value computed from it.
func (e *evaluator) inherit(id syntax.NodeID, n *syntax.Node) {
	if e.kind(id) != lattice.Tainted {
		return
	}
	for _, c := range n.Children {
		for rule := range e.raised[c] {
			if e.kind(c) == lattice.Tainted {
				e.mark(id, rule)
			}
		}
	}
}

func (e *evaluator) mark(id syntax.NodeID, rule string) {
	if e.raised[id] == nil {
		e.raised[id] = map[string]bool{}
	}
	e.raised[id][rule] = true
}

// fresh reports whether operand is tainted and not already reported under rule.
func (e *evaluator) fresh(operand syntax.NodeID, rule string) bool {
	return operand != syntax.NoNode && e.kind(operand) == lattice.Tainted && !e.raised[operand][rule]
}

func (e *evaluator) finding(h hit) finding.Finding {
	span := e.tree.Node(h.at).Span
	evidence := make([]string, 0, len(h.evidence))
	for _, k := range h.evidence {
		evidence = append(evidence, k.String())
	}
	return finding.Finding{
		RuleID:        h.rule,
		Severity:      severity(h.rule),
		Kind:          finding.KindHazard,
		File:          e.file,
		Line:          span.StartLine,
		Column:        span.StartColumn,
		EndLine:       span.EndLine,
		EndColumn:     span.EndColumn,
		Message:       h.message,
		EvidenceKinds: evidence,
	}
}

type opContext int

const (
	noContext opContext = iota
	numericContext
	stringContext
)

// operatorContext decides whether op computes numbers or builds strings for these operands.
func (e *evaluator) operatorContext(op string, l, r lattice.Kind) opContext {
	switch {
	case e.lang == lang.PHP && op == ".":
		return stringContext
	case e.lang == lang.JavaScript && op == "+":
		switch {
		case l == lattice.String || r == lattice.String || l == lattice.Object || r == lattice.Object:
			return stringContext
		case l == lattice.Number || r == lattice.Number:
			return numericContext
		case l == lattice.Tainted || r == lattice.Tainted:
			// Request values arrive as strings, so an unresolved '+' over them concatenates.
			return stringContext
		}
		// Both operands unresolved: JavaScript decides at runtime.
		return noContext
	case isArithmetic(op):
		return numericContext
	}
	return noContext
}

func (e *evaluator) binary(id syntax.NodeID, op string, left, right syntax.NodeID) []hit {
	l, r := e.kind(left), e.kind(right)
	evidence := []lattice.Kind{l, r}
	var hits []hit

	switch e.operatorContext(op, l, r) {
	case numericContext:
		if e.fresh(left, TaintedNumericContext) || e.fresh(right, TaintedNumericContext) {
			hits = append(hits, hit{rule: TaintedNumericContext, at: id, evidence: evidence,
				message: fmt.Sprintf("external input used in numeric operation '%s' without explicit conversion", op)})
		}
		if mixesStringAndNumber(l, r) {
			hits = append(hits, hit{rule: ImplicitStringToNumber, at: id, evidence: evidence,
				message: fmt.Sprintf("string operand implicitly converted to number by '%s'", op)})
		}
	case stringContext:
		if e.fresh(left, TaintedStringContext) || e.fresh(right, TaintedStringContext) {
			hits = append(hits, hit{rule: TaintedStringContext, at: id, evidence: evidence,
				message: fmt.Sprintf("external input concatenated by '%s' without sanitization", op)})
		}
		if l == lattice.Object || r == lattice.Object {
			hits = append(hits, hit{rule: ImplicitObjectToString, at: id, evidence: evidence,
				message: fmt.Sprintf("object operand implicitly converted to string by '%s'", op)})
		}
		if e.lang == lang.JavaScript && mixesStringAndNumber(l, r) {
			hits = append(hits, hit{rule: ImplicitStringToNumber, at: id, evidence: evidence,
				message: "string and number mixed in '+': the number is concatenated, not added"})
		}
	}
	return hits
}

func (e *evaluator) looseEquality(id syntax.NodeID, op string) []hit {
	l, r := e.kind(e.tree.Child(id, 0)), e.kind(e.tree.Child(id, 1))
	if !l.Known() || !r.Known() || l == r {
		return nil
	}
	return []hit{{rule: LooseEqualityCoercion, at: id, evidence: []lattice.Kind{l, r},
		message: fmt.Sprintf("loose comparison '%s' between %s and %s coerces operands", op, l, r)}}
}

func (e *evaluator) taintedNumeric(id syntax.NodeID, op string, operand syntax.NodeID) []hit {
	if !e.fresh(operand, TaintedNumericContext) {
		return nil
	}
	use := fmt.Sprintf("numeric operator '%s'", op)
	if op == "[]" {
		use = "array index"
	}
	return []hit{{rule: TaintedNumericContext, at: id, evidence: []lattice.Kind{lattice.Tainted},
		message: fmt.Sprintf("external input used as %s without explicit conversion", use)}}
}

func (e *evaluator) template(id syntax.NodeID, n *syntax.Node) []hit {
	var hits []hit
	for _, part := range n.Children {
		switch k := e.kind(part); {
		case k == lattice.Object:
			hits = append(hits, hit{rule: ImplicitObjectToString, at: part, evidence: []lattice.Kind{k},
				message: "object implicitly converted to string by interpolation"})
		case e.fresh(part, TaintedStringContext):
			hits = append(hits, hit{rule: TaintedStringContext, at: part, evidence: []lattice.Kind{k},
				message: "external input interpolated into string without sanitization"})
		}
	}
	return hits
}

func (e *evaluator) callArguments(id syntax.NodeID, n *syntax.Node) []hit {
	callee := e.ann.Callee(id)
	if callee == nil {
		return nil
	}
	name := callee.Pattern
	var hits []hit
	for i, arg := range n.Children[1:] {
		k := e.kind(arg)
		switch callee.Param(i) {
		case tracker.ParamNumber:
			if e.fresh(arg, TaintedNumericContext) {
				hits = append(hits, hit{rule: TaintedNumericContext, at: arg, evidence: []lattice.Kind{k},
					message: fmt.Sprintf("external input passed as numeric argument %d of %s", i+1, name)})
			} else if k == lattice.String {
				hits = append(hits, hit{rule: ImplicitStringToNumber, at: arg, evidence: []lattice.Kind{k},
					message: fmt.Sprintf("string passed as numeric argument %d of %s", i+1, name)})
			}
		case tracker.ParamString:
			if k == lattice.Object {
				hits = append(hits, hit{rule: ImplicitObjectToString, at: arg, evidence: []lattice.Kind{k},
					message: fmt.Sprintf("object passed as string argument %d of %s", i+1, name)})
			}
		case tracker.ParamQuery:
			if e.fresh(arg, TaintedStringContext) {
				hits = append(hits, hit{rule: TaintedStringContext, at: arg, evidence: []lattice.Kind{k},
					message: fmt.Sprintf("external input passed as query argument %d of %s", i+1, name)})
			} else if k == lattice.Object {
				hits = append(hits, hit{rule: ImplicitObjectToString, at: arg, evidence: []lattice.Kind{k},
					message: fmt.Sprintf("object passed as query argument %d of %s", i+1, name)})
			}
		}
	}
	return hits
}

func (e *evaluator) numericUnary(op string) bool {
	switch op {
	case "-", "~":
		return true
	case "+":
		// JavaScript unary plus is an explicit conversion.
		return e.lang == lang.PHP
	}
	return false
}

func mixesStringAndNumber(l, r lattice.Kind) bool {
	return (l == lattice.String && r == lattice.Number) || (l == lattice.Number && r == lattice.String)
}

func isLooseEquality(op string) bool {
	return op == "==" || op == "!=" || op == "<>"
}

func isArithmetic(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%", "**", "&", "|", "^", "<<", ">>", ">>>":
		return true
	}
	return false
}
