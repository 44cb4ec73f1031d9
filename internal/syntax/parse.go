/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/fulmenhq/convguard/internal/lang"
)

// ParseError reports source that the grammar could not parse. Analysis of the unit stops;
// the run continues with other units.
type ParseError struct {
	// Line and Column locate the first syntax error.
	Line   int
	Column int
	// EndLine and EndColumn are the end of the file, so the error can span the whole unit.
	EndLine   int
	EndColumn int
	Reason    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Reason)
}

func grammar(l lang.Language) (*sitter.Language, error) {
	switch l {
	case lang.JavaScript:
		return javascript.GetLanguage(), nil
	case lang.PHP:
		return php.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("no built-in grammar for %s", l)
	}
}

// Parse builds the syntax tree for src. A *ParseError is returned when the source has syntax errors.
func Parse(ctx context.Context, l lang.Language, src []byte) (*Tree, error) {
	g, err := grammar(l)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g)

	cst, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter failed to parse: %w", err)
	}
	defer cst.Close()

	root := cst.RootNode()
	if root.HasError() {
		return nil, newParseError(root, src)
	}

	b := &builder{src: src, tree: &Tree{Language: l}}
	switch l {
	case lang.PHP:
		b.convert = b.php
	default:
		b.convert = b.javascript
	}
	b.tree.Root = b.build(root)
	if b.tree.Root == NoNode {
		b.tree.Root = b.tree.add(Node{Kind: KindProgram, Span: spanOf(root)})
	}
	return b.tree, nil
}

func newParseError(root *sitter.Node, src []byte) *ParseError {
	end := root.EndPoint()
	pe := &ParseError{
		Line:      1,
		Column:    1,
		EndLine:   int(end.Row) + 1,
		EndColumn: int(end.Column) + 1,
		Reason:    "unexpected input",
	}
	if bad := firstError(root); bad != nil {
		start := bad.StartPoint()
		pe.Line = int(start.Row) + 1
		pe.Column = int(start.Column) + 1
		if bad.IsMissing() {
			pe.Reason = fmt.Sprintf("missing %q", bad.Type())
		} else if snippet := bad.Content(src); snippet != "" {
			pe.Reason = fmt.Sprintf("unexpected %q", truncate(snippet, 40))
		}
	}
	return pe
}

// firstError returns the earliest ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n == nil || n.IsNull() {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

type builder struct {
	src     []byte
	tree    *Tree
	convert func(n *sitter.Node) NodeID
}

func spanOf(n *sitter.Node) Span {
	s, e := n.StartPoint(), n.EndPoint()
	return Span{
		StartLine:   int(s.Row) + 1,
		StartColumn: int(s.Column) + 1,
		EndLine:     int(e.Row) + 1,
		EndColumn:   int(e.Column) + 1,
	}
}

func (b *builder) build(n *sitter.Node) NodeID {
	if n == nil || n.IsNull() {
		return NoNode
	}
	return b.convert(n)
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil || n.IsNull() {
		return ""
	}
	return n.Content(b.src)
}

func (b *builder) add(kind Kind, n *sitter.Node, op, text string, children ...NodeID) NodeID {
	kept := make([]NodeID, 0, len(children))
	for _, c := range children {
		if c != NoNode {
			kept = append(kept, c)
		}
	}
	return b.tree.add(Node{Kind: kind, Op: op, Text: text, Children: kept, Span: spanOf(n)})
}

// leaf adds a node without children, keeping its source text.
func (b *builder) leaf(kind Kind, n *sitter.Node) NodeID {
	return b.add(kind, n, "", b.text(n))
}

// named returns the named children of n, skipping comments.
func named(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || c.IsNull() || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (b *builder) buildAll(nodes []*sitter.Node) []NodeID {
	out := make([]NodeID, 0, len(nodes))
	for _, c := range nodes {
		if id := b.build(c); id != NoNode {
			out = append(out, id)
		}
	}
	return out
}

// generic keeps an unmodeled node as KindOther so nested expressions are still analyzed.
func (b *builder) generic(n *sitter.Node) NodeID {
	return b.add(KindOther, n, n.Type(), "", b.buildAll(named(n))...)
}

// operator returns the operator token of n, preferring the "operator" field.
func (b *builder) operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil && !op.IsNull() {
		return b.text(op)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && !c.IsNamed() {
			return b.text(c)
		}
	}
	return ""
}

// pattern collects identifier-like descendants of a destructuring target.
func (b *builder) pattern(n *sitter.Node, isName func(*sitter.Node) bool) NodeID {
	var ids []NodeID
	def := NoNode
	var walk func(*sitter.Node)
	walk = func(c *sitter.Node) {
		if c == nil || c.IsNull() {
			return
		}
		if t := c.Type(); t == "assignment_pattern" || t == "object_assignment_pattern" {
			outer := def
			def = b.build(c.ChildByFieldName("right"))
			walk(c.ChildByFieldName("left"))
			def = outer
			return
		}
		if isName(c) {
			// The first name under a default owns it.
			ids = append(ids, b.add(KindIdentifier, c, "", b.text(c), def))
			def = NoNode
			return
		}
		for _, child := range named(c) {
			walk(child)
		}
	}
	walk(n)
	return b.add(KindPattern, n, "", "", ids...)
}
