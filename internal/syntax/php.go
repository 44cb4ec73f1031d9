/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package syntax

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

func isPHPName(n *sitter.Node) bool {
	return n.Type() == "variable_name"
}

// phpLiteralText lists string parts that carry no interpolated expression.
var phpLiteralText = map[string]bool{
	"string_content":     true,
	"string_value":       true,
	"escape_sequence":    true,
	"heredoc_start":      true,
	"heredoc_end":        true,
	"nowdoc_string":      true,
	"text_interpolation": true,
}

func (b *builder) php(n *sitter.Node) NodeID {
	switch n.Type() {
	case "comment", "php_tag", "text", "text_interpolation", "empty_statement", "ERROR":
		return NoNode

	case "program":
		return b.add(KindProgram, n, "", "", b.buildAll(named(n))...)

	case "compound_statement", "colon_block", "declaration_list":
		return b.add(KindBlock, n, "", "", b.buildAll(named(n))...)

	case "parenthesized_expression":
		kids := named(n)
		if len(kids) == 1 {
			return b.build(kids[0])
		}
		return b.generic(n)

	case "variable_name", "name", "qualified_name":
		return b.leaf(KindIdentifier, n)

	case "integer", "float":
		return b.leaf(KindNumber, n)
	case "boolean":
		return b.leaf(KindBoolean, n)
	case "null":
		return b.leaf(KindNull, n)
	case "string", "nowdoc":
		return b.leaf(KindString, n)
	case "encapsed_string", "heredoc":
		subs := b.interpolations(n)
		if len(subs) == 0 {
			return b.leaf(KindString, n)
		}
		return b.add(KindTemplate, n, "", "", subs...)

	case "array_creation_expression":
		return b.add(KindArrayLit, n, "", "", b.buildAll(named(n))...)

	case "binary_expression":
		return b.add(KindBinary, n, strings.ToLower(b.operator(n)), "",
			b.build(n.ChildByFieldName("left")),
			b.build(n.ChildByFieldName("right")))

	case "unary_op_expression":
		return b.add(KindUnary, n, b.operator(n), "", b.phpOperand(n))

	case "error_suppression_expression":
		return b.add(KindUnary, n, "@", "", b.phpOperand(n))

	case "update_expression":
		return b.add(KindUpdate, n, b.operator(n), "", b.phpOperand(n))

	case "cast_expression":
		typ := ""
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil && c.Type() == "cast_type" {
				typ = strings.ToLower(strings.TrimSpace(b.text(c)))
			}
		}
		return b.add(KindCast, n, "", typ, b.phpOperand(n))

	case "assignment_expression", "reference_assignment_expression":
		return b.add(KindAssign, n, "=", "",
			b.phpTarget(n.ChildByFieldName("left")),
			b.build(n.ChildByFieldName("right")))

	case "augmented_assignment_expression":
		return b.add(KindAugAssign, n, b.operator(n), "",
			b.build(n.ChildByFieldName("left")),
			b.build(n.ChildByFieldName("right")))

	case "function_call_expression":
		children := []NodeID{b.build(n.ChildByFieldName("function"))}
		children = append(children, b.phpArguments(n.ChildByFieldName("arguments"))...)
		if children[0] == NoNode {
			return b.generic(n)
		}
		return b.add(KindCall, n, "", "", children...)

	case "member_call_expression", "nullsafe_member_call_expression":
		callee := b.add(KindMember, n, "->", b.text(n.ChildByFieldName("name")),
			b.build(n.ChildByFieldName("object")))
		children := append([]NodeID{callee}, b.phpArguments(n.ChildByFieldName("arguments"))...)
		return b.add(KindCall, n, "", "", children...)

	case "scoped_call_expression":
		callee := b.add(KindMember, n, "::", b.text(n.ChildByFieldName("name")),
			b.build(n.ChildByFieldName("scope")))
		children := append([]NodeID{callee}, b.phpArguments(n.ChildByFieldName("arguments"))...)
		return b.add(KindCall, n, "", "", children...)

	case "object_creation_expression":
		var children []NodeID
		for _, c := range named(n) {
			if c.Type() == "arguments" {
				children = append(children, b.phpArguments(c)...)
				continue
			}
			if len(children) == 0 {
				children = append(children, b.build(c))
			}
		}
		return b.add(KindNew, n, "", "", children...)

	case "member_access_expression", "nullsafe_member_access_expression":
		return b.add(KindMember, n, "->", b.text(n.ChildByFieldName("name")),
			b.build(n.ChildByFieldName("object")))

	case "scoped_property_access_expression", "class_constant_access_expression":
		kids := named(n)
		if len(kids) < 2 {
			return b.generic(n)
		}
		return b.add(KindMember, n, "::", b.text(kids[len(kids)-1]), b.build(kids[0]))

	case "subscript_expression":
		kids := named(n)
		if len(kids) == 0 {
			return b.generic(n)
		}
		children := []NodeID{b.build(kids[0])}
		if len(kids) > 1 {
			children = append(children, b.build(kids[1]))
		}
		return b.add(KindIndex, n, "[]", "", children...)

	case "conditional_expression":
		return b.add(KindConditional, n, "?:", "",
			b.build(n.ChildByFieldName("condition")),
			b.build(n.ChildByFieldName("body")),
			b.build(n.ChildByFieldName("alternative")))

	case "echo_statement", "print_intrinsic":
		var args []NodeID
		for _, c := range named(n) {
			if c.Type() == "sequence_expression" {
				args = append(args, b.buildAll(flattenSequence(c))...)
				continue
			}
			args = append(args, b.build(c))
		}
		return b.add(KindEcho, n, n.Type(), "", args...)

	case "function_definition", "method_declaration", "anonymous_function_creation_expression",
		"anonymous_function", "arrow_function":
		return b.phpFunction(n)

	case "if_statement", "while_statement", "do_statement", "for_statement", "switch_statement", "try_statement":
		return b.add(KindBranch, n, n.Type(), "", b.buildAll(named(n))...)

	case "foreach_statement":
		kids := named(n)
		if len(kids) < 3 {
			return b.generic(n)
		}
		targets := b.add(KindPattern, kids[1], "", "")
		var ids []NodeID
		for _, t := range kids[1 : len(kids)-1] {
			ids = append(ids, b.tree.Nodes[b.pattern(t, isPHPName)].Children...)
		}
		b.tree.Nodes[targets].Children = ids
		return b.add(KindForEach, n, "", "", b.build(kids[0]), targets, b.build(kids[len(kids)-1]))

	case "namespace_definition", "namespace_use_declaration", "class_declaration",
		"interface_declaration", "trait_declaration", "enum_declaration":
		// Only bodies matter; names would otherwise read as identifiers.
		var bodies []NodeID
		for _, c := range named(n) {
			switch c.Type() {
			case "compound_statement", "declaration_list", "enum_declaration_list":
				bodies = append(bodies, b.build(c))
			}
		}
		return b.add(KindOther, n, n.Type(), "", bodies...)
	}
	return b.generic(n)
}

// phpOperand returns the last named child, the operand of prefix and postfix forms.
func (b *builder) phpOperand(n *sitter.Node) NodeID {
	if arg := n.ChildByFieldName("argument"); arg != nil && !arg.IsNull() {
		return b.build(arg)
	}
	if v := n.ChildByFieldName("value"); v != nil && !v.IsNull() {
		return b.build(v)
	}
	kids := named(n)
	for i := len(kids) - 1; i >= 0; i-- {
		if kids[i].Type() != "cast_type" {
			return b.build(kids[i])
		}
	}
	return NoNode
}

func (b *builder) phpTarget(n *sitter.Node) NodeID {
	if n == nil || n.IsNull() {
		return NoNode
	}
	switch n.Type() {
	case "list_literal", "array_creation_expression":
		return b.pattern(n, isPHPName)
	}
	return b.build(n)
}

func (b *builder) phpArguments(args *sitter.Node) []NodeID {
	if args == nil || args.IsNull() {
		return nil
	}
	var out []NodeID
	for _, a := range named(args) {
		if a.Type() != "argument" {
			out = append(out, b.build(a))
			continue
		}
		// Named arguments carry a name child before the value.
		kids := named(a)
		if len(kids) > 0 {
			out = append(out, b.build(kids[len(kids)-1]))
		}
	}
	return out
}

func flattenSequence(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range named(n) {
		if c.Type() == "sequence_expression" {
			out = append(out, flattenSequence(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// interpolations returns the expressions embedded in an interpolated string or heredoc.
func (b *builder) interpolations(n *sitter.Node) []NodeID {
	var out []NodeID
	for _, c := range named(n) {
		switch {
		case phpLiteralText[c.Type()]:
		case c.Type() == "heredoc_body":
			out = append(out, b.interpolations(c)...)
		default:
			if id := b.build(c); id != NoNode {
				out = append(out, id)
			}
		}
	}
	return out
}

func (b *builder) phpFunction(n *sitter.Node) NodeID {
	name := b.text(n.ChildByFieldName("name"))

	var params []NodeID
	if list := n.ChildByFieldName("parameters"); list != nil && !list.IsNull() {
		for _, p := range named(list) {
			pname := p.ChildByFieldName("name")
			if pname == nil || pname.IsNull() {
				continue
			}
			params = append(params, b.add(KindParam, p, "", b.text(pname),
				b.build(p.ChildByFieldName("default_value"))))
		}
	}
	paramsID := b.tree.add(Node{Kind: KindParams, Children: params, Span: spanOf(n)})

	op := "isolated"
	if n.Type() == "arrow_function" {
		op = "closure"
	}
	children := []NodeID{paramsID, b.build(n.ChildByFieldName("body"))}
	for _, c := range named(n) {
		if c.Type() == "anonymous_function_use_clause" {
			uses := b.pattern(c, isPHPName)
			b.tree.Nodes[uses].Kind = KindUses
			children = append(children, uses)
		}
	}
	if children[1] == NoNode {
		// Abstract and interface methods have no body.
		children[1] = b.tree.add(Node{Kind: KindBlock, Span: spanOf(n)})
	}
	return b.tree.add(Node{Kind: KindFunction, Op: op, Text: name, Children: children, Span: spanOf(n)})
}
