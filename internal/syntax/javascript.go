/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

func isJSName(n *sitter.Node) bool {
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return true
	}
	return false
}

func (b *builder) javascript(n *sitter.Node) NodeID {
	switch n.Type() {
	case "comment", "hash_bang_line", "empty_statement", "ERROR":
		return NoNode

	case "program":
		return b.add(KindProgram, n, "", "", b.buildAll(named(n))...)

	case "statement_block", "class_body":
		return b.add(KindBlock, n, "", "", b.buildAll(named(n))...)

	case "parenthesized_expression":
		kids := named(n)
		if len(kids) == 1 {
			return b.build(kids[0])
		}
		return b.generic(n)

	case "lexical_declaration", "variable_declaration":
		keyword := "var"
		if first := n.Child(0); first != nil && !first.IsNull() {
			keyword = first.Type()
		}
		var decls []NodeID
		for _, d := range named(n) {
			if d.Type() != "variable_declarator" {
				continue
			}
			decls = append(decls, b.add(KindDeclaration, d, "", keyword,
				b.jsTarget(d.ChildByFieldName("name")),
				b.build(d.ChildByFieldName("value"))))
		}
		return b.add(KindOther, n, keyword, "", decls...)

	case "identifier", "this", "super", "shorthand_property_identifier":
		return b.leaf(KindIdentifier, n)

	case "number":
		return b.leaf(KindNumber, n)
	case "string":
		return b.leaf(KindString, n)
	case "true", "false":
		return b.leaf(KindBoolean, n)
	case "null", "undefined":
		return b.leaf(KindNull, n)
	case "regex":
		return b.leaf(KindObjectLit, n)
	case "object":
		return b.add(KindObjectLit, n, "", "", b.buildAll(named(n))...)
	case "array":
		return b.add(KindArrayLit, n, "", "", b.buildAll(named(n))...)

	case "template_string":
		var subs []NodeID
		for _, c := range named(n) {
			if c.Type() != "template_substitution" {
				continue
			}
			if inner := named(c); len(inner) > 0 {
				subs = append(subs, b.build(inner[0]))
			}
		}
		if len(subs) == 0 {
			return b.leaf(KindString, n)
		}
		return b.add(KindTemplate, n, "", "", subs...)

	case "binary_expression":
		return b.add(KindBinary, n, b.operator(n), "",
			b.build(n.ChildByFieldName("left")),
			b.build(n.ChildByFieldName("right")))

	case "unary_expression":
		return b.add(KindUnary, n, b.operator(n), "", b.build(n.ChildByFieldName("argument")))

	case "await_expression":
		return b.add(KindUnary, n, "await", "", b.buildAll(named(n))...)

	case "update_expression":
		return b.add(KindUpdate, n, b.operator(n), "", b.build(n.ChildByFieldName("argument")))

	case "assignment_expression":
		return b.add(KindAssign, n, "=", "",
			b.jsTarget(n.ChildByFieldName("left")),
			b.build(n.ChildByFieldName("right")))

	case "augmented_assignment_expression":
		return b.add(KindAugAssign, n, b.operator(n), "",
			b.build(n.ChildByFieldName("left")),
			b.build(n.ChildByFieldName("right")))

	case "call_expression":
		args := n.ChildByFieldName("arguments")
		children := []NodeID{b.build(n.ChildByFieldName("function"))}
		if args != nil && !args.IsNull() {
			if args.Type() == "arguments" {
				children = append(children, b.buildAll(named(args))...)
			} else {
				// Tagged template.
				children = append(children, b.build(args))
			}
		}
		if children[0] == NoNode {
			return b.generic(n)
		}
		return b.add(KindCall, n, "", "", children...)

	case "new_expression":
		children := []NodeID{b.build(n.ChildByFieldName("constructor"))}
		if args := n.ChildByFieldName("arguments"); args != nil && !args.IsNull() {
			children = append(children, b.buildAll(named(args))...)
		}
		return b.add(KindNew, n, "", "", children...)

	case "member_expression":
		op := "."
		if oc := n.ChildByFieldName("optional_chain"); oc != nil && !oc.IsNull() {
			op = "?."
		}
		return b.add(KindMember, n, op, b.text(n.ChildByFieldName("property")),
			b.build(n.ChildByFieldName("object")))

	case "subscript_expression":
		return b.add(KindIndex, n, "[]", "",
			b.build(n.ChildByFieldName("object")),
			b.build(n.ChildByFieldName("index")))

	case "ternary_expression":
		return b.add(KindConditional, n, "?:", "",
			b.build(n.ChildByFieldName("condition")),
			b.build(n.ChildByFieldName("consequence")),
			b.build(n.ChildByFieldName("alternative")))

	case "function_declaration", "function", "function_expression", "arrow_function",
		"generator_function_declaration", "generator_function", "method_definition":
		return b.jsFunction(n)

	case "if_statement":
		children := []NodeID{
			b.build(n.ChildByFieldName("condition")),
			b.build(n.ChildByFieldName("consequence")),
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil && !alt.IsNull() {
			children = append(children, b.add(KindOther, alt, "else", "", b.buildAll(named(alt))...))
		}
		return b.add(KindBranch, n, "if", "", children...)

	case "for_statement", "while_statement", "do_statement", "switch_statement", "try_statement":
		return b.add(KindBranch, n, n.Type(), "", b.buildAll(named(n))...)

	case "for_in_statement":
		return b.add(KindForEach, n, b.text(n.ChildByFieldName("kind")), "",
			b.build(n.ChildByFieldName("right")),
			b.pattern(n.ChildByFieldName("left"), isJSName),
			b.build(n.ChildByFieldName("body")))

	case "pair":
		// Keys are names, not reads.
		return b.add(KindOther, n, "pair", "", b.build(n.ChildByFieldName("value")))

	case "property_identifier", "private_property_identifier", "statement_identifier":
		return NoNode
	}
	return b.generic(n)
}

// jsTarget builds an assignment or declaration target; destructuring becomes a pattern.
func (b *builder) jsTarget(n *sitter.Node) NodeID {
	if n == nil || n.IsNull() {
		return NoNode
	}
	switch n.Type() {
	case "object_pattern", "array_pattern":
		return b.pattern(n, isJSName)
	}
	return b.build(n)
}

func (b *builder) jsFunction(n *sitter.Node) NodeID {
	name := b.text(n.ChildByFieldName("name"))

	var params []NodeID
	if list := n.ChildByFieldName("parameters"); list != nil && !list.IsNull() {
		for _, p := range named(list) {
			params = append(params, b.jsParams(p)...)
		}
	} else if single := n.ChildByFieldName("parameter"); single != nil && !single.IsNull() {
		params = append(params, b.jsParams(single)...)
	}
	paramsID := b.tree.add(Node{Kind: KindParams, Children: params, Span: spanOf(n)})

	return b.add(KindFunction, n, "closure", name, paramsID, b.build(n.ChildByFieldName("body")))
}

func (b *builder) jsParams(p *sitter.Node) []NodeID {
	switch p.Type() {
	case "identifier":
		return []NodeID{b.add(KindParam, p, "", b.text(p))}
	case "assignment_pattern":
		left := p.ChildByFieldName("left")
		if left != nil && !left.IsNull() && left.Type() == "identifier" {
			return []NodeID{b.add(KindParam, p, "", b.text(left), b.build(p.ChildByFieldName("right")))}
		}
	case "rest_pattern":
		for _, c := range named(p) {
			if c.Type() == "identifier" {
				return []NodeID{b.add(KindParam, p, "...", b.text(c))}
			}
		}
	}
	var out []NodeID
	for _, id := range b.tree.Nodes[b.pattern(p, isJSName)].Children {
		n := b.tree.Nodes[id]
		out = append(out, b.tree.add(Node{Kind: KindParam, Text: n.Text, Span: n.Span, Children: n.Children}))
	}
	return out
}
