/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package syntax

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/convguard/internal/lang"
)

func parse(t *testing.T, l lang.Language, src string) *Tree {
	t.Helper()
	tree, err := Parse(context.Background(), l, []byte(src))
	require.NoError(t, err)
	require.NotEqual(t, NoNode, tree.Root)
	return tree
}

// find returns the first node of kind k in post order.
func find(tree *Tree, k Kind) (NodeID, *Node) {
	found := NoNode
	tree.PostOrder(tree.Root, func(id NodeID) {
		if found == NoNode && tree.Nodes[id].Kind == k {
			found = id
		}
	})
	if found == NoNode {
		return NoNode, nil
	}
	return found, tree.Node(found)
}

func kinds(tree *Tree, ids []NodeID) []Kind {
	out := make([]Kind, 0, len(ids))
	for _, id := range ids {
		out = append(out, tree.Node(id).Kind)
	}
	return out
}

func TestParse_JavaScriptDeclaration(t *testing.T) {
	tree := parse(t, lang.JavaScript, "let x = getUserInput();\nlet y = x + 5;\n")

	assert.Equal(t, lang.JavaScript, tree.Language)
	assert.Equal(t, KindProgram, tree.Node(tree.Root).Kind)

	id, decl := find(tree, KindDeclaration)
	require.NotNil(t, decl)
	assert.Equal(t, "let", decl.Text)
	assert.Equal(t, []Kind{KindIdentifier, KindCall}, kinds(tree, decl.Children))
	assert.Equal(t, "x", tree.Node(tree.Child(id, 0)).Text)

	_, bin := find(tree, KindBinary)
	require.NotNil(t, bin)
	assert.Equal(t, "+", bin.Op)
	assert.Equal(t, Span{StartLine: 2, StartColumn: 9, EndLine: 2, EndColumn: 14}, bin.Span)
}

func TestParse_JavaScriptExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind Kind
		op   string
		text string
	}{
		{"member", "req.query.id;", KindMember, ".", "query"},
		{"optional member", "a?.b;", KindMember, "?.", "b"},
		{"index", "a[0];", KindIndex, "[]", ""},
		{"unary", "-x;", KindUnary, "-", ""},
		{"typeof", "typeof x;", KindUnary, "typeof", ""},
		{"update", "i++;", KindUpdate, "++", ""},
		{"augmented", "s += 1;", KindAugAssign, "+=", ""},
		{"assignment", "a = 1;", KindAssign, "=", ""},
		{"template", "`a${b}`;", KindTemplate, "", ""},
		{"plain template is string", "`abc`;", KindString, "", "`abc`"},
		{"ternary", "a ? b : c;", KindConditional, "?:", ""},
		{"new", "new Foo(1);", KindNew, "", ""},
		{"arrow", "const f = (a) => a;", KindFunction, "closure", ""},
		{"named function", "function go(a, b = 1) {}", KindFunction, "closure", "go"},
		{"if", "if (a) { b; } else { c; }", KindBranch, "if", ""},
		{"for of", "for (const k of xs) {}", KindForEach, "const", ""},
		{"undefined is null", "undefined;", KindNull, "", "undefined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, lang.JavaScript, tt.src)
			_, n := find(tree, tt.kind)
			require.NotNil(t, n, "no %s node", tt.kind)
			assert.Equal(t, tt.op, n.Op)
			if tt.text != "" {
				assert.Equal(t, tt.text, n.Text)
			}
		})
	}
}

func TestParse_JavaScriptParams(t *testing.T) {
	tree := parse(t, lang.JavaScript, "function f(a, b = 2, { c }, ...rest) { return a; }")
	_, params := find(tree, KindParams)
	require.NotNil(t, params)

	var names []string
	for _, p := range params.Children {
		names = append(names, tree.Node(p).Text)
	}
	assert.Equal(t, []string{"a", "b", "c", "rest"}, names)
}

func TestParse_JavaScriptDestructuring(t *testing.T) {
	tree := parse(t, lang.JavaScript, "const { a, b: [c, d = 1] } = obj;")
	id, pat := find(tree, KindPattern)
	require.NotNil(t, pat)

	var names []string
	for _, ident := range tree.Identifiers(id) {
		names = append(names, tree.Node(ident).Text)
	}
	assert.Equal(t, []string{"a", "c", "d"}, names)
}

func TestParse_JavaScriptDestructuringDefaults(t *testing.T) {
	tree := parse(t, lang.JavaScript, "const [a = req.query.x, b] = [];")
	id, _ := find(tree, KindPattern)
	require.NotEqual(t, NoNode, id)

	idents := tree.Identifiers(id)
	require.Len(t, idents, 2)
	def := tree.Child(idents[0], 0)
	require.NotEqual(t, NoNode, def)
	assert.Equal(t, KindMember, tree.Node(def).Kind)
	assert.Equal(t, NoNode, tree.Child(idents[1], 0))
}

func TestParse_PHP(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind Kind
		op   string
		text string
	}{
		{"variable", `<?php $x;`, KindIdentifier, "", "$x"},
		{"concatenation", `<?php "a" . $b;`, KindBinary, ".", ""},
		{"lowercased keyword operator", `<?php $a AND $b;`, KindBinary, "and", ""},
		{"cast", `<?php (int) $a;`, KindCast, "", "int"},
		{"echo", `<?php echo $a, $b;`, KindEcho, "echo_statement", ""},
		{"method call callee", `<?php $db->query($sql);`, KindMember, "->", "query"},
		{"static call callee", `<?php Foo::bar();`, KindMember, "::", "bar"},
		{"subscript", `<?php $_GET['id'];`, KindIndex, "[]", ""},
		{"interpolation", `<?php "Hello $name";`, KindTemplate, "", ""},
		{"plain string", `<?php 'abc';`, KindString, "", "'abc'"},
		{"named function is isolated", `<?php function f($a) { return $a; }`, KindFunction, "isolated", "f"},
		{"closure is isolated", `<?php $f = function ($a) use ($b) { return $a; };`, KindFunction, "isolated", ""},
		{"arrow function captures", `<?php $f = fn($a) => $a;`, KindFunction, "closure", ""},
		{"foreach", `<?php foreach ($xs as $k => $v) {}`, KindForEach, "", ""},
		{"new", `<?php new Foo($a);`, KindNew, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, lang.PHP, tt.src)
			_, n := find(tree, tt.kind)
			require.NotNil(t, n, "no %s node", tt.kind)
			assert.Equal(t, tt.op, n.Op)
			if tt.text != "" {
				assert.Equal(t, tt.text, n.Text)
			}
		})
	}
}

func TestParse_PHPUseClause(t *testing.T) {
	tree := parse(t, lang.PHP, `<?php $f = function () use ($a, &$b) { return 1; };`)
	id, uses := find(tree, KindUses)
	require.NotNil(t, uses)

	var names []string
	for _, ident := range tree.Identifiers(id) {
		names = append(names, tree.Node(ident).Text)
	}
	assert.Equal(t, []string{"$a", "$b"}, names)
}

func TestParse_PHPForEachTargets(t *testing.T) {
	tree := parse(t, lang.PHP, `<?php foreach ($_POST as $key => $value) { echo $value; }`)
	id, _ := find(tree, KindForEach)
	require.NotEqual(t, NoNode, id)

	var names []string
	for _, ident := range tree.Node(tree.Child(id, 1)).Children {
		names = append(names, tree.Node(ident).Text)
	}
	assert.Equal(t, []string{"$key", "$value"}, names)
}

func TestParse_ClassNamesAreNotReads(t *testing.T) {
	tree := parse(t, lang.PHP, `<?php class Foo { public function bar() { return 1; } }`)
	for _, n := range tree.Nodes {
		if n.Kind == KindIdentifier {
			assert.NotEqual(t, "Foo", n.Text)
		}
	}
}

func TestParse_SyntaxError(t *testing.T) {
	src := "let x = ;\nlet y = 1;\n"
	_, err := Parse(context.Background(), lang.JavaScript, []byte(src))
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Line)
	assert.Equal(t, 3, pe.EndLine)
	assert.NotEmpty(t, pe.Reason)
	assert.Contains(t, pe.Error(), "syntax error at line 1")
}

func TestParse_PHPSyntaxError(t *testing.T) {
	_, err := Parse(context.Background(), lang.PHP, []byte("<?php\n$x = ;\n"))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	_, err := Parse(context.Background(), lang.Python, []byte("x = 1\n"))
	require.Error(t, err)

	var pe *ParseError
	assert.False(t, errors.As(err, &pe))
}

func TestParse_EmptySource(t *testing.T) {
	tree := parse(t, lang.JavaScript, "")
	assert.Equal(t, KindProgram, tree.Node(tree.Root).Kind)
	assert.Empty(t, tree.Node(tree.Root).Children)
}

func TestTree_PostOrderVisitsChildrenFirst(t *testing.T) {
	tree := parse(t, lang.JavaScript, "a + b;")
	var order []Kind
	tree.PostOrder(tree.Root, func(id NodeID) { order = append(order, tree.Node(id).Kind) })
	require.NotEmpty(t, order)
	assert.Equal(t, KindProgram, order[len(order)-1])

	binIdx, identIdx := -1, -1
	for i, k := range order {
		if k == KindIdentifier && identIdx < 0 {
			identIdx = i
		}
		if k == KindBinary {
			binIdx = i
		}
	}
	assert.Less(t, identIdx, binIdx)
}
