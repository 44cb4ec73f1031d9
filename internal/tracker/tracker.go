/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package tracker

import (
	"strings"

	"github.com/fulmenhq/convguard/internal/lang"
	"github.com/fulmenhq/convguard/internal/lattice"
	"github.com/fulmenhq/convguard/internal/syntax"
)

// Options tune the tracker.
type Options struct {
	// TaintParameters treats every function parameter as external input.
	TaintParameters bool
}

// Annotations is the per-node value kind of one tree.
type Annotations struct {
	Tree    *syntax.Tree
	kinds   []lattice.Kind
	callees map[syntax.NodeID]*Callee
}

// Kind returns the kind computed for id. Identifier operands of assignments and updates
// hold the kind read before the write.
func (a *Annotations) Kind(id syntax.NodeID) lattice.Kind {
	if id == syntax.NoNode || int(id) >= len(a.kinds) {
		return lattice.Unknown
	}
	return a.kinds[id]
}

// Callee returns the known callee resolved for a call node, or nil.
func (a *Annotations) Callee(call syntax.NodeID) *Callee {
	return a.callees[call]
}

type tracker struct {
	tree    *syntax.Tree
	lang    lang.Language
	catalog *Catalog
	opts    Options

	kinds   []lattice.Kind
	callees map[syntax.NodeID]*Callee

	global *scope
	scope  *scope
	cond   int
}

// Annotate walks tree once and returns the value kind of every node. Sources in the
// catalog start out tainted; bindings follow assignments through nested scopes.
func Annotate(tree *syntax.Tree, catalog *Catalog, opts Options) *Annotations {
	t := &tracker{
		tree:    tree,
		lang:    tree.Language,
		catalog: catalog,
		opts:    opts,
		kinds:   make([]lattice.Kind, len(tree.Nodes)),
		callees: make(map[syntax.NodeID]*Callee),
	}
	t.global = newScope(nil, scopeGlobal, 0)
	t.scope = t.global
	t.eval(tree.Root)
	return &Annotations{Tree: tree, kinds: t.kinds, callees: t.callees}
}

func (t *tracker) eval(id syntax.NodeID) lattice.Kind {
	if id == syntax.NoNode {
		return lattice.Unknown
	}
	k := t.evalNode(id, t.tree.Node(id))
	t.kinds[id] = k
	return k
}

func (t *tracker) evalAll(ids []syntax.NodeID) {
	for _, c := range ids {
		t.eval(c)
	}
}

func (t *tracker) evalNode(id syntax.NodeID, n *syntax.Node) lattice.Kind {
	switch n.Kind {
	case syntax.KindString:
		return lattice.String
	case syntax.KindNumber:
		return lattice.Number
	case syntax.KindBoolean:
		return lattice.Boolean
	case syntax.KindNull:
		return lattice.Null

	case syntax.KindObjectLit, syntax.KindArrayLit:
		t.evalAll(n.Children)
		return lattice.Object

	case syntax.KindIdentifier:
		return t.identifier(n.Text)

	case syntax.KindBlock:
		if t.lang == lang.JavaScript {
			t.push(scopeBlock)
			defer t.pop()
		}
		t.evalAll(n.Children)
		return lattice.Unknown

	case syntax.KindDeclaration:
		value := lattice.Null
		if len(n.Children) > 1 {
			value = t.eval(n.Children[1])
		}
		t.bindTarget(t.tree.Child(id, 0), value, n.Text)
		return value

	case syntax.KindAssign:
		if len(n.Children) < 2 {
			t.evalAll(n.Children)
			return lattice.Unknown
		}
		right := t.eval(n.Children[1])
		t.bindTarget(n.Children[0], right, "")
		return right

	case syntax.KindAugAssign:
		left := t.eval(n.Children[0])
		right := t.eval(t.tree.Child(id, 1))
		res := t.binary(strings.TrimSuffix(n.Op, "="), left, right)
		t.write(n.Children[0], res)
		return res

	case syntax.KindBinary:
		left := t.eval(t.tree.Child(id, 0))
		right := t.eval(t.tree.Child(id, 1))
		return t.binary(n.Op, left, right)

	case syntax.KindUnary:
		return t.unary(n.Op, t.eval(t.tree.Child(id, 0)))

	case syntax.KindUpdate:
		operand := t.tree.Child(id, 0)
		res := lattice.Number
		if t.eval(operand) == lattice.Tainted {
			res = lattice.Tainted
		}
		t.write(operand, res)
		return res

	case syntax.KindCall:
		return t.call(id, n)

	case syntax.KindNew:
		t.eval(t.tree.Child(id, 0))
		res := lattice.Object
		for _, a := range n.Children[1:] {
			if t.eval(a) == lattice.Tainted {
				res = lattice.Tainted
			}
		}
		return res

	case syntax.KindMember:
		obj := t.eval(t.tree.Child(id, 0))
		switch {
		case t.catalog.IsSourcePath(t.path(id)):
			return lattice.Tainted
		case n.Text == "length":
			return lattice.Number
		case obj == lattice.Tainted:
			return lattice.Tainted
		}
		return lattice.Unknown

	case syntax.KindIndex:
		obj := t.eval(t.tree.Child(id, 0))
		t.eval(t.tree.Child(id, 1))
		switch obj {
		case lattice.Tainted:
			return lattice.Tainted
		case lattice.String:
			return lattice.String
		}
		return lattice.Unknown

	case syntax.KindTemplate:
		res := lattice.String
		for _, c := range n.Children {
			if t.eval(c) == lattice.Tainted {
				res = lattice.Tainted
			}
		}
		return res

	case syntax.KindCast:
		return castKind(n.Text, t.eval(t.tree.Child(id, 0)))

	case syntax.KindFunction:
		t.function(n)
		return lattice.Object

	case syntax.KindConditional:
		t.eval(n.Children[0])
		t.cond++
		defer func() { t.cond-- }()
		if len(n.Children) == 2 {
			// Short ternary: the condition itself is the first alternative.
			return lattice.Merge(t.kinds[n.Children[0]], t.eval(n.Children[1]))
		}
		res := t.eval(n.Children[1])
		for _, c := range n.Children[2:] {
			res = lattice.Merge(res, t.eval(c))
		}
		return res

	case syntax.KindBranch:
		if t.lang == lang.JavaScript {
			t.push(scopeBlock)
			defer t.pop()
		}
		if len(n.Children) > 0 {
			t.eval(n.Children[0])
		}
		t.cond++
		t.evalAll(n.Children[1:])
		t.cond--
		return lattice.Unknown

	case syntax.KindForEach:
		t.forEach(n)
		return lattice.Unknown
	}

	// Program, Other, Echo and friends: analyze children in order.
	t.evalAll(n.Children)
	return lattice.Unknown
}

func (t *tracker) push(typ scopeType) *scope {
	t.scope = newScope(t.scope, typ, t.cond)
	return t.scope
}

func (t *tracker) pop() {
	if t.scope.parent != nil {
		t.scope = t.scope.parent
	}
}

func (t *tracker) identifier(name string) lattice.Kind {
	if t.catalog.IsSourcePath(name) {
		return lattice.Tainted
	}
	if k, _, ok := t.scope.lookup(name); ok {
		return k
	}
	if t.lang == lang.JavaScript && (name == "NaN" || name == "Infinity") {
		return lattice.Number
	}
	return lattice.Unknown
}

// declare binds name in the scope a declaration keyword selects.
func (t *tracker) declare(name string, k lattice.Kind, keyword string) {
	target := t.scope
	if t.lang == lang.PHP || keyword == "var" {
		target = t.scope.function()
	}
	t.set(target, name, k)
}

// assign updates an existing binding, or creates one where the language puts implicit variables.
func (t *tracker) assign(name string, k lattice.Kind) {
	_, target, ok := t.scope.lookup(name)
	if !ok {
		if t.lang == lang.JavaScript {
			target = t.global
		} else {
			target = t.scope.function()
		}
	}
	t.set(target, name, k)
}

// set writes a binding. Writes under a branch the scope does not own may not happen,
// so they merge with the previous kind.
func (t *tracker) set(s *scope, name string, k lattice.Kind) {
	if s.depth < t.cond {
		k = lattice.Merge(s.vars[name], k)
	}
	s.vars[name] = k
}

// bindTarget writes value into a declaration or assignment target.
func (t *tracker) bindTarget(target syntax.NodeID, value lattice.Kind, keyword string) {
	if target == syntax.NoNode {
		return
	}
	n := t.tree.Node(target)
	switch n.Kind {
	case syntax.KindIdentifier:
		t.kinds[target] = value
		if keyword != "" {
			t.declare(n.Text, value, keyword)
		} else {
			t.assign(n.Text, value)
		}
	case syntax.KindPattern, syntax.KindArrayLit:
		part := lattice.Unknown
		if value == lattice.Tainted {
			part = lattice.Tainted
		}
		for _, ident := range t.tree.Identifiers(target) {
			k := t.withDefault(ident, part)
			t.kinds[ident] = k
			if keyword != "" {
				t.declare(t.tree.Node(ident).Text, k, keyword)
			} else {
				t.assign(t.tree.Node(ident).Text, k)
			}
		}
	default:
		// Member and index targets: evaluate the reads, no field tracking.
		t.eval(target)
	}
}

// withDefault merges the destructuring default of a pattern identifier into k, since
// either value may end up bound.
func (t *tracker) withDefault(ident syntax.NodeID, k lattice.Kind) lattice.Kind {
	if def := t.tree.Child(ident, 0); def != syntax.NoNode {
		return lattice.Merge(k, t.eval(def))
	}
	return k
}

// write stores the result of an update or augmented assignment without touching the
// operand's annotation, which keeps the kind read before the write.
func (t *tracker) write(target syntax.NodeID, k lattice.Kind) {
	if target == syntax.NoNode {
		return
	}
	if n := t.tree.Node(target); n.Kind == syntax.KindIdentifier {
		t.assign(n.Text, k)
	}
}

func (t *tracker) function(n *syntax.Node) {
	if n.Text != "" && t.lang == lang.JavaScript {
		t.declare(n.Text, lattice.Object, "let")
	}

	// Captured variables are read in the defining scope.
	captured := map[string]lattice.Kind{}
	if len(n.Children) > 2 {
		for _, ident := range t.tree.Node(n.Children[2]).Children {
			name := t.tree.Node(ident).Text
			captured[name] = t.identifier(name)
			t.kinds[ident] = captured[name]
		}
	}

	t.cond++
	fn := t.push(scopeFunction)
	fn.isolated = n.Op == "isolated"
	defer func() {
		t.pop()
		t.cond--
	}()

	for name, k := range captured {
		fn.vars[name] = k
	}
	for _, p := range t.tree.Node(n.Children[0]).Children {
		param := t.tree.Node(p)
		k := lattice.Unknown
		if len(param.Children) > 0 {
			k = lattice.Merge(lattice.Unknown, t.eval(param.Children[0]))
		}
		if t.opts.TaintParameters {
			k = lattice.Tainted
		}
		t.kinds[p] = k
		fn.vars[param.Text] = k
	}
	t.eval(n.Children[1])
}

func (t *tracker) forEach(n *syntax.Node) {
	iterable := t.eval(n.Children[0])
	t.cond++
	if t.lang == lang.JavaScript {
		t.push(scopeBlock)
	}
	defer func() {
		if t.lang == lang.JavaScript {
			t.pop()
		}
		t.cond--
	}()

	part := lattice.Unknown
	if iterable == lattice.Tainted {
		part = lattice.Tainted
	}
	for _, ident := range t.tree.Node(n.Children[1]).Children {
		name := t.tree.Node(ident).Text
		k := t.withDefault(ident, part)
		t.kinds[ident] = k
		if n.Op != "" {
			t.declare(name, k, n.Op)
		} else {
			t.assign(name, k)
		}
	}
	if len(n.Children) > 2 {
		t.eval(n.Children[2])
	}
}

func (t *tracker) call(id syntax.NodeID, n *syntax.Node) lattice.Kind {
	callee := n.Children[0]
	tainted := t.eval(callee) == lattice.Tainted
	if c := t.tree.Node(callee); c.Kind == syntax.KindMember && len(c.Children) > 0 && t.kinds[c.Children[0]] == lattice.Tainted {
		tainted = true
	}
	firstArg := ""
	for i, a := range n.Children[1:] {
		if t.eval(a) == lattice.Tainted {
			tainted = true
		}
		if i == 0 {
			firstArg = literalText(t.tree.Node(a))
		}
	}

	path := t.path(callee)
	if t.catalog.IsSourceCall(path, firstArg) {
		return lattice.Tainted
	}
	if known := t.catalog.Lookup(path); known != nil {
		t.callees[id] = known
		if known.Sanitizer {
			return known.Returns
		}
		if tainted {
			return lattice.Tainted
		}
		return known.Returns
	}
	// Unknown callees fail open: tainted input in means tainted output.
	if tainted {
		return lattice.Tainted
	}
	return lattice.Unknown
}

func literalText(n *syntax.Node) string {
	switch n.Kind {
	case syntax.KindString:
		return unquote(n.Text)
	case syntax.KindIdentifier, syntax.KindNumber:
		return n.Text
	}
	return ""
}

// path renders identifiers, member chains and call results as a slash-separated path
// for catalog matching. Anything else has no path.
func (t *tracker) path(id syntax.NodeID) string {
	if id == syntax.NoNode {
		return ""
	}
	n := t.tree.Node(id)
	switch n.Kind {
	case syntax.KindIdentifier:
		return strings.TrimPrefix(n.Text, "\\")
	case syntax.KindMember:
		base := t.path(t.tree.Child(id, 0))
		if base == "" || n.Text == "" {
			return ""
		}
		return base + "/" + n.Text
	case syntax.KindIndex:
		if base := t.path(t.tree.Child(id, 0)); base != "" {
			return base + "/[]"
		}
	case syntax.KindCall:
		if base := t.path(t.tree.Child(id, 0)); base != "" {
			return base + "()"
		}
	}
	return ""
}

func (t *tracker) binary(op string, l, r lattice.Kind) lattice.Kind {
	j := lattice.Join(t.lang, l, r)
	switch {
	case isComparison(op):
		if op == "<=>" && j != lattice.Tainted {
			return lattice.Number
		}
		if j == lattice.Tainted {
			return lattice.Tainted
		}
		return lattice.Boolean
	case op == "??" || (t.lang == lang.JavaScript && (op == "&&" || op == "||")):
		return lattice.Merge(l, r)
	case isLogical(op):
		if j == lattice.Tainted {
			return lattice.Tainted
		}
		return lattice.Boolean
	case t.lang == lang.PHP && op == ".":
		if j == lattice.Tainted {
			return lattice.Tainted
		}
		return lattice.String
	case t.lang == lang.JavaScript && op == "+":
		switch {
		case j == lattice.Tainted:
			return lattice.Tainted
		case l == lattice.String || r == lattice.String || j == lattice.Object:
			return lattice.String
		case j == lattice.Number || j == lattice.Boolean || j == lattice.Null:
			return lattice.Number
		}
		return j
	}
	if j == lattice.Tainted || j == lattice.Unknown {
		return j
	}
	return lattice.Number
}

func (t *tracker) unary(op string, operand lattice.Kind) lattice.Kind {
	switch op {
	case "!", "delete":
		return lattice.Boolean
	case "typeof":
		return lattice.String
	case "void":
		return lattice.Null
	case "await", "@":
		return operand
	case "+":
		if t.lang == lang.JavaScript {
			// Unary plus is the explicit numeric conversion in JavaScript.
			return lattice.Number
		}
	}
	if operand == lattice.Tainted {
		return lattice.Tainted
	}
	return lattice.Number
}

func castKind(typ string, operand lattice.Kind) lattice.Kind {
	switch typ {
	case "int", "integer", "float", "double", "real":
		return lattice.Number
	case "bool", "boolean":
		return lattice.Boolean
	case "unset":
		return lattice.Null
	}
	if operand == lattice.Tainted {
		return lattice.Tainted
	}
	switch typ {
	case "string", "binary":
		return lattice.String
	case "array", "object":
		return lattice.Object
	}
	return lattice.Unknown
}

// isComparison reports operators that compare rather than compute.
func isComparison(op string) bool {
	switch op {
	case "==", "!=", "===", "!==", "<", ">", "<=", ">=", "<>", "<=>", "instanceof", "in":
		return true
	}
	return false
}

func isLogical(op string) bool {
	switch op {
	case "&&", "||", "and", "or", "xor":
		return true
	}
	return false
}
