/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package syntax

import "github.com/fulmenhq/convguard/internal/lang"

// NodeID indexes Tree.Nodes. A parent owns its children by id; nodes never point back up.
type NodeID int32

// NoNode marks an absent optional child.
const NoNode NodeID = -1

// Kind is the normalized node tag shared by every grammar.
type Kind uint8

const (
	KindOther Kind = iota
	KindProgram
	KindBlock
	// KindDeclaration is one declarator: Children[0] target, optional Children[1] value, Text holds var/let/const.
	KindDeclaration
	KindAssign
	KindAugAssign
	KindBinary
	KindUnary
	KindUpdate
	// KindCall: Children[0] callee, then arguments.
	KindCall
	KindNew
	// KindMember: Children[0] object, Text property name, Op accessor.
	KindMember
	// KindIndex: Children[0] object, optional Children[1] index.
	KindIndex
	// KindIdentifier: inside a KindPattern, optional Children[0] is the destructuring default.
	KindIdentifier
	KindString
	KindNumber
	KindBoolean
	KindNull
	KindObjectLit
	KindArrayLit
	// KindTemplate holds the interpolated expressions of a template or interpolated string.
	KindTemplate
	// KindCast: Text is the lower-case target type.
	KindCast
	// KindFunction: Children[0] KindParams, Children[1] body, optional Children[2] KindUses. Op is "closure" or "isolated".
	KindFunction
	KindParams
	// KindParam: Text is the parameter name, optional Children[0] default value.
	KindParam
	KindUses
	// KindPattern groups the identifiers bound by a destructuring target.
	KindPattern
	// KindConditional: Children[0] condition, remaining children are alternative values.
	KindConditional
	// KindBranch: Children[0] runs unconditionally, the rest may not run.
	KindBranch
	// KindForEach: Children[0] iterable, Children[1] KindPattern of loop variables, Children[2] body.
	KindForEach
	KindEcho
)

var kindNames = map[Kind]string{
	KindOther:       "other",
	KindProgram:     "program",
	KindBlock:       "block",
	KindDeclaration: "declaration",
	KindAssign:      "assign",
	KindAugAssign:   "augmented-assign",
	KindBinary:      "binary",
	KindUnary:       "unary",
	KindUpdate:      "update",
	KindCall:        "call",
	KindNew:         "new",
	KindMember:      "member",
	KindIndex:       "index",
	KindIdentifier:  "identifier",
	KindString:      "string",
	KindNumber:      "number",
	KindBoolean:     "boolean",
	KindNull:        "null",
	KindObjectLit:   "object",
	KindArrayLit:    "array",
	KindTemplate:    "template",
	KindCast:        "cast",
	KindFunction:    "function",
	KindParams:      "params",
	KindParam:       "param",
	KindUses:        "uses",
	KindPattern:     "pattern",
	KindConditional: "conditional",
	KindBranch:      "branch",
	KindForEach:     "foreach",
	KindEcho:        "echo",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// Span is a 1-based source range. Columns count bytes.
type Span struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Node is one arena entry.
type Node struct {
	Kind     Kind
	Op       string
	Text     string
	Children []NodeID
	Span     Span
}

// Tree is the arena-indexed syntax tree of one source unit.
type Tree struct {
	Language lang.Language
	Nodes    []Node
	Root     NodeID
}

// Node returns the node for id. id must come from this tree.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Child returns the i-th child of id, or NoNode.
func (t *Tree) Child(id NodeID, i int) NodeID {
	n := &t.Nodes[id]
	if i < 0 || i >= len(n.Children) {
		return NoNode
	}
	return n.Children[i]
}

func (t *Tree) add(n Node) NodeID {
	t.Nodes = append(t.Nodes, n)
	return NodeID(len(t.Nodes) - 1)
}

// PostOrder visits every node below and including id, children first.
func (t *Tree) PostOrder(id NodeID, visit func(NodeID)) {
	if id == NoNode {
		return
	}
	for _, c := range t.Nodes[id].Children {
		t.PostOrder(c, visit)
	}
	visit(id)
}

// Identifiers returns the identifier nodes below id in source order.
func (t *Tree) Identifiers(id NodeID) []NodeID {
	var out []NodeID
	var walk func(NodeID)
	walk = func(n NodeID) {
		if n == NoNode {
			return
		}
		if t.Nodes[n].Kind == KindIdentifier {
			out = append(out, n)
			return
		}
		for _, c := range t.Nodes[n].Children {
			walk(c)
		}
	}
	walk(id)
	return out
}
