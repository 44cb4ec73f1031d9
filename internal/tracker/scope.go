/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package tracker

import "github.com/fulmenhq/convguard/internal/lattice"

type scopeType int

const (
	scopeGlobal scopeType = iota
	scopeFunction
	scopeBlock
)

// scope is one lexical level of bindings.
type scope struct {
	typ    scopeType
	parent *scope
	vars   map[string]lattice.Kind
	// isolated scopes hide their parents (PHP functions see no outer variables).
	isolated bool
	// depth is the conditional nesting level at which the scope was opened.
	depth int
}

func newScope(parent *scope, typ scopeType, depth int) *scope {
	return &scope{typ: typ, parent: parent, vars: make(map[string]lattice.Kind), depth: depth}
}

// lookup finds name in s or a visible ancestor.
func (s *scope) lookup(name string) (lattice.Kind, *scope, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if k, ok := cur.vars[name]; ok {
			return k, cur, true
		}
		if cur.isolated {
			break
		}
	}
	return lattice.Unknown, nil, false
}

// function returns the nearest function or global scope, the target of var hoisting.
func (s *scope) function() *scope {
	cur := s
	for cur.typ == scopeBlock && cur.parent != nil {
		cur = cur.parent
	}
	return cur
}
