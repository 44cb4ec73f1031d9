/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package lattice

import "github.com/fulmenhq/convguard/internal/lang"

// Kind is the coarse value kind tracked for every expression.
type Kind uint8

const (
	Unknown Kind = iota
	String
	Number
	Boolean
	Object
	Null
	// Tainted marks values derived from user-controlled input. It absorbs every other kind.
	Tainted
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case Object:
		return "object"
	case Null:
		return "null"
	case Tainted:
		return "tainted-external"
	default:
		return "unknown"
	}
}

// Known reports whether k carries information a rule can act on.
func (k Kind) Known() bool { return k != Unknown }

// Join combines operand kinds of a binary operation under the language's coercion rules.
//
// join(Tainted, x) = Tainted; join(x, x) = x; join(Unknown, x) = Unknown.
// Mixed kinds coerce the way the runtime does for "+": JavaScript turns any string or
// object operand into string concatenation, PHP coerces toward numbers.
func Join(l lang.Language, a, b Kind) Kind {
	switch {
	case a == Tainted || b == Tainted:
		return Tainted
	case a == b:
		return a
	case a == Unknown || b == Unknown:
		return Unknown
	}
	if l == lang.PHP {
		if a == Object || b == Object {
			return Unknown
		}
		return Number
	}
	if a == String || b == String || a == Object || b == Object {
		return String
	}
	return Number
}

// Merge combines the kinds a binding holds on two control-flow paths.
// Taint on either path survives; disagreeing kinds become Unknown.
func Merge(a, b Kind) Kind {
	switch {
	case a == Tainted || b == Tainted:
		return Tainted
	case a == b:
		return a
	default:
		return Unknown
	}
}
