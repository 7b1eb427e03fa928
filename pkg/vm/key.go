package vm

import (
	"fmt"

	"objmodel/pkg/intern"
)

type KeyKind uint8

const (
	KeyKindString KeyKind = iota
	KeyKindSymbol
)

// PropertyKey addresses a property: an interned string or a symbol.
// Keys of different kinds never compare equal.
type PropertyKey struct {
	kind KeyKind
	atom intern.Atom    // for string keys
	sym  *intern.Symbol // for symbol keys
}

// NewStringKey constructs a PropertyKey for a string-named property.
func NewStringKey(atom intern.Atom) PropertyKey {
	return PropertyKey{kind: KeyKindString, atom: atom}
}

// NewSymbolKey constructs a PropertyKey for a symbol-named property.
func NewSymbolKey(sym *intern.Symbol) PropertyKey {
	if sym == nil {
		panic("vm: symbol key without symbol")
	}
	return PropertyKey{kind: KeyKindSymbol, sym: sym}
}

// KeyFromValue turns a string or symbol value into a key. Other values need
// ToPropertyKey coercion, which belongs to the evaluator.
func KeyFromValue(atoms *intern.Table, v Value) (PropertyKey, bool) {
	switch v.Type() {
	case TypeString:
		return NewStringKey(atoms.Intern(v.AsString())), true
	case TypeSymbol:
		return NewSymbolKey(v.AsSymbol()), true
	default:
		return PropertyKey{}, false
	}
}

func (k PropertyKey) Kind() KeyKind { return k.kind }

func (k PropertyKey) IsString() bool { return k.kind == KeyKindString }
func (k PropertyKey) IsSymbol() bool { return k.kind == KeyKindSymbol }

// Atom returns the interned name of a string key.
func (k PropertyKey) Atom() intern.Atom {
	if k.kind != KeyKindString {
		panic("vm: Atom called on symbol key")
	}
	return k.atom
}

// Symbol returns the identity of a symbol key.
func (k PropertyKey) Symbol() *intern.Symbol {
	if k.kind != KeyKindSymbol {
		panic("vm: Symbol called on string key")
	}
	return k.sym
}

func (k PropertyKey) Equal(other PropertyKey) bool {
	if k.kind != other.kind {
		return false
	}
	if k.kind == KeyKindString {
		return k.atom == other.atom
	}
	return k.sym == other.sym
}

// ToValue converts the key back into a language value.
func (k PropertyKey) ToValue(atoms *intern.Table) Value {
	if k.kind == KeyKindSymbol {
		return NewSymbolValue(k.sym)
	}
	return NewString(atoms.Resolve(k.atom))
}

// DisplayName resolves the key for messages.
func (k PropertyKey) DisplayName(atoms *intern.Table) string {
	if k.kind == KeyKindSymbol {
		return k.sym.String()
	}
	return atoms.Resolve(k.atom)
}

func (k PropertyKey) String() string {
	switch k.kind {
	case KeyKindString:
		return fmt.Sprintf("atom#%d", k.atom)
	case KeyKindSymbol:
		return k.sym.String()
	default:
		return "<unknown-key>"
	}
}
