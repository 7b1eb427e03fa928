package intern

import (
	"fmt"
	"sync"
)

// Atom is an opaque handle for an interned string. Two atoms from the same
// Table are equal exactly when the strings they were interned from are equal.
type Atom uint32

// Symbol is an interned symbol identity. Symbols compare by pointer; the
// description is informational only.
type Symbol struct {
	description string
	registered  bool // created through Table.SymbolFor
}

// Description returns the text the symbol was created with.
func (s *Symbol) Description() string { return s.description }

// Registered reports whether the symbol lives in the global symbol registry.
func (s *Symbol) Registered() bool { return s.registered }

func (s *Symbol) String() string {
	return fmt.Sprintf("Symbol(%s)", s.description)
}

// Table interns strings into atoms and keeps the global symbol registry.
// A Table may be shared by several realms, so it is safe for concurrent use.
type Table struct {
	mu       sync.RWMutex
	atoms    map[string]Atom
	names    []string
	registry map[string]*Symbol
}

// NewTable creates an empty table. Atom 0 is reserved for the empty string.
func NewTable() *Table {
	t := &Table{
		atoms:    make(map[string]Atom),
		registry: make(map[string]*Symbol),
	}
	t.Intern("")
	return t
}

// Intern returns the atom for s, allocating one on first use.
func (t *Table) Intern(s string) Atom {
	t.mu.RLock()
	a, ok := t.atoms[s]
	t.mu.RUnlock()
	if ok {
		return a
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.atoms[s]; ok {
		return a
	}
	a = Atom(len(t.names))
	t.names = append(t.names, s)
	t.atoms[s] = a
	return a
}

// Lookup returns the atom for s without allocating one.
func (t *Table) Lookup(s string) (Atom, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.atoms[s]
	return a, ok
}

// Resolve returns the string an atom was interned from. An atom that did not
// come from this table is a runtime bug and panics.
func (t *Table) Resolve(a Atom) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(a) >= len(t.names) {
		panic(fmt.Sprintf("intern: unknown atom %d", a))
	}
	return t.names[a]
}

// Len returns the number of interned strings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}

// NewSymbol creates a fresh, unregistered symbol.
func NewSymbol(description string) *Symbol {
	return &Symbol{description: description}
}

// SymbolFor returns the registered symbol for key, creating it on first use.
// Repeated calls with the same key return the same identity.
func (t *Table) SymbolFor(key string) *Symbol {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.registry[key]; ok {
		return s
	}
	s := &Symbol{description: key, registered: true}
	t.registry[key] = s
	return s
}

// KeyFor returns the registry key of a registered symbol.
func (t *Table) KeyFor(s *Symbol) (string, bool) {
	if s == nil || !s.registered {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.registry[s.description] == s {
		return s.description, true
	}
	return "", false
}
