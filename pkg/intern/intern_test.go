package intern

import (
	"sync"
	"testing"
)

func TestInternIdentity(t *testing.T) {
	tab := NewTable()
	a := tab.Intern("x")
	b := tab.Intern("x")
	c := tab.Intern("y")
	if a != b {
		t.Errorf("expected same atom for repeated Intern, got %d and %d", a, b)
	}
	if a == c {
		t.Errorf("expected distinct atoms for x and y")
	}
	if got := tab.Resolve(c); got != "y" {
		t.Errorf("Resolve(%d) = %q, want %q", c, got, "y")
	}
	if got := tab.Resolve(0); got != "" {
		t.Errorf("atom 0 should be the empty string, got %q", got)
	}
}

func TestLookupDoesNotAllocate(t *testing.T) {
	tab := NewTable()
	before := tab.Len()
	if _, ok := tab.Lookup("missing"); ok {
		t.Fatalf("Lookup found a string that was never interned")
	}
	if tab.Len() != before {
		t.Errorf("Lookup changed table size from %d to %d", before, tab.Len())
	}
}

func TestResolveUnknownAtomPanics(t *testing.T) {
	tab := NewTable()
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for unknown atom")
		}
	}()
	tab.Resolve(Atom(999))
}

func TestSymbols(t *testing.T) {
	tab := NewTable()
	s1 := NewSymbol("tag")
	s2 := NewSymbol("tag")
	if s1 == s2 {
		t.Errorf("fresh symbols with the same description must be distinct")
	}
	if _, ok := tab.KeyFor(s1); ok {
		t.Errorf("unregistered symbol should have no registry key")
	}

	r1 := tab.SymbolFor("app.id")
	r2 := tab.SymbolFor("app.id")
	if r1 != r2 {
		t.Errorf("SymbolFor should return the same identity for the same key")
	}
	if key, ok := tab.KeyFor(r1); !ok || key != "app.id" {
		t.Errorf("KeyFor = (%q, %v), want (app.id, true)", key, ok)
	}
	if r1.String() != "Symbol(app.id)" {
		t.Errorf("unexpected String(): %s", r1.String())
	}
}

func TestInternConcurrent(t *testing.T) {
	tab := NewTable()
	var wg sync.WaitGroup
	atoms := make([]Atom, 16)
	for i := range atoms {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			atoms[i] = tab.Intern("shared")
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(atoms); i++ {
		if atoms[i] != atoms[0] {
			t.Fatalf("concurrent Intern produced different atoms: %v", atoms)
		}
	}
}
