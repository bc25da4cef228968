package sir

import "testing"

func TestScopeResolveIsCaseInsensitive(t *testing.T) {
	root := NewRootScope()
	child := root.NewChild()
	v := &Variable{Name: "Foo"}
	if err := child.Insert("Foo", v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"Foo", "FOO", "foo", "fOo"} {
		if got := child.Resolve(name); got != v {
			t.Errorf("Resolve(%q) = %v, want %v", name, got, v)
		}
	}
}

func TestScopeResolveSearchesParentChain(t *testing.T) {
	root := NewRootScope()
	mid := root.NewChild()
	leaf := mid.NewChild()
	v := &Variable{Name: "x"}
	root.Set("x", v)
	if got := leaf.Resolve("x"); got != v {
		t.Errorf("Resolve through chain = %v, want %v", got, v)
	}
	if got := leaf.Lookup("x"); got != nil {
		t.Errorf("Lookup must not search parents, got %v", got)
	}
	if got := leaf.Resolve("y"); got != nil {
		t.Errorf("Resolve(y) = %v, want nil", got)
	}
}

func TestScopeInsertConflicts(t *testing.T) {
	root := NewRootScope()
	// Redeclaration at the root scope overwrites.
	a := &Variable{Name: "x"}
	b := &Variable{Name: "x"}
	if err := root.Insert("x", a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := root.Insert("x", b); err != nil {
		t.Fatalf("root redeclaration must be allowed: %v", err)
	}
	if got := root.Lookup("x"); got != b {
		t.Errorf("root redeclaration did not overwrite")
	}
	// Elsewhere it fails...
	child := root.NewChild()
	if err := child.Insert("y", a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := child.Insert("y", b); err == nil {
		t.Error("expected error re-declaring y in child scope")
	}
	// ...unless the prior declaration used the interactive ABI.
	if err := child.Insert("s", &Subroutine{Name: "s", Abi: AbiInteractive}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	replacement := &Subroutine{Name: "s"}
	if err := child.Insert("s", replacement); err != nil {
		t.Fatalf("interactive declaration must be shadowable: %v", err)
	}
	if got := child.Lookup("s"); got != replacement {
		t.Error("shadowing did not replace the interactive declaration")
	}
}

func TestScopeCountersAreUnique(t *testing.T) {
	root := NewRootScope()
	seen := map[int]bool{root.Counter(): true}
	scopes := []*Scope{root.NewChild(), root.NewChild()}
	scopes = append(scopes, scopes[0].NewChild())
	for _, s := range scopes {
		if seen[s.Counter()] {
			t.Errorf("counter %d assigned twice", s.Counter())
		}
		seen[s.Counter()] = true
	}
}

func TestPastExternal(t *testing.T) {
	sub := &Subroutine{Name: "s"}
	es := &ExternalSymbol{Name: "s", Target: sub}
	if got := PastExternal(es); got != Symbol(sub) {
		t.Errorf("PastExternal(es) = %v, want %v", got, sub)
	}
	if got := PastExternal(sub); got != Symbol(sub) {
		t.Errorf("PastExternal(sub) = %v, want %v", got, sub)
	}
}

func TestFamilyBaseAndPointer(t *testing.T) {
	cases := []struct {
		f    Family
		base Family
	}{
		{Integer, Integer},
		{IntegerPointer, Integer},
		{RealPointer, Real},
		{DerivedPointer, Derived},
		{Class, Derived},
		{Character, Character},
	}
	for _, tc := range cases {
		if got := tc.f.Base(); got != tc.base {
			t.Errorf("%s.Base() = %s, want %s", tc.f, got, tc.base)
		}
	}
	if !RealPointer.IsPointer() {
		t.Error("RealPointer must report pointer")
	}
	if Real.IsPointer() {
		t.Error("Real must not report pointer")
	}
	if got := Real.Pointer(); got != RealPointer {
		t.Errorf("Real.Pointer() = %s", got)
	}
}

func TestModuleAddDependencyDeduplicates(t *testing.T) {
	m := &Module{Name: "m"}
	m.AddDependency("a")
	m.AddDependency("b")
	m.AddDependency("a")
	if len(m.Dependencies) != 2 {
		t.Fatalf("Dependencies = %v, want [a b]", m.Dependencies)
	}
}

func TestArenaPointersAreStable(t *testing.T) {
	al := NewArena()
	first := al.NewConstantInteger(ConstantInteger{N: 1})
	var ptrs []*ConstantInteger
	for i := int64(0); i < 100; i++ {
		ptrs = append(ptrs, al.NewConstantInteger(ConstantInteger{N: i}))
	}
	if first.N != 1 {
		t.Errorf("first allocation clobbered: N=%d", first.N)
	}
	for i, p := range ptrs {
		if p.N != int64(i) {
			t.Errorf("allocation %d clobbered: N=%d", i, p.N)
		}
	}
}
