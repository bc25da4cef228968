package loader

import (
	"testing"

	"github.com/soypat/go-fortran-sema/sema"
	"github.com/soypat/go-fortran-sema/sir"
)

func TestRegistryMemoizesLoads(t *testing.T) {
	al := sir.NewArena()
	reg := NewRegistry(al, nil)
	root := sir.NewRootScope()
	first, err := reg.Load(root, "lfortran_intrinsic_array", 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := reg.Load(root, "lfortran_intrinsic_array", 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("repeated loads must return the same Module symbol")
	}
	if !first.Intrinsic {
		t.Error("intrinsic module must be flagged intrinsic")
	}
}

func TestRegistryIntrinsicModuleContents(t *testing.T) {
	al := sir.NewArena()
	reg := NewRegistry(al, nil)
	root := sir.NewRootScope()

	kindMod, err := reg.Load(root, "lfortran_intrinsic_kind", 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"kind", "selected_int_kind", "selected_real_kind"} {
		fn, ok := kindMod.Scope.Lookup(name).(*sir.Function)
		if !ok {
			t.Fatalf("%s missing from kind module", name)
		}
		if got := sir.SymbolType(fn); got.Family != sir.Integer {
			t.Errorf("%s: return family = %s, want Integer", name, got.Family)
		}
	}

	arrMod, err := reg.Load(root, "lfortran_intrinsic_array", 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	alloc, ok := arrMod.Scope.Lookup("allocated").(*sir.Function)
	if !ok {
		t.Fatal("allocated missing from array module")
	}
	if got := sir.SymbolType(alloc); got.Family != sir.Logical {
		t.Errorf("allocated: return family = %s, want Logical", got.Family)
	}
}

func TestRegistryUnknownModule(t *testing.T) {
	reg := NewRegistry(sir.NewArena(), nil)
	root := sir.NewRootScope()
	_, err := reg.Load(root, "missing", 3, false)
	if err == nil {
		t.Fatal("expected error for unknown module")
	}
	serr, ok := err.(*sema.Error)
	if !ok {
		t.Fatalf("error type = %T, want *sema.Error", err)
	}
	if serr.Kind != sema.SymbolNotFound {
		t.Errorf("kind = %s, want SymbolNotFound", serr.Kind)
	}
	if serr.Pos != 3 {
		t.Errorf("pos = %d, want 3", serr.Pos)
	}
}

func TestRegistryRegisterAndLoad(t *testing.T) {
	al := sir.NewArena()
	reg := NewRegistry(al, nil)
	root := sir.NewRootScope()
	m := &sir.Module{Name: "physics", Scope: root.NewChild()}
	reg.Register(m)
	got, err := reg.Load(root, "physics", 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != m {
		t.Error("registered module must be returned by Load")
	}
}
