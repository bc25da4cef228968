package sema_test

import (
	"testing"

	"github.com/soypat/go-fortran-sema/ast"
	"github.com/soypat/go-fortran-sema/loader"
	"github.com/soypat/go-fortran-sema/sema"
	"github.com/soypat/go-fortran-sema/sir"
	"github.com/soypat/go-fortran-sema/token"
)

// On-demand intrinsic resolution: allocated(a) inside a module procedure
// loads lfortran_intrinsic_array, binds a private ExternalSymbol in the
// referencing scope and records the module dependency.
func TestIntrinsicModuleLoadOnDemand(t *testing.T) {
	al := sir.NewArena()
	reg := loader.NewRegistry(al, nil)
	unit, err := sema.Analyze(al, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Module{
				Name: "m",
				Contains: []ast.ProgramUnit{
					&ast.Subroutine{
						Name: "check",
						Decls: []ast.Statement{
							&ast.Declaration{
								Type: &ast.AttrType{Token: token.INTEGER},
								Attributes: []ast.DeclAttribute{
									&ast.SimpleAttribute{Attr: token.ALLOCATABLE},
								},
								Syms: []ast.VarSym{{
									Name: "a",
									Dims: []ast.Dim{{End: &ast.Num{Lit: "10"}}},
								}},
							},
							&ast.Declaration{
								Type: &ast.AttrType{Token: token.LOGICAL},
								Syms: []ast.VarSym{{Name: "ok"}},
							},
						},
						Body: []ast.Statement{
							&ast.Assignment{
								Target: &ast.Name{ID: "ok"},
								Value: &ast.FuncCallOrArray{
									Name: "allocated",
									Args: []ast.FnArg{{Stop: &ast.Name{ID: "a"}}},
								},
							},
						},
					},
				},
			},
		},
	}, nil, reg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mod := unit.Global.Lookup("m").(*sir.Module)
	sub := mod.Scope.Lookup("check").(*sir.Subroutine)
	es, ok := sub.Scope.Lookup("allocated").(*sir.ExternalSymbol)
	if !ok {
		t.Fatalf("allocated = %T, want *sir.ExternalSymbol in the referencing scope", sub.Scope.Lookup("allocated"))
	}
	if es.ModuleName != "lfortran_intrinsic_array" {
		t.Errorf("external module = %s, want lfortran_intrinsic_array", es.ModuleName)
	}
	if es.Access != sir.AccessPrivate {
		t.Errorf("external access = %v, want Private", es.Access)
	}
	found := false
	for _, d := range mod.Dependencies {
		if d == "lfortran_intrinsic_array" {
			found = true
		}
	}
	if !found {
		t.Errorf("module dependencies = %v, want lfortran_intrinsic_array recorded", mod.Dependencies)
	}
	// The lowered call carries the intrinsic's logical return type.
	assign := sub.Body[0].(*sir.Assignment)
	call, ok := assign.Value.(*sir.FunctionCall)
	if !ok {
		t.Fatalf("value = %T, want *sir.FunctionCall", assign.Value)
	}
	if call.Typ().Family != sir.Logical {
		t.Errorf("call type = %s, want Logical", call.Typ().Family)
	}
}

// Analyzing module and consumer in separate translation units through a
// shared registry: the consumer resolves the registered module.
func TestCrossUnitModuleResolution(t *testing.T) {
	al := sir.NewArena()
	reg := loader.NewRegistry(al, nil)

	libUnit, err := sema.Analyze(al, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Module{
				Name: "mathlib",
				Contains: []ast.ProgramUnit{
					&ast.Subroutine{
						Name: "accumulate",
						Args: []string{"x"},
						Decls: []ast.Statement{
							&ast.Declaration{
								Type: &ast.AttrType{Token: token.REAL},
								Attributes: []ast.DeclAttribute{
									&ast.AttrIntent{Intent: ast.In},
								},
								Syms: []ast.VarSym{{Name: "x"}},
							},
						},
					},
				},
			},
		},
	}, nil, reg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reg.Register(libUnit.Global.Lookup("mathlib").(*sir.Module))

	appUnit, err := sema.Analyze(al, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name: "app",
				Uses: []*ast.Use{{Module: "mathlib"}},
				Body: []ast.Statement{
					&ast.SubroutineCall{
						Name: "accumulate",
						Args: []ast.Expression{&ast.RealLit{Lit: "1.5"}},
					},
				},
			},
		},
	}, nil, reg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prog := appUnit.Global.Lookup("app").(*sir.Program)
	if len(prog.Dependencies) != 1 || prog.Dependencies[0] != "mathlib" {
		t.Errorf("dependencies = %v, want [mathlib]", prog.Dependencies)
	}
	call := prog.Body[0].(*sir.SubroutineCall)
	es, ok := call.Sym.(*sir.ExternalSymbol)
	if !ok {
		t.Fatalf("call target = %T, want *sir.ExternalSymbol", call.Sym)
	}
	if es.ModuleName != "mathlib" {
		t.Errorf("external module = %s, want mathlib", es.ModuleName)
	}
}
