package sema

import (
	"testing"

	"github.com/soypat/go-fortran-sema/ast"
	"github.com/soypat/go-fortran-sema/sir"
	"github.com/soypat/go-fortran-sema/token"
)

// program p; integer :: i; i = 2 + 3 produces a folded constant 5 and no
// cast node.
func TestLowerFoldedIntegerAddition(t *testing.T) {
	unit := analyze(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name:  "p",
				Decls: []ast.Statement{intDecl("i")},
				Body: []ast.Statement{
					&ast.Assignment{
						Target: &ast.Name{ID: "i"},
						Value: &ast.BinOp{
							Left:  &ast.Num{Lit: "2"},
							Op:    ast.Add,
							Right: &ast.Num{Lit: "3"},
						},
					},
				},
			},
		},
	})
	prog := unit.Global.Lookup("p").(*sir.Program)
	if len(prog.Body) != 1 {
		t.Fatalf("body statements = %d, want 1", len(prog.Body))
	}
	assign := prog.Body[0].(*sir.Assignment)
	binop, ok := assign.Value.(*sir.BinOp)
	if !ok {
		t.Fatalf("RHS = %T, want *sir.BinOp", assign.Value)
	}
	if _, isCast := binop.Left.(*sir.ImplicitCast); isCast {
		t.Error("no cast may be inserted between equal integer operands")
	}
	if _, isCast := binop.Right.(*sir.ImplicitCast); isCast {
		t.Error("no cast may be inserted between equal integer operands")
	}
	folded, ok := binop.Value.(*sir.ConstantInteger)
	if !ok {
		t.Fatalf("folded value = %T, want *sir.ConstantInteger", binop.Value)
	}
	if folded.N != 5 {
		t.Errorf("folded value = %d, want 5", folded.N)
	}
}

func TestIntegerFoldingOperators(t *testing.T) {
	cases := []struct {
		op   ast.BinOpKind
		l, r string
		want int64
	}{
		{ast.Add, "2", "3", 5},
		{ast.Sub, "10", "4", 6},
		{ast.Mul, "6", "7", 42},
		{ast.Div, "9", "2", 4},
		{ast.Pow, "2", "10", 1024},
	}
	for _, tc := range cases {
		unit := analyze(t, &ast.TranslationUnit{
			Items: []ast.ProgramUnit{
				&ast.Program{
					Name:  "p",
					Decls: []ast.Statement{intDecl("i")},
					Body: []ast.Statement{
						&ast.Assignment{
							Target: &ast.Name{ID: "i"},
							Value: &ast.BinOp{
								Left:  &ast.Num{Lit: tc.l},
								Op:    tc.op,
								Right: &ast.Num{Lit: tc.r},
							},
						},
					},
				},
			},
		})
		assign := unit.Global.Lookup("p").(*sir.Program).Body[0].(*sir.Assignment)
		folded := assign.Value.(*sir.BinOp).Value.(*sir.ConstantInteger)
		if folded.N != tc.want {
			t.Errorf("op %v: folded = %d, want %d", tc.op, folded.N, tc.want)
		}
	}
}

// program p; real :: r; r = 2 + 3.0 wraps the integer operand in
// ImplicitCast(IntegerToReal); the result type is Real.
func TestLowerMixedAdditionCastsInteger(t *testing.T) {
	unit := analyze(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name: "p",
				Decls: []ast.Statement{
					&ast.Declaration{
						Type: &ast.AttrType{Token: token.REAL},
						Syms: []ast.VarSym{{Name: "r"}},
					},
				},
				Body: []ast.Statement{
					&ast.Assignment{
						Target: &ast.Name{ID: "r"},
						Value: &ast.BinOp{
							Left:  &ast.Num{Lit: "2"},
							Op:    ast.Add,
							Right: &ast.RealLit{Lit: "3.0"},
						},
					},
				},
			},
		},
	})
	assign := unit.Global.Lookup("p").(*sir.Program).Body[0].(*sir.Assignment)
	binop := assign.Value.(*sir.BinOp)
	cast, ok := binop.Left.(*sir.ImplicitCast)
	if !ok {
		t.Fatalf("left operand = %T, want *sir.ImplicitCast", binop.Left)
	}
	if cast.Kind != sir.IntegerToReal {
		t.Errorf("cast kind = %s, want IntegerToReal", cast.Kind)
	}
	if binop.Typ().Family != sir.Real {
		t.Errorf("result family = %s, want Real", binop.Typ().Family)
	}
	if binop.Value != nil {
		t.Error("non-integer operations must not fold")
	}
	if binop.Left.Typ().Family != binop.Right.Typ().Family {
		t.Error("operand families must be equal after cast insertion")
	}
}

// real :: a; integer :: i; a = i wraps the RHS in
// ImplicitCast(IntegerToReal).
func TestLowerAssignmentInsertsCast(t *testing.T) {
	unit := analyze(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name: "p",
				Decls: []ast.Statement{
					&ast.Declaration{
						Type: &ast.AttrType{Token: token.REAL},
						Syms: []ast.VarSym{{Name: "a"}},
					},
					intDecl("i"),
				},
				Body: []ast.Statement{
					&ast.Assignment{
						Target: &ast.Name{ID: "a"},
						Value:  &ast.Name{ID: "i"},
					},
				},
			},
		},
	})
	assign := unit.Global.Lookup("p").(*sir.Program).Body[0].(*sir.Assignment)
	cast, ok := assign.Value.(*sir.ImplicitCast)
	if !ok {
		t.Fatalf("RHS = %T, want *sir.ImplicitCast", assign.Value)
	}
	if cast.Kind != sir.IntegerToReal {
		t.Errorf("cast kind = %s, want IntegerToReal", cast.Kind)
	}
}

// character :: c; integer :: i; c = i is rejected with IllegalCoercion.
func TestLowerAssignmentIllegalCoercion(t *testing.T) {
	serr := analyzeErr(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name: "p",
				Decls: []ast.Statement{
					&ast.Declaration{
						Type: &ast.AttrType{Token: token.CHARACTER},
						Syms: []ast.VarSym{{Name: "c"}},
					},
					intDecl("i"),
				},
				Body: []ast.Statement{
					&ast.Assignment{
						Target: &ast.Name{ID: "c"},
						Value:  &ast.Name{ID: "i"},
					},
				},
			},
		},
	})
	if serr.Kind != IllegalCoercion {
		t.Errorf("kind = %s, want IllegalCoercion", serr.Kind)
	}
}

func TestLowerAssignmentTargetValidation(t *testing.T) {
	serr := analyzeErr(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name:  "p",
				Decls: []ast.Statement{intDecl("i")},
				Body: []ast.Statement{
					&ast.Assignment{
						Target: &ast.Num{Lit: "1"},
						Value:  &ast.Name{ID: "i"},
					},
				},
			},
		},
	})
	if serr.Kind != InvalidAssignmentTarget {
		t.Errorf("kind = %s, want InvalidAssignmentTarget", serr.Kind)
	}
}

func allocatableArrayProgram(body ...ast.Statement) *ast.TranslationUnit {
	return &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name: "p",
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
				},
				Body: body,
			},
		},
	}
}

// allocate(a(5)); deallocate(a) lowers both statements and appends an
// ImplicitDeallocate over a after the user statements.
func TestLowerAllocateDeallocate(t *testing.T) {
	unit := analyze(t, allocatableArrayProgram(
		&ast.Allocate{
			Args: []ast.Expression{
				&ast.FuncCallOrArray{
					Name: "a",
					Args: []ast.FnArg{{Stop: &ast.Num{Lit: "5"}}},
				},
			},
		},
		&ast.Deallocate{Args: []ast.Expression{&ast.Name{ID: "a"}}},
	))
	body := unit.Global.Lookup("p").(*sir.Program).Body
	if len(body) != 3 {
		t.Fatalf("body statements = %d, want allocate + deallocate + implicit deallocate", len(body))
	}
	alloc := body[0].(*sir.Allocate)
	if len(alloc.Args) != 1 {
		t.Fatalf("allocate args = %d, want 1", len(alloc.Args))
	}
	dims := alloc.Args[0].Dims
	if len(dims) != 1 {
		t.Fatalf("allocate dims = %d, want 1", len(dims))
	}
	start, ok := dims[0].Start.(*sir.ConstantInteger)
	if !ok || start.N != 1 {
		t.Error("absent lower bound must default to 1")
	}
	if _, ok := body[1].(*sir.ExplicitDeallocate); !ok {
		t.Errorf("body[1] = %T, want *sir.ExplicitDeallocate", body[1])
	}
	impl, ok := body[2].(*sir.ImplicitDeallocate)
	if !ok {
		t.Fatalf("body[2] = %T, want *sir.ImplicitDeallocate", body[2])
	}
	if len(impl.Syms) != 1 || impl.Syms[0].SymName() != "a" {
		t.Errorf("implicit deallocate symbols = %v", impl.Syms)
	}
}

func TestLowerDeallocateNonAllocatableFails(t *testing.T) {
	serr := analyzeErr(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name:  "p",
				Decls: []ast.Statement{intDecl("i")},
				Body: []ast.Statement{
					&ast.Deallocate{Args: []ast.Expression{&ast.Name{ID: "i"}}},
				},
			},
		},
	})
	if serr.Kind != TypeMismatch {
		t.Errorf("kind = %s, want TypeMismatch", serr.Kind)
	}
}

func TestLowerAllocateRejectsUnknownKeyword(t *testing.T) {
	serr := analyzeErr(t, allocatableArrayProgram(
		&ast.Allocate{
			Args: []ast.Expression{
				&ast.FuncCallOrArray{
					Name: "a",
					Args: []ast.FnArg{{Stop: &ast.Num{Lit: "5"}}},
				},
			},
			KwArgs: []ast.Keyword{{Name: "errmsg", Value: &ast.Num{Lit: "1"}}},
		},
	))
	if serr.Kind != InvalidKeywordArgument {
		t.Errorf("kind = %s, want InvalidKeywordArgument", serr.Kind)
	}
}

// use m followed by call s(1): the call target resolves through an
// ExternalSymbol in the caller's scope and m appears exactly once in the
// dependency list.
func TestLowerUseModuleAndCall(t *testing.T) {
	unit := analyze(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Module{
				Name: "m",
				Contains: []ast.ProgramUnit{
					&ast.Subroutine{
						Name: "s",
						Args: []string{"x"},
						Decls: []ast.Statement{
							&ast.Declaration{
								Type: &ast.AttrType{Token: token.INTEGER},
								Attributes: []ast.DeclAttribute{
									&ast.AttrIntent{Intent: ast.In},
								},
								Syms: []ast.VarSym{{Name: "x"}},
							},
						},
					},
				},
			},
			&ast.Program{
				Name: "p",
				Uses: []*ast.Use{{Module: "m"}, {Module: "m"}},
				Body: []ast.Statement{
					&ast.SubroutineCall{
						Name: "s",
						Args: []ast.Expression{&ast.Num{Lit: "1"}},
					},
				},
			},
		},
	})
	prog := unit.Global.Lookup("p").(*sir.Program)
	if len(prog.Dependencies) != 1 || prog.Dependencies[0] != "m" {
		t.Errorf("dependencies = %v, want [m]", prog.Dependencies)
	}
	es, ok := prog.Scope.Lookup("s").(*sir.ExternalSymbol)
	if !ok {
		t.Fatalf("imported s = %T, want *sir.ExternalSymbol", prog.Scope.Lookup("s"))
	}
	if _, ok := es.Target.(*sir.Subroutine); !ok {
		t.Errorf("external target = %T, want *sir.Subroutine", es.Target)
	}
	call := prog.Body[0].(*sir.SubroutineCall)
	if call.Sym != sir.Symbol(es) {
		t.Error("call must resolve through the caller's ExternalSymbol")
	}
}

func TestLowerUseOnlyWithRename(t *testing.T) {
	unit := analyze(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Module{
				Name: "m",
				Contains: []ast.ProgramUnit{
					&ast.Subroutine{Name: "impl"},
					&ast.Subroutine{Name: "other"},
				},
			},
			&ast.Program{
				Name: "p",
				Uses: []*ast.Use{{
					Module: "m",
					Only:   []ast.UseRename{{Local: "s", Remote: "impl"}},
				}},
				Body: []ast.Statement{
					&ast.SubroutineCall{Name: "s"},
				},
			},
		},
	})
	prog := unit.Global.Lookup("p").(*sir.Program)
	es, ok := prog.Scope.Lookup("s").(*sir.ExternalSymbol)
	if !ok {
		t.Fatal("renamed import s not found")
	}
	if es.OriginalName != "impl" || es.ModuleName != "m" {
		t.Errorf("external = %s::%s, want m::impl", es.ModuleName, es.OriginalName)
	}
	if prog.Scope.Lookup("other") != nil {
		t.Error("only-list import must not import unlisted symbols")
	}
	if prog.Scope.Lookup("impl") != nil {
		t.Error("renamed import must not bind the remote name")
	}
}

// A re-exported ExternalSymbol is re-packed so no ExternalSymbol chains.
func TestLowerUseRepacksExternals(t *testing.T) {
	unit := analyze(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Module{
				Name: "base",
				Contains: []ast.ProgramUnit{
					&ast.Subroutine{Name: "s"},
				},
			},
			&ast.Module{
				Name: "wrapper",
				Uses: []*ast.Use{{Module: "base"}},
			},
			&ast.Program{
				Name: "p",
				Uses: []*ast.Use{{
					Module: "wrapper",
					Only:   []ast.UseRename{{Local: "s", Remote: "s"}},
				}},
			},
		},
	})
	prog := unit.Global.Lookup("p").(*sir.Program)
	es := prog.Scope.Lookup("s").(*sir.ExternalSymbol)
	if _, chained := es.Target.(*sir.ExternalSymbol); chained {
		t.Fatal("imported ExternalSymbol must not chain")
	}
	if es.ModuleName != "base" || es.OriginalName != "s" {
		t.Errorf("re-packed external = %s::%s, want base::s", es.ModuleName, es.OriginalName)
	}
}

func TestLowerUseOfNonModuleFails(t *testing.T) {
	serr := analyzeErr(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Subroutine{Name: "m"},
			&ast.Program{
				Name: "p",
				Uses: []*ast.Use{{Module: "m"}},
			},
		},
	})
	if serr.Kind != NotAModule {
		t.Errorf("kind = %s, want NotAModule", serr.Kind)
	}
}

func TestLowerControlFlow(t *testing.T) {
	unit := analyze(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name:  "p",
				Decls: []ast.Statement{intDecl("i", "n")},
				Body: []ast.Statement{
					&ast.If{
						Test: &ast.Compare{
							Left:  &ast.Name{ID: "i"},
							Op:    ast.Lt,
							Right: &ast.Num{Lit: "10"},
						},
						Body: []ast.Statement{
							&ast.Assignment{Target: &ast.Name{ID: "i"}, Value: &ast.Num{Lit: "0"}},
						},
						Else: []ast.Statement{
							&ast.Continue{},
						},
					},
					&ast.DoLoop{
						Var:   "i",
						Start: &ast.Num{Lit: "1"},
						Stop:  &ast.Name{ID: "n"},
						Body: []ast.Statement{
							&ast.Exit{},
							&ast.Cycle{},
						},
					},
					&ast.WhileLoop{
						Test: &ast.Compare{
							Left:  &ast.Name{ID: "i"},
							Op:    ast.Gt,
							Right: &ast.Num{Lit: "0"},
						},
					},
					&ast.Stop{},
				},
			},
		},
	})
	body := unit.Global.Lookup("p").(*sir.Program).Body
	if len(body) != 4 {
		t.Fatalf("body statements = %d, want 4", len(body))
	}
	ifStmt := body[0].(*sir.If)
	if ifStmt.Test.Typ().Family != sir.Logical {
		t.Errorf("if test family = %s, want Logical", ifStmt.Test.Typ().Family)
	}
	if len(ifStmt.Else) != 0 {
		t.Errorf("continue must lower to nothing, else = %d", len(ifStmt.Else))
	}
	do := body[1].(*sir.DoLoop)
	if len(do.Body) != 2 {
		t.Errorf("do body = %d, want exit + cycle", len(do.Body))
	}
	if do.Head.Increment != nil {
		t.Error("absent increment must stay nil")
	}
}

func TestLowerSelectCase(t *testing.T) {
	unit := analyze(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name:  "p",
				Decls: []ast.Statement{intDecl("i")},
				Body: []ast.Statement{
					&ast.Select{
						Test: &ast.Name{ID: "i"},
						Blocks: []ast.CaseBlock{
							&ast.CaseStmt{Tests: []ast.Expression{&ast.Num{Lit: "1"}, &ast.Num{Lit: "2"}}},
							&ast.CaseRange{Start: &ast.Num{Lit: "3"}, Stop: &ast.Num{Lit: "9"}},
							&ast.CaseDefault{},
						},
					},
				},
			},
		},
	})
	sel := unit.Global.Lookup("p").(*sir.Program).Body[0].(*sir.Select)
	if len(sel.Cases) != 2 {
		t.Fatalf("cases = %d, want 2", len(sel.Cases))
	}
	if _, ok := sel.Cases[0].(*sir.CaseStmt); !ok {
		t.Errorf("case 0 = %T, want *sir.CaseStmt", sel.Cases[0])
	}
	if _, ok := sel.Cases[1].(*sir.CaseRange); !ok {
		t.Errorf("case 1 = %T, want *sir.CaseRange", sel.Cases[1])
	}
	if sel.Default == nil {
		t.Error("default block not recorded")
	}
}

func TestLowerSelectCaseRejectsNonInteger(t *testing.T) {
	serr := analyzeErr(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name: "p",
				Decls: []ast.Statement{
					&ast.Declaration{
						Type: &ast.AttrType{Token: token.REAL},
						Syms: []ast.VarSym{{Name: "r"}},
					},
				},
				Body: []ast.Statement{
					&ast.Select{Test: &ast.Name{ID: "r"}},
				},
			},
		},
	})
	if serr.Kind != TypeMismatch {
		t.Errorf("kind = %s, want TypeMismatch", serr.Kind)
	}
}

func TestLowerSelectCaseDuplicateDefault(t *testing.T) {
	serr := analyzeErr(t, &ast.TranslationUnit{
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name:  "p",
				Decls: []ast.Statement{intDecl("i")},
				Body: []ast.Statement{
					&ast.Select{
						Test: &ast.Name{ID: "i"},
						Blocks: []ast.CaseBlock{
							&ast.CaseDefault{},
							&ast.CaseDefault{},
						},
					},
				},
			},
		},
	})
	if serr.Kind != DuplicateArgument {
		t.Errorf("kind = %s, want DuplicateArgument", serr.Kind)
	}
}

func TestAnalyzeTwiceIsStructurallyEquivalent(t *testing.T) {
	mk := func() *ast.TranslationUnit {
		return &ast.TranslationUnit{
			Items: []ast.ProgramUnit{
				&ast.Program{
					Name:  "p",
					Decls: []ast.Statement{intDecl("i")},
					Body: []ast.Statement{
						&ast.Assignment{
							Target: &ast.Name{ID: "i"},
							Value: &ast.BinOp{
								Left:  &ast.Num{Lit: "2"},
								Op:    ast.Add,
								Right: &ast.Num{Lit: "3"},
							},
						},
					},
				},
			},
		}
	}
	first := analyze(t, mk())
	second := analyze(t, mk())
	if got, want := sir.Pickle(first), sir.Pickle(second); got != want {
		t.Errorf("analyzing the same AST twice differs:\n%s\n---\n%s", got, want)
	}
}
