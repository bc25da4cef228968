package main

import (
	"github.com/soypat/go-fortran-sema/ast"
	"github.com/soypat/go-fortran-sema/token"
)

// samples holds small hand-built ASTs exercising the analyzer, keyed by
// name. They stand in for parser output.
var samples = map[string]*ast.TranslationUnit{
	"fold": {
		// program p; integer :: i; i = 2 + 3; end program
		Items: []ast.ProgramUnit{
			&ast.Program{
				Name: "p",
				Decls: []ast.Statement{
					&ast.Declaration{
						Type: &ast.AttrType{Token: token.INTEGER},
						Syms: []ast.VarSym{{Name: "i"}},
					},
				},
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
	},
	"cast": {
		// program p; real :: r; r = 2 + 3.0; end program
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
	},
	"use": {
		// module m with subroutine s(x), then program p using it.
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
				Uses: []*ast.Use{{Module: "m"}},
				Body: []ast.Statement{
					&ast.SubroutineCall{
						Name: "s",
						Args: []ast.Expression{&ast.Num{Lit: "1"}},
					},
				},
			},
		},
	},
	"alloc": {
		// program with an allocatable array, an allocate statement and the
		// synthesized implicit deallocation.
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
				Body: []ast.Statement{
					&ast.Allocate{
						Args: []ast.Expression{
							&ast.FuncCallOrArray{
								Name: "a",
								Args: []ast.FnArg{{Stop: &ast.Num{Lit: "5"}}},
							},
						},
					},
				},
			},
		},
	},
}
