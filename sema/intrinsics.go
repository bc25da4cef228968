package sema

import (
	"github.com/soypat/go-fortran-sema/sir"
)

// intrinsicProcedures maps intrinsic names to the intrinsic module that
// provides them. Identifiers found here are resolved on demand by loading
// the module with the intrinsic flag set.
var intrinsicProcedures = map[string]string{
	"kind":               "lfortran_intrinsic_kind",
	"selected_int_kind":  "lfortran_intrinsic_kind",
	"selected_real_kind": "lfortran_intrinsic_kind",
	"size":               "lfortran_intrinsic_array",
	"lbound":             "lfortran_intrinsic_array",
	"ubound":             "lfortran_intrinsic_array",
	"min":                "lfortran_intrinsic_array",
	"max":                "lfortran_intrinsic_array",
	"allocated":          "lfortran_intrinsic_array",
	"minval":             "lfortran_intrinsic_array",
	"maxval":             "lfortran_intrinsic_array",
	"real":               "lfortran_intrinsic_array",
	"sum":                "lfortran_intrinsic_array",
	"abs":                "lfortran_intrinsic_array",
}

// elementalIntrinsics are generated on first reference into the global
// scope with signature (real(4)) -> real(4).
var elementalIntrinsics = map[string]bool{
	"sin": true, "cos": true, "tan": true,
	"sinh": true, "cosh": true, "tanh": true,
	"asin": true, "acos": true, "atan": true,
	"asinh": true, "acosh": true, "atanh": true,
}

// makeElementalIntrinsic synthesizes one of the hard-coded transcendental
// functions into the global scope.
func makeElementalIntrinsic(al *sir.Arena, global *sir.Scope, name string, pos int) *sir.Function {
	fnScope := global.NewChild()
	realType := al.RealType(sir.DefaultRealKind, nil)
	arg := &sir.Variable{
		Name:   "x",
		Scope:  fnScope,
		Intent: sir.IntentIn,
		Type:   realType,
		Access: sir.AccessPublic,
	}
	fnScope.Set("x", arg)
	ret := &sir.Variable{
		Name:   name,
		Scope:  fnScope,
		Intent: sir.IntentReturnVar,
		Type:   realType,
		Access: sir.AccessPublic,
	}
	fnScope.Set(name, ret)
	fn := &sir.Function{
		Name:      name,
		Scope:     fnScope,
		Args:      []sir.Expr{al.NewVar(sir.Var{NodePos: pos, Sym: arg})},
		ReturnVar: al.NewVar(sir.Var{NodePos: pos, Sym: ret}),
		Abi:       sir.AbiIntrinsic,
		Access:    sir.AccessPublic,
	}
	global.Set(name, fn)
	return fn
}

// makePresentIntrinsic synthesizes the logical intrinsic present() into
// the global scope.
func makePresentIntrinsic(al *sir.Arena, global *sir.Scope, pos int) *sir.Function {
	fnScope := global.NewChild()
	ret := &sir.Variable{
		Name:   "present",
		Scope:  fnScope,
		Intent: sir.IntentReturnVar,
		Type:   al.LogicalType(nil),
		Access: sir.AccessPublic,
	}
	fnScope.Set("present", ret)
	fn := &sir.Function{
		Name:      "present",
		Scope:     fnScope,
		ReturnVar: al.NewVar(sir.Var{NodePos: pos, Sym: ret}),
		Abi:       sir.AbiSource,
		Access:    sir.AccessPublic,
	}
	global.Set("present", fn)
	return fn
}
