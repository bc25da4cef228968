package sema

import (
	"github.com/soypat/go-fortran-sema/sir"
)

// Implicit numeric coercion. The rule table maps (source family mod 6,
// destination family) to an action: no cast, a specific cast kind, or an
// error. Pointer variants share their plain counterpart's row.

const (
	defaultCase = -1 // no conversion needed
	errorCase   = -2 // conversion is illegal
)

const numDestFamilies = 2 * sir.NumPlainFamilies

// ruleMap rows are indexed by the source base family, columns by the full
// destination family (plain then pointer).
var ruleMap = [sir.NumPlainFamilies][numDestFamilies]int{
	sir.Integer: {
		int(sir.IntegerToInteger), int(sir.IntegerToReal), int(sir.IntegerToComplex), errorCase, int(sir.IntegerToLogical), errorCase,
		int(sir.IntegerToInteger), int(sir.IntegerToReal), int(sir.IntegerToComplex), errorCase, int(sir.IntegerToLogical), errorCase,
	},
	sir.Real: {
		int(sir.RealToInteger), int(sir.RealToReal), int(sir.RealToComplex), defaultCase, defaultCase, defaultCase,
		int(sir.RealToInteger), int(sir.RealToReal), int(sir.RealToComplex), defaultCase, defaultCase, defaultCase,
	},
	sir.Complex: {
		defaultCase, defaultCase, int(sir.ComplexToComplex), defaultCase, defaultCase, defaultCase,
		defaultCase, defaultCase, int(sir.ComplexToComplex), defaultCase, defaultCase, defaultCase,
	},
	sir.Character: {
		defaultCase, defaultCase, defaultCase, defaultCase, defaultCase, defaultCase,
		defaultCase, defaultCase, defaultCase, defaultCase, defaultCase, defaultCase,
	},
	sir.Logical: {
		defaultCase, defaultCase, defaultCase, defaultCase, defaultCase, defaultCase,
		defaultCase, defaultCase, defaultCase, defaultCase, defaultCase, defaultCase,
	},
	sir.Derived: {
		defaultCase, defaultCase, defaultCase, defaultCase, defaultCase, defaultCase,
		defaultCase, defaultCase, defaultCase, defaultCase, defaultCase, defaultCase,
	},
}

// typePriority decides which operand of a mixed operation is the cast
// candidate. A family without a priority becomes the destination only
// when the other operand has no priority either (the right operand then).
var typePriority = [sir.NumPlainFamilies]int{
	sir.Integer:   4,
	sir.Real:      5,
	sir.Complex:   6,
	sir.Character: -1,
	sir.Logical:   -1,
	sir.Derived:   -1,
}

var coercionTargets = [sir.NumPlainFamilies]string{
	sir.Integer:   "Integer",
	sir.Real:      "Integer or Real",
	sir.Complex:   "Integer, Real or Complex",
	sir.Character: "Character",
	sir.Logical:   "Integer or Logical",
	sir.Derived:   "Derived",
}

func destColumn(f sir.Family) int {
	if f == sir.Class {
		return int(sir.DerivedPointer) // Class coerces like a derived pointer target
	}
	return int(f)
}

// convertValue inserts an ImplicitCast wrapping e when converting from
// source to dest requires one. Same-family conversions (including
// plain/pointer pairs) with equal kinds need no cast; the pointer side is
// treated as the source before kinds are compared.
func convertValue(al *sir.Arena, pos int, e sir.Expr, source, dest *sir.Type) (sir.Expr, error) {
	if sir.SameFamily(source, dest) {
		// Compare kinds with the pointer side as source; the swap is
		// local to this check so the rule lookup below still sees the
		// real destination.
		srcKind, dstKind := source, dest
		if !srcKind.Family.IsPointer() && dstKind.Family.IsPointer() {
			srcKind, dstKind = dstKind, srcKind
		}
		if srcKind.Kind == dstKind.Kind {
			return e, nil
		}
	}
	action := ruleMap[source.Family.Base()][destColumn(dest.Family)]
	switch action {
	case errorCase:
		return nil, errf(IllegalCoercion, pos, "only %s can be assigned to %s",
			coercionTargets[dest.Family.Base()], dest.Family)
	case defaultCase:
		return e, nil
	}
	return al.NewImplicitCast(sir.ImplicitCast{
		NodePos: pos,
		Arg:     e,
		Kind:    sir.CastKind(action),
		Type:    dest,
	}), nil
}

// conversionCandidate picks which operand of a binary operation is cast,
// by family priority. Ties keep the right operand as destination and cast
// the left.
func conversionCandidate(left, right sir.Expr) (candIsRight bool, source, dest *sir.Type) {
	leftType := left.Typ()
	rightType := right.Typ()
	leftP := typePriority[leftType.Family.Base()]
	rightP := typePriority[rightType.Family.Base()]
	if leftP > rightP {
		return true, rightType, leftType
	}
	return false, leftType, rightType
}

// harmonize casts whichever of left/right the priority rules select so
// that both operands share a type, returning the new operands and the
// operation's result type.
func harmonize(al *sir.Arena, pos int, left, right sir.Expr) (sir.Expr, sir.Expr, *sir.Type, error) {
	candIsRight, source, dest := conversionCandidate(left, right)
	if candIsRight {
		converted, err := convertValue(al, pos, right, source, dest)
		if err != nil {
			return nil, nil, nil, err
		}
		return left, converted, dest, nil
	}
	converted, err := convertValue(al, pos, left, source, dest)
	if err != nil {
		return nil, nil, nil, err
	}
	return converted, right, dest, nil
}
