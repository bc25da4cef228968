package sema

import (
	"github.com/soypat/go-fortran-sema/ast"
	"github.com/soypat/go-fortran-sema/sir"
)

// Shared lowering of binary, comparison, boolean, unary and string
// operators, used by both passes.

var binOpTable = map[ast.BinOpKind]sir.BinOpType{
	ast.Add: sir.OpAdd,
	ast.Sub: sir.OpSub,
	ast.Mul: sir.OpMul,
	ast.Div: sir.OpDiv,
	ast.Pow: sir.OpPow,
}

var cmpOpTable = map[ast.CmpOpKind]sir.CmpOpType{
	ast.Eq:    sir.OpEq,
	ast.NotEq: sir.OpNotEq,
	ast.Lt:    sir.OpLt,
	ast.LtE:   sir.OpLtE,
	ast.Gt:    sir.OpGt,
	ast.GtE:   sir.OpGtE,
}

var boolOpTable = map[ast.BoolOpKind]sir.BoolOpType{
	ast.And:  sir.OpAnd,
	ast.Or:   sir.OpOr,
	ast.Eqv:  sir.OpEqv,
	ast.NEqv: sir.OpNEqv,
}

var unaryOpTable = map[ast.UnaryOpKind]sir.UnaryOpType{
	ast.UAdd:   sir.OpUAdd,
	ast.USub:   sir.OpUSub,
	ast.Not:    sir.OpNot,
	ast.Invert: sir.OpInvert,
}

func lowerBinOp(al *sir.Arena, x *ast.BinOp, left, right sir.Expr) (sir.Expr, error) {
	op, ok := binOpTable[x.Op]
	if !ok {
		return nil, errf(UnsupportedConstruct, x.Pos(), "binary operator not supported")
	}
	left, right, destType, err := harmonize(al, x.Pos(), left, right)
	if err != nil {
		return nil, err
	}
	value := foldIntegerBinOp(al, x.Pos(), op, left, right, destType)
	return al.NewBinOp(sir.BinOp{
		NodePos: x.Pos(),
		Left:    left,
		Op:      op,
		Right:   right,
		Type:    destType,
		Value:   value,
	}), nil
}

// foldIntegerBinOp computes the constant result when both operands folded
// to integer constants and the destination is integer. Non-integer
// folding is not performed.
func foldIntegerBinOp(al *sir.Arena, pos int, op sir.BinOpType, left, right sir.Expr, destType *sir.Type) sir.Expr {
	if destType.Family.Base() != sir.Integer {
		return nil
	}
	lv, lok := sir.ExprValue(left).(*sir.ConstantInteger)
	rv, rok := sir.ExprValue(right).(*sir.ConstantInteger)
	if !lok || !rok {
		return nil
	}
	var result int64
	switch op {
	case sir.OpAdd:
		result = lv.N + rv.N
	case sir.OpSub:
		result = lv.N - rv.N
	case sir.OpMul:
		result = lv.N * rv.N
	case sir.OpDiv:
		if rv.N == 0 {
			return nil
		}
		result = lv.N / rv.N
	case sir.OpPow:
		result = ipow(lv.N, rv.N)
	default:
		return nil
	}
	return al.NewConstantInteger(sir.ConstantInteger{NodePos: pos, N: result, Type: destType})
}

func ipow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for ; exp > 0; exp >>= 1 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
	}
	return result
}

func lowerCompare(al *sir.Arena, x *ast.Compare, left, right sir.Expr) (sir.Expr, error) {
	leftBase := left.Typ().Family.Base()
	rightBase := right.Typ().Family.Base()
	numericLeft := leftBase == sir.Integer || leftBase == sir.Real
	numericRight := rightBase == sir.Integer || rightBase == sir.Real
	complexEq := leftBase == sir.Complex && rightBase == sir.Complex &&
		(x.Op == ast.Eq || x.Op == ast.NotEq)
	if !numericLeft && !numericRight && !complexEq {
		return nil, errf(TypeMismatch, x.Pos(),
			"compare: only Integer or Real can be on the LHS and RHS; Complex is acceptable for .eq. and .neq.")
	}
	left, right, _, err := harmonize(al, x.Pos(), left, right)
	if err != nil {
		return nil, err
	}
	op, ok := cmpOpTable[x.Op]
	if !ok {
		return nil, errf(UnsupportedConstruct, x.Pos(), "comparison operator not supported")
	}
	return al.NewCompare(sir.Compare{
		NodePos: x.Pos(),
		Left:    left,
		Op:      op,
		Right:   right,
		Type:    al.LogicalType(nil),
	}), nil
}

func lowerBoolOp(al *sir.Arena, x *ast.BoolOp, left, right sir.Expr) (sir.Expr, error) {
	op, ok := boolOpTable[x.Op]
	if !ok {
		return nil, errf(UnsupportedConstruct, x.Pos(), "logical operator not supported")
	}
	left, right, destType, err := harmonize(al, x.Pos(), left, right)
	if err != nil {
		return nil, err
	}
	return al.NewBoolOp(sir.BoolOp{
		NodePos: x.Pos(),
		Left:    left,
		Op:      op,
		Right:   right,
		Type:    destType,
	}), nil
}

func lowerUnaryOp(al *sir.Arena, x *ast.UnaryOp, operand sir.Expr) (sir.Expr, error) {
	op, ok := unaryOpTable[x.Op]
	if !ok {
		return nil, errf(UnsupportedConstruct, x.Pos(), "unary operator not supported")
	}
	return al.NewUnaryOp(sir.UnaryOp{
		NodePos: x.Pos(),
		Op:      op,
		Operand: operand,
		Type:    operand.Typ(),
	}), nil
}

func lowerStrOp(al *sir.Arena, x *ast.StrOp, left, right sir.Expr) (sir.Expr, error) {
	return al.NewStrOp(sir.StrOp{
		NodePos: x.Pos(),
		Left:    left,
		Right:   right,
		Type:    right.Typ(),
	}), nil
}
