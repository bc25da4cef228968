package sema

import (
	"strings"

	"go.uber.org/zap"

	"github.com/soypat/go-fortran-sema/ast"
	"github.com/soypat/go-fortran-sema/sir"
)

// bodyVisitor is Pass 2: it re-enters every program-unit scope built by
// the collector and lowers executable statements and expressions into
// typed SIR nodes.
type bodyVisitor struct {
	al     *sir.Arena
	unit   *sir.TranslationUnit
	scope  *sir.Scope
	module *sir.Module
	loader ModuleLoader
	log    *zap.Logger
}

func (b *bodyVisitor) translationUnit(tu *ast.TranslationUnit) error {
	b.scope = b.unit.Global
	for _, item := range tu.Items {
		if err := b.programUnit(item); err != nil {
			return err
		}
		switch u := item.(type) {
		case *ast.Subroutine:
			b.unit.Items = append(b.unit.Items, b.scope.Lookup(u.Name))
		case *ast.Function:
			b.unit.Items = append(b.unit.Items, b.scope.Lookup(u.Name))
		}
	}
	return nil
}

func (b *bodyVisitor) programUnit(unit ast.ProgramUnit) error {
	switch u := unit.(type) {
	case *ast.Module:
		return b.moduleBody(u)
	case *ast.Program:
		return b.programBody(u)
	case *ast.Subroutine:
		return b.subroutineBody(u)
	case *ast.Function:
		return b.functionBody(u)
	case *ast.DerivedType:
		return nil // components were fully handled in Pass 1
	}
	return errf(UnsupportedConstruct, unit.Pos(), "program unit not supported")
}

func (b *bodyVisitor) moduleBody(x *ast.Module) error {
	mod, ok := b.scope.Lookup(x.Name).(*sir.Module)
	if !ok {
		return errf(SymbolNotFound, x.Pos(), "module %s not collected", x.Name)
	}
	oldScope, oldModule := b.scope, b.module
	b.scope, b.module = mod.Scope, mod
	b.unit.Items = append(b.unit.Items, mod)
	for _, contained := range x.Contains {
		if err := b.programUnit(contained); err != nil {
			return err
		}
	}
	b.scope, b.module = oldScope, oldModule
	return nil
}

func (b *bodyVisitor) programBody(x *ast.Program) error {
	prog, ok := b.scope.Lookup(x.Name).(*sir.Program)
	if !ok {
		return errf(SymbolNotFound, x.Pos(), "program %s not collected", x.Name)
	}
	oldScope := b.scope
	b.scope = prog.Scope
	b.unit.Items = append(b.unit.Items, prog)
	body, err := b.lowerBody(x.Body, x.Pos())
	if err != nil {
		return err
	}
	prog.Body = body
	for _, contained := range x.Contains {
		if err := b.programUnit(contained); err != nil {
			return err
		}
	}
	b.scope = oldScope
	return nil
}

func (b *bodyVisitor) subroutineBody(x *ast.Subroutine) error {
	sub, ok := b.scope.Lookup(x.Name).(*sir.Subroutine)
	if !ok {
		return errf(SymbolNotFound, x.Pos(), "subroutine %s not collected", x.Name)
	}
	oldScope := b.scope
	b.scope = sub.Scope
	body, err := b.lowerBody(x.Body, x.Pos())
	if err != nil {
		return err
	}
	sub.Body = body
	for _, contained := range x.Contains {
		if err := b.programUnit(contained); err != nil {
			return err
		}
	}
	b.scope = oldScope
	return nil
}

func (b *bodyVisitor) functionBody(x *ast.Function) error {
	fn, ok := b.scope.Lookup(x.Name).(*sir.Function)
	if !ok {
		return errf(SymbolNotFound, x.Pos(), "function %s not collected", x.Name)
	}
	oldScope := b.scope
	b.scope = fn.Scope
	body, err := b.lowerBody(x.Body, x.Pos())
	if err != nil {
		return err
	}
	fn.Body = body
	for _, contained := range x.Contains {
		if err := b.programUnit(contained); err != nil {
			return err
		}
	}
	b.scope = oldScope
	return nil
}

// lowerBody lowers a statement list. Before each subroutine call that
// passes an allocatable to an intent(out) dummy an ImplicitDeallocate is
// prepended, and after the user statements one is appended for every
// allocatable local of the scope.
func (b *bodyVisitor) lowerBody(stmts []ast.Statement, pos int) ([]sir.Stmt, error) {
	var body []sir.Stmt
	for _, s := range stmts {
		st, err := b.stmt(s)
		if err != nil {
			return nil, err
		}
		if st == nil {
			continue
		}
		if call, ok := st.(*sir.SubroutineCall); ok {
			if dealloc := b.implicitDeallocateForCall(call); dealloc != nil {
				body = append(body, dealloc)
			}
		}
		body = append(body, st)
	}
	if dealloc := b.implicitDeallocateForScope(pos); dealloc != nil {
		body = append(body, dealloc)
	}
	return body, nil
}

// implicitDeallocateForScope collects the allocatable locals of the
// current scope into one ImplicitDeallocate, or nil if there are none.
func (b *bodyVisitor) implicitDeallocateForScope(pos int) sir.Stmt {
	var syms []sir.Symbol
	for _, name := range b.scope.Names() {
		v, ok := b.scope.Lookup(name).(*sir.Variable)
		if !ok {
			continue
		}
		if v.Storage == sir.StorageAllocatable && v.Intent == sir.IntentLocal {
			syms = append(syms, v)
		}
	}
	if len(syms) == 0 {
		return nil
	}
	return &sir.ImplicitDeallocate{NodePos: pos, Syms: syms}
}

// implicitDeallocateForCall lists each allocatable actual whose dummy has
// intent(out), or nil.
func (b *bodyVisitor) implicitDeallocateForCall(call *sir.SubroutineCall) sir.Stmt {
	sub, ok := sir.PastExternal(call.Sym).(*sir.Subroutine)
	if !ok {
		return nil
	}
	var syms []sir.Symbol
	for i, arg := range call.Args {
		if i >= len(sub.Args) {
			break
		}
		actual, ok := arg.(*sir.Var)
		if !ok {
			continue
		}
		v, ok := sir.PastExternal(actual.Sym).(*sir.Variable)
		if !ok {
			continue
		}
		formal, ok := sub.Args[i].(*sir.Var)
		if !ok {
			continue
		}
		fv, ok := sir.PastExternal(formal.Sym).(*sir.Variable)
		if !ok {
			continue
		}
		if v.Storage == sir.StorageAllocatable && fv.Intent == sir.IntentOut {
			syms = append(syms, actual.Sym)
		}
	}
	if len(syms) == 0 {
		return nil
	}
	return &sir.ImplicitDeallocate{NodePos: call.NodePos, Syms: syms}
}

func (b *bodyVisitor) stmt(s ast.Statement) (sir.Stmt, error) {
	switch x := s.(type) {
	case *ast.Declaration, *ast.Interface, *ast.Use, *ast.DerivedType:
		return nil, nil // handled by Pass 1
	case *ast.Continue:
		return nil, nil
	case *ast.Assignment:
		return b.assignment(x)
	case *ast.Associate:
		return b.associate(x)
	case *ast.Allocate:
		return b.allocate(x)
	case *ast.Deallocate:
		return b.deallocate(x)
	case *ast.Open:
		return b.open(x)
	case *ast.Close:
		return b.closeStmt(x)
	case *ast.Read:
		unit, fmt, iomsg, iostat, id, values, err := b.readWrite(x.Args, x.KwArgs, x.Values, x.Pos())
		if err != nil {
			return nil, err
		}
		return &sir.Read{NodePos: x.Pos(), Label: x.Label, Unit: unit, Fmt: fmt,
			IOMsg: iomsg, IOStat: iostat, ID: id, Values: values}, nil
	case *ast.Write:
		unit, fmt, iomsg, iostat, id, values, err := b.readWrite(x.Args, x.KwArgs, x.Values, x.Pos())
		if err != nil {
			return nil, err
		}
		return &sir.Write{NodePos: x.Pos(), Label: x.Label, Unit: unit, Fmt: fmt,
			IOMsg: iomsg, IOStat: iostat, ID: id, Values: values}, nil
	case *ast.Print:
		values, err := b.exprList(x.Values)
		if err != nil {
			return nil, err
		}
		return &sir.Print{NodePos: x.Pos(), Values: values}, nil
	case *ast.If:
		return b.ifStmt(x)
	case *ast.WhileLoop:
		test, err := b.expr(x.Test)
		if err != nil {
			return nil, err
		}
		body, err := b.stmtList(x.Body)
		if err != nil {
			return nil, err
		}
		return &sir.WhileLoop{NodePos: x.Pos(), Test: test, Body: body}, nil
	case *ast.DoLoop:
		return b.doLoop(x)
	case *ast.DoConcurrentLoop:
		return b.doConcurrent(x)
	case *ast.Select:
		return b.selectStmt(x)
	case *ast.Exit:
		return &sir.Exit{NodePos: x.Pos()}, nil
	case *ast.Cycle:
		return &sir.Cycle{NodePos: x.Pos()}, nil
	case *ast.Return:
		return &sir.Return{NodePos: x.Pos()}, nil
	case *ast.Stop:
		code, err := b.optExpr(x.Code)
		if err != nil {
			return nil, err
		}
		return &sir.Stop{NodePos: x.Pos(), Code: code}, nil
	case *ast.ErrorStop:
		code, err := b.optExpr(x.Code)
		if err != nil {
			return nil, err
		}
		return &sir.ErrorStop{NodePos: x.Pos(), Code: code}, nil
	case *ast.SubroutineCall:
		return b.subroutineCall(x)
	}
	return nil, errf(UnsupportedConstruct, s.Pos(), "statement not supported")
}

func (b *bodyVisitor) assignment(x *ast.Assignment) (sir.Stmt, error) {
	target, err := b.expr(x.Target)
	if err != nil {
		return nil, err
	}
	switch target.(type) {
	case *sir.Var, *sir.ArrayRef, *sir.DerivedRef:
	default:
		return nil, errf(InvalidAssignmentTarget, x.Pos(),
			"the LHS of assignment can only be a variable or an array reference")
	}
	value, err := b.expr(x.Value)
	if err != nil {
		return nil, err
	}
	targetType := target.Typ()
	if v, ok := target.(*sir.Var); ok && !targetType.IsArray() {
		if _, isArray := value.(*sir.ConstantArray); isArray {
			return nil, errf(TypeMismatch, x.Pos(),
				"array initializer can only be assigned to an array, not %s", v.Sym.SymName())
		}
	}
	switch target.(type) {
	case *sir.Var, *sir.ArrayRef, *sir.DerivedRef:
		value, err = convertValue(b.al, x.Pos(), value, value.Typ(), targetType)
		if err != nil {
			return nil, err
		}
	}
	return &sir.Assignment{NodePos: x.Pos(), Target: target, Value: value}, nil
}

func (b *bodyVisitor) associate(x *ast.Associate) (sir.Stmt, error) {
	target, err := b.expr(x.Target)
	if err != nil {
		return nil, err
	}
	value, err := b.expr(x.Value)
	if err != nil {
		return nil, err
	}
	targetType := target.Typ()
	valueType := value.Typ()
	if !targetType.Family.IsPointer() || valueType.Family.IsPointer() {
		return nil, errf(TypeMismatch, x.Pos(),
			"only a pointer variable can be associated with a non-pointer variable")
	}
	if !sir.SameFamily(targetType, valueType) {
		return nil, errf(TypeMismatch, x.Pos(), "cannot associate %s with %s",
			targetType.Family, valueType.Family)
	}
	return &sir.Associate{NodePos: x.Pos(), Target: target, Value: value}, nil
}

func (b *bodyVisitor) allocate(x *ast.Allocate) (sir.Stmt, error) {
	one := b.al.NewConstantInteger(sir.ConstantInteger{
		NodePos: x.Pos(), N: 1, Type: b.al.IntegerType(sir.DefaultIntegerKind, nil),
	})
	args := make([]sir.AllocArg, 0, len(x.Args))
	for _, a := range x.Args {
		e, err := b.expr(a)
		if err != nil {
			return nil, err
		}
		ref, ok := e.(*sir.ArrayRef)
		if !ok {
			return nil, errf(TypeMismatch, a.Pos(), "allocate argument must be an array reference")
		}
		dims := make([]sir.Dimension, 0, len(ref.Indices))
		for _, idx := range ref.Indices {
			dim := sir.Dimension{Start: idx.Left, Stop: idx.Right}
			if dim.Start == nil {
				dim.Start = one
			}
			dims = append(dims, dim)
		}
		args = append(args, sir.AllocArg{Sym: ref.Sym, Dims: dims})
	}
	var stat sir.Expr
	for _, kw := range x.KwArgs {
		if strings.ToLower(kw.Name) != "stat" {
			return nil, errf(InvalidKeywordArgument, x.Pos(),
				"allocate statement only accepts the stat keyword argument")
		}
		if stat != nil {
			return nil, errf(DuplicateArgument, x.Pos(), "duplicate stat argument")
		}
		var err error
		stat, err = b.expr(kw.Value)
		if err != nil {
			return nil, err
		}
	}
	return &sir.Allocate{NodePos: x.Pos(), Args: args, Stat: stat}, nil
}

func (b *bodyVisitor) deallocate(x *ast.Deallocate) (sir.Stmt, error) {
	syms := make([]sir.Symbol, 0, len(x.Args))
	for _, a := range x.Args {
		e, err := b.expr(a)
		if err != nil {
			return nil, err
		}
		ref, ok := e.(*sir.Var)
		if !ok {
			return nil, errf(TypeMismatch, a.Pos(),
				"only an allocatable variable symbol can be deallocated")
		}
		v, ok := sir.PastExternal(ref.Sym).(*sir.Variable)
		if !ok || v.Storage != sir.StorageAllocatable {
			return nil, errf(TypeMismatch, a.Pos(),
				"only an allocatable variable symbol can be deallocated")
		}
		syms = append(syms, ref.Sym)
	}
	return &sir.ExplicitDeallocate{NodePos: x.Pos(), Syms: syms}, nil
}

// kwSlot tracks one keyword argument of an I/O statement during
// validation.
type kwSlot struct {
	expr sir.Expr
	set  bool
}

func (b *bodyVisitor) kwExpr(slot *kwSlot, name string, kw ast.Keyword, pos int) (sir.Expr, error) {
	if slot.set {
		return nil, errf(DuplicateArgument, pos,
			"duplicate value of %s: already specified via argument or keyword arguments", name)
	}
	e, err := b.expr(kw.Value)
	if err != nil {
		return nil, err
	}
	slot.expr = e
	slot.set = true
	return e, nil
}

func isIntegerTyped(e sir.Expr) bool   { return e.Typ().Family.Base() == sir.Integer }
func isCharacterTyped(e sir.Expr) bool { return e.Typ().Family.Base() == sir.Character }

func isVariableRef(e sir.Expr) bool {
	_, ok := e.(*sir.Var)
	return ok
}

func (b *bodyVisitor) open(x *ast.Open) (sir.Stmt, error) {
	var unit, file, status kwSlot
	if len(x.Args) > 1 {
		return nil, errf(DuplicateArgument, x.Pos(), "open accepts at most one positional argument")
	}
	if len(x.Args) == 1 {
		e, err := b.expr(x.Args[0])
		if err != nil {
			return nil, err
		}
		unit.expr, unit.set = e, true
	}
	for _, kw := range x.KwArgs {
		switch strings.ToLower(kw.Name) {
		case "newunit", "unit":
			e, err := b.kwExpr(&unit, "unit", kw, x.Pos())
			if err != nil {
				return nil, err
			}
			if strings.ToLower(kw.Name) == "newunit" && !isVariableRef(e) {
				return nil, errf(TypeMismatch, x.Pos(), "newunit must be a variable")
			}
			if !isIntegerTyped(e) {
				return nil, errf(TypeMismatch, x.Pos(), "unit must be integer-typed")
			}
		case "file":
			e, err := b.kwExpr(&file, "file", kw, x.Pos())
			if err != nil {
				return nil, err
			}
			if !isCharacterTyped(e) {
				return nil, errf(TypeMismatch, x.Pos(), "file must be character-typed")
			}
		case "status":
			e, err := b.kwExpr(&status, "status", kw, x.Pos())
			if err != nil {
				return nil, err
			}
			if !isCharacterTyped(e) {
				return nil, errf(TypeMismatch, x.Pos(), "status must be character-typed")
			}
		default:
			return nil, errf(InvalidKeywordArgument, x.Pos(), "open does not accept keyword %s", kw.Name)
		}
	}
	if !unit.set {
		return nil, errf(MissingRequiredArgument, x.Pos(),
			"newunit or unit must be specified either in argument or keyword arguments")
	}
	return &sir.Open{NodePos: x.Pos(), Label: x.Label, Unit: unit.expr,
		File: file.expr, Status: status.expr}, nil
}

func (b *bodyVisitor) closeStmt(x *ast.Close) (sir.Stmt, error) {
	var unit, iostat, iomsg, errSlot, status kwSlot
	if len(x.Args) > 1 {
		return nil, errf(DuplicateArgument, x.Pos(), "close accepts at most one positional argument")
	}
	if len(x.Args) == 1 {
		e, err := b.expr(x.Args[0])
		if err != nil {
			return nil, err
		}
		unit.expr, unit.set = e, true
	}
	for _, kw := range x.KwArgs {
		switch strings.ToLower(kw.Name) {
		case "unit":
			e, err := b.kwExpr(&unit, "unit", kw, x.Pos())
			if err != nil {
				return nil, err
			}
			if !isIntegerTyped(e) {
				return nil, errf(TypeMismatch, x.Pos(), "unit must be integer-typed")
			}
		case "iostat":
			e, err := b.kwExpr(&iostat, "iostat", kw, x.Pos())
			if err != nil {
				return nil, err
			}
			if !isVariableRef(e) || !isIntegerTyped(e) {
				return nil, errf(TypeMismatch, x.Pos(), "iostat must be an integer variable")
			}
		case "iomsg":
			e, err := b.kwExpr(&iomsg, "iomsg", kw, x.Pos())
			if err != nil {
				return nil, err
			}
			if !isVariableRef(e) || !isCharacterTyped(e) {
				return nil, errf(TypeMismatch, x.Pos(), "iomsg must be a character variable")
			}
		case "status":
			e, err := b.kwExpr(&status, "status", kw, x.Pos())
			if err != nil {
				return nil, err
			}
			if !isCharacterTyped(e) {
				return nil, errf(TypeMismatch, x.Pos(), "status must be character-typed")
			}
		case "err":
			if errSlot.set {
				return nil, errf(DuplicateArgument, x.Pos(), "duplicate value of err")
			}
			if _, ok := kw.Value.(*ast.Num); !ok {
				return nil, errf(TypeMismatch, x.Pos(), "err must be a literal integer")
			}
			e, err := b.expr(kw.Value)
			if err != nil {
				return nil, err
			}
			errSlot.expr, errSlot.set = e, true
		default:
			return nil, errf(InvalidKeywordArgument, x.Pos(), "close does not accept keyword %s", kw.Name)
		}
	}
	if !unit.set {
		return nil, errf(MissingRequiredArgument, x.Pos(),
			"unit must be specified either in argument or keyword arguments")
	}
	return &sir.Close{NodePos: x.Pos(), Label: x.Label, Unit: unit.expr, IOStat: iostat.expr,
		IOMsg: iomsg.expr, Err: errSlot.expr, Status: status.expr}, nil
}

// readWrite validates the shared READ/WRITE argument protocol: up to two
// positional arguments (unit, format), then keyword arguments.
func (b *bodyVisitor) readWrite(args []ast.Expression, kwargs []ast.Keyword, values []ast.Expression, pos int) (unitE, fmtE, iomsgE, iostatE, idE sir.Expr, valuesE []sir.Expr, err error) {
	var unit, format, iomsg, iostat, id kwSlot
	if len(args) > 2 {
		return nil, nil, nil, nil, nil, nil,
			errf(DuplicateArgument, pos, "read/write accept at most two positional arguments")
	}
	slots := []*kwSlot{&unit, &format}
	for i, a := range args {
		if a == nil {
			continue
		}
		e, lerr := b.expr(a)
		if lerr != nil {
			return nil, nil, nil, nil, nil, nil, lerr
		}
		slots[i].expr, slots[i].set = e, true
	}
	for _, kw := range kwargs {
		switch strings.ToLower(kw.Name) {
		case "unit":
			e, kerr := b.kwExpr(&unit, "unit", kw, pos)
			if kerr != nil {
				return nil, nil, nil, nil, nil, nil, kerr
			}
			if !isIntegerTyped(e) {
				return nil, nil, nil, nil, nil, nil, errf(TypeMismatch, pos, "unit must be integer-typed")
			}
		case "fmt":
			if _, kerr := b.kwExpr(&format, "fmt", kw, pos); kerr != nil {
				return nil, nil, nil, nil, nil, nil, kerr
			}
		case "iostat":
			e, kerr := b.kwExpr(&iostat, "iostat", kw, pos)
			if kerr != nil {
				return nil, nil, nil, nil, nil, nil, kerr
			}
			if !isVariableRef(e) || !isIntegerTyped(e) {
				return nil, nil, nil, nil, nil, nil, errf(TypeMismatch, pos, "iostat must be an integer variable")
			}
		case "iomsg":
			e, kerr := b.kwExpr(&iomsg, "iomsg", kw, pos)
			if kerr != nil {
				return nil, nil, nil, nil, nil, nil, kerr
			}
			if !isVariableRef(e) || !isCharacterTyped(e) {
				return nil, nil, nil, nil, nil, nil, errf(TypeMismatch, pos, "iomsg must be a character variable")
			}
		case "id":
			e, kerr := b.kwExpr(&id, "id", kw, pos)
			if kerr != nil {
				return nil, nil, nil, nil, nil, nil, kerr
			}
			if !isCharacterTyped(e) {
				return nil, nil, nil, nil, nil, nil, errf(TypeMismatch, pos, "id must be character-typed")
			}
		default:
			return nil, nil, nil, nil, nil, nil,
				errf(InvalidKeywordArgument, pos, "read/write do not accept keyword %s", kw.Name)
		}
	}
	if !unit.set {
		return nil, nil, nil, nil, nil, nil,
			errf(MissingRequiredArgument, pos, "unit must be specified either in arguments or keyword arguments")
	}
	if !format.set {
		return nil, nil, nil, nil, nil, nil,
			errf(MissingRequiredArgument, pos, "fmt must be specified either in arguments or keyword arguments")
	}
	valuesE, err = b.exprList(values)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}
	return unit.expr, format.expr, iomsg.expr, iostat.expr, id.expr, valuesE, nil
}

func (b *bodyVisitor) ifStmt(x *ast.If) (sir.Stmt, error) {
	test, err := b.expr(x.Test)
	if err != nil {
		return nil, err
	}
	body, err := b.stmtList(x.Body)
	if err != nil {
		return nil, err
	}
	orelse, err := b.stmtList(x.Else)
	if err != nil {
		return nil, err
	}
	return &sir.If{NodePos: x.Pos(), Test: test, Body: body, Else: orelse}, nil
}

func (b *bodyVisitor) doLoop(x *ast.DoLoop) (sir.Stmt, error) {
	head, err := b.loopHead(x.Var, x.Start, x.Stop, x.Increment, x.Pos())
	if err != nil {
		return nil, err
	}
	body, err := b.stmtList(x.Body)
	if err != nil {
		return nil, err
	}
	return &sir.DoLoop{NodePos: x.Pos(), Head: head, Body: body}, nil
}

func (b *bodyVisitor) doConcurrent(x *ast.DoConcurrentLoop) (sir.Stmt, error) {
	if len(x.Controls) != 1 {
		return nil, errf(UnsupportedConstruct, x.Pos(),
			"do concurrent requires exactly one control clause")
	}
	h := x.Controls[0]
	head, err := b.loopHead(h.Var, h.Start, h.Stop, h.Increment, x.Pos())
	if err != nil {
		return nil, err
	}
	body, err := b.stmtList(x.Body)
	if err != nil {
		return nil, err
	}
	return &sir.DoConcurrentLoop{NodePos: x.Pos(), Head: head, Body: body}, nil
}

func (b *bodyVisitor) loopHead(varName string, start, stop, incr ast.Expression, pos int) (sir.DoLoopHead, error) {
	var head sir.DoLoopHead
	if varName == "" {
		return head, errf(UnsupportedConstruct, pos, "do loop requires a loop variable")
	}
	if start == nil {
		return head, errf(UnsupportedConstruct, pos, "do loop requires a start condition")
	}
	if stop == nil {
		return head, errf(UnsupportedConstruct, pos, "do loop requires an end condition")
	}
	sym := b.scope.Resolve(varName)
	if sym == nil {
		return head, errf(SymbolNotFound, pos, "variable %s not declared", varName)
	}
	head.Var = b.al.NewVar(sir.Var{NodePos: pos, Sym: sym})
	var err error
	head.Start, err = b.expr(start)
	if err != nil {
		return head, err
	}
	head.Stop, err = b.expr(stop)
	if err != nil {
		return head, err
	}
	if incr != nil {
		head.Increment, err = b.expr(incr)
		if err != nil {
			return head, err
		}
	}
	return head, nil
}

func (b *bodyVisitor) selectStmt(x *ast.Select) (sir.Stmt, error) {
	test, err := b.expr(x.Test)
	if err != nil {
		return nil, err
	}
	if !isIntegerTyped(test) {
		return nil, errf(TypeMismatch, x.Pos(), "expression in case selector can only be an integer")
	}
	var cases []sir.CaseBlock
	var deflt []sir.Stmt
	for _, block := range x.Blocks {
		switch c := block.(type) {
		case *ast.CaseDefault:
			if deflt != nil {
				return nil, errf(DuplicateArgument, x.Pos(), "default case present more than once")
			}
			deflt, err = b.stmtList(c.Body)
			if err != nil {
				return nil, err
			}
			if deflt == nil {
				deflt = []sir.Stmt{}
			}
		case *ast.CaseStmt:
			tests := make([]sir.Expr, 0, len(c.Tests))
			for _, t := range c.Tests {
				e, err := b.expr(t)
				if err != nil {
					return nil, err
				}
				if !isIntegerTyped(e) {
					return nil, errf(TypeMismatch, c.Pos(), "expression in case selector can only be an integer")
				}
				tests = append(tests, e)
			}
			body, err := b.stmtList(c.Body)
			if err != nil {
				return nil, err
			}
			cases = append(cases, &sir.CaseStmt{NodePos: c.Pos(), Tests: tests, Body: body})
		case *ast.CaseRange:
			var start, stop sir.Expr
			if c.Start != nil {
				start, err = b.expr(c.Start)
				if err != nil {
					return nil, err
				}
				if !isIntegerTyped(start) {
					return nil, errf(TypeMismatch, c.Pos(), "expression in case selector can only be an integer")
				}
			}
			if c.Stop != nil {
				stop, err = b.expr(c.Stop)
				if err != nil {
					return nil, err
				}
				if !isIntegerTyped(stop) {
					return nil, errf(TypeMismatch, c.Pos(), "expression in case selector can only be an integer")
				}
			}
			body, err := b.stmtList(c.Body)
			if err != nil {
				return nil, err
			}
			cases = append(cases, &sir.CaseRange{NodePos: c.Pos(), Start: start, Stop: stop, Body: body})
		default:
			return nil, errf(UnsupportedConstruct, x.Pos(), "case block not supported")
		}
	}
	return &sir.Select{NodePos: x.Pos(), Test: test, Cases: cases, Default: deflt}, nil
}

func (b *bodyVisitor) stmtList(stmts []ast.Statement) ([]sir.Stmt, error) {
	var out []sir.Stmt
	for _, s := range stmts {
		st, err := b.stmt(s)
		if err != nil {
			return nil, err
		}
		if st != nil {
			out = append(out, st)
		}
	}
	return out, nil
}

func (b *bodyVisitor) exprList(exprs []ast.Expression) ([]sir.Expr, error) {
	out := make([]sir.Expr, 0, len(exprs))
	for _, e := range exprs {
		ex, err := b.expr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

func (b *bodyVisitor) optExpr(e ast.Expression) (sir.Expr, error) {
	if e == nil {
		return nil, nil
	}
	return b.expr(e)
}
