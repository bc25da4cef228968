package sema

import (
	"strings"

	"go.uber.org/zap"

	"github.com/soypat/go-fortran-sema/ast"
	"github.com/soypat/go-fortran-sema/sir"
)

func (b *bodyVisitor) expr(e ast.Expression) (sir.Expr, error) {
	switch x := e.(type) {
	case *ast.Num:
		return lowerNum(b.al, x)
	case *ast.RealLit:
		return lowerReal(b.al, x)
	case *ast.Str:
		return lowerStr(b.al, x)
	case *ast.Logical:
		return lowerLogical(b.al, x)
	case *ast.ComplexLit:
		re, err := b.expr(x.Re)
		if err != nil {
			return nil, err
		}
		im, err := b.expr(x.Im)
		if err != nil {
			return nil, err
		}
		return lowerComplex(b.al, x.Pos(), re, im), nil
	case *ast.Parenthesis:
		return b.expr(x.Inner)
	case *ast.BinOp:
		left, err := b.expr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.expr(x.Right)
		if err != nil {
			return nil, err
		}
		return lowerBinOp(b.al, x, left, right)
	case *ast.Compare:
		left, err := b.expr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.expr(x.Right)
		if err != nil {
			return nil, err
		}
		return lowerCompare(b.al, x, left, right)
	case *ast.BoolOp:
		left, err := b.expr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.expr(x.Right)
		if err != nil {
			return nil, err
		}
		return lowerBoolOp(b.al, x, left, right)
	case *ast.UnaryOp:
		operand, err := b.expr(x.Operand)
		if err != nil {
			return nil, err
		}
		return lowerUnaryOp(b.al, x, operand)
	case *ast.StrOp:
		left, err := b.expr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.expr(x.Right)
		if err != nil {
			return nil, err
		}
		return lowerStrOp(b.al, x, left, right)
	case *ast.Name:
		return b.name(x)
	case *ast.FuncCallOrArray:
		return b.funcCallOrArray(x)
	case *ast.ArrayInitializer:
		return b.arrayInitializer(x)
	case *ast.ImpliedDoLoop:
		return b.impliedDoLoop(x)
	}
	return nil, errf(UnsupportedConstruct, e.Pos(), "expression not supported")
}

// name lowers a variable reference, reducing member chains a%b%c to
// nested DerivedRefs, left to right.
func (b *bodyVisitor) name(x *ast.Name) (sir.Expr, error) {
	if len(x.Members) == 0 {
		sym := b.scope.Resolve(x.ID)
		if sym == nil {
			return nil, errf(SymbolNotFound, x.Pos(), "variable %s not declared", x.ID)
		}
		return b.al.NewVar(sir.Var{NodePos: x.Pos(), Sym: sym}), nil
	}
	scope := b.scope
	if len(x.Members) == 1 {
		return b.memberRef(x.Pos(), x.ID, x.Members[0], &scope)
	}
	// a%b%c%...: resolve the leading pair, then fold each further member
	// into a DerivedRef carrying that member's type.
	acc, err := b.memberRef(x.Pos(), x.Members[1], x.Members[0], &scope)
	if err != nil {
		return nil, err
	}
	for i := 2; i < len(x.Members); i++ {
		step, err := b.memberRef(x.Pos(), x.Members[i], x.Members[i-1], &scope)
		if err != nil {
			return nil, err
		}
		acc = b.al.NewDerivedRef(sir.DerivedRef{
			NodePos: x.Pos(), Target: acc, Member: step.Member, Type: step.Type,
		})
	}
	last, err := b.memberRef(x.Pos(), x.ID, x.Members[len(x.Members)-1], &scope)
	if err != nil {
		return nil, err
	}
	return b.al.NewDerivedRef(sir.DerivedRef{
		NodePos: x.Pos(), Target: acc, Member: last.Member, Type: last.Type,
	}), nil
}

// derivedTypeOf unwraps a Derived/Class type down to its DerivedType
// symbol, passing through an ExternalSymbol reference.
func derivedTypeOf(t *sir.Type, pos int) (*sir.DerivedType, error) {
	ref := t.Ref
	if es, ok := ref.(*sir.ExternalSymbol); ok {
		ref = es.Target
		if ref == nil {
			return nil, errf(NotADerivedType, pos, "%s is not a derived type", es.Name)
		}
	}
	dt, ok := ref.(*sir.DerivedType)
	if !ok {
		return nil, errf(NotADerivedType, pos, "referenced type is not a derived type")
	}
	return dt, nil
}

// memberRef resolves member access varName%memberName. On success scope
// is advanced to the member's derived-type scope so chained accesses
// resolve within it.
func (b *bodyVisitor) memberRef(pos int, memberName, varName string, scope **sir.Scope) (*sir.DerivedRef, error) {
	v := (*scope).Resolve(varName)
	if v == nil {
		return nil, errf(SymbolNotFound, pos, "variable %s not declared", varName)
	}
	vv, ok := sir.PastExternal(v).(*sir.Variable)
	if !ok {
		return nil, errf(NotADerivedType, pos, "%s is not a variable of derived type", varName)
	}
	t := vv.Type
	switch t.Family {
	case sir.Derived, sir.DerivedPointer, sir.Class:
	default:
		return nil, errf(NotADerivedType, pos, "variable %s is not a derived type", varName)
	}
	dt, err := derivedTypeOf(t, pos)
	if err != nil {
		return nil, err
	}
	*scope = dt.Scope
	member := dt.Scope.Resolve(memberName)
	if member == nil {
		return nil, errf(NoSuchMember, pos,
			"variable %s doesn't have any member named %s", varName, memberName)
	}
	vVar := b.al.NewVar(sir.Var{NodePos: pos, Sym: v})
	return b.derivedRef(pos, vVar, member)
}

// derivedRef builds the DerivedRef for one member access. When the member
// itself has a derived type owned by another scope, the type is rewritten
// to reference a local ExternalSymbol mangled "1_<module>_<type>",
// created once and cached.
func (b *bodyVisitor) derivedRef(pos int, target sir.Expr, member sir.Symbol) (*sir.DerivedRef, error) {
	memberType := sir.SymbolType(member)
	if memberType == nil {
		return nil, errf(NoSuchMember, pos, "member %s has no type", member.SymName())
	}
	if memberType.Family == sir.Derived {
		dt, err := derivedTypeOf(memberType, pos)
		if err != nil {
			return nil, err
		}
		if dt.Scope.Counter() != b.scope.Counter() {
			moduleName := "nullptr"
			external := memberType.Ref
			if es, ok := external.(*sir.ExternalSymbol); ok {
				external = es.Target
				moduleName = es.ModuleName
			}
			mangled := "1_" + moduleName + "_" + dt.Name
			derExt := b.scope.Lookup(mangled)
			if derExt == nil {
				// A plain import of the type may already serve.
				if prev, ok := b.scope.Lookup(dt.Name).(*sir.ExternalSymbol); ok && prev.Target == external {
					derExt = prev
				} else {
					derExt = &sir.ExternalSymbol{
						Name:         mangled,
						Scope:        b.scope,
						Target:       external,
						ModuleName:   moduleName,
						OriginalName: dt.Name,
						Access:       sir.AccessPublic,
					}
					b.scope.Set(mangled, derExt)
				}
			}
			memberType = b.al.NewType(sir.Type{
				Family: memberType.Family,
				Dims:   memberType.Dims,
				Ref:    derExt,
			})
		}
	}
	return b.al.NewDerivedRef(sir.DerivedRef{
		NodePos: pos, Target: target, Member: member, Type: memberType,
	}), nil
}

// funcCallOrArray disambiguates "name(args)" by the resolved symbol:
// functions become calls, variables become array references, and unknown
// names fall back to intrinsic resolution.
func (b *bodyVisitor) funcCallOrArray(x *ast.FuncCallOrArray) (sir.Expr, error) {
	sym := b.scope.Resolve(x.Name)
	if sym == nil {
		var err error
		sym, err = b.resolveIntrinsic(x.Name, x.Pos())
		if err != nil {
			return nil, err
		}
	}
	switch s := sym.(type) {
	case *sir.Function:
		args, err := b.fnArgs(x.Args)
		if err != nil {
			return nil, err
		}
		return b.al.NewFunctionCall(sir.FunctionCall{
			NodePos: x.Pos(), Sym: s, Args: args, Type: sir.SymbolType(s),
		}), nil
	case *sir.GenericProcedure:
		args, err := b.fnArgs(x.Args)
		if err != nil {
			return nil, err
		}
		specific, err := b.selectGenericFunction(s, args, x.Pos())
		if err != nil {
			return nil, err
		}
		return b.al.NewFunctionCall(sir.FunctionCall{
			NodePos: x.Pos(), Sym: specific, Original: s, Args: args, Type: sir.SymbolType(specific),
		}), nil
	case *sir.ExternalSymbol:
		switch target := s.Target.(type) {
		case *sir.Function:
			args, err := b.fnArgs(x.Args)
			if err != nil {
				return nil, err
			}
			return b.al.NewFunctionCall(sir.FunctionCall{
				NodePos: x.Pos(), Sym: s, Args: args, Type: sir.SymbolType(target),
			}), nil
		case *sir.GenericProcedure:
			args, err := b.fnArgs(x.Args)
			if err != nil {
				return nil, err
			}
			specific, err := b.selectGenericFunction(target, args, x.Pos())
			if err != nil {
				return nil, err
			}
			final := b.mangleExternal(s, specific, x.Pos())
			return b.al.NewFunctionCall(sir.FunctionCall{
				NodePos: x.Pos(), Sym: final, Original: s, Args: args, Type: sir.SymbolType(specific),
			}), nil
		case *sir.Variable:
			return b.arrayRef(x, s, target.Type)
		}
		return nil, errf(TypeMismatch, x.Pos(), "symbol %s is not a function or an array", x.Name)
	case *sir.Variable:
		return b.arrayRef(x, s, s.Type)
	}
	return nil, errf(TypeMismatch, x.Pos(), "symbol %s is not a function or an array", x.Name)
}

func (b *bodyVisitor) fnArgs(args []ast.FnArg) ([]sir.Expr, error) {
	out := make([]sir.Expr, 0, len(args))
	for _, a := range args {
		e, err := b.expr(a.Stop)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *bodyVisitor) arrayRef(x *ast.FuncCallOrArray, sym sir.Symbol, typ *sir.Type) (sir.Expr, error) {
	indices := make([]sir.ArrayIndex, 0, len(x.Args))
	for _, a := range x.Args {
		var idx sir.ArrayIndex
		var err error
		if a.Start != nil {
			idx.Left, err = b.expr(a.Start)
			if err != nil {
				return nil, err
			}
		}
		if a.Stop != nil {
			idx.Right, err = b.expr(a.Stop)
			if err != nil {
				return nil, err
			}
		}
		if a.Step != nil {
			idx.Step, err = b.expr(a.Step)
			if err != nil {
				return nil, err
			}
		}
		indices = append(indices, idx)
	}
	return b.al.NewArrayRef(sir.ArrayRef{
		NodePos: x.Pos(), Sym: sym, Indices: indices, Type: typ,
	}), nil
}

// resolveIntrinsic handles undeclared call names: identifiers in the
// intrinsic-procedures table load their owning module on demand, the
// hard-coded transcendentals and present() are synthesized into the
// global scope on first use.
func (b *bodyVisitor) resolveIntrinsic(name string, pos int) (sir.Symbol, error) {
	lower := strings.ToLower(name)
	if moduleName, ok := intrinsicProcedures[lower]; ok {
		loadParent := b.scope.Parent()
		if loadParent != nil && loadParent.Parent() != nil {
			loadParent = loadParent.Parent()
		}
		mod, err := b.loader.Load(loadParent, moduleName, pos, true)
		if err != nil {
			return nil, err
		}
		target := mod.Scope.Lookup(lower)
		if target == nil {
			return nil, errf(SymbolNotFound, pos,
				"symbol %s not found in module %s", lower, moduleName)
		}
		fn, ok := target.(*sir.Function)
		if !ok {
			return nil, errf(TypeMismatch, pos, "intrinsic %s is not a function", lower)
		}
		es := &sir.ExternalSymbol{
			Name:         fn.Name,
			Scope:        b.scope,
			Target:       fn,
			ModuleName:   mod.Name,
			OriginalName: fn.Name,
			Access:       sir.AccessPrivate,
		}
		b.scope.Set(fn.Name, es)
		if b.module != nil {
			b.module.AddDependency(mod.Name)
		}
		b.log.Debug("intrinsic module loaded", zap.String("symbol", lower), zap.String("module", moduleName))
		return es, nil
	}
	if lower == "present" {
		return makePresentIntrinsic(b.al, b.unit.Global, pos), nil
	}
	if elementalIntrinsics[lower] {
		b.log.Debug("elemental intrinsic synthesized", zap.String("name", lower))
		return makeElementalIntrinsic(b.al, b.unit.Global, lower, pos), nil
	}
	return nil, errf(SymbolNotFound, pos, "function or array %s not declared", name)
}

func (b *bodyVisitor) arrayInitializer(x *ast.ArrayInitializer) (sir.Expr, error) {
	elems := make([]sir.Expr, 0, len(x.Args))
	var typ *sir.Type
	for _, a := range x.Args {
		e, err := b.expr(a)
		if err != nil {
			return nil, err
		}
		if typ == nil {
			typ = e.Typ()
		} else if e.Typ().Family != typ.Family {
			return nil, errf(TypeMismatch, x.Pos(), "type mismatch in array initializer")
		}
		elems = append(elems, e)
	}
	return b.al.NewConstantArray(sir.ConstantArray{NodePos: x.Pos(), Elems: elems, Type: typ}), nil
}

func (b *bodyVisitor) impliedDoLoop(x *ast.ImpliedDoLoop) (sir.Expr, error) {
	values := make([]sir.Expr, 0, len(x.Values))
	for _, v := range x.Values {
		e, err := b.expr(v)
		if err != nil {
			return nil, err
		}
		values = append(values, e)
	}
	sym := b.scope.Resolve(x.Var)
	if sym == nil {
		return nil, errf(SymbolNotFound, x.Pos(), "implied do loop variable %s not declared", x.Var)
	}
	start, err := b.expr(x.Start)
	if err != nil {
		return nil, err
	}
	stop, err := b.expr(x.Stop)
	if err != nil {
		return nil, err
	}
	var incr sir.Expr
	if x.Increment != nil {
		incr, err = b.expr(x.Increment)
		if err != nil {
			return nil, err
		}
	}
	return b.al.NewImpliedDoLoop(sir.ImpliedDoLoop{
		NodePos:   x.Pos(),
		Values:    values,
		Var:       b.al.NewVar(sir.Var{NodePos: x.Pos(), Sym: sym}),
		Start:     start,
		Stop:      stop,
		Increment: incr,
		Type:      start.Typ(),
	}), nil
}

// subroutineCall resolves "call name(args)" per the symbol variant:
// subroutines call directly, generics dispatch by argument families,
// class procedures resolve their bound name, externals recurse on their
// target.
func (b *bodyVisitor) subroutineCall(x *ast.SubroutineCall) (sir.Stmt, error) {
	var originalSym sir.Symbol
	if x.Obj != "" {
		var err error
		originalSym, err = b.resolveTypeBoundProc(x.Pos(), x.Name, x.Obj)
		if err != nil {
			return nil, err
		}
	} else {
		originalSym = b.scope.Resolve(x.Name)
	}
	if originalSym == nil {
		return nil, errf(SymbolNotFound, x.Pos(), "subroutine %s not declared", x.Name)
	}
	args, err := b.exprList(x.Args)
	if err != nil {
		return nil, err
	}
	var finalSym sir.Symbol
	switch s := originalSym.(type) {
	case *sir.Subroutine:
		finalSym = s
		originalSym = nil
	case *sir.GenericProcedure:
		finalSym, err = b.selectGenericSubroutine(s, args, x.Pos())
		if err != nil {
			return nil, err
		}
	case *sir.ClassProcedure:
		finalSym = b.scope.Resolve(s.ProcName)
		if finalSym == nil {
			return nil, errf(SymbolNotFound, x.Pos(), "procedure %s not declared", s.ProcName)
		}
	case *sir.ExternalSymbol:
		target := s.Target
		if gp, ok := target.(*sir.GenericProcedure); ok {
			specific, err := b.selectGenericSubroutine(gp, args, x.Pos())
			if err != nil {
				return nil, err
			}
			if _, ok := specific.(*sir.Subroutine); !ok {
				return nil, errf(TypeMismatch, x.Pos(), "external symbol must point to a subroutine")
			}
			finalSym = b.mangleExternal(s, specific, x.Pos())
		} else {
			if _, ok := target.(*sir.Subroutine); !ok {
				return nil, errf(TypeMismatch, x.Pos(), "external symbol must point to a subroutine")
			}
			finalSym = s
			originalSym = nil
		}
	default:
		return nil, errf(UnsupportedConstruct, x.Pos(), "symbol type not supported in call")
	}
	return &sir.SubroutineCall{
		NodePos:  x.Pos(),
		Sym:      finalSym,
		Original: originalSym,
		Args:     args,
	}, nil
}

// mangleExternal materializes the ExternalSymbol for a specific procedure
// selected through a generic external. Its local name is mangled
// "<generic_local_name>@<specific_remote_name>" and cached on subsequent
// calls.
func (b *bodyVisitor) mangleExternal(generic *sir.ExternalSymbol, specific sir.Symbol, pos int) sir.Symbol {
	local := generic.Name + "@" + specific.SymName()
	if cached := b.scope.Lookup(local); cached != nil {
		return cached
	}
	es := &sir.ExternalSymbol{
		Name:         local,
		Scope:        b.scope,
		Target:       sir.PastExternal(specific),
		ModuleName:   generic.ModuleName,
		OriginalName: specific.SymName(),
		Access:       sir.AccessPrivate,
	}
	b.scope.Set(local, es)
	return es
}

// resolveTypeBoundProc resolves obj%name to the bound procedure symbol in
// obj's derived type scope.
func (b *bodyVisitor) resolveTypeBoundProc(pos int, procName, objName string) (sir.Symbol, error) {
	v := b.scope.Resolve(objName)
	if v == nil {
		return nil, errf(SymbolNotFound, pos, "variable %s not declared", objName)
	}
	vv, ok := sir.PastExternal(v).(*sir.Variable)
	if !ok {
		return nil, errf(NotADerivedType, pos, "%s is not a variable of derived type", objName)
	}
	switch vv.Type.Family {
	case sir.Derived, sir.DerivedPointer, sir.Class:
	default:
		return nil, errf(NotADerivedType, pos, "variable %s is not a derived type", objName)
	}
	dt, err := derivedTypeOf(vv.Type, pos)
	if err != nil {
		return nil, err
	}
	member := dt.Scope.Resolve(procName)
	if member == nil {
		return nil, errf(NoSuchMember, pos,
			"variable %s doesn't have any member named %s", objName, procName)
	}
	return member, nil
}

// selectGenericSubroutine picks the specific subroutine whose formal
// argument types equal the actual argument types pairwise, by type family
// only.
func (b *bodyVisitor) selectGenericSubroutine(gp *sir.GenericProcedure, args []sir.Expr, pos int) (sir.Symbol, error) {
	for _, proc := range gp.Procs {
		sub, ok := sir.PastExternal(proc).(*sir.Subroutine)
		if !ok {
			return nil, errf(UnsupportedConstruct, pos, "only subroutines supported in generic procedure")
		}
		if argumentTypesMatch(args, sub.Args) {
			return proc, nil
		}
	}
	return nil, errf(NoGenericMatch, pos, "arguments do not match any specific of %s", gp.Name)
}

// selectGenericFunction is the function-call counterpart of generic
// dispatch.
func (b *bodyVisitor) selectGenericFunction(gp *sir.GenericProcedure, args []sir.Expr, pos int) (sir.Symbol, error) {
	for _, proc := range gp.Procs {
		fn, ok := sir.PastExternal(proc).(*sir.Function)
		if !ok {
			return nil, errf(UnsupportedConstruct, pos, "only functions supported in generic function reference")
		}
		if argumentTypesMatch(args, fn.Args) {
			return proc, nil
		}
	}
	return nil, errf(NoGenericMatch, pos, "arguments do not match any specific of %s", gp.Name)
}

// argumentTypesMatch compares actual and formal argument types pairwise
// by family; kinds are deliberately not compared.
func argumentTypesMatch(args []sir.Expr, formals []sir.Expr) bool {
	if len(args) != len(formals) {
		return false
	}
	for i := range args {
		formal, ok := formals[i].(*sir.Var)
		if !ok {
			return false
		}
		actualType := args[i].Typ()
		formalType := sir.SymbolType(formal.Sym)
		if actualType == nil || formalType == nil {
			return false
		}
		if actualType.Family != formalType.Family {
			return false
		}
	}
	return true
}
