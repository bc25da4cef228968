package sema

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/soypat/go-fortran-sema/ast"
	"github.com/soypat/go-fortran-sema/sir"
	"github.com/soypat/go-fortran-sema/token"
)

// collector is Pass 1: it walks program units and populates scopes with
// every declared symbol. Statement bodies are not lowered here.
type collector struct {
	al     *sir.Arena
	scope  *sir.Scope
	global *sir.Scope
	loader ModuleLoader
	log    *zap.Logger

	genericProcs []genericSet
	classProcs   []classProcSet
	dtName       string
	dfltAccess   sir.Access
	assgndAccess map[string]sir.Access
	assgndPres   map[string]sir.Presence
	deps         []string
	inModule     bool
	isInterface  bool
	procArgs     []string
}

// genericSet is a deferred generic interface: the generic name and the
// specific procedure names collected during unit visitation.
type genericSet struct {
	name  string
	procs []string
	pos   int
}

// classProcSet is a deferred set of type-bound procedure bindings for one
// derived type.
type classProcSet struct {
	dtName   string
	bindings []ast.TypeBound
	pos      int
}

func newCollector(al *sir.Arena, root *sir.Scope, ld ModuleLoader, log *zap.Logger) *collector {
	return &collector{
		al:           al,
		scope:        root,
		global:       root,
		loader:       ld,
		log:          log,
		assgndAccess: make(map[string]sir.Access),
		assgndPres:   make(map[string]sir.Presence),
	}
}

func (c *collector) translationUnit(tu *ast.TranslationUnit) (*sir.TranslationUnit, error) {
	for _, item := range tu.Items {
		if err := c.programUnit(item); err != nil {
			return nil, err
		}
	}
	return &sir.TranslationUnit{Global: c.global}, nil
}

func (c *collector) programUnit(unit ast.ProgramUnit) error {
	switch u := unit.(type) {
	case *ast.Module:
		return c.module(u)
	case *ast.Program:
		return c.program(u)
	case *ast.Subroutine:
		return c.subroutine(u)
	case *ast.Function:
		return c.function(u)
	case *ast.DerivedType:
		return c.derivedType(u)
	}
	return errf(UnsupportedConstruct, unit.Pos(), "program unit not supported")
}

func (c *collector) module(x *ast.Module) error {
	parent := c.scope
	c.scope = parent.NewChild()
	c.log.Debug("collect module", zap.String("name", x.Name), zap.Int("scope", c.scope.Counter()))
	c.deps = nil
	c.genericProcs = nil
	c.classProcs = nil
	c.inModule = true
	defer func() { c.inModule = false }()
	oldAccess := c.dfltAccess
	c.dfltAccess = sir.AccessPublic
	defer func() { c.dfltAccess = oldAccess }()

	for _, use := range x.Uses {
		if err := c.use(use); err != nil {
			return err
		}
	}
	for _, decl := range x.Decls {
		if err := c.declStatement(decl); err != nil {
			return err
		}
	}
	for _, contained := range x.Contains {
		if err := c.programUnit(contained); err != nil {
			return err
		}
	}
	if err := c.addGenericProcedures(); err != nil {
		return err
	}
	if err := c.addClassProcedures(); err != nil {
		return err
	}
	mod := &sir.Module{Name: x.Name, Scope: c.scope, Dependencies: c.deps}
	if err := parent.Insert(x.Name, mod); err != nil {
		return errf(AlreadyDefined, x.Pos(), "module %s already defined", x.Name)
	}
	c.scope = parent
	return nil
}

func (c *collector) program(x *ast.Program) error {
	parent := c.scope
	c.scope = parent.NewChild()
	c.log.Debug("collect program", zap.String("name", x.Name), zap.Int("scope", c.scope.Counter()))
	c.deps = nil
	c.genericProcs = nil
	c.classProcs = nil

	for _, use := range x.Uses {
		if err := c.use(use); err != nil {
			return err
		}
	}
	for _, decl := range x.Decls {
		if err := c.declStatement(decl); err != nil {
			return err
		}
	}
	for _, contained := range x.Contains {
		if err := c.programUnit(contained); err != nil {
			return err
		}
	}
	if err := c.addGenericProcedures(); err != nil {
		return err
	}
	if err := c.addClassProcedures(); err != nil {
		return err
	}
	prog := &sir.Program{Name: x.Name, Scope: c.scope, Dependencies: c.deps}
	if err := parent.Insert(x.Name, prog); err != nil {
		return errf(AlreadyDefined, x.Pos(), "program %s already defined", x.Name)
	}
	c.scope = parent
	return nil
}

func (c *collector) subroutine(x *ast.Subroutine) error {
	parent := c.scope
	c.scope = parent.NewChild()
	c.procArgs = append(c.procArgs[:0], x.Args...)
	defer func() { c.procArgs = c.procArgs[:0] }()

	for _, decl := range x.Decls {
		if err := c.declStatement(decl); err != nil {
			return err
		}
	}
	for _, contained := range x.Contains {
		if err := c.programUnit(contained); err != nil {
			return err
		}
	}
	args, err := c.dummyArgs(x.Args, x.Pos())
	if err != nil {
		return err
	}
	access := c.dfltAccess
	if a, ok := c.assgndAccess[token.Fold(x.Name)]; ok {
		access = a
	}
	deftype := sir.DeftypeImplementation
	if c.isInterface {
		deftype = sir.DeftypeInterface
	}
	sub := &sir.Subroutine{
		Name:    x.Name,
		Scope:   c.scope,
		Args:    args,
		Abi:     sir.AbiSource,
		Access:  access,
		Deftype: deftype,
	}
	if err := parent.Insert(x.Name, sub); err != nil {
		return errf(AlreadyDefined, x.Pos(), "subroutine %s already defined", x.Name)
	}
	c.scope = parent
	return nil
}

func (c *collector) function(x *ast.Function) error {
	parent := c.scope
	c.scope = parent.NewChild()
	c.procArgs = append(c.procArgs[:0], x.Args...)
	defer func() { c.procArgs = c.procArgs[:0] }()

	for _, decl := range x.Decls {
		if err := c.declStatement(decl); err != nil {
			return err
		}
	}
	for _, contained := range x.Contains {
		if err := c.programUnit(contained); err != nil {
			return err
		}
	}
	args, err := c.dummyArgs(x.Args, x.Pos())
	if err != nil {
		return err
	}

	// The result variable is either result(name) or the function name.
	returnName := x.Result
	if returnName == "" {
		returnName = x.Name
	}
	prefixType, err := findReturnType(x.Attributes, x.Pos())
	if err != nil {
		return err
	}
	var returnVar *sir.Variable
	if existing := c.scope.Lookup(returnName); existing == nil {
		// Not declared among locals: the prefix must provide the type.
		if prefixType == nil {
			return errf(TypeMismatch, x.Pos(), "return type of function %s not specified", x.Name)
		}
		typ, err := c.buildType(prefixType, false, nil, x.Pos())
		if err != nil {
			return err
		}
		returnVar = &sir.Variable{
			Name:   returnName,
			Scope:  c.scope,
			Intent: sir.IntentReturnVar,
			Type:   typ,
			Access: sir.AccessPublic,
		}
		c.scope.Set(returnName, returnVar)
	} else {
		if prefixType != nil {
			return errf(DuplicateReturnType, x.Pos(), "cannot specify the return type of %s twice", x.Name)
		}
		v, ok := existing.(*sir.Variable)
		if !ok {
			return errf(TypeMismatch, x.Pos(), "result name %s of function %s is not a variable", returnName, x.Name)
		}
		v.Intent = sir.IntentReturnVar
		returnVar = v
	}

	access := c.dfltAccess
	if a, ok := c.assgndAccess[token.Fold(x.Name)]; ok {
		access = a
	}
	deftype := sir.DeftypeImplementation
	if c.isInterface {
		deftype = sir.DeftypeInterface
	}
	fn := &sir.Function{
		Name:      x.Name,
		Scope:     c.scope,
		Args:      args,
		ReturnVar: c.al.NewVar(sir.Var{NodePos: x.Pos(), Sym: returnVar}),
		Abi:       sir.AbiSource,
		Access:    access,
		Deftype:   deftype,
	}
	if err := parent.Insert(x.Name, fn); err != nil {
		return errf(AlreadyDefined, x.Pos(), "function %s already defined", x.Name)
	}
	c.scope = parent
	return nil
}

// dummyArgs resolves each dummy name into a Var reference; every dummy
// must have been declared in the procedure scope.
func (c *collector) dummyArgs(names []string, pos int) ([]sir.Expr, error) {
	args := make([]sir.Expr, 0, len(names))
	for _, name := range names {
		sym := c.scope.Lookup(name)
		if sym == nil {
			return nil, errf(SymbolNotFound, pos, "dummy argument %s not defined", name)
		}
		args = append(args, c.al.NewVar(sir.Var{NodePos: pos, Sym: sym}))
	}
	return args, nil
}

// findReturnType extracts the type prefix from a function's attributes;
// two type prefixes are an error.
func findReturnType(attrs []ast.DeclAttribute, pos int) (*ast.AttrType, error) {
	var found *ast.AttrType
	for _, a := range attrs {
		if at, ok := a.(*ast.AttrType); ok {
			if found != nil {
				return nil, errf(DuplicateReturnType, pos, "return type declared twice")
			}
			found = at
		}
	}
	return found, nil
}

func (c *collector) derivedType(x *ast.DerivedType) error {
	parent := c.scope
	c.scope = parent.NewChild()
	c.dtName = x.Name
	for _, item := range x.Items {
		if err := c.declStatement(item); err != nil {
			return err
		}
	}
	if len(x.Procs) > 0 {
		c.classProcs = append(c.classProcs, classProcSet{dtName: x.Name, bindings: x.Procs, pos: x.Pos()})
	}
	dt := &sir.DerivedType{Name: x.Name, Scope: c.scope, Abi: sir.AbiSource, Access: c.dfltAccess}
	if err := parent.Insert(x.Name, dt); err != nil {
		return errf(AlreadyDefined, x.Pos(), "derived type %s already defined", x.Name)
	}
	c.scope = parent
	return nil
}

func (c *collector) declStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.Declaration:
		return c.declaration(s)
	case *ast.Interface:
		return c.interfaceBlock(s)
	case *ast.DerivedType:
		return c.derivedType(s)
	case *ast.Use:
		return c.use(s)
	}
	return errf(UnsupportedConstruct, stmt.Pos(), "declaration statement not supported")
}

func (c *collector) interfaceBlock(x *ast.Interface) error {
	if x.Name != "" {
		c.genericProcs = append(c.genericProcs, genericSet{name: x.Name, procs: x.Procs, pos: x.Pos()})
		return nil
	}
	c.isInterface = true
	defer func() { c.isInterface = false }()
	for _, proc := range x.Body {
		if err := c.programUnit(proc); err != nil {
			return err
		}
	}
	return nil
}

// addGenericProcedures materializes the generic interfaces collected
// during the unit visit, resolving each specific by name.
func (c *collector) addGenericProcedures() error {
	for _, g := range c.genericProcs {
		procs := make([]sir.Symbol, 0, len(g.procs))
		for _, name := range g.procs {
			sym := c.scope.Resolve(name)
			if sym == nil {
				return errf(SymbolNotFound, g.pos, "symbol %s not declared", name)
			}
			procs = append(procs, sym)
		}
		gp := &sir.GenericProcedure{Name: g.name, Scope: c.scope, Procs: procs, Access: sir.AccessPublic}
		c.scope.Set(g.name, gp)
	}
	return nil
}

// addClassProcedures attaches type-bound procedure symbols into their
// derived type's scope.
func (c *collector) addClassProcedures() error {
	for _, set := range c.classProcs {
		sym := c.scope.Lookup(set.dtName)
		dt, ok := sym.(*sir.DerivedType)
		if !ok {
			return errf(NotADerivedType, set.pos, "%s is not a derived type", set.dtName)
		}
		for _, b := range set.bindings {
			proc := c.scope.Lookup(b.Proc)
			if proc == nil {
				return errf(SymbolNotFound, set.pos, "procedure %s not declared", b.Proc)
			}
			cp := &sir.ClassProcedure{
				Name:     b.Name,
				Scope:    c.scope,
				ProcName: b.Proc,
				Proc:     proc,
				Abi:      sir.AbiSource,
			}
			dt.Scope.Set(b.Name, cp)
		}
	}
	return nil
}

// declaration processes a type declaration statement or an attribute-only
// statement.
func (c *collector) declaration(x *ast.Declaration) error {
	if x.Type == nil {
		return c.attributeDeclaration(x)
	}
	for _, s := range x.Syms {
		if err := c.declareEntity(x, s); err != nil {
			return err
		}
	}
	return nil
}

// attributeDeclaration handles "private", "public", "save" and their
// listed forms "private :: x, y".
func (c *collector) attributeDeclaration(x *ast.Declaration) error {
	if len(x.Attributes) == 0 {
		return errf(UnsupportedConstruct, x.Pos(), "no attribute specified")
	}
	if len(x.Attributes) > 1 {
		return errf(UnsupportedConstruct, x.Pos(), "only one attribute can be specified if type is missing")
	}
	sa, ok := x.Attributes[0].(*ast.SimpleAttribute)
	if !ok {
		return errf(UnsupportedConstruct, x.Pos(), "attribute declaration not supported")
	}
	if len(x.Syms) == 0 {
		switch sa.Attr {
		case token.PRIVATE:
			c.dfltAccess = sir.AccessPrivate
		case token.PUBLIC:
			// Public access is the default.
		case token.SAVE:
			if !c.inModule {
				return errf(UnsupportedConstruct, x.Pos(), "save attribute not supported outside modules")
			}
			// All module variables implicitly have the save attribute.
		default:
			return errf(UnsupportedConstruct, x.Pos(), "attribute declaration not supported")
		}
		return nil
	}
	for _, s := range x.Syms {
		key := token.Fold(s.Name)
		switch sa.Attr {
		case token.PRIVATE:
			c.assgndAccess[key] = sir.AccessPrivate
		case token.PUBLIC:
			c.assgndAccess[key] = sir.AccessPublic
		case token.OPTIONAL:
			c.assgndPres[key] = sir.PresenceOptional
		default:
			return errf(UnsupportedConstruct, x.Pos(), "attribute declaration not supported")
		}
	}
	return nil
}

func (c *collector) declareEntity(x *ast.Declaration, s ast.VarSym) error {
	if c.scope.Lookup(s.Name) != nil && c.scope.Parent() != nil {
		// Re-declaring a global scope symbol is allowed; elsewhere it is
		// an error.
		return errf(AlreadyDefined, x.Pos(), "symbol %s already declared", s.Name)
	}

	access := c.dfltAccess
	presence := sir.PresenceRequired
	if a, ok := c.assgndAccess[token.Fold(s.Name)]; ok {
		access = a
	}
	if p, ok := c.assgndPres[token.Fold(s.Name)]; ok {
		presence = p
	}
	intent := sir.IntentLocal
	if c.isProcArg(s.Name) {
		intent = sir.IntentUnspecified
	}
	storage := sir.StorageDefault
	isPointer := false
	var dims []sir.Dimension

	for _, attr := range x.Attributes {
		switch a := attr.(type) {
		case *ast.SimpleAttribute:
			switch a.Attr {
			case token.PRIVATE:
				access = sir.AccessPrivate
			case token.PUBLIC:
				access = sir.AccessPublic
			case token.PARAMETER:
				storage = sir.StorageParameter
			case token.ALLOCATABLE:
				storage = sir.StorageAllocatable
			case token.POINTER:
				isPointer = true
			case token.OPTIONAL:
				presence = sir.PresenceOptional
			case token.TARGET:
				// Accepted, no modeled effect.
			case token.SAVE:
				// Module variables already behave as saved.
			default:
				return errf(UnsupportedConstruct, x.Pos(), "attribute %s not supported here", a.Attr)
			}
		case *ast.AttrIntent:
			switch a.Intent {
			case ast.In:
				intent = sir.IntentIn
			case ast.Out:
				intent = sir.IntentOut
			case ast.InOut:
				intent = sir.IntentInOut
			}
		case *ast.AttrDimension:
			if dims != nil {
				return errf(DuplicateArgument, x.Pos(), "dimensions specified twice")
			}
			var err error
			dims, err = c.lowerDims(a.Dims)
			if err != nil {
				return err
			}
		default:
			return errf(UnsupportedConstruct, x.Pos(), "attribute not supported")
		}
	}
	if len(s.Dims) > 0 {
		if dims != nil {
			return errf(DuplicateArgument, x.Pos(), "cannot specify dimensions both ways")
		}
		var err error
		dims, err = c.lowerDims(s.Dims)
		if err != nil {
			return err
		}
	}

	typ, err := c.buildType(x.Type, isPointer, dims, x.Pos())
	if err != nil {
		return err
	}
	var init sir.Expr
	if s.Init != nil {
		init, err = c.lowerExpr(s.Init)
		if err != nil {
			return err
		}
		init, err = convertValue(c.al, x.Pos(), init, init.Typ(), typ)
		if err != nil {
			return err
		}
	}
	v := &sir.Variable{
		Name:     s.Name,
		Scope:    c.scope,
		Intent:   intent,
		Storage:  storage,
		Type:     typ,
		Access:   access,
		Presence: presence,
		Init:     init,
	}
	c.scope.Set(s.Name, v)
	return nil
}

func (c *collector) isProcArg(name string) bool {
	key := token.Fold(name)
	for _, arg := range c.procArgs {
		if token.Fold(arg) == key {
			return true
		}
	}
	return false
}

func (c *collector) lowerDims(in []ast.Dim) ([]sir.Dimension, error) {
	dims := make([]sir.Dimension, 0, len(in))
	for _, d := range in {
		var dim sir.Dimension
		var err error
		if d.Start != nil {
			dim.Start, err = c.lowerExpr(d.Start)
			if err != nil {
				return nil, err
			}
		}
		if d.End != nil {
			dim.Stop, err = c.lowerExpr(d.End)
			if err != nil {
				return nil, err
			}
		}
		dims = append(dims, dim)
	}
	return dims, nil
}

// buildType produces the resolved type for a declaration, applying the
// pointer attribute to pick the pointer variant.
func (c *collector) buildType(at *ast.AttrType, isPointer bool, dims []sir.Dimension, pos int) (*sir.Type, error) {
	kind := 0
	if at.Kind != nil {
		kindExpr, err := c.lowerExpr(at.Kind)
		if err != nil {
			return nil, err
		}
		kind, err = extractKind(kindExpr, pos)
		if err != nil {
			return nil, err
		}
	}
	family := sir.Integer
	switch at.Token {
	case token.INTEGER:
		family = sir.Integer
		if kind == 0 {
			kind = sir.DefaultIntegerKind
		}
	case token.REAL:
		family = sir.Real
		if kind == 0 {
			kind = sir.DefaultRealKind
		}
	case token.COMPLEX:
		family = sir.Complex
		if kind == 0 {
			kind = sir.DefaultRealKind
		}
	case token.LOGICAL:
		family = sir.Logical
		if kind == 0 {
			kind = sir.DefaultLogicalKind
		}
	case token.CHARACTER:
		family = sir.Character
		if kind == 0 {
			kind = sir.DefaultCharacterKind
		}
	case token.TYPE, token.CLASS:
		ref := c.scope.Resolve(at.Name)
		if ref == nil {
			return nil, errf(SymbolNotFound, pos, "derived type %s not declared", at.Name)
		}
		if _, ok := sir.PastExternal(ref).(*sir.DerivedType); !ok {
			return nil, errf(NotADerivedType, pos, "%s is not a derived type", at.Name)
		}
		family = sir.Derived
		if at.Token == token.CLASS {
			family = sir.Class
		}
		if isPointer && family == sir.Derived {
			family = sir.DerivedPointer
		}
		return c.al.NewType(sir.Type{Family: family, Dims: dims, Ref: ref}), nil
	default:
		return nil, errf(UnsupportedConstruct, pos, "type %s not supported", at.Token)
	}
	if isPointer {
		family = family.Pointer()
	}
	return c.al.NewType(sir.Type{Family: family, Kind: kind, Dims: dims}), nil
}

// extractKind folds a kind expression down to its constant integer value.
func extractKind(e sir.Expr, pos int) (int, error) {
	ci, ok := sir.ExprValue(e).(*sir.ConstantInteger)
	if !ok {
		return 0, errf(TypeMismatch, pos, "kind must be a constant integer expression")
	}
	return int(ci.N), nil
}

// use imports symbols of a module into the current scope as
// ExternalSymbol records. Without an only-list every public symbol is
// imported; the only-list honors remote => local renaming. Imports of
// remote ExternalSymbols are re-packed to point at the ultimate target.
func (c *collector) use(x *ast.Use) error {
	c.addDep(x.Module)
	var mod *sir.Module
	sym := c.scope.Parent().Resolve(x.Module)
	if sym == nil {
		var err error
		mod, err = c.loader.Load(c.scope.Parent(), x.Module, x.Pos(), false)
		if err != nil {
			return err
		}
	} else if m, ok := sym.(*sir.Module); ok {
		mod = m
	} else {
		return errf(NotAModule, x.Pos(), "symbol %s must be a module", x.Module)
	}
	c.log.Debug("use module", zap.String("module", x.Module), zap.Int("only", len(x.Only)))

	if len(x.Only) == 0 {
		for _, name := range mod.Scope.Names() {
			remote := mod.Scope.Lookup(name)
			if accessOf(remote) == sir.AccessPrivate {
				continue
			}
			if err := c.importSymbol(name, name, remote, mod, x.Pos(), false); err != nil {
				return err
			}
		}
		return nil
	}
	for _, only := range x.Only {
		remote := mod.Scope.Lookup(only.Remote)
		if remote == nil {
			return errf(SymbolNotFound, x.Pos(), "symbol %s not found in module %s", only.Remote, x.Module)
		}
		if err := c.importSymbol(only.Local, only.Remote, remote, mod, x.Pos(), true); err != nil {
			return err
		}
	}
	return nil
}

func (c *collector) importSymbol(local, remote string, sym sir.Symbol, mod *sir.Module, pos int, checkClash bool) error {
	if checkClash && c.scope.Lookup(local) != nil {
		return errf(AlreadyDefined, pos, "symbol %s already defined", local)
	}
	target := sym
	moduleName := mod.Name
	originalName := remote
	if es, ok := sym.(*sir.ExternalSymbol); ok {
		// Re-pack so the new record points directly at the final target.
		target = es.Target
		moduleName = es.ModuleName
		originalName = es.OriginalName
	}
	switch target.(type) {
	case *sir.Subroutine, *sir.Function, *sir.Variable, *sir.GenericProcedure, *sir.DerivedType:
	default:
		return errf(UnsupportedConstruct, pos, "symbol %s is not supported in use", remote)
	}
	es := &sir.ExternalSymbol{
		Name:         local,
		Scope:        c.scope,
		Target:       target,
		ModuleName:   moduleName,
		OriginalName: originalName,
		Access:       c.dfltAccess,
	}
	c.scope.Set(local, es)
	return nil
}

func accessOf(sym sir.Symbol) sir.Access {
	switch s := sym.(type) {
	case *sir.Variable:
		return s.Access
	case *sir.Function:
		return s.Access
	case *sir.Subroutine:
		return s.Access
	case *sir.GenericProcedure:
		return s.Access
	case *sir.DerivedType:
		return s.Access
	case *sir.ExternalSymbol:
		return s.Access
	}
	return sir.AccessPublic
}

func (c *collector) addDep(name string) {
	for _, d := range c.deps {
		if d == name {
			return
		}
	}
	c.deps = append(c.deps, name)
}

// lowerExpr is the Pass 1 expression lowering used for kind parameters,
// initializers and dimension bounds.
func (c *collector) lowerExpr(e ast.Expression) (sir.Expr, error) {
	switch x := e.(type) {
	case *ast.Num:
		return lowerNum(c.al, x)
	case *ast.RealLit:
		return lowerReal(c.al, x)
	case *ast.Str:
		return lowerStr(c.al, x)
	case *ast.Logical:
		return lowerLogical(c.al, x)
	case *ast.ComplexLit:
		re, err := c.lowerExpr(x.Re)
		if err != nil {
			return nil, err
		}
		im, err := c.lowerExpr(x.Im)
		if err != nil {
			return nil, err
		}
		return lowerComplex(c.al, x.Pos(), re, im), nil
	case *ast.Parenthesis:
		return c.lowerExpr(x.Inner)
	case *ast.BinOp:
		left, err := c.lowerExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.lowerExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return lowerBinOp(c.al, x, left, right)
	case *ast.Compare:
		left, err := c.lowerExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.lowerExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return lowerCompare(c.al, x, left, right)
	case *ast.BoolOp:
		left, err := c.lowerExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.lowerExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return lowerBoolOp(c.al, x, left, right)
	case *ast.UnaryOp:
		operand, err := c.lowerExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		return lowerUnaryOp(c.al, x, operand)
	case *ast.StrOp:
		left, err := c.lowerExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.lowerExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return lowerStrOp(c.al, x, left, right)
	case *ast.Name:
		if len(x.Members) != 0 {
			return nil, errf(UnsupportedConstruct, x.Pos(), "member access not supported in declarations")
		}
		sym := c.scope.Resolve(x.ID)
		if sym == nil {
			return nil, errf(SymbolNotFound, x.Pos(), "variable %s not declared", x.ID)
		}
		return c.al.NewVar(sir.Var{NodePos: x.Pos(), Sym: sym}), nil
	case *ast.FuncCallOrArray:
		return c.funcCall(x)
	}
	return nil, errf(UnsupportedConstruct, e.Pos(), "expression not supported in declarations")
}

// funcCall handles call expressions inside declarations, loading intrinsic
// modules on demand (e.g. selected_real_kind in a kind parameter).
func (c *collector) funcCall(x *ast.FuncCallOrArray) (sir.Expr, error) {
	sym := c.scope.Resolve(x.Name)
	if sym == nil {
		remote := strings.ToLower(x.Name)
		moduleName, ok := intrinsicProcedures[remote]
		if !ok {
			return nil, errf(SymbolNotFound, x.Pos(), "function %s not found", x.Name)
		}
		mod, err := c.loader.Load(c.scope.Parent(), moduleName, x.Pos(), true)
		if err != nil {
			return nil, err
		}
		target := mod.Scope.Lookup(remote)
		if target == nil {
			return nil, errf(SymbolNotFound, x.Pos(), "symbol %s not found in module %s", remote, moduleName)
		}
		fn, ok := target.(*sir.Function)
		if !ok {
			return nil, errf(TypeMismatch, x.Pos(), "intrinsic %s is not a function", remote)
		}
		es := &sir.ExternalSymbol{
			Name:         fn.Name,
			Scope:        c.scope,
			Target:       fn,
			ModuleName:   mod.Name,
			OriginalName: fn.Name,
			Access:       sir.AccessPrivate,
		}
		c.scope.Set(fn.Name, es)
		sym = es
		c.addDep(mod.Name)
	}
	args := make([]sir.Expr, 0, len(x.Args))
	for _, a := range x.Args {
		arg, err := c.lowerExpr(a.Stop)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	typ := sir.SymbolType(sym)
	if typ == nil {
		return nil, errf(TypeMismatch, x.Pos(), "%s is not a function", x.Name)
	}
	return c.al.NewFunctionCall(sir.FunctionCall{
		NodePos: x.Pos(),
		Sym:     sym,
		Args:    args,
		Type:    typ,
	}), nil
}

// Literal lowering shared by both passes.

const maxIntegerLiteral = 1<<62 - 1

func lowerNum(al *sir.Arena, x *ast.Num) (sir.Expr, error) {
	n, err := strconv.ParseInt(x.Lit, 10, 64)
	if err != nil || n > maxIntegerLiteral {
		return nil, errf(IntegerLiteralTooLarge, x.Pos(),
			"integer constants larger than 2^62-1 are not supported")
	}
	return al.NewConstantInteger(sir.ConstantInteger{
		NodePos: x.Pos(),
		N:       n,
		Type:    al.IntegerType(sir.DefaultIntegerKind, nil),
	}), nil
}

func lowerReal(al *sir.Arena, x *ast.RealLit) (sir.Expr, error) {
	kind, value, err := parseRealLit(x.Lit)
	if err != nil {
		return nil, errf(TypeMismatch, x.Pos(), "invalid real literal %s", x.Lit)
	}
	return al.NewConstantReal(sir.ConstantReal{
		NodePos: x.Pos(),
		R:       value,
		Type:    al.RealType(kind, nil),
	}), nil
}

// parseRealLit extracts the kind from a real literal: a d exponent or an
// _8 suffix selects double precision.
func parseRealLit(lit string) (kind int, value float64, err error) {
	kind = sir.DefaultRealKind
	if i := strings.LastIndexByte(lit, '_'); i >= 0 {
		k, kerr := strconv.Atoi(lit[i+1:])
		if kerr != nil {
			return 0, 0, kerr
		}
		kind = k
		lit = lit[:i]
	}
	if i := strings.IndexAny(lit, "dD"); i >= 0 {
		kind = 8
		lit = lit[:i] + "e" + lit[i+1:]
	}
	value, err = strconv.ParseFloat(lit, 64)
	return kind, value, err
}

func lowerStr(al *sir.Arena, x *ast.Str) (sir.Expr, error) {
	return al.NewConstantString(sir.ConstantString{
		NodePos: x.Pos(),
		S:       x.Value,
		Type:    al.CharacterType(sir.DefaultCharacterKind, nil),
	}), nil
}

func lowerLogical(al *sir.Arena, x *ast.Logical) (sir.Expr, error) {
	return al.NewConstantLogical(sir.ConstantLogical{
		NodePos: x.Pos(),
		B:       x.Value,
		Type:    al.LogicalType(nil),
	}), nil
}

func lowerComplex(al *sir.Arena, pos int, re, im sir.Expr) sir.Expr {
	kind := re.Typ().Kind
	if k := im.Typ().Kind; k > kind {
		kind = k
	}
	return al.NewConstantComplex(sir.ConstantComplex{
		NodePos: pos,
		Re:      re,
		Im:      im,
		Type:    al.ComplexType(kind, nil),
	})
}
