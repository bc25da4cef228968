package sir

import (
	"fmt"
	"sort"

	"github.com/soypat/go-fortran-sema/token"
)

// Symbol is the closed set of declared entities. Match on the concrete
// type to dispatch.
type Symbol interface {
	// SymName returns the symbol's declared (unfolded) name.
	SymName() string
	symbolNode()
}

// Intent classifies how a variable enters its scope.
type Intent int

const (
	IntentUnspecified Intent = iota
	IntentLocal
	IntentIn
	IntentOut
	IntentInOut
	IntentReturnVar
)

var intentNames = [...]string{"Unspecified", "Local", "In", "Out", "InOut", "ReturnVar"}

func (i Intent) String() string {
	if i < 0 || int(i) >= len(intentNames) {
		return "Unknown"
	}
	return intentNames[i]
}

// Storage is a variable's storage class.
type Storage int

const (
	StorageDefault Storage = iota
	StorageParameter
	StorageAllocatable
)

// Access is a symbol's module visibility.
type Access int

const (
	AccessPublic Access = iota
	AccessPrivate
)

// Presence distinguishes required from optional dummy arguments.
type Presence int

const (
	PresenceRequired Presence = iota
	PresenceOptional
)

// Abi tags how a procedure is provided.
type Abi int

const (
	AbiSource Abi = iota
	AbiInteractive
	AbiIntrinsic
)

// Deftype distinguishes procedure implementations from interface
// declarations.
type Deftype int

const (
	DeftypeImplementation Deftype = iota
	DeftypeInterface
)

// Variable is a declared variable. Created exactly once during symbol
// collection and never moved between scopes.
type Variable struct {
	Name     string
	Scope    *Scope
	Intent   Intent
	Storage  Storage
	Type     *Type
	Access   Access
	Presence Presence
	Init     Expr // declared initializer, already cast to Type
	Value    Expr // folded constant value if known
}

func (v *Variable) SymName() string { return v.Name }
func (v *Variable) symbolNode()     {}

// Function is a procedure returning a value through its return variable.
type Function struct {
	Name      string
	Scope     *Scope // the function's own scope
	Args      []Expr // Var references to the dummy arguments, in order
	Body      []Stmt
	ReturnVar Expr // Var reference to the result variable
	Abi       Abi
	Access    Access
	Deftype   Deftype
}

func (f *Function) SymName() string { return f.Name }
func (f *Function) symbolNode()     {}

// Subroutine is a procedure without a return value.
type Subroutine struct {
	Name    string
	Scope   *Scope
	Args    []Expr
	Body    []Stmt
	Abi     Abi
	Access  Access
	Deftype Deftype
}

func (s *Subroutine) SymName() string { return s.Name }
func (s *Subroutine) symbolNode()     {}

// Module is a lowered MODULE. Dependencies lists the modules it uses,
// without duplicates.
type Module struct {
	Name         string
	Scope        *Scope
	Dependencies []string
	Intrinsic    bool
}

func (m *Module) SymName() string { return m.Name }
func (m *Module) symbolNode()     {}

// AddDependency appends name to the module's dependency list unless
// already present.
func (m *Module) AddDependency(name string) {
	for _, d := range m.Dependencies {
		if d == name {
			return
		}
	}
	m.Dependencies = append(m.Dependencies, name)
}

// Program is a lowered main PROGRAM.
type Program struct {
	Name         string
	Scope        *Scope
	Dependencies []string
	Body         []Stmt
}

func (p *Program) SymName() string { return p.Name }
func (p *Program) symbolNode()     {}

// DerivedType is a lowered TYPE definition; its components and bound
// procedures live in Scope.
type DerivedType struct {
	Name   string
	Scope  *Scope
	Abi    Abi
	Access Access
}

func (dt *DerivedType) SymName() string { return dt.Name }
func (dt *DerivedType) symbolNode()     {}

// GenericProcedure is a named set of specific procedures dispatched by
// argument type families.
type GenericProcedure struct {
	Name   string
	Scope  *Scope // scope the generic is declared in
	Procs  []Symbol
	Access Access
}

func (gp *GenericProcedure) SymName() string { return gp.Name }
func (gp *GenericProcedure) symbolNode()     {}

// ClassProcedure binds a method name of a derived type to a procedure.
type ClassProcedure struct {
	Name     string // method name
	Scope    *Scope // scope holding the implementing procedure
	ProcName string
	Proc     Symbol
	Abi      Abi
}

func (cp *ClassProcedure) SymName() string { return cp.Name }
func (cp *ClassProcedure) symbolNode()     {}

// ExternalSymbol is a local alias forwarding to a symbol defined in
// another module. Target never references another ExternalSymbol.
type ExternalSymbol struct {
	Name         string // local name
	Scope        *Scope
	Target       Symbol
	ModuleName   string
	OriginalName string
	Access       Access
}

func (es *ExternalSymbol) SymName() string { return es.Name }
func (es *ExternalSymbol) symbolNode()     {}

// PastExternal returns the ultimate target of sym, skipping one
// ExternalSymbol forwarding record if present.
func PastExternal(sym Symbol) Symbol {
	if es, ok := sym.(*ExternalSymbol); ok {
		return es.Target
	}
	return sym
}

// SymbolType returns the type a reference to sym yields: the variable's
// type, a function's return type, or nil for symbols without one.
func SymbolType(sym Symbol) *Type {
	switch s := PastExternal(sym).(type) {
	case *Variable:
		return s.Type
	case *Function:
		return SymbolType(varSym(s.ReturnVar))
	default:
		return nil
	}
}

func varSym(e Expr) Symbol {
	if v, ok := e.(*Var); ok {
		return v.Sym
	}
	return nil
}

// Scope is a named-symbol container with an optional parent. Names are
// stored case-folded; counters are unique within a translation unit.
type Scope struct {
	parent  *Scope
	counter int
	syms    map[string]Symbol
	seq     *int // root-owned counter sequence
}

// NewRootScope creates the compile-unit-global scope.
func NewRootScope() *Scope {
	seq := 0
	s := &Scope{
		syms: make(map[string]Symbol),
		seq:  &seq,
	}
	s.counter = s.nextCounter()
	return s
}

// NewChild creates a scope parented to s.
func (s *Scope) NewChild() *Scope {
	c := &Scope{
		parent: s,
		syms:   make(map[string]Symbol),
		seq:    s.seq,
	}
	c.counter = c.nextCounter()
	return c
}

func (s *Scope) nextCounter() int {
	*s.seq++
	return *s.seq
}

// Parent returns the parent scope, nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Counter returns the scope's unit-unique identifier.
func (s *Scope) Counter() int { return s.counter }

// Resolve searches s and its ancestors for name and returns the innermost
// binding, or nil.
func (s *Scope) Resolve(name string) Symbol {
	name = token.Fold(name)
	for scope := s; scope != nil; scope = scope.parent {
		if sym, ok := scope.syms[name]; ok {
			return sym
		}
	}
	return nil
}

// Lookup returns the binding of name in s only, or nil.
func (s *Scope) Lookup(name string) Symbol {
	return s.syms[token.Fold(name)]
}

// Insert adds sym under name. At the root scope redeclaration overwrites;
// elsewhere a prior binding is an error unless it is a procedure declared
// with the interactive ABI, which the new declaration shadows.
func (s *Scope) Insert(name string, sym Symbol) error {
	key := token.Fold(name)
	prev, exists := s.syms[key]
	if exists && s.parent != nil && !shadowable(prev) {
		return fmt.Errorf("symbol %s already defined in scope", name)
	}
	s.syms[key] = sym
	return nil
}

func shadowable(sym Symbol) bool {
	switch p := sym.(type) {
	case *Function:
		return p.Abi == AbiInteractive
	case *Subroutine:
		return p.Abi == AbiInteractive
	}
	return false
}

// Set binds name to sym unconditionally. Used where collection has
// already checked for conflicts, and for analyzer-mangled names.
func (s *Scope) Set(name string, sym Symbol) {
	s.syms[token.Fold(name)] = sym
}

// Names returns the folded symbol names in sorted order. Callers iterate
// over this snapshot so that symbols inserted mid-traversal (on-demand
// intrinsic loads) do not disturb the walk.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.syms))
	for name := range s.syms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of symbols bound directly in s.
func (s *Scope) Len() int { return len(s.syms) }
