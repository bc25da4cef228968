// Package ast defines the Fortran syntax tree consumed by the semantic
// analyzer. The parser produces these nodes; semantic analysis never
// mutates them.
package ast

import (
	"github.com/soypat/go-fortran-sema/token"
)

type Node interface {
	Pos() int // position of first character belonging to the node in file.
	End() int // position of first character immediately after the node in file.
}

type Expression interface {
	Node
	expressionNode()
}

type Statement interface {
	Node
	statementNode()
}

// ProgramUnit represents a top-level construct (PROGRAM, SUBROUTINE,
// FUNCTION, MODULE, derived TYPE definition).
type ProgramUnit interface {
	Statement
	programUnitNode()
}

// TranslationUnit is the root node of a parsed source file.
type TranslationUnit struct {
	Items []ProgramUnit
}

func (tu *TranslationUnit) Pos() int {
	if len(tu.Items) == 0 {
		return 0
	}
	return tu.Items[0].Pos()
}

func (tu *TranslationUnit) End() int {
	if len(tu.Items) == 0 {
		return 0
	}
	return tu.Items[len(tu.Items)-1].End()
}

// Module represents a MODULE...END MODULE block.
type Module struct {
	Name     string
	Uses     []*Use
	Decls    []Statement
	Contains []ProgramUnit
	StartPos int
	EndPos   int
}

func (m *Module) statementNode()   {}
func (m *Module) programUnitNode() {}
func (m *Module) Pos() int         { return m.StartPos }
func (m *Module) End() int         { return m.EndPos }

// Program represents a PROGRAM...END PROGRAM block.
type Program struct {
	Name     string
	Uses     []*Use
	Decls    []Statement
	Body     []Statement
	Contains []ProgramUnit
	StartPos int
	EndPos   int
}

func (p *Program) statementNode()   {}
func (p *Program) programUnitNode() {}
func (p *Program) Pos() int         { return p.StartPos }
func (p *Program) End() int         { return p.EndPos }

// Subroutine represents a SUBROUTINE...END SUBROUTINE block.
type Subroutine struct {
	Name     string
	Args     []string
	Decls    []Statement
	Body     []Statement
	Contains []ProgramUnit
	StartPos int
	EndPos   int
}

func (s *Subroutine) statementNode()   {}
func (s *Subroutine) programUnitNode() {}
func (s *Subroutine) Pos() int         { return s.StartPos }
func (s *Subroutine) End() int         { return s.EndPos }

// Function represents a FUNCTION...END FUNCTION block. The return type may
// be given as a prefix attribute ("integer function f()") or as a local
// declaration of the result variable.
type Function struct {
	Name       string
	Args       []string
	Attributes []DeclAttribute // prefix attributes, possibly an *AttrType
	Result     string          // result(name) clause, empty if absent
	Decls      []Statement
	Body       []Statement
	Contains   []ProgramUnit
	StartPos   int
	EndPos     int
}

func (f *Function) statementNode()   {}
func (f *Function) programUnitNode() {}
func (f *Function) Pos() int         { return f.StartPos }
func (f *Function) End() int         { return f.EndPos }

// DerivedType represents a TYPE...END TYPE definition with component
// declarations and optional type-bound procedure bindings.
type DerivedType struct {
	Name     string
	Items    []Statement
	Procs    []TypeBound
	StartPos int
	EndPos   int
}

func (dt *DerivedType) statementNode()   {}
func (dt *DerivedType) programUnitNode() {}
func (dt *DerivedType) Pos() int         { return dt.StartPos }
func (dt *DerivedType) End() int         { return dt.EndPos }

// TypeBound binds a local method name to a procedure declared in the
// enclosing module ("procedure :: area => shape_area").
type TypeBound struct {
	Name string // name the method is invoked by
	Proc string // procedure implementing it
}

// Interface represents an INTERFACE block. A named interface lists the
// specific procedures of a generic; an unnamed interface holds procedure
// declaration bodies.
type Interface struct {
	Name     string // empty for unnamed interface blocks
	Procs    []string
	Body     []ProgramUnit
	StartPos int
	EndPos   int
}

func (i *Interface) statementNode() {}
func (i *Interface) Pos() int       { return i.StartPos }
func (i *Interface) End() int       { return i.EndPos }

// Use represents a USE statement, importing symbols from a module.
type Use struct {
	Module   string
	Only     []UseRename // empty means import everything public
	StartPos int
	EndPos   int
}

func (u *Use) statementNode() {}
func (u *Use) Pos() int       { return u.StartPos }
func (u *Use) End() int       { return u.EndPos }

// UseRename is one entry of an only-list; Local equals Remote when no
// rename was written.
type UseRename struct {
	Local  string
	Remote string
}

// Declaration represents a type declaration statement or an attribute-only
// statement such as "private :: x, y".
type Declaration struct {
	Type       *AttrType // nil for attribute-only declarations
	Attributes []DeclAttribute
	Syms       []VarSym
	StartPos   int
	EndPos     int
}

func (d *Declaration) statementNode() {}
func (d *Declaration) Pos() int       { return d.StartPos }
func (d *Declaration) End() int       { return d.EndPos }

// VarSym is a single declared entity within a declaration statement.
type VarSym struct {
	Name string
	Dims []Dim // per-variable dimension spec, e.g. a(10)
	Init Expression
}

// Dim is one dimension bound pair. A nil Start defaults the lower bound.
type Dim struct {
	Start Expression
	End   Expression
}

// DeclAttribute is the closed set of declaration attributes.
type DeclAttribute interface {
	declAttributeNode()
}

// SimpleAttribute is a bare keyword attribute (PARAMETER, ALLOCATABLE,
// POINTER, OPTIONAL, TARGET, PRIVATE, PUBLIC, SAVE).
type SimpleAttribute struct {
	Attr token.Token
}

func (*SimpleAttribute) declAttributeNode() {}

// AttrIntent is an intent(in|out|inout) attribute.
type AttrIntent struct {
	Intent Intent
}

func (*AttrIntent) declAttributeNode() {}

// Intent is the dummy-argument intent as written in source.
type Intent int

const (
	In Intent = iota
	Out
	InOut
)

// AttrDimension is a dimension(...) attribute.
type AttrDimension struct {
	Dims []Dim
}

func (*AttrDimension) declAttributeNode() {}

// AttrType is a type specifier: the keyword, an optional kind expression,
// and for TYPE(name)/CLASS(name) the referenced type name.
type AttrType struct {
	Token token.Token
	Kind  Expression
	Name  string
}

func (*AttrType) declAttributeNode() {}
