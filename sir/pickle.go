package sir

import (
	"fmt"
	"strings"
)

// Pickle renders a translation unit as an indented tree for debugging and
// golden tests.
func Pickle(tu *TranslationUnit) string {
	var sb strings.Builder
	sb.WriteString("(TranslationUnit\n")
	pickleScope(&sb, tu.Global, 1)
	sb.WriteString(")\n")
	return sb.String()
}

func indent(sb *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteString("  ")
	}
}

func pickleScope(sb *strings.Builder, s *Scope, depth int) {
	indent(sb, depth)
	fmt.Fprintf(sb, "(Scope %d\n", s.Counter())
	for _, name := range s.Names() {
		sym := s.Lookup(name)
		indent(sb, depth+1)
		fmt.Fprintf(sb, "%s: ", name)
		pickleSymbol(sb, sym, depth+1)
	}
	indent(sb, depth)
	sb.WriteString(")\n")
}

func pickleSymbol(sb *strings.Builder, sym Symbol, depth int) {
	switch s := sym.(type) {
	case *Variable:
		fmt.Fprintf(sb, "(Variable %s %s %s %s)\n", s.Name, TypeString(s.Type), s.Intent, storageString(s.Storage))
	case *Function:
		fmt.Fprintf(sb, "(Function %s args=%d\n", s.Name, len(s.Args))
		pickleScope(sb, s.Scope, depth+1)
		pickleBody(sb, s.Body, depth+1)
		indent(sb, depth)
		sb.WriteString(")\n")
	case *Subroutine:
		fmt.Fprintf(sb, "(Subroutine %s args=%d\n", s.Name, len(s.Args))
		pickleScope(sb, s.Scope, depth+1)
		pickleBody(sb, s.Body, depth+1)
		indent(sb, depth)
		sb.WriteString(")\n")
	case *Module:
		fmt.Fprintf(sb, "(Module %s deps=%v\n", s.Name, s.Dependencies)
		pickleScope(sb, s.Scope, depth+1)
		indent(sb, depth)
		sb.WriteString(")\n")
	case *Program:
		fmt.Fprintf(sb, "(Program %s deps=%v\n", s.Name, s.Dependencies)
		pickleScope(sb, s.Scope, depth+1)
		pickleBody(sb, s.Body, depth+1)
		indent(sb, depth)
		sb.WriteString(")\n")
	case *DerivedType:
		fmt.Fprintf(sb, "(DerivedType %s\n", s.Name)
		pickleScope(sb, s.Scope, depth+1)
		indent(sb, depth)
		sb.WriteString(")\n")
	case *GenericProcedure:
		names := make([]string, len(s.Procs))
		for i, p := range s.Procs {
			names[i] = p.SymName()
		}
		fmt.Fprintf(sb, "(GenericProcedure %s %v)\n", s.Name, names)
	case *ClassProcedure:
		fmt.Fprintf(sb, "(ClassProcedure %s -> %s)\n", s.Name, s.ProcName)
	case *ExternalSymbol:
		fmt.Fprintf(sb, "(ExternalSymbol %s = %s::%s)\n", s.Name, s.ModuleName, s.OriginalName)
	default:
		fmt.Fprintf(sb, "(%T)\n", sym)
	}
}

func pickleBody(sb *strings.Builder, body []Stmt, depth int) {
	for _, st := range body {
		indent(sb, depth)
		fmt.Fprintf(sb, "%s\n", StmtString(st))
	}
}

func storageString(s Storage) string {
	switch s {
	case StorageParameter:
		return "Parameter"
	case StorageAllocatable:
		return "Allocatable"
	}
	return "Default"
}

// TypeString renders a type compactly, e.g. "Real(4)" or
// "Derived(point)".
func TypeString(t *Type) string {
	if t == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString(t.Family.String())
	switch {
	case t.Ref != nil:
		fmt.Fprintf(&sb, "(%s)", t.Ref.SymName())
	default:
		fmt.Fprintf(&sb, "(%d)", t.Kind)
	}
	if t.IsArray() {
		fmt.Fprintf(&sb, "[%d]", len(t.Dims))
	}
	return sb.String()
}

// ExprString renders an expression compactly.
func ExprString(e Expr) string {
	switch v := e.(type) {
	case nil:
		return "<nil>"
	case *Var:
		return fmt.Sprintf("Var(%s)", v.Sym.SymName())
	case *ConstantInteger:
		return fmt.Sprintf("%d", v.N)
	case *ConstantReal:
		return fmt.Sprintf("%g", v.R)
	case *ConstantString:
		return fmt.Sprintf("%q", v.S)
	case *ConstantLogical:
		return fmt.Sprintf("%t", v.B)
	case *ConstantComplex:
		return fmt.Sprintf("(%s, %s)", ExprString(v.Re), ExprString(v.Im))
	case *ConstantArray:
		elems := make([]string, len(v.Elems))
		for i, el := range v.Elems {
			elems[i] = ExprString(el)
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case *BinOp:
		s := fmt.Sprintf("BinOp(%s %s %s)", ExprString(v.Left), v.Op, ExprString(v.Right))
		if v.Value != nil {
			s += "=" + ExprString(v.Value)
		}
		return s
	case *Compare:
		return fmt.Sprintf("Compare(%s %s %s)", ExprString(v.Left), v.Op, ExprString(v.Right))
	case *BoolOp:
		return fmt.Sprintf("BoolOp(%s %s %s)", ExprString(v.Left), v.Op, ExprString(v.Right))
	case *UnaryOp:
		return fmt.Sprintf("UnaryOp(%s)", ExprString(v.Operand))
	case *StrOp:
		return fmt.Sprintf("Concat(%s, %s)", ExprString(v.Left), ExprString(v.Right))
	case *ImplicitCast:
		return fmt.Sprintf("ImplicitCast(%s, %s, %s)", v.Kind, ExprString(v.Arg), TypeString(v.Type))
	case *FunctionCall:
		return fmt.Sprintf("FunctionCall(%s)", v.Sym.SymName())
	case *ArrayRef:
		return fmt.Sprintf("ArrayRef(%s)", v.Sym.SymName())
	case *DerivedRef:
		return fmt.Sprintf("DerivedRef(%s %% %s)", ExprString(v.Target), v.Member.SymName())
	case *ImpliedDoLoop:
		return fmt.Sprintf("ImpliedDoLoop(%d values)", len(v.Values))
	}
	return fmt.Sprintf("%T", e)
}

// StmtString renders a statement compactly.
func StmtString(st Stmt) string {
	switch v := st.(type) {
	case *Assignment:
		return fmt.Sprintf("Assignment(%s = %s)", ExprString(v.Target), ExprString(v.Value))
	case *Associate:
		return fmt.Sprintf("Associate(%s => %s)", ExprString(v.Target), ExprString(v.Value))
	case *Allocate:
		names := make([]string, len(v.Args))
		for i, a := range v.Args {
			names[i] = a.Sym.SymName()
		}
		return fmt.Sprintf("Allocate(%s)", strings.Join(names, ", "))
	case *ExplicitDeallocate:
		return fmt.Sprintf("ExplicitDeallocate(%s)", symNames(v.Syms))
	case *ImplicitDeallocate:
		return fmt.Sprintf("ImplicitDeallocate(%s)", symNames(v.Syms))
	case *SubroutineCall:
		return fmt.Sprintf("SubroutineCall(%s args=%d)", v.Sym.SymName(), len(v.Args))
	case *If:
		return fmt.Sprintf("If(%s body=%d else=%d)", ExprString(v.Test), len(v.Body), len(v.Else))
	case *WhileLoop:
		return fmt.Sprintf("WhileLoop(%s body=%d)", ExprString(v.Test), len(v.Body))
	case *DoLoop:
		return fmt.Sprintf("DoLoop(%s body=%d)", ExprString(v.Head.Var), len(v.Body))
	case *DoConcurrentLoop:
		return fmt.Sprintf("DoConcurrentLoop(%s body=%d)", ExprString(v.Head.Var), len(v.Body))
	case *Select:
		return fmt.Sprintf("Select(%s cases=%d default=%d)", ExprString(v.Test), len(v.Cases), len(v.Default))
	case *Print:
		return fmt.Sprintf("Print(values=%d)", len(v.Values))
	case *Stop:
		return "Stop"
	case *ErrorStop:
		return "ErrorStop"
	case *Exit:
		return "Exit"
	case *Cycle:
		return "Cycle"
	case *Return:
		return "Return"
	case *Open:
		return "Open"
	case *Close:
		return "Close"
	case *Read:
		return fmt.Sprintf("Read(values=%d)", len(v.Values))
	case *Write:
		return fmt.Sprintf("Write(values=%d)", len(v.Values))
	}
	return fmt.Sprintf("%T", st)
}

func symNames(syms []Symbol) string {
	names := make([]string, len(syms))
	for i, s := range syms {
		names[i] = s.SymName()
	}
	return strings.Join(names, ", ")
}
