package sema

import (
	"go.uber.org/zap"

	"github.com/soypat/go-fortran-sema/ast"
	"github.com/soypat/go-fortran-sema/sir"
)

// ModuleLoader materializes previously compiled modules. Implementations
// must memoize: repeated loads of the same module return the same Module
// symbol. Dependency lists are deduplicated by module name.
type ModuleLoader interface {
	Load(parent *sir.Scope, moduleName string, pos int, intrinsic bool) (*sir.Module, error)
}

// Analyze lowers tu into a typed SIR translation unit. Pass 1 collects
// every declaration into the scope tree rooted at root; Pass 2 re-walks
// the units and lowers statement bodies. root, ld and log may be nil.
func Analyze(al *sir.Arena, tu *ast.TranslationUnit, root *sir.Scope, ld ModuleLoader, log *zap.Logger) (*sir.TranslationUnit, error) {
	if root == nil {
		root = sir.NewRootScope()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if ld == nil {
		ld = nopLoader{}
	}
	c := newCollector(al, root, ld, log)
	unit, err := c.translationUnit(tu)
	if err != nil {
		return nil, err
	}
	b := &bodyVisitor{al: al, unit: unit, loader: ld, log: log}
	if err := b.translationUnit(tu); err != nil {
		return nil, err
	}
	return unit, nil
}

// nopLoader rejects every load; used when no loader was supplied.
type nopLoader struct{}

func (nopLoader) Load(_ *sir.Scope, moduleName string, pos int, _ bool) (*sir.Module, error) {
	return nil, errf(SymbolNotFound, pos, "module %s not found", moduleName)
}
