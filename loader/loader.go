// Package loader provides the memoizing module registry consulted by the
// semantic analyzer, including the built-in intrinsic modules synthesized
// on first request.
package loader

import (
	"go.uber.org/zap"

	"github.com/soypat/go-fortran-sema/sema"
	"github.com/soypat/go-fortran-sema/sir"
)

// Registry resolves module names for the analyzer. Loads are memoized so
// repeated loads of the same module return the same Module symbol; the
// analyzer detects duplicate dependencies by module name.
type Registry struct {
	al   *sir.Arena
	mods map[string]*sir.Module
	log  *zap.Logger
}

var _ sema.ModuleLoader = (*Registry)(nil)

// NewRegistry returns an empty registry allocating from al. log may be
// nil.
func NewRegistry(al *sir.Arena, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		al:   al,
		mods: make(map[string]*sir.Module),
		log:  log,
	}
}

// Register makes a previously analyzed module loadable by name.
func (r *Registry) Register(m *sir.Module) {
	r.mods[m.Name] = m
}

// Load implements sema.ModuleLoader. Intrinsic loads synthesize the
// built-in intrinsic modules into a child of parent on first request.
func (r *Registry) Load(parent *sir.Scope, moduleName string, pos int, intrinsic bool) (*sir.Module, error) {
	if m, ok := r.mods[moduleName]; ok {
		return m, nil
	}
	if intrinsic {
		m := r.makeIntrinsicModule(parent, moduleName)
		if m != nil {
			r.log.Debug("intrinsic module synthesized", zap.String("module", moduleName))
			r.mods[moduleName] = m
			parent.Set(moduleName, m)
			return m, nil
		}
	}
	return nil, &sema.Error{Kind: sema.SymbolNotFound, Msg: "module " + moduleName + " not found", Pos: pos}
}

// intrinsicSignatures lists the functions of each built-in intrinsic
// module with their return families.
var intrinsicSignatures = map[string][]intrinsicFn{
	"lfortran_intrinsic_kind": {
		{"kind", sir.Integer},
		{"selected_int_kind", sir.Integer},
		{"selected_real_kind", sir.Integer},
	},
	"lfortran_intrinsic_array": {
		{"size", sir.Integer},
		{"lbound", sir.Integer},
		{"ubound", sir.Integer},
		{"min", sir.Real},
		{"max", sir.Real},
		{"allocated", sir.Logical},
		{"minval", sir.Real},
		{"maxval", sir.Real},
		{"real", sir.Real},
		{"sum", sir.Real},
		{"abs", sir.Real},
	},
}

type intrinsicFn struct {
	name   string
	result sir.Family
}

func (r *Registry) makeIntrinsicModule(parent *sir.Scope, moduleName string) *sir.Module {
	fns, ok := intrinsicSignatures[moduleName]
	if !ok {
		return nil
	}
	modScope := parent.NewChild()
	for _, f := range fns {
		fnScope := modScope.NewChild()
		var typ *sir.Type
		switch f.result {
		case sir.Integer:
			typ = r.al.IntegerType(sir.DefaultIntegerKind, nil)
		case sir.Logical:
			typ = r.al.LogicalType(nil)
		default:
			typ = r.al.RealType(sir.DefaultRealKind, nil)
		}
		ret := &sir.Variable{
			Name:   f.name,
			Scope:  fnScope,
			Intent: sir.IntentReturnVar,
			Type:   typ,
			Access: sir.AccessPublic,
		}
		fnScope.Set(f.name, ret)
		fn := &sir.Function{
			Name:      f.name,
			Scope:     fnScope,
			ReturnVar: r.al.NewVar(sir.Var{Sym: ret}),
			Abi:       sir.AbiIntrinsic,
			Access:    sir.AccessPublic,
		}
		modScope.Set(f.name, fn)
	}
	return &sir.Module{Name: moduleName, Scope: modScope, Intrinsic: true}
}
