package sir

// span is a typed bump allocator that hands out pointers into chunks of
// T. When a chunk fills up, a new chunk is allocated at 1.5x the previous
// size. Handed-out pointers stay valid because chunks are never resized
// in place.
type span[T any] struct {
	chunks [][]T
}

const spanStartLen = 16

func (s *span[T]) new(v T) *T {
	n := len(s.chunks)
	if n == 0 || len(s.chunks[n-1]) == cap(s.chunks[n-1]) {
		size := spanStartLen
		if n > 0 {
			size = cap(s.chunks[n-1]) + cap(s.chunks[n-1])>>1 // 1.5x growth
		}
		s.chunks = append(s.chunks, make([]T, 0, size))
		n++
	}
	c := &s.chunks[n-1]
	*c = append(*c, v)
	return &(*c)[len(*c)-1]
}

// Arena owns the backing storage for every SIR node of one translation
// unit. Nodes are never freed individually; the whole arena is dropped
// with the unit.
type Arena struct {
	types    span[Type]
	vars     span[Var]
	ints     span[ConstantInteger]
	reals    span[ConstantReal]
	strs     span[ConstantString]
	logicals span[ConstantLogical]
	cplxs    span[ConstantComplex]
	arrays   span[ConstantArray]
	binops   span[BinOp]
	cmps     span[Compare]
	boolops  span[BoolOp]
	unaries  span[UnaryOp]
	strops   span[StrOp]
	casts    span[ImplicitCast]
	fcalls   span[FunctionCall]
	arefs    span[ArrayRef]
	drefs    span[DerivedRef]
	idos     span[ImpliedDoLoop]
}

// NewArena returns an empty arena.
func NewArena() *Arena { return &Arena{} }

// Expression constructors. Each allocates the node in the arena and
// returns a stable pointer.

func (a *Arena) NewType(v Type) *Type                       { return a.types.new(v) }
func (a *Arena) NewVar(v Var) *Var                          { return a.vars.new(v) }
func (a *Arena) NewConstantInteger(v ConstantInteger) *ConstantInteger { return a.ints.new(v) }
func (a *Arena) NewConstantReal(v ConstantReal) *ConstantReal          { return a.reals.new(v) }
func (a *Arena) NewConstantString(v ConstantString) *ConstantString    { return a.strs.new(v) }
func (a *Arena) NewConstantLogical(v ConstantLogical) *ConstantLogical { return a.logicals.new(v) }
func (a *Arena) NewConstantComplex(v ConstantComplex) *ConstantComplex { return a.cplxs.new(v) }
func (a *Arena) NewConstantArray(v ConstantArray) *ConstantArray       { return a.arrays.new(v) }
func (a *Arena) NewBinOp(v BinOp) *BinOp                    { return a.binops.new(v) }
func (a *Arena) NewCompare(v Compare) *Compare              { return a.cmps.new(v) }
func (a *Arena) NewBoolOp(v BoolOp) *BoolOp                 { return a.boolops.new(v) }
func (a *Arena) NewUnaryOp(v UnaryOp) *UnaryOp              { return a.unaries.new(v) }
func (a *Arena) NewStrOp(v StrOp) *StrOp                    { return a.strops.new(v) }
func (a *Arena) NewImplicitCast(v ImplicitCast) *ImplicitCast          { return a.casts.new(v) }
func (a *Arena) NewFunctionCall(v FunctionCall) *FunctionCall          { return a.fcalls.new(v) }
func (a *Arena) NewArrayRef(v ArrayRef) *ArrayRef           { return a.arefs.new(v) }
func (a *Arena) NewDerivedRef(v DerivedRef) *DerivedRef     { return a.drefs.new(v) }
func (a *Arena) NewImpliedDoLoop(v ImpliedDoLoop) *ImpliedDoLoop       { return a.idos.new(v) }

// Common type shorthands.

// IntegerType returns an Integer type of the given kind.
func (a *Arena) IntegerType(kind int, dims []Dimension) *Type {
	return a.NewType(Type{Family: Integer, Kind: kind, Dims: dims})
}

// RealType returns a Real type of the given kind.
func (a *Arena) RealType(kind int, dims []Dimension) *Type {
	return a.NewType(Type{Family: Real, Kind: kind, Dims: dims})
}

// ComplexType returns a Complex type of the given kind.
func (a *Arena) ComplexType(kind int, dims []Dimension) *Type {
	return a.NewType(Type{Family: Complex, Kind: kind, Dims: dims})
}

// LogicalType returns a Logical type of the default kind.
func (a *Arena) LogicalType(dims []Dimension) *Type {
	return a.NewType(Type{Family: Logical, Kind: DefaultLogicalKind, Dims: dims})
}

// CharacterType returns a Character type of the given kind.
func (a *Arena) CharacterType(kind int, dims []Dimension) *Type {
	return a.NewType(Type{Family: Character, Kind: kind, Dims: dims})
}
