// Package sir defines the typed Semantic IR produced by semantic analysis:
// types, symbols, scopes, expressions and statements. All nodes of a
// translation unit are allocated from the unit's Arena and live until the
// unit is dropped.
package sir

// Family is the type family tag. Pointer variants immediately follow the
// plain families so that f % NumPlainFamilies recovers the base family.
type Family int

const (
	Integer Family = iota
	Real
	Complex
	Character
	Logical
	Derived
	IntegerPointer
	RealPointer
	ComplexPointer
	CharacterPointer
	LogicalPointer
	DerivedPointer
	Class
)

// NumPlainFamilies is the count of non-pointer families used for
// pointer/plain index arithmetic.
const NumPlainFamilies = 6

var familyNames = [...]string{
	Integer:          "Integer",
	Real:             "Real",
	Complex:          "Complex",
	Character:        "Character",
	Logical:          "Logical",
	Derived:          "Derived",
	IntegerPointer:   "IntegerPointer",
	RealPointer:      "RealPointer",
	ComplexPointer:   "ComplexPointer",
	CharacterPointer: "CharacterPointer",
	LogicalPointer:   "LogicalPointer",
	DerivedPointer:   "DerivedPointer",
	Class:            "Class",
}

func (f Family) String() string {
	if f < 0 || int(f) >= len(familyNames) {
		return "Unknown"
	}
	return familyNames[f]
}

// IsPointer reports whether f is one of the pointer families.
func (f Family) IsPointer() bool {
	return f >= IntegerPointer && f <= DerivedPointer
}

// Base returns the plain family underlying f. Class is treated as Derived.
func (f Family) Base() Family {
	if f == Class {
		return Derived
	}
	return f % NumPlainFamilies
}

// Pointer returns the pointer counterpart of a plain family. Pointer
// families are returned unchanged; Class has no pointer counterpart.
func (f Family) Pointer() Family {
	if f.IsPointer() || f == Class {
		return f
	}
	return f + NumPlainFamilies
}

// Dimension is one declared dimension bound pair. Start may be nil when
// only the extent was written.
type Dimension struct {
	Start Expr
	Stop  Expr
}

// Type describes a fully resolved Fortran type. Kind is the byte width;
// Ref names the derived type symbol for Derived/DerivedPointer/Class.
type Type struct {
	Family Family
	Kind   int
	Dims   []Dimension
	Ref    Symbol
}

// Default kinds per family.
const (
	DefaultIntegerKind   = 4
	DefaultRealKind      = 4
	DefaultLogicalKind   = 4
	DefaultCharacterKind = 8
)

// IsArray reports whether t has declared dimensions.
func (t *Type) IsArray() bool { return len(t.Dims) > 0 }

// SameFamily reports whether a and b share a base family, ignoring
// pointerness.
func SameFamily(a, b *Type) bool {
	return a.Family.Base() == b.Family.Base()
}

// CastKind identifies an implicit numeric conversion.
type CastKind int

const (
	IntegerToReal CastKind = iota
	IntegerToInteger
	RealToInteger
	RealToComplex
	IntegerToComplex
	IntegerToLogical
	ComplexToComplex
	RealToReal
)

var castNames = [...]string{
	IntegerToReal:    "IntegerToReal",
	IntegerToInteger: "IntegerToInteger",
	RealToInteger:    "RealToInteger",
	RealToComplex:    "RealToComplex",
	IntegerToComplex: "IntegerToComplex",
	IntegerToLogical: "IntegerToLogical",
	ComplexToComplex: "ComplexToComplex",
	RealToReal:       "RealToReal",
}

func (ck CastKind) String() string {
	if ck < 0 || int(ck) >= len(castNames) {
		return "Unknown"
	}
	return castNames[ck]
}
