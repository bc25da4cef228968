// Package token defines the keyword vocabulary shared by the AST and the
// semantic analyzer, plus identifier folding for Fortran's case-insensitive
// names.
package token

import "golang.org/x/text/cases"

type Token int

// List of keyword tokens the semantic analyzer cares about. When adding a
// new token add it in between blocks since we use comparison functions to
// check properties of tokens.
const (
	// Not to be used in code. Is to catch uninitialized tokens.
	Undefined Token = iota

	// ==================== TYPE KEYWORDS ====================

	INTEGER
	REAL
	COMPLEX
	LOGICAL
	CHARACTER
	TYPE
	CLASS

	// ==================== ATTRIBUTE KEYWORDS ====================

	PARAMETER
	ALLOCATABLE
	POINTER
	OPTIONAL
	TARGET
	PRIVATE
	PUBLIC
	SAVE
)

var tokenNames = [...]string{
	Undefined:   "<undefined>",
	INTEGER:     "INTEGER",
	REAL:        "REAL",
	COMPLEX:     "COMPLEX",
	LOGICAL:     "LOGICAL",
	CHARACTER:   "CHARACTER",
	TYPE:        "TYPE",
	CLASS:       "CLASS",
	PARAMETER:   "PARAMETER",
	ALLOCATABLE: "ALLOCATABLE",
	POINTER:     "POINTER",
	OPTIONAL:    "OPTIONAL",
	TARGET:      "TARGET",
	PRIVATE:     "PRIVATE",
	PUBLIC:      "PUBLIC",
	SAVE:        "SAVE",
}

func (tok Token) String() string {
	if tok < 0 || int(tok) >= len(tokenNames) {
		return "<invalid>"
	}
	return tokenNames[tok]
}

// IsTypeKeyword reports whether tok names a type specifier.
func (tok Token) IsTypeKeyword() bool { return tok >= INTEGER && tok <= CLASS }

// IsAttribute reports whether tok names a declaration attribute.
func (tok Token) IsAttribute() bool { return tok >= PARAMETER && tok <= SAVE }

var folder = cases.Fold()

// Fold normalizes a Fortran identifier for symbol table storage and lookup.
// Fortran is case-insensitive, so Foo, FOO and foo fold to the same key.
func Fold(name string) string {
	return folder.String(name)
}
