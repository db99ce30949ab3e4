// Package diag provides the closure-lowering core's single error taxonomy
// (C9), spanning the type checker (C4) and closure lowering (C6), grounded
// on ailang's internal/errors package (one sum type, one registry of
// human-readable descriptions, no source positions — position tracking is a
// frontend concern and stays out of scope per spec.md §1/§4.9).
package diag

import "fmt"

// Kind enumerates every error kind the core can raise. Kinds never carry
// source-file positions; SF-IR has none by construction (spec.md §4.9).
type Kind string

const (
	// Type errors (C4), fatal for the whole module.
	KindTypesNotMatched          Kind = "TypesNotMatched"
	KindFunctionExpected         Kind = "FunctionExpected"
	KindVariableNotFound         Kind = "VariableNotFound"
	KindWrongArgumentsLength     Kind = "WrongArgumentsLength"
	KindNoAlternativeFound       Kind = "NoAlternativeFound"
	KindForeignDefinitionNotFound Kind = "ForeignDefinitionNotFound"

	// Structural errors (C5), fatal.
	KindCircularInitialization Kind = "CircularInitialization"

	// Build errors (C6), internal bugs propagated rather than recovered.
	KindBuildFailure Kind = "BuildFailure"
)

// Info describes a Kind the way ailang's errors.ErrorInfo describes a code:
// phase, category, one-line description.
type Info struct {
	Kind        Kind
	Phase       string
	Category    string
	Description string
}

// Registry maps every Kind to its Info, mirroring ailang's ErrorRegistry.
var Registry = map[Kind]Info{
	KindTypesNotMatched:          {KindTypesNotMatched, "typecheck", "type", "Type mismatch"},
	KindFunctionExpected:         {KindFunctionExpected, "typecheck", "type", "Function type expected in applied position"},
	KindVariableNotFound:         {KindVariableNotFound, "typecheck", "scope", "Variable not found"},
	KindWrongArgumentsLength:     {KindWrongArgumentsLength, "typecheck", "arity", "Wrong number of arguments"},
	KindNoAlternativeFound:       {KindNoAlternativeFound, "typecheck", "case", "No matching case alternative and no default"},
	KindForeignDefinitionNotFound: {KindForeignDefinitionNotFound, "typecheck", "foreign", "Foreign definition not found"},
	KindCircularInitialization:   {KindCircularInitialization, "initsort", "dependency", "Circular value initialization"},
	KindBuildFailure:             {KindBuildFailure, "lower", "build", "Invalid LL-IR fragment constructed by the lowerer"},
}

// Error is the single error type exported across the pass. It is returned as
// a plain `error` so callers can keep using errors.As/errors.Is, but every
// value constructed by this module carries a Kind.
type Error struct {
	Kind    Kind
	Subject string // e.g. variable name, expected/found rendering, foreign name
	Detail  string // free-form additional context
}

func (e *Error) Error() string {
	info := Registry[e.Kind]
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s (%s)", info.Kind, info.Description, e.Subject)
	}
	return fmt.Sprintf("%s: %s (%s): %s", info.Kind, info.Description, e.Subject, e.Detail)
}

// New constructs an *Error for the given kind.
func New(kind Kind, subject, detail string) *Error {
	return &Error{Kind: kind, Subject: subject, Detail: detail}
}

// TypesNotMatched builds the TypesNotMatched error with expected/found
// renderings as the subject (spec.md §4.4).
func TypesNotMatched(expected, found fmt.Stringer) *Error {
	return New(KindTypesNotMatched, fmt.Sprintf("expected %s, found %s", expected, found), "")
}

// FunctionExpected builds the FunctionExpected error for an applied-position
// expression rendering.
func FunctionExpected(exprRendering string) *Error {
	return New(KindFunctionExpected, exprRendering, "")
}

// VariableNotFound builds the VariableNotFound error.
func VariableNotFound(name string) *Error {
	return New(KindVariableNotFound, name, "")
}

// WrongArgumentsLength builds the WrongArgumentsLength error.
func WrongArgumentsLength(what string, expected, found int) *Error {
	return New(KindWrongArgumentsLength, what, fmt.Sprintf("expected %d, found %d", expected, found))
}

// NoAlternativeFound builds the NoAlternativeFound error for a case
// expression with no alternatives and no default.
func NoAlternativeFound(caseRendering string) *Error {
	return New(KindNoAlternativeFound, caseRendering, "")
}

// ForeignDefinitionNotFound builds the ForeignDefinitionNotFound error.
func ForeignDefinitionNotFound(name string) *Error {
	return New(KindForeignDefinitionNotFound, name, "")
}

// CircularInitialization builds the CircularInitialization error, carrying
// the cycle path the way ailang's link.CycleError does.
func CircularInitialization(cycle []string) *Error {
	detail := ""
	for i, n := range cycle {
		if i > 0 {
			detail += " -> "
		}
		detail += n
	}
	return New(KindCircularInitialization, detail, "")
}

// BuildFailure builds the BuildFailure error for an internal LL-IR
// construction bug.
func BuildFailure(what, detail string) *Error {
	return New(KindBuildFailure, what, detail)
}

// IsTypeError reports whether err is a *Error with a typecheck-phase Kind.
func IsTypeError(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return Registry[e.Kind].Phase == "typecheck"
}
