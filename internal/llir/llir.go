// Package llir implements the LL-IR model (C3): the machine-oriented
// target of closure lowering. It is pure data — no lowering logic lives
// here, mirroring the layering in the original SSF/FMM/CMM Rust sources
// (cmm/src/ir/*.rs, ssc/src/ir/*.rs), which split "IR shape" from
// "compilation to IR" into separate crates entirely. Go keeps that split as
// a package boundary: internal/lower is the only package that constructs
// these values from sfir.
package llir

import (
	"fmt"
	"strings"
)

// Type is the LL-IR type sum: Primitive, Pointer, Record, Union, Function.
type Type interface {
	fmt.Stringer
	llType()
}

// PrimitiveKind mirrors types.PrimitiveKind plus the ABI-sized integer used
// pervasively for tags, arities and address arithmetic (spec.md §3.2).
type PrimitiveKind int

const (
	Float32 PrimitiveKind = iota
	Float64
	Int8
	Int32
	Int64
	PointerInt
)

func (k PrimitiveKind) String() string {
	switch k {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case PointerInt:
		return "pointer_int"
	default:
		return fmt.Sprintf("primitive(%d)", int(k))
	}
}

type Primitive struct{ Kind PrimitiveKind }

func (Primitive) llType()         {}
func (p Primitive) String() string { return p.Kind.String() }

// Pointer is a typed pointer to Element.
type Pointer struct{ Element Type }

func (Pointer) llType() {}
func (p Pointer) String() string { return "*" + p.Element.String() }

// Record is a fixed-layout struct; field indexing is positional (spec.md
// §4.3).
type Record struct{ Fields []Type }

func (Record) llType() {}
func (r Record) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

// Union is a tagged-union type; member indices are fixed by the order the
// member types were registered (spec.md §4.3, §6.2: canonical algebraic
// constructor order).
type Union struct{ Members []Type }

func (Union) llType() {}
func (u Union) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.String()
	}
	return fmt.Sprintf("union<%s>", strings.Join(parts, " | "))
}

// Function is an uncurried function type. Every entry function the lowerer
// emits has the shape (env, a1..an) -> result, with a closure environment
// pointer as its first argument (spec.md §4.6.2); a foreign host function's
// declared type carries only its own arguments, with no environment pointer.
type Function struct {
	Args   []Type
	Result Type
}

func (Function) llType() {}
func (f Function) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), f.Result)
}

// Expr is the LL-IR expression sum: Variable, Primitive, Record,
// Union(type, memberIndex, value), Undefined (spec.md §3.2).
type Expr interface {
	fmt.Stringer
	llExpr()
}

type Variable struct {
	Name string
	Type Type
}

func (Variable) llExpr()         {}
func (v Variable) String() string { return v.Name }

type PrimitiveValue struct {
	Type  Primitive
	Value interface{}
}

func (PrimitiveValue) llExpr() {}
func (p PrimitiveValue) String() string { return fmt.Sprintf("%v", p.Value) }

type RecordValue struct {
	Type   Record
	Fields []Expr
}

func (RecordValue) llExpr() {}
func (r RecordValue) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

// UnionValue wraps Value as member MemberIndex of Type.
type UnionValue struct {
	Type        Union
	MemberIndex int
	Value       Expr
}

func (UnionValue) llExpr() {}
func (u UnionValue) String() string {
	return fmt.Sprintf("union<%d>(%s)", u.MemberIndex, u.Value)
}

// Undefined is an uninitialized placeholder value of the given type (used
// for a thunk's not-yet-evaluated payload slot, spec.md §4.7).
type Undefined struct{ Type Type }

func (Undefined) llExpr()         {}
func (u Undefined) String() string { return "undefined" }
