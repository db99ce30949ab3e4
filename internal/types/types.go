// Package types implements the SF-IR type model (C1): primitive, function,
// algebraic and de-Bruijn index types, plus canonicalization and one-step
// unfolding of recursive algebraics.
package types

import (
	"fmt"
	"strings"
)

// PrimitiveKind enumerates the scalar types SF-IR carries through unchanged
// to LL-IR.
type PrimitiveKind int

const (
	Float32 PrimitiveKind = iota
	Float64
	Int8
	Int32
	Int64
	PointerInt
	PointerByte
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
	case PointerByte:
		return "pointer_byte"
	default:
		return fmt.Sprintf("primitive(%d)", int(k))
	}
}

// Type is the SF-IR type sum: Primitive, Function, Algebraic, Index.
type Type interface {
	fmt.Stringer
	sfType()
}

// Primitive is a scalar type.
type Primitive struct {
	Kind PrimitiveKind
}

func (Primitive) sfType() {}
func (p Primitive) String() string { return p.Kind.String() }

// Function is a curried function type, always with at least one argument.
type Function struct {
	Args   []Type
	Result Type
}

func (Function) sfType() {}

func (f Function) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), f.Result)
}

// Constructor is one alternative of an Algebraic type.
type Constructor struct {
	Elements []Type
	Boxed    bool
}

// Algebraic is a recursive sum-of-products type. Constructors are kept in
// both a map (tag lookup) and the canonical tag order used for union-member
// indexing downstream (§6.2).
type Algebraic struct {
	Tags         []int // canonical order, parallel to Constructors
	Constructors map[int]Constructor
}

func (Algebraic) sfType() {}

// OrderedConstructors returns the constructors in canonical tag order.
func (a Algebraic) OrderedConstructors() []Constructor {
	out := make([]Constructor, len(a.Tags))
	for i, t := range a.Tags {
		out[i] = a.Constructors[t]
	}
	return out
}

// IsSingleton reports whether the algebraic has exactly one constructor
// (§4.6.5: singleton algebraics emit no tag field).
func (a Algebraic) IsSingleton() bool { return len(a.Tags) == 1 }

func (a Algebraic) String() string {
	parts := make([]string, len(a.Tags))
	for i, tag := range a.Tags {
		c := a.Constructors[tag]
		elems := make([]string, len(c.Elements))
		for j, e := range c.Elements {
			elems[j] = e.String()
		}
		boxed := ""
		if c.Boxed {
			boxed = "*"
		}
		parts[i] = fmt.Sprintf("%d%s(%s)", tag, boxed, strings.Join(elems, ", "))
	}
	return fmt.Sprintf("algebraic{%s}", strings.Join(parts, " | "))
}

// Index is a de Bruijn back-reference to the i-th enclosing Algebraic,
// innermost = 0.
type Index struct {
	I int
}

func (Index) sfType() {}
func (ix Index) String() string { return fmt.Sprintf("#%d", ix.I) }

// NewAlgebraic builds an Algebraic from constructors given in canonical tag
// order, assigning consecutive tags starting at 0 (mirrors
// ssf::types::Algebraic::new in the original source, which always assigns
// tags by position).
func NewAlgebraic(ctors ...Constructor) Algebraic {
	a := Algebraic{Constructors: make(map[int]Constructor, len(ctors))}
	for i, c := range ctors {
		a.Tags = append(a.Tags, i)
		a.Constructors[i] = c
	}
	return a
}

// WithTags builds an Algebraic from an explicit tag -> Constructor map plus
// its canonical tag order (used by Canonicalize/Unfold, which must preserve
// the original tag numbering while still walking in the stored order).
func WithTags(order []int, ctors map[int]Constructor) Algebraic {
	return Algebraic{Tags: order, Constructors: ctors}
}
