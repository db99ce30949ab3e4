package types

import "reflect"

// Canonicalize folds a type tree so that any Algebraic structurally equal
// (up to de Bruijn shift) to one of its ancestors in the traversal is
// replaced by an Index referencing that ancestor, and so that two
// α-equivalent canonical types are bit-identical (spec.md §4.1).
//
// Grounded on ssf::types::canonicalize::TypeCanonicalizer: a canonicalizer
// carries the stack of enclosing Algebraics seen so far and, on encountering
// a new Algebraic, first checks it for structural equality against every
// ancestor before recursing into a canonicalizer with itself pushed.
func Canonicalize(t Type) Type {
	return (&canonicalizer{}).canonicalize(t)
}

type canonicalizer struct {
	ancestors []Algebraic
}

func (c *canonicalizer) canonicalize(t Type) Type {
	switch v := t.(type) {
	case Primitive:
		return v
	case Index:
		return v
	case Function:
		args := make([]Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = c.canonicalize(a)
		}
		return Function{Args: args, Result: c.canonicalize(v.Result)}
	case Algebraic:
		return c.canonicalizeAlgebraic(v)
	default:
		return t
	}
}

func (c *canonicalizer) canonicalizeAlgebraic(a Algebraic) Type {
	for i, ancestor := range c.ancestors {
		if equalAlgebraics(newEqChecker(c.ancestors), a, ancestor) {
			return Index{I: i}
		}
	}

	inner := &canonicalizer{ancestors: append([]Algebraic{a}, c.ancestors...)}

	ctors := make(map[int]Constructor, len(a.Constructors))
	for tag, ctor := range a.Constructors {
		elems := make([]Type, len(ctor.Elements))
		for i, e := range ctor.Elements {
			elems[i] = inner.canonicalize(e)
		}
		ctors[tag] = Constructor{Elements: elems, Boxed: ctor.Boxed}
	}
	return WithTags(a.Tags, ctors)
}

// Equal reports whether two canonical (or non-canonical) types are
// structurally equal, including equirecursive algebraics, via the
// paired-stack walk described in spec.md §4.1.
func Equal(a, b Type) bool {
	return newEqChecker(nil).equal(a, b)
}

// eqChecker implements ssf::types::canonicalize::TypeEqualityChecker: a
// stack of (left, right) Algebraic pairs already assumed equal, consulted
// whenever an Index is encountered so that finite checking of infinite
// equirecursive types terminates.
type eqChecker struct {
	pairs []eqPair
}

type eqPair struct {
	left, right Algebraic
}

// newEqChecker seeds the pair stack with self-pairs for every ancestor on
// the canonicalizer's stack, matching TypeEqualityChecker::new(types) in the
// original, which zips a single ancestor list against itself.
func newEqChecker(ancestors []Algebraic) *eqChecker {
	pairs := make([]eqPair, len(ancestors))
	for i, a := range ancestors {
		pairs[i] = eqPair{left: a, right: a}
	}
	return &eqChecker{pairs: pairs}
}

func (c *eqChecker) pushPair(l, r Algebraic) *eqChecker {
	return &eqChecker{pairs: append([]eqPair{{left: l, right: r}}, c.pairs...)}
}

func (c *eqChecker) equal(a, b Type) bool {
	switch l := a.(type) {
	case Primitive:
		r, ok := b.(Primitive)
		return ok && l.Kind == r.Kind
	case Function:
		r, ok := b.(Function)
		if !ok || len(l.Args) != len(r.Args) {
			return false
		}
		for i := range l.Args {
			if !c.equal(l.Args[i], r.Args[i]) {
				return false
			}
		}
		return c.equal(l.Result, r.Result)
	case Algebraic:
		switch r := b.(type) {
		case Algebraic:
			return equalAlgebraics(c, l, r)
		case Index:
			if r.I >= len(c.pairs) {
				return false
			}
			return equalAlgebraics(c, l, c.pairs[r.I].right)
		}
		return false
	case Index:
		switch r := b.(type) {
		case Algebraic:
			if l.I >= len(c.pairs) {
				return false
			}
			return equalAlgebraics(c, c.pairs[l.I].left, r)
		case Index:
			if l.I >= len(c.pairs) || r.I >= len(c.pairs) {
				return l.I == r.I
			}
			return equalAlgebraics(c, c.pairs[l.I].left, c.pairs[r.I].right)
		}
		return false
	default:
		return false
	}
}

func equalAlgebraics(c *eqChecker, a, b Algebraic) bool {
	if len(a.Tags) != len(b.Tags) {
		return false
	}
	for _, p := range c.pairs {
		if sameAlgebraic(p.left, a) && sameAlgebraic(p.right, b) {
			return true
		}
	}

	inner := c.pushPair(a, b)
	for i, tag := range a.Tags {
		otherTag := b.Tags[i]
		ca, cb := a.Constructors[tag], b.Constructors[otherTag]
		if !equalConstructors(inner, ca, cb) {
			return false
		}
	}
	return true
}

func equalConstructors(c *eqChecker, a, b Constructor) bool {
	if a.Boxed != b.Boxed || len(a.Elements) != len(b.Elements) {
		return false
	}
	for i := range a.Elements {
		if !c.equal(a.Elements[i], b.Elements[i]) {
			return false
		}
	}
	return true
}

// sameAlgebraic reports whether a and b are written identically (same tags,
// boxing and element types, compared with reflect.DeepEqual). It is used only
// to detect "already assumed equal" pairs already on the stack, matching the
// Rust original's value comparison against its pair list; it does not itself
// unfold Index references.
func sameAlgebraic(a, b Algebraic) bool {
	return reflect.DeepEqual(a, b)
}
