package types

// Unfold produces the one-step unfolded version of an algebraic: every Index
// inside its constructors' element types that refers to the algebraic itself
// (Index(0) at the top level, Index(d) under d nested algebraics) is replaced
// by the algebraic, and each resulting element type is canonicalized. All
// other indexes are left unchanged; the result keeps the algebraic's own
// outer layer, so no index is shifted (spec.md §4.1).
//
// Grounded on ssf::types::unfold::TypeUnfolder, which tracks how many
// Algebraic layers it has descended through (`index`) and only substitutes
// an Index matching that depth.
func Unfold(a Algebraic) Algebraic {
	u := &unfolder{root: a, depth: 0}
	ctors := make(map[int]Constructor, len(a.Constructors))
	for tag, ctor := range a.Constructors {
		elems := make([]Type, len(ctor.Elements))
		for i, e := range ctor.Elements {
			elems[i] = Canonicalize(u.unfold(e))
		}
		ctors[tag] = Constructor{Elements: elems, Boxed: ctor.Boxed}
	}
	return WithTags(a.Tags, ctors)
}

type unfolder struct {
	root  Algebraic
	depth int
}

func (u *unfolder) deeper() *unfolder {
	return &unfolder{root: u.root, depth: u.depth + 1}
}

func (u *unfolder) unfold(t Type) Type {
	switch v := t.(type) {
	case Primitive:
		return v
	case Function:
		args := make([]Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = u.unfold(a)
		}
		return Function{Args: args, Result: u.unfold(v.Result)}
	case Algebraic:
		return u.unfoldAlgebraic(v)
	case Index:
		if v.I == u.depth {
			return u.root
		}
		return v
	default:
		return t
	}
}

func (u *unfolder) unfoldAlgebraic(a Algebraic) Algebraic {
	inner := u.deeper()
	ctors := make(map[int]Constructor, len(a.Constructors))
	for tag, ctor := range a.Constructors {
		elems := make([]Type, len(ctor.Elements))
		for i, e := range ctor.Elements {
			elems[i] = inner.unfold(e)
		}
		ctors[tag] = Constructor{Elements: elems, Boxed: ctor.Boxed}
	}
	return WithTags(a.Tags, ctors)
}
