package sfir

// FreeVariables returns the set of variables referenced but not bound within
// expr (spec.md §4.2). Bindings come from function arguments, Let,
// LetRecursive, constructor/case alternative element names, and default
// alternative variables.
//
// Grounded on the binder-walking shape ailang's elaborator uses when
// tracking scope (internal/elaborate/elaborate.go): a bound-set threaded
// down through every binding form, with variables outside it reported up.
func FreeVariables(expr Expr) map[string]struct{} {
	free := map[string]struct{}{}
	walk(expr, map[string]struct{}{}, free)
	return free
}

func walk(expr Expr, bound map[string]struct{}, free map[string]struct{}) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case Variable:
		if _, isBound := bound[e.Name]; !isBound {
			free[e.Name] = struct{}{}
		}
	case Primitive:
		// no references
	case PrimitiveOperation:
		walk(e.Lhs, bound, free)
		walk(e.Rhs, bound, free)
	case ConstructorApplication:
		for _, a := range e.Args {
			walk(a, bound, free)
		}
	case FunctionApplication:
		walk(e.Fn, bound, free)
		for _, a := range e.Args {
			walk(a, bound, free)
		}
	case Let:
		walk(e.Bound, bound, free)
		inner := extend(bound, e.Name)
		walk(e.Body, inner, free)
	case LetRecursive:
		inner := bound
		for _, d := range e.Defs {
			inner = extend(inner, d.Name)
		}
		for _, d := range e.Defs {
			argBound := inner
			for _, a := range d.Args {
				argBound = extend(argBound, a.Name)
			}
			walk(d.Body, argBound, free)
		}
		walk(e.Body, inner, free)
	case Bitcast:
		walk(e.Expr, bound, free)
	case Case:
		walk(e.Scrutinee, bound, free)
		for _, alt := range e.AlgebraicAlts {
			inner := bound
			for _, name := range alt.Elements {
				inner = extend(inner, name)
			}
			walk(alt.Body, inner, free)
		}
		for _, alt := range e.PrimitiveAlts {
			walk(alt.Body, bound, free)
		}
		if e.HasDefault {
			inner := bound
			if e.DefaultVar != "" {
				inner = extend(inner, e.DefaultVar)
			}
			walk(e.Default, inner, free)
		}
	}
}

func extend(bound map[string]struct{}, name string) map[string]struct{} {
	out := make(map[string]struct{}, len(bound)+1)
	for k := range bound {
		out[k] = struct{}{}
	}
	out[name] = struct{}{}
	return out
}

// Environment computes a Definition's capture list: FreeVariables(body) -
// globals - argumentNames(d), as an ordered (deterministic) slice of
// Argument (spec.md §4.2 invariant). Types for captured names are taken from
// d.Env when already present (re-inference must be idempotent, spec.md §4.2
// and §8), else left zero-valued for the caller to fill in from its own type
// environment.
func Environment(d *Definition, globals map[string]struct{}) []Argument {
	free := FreeVariables(d.Body)
	bound := map[string]struct{}{}
	for _, a := range d.Args {
		bound[a.Name] = struct{}{}
	}

	var names []string
	for name := range free {
		if _, isGlobal := globals[name]; isGlobal {
			continue
		}
		if _, isArg := bound[name]; isArg {
			continue
		}
		names = append(names, name)
	}
	return namesToArgsSorted(names, d.Env)
}

// namesToArgsSorted returns, for each name, the Argument already recorded in
// existingEnv if present (to preserve caller-assigned types), in a stable
// sorted order so Environment is a pure function of its inputs (idempotence,
// spec.md §4.2/§8).
func namesToArgsSorted(names []string, existingEnv []Argument) []Argument {
	byName := make(map[string]Argument, len(existingEnv))
	for _, a := range existingEnv {
		byName[a.Name] = a
	}
	sorted := append([]string(nil), names...)
	insertionSortStrings(sorted)

	out := make([]Argument, 0, len(sorted))
	for _, n := range sorted {
		if a, ok := byName[n]; ok {
			out = append(out, a)
		} else {
			out = append(out, Argument{Name: n})
		}
	}
	return out
}

func insertionSortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
