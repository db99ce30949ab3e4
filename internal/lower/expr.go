package lower

import (
	"sort"

	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/llir"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/typecheck"
	"github.com/sfir-lang/sfirc/internal/types"
)

// exprCtx carries everything one expression-lowering call needs: the
// Lowerer itself (fresh names, module being built, adapter cache), the
// type environment used to recompute sub-expression types on demand
// (sftype.go), the current value bindings (locals shadowing globals), and
// the instruction stream this expression appends to as it lowers.
type exprCtx struct {
	l      *Lowerer
	tenv   *typecheck.Env
	vals   map[string]llir.Expr
	instrs *[]llir.Instruction
}

func (ctx *exprCtx) with(name string, val llir.Expr) *exprCtx {
	vals := make(map[string]llir.Expr, len(ctx.vals)+1)
	for k, v := range ctx.vals {
		vals[k] = v
	}
	vals[name] = val
	return &exprCtx{l: ctx.l, tenv: ctx.tenv, vals: vals, instrs: ctx.instrs}
}

// lower dispatches one SF-IR expression to its LL-IR lowering, mirroring
// ssf-fmm/src/expressions.rs's compile_expression match arms.
func (ctx *exprCtx) lower(e sfir.Expr) (llir.Expr, error) {
	switch x := e.(type) {
	case sfir.Variable:
		if v, ok := ctx.vals[x.Name]; ok {
			return v, nil
		}
		return ctx.l.globalRef(x.Name), nil

	case sfir.Primitive:
		return llir.PrimitiveValue{Type: llirPrimitiveType(x.Type).(llir.Primitive), Value: x.Value}, nil

	case sfir.PrimitiveOperation:
		return ctx.lowerPrimitiveOperation(x)

	case sfir.Bitcast:
		inner, err := ctx.lower(x.Expr)
		if err != nil {
			return nil, err
		}
		name := ctx.l.fresh.Next()
		resultType := llirType(x.Type)
		*ctx.instrs = append(*ctx.instrs, llir.Bitcast{Expr: inner, Type: resultType, Name: name})
		return llir.Variable{Name: name, Type: resultType}, nil

	case sfir.ConstructorApplication:
		return ctx.lowerConstructorApplication(x)

	case sfir.FunctionApplication:
		return ctx.lowerFunctionApplication(x)

	case sfir.Let:
		bound, err := ctx.lower(x.Bound)
		if err != nil {
			return nil, err
		}
		inner := ctx.with(x.Name, bound)
		inner.tenv = ctx.tenv.With(x.Name, types.Canonicalize(x.Type))
		return inner.lower(x.Body)

	case sfir.LetRecursive:
		return ctx.lowerLetRecursive(x)

	case sfir.Case:
		return ctx.lowerCase(x)
	}
	return nil, diag.BuildFailure("lower", "unrecognized expression node during lowering")
}

func (ctx *exprCtx) lowerPrimitiveOperation(x sfir.PrimitiveOperation) (llir.Expr, error) {
	lhs, err := ctx.lower(x.Lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.lower(x.Rhs)
	if err != nil {
		return nil, err
	}
	name := ctx.l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.PrimitiveOperation{Op: llir.PrimOp(x.Op), Lhs: lhs, Rhs: rhs, Name: name})

	resultType, err := sfType(ctx.tenv, x)
	if err != nil {
		return nil, err
	}
	return llir.Variable{Name: name, Type: llirType(resultType)}, nil
}

func (ctx *exprCtx) lowerFunctionApplication(x sfir.FunctionApplication) (llir.Expr, error) {
	fnSFType, err := sfType(ctx.tenv, x.Fn)
	if err != nil {
		return nil, err
	}
	fnType, ok := fnSFType.(types.Function)
	if !ok {
		return nil, diag.FunctionExpected(x.String())
	}
	fn, err := ctx.lower(x.Fn)
	if err != nil {
		return nil, err
	}
	args := make([]llir.Expr, len(x.Args))
	for i, a := range x.Args {
		v, err := ctx.lower(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return ctx.lowerApplication(fnType, fn, args)
}

// lowerConstructorApplication builds one constructor instance's record
// value at runtime: a boxed constructor allocates its payload on the heap
// and stores the element values into it, otherwise the payload is built
// inline (spec.md §4.6.5).
func (ctx *exprCtx) lowerConstructorApplication(c sfir.ConstructorApplication) (llir.Expr, error) {
	unfolded := types.Unfold(c.Algebraic)
	ctor := unfolded.Constructors[c.Tag]

	fieldVals := make([]llir.Expr, len(c.Args))
	for i, a := range c.Args {
		v, err := ctx.lower(a)
		if err != nil {
			return nil, err
		}
		fieldVals[i] = v
	}

	payloadRecType := llir.Record{Fields: llirTypes(ctor.Elements)}
	var payload llir.Expr = llir.RecordValue{Type: payloadRecType, Fields: fieldVals}

	if ctor.Boxed {
		heapName := ctx.l.fresh.Next()
		*ctx.instrs = append(*ctx.instrs, llir.AllocateHeap{Type: payloadRecType, Name: heapName})
		heapPtr := llir.Variable{Name: heapName, Type: llir.Pointer{Element: payloadRecType}}
		*ctx.instrs = append(*ctx.instrs, llir.Store{Value: payload, Ptr: heapPtr})
		payload = heapPtr
	}

	return constructorInstanceValue(c.Algebraic, c.Tag, payloadRecType, payload), nil
}

// lowerCase compiles a Case expression into a stack slot written by exactly
// one of several branches, then read back (spec.md §4.6.5): an algebraic
// scrutinee switches on its tag field, a primitive scrutinee walks its
// alternatives as an equality-chained if/else, and either may fall through
// to an explicit default, or to Unreachable when the original module was
// accepted non-exhaustively (spec.md §4.4 — the checker allows this; the
// lowered form assumes it never actually happens at runtime).
func (ctx *exprCtx) lowerCase(c sfir.Case) (llir.Expr, error) {
	resultSFType, err := sfCaseType(ctx.tenv, c)
	if err != nil {
		return nil, err
	}
	resultType := llirType(resultSFType)

	scrutVal, err := ctx.lower(c.Scrutinee)
	if err != nil {
		return nil, err
	}

	slotName := ctx.l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.AllocateStack{Type: resultType, Name: slotName})
	slot := llir.Variable{Name: slotName, Type: llir.Pointer{Element: resultType}}

	if len(c.AlgebraicAlts) > 0 {
		if err := ctx.lowerAlgebraicCase(c, slot, resultType); err != nil {
			return nil, err
		}
	} else {
		if err := ctx.lowerPrimitiveCase(c, scrutVal, slot, resultType); err != nil {
			return nil, err
		}
	}

	loadName := ctx.l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.Load{Ptr: slot, Name: loadName})
	return llir.Variable{Name: loadName, Type: resultType}, nil
}

func (ctx *exprCtx) lowerAlgebraicCase(c sfir.Case, slot llir.Variable, resultType llir.Type) error {
	scrutType, err := sfType(ctx.tenv, c.Scrutinee)
	if err != nil {
		return err
	}
	algebraic, ok := scrutType.(types.Algebraic)
	if !ok {
		return diag.BuildFailure("lower", "case scrutinee is not algebraic during lowering")
	}
	scrutVal, err := ctx.lower(c.Scrutinee)
	if err != nil {
		return err
	}

	if algebraic.IsSingleton() {
		alt := c.AlgebraicAlts[0]
		body, err := ctx.lowerAlgebraicAlt(algebraic, alt, scrutVal, 0)
		if err != nil {
			return err
		}
		*body.instrs = append(*body.instrs, llir.Store{Value: body.result, Ptr: slot})
		*ctx.instrs = append(*ctx.instrs, *body.instrs...)
		return nil
	}

	tagName := ctx.l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.DeconstructRecord{Record: scrutVal, FieldIdx: 0, Name: tagName})
	tagVal := llir.Variable{Name: tagName, Type: llir.Primitive{Kind: llir.PointerInt}}

	alternatives := make([]llir.SwitchAlternative, 0, len(c.AlgebraicAlts))
	for _, alt := range c.AlgebraicAlts {
		body, err := ctx.lowerAlgebraicAlt(algebraic, alt, scrutVal, 1)
		if err != nil {
			return err
		}
		branch := append(*body.instrs, llir.Store{Value: body.result, Ptr: slot})
		alternatives = append(alternatives, llir.SwitchAlternative{Tag: alt.Tag, Body: branch})
	}

	var defaultBranch []llir.Instruction
	hasDefault := c.HasDefault
	if hasDefault {
		inner := ctx
		if c.DefaultVar != "" {
			inner = ctx.with(c.DefaultVar, scrutVal)
			inner.tenv = ctx.tenv.With(c.DefaultVar, algebraic)
		}
		var branchInstrs []llir.Instruction
		branchCtx := &exprCtx{l: ctx.l, tenv: inner.tenv, vals: inner.vals, instrs: &branchInstrs}
		result, err := branchCtx.lower(c.Default)
		if err != nil {
			return err
		}
		branchInstrs = append(branchInstrs, llir.Store{Value: result, Ptr: slot})
		defaultBranch = branchInstrs
	} else {
		defaultBranch = []llir.Instruction{llir.Unreachable{}}
	}

	*ctx.instrs = append(*ctx.instrs, llir.Switch{
		Cond:         tagVal,
		Alternatives: alternatives,
		Default:      defaultBranch,
		HasDefault:   true,
	})
	return nil
}

type altResult struct {
	instrs *[]llir.Instruction
	result llir.Expr
}

// lowerAlgebraicAlt extracts an alternative's bound element names out of
// scrutVal's payload field (at payloadFieldIdx) and lowers its body under
// them. A zero-element constructor binds nothing and needs no payload field
// access at all, mirroring how such a constructor is built with no payload
// field in the first place (spec.md §8 scenario 3).
func (ctx *exprCtx) lowerAlgebraicAlt(algebraic types.Algebraic, alt sfir.AlgebraicAlternative, scrutVal llir.Expr, payloadFieldIdx int) (altResult, error) {
	var instrs []llir.Instruction
	vals := map[string]llir.Expr{}
	for k, v := range ctx.vals {
		vals[k] = v
	}
	tenv := ctx.tenv

	unfolded := types.Unfold(algebraic)
	ctor := unfolded.Constructors[alt.Tag]

	if len(alt.Elements) > 0 {
		members := make([]llir.Type, len(algebraic.Tags))
		memberIdx := 0
		for i, t := range algebraic.Tags {
			members[i] = constructorPayloadType(algebraic.Constructors[t])
			if t == alt.Tag {
				memberIdx = i
			}
		}
		unionType := llir.Union{Members: members}

		unionLoadName := ctx.l.fresh.Next()
		instrs = append(instrs, llir.DeconstructRecord{Record: scrutVal, FieldIdx: payloadFieldIdx, Name: unionLoadName})
		unionVal := llir.Variable{Name: unionLoadName, Type: unionType}

		memberType := constructorPayloadType(algebraic.Constructors[alt.Tag])
		castName := ctx.l.fresh.Next()
		instrs = append(instrs, llir.Bitcast{Expr: unionVal, Type: memberType, Name: castName})
		payloadVal := llir.Variable{Name: castName, Type: memberType}

		boxed := algebraic.Constructors[alt.Tag].Boxed
		for i, name := range alt.Elements {
			elemType := llirType(ctor.Elements[i])
			if boxed {
				addrName := ctx.l.fresh.Next()
				instrs = append(instrs, llir.AddressCalculation{Ptr: payloadVal, Indices: []int{i}, Name: addrName})
				loadName := ctx.l.fresh.Next()
				instrs = append(instrs, llir.Load{Ptr: llir.Variable{Name: addrName, Type: llir.Pointer{Element: elemType}}, Name: loadName})
				vals[name] = llir.Variable{Name: loadName, Type: elemType}
			} else {
				elemName := ctx.l.fresh.Next()
				instrs = append(instrs, llir.DeconstructRecord{Record: payloadVal, FieldIdx: i, Name: elemName})
				vals[name] = llir.Variable{Name: elemName, Type: elemType}
			}
			tenv = tenv.With(name, ctor.Elements[i])
		}
	}

	branchCtx := &exprCtx{l: ctx.l, tenv: tenv, vals: vals, instrs: &instrs}
	result, err := branchCtx.lower(alt.Body)
	if err != nil {
		return altResult{}, err
	}
	return altResult{instrs: &instrs, result: result}, nil
}

func (ctx *exprCtx) lowerPrimitiveCase(c sfir.Case, scrutVal llir.Expr, slot llir.Variable, resultType llir.Type) error {
	return ctx.lowerPrimitiveAlts(c.PrimitiveAlts, c, scrutVal, slot, resultType)
}

func (ctx *exprCtx) lowerPrimitiveAlts(alts []sfir.PrimitiveAlternative, c sfir.Case, scrutVal llir.Expr, slot llir.Variable, resultType llir.Type) error {
	if len(alts) == 0 {
		if c.HasDefault {
			inner := ctx
			if c.DefaultVar != "" {
				scrutType, err := sfType(ctx.tenv, c.Scrutinee)
				if err != nil {
					return err
				}
				inner = ctx.with(c.DefaultVar, scrutVal)
				inner.tenv = ctx.tenv.With(c.DefaultVar, scrutType)
			}
			result, err := inner.lower(c.Default)
			if err != nil {
				return err
			}
			*ctx.instrs = append(*ctx.instrs, llir.Store{Value: result, Ptr: slot})
			return nil
		}
		*ctx.instrs = append(*ctx.instrs, llir.Unreachable{})
		return nil
	}

	alt := alts[0]
	litType := exprType(scrutVal).(llir.Primitive)
	cmpName := ctx.l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.PrimitiveOperation{
		Op:   "eq",
		Lhs:  scrutVal,
		Rhs:  llir.PrimitiveValue{Type: litType, Value: alt.Literal},
		Name: cmpName,
	})

	var thenBranch []llir.Instruction
	thenCtx := &exprCtx{l: ctx.l, tenv: ctx.tenv, vals: ctx.vals, instrs: &thenBranch}
	thenResult, err := thenCtx.lower(alt.Body)
	if err != nil {
		return err
	}
	thenBranch = append(thenBranch, llir.Store{Value: thenResult, Ptr: slot})

	var elseBranch []llir.Instruction
	elseCtx := &exprCtx{l: ctx.l, tenv: ctx.tenv, vals: ctx.vals, instrs: &elseBranch}
	if err := elseCtx.lowerPrimitiveAlts(alts[1:], c, scrutVal, slot, resultType); err != nil {
		return err
	}

	*ctx.instrs = append(*ctx.instrs, llir.If{
		Cond: llir.Variable{Name: cmpName, Type: llir.Primitive{Kind: llir.Int8}},
		Then: thenBranch,
		Else: elseBranch,
	})
	return nil
}

// lowerLetRecursive compiles a group of mutually recursive local function
// bindings: every closure is heap-allocated first so each sibling's address
// is known, then every closure's captured environment (which may itself
// reference those same addresses) is written in a second pass — the same
// two-step "allocate, then wire" shape a top-level mutually recursive
// function group gets for free from static addressing (spec.md §4.5,
// §4.6.2).
func (ctx *exprCtx) lowerLetRecursive(lr sfir.LetRecursive) (llir.Expr, error) {
	for _, d := range lr.Defs {
		if len(d.Args) == 0 {
			return nil, diag.BuildFailure("lower", "non-function recursive local binding is not supported: "+d.Name)
		}
	}

	l := ctx.l
	n := len(lr.Defs)
	heapNames := make([]string, n)
	entryNames := make([]string, n)
	entryTypes := make([]llir.Function, n)
	closureTypes := make([]llir.Record, n)
	envArgsPerDef := make([][]llirArg, n)

	extVals := make(map[string]llir.Expr, len(ctx.vals)+n)
	for k, v := range ctx.vals {
		extVals[k] = v
	}
	groupTenv := ctx.tenv
	for _, d := range lr.Defs {
		groupTenv = groupTenv.With(d.Name, recDefType(d))
	}

	siblingNames := make(map[string]struct{}, n)
	for _, d := range lr.Defs {
		siblingNames[d.Name] = struct{}{}
	}

	for i, d := range lr.Defs {
		envArgs := captureList(d, ctx.vals, siblingNames)
		envArgsPerDef[i] = envArgs
		envRecType := environmentRecordType(envArgs)
		formalArgs := toLLArgs(d.Args)
		resultType := llirType(d.Type)
		entryTypes[i] = entryFunctionType(llirArgTypes(formalArgs), resultType)
		closureTypes[i] = llir.Record{Fields: []llir.Type{llir.Pointer{Element: entryTypes[i]}, llir.Primitive{Kind: llir.PointerInt}, envRecType}}
		heapNames[i] = l.fresh.Next()
		extVals[d.Name] = llir.Variable{Name: heapNames[i], Type: llir.Pointer{Element: closureTypes[i]}}
	}

	// Pass 1: emit every sibling's entry function and allocate its heap
	// record, so every closure's address is known before any of their
	// captured environments (which may reference each other) are written.
	for i, d := range lr.Defs {
		envArgs := envArgsPerDef[i]
		envRecType := environmentRecordType(envArgs)
		formalArgs := toLLArgs(d.Args)
		resultType := llirType(d.Type)
		entryNames[i] = l.fresh.Next() + "_" + d.Name + "_entry"

		prologue, vals := l.buildEnvironmentPrologue(envArgs, envRecType)
		for _, a := range formalArgs {
			vals[a.name] = llir.Variable{Name: a.name, Type: a.llType}
		}

		localTenv := groupTenv.WithAll(d.Args)
		bodyCtx := &exprCtx{l: l, tenv: localTenv, vals: vals, instrs: &prologue}
		result, err := bodyCtx.lower(d.Body)
		if err != nil {
			return nil, err
		}
		prologue = append(prologue, llir.Return{Expr: result})

		fnArgs := make([]llir.Argument, 0, len(formalArgs)+1)
		fnArgs = append(fnArgs, llir.Argument{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}})
		for _, a := range formalArgs {
			fnArgs = append(fnArgs, llir.Argument{Name: a.name, Type: a.llType})
		}
		l.out.AddFunctionDefinition(llir.FunctionDefinition{
			Name:         entryNames[i],
			Args:         fnArgs,
			Instructions: prologue,
			ResultType:   resultType,
		})

		*ctx.instrs = append(*ctx.instrs, llir.AllocateHeap{Type: closureTypes[i], Name: heapNames[i]})
	}

	// Pass 2: write every closure's record now that every sibling address
	// (including this one's own) is a valid reference.
	for i, d := range lr.Defs {
		envArgs := envArgsPerDef[i]
		envRecType := environmentRecordType(envArgs)
		formalArgs := toLLArgs(d.Args)

		// A sibling capture was given a generic RawClosurePointerType
		// placeholder in captureList (its own concrete closure type isn't
		// known until every sibling in the group has been sized); bitcast it
		// to that placeholder type here so the environment record's actual
		// field values always agree with envRecType's declared field types.
		envFields := make([]llir.Expr, len(envArgs))
		for j, a := range envArgs {
			val := extVals[a.name]
			castName := l.fresh.Next()
			*ctx.instrs = append(*ctx.instrs, llir.Bitcast{Expr: val, Type: a.llType, Name: castName})
			envFields[j] = llir.Variable{Name: castName, Type: a.llType}
		}

		heapPtr := llir.Variable{Name: heapNames[i], Type: llir.Pointer{Element: closureTypes[i]}}
		closureVal := llir.RecordValue{
			Type: closureTypes[i],
			Fields: []llir.Expr{
				llir.Variable{Name: entryNames[i], Type: llir.Pointer{Element: entryTypes[i]}},
				llir.PrimitiveValue{Type: llir.Primitive{Kind: llir.PointerInt}, Value: int64(len(formalArgs))},
				llir.RecordValue{Type: envRecType, Fields: envFields},
			},
		}
		*ctx.instrs = append(*ctx.instrs, llir.Store{Value: closureVal, Ptr: heapPtr})
	}

	finalCtx := &exprCtx{l: l, tenv: groupTenv, vals: extVals, instrs: ctx.instrs}
	return finalCtx.lower(lr.Body)
}

// captureList computes a local recursive function's capture set: its free
// variables minus its own formal arguments, resolved against either the
// enclosing expression's current bindings or a sibling in the same
// recursive group (spec.md §4.2, generalized from top-level Environment to
// an expression-local binding group).
func captureList(d sfir.RecDef, outerVals map[string]llir.Expr, siblings map[string]struct{}) []llirArg {
	free := sfir.FreeVariables(d.Body)
	bound := map[string]struct{}{}
	for _, a := range d.Args {
		bound[a.Name] = struct{}{}
	}

	var names []string
	for name := range free {
		if _, isArg := bound[name]; isArg {
			continue
		}
		_, fromOuter := outerVals[name]
		_, fromSibling := siblings[name]
		if !fromOuter && !fromSibling {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]llirArg, len(names))
	for i, n := range names {
		var t llir.Type
		if v, ok := outerVals[n]; ok {
			t = exprType(v)
		} else {
			t = RawClosurePointerType
		}
		out[i] = llirArg{name: n, llType: t}
	}
	return out
}
