package lower

import (
	"fmt"

	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/llir"
	"github.com/sfir-lang/sfirc/internal/types"
)

// lowerApplication lowers one FunctionApplication against its statically
// known target type fnType (m curried arguments). Three shapes follow
// spec.md §4.6.4 directly, with no runtime dispatch needed beyond the
// over-application case: the type checker has already proven the static
// arity matches the dynamic one everywhere except across that one boundary,
// so — unlike ssf-fmm/src/function_applications.rs's fully general
// recursive decomposition, which also defends against static/dynamic arity
// divergence accumulated through chains of partial application — this
// lowerer only needs a runtime arity check at the one point the type system
// itself does not pin down: how much of an over-applied call's tail lands on
// a function value not known until the first m arguments actually run.
func (ctx *exprCtx) lowerApplication(fnType types.Function, fn llir.Expr, args []llir.Expr) (llir.Expr, error) {
	n, m := len(args), len(fnType.Args)
	switch {
	case n == m:
		return ctx.lowerFullApplication(fnType, fn, args)
	case n < m:
		return ctx.lowerPartialApplication(fnType, fn, args)
	default:
		return ctx.lowerOverApplication(fnType, fn, args)
	}
}

// lowerFullApplication calls a closure with exactly its own arity: bitcast
// the closure value to the generic three-field record, read its entry
// pointer, bitcast that pointer to the concrete uncurried signature this
// call site expects, and call it with the environment pointer followed by
// every argument (spec.md §4.6.1, §6.2 — field 0 entry, field 2 payload
// address, which is what every entry function's own env_ptr parameter
// receives).
func (ctx *exprCtx) lowerFullApplication(fnType types.Function, fn llir.Expr, args []llir.Expr) (llir.Expr, error) {
	l := ctx.l
	resultType := llirType(fnType.Result)
	entryType := entryFunctionType(llirTypes(fnType.Args), resultType)

	castName := l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.Bitcast{Expr: fn, Type: RawClosurePointerType, Name: castName})
	closurePtr := llir.Variable{Name: castName, Type: RawClosurePointerType}

	entryAddrName := l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.AddressCalculation{Ptr: closurePtr, Indices: []int{0}, Name: entryAddrName})
	entryLoadName := l.fresh.Next()
	rawEntryPtrType := llir.Pointer{Element: rawEntryFunctionType}
	*ctx.instrs = append(*ctx.instrs, llir.AtomicLoad{
		Ptr:      llir.Variable{Name: entryAddrName, Type: llir.Pointer{Element: rawEntryPtrType}},
		Ordering: llir.SequentiallyConsistent,
		Name:     entryLoadName,
	})

	payloadAddrName := l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.AddressCalculation{Ptr: closurePtr, Indices: []int{2}, Name: payloadAddrName})
	envPtr := llir.Variable{Name: payloadAddrName, Type: llir.Pointer{Element: UnsizedEnvironmentType}}

	castEntryName := l.fresh.Next()
	concreteEntryPtrType := llir.Pointer{Element: entryType}
	*ctx.instrs = append(*ctx.instrs, llir.Bitcast{
		Expr: llir.Variable{Name: entryLoadName, Type: rawEntryPtrType},
		Type: concreteEntryPtrType,
		Name: castEntryName,
	})

	callArgs := make([]llir.Expr, 0, len(args)+1)
	callArgs = append(callArgs, envPtr)
	callArgs = append(callArgs, args...)

	callName := l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.Call{
		Fn:   llir.Variable{Name: castEntryName, Type: concreteEntryPtrType},
		Args: callArgs,
		Name: callName,
	})
	return llir.Variable{Name: callName, Type: resultType}, nil
}

// lowerPartialApplication synthesizes (or reuses, per
// config.DedupPartialApplicationAdapters) a one-shot adapter closure that
// saves fn and args, and upon receiving the remaining arguments performs one
// full application against fnType. Only one level of adapter is ever built
// per call site — spec.md's own arity arithmetic guarantees the combined
// argument count at the point the adapter actually fires is exactly m, never
// itself partial, so no recursive adapter chain is needed the way a fully
// dynamic calling convention would require.
func (ctx *exprCtx) lowerPartialApplication(fnType types.Function, fn llir.Expr, args []llir.Expr) (llir.Expr, error) {
	l := ctx.l
	n := len(args)
	remainingTypes := fnType.Args[n:]
	remainingLL := llirTypes(remainingTypes)

	savedTypes := make([]llir.Type, 0, len(args)+1)
	savedTypes = append(savedTypes, RawClosurePointerType)
	for _, a := range args {
		savedTypes = append(savedTypes, exprType(a))
	}

	targetEntryType := entryFunctionType(llirTypes(fnType.Args), llirType(fnType.Result))
	key := adapterKey(targetEntryType, savedTypes)

	var entryName string
	if l.cfg.DedupPartialApplicationAdapters {
		if cached, ok := l.adapters[key]; ok {
			entryName = cached
		}
	}
	if entryName == "" {
		var err error
		entryName, err = l.buildPartialApplicationAdapter(fnType, savedTypes, remainingLL)
		if err != nil {
			return nil, err
		}
		if l.cfg.DedupPartialApplicationAdapters {
			l.adapters[key] = entryName
		}
	}

	envRecType := llir.Record{Fields: savedTypes}
	envFields := make([]llir.Expr, 0, len(savedTypes))
	envFields = append(envFields, fn)
	envFields = append(envFields, args...)

	resultType := types.Function{Args: remainingTypes, Result: fnType.Result}
	adapterArgTypes := remainingLL
	adapterEntryType := entryFunctionType(adapterArgTypes, llirType(resultType))
	closureType := llir.Record{Fields: []llir.Type{llir.Pointer{Element: adapterEntryType}, llir.Primitive{Kind: llir.PointerInt}, envRecType}}

	heapName := l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.AllocateHeap{Type: closureType, Name: heapName})
	heapPtr := llir.Variable{Name: heapName, Type: llir.Pointer{Element: closureType}}

	storeVal := llir.RecordValue{
		Type: closureType,
		Fields: []llir.Expr{
			llir.Variable{Name: entryName, Type: llir.Pointer{Element: adapterEntryType}},
			llir.PrimitiveValue{Type: llir.Primitive{Kind: llir.PointerInt}, Value: int64(len(remainingTypes))},
			llir.RecordValue{Type: envRecType, Fields: envFields},
		},
	}
	*ctx.instrs = append(*ctx.instrs, llir.Store{Value: storeVal, Ptr: heapPtr})

	castName := l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.Bitcast{Expr: heapPtr, Type: RawClosurePointerType, Name: castName})
	return llir.Variable{Name: castName, Type: RawClosurePointerType}, nil
}

// buildPartialApplicationAdapter emits the adapter's own entry function: its
// opaque env_ptr, bitcast to {Pointer(RawClosureType) savedClosure,
// ...savedArgs}, yields the saved call target and saved leading arguments;
// its own formal parameters supply the rest; the combined argument list is
// then exactly fnType's own arity, so the body is one full application.
func (l *Lowerer) buildPartialApplicationAdapter(fnType types.Function, savedTypes []llir.Type, remainingLL []llir.Type) (string, error) {
	name := l.fresh.Next() + "_partial"
	envRecType := llir.Record{Fields: savedTypes}

	var instrs []llir.Instruction
	typedPtrType := llir.Pointer{Element: envRecType}
	castName := l.fresh.Next()
	instrs = append(instrs, llir.Bitcast{
		Expr: llir.Variable{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}},
		Type: typedPtrType,
		Name: castName,
	})
	castPtr := llir.Variable{Name: castName, Type: typedPtrType}

	savedVals := make([]llir.Expr, len(savedTypes))
	for i, t := range savedTypes {
		addrName := l.fresh.Next()
		instrs = append(instrs, llir.AddressCalculation{Ptr: castPtr, Indices: []int{i}, Name: addrName})
		loadName := l.fresh.Next()
		instrs = append(instrs, llir.Load{Ptr: llir.Variable{Name: addrName, Type: llir.Pointer{Element: t}}, Name: loadName})
		savedVals[i] = llir.Variable{Name: loadName, Type: t}
	}
	savedFn := savedVals[0]
	savedArgs := savedVals[1:]

	formalArgs := make([]llir.Argument, len(remainingLL))
	newArgs := make([]llir.Expr, len(remainingLL))
	for i, t := range remainingLL {
		argName := fmt.Sprintf("a%d", i)
		formalArgs[i] = llir.Argument{Name: argName, Type: t}
		newArgs[i] = llir.Variable{Name: argName, Type: t}
	}

	allArgs := make([]llir.Expr, 0, len(savedArgs)+len(newArgs))
	allArgs = append(allArgs, savedArgs...)
	allArgs = append(allArgs, newArgs...)

	ctx := &exprCtx{l: l, instrs: &instrs}
	result, err := ctx.lowerFullApplication(fnType, savedFn, allArgs)
	if err != nil {
		return "", err
	}
	instrs = append(instrs, llir.Return{Expr: result})

	fnArgs := make([]llir.Argument, 0, len(formalArgs)+1)
	fnArgs = append(fnArgs, llir.Argument{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}})
	fnArgs = append(fnArgs, formalArgs...)

	l.out.AddFunctionDefinition(llir.FunctionDefinition{
		Name:         name,
		Args:         fnArgs,
		Instructions: instrs,
		ResultType:   llirType(fnType.Result),
	})
	return name, nil
}

// lowerOverApplication handles n > m: the first m arguments are applied
// directly, and the statically unknown result — proven by the type checker
// to itself be a function — receives the remaining arguments via a runtime
// arity check (spec.md §4.6.4: "applying exactly its own declared arity
// needs no check; anything more must test the resulting closure's actual
// arity at runtime"). Exactly two branches follow: the callee's own arity
// matching the remaining count exactly, and the only other shape the checker
// proved legal — a further partial application with the leftover formal
// parameters of the callee's own declared type.
func (ctx *exprCtx) lowerOverApplication(fnType types.Function, fn llir.Expr, args []llir.Expr) (llir.Expr, error) {
	l := ctx.l
	m := len(fnType.Args)
	head := args[:m]
	tail := args[m:]

	calleeResult, ok := fnType.Result.(types.Function)
	if !ok {
		return nil, diag.BuildFailure("lower", "over-application target's result is not a function")
	}

	headResult, err := ctx.lowerFullApplication(fnType, fn, head)
	if err != nil {
		return nil, err
	}

	resultType := sfApplicationResultType(calleeResult, len(tail))
	resultLL := llirType(resultType)
	slotName := l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.AllocateStack{Type: resultLL, Name: slotName})
	slot := llir.Variable{Name: slotName, Type: llir.Pointer{Element: resultLL}}

	arityAddrName := l.fresh.Next()
	castName := l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.Bitcast{Expr: headResult, Type: RawClosurePointerType, Name: castName})
	closurePtr := llir.Variable{Name: castName, Type: RawClosurePointerType}
	*ctx.instrs = append(*ctx.instrs, llir.AddressCalculation{Ptr: closurePtr, Indices: []int{1}, Name: arityAddrName})
	arityLoadName := l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.Load{Ptr: llir.Variable{Name: arityAddrName, Type: llir.Pointer{Element: llir.Primitive{Kind: llir.PointerInt}}}, Name: arityLoadName})

	cmpName := l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.PrimitiveOperation{
		Op:   "eq",
		Lhs:  llir.Variable{Name: arityLoadName, Type: llir.Primitive{Kind: llir.PointerInt}},
		Rhs:  llir.PrimitiveValue{Type: llir.Primitive{Kind: llir.PointerInt}, Value: int64(len(tail))},
		Name: cmpName,
	})

	var exactBranch []llir.Instruction
	exactCtx := &exprCtx{l: l, tenv: ctx.tenv, vals: ctx.vals, instrs: &exactBranch}
	exactResult, err := exactCtx.lowerFullApplication(calleeResult, headResult, tail)
	if err != nil {
		return nil, err
	}
	exactBranch = append(exactBranch, llir.Store{Value: exactResult, Ptr: slot})

	var furtherBranch []llir.Instruction
	furtherCtx := &exprCtx{l: l, tenv: ctx.tenv, vals: ctx.vals, instrs: &furtherBranch}
	furtherResult, err := furtherCtx.lowerPartialApplication(calleeResult, headResult, tail)
	if err != nil {
		return nil, err
	}
	furtherBranch = append(furtherBranch, llir.Store{Value: furtherResult, Ptr: slot})

	*ctx.instrs = append(*ctx.instrs, llir.If{
		Cond: llir.Variable{Name: cmpName, Type: llir.Primitive{Kind: llir.Int8}},
		Then: exactBranch,
		Else: furtherBranch,
	})

	loadName := l.fresh.Next()
	*ctx.instrs = append(*ctx.instrs, llir.Load{Ptr: slot, Name: loadName})
	return llir.Variable{Name: loadName, Type: resultLL}, nil
}

func sfApplicationResultType(fn types.Function, tailLen int) types.Type {
	if tailLen == len(fn.Args) {
		return fn.Result
	}
	return types.Function{Args: fn.Args[tailLen:], Result: fn.Result}
}

func adapterKey(entryType llir.Type, savedTypes []llir.Type) string {
	return fmt.Sprintf("%s|%v", entryType, savedTypes)
}

// exprType recovers an already-lowered LL-IR expression's own type, used
// only to describe a partial-application adapter's saved-argument record
// shape (spec.md §4.6.4's adapter dedup key).
func exprType(e llir.Expr) llir.Type {
	switch v := e.(type) {
	case llir.Variable:
		return v.Type
	case llir.PrimitiveValue:
		return v.Type
	case llir.RecordValue:
		return v.Type
	case llir.UnionValue:
		return v.Type
	case llir.Undefined:
		return v.Type
	default:
		return UnsizedEnvironmentType
	}
}
