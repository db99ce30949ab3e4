package lower

import (
	"github.com/sfir-lang/sfirc/internal/llir"
	"github.com/sfir-lang/sfirc/internal/sfir"
)

// lowerThunk compiles a zero-argument, updatable definition into the
// three-entry protocol spec.md §4.6.3 describes: a first-call entry that
// claims the thunk via CompareAndSwap and evaluates the body exactly once,
// a normal entry every later call redispatches to, and a locked entry every
// concurrent caller observes while evaluation is in flight.
//
// Grounded on ssf-fmm/src/entry_functions.rs's three FunctionDefinitions
// sharing one (env_ptr) -> result signature, the way that file builds them
// around one CompareAndSwap on the entry field rather than a separate
// "evaluated" flag.
func (l *Lowerer) lowerThunk(def sfir.Definition) error {
	envArgs := toLLArgs(def.Env)
	envRecType := environmentRecordType(envArgs)
	resultType := llirType(def.ResultType)
	thunkEntryType := entryFunctionType(nil, resultType)
	closureType := closureRecordType(def)
	payloadType := closureType.Fields[2].(llir.Union)

	normalName := def.Name + "_entry_normal"
	lockedName := def.Name + "_entry_locked"
	firstName := def.Name + "_entry"

	entryFieldPtrType := llir.Pointer{Element: llir.Pointer{Element: thunkEntryType}}

	normalFn, err := l.buildThunkNormalEntry(normalName, resultType, payloadType)
	if err != nil {
		return err
	}
	l.out.AddFunctionDefinition(normalFn)

	l.out.AddFunctionDefinition(l.buildThunkLockedEntry(lockedName, resultType, thunkEntryType, entryFieldPtrType))

	firstFn, err := l.buildThunkFirstEntry(def, firstName, normalName, lockedName, resultType, thunkEntryType, entryFieldPtrType, payloadType, envArgs, envRecType)
	if err != nil {
		return err
	}
	l.out.AddFunctionDefinition(firstFn)

	envFields := make([]llir.Expr, len(envArgs))
	for i, a := range envArgs {
		envFields[i] = l.globalRef(a.name)
	}
	closureVal := llir.RecordValue{
		Type: closureType,
		Fields: []llir.Expr{
			llir.Variable{Name: firstName, Type: llir.Pointer{Element: thunkEntryType}},
			llir.PrimitiveValue{Type: llir.Primitive{Kind: llir.PointerInt}, Value: int64(0)},
			llir.UnionValue{Type: payloadType, MemberIndex: 0, Value: llir.RecordValue{Type: envRecType, Fields: envFields}},
		},
	}
	l.out.AddVariableDefinition(llir.VariableDefinition{
		Name:     def.Name,
		Type:     closureType,
		Constant: false,
		Body:     closureVal,
	})
	return nil
}

// entryFieldPtr builds the AddressCalculation + Bitcast sequence reaching a
// thunk's own entry-field slot from its opaque env_ptr parameter: env_ptr
// always holds the address of a closure record's payload field (field 2),
// so the entry field two words back is reached the same way spec.md §4.6.3
// describes — bitcast env_ptr to a pointer-to-entry-pointer, then
// AddressCalculation by -2.
func (l *Lowerer) entryFieldPtr(instrs *[]llir.Instruction, entryFieldPtrType llir.Pointer) llir.Expr {
	castName := l.fresh.Next()
	*instrs = append(*instrs, llir.Bitcast{
		Expr: llir.Variable{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}},
		Type: entryFieldPtrType,
		Name: castName,
	})
	addrName := l.fresh.Next()
	*instrs = append(*instrs, llir.AddressCalculation{
		Ptr:     llir.Variable{Name: castName, Type: entryFieldPtrType},
		Indices: []int{-2},
		Name:    addrName,
	})
	return llir.Variable{Name: addrName, Type: entryFieldPtrType}
}

// buildThunkNormalEntry builds the entry a fully evaluated thunk's field 0
// points at: bitcast env_ptr (the payload-field address) straight to a
// pointer to the result type and load it.
func (l *Lowerer) buildThunkNormalEntry(name string, resultType llir.Type, payloadType llir.Union) (llir.FunctionDefinition, error) {
	var instrs []llir.Instruction
	resultPtrType := llir.Pointer{Element: resultType}
	castName := l.fresh.Next()
	instrs = append(instrs, llir.Bitcast{
		Expr: llir.Variable{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}},
		Type: resultPtrType,
		Name: castName,
	})
	loadName := l.fresh.Next()
	instrs = append(instrs, llir.Load{Ptr: llir.Variable{Name: castName, Type: resultPtrType}, Name: loadName})
	instrs = append(instrs, llir.Return{Expr: llir.Variable{Name: loadName, Type: resultType}})
	return llir.FunctionDefinition{
		Name:         name,
		Args:         []llir.Argument{{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}}},
		Instructions: instrs,
		ResultType:   resultType,
	}, nil
}

// buildThunkLockedEntry builds the entry every concurrent caller observes
// while the owning goroutine is still evaluating the thunk's body: it
// atomically reads the current entry pointer and, if it is still this very
// locked entry (no progress made since the caller's last look), the call is
// reentrant — forcing a thunk from within its own evaluation — which is
// unreachable for any well-formed module (spec.md §4.6.3, §9: recursive
// thunk forcing is explicitly out of scope, not resolved here). Otherwise it
// falls through to whatever the entry field now holds.
func (l *Lowerer) buildThunkLockedEntry(name string, resultType llir.Type, thunkEntryType llir.Function, entryFieldPtrType llir.Pointer) llir.FunctionDefinition {
	var instrs []llir.Instruction
	entryPtr := l.entryFieldPtr(&instrs, entryFieldPtrType)
	loadName := l.fresh.Next()
	instrs = append(instrs, llir.AtomicLoad{Ptr: entryPtr, Ordering: llir.SequentiallyConsistent, Name: loadName})
	current := llir.Variable{Name: loadName, Type: llir.Pointer{Element: thunkEntryType}}

	selfPtrType := llir.Pointer{Element: thunkEntryType}
	self := llir.Variable{Name: name, Type: selfPtrType}

	eqName := l.fresh.Next()
	instrs = append(instrs, llir.PrimitiveOperation{Op: "eq", Lhs: current, Rhs: self, Name: eqName})

	thenBranch := []llir.Instruction{llir.Unreachable{}}

	callName := l.fresh.Next()
	elseBranch := []llir.Instruction{
		llir.Call{Fn: current, Args: []llir.Expr{llir.Variable{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}}}, Name: callName},
		llir.Return{Expr: llir.Variable{Name: callName, Type: resultType}},
	}

	instrs = append(instrs, llir.If{
		Cond: llir.Variable{Name: eqName, Type: llir.Primitive{Kind: llir.Int8}},
		Then: thenBranch,
		Else: elseBranch,
	})

	return llir.FunctionDefinition{
		Name:         name,
		Args:         []llir.Argument{{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}}},
		Instructions: instrs,
		ResultType:   resultType,
	}
}

// buildThunkFirstEntry builds the entry a freshly constructed thunk's field
// 0 points at: a CompareAndSwap claims the right to evaluate. The winner
// evaluates the body, writes the result over the payload slot, publishes the
// normal entry with an AtomicStore and returns; every loser tail-redispatches
// to whatever entry the winner (or a still-later update) has since installed.
func (l *Lowerer) buildThunkFirstEntry(
	def sfir.Definition,
	firstName, normalName, lockedName string,
	resultType llir.Type,
	thunkEntryType llir.Function,
	entryFieldPtrType llir.Pointer,
	payloadType llir.Union,
	envArgs []llirArg,
	envRecType llir.Record,
) (llir.FunctionDefinition, error) {
	var instrs []llir.Instruction
	entryPtr := l.entryFieldPtr(&instrs, entryFieldPtrType)

	selfPtrType := llir.Pointer{Element: thunkEntryType}
	self := llir.Variable{Name: firstName, Type: selfPtrType}
	locked := llir.Variable{Name: lockedName, Type: selfPtrType}
	normal := llir.Variable{Name: normalName, Type: selfPtrType}

	casName := l.fresh.Next()
	instrs = append(instrs, llir.CompareAndSwap{
		Ptr:      entryPtr,
		Expected: self,
		New:      locked,
		Ordering: llir.SequentiallyConsistent,
		Name:     casName,
	})

	winEnvInstrs, vals := l.buildEnvironmentPrologue(envArgs, envRecType)
	ctx := &exprCtx{l: l, tenv: l.typeEnvFor(def), vals: vals, instrs: &winEnvInstrs}
	result, err := ctx.lower(def.Body)
	if err != nil {
		return llir.FunctionDefinition{}, err
	}

	resultPtrType := llir.Pointer{Element: resultType}
	storeCastName := l.fresh.Next()
	winEnvInstrs = append(winEnvInstrs, llir.Bitcast{
		Expr: llir.Variable{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}},
		Type: resultPtrType,
		Name: storeCastName,
	})
	winEnvInstrs = append(winEnvInstrs, llir.Store{Value: result, Ptr: llir.Variable{Name: storeCastName, Type: resultPtrType}})
	winEnvInstrs = append(winEnvInstrs, llir.AtomicStore{Value: normal, Ptr: entryPtr, Ordering: llir.SequentiallyConsistent})
	winEnvInstrs = append(winEnvInstrs, llir.Return{Expr: result})

	loadName := l.fresh.Next()
	loseBranch := []llir.Instruction{
		llir.AtomicLoad{Ptr: entryPtr, Ordering: llir.SequentiallyConsistent, Name: loadName},
	}
	callName := l.fresh.Next()
	loseBranch = append(loseBranch,
		llir.Call{
			Fn:   llir.Variable{Name: loadName, Type: selfPtrType},
			Args: []llir.Expr{llir.Variable{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}}},
			Name: callName,
		},
		llir.Return{Expr: llir.Variable{Name: callName, Type: resultType}},
	)

	instrs = append(instrs, llir.If{
		Cond: llir.Variable{Name: casName, Type: llir.Primitive{Kind: llir.Int8}},
		Then: winEnvInstrs,
		Else: loseBranch,
	})
	instrs = append(instrs, llir.Unreachable{})

	return llir.FunctionDefinition{
		Name:         firstName,
		Args:         []llir.Argument{{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}}},
		Instructions: instrs,
		ResultType:   resultType,
	}, nil
}
