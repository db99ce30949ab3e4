package lower

import (
	"github.com/sfir-lang/sfirc/internal/llir"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/types"
)

// closureRecordType builds one definition's own concrete closure record
// shape: field 0 a pointer to its own entry function, field 1 its fixed
// arity, field 2 its payload. A thunk's payload is a union of its captured
// environment and its eventual result (the field is overwritten in place the
// first time the thunk runs, spec.md §4.6.3); an ordinary function's payload
// is just its captured environment, since nothing ever overwrites field 2 of
// a function closure after it is built.
func closureRecordType(def sfir.Definition) llir.Record {
	envType := environmentRecordType(toLLArgs(def.Env))
	if def.IsThunk {
		resultType := llirType(def.ResultType)
		payload := llir.Union{Members: []llir.Type{envType, resultType}}
		entryType := entryFunctionType(nil, resultType)
		return llir.Record{Fields: []llir.Type{llir.Pointer{Element: entryType}, llir.Primitive{Kind: llir.PointerInt}, payload}}
	}
	argTypes := llirTypes(argTypeList(def.Args))
	resultType := llirType(def.ResultType)
	entryType := entryFunctionType(argTypes, resultType)
	return llir.Record{Fields: []llir.Type{llir.Pointer{Element: entryType}, llir.Primitive{Kind: llir.PointerInt}, envType}}
}

func toLLArgs(args []sfir.Argument) []llirArg {
	out := make([]llirArg, len(args))
	for i, a := range args {
		out[i] = llirArg{name: a.Name, llType: llirType(a.Type)}
	}
	return out
}

func argTypeList(args []sfir.Argument) []types.Type {
	out := make([]types.Type, len(args))
	for i, a := range args {
		out[i] = a.Type
	}
	return out
}

// lowerFunction compiles a function-shaped (Args > 0) top-level definition:
// one entry function taking the captured environment plus its own formal
// arguments, and one constant top-level closure record wrapping it (spec.md
// §4.6.1, §4.6.2).
func (l *Lowerer) lowerFunction(def sfir.Definition) error {
	envArgs := toLLArgs(def.Env)
	envRecType := environmentRecordType(envArgs)
	formalArgs := toLLArgs(def.Args)
	resultType := llirType(def.ResultType)
	entryType := entryFunctionType(llirArgTypes(formalArgs), resultType)
	entryName := def.Name + "_entry"

	instrs, vals := l.buildEnvironmentPrologue(envArgs, envRecType)
	for _, a := range formalArgs {
		vals[a.name] = llir.Variable{Name: a.name, Type: a.llType}
	}

	ctx := &exprCtx{l: l, tenv: l.typeEnvFor(def), vals: vals, instrs: &instrs}
	result, err := ctx.lower(def.Body)
	if err != nil {
		return err
	}
	instrs = append(instrs, llir.Return{Expr: result})

	fnArgs := make([]llir.Argument, 0, len(formalArgs)+1)
	fnArgs = append(fnArgs, llir.Argument{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}})
	for _, a := range formalArgs {
		fnArgs = append(fnArgs, llir.Argument{Name: a.name, Type: a.llType})
	}
	l.out.AddFunctionDefinition(llir.FunctionDefinition{
		Name:         entryName,
		Args:         fnArgs,
		Instructions: instrs,
		ResultType:   resultType,
	})

	envFields := make([]llir.Expr, len(envArgs))
	for i, a := range envArgs {
		envFields[i] = l.globalRef(a.name)
	}
	closureVal := llir.RecordValue{
		Type: closureRecordType(def),
		Fields: []llir.Expr{
			llir.Variable{Name: entryName, Type: llir.Pointer{Element: entryType}},
			llir.PrimitiveValue{Type: llir.Primitive{Kind: llir.PointerInt}, Value: int64(len(formalArgs))},
			llir.RecordValue{Type: envRecType, Fields: envFields},
		},
	}
	l.out.AddVariableDefinition(llir.VariableDefinition{
		Name:     def.Name,
		Type:     closureRecordType(def),
		Constant: true,
		Body:     closureVal,
	})
	return nil
}

// buildEnvironmentPrologue emits the instructions reading a definition's own
// captured free variables out of its opaque env_ptr parameter: a single
// bitcast to the concrete environment record type this definition alone
// knows about, followed by one AddressCalculation+Load per captured
// variable (spec.md §4.6.2 — the environment pointer is opaque at every
// caller, concrete only inside the one entry body that owns its shape).
func (l *Lowerer) buildEnvironmentPrologue(envArgs []llirArg, envRecType llir.Record) ([]llir.Instruction, map[string]llir.Expr) {
	var instrs []llir.Instruction
	vals := map[string]llir.Expr{}
	if len(envArgs) == 0 {
		return instrs, vals
	}

	typedPtrType := llir.Pointer{Element: envRecType}
	castName := l.fresh.Next()
	instrs = append(instrs, llir.Bitcast{
		Expr: llir.Variable{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}},
		Type: typedPtrType,
		Name: castName,
	})
	castPtr := llir.Variable{Name: castName, Type: typedPtrType}

	for i, a := range envArgs {
		addrName := l.fresh.Next()
		instrs = append(instrs, llir.AddressCalculation{Ptr: castPtr, Indices: []int{i}, Name: addrName})
		loadName := l.fresh.Next()
		instrs = append(instrs, llir.Load{Ptr: llir.Variable{Name: addrName, Type: llir.Pointer{Element: a.llType}}, Name: loadName})
		vals[a.name] = llir.Variable{Name: loadName, Type: a.llType}
	}
	return instrs, vals
}

func llirArgTypes(args []llirArg) []llir.Type {
	out := make([]llir.Type, len(args))
	for i, a := range args {
		out[i] = a.llType
	}
	return out
}
