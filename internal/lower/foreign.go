package lower

import (
	"github.com/sfir-lang/sfirc/internal/llir"
	"github.com/sfir-lang/sfirc/internal/sfir"
)

// lowerForeignDeclaration compiles a host-ABI function into an LL-IR
// declaration carrying the target calling convention, plus a synthesized
// internal adapter entry function so the foreign function can be closed
// over and applied exactly like any other SF-IR function value: called with
// its own opaque env_ptr first, formal arguments after (spec.md §4.6.6).
func (l *Lowerer) lowerForeignDeclaration(fd sfir.ForeignDeclaration) {
	argTypes := llirTypes(fd.Type.Args)
	resultType := llirType(fd.Type.Result)

	l.out.AddFunctionDeclaration(llir.FunctionDeclaration{
		Name:              fd.ForeignName,
		Type:              llir.Function{Args: argTypes, Result: resultType},
		ForeignName:       fd.ForeignName,
		TargetCallingConv: fd.CallingConvention == sfir.CCTarget,
	})

	adapterName := fd.Name + "_entry"
	entryType := entryFunctionType(argTypes, resultType)

	fnArgs := make([]llir.Argument, 0, len(argTypes)+1)
	fnArgs = append(fnArgs, llir.Argument{Name: "env_ptr", Type: llir.Pointer{Element: UnsizedEnvironmentType}})
	callArgs := make([]llir.Expr, 0, len(argTypes))
	for i, t := range argTypes {
		name := l.fresh.Next()
		fnArgs = append(fnArgs, llir.Argument{Name: name, Type: t})
		callArgs = append(callArgs, llir.Variable{Name: name, Type: t})
	}

	var instrs []llir.Instruction
	callName := l.fresh.Next()
	instrs = append(instrs, llir.Call{
		Fn:   llir.Variable{Name: fd.ForeignName, Type: llir.Pointer{Element: llir.Function{Args: argTypes, Result: resultType}}},
		Args: callArgs,
		Name: callName,
	})
	instrs = append(instrs, llir.Return{Expr: llir.Variable{Name: callName, Type: resultType}})

	l.out.AddFunctionDefinition(llir.FunctionDefinition{
		Name:         adapterName,
		Args:         fnArgs,
		Instructions: instrs,
		ResultType:   resultType,
	})

	closureType := llir.Record{Fields: []llir.Type{
		llir.Pointer{Element: entryType},
		llir.Primitive{Kind: llir.PointerInt},
		llir.Record{Fields: nil},
	}}
	closureVal := llir.RecordValue{
		Type: closureType,
		Fields: []llir.Expr{
			llir.Variable{Name: adapterName, Type: llir.Pointer{Element: entryType}},
			llir.PrimitiveValue{Type: llir.Primitive{Kind: llir.PointerInt}, Value: int64(len(argTypes))},
			llir.RecordValue{Type: llir.Record{Fields: nil}, Fields: nil},
		},
	}
	l.out.AddVariableDefinition(llir.VariableDefinition{
		Name:     fd.Name,
		Type:     closureType,
		Constant: true,
		Body:     closureVal,
	})
}
