package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"

	"github.com/sfir-lang/sfirc/internal/compiler"
	"github.com/sfir-lang/sfirc/internal/config"
	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/llir"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/types"
)

// demoBuilder produces one fixed SF-IR program. Every demo here corresponds
// to one worked end-to-end example this project's tests exercise at the
// compiler level.
type demoBuilder func() sfir.Program

var demos = map[string]demoBuilder{
	"identity":         demoIdentity,
	"under-apply":      demoUnderApply,
	"recursive-list":   demoRecursiveList,
	"thunk":            demoThunk,
	"mutual-recursion": demoMutualRecursion,
	"circular-init":    demoCircularInit,
}

func demoNames() []string {
	names := make([]string, 0, len(demos))
	for n := range demos {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func f64Type() types.Type { return types.Primitive{Kind: types.Float64} }
func i32Type() types.Type { return types.Primitive{Kind: types.Int32} }
func i64Type() types.Type { return types.Primitive{Kind: types.Int64} }
func i8Type() types.Type  { return types.Primitive{Kind: types.Int8} }

// demoIdentity is the identity function on Float64.
func demoIdentity() sfir.Program {
	return sfir.Program{
		Defs: []sfir.Definition{
			{
				Name:       "id",
				Args:       []sfir.Argument{{Name: "x", Type: f64Type()}},
				Body:       sfir.Variable{Name: "x"},
				ResultType: f64Type(),
			},
		},
	}
}

// demoUnderApply applies a two-argument function to one argument, requiring
// a partial-application adapter.
func demoUnderApply() sfir.Program {
	return sfir.Program{
		Defs: []sfir.Definition{
			{
				Name:       "add",
				Args:       []sfir.Argument{{Name: "x", Type: f64Type()}, {Name: "y", Type: i32Type()}},
				Body:       sfir.Variable{Name: "x"},
				ResultType: f64Type(),
			},
			{
				Name: "addPartial",
				Body: sfir.FunctionApplication{
					Fn:   sfir.Variable{Name: "add"},
					Args: []sfir.Expr{sfir.Primitive{Type: f64Type(), Value: 1.0}},
				},
				ResultType: types.Function{Args: []types.Type{i32Type()}, Result: f64Type()},
				IsThunk:    true,
			},
		},
	}
}

// demoRecursiveList builds a short boxed Cons/Nil integer list.
func demoRecursiveList() sfir.Program {
	nilCtor := types.Constructor{Elements: nil}
	consCtor := types.Constructor{Elements: []types.Type{i64Type(), types.Index{I: 0}}, Boxed: true}
	list := types.NewAlgebraic(nilCtor, consCtor)

	return sfir.Program{
		Defs: []sfir.Definition{
			{
				Name: "oneTwo",
				Body: sfir.ConstructorApplication{
					Algebraic: list,
					Tag:       1,
					Args: []sfir.Expr{
						sfir.Primitive{Type: i64Type(), Value: int64(1)},
						sfir.ConstructorApplication{
							Algebraic: list,
							Tag:       1,
							Args: []sfir.Expr{
								sfir.Primitive{Type: i64Type(), Value: int64(2)},
								sfir.ConstructorApplication{Algebraic: list, Tag: 0},
							},
						},
					},
				},
				ResultType: list,
				IsThunk:    true,
			},
		},
	}
}

// demoThunk builds a single updatable zero-argument constant.
func demoThunk() sfir.Program {
	return sfir.Program{
		Defs: []sfir.Definition{
			{
				Name:       "fortyTwo",
				Body:       sfir.Primitive{Type: i64Type(), Value: int64(42)},
				ResultType: i64Type(),
				IsThunk:    true,
			},
		},
	}
}

// demoMutualRecursion builds even/odd over a local LetRecursive group.
func demoMutualRecursion() sfir.Program {
	even := sfir.RecDef{
		Name: "even",
		Args: []sfir.Argument{{Name: "n", Type: i64Type()}},
		Type: i8Type(),
		Body: sfir.Case{
			Scrutinee:  sfir.Variable{Name: "n"},
			HasDefault: true,
			PrimitiveAlts: []sfir.PrimitiveAlternative{
				{Literal: int64(0), Body: sfir.Primitive{Type: i8Type(), Value: int8(1)}},
			},
			Default: sfir.FunctionApplication{
				Fn: sfir.Variable{Name: "odd"},
				Args: []sfir.Expr{
					sfir.PrimitiveOperation{Op: sfir.OpSub, Lhs: sfir.Variable{Name: "n"}, Rhs: sfir.Primitive{Type: i64Type(), Value: int64(1)}},
				},
			},
		},
	}
	odd := sfir.RecDef{
		Name: "odd",
		Args: []sfir.Argument{{Name: "n", Type: i64Type()}},
		Type: i8Type(),
		Body: sfir.Case{
			Scrutinee:  sfir.Variable{Name: "n"},
			HasDefault: true,
			PrimitiveAlts: []sfir.PrimitiveAlternative{
				{Literal: int64(0), Body: sfir.Primitive{Type: i8Type(), Value: int8(0)}},
			},
			Default: sfir.FunctionApplication{
				Fn: sfir.Variable{Name: "even"},
				Args: []sfir.Expr{
					sfir.PrimitiveOperation{Op: sfir.OpSub, Lhs: sfir.Variable{Name: "n"}, Rhs: sfir.Primitive{Type: i64Type(), Value: int64(1)}},
				},
			},
		},
	}

	return sfir.Program{
		Defs: []sfir.Definition{
			{
				Name: "tenIsEven",
				Body: sfir.LetRecursive{
					Defs: []sfir.RecDef{even, odd},
					Body: sfir.FunctionApplication{
						Fn:   sfir.Variable{Name: "even"},
						Args: []sfir.Expr{sfir.Primitive{Type: i64Type(), Value: int64(10)}},
					},
				},
				ResultType: i8Type(),
				IsThunk:    true,
			},
		},
	}
}

// demoCircularInit defines two constants that each initialize from the
// other, which the orchestrator must reject before lowering runs.
func demoCircularInit() sfir.Program {
	return sfir.Program{
		Defs: []sfir.Definition{
			{Name: "x", Body: sfir.Variable{Name: "y"}, ResultType: i64Type()},
			{Name: "y", Body: sfir.Variable{Name: "x"}, ResultType: i64Type()},
		},
	}
}

// runDemo builds and compiles the named demo, printing either the resulting
// module's shape or the rejecting diagnostic.
func runDemo(name string, cfg config.Config) error {
	build, ok := demos[name]
	if !ok {
		return fmt.Errorf("unknown demo %q (available: %v)", name, demoNames())
	}

	m, err := compileDemo(build, cfg)
	if err != nil {
		printCompileError(err)
		return nil
	}
	printModule(name, m)
	return nil
}

func compileDemo(build demoBuilder, cfg config.Config) (*llir.Module, error) {
	return compiler.Compile(compiler.FromProgram(build()), cfg)
}

func printCompileError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	if derr, ok := err.(*diag.Error); ok {
		fmt.Printf("%s %s: %s\n", red("rejected"), derr.Kind, derr.Error())
		return
	}
	fmt.Printf("%s %v\n", red("rejected"), err)
}

func printModule(name string, m *llir.Module) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Printf("%s %s\n", bold(name), m.String())
	for _, fd := range m.FnDefs {
		fmt.Printf("  %s %s(%d args)\n", cyan("fn"), fd.Name, len(fd.Args))
	}
	for _, vd := range m.VarDefs {
		kind := "var"
		if vd.Constant {
			kind = "const"
		}
		fmt.Printf("  %s %s\n", cyan(kind), vd.Name)
	}
	for _, fd := range m.FnDecls {
		fmt.Printf("  %s %s -> %s\n", cyan("decl"), fd.Name, fd.ForeignName)
	}
}
