// Package compiler implements the orchestrator (C7): the single entry point
// that threads a raw SF-IR module through every pure core component in
// sequence and hands back either a finished LL-IR module or the first
// diagnostic any stage raised.
//
// Grounded on ailang's internal/pipeline.Run/runModule, which threads
// lexer -> parser -> elaborate -> link -> eval the same way this package
// threads canonicalize -> free-variable inference -> type check -> init
// sort -> closure lowering.
package compiler

import (
	"github.com/sfir-lang/sfirc/internal/config"
	"github.com/sfir-lang/sfirc/internal/initsort"
	"github.com/sfir-lang/sfirc/internal/llir"
	"github.com/sfir-lang/sfirc/internal/lower"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/typecheck"
	"github.com/sfir-lang/sfirc/internal/types"
)

// Input is anything Compile can accept: a pre-built, init-ordered
// sfir.Module, or a raw sfir.Program whose init order and environments are
// still to be computed.
type Input interface {
	toModule() (*sfir.Module, error)
}

type moduleInput struct{ m *sfir.Module }

func (i moduleInput) toModule() (*sfir.Module, error) { return i.m, nil }

type programInput struct{ p sfir.Program }

func (i programInput) toModule() (*sfir.Module, error) {
	defs := make([]sfir.Definition, len(i.p.Defs))
	copy(defs, i.p.Defs)

	globals := make(map[string]struct{}, len(defs)+len(i.p.Decls)+len(i.p.ForeignDecls))
	for _, d := range defs {
		globals[d.Name] = struct{}{}
	}
	for _, d := range i.p.Decls {
		globals[d.Name] = struct{}{}
	}
	for _, fd := range i.p.ForeignDecls {
		globals[fd.Name] = struct{}{}
	}

	for i2 := range defs {
		defs[i2].Env = sfir.Environment(&defs[i2], globals)
		defs[i2].Body = canonicalizeExpr(defs[i2].Body)
		defs[i2].ResultType = types.Canonicalize(defs[i2].ResultType)
		for a := range defs[i2].Args {
			defs[i2].Args[a].Type = types.Canonicalize(defs[i2].Args[a].Type)
		}
	}

	order, err := initsort.Sort(defs)
	if err != nil {
		return nil, err
	}

	return &sfir.Module{
		ForeignDecls: i.p.ForeignDecls,
		Decls:        i.p.Decls,
		Defs:         defs,
		InitOrder:    order,
	}, nil
}

// FromModule wraps an already init-ordered sfir.Module for Compile.
func FromModule(m *sfir.Module) Input { return moduleInput{m: m} }

// FromProgram wraps a raw sfir.Program for Compile: environments and init
// order are computed before type checking and lowering run.
func FromProgram(p sfir.Program) Input { return programInput{p: p} }

// Compile threads canonicalization, free-variable inference (already folded
// into FromProgram), type checking (C4), global-init sorting (C5), and
// closure lowering (C6) over in, in that order, stopping at the first error
// (spec.md §4.7, §6.1).
func Compile(in Input, cfg config.Config) (*llir.Module, error) {
	m, err := in.toModule()
	if err != nil {
		return nil, err
	}
	if err := typecheck.Check(m); err != nil {
		return nil, err
	}
	if _, ok := in.(programInput); ok {
		order, err := initsort.Sort(m.Defs)
		if err != nil {
			return nil, err
		}
		m.InitOrder = order
	}
	return lower.Lower(m, cfg)
}

// canonicalizeExpr recursively canonicalizes every types.Type value an
// expression carries (constructor algebraics, let/case binder types, bitcast
// targets), mirroring spec.md §4.1's paired-stack canonical form being a
// precondition for every later stage rather than something type checking or
// lowering re-derive on demand.
func canonicalizeExpr(e sfir.Expr) sfir.Expr {
	switch x := e.(type) {
	case sfir.PrimitiveOperation:
		x.Lhs = canonicalizeExpr(x.Lhs)
		x.Rhs = canonicalizeExpr(x.Rhs)
		return x
	case sfir.ConstructorApplication:
		x.Algebraic = types.Canonicalize(x.Algebraic).(types.Algebraic)
		for i, a := range x.Args {
			x.Args[i] = canonicalizeExpr(a)
		}
		return x
	case sfir.FunctionApplication:
		x.Fn = canonicalizeExpr(x.Fn)
		for i, a := range x.Args {
			x.Args[i] = canonicalizeExpr(a)
		}
		return x
	case sfir.Let:
		x.Type = types.Canonicalize(x.Type)
		x.Bound = canonicalizeExpr(x.Bound)
		x.Body = canonicalizeExpr(x.Body)
		return x
	case sfir.LetRecursive:
		for i, d := range x.Defs {
			d.Type = types.Canonicalize(d.Type)
			d.Body = canonicalizeExpr(d.Body)
			for a := range d.Args {
				d.Args[a].Type = types.Canonicalize(d.Args[a].Type)
			}
			x.Defs[i] = d
		}
		x.Body = canonicalizeExpr(x.Body)
		return x
	case sfir.Bitcast:
		x.Type = types.Canonicalize(x.Type)
		x.Expr = canonicalizeExpr(x.Expr)
		return x
	case sfir.Case:
		x.Scrutinee = canonicalizeExpr(x.Scrutinee)
		for i, alt := range x.AlgebraicAlts {
			alt.Body = canonicalizeExpr(alt.Body)
			x.AlgebraicAlts[i] = alt
		}
		for i, alt := range x.PrimitiveAlts {
			alt.Body = canonicalizeExpr(alt.Body)
			x.PrimitiveAlts[i] = alt
		}
		if x.HasDefault {
			x.Default = canonicalizeExpr(x.Default)
		}
		return x
	default:
		return e
	}
}
