// Package lower implements closure lowering (C6): the centerpiece pass that
// turns a type-checked, init-ordered sfir.Module into an llir.Module. Every
// SF-IR function value becomes a pointer to a heap closure record of three
// fields (entry, arity, environment/payload); thunks compile to a three-entry
// state machine; applications lower to direct calls, partial-application
// adapters, or a runtime arity check, depending on the statically known and
// actual arity.
//
// Grounded on ssf-fmm/src/{closures,entry_functions,function_applications,
// expressions}.rs for the algorithms, and on ailang's internal/codegen
// package split (one file per concern: values, calls, control flow) for the
// Go file layout this package follows (types.go, entry.go, thunk.go,
// apply.go, expr.go, foreign.go).
package lower

import (
	"github.com/sfir-lang/sfirc/internal/llir"
	"github.com/sfir-lang/sfirc/internal/types"
)

// UnsizedEnvironmentType is the opaque, zero-field placeholder every entry
// function's environment parameter is typed with. A specific definition's
// entry body bitcasts its own opaque env_ptr parameter to the concrete
// environment record type it alone knows about; callers applying a closure
// generically (any Function-typed SF-IR value, whose backing definition is
// not statically known at the call site) never need to know that concrete
// shape at all (spec.md §4.6.1/§4.6.2).
var UnsizedEnvironmentType = llir.Record{Fields: nil}

// rawEntryFunctionType is a type-punned stand-in entry-function signature:
// RawClosureType's field 0 points at it, and a generic call site
// (apply.go's lowerFullApplication) loads the entry pointer at this type
// before bitcasting it to the concrete signature; its declared
// argument/result types are never load-bearing, only its pointer width is.
var rawEntryFunctionType = llir.Function{
	Args:   []llir.Type{llir.Pointer{Element: UnsizedEnvironmentType}},
	Result: llir.Primitive{Kind: llir.PointerInt},
}

// RawClosureType is the generic three-field closure record shape used at any
// call site applying a Function-typed value whose concrete backing
// definition is not statically known (spec.md §4.6.1, §6.2: field 0 entry,
// field 1 arity, field 2 environment/payload).
var RawClosureType = llir.Record{Fields: []llir.Type{
	llir.Pointer{Element: rawEntryFunctionType},
	llir.Primitive{Kind: llir.PointerInt},
	UnsizedEnvironmentType,
}}

// RawClosurePointerType is the type every Function-typed SF-IR value
// converts to: a pointer to RawClosureType.
var RawClosurePointerType = llir.Pointer{Element: RawClosureType}

// llirType converts an SF-IR type to its LL-IR representation. Function
// types always convert to RawClosurePointerType (spec.md §4.6.1: a function
// value is always a pointer to a closure record, and the concrete
// environment shape behind it is never visible at the type level). A de
// Bruijn Index converts to a pointer to UnsizedEnvironmentType, the same
// opaque placeholder every entry function's env_ptr is typed with, since the only way SF-IR ties a recursive knot is through a
// boxed (pointer-indirected) constructor element — the concrete algebraic
// shape behind such a pointer is reconstructed on demand, from the live
// types.Algebraic value in scope at the access site, never from the Index
// alone (spec.md §4.1, §9 "recursive types without cyclic pointers").
func llirType(t types.Type) llir.Type {
	switch v := t.(type) {
	case types.Primitive:
		return llirPrimitiveType(v)
	case types.Function:
		return RawClosurePointerType
	case types.Algebraic:
		return algebraicRecordType(v)
	case types.Index:
		return llir.Pointer{Element: UnsizedEnvironmentType}
	default:
		return UnsizedEnvironmentType
	}
}

func llirPrimitiveType(p types.Primitive) llir.Type {
	switch p.Kind {
	case types.Float32:
		return llir.Primitive{Kind: llir.Float32}
	case types.Float64:
		return llir.Primitive{Kind: llir.Float64}
	case types.Int8:
		return llir.Primitive{Kind: llir.Int8}
	case types.Int32:
		return llir.Primitive{Kind: llir.Int32}
	case types.Int64:
		return llir.Primitive{Kind: llir.Int64}
	case types.PointerInt:
		return llir.Primitive{Kind: llir.PointerInt}
	case types.PointerByte:
		return llir.Pointer{Element: llir.Primitive{Kind: llir.Int8}}
	default:
		return llir.Primitive{Kind: llir.Int8}
	}
}

func llirTypes(ts []types.Type) []llir.Type {
	out := make([]llir.Type, len(ts))
	for i, t := range ts {
		out[i] = llirType(t)
	}
	return out
}

// entryFunctionType builds the uncurried LL-IR signature of an entry
// function: an opaque environment pointer followed by argTypes, yielding
// resultType (spec.md §4.6.1: "pointer to an uncurried entry function of
// signature (env_ptr, a1...an) -> result").
func entryFunctionType(argTypes []llir.Type, resultType llir.Type) llir.Function {
	args := make([]llir.Type, 0, len(argTypes)+1)
	args = append(args, llir.Pointer{Element: UnsizedEnvironmentType})
	args = append(args, argTypes...)
	return llir.Function{Args: args, Result: resultType}
}

// environmentRecordType builds the record type holding a definition's
// captured free variables, in the order Env lists them.
func environmentRecordType(env []llirArg) llir.Record {
	fields := make([]llir.Type, len(env))
	for i, a := range env {
		fields[i] = a.llType
	}
	return llir.Record{Fields: fields}
}

// llirArg pairs a captured or formal argument's name with its already
// converted LL-IR type, so the lowering code doesn't repeatedly re-run
// llirType on the same sfir.Argument.
type llirArg struct {
	name   string
	llType llir.Type
}

// algebraicRecordType builds an algebraic's nominal record shape: an
// optional PointerInt tag field (omitted for a singleton algebraic, spec.md
// §4.6.5) followed by an optional union of per-constructor payload types
// (omitted only when every constructor in the algebraic has zero elements).
// A concrete ConstructorApplication instance may still emit fewer fields
// than this nominal shape promises — e.g. an enum-shaped constructor inside
// an otherwise boxed algebraic emits no payload field at all (spec.md §8
// scenario 3, "Nil emits no payload field") — since LL-IR records here are
// pure per-instance data, not statically validated against one rigid
// algebraic-wide layout.
func algebraicRecordType(a types.Algebraic) llir.Record {
	allEnum := true
	for _, ctor := range a.Constructors {
		if len(ctor.Elements) > 0 {
			allEnum = false
			break
		}
	}

	var fields []llir.Type
	if !a.IsSingleton() {
		fields = append(fields, llir.Primitive{Kind: llir.PointerInt})
	}
	if !allEnum {
		members := make([]llir.Type, len(a.Tags))
		for i, tag := range a.Tags {
			members[i] = constructorPayloadType(a.Constructors[tag])
		}
		fields = append(fields, llir.Union{Members: members})
	}
	return llir.Record{Fields: fields}
}

// constructorPayloadType builds one constructor's payload type: a record of
// its element types, embedded inline unless the constructor is boxed, in
// which case the payload is a pointer to that record (spec.md §4.6.5).
func constructorPayloadType(ctor types.Constructor) llir.Type {
	rec := llir.Record{Fields: llirTypes(ctor.Elements)}
	if ctor.Boxed {
		return llir.Pointer{Element: rec}
	}
	return rec
}
