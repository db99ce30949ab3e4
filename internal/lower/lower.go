package lower

import (
	"github.com/sfir-lang/sfirc/internal/config"
	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/fresh"
	"github.com/sfir-lang/sfirc/internal/llir"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/typecheck"
	"github.com/sfir-lang/sfirc/internal/types"
)

// Lowerer carries the mutable state threaded through one module's closure
// lowering: the fresh-name source (C8), the dedup table for
// partial-application adapters (spec.md §4.6.4), the LL-IR module being
// built by appending, and a registry of every top-level name's SF-IR and
// LL-IR types (needed because any definition's body may reference any other
// top-level name, regardless of lowering order).
type Lowerer struct {
	fresh    *fresh.Source
	cfg      config.Config
	out      *llir.Module
	adapters map[string]string

	globalTypes      map[string]types.Type // canonical SF-IR type, every foreign decl / decl / def
	globalLLType     map[string]llir.Type  // pointee LL-IR type (closure record, value record, or RawClosureType)
	globalIsAddressed map[string]bool      // true if referencing this name yields a pointer, not a plain value
}

// Lower runs closure lowering over m, producing the downstream llir.Module
// or the first diag.Error encountered (spec.md §4.6, §6.1, §7).
func Lower(m *sfir.Module, cfg config.Config) (*llir.Module, error) {
	l := &Lowerer{
		fresh:             fresh.NewSource(cfg.FreshNamePrefix),
		cfg:               cfg,
		out:               &llir.Module{},
		adapters:          map[string]string{},
		globalTypes:       map[string]types.Type{},
		globalLLType:      map[string]llir.Type{},
		globalIsAddressed: map[string]bool{},
	}
	return l.lowerModule(m)
}

func (l *Lowerer) lowerModule(m *sfir.Module) (*llir.Module, error) {
	l.registerGlobals(m)

	for _, fd := range m.ForeignDecls {
		l.lowerForeignDeclaration(fd)
	}
	for _, d := range m.Decls {
		l.out.AddFunctionDeclaration(llir.FunctionDeclaration{
			Name: d.Name,
			Type: entryFunctionType(llirTypes(d.Type.Args), llirType(d.Type.Result)),
		})
	}

	defsByName := m.DefsByName()
	lowered := make(map[string]bool, len(m.Defs))

	lowerOne := func(def sfir.Definition) error {
		if lowered[def.Name] {
			return nil
		}
		lowered[def.Name] = true
		return l.lowerDefinition(def)
	}

	for _, name := range m.InitOrder {
		def, ok := defsByName[name]
		if !ok {
			continue
		}
		if err := lowerOne(*def); err != nil {
			return nil, err
		}
	}
	for _, def := range m.Defs {
		if err := lowerOne(def); err != nil {
			return nil, err
		}
	}
	return l.out, nil
}

// registerGlobals seeds globalTypes/globalLLType/globalIsAddressed for every
// foreign declaration, declaration and definition before any body is
// lowered, so a definition referencing another top-level name out of
// lowering order still resolves (spec.md §4.5: functions are statically
// addressable before any of them is actually lowered).
func (l *Lowerer) registerGlobals(m *sfir.Module) {
	for _, fd := range m.ForeignDecls {
		l.globalTypes[fd.Name] = types.Canonicalize(fd.Type)
		l.globalLLType[fd.Name] = RawClosureType
		l.globalIsAddressed[fd.Name] = true
	}
	for _, d := range m.Decls {
		l.globalTypes[d.Name] = types.Canonicalize(d.Type)
		l.globalLLType[d.Name] = RawClosureType
		l.globalIsAddressed[d.Name] = true
	}
	for _, def := range m.Defs {
		l.globalTypes[def.Name] = definitionType(def)
		if len(def.Args) > 0 || def.IsThunk {
			// Every other Function-typed reference in this package collapses
			// to the generic RawClosureType (spec.md §4.6.1: llirType never
			// exposes a concrete closure layout through a Function-typed
			// value). Registering the same generic shape here, rather than
			// this definition's own closureRecordType, keeps a captured
			// reference to this global's field type in an environment record
			// consistent with the generic type every such field is declared
			// with — call sites already bitcast to RawClosurePointerType
			// before touching entry/arity/payload regardless.
			l.globalLLType[def.Name] = RawClosureType
			l.globalIsAddressed[def.Name] = true
		} else {
			l.globalLLType[def.Name] = llirType(def.ResultType)
			l.globalIsAddressed[def.Name] = false
		}
	}
}

func definitionType(def sfir.Definition) types.Type {
	result := types.Canonicalize(def.ResultType)
	if len(def.Args) == 0 {
		return result
	}
	args := make([]types.Type, len(def.Args))
	for i, a := range def.Args {
		args[i] = types.Canonicalize(a.Type)
	}
	return types.Function{Args: args, Result: result}
}

// globalRef builds the LL-IR expression referencing a top-level name: an
// address (pointer to its LL-IR type) for anything addressed as a closure
// (functions and thunks), or a plain value reference otherwise.
func (l *Lowerer) globalRef(name string) llir.Expr {
	t := l.globalLLType[name]
	if l.globalIsAddressed[name] {
		return llir.Variable{Name: name, Type: llir.Pointer{Element: t}}
	}
	return llir.Variable{Name: name, Type: t}
}

func (l *Lowerer) lowerDefinition(def sfir.Definition) error {
	switch {
	case len(def.Args) == 0 && def.IsThunk:
		return l.lowerThunk(def)
	case len(def.Args) == 0:
		return l.lowerConstantValue(def)
	default:
		return l.lowerFunction(def)
	}
}

func (l *Lowerer) typeEnvFor(def sfir.Definition) *typecheck.Env {
	env := typecheck.NewEnv()
	for name, t := range l.globalTypes {
		env = env.With(name, t)
	}
	return env.WithAll(def.Env).WithAll(def.Args)
}

// lowerConstantValue compiles a zero-argument, non-thunk definition: its
// body must already be a compile-time constant expression (a literal, or a
// constructor application whose own arguments are themselves constant),
// since this repo's lowering pass is structural and never evaluates
// arbitrary SF-IR at compile time (spec.md §1: no interpreter in scope).
func (l *Lowerer) lowerConstantValue(def sfir.Definition) error {
	val, err := l.lowerConstantExpr(def.Body)
	if err != nil {
		return err
	}
	l.out.AddVariableDefinition(llir.VariableDefinition{
		Name:     def.Name,
		Type:     llirType(def.ResultType),
		Constant: true,
		Body:     val,
	})
	return nil
}

func (l *Lowerer) lowerConstantExpr(e sfir.Expr) (llir.Expr, error) {
	switch x := e.(type) {
	case sfir.Primitive:
		return llir.PrimitiveValue{Type: llirPrimitiveType(x.Type).(llir.Primitive), Value: x.Value}, nil
	case sfir.Bitcast:
		inner, err := l.lowerConstantExpr(x.Expr)
		if err != nil {
			return nil, err
		}
		return inner, nil
	case sfir.ConstructorApplication:
		return l.lowerConstantConstructor(x)
	default:
		return nil, diag.BuildFailure("lower", "non-thunk value definition body is not a compile-time constant")
	}
}

// lowerConstantConstructor builds a compile-time constant constructor value.
// A boxed constructor needs a heap allocation to produce its pointer, which
// a plain constant initializer has no instruction stream to emit — any
// defined value actually needing that should be marked IsThunk instead, so
// this rejects the boxed case rather than silently building an invalid
// value (spec.md §4.6.5, §4.7).
func (l *Lowerer) lowerConstantConstructor(c sfir.ConstructorApplication) (llir.Expr, error) {
	unfolded := types.Unfold(c.Algebraic)
	ctor := unfolded.Constructors[c.Tag]
	if ctor.Boxed {
		return nil, diag.BuildFailure("lower", "boxed constructor used as a non-thunk constant value")
	}
	fieldVals := make([]llir.Expr, len(c.Args))
	for i, a := range c.Args {
		v, err := l.lowerConstantExpr(a)
		if err != nil {
			return nil, err
		}
		fieldVals[i] = v
	}
	payloadRec := llir.Record{Fields: llirTypes(ctor.Elements)}
	return constructorInstanceValue(c.Algebraic, c.Tag, payloadRec, llir.RecordValue{Type: payloadRec, Fields: fieldVals}), nil
}

// constructorInstanceValue builds one constructor instance's record value:
// an optional tag field (omitted for a singleton algebraic) followed by an
// optional union-wrapped payload (omitted entirely when this particular
// constructor has no elements, even inside an otherwise boxed algebraic —
// spec.md §8 scenario 3, "Nil emits no payload field").
func constructorInstanceValue(a types.Algebraic, tag int, payloadRecType llir.Record, payload llir.Expr) llir.Expr {
	var fields []llir.Expr
	if !a.IsSingleton() {
		fields = append(fields, llir.PrimitiveValue{Type: llir.Primitive{Kind: llir.PointerInt}, Value: int64(tag)})
	}
	if len(payloadRecType.Fields) > 0 || a.Constructors[tag].Boxed {
		members := make([]llir.Type, len(a.Tags))
		memberIndex := 0
		for i, t := range a.Tags {
			members[i] = constructorPayloadType(a.Constructors[t])
			if t == tag {
				memberIndex = i
			}
		}
		unionType := llir.Union{Members: members}
		fields = append(fields, llir.UnionValue{Type: unionType, MemberIndex: memberIndex, Value: payload})
	}
	return llir.RecordValue{Type: llir.Record{Fields: exprTypesOf(fields)}, Fields: fields}
}

func exprTypesOf(es []llir.Expr) []llir.Type {
	out := make([]llir.Type, len(es))
	for i, e := range es {
		out[i] = exprType(e)
	}
	return out
}
