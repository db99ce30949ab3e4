package llir

import "fmt"

// FunctionDefinition is a fully lowered function (entry function, thunk
// state-machine entry, or partial-application adapter).
type FunctionDefinition struct {
	Name         string
	Args         []Argument
	Instructions []Instruction
	ResultType   Type
}

// Argument is a (name, type) formal parameter in LL-IR (the environment
// pointer is always argument 0 for every FunctionDefinition the lowerer
// emits, spec.md §4.6.2).
type Argument struct {
	Name string
	Type Type
}

// VariableDefinition is a top-level global. Constant is false for thunks
// (their payload slot is written by the first-call entry at runtime) and
// true for ordinary values and closures over non-thunk definitions (spec.md
// §4.7).
type VariableDefinition struct {
	Name     string
	Body     Expr
	Type     Type
	Constant bool
}

// FunctionDeclaration is an externally-provided function signature (mirrors
// sfir.Declaration / sfir.ForeignDeclaration once lowered, spec.md §4.6.6).
type FunctionDeclaration struct {
	Name              string
	Type              Function
	ForeignName       string // empty unless this came from a ForeignDeclaration
	TargetCallingConv bool   // true if the host ABI calling convention applies
}

// VariableDeclaration is an externally-provided global signature.
type VariableDeclaration struct {
	Name string
	Type Type
}

// Module is the downstream LL-IR artifact (spec.md §3.2, §6.2): a pure data
// structure the core hands to a code generator it never invokes itself.
type Module struct {
	VarDecls []VariableDeclaration
	FnDecls  []FunctionDeclaration
	VarDefs  []VariableDefinition
	FnDefs   []FunctionDefinition
}

// AddFunctionDefinition appends fd, keeping Module an append-only log the
// way the orchestrator threads it through C4-C6 (spec.md §4.7).
func (m *Module) AddFunctionDefinition(fd FunctionDefinition) { m.FnDefs = append(m.FnDefs, fd) }

// AddVariableDefinition appends vd.
func (m *Module) AddVariableDefinition(vd VariableDefinition) { m.VarDefs = append(m.VarDefs, vd) }

// AddFunctionDeclaration appends a declaration.
func (m *Module) AddFunctionDeclaration(fd FunctionDeclaration) { m.FnDecls = append(m.FnDecls, fd) }

// AddVariableDeclaration appends a declaration.
func (m *Module) AddVariableDeclaration(vd VariableDeclaration) { m.VarDecls = append(m.VarDecls, vd) }

// FindFunctionDefinition looks a function definition up by name, mainly for
// tests and cmd/sfirc inspect.
func (m *Module) FindFunctionDefinition(name string) (*FunctionDefinition, bool) {
	for i := range m.FnDefs {
		if m.FnDefs[i].Name == name {
			return &m.FnDefs[i], true
		}
	}
	return nil, false
}

func (m *Module) String() string {
	return fmt.Sprintf("Module(vars=%d fns=%d vardecls=%d fndecls=%d)",
		len(m.VarDefs), len(m.FnDefs), len(m.VarDecls), len(m.FnDecls))
}
