package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/sfir-lang/sfirc/internal/config"
	"github.com/sfir-lang/sfirc/internal/llir"
)

// runInspect compiles the named demo and drops into a line-edited prompt
// where the operator can type a definition's lowered name to see its
// closure record layout or, for a thunk, its three synthesized entries.
func runInspect(name string, cfg config.Config, out io.Writer) error {
	build, ok := demos[name]
	if !ok {
		return fmt.Errorf("unknown demo %q (available: %v)", name, demoNames())
	}

	m, err := compileDemo(build, cfg)
	if err != nil {
		printCompileError(err)
		return nil
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := filepath.Join(os.TempDir(), ".sfirc_inspect_history")
	if f, ferr := os.Open(historyFile); ferr == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	line.SetCompleter(func(partial string) (c []string) {
		for _, vd := range m.VarDefs {
			if strings.HasPrefix(vd.Name, partial) {
				c = append(c, vd.Name)
			}
		}
		for _, fd := range m.FnDefs {
			if strings.HasPrefix(fd.Name, partial) {
				c = append(c, fd.Name)
			}
		}
		return
	})

	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintf(out, "%s %s\n", bold("sfirc inspect"), name)
	fmt.Fprintln(out, dim("type a global or entry function name, :list, or :quit"))

	for {
		input, perr := line.Prompt("sfirc> ")
		if perr == io.EOF || perr == liner.ErrPromptAborted {
			fmt.Fprintln(out, green("goodbye"))
			break
		}
		if perr != nil {
			fmt.Fprintf(out, "error: %v\n", perr)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch {
		case input == ":quit" || input == ":q":
			fmt.Fprintln(out, green("goodbye"))
			if f, ferr := os.Create(historyFile); ferr == nil {
				_, _ = line.WriteHistory(f)
				f.Close()
			}
			return nil
		case input == ":list":
			listGlobals(out, m)
		default:
			inspectName(out, m, input)
		}
	}

	if f, ferr := os.Create(historyFile); ferr == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
	return nil
}

func listGlobals(out io.Writer, m *llir.Module) {
	cyan := color.New(color.FgCyan).SprintFunc()
	for _, vd := range m.VarDefs {
		fmt.Fprintf(out, "  %s %s\n", cyan("var"), vd.Name)
	}
	for _, fd := range m.FnDefs {
		fmt.Fprintf(out, "  %s %s\n", cyan("fn"), fd.Name)
	}
}

func inspectName(out io.Writer, m *llir.Module, name string) {
	if vd, ok := findVariableDefinition(m, name); ok {
		fmt.Fprintf(out, "var %s (constant=%v)\n", vd.Name, vd.Constant)
		if rec, ok := vd.Body.(llir.RecordValue); ok {
			fmt.Fprintf(out, "  closure record, %d fields:\n", len(rec.Fields))
			for i, f := range rec.Fields {
				fmt.Fprintf(out, "    [%d] %T\n", i, f)
			}
		}
		for _, suffix := range []string{"_entry", "_entry_normal", "_entry_locked"} {
			if fd, ok := m.FindFunctionDefinition(name + suffix); ok {
				fmt.Fprintf(out, "  %s: %d args, %d instructions\n", fd.Name, len(fd.Args), len(fd.Instructions))
			}
		}
		return
	}

	if fd, ok := m.FindFunctionDefinition(name); ok {
		fmt.Fprintf(out, "fn %s: %d args, %d instructions, result %T\n", fd.Name, len(fd.Args), len(fd.Instructions), fd.ResultType)
		return
	}

	fmt.Fprintf(out, "no global or function named %q\n", name)
}

func findVariableDefinition(m *llir.Module, name string) (llir.VariableDefinition, bool) {
	for _, vd := range m.VarDefs {
		if vd.Name == name {
			return vd, true
		}
	}
	return llir.VariableDefinition{}, false
}
