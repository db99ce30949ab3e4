// Command sfirc is a small ambient driver around the closure-lowering core:
// it never parses surface syntax (there is none to parse), it only builds a
// handful of fixed SF-IR programs in Go and runs them through
// internal/compiler, for demonstration and interactive inspection.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/sfir-lang/sfirc/internal/config"
)

var red = color.New(color.FgRed).SprintFunc()

func main() {
	verbosityFlag := flag.Int("v", 0, "verbosity level stored in the config (the compiler emits no log output at any level)")
	dedupFlag := flag.Bool("dedup-adapters", true, "share one partial-application adapter per (entry type, saved types) pair")
	helpFlag := flag.Bool("help", false, "show help")

	flag.Parse()

	if *helpFlag || flag.NArg() == 0 {
		printUsage()
		if *helpFlag {
			return
		}
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.Verbosity = *verbosityFlag
	cfg.DedupPartialApplicationAdapters = *dedupFlag

	command := flag.Arg(0)

	switch command {
	case "demo":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: demo requires a name\n", red("error"))
			printUsage()
			os.Exit(1)
		}
		if err := runDemo(flag.Arg(1), cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "inspect":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: inspect requires a name\n", red("error"))
			printUsage()
			os.Exit(1)
		}
		if err := runInspect(flag.Arg(1), cfg, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "list":
		for _, n := range demoNames() {
			fmt.Println(n)
		}
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("error"), command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Println(bold("sfirc - SF-IR to LL-IR closure lowering driver"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sfirc demo <name>     build and lower a fixed example, print the result")
	fmt.Println("  sfirc inspect <name>  build and lower a fixed example, then inspect it interactively")
	fmt.Println("  sfirc list            list available demo names")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
