// Arturo CLI - run scripts, evaluate inline code, compile modules, or
// start the interactive REPL.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/moeinimoein/arturo/manifest"
	"github.com/moeinimoein/arturo/vm"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	evaluate := flag.String("e", "", "Evaluate the given code and exit")
	compile := flag.Bool("c", false, "Compile the given script to a .artb module")
	execute := flag.Bool("x", false, "Execute a compiled .artb module")
	showVersion := flag.Bool("version", false, "Print version and exit")
	verbose := flag.Bool("v", false, "Verbose diagnostics")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: arturo [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the given .art script, or starts a REPL when no script is given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  arturo script.art        # Run a script\n")
		fmt.Fprintf(os.Stderr, "  arturo -e 'print 2+3'    # Evaluate inline code\n")
		fmt.Fprintf(os.Stderr, "  arturo -c script.art     # Compile to script.artb\n")
		fmt.Fprintf(os.Stderr, "  arturo -x script.artb    # Run a compiled module\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	if *showVersion {
		fmt.Printf("arturo %s\n", version)
		return 0
	}

	machine := vm.New()

	if *evaluate != "" {
		return reportOutcome(machine.Run(*evaluate))
	}

	args := flag.Args()
	if len(args) == 0 {
		return repl(machine)
	}

	script := args[0]
	switch {
	case *compile:
		return compileScript(machine, script)
	case *execute || strings.HasSuffix(script, ".artb"):
		return executeModule(machine, script)
	default:
		return runScript(machine, script)
	}
}

func runScript(machine *vm.VM, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arturo: %v\n", err)
		return 1
	}
	return reportOutcome(machine.Run(string(data)))
}

func compileScript(machine *vm.VM, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arturo: %v\n", err)
		return 1
	}
	t, terr := machine.TranslateSource(string(data))
	if terr != nil {
		return reportOutcome(terr)
	}
	encoded, merr := vm.MarshalTranslation(t)
	if merr != nil {
		fmt.Fprintf(os.Stderr, "arturo: %v\n", merr)
		return 1
	}
	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".artb"
	if werr := os.WriteFile(out, encoded, 0o644); werr != nil {
		fmt.Fprintf(os.Stderr, "arturo: %v\n", werr)
		return 1
	}
	return 0
}

func executeModule(machine *vm.VM, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arturo: %v\n", err)
		return 1
	}
	t, merr := vm.UnmarshalTranslation(data)
	if merr != nil {
		fmt.Fprintf(os.Stderr, "arturo: %v\n", merr)
		return 1
	}
	return reportOutcome(machine.ExecTranslation(t))
}

// reportOutcome maps errors to the documented exit codes: 0 on
// success, 1 on runtime errors, 2 on parse errors.
func reportOutcome(err error) int {
	if err == nil {
		return 0
	}
	color := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("NO_COLOR") == ""
	fmt.Fprintln(os.Stderr, vm.FormatError(err, color))

	var re *vm.RuntimeError
	if errors.As(err, &re) && re.Kind == vm.ParseError {
		return 2
	}
	return 1
}

// ---------------------------------------------------------------------------
// REPL
// ---------------------------------------------------------------------------

func repl(machine *vm.VM) int {
	fmt.Printf("arturo %s (type ?? <word> for help, exit to quit)\n", version)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := ""
	if home, err := manifest.Home(); err == nil {
		_ = os.MkdirAll(home, 0o755)
		historyPath = filepath.Join(home, "history")
		if f, err := os.Open(historyPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}

	color := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("NO_COLOR") == ""
	for {
		input, err := line.Prompt("arturo> ")
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "??") {
			showHelp(machine, strings.TrimSpace(strings.TrimPrefix(input, "??")))
			continue
		}

		depthBefore := machine.StackDepth()
		if rerr := machine.Run(input); rerr != nil {
			fmt.Fprintln(os.Stderr, vm.FormatError(rerr, color))
			continue
		}
		if machine.StackDepth() > depthBefore {
			if top, ok := machine.TopValue(); ok {
				fmt.Printf("=> %s\n", machine.Printable(top))
			}
		}
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}
	return 0
}

// showHelp prints a builtin's declaration record.
func showHelp(machine *vm.VM, name string) {
	b := machine.Registry().Lookup(name)
	if b == nil {
		fmt.Printf("no help for: %s\n", name)
		return
	}
	fmt.Printf("%s  (arity %d)\n", b.Name, b.Arity)
	if b.Description != "" {
		fmt.Printf("  %s\n", b.Description)
	}
	for i, an := range b.ArgNames {
		label := ":any"
		if i < len(b.ArgKinds) && len(b.ArgKinds[i]) > 0 {
			parts := make([]string, len(b.ArgKinds[i]))
			for j, k := range b.ArgKinds[i] {
				parts[j] = ":" + k.String()
			}
			label = strings.Join(parts, " ")
		}
		fmt.Printf("    %-12s %s\n", an, label)
	}
	for an, spec := range b.Attrs {
		fmt.Printf("    .%-11s %s\n", an, spec.Description)
	}
	if b.Example != "" {
		fmt.Printf("  example: %s\n", b.Example)
	}
}
