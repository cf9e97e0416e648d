package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `compiler - compiles a small C-like language to x86-64 NASM assembly

Usage:
    compiler <command> [arguments]

Commands:
    build <file>    Compile a source file to assembly
    run <file>      Compile, assemble, link and execute a source file
    eval <code>     Compile and execute inline code
    check <file>    Lex, parse and generate without writing output
    ast <file>      Print the syntax tree as an s-expression
    tokens <file>   Print the token stream
    fmt <file>      Print the source reformatted
    repl            Start an interactive prompt
    watch <file>    Rebuild a file whenever it changes
    help            Show this help message

Examples:
    compiler build -o prog.asm prog.c
    compiler run prog.c
    compiler eval 'int a; a = 6 * 7; return a;'
    compiler watch prog.c

Environment:
    COMPILER_TRACE, COMPILER_ENTRY, COMPILER_VERBOSE, COMPILER_NASM, COMPILER_LD

Use "compiler <command> -h" for more information about a command.
`)
}

// newFlagSet creates the flag set for a subcommand. Options start from the
// environment and are overridden by flags.
func newFlagSet(name, usage, summary string, opts *Options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	if opts != nil {
		opts.RegisterFlags(fs)
	}
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: compiler %s\n", usage)
		fmt.Fprintf(os.Stderr, "%s\n\n", summary)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses args and returns the single positional argument.
func parseArgs(fs *flag.FlagSet, args []string, what string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one %s argument\n", what)
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func validateOptions(opts Options) {
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func readSource(filename string) []byte {
	sourceBytes, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}
	return sourceBytes
}

// mustCompile compiles src or reports the error with a source excerpt and
// exits.
func mustCompile(src []byte, opts Options) *Compilation {
	var c *Compilation
	var err error
	if opts.Verbose {
		c, err = compile(src, opts, os.Stderr)
	} else {
		c, err = Compile(src, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed:\n%s", Snippet(err, string(src)))
		os.Exit(1)
	}
	return c
}

func outputPath(filename, output string) string {
	if output != "" {
		return output
	}
	if i := strings.LastIndexByte(filename, '.'); i > strings.LastIndexByte(filename, '/') {
		return filename[:i] + ".asm"
	}
	return filename + ".asm"
}

func buildCommand(args []string) {
	opts := LoadOptions()
	var output string
	fs := newFlagSet("build", "build [-o output] [-v] [-trace] <file>", "Compile a source file to NASM assembly", &opts)
	fs.StringVar(&output, "o", "", "Output file path (default: <file>.asm)")
	filename := parseArgs(fs, args, "file")
	validateOptions(opts)

	outputFile := outputPath(filename, output)
	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "Compiling %s to %s...\n", filename, outputFile)
	}

	c := mustCompile(readSource(filename), opts)
	if err := os.WriteFile(outputFile, []byte(c.Assembly), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing assembly file %s: %v\n", outputFile, err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s (%d bytes)\n", outputFile, len(c.Assembly))
}

// execute runs the compiled program and exits with its status.
func execute(c *Compilation, opts Options) {
	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "Assembling with %s, linking with %s...\n", opts.Nasm, opts.Linker)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	status, err := Execute(ctx, c.Assembly, opts, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		os.Exit(1)
	}
	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "Exit code %d\n", status)
	}
	stop()
	os.Exit(status)
}

func runCommand(args []string) {
	opts := LoadOptions()
	fs := newFlagSet("run", "run [-v] [-trace] <file>", "Compile and execute a source file", &opts)
	fs.StringVar(&opts.Nasm, "nasm", opts.Nasm, "Assembler executable")
	fs.StringVar(&opts.Linker, "ld", opts.Linker, "Linker executable")
	filename := parseArgs(fs, args, "file")
	validateOptions(opts)

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "Compiling %s...\n", filename)
	}
	execute(mustCompile(readSource(filename), opts), opts)
}

func evalCommand(args []string) {
	opts := LoadOptions()
	fs := newFlagSet("eval", "eval [-v] [-trace] <code>", "Compile and execute inline code", &opts)
	fs.StringVar(&opts.Nasm, "nasm", opts.Nasm, "Assembler executable")
	fs.StringVar(&opts.Linker, "ld", opts.Linker, "Linker executable")
	code := parseArgs(fs, args, "code")
	validateOptions(opts)

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "Evaluating: %s\n", code)
	}
	execute(mustCompile([]byte(wrapSnippet(code)), opts), opts)
}

func checkCommand(args []string) {
	opts := LoadOptions()
	fs := newFlagSet("check", "check [-v] <file>", "Lex, parse and generate a source file without writing output", &opts)
	filename := parseArgs(fs, args, "file")
	validateOptions(opts)

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "Checking %s...\n", filename)
	}
	c := mustCompile(readSource(filename), opts)
	fmt.Printf("%s: no errors found\n", filename)

	if opts.Verbose {
		fmt.Printf("AST: %s\n", ToSExpr(c.Program))
	}
}

func astCommand(args []string) {
	fs := newFlagSet("ast", "ast <file>", "Print the syntax tree of a source file", nil)
	filename := parseArgs(fs, args, "file")

	src := readSource(filename)
	tokens, err := Lex(src)
	if err == nil {
		var prog *Program
		if prog, err = ParseProgram(tokens, NewArena()); err == nil {
			fmt.Println(ToSExpr(prog))
			return
		}
	}
	fmt.Fprint(os.Stderr, Snippet(err, string(src)))
	os.Exit(1)
}

func tokensCommand(args []string) {
	fs := newFlagSet("tokens", "tokens <file>", "Print the token stream of a source file", nil)
	filename := parseArgs(fs, args, "file")

	src := readSource(filename)
	tokens, err := Lex(src)
	if err != nil {
		fmt.Fprint(os.Stderr, Snippet(err, string(src)))
		os.Exit(1)
	}
	for _, tok := range tokens {
		fmt.Println(tok)
	}
}

func fmtCommand(args []string) {
	fs := newFlagSet("fmt", "fmt <file>", "Print a source file reformatted", nil)
	filename := parseArgs(fs, args, "file")

	src := readSource(filename)
	tokens, err := Lex(src)
	if err == nil {
		var prog *Program
		if prog, err = ParseProgram(tokens, NewArena()); err == nil {
			fmt.Print(Format(prog))
			return
		}
	}
	fmt.Fprint(os.Stderr, Snippet(err, string(src)))
	os.Exit(1)
}

func replCommand(args []string) {
	opts := LoadOptions()
	fs := newFlagSet("repl", "repl [-trace]", "Start an interactive prompt", &opts)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	validateOptions(opts)
	runRepl(opts)
}

func watchCommand(args []string) {
	opts := LoadOptions()
	var output string
	fs := newFlagSet("watch", "watch [-o output] [-v] [-trace] <file>", "Rebuild a source file whenever it changes", &opts)
	fs.StringVar(&output, "o", "", "Output file path (default: <file>.asm)")
	filename := parseArgs(fs, args, "file")
	validateOptions(opts)

	outputFile := outputPath(filename, output)

	// Rebuilds run on timer goroutines; keep them from overlapping.
	var mu sync.Mutex
	rebuild := func() {
		mu.Lock()
		defer mu.Unlock()

		src, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
			return
		}
		c, err := Compile(src, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Compilation failed:\n%s", Snippet(err, string(src)))
			return
		}
		if err := os.WriteFile(outputFile, []byte(c.Assembly), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing assembly file %s: %v\n", outputFile, err)
			return
		}
		fmt.Printf("Generated %s (%d bytes)\n", outputFile, len(c.Assembly))
	}

	w, err := NewFileWatcher(DefaultDebounce, opts.Verbose, func(string) { rebuild() })
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting watcher: %v\n", err)
		os.Exit(1)
	}
	if err := w.AddFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Error watching %s: %v\n", filename, err)
		os.Exit(1)
	}

	rebuild()
	fmt.Fprintf(os.Stderr, "Watching %s for changes, Ctrl-C to stop\n", filename)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		w.Close()
	}()
	w.Watch()
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		buildCommand(args)
	case "run":
		runCommand(args)
	case "eval":
		evalCommand(args)
	case "check":
		checkCommand(args)
	case "ast":
		astCommand(args)
	case "tokens":
		tokensCommand(args)
	case "fmt":
		fmtCommand(args)
	case "repl":
		replCommand(args)
	case "watch":
		watchCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
