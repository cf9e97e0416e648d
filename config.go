package main

import (
	"flag"
	"fmt"
	"regexp"

	"github.com/xyproto/env/v2"
)

const DefaultEntry = "_start"

// Options controls code generation and the external toolchain used by the
// run and eval commands.
type Options struct {
	Trace   bool   // print every assigned value at run time
	Entry   string // entry point label
	Verbose bool   // progress output on stderr
	Nasm    string // assembler executable
	Linker  string // linker executable
}

func DefaultOptions() Options {
	return Options{
		Entry:  DefaultEntry,
		Nasm:   "nasm",
		Linker: "ld",
	}
}

// LoadOptions returns the defaults overridden by COMPILER_* environment
// variables.
func LoadOptions() Options {
	def := DefaultOptions()
	return Options{
		Trace:   env.Bool("COMPILER_TRACE"),
		Entry:   env.Str("COMPILER_ENTRY", def.Entry),
		Verbose: env.Bool("COMPILER_VERBOSE"),
		Nasm:    env.Str("COMPILER_NASM", def.Nasm),
		Linker:  env.Str("COMPILER_LD", def.Linker),
	}
}

// RegisterFlags binds the options that make sense on the command line to fs.
// Values already in o act as the flag defaults.
func (o *Options) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&o.Verbose, "v", o.Verbose, "Show verbose compilation details")
	fs.BoolVar(&o.Trace, "trace", o.Trace, "Print each assigned value when the program runs")
	fs.StringVar(&o.Entry, "entry", o.Entry, "Entry point label")
}

var (
	labelRe    = regexp.MustCompile(`^[A-Za-z_?][A-Za-z0-9_.?$#@~]*$`)
	reservedRe = regexp.MustCompile(`^(label[0-9]+|print)$`)
)

// Validate reports options that would produce unassemblable output.
func (o Options) Validate() error {
	if !labelRe.MatchString(o.Entry) {
		return fmt.Errorf("invalid entry label %q", o.Entry)
	}
	if reservedRe.MatchString(o.Entry) {
		return fmt.Errorf("entry label %q clashes with a generated label", o.Entry)
	}
	if o.Nasm == "" || o.Linker == "" {
		return fmt.Errorf("assembler and linker must be set")
	}
	return nil
}
