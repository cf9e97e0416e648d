package main

import (
	"fmt"
	"io"
)

// Compilation holds every artifact of one run of the pipeline. Fields are
// filled in phase order, so after a failure the earlier ones are still
// available for diagnostics.
type Compilation struct {
	Source   []byte
	Tokens   []Token
	Arena    *Arena
	Program  *Program
	Assembly string
}

// Compile lexes, parses and generates src. It stops at the first error.
func Compile(src []byte, opts Options) (*Compilation, error) {
	return compile(src, opts, nil)
}

func compile(src []byte, opts Options, log io.Writer) (*Compilation, error) {
	c := &Compilation{Source: src, Arena: NewArena()}

	tokens, err := Lex(src)
	if err != nil {
		return c, err
	}
	c.Tokens = tokens
	if log != nil {
		fmt.Fprintf(log, "Lexed %d tokens\n", len(tokens))
	}

	prog, err := ParseProgram(tokens, c.Arena)
	if err != nil {
		return c, err
	}
	c.Program = prog
	if log != nil {
		fmt.Fprintf(log, "Parsed %d nodes\n", c.Arena.Len())
	}

	g := NewGenerator(opts)
	if log != nil {
		g.LogScopes(log)
	}
	asm, err := g.Generate(prog)
	if err != nil {
		return c, err
	}
	c.Assembly = asm
	if log != nil {
		fmt.Fprintf(log, "Generated %d bytes of assembly\n", len(asm))
	}
	return c, nil
}
