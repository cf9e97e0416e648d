package main

import (
	"errors"
	"fmt"
	"strings"
)

// Phase names the pipeline stage that reported a CompileError.
type Phase string

const (
	PhaseLex     Phase = "lex"
	PhaseParse   Phase = "parse"
	PhaseCodegen Phase = "codegen"
)

// CompileError is the only error the compiler core produces. Compilation
// stops at the first one and no assembly is returned alongside it.
type CompileError struct {
	Phase  Phase
	Loc    Location
	HasLoc bool
	Msg    string

	// AtEOF is set when the input ended too early: the parser ran out of
	// tokens or a block comment was still open. The REPL treats it as a
	// request for more input rather than a real error.
	AtEOF bool

	// Err is an optional sentinel (ErrUndeclared, ErrRedefinition, ...).
	Err error
}

func (e *CompileError) Error() string {
	if !e.HasLoc {
		return e.Msg
	}
	return fmt.Sprintf("%s [Ln %d, Col %d]", e.Msg, e.Loc.Line, e.Loc.Column)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func errorAt(phase Phase, loc Location, format string, args ...any) *CompileError {
	return &CompileError{Phase: phase, Loc: loc, HasLoc: true, Msg: fmt.Sprintf(format, args...)}
}

func errorf(phase Phase, format string, args ...any) *CompileError {
	return &CompileError{Phase: phase, Msg: fmt.Sprintf(format, args...)}
}

// IsIncomplete reports whether err is a lex or parse error caused by the
// input ending too early.
func IsIncomplete(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Phase != PhaseCodegen && ce.AtEOF
}

// Snippet renders err with the offending source line and a caret under the
// reported column:
//
//	PARSE ERROR at 2:9: Expected ';'
//
//	   1 | {
//	   2 |   a = 1
//	     |         ^
//	   3 | }
//
// Errors without a location are returned as their plain message.
func Snippet(err error, src string) string {
	var ce *CompileError
	if !errors.As(err, &ce) || !ce.HasLoc {
		return err.Error()
	}

	lines := strings.Split(strings.TrimRight(src, "\x00"), "\n")
	line := min(max(ce.Loc.Line, 1), len(lines))
	col := max(ce.Loc.Column, 1)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s ERROR at %d:%d: %s\n\n", strings.ToUpper(string(ce.Phase)), ce.Loc.Line, ce.Loc.Column, ce.Msg)

	width := len(fmt.Sprint(min(line+1, len(lines))))
	for n := max(line-1, 1); n <= min(line+1, len(lines)); n++ {
		fmt.Fprintf(&sb, "  %*d | %s\n", width, n, lines[n-1])
		if n == line {
			fmt.Fprintf(&sb, "  %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", col-1))
		}
	}
	return sb.String()
}
