package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

const (
	historyFile = ".compiler_history"
	promptMain  = ">>> "
	promptCont  = "... "
)

const replHelp = `Enter statements; each snippet is compiled on its own and
wrapped in { } unless it already starts with a brace.
Commands:
    :help     show this message
    :trace    toggle trace output of assignments
    :run      toggle running snippets (needs nasm and ld)
    :quit     leave the REPL
`

// prompter is the part of *liner.State the REPL loop needs.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// wrapSnippet turns a sequence of block items into a program.
func wrapSnippet(code string) string {
	if strings.HasPrefix(strings.TrimSpace(code), "{") {
		return code
	}
	return "{" + code + "\n}"
}

// readSnippet reads lines until they form a complete program or a real
// error. It returns false at end of input.
func readSnippet(p prompter, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = p.Prompt(prompt)
		} else {
			line, err = p.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl-C drops the pending snippet.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		tokens, err := Lex([]byte(wrapSnippet(src)))
		if IsIncomplete(err) {
			continue
		}
		if err != nil {
			return src, true
		}
		if _, err := ParseProgram(tokens, NewArena()); IsIncomplete(err) {
			continue
		}
		return src, true
	}
}

// Repl compiles snippets read from a prompter and prints their assembly.
type Repl struct {
	opts Options
	run  bool
	out  io.Writer
	err  io.Writer
}

func NewRepl(opts Options, out, errOut io.Writer) *Repl {
	return &Repl{opts: opts, out: out, err: errOut}
}

// Loop runs until p reports end of input or :quit is entered.
func (r *Repl) Loop(p prompter, onSnippet func(string)) {
	for {
		code, ok := readSnippet(p, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(r.out)
			return
		}
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if strings.HasPrefix(code, ":") {
			if !r.command(code) {
				return
			}
			continue
		}

		r.Eval(code)
		if onSnippet != nil {
			onSnippet(code)
		}
	}
}

func (r *Repl) command(cmd string) bool {
	switch strings.ToLower(cmd) {
	case ":quit", ":q":
		return false
	case ":help":
		fmt.Fprint(r.out, replHelp)
	case ":trace":
		r.opts.Trace = !r.opts.Trace
		fmt.Fprintf(r.out, "trace %s\n", onOff(r.opts.Trace))
	case ":run":
		r.run = !r.run
		fmt.Fprintf(r.out, "run %s\n", onOff(r.run))
	default:
		fmt.Fprintf(r.out, "unknown command %s. Type :help for a list.\n", cmd)
	}
	return true
}

// Eval compiles one snippet and prints its assembly, or its exit code when
// running is enabled.
func (r *Repl) Eval(code string) {
	src := wrapSnippet(code)
	c, err := Compile([]byte(src), r.opts)
	if err != nil {
		fmt.Fprint(r.err, Snippet(err, src))
		return
	}
	if !r.run {
		fmt.Fprint(r.out, c.Assembly)
		return
	}
	status, err := Execute(context.Background(), c.Assembly, r.opts, r.out, r.err)
	if err != nil {
		fmt.Fprintf(r.err, "Execution failed: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "exit code %d\n", status)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// runRepl drives a Repl from the terminal with line editing and history.
func runRepl(opts Options) {
	fmt.Println("Type :help for help, :quit or Ctrl-D to exit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetMultiLineMode(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	r := NewRepl(opts, os.Stdout, os.Stderr)
	r.Loop(ln, func(code string) {
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	})
}
