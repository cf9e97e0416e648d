package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

// scriptedPrompter replays lines and records the prompts it was shown.
type scriptedPrompter struct {
	lines   []string
	errs    map[int]error
	prompts []string
}

func (p *scriptedPrompter) Prompt(prompt string) (string, error) {
	i := len(p.prompts)
	p.prompts = append(p.prompts, prompt)
	if err, ok := p.errs[i]; ok {
		return "", err
	}
	if i >= len(p.lines) {
		return "", io.EOF
	}
	return p.lines[i], nil
}

func TestWrapSnippet(t *testing.T) {
	be.Equal(t, wrapSnippet("int a;"), "{int a;\n}")
	be.Equal(t, wrapSnippet("a = 1; // note"), "{a = 1; // note\n}")
	be.Equal(t, wrapSnippet("{ return 1; }"), "{ return 1; }")
	be.Equal(t, wrapSnippet("  { }"), "  { }")
}

func TestReadSnippetSingleLine(t *testing.T) {
	p := &scriptedPrompter{lines: []string{"int a;"}}
	code, ok := readSnippet(p, ">>> ", "... ")
	be.True(t, ok)
	be.Equal(t, code, "int a;")
	be.Equal(t, p.prompts, []string{">>> "})
}

func TestReadSnippetContinuesIncompleteInput(t *testing.T) {
	p := &scriptedPrompter{lines: []string{"while (1) {", "  return 2;", "}"}}
	code, ok := readSnippet(p, ">>> ", "... ")
	be.True(t, ok)
	be.Equal(t, code, "while (1) {\n  return 2;\n}")
	be.Equal(t, p.prompts, []string{">>> ", "... ", "... "})
}

func TestReadSnippetContinuesOpenComment(t *testing.T) {
	p := &scriptedPrompter{lines: []string{"int a; /* first", "second */", "a = 1;"}}
	code, ok := readSnippet(p, ">>> ", "... ")
	be.True(t, ok)
	be.Equal(t, code, "int a; /* first\nsecond */")
	be.Equal(t, p.prompts, []string{">>> ", "... "})
}

func TestReadSnippetStopsAtRealError(t *testing.T) {
	p := &scriptedPrompter{lines: []string{"int 5;", "never read"}}
	code, ok := readSnippet(p, ">>> ", "... ")
	be.True(t, ok)
	be.Equal(t, code, "int 5;")
	be.Equal(t, len(p.prompts), 1)

	p = &scriptedPrompter{lines: []string{"a = $;"}}
	code, ok = readSnippet(p, ">>> ", "... ")
	be.True(t, ok)
	be.Equal(t, code, "a = $;")
}

func TestReadSnippetCommands(t *testing.T) {
	p := &scriptedPrompter{lines: []string{"  :help"}}
	code, ok := readSnippet(p, ">>> ", "... ")
	be.True(t, ok)
	be.Equal(t, code, "  :help")
}

func TestReadSnippetEOF(t *testing.T) {
	p := &scriptedPrompter{lines: []string{"while (1) {"}}
	_, ok := readSnippet(p, ">>> ", "... ")
	be.True(t, !ok)
}

func TestReadSnippetAbortDropsPending(t *testing.T) {
	p := &scriptedPrompter{
		lines: []string{"while (1) {"},
		errs:  map[int]error{1: errors.New("prompt aborted")},
	}
	code, ok := readSnippet(p, ">>> ", "... ")
	be.True(t, ok)
	be.Equal(t, code, "")
}

func TestReplEval(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRepl(DefaultOptions(), &out, &errOut)

	r.Eval("int a; a = 1;")
	be.True(t, strings.HasPrefix(out.String(), "global _start\n"))
	be.True(t, strings.Contains(out.String(), "mov [rsp + 0], rax\n"))
	be.Equal(t, errOut.String(), "")
}

func TestReplEvalReportsErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRepl(DefaultOptions(), &out, &errOut)

	r.Eval("b = 2;")
	be.Equal(t, out.String(), "")
	be.True(t, strings.HasPrefix(errOut.String(), "CODEGEN ERROR at 1:2: Undeclared identifier: b\n"))
	be.True(t, strings.Contains(errOut.String(), "{b = 2;"))
}

func TestReplLoop(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRepl(DefaultOptions(), &out, &errOut)
	p := &scriptedPrompter{lines: []string{
		"",
		":trace",
		"int a; a = 4;",
		"a = 5;",
		":nope",
		":q",
		"int never;",
	}}

	var seen []string
	r.Loop(p, func(code string) { seen = append(seen, code) })

	be.Equal(t, seen, []string{"int a; a = 4;", "a = 5;"})
	be.True(t, r.opts.Trace)
	be.True(t, strings.Contains(out.String(), "trace on\n"))
	be.True(t, strings.Contains(out.String(), "call print\n"))
	be.True(t, strings.Contains(out.String(), "unknown command :nope. Type :help for a list.\n"))
	be.True(t, strings.Contains(errOut.String(), "Undeclared identifier: a"))
	be.Equal(t, len(p.prompts), 6)
}

func TestReplLoopCommands(t *testing.T) {
	var out bytes.Buffer
	r := NewRepl(DefaultOptions(), &out, io.Discard)
	p := &scriptedPrompter{lines: []string{":help", ":run", ":run", ":TRACE"}}

	r.Loop(p, nil)

	be.True(t, strings.HasPrefix(out.String(), replHelp))
	be.True(t, strings.Contains(out.String(), "run on\nrun off\ntrace on\n"))
	be.True(t, strings.HasSuffix(out.String(), "\n\n"))
	be.True(t, !r.run)
}

func TestReplRunsSnippets(t *testing.T) {
	if !ToolchainAvailable(DefaultOptions()) {
		t.Skip("nasm or ld not installed")
	}
	var out bytes.Buffer
	r := NewRepl(DefaultOptions(), &out, io.Discard)
	p := &scriptedPrompter{lines: []string{":run", "return 6 * 7;"}}

	r.Loop(p, nil)
	be.True(t, strings.Contains(out.String(), "exit code 42\n"))
}

func TestOnOff(t *testing.T) {
	be.Equal(t, onOff(true), "on")
	be.Equal(t, onOff(false), "off")
}
