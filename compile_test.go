package main

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestCompile(t *testing.T) {
	c, err := Compile([]byte("{ int a; a = 2 * 3; return a; }"), DefaultOptions())
	be.Err(t, err, nil)

	be.Equal(t, len(c.Tokens), 15)
	be.True(t, c.Program != nil)
	be.Equal(t, int(c.Program.ID()), c.Arena.Len())
	be.True(t, strings.HasPrefix(c.Assembly, "global _start\n"))
	be.True(t, strings.Contains(c.Assembly, "imul rax, rcx\n"))
}

func TestCompileKeepsArtifactsOnError(t *testing.T) {
	c, err := Compile([]byte("{ a ! }"), DefaultOptions())
	be.Err(t, err)
	be.Equal(t, len(c.Tokens), 0)
	be.True(t, c.Program == nil)

	c, err = Compile([]byte("{ int a }"), DefaultOptions())
	be.Err(t, err)
	be.True(t, len(c.Tokens) > 0)
	be.True(t, c.Program == nil)

	c, err = Compile([]byte("{ b = 1; }"), DefaultOptions())
	be.Err(t, err)
	be.True(t, c.Program != nil)
	be.Equal(t, c.Assembly, "")
}

func TestCompileErrorPhases(t *testing.T) {
	tests := []struct {
		src   string
		phase Phase
	}{
		{"{ # }", PhaseLex},
		{"{ int }", PhaseParse},
		{"{ x = 1; }", PhaseCodegen},
	}

	for _, tt := range tests {
		_, err := Compile([]byte(tt.src), DefaultOptions())
		ce, ok := err.(*CompileError)
		be.True(t, ok)
		be.Equal(t, ce.Phase, tt.phase)
	}
}

func TestCompileVerboseLog(t *testing.T) {
	var log bytes.Buffer
	c, err := compile([]byte("{ int a; }"), DefaultOptions(), &log)
	be.Err(t, err, nil)

	want := "Lexed 6 tokens\n" +
		"Parsed 3 nodes\n" +
		"closing block at 1:1, height 1\n" +
		"scope 0:\n" +
		"  variable a slot=0 at 1:7\n" +
		"Generated " + strconv.Itoa(len(c.Assembly)) + " bytes of assembly\n"
	be.Equal(t, log.String(), want)
}

