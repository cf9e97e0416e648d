package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestFormat(t *testing.T) {
	prog, _ := parseProgramString(t, "{int a;a=1+2*3;if(a<10){a=a-1;}else a=0;while(a)a=a/2;return (a)%2;}")

	want := `{
    int a;
    a = 1 + 2 * 3;
    if (a < 10) {
        a = a - 1;
    } else a = 0;
    while (a) a = a / 2;
    return (a) % 2;
}
`
	be.Equal(t, Format(prog), want)
}

func TestFormatRoundTrip(t *testing.T) {
	sources := []string{
		"{}",
		"{ { int x; } }",
		"{ int a; a = (1 + 2) * (3 - 4) / 5 % 6; }",
		"{ if (1 == 2 != 0) return; else { return 1 >= 0; } }",
		"{ int n; n = f(1, g(2), 3 <= 4)(); }",
		"{ while (0) if (1) 2; else 3; }",
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			prog, _ := parseProgramString(t, src)
			again, _ := parseProgramString(t, Format(prog))
			be.Equal(t, ToSExpr(again), ToSExpr(prog))
		})
	}
}

func TestToSExprTransparentTiers(t *testing.T) {
	// A lone operand dumps the same whatever tier it was parsed at.
	be.Equal(t, ToSExpr(parseExprString(t, "x")), `(ident "x")`)
	be.Equal(t, ToSExpr(parseExprString(t, "((x))")), `(paren (paren (ident "x")))`)
}

func TestWalkVisitsParentsFirst(t *testing.T) {
	prog, _ := parseProgramString(t, "{ int a; return a; }")

	var kinds []string
	Walk(prog, func(n Node) {
		switch n.(type) {
		case *Program:
			kinds = append(kinds, "program")
		case *Block:
			kinds = append(kinds, "block")
		case *Declaration:
			kinds = append(kinds, "decl")
		case *ReturnStatement:
			kinds = append(kinds, "return")
		case *Identifier:
			kinds = append(kinds, "ident")
		}
	})
	be.Equal(t, kinds, []string{"program", "block", "decl", "return", "ident"})
}

func TestWalkNil(t *testing.T) {
	called := false
	Walk(nil, func(Node) { called = true })
	be.True(t, !called)
}
