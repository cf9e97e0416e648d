package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func generateString(t *testing.T, src string, opts Options) string {
	t.Helper()
	prog, _ := parseProgramString(t, src)
	asm, err := Generate(prog, opts)
	be.Err(t, err, nil)
	return asm
}

func generateError(t *testing.T, src string) *CompileError {
	t.Helper()
	prog, _ := parseProgramString(t, src)
	asm, err := Generate(prog, DefaultOptions())
	be.Err(t, err)
	be.Equal(t, asm, "")
	ce, ok := err.(*CompileError)
	be.True(t, ok)
	be.Equal(t, ce.Phase, PhaseCodegen)
	return ce
}

func asmLines(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestGenerateEmptyProgram(t *testing.T) {
	be.Equal(t, generateString(t, "{}", DefaultOptions()), asmLines(
		"global _start",
		"section .text",
		"_start:",
		"mov rax, 60",
		"xor rdi, rdi",
		"syscall",
	))
}

func TestGenerateReturnVariable(t *testing.T) {
	be.Equal(t, generateString(t, "{ int a; a = 5; return a; }", DefaultOptions()), asmLines(
		"global _start",
		"section .text",
		"_start:",
		"sub rsp, 8",
		"mov rax, 5",
		"push rax",
		"pop rax",
		"mov [rsp + 0], rax",
		"push QWORD [rsp + 0]",
		"pop rdi",
		"mov rax, 60",
		"syscall",
		"add rsp, 8",
		"mov rax, 60",
		"xor rdi, rdi",
		"syscall",
	))
}

func TestGenerateSlotOffsetsFollowHeight(t *testing.T) {
	asm := generateString(t, "{ int a; int b; b = a + 1; }", DefaultOptions())
	be.Equal(t, programBody(asm), strings.TrimSuffix(asmLines(
		"sub rsp, 8",
		"sub rsp, 8",
		"push QWORD [rsp + 8]",
		"mov rax, 1",
		"push rax",
		"pop rax",
		"pop rbx",
		"add rbx, rax",
		"push rbx",
		"pop rax",
		"mov [rsp + 0], rax",
		"add rsp, 16",
	), "\n"))
}

func TestGenerateOuterVariableFromInnerBlock(t *testing.T) {
	asm := generateString(t, "{ int a; { int b; a = 1; } }", DefaultOptions())
	be.True(t, strings.Contains(asm, "mov [rsp + 8], rax\nadd rsp, 8\nadd rsp, 8\n"))
}

func TestGenerateBinaryOperators(t *testing.T) {
	tests := []struct {
		op   string
		want string
	}{
		{"*", "pop rcx\npop rax\nimul rax, rcx\npush rax\n"},
		{"/", "pop rcx\npop rax\ncqo\nidiv rcx\npush rax\n"},
		{"%", "pop rcx\npop rax\ncqo\nidiv rcx\npush rdx\n"},
		{"+", "pop rax\npop rbx\nadd rbx, rax\npush rbx\n"},
		{"-", "pop rax\npop rbx\nsub rbx, rax\npush rbx\n"},
		{"<", "pop rax\npop rbx\ncmp rbx, rax\nsetl al\nmovzx rax, al\npush rax\n"},
		{"<=", "cmp rbx, rax\nsetle al\n"},
		{">", "cmp rbx, rax\nsetg al\n"},
		{">=", "cmp rbx, rax\nsetge al\n"},
		{"==", "cmp rbx, rax\nsete al\n"},
		{"!=", "cmp rbx, rax\nsetne al\n"},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			asm := generateString(t, "{ 7 "+tt.op+" 2; }", DefaultOptions())
			be.True(t, strings.Contains(asm, "mov rax, 7\npush rax\nmov rax, 2\npush rax\n"))
			be.True(t, strings.Contains(asm, tt.want))
		})
	}
}

func TestGenerateIfElse(t *testing.T) {
	asm := generateString(t, "{ if (1) return 2; else return 3; }", DefaultOptions())
	be.Equal(t, programBody(asm), strings.TrimSuffix(asmLines(
		"mov rax, 1",
		"push rax",
		"pop rax",
		"test rax, rax",
		"jz label0",
		"mov rax, 2",
		"push rax",
		"pop rdi",
		"mov rax, 60",
		"syscall",
		"jmp label1",
		"label0:",
		"mov rax, 3",
		"push rax",
		"pop rdi",
		"mov rax, 60",
		"syscall",
		"label1:",
	), "\n"))
}

func TestGenerateWhile(t *testing.T) {
	asm := generateString(t, "{ while (0) {} }", DefaultOptions())
	be.Equal(t, programBody(asm), strings.TrimSuffix(asmLines(
		"label0:",
		"mov rax, 0",
		"push rax",
		"pop rax",
		"test rax, rax",
		"jz label1",
		"jmp label0",
		"label1:",
	), "\n"))
}

func TestGenerateLabelsAreUnique(t *testing.T) {
	asm := generateString(t, "{ if (1) {} if (2) {} else {} while (3) {} }", DefaultOptions())
	for _, l := range []string{"label0:", "label1:", "label2:", "label3:", "label4:", "label5:"} {
		be.Equal(t, strings.Count(asm, l), 1)
	}
	be.True(t, !strings.Contains(asm, "label6"))
}

func TestGenerateBareReturn(t *testing.T) {
	asm := generateString(t, "{ return; }", DefaultOptions())
	be.Equal(t, programBody(asm), "xor rdi, rdi\nmov rax, 60\nsyscall")
}

func TestGenerateTrace(t *testing.T) {
	opts := DefaultOptions()
	opts.Trace = true
	asm := generateString(t, "{ int a; a = 3; }", opts)

	be.True(t, strings.Contains(asm, "mov [rsp + 0], rax\nmov rdi, rax\ncall print\n"))
	be.True(t, strings.HasSuffix(asm, printRoutine))
	be.Equal(t, strings.Count(asm, "\nprint:\n"), 1)

	plain := generateString(t, "{ int a; a = 3; }", DefaultOptions())
	be.True(t, !strings.Contains(plain, "print"))
}

func TestGenerateEntry(t *testing.T) {
	opts := DefaultOptions()
	opts.Entry = "main"
	asm := generateString(t, "{}", opts)
	be.True(t, strings.HasPrefix(asm, "global main\nsection .text\nmain:\n"))

	opts.Entry = ""
	asm = generateString(t, "{}", opts)
	be.True(t, strings.HasPrefix(asm, "global _start\n"))
}

func TestGeneratorIsReusable(t *testing.T) {
	prog, _ := parseProgramString(t, "{ int a; while (a < 3) a = a + 1; }")
	g := NewGenerator(DefaultOptions())

	first, err := g.Generate(prog)
	be.Err(t, err, nil)
	second, err := g.Generate(prog)
	be.Err(t, err, nil)
	be.Equal(t, second, first)
	be.True(t, !strings.Contains(second, "label2"))
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		input    string
		msg      string
		sentinel error
	}{
		{"{ a = 1; }", "Undeclared identifier: a [Ln 1, Col 3]", ErrUndeclared},
		{"{ return b; }", "Undeclared identifier: b [Ln 1, Col 10]", ErrUndeclared},
		{"{ int a; int a; }", "Redefinition of identifier: a [Ln 1, Col 14]", ErrRedefinition},
		{"{ { int a; } a = 1; }", "Undeclared identifier: a [Ln 1, Col 14]", ErrUndeclared},
		{"{ if (x) {} }", "Undeclared identifier: x [Ln 1, Col 7]", ErrUndeclared},
		{"{ 1 + f(); }", "Function calls are not supported [Ln 1, Col 7]", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ce := generateError(t, tt.input)
			be.Equal(t, ce.Error(), tt.msg)
			if tt.sentinel != nil {
				be.True(t, errors.Is(ce, tt.sentinel))
			}
		})
	}
}

func TestGenerateShadowingIsAllowed(t *testing.T) {
	asm := generateString(t, "{ int a; { int a; a = 1; } a = 2; }", DefaultOptions())
	be.True(t, strings.Contains(asm, "sub rsp, 8\nsub rsp, 8\n"))
	be.True(t, strings.Contains(asm, "add rsp, 8\nmov rax, 2\n"))
}

func TestGenerateAssignmentExpressionValue(t *testing.T) {
	// The parser only builds assignments as statements, so splice one into
	// a return to exercise the expression form.
	prog, arena := parseProgramString(t, "{ int a; return 0; }")
	ret := prog.Block.Items[1].(*ReturnStatement)
	target := alloc(arena, &arena.identifiers, Location{1, 17})
	target.Name = "a"
	ret.Expr.Expr.Target = target

	asm, err := Generate(prog, DefaultOptions())
	be.Err(t, err, nil)
	be.True(t, strings.Contains(asm, "mov rax, 0\npush rax\npop rax\nmov [rsp + 0], rax\npush rax\npop rdi\n"))
}

func TestReconcile(t *testing.T) {
	g := NewGenerator(DefaultOptions())
	g.scopes = NewScopeStack()

	err := g.reconcile(
		func() error { g.push("rax"); return nil },
		func() error { g.push("rbx"); return nil },
		Location{1, 1},
	)
	be.Err(t, err, nil)
	be.Equal(t, g.height, 1)

	err = g.reconcile(
		func() error { g.push("rax"); return nil },
		func() error { return nil },
		Location{4, 2},
	)
	be.Err(t, err)
	be.Equal(t, err.Error(), "Stack height mismatch between if branches [Ln 4, Col 2]")
}

func TestReconcilePropagatesBranchErrors(t *testing.T) {
	g := NewGenerator(DefaultOptions())
	boom := errors.New("boom")

	err := g.reconcile(func() error { return boom }, func() error { return nil }, Location{})
	be.Err(t, err, boom)
	err = g.reconcile(func() error { return nil }, func() error { return boom }, Location{})
	be.Err(t, err, boom)
}

func TestPopUnderflow(t *testing.T) {
	g := NewGenerator(DefaultOptions())
	err := g.pop("rax", Location{2, 5})
	be.Err(t, err)
	be.Equal(t, err.Error(), "Stack underflow [Ln 2, Col 5]")
}

func TestLookupRejectsNonVariables(t *testing.T) {
	g := NewGenerator(DefaultOptions())
	g.scopes = NewScopeStack()
	g.scopes.EnterScope()
	be.Err(t, g.scopes.Insert("f", ScopeEntry{Kind: KindFunction}), nil)

	_, err := g.lookup("f", Location{3, 1})
	be.Err(t, err)
	be.Equal(t, err.Error(), "Not a variable: f [Ln 3, Col 1]")
}

func TestLogScopes(t *testing.T) {
	prog, _ := parseProgramString(t, "{ int a; { int b; } }")
	g := NewGenerator(DefaultOptions())
	var log bytes.Buffer
	g.LogScopes(&log)

	_, err := g.Generate(prog)
	be.Err(t, err, nil)

	want := "closing block at 1:10, height 2\n" +
		"scope 0:\n" +
		"  variable a slot=0 at 1:7\n" +
		"scope 1:\n" +
		"  variable b slot=1 at 1:16\n" +
		"closing block at 1:1, height 1\n" +
		"scope 0:\n" +
		"  variable a slot=0 at 1:7\n"
	be.Equal(t, log.String(), want)
}

func TestGenerateUnknownOperator(t *testing.T) {
	tests := []struct {
		name string
		src  string
		set  func(stmt *ExpressionStatement)
	}{
		{"unknown op", "{ 1 * 2; }", func(stmt *ExpressionStatement) {
			stmt.Expr.Expr.Expr.Left.Left.Left.Rest[0].Op = BinaryOp("^")
		}},
		{"additive op in multiplicative tier", "{ 1 * 2; }", func(stmt *ExpressionStatement) {
			stmt.Expr.Expr.Expr.Left.Left.Left.Rest[0].Op = OpAdd
		}},
		{"additive op in equality tier", "{ 1 == 2; }", func(stmt *ExpressionStatement) {
			stmt.Expr.Expr.Expr.Rest[0].Op = OpSub
		}},
		{"comparison in additive tier", "{ 1 + 2; }", func(stmt *ExpressionStatement) {
			stmt.Expr.Expr.Expr.Left.Left.Rest[0].Op = OpLt
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, _ := parseProgramString(t, tt.src)
			tt.set(prog.Block.Items[0].(*ExpressionStatement))

			asm, err := Generate(prog, DefaultOptions())
			be.Err(t, err)
			be.Equal(t, err.Error(), "Unknown operator [Ln 1, Col 5]")
			be.Equal(t, asm, "")
		})
	}
}
