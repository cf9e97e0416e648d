package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// wordSize is the size in bytes of every value on the machine stack.
const wordSize = 8

// Generator lowers a Program to NASM x86-64 assembly for Linux. Every value
// lives on the machine stack; height tracks how many 8-byte words the
// generated code has pushed at the current point, so variable slots can be
// addressed relative to rsp.
type Generator struct {
	out    strings.Builder
	height int
	labels int
	scopes *ScopeStack
	opts   Options

	// scopeLog, when set, receives a dump of the scope stack each time a
	// block is about to close.
	scopeLog io.Writer
}

func NewGenerator(opts Options) *Generator {
	return &Generator{opts: opts}
}

// Generate is shorthand for NewGenerator(opts).Generate(prog).
func Generate(prog *Program, opts Options) (string, error) {
	return NewGenerator(opts).Generate(prog)
}

// Generate returns the complete assembly for prog. On error no partial
// output is returned. A Generator may be reused; each call starts fresh.
func (g *Generator) Generate(prog *Program) (string, error) {
	g.out.Reset()
	g.height = 0
	g.labels = 0
	g.scopes = NewScopeStack()

	entry := g.opts.Entry
	if entry == "" {
		entry = DefaultEntry
	}

	g.emit("global %s", entry)
	g.emit("section .text")
	g.label(entry)
	if err := g.genBlock(prog.Block); err != nil {
		return "", err
	}
	g.emitExit()
	if g.opts.Trace {
		g.out.WriteString(printRoutine)
	}
	return g.out.String(), nil
}

// LogScopes makes the generator write the open scopes to w whenever a block
// closes.
func (g *Generator) LogScopes(w io.Writer) {
	g.scopeLog = w
}

func (g *Generator) emit(format string, args ...any) {
	fmt.Fprintf(&g.out, format, args...)
	g.out.WriteByte('\n')
}

func (g *Generator) label(name string) {
	g.out.WriteString(name)
	g.out.WriteString(":\n")
}

func (g *Generator) newLabel() string {
	name := fmt.Sprintf("label%d", g.labels)
	g.labels++
	return name
}

func (g *Generator) push(operand string) {
	g.emit("push %s", operand)
	g.height++
}

func (g *Generator) pop(reg string, loc Location) error {
	if g.height <= 0 {
		return errorAt(PhaseCodegen, loc, "Stack underflow")
	}
	g.emit("pop %s", reg)
	g.height--
	return nil
}

func (g *Generator) emitExit() {
	g.emit("mov rax, 60")
	g.emit("xor rdi, rdi")
	g.emit("syscall")
}

// slotOffset returns the rsp-relative byte offset of the variable whose slot
// was reserved at height slot.
func (g *Generator) slotOffset(slot int) int {
	return (g.height - slot - 1) * wordSize
}

func (g *Generator) lookup(name string, loc Location) (ScopeEntry, error) {
	entry, err := g.scopes.Lookup(name)
	if err != nil {
		return ScopeEntry{}, g.scopeError(err, name, loc)
	}
	if entry.Kind != KindVariable {
		return ScopeEntry{}, errorAt(PhaseCodegen, loc, "Not a variable: %s", name)
	}
	return entry, nil
}

func (g *Generator) scopeError(err error, name string, loc Location) error {
	var ce *CompileError
	switch {
	case errors.Is(err, ErrRedefinition):
		ce = errorAt(PhaseCodegen, loc, "Redefinition of identifier: %s", name)
	case errors.Is(err, ErrUndeclared):
		ce = errorAt(PhaseCodegen, loc, "Undeclared identifier: %s", name)
	default:
		ce = errorAt(PhaseCodegen, loc, "%s", err)
	}
	ce.Err = err
	return ce
}

func (g *Generator) genBlock(b *Block) error {
	g.scopes.EnterScope()
	for _, item := range b.Items {
		var err error
		switch item := item.(type) {
		case *Declaration:
			err = g.genDeclaration(item)
		case Statement:
			err = g.genStatement(item)
		default:
			err = errorAt(PhaseCodegen, item.Loc(), "Unknown block item %T", item)
		}
		if err != nil {
			return err
		}
		if g.height != g.scopes.Len() {
			return errorAt(PhaseCodegen, item.Loc(), "Stack height %d does not match %d variables in scope", g.height, g.scopes.Len())
		}
	}

	if g.scopeLog != nil {
		fmt.Fprintf(g.scopeLog, "closing block at %s, height %d\n%s", b.Loc(), g.height, g.scopes)
	}
	n, err := g.scopes.ExitScope()
	if err != nil {
		return errorAt(PhaseCodegen, b.Loc(), "%s", err)
	}
	if n > 0 {
		g.emit("add rsp, %d", n*wordSize)
	}
	g.height -= n
	return nil
}

func (g *Generator) genDeclaration(d *Declaration) error {
	entry := ScopeEntry{Kind: KindVariable, StackOffset: g.height, Loc: d.Loc()}
	if err := g.scopes.Insert(d.Name, entry); err != nil {
		return g.scopeError(err, d.Name, d.Loc())
	}
	g.emit("sub rsp, %d", wordSize)
	g.height++
	return nil
}

func (g *Generator) genStatement(s Statement) error {
	switch s := s.(type) {
	case *ExpressionStatement:
		return g.genExpressionStatement(s)
	case *IfStatement:
		return g.genIf(s)
	case *WhileStatement:
		return g.genWhile(s)
	case *ReturnStatement:
		return g.genReturn(s)
	case *Block:
		return g.genBlock(s)
	default:
		return errorAt(PhaseCodegen, s.Loc(), "Unknown statement %T", s)
	}
}

// genExpressionStatement evaluates an expression for its effect. An
// assignment stores into the target slot; anything else is discarded.
func (g *Generator) genExpressionStatement(s *ExpressionStatement) error {
	assign := s.Expr.Expr
	if assign.Target == nil {
		if err := g.genEquality(assign.Expr); err != nil {
			return err
		}
		return g.pop("rax", s.Loc())
	}
	return g.genStore(assign)
}

// genStore evaluates the right-hand side of a into rax and writes it to the
// target's slot. The stack height is unchanged afterwards.
func (g *Generator) genStore(a *AssignmentExpression) error {
	entry, err := g.lookup(a.Target.Name, a.Target.Loc())
	if err != nil {
		return err
	}
	if err := g.genEquality(a.Expr); err != nil {
		return err
	}
	if err := g.pop("rax", a.Loc()); err != nil {
		return err
	}
	g.emit("mov [rsp + %d], rax", g.slotOffset(entry.StackOffset))
	if g.opts.Trace {
		g.emit("mov rdi, rax")
		g.emit("call print")
	}
	return nil
}

// genExpression leaves the value of e on top of the stack.
func (g *Generator) genExpression(e *Expression) error {
	return g.genAssignment(e.Expr)
}

func (g *Generator) genAssignment(a *AssignmentExpression) error {
	if a.Target == nil {
		return g.genEquality(a.Expr)
	}
	if err := g.genStore(a); err != nil {
		return err
	}
	// The value of an assignment expression is the stored value.
	g.push("rax")
	return nil
}

func (g *Generator) genEquality(e *EqualityExpression) error {
	return genTier(g, e, equalityOps, g.genRelational)
}

func (g *Generator) genRelational(e *RelationalExpression) error {
	return genTier(g, e, relationalOps, g.genAdditive)
}

func (g *Generator) genAdditive(e *AdditiveExpression) error {
	return genTier(g, e, additiveOps, g.genMultiplicative)
}

func (g *Generator) genMultiplicative(e *MultiplicativeExpression) error {
	return genTier(g, e, multiplicativeOps, g.genPostfix)
}

// genTier evaluates the left operand, then for each operation evaluates the
// right operand and combines the top two stack words. Operators outside ops
// do not belong to the tier and are rejected.
func genTier[T any](g *Generator, t *Tier[T], ops map[TokenType]BinaryOp, operand func(T) error) error {
	if err := operand(t.Left); err != nil {
		return err
	}
	for _, op := range t.Rest {
		if !tierHasOp(ops, op.Op) {
			return errorAt(PhaseCodegen, op.Loc, "Unknown operator")
		}
		if err := operand(op.Operand); err != nil {
			return err
		}
		if err := g.genBinary(op.Op, op.Loc); err != nil {
			return err
		}
	}
	return nil
}

func tierHasOp(ops map[TokenType]BinaryOp, op BinaryOp) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

var setccByOp = map[BinaryOp]string{
	OpGt: "setg",
	OpGe: "setge",
	OpLt: "setl",
	OpLe: "setle",
	OpEq: "sete",
	OpNe: "setne",
}

// genBinary pops the right then the left operand and pushes the result.
func (g *Generator) genBinary(op BinaryOp, loc Location) error {
	switch op {
	case OpMul, OpDiv, OpMod:
		if err := g.pop("rcx", loc); err != nil {
			return err
		}
		if err := g.pop("rax", loc); err != nil {
			return err
		}
		switch op {
		case OpMul:
			g.emit("imul rax, rcx")
			g.push("rax")
		case OpDiv:
			g.emit("cqo")
			g.emit("idiv rcx")
			g.push("rax")
		case OpMod:
			g.emit("cqo")
			g.emit("idiv rcx")
			g.push("rdx")
		}
		return nil

	case OpAdd, OpSub:
		if err := g.pop("rax", loc); err != nil {
			return err
		}
		if err := g.pop("rbx", loc); err != nil {
			return err
		}
		if op == OpAdd {
			g.emit("add rbx, rax")
		} else {
			g.emit("sub rbx, rax")
		}
		g.push("rbx")
		return nil
	}

	setcc, ok := setccByOp[op]
	if !ok {
		return errorAt(PhaseCodegen, loc, "Unknown operator")
	}
	if err := g.pop("rax", loc); err != nil {
		return err
	}
	if err := g.pop("rbx", loc); err != nil {
		return err
	}
	g.emit("cmp rbx, rax")
	g.emit("%s al", setcc)
	g.emit("movzx rax, al")
	g.push("rax")
	return nil
}

func (g *Generator) genPostfix(p *PostfixExpression) error {
	if len(p.Calls) > 0 {
		return errorAt(PhaseCodegen, p.Loc(), "Function calls are not supported")
	}
	return g.genPrimary(p.Prim)
}

func (g *Generator) genPrimary(p Primary) error {
	switch p := p.(type) {
	case *IntegerLiteral:
		g.emit("mov rax, %d", p.Value)
		g.push("rax")
		return nil
	case *Identifier:
		entry, err := g.lookup(p.Name, p.Loc())
		if err != nil {
			return err
		}
		g.push(fmt.Sprintf("QWORD [rsp + %d]", g.slotOffset(entry.StackOffset)))
		return nil
	case *ParenExpr:
		return g.genExpression(p.Expr)
	default:
		return errorAt(PhaseCodegen, p.Loc(), "Unknown primary %T", p)
	}
}

// genCondition evaluates cond into rax and branches to target when it is 0.
func (g *Generator) genCondition(cond *Expression, target string) error {
	if err := g.genExpression(cond); err != nil {
		return err
	}
	if err := g.pop("rax", cond.Loc()); err != nil {
		return err
	}
	g.emit("test rax, rax")
	g.emit("jz %s", target)
	return nil
}

func (g *Generator) genIf(s *IfStatement) error {
	elseLabel := g.newLabel()
	endLabel := g.newLabel()
	if err := g.genCondition(s.Cond, elseLabel); err != nil {
		return err
	}

	err := g.reconcile(
		func() error {
			if err := g.genStatement(s.Then); err != nil {
				return err
			}
			g.emit("jmp %s", endLabel)
			g.label(elseLabel)
			return nil
		},
		func() error {
			if s.Else == nil {
				return nil
			}
			return g.genStatement(s.Else)
		},
		s.Loc(),
	)
	if err != nil {
		return err
	}
	g.label(endLabel)
	return nil
}

// reconcile generates two alternative branches that both start at the
// current height. Control flow merges afterwards, so both must end at the
// same height, which becomes the height after the merge.
func (g *Generator) reconcile(thenBranch, elseBranch func() error, loc Location) error {
	before := g.height
	if err := thenBranch(); err != nil {
		return err
	}
	thenHeight := g.height

	g.height = before
	if err := elseBranch(); err != nil {
		return err
	}
	if g.height != thenHeight {
		return errorAt(PhaseCodegen, loc, "Stack height mismatch between if branches")
	}
	return nil
}

func (g *Generator) genWhile(s *WhileStatement) error {
	startLabel := g.newLabel()
	endLabel := g.newLabel()

	g.label(startLabel)
	if err := g.genCondition(s.Cond, endLabel); err != nil {
		return err
	}
	before := g.height
	if err := g.genStatement(s.Body); err != nil {
		return err
	}
	g.emit("jmp %s", startLabel)
	g.label(endLabel)
	g.height = before
	return nil
}

func (g *Generator) genReturn(s *ReturnStatement) error {
	if s.Expr != nil {
		if err := g.genExpression(s.Expr); err != nil {
			return err
		}
		if err := g.pop("rdi", s.Loc()); err != nil {
			return err
		}
	} else {
		g.emit("xor rdi, rdi")
	}
	g.emit("mov rax, 60")
	g.emit("syscall")
	return nil
}

// printRoutine writes rdi as a signed decimal number and a newline to
// stdout. It preserves every register the generated code relies on.
const printRoutine = `print:
push rax
push rbx
push rcx
push rdx
push rsi
push rdi
push r11
sub rsp, 32
mov rax, rdi
lea rsi, [rsp + 31]
mov byte [rsi], 10
mov rcx, 1
mov rbx, 10
mov r11, rax
test rax, rax
jns .digits
neg rax
.digits:
xor rdx, rdx
div rbx
add dl, '0'
dec rsi
mov [rsi], dl
inc rcx
test rax, rax
jnz .digits
test r11, r11
jns .write
dec rsi
mov byte [rsi], '-'
inc rcx
.write:
mov rax, 1
mov rdi, 1
mov rdx, rcx
syscall
add rsp, 32
pop r11
pop rdi
pop rsi
pop rdx
pop rcx
pop rbx
pop rax
ret
`
