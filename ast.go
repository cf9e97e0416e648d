package main

import (
	"strconv"
	"strings"
)

// Node is implemented by every AST node. All nodes live in an Arena.
type Node interface {
	ID() NodeID
	Loc() Location
}

type node struct {
	id  NodeID
	loc Location
}

func (n *node) ID() NodeID    { return n.id }
func (n *node) Loc() Location { return n.loc }

func (n *node) setNode(id NodeID, loc Location) {
	n.id = id
	n.loc = loc
}

// BinaryOp is a binary operator as spelled in the source.
type BinaryOp string

const (
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "%"
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpGt  BinaryOp = ">"
	OpGe  BinaryOp = ">="
	OpLt  BinaryOp = "<"
	OpLe  BinaryOp = "<="
	OpEq  BinaryOp = "=="
	OpNe  BinaryOp = "!="
)

// Primary is one of *IntegerLiteral, *Identifier or *ParenExpr.
type Primary interface {
	Node
	primary()
}

type IntegerLiteral struct {
	node
	Value int64
}

type Identifier struct {
	node
	Name string
}

type ParenExpr struct {
	node
	Expr *Expression
}

func (*IntegerLiteral) primary() {}
func (*Identifier) primary()     {}
func (*ParenExpr) primary()      {}

// PostfixExpression is a primary followed by zero or more call argument
// lists. Calls are parsed but not lowered.
type PostfixExpression struct {
	node
	Prim  Primary
	Calls [][]*AssignmentExpression
}

// Operation is one (operator, right operand) pair of a Tier.
type Operation[T any] struct {
	Op      BinaryOp
	Loc     Location
	Operand T
}

// Tier is one precedence level: a left operand of the tier below followed by
// a left-associative chain of operations.
type Tier[T any] struct {
	node
	Left T
	Rest []Operation[T]
}

type (
	MultiplicativeExpression = Tier[*PostfixExpression]
	AdditiveExpression       = Tier[*MultiplicativeExpression]
	RelationalExpression     = Tier[*AdditiveExpression]
	EqualityExpression       = Tier[*RelationalExpression]
)

// AssignmentExpression is a bare equality expression when Target is nil and
// `Target = Expr` otherwise.
type AssignmentExpression struct {
	node
	Target *Identifier
	Expr   *EqualityExpression
}

type Expression struct {
	node
	Expr *AssignmentExpression
}

// BlockItem is a Statement or a *Declaration.
type BlockItem interface {
	Node
	blockItem()
}

// Statement is one of *ExpressionStatement, *IfStatement, *WhileStatement,
// *ReturnStatement or *Block.
type Statement interface {
	BlockItem
	statement()
}

type ExpressionStatement struct {
	node
	Expr *Expression
}

type IfStatement struct {
	node
	Cond *Expression
	Then Statement
	Else Statement // nil when absent; attached after construction
}

type WhileStatement struct {
	node
	Cond *Expression
	Body Statement
}

type ReturnStatement struct {
	node
	Expr *Expression // nil for a bare `return;`
}

type Block struct {
	node
	Items []BlockItem
}

// Declaration introduces a stack slot. It carries no initializer.
type Declaration struct {
	node
	Name string
}

type Program struct {
	node
	Block *Block
}

func (*ExpressionStatement) blockItem() {}
func (*IfStatement) blockItem()         {}
func (*WhileStatement) blockItem()      {}
func (*ReturnStatement) blockItem()     {}
func (*Block) blockItem()               {}
func (*Declaration) blockItem()         {}

func (*ExpressionStatement) statement() {}
func (*IfStatement) statement()         {}
func (*WhileStatement) statement()      {}
func (*ReturnStatement) statement()     {}
func (*Block) statement()               {}

// Walk calls fn for n and then for each of its descendants, parents first.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch n := n.(type) {
	case *Program:
		Walk(n.Block, fn)
	case *Block:
		for _, item := range n.Items {
			Walk(item, fn)
		}
	case *Declaration, *IntegerLiteral, *Identifier:
	case *ExpressionStatement:
		Walk(n.Expr, fn)
	case *IfStatement:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		if n.Else != nil {
			Walk(n.Else, fn)
		}
	case *WhileStatement:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)
	case *ReturnStatement:
		if n.Expr != nil {
			Walk(n.Expr, fn)
		}
	case *Expression:
		Walk(n.Expr, fn)
	case *AssignmentExpression:
		if n.Target != nil {
			Walk(n.Target, fn)
		}
		Walk(n.Expr, fn)
	case *EqualityExpression:
		walkTier(n, fn)
	case *RelationalExpression:
		walkTier(n, fn)
	case *AdditiveExpression:
		walkTier(n, fn)
	case *MultiplicativeExpression:
		walkTier(n, fn)
	case *PostfixExpression:
		Walk(n.Prim, fn)
		for _, args := range n.Calls {
			for _, arg := range args {
				Walk(arg, fn)
			}
		}
	case *ParenExpr:
		Walk(n.Expr, fn)
	}
}

func walkTier[T Node](t *Tier[T], fn func(Node)) {
	Walk(t.Left, fn)
	for _, op := range t.Rest {
		Walk(op.Operand, fn)
	}
}

// ToSExpr converts an AST node to s-expression string representation.
// Tiers without operators and bare assignment/expression wrappers are
// transparent, so `1` dumps as (integer 1) whatever tier it was parsed at.
func ToSExpr(n Node) string {
	var sb strings.Builder
	writeSExpr(&sb, n)
	return sb.String()
}

func writeSExpr(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Program:
		sb.WriteString("(program ")
		writeSExpr(sb, n.Block)
		sb.WriteString(")")
	case *Block:
		sb.WriteString("(block")
		for _, item := range n.Items {
			sb.WriteString(" ")
			writeSExpr(sb, item)
		}
		sb.WriteString(")")
	case *Declaration:
		sb.WriteString("(int " + strconv.Quote(n.Name) + ")")
	case *ExpressionStatement:
		sb.WriteString("(expr ")
		writeSExpr(sb, n.Expr)
		sb.WriteString(")")
	case *IfStatement:
		sb.WriteString("(if ")
		writeSExpr(sb, n.Cond)
		sb.WriteString(" ")
		writeSExpr(sb, n.Then)
		if n.Else != nil {
			sb.WriteString(" ")
			writeSExpr(sb, n.Else)
		}
		sb.WriteString(")")
	case *WhileStatement:
		sb.WriteString("(while ")
		writeSExpr(sb, n.Cond)
		sb.WriteString(" ")
		writeSExpr(sb, n.Body)
		sb.WriteString(")")
	case *ReturnStatement:
		if n.Expr == nil {
			sb.WriteString("(return)")
			return
		}
		sb.WriteString("(return ")
		writeSExpr(sb, n.Expr)
		sb.WriteString(")")
	case *Expression:
		writeSExpr(sb, n.Expr)
	case *AssignmentExpression:
		if n.Target == nil {
			writeSExpr(sb, n.Expr)
			return
		}
		sb.WriteString("(assign " + strconv.Quote(n.Target.Name) + " ")
		writeSExpr(sb, n.Expr)
		sb.WriteString(")")
	case *EqualityExpression:
		writeTierSExpr(sb, "eq", n)
	case *RelationalExpression:
		writeTierSExpr(sb, "rel", n)
	case *AdditiveExpression:
		writeTierSExpr(sb, "add", n)
	case *MultiplicativeExpression:
		writeTierSExpr(sb, "mul", n)
	case *PostfixExpression:
		if len(n.Calls) == 0 {
			writeSExpr(sb, n.Prim)
			return
		}
		sb.WriteString("(call ")
		writeSExpr(sb, n.Prim)
		for _, args := range n.Calls {
			sb.WriteString(" (args")
			for _, arg := range args {
				sb.WriteString(" ")
				writeSExpr(sb, arg)
			}
			sb.WriteString(")")
		}
		sb.WriteString(")")
	case *IntegerLiteral:
		sb.WriteString("(integer " + strconv.FormatInt(n.Value, 10) + ")")
	case *Identifier:
		sb.WriteString("(ident " + strconv.Quote(n.Name) + ")")
	case *ParenExpr:
		sb.WriteString("(paren ")
		writeSExpr(sb, n.Expr)
		sb.WriteString(")")
	}
}

func writeTierSExpr[T Node](sb *strings.Builder, name string, t *Tier[T]) {
	if len(t.Rest) == 0 {
		writeSExpr(sb, t.Left)
		return
	}
	sb.WriteString("(" + name + " ")
	writeSExpr(sb, t.Left)
	for _, op := range t.Rest {
		sb.WriteString(" " + strconv.Quote(string(op.Op)) + " ")
		writeSExpr(sb, op.Operand)
	}
	sb.WriteString(")")
}

// Format prints prog back as source text, one block item per line.
func Format(prog *Program) string {
	var sb strings.Builder
	formatStatement(&sb, prog.Block, 0)
	sb.WriteString("\n")
	return sb.String()
}

func formatStatement(sb *strings.Builder, s BlockItem, depth int) {
	switch s := s.(type) {
	case *Block:
		sb.WriteString("{\n")
		for _, item := range s.Items {
			sb.WriteString(strings.Repeat("    ", depth+1))
			formatStatement(sb, item, depth+1)
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Repeat("    ", depth) + "}")
	case *Declaration:
		sb.WriteString("int " + s.Name + ";")
	case *ExpressionStatement:
		sb.WriteString(formatExpression(s.Expr) + ";")
	case *IfStatement:
		sb.WriteString("if (" + formatExpression(s.Cond) + ") ")
		formatStatement(sb, s.Then, depth)
		if s.Else != nil {
			sb.WriteString(" else ")
			formatStatement(sb, s.Else, depth)
		}
	case *WhileStatement:
		sb.WriteString("while (" + formatExpression(s.Cond) + ") ")
		formatStatement(sb, s.Body, depth)
	case *ReturnStatement:
		if s.Expr == nil {
			sb.WriteString("return;")
			return
		}
		sb.WriteString("return " + formatExpression(s.Expr) + ";")
	}
}

func formatExpression(e *Expression) string {
	return formatAssignment(e.Expr)
}

func formatAssignment(a *AssignmentExpression) string {
	if a.Target == nil {
		return formatEquality(a.Expr)
	}
	return a.Target.Name + " = " + formatEquality(a.Expr)
}

func formatEquality(e *EqualityExpression) string {
	return formatTier(e, func(r *RelationalExpression) string {
		return formatTier(r, func(a *AdditiveExpression) string {
			return formatTier(a, func(m *MultiplicativeExpression) string {
				return formatTier(m, formatPostfix)
			})
		})
	})
}

func formatTier[T any](t *Tier[T], operand func(T) string) string {
	var sb strings.Builder
	sb.WriteString(operand(t.Left))
	for _, op := range t.Rest {
		sb.WriteString(" " + string(op.Op) + " " + operand(op.Operand))
	}
	return sb.String()
}

func formatPostfix(p *PostfixExpression) string {
	var sb strings.Builder
	switch prim := p.Prim.(type) {
	case *IntegerLiteral:
		sb.WriteString(strconv.FormatInt(prim.Value, 10))
	case *Identifier:
		sb.WriteString(prim.Name)
	case *ParenExpr:
		sb.WriteString("(" + formatExpression(prim.Expr) + ")")
	}
	for _, args := range p.Calls {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = formatAssignment(arg)
		}
		sb.WriteString("(" + strings.Join(parts, ", ") + ")")
	}
	return sb.String()
}
