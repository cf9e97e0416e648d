package main

import (
	"strconv"
)

// Operator sets, one per precedence tier. A tier's position in the grammar,
// not a numeric table, decides how tightly it binds.
var (
	multiplicativeOps = map[TokenType]BinaryOp{ASTERISK: OpMul, SLASH: OpDiv, PERCENT: OpMod}
	additiveOps       = map[TokenType]BinaryOp{PLUS: OpAdd, MINUS: OpSub}
	relationalOps     = map[TokenType]BinaryOp{GT: OpGt, GE: OpGe, LT: OpLt, LE: OpLe}
	equalityOps       = map[TokenType]BinaryOp{EQ: OpEq, NOT_EQ: OpNe}
)

// Parser is a recursive-descent parser with one token of lookahead. Every
// node it builds is allocated from its Arena.
type Parser struct {
	tokens []Token
	pos    int
	arena  *Arena
}

func NewParser(tokens []Token, arena *Arena) *Parser {
	return &Parser{tokens: tokens, arena: arena}
}

// ParseProgram parses a whole program: one block followed by EOF.
func ParseProgram(tokens []Token, arena *Arena) (*Program, error) {
	return NewParser(tokens, arena).ParseProgram()
}

// ParseExpression parses a single expression followed by EOF.
func ParseExpression(tokens []Token, arena *Arena) (*Expression, error) {
	p := NewParser(tokens, arena)
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(EOF); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) ParseProgram() (*Program, error) {
	p.pos = 0
	start := p.peek().Loc
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(EOF); err != nil {
		return nil, err
	}
	prog := alloc(p.arena, &p.arena.programs, start)
	prog.Block = block
	return prog, nil
}

// peek returns the current token. Past the end of the stream it keeps
// returning an EOF token, located at 1:1 when there are no tokens at all.
func (p *Parser) peek() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	tok := Token{Type: EOF, Loc: Location{Line: 1, Column: 1}}
	if len(p.tokens) > 0 {
		tok.Loc = p.tokens[len(p.tokens)-1].Loc
	}
	return tok
}

func (p *Parser) consume() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) match(types ...TokenType) bool {
	cur := p.peek().Type
	for _, t := range types {
		if cur == t {
			return true
		}
	}
	return false
}

// expect consumes the current token if it has the given type and fails
// otherwise.
func (p *Parser) expect(tt TokenType) (Token, error) {
	if !p.match(tt) {
		return Token{}, p.errorHere("Expected '%s'", tt)
	}
	return p.consume(), nil
}

func (p *Parser) errorHere(format string, args ...any) *CompileError {
	tok := p.peek()
	err := errorAt(PhaseParse, tok.Loc, format, args...)
	err.AtEOF = tok.Type == EOF
	return err
}

func (p *Parser) parseBlock() (*Block, error) {
	start, err := p.expect(LBRACE)
	if err != nil {
		return nil, err
	}

	var items []BlockItem
	for !p.match(RBRACE, EOF) {
		var item BlockItem
		if p.match(INT) {
			item, err = p.parseDeclaration()
		} else {
			item, err = p.parseStatement()
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}

	block := alloc(p.arena, &p.arena.blocks, start.Loc)
	block.Items = items
	return block, nil
}

func (p *Parser) parseDeclaration() (*Declaration, error) {
	p.consume() // int
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	decl := alloc(p.arena, &p.arena.declarations, name.Loc)
	decl.Name = name.Literal
	return decl, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	start := p.peek()
	switch start.Type {
	case IDENT:
		return p.parseAssignmentStatement()

	case IF:
		p.consume()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		then, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt := alloc(p.arena, &p.arena.ifStmts, start.Loc)
		stmt.Cond = cond
		stmt.Then = then
		if p.match(ELSE) {
			p.consume()
			if stmt.Else, err = p.parseStatement(); err != nil {
				return nil, err
			}
		}
		return stmt, nil

	case WHILE:
		p.consume()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		body, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt := alloc(p.arena, &p.arena.whileStmts, start.Loc)
		stmt.Cond = cond
		stmt.Body = body
		return stmt, nil

	case RETURN:
		p.consume()
		var expr *Expression
		if !p.match(SEMICOLON) {
			var err error
			if expr, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		stmt := alloc(p.arena, &p.arena.returnStmts, start.Loc)
		stmt.Expr = expr
		return stmt, nil

	case LBRACE:
		return p.parseBlock()

	default:
		// Expression statement
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		stmt := alloc(p.arena, &p.arena.exprStmts, start.Loc)
		stmt.Expr = expr
		return stmt, nil
	}
}

// parseAssignmentStatement parses `IDENT '=' Expression ';'`. With one token
// of lookahead any statement starting with an identifier lands here.
func (p *Parser) parseAssignmentStatement() (Statement, error) {
	name := p.consume()
	target := alloc(p.arena, &p.arena.identifiers, name.Loc)
	target.Name = name.Literal

	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}

	assign := alloc(p.arena, &p.arena.assignments, name.Loc)
	assign.Target = target
	assign.Expr = value
	expr := alloc(p.arena, &p.arena.expressions, name.Loc)
	expr.Expr = assign
	stmt := alloc(p.arena, &p.arena.exprStmts, name.Loc)
	stmt.Expr = expr
	return stmt, nil
}

// parseCondition parses `'(' Expression ')'`.
func (p *Parser) parseCondition() (*Expression, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseExpression() (*Expression, error) {
	start := p.peek().Loc
	assign, err := p.parseAssignmentExpression()
	if err != nil {
		return nil, err
	}
	expr := alloc(p.arena, &p.arena.expressions, start)
	expr.Expr = assign
	return expr, nil
}

// parseAssignmentExpression parses a bare equality expression. Assignments
// with a target only come from assignment statements.
func (p *Parser) parseAssignmentExpression() (*AssignmentExpression, error) {
	start := p.peek().Loc
	value, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	assign := alloc(p.arena, &p.arena.assignments, start)
	assign.Expr = value
	return assign, nil
}

func (p *Parser) parseEquality() (*EqualityExpression, error) {
	return parseTier(p, &p.arena.equality, equalityOps, p.parseRelational)
}

func (p *Parser) parseRelational() (*RelationalExpression, error) {
	return parseTier(p, &p.arena.relational, relationalOps, p.parseAdditive)
}

func (p *Parser) parseAdditive() (*AdditiveExpression, error) {
	return parseTier(p, &p.arena.additive, additiveOps, p.parseMultiplicative)
}

func (p *Parser) parseMultiplicative() (*MultiplicativeExpression, error) {
	return parseTier(p, &p.arena.multiplicative, multiplicativeOps, p.parsePostfix)
}

// parseTier parses one operand, then keeps consuming (operator, operand)
// pairs while the current token is one of ops. The chain is built
// iteratively, which keeps it left-associative without recursion.
func parseTier[T any](p *Parser, s *slab[Tier[T]], ops map[TokenType]BinaryOp, operand func() (T, error)) (*Tier[T], error) {
	start := p.peek().Loc
	left, err := operand()
	if err != nil {
		return nil, err
	}

	var rest []Operation[T]
	for {
		op, ok := ops[p.peek().Type]
		if !ok {
			break
		}
		tok := p.consume()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		rest = append(rest, Operation[T]{Op: op, Loc: tok.Loc, Operand: right})
	}

	tier := alloc(p.arena, s, start)
	tier.Left = left
	tier.Rest = rest
	return tier, nil
}

func (p *Parser) parsePostfix() (*PostfixExpression, error) {
	start := p.peek().Loc
	prim, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	var calls [][]*AssignmentExpression
	for p.match(LPAREN) {
		p.consume()
		args := []*AssignmentExpression{}
		if !p.match(RPAREN) {
			for {
				arg, err := p.parseAssignmentExpression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.match(COMMA) {
					break
				}
				p.consume()
			}
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		calls = append(calls, args)
	}

	postfix := alloc(p.arena, &p.arena.postfix, start)
	postfix.Prim = prim
	postfix.Calls = calls
	return postfix, nil
}

func (p *Parser) parsePrimary() (Primary, error) {
	tok := p.peek()
	switch tok.Type {
	case LITERAL:
		p.consume()
		value, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, errorAt(PhaseParse, tok.Loc, "Integer literal out of range: %s", tok.Literal)
		}
		lit := alloc(p.arena, &p.arena.integers, tok.Loc)
		lit.Value = value
		return lit, nil

	case IDENT:
		p.consume()
		ident := alloc(p.arena, &p.arena.identifiers, tok.Loc)
		ident.Name = tok.Literal
		return ident, nil

	case LPAREN:
		p.consume()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		paren := alloc(p.arena, &p.arena.parens, tok.Loc)
		paren.Expr = expr
		return paren, nil

	default:
		return nil, p.errorHere("Expected expression")
	}
}
