package main

import "fmt"

// TokenType is the type of token (identifier, operator, literal, etc.).
type TokenType string

// Definition of token types. Values double as the spelling used in
// diagnostics ("Expected ';'").
const (
	// Special tokens
	EOF TokenType = "eof"

	// Identifiers + literals
	IDENT   TokenType = "identifier" // main, foo, _bar
	LITERAL TokenType = "literal"    // 12345

	// Keywords
	INT    TokenType = "int"
	IF     TokenType = "if"
	ELSE   TokenType = "else"
	WHILE  TokenType = "while"
	RETURN TokenType = "return"

	// Operators
	ASSIGN   TokenType = "="
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	ASTERISK TokenType = "*"
	SLASH    TokenType = "/"
	PERCENT  TokenType = "%"

	EQ     TokenType = "=="
	NOT_EQ TokenType = "!="
	LT     TokenType = "<"
	GT     TokenType = ">"
	LE     TokenType = "<="
	GE     TokenType = ">="

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
)

var keywords = map[string]TokenType{
	"int":    INT,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"return": RETURN,
}

// Location is a 1-based line/column position in the source.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Token is one classified lexeme. Literal is only set for identifiers and
// integer literals.
type Token struct {
	Type    TokenType
	Loc     Location
	Literal string
}

func (t Token) String() string {
	if t.Literal != "" {
		return fmt.Sprintf("%s %s %q", t.Loc, t.Type, t.Literal)
	}
	return fmt.Sprintf("%s %s", t.Loc, t.Type)
}
