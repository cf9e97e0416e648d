package main

import "unicode/utf8"

// Lexer turns source bytes into tokens. The input must end with a 0 byte,
// which lets the scanner look one character ahead without bounds checks.
type Lexer struct {
	input []byte
	pos   int // current reading position in input
	line  int
	col   int
}

// NewLexer creates a lexer over input (must end with a 0 byte).
func NewLexer(input []byte) *Lexer {
	return &Lexer{input: input, line: 1, col: 1}
}

// Lex scans src completely. The returned slice always ends with an EOF token.
func Lex(src []byte) ([]Token, error) {
	input := src
	if len(input) == 0 || input[len(input)-1] != 0 {
		input = append(append(make([]byte, 0, len(src)+1), src...), 0)
	}

	l := NewLexer(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	start := Location{Line: l.line, Column: l.col}
	c := l.input[l.pos]
	tok := Token{Loc: start}

	if c == 0 {
		if l.pos != len(l.input)-1 {
			return Token{}, errorAt(PhaseLex, start, "Unknown token '\\x00'")
		}
		tok.Type = EOF
		return tok, nil
	}

	if isLetter(c) {
		lit := l.readWhile(func(ch byte) bool { return isLetter(ch) || isDigit(ch) })
		if kw, ok := keywords[lit]; ok {
			tok.Type = kw
		} else {
			tok.Type = IDENT
			tok.Literal = lit
		}
		return tok, nil
	}

	if isDigit(c) {
		tok.Type = LITERAL
		tok.Literal = l.readWhile(isDigit)
		return tok, nil
	}

	next := l.input[l.pos+1]
	switch c {
	case '=':
		tok.Type = ASSIGN
		if next == '=' {
			tok.Type = EQ
		}
	case '!':
		if next != '=' {
			return Token{}, errorAt(PhaseLex, start, "Unknown token '!'")
		}
		tok.Type = NOT_EQ
	case '<':
		tok.Type = LT
		if next == '=' {
			tok.Type = LE
		}
	case '>':
		tok.Type = GT
		if next == '=' {
			tok.Type = GE
		}
	case '+':
		tok.Type = PLUS
	case '-':
		tok.Type = MINUS
	case '*':
		tok.Type = ASTERISK
	case '/':
		tok.Type = SLASH
	case '%':
		tok.Type = PERCENT
	case '(':
		tok.Type = LPAREN
	case ')':
		tok.Type = RPAREN
	case '{':
		tok.Type = LBRACE
	case '}':
		tok.Type = RBRACE
	case ';':
		tok.Type = SEMICOLON
	case ',':
		tok.Type = COMMA
	default:
		r, size := utf8.DecodeRune(l.input[l.pos:])
		if r == utf8.RuneError && size <= 1 {
			return Token{}, errorAt(PhaseLex, start, "Unknown token '\\x%02x'", c)
		}
		return Token{}, errorAt(PhaseLex, start, "Unknown token '%c'", r)
	}

	for range len(tok.Type) {
		l.advance()
	}
	return tok, nil
}

func (l *Lexer) advance() {
	if l.input[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *Lexer) readWhile(pred func(byte) bool) string {
	start := l.pos
	for pred(l.input[l.pos]) {
		l.advance()
	}
	return string(l.input[start:l.pos])
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		c := l.input[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.advance()
		case c == '/' && l.input[l.pos+1] == '/':
			for l.input[l.pos] != '\n' && l.input[l.pos] != 0 {
				l.advance()
			}
		case c == '/' && l.input[l.pos+1] == '*':
			start := Location{Line: l.line, Column: l.col}
			l.advance()
			l.advance()
			for !(l.input[l.pos] == '*' && l.input[l.pos+1] == '/') {
				if l.input[l.pos] == 0 {
					err := errorAt(PhaseLex, start, "Unterminated comment")
					err.AtEOF = l.pos == len(l.input)-1
					return err
				}
				l.advance()
			}
			l.advance()
			l.advance()
		default:
			return nil
		}
	}
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
