package main

// Lexer turns a source buffer into tokens. Input ends at the end of the
// buffer; a zero byte inside it is an ordinary unexpected character.
type Lexer struct {
	input []byte
	pos   int // current reading position in input
	line  int
}

// NewLexer returns a lexer positioned at the start of input.
func NewLexer(input []byte) *Lexer {
	return &Lexer{input: input, line: 1}
}

// Lex tokenizes the whole input. The returned slice always ends with an EOF
// token.
func Lex(input []byte) ([]Token, error) {
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

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

// peekAt returns 0 past the end of input.
func (l *Lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) token(typ TokenType, width int) Token {
	tok := Token{Type: typ, Literal: string(l.input[l.pos : l.pos+width]), Line: l.line}
	l.pos += width
	return tok
}

// twoCharOperators is checked before any single-character operator.
var twoCharOperators = map[string]TokenType{
	"==": EQ,
	"!=": NOT_EQ,
	"<=": LE,
	">=": GE,
	"&&": AND,
	"||": OR,
	"++": PLUS_PLUS,
	"--": MINUS_MINUS,
	"+=": PLUS_ASSIGN,
	"-=": MINUS_ASSIGN,
}

var oneCharTokens = map[byte]TokenType{
	'=': ASSIGN,
	'+': PLUS,
	'-': MINUS,
	'*': ASTERISK,
	'/': SLASH,
	'%': PERCENT,
	'<': LT,
	'>': GT,
	'!': BANG,
	'(': LPAREN,
	')': RPAREN,
	'{': LBRACE,
	'}': RBRACE,
	'[': LBRACKET,
	']': RBRACKET,
	';': SEMICOLON,
	',': COMMA,
}

// NextToken scans the next token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	if l.atEnd() {
		return Token{Type: EOF, Line: l.line}, nil
	}
	c := l.peekAt(0)

	if typ, ok := twoCharOperators[string([]byte{c, l.peekAt(1)})]; ok {
		return l.token(typ, 2), nil
	}
	if typ, ok := oneCharTokens[c]; ok {
		return l.token(typ, 1), nil
	}

	if c == '"' {
		return l.readString()
	} else if isLetter(c) {
		start := l.pos
		for isLetter(l.peekAt(0)) {
			l.pos++
		}
		lit := string(l.input[start:l.pos])
		typ, ok := keywords[lit]
		if !ok {
			typ = IDENT
		}
		return Token{Type: typ, Literal: lit, Line: l.line}, nil
	} else if isDigit(c) {
		start := l.pos
		for isDigit(l.peekAt(0)) {
			l.pos++
		}
		return Token{Type: INT, Literal: string(l.input[start:l.pos]), Line: l.line}, nil
	}

	return Token{}, newError(StageLex, l.line, "unexpected character %q", rune(c))
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.peekAt(0) {
		case '\n':
			l.line++
		case ' ', '\t', '\r':
		default:
			return
		}
		l.pos++
	}
}

// readString copies raw bytes up to the closing quote. There are no escape
// sequences; a newline inside the literal is kept and still counts as a line.
func (l *Lexer) readString() (Token, error) {
	startLine := l.line
	l.pos++ // skip opening "
	start := l.pos
	for {
		if l.atEnd() {
			return Token{}, newError(StageLex, startLine, "unterminated string literal")
		}
		c := l.peekAt(0)
		if c == 0 {
			return Token{}, newError(StageLex, l.line, "unexpected character %q", rune(c))
		}
		if c == '"' {
			break
		}
		if c == '\n' {
			l.line++
		}
		l.pos++
	}
	lit := string(l.input[start:l.pos])
	l.pos++ // skip closing "
	return Token{Type: STRING, Literal: lit, Line: startLine}, nil
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
