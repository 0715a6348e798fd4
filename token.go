package main

// TokenType is the type of token (identifier, operator, literal, etc.).
type TokenType string

// Definition of token types
const (
	// Special tokens
	EOF = "EOF"

	// Identifiers + literals
	IDENT  = "IDENT"  // main, foo, bar
	INT    = "INT"    // 12345
	STRING = "STRING" // "hello"

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	BANG     = "!"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"

	LT     = "<"
	GT     = ">"
	EQ     = "=="
	NOT_EQ = "!="
	LE     = "<="
	GE     = ">="

	AND = "&&"
	OR  = "||"

	PLUS_PLUS    = "++"
	MINUS_MINUS  = "--"
	PLUS_ASSIGN  = "+="
	MINUS_ASSIGN = "-="

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"

	// Keywords
	LET     = "LET"
	FN      = "FN"
	IF      = "IF"
	ELIF    = "ELIF"
	ELSE    = "ELSE"
	FOR     = "FOR"
	FOREACH = "FOREACH"
	WHILE   = "WHILE"
	WRITE   = "WRITE"
	EXIT    = "EXIT"
	TRUE    = "TRUE"
	FALSE   = "FALSE"
)

// keywords maps reserved words to their token types. The textual comparison
// aliases predate the symbolic operators and lex to the same tokens.
var keywords = map[string]TokenType{
	"let":     LET,
	"fn":      FN,
	"if":      IF,
	"elif":    ELIF,
	"else":    ELSE,
	"for":     FOR,
	"foreach": FOREACH,
	"while":   WHILE,
	"write":   WRITE,
	"exit":    EXIT,
	"true":    TRUE,
	"false":   FALSE,

	"eq":   EQ,
	"neq":  NOT_EQ,
	"less": LT,
	"and":  AND,
	"or":   OR,
}

// Token is a single lexeme with the line it started on.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
}

// describe renders a token for diagnostics.
func (t Token) describe() string {
	switch t.Type {
	case EOF:
		return "end of input"
	case IDENT:
		return "identifier '" + t.Literal + "'"
	case INT:
		return "integer " + t.Literal
	case STRING:
		return "string \"" + t.Literal + "\""
	default:
		return "'" + t.Literal + "'"
	}
}
