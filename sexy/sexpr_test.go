package sexy

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"test_var", "test_var"},
		{"func-name", "func-name"},
		{"x", "x"},
		{"_", "_"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeSymbol)
		be.Equal(t, result.Text, test.expected)
		be.Equal(t, result.String(), test.expected)
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		output   string
	}{
		{`"hello"`, "hello", `"hello"`},
		{`"hello world"`, "hello world", `"hello world"`},
		{`""`, "", `""`},
		{`"test\"quote"`, `test"quote`, `"test\"quote"`},
		{`"test\\backslash"`, `test\backslash`, `"test\\backslash"`},
		{`"a\nb\tc"`, "a\nb\tc", `"a\nb\tc"`},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeString)
		be.Equal(t, result.Text, test.expected)
		be.Equal(t, result.String(), test.output)
	}
}

func TestParseInteger(t *testing.T) {
	for _, input := range []string{"42", "0", "-123"} {
		result, err := Parse(input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeInteger)
		be.Equal(t, result.Text, input)
		be.Equal(t, result.String(), input)
	}
}

func TestParseEllipsis(t *testing.T) {
	result, err := Parse("...")
	be.Err(t, err, nil)

	be.Equal(t, result.Type, NodeEllipsis)
	be.Equal(t, result.String(), "...")
}

func TestParseList(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"()", "()"},
		{"(hello)", "(hello)"},
		{"(1 2 3)", "(1 2 3)"},
		{`(binary "+" (int 1) (int 2))`, `(binary "+" (int 1) (int 2))`},
		{"(nested (list here))", "(nested (list here))"},
		{"(  spaced\n\t(out ) )", "(spaced (out))"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeList)
		be.Equal(t, result.String(), test.expected)
	}
}

func TestParseComments(t *testing.T) {
	result, err := Parse("; leading comment\n(let \"x\" ; trailing\n (int 1))")
	be.Err(t, err, nil)
	be.Equal(t, result.String(), `(let "x" (int 1))`)
}

func TestRoundTripParsing(t *testing.T) {
	inputs := []string{
		`(program (let "x" (int 5)) (write (ident "x")))`,
		`(if (bool true) (block) (block (exit (int 1))))`,
		`(for nil nil nil (block))`,
		`(string "say \"hi\"\n")`,
	}
	for _, input := range inputs {
		first, err := Parse(input)
		be.Err(t, err, nil)
		second, err := Parse(first.String())
		be.Err(t, err, nil)
		be.Equal(t, second.String(), first.String())
		be.Equal(t, first.String(), input)
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"(unclosed", "expected ')' but got EOF"},
		{")", "unexpected token: ')'"},
		{"(a) (b)", "expected EOF but got '('"},
		{`"open`, "unterminated string"},
		{`"bad\q"`, `invalid escape sequence: \q`},
		{"(a . b)", "unexpected character '.'"},
		{"(a [b])", "unexpected character '['"},
		{"", "unexpected token: EOF"},
	}

	for _, test := range tests {
		_, err := Parse(test.input)
		be.True(t, err != nil)
		be.True(t, strings.Contains(err.Error(), test.message))
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		actual  string
		match   bool
	}{
		{`(int 1)`, `(int 1)`, true},
		{`(int 1)`, `(int 2)`, false},
		{`_`, `(binary "+" (int 1) (int 2))`, true},
		{`(binary "+" _ (int 2))`, `(binary "+" (int 1) (int 2))`, true},
		{`(binary "+" _ _)`, `(binary "-" (int 1) (int 2))`, false},
		{`(binary _ _)`, `(binary "+" (int 1) (int 2))`, false},
		{`(program (let "x" _) ...)`, `(program (let "x" (int 1)) (write (ident "x")))`, true},
		{`(program (let "x" _) ...)`, `(program (let "x" (int 1)))`, true},
		{`(program ...)`, `(block)`, false},
		{`(string "1")`, `(int 1)`, false},
		{`(ident "x")`, `(ident x)`, false},
	}

	for _, test := range tests {
		pattern, err := Parse(test.pattern)
		be.Err(t, err, nil)
		actual, err := Parse(test.actual)
		be.Err(t, err, nil)
		be.Equal(t, Match(pattern, actual), test.match)
	}
}

func TestNodeTypeHelpers(t *testing.T) {
	be.True(t, NewSymbol("x").IsAtom())
	be.True(t, NewString("x").IsAtom())
	be.True(t, NewInteger("1").IsAtom())
	be.True(t, !NewList(nil).IsAtom())
	be.Equal(t, NewList([]*Node{NewSymbol("a"), NewEllipsis()}).String(), "(a ...)")
}
