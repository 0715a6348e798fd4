package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hsulang/hsuc/sexy"
	"github.com/nalgeon/be"
)

func TestSexyAllTests(t *testing.T) {
	// Find all test files in the test/ directory
	testFiles, err := filepath.Glob("test/*_test.md")
	be.Err(t, err, nil)
	be.True(t, len(testFiles) > 0)

	for _, testFile := range testFiles {
		testName := strings.TrimSuffix(filepath.Base(testFile), ".md")

		t.Run(testName, func(t *testing.T) {
			content, err := os.ReadFile(testFile)
			be.Err(t, err, nil)

			testCases, err := sexy.ExtractTestCases(string(content))
			be.Err(t, err, nil)

			for _, tc := range testCases {
				t.Run(tc.Name, func(t *testing.T) {
					runSexyTestCase(t, tc)
				})
			}
		})
	}
}

func runSexyTestCase(t *testing.T, tc sexy.TestCase) {
	var output string
	var code int
	ran := false

	for _, assertion := range tc.Assertions {
		switch assertion.Type {
		case sexy.AssertionTypeAST:
			assertASTMatch(t, tc, assertion.ParsedSexy)

		case sexy.AssertionTypeCompileError:
			_, err := CompileSource([]byte(tc.Input), CodegenOptions{})
			if err == nil {
				t.Fatalf("line %d: expected compile error %q, but compilation succeeded", tc.Line, assertion.Content)
			}
			be.Equal(t, err.Error(), assertion.Content)

		case sexy.AssertionTypeAsm:
			asm, err := CompileSource([]byte(tc.Input), CodegenOptions{})
			be.Err(t, err, nil)
			for _, want := range assertion.AsmLines() {
				if !hasLine(asm, want) {
					t.Errorf("line %d: listing has no line %q:\n%s", tc.Line, want, asm)
				}
			}

		case sexy.AssertionTypeExecute, sexy.AssertionTypeExitCode:
			if !ran {
				output, code = runProgram(t, SyntaxGAS, tc.Input)
				ran = true
			}
			if assertion.Type == sexy.AssertionTypeExecute {
				be.Equal(t, output, assertion.Content)
			} else {
				be.Equal(t, code, assertion.ExitCode)
			}

		default:
			t.Fatalf("unknown assertion type: %s", assertion.Type)
		}
	}
}

// assertASTMatch parses the input as its fence says and matches the tree's
// s-expression against pattern.
func assertASTMatch(t *testing.T, tc sexy.TestCase, pattern *sexy.Node) {
	t.Helper()
	tokens, err := Lex([]byte(tc.Input))
	be.Err(t, err, nil)

	var tree Node
	switch tc.InputType {
	case sexy.InputTypeExpr:
		tree, err = ParseExpression(tokens)
	case sexy.InputTypeProgram:
		tree, err = Parse(tokens)
	default:
		t.Fatalf("unknown input type: %s", tc.InputType)
	}
	be.Err(t, err, nil)

	actual, err := sexy.Parse(ToSExpr(tree))
	be.Err(t, err, nil)
	if !sexy.Match(pattern, actual) {
		t.Errorf("line %d: AST does not match\nwant: %s\ngot:  %s", tc.Line, pattern, actual)
	}
}
