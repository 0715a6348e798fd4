package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func checkProgram(t *testing.T, input string) *Program {
	t.Helper()
	prog, err := CheckSource([]byte(input))
	be.Err(t, err, nil)
	return prog
}

func checkError(t *testing.T, input string) string {
	t.Helper()
	_, err := CheckSource([]byte(input))
	be.True(t, err != nil)
	ce, ok := err.(*CompileError)
	be.True(t, ok)
	be.Equal(t, ce.Stage, StageSemantic)
	return err.Error()
}

func TestTypeCheckValidPrograms(t *testing.T) {
	programs := []string{
		"",
		"exit(42);",
		"let x = 5; let y = x + 1; write(y);",
		`let s = "a" + "b"; write(s);`,
		`let x; x = "hi"; write(x);`,
		"let b = true && !false || 1 < 2; if (b) { write(1); }",
		`if ("a" == "b") { write(0); } elif ("a" != "c") { write(1); }`,
		"let i = 0; while (i < 3) { i++; ++i; i += 2; i -= 1; }",
		"for (let i = 0; i < 3; i++) { write(i); }",
		"for (;;) { exit(0); }",
		"let a = 0; let b = 0; a = b = 5; write(a);",
		"let x = 1; { let x = \"shadow\"; write(x); } write(x);",
		"fn helper() { write(1); } fn main() { helper(); exit(0); }",
		"fn helper() { let x = 1; } let x = \"top\"; helper(); write(x);",
		"let x = 10 % 3 / 1 * -2;",
		"let t = true; t = false; write(t);",
	}

	for _, input := range programs {
		checkProgram(t, input)
	}
}

func TestTypeCheckErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"let x = 5; let y = \"s\"; x = y;", "error: line 1: assignment of incompatible types to 'x': int = string"},
		{"write(y);", "error: line 1: undeclared identifier 'y'"},
		{"y = 1;", "error: line 1: undeclared identifier 'y'"},
		{"let x = 1; let x = 2;", "error: line 1: duplicate identifier 'x' in this block"},
		{"let x; write(x);", "error: line 1: variable 'x' used before assignment"},
		{"let x; x += 1;", "error: line 1: variable 'x' used before assignment"},
		{"let x; let y = x;", "error: line 1: variable 'x' used before assignment"},
		{"if (1) { }", "error: line 1: if condition must be bool, got int"},
		{"if (true) { } elif (\"s\") { }", "error: line 1: if condition must be bool, got string"},
		{"while (\"s\") { }", "error: line 1: while condition must be bool, got string"},
		{"for (; 1; ) { }", "error: line 1: for condition must be bool, got int"},
		{"1 + \"a\";", "error: line 1: cannot concatenate int and string"},
		{"\"a\" + true;", "error: line 1: cannot concatenate string and bool"},
		{"true + 1;", "error: line 1: arithmetic '+' requires int operands, got bool and int"},
		{"\"a\" * 2;", "error: line 1: arithmetic '*' requires int operands, got string and int"},
		{"1 < \"a\";", "error: line 1: comparison '<' of incompatible types int and string"},
		{"1 && true;", "error: line 1: logical '&&' requires bool operands, got int and bool"},
		{"!1;", "error: line 1: operator '!' requires a bool operand, got int"},
		{"-true;", "error: line 1: operator '-' requires an int operand, got bool"},
		{"let s = \"a\"; s++;", "error: line 1: operator '++' requires an int operand, got string"},
		{"5++;", "error: line 1: operand of '++' must be a variable"},
		{"exit(\"x\");", "error: line 1: exit expects an int status, got string"},
		{"exit(true);", "error: line 1: exit expects an int status, got bool"},
		{"f();", "error: line 1: undefined function 'f'"},
		{"fn f() { } f(1);", "error: line 1: function 'f' takes no arguments, got 1"},
		{"fn f(a) { }", "error: line 1: function 'f' declares parameters, which are not supported"},
		{"fn f() { }\nfn f() { }", "error: line 2: function 'f' already declared on line 1"},
		{"write(1);\nfn main() { }", "error: line 1: top-level statements are not allowed when fn main is declared"},
		{"fn main() {\n  fn g() { }\n}", "error: line 2: function 'g' must be declared at top level"},
		{"fn f() { } let x = f();", "error: line 1: cannot initialize 'x' with a void value"},
		{"fn f() { } write(f());", "error: line 1: write expects a value, got void"},
		{"fn f() { } let x = 1; x = f();", "error: line 1: cannot assign a void value to 'x'"},
		{"fn f() { } f() == f();", "error: line 1: comparison '==' of incompatible types void and void"},
		{"let s = \"a\"; s += \"b\";", "error: line 1: compound assignment '+=' requires int operands, got string and string"},
		{"{ let x = 1; } write(x);", "error: line 1: undeclared identifier 'x'"},
		{"for (let i = 0; i < 1; i++) { } write(i);", "error: line 1: undeclared identifier 'i'"},
		{"fn f() { let y = 1; } fn main() { write(y); }", "error: line 1: undeclared identifier 'y'"},
		{"let x = 1;\nlet y = true;\n\nx = y;", "error: line 4: assignment of incompatible types to 'x': int = bool"},
	}

	for _, test := range tests {
		be.Equal(t, checkError(t, test.input), test.message)
	}
}

func TestTypeCheckAnnotatesNodes(t *testing.T) {
	prog := checkProgram(t, `let x = 1 + 2; let s = "a"; let b = x < 3; write(s + "b");`)
	stmts := prog.Entry.Stmts

	be.Equal(t, stmts[0].(*LetStmt).Value.Type(), TypeInt)
	be.Equal(t, stmts[1].(*LetStmt).Value.Type(), TypeString)

	cmp := stmts[2].(*LetStmt).Value.(*Binary)
	be.Equal(t, cmp.Type(), TypeBool)
	be.Equal(t, cmp.Left.Type(), TypeInt)

	concat := stmts[3].(*WriteStmt).Value.(*Binary)
	be.Equal(t, concat.Type(), TypeString)
	be.Equal(t, concat.Left.Type(), TypeString)

	for _, stmt := range stmts {
		be.Equal(t, stmt.Type(), TypeVoid)
	}
	be.Equal(t, prog.Type(), TypeVoid)
}

func TestTypeCheckLetWithoutValueTakesFirstAssignment(t *testing.T) {
	prog := checkProgram(t, `let x; x = "s"; write(x);`)
	assign := prog.Entry.Stmts[1].(*AssignStmt)
	be.Equal(t, assign.Type(), TypeString)
	write := prog.Entry.Stmts[2].(*WriteStmt)
	be.Equal(t, write.Value.Type(), TypeString)

	be.Equal(t, checkError(t, `let x; x = "s"; x = 1;`),
		"error: line 1: assignment of incompatible types to 'x': string = int")
}

func TestTypeCheckEntryPoint(t *testing.T) {
	prog := checkProgram(t, "fn a() { } fn main() { a(); } fn b() { }")
	be.True(t, prog.Entry == prog.Stmts[1].(*FnDecl).Body)
	be.Equal(t, len(prog.Funcs), 2)
	be.Equal(t, prog.Funcs[0].Name, "a")
	be.Equal(t, prog.Funcs[1].Name, "b")

	prog = checkProgram(t, "fn a() { } exit(3);")
	be.Equal(t, len(prog.Entry.Stmts), 1)
	be.Equal(t, len(prog.Funcs), 1)
}

func TestTypeCheckUnreachableStatementsAreSkipped(t *testing.T) {
	prog := checkProgram(t, "exit(0); write(undeclared);")
	be.Equal(t, prog.Entry.Reachable, 1)
	be.Equal(t, prog.Entry.Stmts[1].Type(), TypeUnset)

	prog = checkProgram(t, "if (true) { exit(1); } else { exit(2); } write(zzz);")
	be.Equal(t, prog.Entry.Reachable, 1)

	prog = checkProgram(t, "if (true) { exit(1); } elif (false) { exit(2); } else { { exit(3); } } write(zzz);")
	be.Equal(t, prog.Entry.Reachable, 1)

	// One open branch keeps the rest reachable.
	be.Equal(t, checkError(t, "if (true) { exit(1); } write(zzz);"),
		"error: line 1: undeclared identifier 'zzz'")
	be.Equal(t, checkError(t, "while (true) { exit(1); } write(zzz);"),
		"error: line 1: undeclared identifier 'zzz'")
}

func TestTypeCheckFunctionBodiesUseFreshScopes(t *testing.T) {
	prog := checkProgram(t, "fn f() { let x = \"s\"; write(x); } let x = 1; write(x); f();")
	fn := prog.Stmts[0].(*FnDecl)
	be.Equal(t, fn.Body.Stmts[1].(*WriteStmt).Value.Type(), TypeString)
	be.Equal(t, prog.Entry.Stmts[1].(*WriteStmt).Value.Type(), TypeInt)
}

func TestAnalyzeTwiceKeepsOneCopyOfEachFunction(t *testing.T) {
	prog := parseProgramString(t, "fn helper() { write(1); } fn other() { } fn main() { helper(); exit(0); }")
	be.Err(t, Analyze(prog), nil)
	be.Err(t, Analyze(prog), nil)
	be.Equal(t, len(prog.Funcs), 2)

	asm, err := Generate(prog, CodegenOptions{})
	be.Err(t, err, nil)
	be.Equal(t, countLines(asm, "fn_helper:"), 1)
	be.Equal(t, countLines(asm, "fn_other:"), 1)
}
