package main

// EntryPoint is the reserved name of the function the program starts in.
const EntryPoint = "main"

// TypeChecker resolves identifiers and annotates every node with its type.
type TypeChecker struct {
	syms  *SymbolTable
	funcs map[string]*FnDecl
}

// NewTypeChecker returns a checker that resolves variables in st.
func NewTypeChecker(st *SymbolTable) *TypeChecker {
	return &TypeChecker{syms: st, funcs: make(map[string]*FnDecl)}
}

// Analyze checks the whole program, filling in type slots, Block.Reachable,
// Program.Entry and Program.Funcs.
func Analyze(prog *Program) (err error) {
	defer recoverError(&err)

	tc := NewTypeChecker(NewSymbolTable())
	prog.Entry, prog.Funcs = nil, nil
	var topLevel []Stmt
	var funcs []*FnDecl
	for _, stmt := range prog.Stmts {
		fn, ok := stmt.(*FnDecl)
		if !ok {
			topLevel = append(topLevel, stmt)
			continue
		}
		if prev, dup := tc.funcs[fn.Name]; dup {
			tc.fail(fn, "function '%s' already declared on line %d", fn.Name, prev.Line)
		}
		if len(fn.Params) > 0 {
			tc.fail(fn, "function '%s' declares parameters, which are not supported", fn.Name)
		}
		tc.funcs[fn.Name] = fn
		funcs = append(funcs, fn)
	}

	if entry, ok := tc.funcs[EntryPoint]; ok {
		if len(topLevel) > 0 {
			tc.fail(topLevel[0], "top-level statements are not allowed when fn %s is declared", EntryPoint)
		}
		prog.Entry = entry.Body
	} else {
		prog.Entry = &Block{node: node{Line: prog.Line}, Stmts: topLevel, Reachable: len(topLevel)}
	}

	for _, fn := range funcs {
		if fn.Name != EntryPoint {
			prog.Funcs = append(prog.Funcs, fn)
		}
	}

	tc.checkFunction(prog.Entry)
	for _, fn := range funcs {
		if fn.Body != prog.Entry {
			tc.checkFunction(fn.Body)
		}
		fn.setType(TypeVoid)
	}
	prog.setType(TypeVoid)
	return nil
}

// checkFunction checks a function body in a fresh scope chain; locals never
// cross function boundaries.
func (tc *TypeChecker) checkFunction(body *Block) {
	saved := tc.syms
	tc.syms = NewSymbolTable()
	tc.CheckBlock(body)
	tc.syms = saved
}

func (tc *TypeChecker) fail(n Node, format string, args ...any) {
	bail(StageSemantic, n.Pos(), format, args...)
}

// CheckBlock checks block in a new child scope and reports whether it always
// terminates the process. Statements after a terminating one are left
// unchecked and excluded from Reachable.
func (tc *TypeChecker) CheckBlock(block *Block) bool {
	tc.syms.EnterScope()
	defer tc.syms.ExitScope()

	terminates := false
	block.Reachable = len(block.Stmts)
	for i, stmt := range block.Stmts {
		if tc.checkStatement(stmt) {
			block.Reachable = i + 1
			terminates = true
			break
		}
	}
	block.setType(TypeVoid)
	return terminates
}

// checkStatement reports whether stmt always terminates the process.
func (tc *TypeChecker) checkStatement(stmt Stmt) bool {
	switch s := stmt.(type) {
	case *LetStmt:
		t := TypeUnknown
		if s.Value != nil {
			t = tc.CheckExpression(s.Value)
			if t == TypeVoid {
				tc.fail(s, "cannot initialize '%s' with a void value", s.Name)
			}
		}
		if tc.syms.DeclareVariable(s.Name, t, s.Line) == nil {
			tc.fail(s, "duplicate identifier '%s' in this block", s.Name)
		}
		s.setType(TypeVoid)

	case *AssignStmt:
		s.setType(tc.checkAssignment(s, s.Name, s.Op, s.Value))

	case *ExprStmt:
		tc.CheckExpression(s.X)
		s.setType(TypeVoid)

	case *WriteStmt:
		if tc.CheckExpression(s.Value) == TypeVoid {
			tc.fail(s, "write expects a value, got void")
		}
		s.setType(TypeVoid)

	case *ExitStmt:
		if t := tc.CheckExpression(s.Status); t != TypeInt {
			tc.fail(s, "exit expects an int status, got %s", t)
		}
		s.setType(TypeVoid)
		return true

	case *IfStmt:
		return tc.checkIf(s)

	case *WhileStmt:
		tc.checkCondition(s.Cond, "while")
		tc.CheckBlock(s.Body)
		s.setType(TypeVoid)

	case *ForStmt:
		tc.syms.EnterScope()
		if s.Init != nil {
			tc.checkStatement(s.Init)
		}
		if s.Cond != nil {
			tc.checkCondition(s.Cond, "for")
		}
		if s.Step != nil {
			tc.checkStatement(s.Step)
		}
		tc.CheckBlock(s.Body)
		tc.syms.ExitScope()
		s.setType(TypeVoid)

	case *Block:
		return tc.CheckBlock(s)

	case *FnDecl:
		tc.fail(s, "function '%s' must be declared at top level", s.Name)

	default:
		tc.fail(stmt, "unsupported statement %T", stmt)
	}
	return false
}

// checkIf reports whether every branch of an if/elif/else chain terminates.
func (tc *TypeChecker) checkIf(s *IfStmt) bool {
	tc.checkCondition(s.Cond, "if")
	thenExits := tc.CheckBlock(s.Then)
	s.setType(TypeVoid)

	var elseExits bool
	switch e := s.Else.(type) {
	case nil:
		return false
	case *IfStmt:
		elseExits = tc.checkIf(e)
	case *Block:
		elseExits = tc.CheckBlock(e)
	default:
		tc.fail(e, "unsupported else branch %T", e)
	}
	return thenExits && elseExits
}

func (tc *TypeChecker) checkCondition(cond Expr, keyword string) {
	if t := tc.CheckExpression(cond); t != TypeBool {
		tc.fail(cond, "%s condition must be bool, got %s", keyword, t)
	}
}

// checkAssignment validates `name op value` and returns the resulting type.
// A variable declared without an initializer takes the type of its first
// assignment.
func (tc *TypeChecker) checkAssignment(at Node, name string, op TokenType, value Expr) Type {
	sym := tc.syms.LookupVariable(name)
	if sym == nil {
		tc.fail(at, "undeclared identifier '%s'", name)
	}
	vt := tc.CheckExpression(value)

	if op == PLUS_ASSIGN || op == MINUS_ASSIGN {
		if sym.Type == TypeUnknown {
			tc.fail(at, "variable '%s' used before assignment", name)
		}
		if sym.Type != TypeInt || vt != TypeInt {
			tc.fail(at, "compound assignment '%s' requires int operands, got %s and %s", op, sym.Type, vt)
		}
		return TypeInt
	}

	if vt == TypeVoid {
		tc.fail(at, "cannot assign a void value to '%s'", name)
	}
	if sym.Type == TypeUnknown {
		sym.Type = vt
		return vt
	}
	if sym.Type != vt {
		tc.fail(at, "assignment of incompatible types to '%s': %s = %s", name, sym.Type, vt)
	}
	return vt
}

// CheckExpression annotates expr and its subtree and returns expr's type.
func (tc *TypeChecker) CheckExpression(expr Expr) Type {
	t := tc.expressionType(expr)
	expr.setType(t)
	return t
}

func (tc *TypeChecker) expressionType(expr Expr) Type {
	switch e := expr.(type) {
	case *Int:
		return TypeInt

	case *String:
		return TypeString

	case *Bool:
		return TypeBool

	case *Identifier:
		sym := tc.syms.LookupVariable(e.Name)
		if sym == nil {
			tc.fail(e, "undeclared identifier '%s'", e.Name)
		}
		if sym.Type == TypeUnknown {
			tc.fail(e, "variable '%s' used before assignment", e.Name)
		}
		return sym.Type

	case *Unary:
		if e.Op == PLUS_PLUS || e.Op == MINUS_MINUS {
			if _, ok := e.Operand.(*Identifier); !ok {
				tc.fail(e, "operand of '%s' must be a variable", e.Op)
			}
		}
		ot := tc.CheckExpression(e.Operand)
		if e.Op == BANG {
			if ot != TypeBool {
				tc.fail(e, "operator '!' requires a bool operand, got %s", ot)
			}
			return TypeBool
		}
		if ot != TypeInt {
			tc.fail(e, "operator '%s' requires an int operand, got %s", e.Op, ot)
		}
		return TypeInt

	case *Binary:
		return tc.binaryType(e)

	case *Assign:
		t := tc.checkAssignment(e, e.Target.Name, e.Op, e.Value)
		e.Target.setType(t)
		return t

	case *Call:
		if _, ok := tc.funcs[e.Name]; !ok {
			tc.fail(e, "undefined function '%s'", e.Name)
		}
		if len(e.Args) > 0 {
			tc.fail(e, "function '%s' takes no arguments, got %d", e.Name, len(e.Args))
		}
		return TypeVoid

	default:
		tc.fail(expr, "unsupported expression %T", expr)
		return TypeUnknown
	}
}

func (tc *TypeChecker) binaryType(e *Binary) Type {
	lt := tc.CheckExpression(e.Left)
	rt := tc.CheckExpression(e.Right)

	switch e.Op {
	case PLUS:
		if lt == TypeString || rt == TypeString {
			if lt != rt {
				tc.fail(e, "cannot concatenate %s and %s", lt, rt)
			}
			return TypeString
		}
		fallthrough
	case MINUS, ASTERISK, SLASH, PERCENT:
		if lt != TypeInt || rt != TypeInt {
			tc.fail(e, "arithmetic '%s' requires int operands, got %s and %s", e.Op, lt, rt)
		}
		return TypeInt

	case EQ, NOT_EQ, LT, LE, GT, GE:
		if lt != rt || lt == TypeVoid {
			tc.fail(e, "comparison '%s' of incompatible types %s and %s", e.Op, lt, rt)
		}
		return TypeBool

	case AND, OR:
		if lt != TypeBool || rt != TypeBool {
			tc.fail(e, "logical '%s' requires bool operands, got %s and %s", e.Op, lt, rt)
		}
		return TypeBool

	default:
		tc.fail(e, "unsupported binary operator '%s'", e.Op)
		return TypeUnknown
	}
}
