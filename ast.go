package main

import (
	"strconv"
	"strings"
)

// Type is the semantic type of a node. The zero value means the analyzer has
// not visited the node yet.
type Type int

const (
	TypeUnset Type = iota
	TypeInt
	TypeString
	TypeBool
	TypeVoid
	TypeUnknown
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeVoid:
		return "void"
	case TypeUnknown:
		return "unknown"
	default:
		return "unset"
	}
}

// Node is implemented by every AST node.
type Node interface {
	Pos() int
	Type() Type
	setType(Type)
}

// Expr is implemented by every node that produces a value.
// genExpr always leaves the result in rax.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// node holds the fields shared by all AST nodes.
type node struct {
	Line int
	ty   Type
}

func (n *node) Pos() int       { return n.Line }
func (n *node) Type() Type     { return n.ty }
func (n *node) setType(t Type) { n.ty = t }

// Program is the root of the tree. Stmts holds top-level statements and
// function declarations in source order.
type Program struct {
	node
	Stmts []Stmt

	// Filled in by Analyze.
	Entry *Block   // body of the entry point
	Funcs []*FnDecl // functions other than main
}

// Block is a braced statement list.
//
//	{ let x = 1; write(x); }
type Block struct {
	node
	Stmts []Stmt

	// Reachable is the number of leading statements that can execute. The
	// analyzer lowers it when a terminating statement is found.
	Reachable int
}

// FnDecl is a named function. Params are parsed but never bound.
//
//	fn main() { exit(0); }
type FnDecl struct {
	node
	Name   string
	Params []string
	Body   *Block
}

type ExprStmt struct {
	node
	X Expr
}

// LetStmt declares a variable in the current block.
//
//	let x = 10;
//	    ^   ^^  Value (nil when omitted)
//	    Name
type LetStmt struct {
	node
	Name  string
	Value Expr
}

// AssignStmt is `name = value;`, `name += value;` or `name -= value;`.
type AssignStmt struct {
	node
	Name  string
	Op    TokenType
	Value Expr
}

// IfStmt is an if statement. Else is nil, a *Block, or an *IfStmt for elif.
type IfStmt struct {
	node
	Cond Expr
	Then *Block
	Else Stmt
}

type WhileStmt struct {
	node
	Cond Expr
	Body *Block
}

// ForStmt is `for (init; cond; step) body`. Any of Init, Cond and Step may be
// nil.
type ForStmt struct {
	node
	Init Stmt
	Cond Expr
	Step Stmt
	Body *Block
}

type WriteStmt struct {
	node
	Value Expr
}

type ExitStmt struct {
	node
	Status Expr
}

// Unary is a prefix operator, or a postfix ++/-- when Postfix is set.
type Unary struct {
	node
	Op      TokenType
	Operand Expr
	Postfix bool
}

// Binary represents Left Op Right.
//
//	x + 1
//	^ ^ ^
//	| | Right
//	| Op
//	Left
type Binary struct {
	node
	Op    TokenType
	Left  Expr
	Right Expr
}

// Assign is an assignment used as an expression, as in `a = b = 5`.
type Assign struct {
	node
	Op     TokenType
	Target *Identifier
	Value  Expr
}

// Call invokes a user function. Calls take no arguments.
type Call struct {
	node
	Name string
	Args []Expr
}

type Int struct {
	node
	Value int64
}

type String struct {
	node
	Value string
}

type Bool struct {
	node
	Value bool
}

type Identifier struct {
	node
	Name string
}

func (*Program) stmtNode()    {}
func (*Block) stmtNode()      {}
func (*FnDecl) stmtNode()     {}
func (*ExprStmt) stmtNode()   {}
func (*LetStmt) stmtNode()    {}
func (*AssignStmt) stmtNode() {}
func (*IfStmt) stmtNode()     {}
func (*WhileStmt) stmtNode()  {}
func (*ForStmt) stmtNode()    {}
func (*WriteStmt) stmtNode()  {}
func (*ExitStmt) stmtNode()   {}

func (*Unary) exprNode()      {}
func (*Binary) exprNode()     {}
func (*Assign) exprNode()     {}
func (*Call) exprNode()       {}
func (*Int) exprNode()        {}
func (*String) exprNode()     {}
func (*Bool) exprNode()       {}
func (*Identifier) exprNode() {}

// ToSExpr converts an AST node to s-expression string representation
func ToSExpr(n Node) string {
	switch n := n.(type) {
	case nil:
		return "nil"
	case *Program:
		return list("program", stmtsSExpr(n.Stmts)...)
	case *Block:
		return list("block", stmtsSExpr(n.Stmts)...)
	case *FnDecl:
		if len(n.Params) > 0 {
			var params []string
			for _, p := range n.Params {
				params = append(params, strconv.Quote(p))
			}
			return list("fn", strconv.Quote(n.Name), list("params", params...), ToSExpr(n.Body))
		}
		return list("fn", strconv.Quote(n.Name), ToSExpr(n.Body))
	case *ExprStmt:
		return list("expr", exprSExpr(n.X))
	case *LetStmt:
		if n.Value == nil {
			return list("let", strconv.Quote(n.Name))
		}
		return list("let", strconv.Quote(n.Name), exprSExpr(n.Value))
	case *AssignStmt:
		return list("set", strconv.Quote(string(n.Op)), strconv.Quote(n.Name), exprSExpr(n.Value))
	case *IfStmt:
		if n.Else == nil {
			return list("if", exprSExpr(n.Cond), ToSExpr(n.Then))
		}
		return list("if", exprSExpr(n.Cond), ToSExpr(n.Then), ToSExpr(n.Else))
	case *WhileStmt:
		return list("while", exprSExpr(n.Cond), ToSExpr(n.Body))
	case *ForStmt:
		return list("for", stmtSExpr(n.Init), exprSExpr(n.Cond), stmtSExpr(n.Step), ToSExpr(n.Body))
	case *WriteStmt:
		return list("write", exprSExpr(n.Value))
	case *ExitStmt:
		return list("exit", exprSExpr(n.Status))
	case *Unary:
		head := "unary"
		if n.Postfix {
			head = "postfix"
		}
		return list(head, strconv.Quote(string(n.Op)), exprSExpr(n.Operand))
	case *Binary:
		return list("binary", strconv.Quote(string(n.Op)), exprSExpr(n.Left), exprSExpr(n.Right))
	case *Assign:
		return list("assign", strconv.Quote(string(n.Op)), exprSExpr(n.Target), exprSExpr(n.Value))
	case *Call:
		var args []string
		args = append(args, strconv.Quote(n.Name))
		for _, a := range n.Args {
			args = append(args, exprSExpr(a))
		}
		return list("call", args...)
	case *Int:
		return list("int", strconv.FormatInt(n.Value, 10))
	case *String:
		return list("string", strconv.Quote(n.Value))
	case *Bool:
		return list("bool", strconv.FormatBool(n.Value))
	case *Identifier:
		return list("ident", strconv.Quote(n.Name))
	default:
		return ""
	}
}

// exprSExpr and stmtSExpr keep typed nil interfaces from printing as "".
func exprSExpr(e Expr) string {
	if e == nil {
		return "nil"
	}
	return ToSExpr(e)
}

func stmtSExpr(s Stmt) string {
	if s == nil {
		return "nil"
	}
	return ToSExpr(s)
}

func stmtsSExpr(stmts []Stmt) []string {
	parts := make([]string, 0, len(stmts))
	for _, s := range stmts {
		parts = append(parts, stmtSExpr(s))
	}
	return parts
}

func list(head string, items ...string) string {
	if len(items) == 0 {
		return "(" + head + ")"
	}
	return "(" + head + " " + strings.Join(items, " ") + ")"
}
