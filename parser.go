package main

import "strconv"

// maxBlockDepth bounds how deeply blocks may nest.
const maxBlockDepth = 64

// Binding powers. Assignment binds loosest and is right-associative.
const (
	bpAssign         = 10
	bpOr             = 20
	bpAnd            = 30
	bpEquality       = 40
	bpRelational     = 50
	bpAdditive       = 60
	bpMultiplicative = 70
	bpUnary          = 90

	// prefixOperandBP lets postfix operators bind tighter than prefix ones
	// while keeping every binary operator out of a prefix operand.
	prefixOperandBP = 80
)

// blockStack tracks the lines of the currently open '{' tokens.
type blockStack struct {
	lines [maxBlockDepth]int
	top   int
}

func (s *blockStack) push(line int) bool {
	if s.top == maxBlockDepth {
		return false
	}
	s.lines[s.top] = line
	s.top++
	return true
}

func (s *blockStack) pop() int {
	s.top--
	return s.lines[s.top]
}

func (s *blockStack) peek() int {
	return s.lines[s.top-1]
}

// Parser builds an AST from a token slice terminated by EOF.
type Parser struct {
	tokens []Token
	pos    int
	blocks blockStack
}

func newParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != EOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens, Token{Type: EOF, Line: line})
	}
	return &Parser{tokens: tokens}
}

// Parse parses a whole program.
func Parse(tokens []Token) (prog *Program, err error) {
	defer recoverError(&err)
	p := newParser(tokens)
	return p.parseProgram(), nil
}

// ParseExpression parses tokens holding exactly one expression.
func ParseExpression(tokens []Token) (expr Expr, err error) {
	defer recoverError(&err)
	p := newParser(tokens)
	expr = p.parseExpression(0)
	if p.cur().Type != EOF {
		p.fail("expected end of expression, got %s", p.cur().describe())
	}
	return expr, nil
}

func (p *Parser) cur() Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

// expect consumes a token of the given type or fails naming what was
// expected.
func (p *Parser) expect(typ TokenType, what string) Token {
	if p.cur().Type != typ {
		p.fail("expected %s, got %s", what, p.cur().describe())
	}
	return p.advance()
}

func (p *Parser) fail(format string, args ...any) {
	bail(StageParse, p.cur().Line, format, args...)
}

// bindingPower returns the left binding power of a token, or 0 when the token
// cannot continue an expression.
func bindingPower(typ TokenType) int {
	switch typ {
	case ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN:
		return bpAssign
	case OR:
		return bpOr
	case AND:
		return bpAnd
	case EQ, NOT_EQ:
		return bpEquality
	case LT, LE, GT, GE:
		return bpRelational
	case PLUS, MINUS:
		return bpAdditive
	case ASTERISK, SLASH, PERCENT:
		return bpMultiplicative
	case PLUS_PLUS, MINUS_MINUS:
		return bpUnary
	default:
		return 0
	}
}

func isAssignOp(typ TokenType) bool {
	return typ == ASSIGN || typ == PLUS_ASSIGN || typ == MINUS_ASSIGN
}

// closesExpression reports whether a token can directly follow a postfix
// ++ or --.
func closesExpression(typ TokenType) bool {
	switch typ {
	case SEMICOLON, RPAREN, RBRACKET, RBRACE, COMMA, EOF:
		return true
	default:
		return false
	}
}

// parseExpression implements precedence climbing
func (p *Parser) parseExpression(minBP int) Expr {
	left := p.parsePrefix()

	for {
		tok := p.cur()
		bp := bindingPower(tok.Type)
		if bp <= minBP {
			break
		}

		if tok.Type == PLUS_PLUS || tok.Type == MINUS_MINUS {
			if !closesExpression(p.peek().Type) {
				break
			}
			p.advance()
			left = &Unary{node: node{Line: tok.Line}, Op: tok.Type, Operand: left, Postfix: true}
			continue
		}

		p.advance()
		if isAssignOp(tok.Type) {
			target, ok := left.(*Identifier)
			if !ok {
				bail(StageParse, tok.Line, "left side of '%s' must be a variable", tok.Literal)
			}
			value := p.parseExpression(bp - 1) // right-associative
			left = &Assign{node: node{Line: tok.Line}, Op: tok.Type, Target: target, Value: value}
			continue
		}

		right := p.parseExpression(bp) // left-associative
		left = &Binary{node: node{Line: tok.Line}, Op: tok.Type, Left: left, Right: right}
	}

	return left
}

// parsePrefix handles literals, identifiers, calls, parentheses and prefix
// operators.
func (p *Parser) parsePrefix() Expr {
	tok := p.cur()
	n := node{Line: tok.Line}

	switch tok.Type {
	case INT:
		p.advance()
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			bail(StageParse, tok.Line, "integer literal %s out of range", tok.Literal)
		}
		return &Int{node: n, Value: v}

	case STRING:
		p.advance()
		return &String{node: n, Value: tok.Literal}

	case TRUE, FALSE:
		p.advance()
		return &Bool{node: n, Value: tok.Type == TRUE}

	case IDENT:
		p.advance()
		if p.cur().Type == LPAREN {
			return p.parseCall(tok)
		}
		return &Identifier{node: n, Name: tok.Literal}

	case LPAREN:
		p.advance()
		expr := p.parseExpression(0)
		p.expect(RPAREN, "')' to close parenthesized expression")
		return expr

	case BANG, MINUS, PLUS, PLUS_PLUS, MINUS_MINUS:
		p.advance()
		operand := p.parseExpression(prefixOperandBP)
		return &Unary{node: n, Op: tok.Type, Operand: operand}

	default:
		p.fail("expected expression, got %s", tok.describe())
		return nil
	}
}

func (p *Parser) parseCall(name Token) Expr {
	p.expect(LPAREN, "'('")
	call := &Call{node: node{Line: name.Line}, Name: name.Literal}
	for p.cur().Type != RPAREN {
		call.Args = append(call.Args, p.parseExpression(0))
		if p.cur().Type != COMMA {
			break
		}
		p.advance()
	}
	p.expect(RPAREN, "')' after call arguments")
	return call
}

func (p *Parser) parseProgram() *Program {
	prog := &Program{node: node{Line: p.cur().Line}}
	for p.cur().Type != EOF {
		if p.cur().Type == RBRACE {
			p.fail("unexpected '}' with no open block")
		}
		prog.Stmts = append(prog.Stmts, p.parseStatement())
	}
	return prog
}

func (p *Parser) parseBlock() *Block {
	open := p.expect(LBRACE, "'{'")
	if !p.blocks.push(open.Line) {
		bail(StageParse, open.Line, "block nesting exceeds %d levels", maxBlockDepth)
	}

	block := &Block{node: node{Line: open.Line}}
	for p.cur().Type != RBRACE {
		if p.cur().Type == EOF {
			p.fail("expected '}' to close block opened on line %d, got end of input", p.blocks.peek())
		}
		block.Stmts = append(block.Stmts, p.parseStatement())
	}
	p.advance()
	p.blocks.pop()
	block.Reachable = len(block.Stmts)
	return block
}

// parseStatement parses a statement and returns an AST node
func (p *Parser) parseStatement() Stmt {
	tok := p.cur()
	n := node{Line: tok.Line}

	switch tok.Type {
	case LET:
		stmt := p.parseLet()
		p.expect(SEMICOLON, "';' after let statement")
		return stmt

	case WRITE:
		p.advance()
		p.expect(LPAREN, "'(' after write")
		value := p.parseExpression(0)
		p.expect(RPAREN, "')' after write argument")
		p.expect(SEMICOLON, "';' after write statement")
		return &WriteStmt{node: n, Value: value}

	case EXIT:
		p.advance()
		p.expect(LPAREN, "'(' after exit")
		status := p.parseExpression(0)
		p.expect(RPAREN, "')' after exit status")
		p.expect(SEMICOLON, "';' after exit statement")
		return &ExitStmt{node: n, Status: status}

	case IF:
		return p.parseIf()

	case WHILE:
		p.advance()
		cond := p.parseCondition("while")
		return &WhileStmt{node: n, Cond: cond, Body: p.parseBlock()}

	case FOR:
		return p.parseFor()

	case FN:
		return p.parseFn()

	case LBRACE:
		return p.parseBlock()

	case ELIF, ELSE:
		p.fail("'%s' without a preceding if", tok.Literal)
		return nil

	case IDENT:
		if isAssignOp(p.peek().Type) {
			stmt := p.parseAssignStmt()
			p.expect(SEMICOLON, "';' after assignment")
			return stmt
		}
	}

	expr := p.parseExpression(0)
	p.expect(SEMICOLON, "';' after expression")
	return &ExprStmt{node: n, X: expr}
}

func (p *Parser) parseLet() *LetStmt {
	tok := p.advance()
	name := p.expect(IDENT, "variable name after let")
	stmt := &LetStmt{node: node{Line: tok.Line}, Name: name.Literal}
	if p.cur().Type == ASSIGN {
		p.advance()
		stmt.Value = p.parseExpression(0)
	}
	return stmt
}

func (p *Parser) parseAssignStmt() *AssignStmt {
	name := p.advance()
	op := p.advance()
	return &AssignStmt{
		node:  node{Line: name.Line},
		Name:  name.Literal,
		Op:    op.Type,
		Value: p.parseExpression(0),
	}
}

// parseSimpleStatement parses a for-loop clause: a let, an assignment or a
// bare expression, without the trailing delimiter.
func (p *Parser) parseSimpleStatement(allowLet bool) Stmt {
	tok := p.cur()
	switch {
	case tok.Type == LET:
		if !allowLet {
			p.fail("let is not allowed in a for step")
		}
		return p.parseLet()
	case tok.Type == IDENT && isAssignOp(p.peek().Type):
		return p.parseAssignStmt()
	default:
		return &ExprStmt{node: node{Line: tok.Line}, X: p.parseExpression(0)}
	}
}

func (p *Parser) parseCondition(keyword string) Expr {
	p.expect(LPAREN, "'(' after "+keyword)
	cond := p.parseExpression(0)
	p.expect(RPAREN, "')' after "+keyword+" condition")
	return cond
}

// parseIf handles if, elif and `else if`. Each elif becomes an IfStmt in the
// Else slot of the previous branch.
func (p *Parser) parseIf() *IfStmt {
	tok := p.advance()
	stmt := &IfStmt{node: node{Line: tok.Line}}
	stmt.Cond = p.parseCondition(tok.Literal)
	stmt.Then = p.parseBlock()

	switch p.cur().Type {
	case ELIF:
		stmt.Else = p.parseIf()
	case ELSE:
		p.advance()
		if p.cur().Type == IF {
			stmt.Else = p.parseIf()
		} else {
			stmt.Else = p.parseBlock()
		}
	}
	return stmt
}

func (p *Parser) parseFor() *ForStmt {
	tok := p.advance()
	stmt := &ForStmt{node: node{Line: tok.Line}}
	p.expect(LPAREN, "'(' after for")

	if p.cur().Type != SEMICOLON {
		stmt.Init = p.parseSimpleStatement(true)
	}
	p.expect(SEMICOLON, "';' after for initializer")

	if p.cur().Type != SEMICOLON {
		stmt.Cond = p.parseExpression(0)
	}
	p.expect(SEMICOLON, "';' after for condition")

	if p.cur().Type != RPAREN {
		stmt.Step = p.parseSimpleStatement(false)
	}
	p.expect(RPAREN, "')' after for clauses")

	stmt.Body = p.parseBlock()
	return stmt
}

func (p *Parser) parseFn() *FnDecl {
	tok := p.advance()
	name := p.expect(IDENT, "function name after fn")
	fn := &FnDecl{node: node{Line: tok.Line}, Name: name.Literal}

	p.expect(LPAREN, "'(' after function name")
	for p.cur().Type == IDENT {
		fn.Params = append(fn.Params, p.advance().Literal)
		if p.cur().Type != COMMA {
			break
		}
		p.advance()
	}
	p.expect(RPAREN, "')' after parameters")

	fn.Body = p.parseBlock()
	return fn
}
