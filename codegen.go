package main

import (
	"fmt"
	"strings"
)

// Syntax selects the assembler dialect Generate writes.
type Syntax string

const (
	SyntaxGAS  Syntax = "gas"  // GNU as, Intel syntax, linked with libc's crt
	SyntaxNASM Syntax = "nasm" // NASM, with its own _start
)

// ParseSyntax maps a flag or config value to a Syntax.
func ParseSyntax(s string) (Syntax, error) {
	switch Syntax(s) {
	case "", SyntaxGAS:
		return SyntaxGAS, nil
	case SyntaxNASM:
		return SyntaxNASM, nil
	}
	return "", fmt.Errorf("unknown assembly syntax %q (want gas or nasm)", s)
}

type CodegenOptions struct {
	Syntax Syntax
}

// Runtime entry points the listing depends on.
const (
	rtPrintInt    = "hsu_print_int"
	rtPrintString = "hsu_print_cstr"
	rtConcat      = "hsu_concat"
	rtExit        = "exit"
	rtStrcmp      = "hsu_strcmp"
)

var runtimeSymbols = []string{rtPrintInt, rtPrintString, rtConcat, rtExit, rtStrcmp}

// fnLabel is the assembly label of the user function name. The prefix keeps
// user names from colliding with runtime and libc symbols.
func fnLabel(name string) string {
	if name == EntryPoint {
		return EntryPoint
	}
	return "fn_" + name
}

// slot is a local variable's home in the current frame.
type slot struct {
	offset   int // bytes below rbp
	isString bool
}

// CodeGen produces an x86-64 listing for an analyzed program. A CodeGen is
// used for a single Generate call.
type CodeGen struct {
	syntax Syntax
	out    strings.Builder

	labelCount  int
	strs        []string
	stringIndex map[string]int

	scopes     []map[string]*slot
	frameSize  int // bytes reserved below rbp by the prologue
	nextOffset int
	depth      int // bytes pushed by expression evaluation
}

// Generate emits assembly for prog, which must have been through Analyze.
func Generate(prog *Program, opts CodegenOptions) (asm string, err error) {
	defer recoverError(&err)

	syntax, err := ParseSyntax(string(opts.Syntax))
	if err != nil {
		return "", err
	}
	if prog == nil || prog.Entry == nil {
		return "", newError(StageInternal, 0, "program has not been analyzed")
	}

	cg := &CodeGen{syntax: syntax, stringIndex: make(map[string]int)}
	cg.genProgram(prog)
	return cg.out.String(), nil
}

func (cg *CodeGen) nasm() bool {
	return cg.syntax == SyntaxNASM
}

func (cg *CodeGen) internal(n Node, format string, args ...any) {
	line := 0
	if n != nil {
		line = n.Pos()
	}
	bail(StageInternal, line, format, args...)
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

// emit writes one indented instruction.
func (cg *CodeGen) emit(format string, args ...any) {
	cg.out.WriteString("    ")
	cg.line(format, args...)
}

func (cg *CodeGen) newLabel() string {
	cg.labelCount++
	if cg.nasm() {
		return fmt.Sprintf("L%d", cg.labelCount)
	}
	return fmt.Sprintf(".L%d", cg.labelCount)
}

func (cg *CodeGen) label(name string) {
	cg.line("%s:", name)
}

// stringLabel interns s in the read-only pool and returns its label.
func (cg *CodeGen) stringLabel(s string) string {
	i, ok := cg.stringIndex[s]
	if !ok {
		i = len(cg.strs)
		cg.strs = append(cg.strs, s)
		cg.stringIndex[s] = i
	}
	return cg.poolLabel(i)
}

func (cg *CodeGen) poolLabel(i int) string {
	if cg.nasm() {
		return fmt.Sprintf("str%d", i)
	}
	return fmt.Sprintf(".LC%d", i)
}

func (cg *CodeGen) push(reg string) {
	cg.emit("push %s", reg)
	cg.depth += 8
}

func (cg *CodeGen) pop(reg string) {
	cg.emit("pop %s", reg)
	cg.depth -= 8
}

// Scopes

func (cg *CodeGen) enterScope() {
	cg.scopes = append(cg.scopes, make(map[string]*slot))
}

func (cg *CodeGen) exitScope() {
	cg.scopes = cg.scopes[:len(cg.scopes)-1]
}

func (cg *CodeGen) declare(n Node, name string, isString bool) *slot {
	cg.nextOffset += 8
	if cg.nextOffset > cg.frameSize {
		cg.internal(n, "frame of %d bytes has no room for '%s'", cg.frameSize, name)
	}
	s := &slot{offset: cg.nextOffset, isString: isString}
	cg.scopes[len(cg.scopes)-1][name] = s
	return s
}

func (cg *CodeGen) lookup(n Node, name string) *slot {
	for i := len(cg.scopes) - 1; i >= 0; i-- {
		if s, ok := cg.scopes[i][name]; ok {
			return s
		}
	}
	cg.internal(n, "no stack slot for '%s'", name)
	return nil
}

func (s *slot) addr() string {
	return fmt.Sprintf("[rbp - %d]", s.offset)
}

// frameBytes is the prologue reservation for body: one 8-byte slot per let,
// rounded up to keep rsp 16-byte aligned.
func frameBytes(body *Block) int {
	n := countLets(body) * 8
	return (n + 15) &^ 15
}

// countLets counts let statements in stmt and every nested block. Nested
// function bodies get their own frames and are skipped.
func countLets(stmt Stmt) int {
	switch s := stmt.(type) {
	case *LetStmt:
		return 1
	case *Block:
		n := 0
		for _, inner := range s.Stmts {
			n += countLets(inner)
		}
		return n
	case *IfStmt:
		n := countLets(s.Then)
		if s.Else != nil {
			n += countLets(s.Else)
		}
		return n
	case *WhileStmt:
		return countLets(s.Body)
	case *ForStmt:
		n := countLets(s.Body)
		if s.Init != nil {
			n += countLets(s.Init)
		}
		return n
	}
	return 0
}

// Calls

// call emits a call to target, padding rsp when the pending pushes leave it
// misaligned. At function entry rsp is 8 past a 16-byte boundary (the return
// address), and the prologue pushes rbp.
func (cg *CodeGen) call(at Node, target string, external bool) {
	used := 8 + 8 + cg.frameSize + cg.depth
	pad := 0
	switch used % 16 {
	case 0:
	case 8:
		pad = 8
	default:
		cg.internal(at, "stack misaligned by %d bytes at call to %s", used%16, target)
	}
	if pad > 0 {
		cg.emit("sub rsp, %d", pad)
	}
	if external && cg.nasm() {
		cg.emit("call %s wrt ..plt", target)
	} else {
		cg.emit("call %s", target)
	}
	if pad > 0 {
		cg.emit("add rsp, %d", pad)
	}
}

// Program layout

func (cg *CodeGen) genProgram(prog *Program) {
	if cg.nasm() {
		cg.line("default rel")
		for _, sym := range runtimeSymbols {
			cg.line("extern %s", sym)
		}
		cg.line("global _start")
		cg.line("global %s", EntryPoint)
		cg.line("")
		cg.line("section .text")
		cg.label("_start")
		cg.emit("xor ebp, ebp")
		cg.emit("and rsp, -16")
		cg.emit("call %s", EntryPoint)
		cg.emit("mov edi, eax")
		cg.emit("mov eax, 60")
		cg.emit("syscall")
	} else {
		cg.line(".intel_syntax noprefix")
		for _, sym := range runtimeSymbols {
			cg.line(".extern %s", sym)
		}
		cg.line(".globl %s", EntryPoint)
		cg.line("")
		cg.line(".text")
	}

	cg.line("")
	cg.genFunction(prog.Entry, EntryPoint)
	for _, fn := range prog.Funcs {
		cg.line("")
		cg.genFunction(fn.Body, fnLabel(fn.Name))
	}

	cg.genStrings()
	if !cg.nasm() {
		cg.line("")
		cg.line(`.section .note.GNU-stack,"",@progbits`)
	}
}

func (cg *CodeGen) genFunction(body *Block, name string) {
	cg.frameSize = frameBytes(body)
	cg.nextOffset = 0
	cg.depth = 0
	cg.scopes = nil

	cg.label(name)
	cg.emit("push rbp")
	cg.emit("mov rbp, rsp")
	if cg.frameSize > 0 {
		cg.emit("sub rsp, %d", cg.frameSize)
	}

	cg.genBlock(body)

	cg.emit("xor eax, eax")
	cg.emit("mov rsp, rbp")
	cg.emit("pop rbp")
	cg.emit("ret")

	if cg.depth != 0 {
		cg.internal(body, "%d bytes left on the stack at end of %s", cg.depth, name)
	}
}

func (cg *CodeGen) genStrings() {
	if len(cg.strs) == 0 {
		return
	}
	cg.line("")
	if cg.nasm() {
		cg.line("section .rodata")
	} else {
		cg.line(".section .rodata")
	}
	for i, s := range cg.strs {
		cg.label(cg.poolLabel(i))
		if cg.nasm() {
			cg.emit("db %s", nasmBytes(s))
		} else {
			cg.emit(".string \"%s\"", gasEscape(s))
		}
	}
}

// gasEscape quotes s for a GAS .string directive.
func gasEscape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < ' ' || c == 0x7f {
				fmt.Fprintf(&b, `\%03o`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// nasmBytes renders s as a NUL-terminated db operand list. NASM does not
// interpret escapes inside double quotes, so quotes and control bytes are
// written as numbers.
func nasmBytes(s string) string {
	var parts []string
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			parts = append(parts, `"`+run.String()+`"`)
			run.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c < ' ' || c == 0x7f {
			flush()
			parts = append(parts, fmt.Sprint(c))
			continue
		}
		run.WriteByte(c)
	}
	flush()
	parts = append(parts, "0")
	return strings.Join(parts, ", ")
}

// Statements

func (cg *CodeGen) genBlock(b *Block) {
	if b.Type() == TypeUnset {
		cg.internal(b, "block was not analyzed")
	}
	cg.enterScope()
	for _, stmt := range b.Stmts[:b.Reachable] {
		cg.genStatement(stmt)
	}
	cg.exitScope()
}

func (cg *CodeGen) genStatement(stmt Stmt) {
	if stmt.Type() == TypeUnset {
		cg.internal(stmt, "statement %T was not analyzed", stmt)
	}

	switch s := stmt.(type) {
	case *LetStmt:
		isString := false
		if s.Value != nil {
			cg.genExpr(s.Value)
			isString = s.Value.Type() == TypeString
		} else {
			cg.emit("xor eax, eax")
		}
		// The initializer runs before the name is bound, so `let x = x;`
		// reads an outer x.
		slot := cg.declare(s, s.Name, isString)
		cg.emit("mov %s, rax", slot.addr())

	case *AssignStmt:
		cg.genAssign(s, s.Name, s.Op, s.Value)

	case *ExprStmt:
		cg.genExpr(s.X)

	case *WriteStmt:
		cg.genExpr(s.Value)
		cg.emit("mov rdi, rax")
		if cg.holdsString(s.Value) {
			cg.call(s, rtPrintString, true)
		} else {
			cg.call(s, rtPrintInt, true)
		}

	case *ExitStmt:
		cg.genExpr(s.Status)
		cg.emit("mov rdi, rax")
		if cg.nasm() {
			cg.emit("mov eax, 60")
			cg.emit("syscall")
		} else {
			cg.call(s, rtExit, true)
		}

	case *IfStmt:
		cg.genIf(s)

	case *WhileStmt:
		top, end := cg.newLabel(), cg.newLabel()
		cg.label(top)
		cg.genExpr(s.Cond)
		cg.emit("cmp rax, 0")
		cg.emit("je %s", end)
		cg.genBlock(s.Body)
		cg.emit("jmp %s", top)
		cg.label(end)

	case *ForStmt:
		cg.enterScope()
		if s.Init != nil {
			cg.genStatement(s.Init)
		}
		top, end := cg.newLabel(), cg.newLabel()
		cg.label(top)
		if s.Cond != nil {
			cg.genExpr(s.Cond)
			cg.emit("cmp rax, 0")
			cg.emit("je %s", end)
		}
		cg.genBlock(s.Body)
		if s.Step != nil {
			cg.genStatement(s.Step)
		}
		cg.emit("jmp %s", top)
		cg.label(end)
		cg.exitScope()

	case *Block:
		cg.genBlock(s)

	default:
		cg.internal(stmt, "cannot generate code for %T", stmt)
	}
}

func (cg *CodeGen) genIf(s *IfStmt) {
	end := cg.newLabel()
	cg.genExpr(s.Cond)
	cg.emit("cmp rax, 0")
	if s.Else == nil {
		cg.emit("je %s", end)
		cg.genBlock(s.Then)
		cg.label(end)
		return
	}

	elseLabel := cg.newLabel()
	cg.emit("je %s", elseLabel)
	cg.genBlock(s.Then)
	cg.emit("jmp %s", end)
	cg.label(elseLabel)
	switch e := s.Else.(type) {
	case *IfStmt:
		cg.genIf(e)
	case *Block:
		cg.genBlock(e)
	default:
		cg.internal(e, "cannot generate else branch %T", e)
	}
	cg.label(end)
}

// holdsString reports whether the value of e, already in rax, is a string
// pointer. Variables are classified by what was last stored in their slot.
func (cg *CodeGen) holdsString(e Expr) bool {
	if id, ok := e.(*Identifier); ok {
		return cg.lookup(id, id.Name).isString
	}
	return e.Type() == TypeString
}

// genAssign stores `name op value` and leaves the stored value in rax.
func (cg *CodeGen) genAssign(at Node, name string, op TokenType, value Expr) {
	slot := cg.lookup(at, name)
	cg.genExpr(value)
	switch op {
	case ASSIGN:
		slot.isString = value.Type() == TypeString
	case PLUS_ASSIGN, MINUS_ASSIGN:
		cg.emit("mov rcx, rax")
		cg.emit("mov rax, %s", slot.addr())
		if op == PLUS_ASSIGN {
			cg.emit("add rax, rcx")
		} else {
			cg.emit("sub rax, rcx")
		}
	default:
		cg.internal(at, "unknown assignment operator '%s'", op)
	}
	cg.emit("mov %s, rax", slot.addr())
}

// Expressions

// genExpr evaluates e into rax.
func (cg *CodeGen) genExpr(e Expr) {
	if e.Type() == TypeUnset {
		cg.internal(e, "expression %T was not analyzed", e)
	}

	switch e := e.(type) {
	case *Int:
		cg.emit("mov rax, %d", e.Value)

	case *Bool:
		if e.Value {
			cg.emit("mov eax, 1")
		} else {
			cg.emit("xor eax, eax")
		}

	case *String:
		if cg.nasm() {
			cg.emit("lea rax, [rel %s]", cg.stringLabel(e.Value))
		} else {
			cg.emit("lea rax, [rip + %s]", cg.stringLabel(e.Value))
		}

	case *Identifier:
		cg.emit("mov rax, %s", cg.lookup(e, e.Name).addr())

	case *Unary:
		cg.genUnary(e)

	case *Binary:
		switch e.Op {
		case AND, OR:
			cg.genLogical(e)
		default:
			cg.genBinary(e)
		}

	case *Assign:
		cg.genAssign(e, e.Target.Name, e.Op, e.Value)

	case *Call:
		cg.call(e, fnLabel(e.Name), false)

	default:
		cg.internal(e, "cannot generate code for %T", e)
	}
}

func (cg *CodeGen) genUnary(e *Unary) {
	switch e.Op {
	case PLUS_PLUS, MINUS_MINUS:
		id, ok := e.Operand.(*Identifier)
		if !ok {
			cg.internal(e, "operand of '%s' is not a variable", e.Op)
		}
		slot := cg.lookup(id, id.Name)
		instr := "add"
		if e.Op == MINUS_MINUS {
			instr = "sub"
		}
		cg.emit("mov rax, %s", slot.addr())
		if e.Postfix {
			cg.emit("mov rcx, rax")
			cg.emit("%s rcx, 1", instr)
			cg.emit("mov %s, rcx", slot.addr())
		} else {
			cg.emit("%s rax, 1", instr)
			cg.emit("mov %s, rax", slot.addr())
		}

	case MINUS:
		cg.genExpr(e.Operand)
		cg.emit("neg rax")

	case PLUS:
		cg.genExpr(e.Operand)

	case BANG:
		cg.genExpr(e.Operand)
		cg.emit("cmp rax, 0")
		cg.emit("sete al")
		cg.emit("movzx rax, al")

	default:
		cg.internal(e, "unknown unary operator '%s'", e.Op)
	}
}

var setcc = map[TokenType]string{
	EQ:     "sete",
	NOT_EQ: "setne",
	LT:     "setl",
	LE:     "setle",
	GT:     "setg",
	GE:     "setge",
}

// genBinary evaluates Left into rax and Right into rcx, then combines them.
func (cg *CodeGen) genBinary(e *Binary) {
	cg.genExpr(e.Left)
	cg.push("rax")
	cg.genExpr(e.Right)

	if e.Left.Type() == TypeString {
		cg.emit("mov rsi, rax")
		cg.pop("rdi")
		cg.genStringOp(e)
		return
	}

	cg.emit("mov rcx, rax")
	cg.pop("rax")

	switch e.Op {
	case PLUS:
		cg.emit("add rax, rcx")
	case MINUS:
		cg.emit("sub rax, rcx")
	case ASTERISK:
		cg.emit("imul rax, rcx")
	case SLASH:
		cg.emit("cqo")
		cg.emit("idiv rcx")
	case PERCENT:
		cg.emit("cqo")
		cg.emit("idiv rcx")
		cg.emit("mov rax, rdx")
	default:
		set, ok := setcc[e.Op]
		if !ok {
			cg.internal(e, "unknown binary operator '%s'", e.Op)
		}
		cg.emit("cmp rax, rcx")
		cg.emit("%s al", set)
		cg.emit("movzx rax, al")
	}
}

// genStringOp handles string operands, already in rdi and rsi.
func (cg *CodeGen) genStringOp(e *Binary) {
	if e.Op == PLUS {
		cg.call(e, rtConcat, true)
		return
	}
	set, ok := setcc[e.Op]
	if !ok {
		cg.internal(e, "operator '%s' is not defined on strings", e.Op)
	}
	cg.call(e, rtStrcmp, true)
	cg.emit("cmp eax, 0")
	cg.emit("%s al", set)
	cg.emit("movzx rax, al")
}

// genLogical short-circuits && and ||. The right operand is skipped once the
// left one decides the result.
func (cg *CodeGen) genLogical(e *Binary) {
	decided, end := cg.newLabel(), cg.newLabel()
	jump, decidedValue, otherValue := "je", "xor eax, eax", "mov eax, 1"
	if e.Op == OR {
		jump, decidedValue, otherValue = "jne", "mov eax, 1", "xor eax, eax"
	}

	cg.genExpr(e.Left)
	cg.emit("cmp rax, 0")
	cg.emit("%s %s", jump, decided)
	cg.genExpr(e.Right)
	cg.emit("cmp rax, 0")
	cg.emit("%s %s", jump, decided)
	cg.emit("%s", otherValue)
	cg.emit("jmp %s", end)
	cg.label(decided)
	cg.emit("%s", decidedValue)
	cg.label(end)
}
