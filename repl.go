package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

type replMode string

const (
	modeTokens replMode = "tokens"
	modeAST    replMode = "ast"
	modeCheck  replMode = "check"
	modeAsm    replMode = "asm"
	modeRun    replMode = "run"
)

var replModes = []replMode{modeTokens, modeAST, modeCheck, modeAsm, modeRun}

// repl compiles each complete program it reads and shows the result in the
// current mode.
type repl struct {
	cfg       Config
	toolchain *Toolchain
	mode      replMode
}

func newREPL(cfg Config) *repl {
	r := &repl{cfg: cfg, toolchain: NewToolchain(cfg, nil), mode: modeAsm}
	if opts, err := cfg.CodegenOptions(); err == nil && r.toolchain.Available(opts.Syntax) {
		r.mode = modeRun
	}
	return r
}

func (r *repl) run() {
	if !isInteractive() {
		r.runBuffered(bufio.NewReader(os.Stdin))
		return
	}
	r.runInteractive()
}

// inputComplete reports whether src can be compiled as is: no string literal
// or brace is left open. Other lexical errors count as complete so they get
// reported.
func inputComplete(src string) bool {
	tokens, err := Lex([]byte(src))
	if err != nil {
		var ce *CompileError
		return !(errors.As(err, &ce) && strings.Contains(ce.Message, "unterminated"))
	}
	depth := 0
	for _, tok := range tokens {
		switch tok.Type {
		case LBRACE:
			depth++
		case RBRACE:
			depth--
		}
	}
	return depth <= 0
}

func (r *repl) runInteractive() {
	state := liner.NewLiner()
	defer state.Close()
	state.SetCtrlCAborts(true)

	historyPath := replHistoryPath()
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			state.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(historyPath); err == nil {
				state.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Fprintf(stdout, "hsu repl (%s mode), :help for commands\n", r.mode)
	var buffer strings.Builder
	for {
		prompt := "hsu> "
		if buffer.Len() > 0 {
			prompt = ".... "
		}
		input, err := state.Prompt(prompt)
		if err != nil {
			switch {
			case errors.Is(err, liner.ErrPromptAborted):
				fmt.Fprintln(stdout)
				buffer.Reset()
				continue
			case errors.Is(err, io.EOF):
				fmt.Fprintln(stdout)
				return
			default:
				fmt.Fprintf(stderr, "read error: %v\n", err)
				return
			}
		}

		if buffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(input), ":") {
			state.AppendHistory(strings.TrimSpace(input))
			if !r.command(strings.TrimSpace(input)) {
				return
			}
			continue
		}

		buffer.WriteString(input)
		buffer.WriteString("\n")
		src := buffer.String()
		if !inputComplete(src) {
			continue
		}
		buffer.Reset()
		if trimmed := strings.TrimSpace(src); trimmed != "" {
			state.AppendHistory(trimmed)
			r.eval(src)
		}
	}
}

func (r *repl) runBuffered(reader *bufio.Reader) {
	var buffer strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(stderr, "read error: %v\n", err)
			return
		}
		eof := errors.Is(err, io.EOF)

		if buffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ":") {
			if !r.command(strings.TrimSpace(line)) || eof {
				return
			}
			continue
		}

		buffer.WriteString(line)
		src := buffer.String()
		if !inputComplete(src) && !eof {
			continue
		}
		buffer.Reset()
		if strings.TrimSpace(src) != "" {
			r.eval(src)
		}
		if eof {
			return
		}
	}
}

// command handles a ":" line and reports whether the session continues.
func (r *repl) command(line string) bool {
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return true
	}
	switch fields[0] {
	case "q", "quit", "exit":
		return false
	case "help":
		fmt.Fprintf(stdout, "Enter a program; it is compiled once every brace is closed.\n")
		fmt.Fprintf(stdout, "  :mode <%s>   choose what to show\n", joinModes("|"))
		fmt.Fprintf(stdout, "  :quit              leave\n")
	case "mode":
		if len(fields) != 2 {
			fmt.Fprintf(stdout, "mode is %s\n", r.mode)
			return true
		}
		for _, m := range replModes {
			if string(m) == fields[1] {
				r.mode = m
				fmt.Fprintf(stdout, "mode is %s\n", r.mode)
				return true
			}
		}
		fmt.Fprintf(stderr, "unknown mode %q (want %s)\n", fields[1], joinModes(", "))
	default:
		fmt.Fprintf(stderr, "unknown command :%s\n", fields[0])
	}
	return true
}

func joinModes(sep string) string {
	names := make([]string, len(replModes))
	for i, m := range replModes {
		names[i] = string(m)
	}
	return strings.Join(names, sep)
}

func (r *repl) eval(src string) {
	if err := r.evalMode(src); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
	}
}

func (r *repl) evalMode(src string) error {
	input := []byte(src)
	switch r.mode {
	case modeTokens:
		tokens, err := Lex(input)
		if err != nil {
			return err
		}
		for _, tok := range tokens {
			fmt.Fprintf(stdout, "%d\t%s\t%q\n", tok.Line, tok.Type, tok.Literal)
		}
	case modeAST:
		prog, err := ParseSource(input)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, ToSExpr(prog))
	case modeCheck:
		if _, err := CheckSource(input); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
	case modeAsm:
		opts, err := r.cfg.CodegenOptions()
		if err != nil {
			return err
		}
		asm, err := CompileSource(input, opts)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, asm)
	case modeRun:
		return r.execute(input)
	}
	return nil
}

func (r *repl) execute(input []byte) error {
	opts, err := r.cfg.CodegenOptions()
	if err != nil {
		return err
	}
	asm, err := CompileSource(input, opts)
	if err != nil {
		return err
	}
	dir, err := os.MkdirTemp("", "hsuc-repl-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	exe := filepath.Join(dir, "prog")
	if err := r.toolchain.Link(asm, opts.Syntax, exe); err != nil {
		return err
	}
	code, err := execute(exe, nil, stdout, stderr)
	if err != nil {
		return err
	}
	if code != 0 {
		fmt.Fprintf(stdout, "exit status %d\n", code)
	}
	return nil
}

func replHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".hsuc_history")
}

func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
