package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Swapped out by tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Exit statuses of the driver itself. `hsuc run` exits with the program's
// own status instead.
const (
	exitOK      = 0
	exitCompile = 1
	exitUsage   = 2
	exitTool    = 3
)

func showUsage() {
	fmt.Fprintf(stderr, `hsuc - compiler for the hsu language (x86-64)

Usage:
    hsuc <command> [arguments]

Commands:
    build <file>    Compile a .hsu file to an executable
    run <file>      Compile and execute a .hsu file
    check <file>    Lex, parse and type-check a .hsu file
    tokens <file>   Print the token stream
    ast <file>      Print the syntax tree as an s-expression
    asm <file>      Print the generated assembly
    repl            Read programs interactively
    help            Show this help message

Examples:
    hsuc run examples/hello.hsu
    hsuc build -o hello hello.hsu
    hsuc asm -syntax nasm hello.hsu

Use "hsuc <command> -h" for more information about a command.
`)
}

// commandFlags holds the flags shared by the commands that generate code.
type commandFlags struct {
	fs      *flag.FlagSet
	verbose *bool
	config  *string
	syntax  *string
}

func newCommandFlags(name, usage, summary string, codegen bool) *commandFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := &commandFlags{fs: fs}
	cf.verbose = fs.Bool("v", false, "Log each compilation step")
	if codegen {
		cf.config = fs.String("config", "", "Build file (default: "+ConfigFileName+" next to the source, if present)")
		cf.syntax = fs.String("syntax", "", "Assembly syntax: gas or nasm (default from config, else gas)")
	}
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: hsuc %s\n", usage)
		fmt.Fprintf(stderr, "%s\n\n", summary)
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	return cf
}

// parse parses args and returns the single file argument. A non-zero status
// means the caller should stop.
func (cf *commandFlags) parse(args []string) (string, int) {
	if err := cf.fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", exitOK
		}
		return "", exitUsage
	}
	if cf.fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: expected exactly one file argument\n")
		cf.fs.Usage()
		return "", exitUsage
	}
	return cf.fs.Arg(0), -1
}

func (cf *commandFlags) logger() *log.Logger {
	if !*cf.verbose {
		return nil
	}
	return log.New(stderr, "hsuc: ", 0)
}

// loadConfig resolves the build file for filename and applies flag
// overrides.
func (cf *commandFlags) loadConfig(filename string) (Config, error) {
	cfg, err := LoadConfig(*cf.config, filepath.Dir(filename))
	if err != nil {
		return Config{}, err
	}
	if *cf.syntax != "" {
		if _, err := ParseSyntax(*cf.syntax); err != nil {
			return Config{}, err
		}
		cfg.Syntax = *cf.syntax
	}
	return cfg, nil
}

// exitStatus prints err and maps it to the driver's exit status.
func exitStatus(filename string, err error) int {
	var ce *CompileError
	if errors.As(err, &ce) {
		fmt.Fprintf(stderr, "%s: %v\n", filename, ce)
		return exitCompile
	}
	fmt.Fprintf(stderr, "hsuc: %v\n", err)
	return exitTool
}

func vlogf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}

// compileFile reads filename and compiles it with cfg. The returned syntax is
// the one the listing was written in.
func compileFile(filename string, cfg Config, logger *log.Logger) (string, Syntax, error) {
	opts, err := cfg.CodegenOptions()
	if err != nil {
		return "", "", err
	}
	source, err := os.ReadFile(filename)
	if err != nil {
		return "", "", err
	}
	vlogf(logger, "compiling %s (%d bytes, %s syntax)", filename, len(source), opts.Syntax)
	asm, err := CompileSource(source, opts)
	if err != nil {
		return "", "", err
	}
	vlogf(logger, "generated %d lines of assembly", strings.Count(asm, "\n"))
	return asm, opts.Syntax, nil
}

func defaultOutput(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

func buildCommand(args []string) int {
	cf := newCommandFlags("build", "build [-o output] [-S] [-syntax gas|nasm] [-config file] [-v] <file>",
		"Compile a .hsu file to an executable", true)
	output := cf.fs.String("o", "", "Output file path (default: <file> without extension, or <file>.s with -S)")
	asmOnly := cf.fs.Bool("S", false, "Stop after writing the assembly listing")
	filename, status := cf.parse(args)
	if status >= 0 {
		return status
	}

	cfg, err := cf.loadConfig(filename)
	if err != nil {
		return exitStatus(filename, err)
	}
	if *output != "" {
		cfg.Output = *output
	}
	logger := cf.logger()

	asm, syntax, err := compileFile(filename, cfg, logger)
	if err != nil {
		return exitStatus(filename, err)
	}

	if *asmOnly {
		out := cfg.Output
		if out == "" {
			out = defaultOutput(filename) + ".s"
		}
		if err := os.WriteFile(out, []byte(asm), 0o644); err != nil {
			return exitStatus(filename, err)
		}
		vlogf(logger, "wrote %s", out)
		return exitOK
	}

	out := cfg.Output
	if out == "" {
		out = defaultOutput(filename)
	}
	tc := NewToolchain(cfg, logger)
	if err := tc.Link(asm, syntax, out); err != nil {
		return exitStatus(filename, err)
	}
	vlogf(logger, "wrote %s", out)
	return exitOK
}

func runCommand(args []string) int {
	cf := newCommandFlags("run", "run [-syntax gas|nasm] [-config file] [-v] <file>",
		"Compile and execute a .hsu file; exits with the program's status", true)
	filename, status := cf.parse(args)
	if status >= 0 {
		return status
	}

	cfg, err := cf.loadConfig(filename)
	if err != nil {
		return exitStatus(filename, err)
	}
	logger := cf.logger()

	asm, syntax, err := compileFile(filename, cfg, logger)
	if err != nil {
		return exitStatus(filename, err)
	}

	dir, err := os.MkdirTemp("", "hsuc-run-")
	if err != nil {
		return exitStatus(filename, err)
	}
	defer os.RemoveAll(dir)
	exe := filepath.Join(dir, filepath.Base(defaultOutput(filename)))

	if err := NewToolchain(cfg, logger).Link(asm, syntax, exe); err != nil {
		return exitStatus(filename, err)
	}

	vlogf(logger, "executing %s", exe)
	code, err := execute(exe, os.Stdin, stdout, stderr)
	if err != nil {
		return exitStatus(filename, err)
	}
	return code
}

// execute runs exe and returns its exit status.
func execute(exe string, in io.Reader, out, errOut io.Writer) (int, error) {
	cmd := exec.Command(exe)
	cmd.Stdin = in
	cmd.Stdout = out
	cmd.Stderr = errOut
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, err
	}
	return 0, nil
}

func checkCommand(args []string) int {
	cf := newCommandFlags("check", "check [-v] <file>", "Lex, parse and type-check a .hsu file", false)
	filename, status := cf.parse(args)
	if status >= 0 {
		return status
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		return exitStatus(filename, err)
	}
	prog, err := CheckSource(source)
	if err != nil {
		return exitStatus(filename, err)
	}

	fmt.Fprintf(stdout, "%s: no errors found\n", filename)
	vlogf(cf.logger(), "%d function(s) besides %s", len(prog.Funcs), EntryPoint)
	return exitOK
}

func tokensCommand(args []string) int {
	cf := newCommandFlags("tokens", "tokens <file>", "Print one token per line as LINE TYPE LITERAL", false)
	filename, status := cf.parse(args)
	if status >= 0 {
		return status
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		return exitStatus(filename, err)
	}
	tokens, err := Lex(source)
	if err != nil {
		return exitStatus(filename, err)
	}
	for _, tok := range tokens {
		fmt.Fprintf(stdout, "%d\t%s\t%q\n", tok.Line, tok.Type, tok.Literal)
	}
	return exitOK
}

func astCommand(args []string) int {
	cf := newCommandFlags("ast", "ast <file>", "Print the syntax tree as an s-expression", false)
	filename, status := cf.parse(args)
	if status >= 0 {
		return status
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		return exitStatus(filename, err)
	}
	prog, err := ParseSource(source)
	if err != nil {
		return exitStatus(filename, err)
	}
	fmt.Fprintln(stdout, ToSExpr(prog))
	return exitOK
}

func asmCommand(args []string) int {
	cf := newCommandFlags("asm", "asm [-syntax gas|nasm] [-config file] <file>", "Print the generated assembly", true)
	filename, status := cf.parse(args)
	if status >= 0 {
		return status
	}

	cfg, err := cf.loadConfig(filename)
	if err != nil {
		return exitStatus(filename, err)
	}
	asm, _, err := compileFile(filename, cfg, cf.logger())
	if err != nil {
		return exitStatus(filename, err)
	}
	fmt.Fprint(stdout, asm)
	return exitOK
}

func replCommand(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	config := fs.String("config", "", "Build file used when running programs")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: hsuc repl [-config file]\n")
		fmt.Fprintf(stderr, "Read hsu programs interactively; type :help for commands\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	wd, _ := os.Getwd()
	cfg, err := LoadConfig(*config, wd)
	if err != nil {
		return exitStatus("repl", err)
	}
	newREPL(cfg).run()
	return exitOK
}

func dispatch(command string, args []string) int {
	switch command {
	case "build":
		return buildCommand(args)
	case "run":
		return runCommand(args)
	case "check":
		return checkCommand(args)
	case "tokens":
		return tokensCommand(args)
	case "ast":
		return astCommand(args)
	case "asm":
		return asmCommand(args)
	case "repl":
		return replCommand(args)
	case "help", "-h", "--help":
		showUsage()
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		showUsage()
		return exitUsage
	}
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(exitUsage)
	}
	os.Exit(dispatch(os.Args[1], os.Args[2:]))
}
