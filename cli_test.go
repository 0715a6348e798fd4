package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func writeSource(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	be.Err(t, os.WriteFile(path, []byte(source), 0o644), nil)
	return path
}

func TestCLICheck(t *testing.T) {
	out, errOut := captureOutput(t)
	file := writeSource(t, t.TempDir(), "ok.hsu", "let x = 1; write(x);\n")

	be.Equal(t, dispatch("check", []string{file}), exitOK)
	be.Equal(t, out.String(), file+": no errors found\n")
	be.Equal(t, errOut.String(), "")
}

func TestCLICompileError(t *testing.T) {
	_, errOut := captureOutput(t)
	file := writeSource(t, t.TempDir(), "bad.hsu", "let x = 1;\nwrite(y);\n")

	be.Equal(t, dispatch("check", []string{file}), exitCompile)
	be.Equal(t, errOut.String(), file+": error: line 2: undeclared identifier 'y'\n")

	errOut.Reset()
	be.Equal(t, dispatch("asm", []string{file}), exitCompile)
	be.Equal(t, errOut.String(), file+": error: line 2: undeclared identifier 'y'\n")
}

func TestCLIMissingFile(t *testing.T) {
	_, errOut := captureOutput(t)
	missing := filepath.Join(t.TempDir(), "missing.hsu")

	be.Equal(t, dispatch("check", []string{missing}), exitTool)
	be.True(t, strings.HasPrefix(errOut.String(), "hsuc: open "+missing))
}

func TestCLITokens(t *testing.T) {
	out, _ := captureOutput(t)
	file := writeSource(t, t.TempDir(), "t.hsu", "exit(0);")

	be.Equal(t, dispatch("tokens", []string{file}), exitOK)
	be.Equal(t, out.String(), strings.Join([]string{
		"1\tEXIT\t\"exit\"",
		"1\t(\t\"(\"",
		"1\tINT\t\"0\"",
		"1\t)\t\")\"",
		"1\t;\t\";\"",
		"1\tEOF\t\"\"",
	}, "\n")+"\n")
}

func TestCLIAST(t *testing.T) {
	out, _ := captureOutput(t)
	file := writeSource(t, t.TempDir(), "a.hsu", "let s = \"hi\";\nwrite(s);\n")

	be.Equal(t, dispatch("ast", []string{file}), exitOK)
	be.Equal(t, out.String(), `(program (let "s" (string "hi")) (write (ident "s")))`+"\n")
}

func TestCLIAsmSyntax(t *testing.T) {
	out, _ := captureOutput(t)
	dir := t.TempDir()
	file := writeSource(t, dir, "p.hsu", "exit(0);\n")

	be.Equal(t, dispatch("asm", []string{file}), exitOK)
	be.True(t, hasLine(out.String(), ".intel_syntax noprefix"))

	out.Reset()
	be.Equal(t, dispatch("asm", []string{"-syntax", "nasm", file}), exitOK)
	be.True(t, hasLine(out.String(), "_start:"))

	// The build file next to the source sets the default; the flag wins.
	writeSource(t, dir, ConfigFileName, "syntax: nasm\n")
	out.Reset()
	be.Equal(t, dispatch("asm", []string{file}), exitOK)
	be.True(t, hasLine(out.String(), "_start:"))

	out.Reset()
	be.Equal(t, dispatch("asm", []string{"-syntax", "gas", file}), exitOK)
	be.True(t, hasLine(out.String(), ".intel_syntax noprefix"))

	other := writeSource(t, dir, "other.yaml", "syntax: gas\n")
	out.Reset()
	be.Equal(t, dispatch("asm", []string{"-config", other, file}), exitOK)
	be.True(t, hasLine(out.String(), ".intel_syntax noprefix"))
}

func TestCLIBadSyntaxFlag(t *testing.T) {
	_, errOut := captureOutput(t)
	file := writeSource(t, t.TempDir(), "p.hsu", "exit(0);\n")

	be.Equal(t, dispatch("asm", []string{"-syntax", "masm", file}), exitTool)
	be.Equal(t, errOut.String(), "hsuc: unknown assembly syntax \"masm\" (want gas or nasm)\n")
}

func TestCLIUsageErrors(t *testing.T) {
	_, errOut := captureOutput(t)

	be.Equal(t, dispatch("check", nil), exitUsage)
	be.True(t, strings.Contains(errOut.String(), "expected exactly one file argument"))
	be.True(t, strings.Contains(errOut.String(), "Usage: hsuc check"))

	errOut.Reset()
	be.Equal(t, dispatch("build", []string{"-nope", "x.hsu"}), exitUsage)

	errOut.Reset()
	be.Equal(t, dispatch("frob", nil), exitUsage)
	be.True(t, strings.HasPrefix(errOut.String(), "Unknown command: frob\n"))

	errOut.Reset()
	be.Equal(t, dispatch("help", nil), exitOK)
	be.True(t, strings.Contains(errOut.String(), "hsuc <command> [arguments]"))

	errOut.Reset()
	be.Equal(t, dispatch("asm", []string{"-h"}), exitOK)
	be.True(t, strings.Contains(errOut.String(), "-syntax"))
}

func TestCLIBuildAssemblyOnly(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()
	file := writeSource(t, dir, "prog.hsu", "write(1);\n")

	be.Equal(t, dispatch("build", []string{"-S", file}), exitOK)
	asm, err := os.ReadFile(filepath.Join(dir, "prog.s"))
	be.Err(t, err, nil)
	be.True(t, hasLine(string(asm), "call hsu_print_int"))

	out := filepath.Join(dir, "listing.asm")
	be.Equal(t, dispatch("build", []string{"-S", "-syntax", "nasm", "-o", out, file}), exitOK)
	asm, err = os.ReadFile(out)
	be.Err(t, err, nil)
	be.True(t, hasLine(string(asm), "call hsu_print_int wrt ..plt"))
}

func TestCLIBuildAndRun(t *testing.T) {
	requireToolchain(t, SyntaxGAS)
	out, errOut := captureOutput(t)
	dir := t.TempDir()
	file := writeSource(t, dir, "prog.hsu", "write(\"built\");\nexit(6);\n")

	be.Equal(t, dispatch("build", []string{"-v", file}), exitOK)
	be.True(t, strings.Contains(errOut.String(), "hsuc: compiling "+file))
	exe := filepath.Join(dir, "prog")
	_, err := os.Stat(exe)
	be.Err(t, err, nil)

	be.Equal(t, dispatch("run", []string{file}), 6)
	be.Equal(t, out.String(), "built\n")
}
