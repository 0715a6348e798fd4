package main

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

//go:embed runtime/hsu_runtime.c
var runtimeSource []byte

// Toolchain assembles a listing and links it with the hsu runtime.
type Toolchain struct {
	cfg    Config
	logger *log.Logger // nil when not verbose
}

func NewToolchain(cfg Config, logger *log.Logger) *Toolchain {
	return &Toolchain{cfg: cfg, logger: logger}
}

func (t *Toolchain) logf(format string, args ...any) {
	if t.logger != nil {
		t.logger.Printf(format, args...)
	}
}

// Link writes an executable for asm to output.
func (t *Toolchain) Link(asm string, syntax Syntax, output string) error {
	dir, err := os.MkdirTemp("", "hsuc-")
	if err != nil {
		return err
	}
	if t.cfg.KeepTemps {
		t.logf("keeping intermediate files in %s", dir)
	} else {
		defer os.RemoveAll(dir)
	}

	runtimePath := filepath.Join(dir, "hsu_runtime.c")
	if err := os.WriteFile(runtimePath, runtimeSource, 0o644); err != nil {
		return err
	}

	absOutput, err := filepath.Abs(output)
	if err != nil {
		return err
	}

	args := append([]string(nil), t.cfg.CFlags...)
	switch syntax {
	case SyntaxNASM:
		asmPath := filepath.Join(dir, "prog.asm")
		objPath := filepath.Join(dir, "prog.o")
		if err := os.WriteFile(asmPath, []byte(asm), 0o644); err != nil {
			return err
		}
		if err := t.run(t.cfg.NASM, "-f", "elf64", "-o", objPath, asmPath); err != nil {
			return err
		}
		args = append(args, "-nostartfiles", "-o", absOutput, objPath, runtimePath)
	default:
		asmPath := filepath.Join(dir, "prog.s")
		if err := os.WriteFile(asmPath, []byte(asm), 0o644); err != nil {
			return err
		}
		args = append(args, "-o", absOutput, asmPath, runtimePath)
	}
	return t.run(t.cfg.CC, args...)
}

func (t *Toolchain) run(name string, args ...string) error {
	t.logf("%s %s", name, strings.Join(args, " "))
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %v\n%s", name, err, out)
	}
	return nil
}

// Available reports whether the programs Link needs for syntax are on PATH.
func (t *Toolchain) Available(syntax Syntax) bool {
	if _, err := exec.LookPath(t.cfg.CC); err != nil {
		return false
	}
	if syntax == SyntaxNASM {
		if _, err := exec.LookPath(t.cfg.NASM); err != nil {
			return false
		}
	}
	return true
}
