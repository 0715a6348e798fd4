package main

import "fmt"

// Stage identifies the pipeline stage that produced a CompileError.
type Stage string

const (
	StageLex      Stage = "lex"
	StageParse    Stage = "parse"
	StageSemantic Stage = "semantic"
	StageInternal Stage = "internal"
)

// CompileError is the single diagnostic a failing stage reports. Every stage
// stops at its first error.
type CompileError struct {
	Stage   Stage
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	if e.Stage == StageInternal {
		if e.Line > 0 {
			return fmt.Sprintf("internal error: line %d: %s", e.Line, e.Message)
		}
		return "internal error: " + e.Message
	}
	if e.Line > 0 {
		return fmt.Sprintf("error: line %d: %s", e.Line, e.Message)
	}
	return "error: " + e.Message
}

func newError(stage Stage, line int, format string, args ...any) *CompileError {
	return &CompileError{
		Stage:   stage,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
}

// recoverError turns a *CompileError panic raised by bail into a returned
// error. Any other panic is re-raised.
func recoverError(err *error) {
	r := recover()
	if r == nil {
		return
	}
	ce, ok := r.(*CompileError)
	if !ok {
		panic(r)
	}
	*err = ce
}

func bail(stage Stage, line int, format string, args ...any) {
	panic(newError(stage, line, format, args...))
}
