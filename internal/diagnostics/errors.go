package diagnostics

import "fmt"

// CompileError is the single error kind raised for anything the compiler
// rejects: unknown instructions, reserved subroutine names, validation
// failures, and (in strict mode) statically detected division by zero.
type CompileError struct {
	Msg string
}

func (e *CompileError) Error() string {
	return e.Msg
}

// NewError builds a CompileError from a format string
func NewError(format string, args ...any) *CompileError {
	return &CompileError{Msg: fmt.Sprintf(format, args...)}
}
