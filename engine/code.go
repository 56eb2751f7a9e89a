package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Code is the result code vocabulary understood at the engine boundary.
type Code int

const (
	CodeOK Code = iota
	// CodeFalse is a soft negative result, such as "not this format".
	CodeFalse
	CodeAbort
	CodeFail
	CodeNotImpl
	CodeInvalidArg
	CodeOutOfMemory
	CodeAccessDenied
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeFalse:
		return "false"
	case CodeAbort:
		return "aborted"
	case CodeFail:
		return "unspecified failure"
	case CodeNotImpl:
		return "not implemented"
	case CodeInvalidArg:
		return "invalid argument"
	case CodeOutOfMemory:
		return "out of memory"
	case CodeAccessDenied:
		return "access denied"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Error is a non-OK Code that crossed the engine boundary.
type Error struct {
	// Op names the engine or callback operation that failed.
	Op   string
	Code Code
	// Err is the engine's own cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s error (%s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("engine %s error: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf maps err to the closest Code.
//
// A nil error is CodeOK. An *Error in the chain keeps its own Code.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}

	var e *Error
	switch {
	case errors.As(err, &e):
		return e.Code
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeAbort
	case errors.Is(err, os.ErrPermission):
		return CodeAccessDenied
	case errors.Is(err, os.ErrInvalid):
		return CodeInvalidArg
	case errors.Is(err, errors.ErrUnsupported):
		return CodeNotImpl
	default:
		return CodeFail
	}
}

// Check returns nil if c is CodeOK, or an *Error for op otherwise.
func Check(op string, c Code) error {
	if c == CodeOK {
		return nil
	}

	return &Error{Op: op, Code: c}
}
