package extract

import (
	"fmt"
	"strings"
)

// SinkError is an error raised inside a Sink method during an extraction.
type SinkError struct {
	// Op is the Sink method that failed, such as "GetOutput" or "Write".
	Op string
	// ItemID is the id of the item being processed. Only valid if HasItem is true.
	ItemID  uint32
	HasItem bool
	Err     error
}

func (e *SinkError) Error() string {
	if e.HasItem {
		return fmt.Sprintf("sink %s error on item %d: %v", e.Op, e.ItemID, e.Err)
	}
	return fmt.Sprintf("sink %s error: %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking Sink method.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Error is returned by Run and Proxy.Finish when at least one Sink method failed.
//
// Cause is the original *SinkError if exactly one failed, or a *multierror.Error of every *SinkError otherwise.
// Engine is the error the engine returned, which is nil if the engine ignored the failure.
type Error struct {
	Engine error
	Cause  error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("extract error: ")
	sb.WriteString(e.Cause.Error())
	if e.Engine != nil {
		sb.WriteString(" (")
		sb.WriteString(e.Engine.Error())
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}
