package unarc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nguyengg/unarc/engine"
)

var (
	// ErrUnknownFormat is returned by Open if no candidate format could open the stream.
	ErrUnknownFormat = errors.New("unknown archive format")
	// ErrClosed is returned when using an Archive after Close.
	ErrClosed = errors.New("archive is closed")
	// ErrNotFile is returned by OpenStream for directories and untracked nodes.
	ErrNotFile = errors.New("node is not a file")
)

// FormatError is returned by Open if no candidate format could open the stream.
//
// FormatError always matches ErrUnknownFormat with errors.Is. Err is the last error other than engine.ErrWrongFormat
// returned by a candidate, if any.
type FormatError struct {
	Name  string
	Tried []string
	Err   error
}

func (e *FormatError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "open %q error: %v", e.Name, ErrUnknownFormat)
	if len(e.Tried) == 0 {
		sb.WriteString(" (no candidate formats)")
	} else {
		fmt.Fprintf(&sb, " (tried %s)", strings.Join(e.Tried, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ", cause: %v", e.Err)
	}
	return sb.String()
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnknownFormat}
	}
	return []error{ErrUnknownFormat, e.Err}
}

// OutcomeError is returned by Stream reads and Stream.Wait if the item did not extract cleanly.
type OutcomeError struct {
	ItemID uint32
	Result engine.OperationResult
}

func (e *OutcomeError) Error() string {
	return fmt.Sprintf("extract item %d error: %s", e.ItemID, e.Result)
}
