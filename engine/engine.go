// Package engine defines the contract between the archive reading core and a decoder engine.
//
// A decoder engine parses container formats and decompresses item contents. The core only ever talks to it through
// the interfaces in this package: an Engine opens a seekable stream as a Handler given a format class id, a Handler
// exposes items by index and their properties by PropID, and Handler.Extract drives an ExtractCallback to pull one
// OutStream per item.
//
// The callback boundary is deliberately narrow: every callback method returns a Code instead of an error, mirroring
// the fixed result-code vocabulary of native archive libraries. Callers that need richer errors must carry them
// out-of-band (see package extract).
package engine

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

// ErrWrongFormat is returned by Engine.Open if the stream is not an archive of the requested format.
//
// This is a soft failure: callers probing several candidate formats should move on to the next candidate.
var ErrWrongFormat = errors.New("stream is not an archive of the requested format")

// Engine opens archives and describes the formats it supports.
//
// Engine implementations must be safe for concurrent use, but the Handler instances they return are not.
type Engine interface {
	// Formats returns the global format registry of the engine.
	Formats() []FormatInfo

	// Open opens the given stream as an archive of the format identified by classID.
	//
	// Returns ErrWrongFormat (possibly wrapped) if the stream is not of that format. The Handler does not take
	// ownership of r; r must remain open until Handler.Close is called.
	Open(ctx context.Context, classID uuid.UUID, r io.ReadSeeker, opts OpenOptions) (Handler, error)
}

// OpenOptions are passed to Engine.Open.
type OpenOptions struct {
	// Name is the file name of the archive, if known.
	//
	// Single-stream compression formats use its stem as the item path when the stream does not record one.
	Name string

	// Password is used to open encrypted archives.
	Password string
}

// FormatInfo describes a format in the engine's registry.
type FormatInfo struct {
	// Name is the human-readable name of the format such as "7z" or "tar.gz".
	Name string

	// ClassID identifies the format handler when calling Engine.Open.
	ClassID uuid.UUID

	// Extensions are the primary file name extensions without the leading dot, such as "gz" and "tgz".
	Extensions []string

	// AddExtensions is parallel to Extensions. A non-"*" value at index i means the format is also registered under
	// the compound extension AddExtensions[i] + "." + Extensions[i], such as "tar.gz".
	//
	// AddExtensions may be nil, which is equivalent to all "*".
	AddExtensions []string
}

// Handler is an opened archive.
//
// Handler is not safe for concurrent use; all calls must be serialised by the caller.
type Handler interface {
	// ItemCount returns the number of items in the archive.
	ItemCount() uint32

	// Property returns the value of the given property for the item at index.
	//
	// A nil value with nil error means the property is absent. The concrete value types are string, bool, uint32,
	// uint64, and time.Time; see the PropID constants for which type each property uses.
	Property(index uint32, id PropID) (any, error)

	// ArchiveProperty returns the value of the given archive-level property, or nil if absent.
	ArchiveProperty(id PropID) (any, error)

	// Extract drives cb through every requested item in ascending index order.
	//
	// Request.Indices must be sorted ascending. Extract returns nil if every callback returned CodeOK, or an *Error
	// carrying the first non-OK code otherwise. Per-item decoding failures are not errors: they are reported through
	// ExtractCallback.SetOperationResult and the batch continues.
	Extract(ctx context.Context, req Request, cb ExtractCallback) error

	// Close releases the resources held by the Handler. Close is idempotent.
	Close() error
}

// Request identifies the items to extract.
type Request struct {
	// Indices are the item indices to extract, sorted ascending. Ignored if All is true.
	Indices []uint32

	// All requests every item in the archive.
	All bool

	// Mode is the AskMode for every requested item.
	Mode AskMode
}

// ExtractCallback is the narrow interface that Handler.Extract drives.
//
// For each requested item, the engine calls PrepareOperation, then GetStream, then writes to the returned OutStream
// zero or more times, then SetOperationResult. SetTotal is called before the first item; SetCompleted may be called
// between items with a monotonically non-decreasing cumulative byte count.
//
// Any non-OK Code aborts the batch.
type ExtractCallback interface {
	SetTotal(size uint64) Code
	SetCompleted(completed uint64) Code
	PrepareOperation(mode AskMode) Code
	// GetStream returns the stream to write the item's content to. A nil OutStream means nothing is written.
	GetStream(index uint32, mode AskMode) (OutStream, Code)
	SetOperationResult(result OperationResult) Code
}

// OutStream receives decompressed bytes for a single item.
type OutStream interface {
	// Write writes all of p. A non-OK Code aborts the batch.
	Write(p []byte) (int, Code)
}

// RatioReporter is an optional capability of ExtractCallback.
//
// Engines that can measure both consumed input and produced output report it here after every item.
type RatioReporter interface {
	SetRatioInfo(in, out uint64) Code
}

// AskMode tells the engine what to do with an item.
type AskMode int

const (
	// AskExtract decodes the item and writes its content to the OutStream.
	AskExtract AskMode = iota
	// AskTest decodes the item and verifies it without writing.
	AskTest
	// AskSkip skips the item.
	AskSkip
	// AskReadExternal marks the item as read by external means; the engine does not decode it.
	AskReadExternal
)

func (m AskMode) String() string {
	switch m {
	case AskExtract:
		return "extract"
	case AskTest:
		return "test"
	case AskSkip:
		return "skip"
	case AskReadExternal:
		return "read-external"
	default:
		return "unknown"
	}
}

// OperationResult is the per-item outcome reported through ExtractCallback.SetOperationResult.
type OperationResult int

const (
	ResultOK OperationResult = iota
	ResultUnsupportedMethod
	ResultDataError
	ResultCRCError
	ResultUnavailable
	ResultUnexpectedEnd
	ResultDataAfterEnd
	ResultIsNotArc
	ResultHeadersError
	ResultWrongPassword
)

func (r OperationResult) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultUnsupportedMethod:
		return "unsupported method"
	case ResultDataError:
		return "data error"
	case ResultCRCError:
		return "CRC error"
	case ResultUnavailable:
		return "unavailable"
	case ResultUnexpectedEnd:
		return "unexpected end"
	case ResultDataAfterEnd:
		return "data after end"
	case ResultIsNotArc:
		return "not an archive"
	case ResultHeadersError:
		return "headers error"
	case ResultWrongPassword:
		return "wrong password"
	default:
		return "unknown"
	}
}

// classNamespace is the namespace of every class id returned by NewClassID.
var classNamespace = uuid.MustParse("23170f69-40c1-278a-0000-000110000000")

// NewClassID returns the deterministic class id of the format with the given name.
func NewClassID(name string) uuid.UUID {
	return uuid.NewSHA1(classNamespace, []byte(name))
}
