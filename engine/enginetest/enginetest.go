// Package enginetest provides an in-memory engine.Handler for tests.
package enginetest

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/nguyengg/unarc/engine"
)

// Entry is one item of a Handler.
type Entry struct {
	Path    string
	IsDir   bool
	Deleted bool
	Data    []byte
	ModTime time.Time

	// Result is reported through SetOperationResult instead of writing Data if not engine.ResultOK.
	Result engine.OperationResult

	// Props override the default property values. A nil value makes the property absent.
	Props map[engine.PropID]any
}

// Handler is an in-memory engine.Handler that follows the engine's extraction contract.
type Handler struct {
	Entries []Entry

	// ChunkSize is the size of each OutStream.Write call. Defaults to 4.
	ChunkSize int

	// Calls records every callback invocation made by Extract, such as "GetStream(3, extract)".
	Calls []string

	// Requests records every request passed to Extract.
	Requests []engine.Request

	Closed bool
}

var _ engine.Handler = &Handler{}

func (h *Handler) ItemCount() uint32 {
	return uint32(len(h.Entries))
}

func (h *Handler) Property(index uint32, id engine.PropID) (any, error) {
	if int(index) >= len(h.Entries) {
		return nil, &engine.Error{Op: "Property", Code: engine.CodeInvalidArg}
	}

	e := h.Entries[index]
	if v, ok := e.Props[id]; ok {
		return v, nil
	}

	switch id {
	case engine.PropPath:
		return e.Path, nil
	case engine.PropIsDir:
		return e.IsDir, nil
	case engine.PropIsDeleted:
		return e.Deleted, nil
	case engine.PropSize:
		return uint64(len(e.Data)), nil
	case engine.PropMTime:
		if e.ModTime.IsZero() {
			return nil, nil
		}
		return e.ModTime, nil
	default:
		return nil, nil
	}
}

func (h *Handler) ArchiveProperty(id engine.PropID) (any, error) {
	if id != engine.PropPhySize {
		return nil, nil
	}

	var size uint64
	for _, e := range h.Entries {
		size += uint64(len(e.Data))
	}
	return size, nil
}

func (h *Handler) Extract(ctx context.Context, req engine.Request, cb engine.ExtractCallback) error {
	h.Requests = append(h.Requests, req)

	indices := req.Indices
	if req.All {
		indices = make([]uint32, len(h.Entries))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if !slices.IsSorted(indices) {
		return &engine.Error{Op: "Extract", Code: engine.CodeInvalidArg}
	}

	var total uint64
	for _, i := range indices {
		if int(i) >= len(h.Entries) {
			return &engine.Error{Op: "Extract", Code: engine.CodeInvalidArg}
		}
		total += uint64(len(h.Entries[i].Data))
	}

	h.record("SetTotal(%d)", total)
	if err := engine.Check("SetTotal", cb.SetTotal(total)); err != nil {
		return err
	}

	chunkSize := h.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 4
	}

	var completed uint64
	for _, i := range indices {
		if ctx.Err() != nil {
			return &engine.Error{Op: "Extract", Code: engine.CodeAbort}
		}

		e := h.Entries[i]

		h.record("PrepareOperation(%s)", req.Mode)
		if err := engine.Check("PrepareOperation", cb.PrepareOperation(req.Mode)); err != nil {
			return err
		}

		h.record("GetStream(%d, %s)", i, req.Mode)
		out, c := cb.GetStream(i, req.Mode)
		if err := engine.Check("GetStream", c); err != nil {
			return err
		}

		if out != nil && req.Mode == engine.AskExtract && e.Result == engine.ResultOK {
			for data := e.Data; len(data) > 0; {
				n := min(chunkSize, len(data))
				h.record("Write(%d)", n)
				if _, c = out.Write(data[:n]); c != engine.CodeOK {
					return &engine.Error{Op: "Write", Code: c}
				}
				data = data[n:]
			}
		}

		h.record("SetOperationResult(%s)", e.Result)
		if err := engine.Check("SetOperationResult", cb.SetOperationResult(e.Result)); err != nil {
			return err
		}

		completed += uint64(len(e.Data))
		h.record("SetCompleted(%d)", completed)
		if err := engine.Check("SetCompleted", cb.SetCompleted(completed)); err != nil {
			return err
		}
	}

	return nil
}

func (h *Handler) Close() error {
	h.Closed = true
	return nil
}

func (h *Handler) record(format string, a ...any) {
	h.Calls = append(h.Calls, fmt.Sprintf(format, a...))
}

// Engine is an engine.Engine over a fixed format registry.
type Engine struct {
	Registry []engine.FormatInfo

	// OpenFn is called by Open. Defaults to returning engine.ErrWrongFormat.
	OpenFn func(classID uuid.UUID, r io.ReadSeeker) (engine.Handler, error)

	// Opened records the class ids passed to Open in order.
	Opened []uuid.UUID
}

var _ engine.Engine = &Engine{}

func (e *Engine) Formats() []engine.FormatInfo {
	return e.Registry
}

func (e *Engine) Open(_ context.Context, classID uuid.UUID, r io.ReadSeeker, _ engine.OpenOptions) (engine.Handler, error) {
	e.Opened = append(e.Opened, classID)
	if e.OpenFn == nil {
		return nil, engine.ErrWrongFormat
	}
	return e.OpenFn(classID, r)
}

// Format returns a FormatInfo whose class id is engine.NewClassID(name).
func Format(name string, extensions []string, addExtensions []string) engine.FormatInfo {
	return engine.FormatInfo{
		Name:          name,
		ClassID:       engine.NewClassID(name),
		Extensions:    extensions,
		AddExtensions: addExtensions,
	}
}
