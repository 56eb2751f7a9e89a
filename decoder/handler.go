package decoder

import (
	"context"
	"errors"
	"hash/crc32"
	"io"
	"io/fs"
	"slices"
	"sync"
	"time"

	"github.com/nguyengg/unarc/engine"
)

// backend is the format-specific part of a handler.
type backend interface {
	// scan reads every item's metadata in archive order.
	scan(ctx context.Context) ([]*entry, error)

	// walk calls fn with an opener for each of the given indices in ascending order.
	walk(ctx context.Context, indices []uint32, fn walkFunc) error

	Close() error
}

type walkFunc func(index uint32, open func() (io.ReadCloser, error)) error

// entry is the metadata of an item gathered at open.
type entry struct {
	path      string
	isDir     bool
	size      uint64
	hasSize   bool
	packSize  uint64
	mtime     time.Time
	ctime     time.Time
	atime     time.Time
	attrib    uint32
	hasAttrib bool
	crc       uint32
	hasCRC    bool
	comment   string
	method    string
	encrypted bool
	symlink   string

	// sizeFn computes the size of streams that do not record it. It is called at most once.
	sizeFn   func() (uint64, error)
	sizeOnce sync.Once
	sizeErr  error
}

func (e *entry) resolveSize() (uint64, bool, error) {
	if e.sizeFn != nil {
		e.sizeOnce.Do(func() {
			if e.size, e.sizeErr = e.sizeFn(); e.sizeErr == nil {
				e.hasSize = true
			}
		})
	}
	return e.size, e.hasSize, e.sizeErr
}

func (e *entry) property(id engine.PropID) (any, error) {
	switch id {
	case engine.PropPath:
		return e.path, nil
	case engine.PropIsDir:
		return e.isDir, nil
	case engine.PropSize:
		size, ok, err := e.resolveSize()
		if err != nil || !ok {
			return nil, err
		}
		return size, nil
	case engine.PropPackSize:
		if e.packSize == 0 {
			return nil, nil
		}
		return e.packSize, nil
	case engine.PropAttrib:
		if !e.hasAttrib {
			return nil, nil
		}
		return e.attrib, nil
	case engine.PropMTime:
		return optionalTime(e.mtime), nil
	case engine.PropCTime:
		return optionalTime(e.ctime), nil
	case engine.PropATime:
		return optionalTime(e.atime), nil
	case engine.PropCRC:
		if !e.hasCRC {
			return nil, nil
		}
		return e.crc, nil
	case engine.PropComment:
		return optionalString(e.comment), nil
	case engine.PropMethod:
		return optionalString(e.method), nil
	case engine.PropSymLink:
		return optionalString(e.symlink), nil
	case engine.PropEncrypted:
		return e.encrypted, nil
	case engine.PropIsDeleted:
		return false, nil
	default:
		return nil, nil
	}
}

func optionalTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func optionalString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// attribFromMode encodes a Unix file mode as Windows attributes with the Unix extension bit.
func attribFromMode(mode fs.FileMode) uint32 {
	unix := uint32(mode.Perm())
	if mode&fs.ModeSetuid != 0 {
		unix |= 0o4000
	}
	if mode&fs.ModeSetgid != 0 {
		unix |= 0o2000
	}
	if mode&fs.ModeSticky != 0 {
		unix |= 0o1000
	}

	attrib := uint32(0x8000)
	switch {
	case mode.IsDir():
		unix |= 0o040000
		attrib |= 0x10
	case mode&fs.ModeSymlink != 0:
		unix |= 0o120000
	default:
		unix |= 0o100000
	}
	if mode.Perm()&0o200 == 0 {
		attrib |= 0x1
	}

	return attrib | unix<<16
}

// handler implements engine.Handler over a backend.
type handler struct {
	format  engine.FormatInfo
	in      *input
	b       backend
	entries []*entry
	closed  bool
}

var _ engine.Handler = &handler{}

func (h *handler) ItemCount() uint32 {
	return uint32(len(h.entries))
}

func (h *handler) Property(index uint32, id engine.PropID) (any, error) {
	if int(index) >= len(h.entries) {
		return nil, &engine.Error{Op: "Property", Code: engine.CodeInvalidArg}
	}

	return h.entries[index].property(id)
}

func (h *handler) ArchiveProperty(id engine.PropID) (any, error) {
	switch id {
	case engine.PropPhySize:
		return uint64(h.in.size), nil
	case engine.PropType:
		return h.format.Name, nil
	default:
		return nil, nil
	}
}

var errStop = errors.New("stop walking")

func (h *handler) Extract(ctx context.Context, req engine.Request, cb engine.ExtractCallback) error {
	if h.closed {
		return &engine.Error{Op: "Extract", Code: engine.CodeFail, Err: fs.ErrClosed}
	}

	indices := req.Indices
	if req.All {
		indices = make([]uint32, len(h.entries))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if !slices.IsSorted(indices) {
		return &engine.Error{Op: "Extract", Code: engine.CodeInvalidArg, Err: errors.New("indices are not sorted")}
	}

	var total uint64
	for _, i := range indices {
		if int(i) >= len(h.entries) {
			return &engine.Error{Op: "Extract", Code: engine.CodeInvalidArg, Err: errors.New("index out of range")}
		}
		// a size that cannot be resolved is reported by the item's own result.
		size, _, _ := h.entries[i].resolveSize()
		total += size
	}

	if err := engine.Check("SetTotal", cb.SetTotal(total)); err != nil {
		return err
	}

	ratio, _ := cb.(engine.RatioReporter)
	start := h.in.count()

	var completed uint64
	err := h.b.walk(ctx, indices, func(index uint32, open func() (io.ReadCloser, error)) error {
		if err := ctx.Err(); err != nil {
			return &engine.Error{Op: "Extract", Code: engine.CodeAbort, Err: err}
		}

		if err := engine.Check("PrepareOperation", cb.PrepareOperation(req.Mode)); err != nil {
			return err
		}

		out, c := cb.GetStream(index, req.Mode)
		if err := engine.Check("GetStream", c); err != nil {
			return err
		}

		e := h.entries[index]
		result, n, err := decode(req.Mode, e, out, open)
		if err != nil {
			return err
		}

		if err = engine.Check("SetOperationResult", cb.SetOperationResult(result)); err != nil {
			return err
		}

		completed += max(n, e.size)
		if err = engine.Check("SetCompleted", cb.SetCompleted(completed)); err != nil {
			return err
		}

		if ratio != nil {
			return engine.Check("SetRatioInfo", ratio.SetRatioInfo(h.in.count()-start, completed))
		}
		return nil
	})

	var engineErr *engine.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &engineErr):
		return engineErr
	default:
		return &engine.Error{Op: "Extract", Code: engine.CodeOf(err), Err: err}
	}
}

func (h *handler) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.b.Close()
}

// decode decodes one item according to mode.
//
// The returned error is non-nil only if writing to out failed, which aborts the batch. Every other failure is
// reported as an OperationResult.
func decode(mode engine.AskMode, e *entry, out engine.OutStream, open func() (io.ReadCloser, error)) (result engine.OperationResult, n uint64, err error) {
	if e.isDir || mode == engine.AskSkip || mode == engine.AskReadExternal || (mode == engine.AskExtract && out == nil) {
		return engine.ResultOK, 0, nil
	}

	rc, err := open()
	if err != nil {
		return resultOf(err, e), 0, nil
	}
	defer rc.Close()

	var dst io.Writer = io.Discard
	if mode == engine.AskExtract {
		dst = &outWriter{out}
	}

	hash := crc32.NewIEEE()
	written, err := io.Copy(io.MultiWriter(dst, hash), &taggedReader{rc})
	n = uint64(written)

	var readErr *readError
	switch {
	case err == nil:
	case errors.As(err, &readErr):
		return resultOf(readErr.err, e), n, nil
	default:
		return engine.ResultOK, n, err
	}

	switch {
	case e.hasCRC && hash.Sum32() != e.crc:
		return engine.ResultCRCError, n, nil
	case e.hasSize && n < e.size:
		return engine.ResultUnexpectedEnd, n, nil
	case e.hasSize && n > e.size:
		return engine.ResultDataAfterEnd, n, nil
	default:
		return engine.ResultOK, n, nil
	}
}
