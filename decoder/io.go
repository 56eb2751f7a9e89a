package decoder

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/nguyengg/unarc/engine"
)

// input adapts the caller's io.ReadSeeker to the io.ReaderAt that random-access formats need, and counts every byte
// read for compression ratio reporting.
type input struct {
	mu   sync.Mutex
	r    io.ReadSeeker
	ra   io.ReaderAt
	size int64
	n    atomic.Uint64
}

func newInput(r io.ReadSeeker) (*input, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek to end error: %w", err)
	}
	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to start error: %w", err)
	}

	in := &input{r: r, size: size}
	in.ra, _ = r.(io.ReaderAt)
	return in, nil
}

func (in *input) count() uint64 {
	return in.n.Load()
}

func (in *input) Read(p []byte) (int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	n, err := in.r.Read(p)
	in.n.Add(uint64(n))
	return n, err
}

func (in *input) Seek(offset int64, whence int) (int64, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.r.Seek(offset, whence)
}

// ReadAt does not move the offset used by Read.
func (in *input) ReadAt(p []byte, off int64) (n int, err error) {
	if in.ra != nil {
		n, err = in.ra.ReadAt(p, off)
		in.n.Add(uint64(n))
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	cur, err := in.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	if _, err = in.r.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}

	n, err = io.ReadFull(in.r, p)
	in.n.Add(uint64(n))
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}

	if _, seekErr := in.r.Seek(cur, io.SeekStart); seekErr != nil && err == nil {
		err = seekErr
	}
	return
}

// section returns a reader over the whole input that is independent of the offset used by Read.
func (in *input) section() *io.SectionReader {
	return io.NewSectionReader(in, 0, in.size)
}

// header reads the first n bytes of the input without moving the offset used by Read.
func (in *input) header(n int) ([]byte, error) {
	b := make([]byte, min(int64(n), in.size))
	m, err := in.ReadAt(b, 0)
	if err == io.EOF && m == len(b) {
		err = nil
	}
	return b[:m], err
}

// readError tags errors coming from the decompressed content so they are not mistaken for write errors.
type readError struct {
	err error
}

func (e *readError) Error() string {
	return e.err.Error()
}

func (e *readError) Unwrap() error {
	return e.err
}

type taggedReader struct {
	r io.Reader
}

func (t *taggedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		err = &readError{err}
	}
	return n, err
}

// outWriter adapts an engine.OutStream to io.Writer.
type outWriter struct {
	out engine.OutStream
}

func (w *outWriter) Write(p []byte) (int, error) {
	n, c := w.out.Write(p)
	if c != engine.CodeOK {
		return n, &engine.Error{Op: "Write", Code: c}
	}
	return n, nil
}
