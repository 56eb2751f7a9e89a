// Package bridge connects a push-style producer to a pull-style consumer over one pre-sized buffer.
//
// The producer appends to the buffer through a Writer while the consumer reads and seeks through a Reader. A read of a
// range that has not been produced yet blocks until it has. The buffer is sized up front from the item's known
// decompressed size, so the bridge cannot carry streams of unknown length.
//
// Exactly one producer goroutine and one consumer goroutine may use a bridge. At most one read may be blocked at a
// time; a second concurrent blocked read fails with ErrConcurrentWait.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	// ErrConcurrentWait is returned when a read blocks while another read is already blocked.
	ErrConcurrentWait = errors.New("bridge: concurrent blocked reads are not supported")
	// ErrOverflow is returned when a write would go past the size of the buffer.
	ErrOverflow = errors.New("bridge: write exceeds buffer size")
	// ErrNegativeOffset is returned when seeking or reading at a negative offset.
	ErrNegativeOffset = errors.New("bridge: negative offset")
)

type pipe struct {
	mu      sync.Mutex
	buf     []byte
	written int64
	closed  bool
	err     error
	rclosed bool
	wait    *waiter
}

type waiter struct {
	need int64
	ch   chan struct{}
}

// wake must be called with mu held.
func (p *pipe) wake(force bool) {
	if w := p.wait; w != nil && (force || p.written >= w.need) {
		p.wait = nil
		close(w.ch)
	}
}

// New returns the two facades over a new buffer of the given size.
func New(size int64) (*Writer, *Reader, error) {
	if size < 0 {
		return nil, nil, fmt.Errorf("bridge: invalid size %d", size)
	}

	p := &pipe{buf: make([]byte, size)}
	return &Writer{p}, &Reader{p: p}, nil
}

// Writer is the producer facade. It is append-only.
type Writer struct {
	p *pipe
}

var _ io.WriteCloser = &Writer{}

// Write appends b to the buffer and wakes the blocked reader if its range is now available.
//
// Returns ErrOverflow without writing anything if b does not fit, and io.ErrClosedPipe after either side is closed.
func (w *Writer) Write(b []byte) (int, error) {
	p := w.p
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.closed, p.rclosed:
		return 0, io.ErrClosedPipe
	case p.written+int64(len(b)) > int64(len(p.buf)):
		return 0, ErrOverflow
	}

	n := copy(p.buf[p.written:], b)
	p.written += int64(n)
	p.wake(false)
	return n, nil
}

// Close marks the end of production.
//
// If fewer bytes than the buffer size were written, reads past the written end fail with io.ErrUnexpectedEOF.
func (w *Writer) Close() error {
	return w.CloseWithError(nil)
}

// CloseWithError marks the end of production with an error that reads past the written end will return.
//
// Only the first close has an effect.
func (w *Writer) CloseWithError(err error) error {
	p := w.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed, p.err = true, err
		p.wake(true)
	}
	return nil
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 {
	w.p.mu.Lock()
	defer w.p.mu.Unlock()
	return w.p.written
}

// Reader is the consumer facade. It is seekable but not writable.
type Reader struct {
	p   *pipe
	pos int64
}

var _ io.ReadSeekCloser = &Reader{}
var _ io.ReaderAt = &Reader{}

// Size returns the size of the buffer.
func (r *Reader) Size() int64 {
	return int64(len(r.p.buf))
}

// Read reads len(b) bytes or up to the end of the buffer, blocking until they have all been written.
func (r *Reader) Read(b []byte) (int, error) {
	return r.ReadContext(context.Background(), b)
}

// ReadContext is a variant of Read that stops blocking when ctx is done.
func (r *Reader) ReadContext(ctx context.Context, b []byte) (n int, err error) {
	n, err = r.readAt(ctx, b, r.pos)
	r.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return
}

// ReadAt reads len(b) bytes at off, blocking until they have all been written.
//
// The read offset used by Read is not affected.
func (r *Reader) ReadAt(b []byte, off int64) (int, error) {
	return r.readAt(context.Background(), b, off)
}

// Seek sets the offset for the next Read. Seeking past the end is allowed; reads there return io.EOF.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += r.pos
	case io.SeekEnd:
		offset += r.Size()
	default:
		return r.pos, fmt.Errorf("bridge: invalid whence %d", whence)
	}

	if offset < 0 {
		return r.pos, ErrNegativeOffset
	}

	r.pos = offset
	return offset, nil
}

// Close releases the consumer side. Subsequent writes fail with io.ErrClosedPipe.
func (r *Reader) Close() error {
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rclosed = true
	return nil
}

func (r *Reader) readAt(ctx context.Context, b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}

	size := r.Size()
	if off >= size {
		return 0, io.EOF
	}

	end := min(off+int64(len(b)), size)
	avail, err := r.p.waitFor(ctx, end)
	if avail > off {
		n := copy(b, r.p.buf[off:min(avail, end)])
		if err == nil && end == size && int64(n) < int64(len(b)) {
			err = io.EOF
		}
		return n, err
	}

	return 0, err
}

// waitFor blocks until at least end bytes are written or the writer is closed, returning the number of bytes written.
//
// The error is non-nil only if fewer than end bytes are available.
func (p *pipe) waitFor(ctx context.Context, end int64) (int64, error) {
	p.mu.Lock()

	for {
		switch {
		case p.written >= end:
			written := p.written
			p.mu.Unlock()
			return written, nil
		case p.closed:
			written, err := p.written, p.err
			p.mu.Unlock()
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return written, err
		case p.wait != nil:
			written := p.written
			p.mu.Unlock()
			return written, ErrConcurrentWait
		}

		w := &waiter{need: end, ch: make(chan struct{})}
		p.wait = w
		p.mu.Unlock()

		select {
		case <-w.ch:
		case <-ctx.Done():
			p.mu.Lock()
			if p.wait == w {
				p.wait = nil
			}
			written := p.written
			p.mu.Unlock()
			return written, ctx.Err()
		}

		p.mu.Lock()
	}
}

// waiting returns true if a read is currently blocked.
func (p *pipe) waiting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wait != nil
}
