package bridge

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge_ReadBlocksUntilWritten(t *testing.T) {
	w, r, err := New(10)
	require.NoError(t, err)

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	b := make([]byte, 6)
	go func() {
		n, err := io.ReadFull(r, b)
		done <- result{n, err}
	}()

	require.Eventually(t, r.p.waiting, 5*time.Second, time.Millisecond)

	_, err = w.Write([]byte("hel"))
	require.NoError(t, err)
	_, err = w.Write([]byte("lo"))
	require.NoError(t, err)

	select {
	case <-done:
		t.Fatal("read returned before 6 bytes were written")
	default:
	}

	_, err = w.Write([]byte(", world"[:2]))
	require.NoError(t, err)

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.Equal(t, 6, got.n)
		assert.Equal(t, "hello,", string(b))
	case <-time.After(5 * time.Second):
		t.Fatal("read did not return after 6 bytes were written")
	}
}

func TestBridge_WrittenRangeNeverBlocks(t *testing.T) {
	w, r, err := New(5)
	require.NoError(t, err)

	_, err = w.Write([]byte("abcde"))
	require.NoError(t, err)

	// no goroutine and no close: any blocking here would hang the test.
	b := make([]byte, 3)
	n, err := r.ReadAt(b, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "cde", string(b))

	all, err := io.ReadAll(io.LimitReader(r, 5))
	require.NoError(t, err)
	assert.Equal(t, "abcde", string(all))

	n, err = r.Read(b)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestBridge_Seek(t *testing.T) {
	w, r, err := New(8)
	require.NoError(t, err)
	_, err = w.Write([]byte("01234567"))
	require.NoError(t, err)

	pos, err := r.Seek(-3, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos)

	b := make([]byte, 2)
	_, err = io.ReadFull(r, b)
	require.NoError(t, err)
	assert.Equal(t, "56", string(b))

	pos, err = r.Seek(-6, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pos)

	_, err = r.Seek(-1, io.SeekStart)
	assert.ErrorIs(t, err, ErrNegativeOffset)

	pos, err = r.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(8), pos)
	_, err = r.Read(b)
	assert.ErrorIs(t, err, io.EOF)
}

func TestBridge_Overflow(t *testing.T) {
	w, _, err := New(3)
	require.NoError(t, err)

	_, err = w.Write([]byte("ab"))
	require.NoError(t, err)
	n, err := w.Write([]byte("cd"))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, int64(2), w.Written())
}

func TestBridge_CloseWithError(t *testing.T) {
	w, r, err := New(10)
	require.NoError(t, err)

	cause := errors.New("crc mismatch")
	done := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(r)
		done <- err
	}()

	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.CloseWithError(cause))

	select {
	case err = <-done:
		assert.ErrorIs(t, err, cause)
	case <-time.After(5 * time.Second):
		t.Fatal("close did not wake the reader")
	}

	_, err = w.Write([]byte("d"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestBridge_ShortClose(t *testing.T) {
	w, r, err := New(10)
	require.NoError(t, err)

	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b := make([]byte, 10)
	n, err := r.ReadAt(b, 0)
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestBridge_ConcurrentWait(t *testing.T) {
	w, r, err := New(4)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := r.ReadAt(make([]byte, 4), 0)
		done <- err
	}()

	require.Eventually(t, r.p.waiting, 5*time.Second, time.Millisecond)

	_, err = r.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrConcurrentWait)

	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestBridge_ReadContext(t *testing.T) {
	_, r, err := New(4)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, err = r.ReadContext(ctx, make([]byte, 4))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, r.p.waiting())
}

func TestBridge_ReaderClose(t *testing.T) {
	w, r, err := New(4)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	_, err = w.Write([]byte("a"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
