package sink

import (
	"io"
	"testing"

	"github.com/nguyengg/unarc/engine"
	"github.com/nguyengg/unarc/engine/enginetest"
	"github.com/nguyengg/unarc/extract"
	"github.com/schollz/progressbar/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscard(t *testing.T) {
	h := &enginetest.Handler{Entries: []enginetest.Entry{
		{Path: "a", IsDir: true},
		{Path: "a/b.txt", Data: []byte("hello")},
		{Path: "a/c.txt", Data: []byte("bad"), Result: engine.ResultDataError},
	}}

	t.Run("extract", func(t *testing.T) {
		d := &Discard{}
		require.NoError(t, extract.Run(t.Context(), h, engine.Request{All: true, Mode: engine.AskExtract}, d))
		assert.Equal(t, []Result{
			{ID: 0, Result: engine.ResultOK},
			{ID: 1, Result: engine.ResultOK, Written: 5},
			{ID: 2, Result: engine.ResultDataError},
		}, d.Results)
		assert.Equal(t, []Result{{ID: 2, Result: engine.ResultDataError}}, d.Failed())
	})

	t.Run("test", func(t *testing.T) {
		d := &Discard{}
		require.NoError(t, extract.Run(t.Context(), h, engine.Request{Indices: []uint32{1, 2}, Mode: engine.AskTest}, d))
		assert.Equal(t, []Result{
			{ID: 1, Result: engine.ResultOK},
			{ID: 2, Result: engine.ResultDataError},
		}, d.Results)
	})
}

type ratioSink struct {
	Discard
	in, out uint64
}

func (s *ratioSink) SetRatioInfo(in, out uint64) error {
	s.in, s.out = in, out
	return nil
}

func TestProgress(t *testing.T) {
	h := &enginetest.Handler{Entries: []enginetest.Entry{
		{Path: "a.txt", Data: []byte("hello")},
		{Path: "b.txt", Data: []byte("world!")},
	}}

	inner := &ratioSink{}
	p := NewProgress(inner, "extracting", progressbar.OptionSetWriter(io.Discard))
	require.NoError(t, extract.Run(t.Context(), h, engine.Request{All: true, Mode: engine.AskExtract}, p))

	assert.Equal(t, int64(11), p.Bar.GetMax64())
	assert.Equal(t, int64(11), p.Bar.State().CurrentNum)
	assert.Len(t, inner.Results, 2)

	require.NoError(t, p.SetRatioInfo(3, 11))
	assert.Equal(t, uint64(3), inner.in)
	assert.Equal(t, uint64(11), inner.out)
	require.NoError(t, p.Finish())
}
