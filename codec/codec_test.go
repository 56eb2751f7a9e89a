package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func compress(t *testing.T, name string, data []byte) []byte {
	t.Helper()

	var (
		buf bytes.Buffer
		w   io.WriteCloser
		err error
	)
	switch name {
	case "gzip":
		gw := gzip.NewWriter(&buf)
		gw.Name = "data.txt"
		w = gw
	case "xz":
		w, err = xz.NewWriter(&buf)
	case "zstd":
		w, err = zstd.NewWriter(&buf)
	case "lz4":
		w = lz4.NewWriter(&buf)
	case "bzip2":
		w, err = bzip2.NewWriter(&buf, nil)
	default:
		t.Fatalf("unknown codec %s", name)
	}
	require.NoError(t, err)

	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDetectAndDecode(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 100)

	for _, name := range []string{"gzip", "xz", "zstd", "lz4", "bzip2"} {
		t.Run(name, func(t *testing.T) {
			compressed := compress(t, name, data)

			c, ok := Detect(compressed[:8])
			require.True(t, ok)
			assert.Equal(t, name, c.Name())

			r, err := c.NewDecoder(bytes.NewReader(compressed))
			require.NoError(t, err)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestDetect_Unknown(t *testing.T) {
	_, ok := Detect([]byte("PK\x03\x04"))
	assert.False(t, ok)
}

func TestFromName(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		wantOK   bool
	}{
		{name: "gz", wantName: "gzip", wantOK: true},
		{name: "gzip", wantName: "gzip", wantOK: true},
		{name: "zst", wantName: "zstd", wantOK: true},
		{name: "bz2", wantName: "bzip2", wantOK: true},
		{name: "zip", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := FromName(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantName, c.Name())
			}
		})
	}
}

func TestGzipCodec_Header(t *testing.T) {
	compressed := compress(t, "gzip", []byte("hello"))

	h, err := GzipCodec{}.Header(bytes.NewReader(compressed))
	require.NoError(t, err)
	assert.Equal(t, "data.txt", h.Name)
}
