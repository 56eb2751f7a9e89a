package decoder

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bodgit/sevenzip"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/nguyengg/unarc/engine"
	"github.com/nguyengg/unarc/extract"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

type file struct {
	name string
	body string
	dir  bool
}

var testFiles = []file{
	{name: "test/", dir: true},
	{name: "test/a.txt", body: "hello, world!"},
	{name: "test/path/b.txt", body: "the quick brown fox jumps over the lazy dog"},
	{name: "c.txt", body: ""},
}

func newZip(t *testing.T) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range testFiles {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTar(t *testing.T, dst io.Writer) {
	tw := tar.NewWriter(dst)
	for _, f := range testFiles {
		hdr := &tar.Header{Name: f.name, Mode: 0o644, Size: int64(len(f.body)), ModTime: time.Unix(1700000000, 0), Typeflag: tar.TypeReg}
		if f.dir {
			hdr.Typeflag, hdr.Mode, hdr.Size = tar.TypeDir, 0o755, 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
}

func newTarGz(t *testing.T) []byte {
	return newCompressedTar(t, "tar.gz")
}

// newCompressedTar returns the test files as a tar compressed according to format.
func newCompressedTar(t *testing.T, format string) []byte {
	var (
		buf bytes.Buffer
		w   io.WriteCloser
		err error
	)
	switch format {
	case "tar.gz":
		w = gzip.NewWriter(&buf)
	case "tar.xz":
		w, err = xz.NewWriter(&buf)
	case "tar.zst":
		w, err = zstd.NewWriter(&buf)
	case "tar.bz2":
		w, err = bzip2.NewWriter(&buf, nil)
	case "tar.lz4":
		w = lz4.NewWriter(&buf)
	default:
		t.Fatalf("unknown format %s", format)
	}
	require.NoError(t, err)

	newTar(t, w)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newGz(t *testing.T, name, body string) []byte {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Name = name
	_, err := gw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

// bufferSink keeps the content of every extracted item.
type bufferSink struct {
	extract.NoopSink
	outputs map[uint32]*bytes.Buffer
	results []engine.OperationResult
	total   uint64
	in, out uint64
}

func (s *bufferSink) SetTotal(size uint64) error {
	s.total = size
	return nil
}

func newBufferSink() *bufferSink {
	return &bufferSink{outputs: make(map[uint32]*bytes.Buffer)}
}

func (s *bufferSink) GetOutput(id uint32, mode engine.AskMode) (io.Writer, error) {
	if mode != engine.AskExtract {
		return nil, nil
	}
	buf := &bytes.Buffer{}
	s.outputs[id] = buf
	return buf, nil
}

func (s *bufferSink) SetOperationResult(result engine.OperationResult) error {
	s.results = append(s.results, result)
	return nil
}

func (s *bufferSink) SetRatioInfo(in, out uint64) error {
	s.in, s.out = in, out
	return nil
}

func open(t *testing.T, name string, data []byte, fileName string) engine.Handler {
	h, err := New().Open(t.Context(), engine.NewClassID(name), bytes.NewReader(data), engine.OpenOptions{Name: fileName})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = h.Close()
	})
	return h
}

func TestEngine_ExtractAll(t *testing.T) {
	tests := []struct {
		format string
		data   func(t *testing.T) []byte
	}{
		{format: "zip", data: newZip},
		{format: "tar", data: func(t *testing.T) []byte {
			var buf bytes.Buffer
			newTar(t, &buf)
			return buf.Bytes()
		}},
		{format: "tar.gz", data: newTarGz},
		{format: "tar.xz", data: func(t *testing.T) []byte { return newCompressedTar(t, "tar.xz") }},
		{format: "tar.zst", data: func(t *testing.T) []byte { return newCompressedTar(t, "tar.zst") }},
		{format: "tar.bz2", data: func(t *testing.T) []byte { return newCompressedTar(t, "tar.bz2") }},
		{format: "tar.lz4", data: func(t *testing.T) []byte { return newCompressedTar(t, "tar.lz4") }},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			h := open(t, tt.format, tt.data(t), "")
			require.Equal(t, uint32(len(testFiles)), h.ItemCount())

			for i, f := range testFiles {
				path, err := engine.ReadString(h, uint32(i), engine.PropPath)
				require.NoError(t, err)
				assert.Equal(t, trimSlash(f.name), trimSlash(path))

				isDir, err := engine.ReadBool(h, uint32(i), engine.PropIsDir)
				require.NoError(t, err)
				assert.Equalf(t, f.dir, isDir, "item %d IsDir", i)
			}

			sink := newBufferSink()
			require.NoError(t, extract.Run(t.Context(), h, engine.Request{All: true, Mode: engine.AskExtract}, sink))
			for i, f := range testFiles {
				if buf, ok := sink.outputs[uint32(i)]; ok {
					assert.Equalf(t, f.body, buf.String(), "content of %s", f.name)
				}
			}
			assert.Len(t, sink.results, len(testFiles))
			for _, r := range sink.results {
				assert.Equal(t, engine.ResultOK, r)
			}
			var total uint64
			for _, f := range testFiles {
				total += uint64(len(f.body))
			}
			assert.Equal(t, total, sink.out)
			assert.NotZero(t, sink.in)
		})
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func TestEngine_ExtractSubset(t *testing.T) {
	h := open(t, "zip", newZip(t), "")

	sink := newBufferSink()
	require.NoError(t, extract.Run(t.Context(), h, engine.Request{Indices: []uint32{2}, Mode: engine.AskExtract}, sink))
	require.Len(t, sink.outputs, 1)
	assert.Equal(t, testFiles[2].body, sink.outputs[2].String())

	sink = newBufferSink()
	require.NoError(t, extract.Run(t.Context(), h, engine.Request{Indices: []uint32{1, 2}, Mode: engine.AskTest}, sink))
	assert.Empty(t, sink.outputs)
	assert.Equal(t, []engine.OperationResult{engine.ResultOK, engine.ResultOK}, sink.results)

	err := h.Extract(t.Context(), engine.Request{Indices: []uint32{2, 1}}, extract.NewProxy(sink))
	var engineErr *engine.Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, engine.CodeInvalidArg, engineErr.Code)
}

func TestEngine_WrongFormat(t *testing.T) {
	e := New()
	data := newTarGz(t)

	for _, name := range []string{"7z", "zip", "tar", "xz", "zstd", "rar"} {
		t.Run(name, func(t *testing.T) {
			_, err := e.Open(t.Context(), engine.NewClassID(name), bytes.NewReader(data), engine.OpenOptions{})
			assert.ErrorIs(t, err, engine.ErrWrongFormat)
		})
	}
}

func TestEngine_Gzip(t *testing.T) {
	body := "a single compressed stream"

	h := open(t, "gzip", newGz(t, "notes.txt", body), "archive.gz")
	require.Equal(t, uint32(1), h.ItemCount())
	path, err := engine.ReadString(h, 0, engine.PropPath)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", path)

	size, ok, err := engine.ReadUint64(h, 0, engine.PropSize)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(len(body)), size)

	sink := newBufferSink()
	require.NoError(t, extract.Run(t.Context(), h, engine.Request{All: true, Mode: engine.AskExtract}, sink))
	assert.Equal(t, body, sink.outputs[0].String())

	// without a name in the header, the stem of the archive name is used.
	h = open(t, "gzip", newGz(t, "", body), "/tmp/backup.sql.GZ")
	path, err = engine.ReadString(h, 0, engine.PropPath)
	require.NoError(t, err)
	assert.Equal(t, "backup.sql", path)
}

func TestEngine_SingleStreamTotal(t *testing.T) {
	body := "the size of a single stream is only known once decoded"

	for _, format := range []string{"gzip", "xz"} {
		t.Run(format, func(t *testing.T) {
			var (
				buf bytes.Buffer
				w   io.WriteCloser
				err error
			)
			switch format {
			case "gzip":
				w = gzip.NewWriter(&buf)
			case "xz":
				w, err = xz.NewWriter(&buf)
			}
			require.NoError(t, err)

			_, err = w.Write([]byte(body))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			h := open(t, format, buf.Bytes(), "data."+format)
			sink := newBufferSink()
			require.NoError(t, extract.Run(t.Context(), h, engine.Request{All: true, Mode: engine.AskTest}, sink))
			assert.Equal(t, uint64(len(body)), sink.total)
			assert.Equal(t, []engine.OperationResult{engine.ResultOK}, sink.results)
		})
	}
}

func TestEngine_CRCError(t *testing.T) {
	data := newGz(t, "a.txt", "some content that will fail its checksum")
	data[len(data)-8] ^= 0xff

	h := open(t, "gzip", data, "")
	sink := newBufferSink()
	require.NoError(t, extract.Run(t.Context(), h, engine.Request{All: true, Mode: engine.AskTest}, sink))
	assert.Equal(t, []engine.OperationResult{engine.ResultCRCError}, sink.results)
}

type failingSink struct {
	extract.NoopSink
	err error
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) {
	return 0, w.err
}

func (s failingSink) GetOutput(uint32, engine.AskMode) (io.Writer, error) {
	return failingWriter{s.err}, nil
}

func TestEngine_WriteFailureAborts(t *testing.T) {
	h := open(t, "zip", newZip(t), "")
	cause := errors.New("no space left on device")

	err := extract.Run(t.Context(), h, engine.Request{All: true, Mode: engine.AskExtract}, failingSink{err: cause})
	assert.ErrorIs(t, err, cause)

	var extractErr *extract.Error
	require.ErrorAs(t, err, &extractErr)
	var engineErr *engine.Error
	require.ErrorAs(t, extractErr.Engine, &engineErr)
	assert.Equal(t, "Write", engineErr.Op)
}

func TestEngine_Formats(t *testing.T) {
	formats := New().Formats()

	byName := make(map[string]engine.FormatInfo)
	for _, f := range formats {
		byName[f.Name] = f
	}

	for _, name := range []string{"7z", "zip", "tar", "rar", "gzip", "xz", "zstd", "lz4", "bzip2", "tar.gz", "tar.xz", "tar.zst", "tar.bz2", "tar.lz4"} {
		assert.Containsf(t, byName, name, "Formats() is missing %s", name)
	}

	tgz := byName["tar.gz"]
	assert.Equal(t, []string{"gz", "tgz"}, tgz.Extensions)
	assert.Equal(t, []string{"tar", "*"}, tgz.AddExtensions)
	assert.Equal(t, engine.NewClassID("tar.gz"), tgz.ClassID)
}

func TestAttribFromMode(t *testing.T) {
	assert.Equal(t, uint32(0x8000|0x10|(0o040755<<16)), attribFromMode(0o755|1<<31))
	assert.Equal(t, uint32(0x8000|0x1|(0o100444<<16)), attribFromMode(0o444))
	assert.Equal(t, uint32(0x8000|(0o100644<<16)), attribFromMode(0o644))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "backup.tar", stem("backup.tar.gz", "gz"))
	assert.Equal(t, "notes", stem("C:\\data\\notes.XZ", "xz"))
	assert.Equal(t, "noext", stem("noext", "gz"))
	assert.Equal(t, "data", stem("", "gz"))
}

func TestEngine_CompressedTarRejectsPlainStream(t *testing.T) {
	e := New()
	data := newGz(t, "notes.txt", "not a tar")

	_, err := e.Open(t.Context(), engine.NewClassID("tar.gz"), bytes.NewReader(data), engine.OpenOptions{})
	assert.ErrorIs(t, err, engine.ErrWrongFormat)

	h, err := e.Open(t.Context(), engine.NewClassID("gzip"), bytes.NewReader(data), engine.OpenOptions{})
	require.NoError(t, err)
	assert.NoError(t, h.Close())
}

func readTestdata(t *testing.T, name string) []byte {
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func openSevenZipTestdata(t *testing.T, data []byte, password string) engine.Handler {
	h, err := New().Open(t.Context(), engine.NewClassID("7z"), bytes.NewReader(data), engine.OpenOptions{Password: password})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = h.Close()
	})
	return h
}

func TestEngine_SevenZip(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		password string
	}{
		{name: "stored", file: "stored.7z"},
		{name: "encrypted", file: "encrypted.7z", password: "password"},
		{name: "encrypted stored", file: "encrypted-stored.7z", password: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := openSevenZipTestdata(t, readTestdata(t, tt.file), tt.password)
			require.Equal(t, uint32(2), h.ItemCount())

			for i, name := range []string{"bar", "foo"} {
				path, err := engine.ReadString(h, uint32(i), engine.PropPath)
				require.NoError(t, err)
				assert.Equal(t, name, path)

				isDir, err := engine.ReadBool(h, uint32(i), engine.PropIsDir)
				require.NoError(t, err)
				assert.False(t, isDir)

				size, ok, err := engine.ReadUint64(h, uint32(i), engine.PropSize)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, uint64(4), size)

				attrib, ok, err := engine.ReadUint32(h, uint32(i), engine.PropAttrib)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, uint32(0x81a48020), attrib)
			}

			sink := newBufferSink()
			require.NoError(t, extract.Run(t.Context(), h, engine.Request{All: true, Mode: engine.AskExtract}, sink))
			assert.Equal(t, []engine.OperationResult{engine.ResultOK, engine.ResultOK}, sink.results)
			assert.Equal(t, "bar\n", sink.outputs[0].String())
			assert.Equal(t, "foo\n", sink.outputs[1].String())
			assert.Equal(t, uint64(8), sink.out)
		})
	}
}

func TestEngine_SevenZipSubset(t *testing.T) {
	h := openSevenZipTestdata(t, readTestdata(t, "encrypted.7z"), "password")

	sink := newBufferSink()
	require.NoError(t, extract.Run(t.Context(), h, engine.Request{Indices: []uint32{1}, Mode: engine.AskExtract}, sink))
	require.Len(t, sink.outputs, 1)
	assert.Equal(t, "foo\n", sink.outputs[1].String())
	assert.Equal(t, []engine.OperationResult{engine.ResultOK}, sink.results)

	sink = newBufferSink()
	require.NoError(t, extract.Run(t.Context(), h, engine.Request{Indices: []uint32{0, 1}, Mode: engine.AskTest}, sink))
	assert.Empty(t, sink.outputs)
	assert.Equal(t, []engine.OperationResult{engine.ResultOK, engine.ResultOK}, sink.results)
}

func TestEngine_SevenZipWrongPassword(t *testing.T) {
	t.Run("compressed", func(t *testing.T) {
		h := openSevenZipTestdata(t, readTestdata(t, "encrypted.7z"), "notpassword")

		sink := newBufferSink()
		require.NoError(t, extract.Run(t.Context(), h, engine.Request{All: true, Mode: engine.AskTest}, sink))
		require.Len(t, sink.results, 2)
		assert.Equal(t, engine.ResultWrongPassword, sink.results[0])
		assert.NotContains(t, sink.results, engine.ResultOK)
	})

	// stored content decrypts to garbage without a decoder error, so only the checksum catches it.
	t.Run("stored", func(t *testing.T) {
		h := openSevenZipTestdata(t, readTestdata(t, "encrypted-stored.7z"), "notpassword")

		sink := newBufferSink()
		require.NoError(t, extract.Run(t.Context(), h, engine.Request{All: true, Mode: engine.AskTest}, sink))
		assert.Equal(t, []engine.OperationResult{engine.ResultCRCError, engine.ResultCRCError}, sink.results)
	})
}

func TestEngine_SevenZipCRCError(t *testing.T) {
	data := readTestdata(t, "stored.7z")
	// the content of "bar" is stored right after the 32-byte signature header.
	data[32] ^= 0xff

	h := openSevenZipTestdata(t, data, "")
	sink := newBufferSink()
	require.NoError(t, extract.Run(t.Context(), h, engine.Request{All: true, Mode: engine.AskExtract}, sink))
	assert.Equal(t, []engine.OperationResult{engine.ResultCRCError, engine.ResultOK}, sink.results)
	assert.Equal(t, "foo\n", sink.outputs[1].String())
}

func TestResultOf_SevenZipEncrypted(t *testing.T) {
	e := &entry{}
	assert.Equal(t, engine.ResultWrongPassword, resultOf(&sevenzip.ReadError{Encrypted: true, Err: io.ErrUnexpectedEOF}, e))
	assert.Equal(t, engine.ResultUnexpectedEnd, resultOf(&sevenzip.ReadError{Err: io.ErrUnexpectedEOF}, e))
	assert.Equal(t, engine.ResultDataError, resultOf(&sevenzip.ReadError{Err: errors.New("corrupt")}, e))
}
