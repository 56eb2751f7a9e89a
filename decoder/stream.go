package decoder

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/nguyengg/unarc/codec"
	"github.com/nguyengg/unarc/engine"
)

// streamBackend exposes a single compressed stream as an archive with one item.
type streamBackend struct {
	in *input
	c  codec.Codec
	e  *entry
}

func openStream(c codec.Codec) opener {
	return func(_ context.Context, in *input, opts engine.OpenOptions) (backend, error) {
		magic := c.Magic()
		header, err := in.header(len(magic))
		if err != nil || !bytes.Equal(header, magic) {
			return nil, engine.ErrWrongFormat
		}

		b := &streamBackend{in: in, c: c, e: &entry{}}

		if gz, ok := c.(codec.GzipCodec); ok {
			if h, err := gz.Header(b.in.section()); err == nil {
				b.e.path, b.e.mtime, b.e.comment = path.Base(h.Name), h.ModTime, h.Comment
			}
		}
		if b.e.path == "" || b.e.path == "." || b.e.path == "/" {
			b.e.path = stem(opts.Name, c.Ext())
		}
		b.e.packSize = uint64(in.size)
		b.e.method = c.Name()
		b.e.sizeFn = b.decodedSize

		return b, nil
	}
}

// stem removes the codec's extension from the archive name, falling back to "data" if there is no name.
func stem(name, ext string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "" || base == "." || base == "/" {
		return "data"
	}

	if i := len(base) - len(ext) - 1; i > 0 && strings.EqualFold(base[i:], "."+ext) {
		return base[:i]
	}

	return base
}

func (b *streamBackend) open() (io.ReadCloser, error) {
	return b.c.NewDecoder(b.in.section())
}

// decodedSize decodes the whole stream once since these formats do not record the decompressed size reliably.
func (b *streamBackend) decodedSize() (uint64, error) {
	rc, err := b.open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := io.Copy(io.Discard, rc)
	return uint64(n), err
}

func (b *streamBackend) scan(_ context.Context) ([]*entry, error) {
	return []*entry{b.e}, nil
}

func (b *streamBackend) walk(_ context.Context, indices []uint32, fn walkFunc) error {
	for _, i := range indices {
		if err := fn(i, b.open); err != nil {
			return err
		}
	}

	return nil
}

func (b *streamBackend) Close() error {
	return nil
}
