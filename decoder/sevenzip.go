package decoder

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bodgit/sevenzip"
	"github.com/nguyengg/unarc/engine"
)

var sevenZipSignature = []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}

type sevenZipBackend struct {
	r *sevenzip.Reader
}

func openSevenZip(_ context.Context, in *input, opts engine.OpenOptions) (backend, error) {
	header, err := in.header(len(sevenZipSignature))
	if err != nil {
		return nil, fmt.Errorf("read 7z signature error: %w", err)
	}
	if !bytes.Equal(header, sevenZipSignature) {
		return nil, engine.ErrWrongFormat
	}

	var r *sevenzip.Reader
	if opts.Password != "" {
		r, err = sevenzip.NewReaderWithPassword(in, in.size, opts.Password)
	} else {
		r, err = sevenzip.NewReader(in, in.size)
	}
	if err != nil {
		return nil, fmt.Errorf("open 7z error: %w", err)
	}

	return &sevenZipBackend{r: r}, nil
}

func (b *sevenZipBackend) scan(_ context.Context) ([]*entry, error) {
	entries := make([]*entry, len(b.r.File))
	for i, f := range b.r.File {
		fh := f.FileHeader
		entries[i] = &entry{
			path:      fh.Name,
			isDir:     fh.FileInfo().IsDir(),
			size:      fh.UncompressedSize,
			hasSize:   true,
			mtime:     fh.Modified,
			ctime:     fh.Created,
			atime:     fh.Accessed,
			attrib:    fh.Attributes,
			hasAttrib: true,
			crc:       fh.CRC32,
			hasCRC:    fh.CRC32 != 0 || fh.UncompressedSize == 0,
		}
	}

	return entries, nil
}

func (b *sevenZipBackend) walk(_ context.Context, indices []uint32, fn walkFunc) error {
	for _, i := range indices {
		if err := fn(i, b.r.File[i].Open); err != nil {
			return err
		}
	}

	return nil
}

func (b *sevenZipBackend) Close() error {
	return nil
}
