package decoder

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/klauspost/compress/zip"
	"github.com/mholt/archives"
	"github.com/nguyengg/unarc/engine"
)

// extractor is the subset of archives formats that the backend needs.
type extractor interface {
	archives.Format
	archives.Extraction
}

type archivesBackend struct {
	in *input
	ex extractor
}

func openArchives(ex extractor) opener {
	return func(ctx context.Context, in *input, _ engine.OpenOptions) (backend, error) {
		if !matchStream(ctx, ex, in) {
			return nil, engine.ErrWrongFormat
		}

		return &archivesBackend{in: in, ex: ex}, nil
	}
}

// matchStream reports whether the content of in is of format ex.
//
// Every stage reads from its own view of in. A compressed archive is matched by its compression first, then the
// decompressed stream is matched against the archive format.
func matchStream(ctx context.Context, ex extractor, in *input) bool {
	ca, ok := ex.(archives.CompressedArchive)
	if !ok || ca.Compression == nil || ca.Extraction == nil {
		m, err := ex.Match(ctx, "", in.section())
		return err == nil && m.ByStream
	}

	if m, err := ca.Compression.Match(ctx, "", in.section()); err != nil || !m.ByStream {
		return false
	}

	rc, err := ca.Compression.OpenReader(in.section())
	if err != nil {
		return false
	}
	defer rc.Close()

	m, err := ca.Extraction.Match(ctx, "", rc)
	return err == nil && m.ByStream
}

func (b *archivesBackend) extract(ctx context.Context, fn func(f archives.FileInfo) error) error {
	if _, err := b.in.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek to start error: %w", err)
	}

	err := b.ex.Extract(ctx, b.in, func(_ context.Context, f archives.FileInfo) error {
		return fn(f)
	})
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

func (b *archivesBackend) scan(ctx context.Context) (entries []*entry, err error) {
	err = b.extract(ctx, func(f archives.FileInfo) error {
		entries = append(entries, entryFromFileInfo(f))
		return nil
	})
	return
}

func (b *archivesBackend) walk(ctx context.Context, indices []uint32, fn walkFunc) error {
	if len(indices) == 0 {
		return nil
	}

	var index uint32
	next := 0
	err := b.extract(ctx, func(f archives.FileInfo) error {
		i := index
		index++

		if i != indices[next] {
			return nil
		}

		if err := fn(i, func() (io.ReadCloser, error) { return f.Open() }); err != nil {
			return err
		}

		if next++; next == len(indices) {
			return errStop
		}
		return nil
	})
	if err == nil && next < len(indices) {
		err = &engine.Error{Op: "Extract", Code: engine.CodeFail, Err: fmt.Errorf("archive ended before item %d", indices[next])}
	}
	return err
}

func (b *archivesBackend) Close() error {
	return nil
}

func entryFromFileInfo(f archives.FileInfo) *entry {
	mode := f.Mode()
	e := &entry{
		path:      f.NameInArchive,
		isDir:     f.IsDir(),
		mtime:     f.ModTime(),
		attrib:    attribFromMode(mode),
		hasAttrib: true,
		symlink:   f.LinkTarget,
	}
	if !e.isDir && mode&fs.ModeSymlink == 0 {
		e.size, e.hasSize = uint64(f.Size()), true
	}

	switch h := f.Header.(type) {
	case *tar.Header:
		e.atime, e.ctime = h.AccessTime, h.ChangeTime
		if e.symlink == "" {
			e.symlink = h.Linkname
		}
	case zip.FileHeader:
		zipHeader(e, &h)
	case *zip.FileHeader:
		zipHeader(e, h)
	}

	return e
}

func zipHeader(e *entry, h *zip.FileHeader) {
	e.crc, e.hasCRC = h.CRC32, !e.isDir
	e.packSize = h.CompressedSize64
	e.comment = h.Comment
	e.encrypted = h.Flags&0x1 != 0
	switch h.Method {
	case zip.Store:
		e.method = "Store"
	case zip.Deflate:
		e.method = "Deflate"
	}
}
