// Package decoder is the engine.Engine implementation backed by pure Go archive libraries.
//
// 7z archives are read with github.com/bodgit/sevenzip, zip, rar, and (compressed) tar archives with
// github.com/mholt/archives, and single compressed streams such as .gz or .xz with package codec.
package decoder

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/mholt/archives"
	"github.com/nguyengg/unarc/codec"
	"github.com/nguyengg/unarc/engine"
)

type opener func(ctx context.Context, in *input, opts engine.OpenOptions) (backend, error)

type format struct {
	info engine.FormatInfo
	open opener
}

// Engine implements engine.Engine.
//
// The zero value is not usable; use New instead.
type Engine struct {
	formats []format
	byID    map[uuid.UUID]format
}

var _ engine.Engine = &Engine{}

// New returns a new Engine with every supported format.
//
// Single-stream formats such as "gzip" are registered before the tar variants that share their extensions, so that
// "file.gz" is first tried as a plain gzip stream while "file.tar.gz" is first tried as "tar.gz".
func New() *Engine {
	e := &Engine{byID: make(map[uuid.UUID]format)}

	e.register("7z", []string{"7z"}, nil, openSevenZip)
	e.register("zip", []string{"zip", "jar", "apk", "epub", "docx", "xlsx", "pptx", "odt"}, nil, openArchives(archives.Zip{}))
	e.register("tar", []string{"tar"}, nil, openArchives(archives.Tar{}))
	e.register("rar", []string{"rar"}, nil, func(ctx context.Context, in *input, opts engine.OpenOptions) (backend, error) {
		return openArchives(archives.Rar{Password: opts.Password})(ctx, in, opts)
	})

	for _, c := range codec.All() {
		e.register(c.Name(), []string{c.Ext()}, nil, openStream(c))
	}

	tars := []struct {
		name        string
		extensions  []string
		compression archives.Compression
	}{
		{name: "tar.gz", extensions: []string{"gz", "tgz"}, compression: archives.Gz{}},
		{name: "tar.xz", extensions: []string{"xz", "txz"}, compression: archives.Xz{}},
		{name: "tar.zst", extensions: []string{"zst", "tzst"}, compression: archives.Zstd{}},
		{name: "tar.bz2", extensions: []string{"bz2", "tbz2", "tbz"}, compression: archives.Bz2{}},
		{name: "tar.lz4", extensions: []string{"lz4"}, compression: archives.Lz4{}},
	}
	for _, t := range tars {
		add := make([]string, len(t.extensions))
		for i := range add {
			add[i] = "*"
		}
		add[0] = "tar"

		e.register(t.name, t.extensions, add, openArchives(archives.CompressedArchive{
			Compression: t.compression,
			Extraction:  archives.Tar{},
		}))
	}

	return e
}

func (e *Engine) register(name string, extensions, addExtensions []string, open opener) {
	f := format{
		info: engine.FormatInfo{
			Name:          name,
			ClassID:       engine.NewClassID(name),
			Extensions:    extensions,
			AddExtensions: addExtensions,
		},
		open: open,
	}
	e.formats = append(e.formats, f)
	e.byID[f.info.ClassID] = f
}

func (e *Engine) Formats() []engine.FormatInfo {
	infos := make([]engine.FormatInfo, len(e.formats))
	for i, f := range e.formats {
		infos[i] = f.info
	}
	return infos
}

func (e *Engine) Open(ctx context.Context, classID uuid.UUID, r io.ReadSeeker, opts engine.OpenOptions) (engine.Handler, error) {
	f, ok := e.byID[classID]
	if !ok {
		return nil, &engine.Error{Op: "Open", Code: engine.CodeNotImpl, Err: fmt.Errorf("unknown class id %s", classID)}
	}

	in, err := newInput(r)
	if err != nil {
		return nil, err
	}

	b, err := f.open(ctx, in, opts)
	if err != nil {
		return nil, err
	}

	entries, err := b.scan(ctx)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("read %s headers error: %w", f.info.Name, err)
	}
	if uint64(len(entries)) > uint64(^uint32(0)) {
		_ = b.Close()
		return nil, &engine.Error{Op: "Open", Code: engine.CodeInvalidArg, Err: fmt.Errorf("too many items: %d", len(entries))}
	}

	return &handler{format: f.info, in: in, b: b, entries: entries}, nil
}
