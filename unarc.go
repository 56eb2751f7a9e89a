// Package unarc reads archives of many formats through a pluggable decoder engine.
//
// Open an archive with Open or OpenFile, then browse its items as a tree with Archive.Tree, extract items into an
// extract.Sink with Archive.Extract, or read a single item as a stream with Archive.OpenStream.
package unarc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/nguyengg/unarc/decoder"
	"github.com/nguyengg/unarc/engine"
	"github.com/nguyengg/unarc/format"
	"github.com/nguyengg/unarc/itemtree"
)

// Item is the full metadata of an archive item.
type Item = itemtree.Item

// Node is a node of an archive's Tree.
type Node = itemtree.Node

var (
	defaultEngine = sync.OnceValue(func() engine.Engine {
		return decoder.New()
	})
	defaultRegistry = sync.OnceValue(func() *format.Registry {
		return format.New(defaultEngine().Formats())
	})
)

// Formats returns the formats supported by the default engine.
func Formats() []engine.FormatInfo {
	return defaultRegistry().Formats()
}

// OpenOptions customises Open and OpenFile.
type OpenOptions struct {
	// Engine is the decoder engine. Defaults to the pure Go engine from package decoder.
	Engine engine.Engine

	// Registry resolves file names to candidate formats. Defaults to a Registry built from Engine.
	Registry *format.Registry

	// Password is used to open encrypted archives.
	Password string

	// DisableIdentify disables content sniffing when no candidate from the file name opens the stream.
	DisableIdentify bool

	// Logger receives a debug record for each candidate format tried. Nil disables logging.
	Logger *log.Logger
}

// OpenFile opens the named archive file. The file is closed when the Archive is closed.
func OpenFile(ctx context.Context, name string, optFns ...func(*OpenOptions)) (*Archive, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open file error: %w", err)
	}

	a, err := Open(ctx, f, name, optFns...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	a.closeInput = f.Close
	return a, nil
}

// Open opens r as an archive, using name to pick candidate formats.
//
// Each candidate from the file name is tried in order until one opens without reporting engine.ErrWrongFormat. If
// none does, the content is sniffed to find more candidates unless OpenOptions.DisableIdentify is set. Returns a
// *FormatError if nothing opens the stream.
//
// The Archive does not take ownership of r, which must remain open until the Archive is closed.
func Open(ctx context.Context, r io.ReadSeeker, name string, optFns ...func(*OpenOptions)) (*Archive, error) {
	opts := &OpenOptions{}
	for _, fn := range optFns {
		fn(opts)
	}

	e, reg := opts.Engine, opts.Registry
	if e == nil {
		e = defaultEngine()
		if reg == nil {
			reg = defaultRegistry()
		}
	}
	if reg == nil {
		reg = format.New(e.Formats())
	}

	p := &prober{
		ctx:    ctx,
		e:      e,
		r:      r,
		opts:   engine.OpenOptions{Name: name, Password: opts.Password},
		logger: opts.Logger,
		tried:  make(map[uuid.UUID]bool),
	}

	a, err := p.try(reg.Resolve(name))
	if a == nil && err == nil && !opts.DisableIdentify {
		var candidates []engine.FormatInfo
		if candidates, err = reg.Identify(ctx, r); err != nil {
			p.debug("identify failed", "error", err)
			err = nil
		}
		a, err = p.try(candidates)
	}

	switch {
	case err != nil:
		return nil, err
	case a == nil:
		return nil, &FormatError{Name: name, Tried: p.names, Err: p.lastErr}
	default:
		return a, nil
	}
}

type prober struct {
	ctx     context.Context
	e       engine.Engine
	r       io.ReadSeeker
	opts    engine.OpenOptions
	logger  *log.Logger
	tried   map[uuid.UUID]bool
	names   []string
	lastErr error
}

func (p *prober) debug(msg string, keyvals ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, keyvals...)
	}
}

// try returns the first Archive that opens, or nil if none does. The error is non-nil only for failures that make
// trying further candidates pointless.
func (p *prober) try(candidates []engine.FormatInfo) (*Archive, error) {
	for _, f := range candidates {
		if p.tried[f.ClassID] {
			continue
		}
		p.tried[f.ClassID] = true
		p.names = append(p.names, f.Name)

		if err := p.ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := p.r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek to start error: %w", err)
		}

		p.debug("trying format", "format", f.Name, "name", p.opts.Name)

		h, err := p.e.Open(p.ctx, f.ClassID, p.r, p.opts)
		switch {
		case err == nil:
			p.debug("opened", "format", f.Name, "items", h.ItemCount())
			return &Archive{h: h, format: f}, nil
		case errors.Is(err, engine.ErrWrongFormat):
			p.debug("wrong format", "format", f.Name)
		default:
			p.debug("open failed", "format", f.Name, "error", err)
			p.lastErr = err
		}
	}

	return nil, nil
}
