// Package sink provides extract.Sink implementations that write extracted items to the local filesystem, to S3, or
// nowhere at all.
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/nguyengg/unarc/engine"
	"github.com/nguyengg/unarc/extract"
	"github.com/nguyengg/unarc/internal"
	"github.com/nguyengg/unarc/itemtree"
)

// ErrUnsafePath is returned for items whose path would escape the output directory.
var ErrUnsafePath = errors.New("item path escapes the output directory")

// ErrUnknownItem is returned when the engine asks for an item the sink was not given.
var ErrUnknownItem = errors.New("unknown item")

// DirOptions customises NewDir.
type DirOptions struct {
	// NoUnwrapRoot turns off root unwrapping.
	//
	// By default, if every item is under one common top-level directory ("root" directory), the items are extracted
	// directly into the output directory without recreating the root. For example, given these items:
	//
	//	test/a.txt
	//	test/path/b.txt
	//
	// Extracting to "my-dir" produces "my-dir/a.txt" and "my-dir/path/b.txt". With NoUnwrapRoot, it produces
	// "my-dir/test/a.txt" and "my-dir/test/path/b.txt" instead.
	NoUnwrapRoot bool

	// NoOverwrite will skip files that already exist in the output directory.
	//
	// By default, existing files are overwritten.
	NoOverwrite bool

	// NoModTime disables restoring the modification time of extracted files.
	NoModTime bool

	// Logger receives a debug record for every file written or skipped. Nil disables logging.
	Logger *log.Logger
}

// Failure is an item whose operation result was not engine.ResultOK.
type Failure struct {
	ID     uint32
	Path   string
	Result engine.OperationResult
}

// Dir writes extracted items under a local directory.
//
// Directory items become directories, file items become files with permissions from itemtree.Item.Mode. A file whose
// result is not engine.ResultOK is removed and recorded in Failures. Dir is not safe for concurrent use, which the
// extraction protocol never requires.
type Dir struct {
	extract.NoopSink

	dir   string
	items map[uint32]itemtree.Item
	root  internal.RootDir
	opts  DirOptions

	cur *dirItem

	// Files is the number of files written.
	Files int
	// Dirs is the number of directories created.
	Dirs int
	// Skipped is the number of existing files left untouched because of DirOptions.NoOverwrite.
	Skipped int
	// Failures are the items that did not extract successfully.
	Failures []Failure
}

type dirItem struct {
	item itemtree.Item
	path string
	file *os.File
}

var _ extract.Sink = &Dir{}

// NewDir returns a Dir extracting into dir.
//
// items must contain the metadata of every item that will be extracted, usually collected with unarc.Archive.Items
// before the extraction starts. The items also determine the root directory to unwrap. dir is created if it does not
// exist yet.
func NewDir(dir string, items []itemtree.Item, optFns ...func(*DirOptions)) *Dir {
	d := &Dir{
		dir:   dir,
		items: make(map[uint32]itemtree.Item, len(items)),
	}
	for _, fn := range optFns {
		fn(&d.opts)
	}

	for _, item := range items {
		d.items[item.ID] = item
	}

	if !d.opts.NoUnwrapRoot {
		d.root = internal.FindRootDir(items)
	}

	return d
}

// Root returns the root directory being unwrapped, empty if there is none.
func (d *Dir) Root() string {
	return string(d.root)
}

// Path returns the local path of the archive path.
func (d *Dir) Path(path string) (string, error) {
	if slices.Contains(itemtree.Split(path), "..") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, path)
	}

	return d.root.Join(d.dir, path), nil
}

func (d *Dir) PrepareOperation(engine.AskMode) error {
	d.cur = nil
	return nil
}

func (d *Dir) GetOutput(id uint32, mode engine.AskMode) (io.Writer, error) {
	item, ok := d.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownItem, id)
	}

	path, err := d.Path(item.Path)
	if err != nil {
		return nil, err
	}

	d.cur = &dirItem{item: item, path: path}

	if mode != engine.AskExtract {
		return nil, nil
	}

	if item.IsDir {
		if err = os.MkdirAll(path, item.Mode().Perm()|0700); err != nil {
			return nil, fmt.Errorf("create directory (path=%s) error: %w", path, err)
		}

		d.Dirs++
		return nil, nil
	}

	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create parent directories to file (path=%s) error: %w", path, err)
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if d.opts.NoOverwrite {
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	perm := item.Mode().Perm() | 0200
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		if d.opts.NoOverwrite && errors.Is(err, os.ErrExist) {
			d.debug("skipped existing file", "path", path)
			d.Skipped++
			d.cur = nil
			return nil, nil
		}

		return nil, fmt.Errorf("create file (path=%s) error: %w", path, err)
	}

	d.cur.file = f
	return f, nil
}

func (d *Dir) SetOperationResult(result engine.OperationResult) error {
	cur := d.cur
	d.cur = nil
	if cur == nil || cur.item.IsDir {
		return nil
	}

	if result != engine.ResultOK {
		d.Failures = append(d.Failures, Failure{ID: cur.item.ID, Path: cur.item.Path, Result: result})
		if cur.file != nil {
			if err := os.Remove(cur.path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove partial file (path=%s) error: %w", cur.path, err)
			}
		}
		return nil
	}

	if cur.file == nil {
		return nil
	}

	if err := os.Chmod(cur.path, cur.item.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod file (path=%s) error: %w", cur.path, err)
	}

	if mtime := cur.item.ModTime; !d.opts.NoModTime && !mtime.IsZero() {
		atime := cur.item.AccessTime
		if atime.IsZero() {
			atime = mtime
		}

		if err := os.Chtimes(cur.path, atime, mtime); err != nil {
			return fmt.Errorf("restore modification time (path=%s) error: %w", cur.path, err)
		}
	}

	d.debug("extracted file", "path", cur.path, "size", cur.item.Size)
	d.Files++
	return nil
}

func (d *Dir) debug(msg string, keyvals ...any) {
	if d.opts.Logger != nil {
		d.opts.Logger.Debug(msg, keyvals...)
	}
}
