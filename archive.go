package unarc

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/nguyengg/unarc/bridge"
	"github.com/nguyengg/unarc/engine"
	"github.com/nguyengg/unarc/extract"
	"github.com/nguyengg/unarc/itemtree"
)

// Archive is an opened archive.
//
// Archive serialises every call to its engine handler, so it is safe for concurrent use; calls simply wait for each
// other. The Tree and its nodes borrow from the Archive and must not be used after Close.
type Archive struct {
	mu         sync.Mutex
	h          engine.Handler
	format     engine.FormatInfo
	closeInput func() error
	closed     bool

	treeMu  sync.Mutex
	tree    *itemtree.Tree
	treeErr error
}

// Format returns the format the archive was opened as.
func (a *Archive) Format() engine.FormatInfo {
	return a.format
}

// Count returns the number of items in the archive, including deleted ones.
func (a *Archive) Count() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, ErrClosed
	}
	return a.h.ItemCount(), nil
}

// PhysicalSize returns the size of the archive as reported by the engine. The second return value is false if the
// engine does not report it.
func (a *Archive) PhysicalSize() (uint64, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, false, ErrClosed
	}

	v, err := a.h.ArchiveProperty(engine.PropPhySize)
	switch size := v.(type) {
	case uint64:
		return size, true, err
	case uint32:
		return uint64(size), true, err
	default:
		return 0, false, err
	}
}

// Tree returns the directory tree of the archive, building it on first call.
//
// Tree returns ErrClosed once the Archive is closed, even if the tree was built before.
func (a *Archive) Tree() (*itemtree.Tree, error) {
	a.treeMu.Lock()
	defer a.treeMu.Unlock()

	if a.isClosed() {
		return nil, ErrClosed
	}
	if a.tree != nil || a.treeErr != nil {
		return a.tree, a.treeErr
	}

	tree, err := itemtree.Build(lockedSource{a})

	// an ItemCount after Close reads as zero.
	if a.isClosed() {
		return nil, ErrClosed
	}
	a.tree, a.treeErr = tree, err
	return tree, err
}

func (a *Archive) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.closed
}

// Item returns the metadata of the item with the given id.
func (a *Archive) Item(id uint32) (Item, error) {
	return itemtree.ReadItem(lockedSource{a}, id)
}

// Items returns the metadata of every item that is not deleted, in archive order.
func (a *Archive) Items() iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		n, err := a.Count()
		if err != nil {
			yield(Item{}, err)
			return
		}

		src := lockedSource{a}
		for id := range n {
			deleted, err := engine.ReadOptionalBool(src, id, engine.PropIsDeleted, false)
			if err == nil && deleted {
				continue
			}

			var item Item
			if err == nil {
				item, err = itemtree.ReadItem(src, id)
			}
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// Extract extracts the items with the given ids into sink.
//
// The ids are sorted and deduplicated before reaching the engine. An empty ids extracts nothing; use ExtractAll to
// extract everything. See extract.Run for how sink errors are surfaced.
func (a *Archive) Extract(ctx context.Context, ids []uint32, mode engine.AskMode, sink extract.Sink) error {
	return a.run(ctx, engine.Request{Indices: extract.Sorted(ids), Mode: mode}, sink)
}

// ExtractAll extracts every item into sink.
func (a *Archive) ExtractAll(ctx context.Context, mode engine.AskMode, sink extract.Sink) error {
	return a.run(ctx, engine.Request{All: true, Mode: mode}, sink)
}

// ExtractNodes extracts the given nodes and all of their descendants into sink.
//
// Nodes without an archive entry of their own, such as the root and implied directories, contribute only their
// descendants.
func (a *Archive) ExtractNodes(ctx context.Context, nodes []Node, mode engine.AskMode, sink extract.Sink) error {
	var ids []uint32
	for _, node := range nodes {
		for n := range node.Traverse() {
			if n.IsTracked() {
				ids = append(ids, n.ID())
			}
		}
	}

	return a.Extract(ctx, ids, mode, sink)
}

func (a *Archive) run(ctx context.Context, req engine.Request, sink extract.Sink) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	return extract.Run(ctx, a.h, req, sink)
}

// OpenStream returns a Stream over the content of the given file node.
//
// The item is extracted in the background into a buffer of the item's size, and reads block until the requested
// bytes have been produced. The Archive is busy until the extraction finishes.
func (a *Archive) OpenStream(ctx context.Context, node Node) (*Stream, error) {
	if node.IsDir() || !node.IsTracked() {
		return nil, fmt.Errorf("open stream of %q error: %w", node.Path(), ErrNotFile)
	}

	id := node.ID()
	item, err := a.Item(id)
	if err != nil {
		return nil, err
	}

	w, r, err := bridge.New(int64(item.Size))
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, ErrClosed
	}

	s := &Stream{Reader: r, Item: item, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		defer a.mu.Unlock()

		sink := &streamSink{id: id, w: w}
		if s.err = extract.Run(ctx, a.h, engine.Request{Indices: []uint32{id}, Mode: engine.AskExtract}, sink); s.err == nil {
			s.err = sink.outcome
		}
		if s.err != nil {
			_ = w.CloseWithError(s.err)
		} else {
			_ = w.Close()
		}
	}()

	return s, nil
}

// Close closes the engine handler, and the underlying file if opened with OpenFile. Close is idempotent.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	err := a.h.Close()
	if a.closeInput != nil {
		if err2 := a.closeInput(); err == nil {
			err = err2
		}
	}
	return err
}

// lockedSource serialises tree and item reads with the rest of the Archive.
type lockedSource struct {
	a *Archive
}

func (s lockedSource) ItemCount() uint32 {
	n, _ := s.a.Count()
	return n
}

func (s lockedSource) Property(index uint32, id engine.PropID) (any, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()

	if s.a.closed {
		return nil, ErrClosed
	}
	return s.a.h.Property(index, id)
}
