// Package itemtree builds the navigable directory tree of an opened archive from its flat item enumeration.
//
// Nodes live in a single arena owned by the Tree and refer to each other by index, so a directory that is first
// implied by a child's path and later declared explicitly keeps its position; only its id changes.
package itemtree

import (
	"errors"
	"fmt"
	"iter"
	"regexp"

	"github.com/nguyengg/unarc/engine"
)

const (
	// RootID is the id of the synthetic top-level node.
	RootID uint32 = 0xFFFFFFFF
	// UntrackedID is the id of a directory that was implied by a path prefix and has no archive entry of its own.
	UntrackedID uint32 = 0xFFFFFFFE

	// RootIndex is the arena position of the root node.
	RootIndex = 0

	// MaxItems is the exclusive upper bound on the number of items an archive may declare.
	MaxItems = 1 << 31

	// ContentName is the name given to a file entry whose path has no segment.
	ContentName = "[Content]"
)

var (
	// ErrNotDirectory is returned when a directory-only operation is called on a file.
	ErrNotDirectory = errors.New("node is not a directory")
	// ErrNotFound is returned when a child or path does not exist.
	ErrNotFound = errors.New("node not found")
	// ErrUntracked is returned when requesting archive metadata of a node that has no archive entry.
	ErrUntracked = errors.New("node is not tracked by an archive item")
	// ErrTooManyItems is returned when an archive declares MaxItems items or more.
	ErrTooManyItems = errors.New("item count out of range")
	// ErrConflict is returned when a path is declared both as a file and as a directory.
	ErrConflict = errors.New("path is both a file and a directory")
)

// Type is the type of a Node.
type Type int

const (
	TypeRoot Type = iota
	TypeDirectory
	TypeFile
)

func (t Type) String() string {
	switch t {
	case TypeRoot:
		return "root"
	case TypeDirectory:
		return "directory"
	case TypeFile:
		return "file"
	default:
		return "unknown"
	}
}

// Source is the subset of an opened archive that Build reads.
//
// engine.Handler satisfies Source.
type Source interface {
	ItemCount() uint32
	Property(index uint32, id engine.PropID) (any, error)
}

type node struct {
	id       uint32
	name     string
	typ      Type
	parent   int
	children map[string]int
	order    []int
	files    int
	dirs     int
}

func (n *node) isDir() bool {
	return n.typ != TypeFile
}

// Tree is an immutable directory tree built from a Source.
//
// Tree borrows from its Source: Node.Detail must not be called after the Source is closed.
type Tree struct {
	src   Source
	nodes []node
}

// sep accepts both separators since archives created on Windows may use either.
var sep = regexp.MustCompile(`[\\/]+`)

// Split splits an archive path into its non-empty segments, dropping "." segments.
func Split(path string) []string {
	parts := sep.Split(path, -1)
	segments := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			segments = append(segments, p)
		}
	}
	return segments
}

// Build enumerates every item of src and returns the resulting Tree.
//
// Deleted items are skipped. Intermediate directories without their own entry receive UntrackedID until their entry
// is seen. Two file entries with the same path resolve to the later one. A path that is both a file and a directory
// fails with ErrConflict. A file entry with an empty path is placed under the root as ContentName, while a directory
// entry with an empty path is the root itself.
func Build(src Source) (*Tree, error) {
	count := src.ItemCount()
	if uint64(count) >= MaxItems {
		return nil, fmt.Errorf("build tree of %d items error: %w", count, ErrTooManyItems)
	}

	t := &Tree{
		src:   src,
		nodes: []node{{id: RootID, typ: TypeRoot, parent: RootIndex, children: make(map[string]int)}},
	}

	for id := range count {
		deleted, err := engine.ReadOptionalBool(src, id, engine.PropIsDeleted, false)
		if err != nil {
			return nil, err
		}
		if deleted {
			continue
		}

		path, err := engine.ReadOptionalString(src, id, engine.PropPath, "")
		if err != nil {
			return nil, err
		}
		isDir, err := engine.ReadBool(src, id, engine.PropIsDir)
		if err != nil {
			return nil, err
		}

		if err = t.insert(id, path, isDir); err != nil {
			return nil, err
		}
	}

	// children are always appended after their parent so a reverse sweep visits them in post-order.
	for i := len(t.nodes) - 1; i > RootIndex; i-- {
		n, p := &t.nodes[i], &t.nodes[t.nodes[i].parent]
		if n.typ == TypeFile {
			p.files++
		} else {
			p.files += n.files
			p.dirs += n.dirs + 1
		}
	}

	return t, nil
}

func (t *Tree) insert(id uint32, path string, isDir bool) error {
	segments := Split(path)
	if len(segments) == 0 {
		if isDir {
			// an explicit entry for the root itself.
			return nil
		}
		segments = []string{ContentName}
	}

	parent := RootIndex
	for _, name := range segments[:len(segments)-1] {
		i, err := t.getOrCreateDir(parent, name, UntrackedID)
		if err != nil {
			return fmt.Errorf("insert item %d (%q) error: %w", id, path, err)
		}
		parent = i
	}

	name := segments[len(segments)-1]
	if isDir {
		if _, err := t.getOrCreateDir(parent, name, id); err != nil {
			return fmt.Errorf("insert item %d (%q) error: %w", id, path, err)
		}
		return nil
	}

	if i, ok := t.nodes[parent].children[name]; ok {
		if t.nodes[i].typ != TypeFile {
			return fmt.Errorf("insert item %d (%q) error: %w", id, path, ErrConflict)
		}
		t.nodes[i].id = id
		return nil
	}

	t.add(parent, node{id: id, name: name, typ: TypeFile, parent: parent})
	return nil
}

func (t *Tree) getOrCreateDir(parent int, name string, id uint32) (int, error) {
	if i, ok := t.nodes[parent].children[name]; ok {
		n := &t.nodes[i]
		if n.typ == TypeFile {
			return 0, ErrConflict
		}
		if n.id == UntrackedID && id != UntrackedID {
			n.id = id
		}
		return i, nil
	}

	return t.add(parent, node{id: id, name: name, typ: TypeDirectory, parent: parent, children: make(map[string]int)}), nil
}

func (t *Tree) add(parent int, n node) int {
	i := len(t.nodes)
	t.nodes = append(t.nodes, n)
	p := &t.nodes[parent]
	p.children[n.name] = i
	p.order = append(p.order, i)
	return i
}

// Root returns the root node.
func (t *Tree) Root() Node {
	return Node{t, RootIndex}
}

// Len returns the number of nodes in the tree including the root.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Find returns the node at the given path relative to the root.
//
// Empty path returns the root.
func (t *Tree) Find(path string) (Node, error) {
	n := t.Root()
	for _, name := range Split(path) {
		c, err := n.Child(name)
		if err != nil {
			return Node{}, fmt.Errorf("find %q error: %w", path, err)
		}
		n = c
	}

	return n, nil
}

// All returns every node of the tree in pre-order.
func (t *Tree) All() iter.Seq[Node] {
	return t.Root().Traverse()
}
