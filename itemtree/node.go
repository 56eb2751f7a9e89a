package itemtree

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Node is a lightweight handle to a node in a Tree.
//
// The zero value is not valid. Nodes compare equal if they refer to the same position in the same Tree.
type Node struct {
	t *Tree
	i int
}

func (n Node) node() *node {
	return &n.t.nodes[n.i]
}

// Name returns the leaf name of the node, which is empty for the root.
func (n Node) Name() string {
	return n.node().name
}

// ID returns the archive item id of the node, or one of RootID and UntrackedID.
func (n Node) ID() uint32 {
	return n.node().id
}

// Type returns the type of the node.
func (n Node) Type() Type {
	return n.node().typ
}

// IsDir returns true for directories and the root.
func (n Node) IsDir() bool {
	return n.node().isDir()
}

// IsRoot returns true for the root node.
func (n Node) IsRoot() bool {
	return n.i == RootIndex
}

// IsTracked returns true if the node's id refers to an archive item.
func (n Node) IsTracked() bool {
	id := n.node().id
	return id != RootID && id != UntrackedID
}

// Parent returns the parent of the node. The root is its own parent.
func (n Node) Parent() Node {
	return Node{n.t, n.node().parent}
}

// FileCount returns the number of files strictly below this node.
func (n Node) FileCount() int {
	return n.node().files
}

// DirCount returns the number of directories strictly below this node, explicit or implied.
func (n Node) DirCount() int {
	return n.node().dirs
}

// Children returns the direct children of a directory in insertion order.
func (n Node) Children() ([]Node, error) {
	nd := n.node()
	if !nd.isDir() {
		return nil, fmt.Errorf("children of %q error: %w", n.Path(), ErrNotDirectory)
	}

	children := make([]Node, len(nd.order))
	for j, i := range nd.order {
		children[j] = Node{n.t, i}
	}
	return children, nil
}

// Child returns the direct child with the given name.
func (n Node) Child(name string) (Node, error) {
	nd := n.node()
	if !nd.isDir() {
		return Node{}, fmt.Errorf("child %q of %q error: %w", name, n.Path(), ErrNotDirectory)
	}

	i, ok := nd.children[name]
	if !ok {
		return Node{}, fmt.Errorf("child %q of %q error: %w", name, n.Path(), ErrNotFound)
	}

	return Node{n.t, i}, nil
}

// Path returns the slash-separated path of the node relative to the root.
func (n Node) Path() string {
	var names []string
	for c := n; !c.IsRoot(); c = c.Parent() {
		names = append(names, c.Name())
	}
	slices.Reverse(names)
	return strings.Join(names, "/")
}

// Detail reads the full archive metadata of the node.
//
// Returns ErrUntracked for the root and for implied directories.
func (n Node) Detail() (Item, error) {
	if !n.IsTracked() {
		return Item{}, fmt.Errorf("detail of %q error: %w", n.Path(), ErrUntracked)
	}

	return ReadItem(n.t.src, n.ID())
}

// Traverse returns the node and all of its descendants in pre-order.
//
// The sequence is computed afresh on every iteration.
func (n Node) Traverse() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		stack := []int{n.i}
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(Node{n.t, i}) {
				return
			}

			order := n.t.nodes[i].order
			for j := len(order) - 1; j >= 0; j-- {
				stack = append(stack, order[j])
			}
		}
	}
}

func (n Node) String() string {
	if n.t == nil {
		return "<nil>"
	}
	if n.IsRoot() {
		return "/"
	}
	return n.Path()
}
