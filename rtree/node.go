package rtree

import "github.com/quadrant-labs/geoindex/coordtype"

// Node is a handle onto a single node (leaf or internal) of a parsed
// RTree, for manual traversal. Search, Neighbors, and TreeJoin are all
// built on Node internally; it is also exported for callers that want a
// custom descent. Grounded on original_source/src/rtree/traversal.rs's
// Node<N, T>.
type Node[T coordtype.Numeric] struct {
	tree *RTree[T]
	pos  int
}

// Root returns a handle onto the whole tree's root node. Calling Root on
// an empty tree (NumNodes() == 0) is a programming error; callers should
// check NumItems() first.
func (t *RTree[T]) Root() Node[T] {
	return Node[T]{tree: t, pos: t.meta.NumNodes - 1}
}

// Box returns the node's bounding box.
func (n Node[T]) Box() Box[T] { return n.tree.boxAt(n.pos) }

func (n Node[T]) MinX() T { return n.Box().MinX }
func (n Node[T]) MinY() T { return n.Box().MinY }
func (n Node[T]) MaxX() T { return n.Box().MaxX }
func (n Node[T]) MaxY() T { return n.Box().MaxY }

// IsLeaf reports whether this node is a leaf, i.e. its Index is an
// original insertion index rather than a child-start position.
func (n Node[T]) IsLeaf() bool { return n.pos < int(n.tree.meta.NumItems) }

// IsParent is the negation of IsLeaf.
func (n Node[T]) IsParent() bool { return !n.IsLeaf() }

// Intersects reports whether n's box overlaps or touches o's box.
func (n Node[T]) Intersects(o Node[T]) bool { return n.Box().intersects(o.Box()) }

func (n Node[T]) level() int { return n.tree.meta.levelOf(n.pos) }

// Index returns the node's index-array slot: the original insertion
// index for a leaf, or the absolute node position of the first child for
// an internal node (Children reads it that way).
func (n Node[T]) Index() uint32 { return n.tree.indexAt(n.pos) }

// Children returns the child nodes of this node. Must only be called
// when IsParent() is true.
func (n Node[T]) Children() []Node[T] {
	childLevel := n.level() - 1
	start := int(n.Index())
	end := start + int(n.tree.meta.NodeSize)
	if levelEnd := n.tree.levelEnd(childLevel); end > levelEnd {
		end = levelEnd
	}
	children := make([]Node[T], 0, end-start)
	for p := start; p < end; p++ {
		children = append(children, Node[T]{tree: n.tree, pos: p})
	}
	return children
}
