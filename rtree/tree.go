package rtree

import (
	"github.com/quadrant-labs/geoindex/coordtype"
	"github.com/quadrant-labs/geoindex/geoerr"
	"github.com/quadrant-labs/geoindex/geolog"
	"github.com/quadrant-labs/geoindex/internal/packedbuf"
)

// RTree is an immutable, parsed packed R-tree. The zero value is not
// usable; obtain one from Builder.Finish or ParseRTree.
type RTree[T coordtype.Numeric] struct {
	buf  []byte
	meta Metadata
}

// ParseRTree validates buf's header and length and wraps it as a
// queryable RTree without copying. buf must not be mutated afterward: the
// returned RTree aliases it.
func ParseRTree[T coordtype.Numeric](buf []byte) (*RTree[T], error) {
	meta, err := ParseMetadata(buf, coordtype.TagFor[T]())
	if err != nil {
		return nil, err
	}
	return &RTree[T]{buf: buf, meta: meta}, nil
}

// ParseRTreeLogged is ParseRTree with a LogParse call on completion.
func ParseRTreeLogged[T coordtype.Numeric](buf []byte, logger *geolog.Logger) (*RTree[T], error) {
	t, err := ParseRTree[T](buf)
	if logger != nil {
		numItems := uint32(0)
		if t != nil {
			numItems = t.meta.NumItems
		}
		logger.LogParse("rtree", numItems, len(buf), err)
	}
	return t, err
}

// Buffer returns the underlying packed byte buffer. Callers must not
// mutate it.
func (t *RTree[T]) Buffer() []byte { return t.buf }

// NumItems returns the number of leaf items in the tree.
func (t *RTree[T]) NumItems() uint32 { return t.meta.NumItems }

// NumNodes returns the total node count across all levels.
func (t *RTree[T]) NumNodes() int { return t.meta.NumNodes }

// NumLevels returns the tree height, L.
func (t *RTree[T]) NumLevels() int { return t.meta.NumLevels() }

// NodeSize returns the node size the tree was built with.
func (t *RTree[T]) NodeSize() uint16 { return t.meta.NodeSize }

func (t *RTree[T]) levelEnd(level int) int {
	off, size, _ := t.meta.LevelBounds(level)
	return off + size
}

func (t *RTree[T]) boxAt(pos int) Box[T] {
	return readBoxAt[T](t.buf, t.meta.coordsOffset(), pos)
}

func (t *RTree[T]) indexAt(pos int) uint32 {
	return packedbuf.GetIndex(t.buf, t.meta.indicesOffset(), t.meta.IndexWidth, pos)
}

// RootBox returns the bounding box of the whole tree. The zero Box is
// returned for an empty tree.
func (t *RTree[T]) RootBox() Box[T] {
	if t.meta.NumNodes == 0 {
		return Box[T]{}
	}
	return t.boxAt(t.meta.NumNodes - 1)
}

// Search returns the item indices of every leaf box that intersects the
// query box (touching counts as intersecting). Order is unspecified. An
// empty tree yields an empty, non-nil slice.
//
// Traverses via Node/Children rather than the raw buffer, descending into
// a node's children only once that node's own box has been confirmed to
// intersect the query.
func (t *RTree[T]) Search(minX, minY, maxX, maxY T) []uint32 {
	results := make([]uint32, 0, 16)
	if t.meta.NumNodes == 0 {
		return results
	}
	query := Box[T]{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}

	stack := []Node[T]{t.Root()}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !query.intersects(n.Box()) {
			continue
		}
		if n.IsLeaf() {
			results = append(results, n.Index())
			continue
		}
		stack = append(stack, n.Children()...)
	}
	return results
}

// BoxesAtLevel returns a copy of every node box at the given level, 0
// being the leaves and NumLevels()-1 the root.
func (t *RTree[T]) BoxesAtLevel(level int) ([]Box[T], error) {
	off, size, ok := t.meta.LevelBounds(level)
	if !ok {
		return nil, geoerr.New(geoerr.LevelOutOfRange, "level %d out of range [0, %d)", level, t.meta.NumLevels())
	}
	boxes := make([]Box[T], size)
	for i := 0; i < size; i++ {
		boxes[i] = t.boxAt(off + i)
	}
	return boxes, nil
}

// IndicesAtLevel returns a copy of the raw index-array slots for the given
// level: original item ids for level 0, absolute child-start positions for
// every other level.
func (t *RTree[T]) IndicesAtLevel(level int) ([]uint32, error) {
	off, size, ok := t.meta.LevelBounds(level)
	if !ok {
		return nil, geoerr.New(geoerr.LevelOutOfRange, "level %d out of range [0, %d)", level, t.meta.NumLevels())
	}
	idx := make([]uint32, size)
	for i := 0; i < size; i++ {
		idx[i] = t.indexAt(off + i)
	}
	return idx, nil
}
