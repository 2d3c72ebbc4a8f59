package rtree

import (
	"runtime"

	"github.com/quadrant-labs/geoindex/coordtype"
	"github.com/quadrant-labs/geoindex/geoerr"
	"github.com/quadrant-labs/geoindex/geolog"
	"github.com/quadrant-labs/geoindex/internal/packedbuf"
)

// SortMethod selects the bulk-loading strategy used by Builder.Finish.
type SortMethod int

const (
	// Hilbert orders items by Hilbert curve position of their box center.
	// This is the default and matches flatbush's own default.
	Hilbert SortMethod = iota
	// STR orders items by sort-tile-recursive partitioning, which tends
	// to produce tighter node bounding boxes for clustered data at the
	// cost of a more expensive build.
	STR
)

type options struct {
	nodeSize    uint16
	logger      *geolog.Logger
	concurrency int
	method      SortMethod
}

// Option configures a Builder. See WithNodeSize, WithLogger,
// WithConcurrency, and WithSortMethod.
type Option func(*options)

// WithNodeSize overrides the default node size (16). Valid range is
// [2, 65535].
func WithNodeSize(n uint16) Option {
	return func(o *options) { o.nodeSize = n }
}

// WithLogger attaches a structured logger. Build emits one summary record
// on Finish; queries never log.
func WithLogger(l *geolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConcurrency bounds how many goroutines the STR sort's per-slice pass
// may use. 1 (the default) disables parallelism.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithSortMethod selects Hilbert (default) or STR bulk loading.
func WithSortMethod(m SortMethod) Option {
	return func(o *options) { o.method = m }
}

// Builder accumulates items and produces an immutable packed RTree buffer.
// A Builder must be created with the exact number of items that will be
// added; Add returns geoerr.TooManyItems past that count and Finish
// returns geoerr.NotEnoughItems short of it.
type Builder[T coordtype.Numeric] struct {
	opts     options
	total    uint32
	boxes    []Box[T]
	minX     T
	minY     T
	maxX     T
	maxY     T
}

// NewBuilder creates a Builder that will hold exactly numItems boxes.
func NewBuilder[T coordtype.Numeric](numItems uint32, opts ...Option) (*Builder[T], error) {
	o := options{
		nodeSize:    DefaultNodeSize,
		concurrency: 1,
		method:      Hilbert,
	}
	for _, apply := range opts {
		apply(&o)
	}
	if o.nodeSize < 2 {
		return nil, geoerr.New(geoerr.BadNodeSize, "node_size %d must be in [2, 65535]", o.nodeSize)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	if o.concurrency > runtime.NumCPU() {
		o.concurrency = runtime.NumCPU()
	}

	return &Builder[T]{
		opts:  o,
		total: numItems,
		boxes: make([]Box[T], 0, numItems),
		minX:  coordtype.MaxValue[T](),
		minY:  coordtype.MaxValue[T](),
		maxX:  coordtype.MinValue[T](),
		maxY:  coordtype.MinValue[T](),
	}, nil
}

// Add appends one box, returning its assigned item index (0-based,
// insertion order). It is a construction-time error for minX > maxX or
// minY > maxY, and for either coordinate to be NaN (float instantiations
// only).
func (b *Builder[T]) Add(minX, minY, maxX, maxY T) (uint32, error) {
	if uint32(len(b.boxes)) >= b.total {
		return 0, geoerr.New(geoerr.TooManyItems, "builder already holds its declared item count")
	}
	if coordtype.IsNaN(minX) || coordtype.IsNaN(minY) || coordtype.IsNaN(maxX) || coordtype.IsNaN(maxY) {
		return 0, geoerr.New(geoerr.InvalidCoordinate, "coordinate is NaN")
	}
	if minX > maxX || minY > maxY {
		return 0, geoerr.New(geoerr.InvalidCoordinate, "min must not exceed max")
	}

	idx := uint32(len(b.boxes))
	b.boxes = append(b.boxes, Box[T]{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY})

	if minX < b.minX {
		b.minX = minX
	}
	if minY < b.minY {
		b.minY = minY
	}
	if maxX > b.maxX {
		b.maxX = maxX
	}
	if maxY > b.maxY {
		b.maxY = maxY
	}
	return idx, nil
}

// AddF64 is Add with float64 inputs, cast into T via the correctly-rounded
// conversion in section 6.3 of the format spec.
func (b *Builder[T]) AddF64(minX, minY, maxX, maxY float64) (uint32, error) {
	return b.Add(
		coordtype.FromFloat64[T](minX),
		coordtype.FromFloat64[T](minY),
		coordtype.FromFloat64[T](maxX),
		coordtype.FromFloat64[T](maxY),
	)
}

// AddPoint is a convenience for Add(x, y, x, y): a zero-area box.
func (b *Builder[T]) AddPoint(x, y T) (uint32, error) {
	return b.Add(x, y, x, y)
}

// AddPointF64 is AddPoint with float64 inputs, cast into T via the
// correctly-rounded conversion in section 6.3 of the format spec.
func (b *Builder[T]) AddPointF64(x, y float64) (uint32, error) {
	return b.AddPoint(coordtype.FromFloat64[T](x), coordtype.FromFloat64[T](y))
}

// AddBoxes appends a slice of already-computed boxes in one call,
// returning their assigned item indices in order. Equivalent to calling
// Add for each box; stops and returns the error from the first rejected
// box, leaving any boxes added before it in place. Grounded on
// original_source/src/builder.rs's add_interleaved, which appends a whole
// interleaved coordinate slice in one pass instead of one rectangle at a
// time.
func (b *Builder[T]) AddBoxes(boxes []Box[T]) ([]uint32, error) {
	ids := make([]uint32, len(boxes))
	for i, box := range boxes {
		idx, err := b.Add(box.MinX, box.MinY, box.MaxX, box.MaxY)
		if err != nil {
			return nil, err
		}
		ids[i] = idx
	}
	return ids, nil
}

// AddPoints is AddBoxes for zero-area point boxes, one (x, y) pair per
// entry.
func (b *Builder[T]) AddPoints(points [][2]T) ([]uint32, error) {
	ids := make([]uint32, len(points))
	for i, p := range points {
		idx, err := b.AddPoint(p[0], p[1])
		if err != nil {
			return nil, err
		}
		ids[i] = idx
	}
	return ids, nil
}

// Finish bulk-loads the accumulated boxes and returns the resulting
// read-only RTree. The Builder must not be reused afterward.
func (b *Builder[T]) Finish() (*RTree[T], error) {
	numItems := uint32(len(b.boxes))
	if numItems != b.total {
		return nil, geoerr.New(geoerr.NotEnoughItems, "declared %d items, got %d", b.total, numItems)
	}

	tag := coordtype.TagFor[T]()
	meta, err := NewMetadata(numItems, b.opts.nodeSize, tag)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, meta.NumBytes)
	packedbuf.WriteHeader(buf, magic, tag, b.opts.nodeSize, numItems)

	indices := make([]uint32, meta.NumNodes)
	for i := range indices {
		indices[i] = uint32(i)
	}

	if numItems > 1 && numItems > uint32(b.opts.nodeSize) {
		switch b.opts.method {
		case STR:
			strSort(b.boxes, indices[:numItems], int(b.opts.nodeSize), b.opts.concurrency)
		default:
			hilbertSort(b.boxes, indices[:numItems],
				coordtype.ToFloat64(b.minX), coordtype.ToFloat64(b.minY),
				coordtype.ToFloat64(b.maxX), coordtype.ToFloat64(b.maxY))
		}
	}

	coordsBase := meta.coordsOffset()
	for i, box := range b.boxes {
		writeBoxAt(buf, coordsBase, i, box)
	}
	buildParentLevels(buf, meta, b.boxes, indices)

	indicesBase := meta.indicesOffset()
	for i, v := range indices {
		packedbuf.SetIndex(buf, indicesBase, meta.IndexWidth, i, v)
	}

	if b.opts.logger != nil {
		methodName := "hilbert"
		if b.opts.method == STR {
			methodName = "str"
		}
		b.opts.logger.LogBuild("rtree", numItems, meta.NumNodes, meta.NumLevels(), methodName)
	}

	return &RTree[T]{buf: buf, meta: meta}, nil
}

func writeBoxAt[T coordtype.Numeric](buf []byte, coordsBase int, nodePos int, box Box[T]) {
	off := coordsBase + nodePos*4*int(coordtype.TagFor[T]().ByteWidth())
	width := coordtype.TagFor[T]().ByteWidth()
	packedbuf.PutCoord(buf, off+0*width, box.MinX)
	packedbuf.PutCoord(buf, off+1*width, box.MinY)
	packedbuf.PutCoord(buf, off+2*width, box.MaxX)
	packedbuf.PutCoord(buf, off+3*width, box.MaxY)
}

func readBoxAt[T coordtype.Numeric](buf []byte, coordsBase int, nodePos int) Box[T] {
	width := coordtype.TagFor[T]().ByteWidth()
	off := coordsBase + nodePos*4*width
	return Box[T]{
		MinX: packedbuf.GetCoord[T](buf, off+0*width),
		MinY: packedbuf.GetCoord[T](buf, off+1*width),
		MaxX: packedbuf.GetCoord[T](buf, off+2*width),
		MaxY: packedbuf.GetCoord[T](buf, off+3*width),
	}
}

// buildParentLevels computes each parent level's node boxes bottom-up from
// its children, writing them directly into buf. Level 0 (the leaves) was
// already written by the caller from the freshly sorted b.boxes. Each
// parent's index-array slot records the absolute node position of its
// first child, exactly as a leaf's slot records its original item id;
// query traversal (Search, Neighbors, TreeJoin) relies on this to walk
// from a parent down to its children without a separate child-pointer
// table.
func buildParentLevels[T coordtype.Numeric](buf []byte, meta Metadata, leafBoxes []Box[T], indices []uint32) {
	coordsBase := meta.coordsOffset()
	nodeSize := int(meta.NodeSize)

	for level := 1; level < meta.NumLevels(); level++ {
		childOffset := meta.LevelOffsets[level-1]
		childCount := meta.LevelSizes[level-1]
		parentOffset := meta.LevelOffsets[level]

		for childStart := 0; childStart < childCount; childStart += nodeSize {
			childEnd := childStart + nodeSize
			if childEnd > childCount {
				childEnd = childCount
			}

			var parent Box[T]
			first := true
			for c := childStart; c < childEnd; c++ {
				var childBox Box[T]
				if level == 1 {
					childBox = leafBoxes[c]
				} else {
					childBox = readBoxAt[T](buf, coordsBase, childOffset+c)
				}
				if first {
					parent = childBox
					first = false
				} else {
					parent.expand(childBox)
				}
			}

			parentPos := parentOffset + childStart/nodeSize
			writeBoxAt(buf, coordsBase, parentPos, parent)
			indices[parentPos] = uint32(childOffset + childStart)
		}
	}
}
