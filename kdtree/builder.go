package kdtree

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/quadrant-labs/geoindex/coordtype"
	"github.com/quadrant-labs/geoindex/geoerr"
	"github.com/quadrant-labs/geoindex/geolog"
	"github.com/quadrant-labs/geoindex/internal/packedbuf"
)

type options struct {
	nodeSize    uint16
	logger      *geolog.Logger
	concurrency int
}

// Option configures a Builder. See WithNodeSize, WithLogger, and
// WithConcurrency.
type Option func(*options)

// WithNodeSize overrides the default node size (64). Valid range is
// [2, 65535].
func WithNodeSize(n uint16) Option {
	return func(o *options) { o.nodeSize = n }
}

// WithLogger attaches a structured logger. Build emits one summary record
// on Finish; queries never log.
func WithLogger(l *geolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConcurrency allows the builder to fork the first median split's two
// halves across goroutines. 1 (the default) disables parallelism.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// Builder accumulates points and produces an immutable packed KDTree
// buffer. A Builder must be created with the exact number of points that
// will be added; Add returns geoerr.TooManyItems past that count and
// Finish returns geoerr.NotEnoughItems short of it.
type Builder[T coordtype.Numeric] struct {
	opts   options
	total  uint32
	points []point[T]
}

// NewBuilder creates a Builder that will hold exactly numItems points.
func NewBuilder[T coordtype.Numeric](numItems uint32, opts ...Option) (*Builder[T], error) {
	o := options{
		nodeSize:    DefaultNodeSize,
		concurrency: 1,
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
		opts:   o,
		total:  numItems,
		points: make([]point[T], 0, numItems),
	}, nil
}

// Add appends one point, returning its assigned item index (0-based,
// insertion order). NaN coordinates are a construction-time error.
func (b *Builder[T]) Add(x, y T) (uint32, error) {
	if uint32(len(b.points)) >= b.total {
		return 0, geoerr.New(geoerr.TooManyItems, "builder already holds its declared item count")
	}
	if coordtype.IsNaN(x) || coordtype.IsNaN(y) {
		return 0, geoerr.New(geoerr.InvalidCoordinate, "coordinate is NaN")
	}
	idx := uint32(len(b.points))
	b.points = append(b.points, point[T]{x: x, y: y})
	return idx, nil
}

// AddF64 is Add with float64 inputs, cast into T via the correctly-rounded
// conversion in section 6.3 of the format spec.
func (b *Builder[T]) AddF64(x, y float64) (uint32, error) {
	return b.Add(coordtype.FromFloat64[T](x), coordtype.FromFloat64[T](y))
}

// AddPointF64 is an alias for AddF64, matching the rtree builder's
// AddPointF64 naming for the point case.
func (b *Builder[T]) AddPointF64(x, y float64) (uint32, error) {
	return b.AddF64(x, y)
}

// AddPoints appends a slice of already-computed points in one call,
// returning their assigned item indices in order. Equivalent to calling
// Add for each point; stops and returns the error from the first
// rejected point. Grounded on original_source/src/builder.rs's
// add_interleaved.
func (b *Builder[T]) AddPoints(points [][2]T) ([]uint32, error) {
	ids := make([]uint32, len(points))
	for i, p := range points {
		idx, err := b.Add(p[0], p[1])
		if err != nil {
			return nil, err
		}
		ids[i] = idx
	}
	return ids, nil
}

// Finish kd-sorts the accumulated points and returns the resulting
// read-only KDTree. The Builder must not be reused afterward.
func (b *Builder[T]) Finish() (*KDTree[T], error) {
	numItems := uint32(len(b.points))
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

	ids := make([]uint32, numItems)
	for i := range ids {
		ids[i] = uint32(i)
	}

	if numItems > 0 {
		b.sort(ids)
	}

	coordsBase := meta.coordsOffset()
	width := tag.ByteWidth()
	for i, p := range b.points {
		off := coordsBase + i*2*width
		packedbuf.PutCoord(buf, off, p.x)
		packedbuf.PutCoord(buf, off+width, p.y)
	}

	indicesBase := meta.indicesOffset()
	for i, v := range ids {
		packedbuf.SetIndex(buf, indicesBase, meta.IndexWidth, i, v)
	}

	if b.opts.logger != nil {
		b.opts.logger.LogBuild("kdtree", numItems, int(numItems), 1, "median-split")
	}

	return &KDTree[T]{buf: buf, meta: meta}, nil
}

// sort runs the recursive median-split, optionally forking the first split
// point's two halves across goroutines when the builder was configured
// with WithConcurrency > 1.
func (b *Builder[T]) sort(ids []uint32) {
	n := len(b.points)
	nodeSize := int(b.opts.nodeSize)
	if n-1 <= nodeSize || b.opts.concurrency <= 1 {
		kdSort(b.points, ids, nodeSize, 0, n-1, 0)
		return
	}

	left, right := 0, n-1
	m := (left + right) / 2
	floydRivestSelect(b.points, ids, m, left, right, 0)

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		kdSort(b.points, ids, nodeSize, left, m-1, 1)
		return nil
	})
	g.Go(func() error {
		kdSort(b.points, ids, nodeSize, m+1, right, 1)
		return nil
	})
	_ = g.Wait()
}
