package kdtree

import (
	"github.com/quadrant-labs/geoindex/coordtype"
	"github.com/quadrant-labs/geoindex/geolog"
	"github.com/quadrant-labs/geoindex/internal/packedbuf"
)

// KDTree is an immutable, parsed packed k-d tree. The zero value is not
// usable; obtain one from Builder.Finish or ParseKDTree.
type KDTree[T coordtype.Numeric] struct {
	buf  []byte
	meta Metadata
}

// ParseKDTree validates buf's header and length and wraps it as a
// queryable KDTree without copying. buf must not be mutated afterward: the
// returned KDTree aliases it.
func ParseKDTree[T coordtype.Numeric](buf []byte) (*KDTree[T], error) {
	meta, err := ParseMetadata(buf, coordtype.TagFor[T]())
	if err != nil {
		return nil, err
	}
	return &KDTree[T]{buf: buf, meta: meta}, nil
}

// ParseKDTreeLogged is ParseKDTree with a LogParse call on completion.
func ParseKDTreeLogged[T coordtype.Numeric](buf []byte, logger *geolog.Logger) (*KDTree[T], error) {
	t, err := ParseKDTree[T](buf)
	if logger != nil {
		numItems := uint32(0)
		if t != nil {
			numItems = t.meta.NumItems
		}
		logger.LogParse("kdtree", numItems, len(buf), err)
	}
	return t, err
}

// Buffer returns the underlying packed byte buffer. Callers must not
// mutate it.
func (t *KDTree[T]) Buffer() []byte { return t.buf }

// NumItems returns the number of points in the tree.
func (t *KDTree[T]) NumItems() uint32 { return t.meta.NumItems }

// NodeSize returns the node size the tree was built with.
func (t *KDTree[T]) NodeSize() uint16 { return t.meta.NodeSize }

func (t *KDTree[T]) pointAt(pos int) (x, y T) {
	width := t.meta.Tag.ByteWidth()
	off := t.meta.coordsOffset() + pos*2*width
	return packedbuf.GetCoord[T](t.buf, off), packedbuf.GetCoord[T](t.buf, off+width)
}

func (t *KDTree[T]) idAt(pos int) uint32 {
	return packedbuf.GetIndex(t.buf, t.meta.indicesOffset(), t.meta.IndexWidth, pos)
}

type rangeFrame struct {
	left, right, axis int
}

// Range returns the item indices of every point falling within the
// closed box [minX, maxX] x [minY, maxY]. Order is unspecified. An empty
// tree yields an empty, non-nil slice.
func (t *KDTree[T]) Range(minX, minY, maxX, maxY T) []uint32 {
	result := make([]uint32, 0, 16)
	n := int(t.meta.NumItems)
	if n == 0 {
		return result
	}
	nodeSize := int(t.meta.NodeSize)

	stack := []rangeFrame{{left: 0, right: n - 1, axis: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.right-f.left <= nodeSize {
			for i := f.left; i <= f.right; i++ {
				x, y := t.pointAt(i)
				if x >= minX && x <= maxX && y >= minY && y <= maxY {
					result = append(result, t.idAt(i))
				}
			}
			continue
		}

		m := (f.left + f.right) / 2
		x, y := t.pointAt(m)
		if x >= minX && x <= maxX && y >= minY && y <= maxY {
			result = append(result, t.idAt(m))
		}

		var lte, gte bool
		if f.axis == 0 {
			lte, gte = minX <= x, maxX >= x
		} else {
			lte, gte = minY <= y, maxY >= y
		}
		if lte {
			stack = append(stack, rangeFrame{left: f.left, right: m - 1, axis: 1 - f.axis})
		}
		if gte {
			stack = append(stack, rangeFrame{left: m + 1, right: f.right, axis: 1 - f.axis})
		}
	}
	return result
}

// Within returns the item indices of every point within radius r
// (inclusive) of (qx, qy).
func (t *KDTree[T]) Within(qx, qy, r float64) []uint32 {
	result := make([]uint32, 0, 16)
	n := int(t.meta.NumItems)
	if n == 0 {
		return result
	}
	nodeSize := int(t.meta.NodeSize)
	r2 := r * r

	stack := []rangeFrame{{left: 0, right: n - 1, axis: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.right-f.left <= nodeSize {
			for i := f.left; i <= f.right; i++ {
				x, y := t.pointAt(i)
				if sqDist(coordtype.ToFloat64(x), coordtype.ToFloat64(y), qx, qy) <= r2 {
					result = append(result, t.idAt(i))
				}
			}
			continue
		}

		m := (f.left + f.right) / 2
		xT, yT := t.pointAt(m)
		x, y := coordtype.ToFloat64(xT), coordtype.ToFloat64(yT)
		if sqDist(x, y, qx, qy) <= r2 {
			result = append(result, t.idAt(m))
		}

		var lte, gte bool
		if f.axis == 0 {
			lte, gte = qx-r <= x, qx+r >= x
		} else {
			lte, gte = qy-r <= y, qy+r >= y
		}
		if lte {
			stack = append(stack, rangeFrame{left: f.left, right: m - 1, axis: 1 - f.axis})
		}
		if gte {
			stack = append(stack, rangeFrame{left: m + 1, right: f.right, axis: 1 - f.axis})
		}
	}
	return result
}

func sqDist(ax, ay, bx, by float64) float64 {
	dx := ax - bx
	dy := ay - by
	return dx*dx + dy*dy
}
