package rtree

import "github.com/quadrant-labs/geoindex/coordtype"

// Box is an axis-aligned bounding box over coordinate type T, using the
// same [MinX, MinY, MaxX, MaxY] field order as the packed buffer's
// per-node coordinate quadruple.
type Box[T coordtype.Numeric] struct {
	MinX, MinY, MaxX, MaxY T
}

// intersects reports whether two boxes overlap or touch.
func (b Box[T]) intersects(o Box[T]) bool {
	return o.MinX <= b.MaxX && o.MinY <= b.MaxY && o.MaxX >= b.MinX && o.MaxY >= b.MinY
}

// expand grows b in place to also cover o.
func (b *Box[T]) expand(o Box[T]) {
	if o.MinX < b.MinX {
		b.MinX = o.MinX
	}
	if o.MinY < b.MinY {
		b.MinY = o.MinY
	}
	if o.MaxX > b.MaxX {
		b.MaxX = o.MaxX
	}
	if o.MaxY > b.MaxY {
		b.MaxY = o.MaxY
	}
}

// axisDistance2 returns the squared distance from point (x, y) to the
// nearest point of b, 0 when the point is inside b. Used by Neighbors to
// key the best-first search heap.
func axisDistance2[T coordtype.Numeric](b Box[T], x, y float64) float64 {
	dx := axisGap(coordtype.ToFloat64(b.MinX), coordtype.ToFloat64(b.MaxX), x)
	dy := axisGap(coordtype.ToFloat64(b.MinY), coordtype.ToFloat64(b.MaxY), y)
	return dx*dx + dy*dy
}

func axisGap(lo, hi, v float64) float64 {
	if v < lo {
		return lo - v
	}
	if v > hi {
		return v - hi
	}
	return 0
}
