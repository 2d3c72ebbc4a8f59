package kdtree

import (
	"math"

	"github.com/quadrant-labs/geoindex/coordtype"
)

// point is one (x, y) pair together with its current position's original
// insertion-order id, kept in a parallel slice so the two can be permuted
// together during sorting.
type point[T coordtype.Numeric] struct {
	x, y T
}

// kdSort recursively partitions points[left..right] (inclusive) around
// their median on the alternating axis, matching kdbush's own sort: once a
// slice is small enough to fit one leaf node (right-left <= nodeSize) it is
// left unsorted internally, since Range/Within fall back to a linear scan
// within a node-sized run anyway.
func kdSort[T coordtype.Numeric](points []point[T], ids []uint32, nodeSize, left, right, axis int) {
	if right-left <= nodeSize {
		return
	}
	m := (left + right) / 2
	floydRivestSelect(points, ids, m, left, right, axis)
	kdSort(points, ids, nodeSize, left, m-1, 1-axis)
	kdSort(points, ids, nodeSize, m+1, right, 1-axis)
}

func axisValue[T coordtype.Numeric](p point[T], axis int) float64 {
	if axis == 0 {
		return coordtype.ToFloat64(p.x)
	}
	return coordtype.ToFloat64(p.y)
}

func swapPoint[T coordtype.Numeric](points []point[T], ids []uint32, i, j int) {
	points[i], points[j] = points[j], points[i]
	ids[i], ids[j] = ids[j], ids[i]
}

// floydRivestSelect rearranges points[left..right] and the parallel ids so
// that the item landing at index k is the one that would be there in fully
// sorted order (by the given axis), with every smaller element to its left
// and every larger element to its right. Ported from the recursive
// sampling selection algorithm in kdbush's own Rust builder.
func floydRivestSelect[T coordtype.Numeric](points []point[T], ids []uint32, k, left, right, axis int) {
	for right > left {
		if right-left > 600 {
			n := float64(right - left + 1)
			m := float64(k - left + 1)
			z := math.Log(n)
			s := 0.5 * math.Exp(2*z/3)
			sd := 0.5 * math.Sqrt(z*s*(n-s)/n)
			if m-n/2 < 0 {
				sd = -sd
			}
			newLeft := left
			if v := int(math.Floor(float64(k) - m*s/n + sd)); v > newLeft {
				newLeft = v
			}
			newRight := right
			if v := int(math.Floor(float64(k) + (n-m)*s/n + sd)); v < newRight {
				newRight = v
			}
			floydRivestSelect(points, ids, k, newLeft, newRight, axis)
		}

		t := axisValue(points[k], axis)
		i, j := left, right

		swapPoint(points, ids, left, k)
		if axisValue(points[right], axis) > t {
			swapPoint(points, ids, left, right)
		}

		for i < j {
			swapPoint(points, ids, i, j)
			i++
			j--
			for axisValue(points[i], axis) < t {
				i++
			}
			for axisValue(points[j], axis) > t {
				j--
			}
		}

		if axisValue(points[left], axis) == t {
			swapPoint(points, ids, left, j)
		} else {
			j++
			swapPoint(points, ids, j, right)
		}

		if j <= k {
			left = j + 1
		}
		if k <= j {
			right = j - 1
		}
	}
}
