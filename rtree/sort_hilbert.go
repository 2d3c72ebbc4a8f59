package rtree

import (
	"sort"

	"github.com/quadrant-labs/geoindex/coordtype"
)

// hilbertSort orders boxes (and their parallel indices slice) by the
// Hilbert curve position of each box's center, computed relative to the
// dataset's overall bounds. Ties are broken by original insertion order,
// matching flatbush's stable sort semantics so that repeated builds of the
// same input are byte-identical.
func hilbertSort[T coordtype.Numeric](boxes []Box[T], indices []uint32, minX, minY, maxX, maxY float64) {
	n := len(boxes)
	codes := make([]uint32, n)
	for i, b := range boxes {
		cx := (coordtype.ToFloat64(b.MinX) + coordtype.ToFloat64(b.MaxX)) / 2
		cy := (coordtype.ToFloat64(b.MinY) + coordtype.ToFloat64(b.MaxY)) / 2
		codes[i] = hilbertCode(cx, cy, minX, minY, maxX, maxY)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return codes[order[i]] < codes[order[j]]
	})

	sortedBoxes := make([]Box[T], n)
	sortedIndices := make([]uint32, n)
	for newPos, oldPos := range order {
		sortedBoxes[newPos] = boxes[oldPos]
		sortedIndices[newPos] = indices[oldPos]
	}
	copy(boxes, sortedBoxes)
	copy(indices, sortedIndices)
}
