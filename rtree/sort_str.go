package rtree

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/quadrant-labs/geoindex/coordtype"
)

// strSort orders boxes (and their parallel indices slice) by sort-tile-
// recursive partitioning: sort by center x into vertical slices of
// ceil(sqrt(P)) * node_size items each, then sort each slice by center y.
// Ported from the STR pass in the original geo_index rtree sorter.
//
// When concurrency > 1, the per-slice y-sort pass is dispatched across a
// bounded errgroup since slices touch disjoint index ranges.
func strSort[T coordtype.Numeric](boxes []Box[T], indices []uint32, nodeSize, concurrency int) {
	n := len(boxes)
	if n == 0 {
		return
	}

	centers := make([]float64, n)
	for i, b := range boxes {
		centers[i] = (coordtype.ToFloat64(b.MinX) + coordtype.ToFloat64(b.MaxX)) / 2
	}
	strQuicksort(centers, boxes, indices, 0, n-1, nodeSize)

	for i, b := range boxes {
		centers[i] = (coordtype.ToFloat64(b.MinY) + coordtype.ToFloat64(b.MaxY)) / 2
	}

	numLeafNodes := math.Ceil(float64(n) / float64(nodeSize))
	numVerticalSlices := int(math.Ceil(math.Sqrt(numLeafNodes)))
	itemsPerSlice := numVerticalSlices * nodeSize

	type slice struct{ start, end int }
	slices := make([]slice, 0, numVerticalSlices)
	for start := 0; start < n; start += itemsPerSlice {
		end := start + itemsPerSlice
		if end > n {
			end = n
		}
		slices = append(slices, slice{start, end})
	}

	sortSlice := func(s slice) {
		if s.end-s.start < 2 {
			return
		}
		strQuicksort(centers, boxes, indices, s.start, s.end-1, nodeSize)
	}

	if concurrency <= 1 || len(slices) < 2 {
		for _, s := range slices {
			sortSlice(s)
		}
		return
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(concurrency)
	for _, s := range slices {
		s := s
		g.Go(func() error {
			sortSlice(s)
			return nil
		})
	}
	_ = g.Wait()
}

// strQuicksort partially sorts values (and the parallel boxes/indices
// slices) into ascending order, stopping early once left and right already
// fall in the same node_size bucket: exact ordering within a future leaf
// node doesn't matter, only which leaf it lands in.
func strQuicksort[T coordtype.Numeric](values []float64, boxes []Box[T], indices []uint32, left, right, nodeSize int) {
	if left/nodeSize >= right/nodeSize {
		return
	}

	mid := (left + right) / 2
	pivot := values[mid]
	i, j := left-1, right+1

	for {
		for {
			i++
			if values[i] >= pivot {
				break
			}
		}
		for {
			j--
			if values[j] <= pivot {
				break
			}
		}
		if i >= j {
			break
		}
		values[i], values[j] = values[j], values[i]
		boxes[i], boxes[j] = boxes[j], boxes[i]
		indices[i], indices[j] = indices[j], indices[i]
	}

	strQuicksort(values, boxes, indices, left, j, nodeSize)
	strQuicksort(values, boxes, indices, j+1, right, nodeSize)
}
