package rtree

import (
	"math"

	"github.com/quadrant-labs/geoindex/internal/heapqueue"
)

// Neighbors returns up to maxResults leaf item indices nearest to (qx, qy),
// ordered by ascending distance, restricted to those within maxDistance
// (inclusive). Pass math.Inf(1) for maxDistance to disable that filter and
// a non-positive maxResults to disable the count limit.
//
// Uses best-first search over a min-heap keyed by squared distance to a
// node's box, per section 4.5's neighbors algorithm: a node is only
// expanded once every closer candidate has already been resolved, so the
// first maxResults leaves popped from the heap are exactly the k nearest.
// Expansion descends via Node.Children, the same traversal handle Search
// and TreeJoin use.
func (t *RTree[T]) Neighbors(qx, qy float64, maxResults int, maxDistance float64) []uint32 {
	results := make([]uint32, 0)
	if t.meta.NumNodes == 0 {
		return results
	}
	if maxResults <= 0 {
		maxResults = int(t.meta.NumItems)
	}
	maxDist2 := maxDistance * maxDistance
	if math.IsInf(maxDistance, 1) {
		maxDist2 = math.Inf(1)
	}

	queue := heapqueue.NewQueue(int(t.meta.NodeSize))
	root := t.Root()
	queue.Push(heapqueue.Entry{
		Key:    axisDistance2(root.Box(), qx, qy),
		Pos:    root.pos,
		IsLeaf: root.IsLeaf(),
	})

	for queue.Len() > 0 && len(results) < maxResults {
		e := queue.Pop()
		if e.Key > maxDist2 {
			break
		}
		if e.IsLeaf {
			results = append(results, t.indexAt(e.Pos))
			continue
		}

		n := Node[T]{tree: t, pos: e.Pos}
		for _, c := range n.Children() {
			queue.Push(heapqueue.Entry{
				Key:    axisDistance2(c.Box(), qx, qy),
				Pos:    c.pos,
				IsLeaf: c.IsLeaf(),
			})
		}
	}
	return results
}
