package rtree

import "github.com/quadrant-labs/geoindex/coordtype"

// Pair is one intersecting leaf-leaf match produced by TreeJoin.
type Pair struct {
	Left  uint32
	Right uint32
}

type joinFrame[T coordtype.Numeric] struct {
	a, b Node[T]
}

// TreeJoin returns every pair of leaf items (one from t, one from other)
// whose boxes intersect. Both trees must share the same coordinate type T,
// enforced at compile time, but may differ in item count and node size.
//
// The traversal is a dual stack-based descent over Node handles: at each
// step the side with the higher (closer to root) level is expanded, since
// its boxes are coarser and narrowing it first prunes more of the other
// side's subtree. When both sides are already at their leaf level, a
// match is recorded. Grounded on
// original_source/src/rtree/traversal.rs's IntersectionIterator, adapted
// from a recursive iterator into an explicit stack.
func (t *RTree[T]) TreeJoin(other *RTree[T]) []Pair {
	var pairs []Pair
	if t.meta.NumNodes == 0 || other.meta.NumNodes == 0 {
		return pairs
	}

	stack := []joinFrame[T]{{a: t.Root(), b: other.Root()}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !f.a.Intersects(f.b) {
			continue
		}

		if f.a.IsLeaf() && f.b.IsLeaf() {
			pairs = append(pairs, Pair{Left: f.a.Index(), Right: f.b.Index()})
			continue
		}

		expandA := !f.a.IsLeaf() && (f.b.IsLeaf() || f.a.level() >= f.b.level())
		if expandA {
			for _, c := range f.a.Children() {
				stack = append(stack, joinFrame[T]{a: c, b: f.b})
			}
			continue
		}

		for _, c := range f.b.Children() {
			stack = append(stack, joinFrame[T]{a: f.a, b: c})
		}
	}
	return pairs
}
