package rtree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildF64(t *testing.T, boxes [][4]float64, opts ...Option) *RTree[float64] {
	t.Helper()
	b, err := NewBuilder[float64](uint32(len(boxes)), opts...)
	require.NoError(t, err)
	for _, box := range boxes {
		_, err := b.AddF64(box[0], box[1], box[2], box[3])
		require.NoError(t, err)
	}
	tree, err := b.Finish()
	require.NoError(t, err)
	return tree
}

func TestBuilder_S1_SmallHilbertTree(t *testing.T) {
	tree := buildF64(t, [][4]float64{
		{0, 0, 2, 2},
		{1, 1, 3, 3},
		{2, 2, 4, 4},
	}, WithNodeSize(16))

	assert.Equal(t, 144, len(tree.Buffer()))
	assert.ElementsMatch(t, []uint32{0}, tree.Search(0, 0, 1, 1))
	assert.ElementsMatch(t, []uint32{0, 1, 2}, tree.Search(2, 2, 3, 3))
	assert.Equal(t, []uint32{2, 1, 0}, tree.Neighbors(5, 5, 0, math.Inf(1)))
}

func TestBuilder_S2_SingleItemTree(t *testing.T) {
	tree := buildF64(t, [][4]float64{{10, 10, 20, 20}})

	assert.Empty(t, tree.Search(0, 0, 5, 5))
	assert.Equal(t, []uint32{0}, tree.Search(15, 15, 15, 15))
	assert.Equal(t, []uint32{0}, tree.Neighbors(0, 0, 1, math.Inf(1)))
}

func TestBuilder_S3_EmptyTree(t *testing.T) {
	tree := buildF64(t, nil)

	assert.Equal(t, 8, len(tree.Buffer()))
	assert.Empty(t, tree.Search(math.Inf(-1), math.Inf(-1), math.Inf(1), math.Inf(1)))
}

func TestBuilder_S5_STRCornerCase(t *testing.T) {
	boxes := make([][4]float64, 17)
	for i := range boxes {
		x := float64(i)
		boxes[i] = [4]float64{x, x, x + 1, x + 1}
	}

	hilbertTree := buildF64(t, boxes, WithNodeSize(16), WithSortMethod(Hilbert))
	strTree := buildF64(t, boxes, WithNodeSize(16), WithSortMethod(STR))

	full := hilbertTree.Search(-1000, -1000, 1000, 1000)
	assert.ElementsMatch(t, allIndices(17), full)
	full = strTree.Search(-1000, -1000, 1000, 1000)
	assert.ElementsMatch(t, allIndices(17), full)
}

func allIndices(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

func TestBuilder_TooManyAndTooFewItems(t *testing.T) {
	b, err := NewBuilder[float64](1)
	require.NoError(t, err)
	_, err = b.AddF64(0, 0, 1, 1)
	require.NoError(t, err)
	_, err = b.AddF64(0, 0, 1, 1)
	require.Error(t, err)

	b2, err := NewBuilder[float64](2)
	require.NoError(t, err)
	_, err = b2.AddF64(0, 0, 1, 1)
	require.NoError(t, err)
	_, err = b2.Finish()
	require.Error(t, err)
}

func TestBuilder_RejectsInvalidCoordinates(t *testing.T) {
	b, err := NewBuilder[float64](1)
	require.NoError(t, err)
	_, err = b.AddF64(5, 0, 1, 1)
	require.Error(t, err)

	b2, err := NewBuilder[float64](1)
	require.NoError(t, err)
	_, err = b2.AddF64(math.NaN(), 0, 1, 1)
	require.Error(t, err)
}

// TestBuilder_SearchSoundAndComplete cross-checks Search against a brute
// force scan for both bulk-loading methods across random datasets.
func TestBuilder_SearchSoundAndComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, method := range []SortMethod{Hilbert, STR} {
		for trial := 0; trial < 20; trial++ {
			n := rng.Intn(200) + 1
			boxes := make([][4]float64, n)
			for i := range boxes {
				x, y := rng.Float64()*100, rng.Float64()*100
				boxes[i] = [4]float64{x, y, x + rng.Float64()*5, y + rng.Float64()*5}
			}
			tree := buildF64(t, boxes, WithNodeSize(8), WithSortMethod(method))

			qx, qy := rng.Float64()*100, rng.Float64()*100
			qMaxX, qMaxY := qx+rng.Float64()*20, qy+rng.Float64()*20

			var want []uint32
			for i, b := range boxes {
				if b[0] <= qMaxX && b[2] >= qx && b[1] <= qMaxY && b[3] >= qy {
					want = append(want, uint32(i))
				}
			}
			got := tree.Search(qx, qy, qMaxX, qMaxY)
			assert.ElementsMatch(t, want, got)
		}
	}
}

// TestBuilder_NeighborsMonotoneAndComplete checks that Neighbors returns
// the true k nearest items in ascending distance order.
func TestBuilder_NeighborsMonotoneAndComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n := 100
	boxes := make([][4]float64, n)
	centers := make([][2]float64, n)
	for i := range boxes {
		x, y := rng.Float64()*100, rng.Float64()*100
		boxes[i] = [4]float64{x, y, x, y}
		centers[i] = [2]float64{x, y}
	}
	tree := buildF64(t, boxes, WithNodeSize(8))

	qx, qy := 50.0, 50.0
	k := 5
	got := tree.Neighbors(qx, qy, k, math.Inf(1))
	require.Len(t, got, k)

	dist := func(i uint32) float64 {
		dx, dy := centers[i][0]-qx, centers[i][1]-qy
		return dx*dx + dy*dy
	}
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, dist(got[i-1]), dist(got[i]))
	}

	type pair struct {
		idx int
		d   float64
	}
	all := make([]pair, n)
	for i := range centers {
		dx, dy := centers[i][0]-qx, centers[i][1]-qy
		all[i] = pair{i, dx*dx + dy*dy}
	}
	worstReturned := dist(got[len(got)-1])
	for _, p := range all {
		if p.d < worstReturned {
			found := false
			for _, g := range got {
				if int(g) == p.idx {
					found = true
					break
				}
			}
			assert.True(t, found, "closer point %d missing from results", p.idx)
		}
	}
}

func TestBuilder_TreeJoin(t *testing.T) {
	a := buildF64(t, [][4]float64{{0, 0, 1, 1}, {10, 0, 11, 1}, {20, 0, 21, 1}})
	b := buildF64(t, [][4]float64{{0, 0, 1, 1}, {5, 0, 6, 1}, {20, 0, 21, 1}})

	pairs := a.TreeJoin(b)
	assert.ElementsMatch(t, []Pair{{Left: 0, Right: 0}, {Left: 2, Right: 2}}, pairs)
}

func TestBuilder_BoxesAndIndicesAtLevel(t *testing.T) {
	tree := buildF64(t, [][4]float64{{0, 0, 2, 2}, {1, 1, 3, 3}, {2, 2, 4, 4}}, WithNodeSize(16))

	leaves, err := tree.BoxesAtLevel(0)
	require.NoError(t, err)
	assert.Len(t, leaves, 3)

	root, err := tree.BoxesAtLevel(1)
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, Box[float64]{MinX: 0, MinY: 0, MaxX: 4, MaxY: 4}, root[0])

	leafIDs, err := tree.IndicesAtLevel(0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, leafIDs)

	rootIDs, err := tree.IndicesAtLevel(1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, rootIDs)

	_, err = tree.BoxesAtLevel(2)
	require.Error(t, err)
	_, err = tree.IndicesAtLevel(2)
	require.Error(t, err)
}

// TestBuilder_NodeTraversal exercises Root/Children/IsLeaf/Index
// directly, the exported handle Search/Neighbors/TreeJoin are built on.
func TestBuilder_NodeTraversal(t *testing.T) {
	tree := buildF64(t, [][4]float64{{0, 0, 2, 2}, {1, 1, 3, 3}, {2, 2, 4, 4}}, WithNodeSize(2))

	root := tree.Root()
	require.True(t, root.IsParent())
	assert.Equal(t, tree.RootBox(), root.Box())

	var leaves []uint32
	var walk func(n Node[float64])
	walk = func(n Node[float64]) {
		if n.IsLeaf() {
			leaves = append(leaves, n.Index())
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(root)
	assert.ElementsMatch(t, []uint32{0, 1, 2}, leaves)
}

// TestBuilder_I32Tree builds and queries a tree over int32 coordinates,
// exercising the packed buffer's non-float coordinate path end to end.
func TestBuilder_I32Tree(t *testing.T) {
	b, err := NewBuilder[int32](4, WithNodeSize(2))
	require.NoError(t, err)
	boxes := [][4]int32{
		{0, 0, 2, 2},
		{10, 10, 12, 12},
		{-5, -5, -3, -3},
		{100, 100, 100, 100},
	}
	for _, box := range boxes {
		_, err := b.Add(box[0], box[1], box[2], box[3])
		require.NoError(t, err)
	}
	tree, err := b.Finish()
	require.NoError(t, err)

	assert.ElementsMatch(t, []uint32{0}, tree.Search(0, 0, 1, 1))
	assert.ElementsMatch(t, []uint32{0, 1, 2, 3}, tree.Search(-1000, -1000, 1000, 1000))
	assert.Equal(t, []uint32{3}, tree.Search(100, 100, 100, 100))
	assert.Empty(t, tree.Search(50, 50, 60, 60))
}

// TestBuilder_U16Tree covers the other width class (2-byte) of the
// unsigned integer coordinate family.
func TestBuilder_U16Tree(t *testing.T) {
	b, err := NewBuilder[uint16](3, WithNodeSize(2))
	require.NoError(t, err)
	_, err = b.AddPoint(1, 1)
	require.NoError(t, err)
	_, err = b.AddPoint(500, 500)
	require.NoError(t, err)
	_, err = b.AddPoint(65000, 65000)
	require.NoError(t, err)
	tree, err := b.Finish()
	require.NoError(t, err)

	assert.Equal(t, []uint32{0}, tree.Search(0, 0, 10, 10))
	assert.ElementsMatch(t, []uint32{0, 1, 2}, tree.Search(0, 0, 65535, 65535))
}

// TestParseRTree_RoundTrip feeds a built tree's raw buffer back through
// ParseRTree and checks Search agrees with the pre-parse tree.
func TestParseRTree_RoundTrip(t *testing.T) {
	boxes := [][4]float64{
		{0, 0, 2, 2},
		{1, 1, 3, 3},
		{2, 2, 4, 4},
		{10, 10, 12, 12},
		{-5, -5, -3, -3},
	}
	original := buildF64(t, boxes, WithNodeSize(2))

	parsed, err := ParseRTree[float64](original.Buffer())
	require.NoError(t, err)

	assert.Equal(t, original.NumItems(), parsed.NumItems())
	assert.Equal(t, original.NumNodes(), parsed.NumNodes())
	assert.ElementsMatch(t, original.Search(-1000, -1000, 1000, 1000), parsed.Search(-1000, -1000, 1000, 1000))
	assert.ElementsMatch(t, original.Search(0, 0, 3, 3), parsed.Search(0, 0, 3, 3))
	assert.Equal(t, original.Neighbors(0, 0, 2, math.Inf(1)), parsed.Neighbors(0, 0, 2, math.Inf(1)))
}

// TestParseRTree_EmptyRoundTrip checks the zero-item header-only buffer
// round-trips too.
func TestParseRTree_EmptyRoundTrip(t *testing.T) {
	original := buildF64(t, nil)
	parsed, err := ParseRTree[float64](original.Buffer())
	require.NoError(t, err)
	assert.Empty(t, parsed.Search(math.Inf(-1), math.Inf(-1), math.Inf(1), math.Inf(1)))
}
