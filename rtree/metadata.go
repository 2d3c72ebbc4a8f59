package rtree

import (
	"github.com/quadrant-labs/geoindex/coordtype"
	"github.com/quadrant-labs/geoindex/geoerr"
	"github.com/quadrant-labs/geoindex/internal/packedbuf"
)

// magic is the first header byte of every rtree buffer.
const magic = 0xfb

// DefaultNodeSize is used when a builder is created without WithNodeSize.
const DefaultNodeSize = 16

// Metadata is the pure arithmetic described in spec section 4.2: given
// (num_items, node_size, coord_type) it derives level sizes, level
// offsets, the total node count, index width, and total byte length.
// It carries no buffer bytes of its own.
type Metadata struct {
	Tag        coordtype.CoordType
	NodeSize   uint16
	NumItems   uint32
	LevelSizes []int
	// LevelOffsets[i] is the offset, in node units, of level i's first
	// node. Level 0 is items; level len-1 is the root.
	LevelOffsets []int
	NumNodes     int
	IndexWidth   int
	NumBytes     int
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// computeLevels derives the leaves-first level sizes for numItems items
// packed node_size at a time. num_items == 0 is special-cased to a single
// empty level per section 4.2's edge cases; every other input terminates
// because ceil(prev/nodeSize) strictly decreases until it reaches 1.
func computeLevels(numItems, nodeSize int) []int {
	if numItems == 0 {
		return []int{0}
	}
	sizes := []int{numItems}
	prev := numItems
	for prev != 1 {
		next := ceilDiv(prev, nodeSize)
		sizes = append(sizes, next)
		prev = next
	}
	return sizes
}

// NewMetadata computes the Metadata for a would-be index of numItems
// items with the given node size and coordinate type. It validates
// node_size but does not touch a buffer.
func NewMetadata(numItems uint32, nodeSize uint16, tag coordtype.CoordType) (Metadata, error) {
	if nodeSize < 2 {
		return Metadata{}, geoerr.New(geoerr.BadNodeSize, "node_size %d must be in [2, 65535]", nodeSize)
	}
	if !tag.Valid() {
		return Metadata{}, geoerr.New(geoerr.BadBuffer, "unknown coordinate tag %d", tag)
	}

	levelSizes := computeLevels(int(numItems), int(nodeSize))
	offsets := make([]int, len(levelSizes))
	numNodes := 0
	for i, size := range levelSizes {
		offsets[i] = numNodes
		numNodes += size
	}

	indexWidth := packedbuf.IndexWidth(numNodes)
	coordWidth := tag.ByteWidth()
	numBytes := packedbuf.HeaderSize + numNodes*4*coordWidth + numNodes*indexWidth

	return Metadata{
		Tag:          tag,
		NodeSize:     nodeSize,
		NumItems:     numItems,
		LevelSizes:   levelSizes,
		LevelOffsets: offsets,
		NumNodes:     numNodes,
		IndexWidth:   indexWidth,
		NumBytes:     numBytes,
	}, nil
}

// NumLevels returns the height of the tree, L in the spec's notation.
func (m Metadata) NumLevels() int { return len(m.LevelSizes) }

// LevelBounds returns the (offset, len) pair, in node units, for level i.
func (m Metadata) LevelBounds(level int) (offset, length int, ok bool) {
	if level < 0 || level >= len(m.LevelSizes) {
		return 0, 0, false
	}
	return m.LevelOffsets[level], m.LevelSizes[level], true
}

// levelOf returns the level containing absolute node position pos.
func (m Metadata) levelOf(pos int) int {
	for i := len(m.LevelOffsets) - 1; i >= 0; i-- {
		if pos >= m.LevelOffsets[i] {
			return i
		}
	}
	return 0
}

// coordsOffset returns the byte offset of the coordinate block.
func (m Metadata) coordsOffset() int { return packedbuf.HeaderSize }

// indicesOffset returns the byte offset of the index block.
func (m Metadata) indicesOffset() int {
	return packedbuf.HeaderSize + m.NumNodes*4*m.Tag.ByteWidth()
}

// ParseMetadata parses and validates an 8-byte-plus buffer header,
// re-deriving the rest of Metadata and checking that buf's length matches
// exactly. wantTag, when valid, additionally requires the buffer's stored
// coordinate tag to match (surfaced as geoerr.TypeMismatch); pass an
// invalid CoordType (e.g. coordtype.CoordType(255)) to skip that check
// and infer the tag from the buffer instead.
func ParseMetadata(buf []byte, wantTag coordtype.CoordType) (Metadata, error) {
	hdr, ok := packedbuf.ParseHeader(buf)
	if !ok {
		return Metadata{}, geoerr.New(geoerr.BadBuffer, "buffer too short: %d bytes", len(buf))
	}
	if hdr.Magic != magic {
		return Metadata{}, geoerr.New(geoerr.BadBuffer, "bad magic byte 0x%02x, expected 0x%02x", hdr.Magic, magic)
	}
	if hdr.Version != packedbuf.Version {
		return Metadata{}, geoerr.New(geoerr.BadBuffer, "got version %d, expected %d", hdr.Version, packedbuf.Version)
	}
	if !hdr.Tag.Valid() {
		return Metadata{}, geoerr.New(geoerr.BadBuffer, "unknown coordinate tag %d", hdr.Tag)
	}
	if wantTag.Valid() && hdr.Tag != wantTag {
		return Metadata{}, geoerr.New(geoerr.TypeMismatch, "buffer stores %s, expected %s", hdr.Tag, wantTag)
	}

	m, err := NewMetadata(hdr.NumItems, hdr.NodeSize, hdr.Tag)
	if err != nil {
		return Metadata{}, err
	}
	if len(buf) != m.NumBytes {
		return Metadata{}, geoerr.New(geoerr.BadBuffer, "incorrect buffer length: expected %d, got %d", m.NumBytes, len(buf))
	}
	return m, nil
}

// PeekCoordType reads just enough of buf to report the coordinate type it
// was built with, without fully validating or parsing it. Used to select
// the T to instantiate ParseRTree[T] with when the caller doesn't already
// know it.
func PeekCoordType(buf []byte) (coordtype.CoordType, error) {
	hdr, ok := packedbuf.ParseHeader(buf)
	if !ok {
		return 0, geoerr.New(geoerr.BadBuffer, "buffer too short: %d bytes", len(buf))
	}
	if hdr.Magic != magic {
		return 0, geoerr.New(geoerr.BadBuffer, "bad magic byte 0x%02x, expected 0x%02x", hdr.Magic, magic)
	}
	if !hdr.Tag.Valid() {
		return 0, geoerr.New(geoerr.BadBuffer, "unknown coordinate tag %d", hdr.Tag)
	}
	return hdr.Tag, nil
}
