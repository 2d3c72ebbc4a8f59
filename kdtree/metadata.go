// Package kdtree implements an immutable, packed k-d tree over 2D points,
// built by recursive median split and stored as an 8-byte kdbush-style
// header, a flat coordinate block, and an index array recording each
// point's original insertion order. The coordinate block comes before the
// index array, so the buffer is not byte-identical to kdbush's own
// ids-first layout.
package kdtree

import (
	"github.com/quadrant-labs/geoindex/coordtype"
	"github.com/quadrant-labs/geoindex/geoerr"
	"github.com/quadrant-labs/geoindex/internal/packedbuf"
)

// magic is the first header byte of every kdtree buffer.
const magic = 0xdb

// DefaultNodeSize is used when a builder is created without WithNodeSize.
const DefaultNodeSize = 64

// Metadata is the pure arithmetic for a k-d tree buffer: given
// (num_items, node_size, coord_type) it derives the index width and total
// byte length. Unlike the R-tree there are no levels; the "tree" is a
// single kd-sorted array of points searched by simulated recursive
// descent.
type Metadata struct {
	Tag        coordtype.CoordType
	NodeSize   uint16
	NumItems   uint32
	IndexWidth int
	NumBytes   int
}

// NewMetadata computes the Metadata for a would-be index of numItems
// points with the given node size and coordinate type.
func NewMetadata(numItems uint32, nodeSize uint16, tag coordtype.CoordType) (Metadata, error) {
	if nodeSize < 2 {
		return Metadata{}, geoerr.New(geoerr.BadNodeSize, "node_size %d must be in [2, 65535]", nodeSize)
	}
	if !tag.Valid() {
		return Metadata{}, geoerr.New(geoerr.BadBuffer, "unknown coordinate tag %d", tag)
	}

	indexWidth := packedbuf.IndexWidth(int(numItems))
	coordWidth := tag.ByteWidth()
	numBytes := packedbuf.HeaderSize + int(numItems)*2*coordWidth + int(numItems)*indexWidth

	return Metadata{
		Tag:        tag,
		NodeSize:   nodeSize,
		NumItems:   numItems,
		IndexWidth: indexWidth,
		NumBytes:   numBytes,
	}, nil
}

func (m Metadata) coordsOffset() int { return packedbuf.HeaderSize }

func (m Metadata) indicesOffset() int {
	return packedbuf.HeaderSize + int(m.NumItems)*2*m.Tag.ByteWidth()
}

// ParseMetadata parses and validates an 8-byte-plus buffer header. wantTag,
// when valid, additionally requires the buffer's stored coordinate tag to
// match; pass an invalid CoordType to infer the tag from the buffer.
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

// PeekCoordType reports the coordinate type buf was built with, without
// fully validating it.
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
