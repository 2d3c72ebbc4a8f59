// Package packedbuf implements the unaligned-safe little-endian codec
// shared by the rtree and kdtree packed buffer formats: header
// read/write, the u16/u32 index array, and per-coordinate-type get/put.
//
// Every accessor here works directly off a []byte offset rather than
// reinterpreting the slice as a typed slice, because Go gives no
// alignment guarantee for a []byte's backing array and the buffer must
// keep the same fixed byte layout regardless of host alignment.
package packedbuf

import (
	"encoding/binary"
	"math"

	"github.com/quadrant-labs/geoindex/coordtype"
)

// HeaderSize is the fixed 8-byte header shared by both index kinds.
const HeaderSize = 8

// Version is the current buffer format version, stored in the high
// nibble of header byte 1.
const Version uint8 = 0x3

// WriteHeader writes the 8-byte header at the start of buf.
func WriteHeader(buf []byte, magic byte, tag coordtype.CoordType, nodeSize uint16, numItems uint32) {
	buf[0] = magic
	buf[1] = (Version << 4) | byte(tag)
	binary.LittleEndian.PutUint16(buf[2:4], nodeSize)
	binary.LittleEndian.PutUint32(buf[4:8], numItems)
}

// Header holds the parsed fields of a buffer's 8-byte header.
type Header struct {
	Magic     byte
	Version   uint8
	Tag       coordtype.CoordType
	NodeSize  uint16
	NumItems  uint32
}

// ParseHeader reads and validates the shape of the 8-byte header. It does
// not check the magic byte or coordinate tag against a caller's
// expectation; callers compare Header.Magic and Header.Tag themselves so
// they can produce a precise geoerr.BadBuffer reason.
func ParseHeader(buf []byte) (Header, bool) {
	if len(buf) < HeaderSize {
		return Header{}, false
	}
	versionAndTag := buf[1]
	return Header{
		Magic:    buf[0],
		Version:  versionAndTag >> 4,
		Tag:      coordtype.CoordType(versionAndTag & 0x0f),
		NodeSize: binary.LittleEndian.Uint16(buf[2:4]),
		NumItems: binary.LittleEndian.Uint32(buf[4:8]),
	}, true
}

// IndexWidth returns the byte width (2 or 4) used to store one index-array
// element, given the number of slots (num_nodes for the rtree, num_items
// for the kdtree) that array must address.
func IndexWidth(numSlots int) int {
	if numSlots < 1<<16 {
		return 2
	}
	return 4
}

// GetIndex reads the i'th index-array element, which is width bytes wide,
// starting at byte offset base within buf.
func GetIndex(buf []byte, base, width, i int) uint32 {
	off := base + i*width
	if width == 2 {
		return uint32(binary.LittleEndian.Uint16(buf[off : off+2]))
	}
	return binary.LittleEndian.Uint32(buf[off : off+4])
}

// SetIndex writes the i'th index-array element.
func SetIndex(buf []byte, base, width, i int, v uint32) {
	off := base + i*width
	if width == 2 {
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(v))
		return
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

// PutCoord writes one coordinate value of type T at byte offset off.
func PutCoord[T coordtype.Numeric](buf []byte, off int, v T) {
	switch x := any(v).(type) {
	case int8:
		buf[off] = uint8(x)
	case uint8:
		buf[off] = x
	case int16:
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(x))
	case uint16:
		binary.LittleEndian.PutUint16(buf[off:off+2], x)
	case int32:
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(x))
	case uint32:
		binary.LittleEndian.PutUint32(buf[off:off+4], x)
	case float32:
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(x))
	case float64:
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(x))
	}
}

// GetCoord reads one coordinate value of type T from byte offset off.
func GetCoord[T coordtype.Numeric](buf []byte, off int) T {
	var zero T
	switch any(zero).(type) {
	case int8:
		return any(int8(buf[off])).(T)
	case uint8:
		return any(buf[off]).(T)
	case int16:
		return any(int16(binary.LittleEndian.Uint16(buf[off : off+2]))).(T)
	case uint16:
		return any(binary.LittleEndian.Uint16(buf[off : off+2])).(T)
	case int32:
		return any(int32(binary.LittleEndian.Uint32(buf[off : off+4]))).(T)
	case uint32:
		return any(binary.LittleEndian.Uint32(buf[off : off+4])).(T)
	case float32:
		return any(math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))).(T)
	case float64:
		return any(math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))).(T)
	default:
		panic("packedbuf: unsupported coordinate type")
	}
}
