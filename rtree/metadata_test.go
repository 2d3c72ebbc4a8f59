package rtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadrant-labs/geoindex/coordtype"
	"github.com/quadrant-labs/geoindex/geoerr"
)

func TestNewMetadata_ThreeItemTree(t *testing.T) {
	// S1: 3 items, node_size=16, f64 -> num_nodes=4, u16 indices, 144 bytes.
	m, err := NewMetadata(3, 16, coordtype.F64)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, m.LevelSizes)
	assert.Equal(t, 4, m.NumNodes)
	assert.Equal(t, 2, m.IndexWidth)
	assert.Equal(t, 144, m.NumBytes)
}

func TestNewMetadata_SingleItemTree(t *testing.T) {
	// S2: a lone item's own box is the entire tree, no extra root copy.
	m, err := NewMetadata(1, 16, coordtype.F64)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, m.LevelSizes)
	assert.Equal(t, 1, m.NumNodes)
	assert.Equal(t, 1, m.NumLevels())
}

func TestNewMetadata_EmptyTree(t *testing.T) {
	// S3: num_bytes is header-only.
	m, err := NewMetadata(0, 16, coordtype.F64)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, m.LevelSizes)
	assert.Equal(t, 0, m.NumNodes)
	assert.Equal(t, 8, m.NumBytes)
}

func TestNewMetadata_STRCornerCase(t *testing.T) {
	// S5: 17 items, node_size=16 -> two leaf nodes plus one root.
	m, err := NewMetadata(17, 16, coordtype.F64)
	require.NoError(t, err)
	assert.Equal(t, []int{17, 2, 1}, m.LevelSizes)
	assert.Equal(t, 20, m.NumNodes)
}

func TestNewMetadata_RejectsBadNodeSize(t *testing.T) {
	_, err := NewMetadata(10, 1, coordtype.F64)
	require.Error(t, err)
	gerr, ok := err.(*geoerr.Error)
	require.True(t, ok)
	assert.Equal(t, geoerr.BadNodeSize, gerr.Code)
}

func TestNewMetadata_LargeIndexWidth(t *testing.T) {
	m, err := NewMetadata(1<<16, 2, coordtype.U8)
	require.NoError(t, err)
	assert.Equal(t, 4, m.IndexWidth)
}

func TestParseMetadata_RoundTrip(t *testing.T) {
	m, err := NewMetadata(3, 16, coordtype.F64)
	require.NoError(t, err)

	buf := make([]byte, m.NumBytes)
	buf[0] = magic
	buf[1] = 0x30 // version 3, tag F64=0
	buf[2] = 16
	buf[4] = 3

	parsed, err := ParseMetadata(buf, coordtype.F64)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestParseMetadata_RejectsBadMagic(t *testing.T) {
	buf := make([]byte, 8)
	buf[0] = 0x00
	_, err := ParseMetadata(buf, coordtype.F64)
	require.Error(t, err)
}

func TestParseMetadata_RejectsTypeMismatch(t *testing.T) {
	m, err := NewMetadata(1, 16, coordtype.F32)
	require.NoError(t, err)
	buf := make([]byte, m.NumBytes)
	buf[0] = magic
	buf[1] = 0x31 // tag F32=1
	buf[2] = 16
	buf[4] = 1

	_, err = ParseMetadata(buf, coordtype.F64)
	require.Error(t, err)
}

func TestParseMetadata_RejectsTruncatedBuffer(t *testing.T) {
	m, err := NewMetadata(3, 16, coordtype.F64)
	require.NoError(t, err)
	buf := make([]byte, m.NumBytes-1)
	buf[0] = magic
	buf[1] = 0x30
	buf[2] = 16
	buf[4] = 3

	_, err = ParseMetadata(buf, coordtype.F64)
	require.Error(t, err)
}
