// Package coordtype describes the closed set of coordinate kinds a packed
// spatial index can be built over, and the arithmetic needed to convert
// between them.
package coordtype

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// CoordType tags the numeric representation stored in an index buffer.
// The tag values match the header encoding in section 4.1 of the format
// spec and must not be reordered.
type CoordType uint8

const (
	F64 CoordType = 0
	F32 CoordType = 1
	I8  CoordType = 2
	U8  CoordType = 3
	I16 CoordType = 4
	U16 CoordType = 5
	I32 CoordType = 6
	U32 CoordType = 7
)

// ByteWidth returns the size in bytes of one coordinate value of this type.
func (c CoordType) ByteWidth() int {
	switch c {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case F64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether c is one of the eight supported tags.
func (c CoordType) Valid() bool {
	return c <= U32
}

func (c CoordType) String() string {
	switch c {
	case F64:
		return "f64"
	case F32:
		return "f32"
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	default:
		return fmt.Sprintf("coordtype(%d)", uint8(c))
	}
}

// Numeric is the closed type set of representations a packed index may
// store a coordinate as. It intentionally excludes int/int64/uint64: the
// wire format has no tag for them.
type Numeric interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~float32 | ~float64
}

// TagFor returns the wire CoordType tag for the Go type instantiating T.
func TagFor[T Numeric]() CoordType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return I8
	case uint8:
		return U8
	case int16:
		return I16
	case uint16:
		return U16
	case int32:
		return I32
	case uint32:
		return U32
	case float32:
		return F32
	case float64:
		return F64
	default:
		panic(fmt.Sprintf("coordtype: unsupported type %T", zero))
	}
}

// ToFloat64 widens a coordinate value to float64 for distance math and
// Hilbert quantization.
func ToFloat64[T Numeric](v T) float64 {
	return float64(v)
}

// IsNaN reports whether v is NaN. Only the two float coordinate types can
// ever be NaN; integer instantiations always report false.
func IsNaN[T Numeric](v T) bool {
	f := float64(v)
	return f != f
}

// RoundInt performs a correctly-rounded cast from float64 into an integer
// coordinate type, as required when a builder accepts float64 input for a
// narrower stored representation.
func RoundInt[T constraints.Integer](f float64) T {
	return T(math.Round(f))
}

// RoundFloat performs a narrowing (or widening) cast from float64 into a
// float coordinate type.
func RoundFloat[T constraints.Float](f float64) T {
	return T(f)
}

// FromFloat64 performs the correctly-rounded cast described in section 6.3:
// incoming float64 values are cast into the target coordinate type T.
func FromFloat64[T Numeric](f float64) T {
	var zero T
	switch any(zero).(type) {
	case int8:
		return any(RoundInt[int8](f)).(T)
	case uint8:
		return any(RoundInt[uint8](f)).(T)
	case int16:
		return any(RoundInt[int16](f)).(T)
	case uint16:
		return any(RoundInt[uint16](f)).(T)
	case int32:
		return any(RoundInt[int32](f)).(T)
	case uint32:
		return any(RoundInt[uint32](f)).(T)
	case float32:
		return any(RoundFloat[float32](f)).(T)
	case float64:
		return any(RoundFloat[float64](f)).(T)
	default:
		panic(fmt.Sprintf("coordtype: unsupported type %T", zero))
	}
}

// MaxValue returns the largest representable value of T, used to seed
// "min so far" accumulators when computing dataset bounds.
func MaxValue[T Numeric]() T {
	var zero T
	switch any(zero).(type) {
	case int8:
		return any(int8(math.MaxInt8)).(T)
	case uint8:
		return any(uint8(math.MaxUint8)).(T)
	case int16:
		return any(int16(math.MaxInt16)).(T)
	case uint16:
		return any(uint16(math.MaxUint16)).(T)
	case int32:
		return any(int32(math.MaxInt32)).(T)
	case uint32:
		return any(uint32(math.MaxUint32)).(T)
	case float32:
		return any(float32(math.MaxFloat32)).(T)
	case float64:
		return any(float64(math.MaxFloat64)).(T)
	default:
		panic(fmt.Sprintf("coordtype: unsupported type %T", zero))
	}
}

// MinValue returns the smallest representable value of T, used to seed
// "max so far" accumulators when computing dataset bounds.
func MinValue[T Numeric]() T {
	var zero T
	switch any(zero).(type) {
	case int8:
		return any(int8(math.MinInt8)).(T)
	case uint8:
		return any(uint8(0)).(T)
	case int16:
		return any(int16(math.MinInt16)).(T)
	case uint16:
		return any(uint16(0)).(T)
	case int32:
		return any(int32(math.MinInt32)).(T)
	case uint32:
		return any(uint32(0)).(T)
	case float32:
		return any(float32(-math.MaxFloat32)).(T)
	case float64:
		return any(float64(-math.MaxFloat64)).(T)
	default:
		panic(fmt.Sprintf("coordtype: unsupported type %T", zero))
	}
}
