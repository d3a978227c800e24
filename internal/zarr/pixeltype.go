package zarr

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ome-tiles/server/internal/data/repo"
)

// ByteOrder is the first character of a zarr v2 dtype string.
type ByteOrder byte

const (
	BONotRelevant  ByteOrder = '|'
	BOLittleEndian ByteOrder = '<'
)

// Kind is the basic type character of a zarr v2 dtype string.
type Kind byte

const (
	KindInteger  Kind = 'i'
	KindUnsigned Kind = 'u'
	KindFloat    Kind = 'f'
)

// DType is a zarr v2 simple data type such as "<u2".
type DType struct {
	ByteOrder ByteOrder
	Kind      Kind
	Size      int
}

var (
	Int8    = DType{BONotRelevant, KindInteger, 1}
	Uint8   = DType{BONotRelevant, KindUnsigned, 1}
	Int16   = DType{BOLittleEndian, KindInteger, 2}
	Uint16  = DType{BOLittleEndian, KindUnsigned, 2}
	Int32   = DType{BOLittleEndian, KindInteger, 4}
	Uint32  = DType{BOLittleEndian, KindUnsigned, 4}
	Float32 = DType{BOLittleEndian, KindFloat, 4}
	Float64 = DType{BOLittleEndian, KindFloat, 8}
)

// pixelTypeDTypes maps every repository pixel type with a canonical element
// type. The remaining repository types are listed in unmappedPixelTypes; the
// two tables together cover repo.PixelTypes().
var pixelTypeDTypes = map[repo.PixelType]DType{
	repo.PixelTypeInt8:   Int8,
	repo.PixelTypeUint8:  Uint8,
	repo.PixelTypeInt16:  Int16,
	repo.PixelTypeUint16: Uint16,
	repo.PixelTypeInt32:  Int32,
	repo.PixelTypeUint32: Uint32,
	repo.PixelTypeFloat:  Float32,
	repo.PixelTypeDouble: Float64,
}

var unmappedPixelTypes = map[repo.PixelType]string{
	repo.PixelTypeBit:           "packed bit samples",
	repo.PixelTypeComplex:       "complex samples",
	repo.PixelTypeDoubleComplex: "complex samples",
}

// DTypeFor maps a repository pixel type to its zarr element type.
func DTypeFor(pt repo.PixelType) (DType, error) {
	if dt, ok := pixelTypeDTypes[pt]; ok {
		return dt, nil
	}
	if reason, ok := unmappedPixelTypes[pt]; ok {
		return DType{}, fmt.Errorf("%w: %q (%s)", ErrUnmappedPixelType, pt, reason)
	}
	return DType{}, fmt.Errorf("%w: %q", ErrUnmappedPixelType, pt)
}

func (dt DType) String() string {
	return fmt.Sprintf("%c%c%d", dt.ByteOrder, dt.Kind, dt.Size)
}

// Name returns the canonical element type name, e.g. "uint16".
func (dt DType) Name() string {
	switch dt.Kind {
	case KindInteger:
		return fmt.Sprintf("int%d", dt.Size*8)
	case KindUnsigned:
		return fmt.Sprintf("uint%d", dt.Size*8)
	case KindFloat:
		return fmt.Sprintf("float%d", dt.Size*8)
	}
	return dt.String()
}

func (dt DType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + dt.String() + `"`), nil
}

// Range returns the representable sample range, used as the default channel
// window. Float types default to [0, 1].
func (dt DType) Range() (float64, float64) {
	bits := dt.Size * 8
	switch dt.Kind {
	case KindInteger:
		return -math.Pow(2, float64(bits-1)), math.Pow(2, float64(bits-1)) - 1
	case KindUnsigned:
		return 0, math.Pow(2, float64(bits)) - 1
	}
	return 0, 1
}

// Sample decodes sample i of little-endian data as float64.
func (dt DType) Sample(data []byte, i int) float64 {
	off := i * dt.Size
	b := data[off : off+dt.Size]
	switch dt {
	case Int8:
		return float64(int8(b[0]))
	case Uint8:
		return float64(b[0])
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}
