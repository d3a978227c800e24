package zarr

import "errors"

var (
	// ErrLevelOutOfRange is returned for a resolution level the image does not have.
	ErrLevelOutOfRange = errors.New("resolution level out of range")
	// ErrChunkCoordinateOutOfRange is returned for a chunk whose origin lies
	// at or beyond the array extent.
	ErrChunkCoordinateOutOfRange = errors.New("chunk coordinate out of range")
	// ErrUnmappedPixelType is returned when the repository reports a pixel
	// type with no zarr element type.
	ErrUnmappedPixelType = errors.New("unmapped pixel type")
)
