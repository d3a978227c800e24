// Package repo provides a file-backed image repository.
//
// Each image lives in its own directory under the repository root:
//
//	<root>/<id>/image.yaml
//	<root>/<id>/levels/<level>/<t>_<c>_<z>.raw       raw little-endian samples, row-major
//	<root>/<id>/levels/<level>/<t>_<c>_<z>.raw.zst   zstd-compressed variant
//
// Levels are numbered the way the repository stores them: level 0 is the full
// resolution image and each following level is more downsampled.
package repo

import (
	"errors"
	"fmt"
)

var (
	// ErrImageNotFound is returned when no manifest exists for an image id.
	ErrImageNotFound = errors.New("image not found")
	// ErrInvalidManifest is returned when a manifest violates an image invariant.
	ErrInvalidManifest = errors.New("invalid image manifest")
)

// PixelType is the repository's pixel type enumeration.
type PixelType string

const (
	PixelTypeInt8          PixelType = "int8"
	PixelTypeUint8         PixelType = "uint8"
	PixelTypeInt16         PixelType = "int16"
	PixelTypeUint16        PixelType = "uint16"
	PixelTypeInt32         PixelType = "int32"
	PixelTypeUint32        PixelType = "uint32"
	PixelTypeFloat         PixelType = "float"
	PixelTypeDouble        PixelType = "double"
	PixelTypeBit           PixelType = "bit"
	PixelTypeComplex       PixelType = "complex"
	PixelTypeDoubleComplex PixelType = "double-complex"
)

// pixelTypeSizes holds the stored bytes per sample. Bit images are stored
// unpacked, one byte per sample.
var pixelTypeSizes = map[PixelType]int{
	PixelTypeInt8:          1,
	PixelTypeUint8:         1,
	PixelTypeInt16:         2,
	PixelTypeUint16:        2,
	PixelTypeInt32:         4,
	PixelTypeUint32:        4,
	PixelTypeFloat:         4,
	PixelTypeDouble:        8,
	PixelTypeBit:           1,
	PixelTypeComplex:       8,
	PixelTypeDoubleComplex: 16,
}

// PixelTypes returns every pixel type the repository can report.
func PixelTypes() []PixelType {
	return []PixelType{
		PixelTypeInt8, PixelTypeUint8, PixelTypeInt16, PixelTypeUint16,
		PixelTypeInt32, PixelTypeUint32, PixelTypeFloat, PixelTypeDouble,
		PixelTypeBit, PixelTypeComplex, PixelTypeDoubleComplex,
	}
}

// ParsePixelType validates a pixel type name.
func ParsePixelType(s string) (PixelType, error) {
	pt := PixelType(s)
	if _, ok := pixelTypeSizes[pt]; !ok {
		return "", fmt.Errorf("unknown pixel type %q", s)
	}
	return pt, nil
}

// BytesPerSample returns the stored size of one sample.
func (pt PixelType) BytesPerSample() int {
	return pixelTypeSizes[pt]
}

// Resolution is the X/Y extent of one pyramid level.
type Resolution struct {
	SizeX int
	SizeY int
}

// ChannelWindow is the rendering window of a channel.
type ChannelWindow struct {
	Min   float64
	Max   float64
	Start float64
	End   float64
}

// Channel holds the display settings of one channel.
type Channel struct {
	Label  string
	Color  string // RRGGBB, empty when unset
	Active bool
	Window ChannelWindow
}

// Rendering holds the image's current rendering defaults.
type Rendering struct {
	DefaultT int
	DefaultZ int
	Model    string // "greyscale" or "color"
}

// Image describes one image in the repository.
type Image struct {
	ID        int64
	Name      string
	PixelType PixelType

	SizeT int
	SizeC int
	SizeZ int
	SizeY int
	SizeX int

	Pyramidal bool
	// Resolutions are ordered from full resolution to most downsampled.
	Resolutions []Resolution
	TileWidth   int
	TileHeight  int

	Channels  []Channel
	Rendering Rendering

	// Version changes whenever the manifest is rewritten.
	Version int64
}

// LevelSize returns the X/Y extent of a repository level.
func (img *Image) LevelSize(level int) (Resolution, error) {
	if !img.Pyramidal {
		if level != 0 {
			return Resolution{}, fmt.Errorf("level %d requested from non-pyramidal image %d", level, img.ID)
		}
		return Resolution{SizeX: img.SizeX, SizeY: img.SizeY}, nil
	}
	if level < 0 || level >= len(img.Resolutions) {
		return Resolution{}, fmt.Errorf("level %d out of range for image %d (%d levels)", level, img.ID, len(img.Resolutions))
	}
	return img.Resolutions[level], nil
}

// Validate checks the image invariants.
func (img *Image) Validate() error {
	if img.SizeT <= 0 || img.SizeC <= 0 || img.SizeZ <= 0 || img.SizeY <= 0 || img.SizeX <= 0 {
		return fmt.Errorf("%w: image %d has non-positive size (t=%d c=%d z=%d y=%d x=%d)",
			ErrInvalidManifest, img.ID, img.SizeT, img.SizeC, img.SizeZ, img.SizeY, img.SizeX)
	}
	if _, ok := pixelTypeSizes[img.PixelType]; !ok {
		return fmt.Errorf("%w: image %d has unknown pixel type %q", ErrInvalidManifest, img.ID, img.PixelType)
	}
	if len(img.Channels) != 0 && len(img.Channels) != img.SizeC {
		return fmt.Errorf("%w: image %d has %d channel descriptors for %d channels",
			ErrInvalidManifest, img.ID, len(img.Channels), img.SizeC)
	}
	if !img.Pyramidal {
		return nil
	}
	if img.TileWidth <= 0 || img.TileHeight <= 0 {
		return fmt.Errorf("%w: pyramidal image %d has no tile size", ErrInvalidManifest, img.ID)
	}
	if len(img.Resolutions) == 0 {
		return fmt.Errorf("%w: pyramidal image %d has no resolution levels", ErrInvalidManifest, img.ID)
	}
	if img.Resolutions[0].SizeX != img.SizeX || img.Resolutions[0].SizeY != img.SizeY {
		return fmt.Errorf("%w: image %d full resolution %dx%d does not match size %dx%d", ErrInvalidManifest,
			img.ID, img.Resolutions[0].SizeX, img.Resolutions[0].SizeY, img.SizeX, img.SizeY)
	}
	for i := 1; i < len(img.Resolutions); i++ {
		prev, cur := img.Resolutions[i-1], img.Resolutions[i]
		if cur.SizeX <= 0 || cur.SizeY <= 0 || cur.SizeX > prev.SizeX || cur.SizeY > prev.SizeY {
			return fmt.Errorf("%w: image %d level %d (%dx%d) is not smaller than level %d (%dx%d)", ErrInvalidManifest,
				img.ID, i, cur.SizeX, cur.SizeY, i-1, prev.SizeX, prev.SizeY)
		}
	}
	return nil
}

// deriveResolutions halves the full resolution until a level fits in one tile.
func deriveResolutions(sizeX, sizeY, tileW, tileH int) []Resolution {
	levels := []Resolution{{SizeX: sizeX, SizeY: sizeY}}
	for sizeX > tileW || sizeY > tileH {
		sizeX = ceilDiv(sizeX, 2)
		sizeY = ceilDiv(sizeY, 2)
		levels = append(levels, Resolution{SizeX: sizeX, SizeY: sizeY})
	}
	return levels
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
