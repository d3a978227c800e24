// Package zarr computes an on-demand OME-Zarr (zarr v2) view of repository
// images: array metadata, chunk geometry and chunk bytes.
package zarr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ome-tiles/server/internal/data/repo"
)

// Axis indices of a Shape.
const (
	AxisT = iota
	AxisC
	AxisZ
	AxisY
	AxisX
)

// Shape is a 5-D extent in (t, c, z, y, x) order.
type Shape [5]int

// ChunkCoord addresses a chunk in chunk-index space.
type ChunkCoord struct {
	T, C, Z, Y, X int
}

// ParseChunkKey parses a "t.c.z.y.x" chunk key.
func ParseChunkKey(key string) (ChunkCoord, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 5 {
		return ChunkCoord{}, fmt.Errorf("invalid chunk key %q: expected 5 dimensions, got %d", key, len(parts))
	}
	var idx [5]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return ChunkCoord{}, fmt.Errorf("invalid chunk key %q: dimension %d is not a non-negative integer", key, i)
		}
		idx[i] = v
	}
	return ChunkCoord{T: idx[0], C: idx[1], Z: idx[2], Y: idx[3], X: idx[4]}, nil
}

// Key formats the chunk coordinate as a zarr v2 chunk key.
func (c ChunkCoord) Key() string {
	return fmt.Sprintf("%d.%d.%d.%d.%d", c.T, c.C, c.Z, c.Y, c.X)
}

// LevelCount returns the number of gateway levels of an image.
func LevelCount(img *repo.Image) int {
	if img.Pyramidal {
		return len(img.Resolutions)
	}
	return 1
}

// ResolveShape returns the array shape of an image at a gateway level.
// Non-pyramidal images have the single level 0.
func ResolveShape(img *repo.Image, level int) (Shape, error) {
	n := LevelCount(img)
	storeLevel, err := StoreLevel(level, n)
	if err != nil {
		return Shape{}, fmt.Errorf("image %d: %w", img.ID, err)
	}

	shape := Shape{img.SizeT, img.SizeC, img.SizeZ, img.SizeY, img.SizeX}
	if !img.Pyramidal {
		return shape, nil
	}
	res := img.Resolutions[storeLevel]
	shape[AxisY] = res.SizeY
	shape[AxisX] = res.SizeX
	return shape, nil
}
