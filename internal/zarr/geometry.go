package zarr

import (
	"fmt"

	"github.com/ome-tiles/server/internal/data/repo"
)

// Window is a pixel-space rectangle of one plane.
type Window struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ChunkShape returns the chunk shape of an image: one native tile for
// pyramidal images, the whole plane otherwise.
func ChunkShape(img *repo.Image) Shape {
	if img.Pyramidal {
		return Shape{1, 1, 1, img.TileHeight, img.TileWidth}
	}
	return Shape{1, 1, 1, img.SizeY, img.SizeX}
}

// PixelWindow returns the pixel window covered by a chunk of an array with
// the given shape and chunk shape, truncated at the trailing edges.
func PixelWindow(shape, chunks Shape, coord ChunkCoord) (Window, error) {
	for d := AxisT; d <= AxisX; d++ {
		if chunks[d] <= 0 {
			return Window{}, fmt.Errorf("invalid chunk shape at dim %d: %d", d, chunks[d])
		}
	}

	// Indices are bounded by the chunk grid before origins are computed.
	idx := [5]int{coord.T, coord.C, coord.Z, coord.Y, coord.X}
	for d := AxisT; d <= AxisX; d++ {
		if n := ceilDiv(shape[d], chunks[d]); idx[d] < 0 || idx[d] >= n {
			return Window{}, fmt.Errorf("%w: chunk %s at dim %d: index=%d chunks=%d",
				ErrChunkCoordinateOutOfRange, coord.Key(), d, idx[d], n)
		}
	}

	w := Window{
		X:      coord.X * chunks[AxisX],
		Y:      coord.Y * chunks[AxisY],
		Width:  chunks[AxisX],
		Height: chunks[AxisY],
	}
	if remaining := shape[AxisX] - w.X; remaining < w.Width {
		w.Width = remaining
	}
	if remaining := shape[AxisY] - w.Y; remaining < w.Height {
		w.Height = remaining
	}
	return w, nil
}

// ChunkWindow resolves the pixel window of a chunk at a gateway level.
func ChunkWindow(img *repo.Image, level int, coord ChunkCoord) (Window, error) {
	shape, err := ResolveShape(img, level)
	if err != nil {
		return Window{}, err
	}
	return PixelWindow(shape, ChunkShape(img), coord)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
