package zarr

import (
	"context"
	"fmt"

	"github.com/ome-tiles/server/internal/data/repo"
)

// Plane is a 2-D block of little-endian samples.
type Plane struct {
	DType  DType
	Width  int
	Height int
	Data   []byte
}

// Fetcher reads pixel windows from a Source.
type Fetcher struct {
	source Source
}

// NewFetcher creates a fetcher over src.
func NewFetcher(src Source) *Fetcher {
	return &Fetcher{source: src}
}

// FetchPlane reads the given window of plane (t, c, z) at a gateway level.
// The accessor is released on every return path.
func (f *Fetcher) FetchPlane(ctx context.Context, img *repo.Image, level, t, c, z int, win Window) (plane Plane, err error) {
	dt, err := DTypeFor(img.PixelType)
	if err != nil {
		return Plane{}, err
	}
	n := LevelCount(img)
	storeLevel, err := StoreLevel(level, n)
	if err != nil {
		return Plane{}, fmt.Errorf("image %d: %w", img.ID, err)
	}

	px, err := f.source.OpenPixels(ctx, img.ID)
	if err != nil {
		return Plane{}, fmt.Errorf("failed to open pixels of image %d: %w", img.ID, err)
	}
	defer func() {
		if cerr := px.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to release pixels of image %d: %w", img.ID, cerr)
		}
	}()

	var data []byte
	if img.Pyramidal {
		data, err = px.Tile(storeLevel, z, c, t, win.X, win.Y, win.Width, win.Height)
		if err != nil {
			return Plane{}, fmt.Errorf("failed to read tile of image %d: %w", img.ID, err)
		}
	} else {
		var full []byte
		full, err = px.Plane(z, c, t)
		if err != nil {
			return Plane{}, fmt.Errorf("failed to read plane of image %d: %w", img.ID, err)
		}
		data, err = crop(full, img.SizeX, img.SizeY, dt.Size, win)
		if err != nil {
			return Plane{}, err
		}
	}

	if want := win.Width * win.Height * dt.Size; len(data) != want {
		return Plane{}, fmt.Errorf("image %d returned %d bytes for a %dx%d window, expected %d",
			img.ID, len(data), win.Width, win.Height, want)
	}
	return Plane{DType: dt, Width: win.Width, Height: win.Height, Data: data}, nil
}

func crop(plane []byte, width, height, itemSize int, win Window) ([]byte, error) {
	if len(plane) != width*height*itemSize {
		return nil, fmt.Errorf("plane has %d bytes, expected %d", len(plane), width*height*itemSize)
	}
	if win.X == 0 && win.Y == 0 && win.Width == width && win.Height == height {
		return plane, nil
	}
	if win.X < 0 || win.Y < 0 || win.X+win.Width > width || win.Y+win.Height > height {
		return nil, fmt.Errorf("window %+v outside %dx%d plane", win, width, height)
	}
	out := make([]byte, win.Width*win.Height*itemSize)
	rowBytes := win.Width * itemSize
	for row := 0; row < win.Height; row++ {
		src := ((win.Y+row)*width + win.X) * itemSize
		copy(out[row*rowBytes:], plane[src:src+rowBytes])
	}
	return out, nil
}
