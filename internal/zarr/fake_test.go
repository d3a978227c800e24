package zarr

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ome-tiles/server/internal/data/repo"
)

type tileCall struct {
	level, z, c, t, x, y, w, h int
}

// fakeSource serves uint16 samples whose value encodes the repository level
// and position: level*10000 + y*100 + x.
type fakeSource struct {
	img *repo.Image

	opened  int
	closed  int
	tiles   []tileCall
	planes  int
	tileErr error
	short   bool
}

func (s *fakeSource) Image(_ context.Context, id int64) (*repo.Image, error) {
	if id != s.img.ID {
		return nil, fmt.Errorf("%w: %d", repo.ErrImageNotFound, id)
	}
	return s.img, nil
}

func (s *fakeSource) OpenPixels(_ context.Context, id int64) (PixelAccessor, error) {
	if id != s.img.ID {
		return nil, fmt.Errorf("%w: %d", repo.ErrImageNotFound, id)
	}
	s.opened++
	return &fakeAccessor{src: s}, nil
}

type fakeAccessor struct {
	src *fakeSource
}

func (a *fakeAccessor) Plane(z, c, t int) ([]byte, error) {
	a.src.planes++
	return sampleRegion(0, 0, 0, a.src.img.SizeX, a.src.img.SizeY), nil
}

func (a *fakeAccessor) Tile(level, z, c, t, x, y, w, h int) ([]byte, error) {
	a.src.tiles = append(a.src.tiles, tileCall{level, z, c, t, x, y, w, h})
	if a.src.tileErr != nil {
		return nil, a.src.tileErr
	}
	data := sampleRegion(level, x, y, w, h)
	if a.src.short {
		data = data[:len(data)-2]
	}
	return data, nil
}

func (a *fakeAccessor) Close() error {
	a.src.closed++
	return nil
}

func sampleValue(level, x, y int) uint16 {
	return uint16(level*10000 + y*100 + x)
}

func sampleRegion(level, x, y, w, h int) []byte {
	out := make([]byte, w*h*2)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			binary.LittleEndian.PutUint16(out[(row*w+col)*2:], sampleValue(level, x+col, y+row))
		}
	}
	return out
}

// threeLevelImage is a pyramidal image with three repository levels
// 4000x3000, 2000x1500 and 1000x750.
func threeLevelImage() *repo.Image {
	return &repo.Image{
		ID:        101,
		Name:      "three-level",
		PixelType: repo.PixelTypeUint16,
		SizeT:     2, SizeC: 3, SizeZ: 4, SizeY: 3000, SizeX: 4000,
		Pyramidal:  true,
		TileWidth:  512,
		TileHeight: 512,
		Resolutions: []repo.Resolution{
			{SizeX: 4000, SizeY: 3000},
			{SizeX: 2000, SizeY: 1500},
			{SizeX: 1000, SizeY: 750},
		},
		Rendering: repo.Rendering{DefaultT: 1, DefaultZ: 2, Model: "color"},
	}
}

func flatImage(sizeY, sizeX int) *repo.Image {
	return &repo.Image{
		ID:        7,
		Name:      "flat",
		PixelType: repo.PixelTypeUint16,
		SizeT:     1, SizeC: 1, SizeZ: 1, SizeY: sizeY, SizeX: sizeX,
		Rendering: repo.Rendering{Model: "greyscale"},
	}
}
