package repo

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Pixels is a scoped accessor for the pixel data of one image. It owns open
// plane files until Close is called.
type Pixels struct {
	store *Store
	img   *Image

	mu     sync.Mutex
	files  map[string]*os.File
	closed bool
}

// Image returns the image the accessor was opened for.
func (p *Pixels) Image() *Image {
	return p.img
}

// Plane returns a whole full-resolution plane.
func (p *Pixels) Plane(z, c, t int) ([]byte, error) {
	return p.Tile(0, z, c, t, 0, 0, p.img.SizeX, p.img.SizeY)
}

// Tile returns a w*h region of a plane at a repository level. Samples are
// little-endian and row-major.
func (p *Pixels) Tile(level, z, c, t, x, y, w, h int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New("pixel accessor is closed")
	}
	img := p.img
	if z < 0 || z >= img.SizeZ || c < 0 || c >= img.SizeC || t < 0 || t >= img.SizeT {
		return nil, fmt.Errorf("plane z=%d c=%d t=%d out of range for image %d", z, c, t, img.ID)
	}
	size, err := img.LevelSize(level)
	if err != nil {
		return nil, err
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > size.SizeX || y+h > size.SizeY {
		return nil, fmt.Errorf("region x=%d y=%d w=%d h=%d outside level %d (%dx%d) of image %d",
			x, y, w, h, level, size.SizeX, size.SizeY, img.ID)
	}

	bps := img.PixelType.BytesPerSample()
	path := planePath(p.store.root, img.ID, level, t, c, z)

	if f, err := p.rawFile(path); err == nil {
		return readRegion(f, size.SizeX, bps, x, y, w, h)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	key := planeKey(img.ID, img.Version, level, t, c, z)
	plane, err := p.store.decodedPlane(key, path+".zst", size.SizeX*size.SizeY*bps)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plane t=%d c=%d z=%d level %d missing for image %d: %w", t, c, z, level, img.ID, err)
		}
		return nil, err
	}
	return cropRegion(plane, size.SizeX, bps, x, y, w, h), nil
}

func (p *Pixels) rawFile(path string) (*os.File, error) {
	if f, ok := p.files[path]; ok {
		return f, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	p.files[path] = f
	return f, nil
}

// Close releases every plane file held by the accessor. It is safe to call
// more than once.
func (p *Pixels) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.store.openAccessors.Add(-1)

	var firstErr error
	for path, f := range p.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", path, err)
		}
	}
	p.files = nil
	return firstErr
}

func readRegion(r io.ReaderAt, planeWidth, bps, x, y, w, h int) ([]byte, error) {
	out := make([]byte, w*h*bps)
	rowBytes := w * bps
	for row := 0; row < h; row++ {
		off := int64(((y+row)*planeWidth + x) * bps)
		if _, err := r.ReadAt(out[row*rowBytes:(row+1)*rowBytes], off); err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", y+row, err)
		}
	}
	return out, nil
}

func cropRegion(plane []byte, planeWidth, bps, x, y, w, h int) []byte {
	out := make([]byte, w*h*bps)
	rowBytes := w * bps
	for row := 0; row < h; row++ {
		src := ((y+row)*planeWidth + x) * bps
		copy(out[row*rowBytes:(row+1)*rowBytes], plane[src:src+rowBytes])
	}
	return out
}
