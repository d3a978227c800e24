package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"
)

// PlaneCache caches decoded source planes.
type PlaneCache interface {
	GetPlane(key string) ([]byte, bool)
	SetPlane(key string, data []byte) error
}

// Store provides read access to the images under a repository root.
type Store struct {
	root    string
	cache   PlaneCache
	decoder *zstd.Decoder
	decodes singleflight.Group

	openAccessors atomic.Int64
}

// Open opens the repository rooted at root. cache may be nil.
func Open(root string, cache PlaneCache) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open image repository: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("image repository %s is not a directory", root)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Store{
		root:    filepath.Clean(root),
		cache:   cache,
		decoder: decoder,
	}, nil
}

// Root returns the repository root directory.
func (s *Store) Root() string {
	return s.root
}

// Image loads the description of one image.
func (s *Store) Image(ctx context.Context, id int64) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return loadManifest(s.root, id)
}

// OpenPixels acquires a pixel accessor for an image. The caller must Close it.
func (s *Store) OpenPixels(ctx context.Context, id int64) (*Pixels, error) {
	img, err := s.Image(ctx, id)
	if err != nil {
		return nil, err
	}
	s.openAccessors.Add(1)
	return &Pixels{
		store: s,
		img:   img,
		files: make(map[string]*os.File),
	}, nil
}

// OpenAccessors reports how many pixel accessors are currently open.
func (s *Store) OpenAccessors() int64 {
	return s.openAccessors.Load()
}

// Close releases resources.
func (s *Store) Close() {
	if s.decoder != nil {
		s.decoder.Close()
	}
}

func planeFileName(t, c, z int) string {
	return fmt.Sprintf("%d_%d_%d.raw", t, c, z)
}

func planePath(root string, id int64, level, t, c, z int) string {
	return filepath.Join(imageDir(root, id), "levels", fmt.Sprint(level), planeFileName(t, c, z))
}

func planeKey(id int64, version int64, level, t, c, z int) string {
	return fmt.Sprintf("plane:%d@%d/%d/%d.%d.%d", id, version, level, t, c, z)
}

// decodedPlane returns a decompressed .zst plane, consulting the plane cache
// and collapsing concurrent decodes of the same plane.
func (s *Store) decodedPlane(key, path string, size int) ([]byte, error) {
	if s.cache != nil {
		if data, ok := s.cache.GetPlane(key); ok && len(data) == size {
			return data, nil
		}
	}

	v, err, _ := s.decodes.Do(key, func() (interface{}, error) {
		compressed, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data, err := s.decoder.DecodeAll(compressed, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress failed for %s: %w", path, err)
		}
		if len(data) != size {
			return nil, fmt.Errorf("plane %s has %d bytes, expected %d", path, len(data), size)
		}
		if s.cache != nil {
			// Planes larger than a cache shard are simply not cached.
			_ = s.cache.SetPlane(key, data)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
