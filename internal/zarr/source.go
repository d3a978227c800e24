package zarr

import (
	"context"

	"github.com/ome-tiles/server/internal/data/repo"
)

// Source is the backing image repository as seen by the gateway.
type Source interface {
	Image(ctx context.Context, id int64) (*repo.Image, error)
	OpenPixels(ctx context.Context, id int64) (PixelAccessor, error)
}

// PixelAccessor reads pixel data of one image. Tile levels use repository
// numbering. Samples are little-endian and row-major.
type PixelAccessor interface {
	Plane(z, c, t int) ([]byte, error)
	Tile(level, z, c, t, x, y, w, h int) ([]byte, error)
	Close() error
}

type repoSource struct {
	store *repo.Store
}

// RepoSource adapts a repository store to Source.
func RepoSource(store *repo.Store) Source {
	return repoSource{store: store}
}

func (s repoSource) Image(ctx context.Context, id int64) (*repo.Image, error) {
	return s.store.Image(ctx, id)
}

func (s repoSource) OpenPixels(ctx context.Context, id int64) (PixelAccessor, error) {
	px, err := s.store.OpenPixels(ctx, id)
	if err != nil {
		return nil, err
	}
	return px, nil
}
