// Package service provides business logic for the tile server.
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ome-tiles/server/internal/cache"
	"github.com/ome-tiles/server/internal/data/repo"
	"github.com/ome-tiles/server/internal/zarr"
)

// ZarrServiceConfig contains zarr service configuration.
type ZarrServiceConfig struct {
	Source zarr.Source
	// Cache is optional; without it every document is rebuilt per request.
	Cache *cache.Manager
}

// ZarrService serves the OME-Zarr view of repository images.
type ZarrService struct {
	source  zarr.Source
	fetcher *zarr.Fetcher
	cache   *cache.Manager
}

// NewZarrService creates a new zarr service.
func NewZarrService(cfg ZarrServiceConfig) *ZarrService {
	return &ZarrService{
		source:  cfg.Source,
		fetcher: zarr.NewFetcher(cfg.Source),
		cache:   cfg.Cache,
	}
}

// Image returns the descriptor of an image.
func (s *ZarrService) Image(ctx context.Context, imageID int64) (*repo.Image, error) {
	return s.source.Image(ctx, imageID)
}

// Group returns the .zgroup document.
func (s *ZarrService) Group() ([]byte, error) {
	return json.Marshal(zarr.NewGroupMeta())
}

// Attributes returns the .zattrs document of an image.
func (s *ZarrService) Attributes(ctx context.Context, imageID int64) ([]byte, error) {
	img, err := s.source.Image(ctx, imageID)
	if err != nil {
		return nil, err
	}
	return s.document(cache.DocumentKey(zarr.KeyAttributes, img.ID, -1, img.Version), func() (any, error) {
		return zarr.NewAttributes(img)
	})
}

// ArrayMeta returns the .zarray document of an image at a level.
func (s *ZarrService) ArrayMeta(ctx context.Context, imageID int64, level int) ([]byte, error) {
	img, err := s.source.Image(ctx, imageID)
	if err != nil {
		return nil, err
	}
	return s.document(cache.DocumentKey(zarr.KeyArray, img.ID, level, img.Version), func() (any, error) {
		return zarr.NewArrayMeta(img, level)
	})
}

func (s *ZarrService) document(key string, build func() (any, error)) ([]byte, error) {
	if s.cache != nil {
		if data, ok := s.cache.GetDocument(key); ok {
			return data, nil
		}
	}

	doc, err := build()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if s.cache != nil {
		s.cache.SetDocument(key, data)
	}
	return data, nil
}

// Chunk returns the raw bytes of one chunk of an image at a level. Edge
// chunks are padded to the full chunk shape with the fill value.
func (s *ZarrService) Chunk(ctx context.Context, imageID int64, level int, coord zarr.ChunkCoord) ([]byte, error) {
	img, err := s.source.Image(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if _, err := zarr.DTypeFor(img.PixelType); err != nil {
		return nil, fmt.Errorf("image %d: %w", img.ID, err)
	}

	win, err := zarr.ChunkWindow(img, level, coord)
	if err != nil {
		return nil, err
	}

	plane, err := s.fetcher.FetchPlane(ctx, img, level, coord.T, coord.C, coord.Z, win)
	if err != nil {
		return nil, err
	}
	return zarr.EncodeChunk(plane, zarr.ChunkShape(img))
}
