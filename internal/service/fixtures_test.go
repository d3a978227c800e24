package service

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ome-tiles/server/internal/cache"
	"github.com/ome-tiles/server/internal/data/repo"
	"github.com/ome-tiles/server/internal/data/table"
	"github.com/ome-tiles/server/internal/zarr"
)

// levelPlane returns a uint16 plane whose sample (x, y) is y*width + x.
func levelPlane(width, height int) []byte {
	out := make([]byte, width*height*2)
	for i := 0; i < width*height; i++ {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(i))
	}
	return out
}

// pyramidImage is a two-level 10x10 image with 8x8 tiles.
func pyramidImage(id int64) *repo.Image {
	return &repo.Image{
		ID: id, Name: "pyramid", PixelType: repo.PixelTypeUint16,
		SizeT: 1, SizeC: 2, SizeZ: 1, SizeY: 10, SizeX: 10,
		Pyramidal:   true,
		TileWidth:   8,
		TileHeight:  8,
		Resolutions: []repo.Resolution{{SizeX: 10, SizeY: 10}, {SizeX: 5, SizeY: 5}},
		Channels: []repo.Channel{
			{Label: "DAPI", Color: "0000FF", Active: true},
			{Label: "GFP", Color: "00FF00", Active: true},
		},
	}
}

func writeImage(t *testing.T, root string, img *repo.Image, compress bool) {
	t.Helper()

	if err := repo.WriteManifest(root, img); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	levels := []repo.Resolution{{SizeX: img.SizeX, SizeY: img.SizeY}}
	if img.Pyramidal {
		levels = img.Resolutions
	}
	for level, res := range levels {
		for tIdx := 0; tIdx < img.SizeT; tIdx++ {
			for c := 0; c < img.SizeC; c++ {
				for z := 0; z < img.SizeZ; z++ {
					if err := repo.WritePlane(root, img.ID, level, tIdx, c, z, levelPlane(res.SizeX, res.SizeY), compress); err != nil {
						t.Fatalf("WritePlane: %v", err)
					}
				}
			}
		}
	}
}

type testEnv struct {
	store  *repo.Store
	cache  *cache.Manager
	tables *table.Store
	zarr   *ZarrService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	writeImage(t, root, pyramidImage(1), false)
	writeImage(t, root, pyramidImage(2), true)

	cm, err := cache.NewManager(cache.Config{PlaneCacheSizeMB: 16, PlaneTTL: time.Minute, DocumentCacheSize: 64})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { cm.Close() })

	store, err := repo.Open(root, cm)
	if err != nil {
		t.Fatalf("repo.Open: %v", err)
	}
	t.Cleanup(store.Close)

	tables, err := table.NewStore(filepath.Join(t.TempDir(), "tables.db"))
	if err != nil {
		t.Fatalf("table.NewStore: %v", err)
	}
	t.Cleanup(func() { tables.Close() })

	return &testEnv{
		store:  store,
		cache:  cm,
		tables: tables,
		zarr:   NewZarrService(ZarrServiceConfig{Source: zarr.RepoSource(store), Cache: cm}),
	}
}

const cellsCSV = `Roi,label,UMAP_1,UMAP_2
10,a,0.5,-1
11,b,1.5,2
12,c,-3,0.25
`

func (e *testEnv) importTable(t *testing.T) int64 {
	t.Helper()

	id, err := e.tables.Import(context.Background(), "cells.csv", strings.NewReader(cellsCSV))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	return id
}
