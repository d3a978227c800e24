package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ome-tiles/server/internal/data/repo"
	"github.com/ome-tiles/server/internal/data/table"
)

func newTestViewer(env *testEnv) *ViewerService {
	return NewViewerService(ViewerServiceConfig{Title: "Lab", Tables: env.tables, Zarr: env.zarr})
}

func TestViewerService_CellsOnly(t *testing.T) {
	env := newTestEnv(t)
	id := env.importTable(t)

	cfg, err := newTestViewer(env).Config(context.Background(), "http://example.org/", id, "UMAP_1", "UMAP_2", nil)
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg.Version != "1.0.0" || cfg.Name != "Lab" {
		t.Errorf("unexpected header %+v", cfg)
	}
	if len(cfg.Datasets) != 1 || len(cfg.Datasets[0].Files) != 1 {
		t.Fatalf("unexpected datasets %+v", cfg.Datasets)
	}
	f := cfg.Datasets[0].Files[0]
	wantURL := "http://example.org/table_vitessce_cells/1/UMAP_1/UMAP_2/"
	if f.Type != "cells" || f.FileType != "cells.json" || f.URL != wantURL {
		t.Errorf("unexpected cells file %+v", f)
	}
	if len(cfg.Layout) != 1 || cfg.Layout[0].Component != "scatterplot" {
		t.Errorf("unexpected layout %+v", cfg.Layout)
	}
	if cfg.CoordinationSpace["embeddingType"]["A"] != "UMAP" {
		t.Errorf("unexpected coordination space %+v", cfg.CoordinationSpace)
	}
}

func TestViewerService_WithImage(t *testing.T) {
	env := newTestEnv(t)
	id := env.importTable(t)
	image := int64(1)

	cfg, err := newTestViewer(env).Config(context.Background(), "https://tiles.example.org", id, "UMAP_1", "UMAP_2", &image)
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	files := cfg.Datasets[0].Files
	if len(files) != 2 || files[1].Type != "raster" || files[1].Options == nil {
		t.Fatalf("expected raster file, got %+v", files)
	}
	raster := files[1].Options
	if len(raster.Images) != 1 {
		t.Fatalf("unexpected raster images %+v", raster.Images)
	}
	img := raster.Images[0]
	if img.URL != "https://tiles.example.org/zarr/1.zarr" || img.Type != "zarr" || !img.Metadata.IsPyramid {
		t.Errorf("unexpected raster image %+v", img)
	}
	channels := img.Metadata.Dimensions[1]
	if channels.Field != "channel" || len(channels.Values) != 2 || channels.Values[1] != "GFP" {
		t.Errorf("unexpected channel dimension %+v", channels)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "null") {
		t.Errorf("config contains null values: %s", data)
	}

	components := map[string]bool{}
	for _, c := range cfg.Layout {
		components[c.Component] = true
	}
	for _, want := range []string{"scatterplot", "spatial", "layerController"} {
		if !components[want] {
			t.Errorf("layout missing %s", want)
		}
	}
}

func TestViewerService_Errors(t *testing.T) {
	env := newTestEnv(t)
	id := env.importTable(t)
	v := newTestViewer(env)
	ctx := context.Background()

	if _, err := v.Config(ctx, "http://x", id, "UMAP_1", "nope", nil); !errors.Is(err, table.ErrColumnNotFound) {
		t.Errorf("expected ErrColumnNotFound, got %v", err)
	}
	missing := int64(77)
	if _, err := v.Config(ctx, "http://x", id, "UMAP_1", "UMAP_2", &missing); !errors.Is(err, repo.ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound, got %v", err)
	}
}
