package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ome-tiles/server/internal/data/table"
	"github.com/ome-tiles/server/internal/zarr"
)

// vitessceVersion is the view config schema version produced.
const vitessceVersion = "1.0.0"

// rasterSchemaVersion is the raster.json schema version produced.
const rasterSchemaVersion = "0.0.2"

// ViewerConfig is a Vitessce view config.
type ViewerConfig struct {
	Version           string                       `json:"version"`
	Name              string                       `json:"name"`
	Description       string                       `json:"description"`
	Datasets          []ViewerDataset              `json:"datasets"`
	CoordinationSpace map[string]map[string]string `json:"coordinationSpace"`
	InitStrategy      string                       `json:"initStrategy"`
	Layout            []ViewerComponent            `json:"layout"`
}

// ViewerDataset groups the files shown together.
type ViewerDataset struct {
	UID   string       `json:"uid"`
	Name  string       `json:"name"`
	Files []ViewerFile `json:"files"`
}

// ViewerFile is one data file of a dataset.
type ViewerFile struct {
	Type     string         `json:"type"`
	FileType string         `json:"fileType"`
	URL      string         `json:"url,omitempty"`
	Options  *RasterOptions `json:"options,omitempty"`
}

// RasterOptions is an inline raster.json document.
type RasterOptions struct {
	SchemaVersion string        `json:"schemaVersion"`
	RenderLayers  []string      `json:"renderLayers"`
	Images        []RasterImage `json:"images"`
}

// RasterImage points the viewer at a zarr image.
type RasterImage struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	URL      string         `json:"url"`
	Metadata RasterMetadata `json:"metadata"`
}

// RasterMetadata describes the axes of a zarr image.
type RasterMetadata struct {
	Dimensions []RasterDimension `json:"dimensions"`
	IsPyramid  bool              `json:"isPyramid"`
	IsRGB      bool              `json:"isRgb"`
}

// RasterDimension is one axis of a zarr image.
type RasterDimension struct {
	Field  string   `json:"field"`
	Type   string   `json:"type"`
	Values []string `json:"values,omitempty"`
}

// ViewerComponent places one view in the grid layout.
type ViewerComponent struct {
	Component          string            `json:"component"`
	CoordinationScopes map[string]string `json:"coordinationScopes,omitempty"`
	X                  int               `json:"x"`
	Y                  int               `json:"y"`
	W                  int               `json:"w"`
	H                  int               `json:"h"`
}

// ViewerServiceConfig contains viewer service configuration.
type ViewerServiceConfig struct {
	Title  string
	Tables *table.Store
	Zarr   *ZarrService
}

// ViewerService builds Vitessce view configs over stored tables and images.
type ViewerService struct {
	title  string
	tables *table.Store
	zarr   *ZarrService
}

// NewViewerService creates a new viewer service.
func NewViewerService(cfg ViewerServiceConfig) *ViewerService {
	title := cfg.Title
	if title == "" {
		title = "OME-Zarr tiles"
	}
	return &ViewerService{title: title, tables: cfg.Tables, zarr: cfg.Zarr}
}

// Config builds the view config of a table embedding. baseURL is the
// externally visible root of this server. A non-nil imageID adds the image
// as a raster layer shown in a spatial view.
func (s *ViewerService) Config(ctx context.Context, baseURL string, tableID int64, col1, col2 string, imageID *int64) (*ViewerConfig, error) {
	info, err := s.tables.Info(ctx, tableID)
	if err != nil {
		return nil, err
	}
	cols, err := s.tables.Headers(ctx, tableID)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{col1, col2} {
		if table.ColumnIndex(cols, name) < 0 {
			return nil, fmt.Errorf("%w: %q in table %d", table.ErrColumnNotFound, name, tableID)
		}
	}

	base := strings.TrimSuffix(baseURL, "/")
	cellsURL := fmt.Sprintf("%s/table_vitessce_cells/%d/%s/%s/", base,
		tableID, url.PathEscape(col1), url.PathEscape(col2))

	ds := ViewerDataset{
		UID:  "A",
		Name: info.Name,
		Files: []ViewerFile{{
			Type:     "cells",
			FileType: "cells.json",
			URL:      cellsURL,
		}},
	}
	layout := []ViewerComponent{{
		Component:          "scatterplot",
		CoordinationScopes: map[string]string{"embeddingType": "A"},
		X:                  0, Y: 0, W: 12, H: 12,
	}}

	if imageID != nil {
		raster, err := s.raster(ctx, base, *imageID)
		if err != nil {
			return nil, err
		}
		ds.Files = append(ds.Files, ViewerFile{Type: "raster", FileType: "raster.json", Options: raster})
		layout = []ViewerComponent{
			{Component: "scatterplot", CoordinationScopes: map[string]string{"embeddingType": "A"}, X: 0, Y: 0, W: 5, H: 12},
			{Component: "spatial", X: 5, Y: 0, W: 5, H: 12},
			{Component: "layerController", X: 10, Y: 0, W: 2, H: 12},
		}
	}

	return &ViewerConfig{
		Version:     vitessceVersion,
		Name:        s.title,
		Description: fmt.Sprintf("%s: %s vs %s", info.Name, col1, col2),
		Datasets:    []ViewerDataset{ds},
		CoordinationSpace: map[string]map[string]string{
			"embeddingType": {"A": embeddingName},
		},
		InitStrategy: "auto",
		Layout:       layout,
	}, nil
}

func (s *ViewerService) raster(ctx context.Context, base string, imageID int64) (*RasterOptions, error) {
	img, err := s.zarr.Image(ctx, imageID)
	if err != nil {
		return nil, err
	}
	attrs, err := zarr.NewAttributes(img)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(attrs.Omero.Channels))
	for i, ch := range attrs.Omero.Channels {
		labels[i] = ch.Label
	}
	name := img.Name
	if name == "" {
		name = fmt.Sprintf("image %d", img.ID)
	}

	return &RasterOptions{
		SchemaVersion: rasterSchemaVersion,
		RenderLayers:  []string{name},
		Images: []RasterImage{{
			Name: name,
			Type: "zarr",
			URL:  fmt.Sprintf("%s/zarr/%d.zarr", base, img.ID),
			Metadata: RasterMetadata{
				Dimensions: []RasterDimension{
					{Field: "t", Type: "quantitative"},
					{Field: "channel", Type: "nominal", Values: labels},
					{Field: "z", Type: "quantitative"},
					{Field: "y", Type: "quantitative"},
					{Field: "x", Type: "quantitative"},
				},
				IsPyramid: img.Pyramidal,
			},
		}},
	}, nil
}
