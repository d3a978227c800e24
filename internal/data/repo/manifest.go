package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	manifestName      = "image.yaml"
	defaultTileLength = 256
)

// manifest is the on-disk form of an Image (image.yaml).
type manifest struct {
	ID          int64                `yaml:"id"`
	Name        string               `yaml:"name"`
	PixelType   string               `yaml:"pixel_type"`
	SizeT       int                  `yaml:"size_t"`
	SizeC       int                  `yaml:"size_c"`
	SizeZ       int                  `yaml:"size_z"`
	SizeY       int                  `yaml:"size_y"`
	SizeX       int                  `yaml:"size_x"`
	Pyramidal   bool                 `yaml:"pyramidal"`
	TileWidth   int                  `yaml:"tile_width,omitempty"`
	TileHeight  int                  `yaml:"tile_height,omitempty"`
	Resolutions []manifestResolution `yaml:"resolutions,omitempty"`
	Channels    []manifestChannel    `yaml:"channels,omitempty"`
	Rendering   manifestRendering    `yaml:"rendering"`
}

type manifestResolution struct {
	SizeX int `yaml:"size_x"`
	SizeY int `yaml:"size_y"`
}

type manifestChannel struct {
	Label  string         `yaml:"label"`
	Color  string         `yaml:"color,omitempty"`
	Active *bool          `yaml:"active,omitempty"`
	Window manifestWindow `yaml:"window"`
}

type manifestWindow struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

type manifestRendering struct {
	DefaultT int    `yaml:"default_t"`
	DefaultZ int    `yaml:"default_z"`
	Model    string `yaml:"model,omitempty"`
}

func imageDir(root string, id int64) string {
	return filepath.Join(root, strconv.FormatInt(id, 10))
}

func manifestPath(root string, id int64) string {
	return filepath.Join(imageDir(root, id), manifestName)
}

// loadManifest reads and validates the manifest of one image.
func loadManifest(root string, id int64) (*Image, error) {
	path := manifestPath(root, id)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %d", ErrImageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest for image %d: %w", id, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest for image %d: %w", id, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidManifest, path, err)
	}
	if m.ID == 0 {
		m.ID = id
	}
	if m.ID != id {
		return nil, fmt.Errorf("%w: %s declares id %d", ErrInvalidManifest, path, m.ID)
	}

	img, err := m.image()
	if err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	img.Version = info.ModTime().UnixNano()
	return img, nil
}

func (m *manifest) image() (*Image, error) {
	pt, err := ParsePixelType(m.PixelType)
	if err != nil {
		return nil, fmt.Errorf("%w: image %d: %v", ErrInvalidManifest, m.ID, err)
	}

	img := &Image{
		ID:        m.ID,
		Name:      m.Name,
		PixelType: pt,
		SizeT:     m.SizeT,
		SizeC:     m.SizeC,
		SizeZ:     m.SizeZ,
		SizeY:     m.SizeY,
		SizeX:     m.SizeX,
		Pyramidal: m.Pyramidal,
		Rendering: Rendering{
			DefaultT: m.Rendering.DefaultT,
			DefaultZ: m.Rendering.DefaultZ,
			Model:    m.Rendering.Model,
		},
	}
	if img.Name == "" {
		img.Name = fmt.Sprintf("image %d", m.ID)
	}
	if img.Rendering.Model == "" {
		img.Rendering.Model = "color"
		if m.SizeC == 1 {
			img.Rendering.Model = "greyscale"
		}
	}

	if m.Pyramidal {
		img.TileWidth, img.TileHeight = m.TileWidth, m.TileHeight
		if img.TileWidth == 0 {
			img.TileWidth = defaultTileLength
		}
		if img.TileHeight == 0 {
			img.TileHeight = defaultTileLength
		}
		if len(m.Resolutions) == 0 {
			img.Resolutions = deriveResolutions(m.SizeX, m.SizeY, img.TileWidth, img.TileHeight)
		} else {
			img.Resolutions = make([]Resolution, len(m.Resolutions))
			for i, r := range m.Resolutions {
				img.Resolutions[i] = Resolution{SizeX: r.SizeX, SizeY: r.SizeY}
			}
		}
	}

	for _, ch := range m.Channels {
		active := true
		if ch.Active != nil {
			active = *ch.Active
		}
		img.Channels = append(img.Channels, Channel{
			Label:  ch.Label,
			Color:  ch.Color,
			Active: active,
			Window: ChannelWindow(ch.Window),
		})
	}
	return img, nil
}

func newManifest(img *Image) manifest {
	m := manifest{
		ID:         img.ID,
		Name:       img.Name,
		PixelType:  string(img.PixelType),
		SizeT:      img.SizeT,
		SizeC:      img.SizeC,
		SizeZ:      img.SizeZ,
		SizeY:      img.SizeY,
		SizeX:      img.SizeX,
		Pyramidal:  img.Pyramidal,
		TileWidth:  img.TileWidth,
		TileHeight: img.TileHeight,
		Rendering: manifestRendering{
			DefaultT: img.Rendering.DefaultT,
			DefaultZ: img.Rendering.DefaultZ,
			Model:    img.Rendering.Model,
		},
	}
	for _, r := range img.Resolutions {
		m.Resolutions = append(m.Resolutions, manifestResolution{SizeX: r.SizeX, SizeY: r.SizeY})
	}
	for _, ch := range img.Channels {
		active := ch.Active
		m.Channels = append(m.Channels, manifestChannel{
			Label:  ch.Label,
			Color:  ch.Color,
			Active: &active,
			Window: manifestWindow(ch.Window),
		})
	}
	return m
}
