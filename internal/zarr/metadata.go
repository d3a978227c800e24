package zarr

import (
	"strconv"

	"github.com/ome-tiles/server/internal/data/repo"
	"github.com/ome-tiles/server/pkg/colormap"
)

// Metadata keys of a zarr v2 hierarchy.
const (
	KeyGroup      = ".zgroup"
	KeyArray      = ".zarray"
	KeyAttributes = ".zattrs"
)

// Format is the zarr storage specification version served.
const Format = 2

// multiscalesVersion is the OME-Zarr multiscales version written to .zattrs.
const multiscalesVersion = "0.1"

// GroupMeta is the .zgroup document.
type GroupMeta struct {
	ZarrFormat int `json:"zarr_format"`
}

// NewGroupMeta returns the group marker.
func NewGroupMeta() GroupMeta {
	return GroupMeta{ZarrFormat: Format}
}

// CompressorMeta identifies a chunk compressor. Chunks are served
// uncompressed, so it is always null in practice.
type CompressorMeta struct {
	ID string `json:"id"`
}

// FilterMeta identifies a chunk filter.
type FilterMeta struct {
	ID string `json:"id"`
}

// ArrayMeta is the .zarray document of one resolution level.
type ArrayMeta struct {
	Chunks     Shape           `json:"chunks"`
	Compressor *CompressorMeta `json:"compressor"`
	DType      DType           `json:"dtype"`
	FillValue  int             `json:"fill_value"`
	Filters    []FilterMeta    `json:"filters"`
	Order      string          `json:"order"`
	Shape      Shape           `json:"shape"`
	ZarrFormat int             `json:"zarr_format"`
}

// NewArrayMeta describes an image at a gateway level.
func NewArrayMeta(img *repo.Image, level int) (*ArrayMeta, error) {
	dt, err := DTypeFor(img.PixelType)
	if err != nil {
		return nil, err
	}
	shape, err := ResolveShape(img, level)
	if err != nil {
		return nil, err
	}
	return &ArrayMeta{
		Chunks:     ChunkShape(img),
		DType:      dt,
		FillValue:  0,
		Order:      "C",
		Shape:      shape,
		ZarrFormat: Format,
	}, nil
}

// Attributes is the .zattrs document of an image group.
type Attributes struct {
	Multiscales []Multiscale `json:"multiscales"`
	Omero       Omero        `json:"omero"`
}

// Multiscale lists the resolution levels of an image.
type Multiscale struct {
	Version  string    `json:"version"`
	Name     string    `json:"name,omitempty"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is one resolution level.
type Dataset struct {
	Path string `json:"path"`
}

// Omero carries the image's rendering settings.
type Omero struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name,omitempty"`
	Version  string         `json:"version"`
	Channels []OmeroChannel `json:"channels"`
	RDefs    RDefs          `json:"rdefs"`
}

// OmeroChannel is the rendering descriptor of one channel.
type OmeroChannel struct {
	Active      bool        `json:"active"`
	Coefficient float64     `json:"coefficient"`
	Color       string      `json:"color"`
	Family      string      `json:"family"`
	Inverted    bool        `json:"inverted"`
	Label       string      `json:"label"`
	Window      OmeroWindow `json:"window"`
}

// OmeroWindow is a channel's rendering window.
type OmeroWindow struct {
	End   float64 `json:"end"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Start float64 `json:"start"`
}

// RDefs holds the default plane and colour model.
type RDefs struct {
	DefaultT int    `json:"defaultT"`
	DefaultZ int    `json:"defaultZ"`
	Model    string `json:"model"`
}

// NewAttributes builds the multiscales and omero attributes of an image.
// Datasets are listed from the highest resolution (gateway level n-1) to the
// lowest (gateway level 0).
func NewAttributes(img *repo.Image) (*Attributes, error) {
	dt, err := DTypeFor(img.PixelType)
	if err != nil {
		return nil, err
	}

	n := LevelCount(img)
	datasets := make([]Dataset, 0, n)
	for level := n - 1; level >= 0; level-- {
		datasets = append(datasets, Dataset{Path: strconv.Itoa(level)})
	}

	channels := make([]OmeroChannel, img.SizeC)
	for i := range channels {
		channels[i] = omeroChannel(img, dt, i)
	}

	return &Attributes{
		Multiscales: []Multiscale{{
			Version:  multiscalesVersion,
			Name:     img.Name,
			Datasets: datasets,
		}},
		Omero: Omero{
			ID:       img.ID,
			Name:     img.Name,
			Version:  multiscalesVersion,
			Channels: channels,
			RDefs: RDefs{
				DefaultT: img.Rendering.DefaultT,
				DefaultZ: img.Rendering.DefaultZ,
				Model:    img.Rendering.Model,
			},
		},
	}, nil
}

func omeroChannel(img *repo.Image, dt DType, i int) OmeroChannel {
	ch := repo.Channel{Active: true}
	if i < len(img.Channels) {
		ch = img.Channels[i]
	}

	label := ch.Label
	if label == "" {
		label = strconv.Itoa(i)
	}
	color := colormap.Hex(colormap.DefaultChannelColor(i, img.SizeC))
	if c, err := colormap.ParseHex(ch.Color); err == nil {
		color = colormap.Hex(c)
	}

	win := OmeroWindow{
		End:   ch.Window.End,
		Max:   ch.Window.Max,
		Min:   ch.Window.Min,
		Start: ch.Window.Start,
	}
	if win == (OmeroWindow{}) {
		lo, hi := dt.Range()
		win = OmeroWindow{Start: lo, End: hi, Min: lo, Max: hi}
	}

	return OmeroChannel{
		Active:      ch.Active,
		Coefficient: 1,
		Color:       color,
		Family:      "linear",
		Inverted:    false,
		Label:       label,
		Window:      win,
	}
}
