// Package render provides channel-composite image rendering using fogleman/gg.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/ome-tiles/server/internal/data/repo"
	"github.com/ome-tiles/server/internal/zarr"
	"github.com/ome-tiles/server/pkg/colormap"
	"golang.org/x/sync/errgroup"
)

// ErrPlaneOutOfRange is returned for a z or t index the image does not have.
var ErrPlaneOutOfRange = errors.New("plane out of range")

// Config contains renderer configuration.
type Config struct {
	// ThumbnailSize bounds the longest side of the output.
	ThumbnailSize int
}

// ThumbnailRenderer renders channel composites of the lowest resolution level.
type ThumbnailRenderer struct {
	config     Config
	fetcher    *zarr.Fetcher
	bufferPool sync.Pool
}

// NewThumbnailRenderer creates a new renderer reading pixels from src.
func NewThumbnailRenderer(src zarr.Source, cfg Config) *ThumbnailRenderer {
	if cfg.ThumbnailSize <= 0 {
		cfg.ThumbnailSize = 256
	}
	return &ThumbnailRenderer{
		config:  cfg,
		fetcher: zarr.NewFetcher(src),
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 32*1024))
			},
		},
	}
}

type channelLayer struct {
	channel    int
	ramp       colormap.LinearColormap
	start, end float64
	plane      zarr.Plane
}

// Render composites the active channels of plane (z, t) and encodes it as PNG.
func (r *ThumbnailRenderer) Render(ctx context.Context, img *repo.Image, z, t int) ([]byte, error) {
	if z < 0 || z >= img.SizeZ || t < 0 || t >= img.SizeT {
		return nil, fmt.Errorf("%w: z=%d t=%d for image %d", ErrPlaneOutOfRange, z, t, img.ID)
	}
	dt, err := zarr.DTypeFor(img.PixelType)
	if err != nil {
		return nil, err
	}
	shape, err := zarr.ResolveShape(img, 0)
	if err != nil {
		return nil, err
	}
	width, height := shape[zarr.AxisX], shape[zarr.AxisY]
	win := zarr.Window{Width: width, Height: height}

	layers := activeLayers(img, dt)
	g, gctx := errgroup.WithContext(ctx)
	for i := range layers {
		i := i
		g.Go(func() error {
			p, err := r.fetcher.FetchPlane(gctx, img, 0, t, layers[i].channel, z, win)
			if err != nil {
				return err
			}
			layers[i].plane = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	composite := image.NewRGBA(image.Rect(0, 0, width, height))
	blend(composite, layers)

	return r.encode(scale(composite, r.config.ThumbnailSize))
}

func activeLayers(img *repo.Image, dt zarr.DType) []channelLayer {
	lo, hi := dt.Range()
	var layers []channelLayer
	for c := 0; c < img.SizeC; c++ {
		ch := repo.Channel{Active: true}
		if c < len(img.Channels) {
			ch = img.Channels[c]
		}
		if !ch.Active {
			continue
		}
		tint, err := colormap.ParseHex(ch.Color)
		if err != nil {
			tint = colormap.DefaultChannelColor(c, img.SizeC)
		}
		start, end := ch.Window.Start, ch.Window.End
		if start >= end {
			start, end = lo, hi
		}
		layers = append(layers, channelLayer{
			channel: c,
			ramp:    colormap.Ramp(tint),
			start:   start,
			end:     end,
		})
	}
	return layers
}

// blend adds the tinted channels into dst, saturating at full intensity.
func blend(dst *image.RGBA, layers []channelLayer) {
	bounds := dst.Bounds()
	width := bounds.Dx()
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < width; x++ {
			var rs, gs, bs float64
			for _, l := range layers {
				v := l.plane.DType.Sample(l.plane.Data, y*width+x)
				c := l.ramp.RGBAAt((v - l.start) / (l.end - l.start))
				rs += float64(c.R)
				gs += float64(c.G)
				bs += float64(c.B)
			}
			dst.SetRGBA(x, y, color.RGBA{R: clamp(rs), G: clamp(gs), B: clamp(bs), A: 255})
		}
	}
}

func clamp(v float64) uint8 {
	return uint8(math.Min(v, 255))
}

// scale fits the composite into a size x size box, keeping the aspect ratio.
func scale(src *image.RGBA, size int) *gg.Context {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	longest := max(w, h)
	if longest <= size {
		return gg.NewContextForRGBA(src)
	}

	f := float64(size) / float64(longest)
	outW := max(1, int(math.Round(float64(w)*f)))
	outH := max(1, int(math.Round(float64(h)*f)))

	dc := gg.NewContext(outW, outH)
	dc.SetColor(color.Black)
	dc.Clear()
	dc.Scale(float64(outW)/float64(w), float64(outH)/float64(h))
	dc.DrawImage(src, 0, 0)
	return dc
}

func (r *ThumbnailRenderer) encode(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, err
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
