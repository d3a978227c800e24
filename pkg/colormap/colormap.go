// Package colormap provides channel colours for image rendering.
package colormap

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Colormap maps normalized values [0, 1] to colors.
type Colormap interface {
	At(t float64) color.Color
}

// LinearColormap is a linear interpolation colormap.
type LinearColormap struct {
	colors []color.RGBA
}

// At returns the color at position t (0-1).
func (c LinearColormap) At(t float64) color.Color {
	return c.RGBAAt(t)
}

// RGBAAt is At without the interface conversion.
func (c LinearColormap) RGBAAt(t float64) color.RGBA {
	if t <= 0 {
		return c.colors[0]
	}
	if t >= 1 {
		return c.colors[len(c.colors)-1]
	}

	idx := t * float64(len(c.colors)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(c.colors) {
		upper = len(c.colors) - 1
	}

	frac := idx - float64(lower)
	return interpolate(c.colors[lower], c.colors[upper], frac)
}

func interpolate(c1, c2 color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c1.R) + t*(float64(c2.R)-float64(c1.R))),
		G: uint8(float64(c1.G) + t*(float64(c2.G)-float64(c1.G))),
		B: uint8(float64(c1.B) + t*(float64(c2.B)-float64(c1.B))),
		A: 255,
	}
}

// Ramp returns a colormap from black to c, the lookup table of a single
// fluorescence channel.
func Ramp(c color.RGBA) LinearColormap {
	return LinearColormap{colors: []color.RGBA{{0, 0, 0, 255}, {c.R, c.G, c.B, 255}}}
}

// Channel palette used when an image does not define channel colours.
var channelPalette = []color.RGBA{
	{0, 0, 255, 255},   // Blue
	{0, 255, 0, 255},   // Green
	{255, 0, 0, 255},   // Red
	{255, 0, 255, 255}, // Magenta
	{0, 255, 255, 255}, // Cyan
	{255, 255, 0, 255}, // Yellow
}

// White is the colour of single-channel images.
var White = color.RGBA{255, 255, 255, 255}

// DefaultChannelColor returns the default colour of channel i of n.
func DefaultChannelColor(i, n int) color.RGBA {
	if n <= 1 {
		return White
	}
	return channelPalette[i%len(channelPalette)]
}

// ParseHex parses an RRGGBB colour, with or without a leading '#'.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// Hex formats a colour as upper-case RRGGBB.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}
