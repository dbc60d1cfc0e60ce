package translate

import (
	"errors"
	"fmt"

	"github.com/camnode/camnode/internal/graph"
)

// SensorLayout selects the shape of the translated pixel array.
type SensorLayout string

// Sensor layouts.
const (
	LayoutMonochrome SensorLayout = "monochrome"
	LayoutColor      SensorLayout = "color"
	LayoutBayer      SensorLayout = "bayer"
)

// ExtractionMode selects the per-pixel value for monochrome output.
type ExtractionMode string

// Extraction modes.
const (
	ModeRed       ExtractionMode = "red"
	ModeGreen     ExtractionMode = "green"
	ModeBlue      ExtractionMode = "blue"
	ModeLuminance ExtractionMode = "luminance"
)

// ErrUnsupportedLayout is returned for layouts this device class does
// not implement. Bayer decode is never silently degraded to another
// layout.
var ErrUnsupportedLayout = errors.New("unsupported sensor layout")

// Pixels is a translated frame: row-major, pixel (0,0) at the top
// left, regardless of the capture source's native scan order.
type Pixels struct {
	Width    int
	Height   int
	Channels int
	Data     []uint8
}

// At returns the sample at (x, y, channel).
func (p Pixels) At(x, y, channel int) uint8 {
	return p.Data[(y*p.Width+x)*p.Channels+channel]
}

// Translate converts one raw frame into the requested layout. Raw
// bytes are interpreted through the geometry: stride gives the row
// length and Channels the samples per pixel (one for mono sources,
// three for interleaved RGB; zero counts as one). Bottom-up sources
// are re-oriented here so every consumer sees top-left origin.
func Translate(raw []byte, geometry graph.Geometry, layout SensorLayout, mode ExtractionMode) (Pixels, error) {
	switch layout {
	case LayoutMonochrome, LayoutColor:
	case LayoutBayer:
		return Pixels{}, fmt.Errorf("%w: bayer decode is not implemented for this device", ErrUnsupportedLayout)
	default:
		return Pixels{}, fmt.Errorf("%w: %q", ErrUnsupportedLayout, layout)
	}

	srcChannels := geometry.Channels
	if srcChannels == 0 {
		srcChannels = 1
	}
	if srcChannels != 1 && srcChannels != 3 {
		return Pixels{}, fmt.Errorf("unsupported channel count %d", srcChannels)
	}
	if geometry.Width <= 0 || geometry.Height <= 0 || geometry.Stride < geometry.Width*srcChannels {
		return Pixels{}, fmt.Errorf("invalid geometry %+v", geometry)
	}
	if len(raw) < geometry.FrameSize() {
		return Pixels{}, fmt.Errorf("frame is %d bytes, geometry requires %d", len(raw), geometry.FrameSize())
	}

	outChannels := 1
	if layout == LayoutColor {
		outChannels = 3
	}

	out := Pixels{
		Width:    geometry.Width,
		Height:   geometry.Height,
		Channels: outChannels,
		Data:     make([]uint8, geometry.Width*geometry.Height*outChannels),
	}

	for y := 0; y < geometry.Height; y++ {
		srcY := y
		if geometry.BottomUp {
			srcY = geometry.Height - 1 - y
		}
		row := raw[srcY*geometry.Stride:]
		for x := 0; x < geometry.Width; x++ {
			src := row[x*srcChannels:]
			dst := (y*geometry.Width + x) * outChannels
			if layout == LayoutColor {
				if srcChannels == 3 {
					out.Data[dst] = src[0]
					out.Data[dst+1] = src[1]
					out.Data[dst+2] = src[2]
				} else {
					out.Data[dst] = src[0]
					out.Data[dst+1] = src[0]
					out.Data[dst+2] = src[0]
				}
				continue
			}
			out.Data[dst] = extract(src, srcChannels, mode)
		}
	}
	return out, nil
}

// extract picks the monochrome value for one pixel. Mono sources have
// a single sample; every mode returns it unchanged.
func extract(src []uint8, srcChannels int, mode ExtractionMode) uint8 {
	if srcChannels == 1 {
		return src[0]
	}
	switch mode {
	case ModeRed:
		return src[0]
	case ModeGreen:
		return src[1]
	case ModeBlue:
		return src[2]
	default:
		return luminance(src[0], src[1], src[2])
	}
}

// luminance computes the ITU-R BT.601 weighted sum in integer
// arithmetic, rounded to nearest.
func luminance(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b) + 500) / 1000)
}
