package translate

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Thumbnail downscales translated pixels to fit within maxWidth x
// maxHeight, preserving aspect ratio. Frames already small enough are
// returned at their native size.
func Thumbnail(p Pixels, maxWidth, maxHeight int) (image.Image, error) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, fmt.Errorf("invalid thumbnail bounds %dx%d", maxWidth, maxHeight)
	}

	src, err := toImage(p)
	if err != nil {
		return nil, err
	}

	width, height := p.Width, p.Height
	if width <= maxWidth && height <= maxHeight {
		return src, nil
	}

	scale := float64(maxWidth) / float64(width)
	if s := float64(maxHeight) / float64(height); s < scale {
		scale = s
	}
	dstW := int(float64(width) * scale)
	dstH := int(float64(height) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// toImage wraps pixels in a standard image without copying per-pixel
// through interfaces.
func toImage(p Pixels) (image.Image, error) {
	switch p.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
		copy(img.Pix, p.Data)
		return img, nil
	case 3:
		img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
		for i := 0; i < p.Width*p.Height; i++ {
			img.Pix[i*4] = p.Data[i*3]
			img.Pix[i*4+1] = p.Data[i*3+1]
			img.Pix[i*4+2] = p.Data[i*3+2]
			img.Pix[i*4+3] = 0xff
		}
		return img, nil
	default:
		return nil, fmt.Errorf("cannot render %d-channel pixels", p.Channels)
	}
}
