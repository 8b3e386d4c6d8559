package codec

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// flatten composites img over a white background when it carries any
// transparency, for formats without an alpha channel.
func flatten(img image.Image) image.Image {
	if isOpaque(img) {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// toNRGBA normalizes paletted and gray-alpha sources so alpha-capable
// encoders always see a direct-color image.
func toNRGBA(img image.Image) image.Image {
	switch img.(type) {
	case *image.Paletted:
		return imaging.Clone(img)
	default:
		return img
	}
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
