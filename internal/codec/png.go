package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// pngLevels is indexed by knob value: the strongest compression (smallest
// file) sits at 0 and stored blocks (largest file) at the top.
var pngLevels = []png.CompressionLevel{
	png.BestCompression,
	png.DefaultCompression,
	png.BestSpeed,
	png.NoCompression,
}

type pngStrategy struct{}

func (pngStrategy) Format() Format     { return PNG }
func (pngStrategy) Extension() string  { return ".png" }
func (pngStrategy) Controllable() bool { return true }
func (pngStrategy) Range() (int, int)  { return 0, len(pngLevels) - 1 }
func (pngStrategy) Available() bool    { return true }

func (pngStrategy) Prepare(img image.Image) image.Image { return toNRGBA(img) }

// Encode returns the smallest encoding among levels knob..hi. On
// incompressible input a faster level can come out a few bytes smaller than
// a stronger one, and taking the minimum keeps size non-decreasing in knob.
func (pngStrategy) Encode(img image.Image, knob int) ([]byte, error) {
	if knob < 0 || knob >= len(pngLevels) {
		return nil, fmt.Errorf("png: compression knob %d out of range", knob)
	}
	var best []byte
	for k := len(pngLevels) - 1; k >= knob; k-- {
		data, err := encodePNGLevel(img, pngLevels[k])
		if err != nil {
			return nil, err
		}
		if best == nil || len(data) < len(best) {
			best = data
		}
	}
	return best, nil
}

func encodePNGLevel(img image.Image, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
