package codec

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

// Qualities above 95 grow files sharply for no visible gain.
const (
	minQuality = 1
	maxQuality = 95
)

type jpegStrategy struct{}

func (jpegStrategy) Format() Format     { return JPEG }
func (jpegStrategy) Extension() string  { return ".jpg" }
func (jpegStrategy) Controllable() bool { return true }
func (jpegStrategy) Range() (int, int)  { return minQuality, maxQuality }
func (jpegStrategy) Available() bool    { return true }

func (jpegStrategy) Prepare(img image.Image) image.Image { return flatten(img) }

func (jpegStrategy) Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(256 * 1024)
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
