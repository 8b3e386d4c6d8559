package codec

import (
	"bytes"
	"image"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// bmpStrategy and tiffStrategy write uncompressed rasters. They can encode
// but have nothing to search over.

type bmpStrategy struct{}

func (bmpStrategy) Format() Format                      { return BMP }
func (bmpStrategy) Extension() string                   { return ".bmp" }
func (bmpStrategy) Controllable() bool                  { return false }
func (bmpStrategy) Range() (int, int)                   { return 0, 0 }
func (bmpStrategy) Available() bool                     { return true }
func (bmpStrategy) Prepare(img image.Image) image.Image { return img }

func (bmpStrategy) Encode(img image.Image, _ int) ([]byte, error) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type tiffStrategy struct{}

func (tiffStrategy) Format() Format                      { return TIFF }
func (tiffStrategy) Extension() string                   { return ".tiff" }
func (tiffStrategy) Controllable() bool                  { return false }
func (tiffStrategy) Range() (int, int)                   { return 0, 0 }
func (tiffStrategy) Available() bool                     { return true }
func (tiffStrategy) Prepare(img image.Image) image.Image { return img }

func (tiffStrategy) Encode(img image.Image, _ int) ([]byte, error) {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
