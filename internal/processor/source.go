package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"squish/internal/codec"
	"squish/pkg/imgutil"
)

// SourceImage is a decoded input, upright when orientation was applied.
type SourceImage struct {
	Image       image.Image
	Bytes       int64
	Kind        imgutil.Kind
	Orientation int
	CameraModel string
}

func decodeSource(data []byte, autoOrient bool) (SourceImage, error) {
	src := SourceImage{Bytes: int64(len(data)), Orientation: 1}

	kind, err := imgutil.DetectHeader(data)
	if err != nil {
		return src, jobError(ErrDecode, err)
	}
	if kind == imgutil.KindUnknown {
		return src, jobError(ErrDecode, errors.New("unrecognized image header"))
	}
	src.Kind = kind

	var img image.Image
	if kind == imgutil.KindHEIF {
		if !codec.HEIFDecoderAvailable() {
			return src, jobError(ErrUnsupportedFormat, errors.New("no HEIF decoder installed"))
		}
		img, err = codec.DecodeHEIF(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return src, jobError(ErrDecode, fmt.Errorf("%s: %w", kind, err))
	}

	// Unreadable EXIF never fails a job; the image is used as stored.
	if kind == imgutil.KindJPEG || kind == imgutil.KindTIFF {
		if info, err := readExif(data); err == nil {
			src.Orientation = info.Orientation
			src.CameraModel = info.CameraModel
		}
	}
	if autoOrient {
		img = applyOrientation(img, src.Orientation)
	}

	src.Image = img
	return src, nil
}
