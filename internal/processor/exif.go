package processor

import (
	"errors"
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
)

// ExifInfo is the subset of EXIF that matters when re-encoding.
type ExifInfo struct {
	// Orientation is the EXIF orientation tag, 1 when absent.
	Orientation int
	CameraModel string
}

// readExif locates the EXIF block anywhere in data (a JPEG APP1 segment or
// a TIFF header) and reads the primary IFD.
func readExif(data []byte) (ExifInfo, error) {
	info := ExifInfo{Orientation: 1}

	raw, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errorsIsNoExif(err) {
			return info, nil
		}
		return info, err
	}

	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return info, err
	}

	for _, tag := range tags {
		// IFD1 describes the embedded thumbnail.
		if tag.IfdPath != "IFD" {
			continue
		}
		switch tag.TagName {
		case "Orientation":
			if o := orientationValue(tag); o >= 1 && o <= 8 {
				info.Orientation = o
			}
		case "Model":
			if s, ok := tag.Value.(string); ok {
				info.CameraModel = strings.TrimSpace(strings.TrimRight(s, "\x00"))
			}
		}
	}

	return info, nil
}

func orientationValue(tag exif.ExifTag) int {
	if v, ok := tag.Value.([]uint16); ok && len(v) > 0 {
		return int(v[0])
	}
	n, err := strconv.Atoi(strings.TrimSpace(tag.FormattedFirst))
	if err != nil {
		return 0
	}
	return n
}

// applyOrientation turns img upright according to an EXIF orientation.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func errorsIsNoExif(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exif.ErrNoExif) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}
