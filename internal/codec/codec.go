// Package codec holds the per-format encoding strategies.
//
// Each Strategy knows which knob governs output size for its format, the
// knob's usable range, and how to encode an in-memory image at a given knob
// value. Knob ranges are normalized so that a higher value always means a
// larger encoding.
package codec

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"squish/pkg/imgutil"
)

var (
	// ErrUnsupported is returned when a format has no strategy or its
	// strategy cannot run on this machine.
	ErrUnsupported = errors.New("codec: unsupported format")
	// ErrUncontrollable is returned when asked to search a format without a
	// size knob.
	ErrUncontrollable = errors.New("codec: format has no size control")
)

// Format is an encode target.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WEBP Format = "webp"
	HEIF Format = "heif"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	// Original re-encodes every file in its own source format.
	Original Format = "original"
)

// OutputFormats lists the formats accepted as a batch output format.
var OutputFormats = []Format{JPEG, PNG, WEBP, HEIF, Original}

// ParseFormat maps user input such as "jpg" or "HEIC" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WEBP, nil
	case "heif", "heic":
		return HEIF, nil
	case "original", "keep", "":
		return Original, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// FromKind returns the Format matching a sniffed source kind.
func FromKind(kind imgutil.Kind) (Format, error) {
	switch kind {
	case imgutil.KindJPEG:
		return JPEG, nil
	case imgutil.KindPNG:
		return PNG, nil
	case imgutil.KindWEBP:
		return WEBP, nil
	case imgutil.KindHEIF:
		return HEIF, nil
	case imgutil.KindBMP:
		return BMP, nil
	case imgutil.KindTIFF:
		return TIFF, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
}

// Resolve picks the concrete format for a source: f itself, or the source's
// own format when f is Original.
func (f Format) Resolve(source imgutil.Kind) (Format, error) {
	if f == Original || f == "" {
		return FromKind(source)
	}
	return f, nil
}

// MIMEType returns the media type for encoded output in f.
func (f Format) MIMEType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case PNG:
		return "image/png"
	case WEBP:
		return "image/webp"
	case HEIF:
		return "image/heic"
	case BMP:
		return "image/bmp"
	case TIFF:
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// Strategy is the capability set of one format.
type Strategy interface {
	Format() Format
	// Extension is the file extension for encoded output, with the dot.
	Extension() string
	// Controllable reports whether the format has a knob that trades size
	// for fidelity.
	Controllable() bool
	// Range is the closed knob range. Higher values produce larger output.
	Range() (lo, hi int)
	// Available reports whether the strategy can encode on this machine.
	Available() bool
	// Prepare converts img once into the form Encode expects, e.g.
	// flattening alpha for formats that cannot carry it.
	Prepare(img image.Image) image.Image
	Encode(img image.Image, param int) ([]byte, error)
}

// Refiner is implemented by strategies with a secondary effort knob that can
// be tuned once the primary parameter is fixed.
type Refiner interface {
	DefaultLevel() int
	// Levels lists the levels to try after the search, in order.
	Levels() []int
	EncodeLevel(img image.Image, param, level int) ([]byte, error)
}

var strategies = map[Format]Strategy{
	JPEG: jpegStrategy{},
	PNG:  pngStrategy{},
	WEBP: webpStrategy{method: DefaultWebPMethod},
	HEIF: heifStrategy{},
	BMP:  bmpStrategy{},
	TIFF: tiffStrategy{},
}

// For returns the strategy for f.
func For(f Format) (Strategy, error) {
	s, ok := strategies[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, f)
	}
	return s, nil
}
