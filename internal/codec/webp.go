package codec

import (
	"bytes"
	"fmt"
	"image"

	"github.com/gen2brain/webp"
)

// WEBP encoder effort runs from 0 (fast) to MaxWebPMethod (slowest and
// smallest). DefaultWebPMethod is used during the quality search unless
// WebP picks another.
const (
	MaxWebPMethod     = 6
	DefaultWebPMethod = MaxWebPMethod
)

// WebP returns the WEBP strategy searching at the given method.
func WebP(method int) (Strategy, error) {
	if method < 0 || method > MaxWebPMethod {
		return nil, fmt.Errorf("webp: method %d outside 0..%d", method, MaxWebPMethod)
	}
	return webpStrategy{method: method}, nil
}

type webpStrategy struct {
	method int
}

func (webpStrategy) Format() Format     { return WEBP }
func (webpStrategy) Extension() string  { return ".webp" }
func (webpStrategy) Controllable() bool { return true }
func (webpStrategy) Range() (int, int)  { return minQuality, maxQuality }
func (webpStrategy) Available() bool    { return true }

func (webpStrategy) Prepare(img image.Image) image.Image { return toNRGBA(img) }

func (s webpStrategy) Encode(img image.Image, quality int) ([]byte, error) {
	return s.EncodeLevel(img, quality, s.method)
}

func (s webpStrategy) DefaultLevel() int { return s.method }

// Levels walks down from the search method. Lower effort usually produces a
// slightly larger file at the same quality, which can claim unused budget.
func (s webpStrategy) Levels() []int {
	levels := make([]int, 0, s.method)
	for m := s.method - 1; m >= 0; m-- {
		levels = append(levels, m)
	}
	return levels
}

func (webpStrategy) EncodeLevel(img image.Image, quality, method int) ([]byte, error) {
	var buf bytes.Buffer
	err := webp.Encode(&buf, img, webp.Options{Quality: quality, Method: method})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
