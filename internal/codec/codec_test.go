package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"testing"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"squish/pkg/imgutil"
)

// photo builds a deterministic gradient with grain so encoders have real
// detail to trade away.
func photo(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewPCG(7, 11))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			grain := rng.IntN(48)
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x*255/w + grain) % 256),
				G: uint8((y*255/h + grain) % 256),
				B: uint8(((x + y) * 2 % 200) + grain/2),
				A: 0xff,
			})
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"jpg":      JPEG,
		"JPEG":     JPEG,
		"png":      PNG,
		"webp":     WEBP,
		"HEIC":     HEIF,
		"heif":     HEIF,
		"original": Original,
		"keep":     Original,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Error("expected error for gif")
	}
}

func TestResolve(t *testing.T) {
	got, err := Original.Resolve(imgutil.KindBMP)
	if err != nil || got != BMP {
		t.Fatalf("Original.Resolve(bmp) = %q, %v", got, err)
	}
	got, err = WEBP.Resolve(imgutil.KindBMP)
	if err != nil || got != WEBP {
		t.Fatalf("WEBP.Resolve(bmp) = %q, %v", got, err)
	}
	if _, err := Original.Resolve(imgutil.KindUnknown); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestForLookupTable(t *testing.T) {
	for _, f := range []Format{JPEG, PNG, WEBP, HEIF, BMP, TIFF} {
		s, err := For(f)
		if err != nil {
			t.Fatalf("For(%q): %v", f, err)
		}
		if s.Format() != f {
			t.Errorf("For(%q).Format() = %q", f, s.Format())
		}
		lo, hi := s.Range()
		if s.Controllable() && lo >= hi {
			t.Errorf("%q: controllable with empty range [%d, %d]", f, lo, hi)
		}
		if !s.Controllable() && (lo != 0 || hi != 0) {
			t.Errorf("%q: uncontrollable with range [%d, %d]", f, lo, hi)
		}
	}
	if _, err := For(Original); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("For(Original) should be unsupported, got %v", err)
	}
}

// assertMonotonic encodes at every knob in params and checks sizes never
// shrink as the knob grows.
func assertMonotonic(t *testing.T, s Strategy, img image.Image, params []int) {
	t.Helper()
	prepared := s.Prepare(img)
	prev := -1
	for _, p := range params {
		data, err := s.Encode(prepared, p)
		if err != nil {
			t.Fatalf("%s encode at %d: %v", s.Format(), p, err)
		}
		if len(data) < prev {
			t.Fatalf("%s: size %d at %d smaller than %d at previous knob", s.Format(), len(data), p, prev)
		}
		prev = len(data)
	}
}

func TestJPEGMonotonic(t *testing.T) {
	s, _ := For(JPEG)
	assertMonotonic(t, s, photo(96, 96), []int{1, 10, 25, 40, 60, 80, 95})
}

func TestPNGMonotonic(t *testing.T) {
	s, _ := For(PNG)
	lo, hi := s.Range()
	var knobs []int
	for k := lo; k <= hi; k++ {
		knobs = append(knobs, k)
	}
	assertMonotonic(t, s, photo(96, 96), knobs)
}

func TestPNGMonotonicOnNoise(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	img := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.IntN(256))
	}

	s, _ := For(PNG)
	assertMonotonic(t, s, img, []int{0, 1, 2, 3})
}

func TestWEBPMonotonicAndLevels(t *testing.T) {
	s, _ := For(WEBP)
	assertMonotonic(t, s, photo(96, 96), []int{1, 20, 50, 80, 95})

	data, err := s.Encode(s.Prepare(photo(32, 32)), 50)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	kind, err := imgutil.DetectHeader(data)
	if err != nil || kind != imgutil.KindWEBP {
		t.Fatalf("expected webp output, got %s (%v)", kind, err)
	}

	r, ok := s.(Refiner)
	if !ok {
		t.Fatal("webp strategy should refine")
	}
	if r.DefaultLevel() != DefaultWebPMethod {
		t.Fatalf("default level = %d", r.DefaultLevel())
	}
	levels := r.Levels()
	if len(levels) != DefaultWebPMethod || levels[0] != DefaultWebPMethod-1 || levels[len(levels)-1] != 0 {
		t.Fatalf("unexpected levels %v", levels)
	}
}

func TestJPEGFlattensAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, A: 255})

	s, _ := For(JPEG)
	prepared := s.Prepare(img)
	if !isOpaque(prepared) {
		t.Fatal("prepared image still has alpha")
	}
	r, g, b, _ := prepared.At(0, 0).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff {
		t.Fatalf("transparent pixel not flattened to white: %d %d %d", r, g, b)
	}
	if _, err := s.Encode(prepared, 80); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestPNGKeepsAlphaAndRejectsBadKnob(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	s, _ := For(PNG)
	prepared := s.Prepare(img)
	if isOpaque(prepared) {
		t.Fatal("png prepare should keep transparency")
	}
	if _, err := s.Encode(prepared, 9); err == nil {
		t.Fatal("expected error for knob out of range")
	}
}

func TestUncompressedFormatsRoundTrip(t *testing.T) {
	src := photo(16, 8)
	for _, f := range []Format{BMP, TIFF} {
		s, _ := For(f)
		if s.Controllable() {
			t.Fatalf("%q should not be controllable", f)
		}
		data, err := s.Encode(s.Prepare(src), 0)
		if err != nil {
			t.Fatalf("%q encode: %v", f, err)
		}
		decoded, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("%q decode: %v", f, err)
		}
		if format != string(f) || decoded.Bounds() != src.Bounds() {
			t.Fatalf("%q round trip gave %s %v", f, format, decoded.Bounds())
		}
	}
}

func TestHEIFPrepareEncodesIntermediateOnce(t *testing.T) {
	s, _ := For(HEIF)
	src := photo(24, 12)

	prepared, ok := s.Prepare(src).(*heifSource)
	if !ok {
		t.Fatal("prepare should return a heifSource")
	}
	if prepared.err != nil || len(prepared.png) == 0 {
		t.Fatalf("intermediate not encoded: %v", prepared.err)
	}
	decoded, err := png.Decode(bytes.NewReader(prepared.png))
	if err != nil {
		t.Fatalf("intermediate is not a png: %v", err)
	}
	if decoded.Bounds() != src.Bounds() || prepared.Bounds() != src.Bounds() {
		t.Fatalf("bounds %v / %v, want %v", decoded.Bounds(), prepared.Bounds(), src.Bounds())
	}
}

func TestHEIFRoundTrip(t *testing.T) {
	s, _ := For(HEIF)
	if !s.Available() || !HEIFDecoderAvailable() {
		t.Skip("libheif tools not installed")
	}
	data, err := s.Encode(s.Prepare(photo(64, 64)), 50)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	kind, _ := imgutil.DetectHeader(data)
	if kind != imgutil.KindHEIF {
		t.Fatalf("expected heif output, got %s", kind)
	}
	img, err := DecodeHEIF(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Fatalf("decoded width %d", img.Bounds().Dx())
	}
}

func TestMIMEType(t *testing.T) {
	if JPEG.MIMEType() != "image/jpeg" || WEBP.MIMEType() != "image/webp" {
		t.Fatal("unexpected mime types")
	}
	if Original.MIMEType() != "application/octet-stream" {
		t.Fatal("original has no concrete mime type")
	}
}

func TestWebPMethod(t *testing.T) {
	s, err := WebP(2)
	if err != nil {
		t.Fatalf("WebP(2): %v", err)
	}
	r := s.(Refiner)
	if r.DefaultLevel() != 2 {
		t.Fatalf("default level = %d", r.DefaultLevel())
	}
	if levels := r.Levels(); len(levels) != 2 || levels[0] != 1 || levels[1] != 0 {
		t.Fatalf("levels = %v", levels)
	}

	s, err = WebP(0)
	if err != nil {
		t.Fatalf("WebP(0): %v", err)
	}
	if levels := s.(Refiner).Levels(); len(levels) != 0 {
		t.Fatalf("fastest method should leave nothing to refine, got %v", levels)
	}

	for _, m := range []int{-1, MaxWebPMethod + 1} {
		if _, err := WebP(m); err == nil {
			t.Errorf("expected error for method %d", m)
		}
	}
}
