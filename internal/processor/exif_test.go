package processor

import (
	"bytes"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"squish/internal/codec"
)

func TestReadExif(t *testing.T) {
	plain := encodeJPEG(t, gradientImage(4, 2), 90)

	tests := []struct {
		name        string
		data        []byte
		orientation int
		model       string
	}{
		{"no exif", plain, 1, ""},
		{"app1 first", withOrientation(plain, 6), 6, "TestCam"},
		{"app0 then app1", withJFIF(withOrientation(plain, 8)), 8, "TestCam"},
		{"out of range orientation", withOrientation(plain, 9), 1, "TestCam"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := readExif(tt.data)
			if err != nil {
				t.Fatalf("readExif: %v", err)
			}
			if info.Orientation != tt.orientation || info.CameraModel != tt.model {
				t.Fatalf("got orientation %d model %q, want %d %q", info.Orientation, info.CameraModel, tt.orientation, tt.model)
			}
		})
	}
}

func TestCompressedOutputIsUpright(t *testing.T) {
	dir := t.TempDir()
	data := withJFIF(withOrientation(encodeJPEG(t, noiseImage(64, 32, 3), 95), 6))
	src := writeFile(t, filepath.Join(dir, "in", "camera.jpg"), data)

	opts := testOptions(t, testSpec(1024, codec.JPEG))
	out := runOne(t, Entry{Path: src, RelPath: "camera.jpg"}, opts)
	if out.Status != StatusCompressed {
		t.Fatalf("status = %s: %v", out.Status, out.Err)
	}

	written, err := os.ReadFile(out.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(written))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 64 {
		t.Fatalf("output is %dx%d, want 32x64", cfg.Width, cfg.Height)
	}
}
