package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
)

// There is no pure Go HEIF codec, so HEIF goes through the libheif command
// line tools when they are installed.
var (
	heifEncoder  = "heif-enc"
	heifDecoders = []string{"heif-dec", "heif-convert"}
)

type heifStrategy struct{}

func (heifStrategy) Format() Format     { return HEIF }
func (heifStrategy) Extension() string  { return ".heic" }
func (heifStrategy) Controllable() bool { return true }
func (heifStrategy) Range() (int, int)  { return minQuality, maxQuality }

func (heifStrategy) Available() bool {
	_, err := exec.LookPath(heifEncoder)
	return err == nil
}

// heifSource is a prepared image with its PNG form encoded once, so each
// quality attempt only runs the encoder tool.
type heifSource struct {
	image.Image
	png []byte
	err error
}

func (heifStrategy) Prepare(img image.Image) image.Image {
	nrgba := toNRGBA(img)
	data, err := encodeIntermediate(nrgba)
	return &heifSource{Image: nrgba, png: data, err: err}
}

func (heifStrategy) Encode(img image.Image, quality int) ([]byte, error) {
	bin, err := exec.LookPath(heifEncoder)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not installed", ErrUnsupported, heifEncoder)
	}

	src, ok := img.(*heifSource)
	if !ok {
		src = heifStrategy{}.Prepare(img).(*heifSource)
	}
	if src.err != nil {
		return nil, src.err
	}

	dir, err := os.MkdirTemp("", "squish-heif-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.heic")
	if err := os.WriteFile(in, src.png, 0o600); err != nil {
		return nil, err
	}

	cmd := exec.Command(bin, "-q", fmt.Sprint(quality), "-o", out, in)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w, output: %s", heifEncoder, err, output)
	}
	return os.ReadFile(out)
}

// HEIFDecoderAvailable reports whether DecodeHEIF can run.
func HEIFDecoderAvailable() bool {
	_, err := heifDecoder()
	return err == nil
}

// DecodeHEIF decodes HEIF/HEIC bytes through libheif's decoder tool.
func DecodeHEIF(data []byte) (image.Image, error) {
	bin, err := heifDecoder()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "squish-heif-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.heic")
	out := filepath.Join(dir, "out.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	cmd := exec.Command(bin, in, out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w, output: %s", filepath.Base(bin), err, output)
	}

	f, err := os.Open(out)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

func heifDecoder() (string, error) {
	for _, name := range heifDecoders {
		if bin, err := exec.LookPath(name); err == nil {
			return bin, nil
		}
	}
	return "", fmt.Errorf("%w: no HEIF decoder installed (tried %v)", ErrUnsupported, heifDecoders)
}

func encodeIntermediate(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
