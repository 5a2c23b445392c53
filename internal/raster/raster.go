// Package raster turns encoded image bytes into a drawable source. Two
// strategies exist: bitmap decodes fully in memory, spill stages the bytes
// in a temp file and decodes from disk, which keeps large batches from
// holding every encoded buffer alive at once. Select probes the registered
// decoders and picks bitmap when both formats are decodable.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"

	_ "golang.org/x/image/webp"
)

// Source is one decoded image ready to be drawn. Release frees whatever
// the strategy holds (pixels, a temp file) and must be called exactly once
// when the caller is done.
type Source interface {
	Width() int
	Height() int
	DrawOnto(dst draw.Image)
	Release()
}

// Rasterizer decodes encoded bytes into a Source.
type Rasterizer interface {
	Rasterize(data []byte) (Source, error)
}

// DecodeError wraps any failure while turning bytes into pixels,
// including staging failures in the spill strategy.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode image: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// Select returns the rasterizer for the named strategy. "auto" picks
// bitmap when the in-memory decoders handle both formats and spill
// otherwise. Unknown names fall back to auto.
func Select(strategy string) Rasterizer {
	switch strategy {
	case "bitmap":
		return bitmapRasterizer{}
	case "spill":
		return spillRasterizer{}
	default:
		if bitmapAvailable() {
			return bitmapRasterizer{}
		}
		return spillRasterizer{}
	}
}

// bitmapAvailable probes the decoder registry with synthetic samples: a
// freshly encoded PNG and a bare WebP container header. The header is not
// a decodable image; what matters is whether the registry recognizes it
// at all, which image.ErrFormat distinguishes from a decode failure.
func bitmapAvailable() bool {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		return false
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(buf.Bytes())); err != nil {
		return false
	}

	webpHeader := []byte("RIFF\x00\x00\x00\x00WEBPVP8 \x00\x00\x00\x00")
	_, _, err := image.DecodeConfig(bytes.NewReader(webpHeader))
	return !errors.Is(err, image.ErrFormat)
}

type bitmapRasterizer struct{}

func (bitmapRasterizer) Rasterize(data []byte) (Source, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &bitmapSource{img: img}, nil
}

type bitmapSource struct {
	img image.Image
}

func (s *bitmapSource) Width() int  { return s.img.Bounds().Dx() }
func (s *bitmapSource) Height() int { return s.img.Bounds().Dy() }

func (s *bitmapSource) DrawOnto(dst draw.Image) {
	draw.Draw(dst, dst.Bounds(), s.img, s.img.Bounds().Min, draw.Src)
}

func (s *bitmapSource) Release() { s.img = nil }

// spillRasterizer writes the encoded bytes to a temp file and decodes
// from there in a separate goroutine. dir overrides the temp directory
// in tests; empty means the system default.
type spillRasterizer struct {
	dir string
}

type loadResult struct {
	img image.Image
	err error
}

func (r spillRasterizer) Rasterize(data []byte) (Source, error) {
	f, err := os.CreateTemp(r.dir, "pixwap-spill-*.img")
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("stage to disk: %w", err)}
	}
	path := f.Name()

	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		if werr == nil {
			werr = cerr
		}
		return nil, &DecodeError{Err: fmt.Errorf("stage to disk: %w", werr)}
	}

	res := make(chan loadResult, 1)
	go loadImageFile(path, res)

	out := <-res
	if out.err != nil {
		os.Remove(path)
		return nil, &DecodeError{Err: out.err}
	}
	return &spillSource{img: out.img, path: path}, nil
}

func loadImageFile(path string, res chan<- loadResult) {
	f, err := os.Open(path)
	if err != nil {
		res <- loadResult{err: err}
		return
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	res <- loadResult{img: img, err: err}
}

type spillSource struct {
	img  image.Image
	path string
}

func (s *spillSource) Width() int  { return s.img.Bounds().Dx() }
func (s *spillSource) Height() int { return s.img.Bounds().Dy() }

func (s *spillSource) DrawOnto(dst draw.Image) {
	draw.Draw(dst, dst.Bounds(), s.img, s.img.Bounds().Min, draw.Src)
}

func (s *spillSource) Release() {
	s.img = nil
	if s.path != "" {
		os.Remove(s.path)
		s.path = ""
	}
}
