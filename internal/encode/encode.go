// Package encode serializes a rasterized source into PNG or WebP bytes.
// The source is drawn onto a fresh RGBA surface of exactly its own size,
// so the output dimensions always match the input and any source color
// model is normalized before encoding.
package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"pixwap/internal/raster"
	"pixwap/pkg/imgutil"
)

// WebPQuality is the fixed lossy quality on libwebp's 0-100 scale,
// equivalent to a 0.92 quality factor.
const WebPQuality = 92

// Error reports a failed encode along with the format that failed.
type Error struct {
	MIME string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("encode %s: %v", e.MIME, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Encode draws src onto a new surface and serializes it as targetMIME.
// PNG output is lossless, WebP is lossy at WebPQuality. The caller keeps
// ownership of src and releases it.
func Encode(src raster.Source, targetMIME string) ([]byte, error) {
	w, h := src.Width(), src.Height()
	if w <= 0 || h <= 0 {
		return nil, &Error{MIME: targetMIME, Err: fmt.Errorf("surface is %dx%d", w, h)}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	src.DrawOnto(dst)

	var buf bytes.Buffer
	switch targetMIME {
	case imgutil.MIMEPNG:
		if err := png.Encode(&buf, dst); err != nil {
			return nil, &Error{MIME: targetMIME, Err: err}
		}
	case imgutil.MIMEWebP:
		opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, WebPQuality)
		if err != nil {
			return nil, &Error{MIME: targetMIME, Err: err}
		}
		if err := webp.Encode(&buf, dst, opts); err != nil {
			return nil, &Error{MIME: targetMIME, Err: err}
		}
	default:
		return nil, &Error{MIME: targetMIME, Err: fmt.Errorf("unsupported format")}
	}

	if buf.Len() == 0 {
		return nil, &Error{MIME: targetMIME, Err: fmt.Errorf("encoder produced no bytes")}
	}
	return buf.Bytes(), nil
}
