package imgutil

import (
	"errors"
	"io"
	"os"
)

// MIME types for the formats the tool converts between.
const (
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
)

// HeaderLen is the number of bytes DetectHeader needs to classify a file.
// The WebP signature spans the first twelve bytes of the RIFF container.
const HeaderLen = 12

// Kind identifies a supported image type.
type Kind int

const (
	KindUnknown Kind = iota
	KindPNG
	KindWebP
)

func (k Kind) String() string {
	switch k {
	case KindPNG:
		return "png"
	case KindWebP:
		return "webp"
	default:
		return "unknown"
	}
}

// MIME returns the MIME type for the kind, or "" when unknown.
func (k Kind) MIME() string {
	switch k {
	case KindPNG:
		return MIMEPNG
	case KindWebP:
		return MIMEWebP
	default:
		return ""
	}
}

// KindForMIME is the inverse of Kind.MIME.
func KindForMIME(mime string) Kind {
	switch mime {
	case MIMEPNG:
		return KindPNG
	case MIMEWebP:
		return KindWebP
	default:
		return KindUnknown
	}
}

var (
	pngSig   = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	riffSig  = []byte{0x52, 0x49, 0x46, 0x46} // "RIFF"
	webpMark = []byte{0x57, 0x45, 0x42, 0x50} // "WEBP" at offset 8
)

// DetectHeader inspects the first HeaderLen bytes of a file for known
// signatures. Classification is by content only; file names play no part.
func DetectHeader(header []byte) (Kind, error) {
	if len(header) < HeaderLen {
		return KindUnknown, errors.New("header too short")
	}

	if hasPrefix(header, pngSig) {
		return KindPNG, nil
	}
	if hasPrefix(header, riffSig) && hasPrefix(header[8:], webpMark) {
		return KindWebP, nil
	}

	return KindUnknown, nil
}

// SniffFile reads the first HeaderLen bytes of a file to determine its type.
func SniffFile(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	return SniffReader(f)
}

// SniffReader reads the first HeaderLen bytes from r and determines its
// type. Readers shorter than a header cannot be a supported image and are
// reported as unknown alongside the read error.
func SniffReader(r io.Reader) (Kind, error) {
	header := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return KindUnknown, err
	}

	return DetectHeader(header)
}

func hasPrefix(buf, prefix []byte) bool {
	if len(buf) < len(prefix) {
		return false
	}
	for i := range prefix {
		if buf[i] != prefix[i] {
			return false
		}
	}
	return true
}
