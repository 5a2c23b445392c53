// Package meta inspects encoded images for embedded metadata. Conversion
// re-encodes pixels only, so anything found here is absent from the
// output; the prober exists to tell the user that before or after the
// fact.
package meta

import (
	"bytes"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"pixwap/pkg/imgutil"
)

// Details describes the metadata found in one image.
type Details struct {
	HasGPS       bool
	HasDevice    bool
	HasTimestamp bool

	// TextKeys are the keys of PNG textual chunks (tEXt, zTXt, iTXt),
	// in file order.
	TextKeys []string
}

// Empty reports whether nothing of note was found.
func (d Details) Empty() bool {
	return !d.HasGPS && !d.HasDevice && !d.HasTimestamp && len(d.TextKeys) == 0
}

// Categories lists the metadata classes present, for display.
func (d Details) Categories() []string {
	var cats []string
	if d.HasGPS {
		cats = append(cats, "location")
	}
	if d.HasDevice {
		cats = append(cats, "device")
	}
	if d.HasTimestamp {
		cats = append(cats, "timestamp")
	}
	if len(d.TextKeys) > 0 {
		cats = append(cats, "text annotations")
	}
	return cats
}

// Probe scans data for metadata. EXIF is searched in any format; PNG
// files additionally have their textual and tIME chunks walked. A file
// without metadata is not an error.
func Probe(data []byte, kind imgutil.Kind) (Details, error) {
	details := Details{}

	if err := probeExif(data, &details); err != nil {
		return details, err
	}
	if kind == imgutil.KindPNG {
		if err := probePNGChunks(bytes.NewReader(data), &details); err != nil {
			return details, err
		}
	}
	return details, nil
}

func probeExif(data []byte, details *Details) error {
	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(bytes.NewReader(data), nil, true)
	if err != nil {
		if errorsIsNoExif(err) {
			return nil
		}
		return err
	}

	for _, tag := range tags {
		name := tag.TagName
		if strings.HasPrefix(name, "GPS") || strings.Contains(tag.IfdPath, "GPS") {
			details.HasGPS = true
		}
		if name == "Model" || name == "Make" || name == "CameraModelName" {
			details.HasDevice = true
		}
		if name == "DateTimeOriginal" || name == "DateTimeDigitized" || name == "DateTime" {
			details.HasTimestamp = true
		}
	}
	return nil
}

func errorsIsNoExif(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}
