package session

import (
	"fmt"

	"pixwap/pkg/imgutil"
)

// Direction names one side of the converter: which suffix is matched,
// and which suffix and format the derived files get.
type Direction struct {
	SourceSuffix string
	SourceMIME   string
	TargetSuffix string
	TargetMIME   string
	Label        string
}

var (
	PNGToWebP = Direction{
		SourceSuffix: ".png",
		SourceMIME:   imgutil.MIMEPNG,
		TargetSuffix: ".webp",
		TargetMIME:   imgutil.MIMEWebP,
		Label:        "PNG to WebP",
	}
	WebPToPNG = Direction{
		SourceSuffix: ".webp",
		SourceMIME:   imgutil.MIMEWebP,
		TargetSuffix: ".png",
		TargetMIME:   imgutil.MIMEPNG,
		Label:        "WebP to PNG",
	}
)

// Directions lists both conversion directions in display order.
func Directions() []Direction {
	return []Direction{PNGToWebP, WebPToPNG}
}

// ParseDirection maps a CLI argument to a direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "png-to-webp", "png2webp":
		return PNGToWebP, nil
	case "webp-to-png", "webp2png":
		return WebPToPNG, nil
	default:
		return Direction{}, fmt.Errorf("unknown direction %q (want png-to-webp or webp-to-png)", s)
	}
}
