// Package scan builds the image inventory of a single directory. Only
// direct children are considered; classification is by magic bytes, so a
// mislabelled .txt full of PNG data is listed and a .png full of prose is
// not.
package scan

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"pixwap/pkg/imgutil"
)

// Entry is one recognized image file.
type Entry struct {
	Name    string
	Size    int64
	MIME    string
	ModTime time.Time
}

// Scan lists the PNG and WebP files directly inside root, ordered by the
// collator (nil means undetermined locale). Non-images, subdirectories
// and irregular files are skipped; a child that cannot be opened or
// statted aborts the scan, since that points at the directory itself
// going bad rather than at one odd file.
func Scan(root *os.Root, coll *collate.Collator) ([]Entry, error) {
	dirents, err := fs.ReadDir(root.FS(), ".")
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if !d.Type().IsRegular() {
			continue
		}
		kind, err := sniff(root, d.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", d.Name(), err)
		}
		if kind == imgutil.KindUnknown {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", d.Name(), err)
		}
		entries = append(entries, Entry{
			Name:    d.Name(),
			Size:    info.Size(),
			MIME:    kind.MIME(),
			ModTime: info.ModTime(),
		})
	}

	if coll == nil {
		coll = collate.New(language.Und)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return coll.CompareString(entries[i].Name, entries[j].Name) < 0
	})
	return entries, nil
}

// sniff classifies one child by its leading bytes. Files too short to
// carry an image signature are unknown, not errors.
func sniff(root *os.Root, name string) (imgutil.Kind, error) {
	f, err := root.Open(name)
	if err != nil {
		return imgutil.KindUnknown, err
	}
	defer f.Close()

	header := make([]byte, imgutil.HeaderLen)
	if _, err := io.ReadFull(f, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return imgutil.KindUnknown, nil
		}
		return imgutil.KindUnknown, err
	}

	kind, _ := imgutil.DetectHeader(header)
	return kind, nil
}

// Counts tallies entries per format.
func Counts(entries []Entry) (png, webp int) {
	for _, e := range entries {
		switch e.MIME {
		case imgutil.MIMEPNG:
			png++
		case imgutil.MIMEWebP:
			webp++
		}
	}
	return png, webp
}
