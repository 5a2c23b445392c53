package imgutil

import (
	"path/filepath"
	"strings"
)

// HasSuffixFold reports whether name ends with suffix, ignoring case.
// "photo.PNG" matches ".png"; "photo.pngx" does not.
func HasSuffixFold(name, suffix string) bool {
	if len(name) < len(suffix) {
		return false
	}
	return strings.EqualFold(name[len(name)-len(suffix):], suffix)
}

// ReplaceExt derives a sibling file name by swapping the extension of name
// for ext. Names without an extension, including bare dotfiles like
// ".config", get ext appended instead.
func ReplaceExt(name, ext string) string {
	old := filepath.Ext(name)
	if old == "" || old == name {
		return name + ext
	}
	return name[:len(name)-len(old)] + ext
}
