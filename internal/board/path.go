package board

import (
	"errors"
	"path"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidPath is returned when no storage path can be built for an image.
var ErrInvalidPath = errors.New("invalid image path")

const (
	// maxNameBytes bounds a sanitized file name, leaving room below the
	// common 255 byte limit for collision suffixes.
	maxNameBytes = 200

	// maxExtBytes is the longest suffix still treated as an extension.
	maxExtBytes = 16
)

// reservedNames are device names Windows refuses as file names.
var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// ImagePath returns the relative storage path "<code>/<thread>/<name>" of
// an image with name sanitized for every common file system. Threads
// without a number are stored under 0.
func ImagePath(code string, thread int, name string) (string, error) {
	if thread < 0 {
		return "", ErrInvalidPath
	}
	dir := SanitizeFilename(code)
	file := SanitizeFilename(name)
	if dir == "" || file == "" {
		return "", ErrInvalidPath
	}
	return path.Join(dir, strconv.Itoa(thread), file), nil
}

// SanitizeFilename makes name safe to use as a single path element.
// Characters invalid on Windows are replaced by '_', trailing dots and
// spaces are removed, long names are shortened to maxNameBytes keeping
// the extension and reserved device names are prefixed. It returns ""
// when nothing usable remains.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	clean := strings.TrimRight(strings.TrimSpace(b.String()), ". ")
	clean = truncateName(clean)
	if clean == "" || clean == "." || clean == ".." {
		return ""
	}
	stem := clean
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	if _, ok := reservedNames[strings.ToUpper(stem)]; ok {
		clean = "_" + clean
	}
	return clean
}

// truncateName cuts the stem of name on a rune boundary so that the whole
// name fits in maxNameBytes.
func truncateName(name string) string {
	if len(name) <= maxNameBytes {
		return name
	}
	ext := path.Ext(name)
	if len(ext) > maxExtBytes {
		ext = ""
	}
	stem := name[:len(name)-len(ext)]
	limit := maxNameBytes - len(ext)

	cut := 0
	for i, r := range stem {
		if i+utf8.RuneLen(r) > limit {
			break
		}
		cut = i + utf8.RuneLen(r)
	}
	stem = strings.TrimRight(stem[:cut], ". ")
	if stem == "" {
		return ""
	}
	return stem + ext
}
