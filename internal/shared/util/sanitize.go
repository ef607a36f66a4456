package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
)

const maxFileNameLen = 255

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName reduces an uploaded file name to its base name with path
// separators and control characters removed, capped at 255 bytes.
func SanitizeFileName(name string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	s = path.Base(s)
	if s == "." || s == ".." || s == "/" {
		return "", ErrInvalidFileName
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidFileName
	}
	if len(s) > maxFileNameLen {
		s = strings.ToValidUTF8(s[:maxFileNameLen], "")
	}
	return s, nil
}
