package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile("[^a-z0-9]+")

// GenerateSlug lowercases text, strips accents and joins the remaining
// alphanumeric runs with dashes.
func GenerateSlug(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	text, _, _ = transform.String(t, text)

	text = strings.ToLower(text)
	text = nonSlugChars.ReplaceAllString(text, "-")

	return strings.Trim(text, "-")
}

// SlugFilename slugs the base name of filename and keeps its lowercased
// extension. It returns "" when nothing usable is left of the base name.
func SlugFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := GenerateSlug(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		return ""
	}
	return base + ext
}
