package content

import (
	"strings"
)

// DefaultMediaHosts are the substrings that mark a string as a hosted media URL.
var DefaultMediaHosts = []string{
	"cloudinary",
	"res.cloudinary.com",
	"images.unsplash.com",
	"/uploads/",
}

var imageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".avif", ".bmp", ".ico",
}

// nonMediaKeyMarkers mark keys whose values are links even when they look like media.
var nonMediaKeyMarkers = []string{"learnmore", "button"}

// MediaMatcher decides whether a string value points at an image.
type MediaMatcher struct {
	hosts []string
}

func NewMediaMatcher(hosts []string) *MediaMatcher {
	cleaned := make([]string, 0, len(hosts))
	for _, host := range hosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			cleaned = append(cleaned, host)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, DefaultMediaHosts...)
	}
	return &MediaMatcher{hosts: cleaned}
}

// IsMedia reports whether s looks like a media reference: a known host,
// a blob: object URL, or a path ending in an image extension.
func (m *MediaMatcher) IsMedia(s string) bool {
	value := strings.ToLower(strings.TrimSpace(s))
	if value == "" {
		return false
	}

	if strings.HasPrefix(value, "blob:") {
		return true
	}

	for _, host := range m.hosts {
		if strings.Contains(value, host) {
			return true
		}
	}

	if idx := strings.IndexAny(value, "?#"); idx >= 0 {
		value = value[:idx]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(value, ext) {
			return true
		}
	}

	return false
}

func isGalleryShaped(m *MediaMatcher, items []any) bool {
	if len(items) == 0 {
		return false
	}
	first, ok := items[0].(string)
	return ok && m.IsMedia(first)
}

func isNonMediaKey(key string) bool {
	lowered := strings.ToLower(key)
	for _, marker := range nonMediaKeyMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
