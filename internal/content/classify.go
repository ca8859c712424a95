package content

import (
	"strings"
	"unicode/utf8"
)

// FieldKind is the editable control a tree value is rendered with.
type FieldKind string

const (
	KindNone      FieldKind = ""
	KindExcluded  FieldKind = "excluded"
	KindShortText FieldKind = "short_text"
	KindLongText  FieldKind = "long_text"
	KindMedia     FieldKind = "media"
	KindGallery   FieldKind = "gallery"
	KindObject    FieldKind = "object"
	KindList      FieldKind = "list"
)

// ShortTextLimit is the longest string, in characters, edited on a single line.
const ShortTextLimit = 60

// AttachmentField is the form field that carries an uploaded binary image.
const AttachmentField = "imageFile"

// excludedKeys never render; compared lower-cased.
var excludedKeys = map[string]struct{}{
	"id":        {},
	"imagefile": {},
	"dbid":      {},
	"_id":       {},
	"__v":       {},
}

func (k FieldKind) Renderable() bool {
	return k != KindNone && k != KindExcluded
}

func (k FieldKind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

// IsExcludedKey reports whether key is internal bookkeeping that the editor hides.
func IsExcludedKey(key string) bool {
	_, ok := excludedKeys[strings.ToLower(key)]
	return ok
}

// Classify maps a key and its value to a FieldKind. The result depends only on
// the key name and the value's shape.
//
// Galleries are detected from the first element alone, so an array that
// starts with a media URL and continues with plain text is still a gallery.
func (c *Classifier) Classify(key string, value any) FieldKind {
	if IsExcludedKey(key) {
		return KindExcluded
	}

	if c.isMediaValue(key, value) {
		return KindMedia
	}

	switch v := value.(type) {
	case []any:
		if isGalleryShaped(c.media, v) {
			return KindGallery
		}
	case string:
		if utf8.RuneCountInString(v) <= ShortTextLimit {
			return KindShortText
		}
		return KindLongText
	case map[string]any:
		return KindObject
	}

	if _, ok := value.([]any); ok {
		return KindList
	}

	return KindNone
}

func (c *Classifier) isMediaValue(key string, value any) bool {
	if isNonMediaKey(key) {
		return false
	}

	switch v := value.(type) {
	case string:
		return c.media.IsMedia(v)
	case map[string]any:
		_, ok := v["url"]
		return ok
	}
	return false
}

// Classify runs Default.Classify.
func Classify(key string, value any) FieldKind {
	return Default.Classify(key, value)
}
