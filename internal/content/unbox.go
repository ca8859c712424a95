// Package content normalizes CMS section payloads, classifies their values
// into editable field kinds and turns edited trees back into form submissions.
//
// Trees use the generic JSON value model produced by encoding/json:
// string, float64 (or json.Number), bool, nil, []any and map[string]any.
package content

import (
	"encoding/json"
	"strings"
)

// bookkeepingKeys are database fields the backend leaks into section content.
// Matching is case-sensitive.
var bookkeepingKeys = map[string]struct{}{
	"_id":       {},
	"__v":       {},
	"dbid":      {},
	"content":   {},
	"createdAt": {},
	"updatedAt": {},
}

// Classifier bundles the media rules used by unboxing, classification and
// field building so all three agree on what counts as media.
type Classifier struct {
	media *MediaMatcher
}

func NewClassifier(mediaHosts []string) *Classifier {
	return &Classifier{media: NewMediaMatcher(mediaHosts)}
}

// Default uses DefaultMediaHosts.
var Default = NewClassifier(nil)

func (c *Classifier) IsMedia(s string) bool {
	return c.media.IsMedia(s)
}

// Unbox normalizes a raw section value: JSON-encoded strings are decoded,
// one-element string arrays collapse to their string (media arrays excepted)
// and bookkeeping keys are dropped. Unbox never fails; text that is not
// encoded JSON is returned as is. Unbox(Unbox(v)) equals Unbox(v).
func (c *Classifier) Unbox(value any) any {
	switch v := value.(type) {
	case string:
		return c.unboxString(v)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = c.Unbox(item)
		}
		if isGalleryShaped(c.media, items) {
			return items
		}
		if len(items) == 1 {
			if s, ok := items[0].(string); ok {
				return s
			}
		}
		return items
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			if _, skip := bookkeepingKeys[key]; skip {
				continue
			}
			out[key] = c.Unbox(item)
		}
		return out
	default:
		return value
	}
}

func (c *Classifier) unboxString(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return s
	}

	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return s
	}

	switch decoded.(type) {
	case map[string]any, []any:
		return c.Unbox(decoded)
	default:
		return s
	}
}

// Unbox runs Default.Unbox.
func Unbox(value any) any {
	return Default.Unbox(value)
}
