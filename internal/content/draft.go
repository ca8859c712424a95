package content

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Section is one independently saved unit of page content.
type Section struct {
	ID      string   `json:"id"`
	Content any      `json:"content"`
	Order   KeyOrder `json:"-"`
}

// NewSection decodes raw section content and unboxes it.
func (c *Classifier) NewSection(id string, raw json.RawMessage) (Section, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Section{ID: id, Content: map[string]any{}, Order: KeyOrder{}}, nil
	}

	tree, order, err := Decode(raw)
	if err != nil {
		return Section{}, fmt.Errorf("section %s: %w", id, err)
	}

	return Section{ID: id, Content: c.Unbox(tree), Order: order}, nil
}

// Draft holds the edits made to a section until they are saved or discarded.
type Draft struct {
	classifier *Classifier
	section    Section
	current    any
}

func (c *Classifier) NewDraft(section Section) *Draft {
	return &Draft{
		classifier: c,
		section:    section,
		current:    Clone(section.Content),
	}
}

func (d *Draft) SectionID() string {
	return d.section.ID
}

// Tree returns the edited tree. Callers must not modify it.
func (d *Draft) Tree() any {
	return d.current
}

func (d *Draft) Fields() []Field {
	return d.classifier.BuildFields(d.current, d.section.Order)
}

// Set replaces the value at path.
func (d *Draft) Set(path string, value any) error {
	updated, err := TrySetAtPath(d.current, path, value)
	if err != nil {
		return err
	}
	d.current = updated
	return nil
}

func (d *Draft) Dirty() bool {
	return !reflect.DeepEqual(d.section.Content, d.current)
}

// Discard drops every unsaved edit.
func (d *Draft) Discard() {
	d.current = Clone(d.section.Content)
}

// MediaTarget returns a callback bound to the media field at path. Whatever
// picks an image (upload, library) hands the chosen URL to that callback,
// and the draft updates exactly that field. For a media object the url
// property is replaced; for a gallery the URL is appended. Any scalar slot of
// a gallery is replaced, even one that does not hold a URL yet.
func (d *Draft) MediaTarget(path string) (func(url string) error, error) {
	value, ok := GetAtPath(d.current, path)
	if !ok {
		return nil, &PathError{Path: path, Segment: path, Reason: "does not exist"}
	}

	key := lastSegment(path)
	kind := d.classifier.Classify(key, value)

	switch kind {
	case KindMedia:
		if _, isObject := value.(map[string]any); isObject {
			urlPath := JoinPath(path, "url")
			return func(url string) error { return d.Set(urlPath, url) }, nil
		}
		return func(url string) error { return d.Set(path, url) }, nil
	case KindGallery:
		return func(url string) error {
			items, _ := GetAtPath(d.current, path)
			list, _ := items.([]any)
			next := make([]any, 0, len(list)+1)
			next = append(next, list...)
			next = append(next, url)
			return d.Set(path, next)
		}, nil
	default:
		if d.inGallery(path) {
			switch value.(type) {
			case map[string]any, []any:
			default:
				// a gallery slot is media by position, whatever it holds now
				return func(url string) error { return d.Set(path, url) }, nil
			}
		}
		return nil, fmt.Errorf("field %q is %s, not media", path, kind)
	}
}

// inGallery reports whether path addresses an element of a gallery array.
func (d *Draft) inGallery(path string) bool {
	idx := strings.LastIndex(path, ".")
	if idx <= 0 {
		return false
	}
	if _, err := strconv.Atoi(path[idx+1:]); err != nil {
		return false
	}
	parent, ok := GetAtPath(d.current, path[:idx])
	if !ok {
		return false
	}
	items, ok := parent.([]any)
	return ok && isGalleryShaped(d.classifier.media, items)
}

func lastSegment(path string) string {
	segments := splitPath(path)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}
