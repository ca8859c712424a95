package content

import (
	"strconv"
	"strings"
	"unicode"
)

// Field is one classified node of a section tree, ready to be rendered as a
// form control. Objects, lists and galleries carry their elements in Children.
type Field struct {
	Key      string    `json:"key"`
	Path     string    `json:"path"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Value    any       `json:"value,omitempty"`
	Children []Field   `json:"children,omitempty"`
}

// Text returns the field value as a string for text and media controls.
func (f Field) Text() string {
	switch v := f.Value.(type) {
	case string:
		return v
	case map[string]any:
		if url, ok := v["url"].(string); ok {
			return url
		}
	}
	return ""
}

// BuildFields walks tree and returns the renderable fields in document order.
// Excluded keys and values with no editable shape are skipped.
func (c *Classifier) BuildFields(tree any, order KeyOrder) []Field {
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil
	}
	return c.objectFields(obj, "", "", order)
}

func (c *Classifier) objectFields(obj map[string]any, path string, parentLabel string, order KeyOrder) []Field {
	fields := make([]Field, 0, len(obj))
	for _, key := range order.Keys(path, obj) {
		label := Humanize(key)
		if parentLabel != "" {
			label = parentLabel + " / " + label
		}
		if field, ok := c.buildField(key, obj[key], JoinPath(path, key), label, order); ok {
			fields = append(fields, field)
		}
	}
	return fields
}

func (c *Classifier) buildField(key string, value any, path string, label string, order KeyOrder) (Field, bool) {
	kind := c.Classify(key, value)
	if !kind.Renderable() {
		return Field{}, false
	}

	field := Field{Key: key, Path: path, Label: label, Kind: kind, Value: value}

	switch kind {
	case KindObject:
		field.Children = c.objectFields(value.(map[string]any), path, label, order)
		field.Value = nil
	case KindGallery:
		items := value.([]any)
		field.Children = make([]Field, 0, len(items))
		for i, item := range items {
			field.Children = append(field.Children, Field{
				Key:   strconv.Itoa(i),
				Path:  JoinPath(path, strconv.Itoa(i)),
				Label: label + " #" + strconv.Itoa(i+1),
				Kind:  KindMedia,
				Value: item,
			})
		}
		field.Value = nil
	case KindList:
		items := value.([]any)
		field.Children = make([]Field, 0, len(items))
		for i, item := range items {
			idx := strconv.Itoa(i)
			if child, ok := c.buildField(idx, item, JoinPath(path, idx), label+" #"+strconv.Itoa(i+1), order); ok {
				field.Children = append(field.Children, child)
			}
		}
		field.Value = nil
	}

	return field, true
}

// CollectMedia returns every media URL in tree, in walk order, without duplicates.
func (c *Classifier) CollectMedia(tree any) []string {
	var urls []string
	seen := map[string]struct{}{}
	add := func(url string) {
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}

	var walk func(fields []Field)
	walk = func(fields []Field) {
		for _, field := range fields {
			if field.Kind == KindMedia {
				add(field.Text())
			}
			walk(field.Children)
		}
	}
	walk(c.BuildFields(tree, nil))

	return urls
}

// Humanize turns a content key such as "heroTitle" or "learn_more" into a label.
func Humanize(key string) string {
	if key == "" {
		return ""
	}

	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()

	for i, word := range words {
		wr := []rune(word)
		wr[0] = unicode.ToUpper(wr[0])
		words[i] = string(wr)
	}
	return strings.Join(words, " ")
}
