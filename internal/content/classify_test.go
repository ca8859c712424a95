package content

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  FieldKind
	}{
		{"id is excluded", "id", "hero", KindExcluded},
		{"excluded keys ignore case", "ImageFile", "x", KindExcluded},
		{"mongo id is excluded", "_id", "65f0", KindExcluded},
		{"short text", "title", "Welcome", KindShortText},
		{"long text", "body", strings.Repeat("a", 61), KindLongText},
		{"media string", "image", "https://res.cloudinary.com/demo/hero.png", KindMedia},
		{"blob preview is media", "avatar", "blob:http://localhost/123", KindMedia},
		{"media object", "photo", map[string]any{"url": "x", "alt": "y"}, KindMedia},
		{"learn more link is text", "learnMoreLink", "/uploads/brochure.png", KindShortText},
		{"button object is nested", "heroButton", map[string]any{"url": "/contact", "text": "Call"}, KindObject},
		{"gallery", "images", []any{"https://res.cloudinary.com/a.jpg", "https://res.cloudinary.com/b.jpg"}, KindGallery},
		{"gallery decided by first element", "mixed", []any{"/uploads/a.png", "plain text"}, KindGallery},
		{"list of text", "bullets", []any{"one", "two"}, KindList},
		{"list led by text", "mixed", []any{"plain text", "/uploads/a.png"}, KindList},
		{"empty list", "cards", []any{}, KindList},
		{"nested object", "profile", map[string]any{"name": "Jane"}, KindObject},
		{"number is not renderable", "count", float64(3), KindNone},
		{"bool is not renderable", "visible", true, KindNone},
		{"null is not renderable", "subtitle", nil, KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.key, tt.value); got != tt.want {
				t.Fatalf("Classify(%q) = %s, want %s", tt.key, got, tt.want)
			}
		})
	}
}

func TestClassifyTextBoundary(t *testing.T) {
	if got := Classify("title", strings.Repeat("x", ShortTextLimit)); got != KindShortText {
		t.Fatalf("expected 60 characters to be short text, got %s", got)
	}
	if got := Classify("title", strings.Repeat("x", ShortTextLimit+1)); got != KindLongText {
		t.Fatalf("expected 61 characters to be long text, got %s", got)
	}
	if got := Classify("title", strings.Repeat("é", ShortTextLimit)); got != KindShortText {
		t.Fatalf("expected length to count characters, got %s", got)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	value := map[string]any{"url": "https://res.cloudinary.com/demo/a.png"}
	first := Classify("photo", value)
	for i := 0; i < 10; i++ {
		if got := Classify("photo", value); got != first {
			t.Fatalf("call %d returned %s, first call returned %s", i, got, first)
		}
	}
}
