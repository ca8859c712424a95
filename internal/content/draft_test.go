package content

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestDraft(t *testing.T, raw string) *Draft {
	t.Helper()
	section, err := Default.NewSection("team", []byte(raw))
	if err != nil {
		t.Fatalf("new section: %v", err)
	}
	return Default.NewDraft(section)
}

func TestDraftSetAndDiscard(t *testing.T) {
	draft := newTestDraft(t, `{"title":["Our team"],"lead":{"name":"Jane"}}`)

	if draft.Dirty() {
		t.Fatalf("fresh draft must not be dirty")
	}
	if err := draft.Set("lead.name", "Joan"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !draft.Dirty() {
		t.Fatalf("expected draft to be dirty after an edit")
	}

	draft.Discard()

	if draft.Dirty() {
		t.Fatalf("expected discard to drop edits")
	}
	if got, _ := GetAtPath(draft.Tree(), "lead.name"); got != "Jane" {
		t.Fatalf("expected original value after discard, got %v", got)
	}
}

func TestDraftSetRejectsUnknownPath(t *testing.T) {
	draft := newTestDraft(t, `{"title":"x"}`)
	if err := draft.Set("missing.child", "v"); err == nil {
		t.Fatalf("expected error for unknown path")
	}
}

func TestDraftMediaTargets(t *testing.T) {
	draft := newTestDraft(t, `{
		"portrait": {"url": "/uploads/old.png", "alt": "Jane"},
		"logo": "/uploads/logo.png",
		"photos": ["/uploads/a.png"],
		"title": "Team"
	}`)

	setPortrait, err := draft.MediaTarget("portrait")
	if err != nil {
		t.Fatalf("portrait target: %v", err)
	}
	setLogo, err := draft.MediaTarget("logo")
	if err != nil {
		t.Fatalf("logo target: %v", err)
	}
	addPhoto, err := draft.MediaTarget("photos")
	if err != nil {
		t.Fatalf("photos target: %v", err)
	}
	setFirstPhoto, err := draft.MediaTarget("photos.0")
	if err != nil {
		t.Fatalf("photo tile target: %v", err)
	}

	steps := []struct {
		apply func(string) error
		url   string
	}{
		{setPortrait, "https://res.cloudinary.com/new.png"},
		{setLogo, "https://res.cloudinary.com/logo.png"},
		{addPhoto, "/uploads/b.png"},
		{setFirstPhoto, "/uploads/a2.png"},
	}
	for _, step := range steps {
		if err := step.apply(step.url); err != nil {
			t.Fatalf("apply %s: %v", step.url, err)
		}
	}

	want := map[string]any{
		"portrait": map[string]any{"url": "https://res.cloudinary.com/new.png", "alt": "Jane"},
		"logo":     "https://res.cloudinary.com/logo.png",
		"photos":   []any{"/uploads/a2.png", "/uploads/b.png"},
		"title":    "Team",
	}
	if diff := cmp.Diff(want, draft.Tree()); diff != "" {
		t.Fatalf("draft mismatch (-want +got):\n%s", diff)
	}
}

func TestDraftMediaTargetRejectsText(t *testing.T) {
	draft := newTestDraft(t, `{"title":"Team"}`)
	if _, err := draft.MediaTarget("title"); err == nil {
		t.Fatalf("expected error binding a media target to a text field")
	}
}

func TestDraftMediaTargetGallerySlots(t *testing.T) {
	draft := newTestDraft(t, `{"gallery":["https://res.cloudinary.com/a.jpg","caption text",3]}`)

	for _, path := range []string{"gallery.1", "gallery.2"} {
		apply, err := draft.MediaTarget(path)
		if err != nil {
			t.Fatalf("%s target: %v", path, err)
		}
		if err := apply("https://res.cloudinary.com/" + path + ".jpg"); err != nil {
			t.Fatalf("apply %s: %v", path, err)
		}
	}

	want := []any{"https://res.cloudinary.com/a.jpg", "https://res.cloudinary.com/gallery.1.jpg", "https://res.cloudinary.com/gallery.2.jpg"}
	got, _ := GetAtPath(draft.Tree(), "gallery")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("gallery mismatch (-want +got):\n%s", diff)
	}

	plain := newTestDraft(t, `{"tags":["caption text","other"]}`)
	if _, err := plain.MediaTarget("tags.0"); err == nil {
		t.Fatalf("expected error for a slot of a text list")
	}
}

func TestNewSectionEmptyContent(t *testing.T) {
	section, err := Default.NewSection("hero", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{}, section.Content); diff != "" {
		t.Fatalf("expected empty object (-want +got):\n%s", diff)
	}
}
