package handlers

import (
	"html/template"
	"strings"

	"firmsite/internal/content"
	"firmsite/pkg/validator"
)

// FieldView is a classified field prepared for a template. Text fields carry
// Text, long text also carries sanitized HTML, containers carry Children.
type FieldView struct {
	Key      string
	Path     string
	Label    string
	Kind     string
	Text     string
	HTML     template.HTML
	Children []FieldView
}

func (f FieldView) IsText() bool {
	return f.Kind == string(content.KindShortText) || f.Kind == string(content.KindLongText)
}

func (f FieldView) IsLong() bool {
	return f.Kind == string(content.KindLongText)
}

func (f FieldView) IsMedia() bool {
	return f.Kind == string(content.KindMedia)
}

func (f FieldView) IsGallery() bool {
	return f.Kind == string(content.KindGallery)
}

func (f FieldView) IsContainer() bool {
	return f.Kind == string(content.KindObject) || f.Kind == string(content.KindList)
}

// SectionView is one section of a page as templates see it.
type SectionView struct {
	ID     string
	Title  string
	Fields []FieldView
}

// Field finds a top level field by key, for templates that place specific
// fields by hand.
func (s SectionView) Field(key string) FieldView {
	for _, field := range s.Fields {
		if field.Key == key {
			return field
		}
	}
	return FieldView{}
}

func buildSectionView(classifier *content.Classifier, section content.Section) SectionView {
	return SectionView{
		ID:     section.ID,
		Title:  content.Humanize(section.ID),
		Fields: buildFieldViews(classifier.BuildFields(section.Content, section.Order)),
	}
}

func buildSectionViews(classifier *content.Classifier, sections []content.Section) []SectionView {
	views := make([]SectionView, 0, len(sections))
	for _, section := range sections {
		views = append(views, buildSectionView(classifier, section))
	}
	return views
}

func buildFieldViews(fields []content.Field) []FieldView {
	views := make([]FieldView, 0, len(fields))
	for _, field := range fields {
		view := FieldView{
			Key:   field.Key,
			Path:  field.Path,
			Label: field.Label,
			Kind:  string(field.Kind),
			Text:  field.Text(),
		}
		if field.Kind == content.KindLongText {
			view.HTML = longTextHTML(view.Text)
		}
		if len(field.Children) > 0 {
			view.Children = buildFieldViews(field.Children)
		}
		views = append(views, view)
	}
	return views
}

// longTextHTML sanitizes stored rich text. Plain text keeps its line breaks.
func longTextHTML(text string) template.HTML {
	if !strings.ContainsAny(text, "<>") {
		text = strings.ReplaceAll(template.HTMLEscapeString(text), "\n", "<br>")
	}
	return template.HTML(validator.SanitizeHTML(text))
}

// overlayValues shows submitted form values in place of the stored ones, so
// a failed save does not lose the admin's edits.
func overlayValues(views []FieldView, values map[string]string) {
	for i := range views {
		if value, ok := values[views[i].Path]; ok {
			views[i].Text = value
		}
		overlayValues(views[i].Children, values)
	}
}
