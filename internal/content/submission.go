package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
)

var ErrNotAnObject = errors.New("section content must be an object")

// Attachment is a binary image picked for the section, sent beside the fields.
type Attachment struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

// FormField is one flat string field of a submission.
type FormField struct {
	Name  string
	Value string
}

// Submission is a section tree flattened into multipart form fields.
type Submission struct {
	Fields     []FormField
	Attachment *Attachment
}

// Get returns the value of the named field.
func (s *Submission) Get(name string) (string, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

// SerializeForSubmission flattens the top level of tree into string fields:
// objects and arrays become JSON text, scalars are passed through. The id and
// imageFile keys are never sent as fields; attachment, when present, travels
// as the binary imageFile part.
func SerializeForSubmission(tree any, attachment *Attachment) (*Submission, error) {
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, ErrNotAnObject
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		if key == "id" || key == AttachmentField {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sub := &Submission{Fields: make([]FormField, 0, len(keys)), Attachment: attachment}
	for _, key := range keys {
		value, err := formValue(obj[key])
		if err != nil {
			return nil, fmt.Errorf("serialize field %q: %w", key, err)
		}
		sub.Fields = append(sub.Fields, FormField{Name: key, Value: value})
	}

	return sub, nil
}

func formValue(value any) (string, error) {
	switch v := value.(type) {
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	case string:
		return v, nil
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// WriteMultipart encodes the submission as multipart/form-data and returns
// the content type including the boundary.
func (s *Submission) WriteMultipart(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)

	for _, field := range s.Fields {
		if err := mw.WriteField(field.Name, field.Value); err != nil {
			return "", err
		}
	}

	if s.Attachment != nil && s.Attachment.Reader != nil {
		header := make(textproto.MIMEHeader)
		filename := s.Attachment.Filename
		if filename == "" {
			filename = "upload"
		}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, AttachmentField, filename))
		contentType := s.Attachment.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := mw.CreatePart(header)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(part, s.Attachment.Reader); err != nil {
			return "", err
		}
	}

	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}

// DecodeSubmission rebuilds a tree from flat form values: fields holding JSON
// objects or arrays are parsed back, everything else stays a string.
func DecodeSubmission(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 0 || key == AttachmentField {
			continue
		}
		raw := vals[0]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" && (trimmed[0] == '{' || trimmed[0] == '[') {
			var decoded any
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				out[key] = decoded
				continue
			}
		}
		out[key] = raw
	}
	return out
}
