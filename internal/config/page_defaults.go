package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PageDefaults holds fallback section content keyed by page slug and section id.
type PageDefaults map[string]map[string]any

type pageDefaultsFile struct {
	Pages PageDefaults `yaml:"pages"`
}

// Section returns the default content for one section of a page.
func (d PageDefaults) Section(slug, sectionID string) (any, bool) {
	sections, ok := d[slug]
	if !ok {
		return nil, false
	}
	value, ok := sections[sectionID]
	return value, ok
}

// Sections returns the ids configured for slug.
func (d PageDefaults) Sections(slug string) map[string]any {
	return d[slug]
}

// LoadPageDefaults reads the YAML defaults file. An empty path or a missing
// file yields an empty set.
func LoadPageDefaults(path string) (PageDefaults, error) {
	if path == "" {
		return PageDefaults{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return PageDefaults{}, nil
		}
		return nil, fmt.Errorf("read page defaults: %w", err)
	}

	return ParsePageDefaults(data)
}

func ParsePageDefaults(data []byte) (PageDefaults, error) {
	var file pageDefaultsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse page defaults: %w", err)
	}
	if file.Pages == nil {
		return PageDefaults{}, nil
	}
	for slug, sections := range file.Pages {
		for id, value := range sections {
			sections[id] = normalizeYAML(value)
		}
		file.Pages[slug] = sections
	}
	return file.Pages, nil
}

// normalizeYAML turns decoded YAML into the shapes encoding/json produces so
// the content package can treat defaults like backend content.
func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeYAML(item)
		}
		return out
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}
