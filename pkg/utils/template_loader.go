package utils

import (
	"fmt"
	"html/template"
	"path/filepath"
	"sort"
)

// LoadTemplates parses every *.html file in templatesDir and its admin
// subdirectory. Templates are looked up by base name.
func LoadTemplates(templatesDir string) (*template.Template, error) {
	var files []string
	for _, pattern := range []string{
		filepath.Join(templatesDir, "*.html"),
		filepath.Join(templatesDir, "admin", "*.html"),
	} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob templates: %w", err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found in %s", templatesDir)
	}

	sort.Strings(files)

	root := template.New("root").Funcs(GetTemplateFuncs())
	if _, err := root.ParseFiles(files...); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return root, nil
}
