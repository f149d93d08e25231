package api

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
)

const templateSuffix = ".yaml.tmpl"

//go:embed templates/*.yaml.tmpl
var builtinTemplates embed.FS

// TemplateNames lists the built-in pipeline templates.
func TemplateNames() []string {
	entries, err := fs.ReadDir(builtinTemplates, "templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), templateSuffix))
	}
	slices.Sort(names)
	return names
}

// RenderTemplate renders the built-in template name with vars and returns
// the validated pipeline.
func RenderTemplate(name string, vars map[string]any) (*Pipeline, error) {
	content, err := builtinTemplates.ReadFile(path.Join("templates", name+templateSuffix))
	if err != nil {
		return nil, fmt.Errorf("unknown template %q (available: %s)", name, strings.Join(TemplateNames(), ", "))
	}

	p, err := ParsePipeline(name, content, vars)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}
	return p, nil
}
