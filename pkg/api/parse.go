package api

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/systemstart/many-dataflow/pkg/record"
)

// LoadPipeline reads a pipeline file, renders it with vars, sets
// Dir/FilePath, resolves join target files and validates it.
func LoadPipeline(filename string, vars map[string]any) (*Pipeline, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	p, err := ParsePipeline(filepath.Base(filename), data, vars)
	if err != nil {
		return nil, err
	}
	p.FilePath = absPath
	p.Dir = filepath.Dir(absPath)

	if err := p.resolveJoinTargets(); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating pipeline %s: %w", filename, err)
	}

	return p, nil
}

// ParsePipeline renders content as a template with vars and decodes the
// result. Pipelines without an id get a random one.
func ParsePipeline(name string, content []byte, vars map[string]any) (*Pipeline, error) {
	rendered, err := Render(name, content, vars)
	if err != nil {
		return nil, err
	}

	var p Pipeline
	if err := yaml.Unmarshal(rendered, &p); err != nil {
		return nil, fmt.Errorf("parsing pipeline file: %w", err)
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return &p, nil
}

// Render executes content as a text/template with the sprig function map.
func Render(name string, content []byte, vars map[string]any) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(sprig.FuncMap()).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	if vars == nil {
		vars = map[string]any{}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) resolveJoinTargets() error {
	for i := range p.Steps {
		join := p.Steps[i].Join
		if join == nil || join.TargetFile == "" || join.TargetData != nil {
			continue
		}

		path := join.TargetFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.Dir, path)
		}
		batch, err := record.ReadJSONFile(path)
		if err != nil {
			return fmt.Errorf("step %q: loading join target: %w", p.Steps[i].Name, err)
		}
		join.TargetData = batch
	}
	return nil
}
