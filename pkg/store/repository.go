// Package store keeps pipeline definitions. Records, traces and reports are
// never stored; only the pipeline configuration is.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/systemstart/many-dataflow/pkg/api"
)

// ErrNotFound is returned for an unknown pipeline ID.
var ErrNotFound = errors.New("pipeline not found")

// Repository saves and loads pipeline definitions by ID.
type Repository interface {
	// Save stores p, replacing any pipeline with the same ID, and returns the
	// ID. A pipeline without an ID is stored under a new one; p itself is not
	// modified.
	Save(ctx context.Context, p *api.Pipeline) (string, error)
	Load(ctx context.Context, id string) (*api.Pipeline, error)
	// List returns all pipelines ordered by name, then ID.
	List(ctx context.Context) ([]*api.Pipeline, error)
	Delete(ctx context.Context, id string) error
}

// encode returns the ID to store p under and its YAML definition.
func encode(p *api.Pipeline) (string, []byte, error) {
	if p == nil {
		return "", nil, errors.New("pipeline is nil")
	}
	stored := *p
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	definition, err := yaml.Marshal(&stored)
	if err != nil {
		return "", nil, fmt.Errorf("encoding pipeline %q: %w", stored.ID, err)
	}
	return stored.ID, definition, nil
}

func decode(id string, definition []byte) (*api.Pipeline, error) {
	var p api.Pipeline
	if err := yaml.Unmarshal(definition, &p); err != nil {
		return nil, fmt.Errorf("decoding pipeline %q: %w", id, err)
	}
	return &p, nil
}
