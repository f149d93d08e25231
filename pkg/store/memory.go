package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/systemstart/many-dataflow/pkg/api"
)

// Memory is a Repository held in memory. Pipelines are kept encoded, so
// callers never share state with the store.
type Memory struct {
	mu        sync.RWMutex
	pipelines map[string][]byte
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{pipelines: make(map[string][]byte)}
}

func (m *Memory) Save(ctx context.Context, p *api.Pipeline) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, definition, err := encode(p)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.pipelines[id] = definition
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) Load(ctx context.Context, id string) (*api.Pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	definition, ok := m.pipelines[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("loading %q: %w", id, ErrNotFound)
	}
	return decode(id, definition)
}

func (m *Memory) List(ctx context.Context) ([]*api.Pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*api.Pipeline, 0, len(m.pipelines))
	for id, definition := range m.pipelines {
		p, err := decode(id, definition)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *api.Pipeline) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pipelines[id]; !ok {
		return fmt.Errorf("deleting %q: %w", id, ErrNotFound)
	}
	delete(m.pipelines, id)
	return nil
}
