package steps

import (
	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

type dedupeStep struct {
	name   string
	fields []string
}

// NewDedupeStep creates a dedupe step. A nil config, or one without fields,
// compares whole records.
func NewDedupeStep(name string, cfg *api.DedupeConfig) Step {
	s := &dedupeStep{name: name}
	if cfg != nil {
		s.fields = cfg.Fields
	}
	return s
}

func (s *dedupeStep) Name() string { return s.name }
func (s *dedupeStep) Kind() string { return api.StepTypeDedupe }

// Run keeps the first record of every key.
func (s *dedupeStep) Run(ctx StepContext) (*StepResult, error) {
	seen := make(map[string]struct{}, len(ctx.Input))
	out := make(record.Batch, 0, len(ctx.Input))
	for _, r := range ctx.Input {
		key := s.key(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return &StepResult{Output: out}, nil
}

func (s *dedupeStep) key(r record.Record) string {
	if len(s.fields) == 0 {
		return record.Key(r)
	}
	values := make([]any, len(s.fields))
	for i, f := range s.fields {
		values[i] = r[f]
	}
	return record.Key(values...)
}
