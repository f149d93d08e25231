package steps

import (
	"fmt"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

type transformStep struct {
	name string
	cfg  *api.TransformConfig
}

// NewTransformStep creates a transform step.
func NewTransformStep(name string, cfg *api.TransformConfig) Step {
	return &transformStep{name: name, cfg: cfg}
}

func (s *transformStep) Name() string { return s.name }
func (s *transformStep) Kind() string { return api.StepTypeTransform }

func (s *transformStep) Run(ctx StepContext) (*StepResult, error) {
	if s.cfg == nil {
		return nil, missingConfig(s.Kind())
	}
	t, err := getTransformation(s.cfg.Transformation)
	if err != nil {
		return nil, err
	}

	output := s.cfg.OutputField
	if output == "" {
		output = s.cfg.Field
	}

	out := make(record.Batch, len(ctx.Input))
	for i, r := range ctx.Input {
		value, err := t.Apply(r, r[s.cfg.Field], s.cfg.Params)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = r.With(output, value)
	}
	return &StepResult{Output: out}, nil
}
