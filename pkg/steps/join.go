package steps

import (
	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

type joinStep struct {
	name string
	cfg  *api.JoinConfig
}

// NewJoinStep creates a join step. An empty join type is a left join.
func NewJoinStep(name string, cfg *api.JoinConfig) Step {
	return &joinStep{name: name, cfg: cfg}
}

func (s *joinStep) Name() string { return s.name }
func (s *joinStep) Kind() string { return api.StepTypeJoin }

func (s *joinStep) Run(ctx StepContext) (*StepResult, error) {
	if s.cfg == nil {
		return nil, missingConfig(s.Kind())
	}
	lookup := make(map[string]record.Record, len(s.cfg.TargetData))
	for _, t := range s.cfg.TargetData {
		v := t[s.cfg.TargetField]
		if v == nil {
			continue
		}
		// Last wins on duplicate keys.
		lookup[record.Key(v)] = t
	}

	inner := s.cfg.JoinType == api.JoinInner
	out := make(record.Batch, 0, len(ctx.Input))
	for _, r := range ctx.Input {
		var match record.Record
		if v := r[s.cfg.SourceField]; v != nil {
			match = lookup[record.Key(v)]
		}
		switch {
		case match != nil:
			out = append(out, r.Merge(match))
		case !inner:
			out = append(out, r.Clone())
		}
	}
	return &StepResult{Output: out}, nil
}
