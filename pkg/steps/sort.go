package steps

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

type sortStep struct {
	name string
	cfg  *api.SortConfig
}

// NewSortStep creates a sort step. The default direction is ascending.
func NewSortStep(name string, cfg *api.SortConfig) Step {
	return &sortStep{name: name, cfg: cfg}
}

func (s *sortStep) Name() string { return s.name }
func (s *sortStep) Kind() string { return api.StepTypeSort }

func (s *sortStep) Run(ctx StepContext) (*StepResult, error) {
	if s.cfg == nil {
		return nil, missingConfig(s.Kind())
	}
	desc := s.cfg.Direction == api.SortDesc
	out := ctx.Input.Clone()
	slices.SortStableFunc(out, func(a, b record.Record) int {
		return compareValues(a[s.cfg.Field], b[s.cfg.Field], desc)
	})
	return &StepResult{Output: out}, nil
}

// compareValues orders values of one type natively, reversed when desc.
// Values of different types are ordered by typeRank in either direction, so
// missing values always sort last. NaN sorts with the missing values.
func compareValues(a, b any, desc bool) int {
	if c, ok := record.Compare(a, b); ok {
		if desc {
			return -c
		}
		return c
	}
	return cmp.Compare(typeRank(a), typeRank(b))
}

func typeRank(v any) int {
	if f, ok := record.Number(v); ok {
		if math.IsNaN(f) {
			return 5
		}
		return 0
	}
	switch v.(type) {
	case nil:
		return 5
	case string:
		return 1
	case bool:
		return 2
	case time.Time:
		return 3
	default:
		return 4
	}
}
