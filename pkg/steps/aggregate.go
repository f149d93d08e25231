package steps

import (
	"math"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

type aggregateStep struct {
	name string
	cfg  *api.AggregateConfig
}

// NewAggregateStep creates an aggregate step.
func NewAggregateStep(name string, cfg *api.AggregateConfig) Step {
	return &aggregateStep{name: name, cfg: cfg}
}

func (s *aggregateStep) Name() string { return s.name }
func (s *aggregateStep) Kind() string { return api.StepTypeAggregate }

type group struct {
	values  []any // group-by values of the first record in the group
	records record.Batch
}

// Run emits one record per group, in the order groups are first seen. Groups
// are keyed by the tuple of group-by values, so values containing any
// separator character cannot collide.
func (s *aggregateStep) Run(ctx StepContext) (*StepResult, error) {
	if s.cfg == nil {
		return nil, missingConfig(s.Kind())
	}
	index := make(map[string]*group)
	var order []*group

	for _, r := range ctx.Input {
		values := make([]any, len(s.cfg.GroupBy))
		for i, f := range s.cfg.GroupBy {
			values[i] = r[f]
		}
		key := record.Key(values...)
		g, ok := index[key]
		if !ok {
			g = &group{values: values}
			index[key] = g
			order = append(order, g)
		}
		g.records = append(g.records, r)
	}

	out := make(record.Batch, 0, len(order))
	for _, g := range order {
		row := make(record.Record, len(s.cfg.GroupBy)+len(s.cfg.Aggregations))
		for i, f := range s.cfg.GroupBy {
			row[f] = g.values[i]
		}
		for _, agg := range s.cfg.Aggregations {
			v, err := aggregate(agg, g.records)
			if err != nil {
				return nil, err
			}
			row[agg.OutputField] = v
		}
		out = append(out, row)
	}
	return &StepResult{Output: out}, nil
}

func aggregate(agg api.Aggregation, records record.Batch) (any, error) {
	switch agg.Operation {
	case api.AggCount:
		return len(records), nil
	case api.AggCountDistinct:
		// 1 and "1" are distinct values.
		seen := make(map[string]struct{})
		for _, r := range records {
			seen[record.Key(r[agg.Field])] = struct{}{}
		}
		return len(seen), nil
	}

	values := numericValues(records, agg.Field)
	switch agg.Operation {
	case api.AggSum:
		return sum(values), nil
	case api.AggAvg:
		if len(values) == 0 {
			return nil, nil
		}
		return sum(values) / float64(len(values)), nil
	case api.AggMin:
		if len(values) == 0 {
			return nil, nil
		}
		m := math.Inf(1)
		for _, v := range values {
			m = math.Min(m, v)
		}
		return m, nil
	case api.AggMax:
		if len(values) == 0 {
			return nil, nil
		}
		m := math.Inf(-1)
		for _, v := range values {
			m = math.Max(m, v)
		}
		return m, nil
	default:
		return nil, api.Invalid("unknown aggregation: %s", agg.Operation)
	}
}

// numericValues coerces field values to numbers, excluding what cannot be
// coerced.
func numericValues(records record.Batch, field string) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if f, ok := record.NumberLoose(r[field]); ok {
			out = append(out, f)
		}
	}
	return out
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
