package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

func TestNewStep(t *testing.T) {
	factor := 2.0
	tests := []struct {
		name    string
		cfg     api.StepConfig
		wantErr bool
	}{
		{
			name: "filter step",
			cfg: api.StepConfig{
				Name:   "keep",
				Type:   api.StepTypeFilter,
				Filter: &api.FilterConfig{Field: "v", Operator: api.OpNotNull},
			},
		},
		{
			name: "transform step",
			cfg: api.StepConfig{
				Name: "double",
				Type: api.StepTypeTransform,
				Transform: &api.TransformConfig{
					Field: "v", Transformation: api.TransformMultiply,
					Params: api.TransformParams{Factor: &factor},
				},
			},
		},
		{
			name: "aggregate step",
			cfg: api.StepConfig{
				Name: "totals",
				Type: api.StepTypeAggregate,
				Aggregate: &api.AggregateConfig{
					Aggregations: []api.Aggregation{{Operation: api.AggCount, OutputField: "n"}},
				},
			},
		},
		{
			name: "join step",
			cfg: api.StepConfig{
				Name: "lookup",
				Type: api.StepTypeJoin,
				Join: &api.JoinConfig{SourceField: "id", TargetField: "id"},
			},
		},
		{
			name: "sort step",
			cfg: api.StepConfig{
				Name: "order",
				Type: api.StepTypeSort,
				Sort: &api.SortConfig{Field: "v"},
			},
		},
		{
			name: "dedupe step",
			cfg: api.StepConfig{
				Name: "unique",
				Type: api.StepTypeDedupe,
			},
		},
		{
			name: "enrich step",
			cfg: api.StepConfig{
				Name:   "seq",
				Type:   api.StepTypeEnrich,
				Enrich: &api.EnrichConfig{Type: api.EnrichSequence},
			},
		},
		{
			name: "unknown type",
			cfg: api.StepConfig{
				Name: "bad",
				Type: "unknown",
			},
			wantErr: true,
		},
		{
			name: "missing config",
			cfg: api.StepConfig{
				Name: "bad",
				Type: api.StepTypeSort,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := NewStep(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, api.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, step)
			assert.Equal(t, tt.cfg.Name, step.Name())
			assert.Equal(t, tt.cfg.Type, step.Kind())
		})
	}
}

func TestSteps_NilConfig(t *testing.T) {
	tests := []struct {
		kind    string
		step    Step
		wantErr bool
	}{
		{api.StepTypeFilter, NewFilterStep("f", nil), true},
		{api.StepTypeTransform, NewTransformStep("t", nil), true},
		{api.StepTypeAggregate, NewAggregateStep("a", nil), true},
		{api.StepTypeJoin, NewJoinStep("j", nil), true},
		{api.StepTypeSort, NewSortStep("s", nil), true},
		{api.StepTypeEnrich, NewEnrichStep("e", nil), true},
		// whole-record dedupe needs no config
		{api.StepTypeDedupe, NewDedupeStep("d", nil), false},
	}

	input := record.Batch{{"v": 1}, {"v": 1}}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.step.Kind())

			res, err := tt.step.Run(StepContext{Input: input})
			if tt.wantErr {
				assert.ErrorIs(t, err, api.ErrInvalidConfig)
				assert.ErrorContains(t, err, tt.kind+" config is required")
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Len(t, res.Output, 1)
		})
	}
}
