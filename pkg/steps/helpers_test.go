package steps

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

// runStep builds cfg and runs it over input, failing the test on error. It
// also checks that the input batch was left untouched.
func runStep(t *testing.T, cfg api.StepConfig, input record.Batch) record.Batch {
	t.Helper()
	step, err := NewStep(cfg)
	require.NoError(t, err)

	before := record.Key(batchValues(input)...)
	res, err := step.Run(StepContext{Input: input})
	require.NoError(t, err)
	require.Equal(t, before, record.Key(batchValues(input)...), "input batch was modified")
	return res.Output
}

func batchValues(b record.Batch) []any {
	out := make([]any, len(b))
	for i, r := range b {
		out[i] = map[string]any(r)
	}
	return out
}

// column returns the values of field across the batch.
func column(b record.Batch, field string) []any {
	out := make([]any, len(b))
	for i, r := range b {
		out[i] = r[field]
	}
	return out
}
