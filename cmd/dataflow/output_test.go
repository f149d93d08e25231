package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/processing"
	"github.com/systemstart/many-dataflow/pkg/quality"
	"github.com/systemstart/many-dataflow/pkg/record"
)

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Data Quality Pipeline": "data-quality-pipeline",
		"  orders / by region ": "orders-by-region",
		"Ärger_2024":            "ärger-2024",
		"***":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, slug(in), in)
	}
}

func TestOutputStems(t *testing.T) {
	pipelines := []*api.Pipeline{{Name: "Orders"}, {Name: "orders"}, {Name: "!!"}, {Name: "Users"}}
	assert.Equal(t, []string{"orders", "orders-2", "pipeline", "users"}, outputStems(pipelines))
}

func TestStringList(t *testing.T) {
	var s stringList
	require.NoError(t, s.Set("a=1"))
	require.NoError(t, s.Set("b=2"))
	assert.Equal(t, stringList{"a=1", "b=2"}, s)
	assert.Equal(t, "a=1,b=2", s.String())
}

func TestWriteResult(t *testing.T) {
	outputDirectory = t.TempDir()
	analyze = true
	normalizeFields = stringList{"v"}
	t.Cleanup(func() {
		outputDirectory, analyze, normalizeFields = "", false, nil
	})

	res := processing.Result{
		Pipeline: &api.Pipeline{Name: "orders"},
		Output:   record.Batch{{"v": 10}, {"v": 20}, {"v": 10}},
		Trace:    processing.Trace{{Index: 0, Name: "noop", Type: api.StepTypeSort, Records: 3}},
	}

	err := writeResult("orders", res, quality.Options{RemoveDuplicates: true}, nil)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(outputDirectory, "orders.json"))
	require.NoError(t, err)
	defer f.Close()
	out, err := record.ReadJSON(f)
	require.NoError(t, err)
	assert.Equal(t, record.Batch{{"v": 0.0}, {"v": 1.0}}, out)

	assert.FileExists(t, filepath.Join(outputDirectory, "orders.trace.json"))
	assert.FileExists(t, filepath.Join(outputDirectory, "orders.quality.json"))
}

func TestWriteResult_FailedRunWritesTraceOnly(t *testing.T) {
	outputDirectory = t.TempDir()
	t.Cleanup(func() { outputDirectory = "" })

	res := processing.Result{
		Pipeline: &api.Pipeline{Name: "broken"},
		Err:      errors.New("boom"),
	}

	require.NoError(t, writeResult("broken", res, quality.Options{}, nil))

	assert.FileExists(t, filepath.Join(outputDirectory, "broken.trace.json"))
	assert.NoFileExists(t, filepath.Join(outputDirectory, "broken.json"))
}

func TestPostProcess_InvalidStrategy(t *testing.T) {
	_, err := postProcess(record.Batch{{"a": 1}}, quality.Options{Fill: quality.FillPolicy{Strategy: "bogus"}})
	assert.ErrorIs(t, err, api.ErrInvalidConfig)
}
