package processing

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
	"github.com/systemstart/many-dataflow/pkg/steps"
)

// StepTrace records the outcome of one executed step.
type StepTrace struct {
	Index    int           `json:"index"`
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Records  int           `json:"records"` // record count after the step
	Duration time.Duration `json:"duration"`
}

// Trace lists the executed steps of a run in order.
type Trace []StepTrace

// Counts returns the record count after each step.
func (t Trace) Counts() []int {
	out := make([]int, len(t))
	for i, s := range t {
		out[i] = s.Records
	}
	return out
}

// StepError reports the step that stopped a run.
type StepError struct {
	Index int
	Name  string
	Type  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d %q (%s) failed: %v", e.Index, e.Name, e.Type, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// RunPipeline executes a pipeline's steps sequentially over input.
func RunPipeline(pipeline *api.Pipeline, input record.Batch) (record.Batch, Trace, error) {
	return RunPipelineAt(pipeline, input, time.Now)
}

// RunPipelineAt is RunPipeline with an explicit clock for timestamp
// enrichment. The output of each step is the only input of the next. On
// failure it returns the trace of the steps that completed and a *StepError.
// A pipeline without steps returns input unchanged.
func RunPipelineAt(pipeline *api.Pipeline, input record.Batch, now func() time.Time) (record.Batch, Trace, error) {
	data := input
	trace := make(Trace, 0, len(pipeline.Steps))

	for i, stepCfg := range pipeline.Steps {
		slog.Info("running step", "pipeline", pipeline.Name, "step", stepCfg.Name, "type", stepCfg.Type, "records", len(data))

		start := time.Now()
		out, err := runStep(stepCfg, data, now)
		if err != nil {
			return nil, trace, &StepError{Index: i, Name: stepCfg.Name, Type: stepCfg.Type, Err: err}
		}
		data = out

		trace = append(trace, StepTrace{
			Index:    i,
			Name:     stepCfg.Name,
			Type:     stepCfg.Type,
			Records:  len(data),
			Duration: time.Since(start),
		})
		slog.Debug("step finished", "pipeline", pipeline.Name, "step", stepCfg.Name, "records", len(data))
	}

	return data, trace, nil
}

func runStep(stepCfg api.StepConfig, input record.Batch, now func() time.Time) (record.Batch, error) {
	step, err := steps.NewStep(stepCfg)
	if err != nil {
		return nil, fmt.Errorf("creating step: %w", err)
	}

	result, err := step.Run(steps.StepContext{Input: input, Now: now})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return record.Batch{}, nil
	}
	return result.Output, nil
}
