package processing

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

func sequencePipeline(id string) *api.Pipeline {
	return &api.Pipeline{
		ID:   id,
		Name: "pipeline " + id,
		Steps: []api.StepConfig{
			{Name: "seq", Type: api.StepTypeEnrich, Enrich: &api.EnrichConfig{Type: api.EnrichSequence}},
			{Name: "desc", Type: api.StepTypeSort, Sort: &api.SortConfig{Field: "sequence", Direction: api.SortDesc}},
		},
	}
}

func TestRunner_RunAllSharesInput(t *testing.T) {
	input := record.Batch{{"v": "a"}, {"v": "b"}, {"v": "c"}}
	var pipelines []*api.Pipeline
	for i := range 8 {
		pipelines = append(pipelines, sequencePipeline(fmt.Sprint(i)))
	}

	r := &Runner{Concurrency: 4}
	results, err := r.RunAll(context.Background(), pipelines, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(pipelines) {
		t.Fatalf("expected %d results, got %d", len(pipelines), len(results))
	}

	want := record.Batch{
		{"v": "c", "sequence": 3},
		{"v": "b", "sequence": 2},
		{"v": "a", "sequence": 1},
	}
	for i, res := range results {
		if res.Pipeline != pipelines[i] {
			t.Errorf("result %d belongs to pipeline %q", i, res.Pipeline.Name)
		}
		if res.Err != nil {
			t.Fatalf("pipeline %d failed: %v", i, res.Err)
		}
		if !reflect.DeepEqual(res.Output, want) {
			t.Errorf("pipeline %d output = %v, want %v", i, res.Output, want)
		}
		if counts := res.Trace.Counts(); !reflect.DeepEqual(counts, []int{3, 3}) {
			t.Errorf("pipeline %d trace counts = %v", i, counts)
		}
	}
	if !reflect.DeepEqual(input, record.Batch{{"v": "a"}, {"v": "b"}, {"v": "c"}}) {
		t.Errorf("input batch was modified: %v", input)
	}
}

func TestRunner_RunAllReportsFailures(t *testing.T) {
	bad := &api.Pipeline{ID: "bad", Name: "bad", Steps: []api.StepConfig{{Name: "x", Type: api.StepTypeSort}}}
	pipelines := []*api.Pipeline{sequencePipeline("ok"), bad}

	results, err := (&Runner{}).RunAll(context.Background(), pipelines, record.Batch{{"v": 1}})

	if err == nil || !strings.Contains(err.Error(), "1 pipeline(s) failed") {
		t.Fatalf("expected a failure summary, got %v", err)
	}
	if results[0].Err != nil {
		t.Errorf("unexpected error for pipeline ok: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, api.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", results[1].Err)
	}
}

func TestRunner_RunAllRejectsDuplicateIDs(t *testing.T) {
	first := sequencePipeline("same")
	second := sequencePipeline("same")
	second.Name = "copy"
	pipelines := []*api.Pipeline{first, sequencePipeline("other"), second}

	// serial and parallel runs must agree
	for _, concurrency := range []int{1, 3} {
		t.Run(fmt.Sprint(concurrency), func(t *testing.T) {
			results, err := (&Runner{Concurrency: concurrency}).RunAll(context.Background(), pipelines, record.Batch{{"v": 1}})

			if err == nil || !strings.Contains(err.Error(), "1 pipeline(s) failed: [copy]") {
				t.Fatalf("expected the copy to fail, got %v", err)
			}
			if results[0].Err != nil || results[1].Err != nil {
				t.Errorf("unexpected errors: %v, %v", results[0].Err, results[1].Err)
			}
			if !errors.Is(results[2].Err, ErrDuplicateID) {
				t.Errorf("expected ErrDuplicateID, got %v", results[2].Err)
			}
			if results[2].Pipeline != second || results[2].Output != nil || results[2].Trace != nil {
				t.Errorf("duplicate pipeline must not run: %+v", results[2])
			}
		})
	}
}

func TestRunner_RunAllAllowsEmptyIDs(t *testing.T) {
	pipelines := []*api.Pipeline{sequencePipeline(""), sequencePipeline("")}

	if _, err := (&Runner{}).RunAll(context.Background(), pipelines, record.Batch{{"v": 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunner_RunAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := (&Runner{Concurrency: 1}).RunAll(ctx, []*api.Pipeline{sequencePipeline("a")}, nil)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("expected context.Canceled result, got %v", results[0].Err)
	}
}

func TestRunner_GuardRejectsConcurrentRun(t *testing.T) {
	r := &Runner{}
	p := sequencePipeline("job-1")
	if !r.guard.TryLock(p.ID) {
		t.Fatal("expected to lock job-1")
	}

	res := r.Run(context.Background(), p, record.Batch{{"v": 1}})
	if !errors.Is(res.Err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", res.Err)
	}

	r.guard.Unlock(p.ID)
	res = r.Run(context.Background(), p, record.Batch{{"v": 1}})
	if res.Err != nil {
		t.Errorf("unexpected error after unlock: %v", res.Err)
	}
}

func TestRunningGuard(t *testing.T) {
	var g runningGuard
	if !g.TryLock("a") {
		t.Error("first lock of a failed")
	}
	if g.TryLock("a") {
		t.Error("second lock of a succeeded")
	}
	if !g.TryLock("b") {
		t.Error("lock of b failed")
	}
	g.Unlock("a")
	if !g.TryLock("a") {
		t.Error("relock of a failed")
	}
}
