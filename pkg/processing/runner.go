package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

// ErrAlreadyRunning is returned when a pipeline ID is started while a run
// with the same ID is still in progress.
var ErrAlreadyRunning = errors.New("pipeline already running")

// ErrDuplicateID is reported by RunAll for every pipeline whose ID was
// already used by an earlier pipeline of the same call.
var ErrDuplicateID = errors.New("duplicate pipeline id")

// Result is the outcome of one pipeline run.
type Result struct {
	Pipeline *api.Pipeline
	Output   record.Batch
	Trace    Trace
	Err      error
}

// Runner executes independent pipelines concurrently. Every run reads the
// same input batch, which no step modifies.
type Runner struct {
	// Concurrency bounds the number of pipelines running at once.
	// Zero or less means GOMAXPROCS.
	Concurrency int
	// Now is the clock passed to every run; time.Now when nil.
	Now func() time.Time

	guard runningGuard
}

// Run executes one pipeline unless a run with the same ID is in progress.
// Pipelines without an ID are never guarded.
func (r *Runner) Run(ctx context.Context, pipeline *api.Pipeline, input record.Batch) Result {
	res := Result{Pipeline: pipeline}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	if pipeline.ID != "" {
		if !r.guard.TryLock(pipeline.ID) {
			res.Err = fmt.Errorf("%w: %s", ErrAlreadyRunning, pipeline.ID)
			return res
		}
		defer r.guard.Unlock(pipeline.ID)
	}

	now := r.Now
	if now == nil {
		now = time.Now
	}
	res.Output, res.Trace, res.Err = RunPipelineAt(pipeline, input, now)
	return res
}

// RunAll runs every pipeline over input and returns one Result per pipeline,
// in the order given. A failed pipeline does not stop the others; the
// returned error summarizes the failures. Pipelines not yet started when ctx
// is cancelled report the context error. A pipeline reusing the ID of an
// earlier one is not run and fails with ErrDuplicateID.
func (r *Runner) RunAll(ctx context.Context, pipelines []*api.Pipeline, input record.Batch) ([]Result, error) {
	results := make([]Result, len(pipelines))

	limit := r.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	seen := make(map[string]struct{}, len(pipelines))
	for i, p := range pipelines {
		if p.ID != "" {
			if _, dup := seen[p.ID]; dup {
				results[i] = Result{Pipeline: p, Err: fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)}
				slog.Error("pipeline not run", "pipeline", p.Name, "id", p.ID, "error", results[i].Err)
				continue
			}
			seen[p.ID] = struct{}{}
		}

		g.Go(func() error {
			slog.Info("executing pipeline", "pipeline", p.Name, "id", p.ID)
			results[i] = r.Run(gctx, p, input)
			if err := results[i].Err; err != nil {
				slog.Error("pipeline failed", "pipeline", p.Name, "id", p.ID, "error", err)
				if ctxErr := gctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
					return err
				}
				return nil
			}
			slog.Info("pipeline succeeded", "pipeline", p.Name, "records", len(results[i].Output))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	var failed []string
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res.Pipeline.Name)
		}
	}
	if len(failed) > 0 {
		return results, fmt.Errorf("%d pipeline(s) failed: %v", len(failed), failed)
	}
	return results, nil
}

// runningGuard ensures only one run of a given pipeline ID at a time.
type runningGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// TryLock marks id as running. It returns false if id is already running.
func (g *runningGuard) TryLock(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[id]; ok {
		return false
	}
	g.running[id] = struct{}{}
	return true
}

// Unlock marks id as no longer running.
func (g *runningGuard) Unlock(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, id)
}
