package steps

import (
	"time"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

// StepContext provides the runtime context for a step.
type StepContext struct {
	Input record.Batch     // output of the prior step, never modified
	Now   func() time.Time // clock for timestamp enrichment; time.Now when nil
}

func (c StepContext) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// StepResult holds the output of a step.
type StepResult struct {
	Output record.Batch
}

// Step is the interface all pipeline steps implement.
type Step interface {
	Name() string
	Kind() string
	Run(ctx StepContext) (*StepResult, error)
}

// missingConfig is returned by a step built without its config.
func missingConfig(kind string) error {
	return api.Invalid("%s config is required", kind)
}
