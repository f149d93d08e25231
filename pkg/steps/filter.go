package steps

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

type filterStep struct {
	name string
	cfg  *api.FilterConfig
}

// NewFilterStep creates a filter step.
func NewFilterStep(name string, cfg *api.FilterConfig) Step {
	return &filterStep{name: name, cfg: cfg}
}

func (s *filterStep) Name() string { return s.name }
func (s *filterStep) Kind() string { return api.StepTypeFilter }

func (s *filterStep) Run(ctx StepContext) (*StepResult, error) {
	if s.cfg == nil {
		return nil, missingConfig(s.Kind())
	}
	match, known := matcher(s.cfg.Operator)
	if !known {
		slog.Warn("unknown filter operator, keeping every record", "step", s.name, "operator", s.cfg.Operator)
	}

	out := make(record.Batch, 0, len(ctx.Input))
	for _, r := range ctx.Input {
		if match(r[s.cfg.Field], s.cfg.Value) {
			out = append(out, r)
		}
	}
	return &StepResult{Output: out}, nil
}

type matchFunc func(fieldValue, value any) bool

// matcher returns the predicate for op. Unknown operators match everything.
func matcher(op string) (matchFunc, bool) {
	switch op {
	case api.OpEquals:
		return record.Equal, true
	case api.OpNotEquals:
		return func(a, b any) bool { return !record.Equal(a, b) }, true
	case api.OpContains:
		return func(a, b any) bool {
			return strings.Contains(record.Text(a), record.Text(b))
		}, true
	case api.OpGreaterThan:
		return func(a, b any) bool {
			c, ok := record.Compare(a, b)
			return ok && c > 0
		}, true
	case api.OpLessThan:
		return func(a, b any) bool {
			c, ok := record.Compare(a, b)
			return ok && c < 0
		}, true
	case api.OpIn:
		return inList, true
	case api.OpNotNull:
		return func(a, _ any) bool { return a != nil }, true
	default:
		return func(any, any) bool { return true }, false
	}
}

func inList(fieldValue, list any) bool {
	v := reflect.ValueOf(list)
	if list == nil || v.Kind() != reflect.Slice {
		return false
	}
	for i := range v.Len() {
		if record.Equal(fieldValue, v.Index(i).Interface()) {
			return true
		}
	}
	return false
}
