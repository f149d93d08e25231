package api

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// ErrInvalidConfig marks a malformed or mismatched step, rule or option
// configuration.
var ErrInvalidConfig = errors.New("invalid config")

var validStepTypes = []string{
	StepTypeFilter,
	StepTypeTransform,
	StepTypeAggregate,
	StepTypeJoin,
	StepTypeSort,
	StepTypeDedupe,
	StepTypeEnrich,
}

var validTransformations = []string{
	TransformUppercase,
	TransformLowercase,
	TransformTrim,
	TransformReplace,
	TransformSubstring,
	TransformParseNumber,
	TransformParseDate,
	TransformConcat,
	TransformMultiply,
	TransformRound,
}

var validAggregations = []string{
	AggSum,
	AggAvg,
	AggMin,
	AggMax,
	AggCount,
	AggCountDistinct,
}

var validEnrichments = []string{
	EnrichTimestamp,
	EnrichHash,
	EnrichSequence,
}

// Invalid returns an error wrapping ErrInvalidConfig.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the pipeline configuration for errors. A pipeline without
// steps is valid.
func (p *Pipeline) Validate() error {
	if p.Name == "" {
		return Invalid("pipeline name is required")
	}

	for i, step := range p.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d: %w", i, Invalid("name is required"))
		}
		if err := ValidateStep(step); err != nil {
			return fmt.Errorf("step %d %q: %w", i, step.Name, err)
		}
	}

	return nil
}

// ValidateStep checks that the config set on step matches its type and
// carries every key the executor needs.
func ValidateStep(step StepConfig) error {
	if !slices.Contains(validStepTypes, step.Type) {
		return Invalid("unknown type %q", step.Type)
	}
	if err := checkConfigShape(step); err != nil {
		return err
	}

	switch step.Type {
	case StepTypeFilter:
		return validateFilter(step.Filter)
	case StepTypeTransform:
		return validateTransform(step.Transform)
	case StepTypeAggregate:
		return validateAggregate(step.Aggregate)
	case StepTypeJoin:
		return validateJoin(step.Join)
	case StepTypeSort:
		return validateSort(step.Sort)
	case StepTypeDedupe:
		return nil
	case StepTypeEnrich:
		return validateEnrich(step.Enrich)
	}
	return nil
}

// checkConfigShape rejects steps whose config does not match their type: the
// matching config is absent, or the config of another kind is present.
func checkConfigShape(step StepConfig) error {
	configs := map[string]any{
		StepTypeFilter:    step.Filter,
		StepTypeTransform: step.Transform,
		StepTypeAggregate: step.Aggregate,
		StepTypeJoin:      step.Join,
		StepTypeSort:      step.Sort,
		StepTypeDedupe:    step.Dedupe,
		StepTypeEnrich:    step.Enrich,
	}

	for _, kind := range validStepTypes {
		set := !reflect.ValueOf(configs[kind]).IsNil()
		switch {
		case kind == step.Type && !set && kind != StepTypeDedupe:
			return Invalid("%s config is required", kind)
		case kind != step.Type && set:
			return Invalid("%s config given for a %s step", kind, step.Type)
		}
	}
	return nil
}

func validateFilter(cfg *FilterConfig) error {
	if cfg.Field == "" {
		return Invalid("filter.field is required")
	}
	if cfg.Operator == "" {
		return Invalid("filter.operator is required")
	}
	if cfg.Operator == OpIn {
		if cfg.Value == nil || reflect.ValueOf(cfg.Value).Kind() != reflect.Slice {
			return Invalid("filter.value must be a list for operator %q", OpIn)
		}
	}
	return nil
}

func validateTransform(cfg *TransformConfig) error {
	if cfg.Field == "" {
		return Invalid("transform.field is required")
	}
	if !slices.Contains(validTransformations, cfg.Transformation) {
		return Invalid("transform.transformation %q is not valid (valid: %s)",
			cfg.Transformation, strings.Join(validTransformations, ", "))
	}

	params := cfg.Params
	switch cfg.Transformation {
	case TransformReplace:
		if params.From == nil {
			return Invalid("transform.params.from is required for %q", TransformReplace)
		}
	case TransformSubstring:
		if params.Start == nil {
			return Invalid("transform.params.start is required for %q", TransformSubstring)
		}
	case TransformConcat:
		if len(params.Fields) == 0 {
			return Invalid("transform.params.fields is required for %q", TransformConcat)
		}
	case TransformMultiply:
		if params.Factor == nil {
			return Invalid("transform.params.factor is required for %q", TransformMultiply)
		}
	case TransformRound:
		if params.Decimals < 0 {
			return Invalid("transform.params.decimals must not be negative")
		}
	}
	return nil
}

func validateAggregate(cfg *AggregateConfig) error {
	if len(cfg.Aggregations) == 0 {
		return Invalid("aggregate.aggregations is required")
	}
	for i, agg := range cfg.Aggregations {
		if !slices.Contains(validAggregations, agg.Operation) {
			return Invalid("aggregation %d: operation %q is not valid (valid: %s)",
				i, agg.Operation, strings.Join(validAggregations, ", "))
		}
		if agg.OutputField == "" {
			return Invalid("aggregation %d: outputField is required", i)
		}
		if agg.Field == "" && agg.Operation != AggCount {
			return Invalid("aggregation %d: field is required", i)
		}
	}
	return nil
}

func validateJoin(cfg *JoinConfig) error {
	if cfg.SourceField == "" {
		return Invalid("join.sourceField is required")
	}
	if cfg.TargetField == "" {
		return Invalid("join.targetField is required")
	}
	switch cfg.JoinType {
	case "", JoinInner, JoinLeft:
	default:
		return Invalid("join.joinType %q is not valid (valid: %s, %s)", cfg.JoinType, JoinInner, JoinLeft)
	}
	return nil
}

func validateSort(cfg *SortConfig) error {
	if cfg.Field == "" {
		return Invalid("sort.field is required")
	}
	switch cfg.Direction {
	case "", SortAsc, SortDesc:
	default:
		return Invalid("sort.direction %q is not valid (valid: %s, %s)", cfg.Direction, SortAsc, SortDesc)
	}
	return nil
}

func validateEnrich(cfg *EnrichConfig) error {
	if !slices.Contains(validEnrichments, cfg.Type) {
		return Invalid("enrichment type %q is not supported (valid: %s)",
			cfg.Type, strings.Join(validEnrichments, ", "))
	}
	if cfg.Type == EnrichHash && cfg.Field == "" {
		return Invalid("enrich.field is required for %q", EnrichHash)
	}
	return nil
}
