package steps

import (
	"github.com/systemstart/many-dataflow/pkg/api"
)

// NewStep validates cfg and creates the matching Step implementation.
func NewStep(cfg api.StepConfig) (Step, error) {
	if err := api.ValidateStep(cfg); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case api.StepTypeFilter:
		return NewFilterStep(cfg.Name, cfg.Filter), nil
	case api.StepTypeTransform:
		return NewTransformStep(cfg.Name, cfg.Transform), nil
	case api.StepTypeAggregate:
		return NewAggregateStep(cfg.Name, cfg.Aggregate), nil
	case api.StepTypeJoin:
		return NewJoinStep(cfg.Name, cfg.Join), nil
	case api.StepTypeSort:
		return NewSortStep(cfg.Name, cfg.Sort), nil
	case api.StepTypeDedupe:
		return NewDedupeStep(cfg.Name, cfg.Dedupe), nil
	case api.StepTypeEnrich:
		return NewEnrichStep(cfg.Name, cfg.Enrich), nil
	default:
		return nil, api.Invalid("unknown step type: %s", cfg.Type)
	}
}

