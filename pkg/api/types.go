package api

import "github.com/systemstart/many-dataflow/pkg/record"

const (
	DefaultPipelinePattern = "**/*.pipeline.yaml"

	StepTypeFilter    = "filter"
	StepTypeTransform = "transform"
	StepTypeAggregate = "aggregate"
	StepTypeJoin      = "join"
	StepTypeSort      = "sort"
	StepTypeDedupe    = "dedupe"
	StepTypeEnrich    = "enrich"

	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpIn          = "in"
	OpNotNull     = "not_null"

	TransformUppercase   = "uppercase"
	TransformLowercase   = "lowercase"
	TransformTrim        = "trim"
	TransformReplace     = "replace"
	TransformSubstring   = "substring"
	TransformParseNumber = "parse_number"
	TransformParseDate   = "parse_date"
	TransformConcat      = "concat"
	TransformMultiply    = "multiply"
	TransformRound       = "round" // half up after scaling, never truncates

	AggSum           = "sum"
	AggAvg           = "avg"
	AggMin           = "min"
	AggMax           = "max"
	AggCount         = "count"
	AggCountDistinct = "count_distinct"

	JoinInner = "inner"
	JoinLeft  = "left"

	SortAsc  = "asc"
	SortDesc = "desc"

	EnrichTimestamp = "timestamp"
	EnrichHash      = "hash"
	EnrichSequence  = "sequence"

	DefaultTimestampField = "enriched_at"
	DefaultHashField      = "hash"
	DefaultSequenceField  = "sequence"
)

// Pipeline is the pipeline definition format. A pipeline is configuration
// only; running it never modifies it.
type Pipeline struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Steps       []StepConfig `yaml:"steps"`

	// Set by the loader, not from YAML.
	Dir      string `yaml:"-"`
	FilePath string `yaml:"-"`
}

// StepConfig defines a single step within a pipeline. Exactly the config
// matching Type is set.
type StepConfig struct {
	ID        string           `yaml:"id,omitempty"`
	Name      string           `yaml:"name"`
	Type      string           `yaml:"type"`
	Filter    *FilterConfig    `yaml:"filter,omitempty"`
	Transform *TransformConfig `yaml:"transform,omitempty"`
	Aggregate *AggregateConfig `yaml:"aggregate,omitempty"`
	Join      *JoinConfig      `yaml:"join,omitempty"`
	Sort      *SortConfig      `yaml:"sort,omitempty"`
	Dedupe    *DedupeConfig    `yaml:"dedupe,omitempty"`
	Enrich    *EnrichConfig    `yaml:"enrich,omitempty"`
}

// FilterConfig configures the filter step.
type FilterConfig struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value,omitempty"`
}

// TransformConfig configures the transform step. OutputField defaults to
// Field.
type TransformConfig struct {
	Field          string          `yaml:"field"`
	Transformation string          `yaml:"transformation"`
	OutputField    string          `yaml:"outputField,omitempty"`
	Params         TransformParams `yaml:"params,omitempty"`
}

// TransformParams holds the parameters of every transformation; each
// transformation reads only its own.
type TransformParams struct {
	From      *string  `yaml:"from,omitempty"`
	To        string   `yaml:"to,omitempty"`
	Start     *int     `yaml:"start,omitempty"`
	End       *int     `yaml:"end,omitempty"`
	Fields    []string `yaml:"fields,omitempty"`
	Separator string   `yaml:"separator,omitempty"`
	Factor    *float64 `yaml:"factor,omitempty"`
	Decimals  int      `yaml:"decimals,omitempty"`
}

// AggregateConfig configures the aggregate step.
type AggregateConfig struct {
	GroupBy      []string      `yaml:"groupBy"`
	Aggregations []Aggregation `yaml:"aggregations"`
}

// Aggregation computes one output field per group.
type Aggregation struct {
	Field       string `yaml:"field"`
	Operation   string `yaml:"operation"`
	OutputField string `yaml:"outputField"`
}

// JoinConfig configures the join step. TargetFile is read by the loader into
// TargetData, relative to the pipeline file.
type JoinConfig struct {
	SourceField string       `yaml:"sourceField"`
	TargetField string       `yaml:"targetField"`
	JoinType    string       `yaml:"joinType,omitempty"`
	TargetData  record.Batch `yaml:"targetData,omitempty"`
	TargetFile  string       `yaml:"targetFile,omitempty"`
}

// SortConfig configures the sort step.
type SortConfig struct {
	Field     string `yaml:"field"`
	Direction string `yaml:"direction,omitempty"`
}

// DedupeConfig configures the dedupe step. With no fields, whole records are
// compared.
type DedupeConfig struct {
	Fields []string `yaml:"fields,omitempty"`
}

// EnrichConfig configures the enrich step. For hash, Field names the source
// field and OutputField the target; for timestamp and sequence, Field names
// the target.
type EnrichConfig struct {
	Type        string `yaml:"type"`
	Field       string `yaml:"field,omitempty"`
	OutputField string `yaml:"outputField,omitempty"`
}
