package steps

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"

	jsoniter "github.com/json-iterator/go"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

// TimestampLayout is the ISO-8601 form written by timestamp enrichment.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type enrichStep struct {
	name string
	cfg  *api.EnrichConfig
}

// NewEnrichStep creates an enrich step.
func NewEnrichStep(name string, cfg *api.EnrichConfig) Step {
	return &enrichStep{name: name, cfg: cfg}
}

func (s *enrichStep) Name() string { return s.name }
func (s *enrichStep) Kind() string { return api.StepTypeEnrich }

func (s *enrichStep) Run(ctx StepContext) (*StepResult, error) {
	if s.cfg == nil {
		return nil, missingConfig(s.Kind())
	}
	out := make(record.Batch, len(ctx.Input))

	switch s.cfg.Type {
	case api.EnrichTimestamp:
		field := cmp.Or(s.cfg.Field, api.DefaultTimestampField)
		// One instant for the whole batch.
		now := ctx.now().UTC().Format(TimestampLayout)
		for i, r := range ctx.Input {
			out[i] = r.With(field, now)
		}
	case api.EnrichHash:
		field := cmp.Or(s.cfg.OutputField, api.DefaultHashField)
		for i, r := range ctx.Input {
			out[i] = r.With(field, hashValue(r[s.cfg.Field]))
		}
	case api.EnrichSequence:
		field := cmp.Or(s.cfg.Field, api.DefaultSequenceField)
		for i, r := range ctx.Input {
			out[i] = r.With(field, i+1)
		}
	default:
		return nil, api.Invalid("enrichment type %q is not supported", s.cfg.Type)
	}
	return &StepResult{Output: out}, nil
}

// hashValue returns the hex SHA-256 of the JSON encoding of v. Values JSON
// cannot carry, such as NaN, hash as null.
func hashValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte("null")
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
