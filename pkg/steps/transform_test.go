package steps

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

func ptr[T any](v T) *T { return &v }

func transformCfg(field, transformation string, params api.TransformParams) api.StepConfig {
	return api.StepConfig{
		Name: "transform",
		Type: api.StepTypeTransform,
		Transform: &api.TransformConfig{
			Field:          field,
			Transformation: transformation,
			Params:         params,
		},
	}
}

func TestTransformStep(t *testing.T) {
	tests := []struct {
		name           string
		transformation string
		params         api.TransformParams
		value          any
		want           any
	}{
		{"uppercase", api.TransformUppercase, api.TransformParams{}, "ärger", "ÄRGER"},
		{"uppercase number", api.TransformUppercase, api.TransformParams{}, 1.5, "1.5"},
		{"lowercase", api.TransformLowercase, api.TransformParams{}, "ÀBC", "àbc"},
		{"trim", api.TransformTrim, api.TransformParams{}, "  padded \t", "padded"},
		{"replace first only", api.TransformReplace, api.TransformParams{From: ptr("a"), To: "o"}, "banana", "bonana"},
		{"substring", api.TransformSubstring, api.TransformParams{Start: ptr(1), End: ptr(3)}, "héllo", "él"},
		{"substring open end", api.TransformSubstring, api.TransformParams{Start: ptr(2)}, "hello", "llo"},
		{"substring swapped and clamped", api.TransformSubstring, api.TransformParams{Start: ptr(10), End: ptr(-2)}, "hello", "hello"},
		{"parse number", api.TransformParseNumber, api.TransformParams{}, " 42.5 ", 42.5},
		{"parse number passthrough", api.TransformParseNumber, api.TransformParams{}, 7, 7.0},
		{"parse date", api.TransformParseDate, api.TransformParams{}, "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"parse date unparseable", api.TransformParseDate, api.TransformParams{}, "not a date", nil},
		{"multiply", api.TransformMultiply, api.TransformParams{Factor: ptr(100.0)}, "1.25", 125.0},
		{"round", api.TransformRound, api.TransformParams{Decimals: 2}, 3.14159, 3.14},
		{"round half up", api.TransformRound, api.TransformParams{}, 2.5, 3.0},
		{"round negative half", api.TransformRound, api.TransformParams{}, -2.5, -2.0},
		{"round scaled half up", api.TransformRound, api.TransformParams{Decimals: 1}, 1.25, 1.3},
		{"round does not truncate", api.TransformRound, api.TransformParams{Decimals: 1}, 0.99, 1.0},
		{"uppercase nil", api.TransformUppercase, api.TransformParams{}, nil, nil},
		{"trim nil", api.TransformTrim, api.TransformParams{}, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := record.Batch{{"v": tt.value, "other": "kept"}}
			out := runStep(t, transformCfg("v", tt.transformation, tt.params), input)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0]["v"])
			assert.Equal(t, "kept", out[0]["other"])
		})
	}
}

func TestTransformStep_NotANumber(t *testing.T) {
	tests := []struct {
		name           string
		transformation string
		params         api.TransformParams
	}{
		{"parse number", api.TransformParseNumber, api.TransformParams{}},
		{"multiply", api.TransformMultiply, api.TransformParams{Factor: ptr(2.0)}},
		{"round", api.TransformRound, api.TransformParams{Decimals: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := record.Batch{{"v": "abc"}, {"v": 4}}
			out := runStep(t, transformCfg("v", tt.transformation, tt.params), input)
			require.Len(t, out, 2)

			f, ok := out[0]["v"].(float64)
			require.True(t, ok)
			assert.True(t, math.IsNaN(f), "expected NaN, got %v", f)

			_, ok = out[1]["v"].(float64)
			assert.True(t, ok)
		})
	}
}

func TestTransformStep_OutputField(t *testing.T) {
	cfg := transformCfg("name", api.TransformUppercase, api.TransformParams{})
	cfg.Transform.OutputField = "shout"

	out := runStep(t, cfg, record.Batch{{"name": "ada"}})

	assert.Equal(t, "ada", out[0]["name"])
	assert.Equal(t, "ADA", out[0]["shout"])
}

func TestTransformStep_Concat(t *testing.T) {
	cfg := transformCfg("full", api.TransformConcat, api.TransformParams{
		Fields:    []string{"first", "middle", "last"},
		Separator: " ",
	})

	out := runStep(t, cfg, record.Batch{
		{"first": "Ada", "last": "Lovelace"},
		{"first": "Alan", "middle": "M", "last": "Turing"},
	})

	assert.Equal(t, []any{"Ada  Lovelace", "Alan M Turing"}, column(out, "full"))
}
