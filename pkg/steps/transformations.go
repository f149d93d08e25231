package steps

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

// Transformation maps the value of one field. r is the whole record, for
// transformations that read more than one field. Values that cannot be
// coerced yield nil or NaN rather than an error.
type Transformation interface {
	Apply(r record.Record, value any, p api.TransformParams) (any, error)
}

// getTransformation returns a fresh transformation for name. Casers are
// stateful, so each step run gets its own.
func getTransformation(name string) (Transformation, error) {
	switch name {
	case api.TransformUppercase:
		return &caseTransformation{caser: cases.Upper(language.Und)}, nil
	case api.TransformLowercase:
		return &caseTransformation{caser: cases.Lower(language.Und)}, nil
	case api.TransformTrim:
		return textTransformation(strings.TrimSpace), nil
	case api.TransformReplace:
		return transformFunc(replaceValue), nil
	case api.TransformSubstring:
		return transformFunc(substringValue), nil
	case api.TransformParseNumber:
		return transformFunc(parseNumber), nil
	case api.TransformParseDate:
		return transformFunc(parseDate), nil
	case api.TransformConcat:
		return transformFunc(concatFields), nil
	case api.TransformMultiply:
		return transformFunc(multiplyValue), nil
	case api.TransformRound:
		return transformFunc(roundValue), nil
	default:
		return nil, api.Invalid("unknown transformation: %s", name)
	}
}

type transformFunc func(r record.Record, value any, p api.TransformParams) any

func (f transformFunc) Apply(r record.Record, value any, p api.TransformParams) (any, error) {
	return f(r, value, p), nil
}

type caseTransformation struct {
	caser cases.Caser
}

func (t *caseTransformation) Apply(_ record.Record, value any, _ api.TransformParams) (any, error) {
	if value == nil {
		return nil, nil
	}
	return t.caser.String(record.Text(value)), nil
}

func textTransformation(fn func(string) string) Transformation {
	return transformFunc(func(_ record.Record, value any, _ api.TransformParams) any {
		if value == nil {
			return nil
		}
		return fn(record.Text(value))
	})
}

func replaceValue(_ record.Record, value any, p api.TransformParams) any {
	if value == nil {
		return nil
	}
	if p.From == nil {
		return record.Text(value)
	}
	return strings.Replace(record.Text(value), *p.From, p.To, 1)
}

// substringValue slices by rune index. Bounds are clamped to the text and
// swapped when start is past end.
func substringValue(_ record.Record, value any, p api.TransformParams) any {
	if value == nil {
		return nil
	}
	runes := []rune(record.Text(value))
	clamp := func(i int) int { return min(max(i, 0), len(runes)) }

	start, end := 0, len(runes)
	if p.Start != nil {
		start = clamp(*p.Start)
	}
	if p.End != nil {
		end = clamp(*p.End)
	}
	if start > end {
		start, end = end, start
	}
	return string(runes[start:end])
}

func parseNumber(_ record.Record, value any, _ api.TransformParams) any {
	f, _ := record.NumberLoose(value)
	return f
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"01/02/2006",
}

// parseDate accepts times, common date text and numbers as Unix
// milliseconds.
func parseDate(_ record.Record, value any, _ api.TransformParams) any {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return v
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
		return nil
	}
	if ms, ok := record.Finite(value); ok {
		return time.UnixMilli(int64(ms)).UTC()
	}
	return nil
}

func concatFields(r record.Record, _ any, p api.TransformParams) any {
	parts := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		parts[i] = record.Text(r[f])
	}
	return strings.Join(parts, p.Separator)
}

func multiplyValue(_ record.Record, value any, p api.TransformParams) any {
	f, _ := record.NumberLoose(value)
	if p.Factor == nil {
		return math.NaN()
	}
	return f * *p.Factor
}

// roundValue scales by 10^decimals and rounds half up, toward positive
// infinity: 1.25 at 1 decimal gives 1.3 and -2.5 at 0 gives -2. The
// scaled value is rounded, not truncated. NaN stays NaN.
func roundValue(_ record.Record, value any, p api.TransformParams) any {
	f, _ := record.NumberLoose(value)
	scale := math.Pow(10, float64(p.Decimals))
	return math.Floor(f*scale+0.5) / scale
}
