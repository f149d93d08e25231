package record

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"
)

// jsonAPI sorts map keys, which makes encodings independent of field order.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Key returns a canonical, type-aware key for a tuple of values. Numbers of
// different Go types with the same value share a key; a number and its
// textual form do not. Keys never concatenate raw values with a separator, so
// values cannot collide by containing one.
func Key(values ...any) string {
	tuple := make([]any, len(values))
	for i, v := range values {
		tuple[i] = canonical(v)
	}
	b, err := canonicalJSON(tuple)
	if err != nil {
		return fmt.Sprintf("%#v", values)
	}
	return string(b)
}

// Fingerprint returns a 64-bit digest of the record's canonical content. Two
// records with the same fields and values have the same fingerprint
// regardless of insertion order.
func Fingerprint(r Record) uint64 {
	b, err := canonicalJSON(canonical(map[string]any(r)))
	if err != nil {
		return xxhash.Sum64String(fmt.Sprintf("%#v", r))
	}
	return xxhash.Sum64(b)
}

func canonicalJSON(v any) ([]byte, error) {
	return jsonAPI.Marshal(v)
}

// Tagged scalars are strings starting with a NUL byte. Text that already
// starts with one gets a second, so no string value can pass for a tag.
const (
	tagPrefix  = "\x00"
	tagDate    = tagPrefix + "d"
	tagInteger = tagPrefix + "i"
	tagNumber  = tagPrefix + "n"
)

// canonical rewrites values the JSON encoder cannot represent or would
// conflate. Dates, non-finite numbers and integers a float64 cannot hold
// become tagged strings; other numbers collapse to float64.
func canonical(v any) any {
	switch t := v.(type) {
	case nil, bool:
		return t
	case string:
		if strings.HasPrefix(t, tagPrefix) {
			return tagPrefix + t
		}
		return t
	case time.Time:
		return tagDate + t.UTC().Format(time.RFC3339Nano)
	case Record:
		return canonicalMap(t)
	case map[string]any:
		return canonicalMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonical(e)
		}
		return out
	}
	if text, ok := inexactInteger(v); ok {
		return tagInteger + text
	}
	if f, ok := Number(v); ok {
		switch {
		case math.IsNaN(f):
			return tagNumber + "NaN"
		case math.IsInf(f, 1):
			return tagNumber + "+Inf"
		case math.IsInf(f, -1):
			return tagNumber + "-Inf"
		}
		return f
	}
	return v
}

func canonicalMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = canonical(e)
	}
	return out
}
