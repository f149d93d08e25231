package record

import (
	"cmp"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Kind names reported for observed values.
const (
	KindNull    = "null"
	KindBoolean = "boolean"
	KindNumber  = "number"
	KindString  = "string"
	KindDate    = "date"
	KindObject  = "object"
	KindArray   = "array"
)

// Kind returns the scalar type name of v.
func Kind(v any) string {
	switch t := v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBoolean
	case string:
		return KindString
	case time.Time:
		return KindDate
	case map[string]any, Record:
		return KindObject
	case []any:
		return KindArray
	default:
		if _, ok := Number(t); ok {
			return KindNumber
		}
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return KindArray
	default:
		return KindObject
	}
}

// IsMissing reports whether v counts as a missing value: nil or the empty
// string.
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Number returns v as a float64 when v has a native numeric type. Numeric
// text is not converted.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Finite returns v as a float64 when it is a native number other than NaN or
// an infinity.
func Finite(v any) (float64, bool) {
	f, ok := Number(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NumberLoose converts native numbers and numeric text to float64. Anything
// else yields NaN and false.
func NumberLoose(v any) (float64, bool) {
	if f, ok := Number(v); ok {
		return f, !math.IsNaN(f)
	}
	s, ok := v.(string)
	if !ok {
		return math.NaN(), false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN(), false
	}
	return f, true
}

// Text coerces v to its textual form. nil becomes the empty string.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	}
	if neg, mag, ok := integer(v); ok {
		return integerText(neg, mag)
	}
	if f, ok := Number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	b, err := canonicalJSON(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Equal compares two values. Numbers compare numerically regardless of their
// Go type, integers exactly; everything else uses deep equality.
func Equal(a, b any) bool {
	if c, ok := compareIntegers(a, b); ok {
		return c == 0
	}
	_, aBig := inexactInteger(a)
	_, bBig := inexactInteger(b)
	if aBig || bBig {
		return false
	}
	fa, aok := Number(a)
	fb, bok := Number(b)
	if aok && bok {
		return fa == fb
	}
	if aok != bok {
		return false
	}
	ta, aok := a.(time.Time)
	tb, bok := b.(time.Time)
	if aok && bok {
		return ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two values of compatible types: number/number,
// string/string, time/time and bool/bool. ok is false for any other pair.
func Compare(a, b any) (int, bool) {
	if c, ok := compareIntegers(a, b); ok {
		return c, true
	}
	if fa, aok := Number(a); aok {
		fb, bok := Number(b)
		if !bok || math.IsNaN(fa) || math.IsNaN(fb) {
			return 0, false
		}
		return cmpFloat(fa, fb), true
	}
	switch ta := a.(type) {
	case string:
		tb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(ta, tb), true
	case time.Time:
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	case bool:
		tb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ta == tb:
			return 0, true
		case !ta:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// integer splits a value of an integer kind into sign and magnitude.
func integer(v any) (neg bool, mag uint64, ok bool) {
	switch n := v.(type) {
	case int:
		return signed(int64(n))
	case int8:
		return signed(int64(n))
	case int16:
		return signed(int64(n))
	case int32:
		return signed(int64(n))
	case int64:
		return signed(n)
	case uint:
		return false, uint64(n), true
	case uint8:
		return false, uint64(n), true
	case uint16:
		return false, uint64(n), true
	case uint32:
		return false, uint64(n), true
	case uint64:
		return false, n, true
	default:
		return false, 0, false
	}
}

func signed(n int64) (bool, uint64, bool) {
	if n < 0 {
		return true, uint64(-(n + 1)) + 1, true
	}
	return false, uint64(n), true
}

func integerText(neg bool, mag uint64) string {
	s := strconv.FormatUint(mag, 10)
	if neg {
		return "-" + s
	}
	return s
}

// inexactInteger returns the decimal text of an integer that has no exact
// float64 representation.
func inexactInteger(v any) (string, bool) {
	neg, mag, ok := integer(v)
	if !ok || mag <= 1<<53 {
		return "", false
	}
	// 2^64 itself does not fit a uint64
	if f := float64(mag); f < 1<<64 && uint64(f) == mag {
		return "", false
	}
	return integerText(neg, mag), true
}

// compareIntegers orders two integer-kind values exactly. ok is false unless
// both are integers.
func compareIntegers(a, b any) (int, bool) {
	an, am, aok := integer(a)
	bn, bm, bok := integer(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case an && !bn:
		return -1, true
	case !an && bn:
		return 1, true
	case an:
		return cmp.Compare(bm, am), true
	default:
		return cmp.Compare(am, bm), true
	}
}
