// Package quality scores record batches and cleans them: duplicate and
// missing-value detection, type tallies, statistical outliers, caller rules
// and the cleaning operations that act on the same findings.
package quality

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

// Rule kinds.
const (
	RuleRequired = "required"
	RuleType     = "type"
	RuleRange    = "range"
	RulePattern  = "pattern"
	RuleCustom   = "custom"
)

var validRuleKinds = []string{RuleRequired, RuleType, RuleRange, RulePattern, RuleCustom}

var validValueTypes = []string{
	record.KindNull,
	record.KindBoolean,
	record.KindNumber,
	record.KindString,
	record.KindDate,
	record.KindObject,
	record.KindArray,
}

// Rule is a caller-supplied validation rule for one field.
type Rule struct {
	Field string `yaml:"field"`
	Kind  string `yaml:"type"`

	ValueType string   `yaml:"valueType,omitempty"` // type: a record.Kind name
	Min       *float64 `yaml:"min,omitempty"`       // range: inclusive, unbounded when nil
	Max       *float64 `yaml:"max,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty"` // pattern: Go regexp, text values only

	// Check is the predicate of a custom rule. It cannot be set from YAML.
	Check func(v any) bool `yaml:"-"`

	Message string `yaml:"message,omitempty"`
}

// LoadRules reads a YAML list of rules and validates it.
func LoadRules(filename string) ([]Rule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	if _, err := compileRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// ValidateRules reports the first malformed rule, wrapping
// api.ErrInvalidConfig.
func ValidateRules(rules []Rule) error {
	_, err := compileRules(rules)
	return err
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, len(rules))
	for i, r := range rules {
		if err := validateRule(r); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out[i] = compiledRule{Rule: r}
		if r.Kind == RulePattern {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, api.Invalid("pattern %q: %v", r.Pattern, err))
			}
			out[i].re = re
		}
	}
	return out, nil
}

func validateRule(r Rule) error {
	if r.Field == "" {
		return api.Invalid("field is required")
	}
	if !slices.Contains(validRuleKinds, r.Kind) {
		return api.Invalid("unknown rule type %q", r.Kind)
	}

	switch r.Kind {
	case RuleType:
		if !slices.Contains(validValueTypes, r.ValueType) {
			return api.Invalid("valueType %q is not valid for field %q", r.ValueType, r.Field)
		}
	case RuleRange:
		if r.Min == nil && r.Max == nil {
			return api.Invalid("range rule for field %q needs min or max", r.Field)
		}
	case RulePattern:
		if r.Pattern == "" {
			return api.Invalid("pattern rule for field %q needs a pattern", r.Field)
		}
	case RuleCustom:
		if r.Check == nil {
			return api.Invalid("custom rule for field %q needs a check function", r.Field)
		}
	}
	return nil
}

// passes reports whether v satisfies the rule.
func (r compiledRule) passes(v any) bool {
	switch r.Kind {
	case RuleRequired:
		return !record.IsMissing(v)
	case RuleType:
		return record.Kind(v) == r.ValueType
	case RuleRange:
		f, ok := record.Number(v)
		if !ok || math.IsNaN(f) {
			return false
		}
		return (r.Min == nil || f >= *r.Min) && (r.Max == nil || f <= *r.Max)
	case RulePattern:
		s, ok := v.(string)
		return ok && r.re.MatchString(s)
	case RuleCustom:
		return r.Check(v)
	default:
		return true
	}
}

func (r compiledRule) message() string {
	if r.Message != "" {
		return r.Message
	}
	switch r.Kind {
	case RuleType:
		return fmt.Sprintf("field %q is not of type %s", r.Field, r.ValueType)
	case RuleRange:
		return fmt.Sprintf("field %q is out of range", r.Field)
	case RulePattern:
		return fmt.Sprintf("field %q does not match %s", r.Field, r.Pattern)
	default:
		return fmt.Sprintf("field %q failed %s rule", r.Field, r.Kind)
	}
}
