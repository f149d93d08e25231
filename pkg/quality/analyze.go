package quality

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/systemstart/many-dataflow/pkg/record"
)

// Score weights.
const (
	invalidWeight   = 40
	duplicateWeight = 20
	missingWeight   = 30
	outlierWeight   = 10

	missingRateThreshold = 20 // percent
	lowScoreThreshold    = 60
)

// Outlier is a numeric value far from the mean of its field.
type Outlier struct {
	Field  string `json:"field"`
	Record int    `json:"record"`
	Value  any    `json:"value"`
	Reason string `json:"reason"`
}

// Violation is one failed rule for one record.
type Violation struct {
	Record  int    `json:"record"`
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Report summarizes the quality of a batch.
type Report struct {
	TotalRecords   int                       `json:"totalRecords"`
	ValidRecords   int                       `json:"validRecords"`
	InvalidRecords int                       `json:"invalidRecords"`
	Duplicates     int                       `json:"duplicates"`
	MissingFields  map[string]int            `json:"missingFields"`
	DataTypes      map[string]map[string]int `json:"dataTypes"`
	Outliers       []Outlier                 `json:"outliers"`
	Violations     []Violation               `json:"violations"`
	Suggestions    []string                  `json:"suggestions"`
	Score          int                       `json:"score"`
}

// Analyze reports duplicates, missing values, type tallies, outliers and
// rule failures for batch, with a score and suggestions. The field set is
// taken from the first record only; fields that first appear in later
// records are not counted. The error is non-nil only for malformed rules.
func Analyze(batch record.Batch, rules []Rule) (*Report, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, fmt.Errorf("validating rules: %w", err)
	}

	report := &Report{
		TotalRecords:  len(batch),
		MissingFields: map[string]int{},
		DataTypes:     map[string]map[string]int{},
		Outliers:      []Outlier{},
		Violations:    []Violation{},
		Suggestions:   []string{},
	}
	if len(batch) == 0 {
		report.Suggestions = append(report.Suggestions, "No data to validate")
		return report, nil
	}

	fields := batch.FirstFields()
	for _, f := range fields {
		report.MissingFields[f] = 0
		report.DataTypes[f] = map[string]int{}
	}

	seen := make(map[uint64]struct{}, len(batch))
	for i, r := range batch {
		valid := true

		fp := record.Fingerprint(r)
		if _, dup := seen[fp]; dup {
			report.Duplicates++
			valid = false
		} else {
			seen[fp] = struct{}{}
		}

		for _, f := range fields {
			v := r[f]
			if record.IsMissing(v) {
				report.MissingFields[f]++
				valid = false
				continue
			}
			report.DataTypes[f][record.Kind(v)]++
		}

		for _, rule := range compiled {
			if !rule.passes(r[rule.Field]) {
				report.Violations = append(report.Violations, Violation{
					Record:  i,
					Field:   rule.Field,
					Rule:    rule.Kind,
					Message: rule.message(),
				})
				valid = false
			}
		}

		if valid {
			report.ValidRecords++
		} else {
			report.InvalidRecords++
		}
	}

	for _, f := range fields {
		for _, o := range outliers(batch, f) {
			report.Outliers = append(report.Outliers, Outlier{
				Field:  f,
				Record: o.index,
				Value:  batch[o.index][f],
				Reason: outlierReason,
			})
		}
	}

	report.Score = score(report)
	report.Suggestions = suggestions(report, fields)

	slog.Debug("analyzed batch", "records", report.TotalRecords, "invalid", report.InvalidRecords,
		"duplicates", report.Duplicates, "outliers", len(report.Outliers), "score", report.Score)
	return report, nil
}

// score starts at 100 and subtracts weighted invalid, duplicate, missing and
// outlier rates. The result is clamped to [0, 100] and rounded half up.
func score(r *Report) int {
	if r.TotalRecords == 0 {
		return 0
	}
	total := float64(r.TotalRecords)

	s := 100.0
	s -= invalidWeight * float64(r.InvalidRecords) / total
	s -= duplicateWeight * float64(r.Duplicates) / total
	if n := len(r.MissingFields); n > 0 {
		missing := 0
		for _, c := range r.MissingFields {
			missing += c
		}
		s -= missingWeight * float64(missing) / (total * float64(n))
	}
	s -= outlierWeight * float64(len(r.Outliers)) / total

	return int(math.Floor(min(max(s, 0), 100) + 0.5))
}

// suggestions lists field findings first, in field order, then global ones.
func suggestions(r *Report, fields []string) []string {
	out := []string{}
	total := float64(r.TotalRecords)

	for _, f := range fields {
		rate := float64(r.MissingFields[f]) / total * 100
		if rate > missingRateThreshold {
			out = append(out, fmt.Sprintf(
				"Field %q has %.1f%% missing values. Consider collecting this data or making it optional.", f, rate))
		}
	}
	for _, f := range fields {
		if types := r.DataTypes[f]; len(types) > 1 {
			out = append(out, fmt.Sprintf(
				"Field %q has inconsistent data types: %s. Standardize the data type.",
				f, strings.Join(slices.Sorted(maps.Keys(types)), ", ")))
		}
	}
	if r.Duplicates > 0 {
		out = append(out, fmt.Sprintf(
			"%.1f%% duplicate records detected. Consider implementing deduplication.",
			float64(r.Duplicates)/total*100))
	}
	if n := len(r.Outliers); n > 0 {
		out = append(out, fmt.Sprintf(
			"%d statistical outliers detected. Review these values for data entry errors.", n))
	}
	if r.Score < lowScoreThreshold {
		out = append(out,
			"Overall data quality is low. Consider implementing data validation at the collection stage.")
	}
	return out
}
