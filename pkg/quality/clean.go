package quality

import (
	"log/slog"
	"slices"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

// Fill strategies.
const (
	FillNone   = ""
	FillRemove = "remove"
	FillMean   = "mean"
	FillMedian = "median" // filled with the mode
	FillMode   = "mode"
	FillValue  = "value"
)

var validFillStrategies = []string{FillNone, FillRemove, FillMean, FillMedian, FillMode, FillValue}

// FillPolicy decides what happens to missing values.
type FillPolicy struct {
	Strategy string
	Value    any // literal for FillValue
}

// Options toggles the cleaning operations. They run in this order:
// duplicates, outliers, missing values.
type Options struct {
	RemoveDuplicates bool
	RemoveOutliers   bool
	Fill             FillPolicy
}

// Clean returns a cleaned copy of batch. Duplicates are detected as by
// Analyze. Missing values are nil, empty text, or a first-record field absent
// from a record. It fails only for an unknown fill strategy.
func Clean(batch record.Batch, opts Options) (record.Batch, error) {
	if !slices.Contains(validFillStrategies, opts.Fill.Strategy) {
		return nil, api.Invalid("unknown fill strategy %q", opts.Fill.Strategy)
	}

	cleaned := batch.Clone()
	if opts.RemoveDuplicates {
		cleaned = removeDuplicates(cleaned)
	}
	if opts.RemoveOutliers {
		cleaned = removeOutliers(cleaned)
	}

	switch opts.Fill.Strategy {
	case FillNone:
	case FillRemove:
		cleaned = removeIncomplete(cleaned)
	default:
		cleaned = fillMissing(cleaned, opts.Fill)
	}

	slog.Debug("cleaned batch", "before", len(batch), "after", len(cleaned))
	return cleaned, nil
}

func removeDuplicates(batch record.Batch) record.Batch {
	seen := make(map[uint64]struct{}, len(batch))
	out := make(record.Batch, 0, len(batch))
	for _, r := range batch {
		fp := record.Fingerprint(r)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, r)
	}
	return out
}

// removeOutliers drops every record holding an outlier in a first-record
// field.
func removeOutliers(batch record.Batch) record.Batch {
	drop := make(map[int]bool)
	for _, f := range batch.FirstFields() {
		for _, o := range outliers(batch, f) {
			drop[o.index] = true
		}
	}
	if len(drop) == 0 {
		return batch
	}

	out := make(record.Batch, 0, len(batch)-len(drop))
	for i, r := range batch {
		if !drop[i] {
			out = append(out, r)
		}
	}
	return out
}

func removeIncomplete(batch record.Batch) record.Batch {
	fields := batch.FirstFields()
	out := make(record.Batch, 0, len(batch))
	for _, r := range batch {
		if !incomplete(r, fields) {
			out = append(out, r)
		}
	}
	return out
}

func incomplete(r record.Record, fields []string) bool {
	for _, v := range r {
		if record.IsMissing(v) {
			return true
		}
	}
	for _, f := range fields {
		if _, ok := r[f]; !ok {
			return true
		}
	}
	return false
}

// fillMissing fills the first-record fields. Mean fill applies only to
// fields whose present values are all numbers; mean and mode fill skip
// fields without any present value.
func fillMissing(batch record.Batch, policy FillPolicy) record.Batch {
	for _, f := range batch.FirstFields() {
		present := presentValues(batch, f)

		var fill any
		switch policy.Strategy {
		case FillMean:
			m, ok := numericMean(present)
			if !ok {
				continue
			}
			fill = m
		case FillMode, FillMedian:
			if len(present) == 0 {
				continue
			}
			fill = mode(present)
		case FillValue:
			fill = policy.Value
		}

		for i, r := range batch {
			if record.IsMissing(r[f]) {
				batch[i] = r.With(f, fill)
			}
		}
	}
	return batch
}

func presentValues(batch record.Batch, field string) []any {
	var out []any
	for _, r := range batch {
		if v := r[field]; !record.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

func numericMean(values []any) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		f, ok := record.Number(v)
		if !ok {
			return 0, false
		}
		sum += f
	}
	return sum / float64(len(values)), true
}

// mode returns the most frequent value. Ties go to the value seen first.
func mode(values []any) any {
	counts := make(map[string]int, len(values))
	var order []string
	first := make(map[string]any, len(values))
	for _, v := range values {
		k := record.Key(v)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
			first[k] = v
		}
		counts[k]++
	}

	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return first[best]
}

// Normalize rescales the numbers of field into [0, 1] with min-max scaling.
// Other values are left as they are. The batch is returned unchanged when
// the field has no numbers or no range.
func Normalize(batch record.Batch, field string) record.Batch {
	obs := numericObservations(batch, field)
	if len(obs) == 0 {
		return batch
	}
	lo, hi := obs[0].value, obs[0].value
	for _, o := range obs[1:] {
		lo = min(lo, o.value)
		hi = max(hi, o.value)
	}
	span := hi - lo
	if span == 0 {
		return batch
	}
	return rescale(batch, field, obs, func(v float64) float64 { return (v - lo) / span })
}

// Standardize replaces the numbers of field by their z-scores. The batch is
// returned unchanged when the field has no numbers or no spread.
func Standardize(batch record.Batch, field string) record.Batch {
	obs := numericObservations(batch, field)
	if len(obs) == 0 {
		return batch
	}
	mean, stddev := meanStdDev(obs)
	if stddev == 0 {
		return batch
	}
	return rescale(batch, field, obs, func(v float64) float64 { return (v - mean) / stddev })
}

func rescale(batch record.Batch, field string, obs []observation, fn func(float64) float64) record.Batch {
	out := batch.Clone()
	for _, o := range obs {
		out[o.index] = out[o.index].With(field, fn(o.value))
	}
	return out
}
