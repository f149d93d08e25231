package quality

import (
	"math"

	"github.com/systemstart/many-dataflow/pkg/record"
)

const (
	// minOutlierSample is the number of numeric observations a field needs
	// before outliers are looked for.
	minOutlierSample = 11
	outlierZScore    = 2
	outlierReason    = "statistical outlier (beyond 2 standard deviations)"
)

type observation struct {
	index int // record index in the batch
	value float64
}

// numericObservations collects the finite native numbers of field.
func numericObservations(batch record.Batch, field string) []observation {
	var out []observation
	for i, r := range batch {
		if f, ok := record.Finite(r[field]); ok {
			out = append(out, observation{index: i, value: f})
		}
	}
	return out
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(obs []observation) (mean, stddev float64) {
	if len(obs) == 0 {
		return 0, 0
	}
	for _, o := range obs {
		mean += o.value
	}
	mean /= float64(len(obs))

	var sq float64
	for _, o := range obs {
		d := o.value - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(obs)))
}

// outliers returns the observations of field whose z-score exceeds 2, in
// batch order. Fields with too few observations or no spread have none.
func outliers(batch record.Batch, field string) []observation {
	obs := numericObservations(batch, field)
	if len(obs) < minOutlierSample {
		return nil
	}
	mean, stddev := meanStdDev(obs)
	if stddev == 0 {
		return nil
	}

	var out []observation
	for _, o := range obs {
		if math.Abs((o.value-mean)/stddev) > outlierZScore {
			out = append(out, o)
		}
	}
	return out
}
