// Package record defines the data unit shared by the pipeline engine and the
// quality analyzer: semi-structured records grouped into ordered batches.
package record

import (
	"maps"
	"slices"
)

// Record is a single semi-structured row. Field sets are not required to be
// uniform across the records of a batch.
type Record map[string]any

// Batch is an ordered sequence of records processed together.
type Batch []Record

// Fields returns the record's field names in lexicographic order. All
// components iterate fields through Fields so output is reproducible.
func (r Record) Fields() []string {
	return slices.Sorted(maps.Keys(r))
}

// Get returns the value of field and whether the field is present.
func (r Record) Get(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r)+1)
	maps.Copy(out, r)
	return out
}

// With returns a copy of the record with field set to value. The receiver is
// left untouched.
func (r Record) With(field string, value any) Record {
	out := r.Clone()
	out[field] = value
	return out
}

// Merge returns a copy of the record with every field of other written over
// it.
func (r Record) Merge(other Record) Record {
	out := make(Record, len(r)+len(other))
	maps.Copy(out, r)
	maps.Copy(out, other)
	return out
}

// Clone returns a copy of the batch slice. Records are shared; executors never
// modify a record in place.
func (b Batch) Clone() Batch {
	if b == nil {
		return nil
	}
	out := make(Batch, len(b))
	copy(out, b)
	return out
}

// FirstFields returns the field names of the first record, or nil for an
// empty batch. The analyzer and cleaner derive their field set from it.
func (b Batch) FirstFields() []string {
	if len(b) == 0 {
		return nil
	}
	return b[0].Fields()
}
