package schema

import "sort"

// ValueKind tags the cardinality of a key-value entry.
type ValueKind int

const (
	// KindScalar marks a single-valued entry.
	KindScalar ValueKind = iota

	// KindList marks a multi-valued entry, typically one value per
	// channel or per channel pair.
	KindList
)

// Value is a scalar or list value of a key-value record, tagged with
// its cardinality.
type Value struct {
	kind   ValueKind
	scalar float64
	list   []float64
}

// Scalar wraps a single-valued entry.
func Scalar(v float64) Value {
	return Value{kind: KindScalar, scalar: v}
}

// List wraps a multi-valued entry.
func List(vs []float64) Value {
	return Value{kind: KindList, list: vs}
}

// Kind returns the cardinality tag of the value.
func (v Value) Kind() ValueKind { return v.kind }

// Scalar returns the single value; only meaningful for KindScalar.
func (v Value) Scalar() float64 { return v.scalar }

// List returns the value list; only meaningful for KindList.
func (v Value) List() []float64 { return v.list }

// KeyValueRecord maps a fixed set of summary-statistic names to scalar
// or list values. One record is produced per analysis run.
type KeyValueRecord struct {
	Name   string
	Values map[string]Value
}

// Keys returns the record keys in sorted order for reproducible
// serialization.
func (r KeyValueRecord) Keys() []string {
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssembleRecord builds a KeyValueRecord checking that every required
// statistic name is populated. A missing required key fails with a
// ConformanceError.
func AssembleRecord(name string, required []string, values map[string]Value) (KeyValueRecord, error) {
	for _, key := range required {
		if _, ok := values[key]; !ok {
			return KeyValueRecord{}, &ConformanceError{
				Object: name,
				Field:  key,
				Reason: "required key cannot be populated",
			}
		}
	}

	return KeyValueRecord{Name: name, Values: values}, nil
}
