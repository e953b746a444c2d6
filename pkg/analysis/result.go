package analysis

import "scopemetrics/pkg/schema"

// Result is the aggregate output of one analysis run: zero or more
// metric tables, zero or more key-value records, the warning
// annotations collected along the way and the final run state. The
// result is immutable once returned.
type Result struct {
	Tables   []schema.MetricTable
	Records  []schema.KeyValueRecord
	Warnings []string
	State    State
}

// Table returns the named metric table and whether it exists.
func (r *Result) Table(name string) (schema.MetricTable, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return schema.MetricTable{}, false
}

// Record returns the named key-value record and whether it exists.
func (r *Result) Record(name string) (schema.KeyValueRecord, bool) {
	for _, rec := range r.Records {
		if rec.Name == name {
			return rec, true
		}
	}
	return schema.KeyValueRecord{}, false
}
