// Package schema packages measurement collections into the table and
// key-value record shapes declared by the external schema contract. It
// preserves column presence, declared column order, required versus
// optional fields and value cardinality. Conformance failures signal an
// upstream contract violation between pipeline components, not a user
// input error.
package schema

import "fmt"

// ConformanceError reports that an assembled output cannot satisfy the
// declared schema shape: a required field that cannot be populated or
// an internal column length inconsistency.
type ConformanceError struct {
	Object string
	Field  string
	Reason string
}

func (e *ConformanceError) Error() string {
	return fmt.Sprintf("schema: %s.%s: %s", e.Object, e.Field, e.Reason)
}

// ColumnSpec declares one column of a metric table.
type ColumnSpec struct {
	Name     string
	Required bool
}

// TableSpec declares the shape of one metric table: its name and its
// columns in output order.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec
}

// Column is one named column of homogeneous scalar values.
type Column struct {
	Name   string
	Values []float64
}

// MetricTable is an ordered sequence of named, equal-length columns
// representing one tabular output. It is created once per analysis run
// and immutable thereafter.
type MetricTable struct {
	Name    string
	Columns []Column
}

// Rows returns the number of rows of the table.
func (t MetricTable) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Column returns the values of the named column and whether it exists.
func (t MetricTable) Column(name string) ([]float64, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c.Values, true
		}
	}
	return nil, false
}

// AssembleTable builds a MetricTable from named value columns
// according to the declared spec. Declared column order is preserved.
// A missing required column or a column length inconsistency fails
// with a ConformanceError. Optional columns absent from the values are
// omitted. An empty table (all columns of length zero) is valid.
func AssembleTable(spec TableSpec, values map[string][]float64) (MetricTable, error) {
	table := MetricTable{Name: spec.Name}

	rows := -1
	for _, col := range spec.Columns {
		vals, ok := values[col.Name]
		if !ok {
			if col.Required {
				return MetricTable{}, &ConformanceError{
					Object: spec.Name,
					Field:  col.Name,
					Reason: "required column cannot be populated",
				}
			}
			continue
		}

		if rows == -1 {
			rows = len(vals)
		} else if len(vals) != rows {
			return MetricTable{}, &ConformanceError{
				Object: spec.Name,
				Field:  col.Name,
				Reason: fmt.Sprintf("column length %d, expected %d", len(vals), rows),
			}
		}

		table.Columns = append(table.Columns, Column{Name: col.Name, Values: vals})
	}

	// Surface values that were produced but not declared: they signal
	// a drifting contract between aggregator and assembler
	for name := range values {
		if !declared(spec, name) {
			return MetricTable{}, &ConformanceError{
				Object: spec.Name,
				Field:  name,
				Reason: "value not declared by the table spec",
			}
		}
	}

	return table, nil
}

func declared(spec TableSpec, name string) bool {
	for _, col := range spec.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}
