package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var testSpec = TableSpec{
	Name: "spots_distances",
	Columns: []ColumnSpec{
		{Name: "channel_a", Required: true},
		{Name: "channel_b", Required: true},
		{Name: "distance_3d_micron", Required: true},
		{Name: "distance_z_micron", Required: false},
	},
}

// TestAssembleTableOrder verifies that declared column order is
// preserved regardless of map iteration order
func TestAssembleTableOrder(t *testing.T) {
	values := map[string][]float64{
		"distance_3d_micron": {1.5, 2.5},
		"channel_b":          {1, 1},
		"channel_a":          {0, 0},
		"distance_z_micron":  {0.5, 0.25},
	}

	table, err := AssembleTable(testSpec, values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := MetricTable{
		Name: "spots_distances",
		Columns: []Column{
			{Name: "channel_a", Values: []float64{0, 0}},
			{Name: "channel_b", Values: []float64{1, 1}},
			{Name: "distance_3d_micron", Values: []float64{1.5, 2.5}},
			{Name: "distance_z_micron", Values: []float64{0.5, 0.25}},
		},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Errorf("Assembled table mismatch (-want +got):\n%s", diff)
	}
	if table.Rows() != 2 {
		t.Errorf("Expected 2 rows, got %d", table.Rows())
	}
}

// TestAssembleTableOptionalOmitted verifies optional columns may be
// absent
func TestAssembleTableOptionalOmitted(t *testing.T) {
	values := map[string][]float64{
		"channel_a":          {0},
		"channel_b":          {1},
		"distance_3d_micron": {3.5},
	}

	table, err := AssembleTable(testSpec, values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(table.Columns) != 3 {
		t.Errorf("Expected 3 columns, got %d", len(table.Columns))
	}
	if _, ok := table.Column("distance_z_micron"); ok {
		t.Error("Expected optional column to be omitted")
	}
}

// TestAssembleTableMissingRequired verifies the ConformanceError when
// a required column cannot be populated
func TestAssembleTableMissingRequired(t *testing.T) {
	values := map[string][]float64{
		"channel_a": {0},
		"channel_b": {1},
	}

	_, err := AssembleTable(testSpec, values)
	var conf *ConformanceError
	if !errors.As(err, &conf) {
		t.Fatalf("Expected ConformanceError, got %T: %v", err, err)
	}
	if conf.Field != "distance_3d_micron" {
		t.Errorf("Expected failure on distance_3d_micron, got %s", conf.Field)
	}
}

// TestAssembleTableLengthMismatch verifies the internal consistency
// check on column lengths
func TestAssembleTableLengthMismatch(t *testing.T) {
	values := map[string][]float64{
		"channel_a":          {0, 0},
		"channel_b":          {1},
		"distance_3d_micron": {1.5, 2.5},
	}

	_, err := AssembleTable(testSpec, values)
	var conf *ConformanceError
	if !errors.As(err, &conf) {
		t.Fatalf("Expected ConformanceError, got %T: %v", err, err)
	}
}

// TestAssembleTableUndeclaredColumn verifies that stray values are
// rejected
func TestAssembleTableUndeclaredColumn(t *testing.T) {
	values := map[string][]float64{
		"channel_a":          {0},
		"channel_b":          {1},
		"distance_3d_micron": {1.5},
		"surprise":           {42},
	}

	_, err := AssembleTable(testSpec, values)
	var conf *ConformanceError
	if !errors.As(err, &conf) {
		t.Fatalf("Expected ConformanceError, got %T: %v", err, err)
	}
	if conf.Field != "surprise" {
		t.Errorf("Expected failure on surprise, got %s", conf.Field)
	}
}

// TestAssembleTableEmpty verifies that an empty table is valid output
func TestAssembleTableEmpty(t *testing.T) {
	values := map[string][]float64{
		"channel_a":          {},
		"channel_b":          {},
		"distance_3d_micron": {},
		"distance_z_micron":  {},
	}

	table, err := AssembleTable(testSpec, values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if table.Rows() != 0 {
		t.Errorf("Expected 0 rows, got %d", table.Rows())
	}
	if len(table.Columns) != 4 {
		t.Errorf("Expected all 4 columns present, got %d", len(table.Columns))
	}
}

// TestAssembleRecord verifies required key checking and value kinds
func TestAssembleRecord(t *testing.T) {
	values := map[string]Value{
		"nr_of_spots":      List([]float64{3, 4}),
		"mean_3d_distance": Scalar(1.25),
	}

	record, err := AssembleRecord("spots_key_values", []string{"nr_of_spots"}, values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	v := record.Values["nr_of_spots"]
	if v.Kind() != KindList {
		t.Errorf("Expected list kind for nr_of_spots")
	}
	if len(v.List()) != 2 {
		t.Errorf("Expected 2 list values, got %d", len(v.List()))
	}
	if record.Values["mean_3d_distance"].Kind() != KindScalar {
		t.Errorf("Expected scalar kind for mean_3d_distance")
	}

	_, err = AssembleRecord("spots_key_values", []string{"missing"}, values)
	var conf *ConformanceError
	if !errors.As(err, &conf) {
		t.Fatalf("Expected ConformanceError, got %T: %v", err, err)
	}
}

// TestRecordKeysSorted verifies reproducible key enumeration
func TestRecordKeysSorted(t *testing.T) {
	record := KeyValueRecord{
		Name: "r",
		Values: map[string]Value{
			"b": Scalar(1),
			"a": Scalar(2),
			"c": Scalar(3),
		},
	}

	keys := record.Keys()
	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}
