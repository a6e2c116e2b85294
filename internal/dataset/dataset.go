// Package dataset holds the in-memory tabular model consumed by the analytics pipeline
// and the loaders that build it from CSV/TSV and XLSX files.
package dataset

// Row maps column names to scalar cell values: nil, string, or a Go number.
type Row map[string]any

// Dataset is an ordered, rectangular collection of rows. Columns keeps header order,
// which decides "first column of a kind" everywhere downstream.
// The pipeline treats a Dataset as read-only.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New constructs a dataset from a header and rows.
func New(name string, columns []string, rows []Row) *Dataset {
	return &Dataset{Name: name, Columns: columns, Rows: rows}
}

// Len returns the number of rows; safe on a nil dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Head returns up to n leading rows. The rows are shared with the dataset and must not be modified.
func (d *Dataset) Head(n int) []Row {
	if d == nil || n <= 0 {
		return nil
	}
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}

// Values returns the column's values in row order (nil for rows lacking the key).
func (d *Dataset) Values(column string) []any {
	if d == nil {
		return nil
	}
	out := make([]any, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[column]
	}
	return out
}

// HasColumn reports whether the header contains name.
func (d *Dataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}
