package core

// Row is one record of a tabular dataset.
//
// Index is the row's 0-based position among the dataset's data rows and is
// stable through all processing. Line is the 1-based physical row number in
// the source (sheet row, file line) used to address a cell for reporting.
type Row struct {
	Index   int
	Line    int
	Columns []string
	Values  map[string]any
}

// NewRow zips column names with values. Missing trailing values are nil.
func NewRow(index, line int, columns []string, values []any) Row {
	m := make(map[string]any, len(columns))
	for i, col := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		// First occurrence wins for duplicated header names.
		if _, exists := m[col]; !exists {
			m[col] = v
		}
	}
	return Row{
		Index:   index,
		Line:    line,
		Columns: columns,
		Values:  m,
	}
}

// Get returns the raw value of a column and whether the column exists.
func (r Row) Get(column string) (any, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Dataset is an ordered collection of rows sharing a header.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Row
}

// HasColumn reports whether the header contains the column.
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

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}
