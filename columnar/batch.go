// Package columnar holds the Parquet row, row-group, and batch
// primitives shared by the serializer's "parquet" format and by
// externalbiglist's columnar discovery/reader.
package columnar

import "fmt"

// BatchData wraps one row group's worth of decoded rows, mirroring the
// original's ParquetBatchData: a Seq over rows, with a Scalar accessor
// that returns the bare value instead of a one-key map when exactly
// one column has been projected. Go's type system makes the two shapes
// explicit rather than runtime-polymorphic: callers reading multiple
// columns use Row; callers that called Columns with a single name use
// Scalar.
type BatchData struct {
	columnNames []string
	rows        []map[string]any
}

// NewBatchData wraps already-decoded rows under the given column order.
func NewBatchData(columnNames []string, rows []map[string]any) *BatchData {
	return &BatchData{columnNames: columnNames, rows: rows}
}

// NumRows is the number of rows in this batch.
func (b *BatchData) NumRows() int { return len(b.rows) }

// NumColumns is the number of columns in this batch.
func (b *BatchData) NumColumns() int { return len(b.columnNames) }

// ColumnNames returns the projected column order.
func (b *BatchData) ColumnNames() []string { return b.columnNames }

// Row returns row i as a name->value map. A negative i counts from the
// end, same as the original's __getitem__ (idx = num_rows + idx).
func (b *BatchData) Row(i int) (map[string]any, error) {
	if i < 0 {
		i += len(b.rows)
	}
	if i < 0 || i >= len(b.rows) {
		return nil, fmt.Errorf("columnar: row index %d out of range [0,%d)", i, len(b.rows))
	}
	return b.rows[i], nil
}

// Scalar returns row i's single column value. It is only valid when
// exactly one column is present; this is the bare-value ergonomics quirk
// preserved from the original: projecting to one column returns the
// value itself, not a one-entry map.
func (b *BatchData) Scalar(i int) (any, error) {
	if len(b.columnNames) != 1 {
		return nil, fmt.Errorf("columnar: Scalar requires exactly 1 projected column, have %d", len(b.columnNames))
	}
	row, err := b.Row(i)
	if err != nil {
		return nil, err
	}
	return row[b.columnNames[0]], nil
}

// RawScalar marks a value as deliberately left unconverted, mirroring the
// original's scalar_as_py=False behavior where a pyarrow.Scalar is
// returned as-is instead of being unwrapped to a native Python value.
// Go's parquet-go already decodes to native Go values, so RawScalar is a
// transparent marker wrapper rather than a distinct boxed type; it exists
// so ParquetFileReader.ScalarAsNative=false round-trips observably.
type RawScalar struct {
	Value any
}

// applyScalarMode rewrites rows in place according to native: when native
// is true (the default), rows pass through unchanged; when false, every
// cell is wrapped in RawScalar.
func applyScalarMode(rows []map[string]any, native bool) []map[string]any {
	if native {
		return rows
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		wrapped := make(map[string]any, len(row))
		for k, v := range row {
			wrapped[k] = RawScalar{Value: v}
		}
		out[i] = wrapped
	}
	return out
}

// Array is one column's values pulled out of a batch, mirroring the
// original's pyarrow.ChunkedArray return from column(). Unlike pyarrow,
// Go's parquet-go already decodes to native Go values, so Array carries
// no separate "boxed scalar" representation — it is a flat projection.
type Array struct {
	name   string
	values []any
}

// Name is the projected column's name.
func (a *Array) Name() string { return a.name }

// Len is the number of values in the column.
func (a *Array) Len() int { return len(a.values) }

// At returns the value at row i. A negative i counts from the end.
func (a *Array) At(i int) (any, error) {
	if i < 0 {
		i += len(a.values)
	}
	if i < 0 || i >= len(a.values) {
		return nil, fmt.Errorf("columnar: array index %d out of range [0,%d)", i, len(a.values))
	}
	return a.values[i], nil
}

// Values returns every value in the column, in row order.
func (a *Array) Values() []any { return a.values }

// Column extracts one column's values from the batch as an Array,
// mirroring the original's column(idx_or_name).
func (b *BatchData) Column(name string) (*Array, error) {
	found := false
	for _, c := range b.columnNames {
		if c == name {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("columnar: column %q not present in batch", name)
	}
	values := make([]any, len(b.rows))
	for i, row := range b.rows {
		values[i] = row[name]
	}
	return &Array{name: name, values: values}, nil
}

// Columns returns a new BatchData restricted to the given column names,
// in the order given. names must be a subset of the batch's existing
// columns with no repeats.
func (b *BatchData) Columns(names []string) (*BatchData, error) {
	seen := make(map[string]bool, len(names))
	existing := make(map[string]bool, len(b.columnNames))
	for _, c := range b.columnNames {
		existing[c] = true
	}
	for _, n := range names {
		if seen[n] {
			return nil, fmt.Errorf("columnar: column %q requested more than once", n)
		}
		seen[n] = true
		if !existing[n] {
			return nil, fmt.Errorf("columnar: column %q not present in batch", n)
		}
	}
	if len(names) == len(b.columnNames) {
		allSame := true
		for i, n := range names {
			if b.columnNames[i] != n {
				allSame = false
				break
			}
		}
		if allSame {
			return b, nil
		}
	}
	rows := make([]map[string]any, len(b.rows))
	for i, row := range b.rows {
		projected := make(map[string]any, len(names))
		for _, n := range names {
			projected[n] = row[n]
		}
		rows[i] = projected
	}
	return &BatchData{columnNames: append([]string(nil), names...), rows: rows}, nil
}
