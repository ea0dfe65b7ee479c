package serializer

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVSerializer encodes a batch of [][]string (or anything convertible to
// a slice of string slices) as CSV. Registered as "csv". Row-oriented,
// with no schema beyond "N columns of strings" — callers needing typed
// columns should use parquet or avro instead.
type CSVSerializer struct{}

func (CSVSerializer) Serialize(v any) ([]byte, error) {
	rows, ok := v.([][]string)
	if !ok {
		return nil, fmt.Errorf("serializer: csv requires [][]string, got %T", v)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (CSVSerializer) Deserialize(data []byte, v any) error {
	ptr, ok := v.(*[][]string)
	if !ok {
		return fmt.Errorf("serializer: csv requires *[][]string, got %T", v)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return err
	}
	*ptr = rows
	return nil
}

func (CSVSerializer) Name() string   { return "csv" }
func (CSVSerializer) Columnar() bool { return false }
