package columnar_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/biglist/columnar"
	"github.com/viant/biglist/upath"
)

// writeParquetFile writes rows into a Parquet file, starting a new row
// group every rowsPerGroup rows (parquet-go's GenericWriter.Flush ends
// the current row group), and returns the path it was written to.
func writeParquetFile(t *testing.T, rows []map[string]any, rowsPerGroup int) upath.Path {
	t.Helper()
	var buf bytes.Buffer
	schema := parquet.SchemaOf(rows[0])
	w := parquet.NewGenericWriter[map[string]any](&buf, schema)
	for i := 0; i < len(rows); i += rowsPerGroup {
		end := i + rowsPerGroup
		if end > len(rows) {
			end = len(rows)
		}
		_, err := w.Write(rows[i:end])
		require.NoError(t, err)
		require.NoError(t, w.Flush())
	}
	require.NoError(t, w.Close())

	path := upath.New(filepath.Join(t.TempDir(), "data.parquet"))
	require.NoError(t, path.WriteBytes(context.Background(), buf.Bytes(), true))
	return path
}

func fordRows() []map[string]any {
	rows := make([]map[string]any, 61)
	for i := range rows {
		rows[i] = map[string]any{"id": int64(i), "sales": int64(i * 79 % 1000)}
	}
	rows[3]["sales"] = int64(237)
	return rows
}

func TestParquetFileReader_NumRowGroupsAndLen(t *testing.T) {
	ctx := context.Background()
	path := writeParquetFile(t, fordRows(), 10)

	reader := columnar.NewParquetFileReader(path)
	n, err := reader.NumRowGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n) // 61 rows, 10/group -> 7 groups, last partial

	length, err := reader.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 61, length)
}

func TestParquetFileReader_At_PositiveAndNegativeIndex(t *testing.T) {
	ctx := context.Background()
	path := writeParquetFile(t, fordRows(), 10)
	reader := columnar.NewParquetFileReader(path)

	row, err := reader.At(ctx, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 237, row["sales"])

	last, err := reader.At(ctx, -1)
	require.NoError(t, err)
	assert.EqualValues(t, 60, last["id"])
}

func TestParquetFileReader_RowGroup(t *testing.T) {
	ctx := context.Background()
	path := writeParquetFile(t, fordRows(), 10)
	reader := columnar.NewParquetFileReader(path)

	batch, err := reader.RowGroup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, batch.NumRows())

	last, err := reader.RowGroup(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, 1, last.NumRows())
}

func TestParquetFileReader_Columns_SingleColumnScalar(t *testing.T) {
	ctx := context.Background()
	path := writeParquetFile(t, fordRows(), 10)
	reader := columnar.NewParquetFileReader(path).Columns([]string{"sales"})

	batch, err := reader.RowGroup(ctx, 0)
	require.NoError(t, err)
	v, err := batch.Scalar(3)
	require.NoError(t, err)
	assert.EqualValues(t, 237, v) // scalar, not a one-key map
}

func TestParquetFileReader_Column(t *testing.T) {
	ctx := context.Background()
	path := writeParquetFile(t, fordRows(), 10)
	reader := columnar.NewParquetFileReader(path)

	arr, err := reader.Column(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, 61, arr.Len())
	v, err := arr.At(3)
	require.NoError(t, err)
	assert.EqualValues(t, 237, v)
}

func TestParquetFileReader_IterBatches(t *testing.T) {
	ctx := context.Background()
	path := writeParquetFile(t, fordRows(), 10)
	reader := columnar.NewParquetFileReader(path)

	var sizes []int
	for batch, err := range reader.IterBatches(ctx, 25) {
		require.NoError(t, err)
		sizes = append(sizes, batch.NumRows())
	}
	assert.Equal(t, []int{25, 25, 11}, sizes)
}

func TestParquetFileReader_ScalarAsNative(t *testing.T) {
	ctx := context.Background()
	path := writeParquetFile(t, fordRows(), 10)

	reader := columnar.NewParquetFileReader(path)
	reader.ScalarAsNative = false
	batch, err := reader.RowGroup(ctx, 0)
	require.NoError(t, err)
	row, err := batch.Row(3)
	require.NoError(t, err)
	wrapped, ok := row["sales"].(columnar.RawScalar)
	require.True(t, ok)
	assert.EqualValues(t, 237, wrapped.Value)
}
