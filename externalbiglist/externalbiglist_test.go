package externalbiglist_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/biglist/externalbiglist"
	"github.com/viant/biglist/upath"
)

func TestExternalBigList_DiscoveryOrdersFilesLexicographically(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// Non-parquet byte payloads stand in for real Parquet files here:
	// discovery for storageFormat != "parquet" never opens the file, it
	// only records the location, so ordering/discovery logic is exercised
	// without needing an actual Parquet footer.
	root := upath.New(dir)
	require.NoError(t, root.Join("b.bin").WriteBytes(ctx, []byte("b"), true))
	require.NoError(t, root.Join("a.bin").WriteBytes(ctx, []byte("a"), true))

	metaPath := upath.New(filepath.Join(t.TempDir(), "meta"))
	ebl, err := externalbiglist.Open(ctx, []upath.Path{root}, metaPath, "raw")
	require.NoError(t, err)

	assert.Equal(t, 2, ebl.NumFiles())
	assert.False(t, ebl.SupportsIndexing())

	infos := ebl.FileInfos()
	require.Len(t, infos, 2)
	assert.Contains(t, infos[0].Location, "a.bin")
	assert.Contains(t, infos[1].Location, "b.bin")
}

func TestExternalBigList_Reload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root := upath.New(dir)
	require.NoError(t, root.Join("a.bin").WriteBytes(ctx, []byte("a"), true))

	metaPath := upath.New(filepath.Join(t.TempDir(), "meta"))
	_, err := externalbiglist.Open(ctx, []upath.Path{root}, metaPath, "raw")
	require.NoError(t, err)

	reloaded, err := externalbiglist.Reload(ctx, metaPath)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.NumFiles())
	assert.Equal(t, "raw", reloaded.StorageFormat())
}

// writeParquetFile writes rows into a Parquet file at dir/name, starting
// a new row group every rowsPerGroup rows.
func writeParquetFile(t *testing.T, dir, name string, rows []map[string]any, rowsPerGroup int) {
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
	require.NoError(t, upath.New(filepath.Join(dir, name)).WriteBytes(context.Background(), buf.Bytes(), true))
}

func makeRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"id": int64(i), "sales": int64(i * 79 % 1000)}
	}
	return rows
}

// TestExternalBigList_Parquet_TwoFileDiscovery exercises end-to-end scenario
// 3: two Parquet files under a root, discovered lexicographically, with
// per-file row-group counts recorded.
func TestExternalBigList_Parquet_TwoFileDiscovery(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ford := makeRows(61)
	ford[3]["sales"] = int64(237)
	writeParquetFile(t, dir, "ford.parquet", ford, 10)  // 61 rows, 10/group -> 7 groups
	writeParquetFile(t, dir, "honda.parquet", makeRows(51), 10) // 51 rows, 10/group -> 6 groups

	metaPath := upath.New(filepath.Join(t.TempDir(), "meta"))
	ebl, err := externalbiglist.Open(ctx, []upath.Path{upath.New(dir)}, metaPath, "parquet")
	require.NoError(t, err)

	require.True(t, ebl.SupportsIndexing())
	assert.Equal(t, 112, ebl.Len())

	infos := ebl.FileInfos()
	require.Len(t, infos, 2)
	assert.Contains(t, infos[0].Location, "ford.parquet")
	assert.Contains(t, infos[1].Location, "honda.parquet")
	assert.Equal(t, 7, infos[0].NumRowGroups)
	assert.Equal(t, 6, infos[1].NumRowGroups)

	first, err := ebl.At(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, first["id"])

	// index 61 is honda's first row (ford rows come first, lex order).
	spillover, err := ebl.At(ctx, 61)
	require.NoError(t, err)
	assert.EqualValues(t, 0, spillover["id"])
}

// TestExternalBigList_Parquet_SingleColumnProjectionScalar exercises
// end-to-end scenario 4: a single-column projection yields a bare scalar,
// not a one-key mapping.
func TestExternalBigList_Parquet_SingleColumnProjectionScalar(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ford := makeRows(61)
	ford[3]["sales"] = int64(237)
	writeParquetFile(t, dir, "ford.parquet", ford, 10)

	metaPath := upath.New(filepath.Join(t.TempDir(), "meta"))
	ebl, err := externalbiglist.Open(ctx, []upath.Path{upath.New(dir)}, metaPath, "parquet")
	require.NoError(t, err)

	readers := ebl.Columns([]string{"sales"})
	require.Len(t, readers, 1)

	batch, err := readers[0].RowGroup(ctx, 0)
	require.NoError(t, err)
	v, err := batch.Scalar(3)
	require.NoError(t, err)
	assert.EqualValues(t, 237, v)
}
