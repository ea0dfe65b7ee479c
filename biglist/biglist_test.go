package biglist_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/biglist/biglist"
	"github.com/viant/biglist/upath"
)

type record struct {
	ID    int
	Value string
}

func TestBigList_AppendFlushIterateReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root := upath.New(filepath.Join(dir, "list"))

	bl, err := biglist.New[record](ctx, root, biglist.WithBatchSize(3))
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		require.NoError(t, bl.Append(ctx, record{ID: i, Value: fmt.Sprintf("v%d", i)}))
	}
	require.NoError(t, bl.Flush(ctx))

	assert.Equal(t, 7, bl.Len())

	for i := 0; i < 7; i++ {
		got, err := bl.At(ctx, i)
		require.NoError(t, err)
		assert.Equal(t, record{ID: i, Value: fmt.Sprintf("v%d", i)}, got)
	}

	// Negative indices count from the end, e.g. reader[-3] == reader[len-3].
	got, err := bl.At(ctx, -3)
	require.NoError(t, err)
	assert.Equal(t, record{ID: 4, Value: "v4"}, got)

	_, err = bl.At(ctx, -8)
	assert.Error(t, err)

	var collected []record
	for rec, err := range bl.Each(ctx) {
		require.NoError(t, err)
		collected = append(collected, rec)
	}
	assert.Len(t, collected, 7)

	reopened, err := biglist.Open[record](ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 7, reopened.Len())
	got, err = reopened.At(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, record{ID: 3, Value: "v3"}, got)
}

func TestBigList_New_RejectsExistingStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root := upath.New(filepath.Join(dir, "list"))

	_, err := biglist.New[record](ctx, root)
	require.NoError(t, err)

	_, err = biglist.New[record](ctx, root)
	require.Error(t, err)
	assert.ErrorIs(t, err, biglist.ErrAlreadyExists)
}

func TestBigList_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root := upath.New(filepath.Join(dir, "list"))

	first, err := biglist.New[record](ctx, root, biglist.WithBatchSize(5))
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))

	const writers = 4
	const perWriter = 20
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			bl, err := biglist.Open[record](ctx, root, biglist.WithBatchSize(5))
			if !assert.NoError(t, err) {
				return
			}
			for i := 0; i < perWriter; i++ {
				_ = bl.Append(ctx, record{ID: w*1000 + i, Value: "x"})
			}
			assert.NoError(t, bl.Close(ctx))
		}()
	}
	wg.Wait()

	final, err := biglist.Open[record](ctx, root)
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, final.Len())
}

func TestBigList_GC_ReportsOrphans_ViaLogfHook(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root := upath.New(filepath.Join(dir, "list"))

	var logged []string
	bl, err := biglist.New[record](ctx, root, biglist.WithBatchSize(2), biglist.WithLogf(func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}))
	require.NoError(t, err)
	require.NoError(t, bl.Append(ctx, record{ID: 1}))
	require.NoError(t, bl.Flush(ctx))

	orphan := root.Join("store", "9999999999999999_deadbeef_1.dat")
	require.NoError(t, orphan.WriteBytes(ctx, []byte("not merged"), false))

	orphans, err := bl.GC(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "deadbeef")
}

func TestBigList_Each_ReadThreadsCapsPrefetch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root := upath.New(filepath.Join(dir, "list"))

	bl, err := biglist.New[record](ctx, root, biglist.WithBatchSize(2), biglist.WithPrefetch(5), biglist.WithReadThreads(1))
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		require.NoError(t, bl.Append(ctx, record{ID: i}))
	}
	require.NoError(t, bl.Flush(ctx))

	var collected []record
	for rec, err := range bl.Each(ctx) {
		require.NoError(t, err)
		collected = append(collected, rec)
	}
	assert.Len(t, collected, 6)
}

func TestBigList_GC_ReportsOrphans(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root := upath.New(filepath.Join(dir, "list"))

	bl, err := biglist.New[record](ctx, root, biglist.WithBatchSize(2))
	require.NoError(t, err)
	require.NoError(t, bl.Append(ctx, record{ID: 1}))
	require.NoError(t, bl.Append(ctx, record{ID: 2}))
	require.NoError(t, bl.Flush(ctx))

	// Simulate a writer that wrote a data file but crashed before
	// publishing it into the manifest.
	orphan := root.Join("store", "9999999999999999_deadbeef_1.dat")
	require.NoError(t, orphan.WriteBytes(ctx, []byte("not merged"), false))

	orphans, err := biglist.GC(ctx, root)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Contains(t, orphans[0], "deadbeef")
}
