package multiplexer_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/biglist/multiplexer"
	"github.com/viant/biglist/upath"
)

func TestMultiplexer_SingleSessionExhausts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := upath.New(filepath.Join(dir, "mux"))

	items := []int{0, 1, 2, 3, 4}
	mux, err := multiplexer.New[int](ctx, items, path)
	require.NoError(t, err)

	sessionID, err := mux.CreateReadSession(ctx)
	require.NoError(t, err)

	session, err := mux.OpenSession(ctx, sessionID, "")
	require.NoError(t, err)

	var got []int
	for item, err := range session.Iter(ctx) {
		require.NoError(t, err)
		got = append(got, item)
	}
	assert.Equal(t, items, got)

	done, err := session.Done(ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMultiplexer_ConcurrentWorkers_ExactlyOnceDelivery(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := upath.New(filepath.Join(dir, "mux"))

	const n = 50
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	mux, err := multiplexer.New[int](ctx, items, path)
	require.NoError(t, err)

	sessionID, err := mux.CreateReadSession(ctx)
	require.NoError(t, err)

	const workers = 5
	var mu sync.Mutex
	seen := map[int]int{}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			session, err := mux.OpenSession(ctx, sessionID, "")
			if !assert.NoError(t, err) {
				return
			}
			for item, err := range session.Iter(ctx) {
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				seen[item]++
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	require.Len(t, seen, n)
	for item, count := range seen {
		assert.Equalf(t, 1, count, "item %d delivered %d times", item, count)
	}
}
