package fileseq_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/biglist/fileseq"
)

// sliceReader is a trivial in-memory fileseq.FileReader[int] backed by a
// fixed slice, for exercising FileSeq without any real file I/O.
type sliceReader struct {
	values []int
	loaded bool
}

func (r *sliceReader) Len(context.Context) (int, error) { return len(r.values), nil }

func (r *sliceReader) Load(context.Context) error {
	r.loaded = true
	return nil
}

func (r *sliceReader) At(ctx context.Context, i int) (int, error) {
	if err := r.Load(ctx); err != nil {
		return 0, err
	}
	return r.values[i], nil
}

func (r *sliceReader) All(ctx context.Context) ([]int, error) {
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	return r.values, nil
}

func newTestSeq(t *testing.T) *fileseq.FileSeq[int] {
	t.Helper()
	ctx := context.Background()
	readers := []fileseq.FileReader[int]{
		&sliceReader{values: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		&sliceReader{values: []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}},
		&sliceReader{values: []int{20, 21, 22, 23, 24}},
	}
	seq, err := fileseq.New[int](ctx, readers)
	require.NoError(t, err)
	return seq
}

func TestFileSeq_Len(t *testing.T) {
	seq := newTestSeq(t)
	assert.Equal(t, 25, seq.Len())
	assert.Equal(t, 3, seq.NumFiles())
}

func TestFileSeq_At_PositiveIndex(t *testing.T) {
	ctx := context.Background()
	seq := newTestSeq(t)

	v, err := seq.At(ctx, 18)
	require.NoError(t, err)
	assert.Equal(t, 18, v)
}

func TestFileSeq_At_NegativeIndex(t *testing.T) {
	ctx := context.Background()
	seq := newTestSeq(t)

	// Negative indices count from the end, e.g. reader[-3] == reader[len-3].
	v, err := seq.At(ctx, -3)
	require.NoError(t, err)
	assert.Equal(t, 22, v)
}

func TestFileSeq_At_OutOfRange(t *testing.T) {
	ctx := context.Background()
	seq := newTestSeq(t)

	_, err := seq.At(ctx, 25)
	assert.ErrorIs(t, err, fileseq.ErrIndexOutOfRange)

	_, err = seq.At(ctx, -26)
	assert.ErrorIs(t, err, fileseq.ErrIndexOutOfRange)
}

func TestFileSeq_Locate(t *testing.T) {
	seq := newTestSeq(t)

	fileIdx, offset, ok := seq.Locate(18)
	require.True(t, ok)
	assert.Equal(t, 1, fileIdx)
	assert.Equal(t, 8, offset)

	fileIdx, offset, ok = seq.Locate(-3)
	require.True(t, ok)
	assert.Equal(t, 2, fileIdx)
	assert.Equal(t, 2, offset)
}

func TestFileSeq_Each_VisitsEveryElementInOrder(t *testing.T) {
	ctx := context.Background()
	seq := newTestSeq(t)

	var got []int
	for v, err := range seq.Each(ctx, 2) {
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Len(t, got, 25)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestFileSeq_Each_EarlyReturnStopsIteration(t *testing.T) {
	ctx := context.Background()
	seq := newTestSeq(t)

	var got []int
	for v, err := range seq.Each(ctx, 2) {
		require.NoError(t, err)
		got = append(got, v)
		if len(got) == 4 {
			break
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3}, got)
}
