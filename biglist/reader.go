package biglist

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/biglist/serializer"
	"github.com/viant/biglist/upath"
)

// fileReader is a lazy handle onto one BigList data file: just a path,
// a known element count, and the serializer to use; the bytes aren't
// read until Load or At is called. Implements fileseq.FileReader[T].
type fileReader[T any] struct {
	path  upath.Path
	count int
	ser   serializer.Serializer

	mu   sync.Mutex
	data []T
}

func newFileReader[T any](path upath.Path, count int, ser serializer.Serializer) *fileReader[T] {
	return &fileReader[T]{path: path, count: count, ser: ser}
}

func (r *fileReader[T]) Len(ctx context.Context) (int, error) {
	return r.count, nil
}

func (r *fileReader[T]) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data != nil {
		return nil
	}
	raw, err := r.path.ReadBytes(ctx)
	if err != nil {
		return fmt.Errorf("biglist: load %s: %w", r.path, err)
	}
	var data []T
	if err := r.ser.Deserialize(raw, &data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptData, r.path, err)
	}
	r.data = data
	return nil
}

func (r *fileReader[T]) All(ctx context.Context) ([]T, error) {
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data, nil
}

func (r *fileReader[T]) At(ctx context.Context, i int) (T, error) {
	var zero T
	if err := r.Load(ctx); err != nil {
		return zero, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.data) {
		return zero, fmt.Errorf("biglist: index %d out of range in %s", i, r.path)
	}
	return r.data[i], nil
}
