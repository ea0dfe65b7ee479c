// Package fileseq provides generic, lazy, shippable file-handle
// sequences: FileReader[T] wraps one data file, FileSeq[T] is the
// binary-searchable, prefetching concatenation of many.
package fileseq

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// FileReader is a lazy handle onto one data file's worth of elements.
// Implementations are expected to be cheap to construct (path + small
// metadata only) and to defer any I/O to Load/At/Len.
type FileReader[T any] interface {
	// Len returns the element count, reading file metadata if necessary.
	Len(ctx context.Context) (int, error)
	// Load eagerly reads the whole file into memory. Idempotent.
	Load(ctx context.Context) error
	// At returns the element at the given in-file index.
	At(ctx context.Context, i int) (T, error)
	// All returns every element, loading the file if it hasn't been yet.
	All(ctx context.Context) ([]T, error)
}

// FileSeq is the logical concatenation of many FileReaders, addressable
// by a single global index via binary search over cumulative counts.
type FileSeq[T any] struct {
	readers    []FileReader[T]
	cumulative []int // cumulative[i] = total element count through readers[i], inclusive
}

// New builds a FileSeq from readers in on-disk order, computing
// cumulative counts by calling Len on each (cheap: manifest-backed
// readers already know their count; Parquet readers decode only the
// footer).
func New[T any](ctx context.Context, readers []FileReader[T]) (*FileSeq[T], error) {
	cum := make([]int, len(readers))
	total := 0
	for i, r := range readers {
		n, err := r.Len(ctx)
		if err != nil {
			return nil, err
		}
		total += n
		cum[i] = total
	}
	return &FileSeq[T]{readers: readers, cumulative: cum}, nil
}

// NumFiles is the number of underlying files.
func (s *FileSeq[T]) NumFiles() int { return len(s.readers) }

// Len is the total element count across all files.
func (s *FileSeq[T]) Len() int {
	if len(s.cumulative) == 0 {
		return 0
	}
	return s.cumulative[len(s.cumulative)-1]
}

// Reader returns the i-th underlying FileReader.
func (s *FileSeq[T]) Reader(i int) FileReader[T] { return s.readers[i] }

// Locate finds which file holds global index idx and the offset within
// that file, via binary search over cumulative counts — the Go
// realization of locate_idx_in_chunked_seq. A negative idx counts from
// the end, same as the original's __getitem__ (idx = len + idx).
func (s *FileSeq[T]) Locate(idx int) (fileIdx, offset int, ok bool) {
	if idx < 0 {
		idx += s.Len()
	}
	if idx < 0 || idx >= s.Len() {
		return 0, 0, false
	}
	fileIdx = sort.Search(len(s.cumulative), func(i int) bool { return s.cumulative[i] > idx })
	prev := 0
	if fileIdx > 0 {
		prev = s.cumulative[fileIdx-1]
	}
	return fileIdx, idx - prev, true
}

// At returns the element at global index idx.
func (s *FileSeq[T]) At(ctx context.Context, idx int) (T, error) {
	var zero T
	fileIdx, offset, ok := s.Locate(idx)
	if !ok {
		return zero, ErrIndexOutOfRange
	}
	return s.readers[fileIdx].At(ctx, offset)
}

// defaultPrefetch is how many files ahead of the file currently being
// consumed get their Load() kicked off in the background.
const defaultPrefetch = 2

// Each streams every element across every file in order, prefetching up
// to prefetch files' Load calls ahead of the consumer on a bounded
// worker pool. Passing prefetch<=0 uses the default of 2. The returned
// function follows the range-over-func iterator shape (Go 1.23+); the
// consumer can stop ranging early to cancel outstanding prefetch work.
func (s *FileSeq[T]) Each(ctx context.Context, prefetch int) func(yield func(T, error) bool) {
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}
	return func(yield func(T, error) bool) {
		if len(s.readers) == 0 {
			return
		}
		groupCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		g, gctx := errgroup.WithContext(groupCtx)
		g.SetLimit(prefetch)

		loaded := make([]chan error, len(s.readers))
		for i := range loaded {
			loaded[i] = make(chan error, 1)
		}
		launch := func(i int) {
			g.Go(func() error {
				err := s.readers[i].Load(gctx)
				loaded[i] <- err
				return nil
			})
		}
		for i := 0; i < prefetch && i < len(s.readers); i++ {
			launch(i)
		}

		for i, r := range s.readers {
			if err := <-loaded[i]; err != nil {
				yield(*new(T), err)
				return
			}
			next := i + prefetch
			if next < len(s.readers) {
				launch(next)
			}
			elems, err := r.All(gctx)
			if err != nil {
				yield(*new(T), err)
				return
			}
			for _, e := range elems {
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}
