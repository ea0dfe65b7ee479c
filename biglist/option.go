package biglist

import "time"

// Option configures a BigList at construction time. Modeled on this
// codebase's WithXxxOpt functional-options convention.
type Option func(*config)

type config struct {
	storageFormat  string
	batchSize      int
	nWriteThreads  int
	nReadThreads   int
	prefetch       int
	lockTimeout    time.Duration
	logf           func(format string, args ...any)
}

func defaultConfig() *config {
	return &config{
		storageFormat: defaultStorageFormat,
		batchSize:     1000,
		nWriteThreads: 4,
		nReadThreads:  3,
		prefetch:      2,
		lockTimeout:   300 * time.Second,
	}
}

// WithStorageFormat selects the named serializer (see package
// serializer) new data files are written with. Defaults to
// serializer.DefaultName.
func WithStorageFormat(name string) Option {
	return func(c *config) { c.storageFormat = name }
}

// WithBatchSize sets how many appended elements accumulate in memory
// before an implicit flush to a new data file. Default 1000 for New; Open
// defaults to the batch size recorded in the manifest.
func WithBatchSize(n int) Option {
	return func(c *config) { c.batchSize = n }
}

// WithWriteThreads bounds concurrent background data-file writes.
// Default 4.
func WithWriteThreads(n int) Option {
	return func(c *config) { c.nWriteThreads = n }
}

// WithReadThreads bounds concurrent prefetch reads during Each: the
// effective window is min(WithPrefetch, WithReadThreads), mirroring this
// store's own `max_workers = min(n_read_threads, ndatafiles)`. Default 3.
func WithReadThreads(n int) Option {
	return func(c *config) { c.nReadThreads = n }
}

// WithPrefetch sets how many files ahead of the current read position
// get loaded in the background during Each, capped by WithReadThreads.
// Default 2.
func WithPrefetch(n int) Option {
	return func(c *config) { c.prefetch = n }
}

// WithManifestLockTimeout bounds how long Flush waits to acquire the
// manifest lock before giving up with ErrLockTimeout. Default 300s,
// mirroring this store's default flush(lock_timeout=300).
func WithManifestLockTimeout(d time.Duration) Option {
	return func(c *config) { c.lockTimeout = d }
}

// WithLogf sets a hook invoked for orphan-file reporting (unreadable or
// undecodable eager-flush interim files found during Flush, and orphan
// data files found by GC) and lease-loss reporting (a manifest lock lease
// lost mid-flush, detected in flushPublish via the lock guard's Err()
// channel). nil (the default) disables it.
func WithLogf(f func(format string, args ...any)) Option {
	return func(c *config) { c.logf = f }
}

func (c *config) log(format string, args ...any) {
	if c.logf != nil {
		c.logf(format, args...)
	}
}
