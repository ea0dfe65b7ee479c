// Package upath provides a cross-backend path abstraction over the local
// filesystem and blob storage, with atomic writes and an exclusive,
// cross-process locking contract.
package upath

import (
	"context"
	"time"
)

// Info describes a directory entry, returned by Iterdir/Riterdir.
type Info struct {
	Path    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Guard is a held lock. Callers must defer Guard.Unlock.
type Guard interface {
	// Unlock releases the lock. Safe to call once; a second call is a no-op.
	Unlock() error
	// Err returns a channel that receives one error wrapping ErrLockLost if
	// the lease backing this guard is lost before Unlock is called. Only
	// meaningful for blob-backed guards; local guards return a nil channel.
	Err() <-chan error
}

// Path is a location under either a local filesystem or a blob store,
// addressed by a scheme-qualified string ("", "file://" for local,
// "gs://", "s3://" for blob backends).
type Path interface {
	// String returns the canonical location string for this path.
	String() string

	// ReadBytes reads the whole object. Returns ErrNotFound if absent.
	ReadBytes(ctx context.Context) ([]byte, error)

	// WriteBytes writes data atomically: either the full content is
	// visible to readers or none of it is. If overwrite is false and the
	// target already exists, returns ErrAlreadyExists (best-effort on
	// blob backends, see BlobPath doc).
	WriteBytes(ctx context.Context, data []byte, overwrite bool) error

	// Exists reports whether the path refers to an existing file or directory.
	Exists(ctx context.Context) (bool, error)
	// IsFile reports whether the path is an existing regular file.
	IsFile(ctx context.Context) (bool, error)
	// IsDir reports whether the path is an existing directory.
	IsDir(ctx context.Context) (bool, error)

	// Iterdir lists immediate children (files and directories).
	Iterdir(ctx context.Context) ([]Info, error)
	// Riterdir recursively lists files only (no directory entries).
	Riterdir(ctx context.Context) ([]Info, error)

	// RemoveFile removes a single file. Not an error if already absent.
	RemoveFile(ctx context.Context) error
	// RemoveDirRecursive removes the path and everything beneath it.
	RemoveDirRecursive(ctx context.Context) error

	// Lock acquires an exclusive lock scoped to this path. timeout < 0
	// blocks indefinitely; timeout == 0 fails immediately if contended;
	// a positive timeout polls until it elapses, then returns
	// ErrLockTimeout. Locking is not reentrant: a second call by the same
	// holder on the same path will block or deadlock, by design.
	Lock(ctx context.Context, timeout time.Duration) (Guard, error)

	// Join returns a new Path for a child location.
	Join(parts ...string) Path
	// Parent returns the parent Path.
	Parent() Path
}

// Option configures shared behavior across Path constructors (retry
// policy, logging hook). Mirrors the functional-options idiom used
// throughout this codebase's storage layer.
type Option func(*options)

type options struct {
	logf       func(format string, args ...any)
	maxRetries int
	retryBase  time.Duration
}

func newOptions(opts ...Option) *options {
	o := &options{maxRetries: 3, retryBase: 50 * time.Millisecond}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogf sets a callback invoked for non-fatal, informational events
// (each retry of a failed blob I/O operation). Lease loss is reported on
// Guard.Err, not through this hook. nil (the default) disables all such
// reporting.
func WithLogf(f func(format string, args ...any)) Option {
	return func(o *options) { o.logf = f }
}

// WithRetryPolicy configures the bounded-retry-with-backoff policy used
// for transient I/O errors on blob backends. It never applies to lock
// acquisition, which only ever retries up to the caller's timeout.
func WithRetryPolicy(maxRetries int, base time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		o.retryBase = base
	}
}

func (o *options) log(format string, args ...any) {
	if o.logf != nil {
		o.logf(format, args...)
	}
}
