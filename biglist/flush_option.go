package biglist

import "time"

// FlushOption configures a single Flush call.
type FlushOption func(*flushConfig)

type flushConfig struct {
	eager       bool
	lockTimeout time.Duration
}

// WithEager writes this writer's pending file entries to an interim
// file under the store's _flush_eager/ directory instead of taking the
// manifest lock. A later non-eager Flush (by this writer or another)
// picks up all outstanding eager interim files and merges them into
// info.json in one locked pass. Use this to decouple frequent local
// flushes from contention on the shared manifest.
func WithEager(eager bool) FlushOption {
	return func(c *flushConfig) { c.eager = eager }
}

// WithFlushLockTimeout overrides the BigList's configured manifest lock
// timeout for this call only.
func WithFlushLockTimeout(d time.Duration) FlushOption {
	return func(c *flushConfig) { c.lockTimeout = d }
}
