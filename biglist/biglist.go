// Package biglist implements a chunked, append-only, distributed list
// store: elements are serialized into many immutable data files under a
// single store root (local filesystem or blob storage), indexed by a
// single JSON manifest (info.json) that many independent writers
// coordinate through via a path-scoped lock.
package biglist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/viant/biglist/fileseq"
	"github.com/viant/biglist/serializer"
	"github.com/viant/biglist/upath"
)

const defaultStorageFormat = serializer.DefaultName

const infoFileName = "info.json"

// BigList is a chunked, append-only, distributed sequence of T.
// Appends batch in memory and flush to new immutable data files; reads
// binary-search a manifest of cumulative per-file counts. Safe for
// concurrent use by multiple goroutines within one process; concurrent
// writers across processes/hosts coordinate via the manifest's path
// lock (see upath.Path.Lock).
type BigList[T any] struct {
	root     upath.Path
	infoPath upath.Path
	cfg      *config
	ser      serializer.Serializer
	ext      string

	mu            sync.Mutex
	info          Info
	buffer        []T
	pendingFiles  []FileInfo // flushed-but-not-yet-merged-into-manifest entries (Open Question (a))
	closed        bool

	dumper *dumper
	seq    *fileseq.FileSeq[T]
}

// New creates a new, empty BigList at root. root must not already
// contain a manifest.
func New[T any](ctx context.Context, root upath.Path, opts ...Option) (*BigList[T], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	infoPath := root.Join(infoFileName)
	exists, err := infoPath.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyExists
	}
	info := Info{
		StorageFormat:  cfg.storageFormat,
		StorageVersion: StorageVersion,
		BatchSize:      cfg.batchSize,
		DataFilesInfo:  nil,
	}
	if err := writeInfo(ctx, infoPath, info, false); err != nil {
		return nil, fmt.Errorf("biglist: create %s: %w", root, err)
	}
	return newBigList[T](ctx, root, infoPath, cfg, info)
}

// Open opens an existing BigList at root, reading its manifest.
func Open[T any](ctx context.Context, root upath.Path, opts ...Option) (*BigList[T], error) {
	infoPath := root.Join(infoFileName)
	info, err := readInfo(ctx, infoPath)
	if err != nil {
		return nil, fmt.Errorf("biglist: open %s: %w", root, err)
	}
	cfg := defaultConfig()
	if info.BatchSize > 0 {
		cfg.batchSize = info.BatchSize
	}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.storageFormat = info.StorageFormat
	return newBigList[T](ctx, root, infoPath, cfg, info)
}

func newBigList[T any](ctx context.Context, root, infoPath upath.Path, cfg *config, info Info) (*BigList[T], error) {
	ser, ok := serializer.ByName(info.StorageFormat)
	if !ok {
		return nil, fmt.Errorf("biglist: unknown storage format %q", info.StorageFormat)
	}
	storeDir := root.Join("store")
	bl := &BigList[T]{
		root:     root,
		infoPath: infoPath,
		cfg:      cfg,
		ser:      ser,
		ext:      extensionFor(info.StorageFormat),
		info:     info,
		dumper:   newDumper(storeDir, ser, extensionFor(info.StorageFormat), cfg.nWriteThreads),
	}
	if err := bl.buildSeq(ctx); err != nil {
		return nil, err
	}
	return bl, nil
}

func (b *BigList[T]) storeDir() upath.Path { return b.root.Join("store") }

func (b *BigList[T]) buildSeq(ctx context.Context) error {
	readers := make([]fileseq.FileReader[T], len(b.info.DataFilesInfo))
	for i, fi := range b.info.DataFilesInfo {
		readers[i] = newFileReader[T](b.storeDir().Join(fi.RelativePath), fi.Count, b.ser)
	}
	seq, err := fileseq.New[T](ctx, readers)
	if err != nil {
		return err
	}
	b.seq = seq
	return nil
}

// Len returns the number of elements persisted in the manifest, not
// counting any buffered-but-unflushed appends. O(1).
func (b *BigList[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq.Len()
}

// StorageFormat is the serializer name new data files are written with.
func (b *BigList[T]) StorageFormat() string { return b.info.StorageFormat }

// BatchSize is the configured implicit-flush threshold.
func (b *BigList[T]) BatchSize() int { return b.cfg.batchSize }

// Append buffers x in memory. Once the buffer reaches BatchSize, it is
// serialized and written to a new data file on a background goroutine;
// the written file only becomes visible to readers (including this same
// BigList's Len/At/Each) once Flush is called.
func (b *BigList[T]) Append(ctx context.Context, x T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.buffer = append(b.buffer, x)
	if len(b.buffer) >= b.cfg.batchSize {
		b.dumpLocked(ctx)
	}
	return nil
}

// Extend appends every element of xs, flushing full batches as it goes.
func (b *BigList[T]) Extend(ctx context.Context, xs []T) error {
	for _, x := range xs {
		if err := b.Append(ctx, x); err != nil {
			return err
		}
	}
	return nil
}

// dumpLocked serializes the current buffer and hands it to the
// background dumper. Caller must hold b.mu.
func (b *BigList[T]) dumpLocked(ctx context.Context) {
	if len(b.buffer) == 0 {
		return
	}
	batch := b.buffer
	b.buffer = nil
	b.dumper.dumpBatch(ctx, batch, len(batch))
}

// Flush writes any partial in-memory buffer to a data file, waits for
// every outstanding background write to finish, then publishes the new
// files into info.json. With WithEager(true), publishing instead writes
// an interim file under _flush_eager/ without taking the manifest lock,
// letting a later non-eager Flush (by any writer) merge it in along with
// this writer's own pending entries. On any failure after the data files
// have been written (manifest lock timeout, lease loss, write error),
// the corresponding FileInfo entries are retained in memory for the next
// Flush call to retry — a failed manifest write never loses track of
// already-durable data files.
func (b *BigList[T]) Flush(ctx context.Context, opts ...FlushOption) error {
	fc := &flushConfig{lockTimeout: b.cfg.lockTimeout}
	for _, opt := range opts {
		opt(fc)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.dumpLocked(ctx)
	b.mu.Unlock()

	newFiles, err := b.dumper.wait()
	b.mu.Lock()
	b.pendingFiles = append(b.pendingFiles, newFiles...)
	pending := b.pendingFiles
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("biglist: flush: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	if fc.eager {
		return b.flushEager(ctx, pending)
	}
	return b.flushPublish(ctx, fc.lockTimeout, pending)
}

func (b *BigList[T]) flushEagerDir() upath.Path { return b.root.Join("_flush_eager") }

func (b *BigList[T]) flushEager(ctx context.Context, pending []FileInfo) error {
	name := makeFileName(0, "json")
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("biglist: eager flush: %w", err)
	}
	if err := b.flushEagerDir().Join(name).WriteBytes(ctx, data, false); err != nil {
		return fmt.Errorf("biglist: eager flush: %w", err)
	}
	b.mu.Lock()
	b.pendingFiles = nil
	b.mu.Unlock()
	return nil
}

func (b *BigList[T]) collectEagerEntries(ctx context.Context) ([]FileInfo, []upath.Path, error) {
	dir := b.flushEagerDir()
	isDir, err := dir.IsDir(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !isDir {
		return nil, nil, nil
	}
	infos, err := dir.Iterdir(ctx)
	if err != nil {
		return nil, nil, err
	}
	var entries []FileInfo
	var files []upath.Path
	for _, info := range infos {
		if info.IsDir {
			continue
		}
		p := upath.New(info.Path)
		data, err := p.ReadBytes(ctx)
		if err != nil {
			b.cfg.log("biglist: orphan eager-flush file %s: read: %v", p, err)
			continue
		}
		var fis []FileInfo
		if err := json.Unmarshal(data, &fis); err != nil {
			b.cfg.log("biglist: orphan eager-flush file %s: decode: %v", p, err)
			continue
		}
		entries = append(entries, fis...)
		files = append(files, p)
	}
	return entries, files, nil
}

// flushPublish takes the manifest lock, merges pending (plus any
// outstanding eager interim files from any writer) into info.json, and
// writes it back. Only on success are pending entries and consumed
// eager files cleared (Open Question (a)).
func (b *BigList[T]) flushPublish(ctx context.Context, lockTimeout time.Duration, pending []FileInfo) error {
	guard, err := b.infoPath.Lock(ctx, lockTimeout)
	if err != nil {
		return fmt.Errorf("biglist: flush: acquire manifest lock: %w", err)
	}
	defer guard.Unlock()

	eagerEntries, eagerFiles, err := b.collectEagerEntries(ctx)
	if err != nil {
		return fmt.Errorf("biglist: flush: list eager entries: %w", err)
	}

	current, err := readInfo(ctx, b.infoPath)
	if err != nil {
		return fmt.Errorf("biglist: flush: reread manifest: %w", err)
	}

	merged := mergeDataFilesInfo(current.DataFilesInfo, append(append([]FileInfo{}, pending...), eagerEntries...))
	current.DataFilesInfo = merged

	select {
	case err := <-guard.Err():
		b.cfg.log("biglist: manifest lock lease lost before commit: %v", err)
		return fmt.Errorf("biglist: flush: manifest lock lease lost before commit: %w", err)
	default:
	}
	if err := writeInfo(ctx, b.infoPath, current, true); err != nil {
		return fmt.Errorf("biglist: flush: write manifest: %w", err)
	}

	for _, f := range eagerFiles {
		_ = f.RemoveFile(ctx)
	}

	b.mu.Lock()
	b.info = current
	b.pendingFiles = nil
	rebuildErr := b.buildSeq(ctx)
	b.mu.Unlock()
	return rebuildErr
}

// Reload re-reads the manifest from storage, picking up data files
// written by other writers since this BigList was opened or last
// reloaded.
func (b *BigList[T]) Reload(ctx context.Context) error {
	info, err := readInfo(ctx, b.infoPath)
	if err != nil {
		return fmt.Errorf("biglist: reload: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info = info
	return b.buildSeq(ctx)
}

// At returns the element at global index i.
func (b *BigList[T]) At(ctx context.Context, i int) (T, error) {
	b.mu.Lock()
	seq := b.seq
	b.mu.Unlock()
	return seq.At(ctx, i)
}

// Each streams every persisted element in order, prefetching files
// ahead of the consumer. Unflushed buffered appends are not visible;
// call Flush first if they must be. The prefetch window is bounded by
// both WithPrefetch and WithReadThreads (whichever is smaller), mirroring
// this store's own `max_workers = min(n_read_threads, ndatafiles)`.
func (b *BigList[T]) Each(ctx context.Context) func(yield func(T, error) bool) {
	b.mu.Lock()
	seq := b.seq
	prefetch := b.cfg.prefetch
	if n := b.cfg.nReadThreads; n > 0 && n < prefetch {
		prefetch = n
	}
	b.mu.Unlock()
	return seq.Each(ctx, prefetch)
}

// Close flushes any remaining buffer and manifest entries and marks the
// BigList unusable for further Append/Flush calls. Already-open readers
// (At/Each) remain valid.
func (b *BigList[T]) Close(ctx context.Context) error {
	err := b.Flush(ctx)
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return err
}

// Destroy removes the entire store root, including info.json and every
// data file. Not synchronized against other open handles to the same
// store: callers are responsible for ensuring no concurrent writer is
// active, matching this store's own destroy() contract (Open Question
// (b)).
func (b *BigList[T]) Destroy(ctx context.Context) error {
	return b.root.RemoveDirRecursive(ctx)
}

// GC runs a standalone orphan-file sweep over this BigList's store,
// reporting each orphan through WithLogf's hook (if set) in addition to
// whatever opts are given.
func (b *BigList[T]) GC(ctx context.Context, opts ...GCOption) ([]string, error) {
	if b.cfg.logf != nil {
		opts = append([]GCOption{WithGCLogf(b.cfg.logf)}, opts...)
	}
	return GC(ctx, b.root, opts...)
}
