package biglist

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/biglist/serializer"
	"github.com/viant/biglist/upath"
)

// dumper saves buffered batches to new data files on a bounded pool of
// background goroutines, so Append never blocks on file I/O. Mirrors
// this store's Dumper class: a semaphore gating concurrent writes, plus
// a Wait that surfaces the first write error. Go's buffered-channel
// semaphore replaces the Python threading.Semaphore.
type dumper struct {
	root upath.Path
	ser  serializer.Serializer
	ext  string

	sem  chan struct{}
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
	done []FileInfo
}

func newDumper(root upath.Path, ser serializer.Serializer, ext string, maxConcurrent int) *dumper {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &dumper{root: root, ser: ser, ext: ext, sem: make(chan struct{}, maxConcurrent)}
}

// dumpBatch serializes batch and writes it to a freshly-named data file
// in the background. The new file's entry is reported via wait on success.
func (d *dumper) dumpBatch(ctx context.Context, batch any, count int) {
	d.wg.Add(1)
	d.sem <- struct{}{}
	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()

		name := makeFileName(count, d.ext)
		raw, err := d.ser.Serialize(batch)
		if err != nil {
			d.recordErr(fmt.Errorf("biglist: serialize batch: %w", err))
			return
		}
		target := d.root.Join(name)
		if err := target.WriteBytes(ctx, raw, false); err != nil {
			d.recordErr(fmt.Errorf("biglist: write %s: %w", target, err))
			return
		}
		d.recordDone(FileInfo{RelativePath: name, Count: count})
	}()
}

func (d *dumper) recordErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, err)
}

func (d *dumper) recordDone(fi FileInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.done = append(d.done, fi)
}

// wait blocks until every outstanding dumpBatch call has finished,
// returning the newly-written file entries and the first error
// encountered, if any (matching Dumper.wait(raise_on_error=True)).
func (d *dumper) wait() ([]FileInfo, error) {
	d.wg.Wait()
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	if len(d.errs) > 0 {
		err = d.errs[0]
	}
	done := d.done
	d.done = nil
	d.errs = nil
	return done, err
}
