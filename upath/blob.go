package upath

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"

	// Register the gs:// and s3:// schemes with afs's global storage
	// manager, the same way indexer/fs/afs.go relies on afs.New() having
	// these backends available.
	_ "github.com/viant/afsc/gs"
	_ "github.com/viant/afsc/s3"
)

// BlobPath is a Path backed by blob storage (gs://, s3://) via afs.Service.
// Writes are atomic to the extent the backend's Upload call is (a single
// PUT); overwrite=false is best-effort (Exists check followed by Upload)
// because afs's common surface does not expose a conditional-create
// primitive portable across backends.
type BlobPath struct {
	url  string
	svc  afs.Service
	opts *options
}

func newBlobPath(url string, o *options) *BlobPath {
	return &BlobPath{url: url, svc: afs.New(), opts: o}
}

func (p *BlobPath) String() string { return p.url }

func (p *BlobPath) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= p.opts.maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == p.opts.maxRetries {
			break
		}
		backoff := p.opts.retryBase * time.Duration(1<<attempt)
		jitter := time.Duration(rand.Int63n(int64(backoff/2 + 1)))
		select {
		case <-ctx.Done():
			return fmt.Errorf("upath: %s %s: %w", op, p.url, ErrCancelled)
		case <-time.After(backoff + jitter):
		}
		p.opts.log("upath: retrying %s on %s after error: %v", op, p.url, err)
	}
	return fmt.Errorf("upath: %s %s: %w", op, p.url, err)
}

func (p *BlobPath) ReadBytes(ctx context.Context) ([]byte, error) {
	var data []byte
	err := p.withRetry(ctx, "read", func() error {
		d, err := p.svc.DownloadWithURL(ctx, p.url)
		if err != nil {
			return err
		}
		data = d
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("upath: read %s: %w", p.url, ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func (p *BlobPath) WriteBytes(ctx context.Context, data []byte, overwrite bool) error {
	if !overwrite {
		exists, err := p.Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("upath: write %s: %w", p.url, ErrAlreadyExists)
		}
	}
	return p.withRetry(ctx, "write", func() error {
		return p.svc.Upload(ctx, p.url, 0o644, bytes.NewReader(data))
	})
}

func (p *BlobPath) Exists(ctx context.Context) (bool, error) {
	exists, err := p.svc.Exists(ctx, p.url)
	if err != nil {
		return false, fmt.Errorf("upath: exists %s: %w", p.url, err)
	}
	return exists, nil
}

func (p *BlobPath) IsFile(ctx context.Context) (bool, error) {
	objects, err := p.svc.List(ctx, p.url)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("upath: stat %s: %w", p.url, err)
	}
	if len(objects) == 0 {
		return false, nil
	}
	return !objects[0].IsDir(), nil
}

func (p *BlobPath) IsDir(ctx context.Context) (bool, error) {
	isFile, err := p.IsFile(ctx)
	if err != nil {
		return false, err
	}
	exists, err := p.Exists(ctx)
	if err != nil {
		return false, err
	}
	return exists && !isFile, nil
}

func (p *BlobPath) Iterdir(ctx context.Context) ([]Info, error) {
	objects, err := p.svc.List(ctx, p.url)
	if err != nil {
		return nil, fmt.Errorf("upath: iterdir %s: %w", p.url, err)
	}
	out := make([]Info, 0, len(objects))
	for _, obj := range objects {
		if obj.URL() == p.url {
			continue
		}
		out = append(out, Info{Path: obj.URL(), IsDir: obj.IsDir(), Size: obj.Size(), ModTime: obj.ModTime()})
	}
	return out, nil
}

func (p *BlobPath) Riterdir(ctx context.Context) ([]Info, error) {
	var out []Info
	var walk func(url string) error
	walk = func(url string) error {
		objects, err := p.svc.List(ctx, url)
		if err != nil {
			return err
		}
		for _, obj := range objects {
			if obj.URL() == url {
				continue
			}
			if obj.IsDir() {
				if err := walk(obj.URL()); err != nil {
					return err
				}
				continue
			}
			out = append(out, Info{Path: obj.URL(), IsDir: false, Size: obj.Size(), ModTime: obj.ModTime()})
		}
		return nil
	}
	if err := walk(p.url); err != nil {
		return nil, fmt.Errorf("upath: riterdir %s: %w", p.url, err)
	}
	return out, nil
}

func (p *BlobPath) RemoveFile(ctx context.Context) error {
	if err := p.svc.Delete(ctx, p.url); err != nil && !isNotFound(err) {
		return fmt.Errorf("upath: remove %s: %w", p.url, err)
	}
	return nil
}

func (p *BlobPath) RemoveDirRecursive(ctx context.Context) error {
	if err := p.svc.Delete(ctx, p.url); err != nil && !isNotFound(err) {
		return fmt.Errorf("upath: remove dir %s: %w", p.url, err)
	}
	return nil
}

func (p *BlobPath) Join(parts ...string) Path {
	all := append([]string{strings.TrimRight(p.url, "/")}, parts...)
	return newBlobPath(strings.Join(all, "/"), p.opts)
}

func (p *BlobPath) Parent() Path {
	trimmed := strings.TrimRight(p.url, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return p
	}
	return newBlobPath(trimmed[:idx], p.opts)
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}

// leaseDoc is the JSON body of a lock blob: owner identity plus a
// renewal timestamp that the holder's heartbeat keeps fresh. A
// challenger overwrites the blob once RenewedAt is older than the
// lease TTL it was told to honor, exactly like the SQLite-coordinated
// writer lease this is modeled on.
type leaseDoc struct {
	Owner      string    `json:"owner"`
	AcquiredAt time.Time `json:"acquiredAt"`
	RenewedAt  time.Time `json:"renewedAt"`
}

const defaultLeaseTTL = 30 * time.Second

type blobGuard struct {
	lock     Path
	owner    string
	errCh    chan error
	stop     chan struct{}
	done     chan struct{}
	released bool
}

func (g *blobGuard) Unlock() error {
	if g.released {
		return nil
	}
	g.released = true
	close(g.stop)
	<-g.done
	return g.lock.RemoveFile(context.Background())
}

func (g *blobGuard) Err() <-chan error { return g.errCh }

// Lock acquires the lease blob at <path>.lock. timeout semantics match
// the Path interface: negative blocks forever, zero fails immediately,
// positive polls until elapsed.
func (p *BlobPath) Lock(ctx context.Context, timeout time.Duration) (Guard, error) {
	lockPath := newBlobPath(p.url+".lock", p.opts)
	owner := ownerID()
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	const pollInterval = 200 * time.Millisecond
	for {
		acquired, err := tryAcquireLease(ctx, lockPath, owner)
		if err != nil {
			return nil, fmt.Errorf("upath: lock %s: %w", p.url, err)
		}
		if acquired {
			break
		}
		if timeout == 0 {
			return nil, fmt.Errorf("upath: lock %s: %w", p.url, ErrLockTimeout)
		}
		if timeout > 0 && time.Now().After(deadline) {
			return nil, fmt.Errorf("upath: lock %s: %w", p.url, ErrLockTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("upath: lock %s: %w", p.url, ErrCancelled)
		case <-time.After(pollInterval):
		}
	}

	g := &blobGuard{
		lock:  lockPath,
		owner: owner,
		errCh: make(chan error, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go g.heartbeat(lockPath)
	return g, nil
}

func (g *blobGuard) heartbeat(lockPath Path) {
	defer close(g.done)
	ticker := time.NewTicker(defaultLeaseTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			data, err := lockPath.ReadBytes(context.Background())
			if err != nil {
				g.errCh <- fmt.Errorf("%w: %v", ErrLockLost, err)
				return
			}
			var doc leaseDoc
			if err := json.Unmarshal(data, &doc); err != nil || doc.Owner != g.owner {
				g.errCh <- ErrLockLost
				return
			}
			doc.RenewedAt = time.Now().UTC()
			buf, _ := json.Marshal(doc)
			if err := lockPath.WriteBytes(context.Background(), buf, true); err != nil {
				g.errCh <- fmt.Errorf("%w: %v", ErrLockLost, err)
				return
			}
		}
	}
}

func tryAcquireLease(ctx context.Context, lockPath Path, owner string) (bool, error) {
	exists, err := lockPath.Exists(ctx)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	if exists {
		data, err := lockPath.ReadBytes(ctx)
		if err == nil {
			var doc leaseDoc
			if json.Unmarshal(data, &doc) == nil {
				if now.Sub(doc.RenewedAt) < defaultLeaseTTL {
					return false, nil
				}
				// stale lease: fall through and break it.
			}
		}
	}
	doc := leaseDoc{Owner: owner, AcquiredAt: now, RenewedAt: now}
	buf, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}
	if err := lockPath.WriteBytes(ctx, buf, true); err != nil {
		return false, err
	}
	return true, nil
}

func ownerID() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString())
}
