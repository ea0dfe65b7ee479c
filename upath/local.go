package upath

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LocalPath is a Path backed by the local filesystem. Writes are made
// atomic via a temp-file-then-rename dance in the same directory as the
// target, matching LocalUpath.write_bytes in the system this is ported
// from.
type LocalPath struct {
	path string
	opts *options
}

func newLocalPath(p string, o *options) *LocalPath {
	return &LocalPath{path: filepath.Clean(p), opts: o}
}

func (p *LocalPath) String() string { return p.path }

func (p *LocalPath) ReadBytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("upath: read %s: %w", p.path, ErrCancelled)
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("upath: read %s: %w", p.path, ErrNotFound)
		}
		return nil, fmt.Errorf("upath: read %s: %w", p.path, err)
	}
	return data, nil
}

func (p *LocalPath) WriteBytes(ctx context.Context, data []byte, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("upath: write %s: %w", p.path, ErrCancelled)
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("upath: write %s: %w", p.path, err)
	}
	if !overwrite {
		if _, err := os.Stat(p.path); err == nil {
			return fmt.Errorf("upath: write %s: %w", p.path, ErrAlreadyExists)
		}
	}
	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("upath: write %s: %w", p.path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("upath: write %s: %w", p.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("upath: write %s: %w", p.path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("upath: write %s: %w", p.path, err)
	}
	if !overwrite {
		// Close the create-if-absent race window: hardlink the temp file
		// onto the final name (fails if the target now exists), then drop
		// the temp name. This is atomic create-if-absent on POSIX.
		if err := os.Link(tmp, p.path); err != nil {
			os.Remove(tmp)
			if os.IsExist(err) {
				return fmt.Errorf("upath: write %s: %w", p.path, ErrAlreadyExists)
			}
			// Link isn't supported on this filesystem (e.g. some Windows
			// volumes): fall back to rename, which is best-effort here,
			// same as the original implementation's own non-atomic check.
			if err := os.Rename(tmp, p.path); err != nil {
				return fmt.Errorf("upath: write %s: %w", p.path, err)
			}
			return nil
		}
		os.Remove(tmp)
		return nil
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("upath: write %s: %w", p.path, err)
	}
	return nil
}

func (p *LocalPath) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(p.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("upath: stat %s: %w", p.path, err)
}

func (p *LocalPath) IsFile(ctx context.Context) (bool, error) {
	fi, err := os.Stat(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("upath: stat %s: %w", p.path, err)
	}
	return !fi.IsDir(), nil
}

func (p *LocalPath) IsDir(ctx context.Context) (bool, error) {
	fi, err := os.Stat(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("upath: stat %s: %w", p.path, err)
	}
	return fi.IsDir(), nil
}

func (p *LocalPath) Iterdir(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("upath: iterdir %s: %w", p.path, ErrNotFound)
		}
		return nil, fmt.Errorf("upath: iterdir %s: %w", p.path, err)
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Path:    filepath.Join(p.path, e.Name()),
			IsDir:   e.IsDir(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	return out, nil
}

func (p *LocalPath) Riterdir(ctx context.Context) ([]Info, error) {
	var out []Info
	err := filepath.WalkDir(p.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == p.path {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, Info{Path: path, IsDir: false, Size: fi.Size(), ModTime: fi.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upath: riterdir %s: %w", p.path, err)
	}
	return out, nil
}

func (p *LocalPath) RemoveFile(ctx context.Context) error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("upath: remove %s: %w", p.path, err)
	}
	return nil
}

func (p *LocalPath) RemoveDirRecursive(ctx context.Context) error {
	if err := os.RemoveAll(p.path); err != nil {
		return fmt.Errorf("upath: remove dir %s: %w", p.path, err)
	}
	return nil
}

func (p *LocalPath) Join(parts ...string) Path {
	all := append([]string{p.path}, parts...)
	return newLocalPath(filepath.Join(all...), p.opts)
}

func (p *LocalPath) Parent() Path {
	return newLocalPath(filepath.Dir(p.path), p.opts)
}

// localGuard holds an OS file lock for the lifetime of the Guard.
type localGuard struct {
	f        *os.File
	released bool
}

func (g *localGuard) Unlock() error {
	if g.released {
		return nil
	}
	g.released = true
	err := unlockFile(g.f)
	g.f.Close()
	return err
}

func (g *localGuard) Err() <-chan error { return nil }

func (p *LocalPath) Lock(ctx context.Context, timeout time.Duration) (Guard, error) {
	lockPath := p.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("upath: lock %s: %w", p.path, err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("upath: lock %s: %w", p.path, err)
	}

	switch {
	case timeout < 0:
		if err := lockExclusiveBlocking(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("upath: lock %s: %w", p.path, err)
		}
		return &localGuard{f: f}, nil
	case timeout == 0:
		if err := tryLockExclusive(f); err != nil {
			f.Close()
			if err == errWouldBlock {
				return nil, fmt.Errorf("upath: lock %s: %w", p.path, ErrLockTimeout)
			}
			return nil, fmt.Errorf("upath: lock %s: %w", p.path, err)
		}
		return &localGuard{f: f}, nil
	default:
		deadline := time.Now().Add(timeout)
		const pollInterval = 30 * time.Millisecond
		for {
			if err := tryLockExclusive(f); err == nil {
				return &localGuard{f: f}, nil
			} else if err != errWouldBlock {
				f.Close()
				return nil, fmt.Errorf("upath: lock %s: %w", p.path, err)
			}
			if time.Now().After(deadline) {
				f.Close()
				return nil, fmt.Errorf("upath: lock %s: %w", p.path, ErrLockTimeout)
			}
			select {
			case <-ctx.Done():
				f.Close()
				return nil, fmt.Errorf("upath: lock %s: %w", p.path, ErrCancelled)
			case <-time.After(pollInterval):
			}
		}
	}
}
