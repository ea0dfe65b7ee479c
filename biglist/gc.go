package biglist

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/viant/biglist/upath"
)

// GCOption configures a GC call.
type GCOption func(*gcConfig)

type gcConfig struct {
	deleteOrphans bool
	logf          func(format string, args ...any)
}

// WithDeleteOrphans makes GC remove orphan files instead of only
// reporting them.
func WithDeleteOrphans(enabled bool) GCOption {
	return func(c *gcConfig) { c.deleteOrphans = enabled }
}

// WithGCLogf sets a hook invoked once per discovered orphan file.
func WithGCLogf(f func(format string, args ...any)) GCOption {
	return func(c *gcConfig) { c.logf = f }
}

// GC lists every file under root's store/ directory, diffs it against
// info.json, and reports orphan files: data files written by a writer
// that crashed before publishing them into the manifest, or left behind
// by an eager flush whose interim entry was never merged. Orphans are a
// warning, not a correctness problem — the manifest is the sole source
// of truth for what's "in" the list — so GC never deletes anything
// unless WithDeleteOrphans(true) is given.
func GC(ctx context.Context, root upath.Path, opts ...GCOption) (orphans []string, err error) {
	cfg := &gcConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	infoPath := root.Join(infoFileName)
	info, err := readInfo(ctx, infoPath)
	if err != nil {
		return nil, fmt.Errorf("biglist: gc: %w", err)
	}
	known := make(map[string]bool, len(info.DataFilesInfo))
	for _, fi := range info.DataFilesInfo {
		known[fi.RelativePath] = true
	}

	storeDir := root.Join("store")
	files, err := storeDir.Riterdir(ctx)
	if err != nil {
		return nil, fmt.Errorf("biglist: gc: list store: %w", err)
	}
	for _, f := range files {
		rel, err := filepath.Rel(storeDir.String(), f.Path)
		if err != nil {
			rel = f.Path
		}
		if known[rel] {
			continue
		}
		orphans = append(orphans, f.Path)
		if cfg.logf != nil {
			cfg.logf("biglist: orphan data file %s", f.Path)
		}
		if cfg.deleteOrphans {
			_ = upath.New(f.Path).RemoveFile(ctx)
		}
	}
	return orphans, nil
}
