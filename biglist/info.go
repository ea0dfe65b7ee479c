package biglist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/viant/biglist/upath"
)

// StorageVersion is the current on-disk manifest layout version written
// by new BigLists. Manifests are read without checking this field (there
// is no prior Go version of this format to be backward compatible with).
const StorageVersion = 3

// FileInfo is one data file's entry in a manifest: its path relative to
// the store root, its own element count, and the cumulative element
// count through and including this file. Cumulative counts make
// index-to-file lookup a binary search instead of a linear scan.
type FileInfo struct {
	RelativePath    string `json:"path"`
	Count           int    `json:"count"`
	CumulativeCount int    `json:"cumulativeCount"`
}

// Info is the root manifest (info.json) of a BigList.
type Info struct {
	StorageFormat  string         `json:"storageFormat"`
	StorageVersion int            `json:"storageVersion"`
	BatchSize      int            `json:"batchSize"`
	DataFilesInfo  []FileInfo     `json:"dataFilesInfo"`
	Extra          map[string]any `json:"extra,omitempty"`
}

func readInfo(ctx context.Context, infoPath upath.Path) (Info, error) {
	data, err := infoPath.ReadBytes(ctx)
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrCorruptManifest, err)
	}
	seen := make(map[string]bool, len(info.DataFilesInfo))
	cum := 0
	for _, fi := range info.DataFilesInfo {
		cum += fi.Count
		if fi.CumulativeCount != cum || seen[fi.RelativePath] {
			return Info{}, fmt.Errorf("%w: inconsistent entry %q", ErrCorruptManifest, fi.RelativePath)
		}
		seen[fi.RelativePath] = true
	}
	return info, nil
}

func writeInfo(ctx context.Context, infoPath upath.Path, info Info, overwrite bool) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("biglist: marshal manifest: %w", err)
	}
	return infoPath.WriteBytes(ctx, data, overwrite)
}

// mergeDataFilesInfo combines the manifest's existing file list with
// newly-flushed files, sorts by relative path (which sorts chronologically
// because of the timestamp-prefixed filename grammar), de-duplicates by
// path (a concurrent writer's eager interim listing can overlap with
// another's already-merged entry), and recomputes cumulative counts from
// scratch. Mirrors Biglist._merge_data_file_info in the system this is
// ported from.
func mergeDataFilesInfo(existing, additional []FileInfo) []FileInfo {
	byPath := make(map[string]FileInfo, len(existing)+len(additional))
	for _, fi := range existing {
		byPath[fi.RelativePath] = fi
	}
	for _, fi := range additional {
		byPath[fi.RelativePath] = fi
	}
	merged := make([]FileInfo, 0, len(byPath))
	for _, fi := range byPath {
		merged = append(merged, fi)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].RelativePath < merged[j].RelativePath })
	cum := 0
	for i := range merged {
		cum += merged[i].Count
		merged[i].CumulativeCount = cum
	}
	return merged
}
