// Package externalbiglist presents pre-existing, externally-written
// columnar data files (Parquet row groups) as one logical sequence,
// without ever writing to the data roots themselves: discovery results
// are persisted separately, under their own metadata path.
package externalbiglist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/viant/biglist/columnar"
	"github.com/viant/biglist/upath"
)

// FileInfo is one discovered data file: its absolute location, its row
// count (if known cheaply, e.g. from a Parquet footer), and whether it
// supports indexed access.
type FileInfo struct {
	Location     string `json:"location"`
	NumRows      int    `json:"numRows"`
	NumRowGroups int    `json:"numRowGroups"`
	Known        bool   `json:"known"`
}

type metaInfo struct {
	StorageFormat string     `json:"storageFormat"`
	Files         []FileInfo `json:"files"`
}

// ExternalBigList is a read-only, indexed view over a set of externally
// managed columnar data files.
type ExternalBigList struct {
	dataRoots     []upath.Path
	metaPath      upath.Path
	storageFormat string

	files           []FileInfo
	supportIndexing bool
	cumulative      []int
}

// Open discovers files under dataRoots (each either a single file or a
// directory, walked recursively), records the discovery under metaPath,
// and returns a read-only ExternalBigList. dataRoots are never written
// to; metaPath holds only this discovery's own manifest.
func Open(ctx context.Context, dataRoots []upath.Path, metaPath upath.Path, storageFormat string) (*ExternalBigList, error) {
	var allLocations []upath.Path
	for _, root := range dataRoots {
		isFile, err := root.IsFile(ctx)
		if err != nil {
			return nil, fmt.Errorf("externalbiglist: stat %s: %w", root, err)
		}
		if isFile {
			allLocations = append(allLocations, root)
			continue
		}
		infos, err := root.Riterdir(ctx)
		if err != nil {
			return nil, fmt.Errorf("externalbiglist: list %s: %w", root, err)
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
		for _, info := range infos {
			allLocations = append(allLocations, upath.New(info.Path))
		}
	}

	files := make([]FileInfo, len(allLocations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, loc := range allLocations {
		i, loc := i, loc
		g.Go(func() error {
			fi, err := fileMeta(gctx, loc, storageFormat)
			if err != nil {
				return err
			}
			files[i] = fi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("externalbiglist: discover: %w", err)
	}

	ebl := &ExternalBigList{dataRoots: dataRoots, metaPath: metaPath, storageFormat: storageFormat, files: files}
	ebl.finalize()
	if err := ebl.persist(ctx); err != nil {
		return nil, err
	}
	return ebl, nil
}

func fileMeta(ctx context.Context, loc upath.Path, storageFormat string) (FileInfo, error) {
	if storageFormat != "parquet" {
		return FileInfo{Location: loc.String(), Known: false}, nil
	}
	reader := columnar.NewParquetFileReader(loc)
	n, err := reader.Len(ctx)
	if err != nil {
		return FileInfo{}, fmt.Errorf("read metadata %s: %w", loc, err)
	}
	groups, err := reader.NumRowGroups(ctx)
	if err != nil {
		return FileInfo{}, fmt.Errorf("read metadata %s: %w", loc, err)
	}
	return FileInfo{Location: loc.String(), NumRows: n, NumRowGroups: groups, Known: true}, nil
}

func (e *ExternalBigList) finalize() {
	e.supportIndexing = len(e.files) > 0 && e.files[0].Known
	cum := 0
	e.cumulative = make([]int, len(e.files))
	for i, fi := range e.files {
		if fi.Known {
			cum += fi.NumRows
		}
		e.cumulative[i] = cum
	}
}

func (e *ExternalBigList) persist(ctx context.Context) error {
	info := metaInfo{StorageFormat: e.storageFormat, Files: e.files}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return e.metaPath.WriteBytes(ctx, data, true)
}

// Reload re-reads this ExternalBigList's own persisted discovery from
// metaPath (not a re-scan of dataRoots; call Open again for that).
func Reload(ctx context.Context, metaPath upath.Path) (*ExternalBigList, error) {
	data, err := metaPath.ReadBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("externalbiglist: reload: %w", err)
	}
	var info metaInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("externalbiglist: reload: %w", err)
	}
	ebl := &ExternalBigList{metaPath: metaPath, storageFormat: info.StorageFormat, files: info.Files}
	ebl.finalize()
	return ebl, nil
}

// NumFiles is the number of discovered data files.
func (e *ExternalBigList) NumFiles() int { return len(e.files) }

// Len is the total row count, if every file's count is known; 0
// otherwise (check SupportsIndexing first).
func (e *ExternalBigList) Len() int {
	if !e.supportIndexing || len(e.cumulative) == 0 {
		return 0
	}
	return e.cumulative[len(e.cumulative)-1]
}

// FileInfos returns the discovered files, in discovery order, each with
// its row count and row-group count (when Known).
func (e *ExternalBigList) FileInfos() []FileInfo {
	return append([]FileInfo(nil), e.files...)
}

// SupportsIndexing reports whether At is usable: true only when every
// discovered file's row count was known cheaply at discovery time.
func (e *ExternalBigList) SupportsIndexing() bool { return e.supportIndexing }

// StorageFormat is the serializer name used to interpret each file.
func (e *ExternalBigList) StorageFormat() string { return e.storageFormat }

// At returns row i as a column-name-to-value map, loading only the row
// group it lives in. Returns an error if SupportsIndexing is false. A
// negative i counts from the end, same as fileseq.FileSeq.Locate.
func (e *ExternalBigList) At(ctx context.Context, i int) (map[string]any, error) {
	if !e.supportIndexing {
		return nil, fmt.Errorf("externalbiglist: indexing not supported (unknown per-file row counts)")
	}
	if i < 0 {
		i += e.Len()
	}
	fileIdx := sort.Search(len(e.cumulative), func(j int) bool { return e.cumulative[j] > i })
	if i < 0 || fileIdx >= len(e.files) {
		return nil, fmt.Errorf("externalbiglist: index %d out of range", i)
	}
	prev := 0
	if fileIdx > 0 {
		prev = e.cumulative[fileIdx-1]
	}
	reader := columnar.NewParquetFileReader(upath.New(e.files[fileIdx].Location))
	return reader.At(ctx, i-prev)
}

// Columns returns column-projected readers, one per discovered file, in
// file order. When exactly one column name is given, callers should
// read rows via BatchData.Scalar instead of BatchData.Row.
func (e *ExternalBigList) Columns(names []string) []*columnar.ParquetFileReader {
	readers := make([]*columnar.ParquetFileReader, len(e.files))
	for i, fi := range e.files {
		readers[i] = columnar.NewParquetFileReader(upath.New(fi.Location)).Columns(names)
	}
	return readers
}

// Files returns a plain ParquetFileReader per discovered file, useful
// for streaming iteration via fileseq.FileSeq (construct one with
// these as fileseq.FileReader[map[string]any] — ParquetFileReader's
// Len/Load/At/All method set satisfies that interface).
func (e *ExternalBigList) Files() []*columnar.ParquetFileReader {
	readers := make([]*columnar.ParquetFileReader, len(e.files))
	for i, fi := range e.files {
		readers[i] = columnar.NewParquetFileReader(upath.New(fi.Location))
	}
	return readers
}
