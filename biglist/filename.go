package biglist

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// makeFileName builds an immutable data file name:
// <UTC-timestamp-micros>_<uuid4>_<count>.<ext>. The timestamp prefix
// makes lexicographic filename order equal chronological write order,
// which mergeDataFilesInfo relies on when it sorts by path.
func makeFileName(count int, ext string) string {
	ts := time.Now().UTC().UnixMicro()
	return fmt.Sprintf("%d_%s_%d.%s", ts, uuid.NewString(), count, ext)
}

// extensionFor returns the conventional file extension for a registered
// storage format name. Purely cosmetic: readers never infer the
// serializer from the extension, only from the manifest's storageFormat
// field, so unknown names safely fall back to "dat".
func extensionFor(storageFormat string) string {
	switch storageFormat {
	case "json", "json-zstd", "orjson":
		return "json"
	case "newline-delimited-json", "newline-delimited-json-zstd":
		return "ndjson"
	case "csv":
		return "csv"
	case "parquet":
		return "parquet"
	case "avro":
		return "avro"
	default:
		return "dat"
	}
}
