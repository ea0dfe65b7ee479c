// Package serializer centralizes named, self-describing (de)serializers
// for batch payloads. A data file's name never encodes the serializer
// used to write it; the owning manifest's storage_format field does, so
// callers look the serializer up by name rather than by sniffing bytes.
package serializer

import (
	"fmt"
	"sync"
)

// Serializer encodes and decodes a whole batch (a slice of elements) to
// and from a single data file's bytes. Implementations must be safe for
// concurrent use.
type Serializer interface {
	// Serialize encodes a batch. v is typically a []T for row-oriented
	// formats, or a []map[string]any for columnar ones.
	Serialize(v any) ([]byte, error)
	// Deserialize decodes data into v, a pointer to the same shape
	// Serialize was given.
	Deserialize(data []byte, v any) error
	// Name is the stable name recorded in a manifest's storage_format field.
	Name() string
	// Columnar reports whether this format stores data in row groups
	// addressable independently of the full batch (Parquet does; the
	// row-oriented formats do not).
	Columnar() bool
}

var (
	mu       sync.RWMutex
	registry = map[string]Serializer{}
)

// Register adds s to the registry under its own Name(). Re-registering a
// name replaces the previous entry; used by columnar/parquet.go to install the
// parquet serializer without serializer depending on columnar.
func Register(s Serializer) {
	mu.Lock()
	defer mu.Unlock()
	registry[s.Name()] = s
}

// ByName returns the serializer registered under name, if any.
func ByName(name string) (Serializer, bool) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := registry[name]
	return s, ok
}

// MustByName is a convenience for callers that have already validated
// the name (e.g. from a manifest written by this same code).
func MustByName(name string) Serializer {
	s, ok := ByName(name)
	if !ok {
		panic(fmt.Sprintf("serializer: no serializer registered under name %q", name))
	}
	return s
}

// DefaultName is the storage_format used by new BigLists that don't
// specify one explicitly.
const DefaultName = "pickle-zstd"

func init() {
	Register(GobZstdSerializer{})
	Register(JSONSerializer{})
	Register(JSONZstdSerializer{})
	Register(JSONZlibSerializer{})
	Register(JSONLz4Serializer{})
	Register(OrjsonSerializer{})
	Register(NdjsonSerializer{zstd: false})
	Register(NdjsonSerializer{zstd: true})
	Register(CSVSerializer{})
}
