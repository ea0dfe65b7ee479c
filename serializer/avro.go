package serializer

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/hamba/avro/v2"
)

// AvroSerializer encodes a batch ([]T, T a Go struct) as Avro records,
// deriving T's schema via reflection and caching it per type. Avro has
// no representation anywhere in the rest of this codebase's dependency
// set, so this is wired as a standalone ecosystem addition rather than
// grounded on an existing pattern; hamba/avro/v2 is the standard pure-Go
// Avro library.
type AvroSerializer struct{}

var (
	schemaMu    sync.Mutex
	schemaCache = map[reflect.Type]avro.Schema{}
)

func schemaFor(elemType reflect.Type) (avro.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[elemType]; ok {
		return s, nil
	}
	s, err := avro.SchemaOf(reflect.New(elemType).Elem().Interface())
	if err != nil {
		return nil, err
	}
	schemaCache[elemType] = s
	return s, nil
}

func (AvroSerializer) Serialize(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("serializer: avro requires a slice batch, got %T", v)
	}
	if rv.Len() == 0 {
		return nil, nil
	}
	schema, err := schemaFor(rv.Type().Elem())
	if err != nil {
		return nil, err
	}
	return avro.Marshal(schema, v)
}

func (AvroSerializer) Deserialize(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("serializer: avro requires a pointer to slice, got %T", v)
	}
	if len(data) == 0 {
		return nil
	}
	schema, err := schemaFor(rv.Elem().Type().Elem())
	if err != nil {
		return err
	}
	return avro.Unmarshal(schema, data, v)
}

func (AvroSerializer) Name() string   { return "avro" }
func (AvroSerializer) Columnar() bool { return false }

func init() {
	Register(AvroSerializer{})
}
