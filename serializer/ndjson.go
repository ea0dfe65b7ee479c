package serializer

import (
	"bufio"
	"bytes"
	"fmt"
	"reflect"

	gojson "github.com/goccy/go-json"
)

// NdjsonSerializer writes one JSON object per line, grounded on the
// newline-delimited-json log format used throughout this codebase's
// document/indexing layer. Registered as "newline-delimited-json".
type NdjsonSerializer struct{ zstd bool }

func (s NdjsonSerializer) Serialize(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("serializer: newline-delimited-json requires a slice batch, got %T", v)
	}
	var buf bytes.Buffer
	for i := 0; i < rv.Len(); i++ {
		line, err := gojson.Marshal(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if s.zstd {
		return zstdCompress(buf.Bytes())
	}
	return buf.Bytes(), nil
}

func (s NdjsonSerializer) Deserialize(data []byte, v any) error {
	if s.zstd {
		raw, err := zstdDecompress(data)
		if err != nil {
			return err
		}
		data = raw
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("serializer: newline-delimited-json requires a pointer to slice, got %T", v)
	}
	sliceType := rv.Elem().Type()
	elemType := sliceType.Elem()
	out := reflect.MakeSlice(sliceType, 0, 0)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		elem := reflect.New(elemType)
		if err := gojson.Unmarshal(line, elem.Interface()); err != nil {
			return err
		}
		out = reflect.Append(out, elem.Elem())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	rv.Elem().Set(out)
	return nil
}

func (s NdjsonSerializer) Name() string {
	if s.zstd {
		return "newline-delimited-json-zstd"
	}
	return "newline-delimited-json"
}

func (NdjsonSerializer) Columnar() bool { return false }
