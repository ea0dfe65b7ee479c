package serializer

import "encoding/json"

// JSONSerializer is the standard-library JSON codec, registered as "json".
type JSONSerializer struct{}

func (JSONSerializer) Serialize(v any) ([]byte, error)         { return json.Marshal(v) }
func (JSONSerializer) Deserialize(data []byte, v any) error    { return json.Unmarshal(data, v) }
func (JSONSerializer) Name() string                            { return "json" }
func (JSONSerializer) Columnar() bool                           { return false }

// JSONZstdSerializer wraps JSON with zstd compression, registered as
// "json-zstd".
type JSONZstdSerializer struct{}

func (JSONZstdSerializer) Serialize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return zstdCompress(raw)
}

func (JSONZstdSerializer) Deserialize(data []byte, v any) error {
	raw, err := zstdDecompress(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (JSONZstdSerializer) Name() string   { return "json-zstd" }
func (JSONZstdSerializer) Columnar() bool { return false }

// JSONZlibSerializer wraps JSON with zlib (DEFLATE) compression,
// registered as "json-zlib".
type JSONZlibSerializer struct{}

func (JSONZlibSerializer) Serialize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return zlibCompress(raw)
}

func (JSONZlibSerializer) Deserialize(data []byte, v any) error {
	raw, err := zlibDecompress(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (JSONZlibSerializer) Name() string   { return "json-zlib" }
func (JSONZlibSerializer) Columnar() bool { return false }

// JSONLz4Serializer wraps JSON with lz4 compression, registered as
// "json-lz4", for callers that prefer lz4's faster write path over
// zstd's better ratio.
type JSONLz4Serializer struct{}

func (JSONLz4Serializer) Serialize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return lz4Compress(raw)
}

func (JSONLz4Serializer) Deserialize(data []byte, v any) error {
	raw, err := lz4Decompress(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (JSONLz4Serializer) Name() string   { return "json-lz4" }
func (JSONLz4Serializer) Columnar() bool { return false }
