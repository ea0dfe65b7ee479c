package serializer

import (
	"bytes"
	"encoding/gob"
)

// GobZstdSerializer is the default serializer, registered as
// "pickle-zstd". Go has no equivalent of pickle's arbitrary-object
// serialization, so this plays the same role with encoding/gob (accepts
// any concrete, gob-registered Go value) wrapped in zstd, matching the
// original default's "binary, reasonably compact, handles whatever the
// caller appends" contract.
type GobZstdSerializer struct{}

func (GobZstdSerializer) Serialize(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return zstdCompress(buf.Bytes())
}

func (GobZstdSerializer) Deserialize(data []byte, v any) error {
	raw, err := zstdDecompress(data)
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(raw)).Decode(v)
}

func (GobZstdSerializer) Name() string   { return "pickle-zstd" }
func (GobZstdSerializer) Columnar() bool { return false }
