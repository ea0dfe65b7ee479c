package serializer

import gojson "github.com/goccy/go-json"

// OrjsonSerializer is a faster JSON codec backed by goccy/go-json, playing
// the role the original's orjson-based serializer plays: same wire format
// as plain JSON, chosen for marshal/unmarshal speed. Registered as
// "orjson".
type OrjsonSerializer struct{}

func (OrjsonSerializer) Serialize(v any) ([]byte, error)      { return gojson.Marshal(v) }
func (OrjsonSerializer) Deserialize(data []byte, v any) error { return gojson.Unmarshal(data, v) }
func (OrjsonSerializer) Name() string                         { return "orjson" }
func (OrjsonSerializer) Columnar() bool                       { return false }
