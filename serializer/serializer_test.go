package serializer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/biglist/serializer"
)

type record struct {
	ID   int64
	Name string
}

func TestRegistry_ByName(t *testing.T) {
	for _, name := range []string{"pickle-zstd", "json", "json-zstd", "json-zlib", "json-lz4", "orjson", "newline-delimited-json", "newline-delimited-json-zstd", "csv", "avro"} {
		t.Run(name, func(t *testing.T) {
			s, ok := serializer.ByName(name)
			require.True(t, ok, "expected %q to be registered", name)
			assert.Equal(t, name, s.Name())
		})
	}
}

func TestRegistry_UnknownNameNotFound(t *testing.T) {
	_, ok := serializer.ByName("does-not-exist")
	assert.False(t, ok)
}

func TestGobZstdSerializer_Roundtrip(t *testing.T) {
	s := serializer.MustByName(serializer.DefaultName)
	batch := []record{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}

	data, err := s.Serialize(batch)
	require.NoError(t, err)

	var out []record
	require.NoError(t, s.Deserialize(data, &out))
	assert.Equal(t, batch, out)
}

func TestJSONSerializer_Roundtrip(t *testing.T) {
	s := serializer.MustByName("json")
	batch := []record{{ID: 1, Name: "a"}}

	data, err := s.Serialize(batch)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"Name\":\"a\"")

	var out []record
	require.NoError(t, s.Deserialize(data, &out))
	assert.Equal(t, batch, out)
}

func TestNdjsonSerializer_Roundtrip(t *testing.T) {
	s := serializer.MustByName("newline-delimited-json")
	batch := []record{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}

	data, err := s.Serialize(batch)
	require.NoError(t, err)

	var out []record
	require.NoError(t, s.Deserialize(data, &out))
	assert.Equal(t, batch, out)
}

func TestJSONZlibAndLz4Serializers_Roundtrip(t *testing.T) {
	batch := []record{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	for _, name := range []string{"json-zlib", "json-lz4"} {
		t.Run(name, func(t *testing.T) {
			s := serializer.MustByName(name)
			data, err := s.Serialize(batch)
			require.NoError(t, err)

			var out []record
			require.NoError(t, s.Deserialize(data, &out))
			assert.Equal(t, batch, out)
		})
	}
}

func TestCSVSerializer_Roundtrip(t *testing.T) {
	s := serializer.MustByName("csv")
	rows := [][]string{{"id", "name"}, {"1", "a"}}

	data, err := s.Serialize(rows)
	require.NoError(t, err)

	var out [][]string
	require.NoError(t, s.Deserialize(data, &out))
	assert.Equal(t, rows, out)
}
