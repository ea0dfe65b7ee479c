package serializer

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pierrec/lz4/v4"
)

// zlibCompress/zlibDecompress back the "-zlib" serializer variants.
// Stdlib's zlib is the canonical Go binding to the same DEFLATE format
// Python's zlib.compress targets, so no third-party wrapper is needed
// here the way zstd and lz4 need one.
func zlibCompress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zlibDecompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// lz4Compress/lz4Decompress back the "-lz4" serializer variants, used
// where write speed matters more than the ratio zstd gets.
func lz4Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lz4Decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}
