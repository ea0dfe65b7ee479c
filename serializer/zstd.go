package serializer

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdCodecs caches one encoder and one decoder per goroutine-independent
// pool slot. The original keeps a thread-local compressor/decompressor
// pair keyed by (level, nThreads) to avoid re-initializing zstd's
// internal tables on every call; Go's equivalent is a sync.Pool, since
// goroutines (unlike OS threads) aren't a stable cache key.
var (
	encoderPool = sync.Pool{New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	}}
	decoderPool = sync.Pool{New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	}}
)

func zstdCompress(raw []byte) ([]byte, error) {
	enc := encoderPool.Get().(*zstd.Encoder)
	defer encoderPool.Put(enc)
	return enc.EncodeAll(raw, make([]byte, 0, len(raw))), nil
}

func zstdDecompress(data []byte) ([]byte, error) {
	dec := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(dec)
	return dec.DecodeAll(data, nil)
}
