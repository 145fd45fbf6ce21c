package codec

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
)

// CompressionProvider is the external Compression Provider contract: a
// Serializer's output bytes may be optionally compressed before storage or
// transport, independent of how they were serialized.
type CompressionProvider interface {
	CompressAsync(ctx context.Context, data []byte, level int) ([]byte, error)
	DecompressAsync(ctx context.Context, data []byte) ([]byte, error)
}

// ZlibCompression is a CompressionProvider grounded on ZlibCompressor,
// restructured to operate on raw bytes rather than delegating to an inner
// Codec, since compression here wraps a Serializer's output rather than
// another codec in the same chain.
type ZlibCompression struct{}

func (ZlibCompression) CompressAsync(_ context.Context, data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (ZlibCompression) DecompressAsync(_ context.Context, data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
