// Package bodycodec decompresses HTTP response bodies by Content-Encoding,
// covering the codecs an HTTP/2 peer is likely to negotiate: gzip and
// zstd via klauspost/compress, and brotli via andybalholm/brotli.
package bodycodec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/yourusername/h2stream/pkg/h2stream/bufpool"
)

// Encoding identifies a Content-Encoding token this package can decode.
type Encoding string

const (
	Identity Encoding = "identity"
	Gzip     Encoding = "gzip"
	Brotli   Encoding = "br"
	Zstd     Encoding = "zstd"
)

// ParseEncoding maps a Content-Encoding header value to an Encoding,
// defaulting unknown tokens to Identity so unrecognized encodings pass
// through untouched rather than erroring.
func ParseEncoding(s string) Encoding {
	switch s {
	case string(Gzip):
		return Gzip
	case string(Brotli):
		return Brotli
	case string(Zstd):
		return Zstd
	default:
		return Identity
	}
}

// Decode returns the decompressed body for the given encoding. The
// returned slice is owned by the caller; it does not alias body.
func Decode(enc Encoding, body []byte) ([]byte, error) {
	switch enc {
	case Identity, "":
		return append([]byte(nil), body...), nil
	case Gzip:
		return decodeGzip(body)
	case Brotli:
		return decodeBrotli(body)
	case Zstd:
		return decodeZstd(body)
	default:
		return nil, fmt.Errorf("bodycodec: unsupported encoding %q", enc)
	}
}

func decodeGzip(body []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bodycodec: gzip: %w", err)
	}
	defer r.Close()
	return drain(r)
}

func decodeBrotli(body []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(body))
	return drain(r)
}

func decodeZstd(body []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bodycodec: zstd: %w", err)
	}
	defer r.Close()
	return drain(r)
}

// drain reads r to completion through a pooled scratch buffer, returning
// an independently owned copy of the decompressed bytes.
func drain(r io.Reader) ([]byte, error) {
	buf := bufpool.Get()
	defer bufpool.Put(buf)

	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("bodycodec: decompress: %w", err)
	}

	out := make([]byte, len(buf.B))
	copy(out, buf.B)
	return out, nil
}
