package bodycodec

import (
	"bytes"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func TestParseEncoding(t *testing.T) {
	cases := map[string]Encoding{
		"gzip":    Gzip,
		"br":      Brotli,
		"zstd":    Zstd,
		"":        Identity,
		"deflate": Identity,
	}
	for in, want := range cases {
		if got := ParseEncoding(in); got != want {
			t.Errorf("ParseEncoding(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDecodeIdentity(t *testing.T) {
	body := []byte("plain text body")
	out, err := Decode(Identity, body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(out) != string(body) {
		t.Fatalf("Decode(Identity) = %q, want %q", out, body)
	}
}

func TestDecodeGzip(t *testing.T) {
	want := "the quick brown fox jumps over the lazy dog"

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(want)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	got, err := Decode(Gzip, buf.Bytes())
	if err != nil {
		t.Fatalf("Decode(Gzip): %v", err)
	}
	if string(got) != want {
		t.Fatalf("Decode(Gzip) = %q, want %q", got, want)
	}
}

func TestDecodeBrotli(t *testing.T) {
	want := "the quick brown fox jumps over the lazy dog"

	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write([]byte(want)); err != nil {
		t.Fatalf("brotli write: %v", err)
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("brotli close: %v", err)
	}

	got, err := Decode(Brotli, buf.Bytes())
	if err != nil {
		t.Fatalf("Decode(Brotli): %v", err)
	}
	if string(got) != want {
		t.Fatalf("Decode(Brotli) = %q, want %q", got, want)
	}
}

func TestDecodeZstd(t *testing.T) {
	want := "the quick brown fox jumps over the lazy dog"

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	compressed := enc.EncodeAll([]byte(want), nil)
	if err := enc.Close(); err != nil {
		t.Fatalf("zstd encoder close: %v", err)
	}

	got, err := Decode(Zstd, compressed)
	if err != nil {
		t.Fatalf("Decode(Zstd): %v", err)
	}
	if string(got) != want {
		t.Fatalf("Decode(Zstd) = %q, want %q", got, want)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	if _, err := Decode(Encoding("compress"), []byte("x")); err == nil {
		t.Fatalf("expected error for unsupported encoding")
	}
}
