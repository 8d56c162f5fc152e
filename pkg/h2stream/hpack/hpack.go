// Package hpack implements RFC 7541 HPACK header compression: a static
// table, a bounded dynamic table, and a resumable encoder/decoder pair.
//
// An Encoder and a Decoder are each owned by exactly one HTTP/2 connection
// and must only be driven from that connection's own goroutine/event loop;
// neither type holds internal locks.
package hpack

import "errors"

// Header is a single HPACK header field: an opaque (name, value) pair.
// HTTP header-name case-insensitivity is a concern of the caller; HPACK
// itself treats Name and Value as raw byte sequences.
type Header struct {
	Name  string
	Value string
	Hint  CompressionHint
}

// CompressionHint selects how the encoder represents a header field and
// records how the decoder observed a field being represented, so that a
// decoded field can be re-encoded (e.g. by an intermediary) with the same
// wire form it arrived in.
type CompressionHint uint8

const (
	// UseCache allows the field to be served from, and inserted into, the
	// dynamic table (literal with incremental indexing, or a pure indexed
	// field when already present).
	UseCache CompressionHint = iota
	// NoCache forbids insertion into the dynamic table but still allows an
	// indexed-name literal (literal without indexing).
	NoCache
	// NoCacheNoIndex marks the field as sensitive: never inserted into the
	// dynamic table, and the "never indexed" wire bit MUST be preserved by
	// any intermediary that re-encodes the field.
	NoCacheNoIndex
)

func (h CompressionHint) String() string {
	switch h {
	case UseCache:
		return "use-cache"
	case NoCache:
		return "no-cache"
	case NoCacheNoIndex:
		return "no-cache-no-index"
	default:
		return "unknown"
	}
}

// ErrorKind classifies HPACK failures per the error table in the design
// spec; it lets callers distinguish user-correctable mistakes from a
// poisoned decoder without string-matching error messages.
type ErrorKind uint8

const (
	ErrKindNone ErrorKind = iota
	ErrKindInvalidArgument
	ErrKindProtocolError
	ErrKindCompressionError
	ErrKindOversizedInteger
)

// Error wraps an underlying cause with its ErrorKind classification.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

func wrapError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Sentinel causes, for callers that want errors.Is rather than kind checks.
var (
	ErrInvalidIndex        = errors.New("hpack: index zero or out of range")
	ErrOversizedInteger    = errors.New("hpack: prefixed integer exceeds 64 bits")
	ErrTableSizeUpdateLate = errors.New("hpack: dynamic table size update must precede all header fields")
	ErrTableSizeTooLarge   = errors.New("hpack: dynamic table size update exceeds protocol maximum")
	ErrDecoderPoisoned     = errors.New("hpack: decoder is poisoned by a previous error")
	ErrHuffmanDecode       = errors.New("hpack: invalid huffman-encoded string")
	ErrStringTooLarge      = errors.New("hpack: string literal exceeds maximum length")
)
