package hpack

import "github.com/yourusername/h2stream/pkg/h2stream/bufpool"

// String codec, RFC 7541 §5.2. Wire form: one octet whose high bit (H) is
// the Huffman flag and whose low 7 bits begin a prefix-7 integer giving
// the octet length, followed by that many octets of raw or
// Huffman-encoded data.

const defaultMaxStringLength = 16 * 1024 * 1024

// HuffmanMode selects how the encoder represents string literals.
type HuffmanMode uint8

const (
	// Smallest encodes both ways and keeps the shorter; ties favor raw.
	Smallest HuffmanMode = iota
	// Never always emits the literal raw.
	Never
	// Always always Huffman-encodes the literal.
	Always
)

// encodeString appends the RFC 7541 §5.2 encoding of s to dst according to
// mode.
func encodeString(dst []byte, s string, mode HuffmanMode) []byte {
	switch mode {
	case Never:
		dst = encodeInteger(dst, uint64(len(s)), 7, 0x00)
		return append(dst, s...)

	case Always:
		encLen := HuffmanEncodedLen(s)
		dst = encodeInteger(dst, uint64(encLen), 7, 0x80)
		return HuffmanEncode(dst, s)

	default: // Smallest
		encLen := HuffmanEncodedLen(s)
		if encLen < len(s) {
			dst = encodeInteger(dst, uint64(encLen), 7, 0x80)
			return HuffmanEncode(dst, s)
		}
		dst = encodeInteger(dst, uint64(len(s)), 7, 0x00)
		return append(dst, s...)
	}
}

// stringDecoderState tracks progress of a resumable string decode.
type stringDecoderState uint8

const (
	strStateInit stringDecoderState = iota
	strStateLength
	strStateValue
	strStateDone
)

// stringDecoder decodes one RFC 7541 §5.2 string literal across any
// sequence of Cursor-bounded calls.
type stringDecoder struct {
	state       stringDecoderState
	huffman     bool
	length      int
	maxLength   int
	lengthCoder integerDecoder
	scratch     []byte
}

func (d *stringDecoder) reset(maxLength int) {
	d.state = strStateInit
	d.scratch = d.scratch[:0]
	if maxLength <= 0 {
		maxLength = defaultMaxStringLength
	}
	d.maxLength = maxLength
}

// decode advances the string decode using cur, returning the decoded
// value once complete.
func (d *stringDecoder) decode(cur *Cursor) (value string, ok bool, err error) {
	switch d.state {
	case strStateInit:
		b, got := cur.PeekByte()
		if !got {
			return "", false, nil
		}
		d.huffman = b&0x80 != 0
		d.lengthCoder.reset(7)
		d.state = strStateLength
		fallthrough

	case strStateLength:
		n, got, err := d.lengthCoder.decode(cur)
		if err != nil {
			return "", false, err
		}
		if !got {
			return "", false, nil
		}
		if n > uint64(d.maxLength) {
			return "", false, wrapError(ErrKindCompressionError, ErrStringTooLarge)
		}
		d.length = int(n)
		d.scratch = d.scratch[:0]
		d.state = strStateValue
		fallthrough

	case strStateValue:
		need := d.length - len(d.scratch)
		if need > 0 {
			chunk := cur.ReadN(need)
			d.scratch = append(d.scratch, chunk...)
			if len(d.scratch) < d.length {
				return "", false, nil
			}
		}

		d.state = strStateDone
		if d.huffman {
			decoded := bufpool.Get()
			out, err := HuffmanDecode(decoded.B, d.scratch)
			if err != nil {
				bufpool.Put(decoded)
				return "", false, err
			}
			decoded.B = out
			value := string(decoded.B)
			bufpool.Put(decoded)
			return value, true, nil
		}
		return string(d.scratch), true, nil

	default: // strStateDone
		return "", true, nil
	}
}
