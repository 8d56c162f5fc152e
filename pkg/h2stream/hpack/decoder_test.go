package hpack

import "testing"

// TestDecodeResumeAcrossSplits mirrors scenario 5: the encoding of
// :authority: example.com must decode to exactly one HeaderField no
// matter where the byte stream is split.
func TestDecodeResumeAcrossSplits(t *testing.T) {
	enc := NewEncoder(4096)
	enc.SetHuffmanMode(Never)
	encoded := enc.EncodeHeaderBlock(nil, []Header{
		{Name: ":authority", Value: "example.com", Hint: UseCache},
	})

	for split := 0; split <= len(encoded); split++ {
		dec := NewDecoder(4096, 0)
		dec.BeginHeaderBlock()

		var results []Result
		first := NewCursor(encoded[:split])
		for {
			res, err := dec.Decode(first)
			if err != nil {
				t.Fatalf("split %d: unexpected error %v", split, err)
			}
			if res.Kind == Ongoing {
				break
			}
			results = append(results, res)
		}

		second := NewCursor(encoded[split:])
		for !second.Empty() || len(results) == 0 {
			res, err := dec.Decode(second)
			if err != nil {
				t.Fatalf("split %d: unexpected error %v", split, err)
			}
			if res.Kind == Ongoing {
				break
			}
			results = append(results, res)
		}

		if len(results) != 1 {
			t.Fatalf("split %d: got %d results, want 1", split, len(results))
		}
		h := results[0].Header
		if h.Name != ":authority" || h.Value != "example.com" {
			t.Fatalf("split %d: decoded %+v", split, h)
		}
	}
}

func TestDecodeInvalidIndexZero(t *testing.T) {
	dec := NewDecoder(4096, 0)
	dec.BeginHeaderBlock()
	cur := NewCursor([]byte{0x80}) // indexed field, index 0 is invalid

	if _, err := dec.Decode(cur); err == nil {
		t.Fatalf("expected error decoding indexed field 0")
	}

	// Decoder stays poisoned: a second call returns the same error without
	// touching the cursor.
	if _, err := dec.Decode(cur); err == nil {
		t.Fatalf("expected decoder to remain poisoned")
	}
}

func TestDecodeIndexedOutOfRange(t *testing.T) {
	dec := NewDecoder(4096, 0)
	dec.BeginHeaderBlock()
	// Index 61 (0xBD = 1011_1101) is valid static (last entry); 62 with an
	// empty dynamic table is out of range.
	cur := NewCursor([]byte{0xBE})
	if _, err := dec.Decode(cur); err == nil {
		t.Fatalf("expected error decoding out-of-range index 62")
	}
}

func TestDecodeTableSizeUpdateMustPrecedeFields(t *testing.T) {
	dec := NewDecoder(4096, 0)
	dec.SetProtocolMaxSize(4096)
	dec.BeginHeaderBlock()

	cur := NewCursor([]byte{0x82}) // :method: GET
	res, err := dec.Decode(cur)
	if err != nil || res.Kind != HeaderFieldResult {
		t.Fatalf("unexpected first decode: %+v, %v", res, err)
	}

	late := NewCursor([]byte{0x3F, 0x01}) // table size update after a field
	if _, err := dec.Decode(late); err == nil {
		t.Fatalf("expected error: table size update after first field")
	}
}

func TestDecodeTableSizeUpdateExceedsProtocolMax(t *testing.T) {
	dec := NewDecoder(4096, 0)
	dec.SetProtocolMaxSize(100)
	dec.BeginHeaderBlock()

	dst := encodeInteger(nil, 200, 5, 0x20)
	cur := NewCursor(dst)
	if _, err := dec.Decode(cur); err == nil {
		t.Fatalf("expected ProtocolError: table size update exceeds declared max")
	}
}
