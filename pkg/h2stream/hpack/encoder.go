package hpack

// Encoder serializes header lists into HPACK-encoded header blocks. Each
// Encoder owns one dynamic table and must be driven from a single
// goroutine (typically one HTTP/2 connection's event loop); it holds no
// internal locks.
type Encoder struct {
	table       *indexTable
	huffman     HuffmanMode
	pendingMin  uint32 // smallest pending table-size update, if any
	pendingMax  uint32 // most recent pending table-size update
	hasPending  bool
	hasMultiple bool
}

// NewEncoder creates an Encoder whose dynamic table starts at
// maxDynamicTableSize octets.
func NewEncoder(maxDynamicTableSize uint32) *Encoder {
	return &Encoder{
		table:   newIndexTable(maxDynamicTableSize),
		huffman: Smallest,
	}
}

// SetHuffmanMode controls how string literals are represented.
func (e *Encoder) SetHuffmanMode(mode HuffmanMode) {
	e.huffman = mode
}

// UpdateMaxTableSize records a dynamic table size change to be emitted as
// a Dynamic Table Size Update entry at the start of the next encoded
// header block (RFC 7541 §6.3), and applies the new bound to the table
// immediately so subsequent encode calls respect it.
func (e *Encoder) UpdateMaxTableSize(newMax uint32) {
	if !e.hasPending {
		e.pendingMin = newMax
		e.pendingMax = newMax
		e.hasPending = true
	} else {
		if newMax < e.pendingMin {
			e.pendingMin = newMax
		}
		e.pendingMax = newMax
		e.hasMultiple = true
	}
	e.table.setMaxDynamicSize(newMax)
}

// DynamicTableSize returns the current occupancy of the dynamic table.
func (e *Encoder) DynamicTableSize() uint32 {
	return e.table.dynamicSize()
}

// EncodeHeaderBlock appends the HPACK encoding of headers to dst and
// returns the extended slice. Any pending UpdateMaxTableSize calls are
// flushed first, per RFC 7541 §6.3: if more than one update occurred
// since the last block, the smallest value is emitted before the final
// value; otherwise the lone value is emitted alone.
func (e *Encoder) EncodeHeaderBlock(dst []byte, headers []Header) []byte {
	dst = e.flushPendingTableSize(dst)
	for _, h := range headers {
		dst = e.encodeOne(dst, h)
	}
	return dst
}

func (e *Encoder) flushPendingTableSize(dst []byte) []byte {
	if !e.hasPending {
		return dst
	}
	if e.hasMultiple {
		dst = encodeInteger(dst, uint64(e.pendingMin), 5, 0x20)
	}
	dst = encodeInteger(dst, uint64(e.pendingMax), 5, 0x20)
	e.hasPending = false
	e.hasMultiple = false
	return dst
}

func (e *Encoder) encodeOne(dst []byte, h Header) []byte {
	index, exact := e.table.find(h.Name, h.Value)

	// A never-indexed field keeps its literal form even on an exact match,
	// so the "never indexed" bit survives re-encoding.
	if exact && h.Hint != NoCacheNoIndex {
		return encodeInteger(dst, uint64(index), 7, 0x80)
	}

	switch h.Hint {
	case NoCacheNoIndex:
		return e.encodeLiteral(dst, index, h, 4, 0x10)

	case NoCache:
		return e.encodeLiteral(dst, index, h, 4, 0x00)

	default: // UseCache
		dst = e.encodeLiteral(dst, index, h, 6, 0x40)
		e.table.add(h.Name, h.Value)
		return dst
	}
}

// encodeLiteral emits a literal representation with the given prefix
// width and representation bits. index == 0 encodes as a "new name"
// literal (the index-0 prefix byte carries exactly prefixBits, so no
// special case is needed); index > 0 references the name by index.
func (e *Encoder) encodeLiteral(dst []byte, index int, h Header, prefix uint8, prefixBits byte) []byte {
	dst = encodeInteger(dst, uint64(index), prefix, prefixBits)
	if index == 0 {
		dst = encodeString(dst, h.Name, e.huffman)
	}
	return encodeString(dst, h.Value, e.huffman)
}
