package hpack

// Decoder parses HPACK-encoded header blocks into header fields. It is
// fully resumable: Decode may be called with arbitrarily small slices of
// the block and will pick up exactly where it left off. A Decoder owns
// one dynamic table and must be driven from a single goroutine.
type Decoder struct {
	table *indexTable

	maxStringLength int
	protocolMaxSize uint32 // peer's declared SETTINGS_HEADER_TABLE_SIZE ceiling

	state    decoderState
	poisoned error

	sawFieldThisBlock bool

	// Sub-decoders, reused across entries to avoid reallocating on every
	// call.
	firstOctet   byte
	classify     entryKind
	nameIndexDec integerDecoder
	sizeDec      integerDecoder
	nameDec      stringDecoder
	valueDec     stringDecoder

	pendingName  string
	pendingIndex int
	pendingHint  CompressionHint
	needName     bool
}

type decoderState uint8

const (
	decStateInit decoderState = iota
	decStateIndexed
	decStateLiteralNameIndex
	decStateLiteralName
	decStateLiteralValue
	decStateTableSizeUpdate
	decStatePoisoned
)

type entryKind uint8

const (
	entryIndexed entryKind = iota
	entryLiteralIncremental
	entryLiteralWithoutIndexing
	entryLiteralNeverIndexed
	entryTableSizeUpdate
)

// ResultKind tags the three possible outcomes of one Decode call.
type ResultKind uint8

const (
	// Ongoing means the cursor ran dry before a full entry was parsed;
	// call Decode again once more input is available.
	Ongoing ResultKind = iota
	// HeaderFieldResult carries one fully decoded header field.
	HeaderFieldResult
	// TableSizeUpdateResult reports that the peer shrank (or grew) the
	// dynamic table and it has already been resized.
	TableSizeUpdateResult
)

// Result is the tagged outcome of a single Decode call.
type Result struct {
	Kind          ResultKind
	Header        Header
	NewTableSize  uint32
}

// NewDecoder creates a Decoder whose dynamic table starts at
// maxDynamicTableSize octets and whose table-size-update ceiling is also
// maxDynamicTableSize until SetProtocolMaxSize is called with the peer's
// advertised SETTINGS_HEADER_TABLE_SIZE.
func NewDecoder(maxDynamicTableSize uint32, maxStringLength int) *Decoder {
	if maxStringLength <= 0 {
		maxStringLength = defaultMaxStringLength
	}
	return &Decoder{
		table:           newIndexTable(maxDynamicTableSize),
		maxStringLength: maxStringLength,
		protocolMaxSize: maxDynamicTableSize,
	}
}

// SetProtocolMaxSize records the peer's declared SETTINGS_HEADER_TABLE_SIZE;
// any Dynamic Table Size Update the decoder observes above this value is a
// ProtocolError.
func (d *Decoder) SetProtocolMaxSize(max uint32) {
	d.protocolMaxSize = max
}

// DynamicTableSize returns the current occupancy of the dynamic table.
func (d *Decoder) DynamicTableSize() uint32 {
	return d.table.dynamicSize()
}

// BeginHeaderBlock marks the start of a new header block. It must be
// called once before decoding the first entry of each HEADERS/CONTINUATION
// sequence so the decoder can enforce that any Dynamic Table Size Update
// appears only at the very start of the block (RFC 7541 §6.3). The
// connection layer (out of this package's scope) owns block framing and
// calls this at each new block's start.
func (d *Decoder) BeginHeaderBlock() {
	if d.state == decStatePoisoned {
		return
	}
	d.sawFieldThisBlock = false
}

// Decode advances the decoder by consuming as much of cur as is needed to
// complete one entry, returning Ongoing if cur ran dry first. Once any
// call returns an error the decoder is poisoned: every subsequent Decode
// call returns that same error without touching cur or the dynamic table.
func (d *Decoder) Decode(cur *Cursor) (Result, error) {
	if d.state == decStatePoisoned {
		return Result{}, d.poisoned
	}

	res, err := d.decodeStep(cur)
	if err != nil {
		d.state = decStatePoisoned
		d.poisoned = err
		return Result{}, err
	}
	return res, nil
}

func (d *Decoder) decodeStep(cur *Cursor) (Result, error) {
	if d.state == decStateInit {
		b, got := cur.PeekByte()
		if !got {
			return Result{Kind: Ongoing}, nil
		}
		d.firstOctet = b

		switch {
		case b&0x80 != 0:
			d.classify = entryIndexed
			d.nameIndexDec.reset(7)
			d.state = decStateIndexed

		case b&0x40 != 0:
			d.classify = entryLiteralIncremental
			d.pendingHint = UseCache
			d.nameIndexDec.reset(6)
			d.state = decStateLiteralNameIndex

		case b&0x20 != 0:
			d.classify = entryTableSizeUpdate
			d.sizeDec.reset(5)
			d.state = decStateTableSizeUpdate

		case b&0x10 != 0:
			d.classify = entryLiteralNeverIndexed
			d.pendingHint = NoCacheNoIndex
			d.nameIndexDec.reset(4)
			d.state = decStateLiteralNameIndex

		default:
			d.classify = entryLiteralWithoutIndexing
			d.pendingHint = NoCache
			d.nameIndexDec.reset(4)
			d.state = decStateLiteralNameIndex
		}
	}

	switch d.state {
	case decStateIndexed:
		return d.decodeIndexed(cur)
	case decStateLiteralNameIndex, decStateLiteralName, decStateLiteralValue:
		return d.decodeLiteral(cur)
	case decStateTableSizeUpdate:
		return d.decodeTableSizeUpdate(cur)
	default:
		return Result{Kind: Ongoing}, nil
	}
}

func (d *Decoder) decodeIndexed(cur *Cursor) (Result, error) {
	idx, ok, err := d.nameIndexDec.decode(cur)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Kind: Ongoing}, nil
	}

	if idx == 0 {
		return Result{}, newError(ErrKindProtocolError, ErrInvalidIndex.Error())
	}
	h, found := d.table.get(int(idx))
	if !found {
		return Result{}, newError(ErrKindProtocolError, ErrInvalidIndex.Error())
	}

	d.finishEntry()
	d.sawFieldThisBlock = true
	return Result{Kind: HeaderFieldResult, Header: h}, nil
}

func (d *Decoder) decodeLiteral(cur *Cursor) (Result, error) {
	if d.state == decStateLiteralNameIndex {
		idx, ok, err := d.nameIndexDec.decode(cur)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{Kind: Ongoing}, nil
		}
		d.pendingIndex = int(idx)
		d.needName = idx == 0
		if d.needName {
			d.nameDec.reset(d.maxStringLength)
		} else {
			h, found := d.table.get(d.pendingIndex)
			if !found {
				return Result{}, newError(ErrKindProtocolError, ErrInvalidIndex.Error())
			}
			d.pendingName = h.Name
		}
		d.valueDec.reset(d.maxStringLength)
		d.state = decStateLiteralName
	}

	if d.state == decStateLiteralName && d.needName {
		name, ok, err := d.nameDec.decode(cur)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{Kind: Ongoing}, nil
		}
		d.pendingName = name
		d.state = decStateLiteralValue
	} else if d.state == decStateLiteralName {
		d.state = decStateLiteralValue
	}

	value, ok, err := d.valueDec.decode(cur)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Kind: Ongoing}, nil
	}

	h := Header{Name: d.pendingName, Value: value, Hint: d.pendingHint}
	if d.classify == entryLiteralIncremental {
		d.table.add(h.Name, h.Value)
	}

	d.finishEntry()
	d.sawFieldThisBlock = true
	return Result{Kind: HeaderFieldResult, Header: h}, nil
}

func (d *Decoder) decodeTableSizeUpdate(cur *Cursor) (Result, error) {
	if d.sawFieldThisBlock {
		return Result{}, newError(ErrKindProtocolError, ErrTableSizeUpdateLate.Error())
	}

	size, ok, err := d.sizeDec.decode(cur)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Kind: Ongoing}, nil
	}
	if size > uint64(d.protocolMaxSize) {
		return Result{}, newError(ErrKindProtocolError, ErrTableSizeTooLarge.Error())
	}

	d.table.setMaxDynamicSize(uint32(size))
	d.finishEntry()
	return Result{Kind: TableSizeUpdateResult, NewTableSize: uint32(size)}, nil
}

func (d *Decoder) finishEntry() {
	d.state = decStateInit
	d.pendingName = ""
	d.pendingIndex = 0
	d.needName = false
}
