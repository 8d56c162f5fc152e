package hpack

// Dynamic table, RFC 7541 §2.3.2 / §4: a per-connection FIFO cache of
// recently-encoded headers, bounded by total octet size. Stored as a
// circular buffer; entry 1 is always the newest (combined index
// StaticTableSize+1), growing indices point at progressively older
// entries.
//
// entrySize is the RFC 7541 §4.1 accounting cost of an entry: the name
// and value lengths plus 32 octets of overhead.
func entrySize(name, value string) uint32 {
	return uint32(len(name) + len(value) + 32)
}

type dynamicTable struct {
	entries []Header // circular buffer
	head    int      // buffer position of the newest entry
	count   int
	size    uint32
	maxSize uint32

	// Reverse-lookup indices, rebuilt after every mutation so they always
	// reflect the current contents. Key forms: name, and name+"\x00"+value.
	// Value is the 1-based dynamic index of the smallest (newest) match.
	nameValueIndex map[string]int
	nameIndex      map[string]int
}

func newDynamicTable(maxSize uint32) *dynamicTable {
	capacity := int(maxSize/64) + 1
	if capacity < 16 {
		capacity = 16
	}
	return &dynamicTable{
		entries:        make([]Header, capacity),
		maxSize:        maxSize,
		nameValueIndex: make(map[string]int),
		nameIndex:      make(map[string]int),
	}
}

// add inserts (name, value) at the front of the table, per spec §3:
// evicts oldest entries until the new entry fits, then prepends; an entry
// whose cost exceeds maxSize on its own empties the table without being
// inserted.
func (dt *dynamicTable) add(name, value string) {
	cost := entrySize(name, value)

	if cost > dt.maxSize {
		dt.reset()
		return
	}

	for dt.size+cost > dt.maxSize && dt.count > 0 {
		dt.evictOldest()
	}

	if dt.count == len(dt.entries) {
		dt.grow()
	}

	dt.head = (dt.head - 1 + len(dt.entries)) % len(dt.entries)
	dt.entries[dt.head] = Header{Name: name, Value: value}
	dt.count++
	dt.size += cost

	dt.rebuildIndex()
}

// get retrieves the entry at 1-based dynamic index (1 = newest).
func (dt *dynamicTable) get(index int) (Header, bool) {
	if index < 1 || index > dt.count {
		return Header{}, false
	}
	pos := (dt.head + index - 1) % len(dt.entries)
	return dt.entries[pos], true
}

// find returns the smallest dynamic index matching (name, value), and
// whether it is an exact match (both name and value) as opposed to a
// name-only match.
func (dt *dynamicTable) find(name, value string) (index int, exact bool) {
	if value != "" {
		if idx, ok := dt.nameValueIndex[name+"\x00"+value]; ok {
			return idx, true
		}
	}
	if idx, ok := dt.nameIndex[name]; ok {
		return idx, false
	}
	return 0, false
}

func (dt *dynamicTable) len() int { return dt.count }

func (dt *dynamicTable) currentSize() uint32 { return dt.size }

func (dt *dynamicTable) max() uint32 { return dt.maxSize }

// setMaxSize changes the maximum size, evicting from the tail as needed.
// Per spec §8, after a resize the entries retained are the newest
// entries that still fit within the new bound.
func (dt *dynamicTable) setMaxSize(maxSize uint32) {
	dt.maxSize = maxSize
	for dt.size > dt.maxSize && dt.count > 0 {
		dt.evictOldest()
	}
	dt.rebuildIndex()
}

func (dt *dynamicTable) evictOldest() {
	if dt.count == 0 {
		return
	}
	tail := (dt.head + dt.count - 1) % len(dt.entries)
	entry := dt.entries[tail]
	dt.size -= entrySize(entry.Name, entry.Value)
	dt.count--
	dt.entries[tail] = Header{}
}

func (dt *dynamicTable) grow() {
	newCap := len(dt.entries) * 2
	newEntries := make([]Header, newCap)
	for i := 0; i < dt.count; i++ {
		pos := (dt.head + i) % len(dt.entries)
		newEntries[i] = dt.entries[pos]
	}
	dt.entries = newEntries
	dt.head = 0
}

func (dt *dynamicTable) reset() {
	for i := 0; i < dt.count; i++ {
		pos := (dt.head + i) % len(dt.entries)
		dt.entries[pos] = Header{}
	}
	dt.head = 0
	dt.count = 0
	dt.size = 0
	dt.rebuildIndex()
}

// rebuildIndex recomputes both reverse-lookup maps from scratch, scanning
// newest-to-oldest so the first occurrence recorded for a key is always
// the smallest (newest) matching index. Dynamic table occupancy is small
// in practice (bounded by the peer's advertised table-size setting, a few
// dozen to a few hundred entries), so an O(n) rebuild on each mutation is
// cheaper and far simpler to reason about than incrementally patching
// indices across evictions and ring-buffer growth.
func (dt *dynamicTable) rebuildIndex() {
	for k := range dt.nameValueIndex {
		delete(dt.nameValueIndex, k)
	}
	for k := range dt.nameIndex {
		delete(dt.nameIndex, k)
	}

	for i := 1; i <= dt.count; i++ {
		entry, _ := dt.get(i)
		if _, ok := dt.nameIndex[entry.Name]; !ok {
			dt.nameIndex[entry.Name] = i
		}
		if entry.Value != "" {
			key := entry.Name + "\x00" + entry.Value
			if _, ok := dt.nameValueIndex[key]; !ok {
				dt.nameValueIndex[key] = i
			}
		}
	}
}

// indexTable combines the static and dynamic tables into one address
// space: indices 1..StaticTableSize are static, StaticTableSize+1.. are
// dynamic (newest first).
type indexTable struct {
	dynamic *dynamicTable
}

func newIndexTable(maxDynamicSize uint32) *indexTable {
	return &indexTable{dynamic: newDynamicTable(maxDynamicSize)}
}

func (it *indexTable) get(index int) (Header, bool) {
	if index <= 0 {
		return Header{}, false
	}
	if index <= StaticTableSize {
		return staticEntry(index)
	}
	return it.dynamic.get(index - StaticTableSize)
}

func (it *indexTable) add(name, value string) {
	it.dynamic.add(name, value)
}

// find searches static then dynamic tables, preferring an exact
// (name, value) match over a name-only match, and the smallest index
// when both tables offer a match of the same kind.
func (it *indexTable) find(name, value string) (index int, exact bool) {
	staticIdx, staticExact := findStatic(name, value)
	if staticExact {
		return staticIdx, true
	}

	dynIdx, dynExact := it.dynamic.find(name, value)
	if dynIdx > 0 {
		abs := StaticTableSize + dynIdx
		if dynExact {
			return abs, true
		}
		if staticIdx == 0 {
			return abs, false
		}
	}

	if staticIdx > 0 {
		return staticIdx, false
	}
	return 0, false
}

func (it *indexTable) setMaxDynamicSize(maxSize uint32) {
	it.dynamic.setMaxSize(maxSize)
}

func (it *indexTable) dynamicSize() uint32 { return it.dynamic.currentSize() }
