package iobuf

// SegmentSize is the fixed capacity of every segment's backing array.
const SegmentSize = 8192

// shareMinimum is the smallest byte count worth sharing (rather than
// copying) when a segment is split. Splitting off a tiny prefix just to
// share the underlying array isn't worth the bookkeeping: future callers
// pay for the indirection on every subsequent read. Below this threshold
// split() copies bytes into a fresh, unshared segment instead.
const shareMinimum = 1024

// segment is a node in a buffer's circular doubly-linked list. Its
// backing array is either owned outright (owner, safe to append to at
// limit) or shared with one or more other segments/byte strings (shared,
// immutable through any handle until split off or recopied).
type segment struct {
	data  []byte
	pos   int
	limit int

	shared bool
	owner  bool

	prev, next *segment
}

func newSegment() *segment {
	s := &segment{data: make([]byte, SegmentSize), owner: true}
	s.prev, s.next = s, s
	return s
}

func (s *segment) readable() int { return s.limit - s.pos }
func (s *segment) writable() int { return SegmentSize - s.limit }

// isRecentSplit reports whether s is a small shared segment produced by a
// recent split(), as opposed to a segment that has been part of a buffer
// for a while. It is used to avoid relinking tiny shared segments directly
// into another buffer's chain, which would just push the fragmentation
// problem one level further.
func (s *segment) isRecentSplit() bool {
	return s.shared && s.readable() < shareMinimum
}

// sharedView returns a new segment that shares s's backing array over the
// range [pos, limit). Both s and the returned segment are marked shared;
// neither may be written to until one of them splits off or copies.
func (s *segment) sharedView() *segment {
	s.shared = true
	return &segment{data: s.data, pos: s.pos, limit: s.limit, shared: true}
}

// split divides s at relative offset byteCount, producing a new segment
// covering [pos, pos+byteCount) and leaving s covering [pos+byteCount,
// limit). When byteCount is large enough to be worth it, the new segment
// shares s's array (copy-on-write); otherwise its bytes are copied into a
// fresh, unshared segment.
func (s *segment) split(byteCount int) *segment {
	if byteCount <= 0 || byteCount > s.readable() {
		panic("iobuf: split out of range")
	}
	var prefix *segment
	if byteCount >= shareMinimum {
		prefix = s.sharedView()
		prefix.limit = prefix.pos + byteCount
	} else {
		prefix = newSegment()
		copy(prefix.data, s.data[s.pos:s.pos+byteCount])
		prefix.limit = byteCount
	}
	s.pos += byteCount
	return prefix
}

// compactInto tries to copy s's bytes into prev, returning true on success.
// It requires prev to be writable and to have enough spare capacity. It
// does not recycle s; the caller is responsible for detaching s from the
// list on success.
func (s *segment) compactInto(prev *segment) bool {
	if !prev.owner || prev.shared {
		return false
	}
	n := s.readable()
	if n > SegmentSize-prev.limit {
		return false
	}
	copy(prev.data[prev.limit:], s.data[s.pos:s.limit])
	prev.limit += n
	return true
}
