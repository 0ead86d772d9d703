package iobuf

// BufferedSource wraps an arbitrary Source with an owned Buffer, turning
// the Source's coarse, arbitrarily-chunked Read calls into the typed,
// precisely-sized reads the rest of this package exposes. It is not safe
// for concurrent use.
type BufferedSource struct {
	src    Source
	buf    Buffer
	closed bool

	// epoch counts bytes ever consumed from buf, so a peekSource created
	// at a given epoch can detect that the buffer has since advanced.
	epoch int64
}

// NewBufferedSource wraps src.
func NewBufferedSource(src Source) *BufferedSource {
	return &BufferedSource{src: src}
}

// refillOnce pulls one chunk from the downstream source into buf.
// Returns false at end-of-input.
func (bs *BufferedSource) refillOnce() (bool, error) {
	if err := bs.src.Timeout().check("refill"); err != nil {
		return false, err
	}
	got, err := bs.src.Read(&bs.buf, SegmentSize)
	if err != nil {
		return false, err
	}
	return got >= 0, nil
}

// Request refills buf until it holds at least n bytes, or the
// downstream is exhausted first (returning false, nil in that case).
func (bs *BufferedSource) Request(n int64) (bool, error) {
	if bs.closed {
		return false, newError(Closed, "request", nil)
	}
	for bs.buf.Size() < n {
		ok, err := bs.refillOnce()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Require is Request, converting exhaustion into an UnexpectedEnd error.
func (bs *BufferedSource) Require(n int64) error {
	ok, err := bs.Request(n)
	if err != nil {
		return err
	}
	if !ok {
		return newError(UnexpectedEnd, "require", nil)
	}
	return nil
}

func (bs *BufferedSource) consumed(n int64) { bs.epoch += n }

// ReadByte consumes a single byte.
func (bs *BufferedSource) ReadByte() (byte, error) {
	if err := bs.Require(1); err != nil {
		return 0, err
	}
	defer bs.consumed(1)
	return bs.buf.ReadByte()
}

// ReadShort consumes a 16-bit big-endian integer.
func (bs *BufferedSource) ReadShort() (int16, error) {
	if err := bs.Require(2); err != nil {
		return 0, err
	}
	defer bs.consumed(2)
	return bs.buf.ReadShort()
}

// ReadShortLe consumes a 16-bit little-endian integer.
func (bs *BufferedSource) ReadShortLe() (int16, error) {
	if err := bs.Require(2); err != nil {
		return 0, err
	}
	defer bs.consumed(2)
	return bs.buf.ReadShortLe()
}

// ReadInt consumes a 32-bit big-endian integer.
func (bs *BufferedSource) ReadInt() (int32, error) {
	if err := bs.Require(4); err != nil {
		return 0, err
	}
	defer bs.consumed(4)
	return bs.buf.ReadInt()
}

// ReadIntLe consumes a 32-bit little-endian integer.
func (bs *BufferedSource) ReadIntLe() (int32, error) {
	if err := bs.Require(4); err != nil {
		return 0, err
	}
	defer bs.consumed(4)
	return bs.buf.ReadIntLe()
}

// ReadLong consumes a 64-bit big-endian integer.
func (bs *BufferedSource) ReadLong() (int64, error) {
	if err := bs.Require(8); err != nil {
		return 0, err
	}
	defer bs.consumed(8)
	return bs.buf.ReadLong()
}

// ReadLongLe consumes a 64-bit little-endian integer.
func (bs *BufferedSource) ReadLongLe() (int64, error) {
	if err := bs.Require(8); err != nil {
		return 0, err
	}
	defer bs.consumed(8)
	return bs.buf.ReadLongLe()
}

// ReadByteArray consumes exactly byteCount bytes and returns a copy.
func (bs *BufferedSource) ReadByteArray(byteCount int64) ([]byte, error) {
	if err := bs.Require(byteCount); err != nil {
		return nil, err
	}
	defer bs.consumed(byteCount)
	return bs.buf.ReadByteArray(byteCount)
}

// ReadByteString consumes exactly byteCount bytes as a ByteString.
func (bs *BufferedSource) ReadByteString(byteCount int64) (ByteString, error) {
	if err := bs.Require(byteCount); err != nil {
		return ByteString{}, err
	}
	defer bs.consumed(byteCount)
	return bs.buf.ReadByteString(byteCount)
}

// ensureRun extends buf until byte offset `skip` through the end of the
// contiguous run of bytes satisfying isMember is fully buffered (i.e.
// either a non-member byte follows, or the downstream is exhausted).
func (bs *BufferedSource) ensureRun(skip int64, isMember func(byte) bool) error {
	offset := skip
	for {
		if offset >= bs.buf.Size() {
			grew, err := bs.Request(offset + 1)
			if err != nil {
				return err
			}
			if !grew {
				return nil
			}
		}
		if offset >= bs.buf.Size() {
			return nil
		}
		if !isMember(bs.buf.byteAt(offset)) {
			return nil
		}
		offset++
	}
}

// ReadDecimalLong consumes an optional '-' then a run of decimal digits.
func (bs *BufferedSource) ReadDecimalLong() (int64, error) {
	if bs.closed {
		return 0, newError(Closed, "ReadDecimalLong", nil)
	}
	skip := int64(0)
	if ok, err := bs.Request(1); err != nil {
		return 0, err
	} else if ok && bs.buf.byteAt(0) == '-' {
		skip = 1
	}
	if err := bs.ensureRun(skip, isDecDigit); err != nil {
		return 0, err
	}
	before := bs.buf.Size()
	v, err := bs.buf.ReadDecimalLong()
	bs.consumed(before - bs.buf.Size())
	return v, err
}

// ReadHexadecimalUnsignedLong consumes a run of hex digits.
func (bs *BufferedSource) ReadHexadecimalUnsignedLong() (uint64, error) {
	if bs.closed {
		return 0, newError(Closed, "ReadHexadecimalUnsignedLong", nil)
	}
	if err := bs.ensureRun(0, isHexDigit); err != nil {
		return 0, err
	}
	before := bs.buf.Size()
	v, err := bs.buf.ReadHexadecimalUnsignedLong()
	bs.consumed(before - bs.buf.Size())
	return v, err
}

// ReadUtf8CodePoint consumes one UTF-8 code point, refilling up to 4
// bytes if available.
func (bs *BufferedSource) ReadUtf8CodePoint() (rune, error) {
	if bs.closed {
		return 0, newError(Closed, "ReadUtf8CodePoint", nil)
	}
	if _, err := bs.Request(4); err != nil {
		return 0, err
	}
	before := bs.buf.Size()
	r, err := bs.buf.ReadUtf8CodePoint()
	bs.consumed(before - bs.buf.Size())
	return r, err
}

// fillUntilByte extends buf until it contains target, or (if limit>=0)
// holds limit bytes, or the downstream is exhausted.
func (bs *BufferedSource) fillUntilByte(target byte, limit int64) error {
	for {
		if idx := bs.buf.IndexOfByte(target, 0, bs.buf.Size()); idx >= 0 {
			return nil
		}
		if limit >= 0 && bs.buf.Size() >= limit {
			return nil
		}
		want := bs.buf.Size() + 1
		if limit >= 0 && want > limit {
			want = limit
		}
		grew, err := bs.Request(want)
		if err != nil {
			return err
		}
		if !grew {
			return nil
		}
	}
}

// ReadUtf8Line consumes bytes up to the next '\n' (or end of input).
func (bs *BufferedSource) ReadUtf8Line() (string, bool, error) {
	if bs.closed {
		return "", false, newError(Closed, "ReadUtf8Line", nil)
	}
	if err := bs.fillUntilByte('\n', -1); err != nil {
		return "", false, err
	}
	before := bs.buf.Size()
	s, ok, err := bs.buf.ReadUtf8Line()
	bs.consumed(before - bs.buf.Size())
	return s, ok, err
}

// ReadUtf8LineStrict is ReadUtf8Line, failing with UnexpectedEnd instead
// of tolerating end-of-input or an overlong line.
func (bs *BufferedSource) ReadUtf8LineStrict(limit int64) (string, error) {
	if bs.closed {
		return "", newError(Closed, "ReadUtf8LineStrict", nil)
	}
	if err := bs.fillUntilByte('\n', limit+2); err != nil {
		return "", err
	}
	before := bs.buf.Size()
	s, err := bs.buf.ReadUtf8LineStrict(limit)
	bs.consumed(before - bs.buf.Size())
	return s, err
}

// Read refills at most once, then copies up to length bytes into
// sink[off:], returning the number actually copied (which may be less than
// requested) or -1 at true end-of-input.
func (bs *BufferedSource) Read(sink []byte, off, length int) (int, error) {
	if bs.closed {
		return 0, newError(Closed, "read", nil)
	}
	if length == 0 {
		return 0, nil
	}
	if bs.buf.Size() == 0 {
		ok, err := bs.refillOnce()
		if err != nil {
			return 0, err
		}
		if !ok {
			return -1, nil
		}
	}
	n := int64(length)
	if n > bs.buf.Size() {
		n = bs.buf.Size()
	}
	if err := bs.buf.readInto(sink[off : off+int(n)]); err != nil {
		return 0, err
	}
	bs.consumed(n)
	return int(n), nil
}

// ReadAll drains bs's buffered bytes and the rest of the downstream into
// sink, returning the total bytes moved.
func (bs *BufferedSource) ReadAll(sink Sink) (int64, error) {
	if bs.closed {
		return 0, newError(Closed, "readAll", nil)
	}
	var total int64
	if bs.buf.Size() > 0 {
		n := bs.buf.Size()
		if err := sink.Write(&bs.buf, n); err != nil {
			return total, err
		}
		bs.consumed(n)
		total += n
	}
	for {
		ok, err := bs.refillOnce()
		if err != nil {
			return total, err
		}
		if !ok {
			return total, nil
		}
		n := bs.buf.Size()
		if err := sink.Write(&bs.buf, n); err != nil {
			return total, err
		}
		bs.consumed(n)
		total += n
	}
}

// ReadByteArrayAll drains the downstream entirely and returns it as one
// byte slice.
func (bs *BufferedSource) ReadByteArrayAll() ([]byte, error) {
	var tmp Buffer
	if _, err := bs.ReadAll(&tmp); err != nil {
		return nil, err
	}
	return tmp.ReadByteArray(tmp.Size())
}

// ReadByteStringAll drains the downstream entirely and returns it as one
// ByteString.
func (bs *BufferedSource) ReadByteStringAll() (ByteString, error) {
	b, err := bs.ReadByteArrayAll()
	if err != nil {
		return ByteString{}, err
	}
	return byteStringFromShared(b), nil
}

// IndexOfByte refills as needed until target is found within [from, to)
// or the downstream is exhausted.
func (bs *BufferedSource) IndexOfByte(target byte, from, to int64) (int64, error) {
	if bs.closed {
		return -1, newError(Closed, "indexOf", nil)
	}
	for {
		searchTo := to
		if searchTo > bs.buf.Size() {
			searchTo = bs.buf.Size()
		}
		if idx := bs.buf.IndexOfByte(target, from, searchTo); idx >= 0 {
			return idx, nil
		}
		if bs.buf.Size() >= to {
			return -1, nil
		}
		grew, err := bs.Request(bs.buf.Size() + 1)
		if err != nil {
			return -1, err
		}
		if !grew {
			return -1, nil
		}
	}
}

// IndexOfByteString is IndexOfByte for a multi-byte needle.
func (bs *BufferedSource) IndexOfByteString(needle ByteString, from, to int64) (int64, error) {
	if bs.closed {
		return -1, newError(Closed, "indexOf", nil)
	}
	for {
		searchTo := to
		if searchTo > bs.buf.Size() {
			searchTo = bs.buf.Size()
		}
		if idx := bs.buf.IndexOfByteString(needle, from, searchTo); idx >= 0 {
			return idx, nil
		}
		if bs.buf.Size() >= to {
			return -1, nil
		}
		grew, err := bs.Request(bs.buf.Size() + 1)
		if err != nil {
			return -1, err
		}
		if !grew {
			return -1, nil
		}
	}
}

// Select refills enough to discriminate among opts's alternatives (at
// most the longest one) and returns the matched index, consuming its
// bytes; or -1 with no bytes consumed if nothing matched.
func (bs *BufferedSource) Select(opts *Options) (int, error) {
	if bs.closed {
		return -1, newError(Closed, "select", nil)
	}
	if _, err := bs.Request(int64(opts.maxLen)); err != nil {
		return -1, err
	}
	n := opts.root
	bestResult, bestLen := -1, 0
	size := bs.buf.Size()
	var pos int64
	for pos < size {
		child, ok := n.children[bs.buf.byteAt(pos)]
		if !ok {
			break
		}
		n = child
		pos++
		if n.result != -1 {
			bestResult, bestLen = n.result, int(pos)
		}
	}
	if bestResult < 0 {
		return -1, nil
	}
	if _, err := bs.buf.ReadByteArray(int64(bestLen)); err != nil {
		return -1, err
	}
	bs.consumed(int64(bestLen))
	return bestResult, nil
}

// Peek returns a new BufferedSource over a non-consuming snapshot of
// bs's current head position; see peekSource.
func (bs *BufferedSource) Peek() *BufferedSource {
	return NewBufferedSource(newPeekSource(bs))
}

// Close marks bs closed and closes the downstream source. Idempotent.
func (bs *BufferedSource) Close() error {
	if bs.closed {
		return nil
	}
	bs.closed = true
	return bs.src.Close()
}
