// Package iobuf provides a segmented byte buffer and the source/sink
// abstractions built on it: a pull source, a push sink, a buffered
// adapter that wraps either with the buffer and exposes typed I/O
// (integers, UTF-8 text, hex/base64, indexed search), and an unsafe
// cursor for zero-copy adapters.
package iobuf

// Buffer is a segmented, growable byte container that is itself both a
// Source and a Sink. It is not safe for concurrent use by multiple
// goroutines.
//
// The zero value is an empty, ready-to-use Buffer.
type Buffer struct {
	head *segment // nil when empty; head.prev is the tail
	size int64
}

// Size returns the number of bytes currently held by b.
func (b *Buffer) Size() int64 { return b.size }

// IsEmpty reports whether b holds no bytes.
func (b *Buffer) IsEmpty() bool { return b.size == 0 }

// tail returns b's tail segment, or nil if b is empty.
func (b *Buffer) tail() *segment {
	if b.head == nil {
		return nil
	}
	return b.head.prev
}

// pushTail appends s to b's segment ring as the new tail.
func (b *Buffer) pushTail(s *segment) {
	if b.head == nil {
		s.prev, s.next = s, s
		b.head = s
		return
	}
	t := b.head.prev
	s.prev = t
	s.next = b.head
	t.next = s
	b.head.prev = s
}

// popHead detaches b's head segment (which must be fully drained,
// pos==limit) and recycles it, if its array is unshared.
func (b *Buffer) popHead() {
	h := b.head
	if h.next == h {
		b.head = nil
	} else {
		h.prev.next = h.next
		h.next.prev = h.prev
		b.head = h.next
	}
	h.prev, h.next = nil, nil
	pool.recycle(h)
}

// writableSegment returns b's tail segment, guaranteed to have at least
// min free bytes (min must be <= SegmentSize). It allocates and links a
// fresh tail when the current one is absent, shared, not owned, or too
// full.
func (b *Buffer) writableSegment(min int) *segment {
	if min <= 0 || min > SegmentSize {
		panic("iobuf: writableSegment: invalid min")
	}
	t := b.tail()
	if t == nil || !t.owner || t.shared || t.writable() < min {
		fresh := pool.take()
		b.pushTail(fresh)
		return fresh
	}
	return t
}

// appendBytes copies p into b's tail, allocating new segments as needed.
// It always succeeds (Buffer growth is unbounded).
func (b *Buffer) appendBytes(p []byte) {
	for len(p) > 0 {
		t := b.writableSegment(1)
		n := copy(t.data[t.limit:], p)
		t.limit += n
		b.size += int64(n)
		p = p[n:]
	}
}

// Clone returns an independent Buffer sharing all of b's segment arrays.
// Both b and the clone's segments are marked shared; writes to either
// side split off or allocate fresh segments rather than mutating shared
// data.
func (b *Buffer) Clone() *Buffer {
	clone := &Buffer{size: b.size}
	if b.head == nil {
		return clone
	}
	var prevClone *segment
	first := true
	for s := b.head; first || s != b.head; s = s.next {
		first = false
		cs := s.sharedView()
		if clone.head == nil {
			clone.head = cs
			cs.prev, cs.next = cs, cs
		} else {
			cs.prev = prevClone
			cs.next = clone.head
			prevClone.next = cs
			clone.head.prev = cs
		}
		prevClone = cs
	}
	return clone
}

// Write moves exactly byteCount bytes from src into b, sharing segments
// directly (an O(segments) pointer move) whenever possible instead of
// copying byte-by-byte. Write implements Sink; a Buffer-to-Buffer
// transfer never fails in the I/O sense, so it always returns a nil
// error (an out-of-range byteCount is a programming error and panics).
func (b *Buffer) Write(src *Buffer, byteCount int64) error {
	if src == b {
		panic("iobuf: Write: source and destination must differ")
	}
	if byteCount < 0 || byteCount > src.size {
		panic("iobuf: Write: byteCount out of range")
	}
	remaining := byteCount
	for remaining > 0 {
		h := src.head
		n := int64(h.readable())

		switch {
		case n <= remaining &&
			(b.tail() == nil || (int64(h.readable()) > int64(b.tail().writable()) && !h.isRecentSplit())):
			// Policy (a): the whole head segment is consumed by this
			// transfer, and either there is no destination tail or it
			// has no room for it — unlink the head wholesale and link
			// it directly as our new tail.
			src.unlinkHead()
			b.pushTail(h)
			remaining -= n

		case h.shared:
			// Policy (b): can't write through a shared array; split off
			// exactly what we need (or all of it, if that's less) and
			// link the prefix.
			take := n
			if remaining < take {
				take = remaining
			}
			prefix := h.split(int(take))
			if h.readable() == 0 {
				src.unlinkHead()
				pool.recycle(h)
			}
			b.pushTail(prefix)
			remaining -= take

		default:
			// Policy (c): copy into our tail's free space.
			t := b.writableSegment(1)
			take := int64(t.writable())
			if remaining < take {
				take = remaining
			}
			if n < take {
				take = n
			}
			copy(t.data[t.limit:], h.data[h.pos:h.pos+int(take)])
			t.limit += int(take)
			h.pos += int(take)
			if h.readable() == 0 {
				src.unlinkHead()
				pool.recycle(h)
			}
			remaining -= take
		}
	}
	src.size -= byteCount
	b.size += byteCount
	return nil
}

// unlinkHead detaches b's head segment from the ring without recycling
// it (the caller takes ownership).
func (b *Buffer) unlinkHead() {
	h := b.head
	if h.next == h {
		b.head = nil
	} else {
		h.prev.next = h.next
		h.next.prev = h.prev
		b.head = h.next
	}
	h.prev, h.next = h, h
}

// unlinkTail detaches segment t (which must currently be b's tail) from
// the ring without recycling it.
func (b *Buffer) unlinkTail(t *segment) {
	if t.next == t {
		b.head = nil
	} else {
		t.prev.next = t.next
		t.next.prev = t.prev
		if b.head == t {
			b.head = t.next
		}
	}
	t.prev, t.next = nil, nil
}

// Read moves up to byteCount bytes from b into dst, symmetric to Write.
// Read implements Source: it returns (-1, nil) when b is empty, per the
// package's end-of-input sentinel, and otherwise the number of bytes
// actually moved (which may be less than byteCount).
func (b *Buffer) Read(dst *Buffer, byteCount int64) (int64, error) {
	if b.size == 0 {
		return -1, nil
	}
	if byteCount > b.size {
		byteCount = b.size
	}
	if err := dst.Write(b, byteCount); err != nil {
		return 0, err
	}
	return byteCount, nil
}

// CopyTo appends byteCount bytes starting at offset to dst, sharing (not
// copying) the underlying arrays. Both b and dst mark the shared arrays
// immutable; subsequent writes to either split off or allocate fresh
// segments.
func (b *Buffer) CopyTo(dst *Buffer, offset, byteCount int64) {
	if offset < 0 || byteCount < 0 || offset+byteCount > b.size {
		panic("iobuf: CopyTo: range out of bounds")
	}
	if byteCount == 0 {
		return
	}
	s := b.head
	pos := int64(0)
	for pos+int64(s.readable()) <= offset {
		pos += int64(s.readable())
		s = s.next
	}
	skip := offset - pos
	remaining := byteCount
	for remaining > 0 {
		view := s.sharedView()
		view.pos += int(skip)
		avail := int64(view.limit - view.pos)
		if avail > remaining {
			view.limit = view.pos + int(remaining)
			avail = remaining
		}
		dst.pushTail(view)
		dst.size += avail
		remaining -= avail
		skip = 0
		s = s.next
	}
}

// completeSegmentByteCount returns the number of bytes held in segments
// other than a tail that still has free space — the portion a buffered
// sink may flush downstream without fragmenting a subsequent append.
func (b *Buffer) completeSegmentByteCount() int64 {
	if b.head == nil {
		return 0
	}
	total := b.size
	t := b.tail()
	if t.owner && !t.shared && t.writable() > 0 {
		total -= int64(t.readable())
	}
	return total
}

// Snapshot returns an immutable ByteString holding b's current bytes. The
// bytes are copied into one new array, not shared with b's segments, so
// subsequent writes to b never mutate it.
func (b *Buffer) Snapshot() ByteString {
	return b.SnapshotN(b.size)
}

// SnapshotN is Snapshot limited to the first n bytes.
func (b *Buffer) SnapshotN(n int64) ByteString {
	if n < 0 || n > b.size {
		panic("iobuf: SnapshotN: n out of range")
	}
	if n == 0 {
		return ByteString{}
	}
	tmp := &Buffer{}
	b.CopyTo(tmp, 0, n)
	// Flatten into one contiguous array: ByteString's segment-view
	// variant is an internal optimization we don't expose, so a single
	// copy here keeps the public type simple.
	out := make([]byte, n)
	off := 0
	for s, first := tmp.head, true; first || s != tmp.head; s, first = s.next, false {
		off += copy(out[off:], s.data[s.pos:s.limit])
	}
	return byteStringFromShared(out)
}

// Clear discards all of b's bytes, recycling its segments.
func (b *Buffer) Clear() {
	for b.head != nil {
		h := b.head
		b.unlinkHead()
		pool.recycle(h)
	}
	b.size = 0
}

// ReadAll drains b into dst and returns the number of bytes moved.
func (b *Buffer) ReadAll(dst *Buffer) int64 {
	n := b.size
	if n == 0 {
		return 0
	}
	_ = dst.Write(b, n)
	return n
}

// Timeout implements Sink/Source: a bare Buffer never suspends, so it
// reports a Deadline handle that never expires.
func (b *Buffer) Timeout() *Deadline { return noTimeout }

// Close implements Sink/Source. Closing a Buffer is a no-op: a Buffer is
// never "closed", its memory is released by recycling segments.
func (b *Buffer) Close() error { return nil }

// Flush implements Sink. A bare Buffer has no downstream to flush to.
func (b *Buffer) Flush() error { return nil }

var _ Source = (*Buffer)(nil)
var _ Sink = (*Buffer)(nil)
