package iobuf

// UnsafeCursor is a reusable scratch handle onto a Buffer's segment
// arrays, letting a platform adapter (file descriptor, socket) read or
// write directly against buffer memory without copying through an
// intermediate []byte. A cursor is either detached (buf == nil) or
// attached to exactly one Buffer at a time.
//
// Data, Start, and End describe the window onto the current segment:
// Data[Start:End] is valid for read, and for write if the cursor was
// attached with ReadAndWriteUnsafe.
type UnsafeCursor struct {
	buf       *Buffer
	readWrite bool
	offset    int64
	seg       *segment

	Data       []byte
	Start, End int
}

// ReadUnsafe attaches c to b for reading. c must currently be detached.
func (b *Buffer) ReadUnsafe(c *UnsafeCursor) {
	if c.buf != nil {
		panic("iobuf: cursor already attached")
	}
	c.buf = b
	c.readWrite = false
}

// ReadAndWriteUnsafe attaches c to b for reading and writing. c must
// currently be detached.
func (b *Buffer) ReadAndWriteUnsafe(c *UnsafeCursor) {
	if c.buf != nil {
		panic("iobuf: cursor already attached")
	}
	c.buf = b
	c.readWrite = true
}

// Seek positions c at absolute offset o (0 <= o <= buf.Size()), setting
// Data/Start/End to the segment slice covering it. It returns the number
// of contiguous bytes from o to the end of that slice, or -1 if o is the
// buffer's size (end of buffer) or o == -1 (explicit detach-position,
// yielding Data == nil).
func (c *UnsafeCursor) Seek(o int64) int {
	if o == -1 {
		c.seg, c.Data, c.Start, c.End = nil, nil, 0, 0
		c.offset = -1
		return -1
	}
	if o < 0 || o > c.buf.size {
		panic("iobuf: UnsafeCursor.Seek: offset out of range")
	}
	if o == c.buf.size {
		c.seg, c.Data, c.Start, c.End = nil, nil, 0, 0
		c.offset = o
		return -1
	}
	s, rel := c.buf.locate(o)
	c.seg = s
	c.offset = o
	c.Data = s.data
	c.Start = s.pos + rel
	c.End = s.limit
	return c.End - c.Start
}

// Next advances c to the segment following the one it currently views,
// equivalent to Seek(o) where o is the absolute offset just past the
// current view.
func (c *UnsafeCursor) Next() int {
	if c.seg == nil {
		return -1
	}
	return c.Seek(c.offset + int64(c.End-c.Start))
}

// ExpandBuffer appends a writable tail segment with at least min bytes
// of spare capacity, positions c at the appended region, and grows the
// buffer's size to include it (the appended bytes are uninitialized).
// It returns the number of bytes appended. c must be a read-write
// cursor.
func (c *UnsafeCursor) ExpandBuffer(min int) int {
	if !c.readWrite {
		panic("iobuf: ExpandBuffer requires a read-write cursor")
	}
	t := c.buf.writableSegment(min)
	start := t.limit
	added := SegmentSize - start
	offset := c.buf.size
	t.limit = SegmentSize
	c.buf.size += int64(added)

	c.seg = t
	c.offset = offset
	c.Data = t.data
	c.Start = start
	c.End = SegmentSize
	return added
}

// ResizeBuffer grows or shrinks the buffer to exactly n bytes: growth
// appends uninitialized capacity, shrinking truncates from the tail,
// recycling any segment left fully empty. It returns the buffer's size
// before the resize, and detaches c's view (the caller must Seek again
// to resume reading/writing). c must be a read-write cursor.
func (c *UnsafeCursor) ResizeBuffer(n int64) int64 {
	if !c.readWrite {
		panic("iobuf: ResizeBuffer requires a read-write cursor")
	}
	if n < 0 {
		panic("iobuf: ResizeBuffer: negative size")
	}
	old := c.buf.size
	switch {
	case n < old:
		remove := old - n
		for remove > 0 {
			t := c.buf.tail()
			avail := int64(t.readable())
			if avail <= remove {
				remove -= avail
				c.buf.size -= avail
				c.buf.unlinkTail(t)
				pool.recycle(t)
			} else {
				t.limit -= int(remove)
				c.buf.size -= remove
				remove = 0
			}
		}
	case n > old:
		add := n - old
		for add > 0 {
			t := c.buf.writableSegment(1)
			room := int64(t.writable())
			take := room
			if take > add {
				take = add
			}
			t.limit += int(take)
			c.buf.size += take
			add -= take
		}
	}
	c.seg, c.Data, c.Start, c.End = nil, nil, 0, 0
	return old
}

// Close detaches c. The buffer's invariants must already hold: the
// caller is responsible for not leaving it in an inconsistent state
// (e.g. a write-in-progress segment with a limit past its true content).
func (c *UnsafeCursor) Close() error {
	c.buf, c.seg, c.Data = nil, nil, nil
	c.Start, c.End, c.offset = 0, 0, 0
	return nil
}
