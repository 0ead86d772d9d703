package iobuf

import (
	"math"
	"strconv"
)

// peekByte returns b's next unread byte without consuming it.
func (b *Buffer) peekByte() (byte, bool) {
	if b.size == 0 {
		return 0, false
	}
	return b.head.data[b.head.pos], true
}

// discardByte consumes b's next unread byte.
func (b *Buffer) discardByte() {
	h := b.head
	h.pos++
	b.size--
	if h.pos == h.limit {
		b.popHead()
	}
}

// readInto fills dst entirely from b, or fails with UnexpectedEnd.
func (b *Buffer) readInto(dst []byte) error {
	if int64(len(dst)) > b.size {
		return newError(UnexpectedEnd, "read", nil)
	}
	off := 0
	for off < len(dst) {
		h := b.head
		n := copy(dst[off:], h.data[h.pos:h.limit])
		h.pos += n
		off += n
		b.size -= int64(n)
		if h.pos == h.limit {
			b.popHead()
		}
	}
	return nil
}

func (b *Buffer) writeBigEndian(v uint64, n int) {
	var buf [8]byte
	for i := 0; i < n; i++ {
		buf[n-1-i] = byte(v >> (8 * uint(i)))
	}
	b.appendBytes(buf[:n])
}

func (b *Buffer) writeLittleEndian(v uint64, n int) {
	var buf [8]byte
	for i := 0; i < n; i++ {
		buf[i] = byte(v >> (8 * uint(i)))
	}
	b.appendBytes(buf[:n])
}

func (b *Buffer) readBigEndian(n int) (uint64, error) {
	var buf [8]byte
	if err := b.readInto(buf[:n]); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

func (b *Buffer) readLittleEndian(n int) (uint64, error) {
	var buf [8]byte
	if err := b.readInto(buf[:n]); err != nil {
		return 0, err
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

// WriteByte appends a single byte. It implements io.ByteWriter.
func (b *Buffer) WriteByte(v byte) error {
	b.appendBytes([]byte{v})
	return nil
}

// WriteShort appends a 16-bit big-endian integer.
func (b *Buffer) WriteShort(v int16) { b.writeBigEndian(uint64(uint16(v)), 2) }

// WriteShortLe appends a 16-bit little-endian integer.
func (b *Buffer) WriteShortLe(v int16) { b.writeLittleEndian(uint64(uint16(v)), 2) }

// WriteInt appends a 32-bit big-endian integer.
func (b *Buffer) WriteInt(v int32) { b.writeBigEndian(uint64(uint32(v)), 4) }

// WriteIntLe appends a 32-bit little-endian integer.
func (b *Buffer) WriteIntLe(v int32) { b.writeLittleEndian(uint64(uint32(v)), 4) }

// WriteLong appends a 64-bit big-endian integer.
func (b *Buffer) WriteLong(v int64) { b.writeBigEndian(uint64(v), 8) }

// WriteLongLe appends a 64-bit little-endian integer.
func (b *Buffer) WriteLongLe(v int64) { b.writeLittleEndian(uint64(v), 8) }

// ReadByte consumes and returns a single byte. It implements io.ByteReader.
func (b *Buffer) ReadByte() (byte, error) {
	c, ok := b.peekByte()
	if !ok {
		return 0, newError(UnexpectedEnd, "ReadByte", nil)
	}
	b.discardByte()
	return c, nil
}

// ReadShort consumes a 16-bit big-endian integer.
func (b *Buffer) ReadShort() (int16, error) {
	v, err := b.readBigEndian(2)
	return int16(uint16(v)), err
}

// ReadShortLe consumes a 16-bit little-endian integer.
func (b *Buffer) ReadShortLe() (int16, error) {
	v, err := b.readLittleEndian(2)
	return int16(uint16(v)), err
}

// ReadInt consumes a 32-bit big-endian integer.
func (b *Buffer) ReadInt() (int32, error) {
	v, err := b.readBigEndian(4)
	return int32(uint32(v)), err
}

// ReadIntLe consumes a 32-bit little-endian integer.
func (b *Buffer) ReadIntLe() (int32, error) {
	v, err := b.readLittleEndian(4)
	return int32(uint32(v)), err
}

// ReadLong consumes a 64-bit big-endian integer.
func (b *Buffer) ReadLong() (int64, error) {
	v, err := b.readBigEndian(8)
	return int64(v), err
}

// ReadLongLe consumes a 64-bit little-endian integer.
func (b *Buffer) ReadLongLe() (int64, error) {
	v, err := b.readLittleEndian(8)
	return int64(v), err
}

// WriteDecimalLong appends v as its ASCII decimal representation
// (optional leading '-', then digits).
func (b *Buffer) WriteDecimalLong(v int64) {
	var buf [20]byte
	b.appendBytes(strconv.AppendInt(buf[:0], v, 10))
}

// WriteHexadecimalUnsignedLong appends v as its ASCII lowercase
// hexadecimal representation, with no leading zeroes (other than a
// single "0" for v==0).
func (b *Buffer) WriteHexadecimalUnsignedLong(v uint64) {
	var buf [16]byte
	b.appendBytes(strconv.AppendUint(buf[:0], v, 16))
}

func (b *Buffer) drainDigits(isDigit func(byte) bool) {
	for {
		c, ok := b.peekByte()
		if !ok || !isDigit(c) {
			return
		}
		b.discardByte()
	}
}

func isDecDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexDigitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

// ReadDecimalLong consumes an optional leading '-' followed by one or
// more decimal digits, stopping at the first non-digit or end of data.
// It fails with OverflowMalformed if the input does not start with a
// digit (after an optional sign) or if the value overflows int64; on
// overflow, the remaining run of digits is still consumed.
func (b *Buffer) ReadDecimalLong() (int64, error) {
	const op = "ReadDecimalLong"
	if b.size == 0 {
		return 0, newError(UnexpectedEnd, op, nil)
	}
	neg := false
	if c, ok := b.peekByte(); ok && c == '-' {
		neg = true
		b.discardByte()
	}
	var value int64
	digits := 0
	const overflowZone = math.MinInt64 / 10
	for {
		c, ok := b.peekByte()
		if !ok || !isDecDigit(c) {
			break
		}
		digit := int64(c - '0')
		if value < overflowZone {
			b.drainDigits(isDecDigit)
			return 0, newError(OverflowMalformed, op, nil)
		}
		value *= 10
		if value < math.MinInt64+digit {
			b.drainDigits(isDecDigit)
			return 0, newError(OverflowMalformed, op, nil)
		}
		value -= digit
		b.discardByte()
		digits++
	}
	if digits == 0 {
		return 0, newError(OverflowMalformed, op, nil)
	}
	if !neg {
		if value == math.MinInt64 {
			return 0, newError(OverflowMalformed, op, nil)
		}
		value = -value
	}
	return value, nil
}

// ReadHexadecimalUnsignedLong consumes one or more of 0-9, a-f, A-F,
// stopping at the first other byte or end of data. It fails with
// OverflowMalformed if there is no leading hex digit or the value
// overflows 64 bits (more than 16 hex digits); on overflow, the
// remaining run of hex digits is still consumed.
func (b *Buffer) ReadHexadecimalUnsignedLong() (uint64, error) {
	const op = "ReadHexadecimalUnsignedLong"
	if b.size == 0 {
		return 0, newError(UnexpectedEnd, op, nil)
	}
	var value uint64
	digits := 0
	for {
		c, ok := b.peekByte()
		if !ok || !isHexDigit(c) {
			break
		}
		if digits == 16 {
			b.drainDigits(isHexDigit)
			return 0, newError(OverflowMalformed, op, nil)
		}
		value = value<<4 | uint64(hexDigitValue(c))
		b.discardByte()
		digits++
	}
	if digits == 0 {
		return 0, newError(OverflowMalformed, op, nil)
	}
	return value, nil
}
