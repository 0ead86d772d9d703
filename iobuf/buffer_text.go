package iobuf

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// locate returns the segment containing absolute offset and the byte
// offset within that segment's readable window.
func (b *Buffer) locate(offset int64) (*segment, int) {
	s := b.head
	pos := int64(0)
	for pos+int64(s.readable()) <= offset {
		pos += int64(s.readable())
		s = s.next
	}
	return s, int(offset - pos)
}

// byteAt peeks the byte at absolute offset without consuming anything.
func (b *Buffer) byteAt(offset int64) byte {
	s, off := b.locate(offset)
	return s.data[s.pos+off]
}

func encodeUtf8Rune(buf []byte, r rune) int {
	switch {
	case r < 0 || r > utf8.MaxRune:
		buf[0] = '?'
		return 1
	case r <= 0x7F:
		buf[0] = byte(r)
		return 1
	case r >= 0xD800 && r <= 0xDFFF:
		// Unpaired surrogate half: not representable in UTF-8.
		buf[0] = '?'
		return 1
	case r <= 0x7FF:
		buf[0] = 0xC0 | byte(r>>6)
		buf[1] = 0x80 | byte(r&0x3F)
		return 2
	case r <= 0xFFFF:
		buf[0] = 0xE0 | byte(r>>12)
		buf[1] = 0x80 | byte((r>>6)&0x3F)
		buf[2] = 0x80 | byte(r&0x3F)
		return 3
	default:
		buf[0] = 0xF0 | byte(r>>18)
		buf[1] = 0x80 | byte((r>>12)&0x3F)
		buf[2] = 0x80 | byte((r>>6)&0x3F)
		buf[3] = 0x80 | byte(r&0x3F)
		return 4
	}
}

// WriteByteArray appends a raw byte slice, copying it. It is the write
// side of ReadByteArray, used by collaborators that hand Buffer a plain
// []byte (e.g. iofile's in-memory helpers).
func (b *Buffer) WriteByteArray(p []byte) {
	b.appendBytes(p)
}

// WriteUtf8 appends s's UTF-8 encoding. Any rune that decodes as an
// unpaired surrogate half is emitted as the ASCII '?' byte rather than
// the Unicode replacement character.
func (b *Buffer) WriteUtf8(s string) {
	var tmp [4]byte
	out := make([]byte, 0, len(s))
	for _, r := range s {
		n := encodeUtf8Rune(tmp[:], r)
		out = append(out, tmp[:n]...)
	}
	b.appendBytes(out)
}

// WriteUtf8CodePoint appends a single code point's UTF-8 encoding,
// emitting '?' for an unpaired surrogate half.
func (b *Buffer) WriteUtf8CodePoint(r rune) {
	var tmp [4]byte
	n := encodeUtf8Rune(tmp[:], r)
	b.appendBytes(tmp[:n])
}

// ReadUtf8CodePoint consumes one UTF-8 code point (1-4 bytes). Overlong
// encodings, surrogate halves, and code points above U+10FFFF are
// rejected by returning the replacement code point U+FFFD, advancing
// past exactly the bytes consumed to detect the error (Go's
// unicode/utf8 implements this "maximal subpart" recovery natively).
func (b *Buffer) ReadUtf8CodePoint() (rune, error) {
	if b.size == 0 {
		return 0, newError(UnexpectedEnd, "ReadUtf8CodePoint", nil)
	}
	peek := b.peekBytes(utf8.UTFMax)
	r, size := utf8.DecodeRune(peek)
	for i := 0; i < size; i++ {
		b.discardByte()
	}
	return r, nil
}

// peekBytes returns up to maxN of b's next unread bytes without
// consuming them, following segment links as needed.
func (b *Buffer) peekBytes(maxN int) []byte {
	out := make([]byte, 0, maxN)
	if b.head == nil || maxN <= 0 {
		return out
	}
	s := b.head
	for {
		avail := s.readable()
		need := maxN - len(out)
		take := avail
		if take > need {
			take = need
		}
		out = append(out, s.data[s.pos:s.pos+take]...)
		if len(out) >= maxN {
			break
		}
		s = s.next
		if s == b.head {
			break
		}
	}
	return out
}

// ReadUtf8 consumes byteCount bytes and returns them as a string. Each
// ill-formed UTF-8 unit is replaced with U+FFFD, one replacement per
// maximal subpart, matching ReadUtf8CodePoint's recovery rule.
func (b *Buffer) ReadUtf8(byteCount int64) (string, error) {
	buf := make([]byte, byteCount)
	if err := b.readInto(buf); err != nil {
		return "", err
	}
	return sanitizeUtf8(buf), nil
}

// sanitizeUtf8 returns p decoded as UTF-8, with every ill-formed unit
// replaced by U+FFFD rather than passed through verbatim the way a bare
// string(p) conversion would.
func sanitizeUtf8(p []byte) string {
	if utf8.Valid(p) {
		return string(p)
	}
	var out strings.Builder
	out.Grow(len(p))
	for len(p) > 0 {
		r, size := utf8.DecodeRune(p)
		out.WriteRune(r)
		p = p[size:]
	}
	return out.String()
}

// ReadUtf8All consumes and returns all of b's remaining bytes as a
// string.
func (b *Buffer) ReadUtf8All() (string, error) {
	return b.ReadUtf8(b.size)
}

// ReadByteArray consumes byteCount bytes and returns a fresh copy.
func (b *Buffer) ReadByteArray(byteCount int64) ([]byte, error) {
	buf := make([]byte, byteCount)
	if err := b.readInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadByteString consumes byteCount bytes and returns them as a
// ByteString.
func (b *Buffer) ReadByteString(byteCount int64) (ByteString, error) {
	buf, err := b.ReadByteArray(byteCount)
	if err != nil {
		return ByteString{}, err
	}
	return byteStringFromShared(buf), nil
}

// ReadUtf8Line consumes bytes up to the next '\n' (discarding it and a
// single preceding '\r'), returning the preceding bytes as a string.
// If no '\n' is found, it returns all remaining bytes with ok=true, or
// ok=false if there were none (true end-of-input).
func (b *Buffer) ReadUtf8Line() (line string, ok bool, err error) {
	idx := b.IndexOfByte('\n', 0, b.size)
	if idx < 0 {
		if b.size == 0 {
			return "", false, nil
		}
		s, rerr := b.ReadUtf8All()
		return s, true, rerr
	}
	contentLen := idx
	if idx > 0 && b.byteAt(idx-1) == '\r' {
		contentLen--
	}
	raw := make([]byte, contentLen)
	if err = b.readInto(raw); err != nil {
		return "", false, err
	}
	toDiscard := idx - contentLen + 1
	for i := 0; i < toDiscard; i++ {
		b.discardByte()
	}
	return string(raw), true, nil
}

// ReadUtf8LineStrict is like ReadUtf8Line, but fails with UnexpectedEnd
// if end-of-input is reached before a '\n', or if no terminator is
// found with a content length of at most limit bytes. limit bounds the
// returned string's length, not the number of bytes consumed: a
// terminator landing just past limit (e.g. a '\r\n' whose '\n' sits at
// limit+1) is still honored.
func (b *Buffer) ReadUtf8LineStrict(limit int64) (string, error) {
	const op = "ReadUtf8LineStrict"
	if limit <= 0 {
		return "", newError(InvalidArgument, op, nil)
	}
	searchTo := limit + 2
	if searchTo > b.size {
		searchTo = b.size
	}
	idx := b.IndexOfByte('\n', 0, searchTo)
	if idx < 0 {
		return "", newError(UnexpectedEnd, op, nil)
	}
	contentLen := idx
	if idx > 0 && b.byteAt(idx-1) == '\r' {
		contentLen--
	}
	if int64(contentLen) > limit {
		return "", newError(UnexpectedEnd, op, nil)
	}
	raw := make([]byte, contentLen)
	if err := b.readInto(raw); err != nil {
		return "", err
	}
	toDiscard := idx - contentLen + 1
	for i := 0; i < toDiscard; i++ {
		b.discardByte()
	}
	return string(raw), nil
}

// IndexOfByte returns the absolute offset of the first occurrence of
// target within [from, to), or -1. to is clamped to b.Size().
func (b *Buffer) IndexOfByte(target byte, from, to int64) int64 {
	if from < 0 {
		from = 0
	}
	if to > b.size {
		to = b.size
	}
	if from >= to || b.head == nil {
		return -1
	}
	s, off := b.locate(from)
	cur := from
	for cur < to {
		avail := int64(s.readable() - off)
		window := avail
		if cur+window > to {
			window = to - cur
		}
		data := s.data[s.pos+off : s.pos+off+int(window)]
		if i := bytes.IndexByte(data, target); i >= 0 {
			return cur + int64(i)
		}
		cur += window
		off = 0
		s = s.next
	}
	return -1
}

// regionMatches reports whether needle's bytes appear starting at
// absolute offset, following segment links without materializing a
// contiguous view.
func (b *Buffer) regionMatches(offset int64, needle []byte) bool {
	s, off := b.locate(offset)
	i := 0
	for i < len(needle) {
		avail := s.readable() - off
		n := len(needle) - i
		if n > avail {
			n = avail
		}
		if n == 0 {
			return false
		}
		if !bytes.Equal(s.data[s.pos+off:s.pos+off+n], needle[i:i+n]) {
			return false
		}
		i += n
		off = 0
		s = s.next
	}
	return true
}

// IndexOfByteString returns the absolute offset of the first occurrence
// of needle within [from, to), or -1. It compares the needle's first
// byte with IndexOfByte, then falls back to a byte-by-byte region
// comparison that follows segment links — it never copies the buffer's
// contents into a contiguous scratch array.
//
// When to < from+needle.Len() and to > Size(), the caller-supplied to is
// honored as given (clamped to Size()) rather than rejected: a needle
// that would be truncated by to simply cannot match, which IndexOfByte's
// empty-window behavior already produces correctly.
func (b *Buffer) IndexOfByteString(needle ByteString, from, to int64) int64 {
	n := int64(needle.Len())
	if from < 0 {
		from = 0
	}
	if to > b.size {
		to = b.size
	}
	if n == 0 {
		if from > to {
			return -1
		}
		return from
	}
	last := to - n
	if last < 0 {
		return -1
	}
	first := needle.At(0)
	pos := from
	for pos <= last {
		idx := b.IndexOfByte(first, pos, to)
		if idx < 0 || idx > last {
			return -1
		}
		if b.regionMatches(idx, needle.Bytes()) {
			return idx
		}
		pos = idx + 1
	}
	return -1
}

// IndexOfElement returns the first absolute offset at or after from
// where any byte of targets appears, or -1.
func (b *Buffer) IndexOfElement(targets ByteString, from int64) int64 {
	if from < 0 {
		from = 0
	}
	if from >= b.size || b.head == nil {
		return -1
	}
	s, off := b.locate(from)
	pos := from
	for pos < b.size {
		avail := s.readable() - off
		for i := 0; i < avail; i++ {
			if bytes.IndexByte(targets.Bytes(), s.data[s.pos+off+i]) >= 0 {
				return pos + int64(i)
			}
		}
		pos += int64(avail)
		off = 0
		s = s.next
	}
	return -1
}
