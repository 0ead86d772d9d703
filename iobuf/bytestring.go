package iobuf

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"sync"
	"unicode/utf8"
)

// ByteString is an immutable byte sequence, with its UTF-8 decoding and
// hash computed lazily and cached. The zero value is the empty string.
//
// ByteString is a small value type (a slice header plus a cache pointer);
// copying it is cheap and safe, and all copies share the same lazily
// computed cache.
type ByteString struct {
	data  []byte
	cache *bsCache
}

type bsCache struct {
	mu       sync.Mutex
	strValid bool
	str      string
	hashValid bool
	hash     uint32
}

// NewByteString copies b into a new, independent ByteString.
func NewByteString(b []byte) ByteString {
	cp := make([]byte, len(b))
	copy(cp, b)
	return ByteString{data: cp, cache: &bsCache{}}
}

// byteStringFromShared wraps b as a ByteString without copying. Callers
// must not subsequently mutate b.
func byteStringFromShared(b []byte) ByteString {
	return ByteString{data: b, cache: &bsCache{}}
}

// Len returns the number of bytes in s.
func (s ByteString) Len() int { return len(s.data) }

// Bytes returns s's bytes. The caller must not modify the returned slice.
func (s ByteString) Bytes() []byte { return s.data }

// At returns the byte at index i.
func (s ByteString) At(i int) byte { return s.data[i] }

func (s ByteString) cacheOf() *bsCache {
	if s.cache == nil {
		return &bsCache{}
	}
	return s.cache
}

// Utf8 returns s decoded as UTF-8 (replacing ill-formed sequences with
// U+FFFD, matching strings built from invalid byte sequences).
func (s ByteString) Utf8() string {
	c := s.cacheOf()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.strValid {
		c.str = sanitizeUtf8(s.data)
		c.strValid = true
	}
	return c.str
}

// String implements fmt.Stringer by returning a best-effort UTF-8 decode.
func (s ByteString) String() string { return s.Utf8() }

// Hash returns a 32-bit hash of s's bytes (FNV-1a), cached after first
// computation.
func (s ByteString) Hash() uint32 {
	c := s.cacheOf()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hashValid {
		h := uint32(2166136261)
		for _, b := range s.data {
			h ^= uint32(b)
			h *= 16777619
		}
		c.hash = h
		c.hashValid = true
	}
	return c.hash
}

// Equal reports whether s and other contain the same bytes.
func (s ByteString) Equal(other ByteString) bool { return bytes.Equal(s.data, other.data) }

// EqualIgnoreCase reports whether s and other are equal under ASCII
// case folding.
func (s ByteString) EqualIgnoreCase(other ByteString) bool {
	if len(s.data) != len(other.data) {
		return false
	}
	for i, b := range s.data {
		if asciiLower(b) != asciiLower(other.data[i]) {
			return false
		}
	}
	return true
}

// Compare returns -1, 0, or 1 according to unsigned lexicographic byte
// order (0xFF > 0x00), as opposed to signed-byte comparisons some
// languages default to.
func (s ByteString) Compare(other ByteString) int {
	a, b := s.data, other.data
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// HasPrefix reports whether s begins with prefix.
func (s ByteString) HasPrefix(prefix ByteString) bool {
	return len(s.data) >= len(prefix.data) && bytes.Equal(s.data[:len(prefix.data)], prefix.data)
}

// HasSuffix reports whether s ends with suffix.
func (s ByteString) HasSuffix(suffix ByteString) bool {
	return len(s.data) >= len(suffix.data) &&
		bytes.Equal(s.data[len(s.data)-len(suffix.data):], suffix.data)
}

// Substring returns the byte range [begin, end) of s, sharing the
// backing array (copy-on-write, same as a segment split).
func (s ByteString) Substring(begin, end int) ByteString {
	if begin < 0 || end > len(s.data) || begin > end {
		panic("iobuf: ByteString.Substring out of range")
	}
	return byteStringFromShared(s.data[begin:end])
}

// IndexOf returns the index of the first occurrence of needle at or
// after from, or -1.
func (s ByteString) IndexOf(needle ByteString, from int) int {
	if from < 0 {
		from = 0
	}
	if from > len(s.data) {
		return -1
	}
	i := bytes.Index(s.data[from:], needle.data)
	if i < 0 {
		return -1
	}
	return i + from
}

// LastIndexOf returns the index of the last occurrence of needle at or
// before fromEnd (exclusive upper bound), or -1.
func (s ByteString) LastIndexOf(needle ByteString, fromEnd int) int {
	if fromEnd > len(s.data) {
		fromEnd = len(s.data)
	}
	if fromEnd < 0 {
		return -1
	}
	return bytes.LastIndex(s.data[:fromEnd], needle.data)
}

// ToAsciiLowercase returns a copy of s with ASCII letters lowercased.
func (s ByteString) ToAsciiLowercase() ByteString {
	out := make([]byte, len(s.data))
	for i, b := range s.data {
		out[i] = asciiLower(b)
	}
	return ByteString{data: out, cache: &bsCache{}}
}

// ToAsciiUppercase returns a copy of s with ASCII letters uppercased.
func (s ByteString) ToAsciiUppercase() ByteString {
	out := make([]byte, len(s.data))
	for i, b := range s.data {
		out[i] = asciiUpper(b)
	}
	return ByteString{data: out, cache: &bsCache{}}
}

func asciiLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func asciiUpper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// Hex returns s encoded as lowercase hexadecimal.
func (s ByteString) Hex() string { return hex.EncodeToString(s.data) }

// DecodeHex decodes a hexadecimal string (upper- or lowercase) into a
// ByteString.
func DecodeHex(h string) (ByteString, error) {
	b, err := hex.DecodeString(h)
	if err != nil {
		return ByteString{}, newError(InvalidArgument, "decode hex", err)
	}
	return ByteString{data: b, cache: &bsCache{}}, nil
}

// Base64 returns s encoded as standard (padded) base64.
func (s ByteString) Base64() string { return base64.StdEncoding.EncodeToString(s.data) }

// Base64Url returns s encoded as URL-safe, unpadded base64.
func (s ByteString) Base64Url() string { return base64.RawURLEncoding.EncodeToString(s.data) }

// DecodeBase64 decodes standard or URL-safe base64, with or without
// padding, as is conventional for interoperating with diverse producers.
func DecodeBase64(in string) (ByteString, error) {
	in = strings.Map(func(r rune) rune {
		switch r {
		case '-':
			return '+'
		case '_':
			return '/'
		}
		return r
	}, in)
	if m := len(in) % 4; m != 0 {
		in += strings.Repeat("=", 4-m)
	}
	b, err := base64.StdEncoding.DecodeString(in)
	if err != nil {
		return ByteString{}, newError(InvalidArgument, "decode base64", err)
	}
	return ByteString{data: b, cache: &bsCache{}}, nil
}

// Utf8ByteString encodes s as UTF-8. If s is not valid UTF-8, each
// ill-formed byte (for example each byte of an encoded surrogate half) is
// replaced with '?', and so is any U+FFFD already present in s.
func Utf8ByteString(s string) ByteString {
	if utf8.ValidString(s) {
		return ByteString{data: []byte(s), cache: &bsCache{}}
	}
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r == utf8.RuneError {
			buf = append(buf, '?')
			continue
		}
		buf = utf8.AppendRune(buf, r)
	}
	return ByteString{data: buf, cache: &bsCache{}}
}
