// Package iohash provides sink adapters that tee every byte written
// through them into a running hash or HMAC digest, the out-of-core
// "hash/HMAC functions" collaborator spec.md describes only as an
// external dependency.
package iohash

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/blake2b"

	"github.com/grailbio/iobuf"
)

// HashingSink tees writes through to an underlying iobuf.Sink while
// feeding the same bytes into a hash.Hash. Sum returns the running
// digest at any point; it does not reset the hash.
type HashingSink struct {
	underlying iobuf.Sink
	h          hash.Hash
	timeout    iobuf.Deadline
}

// NewHashingSink wraps sink, hashing every byte written with newHash
// (sha256.New if nil).
func NewHashingSink(sink iobuf.Sink, newHash func() hash.Hash) *HashingSink {
	if newHash == nil {
		newHash = sha256.New
	}
	return &HashingSink{underlying: sink, h: newHash()}
}

// NewBlake2bHashingSink wraps sink, hashing every byte written with
// blake2b-256.
func NewBlake2bHashingSink(sink iobuf.Sink) (*HashingSink, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	return &HashingSink{underlying: sink, h: h}, nil
}

// Write implements iobuf.Sink.
func (s *HashingSink) Write(src *iobuf.Buffer, byteCount int64) error {
	p, err := src.ReadByteArray(byteCount)
	if err != nil {
		return err
	}
	s.h.Write(p) // hash.Hash.Write never returns an error
	var tmp iobuf.Buffer
	tmp.WriteByteArray(p)
	return s.underlying.Write(&tmp, tmp.Size())
}

// Flush implements iobuf.Sink.
func (s *HashingSink) Flush() error { return s.underlying.Flush() }

// Timeout implements iobuf.Sink.
func (s *HashingSink) Timeout() *iobuf.Deadline { return &s.timeout }

// Close implements iobuf.Sink.
func (s *HashingSink) Close() error { return s.underlying.Close() }

// Sum returns the digest of every byte written so far.
func (s *HashingSink) Sum() []byte { return s.h.Sum(nil) }

var _ iobuf.Sink = (*HashingSink)(nil)

// HmacSink is HashingSink's keyed counterpart, computing an HMAC over
// every byte written rather than a bare hash.
type HmacSink struct {
	underlying iobuf.Sink
	mac        hash.Hash
	timeout    iobuf.Deadline
}

// NewHmacSink wraps sink, computing an HMAC with the given key using
// newHash (sha256.New if nil) as the underlying hash.
func NewHmacSink(sink iobuf.Sink, key []byte, newHash func() hash.Hash) *HmacSink {
	if newHash == nil {
		newHash = sha256.New
	}
	return &HmacSink{underlying: sink, mac: hmac.New(newHash, key)}
}

// Write implements iobuf.Sink.
func (s *HmacSink) Write(src *iobuf.Buffer, byteCount int64) error {
	p, err := src.ReadByteArray(byteCount)
	if err != nil {
		return err
	}
	s.mac.Write(p)
	var tmp iobuf.Buffer
	tmp.WriteByteArray(p)
	return s.underlying.Write(&tmp, tmp.Size())
}

// Flush implements iobuf.Sink.
func (s *HmacSink) Flush() error { return s.underlying.Flush() }

// Timeout implements iobuf.Sink.
func (s *HmacSink) Timeout() *iobuf.Deadline { return &s.timeout }

// Close implements iobuf.Sink.
func (s *HmacSink) Close() error { return s.underlying.Close() }

// Sum returns the HMAC of every byte written so far.
func (s *HmacSink) Sum() []byte { return s.mac.Sum(nil) }

// Equal reports whether mac matches the running HMAC, using a
// constant-time comparison.
func (s *HmacSink) Equal(mac []byte) bool { return hmac.Equal(s.Sum(), mac) }

var _ iobuf.Sink = (*HmacSink)(nil)
