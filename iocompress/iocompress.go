// Package iocompress adapts iobuf Sources and Sinks through a
// compression codec: NewGzipSource/NewGzipSink wrap klauspost/compress's
// gzip implementation, and NewZstdSource/NewZstdSink wrap DataDog/zstd.
// Each adapter is a thin loop pulling/pushing through an owned
// iobuf.Buffer and the real (de)compressor — no format is reimplemented
// here.
package iocompress

import (
	"io"

	"github.com/DataDog/zstd"
	"github.com/klauspost/compress/gzip"

	"github.com/grailbio/iobuf"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// sourceReader adapts an iobuf.Source into an io.Reader, the direction
// a stdlib-shaped decompressor expects.
type sourceReader struct {
	src iobuf.Source
	buf iobuf.Buffer
}

func (r *sourceReader) Read(p []byte) (int, error) {
	for r.buf.IsEmpty() {
		n, err := r.src.Read(&r.buf, int64(len(p)))
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, io.EOF
		}
	}
	data, err := r.buf.ReadByteArray(int64(len(p)))
	if err != nil && r.buf.Size() == 0 {
		return 0, err
	}
	return copy(p, data), nil
}

// sinkWriter adapts an iobuf.Sink into an io.Writer.
type sinkWriter struct {
	sink iobuf.Sink
	buf  iobuf.Buffer
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	w.buf.WriteByteArray(p)
	if err := w.sink.Write(&w.buf, w.buf.Size()); err != nil {
		return 0, err
	}
	return len(p), nil
}

// gzipSource decompresses a gzip stream pulled from an underlying
// iobuf.Source.
type gzipSource struct {
	underlying iobuf.Source
	r          *sourceReader
	gz         *gzip.Reader
	timeout    iobuf.Deadline
}

// NewGzipSource wraps src, yielding the decompressed byte stream.
func NewGzipSource(src iobuf.Source) (iobuf.Source, error) {
	r := &sourceReader{src: src}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &gzipSource{underlying: src, r: r, gz: gz}, nil
}

func (s *gzipSource) Read(dst *iobuf.Buffer, byteCount int64) (int64, error) {
	p := make([]byte, byteCount)
	n, err := s.gz.Read(p)
	if n == 0 {
		if err == io.EOF || err == nil {
			return -1, nil
		}
		return -1, err
	}
	dst.WriteByteArray(p[:n])
	if err == io.EOF {
		err = nil
	}
	return int64(n), err
}
func (s *gzipSource) Timeout() *iobuf.Deadline { return &s.timeout }
func (s *gzipSource) Close() error {
	if err := s.gz.Close(); err != nil {
		return err
	}
	return s.underlying.Close()
}

// gzipSink compresses writes through to an underlying iobuf.Sink.
type gzipSink struct {
	underlying iobuf.Sink
	w          *sinkWriter
	gz         *gzip.Writer
	timeout    iobuf.Deadline
}

// NewGzipSink wraps sink, compressing every byte written through it.
func NewGzipSink(sink iobuf.Sink) iobuf.Sink {
	w := &sinkWriter{sink: sink}
	return &gzipSink{underlying: sink, w: w, gz: gzip.NewWriter(w)}
}

func (s *gzipSink) Write(src *iobuf.Buffer, byteCount int64) error {
	p, err := src.ReadByteArray(byteCount)
	if err != nil {
		return err
	}
	_, err = s.gz.Write(p)
	return err
}
func (s *gzipSink) Flush() error {
	if err := s.gz.Flush(); err != nil {
		return err
	}
	return s.underlying.Flush()
}
func (s *gzipSink) Timeout() *iobuf.Deadline { return &s.timeout }
func (s *gzipSink) Close() error {
	if err := s.gz.Close(); err != nil {
		return err
	}
	return s.underlying.Close()
}

// zstdSource decompresses a zstd stream pulled from an underlying
// iobuf.Source.
type zstdSource struct {
	underlying iobuf.Source
	r          *sourceReader
	zr         io.ReadCloser
	timeout    iobuf.Deadline
}

// NewZstdSource wraps src, yielding the decompressed byte stream.
func NewZstdSource(src iobuf.Source) iobuf.Source {
	r := &sourceReader{src: src}
	return &zstdSource{underlying: src, r: r, zr: zstd.NewReader(r)}
}

func (s *zstdSource) Read(dst *iobuf.Buffer, byteCount int64) (int64, error) {
	p := make([]byte, byteCount)
	n, err := s.zr.Read(p)
	if n == 0 {
		if err == io.EOF || err == nil {
			return -1, nil
		}
		return -1, err
	}
	dst.WriteByteArray(p[:n])
	if err == io.EOF {
		err = nil
	}
	return int64(n), err
}
func (s *zstdSource) Timeout() *iobuf.Deadline { return &s.timeout }
func (s *zstdSource) Close() error {
	if err := s.zr.Close(); err != nil {
		return err
	}
	return s.underlying.Close()
}

// zstdSink compresses writes through to an underlying iobuf.Sink.
type zstdSink struct {
	underlying iobuf.Sink
	w          *sinkWriter
	zw         io.WriteCloser
	timeout    iobuf.Deadline
}

// NewZstdSink wraps sink, compressing every byte written through it.
func NewZstdSink(sink iobuf.Sink) iobuf.Sink {
	w := &sinkWriter{sink: sink}
	return &zstdSink{underlying: sink, w: w, zw: zstd.NewWriter(w)}
}

func (s *zstdSink) Write(src *iobuf.Buffer, byteCount int64) error {
	p, err := src.ReadByteArray(byteCount)
	if err != nil {
		return err
	}
	_, err = s.zw.Write(p)
	return err
}
func (s *zstdSink) Flush() error { return s.underlying.Flush() }
func (s *zstdSink) Timeout() *iobuf.Deadline { return &s.timeout }
func (s *zstdSink) Close() error {
	if err := s.zw.Close(); err != nil {
		return err
	}
	return s.underlying.Close()
}

// bufferedSourceAdapter makes a *iobuf.BufferedSource usable wherever
// a plain iobuf.Source is expected, since BufferedSource's own Read
// targets a []byte (for io-style callers) rather than a Buffer.
type bufferedSourceAdapter struct{ bs *iobuf.BufferedSource }

func (a bufferedSourceAdapter) Read(dst *iobuf.Buffer, byteCount int64) (int64, error) {
	p := make([]byte, byteCount)
	n, err := a.bs.Read(p, 0, len(p))
	if n <= 0 {
		return int64(n), err
	}
	dst.WriteByteArray(p[:n])
	return int64(n), err
}
func (a bufferedSourceAdapter) Timeout() *iobuf.Deadline { return noSourceTimeout }
func (a bufferedSourceAdapter) Close() error            { return a.bs.Close() }

var noSourceTimeout = &iobuf.Deadline{}

// DetectAndWrap peeks at src's leading bytes via BufferedSource.Peek to
// sniff a gzip or zstd magic number without consuming them, then
// returns src wrapped with the matching decompressor (or the plain
// buffered source, unchanged, if neither magic matches).
func DetectAndWrap(bs *iobuf.BufferedSource) (iobuf.Source, error) {
	peek := bs.Peek()
	head, err := peek.ReadByteArray(int64(len(zstdMagic)))
	if err != nil && !iobuf.Is(iobuf.UnexpectedEnd, err) {
		return nil, err
	}
	adapted := bufferedSourceAdapter{bs: bs}
	switch {
	case hasPrefix(head, gzipMagic):
		return NewGzipSource(adapted)
	case hasPrefix(head, zstdMagic):
		return NewZstdSource(adapted), nil
	default:
		return adapted, nil
	}
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if b[i] != p {
			return false
		}
	}
	return true
}

var (
	_ iobuf.Source = (*gzipSource)(nil)
	_ iobuf.Sink   = (*gzipSink)(nil)
	_ iobuf.Source = (*zstdSource)(nil)
	_ iobuf.Sink   = (*zstdSink)(nil)
)
